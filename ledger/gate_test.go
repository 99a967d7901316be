package ledger_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/points-ledger/ledger"
)

func TestWindowPolicy_AlwaysOpen(t *testing.T) {
	p := ledger.AlwaysOpen()
	assert.True(t, p.IsOpen(time.Date(2026, time.March, 10, 3, 0, 0, 0, time.UTC)))
	assert.Equal(t, "always", p.String())
}

func TestWindowPolicy_DailyWindow_Bounds(t *testing.T) {
	// Open bound inclusive, close bound exclusive.
	p := ledger.DailyWindow(18, 0, 21, 0, time.UTC)
	at := func(h, m int) time.Time {
		return time.Date(2026, time.March, 10, h, m, 0, 0, time.UTC)
	}
	assert.False(t, p.IsOpen(at(17, 59)))
	assert.True(t, p.IsOpen(at(18, 0)))
	assert.True(t, p.IsOpen(at(20, 59)))
	assert.False(t, p.IsOpen(at(21, 0)))
	assert.Equal(t, "18:00-21:00", p.String())
}

func TestWindowPolicy_Timezone(t *testing.T) {
	// GIVEN: a Berlin evening window
	// WHEN: evaluated against a UTC instant
	// THEN: openness follows Berlin wall-clock time

	berlin, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)
	p := ledger.DailyWindow(18, 0, 21, 0, berlin)

	// 17:30 UTC in March is 18:30 in Berlin (CET, UTC+1).
	assert.True(t, p.IsOpen(time.Date(2026, time.March, 10, 17, 30, 0, 0, time.UTC)))
	// 20:30 UTC is 21:30 in Berlin.
	assert.False(t, p.IsOpen(time.Date(2026, time.March, 10, 20, 30, 0, 0, time.UTC)))
}

func TestParseWindowPolicy(t *testing.T) {
	p, err := ledger.ParseWindowPolicy("always", nil)
	require.NoError(t, err)
	assert.Equal(t, "always", p.String())

	p, err = ledger.ParseWindowPolicy("", nil)
	require.NoError(t, err)
	assert.Equal(t, "always", p.String())

	p, err = ledger.ParseWindowPolicy("18:00-21:00", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, "18:00-21:00", p.String())

	for _, bad := range []string{"21:00-18:00", "18:00-18:00", "25:00-26:00", "18-21", "nonsense"} {
		_, err := ledger.ParseWindowPolicy(bad, time.UTC)
		assert.Error(t, err, bad)
	}
}
