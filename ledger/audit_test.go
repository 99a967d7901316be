package ledger_test

import (
	"bytes"
	"context"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/points-ledger/ledger"
)

func TestWeekAudit_SortedNewestFirstAcrossUsers(t *testing.T) {
	// GIVEN: audit entries from two participants at distinct instants
	// WHEN: reading the week audit
	// THEN: entries interleave across users, newest first, on the real
	//       timestamp

	svc, _, clock := newTestService(t, ledger.AlwaysOpen(), "Ann", "Ben")
	ctx := context.Background()
	week := "2026-11"

	base := time.Date(2026, time.March, 10, 19, 0, 0, 0, time.UTC)
	clock.now = base
	_, err := svc.RecordActivity(ctx, week, "Ann", ledger.KindT1, 10, "admin", "")
	require.NoError(t, err)

	clock.now = base.Add(time.Minute)
	_, err = svc.SetWeekGoal(ctx, week, "Ben", 30, "admin")
	require.NoError(t, err)

	clock.now = base.Add(2 * time.Minute)
	_, err = svc.RecordActivity(ctx, week, "Ann", ledger.KindT2, 20, "admin", "")
	require.NoError(t, err)

	records, err := svc.WeekAudit(ctx, week)
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, "Ann", records[0].User)
	assert.Equal(t, ledger.AuditActivity, records[0].Type)
	assert.Equal(t, "Ben", records[1].User)
	assert.Equal(t, ledger.AuditGoalSet, records[1].Type)
	assert.Equal(t, "Ann", records[2].User)

	for i := 1; i < len(records); i++ {
		assert.False(t, records[i-1].At.Before(records[i].At))
	}
}

func TestExportAuditCSV_FixedHeaderSparseRows(t *testing.T) {
	// Payloads differ by audit type; the CSV still has one fixed column
	// set with empty cells for absent fields.

	svc, _, clock := newTestService(t, ledger.AlwaysOpen(), "Ann")
	ctx := context.Background()
	week := "2026-11"

	_, err := svc.SetWeekGoal(ctx, week, "Ann", 40, "admin")
	require.NoError(t, err)
	clock.now = clock.now.Add(time.Minute)
	_, err = svc.RecordActivity(ctx, week, "Ann", ledger.KindTelefonie, 12.5, "chris", "callbacks")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, svc.ExportAuditCSV(ctx, week, &buf))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3) // header + 2 entries

	header := rows[0]
	assert.Equal(t, []string{
		"at", "week_id", "user", "actor", "type",
		"activity_id", "kind", "points", "note", "goal",
		"start_date", "end_date", "reason",
	}, header)

	col := func(row []string, name string) string {
		for i, h := range header {
			if h == name {
				return row[i]
			}
		}
		t.Fatalf("no column %q", name)
		return ""
	}

	// Newest first: the activity row precedes the goal row.
	assert.Equal(t, "activity", col(rows[1], "type"))
	assert.Equal(t, "telefonie", col(rows[1], "kind"))
	assert.Equal(t, "12.5", col(rows[1], "points"))
	assert.Equal(t, "callbacks", col(rows[1], "note"))
	assert.Empty(t, col(rows[1], "goal"))

	assert.Equal(t, "goal_set", col(rows[2], "type"))
	assert.Equal(t, "40", col(rows[2], "goal"))
	assert.Empty(t, col(rows[2], "activity_id"))
	assert.Equal(t, week, col(rows[2], "week_id"))
}

func TestExportAuditCSV_EmptyWeek(t *testing.T) {
	svc, _, _ := newTestService(t, ledger.AlwaysOpen(), "Ann")

	var buf bytes.Buffer
	require.NoError(t, svc.ExportAuditCSV(context.Background(), "2026-40", &buf))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Len(t, rows, 1, "header only")
}
