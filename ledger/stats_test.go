package ledger_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/points-ledger/ledger"
)

func TestComputeUserStats_GoalAchievedRemainingBalance(t *testing.T) {
	svc, _, _ := newTestService(t, ledger.AlwaysOpen(), "Ann")
	ctx := context.Background()
	week := "2026-11"

	_, err := svc.SetWeekGoal(ctx, week, "Ann", 50, "admin")
	require.NoError(t, err)
	_, err = svc.RecordActivity(ctx, week, "Ann", ledger.KindT1, 15, "admin", "")
	require.NoError(t, err)
	_, err = svc.RecordActivity(ctx, week, "Ann", ledger.KindTelefonie, 12.5, "admin", "")
	require.NoError(t, err)

	stats, err := svc.ComputeUserStats(ctx, week, "Ann")
	require.NoError(t, err)
	assert.Equal(t, "50", stats.Goal.String())
	assert.Equal(t, "27.5", stats.Achieved.String())
	assert.Equal(t, "22.5", stats.Remaining.String())
	assert.Equal(t, "-22.5", stats.Balance.String())
}

func TestComputeUserStats_RemainingClampedBalanceNot(t *testing.T) {
	// Over target: remaining floors at zero, balance stays positive.
	svc, _, _ := newTestService(t, ledger.AlwaysOpen(), "Ann")
	ctx := context.Background()
	week := "2026-11"

	_, err := svc.SetWeekGoal(ctx, week, "Ann", 20, "admin")
	require.NoError(t, err)
	_, err = svc.RecordActivity(ctx, week, "Ann", ledger.KindT2, 35, "admin", "")
	require.NoError(t, err)

	stats, err := svc.ComputeUserStats(ctx, week, "Ann")
	require.NoError(t, err)
	assert.Equal(t, "0", stats.Remaining.String())
	assert.Equal(t, "15", stats.Balance.String())
}

func TestComputeUserStats_PendingNeverCounts(t *testing.T) {
	// GIVEN: one committed and one pending activity
	// WHEN: computing stats
	// THEN: achieved reflects committed only; pending is a count

	svc, _, clock := newTestService(t, eveningWindow(), "Ann")
	ctx := context.Background()
	week := "2026-11"

	clock.now = time.Date(2026, time.March, 10, 19, 0, 0, 0, time.UTC)
	_, err := svc.RecordActivity(ctx, week, "Ann", ledger.KindT1, 10, "admin", "")
	require.NoError(t, err)

	clock.now = time.Date(2026, time.March, 10, 22, 0, 0, 0, time.UTC)
	_, err = svc.RecordActivity(ctx, week, "Ann", ledger.KindT1, 40, "admin", "")
	require.NoError(t, err)
	_, err = svc.SetWeekGoal(ctx, week, "Ann", 60, "admin")
	require.NoError(t, err)

	stats, err := svc.ComputeUserStats(ctx, week, "Ann")
	require.NoError(t, err)
	assert.Equal(t, "10", stats.Achieved.String())
	assert.True(t, stats.Goal.IsZero(), "pending goal must not leak into the committed goal")
	assert.Equal(t, 1, stats.PendingCount)
	require.NotNil(t, stats.PendingGoal)
	assert.Equal(t, "60", stats.PendingGoal.String())
}

func TestComputeUserStats_VacationZeroesEffectiveGoal(t *testing.T) {
	svc, _, clock := newTestService(t, ledger.AlwaysOpen(), "Ann")
	ctx := context.Background()
	today := ledger.DateOf(clock.now)
	week := ledger.WeekKeyOf(today)

	_, err := svc.SetWeekGoal(ctx, week, "Ann", 50, "admin")
	require.NoError(t, err)
	_, err = svc.SetVacationPeriod(ctx, "Ann", today, today.AddDays(2), "Urlaub", "admin")
	require.NoError(t, err)

	stats, err := svc.ComputeUserStats(ctx, week, "Ann")
	require.NoError(t, err)
	assert.True(t, stats.OnVacation)
	assert.True(t, stats.Goal.IsZero())
	assert.True(t, stats.Remaining.IsZero())
}

func TestComputeWeekStats_RosterOrderAndTotals(t *testing.T) {
	svc, _, _ := newTestService(t, ledger.AlwaysOpen(), "Ann", "Ben", "Cleo")
	ctx := context.Background()
	week := "2026-11"

	_, err := svc.SetWeekGoal(ctx, week, "Ann", 40, "admin")
	require.NoError(t, err)
	_, err = svc.RecordActivity(ctx, week, "Ann", ledger.KindT1, 25, "admin", "")
	require.NoError(t, err)
	_, err = svc.SetWeekGoal(ctx, week, "Ben", 30, "admin")
	require.NoError(t, err)

	stats, err := svc.ComputeWeekStats(ctx, week)
	require.NoError(t, err)
	require.Len(t, stats.Users, 3, "every roster member appears, touched or not")
	assert.Equal(t, "Ann", stats.Users[0].User)
	assert.Equal(t, "Ben", stats.Users[1].User)
	assert.Equal(t, "Cleo", stats.Users[2].User)
	assert.True(t, stats.Users[2].Goal.IsZero())

	assert.Equal(t, "70", stats.TotalGoal.String())
	assert.Equal(t, "25", stats.TotalDone.String())
	assert.Equal(t, "45", stats.TotalLeft.String())
	assert.Equal(t, "-45", stats.TotalBalance.String())
}
