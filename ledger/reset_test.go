package ledger_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/points-ledger/ledger"
	"github.com/warp/points-ledger/store/memory"
)

// recordingSink captures archived weeks in memory.
type recordingSink struct {
	archived []ledger.WeekArchive
	fail     error
}

func (r *recordingSink) ArchiveWeek(_ context.Context, a ledger.WeekArchive) error {
	if r.fail != nil {
		return r.fail
	}
	r.archived = append(r.archived, a)
	return nil
}

func TestResetWeek_ArchivesThenWipes(t *testing.T) {
	// GIVEN: a populated week and an archive sink
	// WHEN: resetting
	// THEN: the sink receives the pre-reset snapshot, every roster
	//       entry comes back clean with a single week_reset audit line,
	//       and the week carries reset metadata

	store := memory.New()
	clock := &fakeClock{now: time.Date(2026, time.March, 10, 19, 30, 0, 0, time.UTC)}
	sink := &recordingSink{}
	require.NoError(t, ledger.EnsureRoster(context.Background(), store, []string{"Ann", "Ben"}))
	svc := ledger.New(store,
		ledger.WithClock(clock.Now),
		ledger.WithArchiveSink(sink),
	)
	ctx := context.Background()
	week := "2026-11"

	_, err := svc.SetWeekGoal(ctx, week, "Ann", 40, "admin")
	require.NoError(t, err)
	_, err = svc.RecordActivity(ctx, week, "Ann", ledger.KindT1, 25, "admin", "")
	require.NoError(t, err)

	summary, err := svc.ResetWeek(ctx, week)
	require.NoError(t, err)
	assert.Equal(t, week, summary.WeekID)
	assert.Equal(t, 2, summary.ParticipantsReset)
	assert.True(t, summary.ArchiveCreated)
	assert.True(t, summary.ResetAt.Equal(clock.now))

	require.Len(t, sink.archived, 1)
	archived := sink.archived[0]
	assert.Equal(t, week, archived.WeekID)
	priorAnn := archived.Record.Users["Ann"]
	require.Len(t, priorAnn.Activities, 1, "archive holds pre-reset state")

	for _, user := range []string{"Ann", "Ben"} {
		entry, err := store.Entry(ctx, week, user)
		require.NoError(t, err)
		assert.True(t, entry.GoalPoints.IsZero())
		assert.Empty(t, entry.Activities)
		assert.Empty(t, entry.PendingActivities)
		require.Len(t, entry.Audit, 1)
		assert.Equal(t, ledger.AuditWeekReset, entry.Audit[0].Type)
		assert.Equal(t, "system", entry.Audit[0].Actor)
	}

	record, err := store.Week(ctx, week)
	require.NoError(t, err)
	require.NotNil(t, record.ResetInfo)
	assert.Equal(t, 2, record.ResetInfo.ParticipantsReset)
	assert.True(t, record.ResetInfo.ArchiveCreated)
}

func TestResetWeek_DropsEntriesOfRemovedParticipants(t *testing.T) {
	// GIVEN: a week holding an entry for someone no longer on the roster
	// WHEN: resetting
	// THEN: exactly the current roster's entries remain

	svc, store, _ := newTestService(t, ledger.AlwaysOpen(), "Ann", "Ben")
	ctx := context.Background()
	week := "2026-11"

	require.NoError(t, svc.AddParticipant(ctx, "Zara"))
	_, err := svc.RecordActivity(ctx, week, "Zara", ledger.KindT1, 10, "admin", "")
	require.NoError(t, err)
	require.NoError(t, svc.RemoveParticipant(ctx, "Zara"))

	summary, err := svc.ResetWeek(ctx, week)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.ParticipantsReset)

	entries, err := store.Entries(ctx, week)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
	assert.NotContains(t, entries, "Zara")
}

func TestResetWeek_EmptyWeek_NoArchive(t *testing.T) {
	svc, _, _ := newTestService(t, ledger.AlwaysOpen(), "Ann")

	summary, err := svc.ResetWeek(context.Background(), "2026-20")
	require.NoError(t, err)
	assert.False(t, summary.ArchiveCreated)
	assert.Nil(t, summary.Archive)
	assert.Equal(t, 1, summary.ParticipantsReset)
}

func TestResetWeek_DefaultsToCurrentWeek(t *testing.T) {
	svc, _, clock := newTestService(t, ledger.AlwaysOpen(), "Ann")

	summary, err := svc.ResetWeek(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, ledger.WeekKey(clock.now), summary.WeekID)
}

func TestResetWeek_SinkFailureAbortsBeforeWiping(t *testing.T) {
	// An archive that cannot be persisted must not silently discard the
	// week's data.

	store := memory.New()
	sink := &recordingSink{fail: assert.AnError}
	require.NoError(t, ledger.EnsureRoster(context.Background(), store, []string{"Ann"}))
	svc := ledger.New(store, ledger.WithArchiveSink(sink))
	ctx := context.Background()
	week := "2026-11"

	_, err := svc.RecordActivity(ctx, week, "Ann", ledger.KindT1, 25, "admin", "")
	require.NoError(t, err)

	_, err = svc.ResetWeek(ctx, week)
	require.Error(t, err)

	entry, err := store.Entry(ctx, week, "Ann")
	require.NoError(t, err)
	assert.Len(t, entry.Activities, 1, "data survives a failed archive")
}
