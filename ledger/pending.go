/*
pending.go - Flushing queued pending state into committed state

PURPOSE:
  Writes accepted while the commit window was closed sit in PendingGoal
  and PendingActivities. ApplyPending moves them into committed state -
  but only while the window is open. A closed window returns (0, 0)
  immediately and touches nothing: pending data waits for the next open
  window even though it was queued precisely because the window was
  closed at write time.

ATOMICITY:
  Each participant's flush happens inside one UpdateEntry call, so a
  row either moves all of its pending state or none of it. Moved
  activities keep their original author and recorded-at timestamp; the
  audit entries written here carry the apply time instead.
*/
package ledger

import "context"

// ApplyResult counts what an apply pass flushed.
type ApplyResult struct {
	GoalsApplied      int
	ActivitiesApplied int
}

// ApplyPending flushes every participant's pending goal and pending
// activities for the week into committed state. Returns (0, 0) without
// touching anything when the commit window is closed.
func (s *Service) ApplyPending(ctx context.Context, weekID string) (ApplyResult, error) {
	var result ApplyResult
	if !s.window.IsOpen(s.now()) {
		return result, nil
	}

	entries, err := s.store.Entries(ctx, weekID)
	if err != nil {
		return result, err
	}

	for user, snapshot := range entries {
		if snapshot.PendingGoal == nil && len(snapshot.PendingActivities) == 0 {
			continue
		}
		var goals, activities int
		err := s.store.UpdateEntry(ctx, weekID, user, func(e *UserWeekEntry) error {
			goals, activities = 0, 0
			if e.PendingGoal != nil {
				e.GoalPoints = *e.PendingGoal
				e.Audit = append(e.Audit, s.newAudit(AuditGoalApplied, "system", map[string]any{
					"goal": e.GoalPoints.String(),
				}))
				e.PendingGoal = nil
				goals = 1
			}
			for _, act := range e.PendingActivities {
				e.Activities = append(e.Activities, act)
				e.Audit = append(e.Audit, s.newAudit(AuditActivityApplied, "system", map[string]any{
					"activity_id": act.ID,
					"kind":        string(act.Kind),
					"points":      act.Points.String(),
					"author":      act.Author,
				}))
				activities++
			}
			e.PendingActivities = e.PendingActivities[:0]
			return nil
		})
		if err != nil {
			return result, err
		}
		result.GoalsApplied += goals
		result.ActivitiesApplied += activities
	}
	return result, nil
}
