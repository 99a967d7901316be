/*
goals.go - Weekly goal management

PURPOSE:
  Sets the per-participant point goal for a week. Window open: the goal
  applies immediately, any queued pending goal is cleared, and a
  goal_set audit entry is written. Window closed: the value lands in
  PendingGoal only - last pending write wins - and the audit entry is
  produced later by the apply pass.

VACATION SEMANTICS:
  Unlike activity recording, vacation fully blocks goal-setting. A goal
  for someone who is away would only create noise in the weekly stats.
*/
package ledger

import "context"

// GoalResult reports how a goal write landed.
type GoalResult struct {
	Goal      float64
	Committed bool // false = stored as pending goal
}

// SetWeekGoal sets (or queues) the point goal for (weekID, user).
// Points are clamped to [0, 100], rounded to one decimal place.
func (s *Service) SetWeekGoal(ctx context.Context, weekID, user string, points float64, actor string) (*GoalResult, error) {
	if !ValidWeekKey(weekID) {
		return nil, ErrInvalidWeekKey
	}
	if err := s.validateParticipant(ctx, user); err != nil {
		return nil, err
	}

	now := s.now()
	status, err := s.IsUserOnVacation(ctx, user, DateOf(now))
	if err != nil {
		return nil, err
	}
	if status.OnVacation {
		return nil, &VacationConflictError{User: user, Date: DateOf(now), Reason: status.Reason}
	}

	goal := ClampPoints(points)
	committed := s.window.IsOpen(now)
	err = s.store.UpdateEntry(ctx, weekID, user, func(e *UserWeekEntry) error {
		if committed {
			e.GoalPoints = goal
			e.PendingGoal = nil
			e.Audit = append(e.Audit, s.newAudit(AuditGoalSet, actor, map[string]any{
				"goal": goal.String(),
			}))
		} else {
			g := goal
			e.PendingGoal = &g
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	f, _ := goal.Float64()
	return &GoalResult{Goal: f, Committed: committed}, nil
}
