/*
recorder.go - Activity recording and audited deletion

PURPOSE:
  The write path for point-earning activities. Validates kind and
  participant, consults vacation status for the current instant (not
  the activity date), normalizes points, and either commits the entry
  directly (window open) or queues it as pending (window closed).

VACATION SEMANTICS:
  Vacation is advisory for activities: the conflict surfaces as a typed
  *VacationConflictError the caller can detect and, if the product
  wants to allow it, bypass with WithVacationOverride. Goal-setting
  (goals.go) hard-blocks instead. Aggregation always zeroes the
  effective goal regardless.

AUDIT:
  A committed activity writes one audit entry immediately. A pending
  activity writes none - the audit entry is produced by the apply pass
  (pending.go), stamped with the apply time.
*/
package ledger

import "context"

// RecordResult reports how an activity write landed.
type RecordResult struct {
	Entry     ActivityEntry
	Committed bool // false = queued as pending
}

// RecordOption tweaks a single RecordActivity call.
type RecordOption func(*recordConfig)

type recordConfig struct {
	vacationOverride bool
}

// WithVacationOverride records the activity even when the participant
// is currently on vacation.
func WithVacationOverride() RecordOption {
	return func(c *recordConfig) { c.vacationOverride = true }
}

// RecordActivity validates and writes one point-earning event for
// (weekID, user). Points are clamped to [0, 100] and rounded to one
// decimal place; out-of-range values are normalized, never rejected.
func (s *Service) RecordActivity(ctx context.Context, weekID, user string, kind ActivityKind, points float64, actor, note string, opts ...RecordOption) (*RecordResult, error) {
	var cfg recordConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	if !ValidKind(kind) {
		return nil, ErrInvalidKind
	}
	if !ValidWeekKey(weekID) {
		return nil, ErrInvalidWeekKey
	}
	if err := s.validateParticipant(ctx, user); err != nil {
		return nil, err
	}

	now := s.now()
	if !cfg.vacationOverride {
		status, err := s.IsUserOnVacation(ctx, user, DateOf(now))
		if err != nil {
			return nil, err
		}
		if status.OnVacation {
			return nil, &VacationConflictError{User: user, Date: DateOf(now), Reason: status.Reason}
		}
	}

	entry := ActivityEntry{
		ID:         newID(),
		Kind:       kind,
		Points:     ClampPoints(points),
		Note:       note,
		Author:     actor,
		RecordedAt: now,
	}

	committed := s.window.IsOpen(now)
	err := s.store.UpdateEntry(ctx, weekID, user, func(e *UserWeekEntry) error {
		if committed {
			e.Activities = append(e.Activities, entry)
			e.Audit = append(e.Audit, s.newAudit(AuditActivity, actor, map[string]any{
				"activity_id": entry.ID,
				"kind":        string(entry.Kind),
				"points":      entry.Points.String(),
				"note":        entry.Note,
			}))
		} else {
			e.PendingActivities = append(e.PendingActivities, entry)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &RecordResult{Entry: entry, Committed: committed}, nil
}

// DeleteActivity removes one committed activity by id, leaving an
// activity_deleted audit entry. Committed activities are never edited
// in place; this is the only way they leave the ledger.
func (s *Service) DeleteActivity(ctx context.Context, weekID, user, activityID, actor string) error {
	if err := s.validateParticipant(ctx, user); err != nil {
		return err
	}
	return s.store.UpdateEntry(ctx, weekID, user, func(e *UserWeekEntry) error {
		idx := -1
		for i := range e.Activities {
			if e.Activities[i].ID == activityID {
				idx = i
				break
			}
		}
		if idx < 0 {
			return ErrActivityNotFound
		}
		removed := e.Activities[idx]
		e.Activities = append(e.Activities[:idx], e.Activities[idx+1:]...)
		e.Audit = append(e.Audit, s.newAudit(AuditActivityDeleted, actor, map[string]any{
			"activity_id": removed.ID,
			"kind":        string(removed.Kind),
			"points":      removed.Points.String(),
		}))
		return nil
	})
}
