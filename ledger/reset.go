/*
reset.go - Weekly reset with archival snapshot

PURPOSE:
  Wipes and reinitializes a week for the whole roster. If the week
  already holds data, a full snapshot of the prior state is built
  first, written through the configured archive sink, and returned in
  the summary. The week is then deleted outright, so entries left by
  since-removed participants go with it, and every current roster
  member gets a clean entry whose audit trail holds a single
  week_reset line.

ARCHIVAL:
  The snapshot is persisted inside the same operation when an archive
  sink is configured. Without a sink the snapshot is still returned so
  the caller can store it; ArchiveCreated reports which happened.
*/
package ledger

import (
	"context"
	"time"
)

// ResetSummary describes a completed weekly reset.
type ResetSummary struct {
	WeekID            string       `json:"week_id"`
	ParticipantsReset int          `json:"participants_reset"`
	ArchiveCreated    bool         `json:"archive_created"`
	ResetAt           time.Time    `json:"reset_at"`
	Archive           *WeekArchive `json:"archive,omitempty"`
}

// ResetWeek wipes the week for every roster participant. weekID may be
// empty, meaning the current week.
func (s *Service) ResetWeek(ctx context.Context, weekID string) (*ResetSummary, error) {
	if weekID == "" {
		weekID = s.CurrentWeek()
	}
	if !ValidWeekKey(weekID) {
		return nil, ErrInvalidWeekKey
	}

	roster, err := s.store.Participants(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	summary := &ResetSummary{WeekID: weekID, ResetAt: now}

	// Snapshot prior state before wiping anything.
	prior, err := s.store.Week(ctx, weekID)
	if err != nil {
		return nil, err
	}
	if len(prior.Users) > 0 {
		archive := WeekArchive{
			WeekID:       weekID,
			ArchivedAt:   now,
			Participants: len(prior.Users),
			Record:       prior,
		}
		summary.Archive = &archive
		if s.archive != nil {
			if err := s.archive.ArchiveWeek(ctx, archive); err != nil {
				return nil, err
			}
			summary.ArchiveCreated = true
		}
	}

	// Drop the whole week, stale entries for since-removed participants
	// included, then recreate one clean entry per roster member.
	if err := s.store.DeleteWeek(ctx, weekID); err != nil {
		return nil, err
	}
	for _, user := range roster {
		err := s.store.UpdateEntry(ctx, weekID, user, func(e *UserWeekEntry) error {
			e.Audit = append(e.Audit, s.newAudit(AuditWeekReset, "system", map[string]any{
				"week_id": weekID,
			}))
			return nil
		})
		if err != nil {
			return nil, err
		}
		summary.ParticipantsReset++
	}

	info := &ResetInfo{
		ResetAt:           now,
		Actor:             "system",
		ParticipantsReset: summary.ParticipantsReset,
		ArchiveCreated:    summary.ArchiveCreated,
	}
	if err := s.store.SetWeekMeta(ctx, weekID, false, info); err != nil {
		return nil, err
	}
	return summary, nil
}
