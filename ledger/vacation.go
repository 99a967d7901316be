/*
vacation.go - Absence ranges and overlap queries

PURPOSE:
  Vacation periods are inclusive date ranges. Setting one touches every
  ISO week whose 7-day span intersects the range: each affected week
  gets the period appended to the participant's entry, the legacy
  on_vacation flag set, and one vacation_set audit entry.

LEGACY FLAG:
  Entries written before the range model existed carry only the boolean
  flag. IsUserOnVacation therefore falls back to the flag (with a
  generic reason) when no explicit period covers the date.
*/
package ledger

import (
	"context"
	"sort"
)

// VacationStatus is the answer to "is this participant away on date d?".
type VacationStatus struct {
	OnVacation bool            `json:"on_vacation"`
	Reason     string          `json:"reason,omitempty"`
	Period     *VacationPeriod `json:"period,omitempty"`
}

// VacationResult reports which weeks a new period touched.
type VacationResult struct {
	Period        VacationPeriod `json:"period"`
	WeeksAffected []string       `json:"weeks_affected"`
}

// SetVacationPeriod records an inclusive absence range for a
// participant across every week the range intersects.
func (s *Service) SetVacationPeriod(ctx context.Context, user string, start, end Date, reason, actor string) (*VacationResult, error) {
	if err := s.validateParticipant(ctx, user); err != nil {
		return nil, err
	}
	if end.Before(start) {
		return nil, ErrInvalidPeriod
	}

	period := VacationPeriod{Start: start, End: end, Reason: reason}
	weeks := WeekKeysInRange(start, end)
	for _, weekID := range weeks {
		err := s.store.UpdateEntry(ctx, weekID, user, func(e *UserWeekEntry) error {
			e.VacationPeriods = append(e.VacationPeriods, period)
			e.OnVacation = true
			e.Audit = append(e.Audit, s.newAudit(AuditVacationSet, actor, map[string]any{
				"start_date": start.String(),
				"end_date":   end.String(),
				"reason":     reason,
			}))
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return &VacationResult{Period: period, WeeksAffected: weeks}, nil
}

// IsUserOnVacation resolves vacation status for a date. The first
// period with start <= date <= end wins (both bounds inclusive); the
// legacy flag is the fallback for pre-range records.
func (s *Service) IsUserOnVacation(ctx context.Context, user string, date Date) (VacationStatus, error) {
	entry, err := s.store.Entry(ctx, WeekKeyOf(date), user)
	if err != nil {
		return VacationStatus{}, err
	}
	on, reason, period := entry.VacationOn(date)
	return VacationStatus{OnVacation: on, Reason: reason, Period: period}, nil
}

// UserVacationPeriods scans every stored week for the participant,
// de-duplicates periods by (start, end) and returns them sorted by
// start date.
func (s *Service) UserVacationPeriods(ctx context.Context, user string) ([]VacationPeriod, error) {
	if err := s.validateParticipant(ctx, user); err != nil {
		return nil, err
	}
	weeks, err := s.store.Weeks(ctx)
	if err != nil {
		return nil, err
	}

	type key struct{ start, end string }
	seen := make(map[key]bool)
	var periods []VacationPeriod
	for _, weekID := range weeks {
		entry, err := s.store.Entry(ctx, weekID, user)
		if err != nil {
			return nil, err
		}
		for _, p := range entry.VacationPeriods {
			k := key{p.Start.String(), p.End.String()}
			if seen[k] {
				continue
			}
			seen[k] = true
			periods = append(periods, p)
		}
	}
	sort.Slice(periods, func(i, j int) bool {
		return periods[i].Start.Before(periods[j].Start)
	})
	return periods, nil
}
