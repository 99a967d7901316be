/*
stats.go - Goal / achieved / remaining / balance aggregation

PURPOSE:
  Read-only derivation of weekly statistics from committed state.
  Pending activities and pending goals never count toward Achieved;
  they are reported separately so callers can surface "N waiting".

EFFECTIVE GOAL:
  A participant on vacation (legacy flag or an explicit period covering
  the query date) has an effective goal of zero regardless of the
  stored GoalPoints. Balance can go negative: behind target.
*/
package ledger

import (
	"context"

	"github.com/shopspring/decimal"
)

// UserStats is one participant's derived weekly state.
type UserStats struct {
	User         string           `json:"user"`
	Goal         decimal.Decimal  `json:"goal"`
	Achieved     decimal.Decimal  `json:"achieved"`
	Remaining    decimal.Decimal  `json:"remaining"`
	Balance      decimal.Decimal  `json:"balance"`
	OnVacation   bool             `json:"on_vacation"`
	PendingGoal  *decimal.Decimal `json:"pending_goal,omitempty"`
	PendingCount int              `json:"pending_count"`
}

// WeekStats rolls UserStats up across the roster.
type WeekStats struct {
	WeekID       string          `json:"week_id"`
	Users        []UserStats     `json:"users"`
	TotalGoal    decimal.Decimal `json:"total_goal"`
	TotalDone    decimal.Decimal `json:"total_achieved"`
	TotalLeft    decimal.Decimal `json:"total_remaining"`
	TotalBalance decimal.Decimal `json:"total_balance"`
	TotalPending int             `json:"total_pending"`
}

// ComputeUserStats derives one participant's stats for a week from
// committed state only.
func (s *Service) ComputeUserStats(ctx context.Context, weekID, user string) (UserStats, error) {
	if err := s.validateParticipant(ctx, user); err != nil {
		return UserStats{}, err
	}
	entry, err := s.store.Entry(ctx, weekID, user)
	if err != nil {
		return UserStats{}, err
	}
	return s.statsFromEntry(user, entry), nil
}

func (s *Service) statsFromEntry(user string, entry UserWeekEntry) UserStats {
	onVacation, _, _ := entry.VacationOn(DateOf(s.now()))

	goal := entry.GoalPoints
	if onVacation {
		goal = decimal.Zero
	}

	achieved := decimal.Zero
	for _, a := range entry.Activities {
		achieved = achieved.Add(a.Points)
	}

	remaining := goal.Sub(achieved)
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}

	return UserStats{
		User:         user,
		Goal:         goal,
		Achieved:     achieved,
		Remaining:    remaining,
		Balance:      achieved.Sub(goal),
		OnVacation:   onVacation,
		PendingGoal:  entry.PendingGoal,
		PendingCount: len(entry.PendingActivities),
	}
}

// ComputeWeekStats maps ComputeUserStats over the whole roster and sums
// every field for the week-level rollup. Roster order is preserved.
func (s *Service) ComputeWeekStats(ctx context.Context, weekID string) (WeekStats, error) {
	roster, err := s.store.Participants(ctx)
	if err != nil {
		return WeekStats{}, err
	}
	entries, err := s.store.Entries(ctx, weekID)
	if err != nil {
		return WeekStats{}, err
	}

	stats := WeekStats{
		WeekID:       weekID,
		Users:        make([]UserStats, 0, len(roster)),
		TotalGoal:    decimal.Zero,
		TotalDone:    decimal.Zero,
		TotalLeft:    decimal.Zero,
		TotalBalance: decimal.Zero,
	}
	for _, user := range roster {
		entry, ok := entries[user]
		if !ok {
			entry = NewUserWeekEntry()
		}
		us := s.statsFromEntry(user, entry)
		stats.Users = append(stats.Users, us)
		stats.TotalGoal = stats.TotalGoal.Add(us.Goal)
		stats.TotalDone = stats.TotalDone.Add(us.Achieved)
		stats.TotalLeft = stats.TotalLeft.Add(us.Remaining)
		stats.TotalBalance = stats.TotalBalance.Add(us.Balance)
		stats.TotalPending += us.PendingCount
	}
	return stats, nil
}
