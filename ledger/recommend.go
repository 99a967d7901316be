/*
recommend.go - Heuristic goal suggestions from history

PURPOSE:
  Suggests next week's goal from the participant's trailing achieved
  points. Vacation weeks are skipped - zero weeks spent on a beach say
  nothing about capacity. The suggestion is deterministic for a given
  history: trailing average of achieved points, nudged up slightly when
  the participant has been beating their trailing goal, then clamped
  and rounded like any goal.
*/
package ledger

import (
	"context"

	"github.com/shopspring/decimal"
)

// DefaultLookbackWeeks is how far back RecommendGoal scans by default.
const DefaultLookbackWeeks = 8

// stretchFactor nudges the suggestion when recent weeks beat the goal.
var stretchFactor = decimal.NewFromFloat(1.05)

// Recommendation is a suggested weekly goal with how it was derived.
type Recommendation struct {
	User        string          `json:"user"`
	Goal        decimal.Decimal `json:"goal"`
	SampleWeeks int             `json:"sample_weeks"`
	Basis       string          `json:"basis"`
}

// RecommendGoal derives a goal suggestion for the participant from up
// to lookback prior weeks (DefaultLookbackWeeks if lookback <= 0).
func (s *Service) RecommendGoal(ctx context.Context, user string, lookback int) (Recommendation, error) {
	if err := s.validateParticipant(ctx, user); err != nil {
		return Recommendation{}, err
	}
	if lookback <= 0 {
		lookback = DefaultLookbackWeeks
	}

	stored, err := s.store.Weeks(ctx)
	if err != nil {
		return Recommendation{}, err
	}
	current := s.CurrentWeek()
	var keys []string
	for _, k := range stored {
		if k < current {
			keys = append(keys, k)
		}
	}
	SortWeekKeysDesc(keys)
	if len(keys) > lookback {
		keys = keys[:lookback]
	}

	sumAchieved := decimal.Zero
	sumGoal := decimal.Zero
	samples := 0
	for _, weekID := range keys {
		entry, err := s.store.Entry(ctx, weekID, user)
		if err != nil {
			return Recommendation{}, err
		}
		if entry.OnVacation {
			continue
		}
		if len(entry.Activities) == 0 && entry.GoalPoints.IsZero() {
			continue // untouched week, not a signal
		}
		achieved := decimal.Zero
		for _, a := range entry.Activities {
			achieved = achieved.Add(a.Points)
		}
		sumAchieved = sumAchieved.Add(achieved)
		sumGoal = sumGoal.Add(entry.GoalPoints)
		samples++
	}

	if samples == 0 {
		return Recommendation{User: user, Goal: decimal.Zero, Basis: "no_history"}, nil
	}

	n := decimal.NewFromInt(int64(samples))
	avgAchieved := sumAchieved.Div(n)
	avgGoal := sumGoal.Div(n)

	suggestion := avgAchieved
	basis := "trailing_average"
	if avgAchieved.GreaterThanOrEqual(avgGoal) && avgGoal.IsPositive() {
		suggestion = avgAchieved.Mul(stretchFactor)
		basis = "trailing_average_stretched"
	}

	return Recommendation{
		User:        user,
		Goal:        clampDecimal(suggestion),
		SampleWeeks: samples,
		Basis:       basis,
	}, nil
}
