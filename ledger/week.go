/*
week.go - Calendar dates and ISO week keys

PURPOSE:
  The ledger buckets everything by ISO-8601 week ("YYYY-WW"). This file
  holds the Date type (day-granularity calendar date) and the week key
  helpers used across the module.

KEY CONCEPTS:
  - Date: a calendar day, timezone-free. Vacation ranges, week spans
    and key resolution all operate on Dates, never on raw instants.
  - Week key: "YYYY-WW" with zero-padded week number, so keys sort
    lexicographically in chronological order.

SEE ALSO:
  - vacation.go: week-by-week range stepping over Dates
  - gate.go: wall-clock commit window (instants, not Dates)
*/
package ledger

import (
	"fmt"
	"sort"
	"time"
)

// =============================================================================
// DATE - Day-granularity calendar date
// =============================================================================

// Date is a calendar day. The wall-clock time and zone of the wrapped
// time.Time are irrelevant; comparisons normalize to midnight UTC.
type Date struct {
	Time time.Time
}

// NewDate builds a Date for the given calendar day.
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates an instant to its calendar day.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

// ParseDate parses "2006-01-02".
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return Date{Time: t}, nil
}

func (d Date) normalize() time.Time {
	return time.Date(d.Time.Year(), d.Time.Month(), d.Time.Day(), 0, 0, 0, 0, time.UTC)
}

// Comparison
func (d Date) Before(other Date) bool        { return d.normalize().Before(other.normalize()) }
func (d Date) After(other Date) bool         { return d.normalize().After(other.normalize()) }
func (d Date) Equal(other Date) bool         { return d.normalize().Equal(other.normalize()) }
func (d Date) BeforeOrEqual(other Date) bool { return d.Before(other) || d.Equal(other) }
func (d Date) AfterOrEqual(other Date) bool  { return d.After(other) || d.Equal(other) }

// Arithmetic
func (d Date) AddDays(n int) Date { return Date{Time: d.Time.AddDate(0, 0, n)} }

func (d Date) IsZero() bool   { return d.Time.IsZero() }
func (d Date) String() string { return d.normalize().Format("2006-01-02") }

// MarshalJSON encodes the date as "2006-01-02".
func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

// UnmarshalJSON decodes "2006-01-02" (empty string decodes to the zero Date).
func (d *Date) UnmarshalJSON(b []byte) error {
	s := string(b)
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return fmt.Errorf("invalid date literal %s", s)
	}
	s = s[1 : len(s)-1]
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// =============================================================================
// WEEK KEYS - "YYYY-WW" identifiers
// =============================================================================

// WeekKey returns the ISO week key containing the given instant.
func WeekKey(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%04d-%02d", year, week)
}

// WeekKeyOf returns the ISO week key containing the given date.
func WeekKeyOf(d Date) string { return WeekKey(d.normalize()) }

// ValidWeekKey reports whether s has the "YYYY-WW" shape with a week
// number in [1, 53].
func ValidWeekKey(s string) bool {
	var year, week int
	if _, err := fmt.Sscanf(s, "%4d-%2d", &year, &week); err != nil {
		return false
	}
	return len(s) == 7 && s[4] == '-' && year >= 1 && week >= 1 && week <= 53
}

// WeekKeysInRange returns every week key whose 7-day span intersects
// [start, end], stepping week-by-week from start. The week containing
// end is always included. Keys are returned in chronological order
// without duplicates.
func WeekKeysInRange(start, end Date) []string {
	if end.Before(start) {
		return nil
	}
	seen := make(map[string]bool)
	var keys []string
	add := func(k string) {
		if !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}
	for d := start; d.BeforeOrEqual(end); d = d.AddDays(7) {
		add(WeekKeyOf(d))
	}
	add(WeekKeyOf(end))
	return keys
}

// SortWeekKeysDesc sorts week keys newest-first. Zero-padded keys sort
// lexicographically in chronological order, so a plain string sort is a
// total order here.
func SortWeekKeysDesc(keys []string) {
	sort.Sort(sort.Reverse(sort.StringSlice(keys)))
}
