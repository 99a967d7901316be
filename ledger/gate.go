/*
gate.go - Commit window policy

PURPOSE:
  A pure wall-clock predicate deciding whether writes apply directly to
  committed state or queue as pending. The policy is configuration:
  the deployed default is always-open (24/7), but a bounded evening
  window (e.g. 18:00-21:00 in the business timezone) is equally valid
  and was the historical behavior.

SEPARATION OF CONCERNS:
  The policy answers exactly one question: is the window open now?
  Queue semantics (what happens to writes while it is closed) live in
  recorder.go / goals.go / pending.go. Changing the hours never changes
  how the pending queue behaves.
*/
package ledger

import (
	"fmt"
	"strings"
	"time"
)

// =============================================================================
// WINDOW POLICY - Pure predicate over wall-clock time
// =============================================================================

// WindowPolicy decides whether the commit window is open at a given
// instant. The zero value is NOT valid; use AlwaysOpen or DailyWindow.
type WindowPolicy struct {
	alwaysOpen bool
	openMin    int // minutes since midnight, inclusive
	closeMin   int // minutes since midnight, exclusive
	loc        *time.Location
}

// AlwaysOpen returns the 24/7 policy (current deployed default).
func AlwaysOpen() WindowPolicy {
	return WindowPolicy{alwaysOpen: true}
}

// DailyWindow returns a policy that is open daily between
// [openHour:openMinute, closeHour:closeMinute) in loc. A nil loc means
// UTC.
func DailyWindow(openHour, openMinute, closeHour, closeMinute int, loc *time.Location) WindowPolicy {
	if loc == nil {
		loc = time.UTC
	}
	return WindowPolicy{
		openMin:  openHour*60 + openMinute,
		closeMin: closeHour*60 + closeMinute,
		loc:      loc,
	}
}

// IsOpen reports whether the commit window is open at now.
func (p WindowPolicy) IsOpen(now time.Time) bool {
	if p.alwaysOpen {
		return true
	}
	local := now.In(p.loc)
	minute := local.Hour()*60 + local.Minute()
	return minute >= p.openMin && minute < p.closeMin
}

// String describes the policy in the same syntax ParseWindowPolicy accepts.
func (p WindowPolicy) String() string {
	if p.alwaysOpen {
		return "always"
	}
	return fmt.Sprintf("%02d:%02d-%02d:%02d", p.openMin/60, p.openMin%60, p.closeMin/60, p.closeMin%60)
}

// ParseWindowPolicy parses "always" or "HH:MM-HH:MM" (evaluated in loc).
func ParseWindowPolicy(s string, loc *time.Location) (WindowPolicy, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "always") {
		return AlwaysOpen(), nil
	}
	var oh, om, ch, cm int
	if _, err := fmt.Sscanf(s, "%d:%d-%d:%d", &oh, &om, &ch, &cm); err != nil {
		return WindowPolicy{}, fmt.Errorf("invalid window policy %q: %w", s, err)
	}
	if oh < 0 || oh > 23 || ch < 0 || ch > 24 || om < 0 || om > 59 || cm < 0 || cm > 59 {
		return WindowPolicy{}, fmt.Errorf("invalid window policy %q: out of range", s)
	}
	open := oh*60 + om
	close := ch*60 + cm
	if close <= open {
		return WindowPolicy{}, fmt.Errorf("invalid window policy %q: close not after open", s)
	}
	return DailyWindow(oh, om, ch, cm, loc), nil
}
