/*
Package ledger implements the weekly points ledger.

PURPOSE:
  Tracks per-participant, per-ISO-week point goals and point-earning
  activities for a small named roster. Writes are gated by a
  configurable commit window: inside the window they apply directly to
  committed state, outside it they queue as pending items that a later
  apply pass flushes. Every committed state change leaves an immutable
  audit entry.

KEY CONCEPTS IN THIS FILE (types.go):
  - UserWeekEntry: one participant's state for one week
  - ActivityEntry: an immutable point-earning event
  - AuditEntry: who did what when, per (week, participant)
  - WeekRecord / Document: aggregate shapes used by the stores

DESIGN PRINCIPLES:
  1. Immutability: committed activities are never edited in place;
     removal is an explicit, audited operation
  2. Precision: points use decimal.Decimal, clamped to [0, 100] and
     rounded to one decimal place
  3. Two-phase writes: pending fields hold data accepted outside the
     commit window until an apply pass moves it into committed state
  4. Auditability: audit timestamps are real instants, giving a total
     order without string-comparison tricks

SEE ALSO:
  - store.go: persistence interface over these types
  - recorder.go, goals.go, pending.go: the write paths
*/
package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// POINTS - Clamped, rounded decimal quantities
// =============================================================================

var (
	minPoints = decimal.Zero
	maxPoints = decimal.NewFromInt(100)
)

// ClampPoints normalizes a raw point value to the valid range [0, 100]
// with one decimal place. Out-of-range input is silently clamped, not
// rejected; the operation is idempotent.
func ClampPoints(v float64) decimal.Decimal {
	return clampDecimal(decimal.NewFromFloat(v))
}

func clampDecimal(d decimal.Decimal) decimal.Decimal {
	if d.LessThan(minPoints) {
		d = minPoints
	}
	if d.GreaterThan(maxPoints) {
		d = maxPoints
	}
	return d.Round(1)
}

// =============================================================================
// ACTIVITY - Immutable point-earning event
// =============================================================================

// ActivityKind is the fixed set of recognized activity categories.
type ActivityKind string

const (
	KindT1        ActivityKind = "T1"
	KindT2        ActivityKind = "T2"
	KindTelefonie ActivityKind = "telefonie"
	KindExtra     ActivityKind = "extra"
)

// ValidKind reports whether k is one of the recognized kinds.
func ValidKind(k ActivityKind) bool {
	switch k {
	case KindT1, KindT2, KindTelefonie, KindExtra:
		return true
	}
	return false
}

// ActivityEntry records a single point-earning event. Once committed it
// is never modified; corrections go through audited deletion.
type ActivityEntry struct {
	ID         string          `json:"id"`
	Kind       ActivityKind    `json:"kind"`
	Points     decimal.Decimal `json:"points"`
	Note       string          `json:"note,omitempty"`
	Author     string          `json:"author"`
	RecordedAt time.Time       `json:"recorded_at"`
}

// =============================================================================
// AUDIT - Immutable record of state-changing operations
// =============================================================================

type AuditType string

const (
	AuditGoalSet         AuditType = "goal_set"
	AuditGoalApplied     AuditType = "goal_applied"
	AuditActivity        AuditType = "activity"
	AuditActivityApplied AuditType = "activity_applied"
	AuditActivityDeleted AuditType = "activity_deleted"
	AuditVacationSet     AuditType = "vacation_set"
	AuditWeekReset       AuditType = "week_reset"
)

// AuditEntry is one immutable line of the per-(week, participant) audit
// trail. Payload fields vary by Type; absent fields stay empty.
type AuditEntry struct {
	ID      string         `json:"id"`
	Type    AuditType      `json:"type"`
	Actor   string         `json:"actor"`
	At      time.Time      `json:"at"`
	Payload map[string]any `json:"payload,omitempty"`
}

// =============================================================================
// VACATION - Inclusive absence ranges
// =============================================================================

// VacationPeriod is an inclusive date range during which the
// participant's effective goal is zero.
type VacationPeriod struct {
	Start  Date   `json:"start_date"`
	End    Date   `json:"end_date"`
	Reason string `json:"reason,omitempty"`
}

// Contains reports whether d falls inside the period, both bounds
// inclusive.
func (p VacationPeriod) Contains(d Date) bool {
	return p.Start.BeforeOrEqual(d) && d.BeforeOrEqual(p.End)
}

// =============================================================================
// USER WEEK ENTRY - One participant's state for one week
// =============================================================================

// UserWeekEntry holds everything the ledger knows about one participant
// in one week. Version supports optimistic concurrency in the stores:
// each successful row write increments it.
type UserWeekEntry struct {
	GoalPoints        decimal.Decimal  `json:"goal_points"`
	OnVacation        bool             `json:"on_vacation"`
	VacationPeriods   []VacationPeriod `json:"vacation_periods"`
	Activities        []ActivityEntry  `json:"activities"`
	PendingActivities []ActivityEntry  `json:"pending_activities"`
	PendingGoal       *decimal.Decimal `json:"pending_goal,omitempty"`
	Audit             []AuditEntry     `json:"audit"`
	Version           int64            `json:"version"`
}

// NewUserWeekEntry returns a clean entry with all collections allocated.
func NewUserWeekEntry() UserWeekEntry {
	return UserWeekEntry{
		GoalPoints:        decimal.Zero,
		VacationPeriods:   []VacationPeriod{},
		Activities:        []ActivityEntry{},
		PendingActivities: []ActivityEntry{},
		Audit:             []AuditEntry{},
	}
}

// VacationOn resolves vacation status for a date: explicit periods take
// precedence; the legacy boolean flag is the backward-compatible
// fallback ONLY for entries created before the range model existed
// (no periods at all). An entry with periods that miss the date is not
// on vacation, regardless of the flag.
func (e *UserWeekEntry) VacationOn(d Date) (bool, string, *VacationPeriod) {
	for i := range e.VacationPeriods {
		if e.VacationPeriods[i].Contains(d) {
			p := e.VacationPeriods[i]
			return true, p.Reason, &p
		}
	}
	if len(e.VacationPeriods) == 0 && e.OnVacation {
		return true, "Abwesenheit", nil
	}
	return false, "", nil
}

// =============================================================================
// WEEK RECORD / DOCUMENT - Aggregate shapes used by stores
// =============================================================================

// ResetInfo stamps a week that has been wiped and reinitialized.
type ResetInfo struct {
	ResetAt           time.Time `json:"reset_at"`
	Actor             string    `json:"actor"`
	ParticipantsReset int       `json:"participants_reset"`
	ArchiveCreated    bool      `json:"archive_created"`
}

// WeekRecord is one week's full state across all participants.
type WeekRecord struct {
	WeekID    string                   `json:"week_id"`
	CreatedAt time.Time                `json:"created_at"`
	Frozen    bool                     `json:"frozen"` // reserved
	ResetInfo *ResetInfo               `json:"reset_info,omitempty"`
	Users     map[string]UserWeekEntry `json:"users"`
}

// Document is the whole-ledger shape used for the JSON mirror, backups
// and archives.
type Document struct {
	Version      int                   `json:"version"`
	Participants []string              `json:"participants"`
	Weeks        map[string]WeekRecord `json:"weeks"`
}

// DocumentVersion is the current persistence envelope version.
const DocumentVersion = 1

// NewDocument returns an empty document with the given roster.
func NewDocument(roster []string) *Document {
	return &Document{
		Version:      DocumentVersion,
		Participants: append([]string{}, roster...),
		Weeks:        make(map[string]WeekRecord),
	}
}

// WeekArchive is the snapshot produced when a populated week is reset.
type WeekArchive struct {
	WeekID       string     `json:"week_id"`
	ArchivedAt   time.Time  `json:"archived_at"`
	Participants int        `json:"participants"`
	Record       WeekRecord `json:"record"`
}
