/*
store.go - Persistence interface for ledger state

PURPOSE:
  Defines the interface between the domain logic and storage. The unit
  of transactional mutation is the (week_id, participant) row:
  UpdateEntry loads exactly that row, applies a mutation function and
  persists it under optimistic versioning, so two concurrent writers to
  the same key cannot silently overwrite each other.

IMPLEMENTATIONS:
  - store/sqlite:  relational rows with JSON columns (authoritative)
  - store/jsondoc: whole-document JSON file with mirror path
  - store/memory:  in-memory, for tests and dev
  - store/dual:    composes a primary and a secondary Store

CONCURRENCY CONTRACT:
  UpdateEntry must be atomic per (week, participant): read the current
  row (or a clean default for lazy creation), run fn, and persist only
  if the row version is unchanged. On version conflict it returns
  ErrConcurrentModification and fn's effects are discarded.
*/
package ledger

import "context"

// Store persists roster and week state.
type Store interface {
	// Participants returns the roster in insertion order.
	Participants(ctx context.Context) ([]string, error)

	// AddParticipant appends a name to the roster.
	// Returns ErrDuplicateParticipant if the name already exists and
	// ErrEmptyParticipant for blank names.
	AddParticipant(ctx context.Context, name string) error

	// RemoveParticipant removes a name from the roster. Per-week data
	// already written for the name is left in place.
	RemoveParticipant(ctx context.Context, name string) error

	// Entry returns the participant's entry for the week, or a clean
	// default if none exists yet. It never creates rows.
	Entry(ctx context.Context, weekID, user string) (UserWeekEntry, error)

	// Entries returns all existing entries for the week keyed by
	// participant. Weeks with no data yield an empty map.
	Entries(ctx context.Context, weekID string) (map[string]UserWeekEntry, error)

	// UpdateEntry atomically mutates one (week, participant) row,
	// creating it on first write. fn receives the current state (repaired
	// to structural defaults); returning an error aborts without
	// persisting. Implementations increment Version on success and
	// return ErrConcurrentModification on a conflicting write.
	UpdateEntry(ctx context.Context, weekID, user string, fn func(*UserWeekEntry) error) error

	// Week returns the full record for a week (empty Users map if the
	// week holds no data).
	Week(ctx context.Context, weekID string) (WeekRecord, error)

	// SetWeekMeta stamps week-level metadata (reset info, frozen flag).
	SetWeekMeta(ctx context.Context, weekID string, frozen bool, info *ResetInfo) error

	// Weeks lists every week id holding data, in no particular order.
	Weeks(ctx context.Context) ([]string, error)

	// DeleteWeek removes a week and all its entries from the hot store.
	// Used by archival and by the weekly reset, never by the ordinary
	// write paths.
	DeleteWeek(ctx context.Context, weekID string) error

	// Export returns the whole ledger as a Document.
	Export(ctx context.Context) (*Document, error)

	// Import replaces the whole ledger with the given Document.
	Import(ctx context.Context, doc *Document) error
}

// ArchiveSink receives week snapshots produced by reset and archival.
// store/jsondoc implements this with dated archive files.
type ArchiveSink interface {
	ArchiveWeek(ctx context.Context, archive WeekArchive) error
}

// EnsureRoster adds any missing names to the store's roster, preserving
// the given order for the appended names. Existing names are left
// untouched.
func EnsureRoster(ctx context.Context, store Store, names []string) error {
	existing, err := store.Participants(ctx)
	if err != nil {
		return err
	}
	have := make(map[string]bool, len(existing))
	for _, n := range existing {
		have[n] = true
	}
	for _, n := range names {
		if have[n] {
			continue
		}
		if err := store.AddParticipant(ctx, n); err != nil {
			return err
		}
		have[n] = true
	}
	return nil
}
