/*
Package dual composes two ledger.Store implementations into one.

PURPOSE:
  The migration-window persistence adapter: a primary (relational,
  authoritative) store plus a secondary (JSON document) store.

WRITE POLICY:
  Every mutation goes to the primary first. On success it is replicated
  to the secondary best-effort; a secondary failure is logged as
  degraded, never surfaced. If the primary fails, the mutation is
  attempted on the secondary alone - success there is reported to the
  caller and logged as degraded. Only failure of BOTH stores is a hard
  error (ErrPersistenceUnavailable wrapping the primary failure).

READ POLICY:
  Relational-preferred: reads hit the primary; if the primary holds no
  data at all, the secondary is consulted. An empty pair yields clean
  defaults.

SEE ALSO:
  - ledger/store.go: interface contract
  - store/sqlite, store/jsondoc: the two halves
*/
package dual

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/warp/points-ledger/ledger"
)

// Store composes a primary and a secondary ledger.Store.
type Store struct {
	primary   ledger.Store
	secondary ledger.Store
	log       *zap.Logger
}

// New creates a dual store. log may be nil.
func New(primary, secondary ledger.Store, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{primary: primary, secondary: secondary, log: log}
}

// =============================================================================
// WRITE PATH
// =============================================================================

// write runs op against the primary, replicating to the secondary on
// success. Domain errors (client errors, conflicts) abort immediately -
// they are verdicts, not store failures.
func (s *Store) write(what string, op func(ledger.Store) error) error {
	err := op(s.primary)
	if err == nil {
		if repErr := op(s.secondary); repErr != nil {
			s.log.Warn("secondary store write failed, continuing degraded",
				zap.String("op", what), zap.Error(repErr))
		}
		return nil
	}
	if ledger.IsClientError(err) || ledger.IsNotFound(err) || ledger.IsRetryable(err) {
		return err
	}

	s.log.Warn("primary store write failed, trying secondary",
		zap.String("op", what), zap.Error(err))
	if secErr := op(s.secondary); secErr != nil {
		return fmt.Errorf("%w: primary: %v, secondary: %v",
			ledger.ErrPersistenceUnavailable, err, secErr)
	}
	s.log.Warn("operation persisted to secondary only",
		zap.String("op", what), zap.Error(err))
	return nil
}

func (s *Store) AddParticipant(ctx context.Context, name string) error {
	return s.write("add_participant", func(st ledger.Store) error {
		return st.AddParticipant(ctx, name)
	})
}

func (s *Store) RemoveParticipant(ctx context.Context, name string) error {
	return s.write("remove_participant", func(st ledger.Store) error {
		return st.RemoveParticipant(ctx, name)
	})
}

// UpdateEntry mutates the primary row, then mirrors the resulting row
// into the secondary verbatim. Re-running fn against the secondary
// would mint fresh audit ids and timestamps, so the mirror copies the
// authoritative row instead. Row versions are store-local counters and
// may drift between the two sides.
func (s *Store) UpdateEntry(ctx context.Context, weekID, user string, fn func(*ledger.UserWeekEntry) error) error {
	err := s.primary.UpdateEntry(ctx, weekID, user, fn)
	if err == nil {
		s.mirrorEntry(ctx, weekID, user)
		return nil
	}
	if ledger.IsClientError(err) || ledger.IsNotFound(err) || ledger.IsRetryable(err) {
		return err
	}

	s.log.Warn("primary store write failed, trying secondary",
		zap.String("op", "update_entry"), zap.Error(err))
	if secErr := s.secondary.UpdateEntry(ctx, weekID, user, fn); secErr != nil {
		return fmt.Errorf("%w: primary: %v, secondary: %v",
			ledger.ErrPersistenceUnavailable, err, secErr)
	}
	s.log.Warn("operation persisted to secondary only",
		zap.String("op", "update_entry"), zap.Error(err))
	return nil
}

func (s *Store) mirrorEntry(ctx context.Context, weekID, user string) {
	entry, err := s.primary.Entry(ctx, weekID, user)
	if err == nil {
		err = s.secondary.UpdateEntry(ctx, weekID, user, func(e *ledger.UserWeekEntry) error {
			*e = entry
			return nil
		})
	}
	if err != nil {
		s.log.Warn("secondary store write failed, continuing degraded",
			zap.String("op", "update_entry"), zap.Error(err))
	}
}

func (s *Store) SetWeekMeta(ctx context.Context, weekID string, frozen bool, info *ledger.ResetInfo) error {
	return s.write("set_week_meta", func(st ledger.Store) error {
		return st.SetWeekMeta(ctx, weekID, frozen, info)
	})
}

func (s *Store) DeleteWeek(ctx context.Context, weekID string) error {
	return s.write("delete_week", func(st ledger.Store) error {
		return st.DeleteWeek(ctx, weekID)
	})
}

func (s *Store) Import(ctx context.Context, doc *ledger.Document) error {
	return s.write("import", func(st ledger.Store) error {
		return st.Import(ctx, doc)
	})
}

// =============================================================================
// READ PATH - Relational-preferred with JSON fallback
// =============================================================================

// primaryEmpty reports whether the primary holds no data at all.
func (s *Store) primaryEmpty(ctx context.Context) bool {
	participants, err := s.primary.Participants(ctx)
	if err != nil || len(participants) > 0 {
		return err != nil
	}
	weeks, err := s.primary.Weeks(ctx)
	return err != nil || len(weeks) == 0
}

func (s *Store) reader(ctx context.Context) ledger.Store {
	if s.primaryEmpty(ctx) {
		return s.secondary
	}
	return s.primary
}

func (s *Store) Participants(ctx context.Context) ([]string, error) {
	return s.reader(ctx).Participants(ctx)
}

func (s *Store) Entry(ctx context.Context, weekID, user string) (ledger.UserWeekEntry, error) {
	return s.reader(ctx).Entry(ctx, weekID, user)
}

func (s *Store) Entries(ctx context.Context, weekID string) (map[string]ledger.UserWeekEntry, error) {
	return s.reader(ctx).Entries(ctx, weekID)
}

func (s *Store) Week(ctx context.Context, weekID string) (ledger.WeekRecord, error) {
	return s.reader(ctx).Week(ctx, weekID)
}

func (s *Store) Weeks(ctx context.Context) ([]string, error) {
	return s.reader(ctx).Weeks(ctx)
}

func (s *Store) Export(ctx context.Context) (*ledger.Document, error) {
	return s.reader(ctx).Export(ctx)
}

// =============================================================================
// RECONCILIATION
// =============================================================================

// Sync copies the authoritative side into the other so both stores
// agree. When the primary is empty but the secondary holds data (fresh
// database next to an existing JSON file), the secondary seeds the
// primary; otherwise the primary wins.
func (s *Store) Sync(ctx context.Context) error {
	var src, dst ledger.Store
	if s.primaryEmpty(ctx) {
		src, dst = s.secondary, s.primary
	} else {
		src, dst = s.primary, s.secondary
	}
	doc, err := src.Export(ctx)
	if err != nil {
		return err
	}
	if len(doc.Participants) == 0 && len(doc.Weeks) == 0 {
		return nil
	}
	return dst.Import(ctx, doc)
}
