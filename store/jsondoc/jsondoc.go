/*
Package jsondoc implements ledger.Store over a JSON document file.

PURPOSE:
  The whole ledger lives in one versioned JSON document:
  { version, participants, weeks }. Every mutation rewrites the primary
  file atomically (temp file + rename) and then, best-effort, a mirror
  path; a missing or unreadable primary falls back to the mirror on
  load. This is the JSON half of the dual-persistence setup and the
  home of the explicit archive / backup / restore utilities.

DURABILITY NOTES:
  - Primary write must succeed or the mutation fails.
  - Mirror write failures are logged, never surfaced.
  - Archives are dated files under <primary dir>/archive/, produced
    only on demand (week reset, explicit archival), never by normal
    writes.

SEE ALSO:
  - ledger/store.go: interface contract and ArchiveSink
  - store/dual: composition with the relational store
*/
package jsondoc

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/warp/points-ledger/ledger"
)

// Store implements ledger.Store over a JSON file.
type Store struct {
	path   string
	mirror string // optional secondary path, best-effort
	log    *zap.Logger
	mu     sync.Mutex
}

// Option configures a Store.
type Option func(*Store)

// WithMirror sets a secondary path receiving best-effort copies of
// every write.
func WithMirror(path string) Option { return func(s *Store) { s.mirror = path } }

// WithLogger sets the structured logger (default: no-op).
func WithLogger(l *zap.Logger) Option { return func(s *Store) { s.log = l } }

// New creates a JSON document store at path. The file is created on
// first write; a pre-existing file is validated on first load.
func New(path string, opts ...Option) *Store {
	s := &Store{path: path, log: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// =============================================================================
// DOCUMENT LOAD / SAVE
// =============================================================================

// load reads the primary path, falling back to the mirror, falling back
// to an empty document. Parse failures fall through the same chain:
// low-level load failures are replaced with safe defaults, never
// surfaced to callers.
func (s *Store) load() *ledger.Document {
	for _, p := range []string{s.path, s.mirror} {
		if p == "" {
			continue
		}
		b, err := os.ReadFile(p)
		if err != nil {
			continue
		}
		var doc ledger.Document
		if err := json.Unmarshal(b, &doc); err != nil {
			s.log.Warn("unreadable ledger document, trying next source",
				zap.String("path", p), zap.Error(err))
			continue
		}
		ledger.RepairDocument(&doc)
		return &doc
	}
	return ledger.NewDocument(nil)
}

func (s *Store) save(doc *ledger.Document) error {
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal ledger document: %w", err)
	}
	if err := writeAtomic(s.path, b); err != nil {
		return fmt.Errorf("failed to write ledger document: %w", err)
	}
	if s.mirror != "" {
		if err := writeAtomic(s.mirror, b); err != nil {
			s.log.Warn("mirror write failed, continuing",
				zap.String("path", s.mirror), zap.Error(err))
		}
	}
	return nil
}

func writeAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// mutate runs fn against the loaded document and saves the result.
func (s *Store) mutate(fn func(*ledger.Document) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc := s.load()
	if err := fn(doc); err != nil {
		return err
	}
	return s.save(doc)
}

// =============================================================================
// ledger.Store IMPLEMENTATION
// =============================================================================

func (s *Store) Participants(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string{}, s.load().Participants...), nil
}

func (s *Store) AddParticipant(_ context.Context, name string) error {
	if name == "" {
		return ledger.ErrEmptyParticipant
	}
	return s.mutate(func(doc *ledger.Document) error {
		for _, n := range doc.Participants {
			if n == name {
				return ledger.ErrDuplicateParticipant
			}
		}
		doc.Participants = append(doc.Participants, name)
		return nil
	})
}

func (s *Store) RemoveParticipant(_ context.Context, name string) error {
	return s.mutate(func(doc *ledger.Document) error {
		for i, n := range doc.Participants {
			if n == name {
				doc.Participants = append(doc.Participants[:i], doc.Participants[i+1:]...)
				return nil
			}
		}
		return ledger.ErrUnknownParticipant
	})
}

func (s *Store) Entry(_ context.Context, weekID, user string) (ledger.UserWeekEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc := s.load()
	if week, ok := doc.Weeks[weekID]; ok {
		if entry, ok := week.Users[user]; ok {
			return entry, nil
		}
	}
	return ledger.NewUserWeekEntry(), nil
}

func (s *Store) Entries(_ context.Context, weekID string) (map[string]ledger.UserWeekEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc := s.load()
	result := make(map[string]ledger.UserWeekEntry)
	if week, ok := doc.Weeks[weekID]; ok {
		for user, entry := range week.Users {
			result[user] = entry
		}
	}
	return result, nil
}

func (s *Store) UpdateEntry(_ context.Context, weekID, user string, fn func(*ledger.UserWeekEntry) error) error {
	return s.mutate(func(doc *ledger.Document) error {
		week, ok := doc.Weeks[weekID]
		if !ok {
			week = ledger.WeekRecord{
				WeekID:    weekID,
				CreatedAt: time.Now().UTC(),
				Users:     make(map[string]ledger.UserWeekEntry),
			}
		}
		entry, ok := week.Users[user]
		if !ok {
			entry = ledger.NewUserWeekEntry()
		}
		ledger.RepairEntry(&entry)
		if err := fn(&entry); err != nil {
			return err
		}
		entry.Version++
		week.Users[user] = entry
		doc.Weeks[weekID] = week
		return nil
	})
}

func (s *Store) Week(_ context.Context, weekID string) (ledger.WeekRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc := s.load()
	if week, ok := doc.Weeks[weekID]; ok {
		return week, nil
	}
	return ledger.WeekRecord{WeekID: weekID, Users: map[string]ledger.UserWeekEntry{}}, nil
}

func (s *Store) SetWeekMeta(_ context.Context, weekID string, frozen bool, info *ledger.ResetInfo) error {
	return s.mutate(func(doc *ledger.Document) error {
		week, ok := doc.Weeks[weekID]
		if !ok {
			week = ledger.WeekRecord{
				WeekID:    weekID,
				CreatedAt: time.Now().UTC(),
				Users:     make(map[string]ledger.UserWeekEntry),
			}
		}
		week.Frozen = frozen
		week.ResetInfo = info
		doc.Weeks[weekID] = week
		return nil
	})
}

func (s *Store) Weeks(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc := s.load()
	keys := make([]string, 0, len(doc.Weeks))
	for k := range doc.Weeks {
		keys = append(keys, k)
	}
	return keys, nil
}

func (s *Store) DeleteWeek(_ context.Context, weekID string) error {
	return s.mutate(func(doc *ledger.Document) error {
		delete(doc.Weeks, weekID)
		return nil
	})
}

func (s *Store) Export(_ context.Context) (*ledger.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(), nil
}

func (s *Store) Import(_ context.Context, doc *ledger.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ledger.RepairDocument(doc)
	return s.save(doc)
}

// =============================================================================
// ARCHIVE / BACKUP / RESTORE - Explicit utilities, never auto-triggered
// =============================================================================

// ArchiveWeek writes a week snapshot to a dated file under the archive
// directory next to the primary document. Implements ledger.ArchiveSink.
func (s *Store) ArchiveWeek(_ context.Context, archive ledger.WeekArchive) error {
	b, err := json.MarshalIndent(archive, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal archive: %w", err)
	}
	name := fmt.Sprintf("%s-%s.json", archive.WeekID, archive.ArchivedAt.UTC().Format("20060102T150405"))
	path := filepath.Join(filepath.Dir(s.path), "archive", name)
	if err := writeAtomic(path, b); err != nil {
		return fmt.Errorf("failed to write archive: %w", err)
	}
	s.log.Info("week archived", zap.String("week", archive.WeekID), zap.String("path", path))
	return nil
}

// ArchiveOldWeeks moves every stored week with a key strictly below
// cutoff out of the hot document into dated archive files. Returns the
// archived week ids.
func (s *Store) ArchiveOldWeeks(ctx context.Context, cutoff string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.load()
	var archived []string
	now := time.Now().UTC()
	for weekID, week := range doc.Weeks {
		if weekID >= cutoff {
			continue
		}
		archive := ledger.WeekArchive{
			WeekID:       weekID,
			ArchivedAt:   now,
			Participants: len(week.Users),
			Record:       week,
		}
		if err := s.ArchiveWeek(ctx, archive); err != nil {
			return archived, err
		}
		delete(doc.Weeks, weekID)
		archived = append(archived, weekID)
	}
	if len(archived) == 0 {
		return nil, nil
	}
	return archived, s.save(doc)
}

// Backup writes the current document to an explicit path.
func (s *Store) Backup(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, err := json.MarshalIndent(s.load(), "", "  ")
	if err != nil {
		return err
	}
	return writeAtomic(path, b)
}

// Restore replaces the current document with the one at path.
func (s *Store) Restore(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read backup: %w", err)
	}
	var doc ledger.Document
	if err := json.Unmarshal(b, &doc); err != nil {
		return fmt.Errorf("failed to parse backup: %w", err)
	}
	ledger.RepairDocument(&doc)
	return s.save(&doc)
}
