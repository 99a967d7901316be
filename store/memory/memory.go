// Package memory provides an in-memory ledger.Store for tests and dev.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/warp/points-ledger/ledger"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Store struct {
	mu           sync.RWMutex
	participants []string
	weeks        map[string]ledger.WeekRecord
	now          func() time.Time
}

func New() *Store {
	return &Store{
		weeks: make(map[string]ledger.WeekRecord),
		now:   time.Now,
	}
}

func (s *Store) Participants(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string{}, s.participants...), nil
}

func (s *Store) AddParticipant(_ context.Context, name string) error {
	if name == "" {
		return ledger.ErrEmptyParticipant
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range s.participants {
		if n == name {
			return ledger.ErrDuplicateParticipant
		}
	}
	s.participants = append(s.participants, name)
	return nil
}

func (s *Store) RemoveParticipant(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, n := range s.participants {
		if n == name {
			s.participants = append(s.participants[:i], s.participants[i+1:]...)
			return nil
		}
	}
	return ledger.ErrUnknownParticipant
}

func (s *Store) Entry(_ context.Context, weekID, user string) (ledger.UserWeekEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if week, ok := s.weeks[weekID]; ok {
		if entry, ok := week.Users[user]; ok {
			return cloneEntry(entry), nil
		}
	}
	return ledger.NewUserWeekEntry(), nil
}

func (s *Store) Entries(_ context.Context, weekID string) (map[string]ledger.UserWeekEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make(map[string]ledger.UserWeekEntry)
	if week, ok := s.weeks[weekID]; ok {
		for user, entry := range week.Users {
			result[user] = cloneEntry(entry)
		}
	}
	return result, nil
}

func (s *Store) UpdateEntry(_ context.Context, weekID, user string, fn func(*ledger.UserWeekEntry) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	week, ok := s.weeks[weekID]
	if !ok {
		week = ledger.WeekRecord{
			WeekID:    weekID,
			CreatedAt: s.now(),
			Users:     make(map[string]ledger.UserWeekEntry),
		}
	}
	entry, ok := week.Users[user]
	if !ok {
		entry = ledger.NewUserWeekEntry()
	}
	entry = cloneEntry(entry)
	ledger.RepairEntry(&entry)

	if err := fn(&entry); err != nil {
		return err
	}
	entry.Version++
	week.Users[user] = entry
	s.weeks[weekID] = week
	return nil
}

func (s *Store) Week(_ context.Context, weekID string) (ledger.WeekRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	week, ok := s.weeks[weekID]
	if !ok {
		return ledger.WeekRecord{WeekID: weekID, Users: map[string]ledger.UserWeekEntry{}}, nil
	}
	return cloneWeek(week), nil
}

func (s *Store) SetWeekMeta(_ context.Context, weekID string, frozen bool, info *ledger.ResetInfo) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	week, ok := s.weeks[weekID]
	if !ok {
		week = ledger.WeekRecord{
			WeekID:    weekID,
			CreatedAt: s.now(),
			Users:     make(map[string]ledger.UserWeekEntry),
		}
	}
	week.Frozen = frozen
	week.ResetInfo = info
	s.weeks[weekID] = week
	return nil
}

func (s *Store) Weeks(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.weeks))
	for k := range s.weeks {
		keys = append(keys, k)
	}
	return keys, nil
}

func (s *Store) DeleteWeek(_ context.Context, weekID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.weeks, weekID)
	return nil
}

func (s *Store) Export(_ context.Context) (*ledger.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc := ledger.NewDocument(s.participants)
	for weekID, week := range s.weeks {
		doc.Weeks[weekID] = cloneWeek(week)
	}
	return doc, nil
}

func (s *Store) Import(_ context.Context, doc *ledger.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ledger.RepairDocument(doc)
	s.participants = append([]string{}, doc.Participants...)
	s.weeks = make(map[string]ledger.WeekRecord, len(doc.Weeks))
	for weekID, week := range doc.Weeks {
		s.weeks[weekID] = cloneWeek(week)
	}
	return nil
}

// =============================================================================
// DEEP COPIES - callers must never alias internal state
// =============================================================================

func cloneEntry(e ledger.UserWeekEntry) ledger.UserWeekEntry {
	c := e
	c.VacationPeriods = append([]ledger.VacationPeriod{}, e.VacationPeriods...)
	c.Activities = append([]ledger.ActivityEntry{}, e.Activities...)
	c.PendingActivities = append([]ledger.ActivityEntry{}, e.PendingActivities...)
	c.Audit = append([]ledger.AuditEntry{}, e.Audit...)
	if e.PendingGoal != nil {
		g := *e.PendingGoal
		c.PendingGoal = &g
	}
	return c
}

func cloneWeek(w ledger.WeekRecord) ledger.WeekRecord {
	c := w
	c.Users = make(map[string]ledger.UserWeekEntry, len(w.Users))
	for user, entry := range w.Users {
		c.Users[user] = cloneEntry(entry)
	}
	if w.ResetInfo != nil {
		info := *w.ResetInfo
		c.ResetInfo = &info
	}
	return c
}
