/*
service.go - Ledger service wiring

PURPOSE:
  Service is the injected entry point for every ledger operation. It
  owns the store, the commit-window policy, the clock and the logger;
  the per-concern files (recorder.go, goals.go, pending.go, stats.go,
  vacation.go, reset.go, audit.go, recommend.go) hang their operations
  off it.

CONSTRUCTION:
  svc := ledger.New(store,
      ledger.WithWindowPolicy(policy),
      ledger.WithLogger(log),
      ledger.WithArchiveSink(archive),
  )

  The clock is injectable for tests (WithClock); production uses
  time.Now.
*/
package ledger

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service executes ledger operations against a Store.
type Service struct {
	store   Store
	window  WindowPolicy
	archive ArchiveSink
	log     *zap.Logger
	now     func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithWindowPolicy sets the commit-window policy (default: always open).
func WithWindowPolicy(p WindowPolicy) Option { return func(s *Service) { s.window = p } }

// WithLogger sets the structured logger (default: no-op).
func WithLogger(l *zap.Logger) Option { return func(s *Service) { s.log = l } }

// WithArchiveSink sets the sink receiving week snapshots on reset.
func WithArchiveSink(a ArchiveSink) Option { return func(s *Service) { s.archive = a } }

// WithClock overrides the wall clock. Tests use this to drive the
// commit window deterministically.
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

// New creates a Service over the given store.
func New(store Store, opts ...Option) *Service {
	s := &Service{
		store:  store,
		window: AlwaysOpen(),
		log:    zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// WindowOpen reports whether the commit window is open right now.
func (s *Service) WindowOpen() bool { return s.window.IsOpen(s.now()) }

// CurrentWeek returns the week key containing the current instant.
func (s *Service) CurrentWeek() string { return WeekKey(s.now()) }

// =============================================================================
// ROSTER ADMINISTRATION
// =============================================================================

// Participants returns the roster in order.
func (s *Service) Participants(ctx context.Context) ([]string, error) {
	return s.store.Participants(ctx)
}

// AddParticipant adds a name to the roster.
func (s *Service) AddParticipant(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyParticipant
	}
	return s.store.AddParticipant(ctx, name)
}

// RemoveParticipant removes a name from the roster. Historical week
// data for the name stays readable.
func (s *Service) RemoveParticipant(ctx context.Context, name string) error {
	return s.store.RemoveParticipant(ctx, name)
}

// validateParticipant checks the name against the roster.
func (s *Service) validateParticipant(ctx context.Context, user string) error {
	if strings.TrimSpace(user) == "" {
		return ErrEmptyParticipant
	}
	roster, err := s.store.Participants(ctx)
	if err != nil {
		return err
	}
	for _, n := range roster {
		if n == user {
			return nil
		}
	}
	return &UnknownParticipantError{User: user}
}

// =============================================================================
// WEEK LISTING
// =============================================================================

// ListRecentWeeks returns up to limit week keys, newest first. The
// current week is always included even before it holds any data.
func (s *Service) ListRecentWeeks(ctx context.Context, limit int) ([]string, error) {
	keys, err := s.store.Weeks(ctx)
	if err != nil {
		return nil, err
	}
	current := s.CurrentWeek()
	found := false
	for _, k := range keys {
		if k == current {
			found = true
			break
		}
	}
	if !found {
		keys = append(keys, current)
	}
	SortWeekKeysDesc(keys)
	if limit > 0 && len(keys) > limit {
		keys = keys[:limit]
	}
	return keys, nil
}

// =============================================================================
// INTERNAL HELPERS
// =============================================================================

func newID() string { return uuid.NewString() }

func (s *Service) newAudit(t AuditType, actor string, payload map[string]any) AuditEntry {
	return AuditEntry{
		ID:      newID(),
		Type:    t,
		Actor:   actor,
		At:      s.now(),
		Payload: payload,
	}
}
