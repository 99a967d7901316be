/*
Package sqlite provides the relational implementation of ledger.Store.

PURPOSE:
  The authoritative store. Rows are keyed (week_id, participant) and
  carry scalar columns for the hot fields plus JSON columns for the
  list-shaped ones (activities, pending activities, vacation periods,
  audit), matching the external relational contract.

OPTIMISTIC VERSIONING:
  UpdateEntry runs read-modify-write inside one database transaction
  and guards the final UPDATE with `WHERE version = ?`. A conflicting
  writer loses with ErrConcurrentModification instead of silently
  overwriting - the (week, participant) pair is the unit of
  transactional mutation. In-process writers are serialized by the
  store mutex; a writer on another connection makes this transaction's
  read snapshot stale, which SQLite reports as SQLITE_BUSY. That is
  the same verdict as a version mismatch, so busy/locked errors on the
  write path map to ErrConcurrentModification too.

WAL MODE:
  SQLite is opened with WAL for better concurrency: readers don't
  block, single writer at a time, better crash recovery.

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool with versioned migrations.

SEE ALSO:
  - ledger/store.go: interface contract
  - store/memory: in-memory implementation for tests
  - store/jsondoc: the JSON mirror half of the dual setup
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/warp/points-ledger/ledger"
)

// Store implements ledger.Store on SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a SQLite store at dbPath. Use ":memory:" for tests.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS participants (
		name TEXT PRIMARY KEY,
		position INTEGER NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS weeks (
		week_id TEXT PRIMARY KEY,
		created_at TEXT NOT NULL,
		frozen INTEGER NOT NULL DEFAULT 0,
		reset_info_json TEXT
	);

	CREATE TABLE IF NOT EXISTS week_entries (
		week_id TEXT NOT NULL,
		participant TEXT NOT NULL,
		goal_points TEXT NOT NULL,
		on_vacation INTEGER NOT NULL DEFAULT 0,
		pending_goal TEXT,
		activities_json TEXT NOT NULL,
		pending_activities_json TEXT NOT NULL,
		vacation_periods_json TEXT NOT NULL,
		audit_json TEXT NOT NULL,
		version INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (week_id, participant)
	);

	CREATE INDEX IF NOT EXISTS idx_week_entries_week
		ON week_entries(week_id);
	CREATE INDEX IF NOT EXISTS idx_week_entries_participant
		ON week_entries(participant);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// ROSTER
// =============================================================================

func (s *Store) Participants(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT name FROM participants ORDER BY position ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query participants: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (s *Store) AddParticipant(ctx context.Context, name string) error {
	if name == "" {
		return ledger.ErrEmptyParticipant
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var max sql.NullInt64
	if err := s.db.QueryRowContext(ctx,
		`SELECT MAX(position) FROM participants`).Scan(&max); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO participants (name, position, created_at) VALUES (?, ?, ?)`,
		name, max.Int64+1, nowString())
	if err != nil {
		if isUniqueConstraintError(err) {
			return ledger.ErrDuplicateParticipant
		}
		return fmt.Errorf("failed to add participant: %w", err)
	}
	return nil
}

func (s *Store) RemoveParticipant(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`DELETE FROM participants WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("failed to remove participant: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ledger.ErrUnknownParticipant
	}
	return nil
}

// =============================================================================
// ENTRIES
// =============================================================================

const entryColumns = `goal_points, on_vacation, pending_goal,
	activities_json, pending_activities_json, vacation_periods_json,
	audit_json, version`

func (s *Store) Entry(ctx context.Context, weekID, user string) (ledger.UserWeekEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT `+entryColumns+` FROM week_entries WHERE week_id = ? AND participant = ?`,
		weekID, user)
	entry, err := scanEntryFields(row.Scan)
	if err == sql.ErrNoRows {
		return ledger.NewUserWeekEntry(), nil
	}
	return entry, err
}

func (s *Store) Entries(ctx context.Context, weekID string) (map[string]ledger.UserWeekEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.entriesLocked(ctx, weekID)
}

func (s *Store) entriesLocked(ctx context.Context, weekID string) (map[string]ledger.UserWeekEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT participant, `+entryColumns+` FROM week_entries WHERE week_id = ?`,
		weekID)
	if err != nil {
		return nil, fmt.Errorf("failed to query week entries: %w", err)
	}
	defer rows.Close()

	result := make(map[string]ledger.UserWeekEntry)
	for rows.Next() {
		var user string
		entry, err := scanEntryFields(rows.Scan, &user)
		if err != nil {
			return nil, err
		}
		result[user] = entry
	}
	return result, rows.Err()
}

// UpdateEntry mutates one row under optimistic versioning within a
// single database transaction. Creates the row (and its week header)
// on first write.
func (s *Store) UpdateEntry(ctx context.Context, weekID, user string, fn func(*ledger.UserWeekEntry) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx,
		`SELECT `+entryColumns+` FROM week_entries WHERE week_id = ? AND participant = ?`,
		weekID, user)
	entry, err := scanEntryFields(row.Scan)
	exists := true
	if err == sql.ErrNoRows {
		entry = ledger.NewUserWeekEntry()
		exists = false
	} else if err != nil {
		return err
	}
	ledger.RepairEntry(&entry)
	priorVersion := entry.Version

	if err := fn(&entry); err != nil {
		return err
	}
	entry.Version = priorVersion + 1

	cols, err := marshalEntry(entry)
	if err != nil {
		return err
	}

	if exists {
		res, err := tx.ExecContext(ctx, `
			UPDATE week_entries SET
				goal_points = ?, on_vacation = ?, pending_goal = ?,
				activities_json = ?, pending_activities_json = ?,
				vacation_periods_json = ?, audit_json = ?,
				version = ?, updated_at = ?
			WHERE week_id = ? AND participant = ? AND version = ?`,
			cols.goal, cols.onVacation, cols.pendingGoal,
			cols.activities, cols.pendingActivities,
			cols.vacationPeriods, cols.audit,
			entry.Version, nowString(),
			weekID, user, priorVersion)
		if err != nil {
			if isLockedError(err) {
				return ledger.ErrConcurrentModification
			}
			return fmt.Errorf("failed to update entry: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ledger.ErrConcurrentModification
		}
	} else {
		if err := ensureWeekTx(ctx, tx, weekID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO week_entries
			(week_id, participant, goal_points, on_vacation, pending_goal,
			 activities_json, pending_activities_json, vacation_periods_json,
			 audit_json, version, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			weekID, user, cols.goal, cols.onVacation, cols.pendingGoal,
			cols.activities, cols.pendingActivities, cols.vacationPeriods,
			cols.audit, entry.Version, nowString(), nowString())
		if err != nil {
			if isUniqueConstraintError(err) || isLockedError(err) {
				return ledger.ErrConcurrentModification
			}
			return fmt.Errorf("failed to insert entry: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		if isLockedError(err) {
			return ledger.ErrConcurrentModification
		}
		return fmt.Errorf("failed to commit entry update: %w", err)
	}
	return nil
}

// =============================================================================
// WEEKS
// =============================================================================

func (s *Store) Week(ctx context.Context, weekID string) (ledger.WeekRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record := ledger.WeekRecord{WeekID: weekID, Users: map[string]ledger.UserWeekEntry{}}

	var createdAt string
	var frozen int
	var resetJSON sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT created_at, frozen, reset_info_json FROM weeks WHERE week_id = ?`,
		weekID).Scan(&createdAt, &frozen, &resetJSON)
	if err == nil {
		record.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		record.Frozen = frozen != 0
		if resetJSON.Valid && resetJSON.String != "" {
			var info ledger.ResetInfo
			if json.Unmarshal([]byte(resetJSON.String), &info) == nil {
				record.ResetInfo = &info
			}
		}
	} else if err != sql.ErrNoRows {
		return record, err
	}

	entries, err := s.entriesLocked(ctx, weekID)
	if err != nil {
		return record, err
	}
	record.Users = entries
	return record, nil
}

func (s *Store) SetWeekMeta(ctx context.Context, weekID string, frozen bool, info *ledger.ResetInfo) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var resetJSON any
	if info != nil {
		b, err := json.Marshal(info)
		if err != nil {
			return err
		}
		resetJSON = string(b)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO weeks (week_id, created_at, frozen, reset_info_json)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(week_id) DO UPDATE SET
			frozen = excluded.frozen,
			reset_info_json = excluded.reset_info_json`,
		weekID, nowString(), boolInt(frozen), resetJSON)
	return err
}

func (s *Store) Weeks(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT week_id FROM week_entries`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

func (s *Store) DeleteWeek(ctx context.Context, weekID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM week_entries WHERE week_id = ?`, weekID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM weeks WHERE week_id = ?`, weekID); err != nil {
		return err
	}
	return tx.Commit()
}

// =============================================================================
// EXPORT / IMPORT
// =============================================================================

func (s *Store) Export(ctx context.Context) (*ledger.Document, error) {
	participants, err := s.Participants(ctx)
	if err != nil {
		return nil, err
	}
	weeks, err := s.Weeks(ctx)
	if err != nil {
		return nil, err
	}

	doc := ledger.NewDocument(participants)
	for _, weekID := range weeks {
		record, err := s.Week(ctx, weekID)
		if err != nil {
			return nil, err
		}
		doc.Weeks[weekID] = record
	}
	return doc, nil
}

func (s *Store) Import(ctx context.Context, doc *ledger.Document) error {
	ledger.RepairDocument(doc)

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range []string{"week_entries", "weeks", "participants"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table); err != nil {
			return err
		}
	}

	for i, name := range doc.Participants {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO participants (name, position, created_at) VALUES (?, ?, ?)`,
			name, i, nowString()); err != nil {
			return err
		}
	}

	for weekID, week := range doc.Weeks {
		createdAt := week.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}
		var resetJSON any
		if week.ResetInfo != nil {
			b, err := json.Marshal(week.ResetInfo)
			if err != nil {
				return err
			}
			resetJSON = string(b)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO weeks (week_id, created_at, frozen, reset_info_json) VALUES (?, ?, ?, ?)`,
			weekID, createdAt.Format(time.RFC3339), boolInt(week.Frozen), resetJSON); err != nil {
			return err
		}
		for user, entry := range week.Users {
			cols, err := marshalEntry(entry)
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO week_entries
				(week_id, participant, goal_points, on_vacation, pending_goal,
				 activities_json, pending_activities_json, vacation_periods_json,
				 audit_json, version, created_at, updated_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				weekID, user, cols.goal, cols.onVacation, cols.pendingGoal,
				cols.activities, cols.pendingActivities, cols.vacationPeriods,
				cols.audit, entry.Version, nowString(), nowString()); err != nil {
				return err
			}
		}
	}
	return tx.Commit()
}

// =============================================================================
// ROW MARSHALING
// =============================================================================

type entryRow struct {
	goal              string
	onVacation        int
	pendingGoal       any // nil or string
	activities        string
	pendingActivities string
	vacationPeriods   string
	audit             string
}

func marshalEntry(e ledger.UserWeekEntry) (entryRow, error) {
	var cols entryRow
	cols.goal = e.GoalPoints.String()
	cols.onVacation = boolInt(e.OnVacation)
	if e.PendingGoal != nil {
		cols.pendingGoal = e.PendingGoal.String()
	}

	for _, pair := range []struct {
		dst *string
		src any
	}{
		{&cols.activities, e.Activities},
		{&cols.pendingActivities, e.PendingActivities},
		{&cols.vacationPeriods, e.VacationPeriods},
		{&cols.audit, e.Audit},
	} {
		b, err := json.Marshal(pair.src)
		if err != nil {
			return cols, fmt.Errorf("failed to marshal entry column: %w", err)
		}
		*pair.dst = string(b)
	}
	return cols, nil
}

// scanEntryFields scans entryColumns (optionally preceded by extra
// leading columns such as the participant name).
func scanEntryFields(scan func(...any) error, leading ...any) (ledger.UserWeekEntry, error) {
	var (
		entry             ledger.UserWeekEntry
		goal              string
		onVacation        int
		pendingGoal       sql.NullString
		activities        string
		pendingActivities string
		vacationPeriods   string
		audit             string
		version           int64
	)
	args := append(leading,
		&goal, &onVacation, &pendingGoal,
		&activities, &pendingActivities, &vacationPeriods,
		&audit, &version)
	if err := scan(args...); err != nil {
		return entry, err
	}

	entry.GoalPoints, _ = decimal.NewFromString(goal)
	entry.OnVacation = onVacation != 0
	if pendingGoal.Valid {
		if g, err := decimal.NewFromString(pendingGoal.String); err == nil {
			entry.PendingGoal = &g
		}
	}
	entry.Version = version

	for _, pair := range []struct {
		raw string
		dst any
	}{
		{activities, &entry.Activities},
		{pendingActivities, &entry.PendingActivities},
		{vacationPeriods, &entry.VacationPeriods},
		{audit, &entry.Audit},
	} {
		if pair.raw == "" {
			continue
		}
		if err := json.Unmarshal([]byte(pair.raw), pair.dst); err != nil {
			return entry, fmt.Errorf("failed to unmarshal entry column: %w", err)
		}
	}
	ledger.RepairEntry(&entry)
	return entry, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func ensureWeekTx(ctx context.Context, tx *sql.Tx, weekID string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO weeks (week_id, created_at, frozen) VALUES (?, ?, 0)
		ON CONFLICT(week_id) DO NOTHING`,
		weekID, nowString())
	return err
}

func nowString() string { return time.Now().UTC().Format(time.RFC3339) }

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// isLockedError reports whether err is SQLite telling us another
// connection won the write race (stale read snapshot or a held write
// lock).
func isLockedError(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.Code == sqlite3.ErrBusy || se.Code == sqlite3.ErrLocked
	}
	return err != nil && strings.Contains(err.Error(), "database is locked")
}
