/*
audit.go - Week-level audit aggregation and CSV export

PURPOSE:
  Every state change writes into the owning (week, participant) entry's
  audit array. WeekAudit flattens those arrays across the week, tags
  each line with its originating user, and sorts newest-first on the
  real timestamp - a total order, independent of string formatting.

CSV EXPORT:
  Audit entry payloads vary by type (a goal_set line has no activity
  id, a vacation_set line has no points). The export uses one fixed
  superset header so every row has the same columns; absent fields
  serialize as empty strings.
*/
package ledger

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"time"
)

// AuditRecord is one audit line tagged with its originating user.
type AuditRecord struct {
	User string `json:"user"`
	AuditEntry
}

// WeekAudit returns every audit entry for the week across all
// participants, sorted descending by timestamp.
func (s *Service) WeekAudit(ctx context.Context, weekID string) ([]AuditRecord, error) {
	entries, err := s.store.Entries(ctx, weekID)
	if err != nil {
		return nil, err
	}
	var records []AuditRecord
	for user, entry := range entries {
		for _, a := range entry.Audit {
			records = append(records, AuditRecord{User: user, AuditEntry: a})
		}
	}
	sort.Slice(records, func(i, j int) bool {
		if !records[i].At.Equal(records[j].At) {
			return records[i].At.After(records[j].At)
		}
		return records[i].ID < records[j].ID
	})
	return records, nil
}

// auditCSVHeader is the fixed superset of payload fields across all
// audit types. Keeping it static guarantees consistent columns no
// matter which entry happens to come first.
var auditCSVHeader = []string{
	"at", "week_id", "user", "actor", "type",
	"activity_id", "kind", "points", "note", "goal",
	"start_date", "end_date", "reason",
}

// ExportAuditCSV writes the week's audit trail (newest first) as CSV.
func (s *Service) ExportAuditCSV(ctx context.Context, weekID string, w io.Writer) error {
	records, err := s.WeekAudit(ctx, weekID)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(auditCSVHeader); err != nil {
		return err
	}
	for _, r := range records {
		row := []string{
			r.At.Format(time.RFC3339),
			weekID,
			r.User,
			r.Actor,
			string(r.Type),
			payloadString(r.Payload, "activity_id"),
			payloadString(r.Payload, "kind"),
			payloadString(r.Payload, "points"),
			payloadString(r.Payload, "note"),
			payloadString(r.Payload, "goal"),
			payloadString(r.Payload, "start_date"),
			payloadString(r.Payload, "end_date"),
			payloadString(r.Payload, "reason"),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func payloadString(payload map[string]any, key string) string {
	if payload == nil {
		return ""
	}
	v, ok := payload[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	default:
		return fmt.Sprintf("%v", t)
	}
}
