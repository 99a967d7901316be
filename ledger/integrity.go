/*
integrity.go - Structural repair of loaded state

PURPOSE:
  Records written by older code (or by hand) can miss fields the
  current model expects: nil collections, out-of-range goals, missing
  week ids. Repair backfills defaults instead of rejecting the
  document; load paths in every store run entries through it so domain
  code never sees a structurally broken entry.
*/
package ledger

// RepairEntry backfills missing or invalid fields on one entry.
// Idempotent.
func RepairEntry(e *UserWeekEntry) {
	if e.VacationPeriods == nil {
		e.VacationPeriods = []VacationPeriod{}
	}
	if e.Activities == nil {
		e.Activities = []ActivityEntry{}
	}
	if e.PendingActivities == nil {
		e.PendingActivities = []ActivityEntry{}
	}
	if e.Audit == nil {
		e.Audit = []AuditEntry{}
	}
	e.GoalPoints = clampDecimal(e.GoalPoints)
	if e.PendingGoal != nil {
		g := clampDecimal(*e.PendingGoal)
		e.PendingGoal = &g
	}
	if e.Version < 0 {
		e.Version = 0
	}
}

// RepairDocument backfills a whole document: envelope version, nil
// maps, per-week ids and every entry.
func RepairDocument(doc *Document) {
	if doc.Version == 0 {
		doc.Version = DocumentVersion
	}
	if doc.Participants == nil {
		doc.Participants = []string{}
	}
	if doc.Weeks == nil {
		doc.Weeks = make(map[string]WeekRecord)
	}
	for weekID, week := range doc.Weeks {
		if week.WeekID == "" {
			week.WeekID = weekID
		}
		if week.Users == nil {
			week.Users = make(map[string]UserWeekEntry)
		}
		for user, entry := range week.Users {
			RepairEntry(&entry)
			week.Users[user] = entry
		}
		doc.Weeks[weekID] = week
	}
}
