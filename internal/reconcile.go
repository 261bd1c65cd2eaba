package internal

import (
	"context"
	"fmt"
)

// Timesheet column positions
const (
	ColDate = iota
	ColOwner
	ColHours
	ColOvertime
	ColNote
)

// DefaultOwnerLabel is written into the owner column of new rows
const DefaultOwnerLabel = "User"

// DefaultHeader is written when the table has no rows at all
var DefaultHeader = Row{
	TextCell("Date"),
	TextCell("User"),
	TextCell("Working Hours"),
	TextCell("Overtime"),
	TextCell("Note"),
}

// LogFunc receives human-readable progress lines
type LogFunc func(msg string)

func (f LogFunc) printf(format string, args ...any) {
	if f != nil {
		f(fmt.Sprintf(format, args...))
	}
}

// Reconciler finds the row for a date and rewrites it, or appends one
type Reconciler struct {
	OwnerLabel string
	Log        LogFunc
}

// Reconcile updates the first row whose date normalizes to target, or
// appends a new row at the end. Rows with empty or unparseable dates are
// skipped and left as they are. The header row is never read or written.
func (r Reconciler) Reconcile(t *Table, target Date, entry Entry) Outcome {
	if len(t.Rows) == 0 {
		t.Rows = append(t.Rows, append(Row(nil), DefaultHeader...))
	}

	for i := 1; i < len(t.Rows); i++ {
		d, ok := Normalize(t.Rows[i].Cell(ColDate))
		if !ok || d != target {
			continue
		}

		row := t.Rows[i].padded(ColNote + 1)
		row[ColHours] = TextCell(entry.WorkingHours)
		row[ColOvertime] = TextCell(entry.Overtime)
		row[ColNote] = TextCell(entry.Note)
		t.Rows[i] = row

		r.Log.printf("Found row %d for %s, updating", i, target)
		return Outcome{Action: ActionUpdated, Row: i}
	}

	owner := r.OwnerLabel
	if owner == "" {
		owner = DefaultOwnerLabel
	}
	t.Rows = append(t.Rows, Row{
		TextCell(target.String()),
		TextCell(owner),
		TextCell(entry.WorkingHours),
		TextCell(entry.Overtime),
		TextCell(entry.Note),
	})

	idx := len(t.Rows) - 1
	r.Log.printf("No row for %s, appending row %d", target, idx)
	return Outcome{Action: ActionAppended, Row: idx}
}

// ReconcileSource reads the whole table from src, reconciles it and hands
// the whole table back to src for writing. Errors from src are returned unchanged.
func (r Reconciler) ReconcileSource(ctx context.Context, src TableSource, target Date, entry Entry) (Outcome, error) {
	rows, err := src.ReadAll(ctx)
	if err != nil {
		return Outcome{}, err
	}

	table := &Table{Rows: rows}
	outcome := r.Reconcile(table, target, entry)

	if err := src.WriteAll(ctx, table.Rows); err != nil {
		return Outcome{}, err
	}
	return outcome, nil
}
