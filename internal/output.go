package internal

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// JSONReport is the JSON output format for a run
type JSONReport struct {
	Date       string        `json:"date"`
	State      RunState      `json:"state"`
	OK         bool          `json:"ok"`
	DryRun     bool          `json:"dry_run,omitempty"`
	Summary    string        `json:"summary"`
	Stages     []StageResult `json:"stages"`
	Screenshot string        `json:"screenshot,omitempty"`
	TableFile  *TableFile    `json:"table_file,omitempty"`
	Outcome    *Outcome      `json:"outcome,omitempty"`
	Entry      Entry         `json:"entry"`
	Error      string        `json:"error,omitempty"`
}

// NewJSONReport flattens a report for JSON output
func NewJSONReport(r *Report, entry Entry) JSONReport {
	out := JSONReport{
		Date:       r.Date.String(),
		State:      r.State,
		OK:         r.OK,
		DryRun:     r.DryRun,
		Summary:    r.Summary(),
		Stages:     r.Stages,
		Screenshot: r.Screenshot,
		TableFile:  r.TableFile,
		Outcome:    r.Outcome,
		Entry:      entry,
	}
	if r.Err != nil {
		out.Error = r.Err.Error()
	}
	return out
}

// PrintReportJSON outputs the run report in JSON format
func PrintReportJSON(w io.Writer, r *Report, entry Entry) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(NewJSONReport(r, entry))
}

// PrintReportTable outputs the run report as a formatted table
func PrintReportTable(w io.Writer, r *Report, entry Entry) {
	title := fmt.Sprintf("Timesheet run for %s", r.Date)
	if r.DryRun {
		title += " (dry run)"
	}
	fmt.Fprintf(w, "%s\n", title)
	fmt.Fprintf(w, "Hours: %s  Overtime: %s  Note: %s\n\n", entry.WorkingHours, entry.Overtime, quoteEmpty(entry.Note))

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Stage", "Status", "Detail"})

	for _, s := range r.Stages {
		t.AppendRow(table.Row{string(s.Stage), statusText(s.Status), s.Detail})
	}

	t.AppendSeparator()
	verdict := text.FgGreen.Sprint("OK")
	if !r.OK {
		verdict = text.FgRed.Sprint("FAILED")
	}
	t.AppendFooter(table.Row{text.Bold.Sprint("Result"), text.Bold.Sprint(verdict), r.Summary()})

	t.SetStyle(table.StyleRounded)
	t.Style().Format.Header = text.FormatDefault
	t.Style().Format.Footer = text.FormatDefault
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, WidthMax: 70},
	})

	t.Render()
}

func statusText(s StageStatus) string {
	switch s {
	case StatusOK:
		return text.FgGreen.Sprint("OK")
	case StatusFailed:
		return text.FgRed.Sprint("FAILED")
	}
	return text.FgHiBlack.Sprint("SKIPPED")
}

func quoteEmpty(s string) string {
	if s == "" {
		return `""`
	}
	return s
}
