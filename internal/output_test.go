package internal

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func sampleReport() *Report {
	r := &Report{
		Date:       NewDate(2024, time.June, 1),
		State:      StateDone,
		OK:         true,
		Screenshot: "screenshots/wakatime_2024-06-01.png",
		TableFile:  &TableFile{ID: "f1", Name: "Time update", MimeType: SpreadsheetMimeType},
		Outcome:    &Outcome{Action: ActionUpdated, Row: 4},
	}
	for _, s := range stageOrder {
		r.set(s, StatusOK, "")
	}
	return r
}

func TestPrintReportJSON(t *testing.T) {
	var buf bytes.Buffer
	entry := Entry{WorkingHours: "08:30", Overtime: "00:00", Note: "n"}

	if err := PrintReportJSON(&buf, sampleReport(), entry); err != nil {
		t.Fatalf("PrintReportJSON: %v", err)
	}

	var got JSONReport
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, buf.String())
	}
	if got.Date != "01-06-2024" || got.State != StateDone || !got.OK {
		t.Errorf("unexpected header fields: %+v", got)
	}
	if got.Outcome == nil || got.Outcome.Row != 4 || got.Outcome.Action != ActionUpdated {
		t.Errorf("outcome = %+v", got.Outcome)
	}
	if len(got.Stages) != len(stageOrder) || got.Entry != entry {
		t.Errorf("stages/entry not carried over: %+v", got)
	}
	if got.Error != "" {
		t.Errorf("error = %q, want empty", got.Error)
	}
}

func TestNewJSONReport_Error(t *testing.T) {
	r := &Report{State: StateAbortedSync, Err: errors.New("quota exceeded")}
	got := NewJSONReport(r, Entry{})
	if got.Error != "quota exceeded" || got.OK {
		t.Errorf("got %+v", got)
	}
}

func TestPrintReportTable(t *testing.T) {
	var buf bytes.Buffer
	r := sampleReport()
	r.DryRun = true

	PrintReportTable(&buf, r, Entry{WorkingHours: "08:30", Overtime: "00:00"})

	out := buf.String()
	for _, want := range []string{"01-06-2024 (dry run)", "Hours: 08:30", `Note: ""`, "capture", "persist", "Updated(4)"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}
