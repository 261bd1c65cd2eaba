package main

import (
	"bufio"
	"bytes"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/gigurra/timesheet-automator/internal"
)

func TestPromptEntry(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected internal.Entry
		wantErr  bool
	}{
		{
			name:     "all values",
			input:    "08:30\n00:15\nfixed the importer\n",
			expected: internal.Entry{WorkingHours: "08:30", Overtime: "00:15", Note: "fixed the importer"},
		},
		{
			name:     "empty note line",
			input:    "08:00\n00:00\n\n",
			expected: internal.Entry{WorkingHours: "08:00", Overtime: "00:00"},
		},
		{
			name:    "input ends early",
			input:   "08:00\n00:00\n",
			wantErr: true,
		},
		{
			name:     "values are trimmed",
			input:    "  7:45 \r\n0\r\n  note  ",
			expected: internal.Entry{WorkingHours: "7:45", Overtime: "0", Note: "note"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			got, err := promptEntry(bufio.NewReader(strings.NewReader(tt.input)), &out)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("promptEntry: %v", err)
			}
			if got != tt.expected {
				t.Errorf("promptEntry = %+v, want %+v", got, tt.expected)
			}
			if !strings.Contains(out.String(), "Working Hours") {
				t.Errorf("prompt labels missing: %q", out.String())
			}
		})
	}
}

func TestPromptFolder(t *testing.T) {
	in := bufio.NewReader(strings.NewReader("\n   \nhttps://drive.google.com/drive/folders/1AbCdEfGhIjKlMnOpQrStUvWxYz012345\n"))
	var out bytes.Buffer

	got, err := promptFolder(in, &out)
	if err != nil {
		t.Fatalf("promptFolder: %v", err)
	}
	if got != "1AbCdEfGhIjKlMnOpQrStUvWxYz012345" {
		t.Errorf("folder = %q", got)
	}
	if strings.Count(out.String(), "Folder ID: ") != 3 {
		t.Errorf("expected to be asked 3 times: %q", out.String())
	}
}

func TestPromptAuthCode(t *testing.T) {
	var out bytes.Buffer
	prompt := promptAuthCode(bufio.NewReader(strings.NewReader("4/abc\n")), &out)

	code, err := prompt("https://accounts.example/auth")
	if err != nil {
		t.Fatalf("prompt: %v", err)
	}
	if code != "4/abc" || !strings.Contains(out.String(), "https://accounts.example/auth") {
		t.Errorf("code = %q, output = %q", code, out.String())
	}
}

func TestLogSink_Levels(t *testing.T) {
	var buf bytes.Buffer
	logger := log.NewWithOptions(&buf, log.Options{})
	sink := logSink(logger)

	tests := []struct {
		msg   string
		level string
	}{
		{"Syncing data...", "INFO"},
		{"'Time update' file not found, skipping timesheet update", "WARN"},
		{"Chart delayed, capturing anyway", "WARN"},
		{"Capture failed: timeout", "ERRO"},
		{"Cloud error during upload: 403", "ERRO"},
	}

	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			buf.Reset()
			sink(tt.msg)
			if !strings.HasPrefix(buf.String(), tt.level) {
				t.Errorf("logged %q, want level %s", buf.String(), tt.level)
			}
		})
	}
}
