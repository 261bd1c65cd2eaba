package internal

import (
	"context"
	"strings"
	"testing"
)

func TestIsKnownSource(t *testing.T) {
	// Register a test source
	RegisterSource("text/csv", SourceOpenerFunc(func(file TableFile, deps SourceDeps) (TableSource, error) {
		return &memSource{}, nil
	}))

	tests := []struct {
		name     string
		input    string
		expected bool
	}{
		{"registered source", "text/csv", true},
		{"workbook", XLSXMimeType, true},
		{"native spreadsheet", SpreadsheetMimeType, true},
		{"folder", FolderMimeType, false},
		{"empty string", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsKnownSource(tt.input)
			if got != tt.expected {
				t.Errorf("IsKnownSource(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestOpenTableSource(t *testing.T) {
	deps := SourceDeps{Files: newFakeStore(), Sheets: &fakeSheets{}, SheetRange: "Sheet1!A:E"}

	tests := []struct {
		name    string
		file    TableFile
		check   func(TableSource) bool
		wantErr string
	}{
		{
			name:  "xlsx opens a workbook source",
			file:  TableFile{ID: "1", Name: "Time update.xlsx", MimeType: XLSXMimeType},
			check: func(s TableSource) bool { _, ok := s.(*WorkbookSource); return ok },
		},
		{
			name:  "spreadsheet opens a sheet source",
			file:  TableFile{ID: "2", Name: "Time update", MimeType: SpreadsheetMimeType},
			check: func(s TableSource) bool { _, ok := s.(*SheetSource); return ok },
		},
		{
			name:    "unsupported type lists supported ones",
			file:    TableFile{ID: "3", Name: "Time update.pdf", MimeType: "application/pdf"},
			wantErr: "unsupported table file type",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, err := OpenTableSource(tt.file, deps)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Errorf("err = %v, want it to contain %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tt.check(src) {
				t.Errorf("unexpected source type %T", src)
			}
		})
	}
}

func TestOpenTableSource_MissingDeps(t *testing.T) {
	for _, mime := range []string{XLSXMimeType, SpreadsheetMimeType} {
		if _, err := OpenTableSource(TableFile{MimeType: mime}, SourceDeps{}); err == nil {
			t.Errorf("%s: expected error without clients", mime)
		}
	}
}

func TestReadOnlySource_DropsWrites(t *testing.T) {
	inner := &memSource{rows: []Row{DefaultHeader}}
	src := readOnlySource{inner}

	if err := src.WriteAll(context.Background(), nil); err != nil {
		t.Fatalf("WriteAll: %v", err)
	}
	if inner.writes != 0 {
		t.Errorf("write reached the wrapped source")
	}
	rows, err := src.ReadAll(context.Background())
	if err != nil || len(rows) != 1 {
		t.Errorf("ReadAll = %v, %v; want the wrapped rows", rows, err)
	}
}
