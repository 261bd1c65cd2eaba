package internal

import (
	"context"
	"fmt"
	"sort"
)

// TableSource stores a timesheet. Both operations work on the whole
// table, header included at index 0; there are no partial writes.
type TableSource interface {
	ReadAll(ctx context.Context) ([]Row, error)
	WriteAll(ctx context.Context, rows []Row) error
}

// SourceError marks a failed read or write against a table store
type SourceError struct {
	Op  string // "read" or "write"
	Err error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("table %s: %v", e.Op, e.Err)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

// TableFile identifies the located timesheet file in cloud storage
type TableFile struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	MimeType string `json:"mime_type"`
}

// SourceDeps carries what an opener may need to reach the file
type SourceDeps struct {
	Files      FileStore
	Sheets     SheetValues
	SheetRange string
}

// SourceOpener builds a TableSource for a located file
type SourceOpener interface {
	Open(file TableFile, deps SourceDeps) (TableSource, error)
}

// SourceOpenerFunc is a function that implements SourceOpener
type SourceOpenerFunc func(file TableFile, deps SourceDeps) (TableSource, error)

func (f SourceOpenerFunc) Open(file TableFile, deps SourceDeps) (TableSource, error) {
	return f(file, deps)
}

// sources is the registry of table stores keyed by MIME type
var sources = map[string]SourceOpener{}

// RegisterSource registers an opener for files of the given MIME type
func RegisterSource(mimeType string, o SourceOpener) {
	sources[mimeType] = o
}

// GetSource returns the opener for the given MIME type
func GetSource(mimeType string) (SourceOpener, error) {
	o, ok := sources[mimeType]
	if !ok {
		return nil, fmt.Errorf("unsupported table file type: %s (supported: %v)", mimeType, AvailableSources())
	}
	return o, nil
}

// IsKnownSource returns true if files of this MIME type can be reconciled
func IsKnownSource(mimeType string) bool {
	_, ok := sources[mimeType]
	return ok
}

// AvailableSources returns the registered MIME types, sorted
func AvailableSources() []string {
	var types []string
	for name := range sources {
		types = append(types, name)
	}
	sort.Strings(types)
	return types
}

// OpenTableSource picks the store implementation for a located file
func OpenTableSource(file TableFile, deps SourceDeps) (TableSource, error) {
	o, err := GetSource(file.MimeType)
	if err != nil {
		return nil, err
	}
	return o.Open(file, deps)
}

func init() {
	RegisterSource(XLSXMimeType, SourceOpenerFunc(func(file TableFile, deps SourceDeps) (TableSource, error) {
		if deps.Files == nil {
			return nil, fmt.Errorf("workbook %s: no file store", file.Name)
		}
		return NewWorkbookSource(deps.Files, file.ID), nil
	}))
	RegisterSource(SpreadsheetMimeType, SourceOpenerFunc(func(file TableFile, deps SourceDeps) (TableSource, error) {
		if deps.Sheets == nil {
			return nil, fmt.Errorf("spreadsheet %s: no sheets client", file.Name)
		}
		return NewSheetSource(deps.Sheets, file.ID, deps.SheetRange), nil
	}))
}
