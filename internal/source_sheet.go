package internal

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
	"google.golang.org/api/sheets/v4"
)

// DefaultSheetRange covers date, owner, hours, overtime and note
const DefaultSheetRange = "Sheet1!A:E"

// SheetValues is the part of the Sheets API the timesheet needs
type SheetValues interface {
	Get(ctx context.Context, spreadsheetID, rng string) ([][]any, error)
	Update(ctx context.Context, spreadsheetID, rng string, values [][]any) error
}

type sheetsAPI struct {
	service *sheets.Service
}

func NewSheetsAPI(service *sheets.Service) SheetValues {
	return &sheetsAPI{service: service}
}

func (a *sheetsAPI) Get(ctx context.Context, spreadsheetID, rng string) ([][]any, error) {
	resp, err := a.service.Spreadsheets.Values.Get(spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve data from sheet: %w", err)
	}
	return resp.Values, nil
}

func (a *sheetsAPI) Update(ctx context.Context, spreadsheetID, rng string, values [][]any) error {
	_, err := a.service.Spreadsheets.Values.Update(
		spreadsheetID,
		rng,
		&sheets.ValueRange{Values: values},
	).ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("unable to write data to sheet: %w", err)
	}
	return nil
}

// SheetSource is a native spreadsheet read and written by range.
// Values come back formatted, so every cell is text. Writes only touch
// cells that differ from what was read, so formulas elsewhere survive.
type SheetSource struct {
	api           SheetValues
	spreadsheetID string
	rng           string
	read          []Row
}

func NewSheetSource(api SheetValues, spreadsheetID, rng string) *SheetSource {
	if rng == "" {
		rng = DefaultSheetRange
	}
	return &SheetSource{api: api, spreadsheetID: spreadsheetID, rng: rng}
}

func (s *SheetSource) ReadAll(ctx context.Context) ([]Row, error) {
	values, err := s.api.Get(ctx, s.spreadsheetID, s.rng)
	if err != nil {
		return nil, &SourceError{Op: "read", Err: err}
	}

	rows := make([]Row, len(values))
	for i, vals := range values {
		row := make(Row, len(vals))
		for j, v := range vals {
			row[j] = sheetCell(v)
		}
		rows[i] = row
	}
	s.read = cloneRows(rows)
	return rows, nil
}

func (s *SheetSource) WriteAll(ctx context.Context, rows []Row) error {
	sheet, col, top, err := rangeOrigin(s.rng)
	if err != nil {
		return &SourceError{Op: "write", Err: err}
	}

	for i, row := range rows {
		runs := []cellRun{{0, len(row)}}
		if i < len(s.read) {
			runs = changedRuns(s.read[i], row)
		} else if len(row) == 0 {
			continue
		}
		for _, run := range runs {
			axis, err := excelize.CoordinatesToCellName(col+run.start, top+i)
			if err != nil {
				return &SourceError{Op: "write", Err: err}
			}
			vals := make([]any, 0, run.end-run.start)
			for _, c := range row[run.start:run.end] {
				vals = append(vals, c.String())
			}
			if err := s.api.Update(ctx, s.spreadsheetID, sheet+axis, [][]any{vals}); err != nil {
				return &SourceError{Op: "write", Err: err}
			}
		}
	}
	s.read = cloneRows(rows)
	return nil
}

type cellRun struct {
	start, end int
}

// changedRuns returns the contiguous column spans of row whose text differs
// from prev
func changedRuns(prev, row Row) []cellRun {
	var runs []cellRun
	for j := range row {
		if row[j].String() == prev.Cell(j).String() {
			continue
		}
		if n := len(runs); n > 0 && runs[n-1].end == j {
			runs[n-1].end = j + 1
		} else {
			runs = append(runs, cellRun{j, j + 1})
		}
	}
	return runs
}

func sheetCell(v any) Cell {
	switch val := v.(type) {
	case nil:
		return Cell{}
	case string:
		if strings.TrimSpace(val) == "" {
			return Cell{}
		}
		return TextCell(val)
	case float64:
		return TextCell(strconv.FormatFloat(val, 'f', -1, 64))
	default:
		return TextCell(fmt.Sprint(val))
	}
}

// RangeStart returns the top-left cell of an A1 range,
// e.g. "Sheet1!A:E" -> "Sheet1!A1", "Sheet1!B3:E" -> "Sheet1!B3".
func RangeStart(rng string) string {
	sheet, cells := "", rng
	if i := strings.LastIndex(rng, "!"); i >= 0 {
		sheet, cells = rng[:i+1], rng[i+1:]
	}
	first, _, _ := strings.Cut(cells, ":")

	letters := strings.TrimRightFunc(first, func(r rune) bool { return r >= '0' && r <= '9' })
	digits := first[len(letters):]
	if letters == "" {
		letters = "A"
	}
	if digits == "" {
		digits = "1"
	}
	return sheet + letters + digits
}

// rangeOrigin splits the top-left cell of an A1 range into its sheet
// prefix (including the "!"), 1-based column and 1-based row.
func rangeOrigin(rng string) (sheet string, col, row int, err error) {
	start := RangeStart(rng)
	cell := start
	if i := strings.LastIndex(start, "!"); i >= 0 {
		sheet, cell = start[:i+1], start[i+1:]
	}
	col, row, err = excelize.CellNameToCoordinates(cell)
	if err != nil {
		return "", 0, 0, fmt.Errorf("invalid sheet range %q: %w", rng, err)
	}
	return sheet, col, row, nil
}
