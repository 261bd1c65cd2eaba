package internal

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// builtinDateFormats are the built-in number format ids that display dates
var builtinDateFormats = map[int]bool{
	14: true, 15: true, 16: true, 17: true, 22: true,
	27: true, 28: true, 29: true, 30: true, 31: true, 32: true, 33: true, 34: true, 35: true, 36: true,
	50: true, 51: true, 52: true, 53: true, 54: true, 55: true, 56: true, 57: true, 58: true,
}

// WorkbookSource is an .xlsx file in cloud storage. The active sheet is
// the table. The file is downloaded on read and replaced on write.
type WorkbookSource struct {
	files  FileStore
	fileID string

	book  *excelize.File
	sheet string
	read  []Row
}

func NewWorkbookSource(files FileStore, fileID string) *WorkbookSource {
	return &WorkbookSource{files: files, fileID: fileID}
}

func (s *WorkbookSource) ReadAll(ctx context.Context) ([]Row, error) {
	data, err := s.files.Download(ctx, s.fileID)
	if err != nil {
		return nil, &SourceError{Op: "read", Err: fmt.Errorf("downloading workbook: %w", err)}
	}

	book, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, &SourceError{Op: "read", Err: fmt.Errorf("opening workbook: %w", err)}
	}

	sheet := book.GetSheetName(book.GetActiveSheetIndex())
	if sheet == "" {
		book.Close()
		return nil, &SourceError{Op: "read", Err: fmt.Errorf("no sheets found in workbook")}
	}

	rows, err := ReadWorkbook(book, sheet)
	if err != nil {
		book.Close()
		return nil, &SourceError{Op: "read", Err: err}
	}

	if s.book != nil {
		s.book.Close()
	}
	s.book, s.sheet, s.read = book, sheet, cloneRows(rows)
	return rows, nil
}

func (s *WorkbookSource) WriteAll(ctx context.Context, rows []Row) error {
	if s.book == nil {
		return &SourceError{Op: "write", Err: fmt.Errorf("workbook was not read before writing")}
	}
	defer func() {
		s.book.Close()
		s.book = nil
	}()

	if err := WriteWorkbook(s.book, s.sheet, rows, s.read); err != nil {
		return &SourceError{Op: "write", Err: err}
	}

	buf, err := s.book.WriteToBuffer()
	if err != nil {
		return &SourceError{Op: "write", Err: fmt.Errorf("encoding workbook: %w", err)}
	}

	if err := s.files.ReplaceContent(ctx, s.fileID, buf.Bytes(), XLSXMimeType); err != nil {
		return &SourceError{Op: "write", Err: fmt.Errorf("uploading workbook: %w", err)}
	}
	return nil
}

// ReadWorkbook returns every row of sheet. Numeric cells with a date
// number format and cells stored as dates become date cells; all other
// values are kept as their raw text.
func ReadWorkbook(book *excelize.File, sheet string) ([]Row, error) {
	raw, err := book.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("reading sheet %s: %w", sheet, err)
	}

	date1904 := false
	if props, err := book.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		date1904 = *props.Date1904
	}

	rows := make([]Row, len(raw))
	for r, values := range raw {
		row := make(Row, len(values))
		for c, v := range values {
			if strings.TrimSpace(v) == "" {
				continue
			}
			axis, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return nil, err
			}
			if t, ok := workbookTime(book, sheet, axis, v, date1904); ok {
				row[c] = TimeCell(t)
				continue
			}
			row[c] = TextCell(v)
		}
		rows[r] = row
	}
	return rows, nil
}

// WriteWorkbook makes sheet hold exactly rows. Cells equal to the ones in
// prev (what was read) are not touched so their type and style survive.
// Rows past the end of rows are removed.
func WriteWorkbook(book *excelize.File, sheet string, rows, prev []Row) error {
	for r, row := range rows {
		var before Row
		if r < len(prev) {
			before = prev[r]
		}
		width := max(len(row), len(before))
		for c := 0; c < width; c++ {
			cell := row.Cell(c)
			if c < len(before) && c < len(row) && cell.Equal(before[c]) {
				continue
			}
			if cell.Kind == CellEmpty && before.Cell(c).Kind == CellEmpty {
				continue
			}
			axis, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return err
			}
			if err := book.SetCellValue(sheet, axis, workbookValue(cell)); err != nil {
				return fmt.Errorf("writing %s: %w", axis, err)
			}
		}
	}

	for r := len(prev); r > len(rows); r-- {
		if err := book.RemoveRow(sheet, r); err != nil {
			return fmt.Errorf("removing row %d: %w", r, err)
		}
	}
	return nil
}

func workbookValue(c Cell) any {
	switch c.Kind {
	case CellText:
		return c.Text
	case CellDate:
		return c.Time
	}
	return nil
}

func workbookTime(book *excelize.File, sheet, axis, raw string, date1904 bool) (time.Time, bool) {
	typ, err := book.GetCellType(sheet, axis)
	if err != nil {
		return time.Time{}, false
	}

	if typ == excelize.CellTypeDate {
		for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"} {
			if t, err := time.Parse(layout, raw); err == nil {
				return t, true
			}
		}
		return time.Time{}, false
	}

	serial, err := strconv.ParseFloat(raw, 64)
	if err != nil || serial <= 0 || !hasDateFormat(book, sheet, axis) {
		return time.Time{}, false
	}
	t, err := excelize.ExcelDateToTime(serial, date1904)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func hasDateFormat(book *excelize.File, sheet, axis string) bool {
	idx, err := book.GetCellStyle(sheet, axis)
	if err != nil || idx == 0 {
		return false
	}
	style, err := book.GetStyle(idx)
	if err != nil || style == nil {
		return false
	}
	if style.CustomNumFmt != nil {
		return IsDateFormatCode(*style.CustomNumFmt)
	}
	return builtinDateFormats[style.NumFmt]
}

// IsDateFormatCode reports whether a custom number format shows a date.
// Quoted literals and bracketed sections are ignored; a day or year token
// must be present so time-only formats like "h:mm" do not count.
func IsDateFormatCode(code string) bool {
	var b strings.Builder
	inQuote, inBracket := false, false
	for _, r := range code {
		switch {
		case r == '"':
			inQuote = !inQuote
		case inQuote:
		case r == '[':
			inBracket = true
		case r == ']':
			inBracket = false
		case inBracket:
		default:
			b.WriteRune(r)
		}
	}
	lower := strings.ToLower(b.String())
	return strings.ContainsAny(lower, "dy")
}

func cloneRows(rows []Row) []Row {
	out := make([]Row, len(rows))
	for i, r := range rows {
		out[i] = append(Row(nil), r...)
	}
	return out
}
