package internal

import (
	"fmt"
	"time"
)

const (
	// DisplayLayout is the canonical written form of a date in the timesheet (DD-MM-YYYY)
	DisplayLayout = "02-01-2006"
	// ISOLayout is used for dashboard URLs and screenshot names
	ISOLayout = "2006-01-02"
)

// Date is a calendar date with no time of day and no location
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// NewDate returns the date, normalizing out-of-range values the way time.Date does
func NewDate(year int, month time.Month, day int) Date {
	return DateOf(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

// DateOf extracts the calendar date of t as seen in t's own location
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

func Today() Date {
	return DateOf(time.Now())
}

func (d Date) IsZero() bool {
	return d == Date{}
}

// Time returns midnight UTC of the date
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

func (d Date) String() string {
	return d.Time().Format(DisplayLayout)
}

func (d Date) ISO() string {
	return d.Time().Format(ISOLayout)
}

type CellKind int

const (
	CellEmpty CellKind = iota
	CellText
	CellDate
)

// Cell is one raw table value: empty, text, or a structured date/time
type Cell struct {
	Kind CellKind
	Text string
	Time time.Time // set for CellDate, may carry a time of day
}

func TextCell(s string) Cell {
	return Cell{Kind: CellText, Text: s}
}

func TimeCell(t time.Time) Cell {
	return Cell{Kind: CellDate, Time: t}
}

func DateCell(d Date) Cell {
	return TimeCell(d.Time())
}

// Equal compares kind and value; date cells compare by instant
func (c Cell) Equal(o Cell) bool {
	if c.Kind != o.Kind {
		return false
	}
	switch c.Kind {
	case CellText:
		return c.Text == o.Text
	case CellDate:
		return c.Time.Equal(o.Time)
	}
	return true
}

func (c Cell) String() string {
	switch c.Kind {
	case CellText:
		return c.Text
	case CellDate:
		return DateOf(c.Time).String()
	}
	return ""
}

// Row is an ordered list of cells. Missing trailing cells read as empty.
type Row []Cell

func (r Row) Cell(i int) Cell {
	if i < 0 || i >= len(r) {
		return Cell{}
	}
	return r[i]
}

// padded returns a copy of r with at least n cells
func (r Row) padded(n int) Row {
	size := max(len(r), n)
	out := make(Row, size)
	copy(out, r)
	return out
}

// Table is the timesheet for one run. Rows[0] is the header.
type Table struct {
	Rows []Row
}

// Entry holds the three values written for a day. They are kept verbatim.
type Entry struct {
	WorkingHours string `json:"working_hours"`
	Overtime     string `json:"overtime"`
	Note         string `json:"note"`
}

type Action string

const (
	ActionUpdated  Action = "updated"
	ActionAppended Action = "appended"
)

// Outcome tells whether reconciliation rewrote an existing row or added one.
// Row is the table index, header at 0.
type Outcome struct {
	Action Action `json:"action"`
	Row    int    `json:"row"`
}

func (o Outcome) String() string {
	switch o.Action {
	case ActionUpdated:
		return fmt.Sprintf("Updated(%d)", o.Row)
	case ActionAppended:
		return fmt.Sprintf("Appended(%d)", o.Row)
	}
	return "none"
}
