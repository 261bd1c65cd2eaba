package internal

import (
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/araddon/dateparse"
)

// numericDateLayouts are tried in order. There is no month-first layout:
// "03/04/2025" is the 3rd of April.
var numericDateLayouts = []string{
	"2-1-2006",
	"2/1/2006",
	"2.1.2006",
	"2006-1-2",
	"2006/1/2",
	"2006.1.2",
	"2-1-06",
	"2/1/06",
	"2.1.06",
	"20060102",
}

// timeSuffixes may follow any numeric date layout
var timeSuffixes = []string{
	"",
	" 15:04",
	" 15:04:05",
	" 15:04:05.999999999",
	"T15:04:05",
	"T15:04:05.999999999",
	"T15:04:05Z07:00",
	"T15:04:05.999999999Z07:00",
	" 15:04:05Z07:00",
}

// weekdayNames holds full and common short weekday names, lower case
var weekdayNames = func() map[string]bool {
	names := map[string]bool{"tues": true, "thur": true, "thurs": true}
	for d := time.Sunday; d <= time.Saturday; d++ {
		full := strings.ToLower(d.String())
		names[full] = true
		names[full[:3]] = true
	}
	return names
}()

var ordinalSuffix = regexp.MustCompile(`(?i)\b(\d{1,2})(?:st|nd|rd|th)\b`)

// Normalize converts a cell into a calendar date. It reports false for
// empty cells and for text that is not a date; it never fails otherwise.
func Normalize(c Cell) (Date, bool) {
	switch c.Kind {
	case CellDate:
		if c.Time.IsZero() {
			return Date{}, false
		}
		return DateOf(c.Time), true
	case CellText:
		return ParseDate(c.Text)
	}
	return Date{}, false
}

// ParseDate parses a date written in an unknown format, day first when the
// order is ambiguous. Any time of day is dropped.
func ParseDate(s string) (Date, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, false
	}

	s = trimWeekday(s)
	if d, ok := parseNumericDate(s); ok {
		return d, true
	}

	// Only worded dates ("5 March 2024", "3rd June 2024") reach the fuzzy
	// parser, so bare numbers never turn into dates.
	if !strings.ContainsFunc(s, unicode.IsLetter) {
		return Date{}, false
	}
	return parseWordedDate(ordinalSuffix.ReplaceAllString(s, "$1"))
}

func parseNumericDate(s string) (Date, bool) {
	for _, layout := range numericDateLayouts {
		for _, suffix := range timeSuffixes {
			if t, err := time.Parse(layout+suffix, s); err == nil {
				return DateOf(t), true
			}
		}
	}
	return Date{}, false
}

// trimWeekday drops a leading weekday name, so "Thu, 03/04/2025" and
// "Thursday 03-04-2025" parse like "03/04/2025".
func trimWeekday(s string) string {
	end := strings.IndexFunc(s, func(r rune) bool { return !unicode.IsLetter(r) })
	if end <= 0 || !weekdayNames[strings.ToLower(s[:end])] {
		return s
	}
	rest := strings.TrimLeft(s[end:], " ,.")
	if rest == "" {
		return s
	}
	return rest
}

func parseWordedDate(s string) (d Date, ok bool) {
	defer func() {
		if recover() != nil {
			d, ok = Date{}, false
		}
	}()

	t, err := dateparse.ParseAny(s, dateparse.PreferMonthFirst(false))
	if err != nil {
		return Date{}, false
	}
	return DateOf(t), true
}
