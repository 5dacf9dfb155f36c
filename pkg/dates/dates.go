// Package dates converts between the editable "MM/DD/YYYY HH:mm" form
// shown in edit fields and a time.Time. The read-only display rendering
// lives here too but is one-directional and intentionally separate.
package dates

import (
	"errors"
	"regexp"
	"strconv"
	"time"
)

// ErrInvalid reports a string that is not a well-formed, possible
// calendar date in the editable format.
var ErrInvalid = errors.New("invalid date")

var editablePattern = regexp.MustCompile(`^(\d{2})/(\d{2})/(\d{4}) (\d{2}):(\d{2})$`)

// Encode renders the local calendar fields of t as "MM/DD/YYYY HH:mm",
// zero-padded, 24-hour clock.
func Encode(t time.Time) string {
	return t.Local().Format("01/02/2006 15:04")
}

// Decode parses an editable date string back into a time.Time in the
// local zone. Beyond the strict pattern and field ranges, the parsed
// fields are compared against the constructed date so impossible
// combinations like 02/30 are rejected instead of rolling over into the
// next month.
func Decode(s string) (time.Time, error) {
	match := editablePattern.FindStringSubmatch(s)
	if match == nil {
		return time.Time{}, ErrInvalid
	}

	month, _ := strconv.Atoi(match[1])
	day, _ := strconv.Atoi(match[2])
	year, _ := strconv.Atoi(match[3])
	hour, _ := strconv.Atoi(match[4])
	minute, _ := strconv.Atoi(match[5])

	if month < 1 || month > 12 || day < 1 || day > 31 || hour > 23 || minute > 59 {
		return time.Time{}, ErrInvalid
	}

	t := time.Date(year, time.Month(month), day, hour, minute, 0, 0, time.Local)
	if int(t.Month()) != month || t.Day() != day {
		return time.Time{}, ErrInvalid
	}
	return t, nil
}

// Valid reports whether s decodes cleanly.
func Valid(s string) bool {
	_, err := Decode(s)
	return err == nil
}

// FormatDisplay renders t for read-only views, e.g. "Mar 05, 2025 10:30".
func FormatDisplay(t time.Time) string {
	return t.Local().Format("Jan 02, 2006 15:04")
}
