// Package schedule converts between the date and time values edited in the
// UI and the combined datetime strings the mile-do API stores, and keeps a
// start/end pair consistent with a duration.
//
// Three string shapes are involved:
//
//	YYYY-MM-DD           date input
//	HH:MM                time input
//	YYYY-MM-DD HH:MM:SS  backend datetime (or SentinelDateTime)
//
// Backend strings may use either ' ' or 'T' between the date and time.
package schedule

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	// SentinelDateTime is the backend value meaning "no schedule assigned".
	SentinelDateTime = "0001-01-01 00:00:00"

	// SentinelYear prefixes every date the backend uses as "unscheduled".
	SentinelYear = "0001"

	// DefaultTime is the start time assumed when a date has no time.
	DefaultTime = "09:00"

	// DefaultBackendTime is DefaultTime in backend HH:MM:SS form.
	DefaultBackendTime = "09:00:00"

	DateLayout    = "2006-01-02"
	TimeLayout    = "15:04"
	BackendLayout = "2006-01-02 15:04:05"

	defaultHour = "09"
	zeroField   = "00"
)

var timeOfDayPattern = regexp.MustCompile(`(\d{2}):(\d{2}):(\d{2})`)

// Combine joins a date and an optional time into a backend datetime string.
// An empty or whitespace date returns ok=false: the caller must not schedule.
// An omitted or malformed time falls back to DefaultBackendTime.
func Combine(date, timeStr string) (string, bool) {
	date = strings.TrimSpace(date)
	if date == "" {
		return "", false
	}
	return date + " " + normalizeTime(timeStr), true
}

// normalizeTime pads each H[:M[:S]] component to two digits, filling
// missing minutes and seconds with "00" and a missing hour with "09".
func normalizeTime(timeStr string) string {
	timeStr = strings.TrimSpace(timeStr)
	if timeStr == "" {
		return DefaultBackendTime
	}

	parts := strings.Split(timeStr, ":")
	if len(parts) > 3 {
		return DefaultBackendTime
	}

	fields := [3]string{defaultHour, zeroField, zeroField}
	limits := [3]int{23, 59, 59}
	for i, p := range parts {
		if p == "" {
			continue
		}
		if len(p) > 2 {
			return DefaultBackendTime
		}
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 || n > limits[i] {
			return DefaultBackendTime
		}
		fields[i] = pad2(n)
	}

	return fields[0] + ":" + fields[1] + ":" + fields[2]
}

// ExtractDate returns the YYYY-MM-DD portion of a backend datetime, or ""
// when the value is empty or carries the sentinel year.
func ExtractDate(backend string) string {
	if backend == "" {
		return ""
	}
	datePart := splitDateTime(backend)[0]
	if strings.HasPrefix(datePart, SentinelYear) {
		return ""
	}
	return datePart
}

// ExtractTime returns the HH:MM portion of a backend datetime, or "" when
// there is no time portion or it does not contain HH:MM:SS.
func ExtractTime(backend string) string {
	parts := splitDateTime(backend)
	if len(parts) < 2 {
		return ""
	}
	match := timeOfDayPattern.FindStringSubmatch(parts[1])
	if match == nil {
		return ""
	}
	return match[1] + ":" + match[2]
}

// IsSchedulable reports whether date can be used to schedule a task.
func IsSchedulable(date string) bool {
	date = strings.TrimSpace(date)
	return date != "" && !strings.HasPrefix(date, SentinelYear)
}

// IsUnscheduled reports whether a backend datetime means "no schedule".
func IsUnscheduled(backend string) bool {
	return ExtractDate(backend) == ""
}

// FormatDisplayDate renders a backend datetime as a short label such as
// "May 1". Unscheduled or unparseable values render as "".
func FormatDisplayDate(backend string) string {
	date := ExtractDate(backend)
	if date == "" {
		return ""
	}
	t, err := time.Parse(DateLayout, date)
	if err != nil {
		return ""
	}
	return t.Format("Jan 2")
}

// Today returns now's local calendar date as YYYY-MM-DD.
func Today(now time.Time) string {
	return now.Format(DateLayout)
}

// splitDateTime splits on both ' ' and 'T', dropping empty fields.
func splitDateTime(s string) []string {
	parts := strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == 'T'
	})
	if len(parts) == 0 {
		return []string{""}
	}
	return parts
}

func pad2(n int) string {
	if n < 10 {
		return "0" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}
