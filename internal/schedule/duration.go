package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	// MinDuration is the shortest task duration in minutes.
	MinDuration = 15

	// DurationStep is the increment used when nudging a duration.
	DurationStep = 15

	// MinutesPerDay is the modulus for time-of-day arithmetic.
	MinutesPerDay = 24 * 60
)

// parseClock converts "HH:MM" (or "H:MM") into minutes since midnight.
func parseClock(hhmm string) (int, error) {
	h, m, ok := strings.Cut(strings.TrimSpace(hhmm), ":")
	if !ok {
		return 0, fmt.Errorf("invalid time %q: expected HH:MM", hhmm)
	}
	hour, err := strconv.Atoi(h)
	if err != nil || hour < 0 || hour > 23 {
		return 0, fmt.Errorf("invalid hour in %q", hhmm)
	}
	// Tolerate a trailing :SS.
	m, _, _ = strings.Cut(m, ":")
	minute, err := strconv.Atoi(m)
	if err != nil || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("invalid minute in %q", hhmm)
	}
	return hour*60 + minute, nil
}

func formatClock(total int) string {
	return pad2(total/60) + ":" + pad2(total%60)
}

// AddMinutes adds minutes to an HH:MM time of day, wrapping modulo one day.
// The result is always zero-padded HH:MM. Negative minutes wrap backwards.
func AddMinutes(hhmm string, minutes int) (string, error) {
	start, err := parseClock(hhmm)
	if err != nil {
		return "", err
	}
	total := (start + minutes) % MinutesPerDay
	if total < 0 {
		total += MinutesPerDay
	}
	return formatClock(total), nil
}

// DurationBetween returns the minutes from start to end. An end earlier than
// start is taken to fall on the next day, so the result is never negative.
func DurationBetween(start, end string) (int, error) {
	s, err := parseClock(start)
	if err != nil {
		return 0, err
	}
	e, err := parseClock(end)
	if err != nil {
		return 0, err
	}
	diff := e - s
	if diff < 0 {
		diff += MinutesPerDay
	}
	return diff, nil
}

// NudgeDuration moves current by steps increments of DurationStep, never
// going below MinDuration.
func NudgeDuration(current, steps int) int {
	next := current + steps*DurationStep
	if next < MinDuration {
		return MinDuration
	}
	return next
}

// ValidDuration reports whether minutes is an acceptable task duration.
func ValidDuration(minutes int) bool {
	return minutes >= MinDuration
}

// EndDateTime adds minutes to a backend start datetime and returns the end
// in BackendLayout, rolling the date forward past midnight.
func EndDateTime(start string, minutes int) (string, error) {
	date := ExtractDate(start)
	clock := ExtractTime(start)
	if date == "" || clock == "" {
		return "", fmt.Errorf("invalid start datetime %q", start)
	}
	t, err := time.Parse(DateLayout+" "+TimeLayout, date+" "+clock)
	if err != nil {
		return "", fmt.Errorf("parsing start datetime %q: %w", start, err)
	}
	return t.Add(time.Duration(minutes) * time.Minute).Format(BackendLayout), nil
}
