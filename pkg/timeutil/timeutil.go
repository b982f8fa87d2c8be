// Package timeutil provides the day arithmetic and timestamp parsing used by the
// admin console. Record ages are measured in whole elapsed 24h periods, not in
// calendar days, so the result does not depend on the viewer's timezone.
// No external dependencies - uses only standard library.
package timeutil

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Day is the length of one elapsed day.
const Day = 24 * time.Hour

// ElapsedDays returns floor((now - t) / 24h). Timestamps in the future yield
// negative values.
func ElapsedDays(t, now time.Time) int {
	return int(math.Floor(float64(now.Sub(t)) / float64(Day)))
}

// Common date/time formats.
const (
	// FormatDate is the standard date format (YYYY-MM-DD).
	FormatDate = "2006-01-02"
	// FormatHumanDate is a human-readable format.
	FormatHumanDate = "Jan 2, 2006"
)

// Layouts accepted for backend timestamps, tried in order.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.000Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	FormatDate,
}

// ErrUnparsableTimestamp is returned when no known layout matches.
var ErrUnparsableTimestamp = errors.New("unparsable timestamp")

// ParseTimestamp parses a backend timestamp. It accepts RFC3339 variants,
// bare dates, and unix epoch milliseconds.
func ParseTimestamp(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, ErrUnparsableTimestamp
	}

	if ms, err := strconv.ParseInt(value, 10, 64); err == nil {
		return time.UnixMilli(ms).UTC(), nil
	}

	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrUnparsableTimestamp, value)
}

// FormatHuman formats a time as "Jan 2, 2006", or "-" for the zero time.
func FormatHuman(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format(FormatHumanDate)
}

// FormatRelative returns a human-readable relative time string.
func FormatRelative(t, now time.Time) string {
	d := now.Sub(t)
	if d < 0 {
		return "in the future"
	}

	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%d min ago", int(d.Minutes()))
	case d < Day:
		return fmt.Sprintf("%d h ago", int(d.Hours()))
	case d < 2*Day:
		return "yesterday"
	case d < 30*Day:
		return fmt.Sprintf("%d days ago", int(d/Day))
	default:
		months := int(d / (30 * Day))
		if months < 12 {
			return fmt.Sprintf("%d mo ago", months)
		}
		return fmt.Sprintf("%d y ago", months/12)
	}
}
