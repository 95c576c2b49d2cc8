package core

import (
	"fmt"
	"strings"
	"time"
)

// StoredDateLayout is the canonical ISO-8601 instant written to the store.
const StoredDateLayout = "2006-01-02T15:04:05.000Z07:00"

// FormatDate renders t as a UTC instant with millisecond precision.
func FormatDate(t time.Time) string {
	return t.UTC().Format(StoredDateLayout)
}

// ParseDate accepts an RFC 3339 instant or a YYYY-MM-DD calendar date.
// Instants are returned in local time so calendar comparisons use wall-clock
// terms; calendar dates are midnight local time.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, missing(FieldDate)
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.Local(), nil
	}
	if t, err := time.ParseInLocation(time.DateOnly, s, time.Local); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
}
