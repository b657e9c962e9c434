package domain

import (
	"fmt"
	"time"
)

const dateKeyLayout = "2006-01-02"

// FormatDateKey renders t as the canonical zero-padded "YYYY-MM-DD" key.
func FormatDateKey(t time.Time) string {
	return t.Format(dateKeyLayout)
}

// ParseDateKey parses a canonical date key. Keys that are not zero-padded or
// do not name a real calendar day are rejected.
func ParseDateKey(key string) (time.Time, error) {
	t, err := time.Parse(dateKeyLayout, key)
	if err != nil {
		return time.Time{}, err
	}
	if FormatDateKey(t) != key {
		return time.Time{}, fmt.Errorf("non-canonical date key %q", key)
	}
	return t, nil
}

// Midnight truncates t to the start of its calendar day, keeping the
// location.
func Midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
