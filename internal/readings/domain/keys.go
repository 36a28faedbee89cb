package readings

import (
	"strings"
	"time"
)

const (
	// TimestampLayout is the zero-padded layout of reading keys; it sorts chronologically.
	TimestampLayout = "2006-01-02 15:04:05"
	// DayLayout is the layout of the day part of reading and memo keys.
	DayLayout = "2006-01-02"

	firstSuffix = "_first"
	lastSuffix  = "_last"
	separator   = "_"
)

// ReadingKey builds "{meter}_{YYYY-MM-DD HH:MM:SS}" for a raw cache entry.
func ReadingKey(meterID string, ts time.Time) string {
	return meterID + separator + ts.UTC().Format(TimestampLayout)
}

// MeterPrefix matches every key of a meter.
func MeterPrefix(meterID string) string {
	return meterID + separator
}

// DayPrefix matches every key of a meter on one UTC day.
func DayPrefix(meterID string, day time.Time) string {
	return meterID + separator + day.UTC().Format(DayLayout)
}

// FirstMemoKey is the memo key holding the first reading of a day.
func FirstMemoKey(meterID string, day time.Time) string {
	return DayPrefix(meterID, day) + firstSuffix
}

// LastMemoKey is the memo key holding the last reading of a day.
func LastMemoKey(meterID string, day time.Time) string {
	return DayPrefix(meterID, day) + lastSuffix
}

// IsMemoKey reports whether key is a derived first/last memo key.
func IsMemoKey(key string) bool {
	return strings.HasSuffix(key, firstSuffix) || strings.HasSuffix(key, lastSuffix)
}

// ParseReadingKey splits a raw entry key into meter id and timestamp.
func ParseReadingKey(key string) (string, time.Time, error) {
	if IsMemoKey(key) || len(key) <= len(TimestampLayout)+1 {
		return "", time.Time{}, ErrInvalidKey
	}
	split := len(key) - len(TimestampLayout)
	if key[split-1:split] != separator {
		return "", time.Time{}, ErrInvalidKey
	}
	ts, err := time.ParseInLocation(TimestampLayout, key[split:], time.UTC)
	if err != nil {
		return "", time.Time{}, ErrInvalidKey
	}
	return key[:split-1], ts, nil
}
