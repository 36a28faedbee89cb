package term

import "time"

// Support years begin on March 12.
const (
	supportMonth = time.March
	supportDay   = 12
)

// Window holds the ongoing and previous support-term boundaries in milliseconds.
type Window struct {
	BeginOngoing  int64
	EndOngoing    int64
	BeginPrevious int64
	EndPrevious   int64
}

// OngoingStart returns the ongoing term start as time.
func (w Window) OngoingStart() time.Time { return FromMillis(w.BeginOngoing) }

// OngoingEnd returns the ongoing term end as time.
func (w Window) OngoingEnd() time.Time { return FromMillis(w.EndOngoing) }

// PreviousStart returns the previous term start as time.
func (w Window) PreviousStart() time.Time { return FromMillis(w.BeginPrevious) }

// PreviousEnd returns the previous term end as time.
func (w Window) PreviousEnd() time.Time { return FromMillis(w.EndPrevious) }

// SupportYearStart returns March 12 00:00 UTC of the support year containing now.
func SupportYearStart(now time.Time) time.Time {
	now = now.UTC()
	start := time.Date(now.Year(), supportMonth, supportDay, 0, 0, 0, 0, time.UTC)
	if now.Before(start) {
		return start.AddDate(-1, 0, 0)
	}
	return start
}

// SupportYearDate places month/day into the support year that begins on
// March 12 of startYear: March 12 to December 31 fall in startYear, January 1
// to March 11 in the following year. ok is false when the day does not exist
// there (February 29 outside leap years).
func SupportYearDate(startYear int, month time.Month, day int) (time.Time, bool) {
	year := startYear
	if month < supportMonth || (month == supportMonth && day < supportDay) {
		year++
	}
	date := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if date.Month() != month {
		return time.Time{}, false
	}
	return date, true
}

// SupportYearStartMillis is SupportYearStart as a millisecond timestamp.
func SupportYearStartMillis(now time.Time) int64 {
	return Millis(SupportYearStart(now))
}

// Boundaries computes the ongoing and previous support-term windows.
func Boundaries(now time.Time) Window {
	beginOngoing := SupportYearStart(now)
	return Window{
		BeginOngoing:  Millis(beginOngoing),
		EndOngoing:    Millis(Day(now)),
		BeginPrevious: Millis(beginOngoing.AddDate(-1, 0, 0)),
		EndPrevious:   Millis(beginOngoing.AddDate(0, 0, -1)),
	}
}

// SupportWeekStart returns March 12 00:00 UTC while now falls on March 12..18,
// otherwise exactly seven days before now with the time of day kept.
func SupportWeekStart(now time.Time) int64 {
	now = now.UTC()
	if now.Month() == supportMonth && now.Day() > supportDay-1 && now.Day() < supportDay+7 {
		return Millis(time.Date(now.Year(), supportMonth, supportDay, 0, 0, 0, 0, time.UTC))
	}
	return Millis(now.AddDate(0, 0, -7))
}

// DayBack returns now minus one day in milliseconds.
func DayBack(now time.Time) int64 {
	return Millis(now.UTC().AddDate(0, 0, -1))
}

// WeekBack returns now minus seven days in milliseconds.
func WeekBack(now time.Time) int64 {
	return Millis(now.UTC().AddDate(0, 0, -7))
}

// Day truncates t to 00:00 UTC of its calendar day.
func Day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// After reports whether day a is strictly after day b, ignoring time of day.
func After(a, b time.Time) bool {
	return Day(a).After(Day(b))
}

// Millis converts t to a Unix millisecond timestamp.
func Millis(t time.Time) int64 { return t.UnixMilli() }

// FromMillis converts a Unix millisecond timestamp to UTC time.
func FromMillis(ms int64) time.Time { return time.UnixMilli(ms).UTC() }
