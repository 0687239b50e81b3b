// Package timeresolve turns caller-supplied date and time strings into the
// ISO datetimes and day windows the calendar service expects.
package timeresolve

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// ISOLayout is the local datetime format sent to Graph (no offset, no fraction).
const ISOLayout = "2006-01-02T15:04:05"

// DateLayout is the canonical calendar date format.
const DateLayout = "2006-01-02"

// windowLayout renders a day window bound with its numeric offset; the fraction
// is dropped when zero so midnight reads as 00:00:00+hh:mm.
const windowLayout = "2006-01-02T15:04:05.999999-07:00"

// dateLayouts are tried in order; the first that parses wins.
var dateLayouts = []string{
	"2006-1-2", // ISO YYYY-MM-DD
	"1/2/2006", // MM/DD/YYYY
	"1-2-2006", // MM-DD-YYYY
}

var timeLayouts = []string{
	"15:04",
	"15:04:05",
	"15",
	"3:04PM",
	"3:04 PM",
	"3PM",
	"3 PM",
	"3:04:05PM",
	"3:04:05 PM",
}

var (
	oclockRe   = regexp.MustCompile(`(?i)\bo'clock\b`)
	meridiemRe = regexp.MustCompile(`(?i)([ap])\.?\s?m\.?$`)
)

// TimeFormatError reports a date or time string that could not be parsed.
// It always carries the raw inputs so callers can see what was rejected.
type TimeFormatError struct {
	Date   string
	Time   string
	Reason string
}

func (e *TimeFormatError) Error() string {
	return fmt.Sprintf("invalid time or date format: time %q, date %q: %s", e.Time, e.Date, e.Reason)
}

// ParseTime combines a date and a loose time of day into YYYY-MM-DDTHH:MM:SS
// with seconds zeroed.
func ParseTime(date, timeStr string) (string, error) {
	hour, minute, err := parseClock(timeStr)
	if err != nil {
		return "", &TimeFormatError{Date: date, Time: timeStr, Reason: err.Error()}
	}

	day, err := ParseDate(date)
	if err != nil {
		return "", &TimeFormatError{Date: date, Time: timeStr, Reason: "date format not supported"}
	}

	combined := time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, time.UTC)
	return combined.Format(ISOLayout), nil
}

// ParseDate parses a calendar date using the accepted layouts in order.
func ParseDate(date string) (time.Time, error) {
	date = strings.TrimSpace(date)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, date); err == nil {
			return t, nil
		}
	}
	return time.Time{}, &TimeFormatError{Date: date, Reason: "date format not supported"}
}

// NormalizeDate re-renders a date accepted by ParseDate as YYYY-MM-DD.
func NormalizeDate(date string) (string, error) {
	t, err := ParseDate(date)
	if err != nil {
		return "", err
	}
	return t.Format(DateLayout), nil
}

func parseClock(timeStr string) (hour, minute int, err error) {
	s := oclockRe.ReplaceAllString(timeStr, "")
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, 0, fmt.Errorf("empty time")
	}
	s = meridiemRe.ReplaceAllStringFunc(s, func(m string) string {
		if strings.HasPrefix(strings.ToLower(strings.TrimSpace(m)), "a") {
			return "AM"
		}
		return "PM"
	})
	s = strings.ToUpper(s)

	for _, layout := range timeLayouts {
		if t, perr := time.Parse(layout, s); perr == nil {
			return t.Hour(), t.Minute(), nil
		}
	}
	return 0, 0, fmt.Errorf("unrecognized time %q", s)
}

// DayWindow returns the first and last representable instants of date in the
// given timezone as offset-qualified ISO strings. Both bounds are localized
// independently, so on daylight-saving days their offsets differ.
func DayWindow(timezone, date string) (string, string, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return "", "", &TimeFormatError{Date: date, Reason: fmt.Sprintf("unknown timezone %q", timezone)}
	}
	day, err := ParseDate(date)
	if err != nil {
		return "", "", err
	}

	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, loc)
	end := time.Date(day.Year(), day.Month(), day.Day(), 23, 59, 59, 999999000, loc)
	return start.Format(windowLayout), end.Format(windowLayout), nil
}

// CleanTitle strips the zero-width characters some chat clients inject into titles.
func CleanTitle(title string) string {
	return strings.NewReplacer("\u200b", "", "\u200c", "", "\u200d", "").Replace(title)
}
