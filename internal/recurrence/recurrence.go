// Package recurrence builds the pattern and range objects attached to a
// recurring calendar event, and maps them onto RFC 5545 rules for previews.
package recurrence

import (
	"fmt"
	"strings"
	"time"

	"github.com/teambition/rrule-go"

	"graphcal/internal/models"
	"graphcal/internal/timeresolve"
)

// InvalidRecurrenceError reports recurrence parameters that cannot form a pattern.
type InvalidRecurrenceError struct {
	Type   string
	Reason string
}

func (e *InvalidRecurrenceError) Error() string {
	return fmt.Sprintf("invalid %s recurrence: %s", e.Type, e.Reason)
}

// InvalidTimeRangeError reports an end datetime that does not follow its start.
type InvalidTimeRangeError struct {
	Start string
	End   string
}

func (e *InvalidTimeRangeError) Error() string {
	return fmt.Sprintf("invalid time range: end %s is not after start %s", e.End, e.Start)
}

var weekdays = map[string]rrule.Weekday{
	"Monday":    rrule.MO,
	"Tuesday":   rrule.TU,
	"Wednesday": rrule.WE,
	"Thursday":  rrule.TH,
	"Friday":    rrule.FR,
	"Saturday":  rrule.SA,
	"Sunday":    rrule.SU,
}

// Params is the simplified recurrence description callers supply.
type Params struct {
	Type       string
	Interval   int
	DaysOfWeek []string
	DayOfMonth int
	Month      int
	StartDate  string
	EndDate    string
}

// Build combines BuildPattern and BuildRange.
func Build(p Params) (models.PatternedRecurrence, error) {
	pattern, err := BuildPattern(p.Type, p.Interval, p.DaysOfWeek, p.DayOfMonth, p.Month)
	if err != nil {
		return models.PatternedRecurrence{}, err
	}
	return models.PatternedRecurrence{
		Pattern: pattern,
		Range:   BuildRange(p.StartDate, p.EndDate),
	}, nil
}

// BuildPattern validates the fields required by patternType and drops the
// ones that do not apply to it. Zero dayOfMonth or month means absent.
// Day and month are range checked independently; 31 February is accepted.
func BuildPattern(patternType string, interval int, daysOfWeek []string, dayOfMonth, month int) (models.RecurrencePattern, error) {
	if interval < 1 {
		interval = 1
	}
	pattern := models.RecurrencePattern{Type: patternType, Interval: interval}

	switch patternType {
	case models.PatternDaily:
	case models.PatternWeekly:
		if len(daysOfWeek) == 0 {
			return pattern, &InvalidRecurrenceError{Type: patternType, Reason: "daysOfWeek is required"}
		}
		days := make([]string, 0, len(daysOfWeek))
		for _, d := range daysOfWeek {
			name := capitalize(d)
			if _, ok := weekdays[name]; !ok {
				return pattern, &InvalidRecurrenceError{Type: patternType, Reason: fmt.Sprintf("unknown weekday %q", d)}
			}
			days = append(days, name)
		}
		pattern.DaysOfWeek = days
	case models.PatternAbsoluteMonthly:
		if err := checkDay(patternType, dayOfMonth); err != nil {
			return pattern, err
		}
		pattern.DayOfMonth = dayOfMonth
	case models.PatternAbsoluteYearly:
		if err := checkDay(patternType, dayOfMonth); err != nil {
			return pattern, err
		}
		if month < 1 || month > 12 {
			return pattern, &InvalidRecurrenceError{Type: patternType, Reason: fmt.Sprintf("month %d is not in [1,12]", month)}
		}
		pattern.DayOfMonth = dayOfMonth
		pattern.Month = month
	default:
		return pattern, &InvalidRecurrenceError{Type: patternType, Reason: "unsupported pattern type"}
	}
	return pattern, nil
}

func checkDay(patternType string, day int) error {
	if day < 1 || day > 31 {
		return &InvalidRecurrenceError{Type: patternType, Reason: fmt.Sprintf("dayOfMonth %d is not in [1,31]", day)}
	}
	return nil
}

// BuildRange passes the dates through unchanged. Ordering is left to the
// caller and ultimately to the calendar service.
func BuildRange(startDate, endDate string) models.RecurrenceRange {
	return models.RecurrenceRange{
		Type:      models.RangeEndDate,
		StartDate: startDate,
		EndDate:   endDate,
	}
}

// ValidateTimeRange checks that two local ISO datetimes form a non-empty range.
func ValidateTimeRange(startISO, endISO string) error {
	start, err := time.Parse(timeresolve.ISOLayout, startISO)
	if err != nil {
		return &timeresolve.TimeFormatError{Time: startISO, Reason: "not an ISO datetime"}
	}
	end, err := time.Parse(timeresolve.ISOLayout, endISO)
	if err != nil {
		return &timeresolve.TimeFormatError{Time: endISO, Reason: "not an ISO datetime"}
	}
	if !end.After(start) {
		return &InvalidTimeRangeError{Start: startISO, End: endISO}
	}
	return nil
}

// ToRRule maps a recurrence onto an RFC 5545 rule anchored at dtstart. An
// endDate range is inclusive through the end of that day in dtstart's zone;
// other range types leave the rule open.
func ToRRule(rec models.PatternedRecurrence, dtstart time.Time) (*rrule.RRule, error) {
	opt := rrule.ROption{
		Interval: rec.Pattern.Interval,
		Dtstart:  dtstart,
	}

	switch rec.Pattern.Type {
	case models.PatternDaily:
		opt.Freq = rrule.DAILY
	case models.PatternWeekly:
		opt.Freq = rrule.WEEKLY
		for _, d := range rec.Pattern.DaysOfWeek {
			wd, ok := weekdays[capitalize(d)]
			if !ok {
				return nil, &InvalidRecurrenceError{Type: rec.Pattern.Type, Reason: fmt.Sprintf("unknown weekday %q", d)}
			}
			opt.Byweekday = append(opt.Byweekday, wd)
		}
	case models.PatternAbsoluteMonthly:
		opt.Freq = rrule.MONTHLY
		opt.Bymonthday = []int{rec.Pattern.DayOfMonth}
	case models.PatternAbsoluteYearly:
		opt.Freq = rrule.YEARLY
		opt.Bymonth = []int{rec.Pattern.Month}
		opt.Bymonthday = []int{rec.Pattern.DayOfMonth}
	default:
		return nil, &InvalidRecurrenceError{Type: rec.Pattern.Type, Reason: "unsupported pattern type"}
	}

	if rec.Range.Type == models.RangeEndDate && rec.Range.EndDate != "" {
		end, err := timeresolve.ParseDate(rec.Range.EndDate)
		if err != nil {
			return nil, err
		}
		opt.Until = time.Date(end.Year(), end.Month(), end.Day(), 23, 59, 59, 0, dtstart.Location())
	}

	r, err := rrule.NewRRule(opt)
	if err != nil {
		return nil, fmt.Errorf("failed to build rrule: %w", err)
	}
	return r, nil
}

// Preview returns up to n occurrences of rec starting at dtstart.
func Preview(rec models.PatternedRecurrence, dtstart time.Time, n int) ([]time.Time, error) {
	r, err := ToRRule(rec, dtstart)
	if err != nil {
		return nil, err
	}

	var out []time.Time
	next := r.Iterator()
	for len(out) < n {
		t, ok := next()
		if !ok {
			break
		}
		out = append(out, t)
	}
	return out, nil
}

func capitalize(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}
