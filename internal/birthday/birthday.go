// Package birthday computes the dates behind a yearly birthday reminder series.
package birthday

import (
	"errors"
	"fmt"
	"time"

	"graphcal/internal/timeresolve"
)

// ErrNoSuchDay is returned when a birthday's month and day do not exist in
// the target year (29 February outside a leap year).
var ErrNoSuchDay = errors.New("birthday does not occur in target year")

const (
	// leadDays is how far before the first reminder the series starts.
	leadDays = 15
	// defaultSpanYears bounds a series when the caller gives no end date.
	defaultSpanYears = 5

	ReminderStartTime = "00:00"
	ReminderEndTime   = "00:15"
)

// Plan is everything needed to create a yearly reminder series.
type Plan struct {
	Occurrence time.Time
	Day        int
	Month      int
	StartDate  string
	EndDate    string
	StartTime  string
	EndTime    string
}

// NextOccurrence returns the next midnight on birthdate's month and day in
// now's location. A candidate strictly before now moves to the following year.
func NextOccurrence(birthdate, now time.Time) (time.Time, error) {
	next, err := onYear(birthdate, now.Year(), now.Location())
	if err != nil {
		return time.Time{}, err
	}
	if next.Before(now) {
		return onYear(birthdate, now.Year()+1, now.Location())
	}
	return next, nil
}

func onYear(birthdate time.Time, year int, loc *time.Location) (time.Time, error) {
	t := time.Date(year, birthdate.Month(), birthdate.Day(), 0, 0, 0, 0, loc)
	if t.Month() != birthdate.Month() || t.Day() != birthdate.Day() {
		return time.Time{}, fmt.Errorf("%w: %s %d in %d", ErrNoSuchDay, birthdate.Month(), birthdate.Day(), year)
	}
	return t, nil
}

// OffsetMonthDay returns the day and month daysPrior days before occurrence.
func OffsetMonthDay(occurrence time.Time, daysPrior int) (day, month int) {
	t := occurrence.AddDate(0, 0, -daysPrior)
	return t.Day(), int(t.Month())
}

// NewPlan builds the reminder plan for birthdate as seen at now. An empty
// endDate defaults to the same calendar day five years from now.
func NewPlan(birthdate, now time.Time, daysPrior int, endDate string) (Plan, error) {
	if daysPrior < 0 {
		return Plan{}, fmt.Errorf("days prior must not be negative, got %d", daysPrior)
	}
	occurrence, err := NextOccurrence(birthdate, now)
	if err != nil {
		return Plan{}, err
	}
	day, month := OffsetMonthDay(occurrence, daysPrior)

	if endDate == "" {
		endDate = now.AddDate(defaultSpanYears, 0, 0).Format(timeresolve.DateLayout)
	} else if endDate, err = timeresolve.NormalizeDate(endDate); err != nil {
		return Plan{}, err
	}

	return Plan{
		Occurrence: occurrence,
		Day:        day,
		Month:      month,
		StartDate:  occurrence.AddDate(0, 0, -daysPrior-leadDays).Format(timeresolve.DateLayout),
		EndDate:    endDate,
		StartTime:  ReminderStartTime,
		EndTime:    ReminderEndTime,
	}, nil
}
