package models

import "time"

// Recurrence pattern types supported by the creation flows.
const (
	PatternDaily           = "daily"
	PatternWeekly          = "weekly"
	PatternAbsoluteMonthly = "absoluteMonthly"
	PatternAbsoluteYearly  = "absoluteYearly"
)

// RangeEndDate is the only range type this service emits.
const RangeEndDate = "endDate"

// PatternedRecurrence is the recurrence object attached to an event at creation time.
type PatternedRecurrence struct {
	Pattern RecurrencePattern `json:"pattern"`
	Range   RecurrenceRange   `json:"range"`
}

// RecurrencePattern describes how often a series repeats. Fields that do not
// belong to the active Type are left zero and omitted on the wire.
type RecurrencePattern struct {
	Type       string   `json:"type"`
	Interval   int      `json:"interval"`
	DaysOfWeek []string `json:"daysOfWeek,omitempty"`
	DayOfMonth int      `json:"dayOfMonth,omitempty"`
	Month      int      `json:"month,omitempty"`
}

// RecurrenceRange bounds a series by calendar dates (YYYY-MM-DD).
type RecurrenceRange struct {
	Type      string `json:"type"`
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

// BirthdayRecord is a contact's birthday as stored by the CRM. Only month and
// day of Birthdate matter for recurrence purposes.
type BirthdayRecord struct {
	ContactID string
	Email     string
	FullName  string
	Birthdate time.Time
}
