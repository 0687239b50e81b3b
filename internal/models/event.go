package models

import (
	"strings"
	"time"
)

// Graph serializes event datetimes with up to seven fractional digits.
const graphDateTimeLayout = "2006-01-02T15:04:05.9999999"

// Body content types accepted by the calendar service.
const (
	ContentTypeText = "Text"
	ContentTypeHTML = "HTML"
)

// AttendeeRequired is the role given to every attendee this service adds.
const AttendeeRequired = "required"

// Event represents a calendar event as exchanged with Microsoft Graph.
// Optional fields are omitted when empty so that a partially filled Event
// can be sent as a PATCH body containing only the changed fields.
type Event struct {
	ID             string               `json:"id,omitempty"`
	Subject        string               `json:"subject,omitempty"`
	Body           *ItemBody            `json:"body,omitempty"`
	Start          *DateTimeTimeZone    `json:"start,omitempty"`
	End            *DateTimeTimeZone    `json:"end,omitempty"`
	Location       *Location            `json:"location,omitempty"`
	Attendees      []Attendee           `json:"attendees,omitempty"`
	Type           string               `json:"type,omitempty"`
	Recurrence     *PatternedRecurrence `json:"recurrence,omitempty"`
	SeriesMasterID string               `json:"seriesMasterId,omitempty"`
}

// IsRecurring reports whether the event carries a recurrence rule.
func (e *Event) IsRecurring() bool {
	return e.Recurrence != nil
}

// DateTimeTimeZone is a local datetime paired with the zone it is expressed in.
type DateTimeTimeZone struct {
	DateTime string `json:"dateTime"`
	TimeZone string `json:"timeZone"`
}

// Time interprets the local datetime in its zone. Unknown zone names fall back to UTC,
// which is what calendarView returns when no Prefer header is sent.
func (d DateTimeTimeZone) Time() (time.Time, error) {
	loc, err := time.LoadLocation(d.TimeZone)
	if err != nil || d.TimeZone == "" {
		loc = time.UTC
	}
	return time.ParseInLocation(graphDateTimeLayout, d.DateTime, loc)
}

type ItemBody struct {
	ContentType string `json:"contentType"`
	Content     string `json:"content"`
}

type Location struct {
	DisplayName string `json:"displayName"`
}

type EmailAddress struct {
	Address string `json:"address"`
	Name    string `json:"name,omitempty"`
}

type Attendee struct {
	EmailAddress EmailAddress `json:"emailAddress"`
	Type         string       `json:"type"`
}

// Key is the case-insensitive identity used when merging attendee lists.
func (a Attendee) Key() string {
	return strings.ToLower(strings.TrimSpace(a.EmailAddress.Address))
}
