package api

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"graphcal/internal/calendar"
)

// stringList accepts either a JSON array of strings or one comma-separated string.
type stringList []string

func (l *stringList) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*l = nil
		return nil
	}
	var arr []string
	if err := json.Unmarshal(data, &arr); err == nil {
		*l = compact(arr)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*l = compact(strings.Split(s, ","))
	return nil
}

func compact(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// flexInt accepts a JSON number or a numeric string.
type flexInt int

func (n *flexInt) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	var i int
	if err := json.Unmarshal(data, &i); err == nil {
		*n = flexInt(i)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return err
	}
	*n = flexInt(v)
	return nil
}

// eventBody is the union of the fields used by the event routes.
type eventBody struct {
	Email       string     `json:"email"`
	UserEmail   string     `json:"user_email"`
	Title       string     `json:"title"`
	Date        string     `json:"date"`
	Timezone    string     `json:"timezone"`
	Subject     string     `json:"subject"`
	Description string     `json:"description"`
	ContentType string     `json:"contentType"`
	Location    string     `json:"location"`
	StartDate   string     `json:"startDate"`
	EndDate     string     `json:"endDate"`
	StartTime   string     `json:"startTime"`
	EndTime     string     `json:"endTime"`
	Attendees   stringList `json:"attendees"`
	Mode        string     `json:"mode"`
	Format      string     `json:"format"`
	Interval    flexInt    `json:"interval"`
	DaysOfWeek  stringList `json:"daysOfWeek"`
	DayOfMonth  flexInt    `json:"DayofMonth"`
	MonthOfYear flexInt    `json:"MonthofYear"`
}

func (b *eventBody) user() string {
	if b.Email != "" {
		return b.Email
	}
	return b.UserEmail
}

func (b *eventBody) target() calendar.Target {
	return calendar.Target{User: b.user(), Title: b.Title, Date: b.Date, Timezone: b.Timezone}
}

func (b *eventBody) event() calendar.EventRequest {
	return calendar.EventRequest{
		User:        b.user(),
		Subject:     b.Subject,
		Description: b.Description,
		ContentType: b.ContentType,
		Date:        b.Date,
		StartTime:   b.StartTime,
		EndTime:     b.EndTime,
		Timezone:    b.Timezone,
		Location:    b.Location,
		Attendees:   b.Attendees,
	}
}

func (b *eventBody) series() calendar.SeriesRequest {
	return calendar.SeriesRequest{
		User:        b.user(),
		Subject:     b.Subject,
		Description: b.Description,
		ContentType: b.ContentType,
		StartDate:   b.StartDate,
		EndDate:     b.EndDate,
		StartTime:   b.StartTime,
		EndTime:     b.EndTime,
		Timezone:    b.Timezone,
		Location:    b.Location,
		Attendees:   b.Attendees,
		Interval:    int(b.Interval),
		DaysOfWeek:  b.DaysOfWeek,
		DayOfMonth:  int(b.DayOfMonth),
		Month:       int(b.MonthOfYear),
	}
}

// birthdayBody is the body of the birthday reminder route.
type birthdayBody struct {
	Email        string  `json:"email"`
	ContactEmail string  `json:"contact_email"`
	DaysPrior    flexInt `json:"days_prior"`
	Timezone     string  `json:"timezone"`
	Subject      string  `json:"subject"`
	Description  string  `json:"description"`
	Location     string  `json:"location"`
	EndDate      string  `json:"end_date"`
}

func (b *birthdayBody) request() calendar.BirthdayRequest {
	return calendar.BirthdayRequest{
		User:         b.Email,
		ContactEmail: b.ContactEmail,
		Timezone:     b.Timezone,
		DaysPrior:    int(b.DaysPrior),
		Subject:      b.Subject,
		Description:  b.Description,
		Location:     b.Location,
		EndDate:      b.EndDate,
	}
}
