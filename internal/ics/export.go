// Package ics renders calendar events as an iCalendar document.
package ics

import (
	"fmt"
	"io"
	"time"

	"github.com/emersion/go-ical"
	"github.com/google/uuid"

	"graphcal/internal/models"
	"graphcal/internal/recurrence"
)

const productID = "-//graphcal//EN"

// Encode writes events as a VCALENDAR. Events without a parseable start are
// skipped. When loc is set, start and end are expressed in it so recurrence
// rules expand on the viewer's weekdays; RRULE is only emitted for series
// masters, since calendar views list instances without their recurrence.
func Encode(w io.Writer, events []models.Event, loc *time.Location, now time.Time) error {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, productID)

	for i := range events {
		ve, err := toICal(&events[i], loc, now)
		if err != nil {
			return err
		}
		if ve != nil {
			cal.Children = append(cal.Children, ve)
		}
	}

	if err := ical.NewEncoder(w).Encode(cal); err != nil {
		return fmt.Errorf("failed to encode calendar: %w", err)
	}
	return nil
}

// GenerateUID creates a new unique identifier for an event without one.
func GenerateUID() string {
	return uuid.New().String()
}

// toICal converts an Event to a VEVENT component.
func toICal(ev *models.Event, loc *time.Location, now time.Time) (*ical.Component, error) {
	if ev.Start == nil || ev.End == nil {
		return nil, nil
	}
	start, err := ev.Start.Time()
	if err != nil {
		return nil, nil
	}
	end, err := ev.End.Time()
	if err != nil {
		return nil, nil
	}
	if loc != nil {
		start, end = start.In(loc), end.In(loc)
	}

	uid := ev.ID
	if uid == "" {
		uid = GenerateUID()
	}

	ve := ical.NewComponent(ical.CompEvent)
	ve.Props.SetText(ical.PropUID, uid)
	ve.Props.SetText(ical.PropSummary, ev.Subject)
	ve.Props.SetDateTime(ical.PropDateTimeStamp, now.UTC())
	ve.Props.SetDateTime(ical.PropDateTimeStart, start)
	ve.Props.SetDateTime(ical.PropDateTimeEnd, end)

	if ev.Body != nil && ev.Body.Content != "" {
		ve.Props.SetText(ical.PropDescription, ev.Body.Content)
	}
	if ev.Location != nil && ev.Location.DisplayName != "" {
		ve.Props.SetText(ical.PropLocation, ev.Location.DisplayName)
	}
	for _, a := range ev.Attendees {
		p := ical.NewProp(ical.PropAttendee)
		p.Value = "mailto:" + a.EmailAddress.Address
		if a.EmailAddress.Name != "" {
			p.Params.Set(ical.ParamCommonName, a.EmailAddress.Name)
		}
		ve.Props.Add(p)
	}

	if ev.Recurrence != nil {
		rule, err := recurrence.ToRRule(*ev.Recurrence, start)
		if err != nil {
			return nil, fmt.Errorf("event %s: %w", uid, err)
		}
		p := ical.NewProp(ical.PropRecurrenceRule)
		p.Value = rule.OrigOptions.RRuleString()
		ve.Props.Set(p)
	}
	return ve, nil
}
