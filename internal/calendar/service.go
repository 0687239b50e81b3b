// Package calendar orchestrates the calendar flows: it locates events by
// title, resolves series, applies changes and creates new events, returning
// a tagged outcome for every call.
package calendar

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"graphcal/internal/birthday"
	"graphcal/internal/locator"
	"graphcal/internal/models"
	"graphcal/internal/mutator"
	"graphcal/internal/outcome"
	"graphcal/internal/recurrence"
	"graphcal/internal/timeresolve"
)

// Calendar is the remote calendar service.
type Calendar interface {
	locator.Reader
	mutator.Writer
	CreateEvent(ctx context.Context, user string, ev *models.Event) (*models.Event, error)
}

// Contacts looks up CRM contacts.
type Contacts interface {
	ContactByEmail(ctx context.Context, email string) (*models.BirthdayRecord, error)
}

// Target identifies an existing event the way callers describe it.
type Target struct {
	User     string
	Title    string
	Date     string
	Timezone string
}

// complete reports whether every field is set, judging the title after
// zero-width characters are stripped.
func (t Target) complete() bool {
	return t.User != "" && timeresolve.CleanTitle(t.Title) != "" && t.Date != "" && t.Timezone != ""
}

func (t Target) query() locator.Query {
	return locator.Query{User: t.User, Title: t.Title, Date: t.Date, Timezone: t.Timezone}
}

// Summary is the part of a created event reported back to callers.
type Summary struct {
	ID         string                      `json:"id"`
	Subject    string                      `json:"subject"`
	Start      *models.DateTimeTimeZone    `json:"start,omitempty"`
	End        *models.DateTimeTimeZone    `json:"end,omitempty"`
	Location   string                      `json:"location,omitempty"`
	Attendees  []string                    `json:"attendees,omitempty"`
	Recurrence *models.PatternedRecurrence `json:"recurrence,omitempty"`
}

// Service runs calendar flows against a remote calendar and, for birthday
// reminders, a contact directory.
type Service struct {
	logger   *slog.Logger
	calendar Calendar
	contacts Contacts
	locator  *locator.Locator
	mutator  *mutator.Mutator
	now      func() time.Time
}

// NewService creates a new Service. contacts may be nil when no CRM is configured.
func NewService(logger *slog.Logger, cal Calendar, contacts Contacts) *Service {
	return &Service{
		logger:   logger,
		calendar: cal,
		contacts: contacts,
		locator:  locator.New(cal, logger),
		mutator:  mutator.New(cal, logger),
		now:      time.Now,
	}
}

// Locate reports the identifier a mutation of t would target.
func (s *Service) Locate(ctx context.Context, t Target) outcome.Result {
	if !t.complete() {
		return outcome.Missing("user, title, date and timezone are required")
	}
	match, found, err := s.locator.Locate(ctx, t.query())
	if err != nil {
		return s.classify(err)
	}
	if !found {
		return outcome.Missing("event not found")
	}
	return outcome.SuccessWith(match)
}

// Events lists the events of one day in the user's timezone.
func (s *Service) Events(ctx context.Context, user, date, timezone string) outcome.Result {
	if user == "" || date == "" || timezone == "" {
		return outcome.Missing("user, date and timezone are required")
	}
	start, end, err := timeresolve.DayWindow(timezone, date)
	if err != nil {
		return outcome.Invalid(err)
	}
	events, err := s.calendar.CalendarView(ctx, user, start, end)
	if err != nil {
		return s.classify(err)
	}
	s.logger.Info("Listed events", "user", user, "date", date, "count", len(events))
	return outcome.SuccessWith(events)
}

// resolve locates t. Occurrences come back redirected to their series
// master. ok is false when res already holds the final outcome.
func (s *Service) resolve(ctx context.Context, t Target) (match locator.Match, res outcome.Result, ok bool) {
	if !t.complete() {
		return match, outcome.Missing("user, title, date and timezone are required"), false
	}
	match, found, err := s.locator.Locate(ctx, t.query())
	if err != nil {
		return match, s.classify(err), false
	}
	if !found {
		return match, outcome.Missing("event not found"), false
	}
	return match, outcome.Result{}, true
}

// classify maps an error onto an outcome. Caller mistakes become InvalidInput,
// everything else is a remote failure.
func (s *Service) classify(err error) outcome.Result {
	var (
		tfe *timeresolve.TimeFormatError
		ire *recurrence.InvalidRecurrenceError
		tre *recurrence.InvalidTimeRangeError
		iee *mutator.InvalidEmailError
		ice *mutator.InvalidContentTypeError
	)
	switch {
	case errors.As(err, &tfe), errors.As(err, &ire), errors.As(err, &tre),
		errors.As(err, &iee), errors.As(err, &ice), errors.Is(err, birthday.ErrNoSuchDay):
		return outcome.Invalid(err)
	default:
		s.logger.Error("Calendar flow failed", "error", err)
		return outcome.Failed(err)
	}
}

func loadZone(timezone string) (*time.Location, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil || timezone == "" {
		return nil, &timeresolve.TimeFormatError{Reason: fmt.Sprintf("unknown timezone %q", timezone)}
	}
	return loc, nil
}

func summarize(ev *models.Event) Summary {
	sum := Summary{
		ID:         ev.ID,
		Subject:    ev.Subject,
		Start:      ev.Start,
		End:        ev.End,
		Recurrence: ev.Recurrence,
	}
	if ev.Location != nil {
		sum.Location = ev.Location.DisplayName
	}
	for _, a := range ev.Attendees {
		sum.Attendees = append(sum.Attendees, a.EmailAddress.Address)
	}
	return sum
}
