package calendar

import (
	"context"
	"errors"
	"fmt"

	"graphcal/internal/birthday"
	"graphcal/internal/dataverse"
	"graphcal/internal/outcome"
	"graphcal/internal/timeresolve"
)

const (
	defaultBirthdayDescription = "Don't forget to wish!"
	defaultBirthdayLocation    = "Online"
	msgNoBirthday              = "No Birthday"
)

// BirthdayRequest asks for a yearly reminder ahead of a CRM contact's birthday.
type BirthdayRequest struct {
	User         string
	ContactEmail string
	Timezone     string
	DaysPrior    int
	Subject      string
	Description  string
	Location     string
	EndDate      string
}

// BirthdayReminder looks up the contact's birthday and creates a yearly series
// daysPrior days ahead of it. On success the message is the next birthday date.
func (s *Service) BirthdayReminder(ctx context.Context, r BirthdayRequest) outcome.Result {
	if r.User == "" || r.ContactEmail == "" || r.Timezone == "" {
		return outcome.Missing("user, contact email and timezone are required")
	}
	if r.DaysPrior < 0 {
		return outcome.Invalid(fmt.Errorf("days prior must not be negative, got %d", r.DaysPrior))
	}
	loc, err := loadZone(r.Timezone)
	if err != nil {
		return outcome.Invalid(err)
	}
	if s.contacts == nil {
		return outcome.Failed(errors.New("contact directory is not configured"))
	}

	if _, err := s.calendar.UserDisplayName(ctx, r.User); err != nil {
		return s.classify(fmt.Errorf("failed to look up user %s: %w", r.User, err))
	}

	contact, err := s.contacts.ContactByEmail(ctx, r.ContactEmail)
	if errors.Is(err, dataverse.ErrContactNotFound) {
		return outcome.Missing("contact not found")
	}
	if err != nil {
		return s.classify(err)
	}
	if contact.Birthdate.IsZero() {
		return outcome.Success(msgNoBirthday)
	}

	plan, err := birthday.NewPlan(contact.Birthdate, s.now().In(loc), r.DaysPrior, r.EndDate)
	if err != nil {
		return s.classify(err)
	}
	s.logger.Info("Planned birthday reminder", "contact", r.ContactEmail, "occurrence", plan.Occurrence.Format(timeresolve.DateLayout),
		"day", plan.Day, "month", plan.Month, "start", plan.StartDate, "end", plan.EndDate)

	res := s.CreateYearly(ctx, SeriesRequest{
		User:        r.User,
		Subject:     orDefault(r.Subject, "BirthDay Reminder for "+r.ContactEmail),
		Description: orDefault(r.Description, defaultBirthdayDescription),
		Location:    orDefault(r.Location, defaultBirthdayLocation),
		Timezone:    r.Timezone,
		StartDate:   plan.StartDate,
		EndDate:     plan.EndDate,
		StartTime:   plan.StartTime,
		EndTime:     plan.EndTime,
		Interval:    1,
		DayOfMonth:  plan.Day,
		Month:       plan.Month,
	})
	if res.Kind != outcome.OK {
		return res
	}
	res.Message = plan.Occurrence.Format(timeresolve.DateLayout)
	return res
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
