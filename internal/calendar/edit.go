package calendar

import (
	"context"

	"graphcal/internal/mutator"
	"graphcal/internal/outcome"
	"graphcal/internal/timeresolve"
)

const (
	msgDeleted        = "Event Deleted Successfully."
	msgUpdated        = "Event Updated Successfully."
	msgAttendeesAdded = "Attendees added successfully."
)

// DateTimeChange is a new schedule for an event. StartDate defaults to the
// target's date and EndDate to StartDate.
type DateTimeChange struct {
	StartDate string
	EndDate   string
	StartTime string
	EndTime   string
}

// DeleteEvent removes the located event, or its whole series when it is an
// occurrence of a recurring series.
func (s *Service) DeleteEvent(ctx context.Context, t Target) outcome.Result {
	match, res, ok := s.resolve(ctx, t)
	if !ok {
		return res
	}
	id := match.ID
	if err := s.mutator.Delete(ctx, t.User, id); err != nil {
		return s.classify(err)
	}
	s.logger.Info("Deleted event", "user", t.User, "title", t.Title, "id", id)
	return outcome.Success(msgDeleted)
}

func (s *Service) EditSubject(ctx context.Context, t Target, subject string) outcome.Result {
	subject = timeresolve.CleanTitle(subject)
	if subject == "" {
		return outcome.Missing("subject is required")
	}
	match, res, ok := s.resolve(ctx, t)
	if !ok {
		return res
	}
	id := match.ID
	if err := s.mutator.ApplySubject(ctx, t.User, id, subject); err != nil {
		return s.classify(err)
	}
	return outcome.Success(msgUpdated)
}

func (s *Service) EditDescription(ctx context.Context, t Target, description, contentType string) outcome.Result {
	if description == "" {
		return outcome.Missing("description is required")
	}
	if _, err := mutator.NormalizeContentType(contentType); err != nil {
		return outcome.Invalid(err)
	}
	match, res, ok := s.resolve(ctx, t)
	if !ok {
		return res
	}
	id := match.ID
	if err := s.mutator.ApplyDescription(ctx, t.User, id, description, contentType); err != nil {
		return s.classify(err)
	}
	return outcome.Success(msgUpdated)
}

// EditDateTime reschedules a single event. Recurring targets are refused
// with the Recurrence outcome and left untouched.
func (s *Service) EditDateTime(ctx context.Context, t Target, c DateTimeChange) outcome.Result {
	if c.StartTime == "" || c.EndTime == "" {
		return outcome.Missing("startTime and endTime are required")
	}
	if c.StartDate == "" {
		c.StartDate = t.Date
	}
	if c.EndDate == "" {
		c.EndDate = c.StartDate
	}
	startISO, err := timeresolve.ParseTime(c.StartDate, c.StartTime)
	if err != nil {
		return outcome.Invalid(err)
	}
	endISO, err := timeresolve.ParseTime(c.EndDate, c.EndTime)
	if err != nil {
		return outcome.Invalid(err)
	}

	match, res, ok := s.resolve(ctx, t)
	if !ok {
		return res
	}
	id, recurring, err := s.locator.ResolveSeries(ctx, t.User, match)
	if err != nil {
		return s.classify(err)
	}
	if recurring {
		s.logger.Info("Refusing datetime edit of recurring event", "user", t.User, "title", t.Title, "id", id)
		return outcome.RecurringTarget()
	}
	if err := s.mutator.ApplyDateTime(ctx, t.User, id, startISO, endISO, t.Timezone); err != nil {
		return s.classify(err)
	}
	return outcome.Success(msgUpdated)
}

// ModifyAttendees merges or replaces the attendee list; mode defaults to merge.
func (s *Service) ModifyAttendees(ctx context.Context, t Target, emails []string, mode string) outcome.Result {
	if len(emails) == 0 {
		return outcome.Missing("attendees are required")
	}
	m, err := mutator.ParseMode(mode)
	if err != nil {
		return outcome.Invalid(err)
	}
	for _, e := range emails {
		if _, err := mutator.ValidateEmail(e); err != nil {
			return outcome.Invalid(err)
		}
	}
	match, res, ok := s.resolve(ctx, t)
	if !ok {
		return res
	}
	id := match.ID
	if err := s.mutator.ApplyAttendees(ctx, t.User, id, emails, m); err != nil {
		return s.classify(err)
	}
	return outcome.Success(msgAttendeesAdded)
}
