package calendar

import (
	"context"
	"time"

	"graphcal/internal/models"
	"graphcal/internal/mutator"
	"graphcal/internal/outcome"
	"graphcal/internal/recurrence"
	"graphcal/internal/timeresolve"
)

// EventRequest describes a one-time event.
type EventRequest struct {
	User        string
	Subject     string
	Description string
	ContentType string
	Date        string
	StartTime   string
	EndTime     string
	Timezone    string
	Location    string
	Attendees   []string
}

// SeriesRequest describes a recurring event. Only the recurrence fields that
// belong to the chosen pattern are read.
type SeriesRequest struct {
	User        string
	Subject     string
	Description string
	ContentType string
	StartDate   string
	EndDate     string
	StartTime   string
	EndTime     string
	Timezone    string
	Location    string
	Attendees   []string
	Interval    int
	DaysOfWeek  []string
	DayOfMonth  int
	Month       int
}

// CreateEvent creates a one-time event unless an event with a similar title
// already occupies exactly the same start and end on that date.
func (s *Service) CreateEvent(ctx context.Context, r EventRequest) outcome.Result {
	r.Subject = timeresolve.CleanTitle(r.Subject)
	if r.User == "" || r.Subject == "" || r.Date == "" || r.StartTime == "" || r.EndTime == "" || r.Timezone == "" {
		return outcome.Missing("user, subject, date, startTime, endTime and timezone are required")
	}
	loc, err := loadZone(r.Timezone)
	if err != nil {
		return outcome.Invalid(err)
	}
	startISO, err := timeresolve.ParseTime(r.Date, r.StartTime)
	if err != nil {
		return outcome.Invalid(err)
	}
	endISO, err := timeresolve.ParseTime(r.Date, r.EndTime)
	if err != nil {
		return outcome.Invalid(err)
	}
	if err := recurrence.ValidateTimeRange(startISO, endISO); err != nil {
		return outcome.Invalid(err)
	}
	ct, err := contentType(r.ContentType, models.ContentTypeText)
	if err != nil {
		return outcome.Invalid(err)
	}

	dup, err := s.isDuplicate(ctx, r, loc, startISO, endISO)
	if err != nil {
		return s.classify(err)
	}
	if dup {
		s.logger.Info("Event already exists, not creating", "user", r.User, "subject", r.Subject, "date", r.Date)
		return outcome.AlreadyExists("event already exists")
	}

	ev := &models.Event{
		Subject: r.Subject,
		Body:    &models.ItemBody{ContentType: ct, Content: r.Description},
		Start:   &models.DateTimeTimeZone{DateTime: startISO, TimeZone: r.Timezone},
		End:     &models.DateTimeTimeZone{DateTime: endISO, TimeZone: r.Timezone},
	}
	return s.create(ctx, r.User, ev, r.Location, r.Attendees)
}

func (s *Service) isDuplicate(ctx context.Context, r EventRequest, loc *time.Location, startISO, endISO string) (bool, error) {
	match, found, err := s.locator.Locate(ctx, Target{User: r.User, Title: r.Subject, Date: r.Date, Timezone: r.Timezone}.query())
	if err != nil || !found {
		return false, err
	}
	if match.Event.Start == nil || match.Event.End == nil {
		return false, nil
	}
	wantStart, _ := time.ParseInLocation(timeresolve.ISOLayout, startISO, loc)
	wantEnd, _ := time.ParseInLocation(timeresolve.ISOLayout, endISO, loc)
	gotStart, err := match.Event.Start.Time()
	if err != nil {
		return false, nil
	}
	gotEnd, err := match.Event.End.Time()
	if err != nil {
		return false, nil
	}
	return gotStart.Equal(wantStart) && gotEnd.Equal(wantEnd), nil
}

func (s *Service) CreateDaily(ctx context.Context, r SeriesRequest) outcome.Result {
	return s.createSeries(ctx, models.PatternDaily, r)
}

func (s *Service) CreateWeekly(ctx context.Context, r SeriesRequest) outcome.Result {
	return s.createSeries(ctx, models.PatternWeekly, r)
}

func (s *Service) CreateMonthly(ctx context.Context, r SeriesRequest) outcome.Result {
	return s.createSeries(ctx, models.PatternAbsoluteMonthly, r)
}

// CreateYearly creates an absoluteYearly series. Birthday reminders go
// through the same path.
func (s *Service) CreateYearly(ctx context.Context, r SeriesRequest) outcome.Result {
	return s.createSeries(ctx, models.PatternAbsoluteYearly, r)
}

func (s *Service) createSeries(ctx context.Context, patternType string, r SeriesRequest) outcome.Result {
	r.Subject = timeresolve.CleanTitle(r.Subject)
	if r.User == "" || r.Subject == "" || r.StartDate == "" || r.EndDate == "" ||
		r.StartTime == "" || r.EndTime == "" || r.Timezone == "" {
		return outcome.Missing("user, subject, startDate, endDate, startTime, endTime and timezone are required")
	}
	if _, err := loadZone(r.Timezone); err != nil {
		return outcome.Invalid(err)
	}
	startDate, err := timeresolve.NormalizeDate(r.StartDate)
	if err != nil {
		return outcome.Invalid(err)
	}
	endDate, err := timeresolve.NormalizeDate(r.EndDate)
	if err != nil {
		return outcome.Invalid(err)
	}
	rec, err := recurrence.Build(recurrence.Params{
		Type:       patternType,
		Interval:   r.Interval,
		DaysOfWeek: r.DaysOfWeek,
		DayOfMonth: r.DayOfMonth,
		Month:      r.Month,
		StartDate:  startDate,
		EndDate:    endDate,
	})
	if err != nil {
		return outcome.Invalid(err)
	}
	startISO, err := timeresolve.ParseTime(startDate, r.StartTime)
	if err != nil {
		return outcome.Invalid(err)
	}
	endISO, err := timeresolve.ParseTime(startDate, r.EndTime)
	if err != nil {
		return outcome.Invalid(err)
	}
	if err := recurrence.ValidateTimeRange(startISO, endISO); err != nil {
		return outcome.Invalid(err)
	}
	ct, err := contentType(r.ContentType, models.ContentTypeHTML)
	if err != nil {
		return outcome.Invalid(err)
	}

	ev := &models.Event{
		Subject:    r.Subject,
		Body:       &models.ItemBody{ContentType: ct, Content: r.Description},
		Start:      &models.DateTimeTimeZone{DateTime: startISO, TimeZone: r.Timezone},
		End:        &models.DateTimeTimeZone{DateTime: endISO, TimeZone: r.Timezone},
		Recurrence: &rec,
	}
	s.logger.Debug("Creating series", "user", r.User, "subject", r.Subject, "pattern", patternType)
	return s.create(ctx, r.User, ev, r.Location, r.Attendees)
}

func (s *Service) create(ctx context.Context, user string, ev *models.Event, location string, attendees []string) outcome.Result {
	if location != "" {
		ev.Location = &models.Location{DisplayName: location}
	}
	if len(attendees) > 0 {
		list, err := s.mutator.ResolveAttendees(ctx, attendees)
		if err != nil {
			return s.classify(err)
		}
		ev.Attendees = list
	}
	created, err := s.calendar.CreateEvent(ctx, user, ev)
	if err != nil {
		return s.classify(err)
	}
	return outcome.SuccessWith(summarize(created))
}

func contentType(ct, def string) (string, error) {
	if ct == "" {
		return def, nil
	}
	return mutator.NormalizeContentType(ct)
}
