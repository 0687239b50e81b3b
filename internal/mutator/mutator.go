// Package mutator applies partial updates and deletions to an already
// resolved calendar event.
package mutator

import (
	"context"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"

	"graphcal/internal/models"
	"graphcal/internal/recurrence"
)

// Writer is the slice of the calendar service the mutator depends on.
type Writer interface {
	GetEvent(ctx context.Context, user, id string, fields ...string) (*models.Event, error)
	PatchEvent(ctx context.Context, user, id string, patch *models.Event) error
	DeleteEvent(ctx context.Context, user, id string) error
	UserDisplayName(ctx context.Context, email string) (string, error)
}

// Mode selects how new attendees combine with the existing list.
type Mode string

const (
	Merge   Mode = "merge"
	Replace Mode = "replace"
)

// ParseMode maps a caller-supplied mode onto a Mode; empty means Merge.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", Merge:
		return Merge, nil
	case Replace:
		return Replace, nil
	default:
		return "", fmt.Errorf("unknown attendee mode %q", s)
	}
}

// InvalidEmailError reports an attendee address that does not parse.
type InvalidEmailError struct {
	Address string
}

func (e *InvalidEmailError) Error() string {
	return fmt.Sprintf("invalid attendee email %q", e.Address)
}

// InvalidContentTypeError reports a body content type other than Text or HTML.
type InvalidContentTypeError struct {
	ContentType string
}

func (e *InvalidContentTypeError) Error() string {
	return fmt.Sprintf("invalid content type %q: must be Text or HTML", e.ContentType)
}

type Mutator struct {
	writer Writer
	logger *slog.Logger
}

func New(writer Writer, logger *slog.Logger) *Mutator {
	return &Mutator{writer: writer, logger: logger}
}

func (m *Mutator) ApplySubject(ctx context.Context, user, id, subject string) error {
	return m.writer.PatchEvent(ctx, user, id, &models.Event{Subject: subject})
}

// ApplyDescription replaces the event body. contentType defaults to HTML.
func (m *Mutator) ApplyDescription(ctx context.Context, user, id, content, contentType string) error {
	ct, err := NormalizeContentType(contentType)
	if err != nil {
		return err
	}
	return m.writer.PatchEvent(ctx, user, id, &models.Event{
		Body: &models.ItemBody{ContentType: ct, Content: content},
	})
}

// ApplyDateTime moves the event to [startISO, endISO) in timezone after
// checking the range is not empty.
func (m *Mutator) ApplyDateTime(ctx context.Context, user, id, startISO, endISO, timezone string) error {
	if err := recurrence.ValidateTimeRange(startISO, endISO); err != nil {
		return err
	}
	return m.writer.PatchEvent(ctx, user, id, &models.Event{
		Start: &models.DateTimeTimeZone{DateTime: startISO, TimeZone: timezone},
		End:   &models.DateTimeTimeZone{DateTime: endISO, TimeZone: timezone},
	})
}

// ApplyAttendees sets the attendee list. Merge keeps existing attendees first
// and appends new addresses not already present, compared case-insensitively.
func (m *Mutator) ApplyAttendees(ctx context.Context, user, id string, emails []string, mode Mode) error {
	incoming, err := m.ResolveAttendees(ctx, emails)
	if err != nil {
		return err
	}

	list := incoming
	if mode != Replace {
		ev, err := m.writer.GetEvent(ctx, user, id, "attendees")
		if err != nil {
			return fmt.Errorf("failed to read attendees of %s: %w", id, err)
		}
		list = MergeAttendees(ev.Attendees, incoming)
	}

	m.logger.Debug("Updating attendees", "id", id, "mode", string(mode), "count", len(list))
	return m.writer.PatchEvent(ctx, user, id, &models.Event{Attendees: list})
}

func (m *Mutator) Delete(ctx context.Context, user, id string) error {
	return m.writer.DeleteEvent(ctx, user, id)
}

// MergeAttendees returns existing followed by the members of incoming whose
// address is not already present.
func MergeAttendees(existing, incoming []models.Attendee) []models.Attendee {
	seen := make(map[string]bool, len(existing)+len(incoming))
	out := make([]models.Attendee, 0, len(existing)+len(incoming))
	for _, list := range [][]models.Attendee{existing, incoming} {
		for _, a := range list {
			if seen[a.Key()] {
				continue
			}
			seen[a.Key()] = true
			out = append(out, a)
		}
	}
	return out
}

// ResolveAttendees validates the addresses and resolves display names,
// falling back to the address itself when the directory has no entry.
func (m *Mutator) ResolveAttendees(ctx context.Context, emails []string) ([]models.Attendee, error) {
	if len(emails) == 0 {
		return nil, &InvalidEmailError{}
	}
	out := make([]models.Attendee, 0, len(emails))
	for _, raw := range emails {
		addr, err := ValidateEmail(raw)
		if err != nil {
			return nil, err
		}
		name, err := m.writer.UserDisplayName(ctx, addr)
		if err != nil || name == "" {
			m.logger.Debug("No display name, using address", "email", addr, "error", err)
			name = addr
		}
		out = append(out, models.Attendee{
			EmailAddress: models.EmailAddress{Address: addr, Name: name},
			Type:         models.AttendeeRequired,
		})
	}
	return out, nil
}

// ValidateEmail accepts a bare address and returns it trimmed.
func ValidateEmail(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	a, err := mail.ParseAddress(s)
	if err != nil || a.Address != s {
		return "", &InvalidEmailError{Address: raw}
	}
	return s, nil
}

// NormalizeContentType canonicalizes Text/HTML case-insensitively; empty means HTML.
func NormalizeContentType(ct string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(ct)) {
	case "", "html":
		return models.ContentTypeHTML, nil
	case "text":
		return models.ContentTypeText, nil
	default:
		return "", &InvalidContentTypeError{ContentType: ct}
	}
}
