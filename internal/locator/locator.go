// Package locator resolves a human event description (title, date, timezone)
// to the Graph event identifier that mutations should target.
package locator

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"graphcal/internal/models"
	"graphcal/internal/timeresolve"
)

// MatchThreshold is the minimum similarity for a candidate to be selected.
const MatchThreshold = 95

// Reader is the slice of the calendar service the locator depends on.
type Reader interface {
	CalendarView(ctx context.Context, user, start, end string) ([]models.Event, error)
	GetEvent(ctx context.Context, user, id string, fields ...string) (*models.Event, error)
}

// Query describes the event a caller is referring to.
type Query struct {
	User     string
	Title    string
	Date     string
	Timezone string
}

// Match is the located event. ID is the series master id when the candidate
// is an occurrence, otherwise the candidate's own id.
type Match struct {
	ID         string
	Event      models.Event
	Similarity int
}

// Locator finds events in a user's calendar.
type Locator struct {
	reader Reader
	logger *slog.Logger
}

func New(reader Reader, logger *slog.Logger) *Locator {
	return &Locator{reader: reader, logger: logger}
}

// Locate lists the events of q.Date in q.Timezone and returns the first one,
// in start order, whose subject is similar enough to q.Title.
func (l *Locator) Locate(ctx context.Context, q Query) (Match, bool, error) {
	start, end, err := timeresolve.DayWindow(q.Timezone, q.Date)
	if err != nil {
		return Match{}, false, err
	}
	title := timeresolve.CleanTitle(q.Title)

	events, err := l.reader.CalendarView(ctx, q.User, start, end)
	if err != nil {
		return Match{}, false, fmt.Errorf("failed to list calendar view: %w", err)
	}

	for _, ev := range events {
		score := Similarity(title, ev.Subject)
		if score < MatchThreshold {
			continue
		}
		id := ev.ID
		if ev.SeriesMasterID != "" {
			id = ev.SeriesMasterID
		}
		l.logger.Debug("Located event", "title", title, "subject", ev.Subject, "score", score, "id", id)
		return Match{ID: id, Event: ev, Similarity: score}, true, nil
	}

	l.logger.Info("No matching event", "title", title, "date", q.Date, "candidates", len(events))
	return Match{}, false, nil
}

// IsRecurring reports whether the event carries a recurrence rule.
func (l *Locator) IsRecurring(ctx context.Context, user, id string) (bool, error) {
	ev, err := l.reader.GetEvent(ctx, user, id, "recurrence")
	if err != nil {
		return false, fmt.Errorf("failed to read recurrence of %s: %w", id, err)
	}
	return ev.IsRecurring(), nil
}

// SeriesMasterID returns the event's series master id, empty for non-occurrences.
func (l *Locator) SeriesMasterID(ctx context.Context, user, id string) (string, error) {
	ev, err := l.reader.GetEvent(ctx, user, id, "seriesMasterId")
	if err != nil {
		return "", fmt.Errorf("failed to read series master of %s: %w", id, err)
	}
	return ev.SeriesMasterID, nil
}

// ResolveSeries reports whether the located event is recurring, with one
// remote read. Occurrences are already redirected to their master by Locate;
// only an occurrence row missing its master id costs an extra lookup.
func (l *Locator) ResolveSeries(ctx context.Context, user string, m Match) (string, bool, error) {
	id := m.ID
	if id == m.Event.ID && m.Event.SeriesMasterID == "" && isInstance(m.Event.Type) {
		master, err := l.SeriesMasterID(ctx, user, id)
		if err != nil {
			return "", false, err
		}
		if master != "" {
			id = master
		}
	}
	recurring, err := l.IsRecurring(ctx, user, id)
	if err != nil {
		return "", false, err
	}
	return id, recurring, nil
}

func isInstance(eventType string) bool {
	return eventType == "occurrence" || eventType == "exception"
}

// Similarity is the 0-100 ratio 2*M/T over the lowercased runes of a and b,
// where M counts the characters in matching blocks and T is the combined
// length. Identical strings score 100 and an empty side against a non-empty
// one scores 0. Halves round to even.
func Similarity(a, b string) int {
	ra, rb := []rune(strings.ToLower(a)), []rune(strings.ToLower(b))
	if string(ra) == string(rb) {
		return 100
	}
	if len(ra) == 0 || len(rb) == 0 {
		return 0
	}
	m := matchingChars(ra, rb, 0, len(ra), 0, len(rb))
	return int(math.RoundToEven(200 * float64(m) / float64(len(ra)+len(rb))))
}

// matchingChars finds the longest common block in a[alo:ahi] and b[blo:bhi],
// preferring the earliest in a and then in b, and recurses on both sides of it.
func matchingChars(a, b []rune, alo, ahi, blo, bhi int) int {
	i, j, k := longestBlock(a, b, alo, ahi, blo, bhi)
	if k == 0 {
		return 0
	}
	n := k
	if alo < i && blo < j {
		n += matchingChars(a, b, alo, i, blo, j)
	}
	if i+k < ahi && j+k < bhi {
		n += matchingChars(a, b, i+k, ahi, j+k, bhi)
	}
	return n
}

func longestBlock(a, b []rune, alo, ahi, blo, bhi int) (besti, bestj, best int) {
	besti, bestj = alo, blo
	prev := make([]int, bhi-blo+1)
	cur := make([]int, bhi-blo+1)
	for i := alo; i < ahi; i++ {
		for j := blo; j < bhi; j++ {
			if a[i] != b[j] {
				cur[j-blo+1] = 0
				continue
			}
			k := prev[j-blo] + 1
			cur[j-blo+1] = k
			if k > best {
				besti, bestj, best = i-k+1, j-k+1, k
			}
		}
		prev, cur = cur, prev
	}
	return besti, bestj, best
}
