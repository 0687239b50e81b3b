package locator

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"graphcal/internal/models"
)

type stubReader struct {
	events    []models.Event
	byID      map[string]models.Event
	viewStart string
	viewEnd   string
	viewErr   error
	gets      []string
}

func (s *stubReader) CalendarView(_ context.Context, _, start, end string) ([]models.Event, error) {
	s.viewStart, s.viewEnd = start, end
	return s.events, s.viewErr
}

func (s *stubReader) GetEvent(_ context.Context, _, id string, fields ...string) (*models.Event, error) {
	s.gets = append(s.gets, id)
	ev, ok := s.byID[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return &ev, nil
}

func newLocator(r Reader) *Locator {
	return New(r, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func query(title string) Query {
	return Query{User: "u@example.com", Title: title, Date: "2025-06-01", Timezone: "Asia/Karachi"}
}

func TestLocateUsesDayWindow(t *testing.T) {
	r := &stubReader{}
	if _, _, err := newLocator(r).Locate(context.Background(), query("x")); err != nil {
		t.Fatal(err)
	}
	if r.viewStart != "2025-06-01T00:00:00+05:00" || r.viewEnd != "2025-06-01T23:59:59.999999+05:00" {
		t.Errorf("window = %s .. %s", r.viewStart, r.viewEnd)
	}
}

func TestLocateDissimilarTitleNotFound(t *testing.T) {
	r := &stubReader{events: []models.Event{{ID: "1", Subject: "Design Sync"}}}
	_, found, err := newLocator(r).Locate(context.Background(), query("Team Sync"))
	if err != nil {
		t.Fatal(err)
	}
	if found {
		t.Error("Team Sync should not match Design Sync")
	}
}

func TestLocateReturnsSeriesMaster(t *testing.T) {
	r := &stubReader{events: []models.Event{{ID: "occ-1", Subject: "Team Sync", SeriesMasterID: "master-1"}}}
	m, found, err := newLocator(r).Locate(context.Background(), query("team sync"))
	if err != nil {
		t.Fatal(err)
	}
	if !found || m.ID != "master-1" {
		t.Errorf("match = %+v found=%v, want master-1", m, found)
	}
}

func TestLocateFirstMatchWins(t *testing.T) {
	r := &stubReader{events: []models.Event{
		{ID: "a", Subject: "Lunch"},
		{ID: "b", Subject: "Team Sync"},
		{ID: "c", Subject: "Team Sync"},
	}}
	m, found, err := newLocator(r).Locate(context.Background(), query("Team Sync"))
	if err != nil {
		t.Fatal(err)
	}
	if !found || m.ID != "b" {
		t.Errorf("match = %+v, want b", m)
	}
}

func TestLocateStripsZeroWidthCharacters(t *testing.T) {
	r := &stubReader{events: []models.Event{{ID: "a", Subject: "Team Sync"}}}
	m, found, err := newLocator(r).Locate(context.Background(), query("Team\u200b Sync\u200d"))
	if err != nil {
		t.Fatal(err)
	}
	if !found || m.Similarity != 100 {
		t.Errorf("match = %+v found=%v", m, found)
	}
}

func TestLocateRemoteFailure(t *testing.T) {
	r := &stubReader{viewErr: errors.New("boom")}
	if _, _, err := newLocator(r).Locate(context.Background(), query("x")); err == nil {
		t.Error("expected error")
	}
}

func TestResolveSeriesOccurrence(t *testing.T) {
	rec := &models.PatternedRecurrence{Pattern: models.RecurrencePattern{Type: models.PatternDaily, Interval: 1}}
	r := &stubReader{
		events: []models.Event{{ID: "occ", Subject: "Standup", Type: "occurrence", SeriesMasterID: "master"}},
		byID:   map[string]models.Event{"master": {ID: "master", Recurrence: rec}},
	}
	l := newLocator(r)
	m, _, err := l.Locate(context.Background(), query("Standup"))
	if err != nil {
		t.Fatal(err)
	}

	id, recurring, err := l.ResolveSeries(context.Background(), "u", m)
	if err != nil {
		t.Fatal(err)
	}
	if id != "master" || !recurring {
		t.Errorf("ResolveSeries = %s, %v", id, recurring)
	}
	if len(r.gets) != 1 || r.gets[0] != "master" {
		t.Errorf("reads = %v, want one read of master", r.gets)
	}
}

func TestResolveSeriesSingle(t *testing.T) {
	r := &stubReader{byID: map[string]models.Event{"single": {ID: "single"}}}
	m := Match{ID: "single", Event: models.Event{ID: "single", Type: "singleInstance"}}

	id, recurring, err := newLocator(r).ResolveSeries(context.Background(), "u", m)
	if err != nil {
		t.Fatal(err)
	}
	if id != "single" || recurring {
		t.Errorf("ResolveSeries = %s, %v", id, recurring)
	}
	if len(r.gets) != 1 {
		t.Errorf("reads = %v, want one", r.gets)
	}
}

func TestResolveSeriesOccurrenceWithoutMasterID(t *testing.T) {
	rec := &models.PatternedRecurrence{Pattern: models.RecurrencePattern{Type: models.PatternDaily, Interval: 1}}
	r := &stubReader{byID: map[string]models.Event{
		"occ":    {ID: "occ", SeriesMasterID: "master"},
		"master": {ID: "master", Recurrence: rec},
	}}
	m := Match{ID: "occ", Event: models.Event{ID: "occ", Type: "occurrence"}}

	id, recurring, err := newLocator(r).ResolveSeries(context.Background(), "u", m)
	if err != nil {
		t.Fatal(err)
	}
	if id != "master" || !recurring {
		t.Errorf("ResolveSeries = %s, %v", id, recurring)
	}
	if want := []string{"occ", "master"}; len(r.gets) != 2 || r.gets[0] != want[0] || r.gets[1] != want[1] {
		t.Errorf("reads = %v, want %v", r.gets, want)
	}
}

func TestSimilarity(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"Team Sync", "team sync", 100},
		{"Team Sync", "Design Sync", 60},
		{"Team Sync", "Team Sync.", 95},
		{"Weekly standup", "Weekly stand-up", 97},
		{"Budget Review", "Budget  Review", 96},
		{"Quarterly Business Review", "Quarterly Business Reviews", 98},
		{"Standup", "Stand up", 93},
		{"abcab", "bcabc", 80},
		{"", "", 100},
		{"abc", "", 0},
	}
	for _, tt := range tests {
		if got := Similarity(tt.a, tt.b); got != tt.want {
			t.Errorf("Similarity(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestLocateMatchesMinorFormattingDifferences(t *testing.T) {
	tests := []struct{ title, subject string }{
		{"Team Sync", "Team Sync."},
		{"Weekly standup", "Weekly stand-up"},
		{"Budget Review", "Budget  Review"},
	}
	for _, tt := range tests {
		r := &stubReader{events: []models.Event{{ID: "a", Subject: "Lunch"}, {ID: "b", Subject: tt.subject}}}
		m, found, err := newLocator(r).Locate(context.Background(), query(tt.title))
		if err != nil {
			t.Fatal(err)
		}
		if !found || m.ID != "b" {
			t.Errorf("%q vs %q: match = %+v found=%v", tt.title, tt.subject, m, found)
		}
	}
}
