// Package api exposes the calendar flows over HTTP and flattens their tagged
// outcomes into the plain text or JSON responses callers expect.
package api

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"graphcal/internal/calendar"
	"graphcal/internal/ics"
	"graphcal/internal/models"
	"graphcal/internal/outcome"
)

const maxBodyBytes = 1 << 20

// Flows is the calendar service as seen by the HTTP layer.
type Flows interface {
	Events(ctx context.Context, user, date, timezone string) outcome.Result
	CreateEvent(ctx context.Context, r calendar.EventRequest) outcome.Result
	CreateDaily(ctx context.Context, r calendar.SeriesRequest) outcome.Result
	CreateWeekly(ctx context.Context, r calendar.SeriesRequest) outcome.Result
	CreateMonthly(ctx context.Context, r calendar.SeriesRequest) outcome.Result
	CreateYearly(ctx context.Context, r calendar.SeriesRequest) outcome.Result
	DeleteEvent(ctx context.Context, t calendar.Target) outcome.Result
	EditSubject(ctx context.Context, t calendar.Target, subject string) outcome.Result
	EditDescription(ctx context.Context, t calendar.Target, description, contentType string) outcome.Result
	EditDateTime(ctx context.Context, t calendar.Target, c calendar.DateTimeChange) outcome.Result
	ModifyAttendees(ctx context.Context, t calendar.Target, emails []string, mode string) outcome.Result
	BirthdayReminder(ctx context.Context, r calendar.BirthdayRequest) outcome.Result
}

// Server provides the HTTP API.
type Server struct {
	flows  Flows
	logger *slog.Logger
	mux    *http.ServeMux
}

// NewServer constructs a new Server.
func NewServer(flows Flows, logger *slog.Logger) *Server {
	s := &Server{
		flows:  flows,
		logger: logger,
		mux:    http.NewServeMux(),
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler wrapped with request logging.
func (s *Server) Handler() http.Handler {
	return s.logRequests(s.mux)
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting HTTP server", "listen", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		s.logger.Info("Shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)

	s.mux.HandleFunc("POST /api/CreateEvent", s.eventRoute(func(ctx context.Context, b *eventBody) outcome.Result {
		return s.flows.CreateEvent(ctx, b.event())
	}))
	s.mux.HandleFunc("POST /api/getAllEvents", s.handleGetAllEvents)
	s.mux.HandleFunc("POST /api/deleteEvent", s.eventRoute(func(ctx context.Context, b *eventBody) outcome.Result {
		return s.flows.DeleteEvent(ctx, b.target())
	}))
	s.mux.HandleFunc("POST /api/editEventSubject", s.eventRoute(func(ctx context.Context, b *eventBody) outcome.Result {
		return s.flows.EditSubject(ctx, b.target(), b.Subject)
	}))
	s.mux.HandleFunc("POST /api/editEventDescription", s.eventRoute(func(ctx context.Context, b *eventBody) outcome.Result {
		return s.flows.EditDescription(ctx, b.target(), b.Description, b.ContentType)
	}))
	s.mux.HandleFunc("POST /api/editEventDateTime", s.eventRoute(func(ctx context.Context, b *eventBody) outcome.Result {
		return s.flows.EditDateTime(ctx, b.target(), calendar.DateTimeChange{
			StartDate: b.StartDate,
			EndDate:   b.EndDate,
			StartTime: b.StartTime,
			EndTime:   b.EndTime,
		})
	}))
	s.mux.HandleFunc("POST /api/addAttendee", s.eventRoute(func(ctx context.Context, b *eventBody) outcome.Result {
		return s.flows.ModifyAttendees(ctx, b.target(), b.Attendees, "merge")
	}))
	s.mux.HandleFunc("POST /api/modifyAttendees", s.eventRoute(func(ctx context.Context, b *eventBody) outcome.Result {
		return s.flows.ModifyAttendees(ctx, b.target(), b.Attendees, b.Mode)
	}))
	s.mux.HandleFunc("POST /api/dailyEvents", s.eventRoute(func(ctx context.Context, b *eventBody) outcome.Result {
		return s.flows.CreateDaily(ctx, b.series())
	}))
	s.mux.HandleFunc("POST /api/weeklyEvents", s.eventRoute(func(ctx context.Context, b *eventBody) outcome.Result {
		return s.flows.CreateWeekly(ctx, b.series())
	}))
	s.mux.HandleFunc("POST /api/absoluteMonthlyEvents", s.eventRoute(func(ctx context.Context, b *eventBody) outcome.Result {
		return s.flows.CreateMonthly(ctx, b.series())
	}))
	s.mux.HandleFunc("POST /api/absoluteYearlyEvents", s.eventRoute(func(ctx context.Context, b *eventBody) outcome.Result {
		return s.flows.CreateYearly(ctx, b.series())
	}))
	s.mux.HandleFunc("POST /api/birthday_reminder_with_email", s.handleBirthday)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeText(w, http.StatusOK, "OK")
}

// eventRoute decodes an eventBody and renders the flow's outcome.
func (s *Server) eventRoute(flow func(context.Context, *eventBody) outcome.Result) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body eventBody
		if !s.decode(w, r, &body) {
			return
		}
		s.render(w, flow(r.Context(), &body))
	}
}

func (s *Server) handleGetAllEvents(w http.ResponseWriter, r *http.Request) {
	var body eventBody
	if !s.decode(w, r, &body) {
		return
	}
	res := s.flows.Events(r.Context(), body.user(), body.Date, body.Timezone)
	if res.Kind != outcome.OK {
		s.render(w, res)
		return
	}
	events, _ := res.Data.([]models.Event)

	if strings.EqualFold(body.Format, "ics") {
		loc, _ := time.LoadLocation(body.Timezone)
		var buf bytes.Buffer
		if err := ics.Encode(&buf, events, loc, time.Now()); err != nil {
			s.logger.Error("Failed to export events", "error", err)
			writeText(w, http.StatusOK, "false")
			return
		}
		w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(buf.Bytes())
		return
	}

	var b strings.Builder
	for _, ev := range events {
		b.WriteString("- ")
		b.WriteString(ev.Subject)
		b.WriteString("\n")
	}
	writeText(w, http.StatusOK, b.String())
}

func (s *Server) handleBirthday(w http.ResponseWriter, r *http.Request) {
	var body birthdayBody
	if !s.decode(w, r, &body) {
		return
	}
	s.render(w, s.flows.BirthdayReminder(r.Context(), body.request()))
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err == nil {
		err = json.Unmarshal(data, v)
	}
	if err != nil {
		s.logger.Warn("Invalid request body", "path", r.URL.Path, "error", err)
		writeText(w, http.StatusBadRequest, "Invalid JSON body.")
		return false
	}
	return true
}

// render flattens an outcome: caller mistakes are 400 with the reason, every
// other negative outcome is a plain "false".
func (s *Server) render(w http.ResponseWriter, res outcome.Result) {
	switch res.Kind {
	case outcome.OK:
		if res.Message != "" {
			writeText(w, http.StatusOK, res.Message)
			return
		}
		writeJSON(w, http.StatusCreated, res.Data)
	case outcome.Recurrence:
		writeText(w, http.StatusOK, "recurrence")
	case outcome.InvalidInput:
		writeText(w, http.StatusBadRequest, res.Message)
	default:
		s.logger.Info("Request ended without result", "outcome", res.Kind.String(), "reason", res.Message)
		writeText(w, http.StatusOK, "false")
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)
		s.logger.Info("HTTP request", "request_id", id, "method", r.Method, "path", r.URL.Path,
			"status", rec.status, "duration", time.Since(start))
	})
}

func writeText(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, msg)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
