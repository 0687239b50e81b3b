// Package graph is a small Microsoft Graph REST client covering the calendar
// and user endpoints the service needs.
package graph

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/oauth2/microsoft"

	"graphcal/internal/models"
)

const (
	DefaultBaseURL = "https://graph.microsoft.com/v1.0"
	defaultScope   = "https://graph.microsoft.com/.default"

	// maxErrorBody caps how much of a failed response is kept for logging.
	maxErrorBody = 64 << 10
)

// viewFields are the event fields needed to pick a match from a calendar view.
var viewFields = []string{"subject", "start", "end", "type", "recurrence", "seriesMasterId"}

// Credentials identify the app registration used for client-credentials auth.
type Credentials struct {
	TenantID     string
	ClientID     string
	ClientSecret string
}

// RemoteError is a non-success response from Graph.
type RemoteError struct {
	Method string
	Path   string
	Status int
	Body   string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("graph %s %s failed with status %d: %s", e.Method, e.Path, e.Status, e.Body)
}

// Client talks to Microsoft Graph on behalf of the configured app.
type Client struct {
	http    *http.Client
	baseURL string
	logger  *slog.Logger
}

// NewClient creates a Graph client authenticated with the client-credentials
// grant against the tenant's Azure AD token endpoint.
func NewClient(ctx context.Context, logger *slog.Logger, creds Credentials, baseURL string, timeout time.Duration) (*Client, error) {
	if creds.TenantID == "" || creds.ClientID == "" || creds.ClientSecret == "" {
		return nil, fmt.Errorf("graph credentials are incomplete: tenant, client id and client secret are required")
	}
	config := &clientcredentials.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		TokenURL:     microsoft.AzureADEndpoint(creds.TenantID).TokenURL,
		Scopes:       []string{defaultScope},
	}
	httpClient := config.Client(ctx)
	httpClient.Timeout = timeout
	return New(logger, httpClient, baseURL), nil
}

// New wraps an existing HTTP client. It is the seam used by tests.
func New(logger *slog.Logger, httpClient *http.Client, baseURL string) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	hc := *httpClient
	base := hc.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	hc.Transport = &customTransport{Transport: base}
	return &Client{http: &hc, baseURL: strings.TrimSuffix(baseURL, "/"), logger: logger}
}

// CalendarView lists the user's event instances between start and end
// (offset-qualified ISO datetimes), ordered by start time.
func (c *Client) CalendarView(ctx context.Context, user, start, end string) ([]models.Event, error) {
	c.logger.Debug("Fetching calendar view", "user", user, "start", start, "end", end)
	q := url.Values{}
	q.Set("startDateTime", start)
	q.Set("endDateTime", end)
	q.Set("$select", strings.Join(viewFields, ","))
	q.Set("$orderby", "start/dateTime")

	var events []models.Event
	next := "/users/" + url.PathEscape(user) + "/calendarView?" + q.Encode()
	for next != "" {
		var page struct {
			Value    []models.Event `json:"value"`
			NextLink string         `json:"@odata.nextLink"`
		}
		if err := c.do(ctx, http.MethodGet, next, nil, http.StatusOK, &page); err != nil {
			return nil, err
		}
		events = append(events, page.Value...)
		next = page.NextLink
	}

	c.logger.Debug("Fetched calendar view", "user", user, "count", len(events))
	return events, nil
}

// GetEvent fetches one event. When fields are given only those are selected.
func (c *Client) GetEvent(ctx context.Context, user, id string, fields ...string) (*models.Event, error) {
	path := eventPath(user, id)
	if len(fields) > 0 {
		path += "?" + url.Values{"$select": {strings.Join(fields, ",")}}.Encode()
	}
	var ev models.Event
	if err := c.do(ctx, http.MethodGet, path, nil, http.StatusOK, &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}

// CreateEvent creates ev in the user's calendar. Recurring events are posted
// to the events collection and one-time events to the default calendar.
func (c *Client) CreateEvent(ctx context.Context, user string, ev *models.Event) (*models.Event, error) {
	path := "/users/" + url.PathEscape(user) + "/calendar/events"
	if ev.IsRecurring() {
		path = "/users/" + url.PathEscape(user) + "/events"
	}
	var created models.Event
	if err := c.do(ctx, http.MethodPost, path, ev, http.StatusCreated, &created); err != nil {
		return nil, err
	}
	c.logger.Info("Created event", "user", user, "subject", created.Subject, "id", created.ID, "recurring", ev.IsRecurring())
	return &created, nil
}

// PatchEvent sends a partial update containing only the non-empty fields of patch.
func (c *Client) PatchEvent(ctx context.Context, user, id string, patch *models.Event) error {
	if err := c.do(ctx, http.MethodPatch, eventPath(user, id), patch, http.StatusOK, nil); err != nil {
		return err
	}
	c.logger.Info("Updated event", "user", user, "id", id)
	return nil
}

// DeleteEvent removes an event; deleting a series master removes the series.
func (c *Client) DeleteEvent(ctx context.Context, user, id string) error {
	if err := c.do(ctx, http.MethodDelete, eventPath(user, id), nil, http.StatusNoContent, nil); err != nil {
		return err
	}
	c.logger.Info("Deleted event", "user", user, "id", id)
	return nil
}

// UserDisplayName looks up a directory user's display name by address.
func (c *Client) UserDisplayName(ctx context.Context, email string) (string, error) {
	var u struct {
		DisplayName string `json:"displayName"`
	}
	path := "/users/" + url.PathEscape(email) + "?$select=displayName"
	if err := c.do(ctx, http.MethodGet, path, nil, http.StatusOK, &u); err != nil {
		return "", err
	}
	return u.DisplayName, nil
}

func eventPath(user, id string) string {
	return "/users/" + url.PathEscape(user) + "/events/" + url.PathEscape(id)
}

// do performs one request. path is relative to the base URL unless it is an
// absolute link returned by Graph itself.
func (c *Client) do(ctx context.Context, method, path string, body any, want int, out any) error {
	target := path
	if !strings.HasPrefix(path, "http://") && !strings.HasPrefix(path, "https://") {
		target = c.baseURL + path
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("graph %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		rerr := &RemoteError{Method: method, Path: path, Status: resp.StatusCode, Body: string(raw)}
		c.logger.Error("Graph request failed", "method", method, "path", path, "status", resp.StatusCode, "body", string(raw))
		return rerr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
