// Package dataverse reads CRM contacts from a Dataverse (Dynamics 365) OData endpoint.
package dataverse

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/oauth2/microsoft"

	"graphcal/internal/models"
	"graphcal/internal/timeresolve"
)

const apiPath = "/api/data/v9.2"

var (
	// ErrContactNotFound is returned when no contact has the requested address.
	ErrContactNotFound = errors.New("contact not found")
	// ErrMalformedContact is returned when a stored contact field cannot be read.
	ErrMalformedContact = errors.New("malformed contact record")
)

// RemoteError is a non-success response from the OData endpoint.
type RemoteError struct {
	Status int
	Body   string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("dataverse request failed with status %d: %s", e.Status, e.Body)
}

// Client queries one Dataverse organization.
type Client struct {
	http     *http.Client
	resource string
	logger   *slog.Logger
}

// NewClient authenticates against the organization URL with the
// client-credentials grant, scoped to that resource.
func NewClient(ctx context.Context, logger *slog.Logger, tenantID, clientID, clientSecret, resource string, timeout time.Duration) (*Client, error) {
	if resource == "" {
		return nil, fmt.Errorf("dataverse resource URL is not configured")
	}
	config := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     microsoft.AzureADEndpoint(tenantID).TokenURL,
		Scopes:       []string{strings.TrimSuffix(resource, "/") + "/.default"},
	}
	httpClient := config.Client(ctx)
	httpClient.Timeout = timeout
	return New(logger, httpClient, resource), nil
}

// New wraps an already authenticated HTTP client.
func New(logger *slog.Logger, httpClient *http.Client, resource string) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{http: httpClient, resource: strings.TrimSuffix(resource, "/"), logger: logger}
}

// ContactByEmail returns the first contact whose primary address is email.
// A contact without a birthdate is returned with a zero Birthdate.
func (c *Client) ContactByEmail(ctx context.Context, email string) (*models.BirthdayRecord, error) {
	c.logger.Debug("Getting contact details", "email", email)

	q := url.Values{}
	q.Set("$filter", fmt.Sprintf("emailaddress1 eq '%s'", strings.ReplaceAll(email, "'", "''")))
	q.Set("$select", "emailaddress1,fullname,birthdate,contactid")
	target := c.resource + apiPath + "/contacts?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("OData-MaxVersion", "4.0")
	req.Header.Set("OData-Version", "4.0")
	req.Header.Set("x-ms-client-request-id", uuid.NewString())

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to query contacts: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		c.logger.Error("Dataverse request failed", "status", resp.StatusCode, "body", string(raw))
		return nil, &RemoteError{Status: resp.StatusCode, Body: string(raw)}
	}

	var result struct {
		Value []struct {
			ContactID string `json:"contactid"`
			Email     string `json:"emailaddress1"`
			FullName  string `json:"fullname"`
			Birthdate string `json:"birthdate"`
		} `json:"value"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(result.Value) == 0 {
		c.logger.Warn("No contact found", "email", email)
		return nil, ErrContactNotFound
	}

	first := result.Value[0]
	rec := &models.BirthdayRecord{
		ContactID: first.ContactID,
		Email:     first.Email,
		FullName:  first.FullName,
	}
	if first.Birthdate != "" {
		raw, _, _ := strings.Cut(first.Birthdate, "T")
		bd, err := timeresolve.ParseDate(raw)
		if err != nil {
			c.logger.Error("Contact has unreadable birthdate", "contact", first.ContactID, "birthdate", first.Birthdate)
			return nil, fmt.Errorf("%w: contact %s birthdate %q", ErrMalformedContact, first.ContactID, first.Birthdate)
		}
		rec.Birthdate = bd
	}
	return rec, nil
}
