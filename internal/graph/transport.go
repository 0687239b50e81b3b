package graph

import (
	"net/http"

	"github.com/google/uuid"
)

const userAgent = "graphcal/1.0"

// customTransport stamps every outgoing Graph request with a correlation id
// and the service user agent.
type customTransport struct {
	Transport http.RoundTripper
}

// RoundTrip adds the required headers to a copy of req.
func (t *customTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	if req.Header.Get("client-request-id") == "" {
		req.Header.Set("client-request-id", uuid.NewString())
	}
	req.Header.Set("User-Agent", userAgent)
	return t.Transport.RoundTrip(req)
}
