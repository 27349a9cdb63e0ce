package common

import (
	_ "embed"
	"net/http"
	"strings"
	"time"
)

//go:embed VERSION
var version string

// Version is the build version reported in the user agent and /healthz.
func Version() string {
	return strings.TrimSpace(version)
}

// UserAgent is sent on every upstream request.
func UserAgent() string {
	return "SolarBoard/" + Version()
}

type userAgentTransport struct {
	transport http.RoundTripper
	userAgent string
}

// RoundTrip implements http.RoundTripper.
func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// Clone the request to avoid modifying the original request's headers
	// which might be shared or reused
	req = req.Clone(req.Context())
	req.Header.Set("User-Agent", t.userAgent)
	return t.transport.RoundTrip(req)
}

// HTTPClient returns a default http client with a default user-agent set
func HTTPClient(timeout time.Duration) *http.Client {
	return NewHTTPClient(timeout, nil)
}

// NewHTTPClient is HTTPClient over a custom base transport. A nil base uses
// http.DefaultTransport.
func NewHTTPClient(timeout time.Duration, base http.RoundTripper) *http.Client {
	if base == nil {
		base = http.DefaultTransport
	}
	return &http.Client{
		Transport: &userAgentTransport{
			transport: base,
			userAgent: UserAgent(),
		},
		Timeout: timeout,
	}
}
