// Package apsystems relays signed requests to the APsystems OpenAPI that
// reports the microinverters' production.
package apsystems

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gehringer/solarboard/pkg/common"
	"github.com/gehringer/solarboard/pkg/log"
	"github.com/gehringer/solarboard/pkg/metrics"
	"github.com/levenlabs/go-lflag"
)

const (
	DefaultBaseURL = "https://api.apsystemsema.com:9282"
	DefaultTimeout = 10 * time.Second

	upstreamName = "apsystems"
)

// Client sends signed GET requests to the OpenAPI.
type Client struct {
	baseURL string
	client  *http.Client
	metrics *metrics.Metrics
	now     func() time.Time
}

// New returns a Client for baseURL. insecure skips TLS verification, which
// the OpenAPI's certificate on port 9282 has historically required.
func New(baseURL string, timeout time.Duration, insecure bool, m *metrics.Metrics) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  common.NewHTTPClient(timeout, transport(insecure)),
		metrics: m,
		now:     time.Now,
	}
}

func transport(insecure bool) http.RoundTripper {
	if !insecure {
		return nil
	}
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	return t
}

// Configured registers the APsystems flags.
func Configured(m *metrics.Metrics) *Client {
	c := &Client{metrics: m, now: time.Now}
	baseURL := lflag.String("apsystems-base-url", DefaultBaseURL, "Base URL of the APsystems OpenAPI")
	timeout := lflag.Duration("apsystems-timeout", DefaultTimeout, "Timeout for each APsystems request")
	insecure := lflag.Bool("apsystems-insecure-skip-verify", false, "Skip TLS certificate verification for the APsystems OpenAPI")

	lflag.Do(func() {
		c.baseURL = strings.TrimRight(*baseURL, "/")
		c.client = common.NewHTTPClient(*timeout, transport(*insecure))
	})

	return c
}

// Do signs and sends a GET for endpoint (a path such as
// "/user/api/v2/systems/summary/ABC123") and returns the upstream JSON as
// is. A body that is not JSON is an ErrMalformedResponse carrying the body.
func (c *Client) Do(ctx context.Context, creds Credentials, endpoint string) (json.RawMessage, error) {
	sig := NewSignature(creds, endpoint, c.now())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set(HeaderAppID, creds.AppID)
	req.Header.Set(HeaderTimestamp, sig.Timestamp)
	req.Header.Set(HeaderNonce, sig.Nonce)
	req.Header.Set(HeaderSignatureMethod, SignatureMethod)
	req.Header.Set(HeaderSignature, sig.Value)

	log.Ctx(ctx).DebugContext(ctx, "calling apsystems", slog.String("endpoint", endpoint))

	start := time.Now()
	body, status, err := common.Fetch(c.client, req)
	if err == nil && !json.Valid(body) {
		err = fmt.Errorf("%w: %s", common.ErrMalformedResponse, body)
	}
	c.metrics.ObserveUpstream(upstreamName, start, err)
	if err != nil {
		log.Ctx(ctx).ErrorContext(
			ctx,
			"apsystems request failed",
			slog.String("endpoint", endpoint),
			slog.Int("status", status),
			slog.Any("error", err),
		)
		return nil, fmt.Errorf("apsystems %s: %w", endpoint, err)
	}
	return json.RawMessage(body), nil
}
