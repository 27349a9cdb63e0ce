// Package webhook reads solar data from the n8n webhooks that front the
// energy monitor, the forecast service and the history sheet.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/gehringer/solarboard/pkg/common"
	"github.com/gehringer/solarboard/pkg/log"
	"github.com/gehringer/solarboard/pkg/metrics"
	"github.com/gehringer/solarboard/pkg/types"
	"github.com/levenlabs/go-lflag"
)

// Default webhook endpoints.
const (
	DefaultHourlyURL  = "https://n8n.gehringer.fr/webhook/solar-data"
	DefaultAstroURL   = "https://n8n.gehringer.fr/webhook/astro-data"
	DefaultHistoryURL = "https://n8n.gehringer.fr/webhook/solar-history"

	DefaultTimeout = 15 * time.Second
)

// upstreamName labels webhook calls in metrics.
const upstreamName = "webhook"

// Client fetches and normalizes webhook payloads.
type Client struct {
	urls      map[types.DataType]string
	sourceURL string
	client    *http.Client
	metrics   *metrics.Metrics
}

// New returns a Client for the given per-type URLs. sourceURL may be empty
// when the snapshot collector is not used.
func New(urls map[types.DataType]string, sourceURL string, timeout time.Duration, m *metrics.Metrics) *Client {
	return &Client{
		urls:      urls,
		sourceURL: sourceURL,
		client:    common.HTTPClient(timeout),
		metrics:   m,
	}
}

// Configured registers the webhook flags and returns a Client that is ready
// once flags are parsed.
func Configured(m *metrics.Metrics) *Client {
	c := &Client{metrics: m}
	hourly := lflag.String("webhook-hourly-url", DefaultHourlyURL, "Webhook returning the hourly rows for a date")
	astro := lflag.String("webhook-astro-url", DefaultAstroURL, "Webhook returning sunrise, sunset and solar noon for a date")
	history := lflag.String("webhook-history-url", DefaultHistoryURL, "Webhook returning the daily history sheet")
	source := lflag.String("webhook-source-url", "", "Webhook returning the combined telemetry and forecast payload used by the snapshot collector")
	timeout := lflag.Duration("webhook-timeout", DefaultTimeout, "Timeout for each webhook request")

	lflag.Do(func() {
		c.urls = map[types.DataType]string{
			types.DataTypeHourly:  *hourly,
			types.DataTypeAstro:   *astro,
			types.DataTypeHistory: *history,
		}
		c.sourceURL = *source
		c.client = common.HTTPClient(*timeout)
		if err := c.Validate(); err != nil {
			panic(fmt.Sprintf("webhook validation failed: %v", err))
		}
	})

	return c
}

// Validate ensures every configured URL parses.
func (c *Client) Validate() error {
	for _, t := range types.DataTypes {
		u := c.urls[t]
		if u == "" {
			return fmt.Errorf("webhook-%s-url is required", t)
		}
		if _, err := url.Parse(u); err != nil {
			return fmt.Errorf("failed to parse %s webhook url (%s): %w", t, u, err)
		}
	}
	if c.sourceURL != "" {
		if _, err := url.Parse(c.sourceURL); err != nil {
			return fmt.Errorf("failed to parse source webhook url (%s): %w", c.sourceURL, err)
		}
	}
	return nil
}

// HasSource reports whether a source webhook is configured.
func (c *Client) HasSource() bool {
	return c.sourceURL != ""
}

// Fetch calls the webhook for t with the date query parameter and returns
// the response normalized to an array.
func (c *Client) Fetch(ctx context.Context, t types.DataType, date string) ([]json.RawMessage, error) {
	base, ok := c.urls[t]
	if !ok {
		return nil, fmt.Errorf("unsupported data type: %q", t)
	}
	body, err := c.get(ctx, base, date)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s data: %w", t, err)
	}
	items, err := Normalize(body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s data: %w", t, err)
	}
	return items, nil
}

func (c *Client) get(ctx context.Context, base, date string) ([]byte, error) {
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("failed to parse url: %w", err)
	}
	q := u.Query()
	q.Set("date", date)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	log.Ctx(ctx).DebugContext(ctx, "calling webhook", slog.String("url", u.String()))

	start := time.Now()
	body, status, err := common.Fetch(c.client, req)
	c.metrics.ObserveUpstream(upstreamName, start, err)
	if err != nil {
		log.Ctx(ctx).ErrorContext(
			ctx,
			"webhook request failed",
			slog.String("url", u.String()),
			slog.Int("status", status),
			slog.Any("error", err),
		)
		return nil, err
	}

	log.Ctx(ctx).DebugContext(
		ctx,
		"webhook responded",
		slog.String("url", u.String()),
		slog.Int("status", status),
		slog.Int("bytes", len(body)),
	)
	return body, nil
}

// Normalize turns a webhook body into a list of items. The webhooks answer
// either with a JSON array or with a single object, which becomes a
// one-element list.
func Normalize(body []byte) ([]json.RawMessage, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, common.ErrEmptyResponse
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("%w: body is not valid JSON", common.ErrMalformedResponse)
	}
	switch {
	case bytes.Equal(body, []byte("null")), bytes.Equal(body, []byte("false")):
		return nil, common.ErrNoData
	case body[0] == '[':
		var items []json.RawMessage
		if err := json.Unmarshal(body, &items); err != nil {
			return nil, fmt.Errorf("%w: %w", common.ErrMalformedResponse, err)
		}
		if items == nil {
			items = []json.RawMessage{}
		}
		return items, nil
	default:
		return []json.RawMessage{json.RawMessage(body)}, nil
	}
}

func decodeAll[T any](items []json.RawMessage) ([]T, error) {
	out := make([]T, 0, len(items))
	for i, item := range items {
		var v T
		if err := json.Unmarshal(item, &v); err != nil {
			return nil, fmt.Errorf("%w: item %d: %w", common.ErrMalformedResponse, i, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// Hourly returns the stored hourly rows for date.
func (c *Client) Hourly(ctx context.Context, date string) ([]types.HourlyRecord, error) {
	items, err := c.Fetch(ctx, types.DataTypeHourly, date)
	if err != nil {
		return nil, err
	}
	return decodeAll[types.HourlyRecord](items)
}

// Astro returns the astro records for date.
func (c *Client) Astro(ctx context.Context, date string) ([]types.AstroRecord, error) {
	items, err := c.Fetch(ctx, types.DataTypeAstro, date)
	if err != nil {
		return nil, err
	}
	return decodeAll[types.AstroRecord](items)
}

// History returns the daily history up to date, oldest first as the sheet
// stores it.
func (c *Client) History(ctx context.Context, date string) ([]types.HistoryEntry, error) {
	items, err := c.Fetch(ctx, types.DataTypeHistory, date)
	if err != nil {
		return nil, err
	}
	rows, err := decodeAll[map[string]any](items)
	if err != nil {
		return nil, err
	}
	entries, err := types.DecodeHistoryEntries(rows)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrMalformedResponse, err)
	}
	return entries, nil
}

// ErrNoSource is returned by Source when no source webhook is configured.
var ErrNoSource = errors.New("source webhook is not configured")

// Source returns the combined telemetry and forecast payload for date. When
// the webhook wraps it in an array the first element is used.
func (c *Client) Source(ctx context.Context, date string) (types.SourcePayload, error) {
	if c.sourceURL == "" {
		return types.SourcePayload{}, ErrNoSource
	}
	body, err := c.get(ctx, c.sourceURL, date)
	if err != nil {
		return types.SourcePayload{}, fmt.Errorf("failed to fetch source data: %w", err)
	}
	items, err := Normalize(body)
	if err != nil {
		return types.SourcePayload{}, fmt.Errorf("failed to read source data: %w", err)
	}
	if len(items) == 0 {
		return types.SourcePayload{}, fmt.Errorf("failed to read source data: %w", common.ErrNoData)
	}
	var p types.SourcePayload
	if err := json.Unmarshal(items[0], &p); err != nil {
		return types.SourcePayload{}, fmt.Errorf("%w: source payload: %w", common.ErrMalformedResponse, err)
	}
	return p, nil
}
