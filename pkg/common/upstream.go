package common

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
)

// Upstream error kinds. Callers wrap them with context; use errors.Is to
// classify.
var (
	ErrTimeout           = errors.New("upstream request timed out")
	ErrEmptyResponse     = errors.New("upstream returned an empty response")
	ErrMalformedResponse = errors.New("upstream returned a malformed response")
	ErrNoData            = errors.New("upstream returned no data")
)

// HTTPError is a non-2xx reply from an upstream.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("upstream returned HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("upstream returned HTTP %d: %s", e.StatusCode, e.Body)
}

// IsTimeout reports whether err came from a deadline or a network timeout.
func IsTimeout(err error) bool {
	if errors.Is(err, ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// maxErrorBody caps how much of an error body is kept in an HTTPError.
const maxErrorBody = 1024

// Fetch sends req and returns the body of a 2xx response. Timeouts are
// reported as ErrTimeout with the elapsed time, non-2xx replies as
// *HTTPError and an empty body as ErrEmptyResponse.
func Fetch(client *http.Client, req *http.Request) ([]byte, int, error) {
	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		if IsTimeout(err) {
			return nil, 0, fmt.Errorf("%w after %s", ErrTimeout, time.Since(start).Round(time.Millisecond))
		}
		return nil, 0, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		if IsTimeout(err) {
			return nil, resp.StatusCode, fmt.Errorf("%w after %s", ErrTimeout, time.Since(start).Round(time.Millisecond))
		}
		return nil, resp.StatusCode, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		if len(body) > maxErrorBody {
			body = body[:maxErrorBody]
		}
		return nil, resp.StatusCode, &HTTPError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	if len(body) == 0 {
		return nil, resp.StatusCode, ErrEmptyResponse
	}
	return body, resp.StatusCode, nil
}
