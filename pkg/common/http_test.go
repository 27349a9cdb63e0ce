package common

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPClient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "SolarBoard/"+Version(), r.Header.Get("User-Agent"))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	timeout := 5 * time.Second
	client := HTTPClient(timeout)
	assert.Equal(t, timeout, client.Timeout)
	assert.NotNil(t, client.Transport)

	req, err := http.NewRequest("GET", server.URL, nil)
	require.NoError(t, err)
	req.Header.Set("User-Agent", "overridden")

	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "overridden", req.Header.Get("User-Agent"), "original request is not modified")
}

func TestVersion(t *testing.T) {
	assert.NotEmpty(t, Version())
	assert.NotContains(t, Version(), "\n")
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func TestNewHTTPClientBase(t *testing.T) {
	var called bool
	client := NewHTTPClient(time.Second, roundTripFunc(func(r *http.Request) (*http.Response, error) {
		called = true
		assert.Equal(t, UserAgent(), r.Header.Get("User-Agent"))
		return nil, errors.New("no network")
	}))
	_, err := client.Get("http://example.invalid")
	assert.Error(t, err)
	assert.True(t, called)
}

func TestFetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			w.Write([]byte(`[1]`))
		case "/empty":
			w.WriteHeader(http.StatusOK)
		case "/fail":
			w.WriteHeader(http.StatusBadGateway)
			w.Write([]byte("workflow crashed"))
		case "/slow":
			time.Sleep(200 * time.Millisecond)
			w.Write([]byte(`[]`))
		}
	}))
	defer server.Close()

	get := func(t *testing.T, client *http.Client, path string) ([]byte, int, error) {
		req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, server.URL+path, nil)
		require.NoError(t, err)
		return Fetch(client, req)
	}
	client := HTTPClient(5 * time.Second)

	t.Run("OK", func(t *testing.T) {
		body, code, err := get(t, client, "/ok")
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, "[1]", string(body))
	})

	t.Run("Empty", func(t *testing.T) {
		_, _, err := get(t, client, "/empty")
		assert.ErrorIs(t, err, ErrEmptyResponse)
	})

	t.Run("HTTP Error", func(t *testing.T) {
		_, code, err := get(t, client, "/fail")
		assert.Equal(t, http.StatusBadGateway, code)
		var herr *HTTPError
		require.ErrorAs(t, err, &herr)
		assert.Equal(t, http.StatusBadGateway, herr.StatusCode)
		assert.Equal(t, "workflow crashed", herr.Body)
		assert.Contains(t, err.Error(), "502")
	})

	t.Run("Timeout", func(t *testing.T) {
		_, _, err := get(t, HTTPClient(20*time.Millisecond), "/slow")
		assert.ErrorIs(t, err, ErrTimeout)
		assert.True(t, IsTimeout(err))
		assert.Contains(t, err.Error(), "after")
	})
}

func TestIsTimeout(t *testing.T) {
	assert.True(t, IsTimeout(context.DeadlineExceeded))
	assert.True(t, IsTimeout(ErrTimeout))
	assert.False(t, IsTimeout(errors.New("nope")))
	assert.False(t, IsTimeout(context.Canceled))
}
