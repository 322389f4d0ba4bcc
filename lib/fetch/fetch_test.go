package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestClient() *Client {
	return NewClient(Options{
		UserAgent:      "test-agent",
		AcceptLanguage: "en-US,en;q=0.9",
		Accept:         "text/html,*/*",
		Cookie:         "CONSENT=YES+1",
	})
}

func TestFetchHeaders(t *testing.T) {
	var received http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		received = r.Header.Clone()
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, "<html>1,234 subscribers</html>")
	}))
	defer srv.Close()

	body, err := newTestClient().Fetch(context.Background(), srv.URL, map[string]string{
		"referer": "https://socialblade.com/",
	})
	require.NoError(t, err)
	require.Equal(t, "<html>1,234 subscribers</html>", body)

	require.Equal(t, "test-agent", received.Get("User-Agent"))
	require.Equal(t, "en-US,en;q=0.9", received.Get("Accept-Language"))
	require.Equal(t, "text/html,*/*", received.Get("Accept"))
	require.Equal(t, "CONSENT=YES+1", received.Get("Cookie"))
	require.Equal(t, "https://socialblade.com/", received.Get("Referer"))
}

func TestFetchStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := newTestClient().Fetch(context.Background(), srv.URL, nil)
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	require.Equal(t, http.StatusServiceUnavailable, statusErr.Code)
	require.True(t, Retryable(err))
}

func TestFetchInterstitial(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><head><title>Just a moment...</title></head></html>`)
	}))
	defer srv.Close()

	_, err := newTestClient().Fetch(context.Background(), srv.URL, nil)
	require.ErrorIs(t, err, ErrInterstitial)
	require.True(t, Retryable(err))
}

func TestFetchCharset(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=iso-8859-1")
		// "Café" in latin-1
		w.Write([]byte{'C', 'a', 'f', 0xe9})
	}))
	defer srv.Close()

	body, err := newTestClient().Fetch(context.Background(), srv.URL, nil)
	require.NoError(t, err)
	require.Equal(t, "Café", body)
}

func TestRetryable(t *testing.T) {
	require.False(t, Retryable(nil))
	require.False(t, Retryable(context.Canceled))
	require.False(t, Retryable(&StatusError{Code: http.StatusNotFound}))
	require.True(t, Retryable(&StatusError{Code: http.StatusTooManyRequests}))
	require.True(t, Retryable(&StatusError{Code: http.StatusForbidden}))
	require.True(t, Retryable(errors.New("connection reset by peer")))
}
