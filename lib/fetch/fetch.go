// Package fetch retrieves pages over HTTP as decoded text.
package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"chandir/lib/restyutil"
	"chandir/lib/telemetry"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"golang.org/x/net/html/charset"
)

// Fetcher returns the body of a page as text.
type Fetcher interface {
	Fetch(ctx context.Context, url string, headers map[string]string) (string, error)
}

// StatusError is returned for any response outside of 2xx.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.Code)
}

// Temporary reports whether the same request may succeed later. 403 is
// included since bot walls tend to answer with it intermittently.
func (e *StatusError) Temporary() bool {
	switch e.Code {
	case http.StatusForbidden, http.StatusRequestTimeout, http.StatusTooEarly, http.StatusTooManyRequests:
		return true
	}
	return e.Code >= 500
}

// ErrInterstitial is returned when a 2xx response is a captcha, consent or
// anti-bot page rather than the requested content.
var ErrInterstitial = errors.New("interstitial page")

// Retryable reports whether err is a transport failure worth another try.
func Retryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Temporary()
	}
	return true
}

var DefaultInterstitialMarkers = []string{
	`id="captcha-form"`,
	"our systems have detected unusual traffic",
	`action="https://consent.youtube.com`,
	"<title>just a moment...</title>",
	"cf-chl-bypass",
	"attention required! | cloudflare",
}

type Options struct {
	UserAgent      string
	AcceptLanguage string
	Accept         string
	Cookie         string
	// per request, 0 means 30 seconds
	Timeout time.Duration
	// routes requests through a transport that mimics a browser tls handshake
	CloudflareBypass bool
	// matched case-insensitively against the body of every 2xx response,
	// nil means DefaultInterstitialMarkers
	InterstitialMarkers []string
	// if set, every exchange is written to it
	Dump restyutil.InstrumentOutput
	// defaults to "chandir/http"
	TracerName string
}

type Client struct {
	http    *resty.Client
	markers []string
}

func NewClient(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.TracerName == "" {
		opts.TracerName = "chandir/http"
	}
	markers := opts.InterstitialMarkers
	if markers == nil {
		markers = DefaultInterstitialMarkers
	}

	client := resty.New()
	client.SetTimeout(opts.Timeout)
	if opts.CloudflareBypass {
		client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
	}
	headers := map[string]string{
		"user-agent":      opts.UserAgent,
		"accept-language": opts.AcceptLanguage,
		"accept":          opts.Accept,
		"cookie":          opts.Cookie,
	}
	for k, v := range headers {
		if v != "" {
			client.SetHeader(k, v)
		}
	}

	telemetry.InstrumentResty(client, opts.TracerName)
	restyutil.InstrumentClient(client, opts.Dump)

	lowered := make([]string, len(markers))
	for i, m := range markers {
		lowered[i] = strings.ToLower(m)
	}
	return &Client{http: client, markers: lowered}
}

func (c *Client) Fetch(ctx context.Context, url string, headers map[string]string) (string, error) {
	res, err := c.http.R().
		SetContext(ctx).
		SetHeaders(headers).
		Get(url)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", url, err)
	}
	if res.StatusCode() < 200 || res.StatusCode() > 299 {
		return "", &StatusError{URL: url, Code: res.StatusCode()}
	}

	body, err := decode(res.Body(), res.Header().Get("Content-Type"))
	if err != nil {
		return "", fmt.Errorf("decode %s: %w", url, err)
	}
	if c.interstitial(body) {
		return "", fmt.Errorf("fetch %s: %w", url, ErrInterstitial)
	}
	return body, nil
}

func (c *Client) interstitial(body string) bool {
	lowerBody := strings.ToLower(body)
	for _, m := range c.markers {
		if strings.Contains(lowerBody, m) {
			return true
		}
	}
	return false
}

// decode converts the body to utf-8 according to the content type or any
// <meta charset> in the document.
func decode(body []byte, contentType string) (string, error) {
	reader, err := charset.NewReader(bytes.NewReader(body), contentType)
	if err != nil {
		return string(body), nil
	}
	decoded, err := io.ReadAll(reader)
	if err != nil {
		return "", err
	}
	return string(decoded), nil
}
