// Package source describes the pages channel data is scraped from.
//
// each source is a pure description: how to turn a query into a url, what
// headers to send, how to retry, and how to turn the fetched page into a
// Result. the reconciler walks the configured descriptors in order and never
// special cases any of them.
//
// a source method generally has this structure:
// 1. transform the query into a url (and headers).
// 2. make the request (retried on transport failures).
// 3. make assertions on response validity (is this the page we asked for?).
// 4. transform the page into a Result, any field it can't find is left nil.
package source

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"chandir/lib/extract"
	"chandir/lib/fetch"
	"chandir/lib/retry"

	"github.com/mazen160/go-random"
)

// ErrShapeMismatch is returned by Parse when the page describes a different
// channel than the one requested, usually a stale or redirected response.
var ErrShapeMismatch = errors.New("page does not match the requested channel")

// Request is what a source is asked for.
type Request struct {
	// the handle, id or raw input to look up, pages describing a
	// different channel are a shape mismatch
	Query string
	// counts resolved so far by earlier sources
	Known Counts
}

type Identity struct {
	Title    string
	Pfp      string
	Handle   string
	ID       string
	Verified bool
}

type Result struct {
	Identity Identity
	Counts   Counts
	// the page explicitly states the subscriber count is hidden
	HiddenSubs bool
}

type Descriptor struct {
	Name string
	// builds the url for a query
	URL     func(query string) (string, error)
	Headers map[string]string
	Retry   retry.Policy
	Parse   func(ctx context.Context, page string, req Request) (Result, error)
	// the metrics this source may fill in
	Fills []extract.Metric
	// whether the identity fields (title, avatar, handle...) from this
	// source are used
	Identity bool
	// returns a url for the same page that bypasses caches, nil disables
	// the refetch on a shape mismatch
	Bust func(rawUrl string) (string, error)
	// nil uses the reconciler's fetcher
	Fetcher fetch.Fetcher
}

// Wants reports whether the source can fill any of the given metrics.
func (d Descriptor) Wants(missing []extract.Metric) bool {
	for _, m := range missing {
		for _, f := range d.Fills {
			if m == f {
				return true
			}
		}
	}
	return false
}

const cacheBustParam = "_cb"

// CacheBust appends a random query parameter to a url.
func CacheBust(rawUrl string) (string, error) {
	parsed, err := url.Parse(rawUrl)
	if err != nil {
		return "", fmt.Errorf("cache bust %s: %w", rawUrl, err)
	}
	token, err := random.String(12)
	if err != nil {
		return "", fmt.Errorf("cache bust token: %w", err)
	}
	query := parsed.Query()
	query.Set(cacheBustParam, token)
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}
