package testutil

import (
	"context"
	"slices"
	"strings"
	"sync"

	"chandir/lib/fetch"
)

type StubCall struct {
	URL     string
	Headers map[string]string
}

// StubFetcher answers every fetch with Respond and records the calls made.
// it is safe for concurrent use.
type StubFetcher struct {
	Respond func(url string, attempt int) (string, error)

	mu       sync.Mutex
	calls    []StubCall
	attempts map[string]int
}

// NewStubFetcher serves the page of the longest key contained in the
// requested url, anything else is a 404.
func NewStubFetcher(pages map[string]string) *StubFetcher {
	keys := make([]string, 0, len(pages))
	for k := range pages {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b string) int {
		return len(b) - len(a)
	})

	return &StubFetcher{
		Respond: func(url string, _ int) (string, error) {
			for _, k := range keys {
				if strings.Contains(url, k) {
					return pages[k], nil
				}
			}
			return "", &fetch.StatusError{URL: url, Code: 404}
		},
	}
}

func (f *StubFetcher) Fetch(ctx context.Context, url string, headers map[string]string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	f.mu.Lock()
	f.calls = append(f.calls, StubCall{URL: url, Headers: headers})
	if f.attempts == nil {
		f.attempts = map[string]int{}
	}
	f.attempts[url]++
	attempt := f.attempts[url]
	f.mu.Unlock()

	return f.Respond(url, attempt)
}

func (f *StubFetcher) Calls() []StubCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.calls)
}

// CallsTo counts the calls whose url contains substr.
func (f *StubFetcher) CallsTo(substr string) int {
	count := 0
	for _, c := range f.Calls() {
		if strings.Contains(c.URL, substr) {
			count++
		}
	}
	return count
}
