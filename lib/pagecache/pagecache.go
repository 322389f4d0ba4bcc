// Package pagecache keeps fetched pages on disk for a limited time so
// repeated development runs don't hit the remote sites again.
package pagecache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"chandir/lib/fetch"

	"github.com/PuerkitoBio/purell"
	"github.com/dgraph-io/badger/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("chandir.lib.pagecache")

var ErrNotFound = errors.New("page not cached")

type Cache struct {
	db  *badger.DB
	ttl time.Duration
}

// Open opens (or creates) a cache at dir. an empty dir keeps the cache in
// memory.
func Open(dir string, ttl time.Duration) (*Cache, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open page cache: %w", err)
	}
	return &Cache{db: db, ttl: ttl}, nil
}

func (c *Cache) Close() error {
	return c.db.Close()
}

// Key normalizes a url so trivially different spellings share an entry.
func Key(rawUrl string) (string, error) {
	parsed, err := url.Parse(rawUrl)
	if err != nil {
		return "", err
	}
	return purell.NormalizeURL(
		parsed,
		purell.FlagsSafe|
			purell.FlagsUsuallySafeNonGreedy|
			purell.FlagRemoveDirectoryIndex|
			purell.FlagRemoveFragment|
			purell.FlagSortQuery,
	), nil
}

func (c *Cache) Get(ctx context.Context, rawUrl string) (string, error) {
	_, span := tracer.Start(ctx, "Get")
	defer span.End()

	key, err := Key(rawUrl)
	if err != nil {
		span.SetStatus(codes.Error, "failed to create cache key")
		return "", err
	}
	span.SetAttributes(attribute.String("cache_key", key))

	var body []byte
	err = c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		body, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		span.SetAttributes(attribute.Bool("hit", false))
		return "", ErrNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to read item from badger")
		return "", err
	}
	span.SetAttributes(attribute.Bool("hit", true))
	return string(body), nil
}

func (c *Cache) Put(ctx context.Context, rawUrl, body string) error {
	_, span := tracer.Start(ctx, "Put")
	defer span.End()

	key, err := Key(rawUrl)
	if err != nil {
		return err
	}
	err = c.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(key), []byte(body))
		if c.ttl > 0 {
			entry = entry.WithTTL(c.ttl)
		}
		return txn.SetEntry(entry)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to write item to badger")
		return err
	}
	return nil
}

// Cached wraps a fetcher, serving pages from the cache when possible and
// storing every successful fetch. cache failures are logged, never returned.
type Cached struct {
	Cache *Cache
	Next  fetch.Fetcher
}

func (c Cached) Fetch(ctx context.Context, url string, headers map[string]string) (string, error) {
	body, err := c.Cache.Get(ctx, url)
	if err == nil {
		slog.DebugContext(ctx, "page cache hit", "url", url)
		return body, nil
	}
	if !errors.Is(err, ErrNotFound) {
		slog.WarnContext(ctx, "page cache read failed", "url", url, "err", err)
	}

	body, err = c.Next.Fetch(ctx, url, headers)
	if err != nil {
		return "", err
	}
	err = c.Cache.Put(ctx, url, body)
	if err != nil {
		slog.WarnContext(ctx, "page cache write failed", "url", url, "err", err)
	}
	return body, nil
}
