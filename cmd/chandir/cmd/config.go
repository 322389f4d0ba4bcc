package cmd

import (
	"fmt"
	"os"
	"time"

	"chandir/lib/configutil"
	"chandir/lib/fetch"
	"chandir/lib/retry"
	"chandir/lib/scrapers/socialblade"
	"chandir/lib/scrapers/youtube"
	"chandir/lib/source"
	"chandir/services/directory"
)

type PacingConfig struct {
	BaseMs   int `json:"base_ms"`
	JitterMs int `json:"jitter_ms"`
}

type HttpConfig struct {
	UserAgent      string `json:"user_agent"`
	AcceptLanguage string `json:"accept_language"`
	Accept         string `json:"accept"`
	Cookie         string `json:"cookie"`
	TimeoutSec     int    `json:"timeout_sec"`
}

// a cache without a dir is disabled
type CacheConfig struct {
	Dir        string `json:"dir"`
	TtlMinutes int    `json:"ttl_minutes"`
}

type SourceConfig struct {
	Name             string `json:"name"`
	Attempts         int    `json:"attempts"`
	BaseDelayMs      int    `json:"base_delay_ms"`
	Window           int    `json:"window"`
	CloudflareBypass bool   `json:"cloudflare_bypass"`
}

type PlausibilityConfig struct {
	MaxVideos int64 `json:"max_videos"`
	MinViews  int64 `json:"min_views"`
}

type Config struct {
	Channels string       `json:"channels"`
	Output   string       `json:"output"`
	Pacing   PacingConfig `json:"pacing"`
	Http     HttpConfig   `json:"http"`
	Cache    CacheConfig  `json:"cache"`
	// in priority order, the first one is the primary
	Sources            []SourceConfig     `json:"sources"`
	Plausibility       PlausibilityConfig `json:"plausibility"`
	MismatchSimilarity float64            `json:"mismatch_similarity"`
}

var defaultConfig = Config{
	Channels: "channels.json",
	Output:   "web/data.json",
	Pacing: PacingConfig{
		BaseMs:   int(directory.DefaultPacer.Base.Milliseconds()),
		JitterMs: int(directory.DefaultPacer.Jitter.Milliseconds()),
	},
	Http: HttpConfig{
		UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124 Safari/537.36",
		AcceptLanguage: "en-US,en;q=0.9",
		Accept:         "text/html,*/*",
		Cookie:         "CONSENT=YES+1",
		TimeoutSec:     30,
	},
	Cache: CacheConfig{
		TtlMinutes: 60,
	},
	Sources: []SourceConfig{
		{Name: youtube.Name},
		{Name: socialblade.Name},
	},
	Plausibility: PlausibilityConfig{
		MaxVideos: source.DefaultPlausibility.MaxVideos,
		MinViews:  source.DefaultPlausibility.MinViews,
	},
	MismatchSimilarity: youtube.DefaultOptions.MismatchSimilarity,
}

// LoadConfig reads the config at path, a missing file means every default.
func LoadConfig(path string) (Config, error) {
	config, err := configutil.ReadConfig[Config](path)
	if os.IsNotExist(err) {
		return defaultConfig, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return configutil.WithDefaults(config, defaultConfig)
}

func (c Config) plausibility() source.Plausibility {
	return source.Plausibility{
		MaxVideos: c.Plausibility.MaxVideos,
		MinViews:  c.Plausibility.MinViews,
	}
}

func (c Config) fetchOptions() fetch.Options {
	return fetch.Options{
		UserAgent:      c.Http.UserAgent,
		AcceptLanguage: c.Http.AcceptLanguage,
		Accept:         c.Http.Accept,
		Cookie:         c.Http.Cookie,
		Timeout:        time.Duration(c.Http.TimeoutSec) * time.Second,
	}
}

func overrideRetry(policy retry.Policy, sc SourceConfig) retry.Policy {
	if sc.Attempts > 0 {
		policy.Attempts = sc.Attempts
	}
	if sc.BaseDelayMs > 0 {
		policy.BaseDelay = time.Duration(sc.BaseDelayMs) * time.Millisecond
	}
	return policy
}

type sourceFactory func(sc SourceConfig, c Config) source.Descriptor

var sourceRegistry = map[string]sourceFactory{
	youtube.Name: func(sc SourceConfig, c Config) source.Descriptor {
		opts := youtube.DefaultOptions
		opts.Retry = overrideRetry(opts.Retry, sc)
		if sc.Window > 0 {
			opts.Window = sc.Window
		}
		opts.MismatchSimilarity = c.MismatchSimilarity
		return youtube.Descriptor(opts)
	},
	socialblade.Name: func(sc SourceConfig, c Config) source.Descriptor {
		opts := socialblade.DefaultOptions
		opts.Retry = overrideRetry(opts.Retry, sc)
		if sc.Window > 0 {
			opts.Window = sc.Window
		}
		opts.Plausibility = c.plausibility()
		return socialblade.Descriptor(opts)
	},
}

// Descriptors builds the configured sources in order. `bypass` is used by
// sources that ask for the cloudflare bypass, everything else uses the
// reconciler's fetcher.
func (c Config) Descriptors(bypass fetch.Fetcher) ([]source.Descriptor, error) {
	if len(c.Sources) == 0 {
		return nil, fmt.Errorf("no sources configured")
	}
	seen := map[string]bool{}
	out := make([]source.Descriptor, 0, len(c.Sources))
	for _, sc := range c.Sources {
		factory, ok := sourceRegistry[sc.Name]
		if !ok {
			return nil, fmt.Errorf("unknown source %q", sc.Name)
		}
		if seen[sc.Name] {
			return nil, fmt.Errorf("source %q configured twice", sc.Name)
		}
		seen[sc.Name] = true

		d := factory(sc, c)
		if sc.CloudflareBypass {
			d.Fetcher = bypass
		}
		out = append(out, d)
	}
	return out, nil
}

func (c Config) wantsBypass() bool {
	for _, sc := range c.Sources {
		if sc.CloudflareBypass {
			return true
		}
	}
	return false
}
