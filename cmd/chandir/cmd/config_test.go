package cmd

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"chandir/lib/scrapers/socialblade"
	"chandir/lib/scrapers/youtube"
	"chandir/lib/testutil"
	"chandir/services/directory"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigMissing(t *testing.T) {
	config, err := LoadConfig(filepath.Join(t.TempDir(), "config.json5"))
	require.NoError(t, err)
	require.Equal(t, defaultConfig, config)

	builder, cleanup, err := newBuilder(config)
	require.NoError(t, err)
	defer cleanup()
	require.Equal(t, directory.DefaultPacer, builder.Pacer)
}

func TestLoadConfigDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json5")
	err := os.WriteFile(path, []byte(`{
		// only what differs from the defaults
		output: "out/directory.json",
		pacing: { base_ms: 100 },
		sources: [{ name: "youtube", attempts: 5 }],
	}`), 0644)
	require.NoError(t, err)

	config, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, "out/directory.json", config.Output)
	require.Equal(t, "channels.json", config.Channels)
	require.Equal(t, 100, config.Pacing.BaseMs)
	require.Equal(t, 400, config.Pacing.JitterMs)
	require.Equal(t, 30, config.Http.TimeoutSec)
	require.Len(t, config.Sources, 1)

	sources, err := config.Descriptors(nil)
	require.NoError(t, err)
	require.Len(t, sources, 1)
	require.Equal(t, youtube.Name, sources[0].Name)
	require.Equal(t, 5, sources[0].Retry.Attempts)
	require.Equal(t, youtube.DefaultOptions.Retry.BaseDelay, sources[0].Retry.BaseDelay)
}

func TestLoadConfigInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json5")
	err := os.WriteFile(path, []byte(`{ output: `), 0644)
	require.NoError(t, err)

	_, err = LoadConfig(path)
	require.Error(t, err)
}

func TestDescriptors(t *testing.T) {
	config := defaultConfig
	sources, err := config.Descriptors(nil)
	require.NoError(t, err)
	require.Len(t, sources, 2)
	require.Equal(t, youtube.Name, sources[0].Name)
	require.Equal(t, socialblade.Name, sources[1].Name)
	require.Nil(t, sources[1].Fetcher)

	config.Sources = []SourceConfig{{Name: "youtube"}, {Name: "vimeo"}}
	_, err = config.Descriptors(nil)
	require.ErrorContains(t, err, "vimeo")

	config.Sources = []SourceConfig{{Name: "youtube"}, {Name: "youtube"}}
	_, err = config.Descriptors(nil)
	require.ErrorContains(t, err, "twice")

	config.Sources = nil
	_, err = config.Descriptors(nil)
	require.Error(t, err)
}

func TestDescriptorsBypass(t *testing.T) {
	config := defaultConfig
	config.Sources = []SourceConfig{
		{Name: youtube.Name},
		{Name: socialblade.Name, CloudflareBypass: true, BaseDelayMs: 50},
	}
	require.True(t, config.wantsBypass())
	require.False(t, defaultConfig.wantsBypass())

	bypass := testutil.NewStubFetcher(nil)
	sources, err := config.Descriptors(bypass)
	require.NoError(t, err)
	require.Nil(t, sources[0].Fetcher)
	require.Same(t, bypass, sources[1].Fetcher)
	require.Equal(t, 50*time.Millisecond, sources[1].Retry.BaseDelay)
}

func TestNewBuilder(t *testing.T) {
	config := defaultConfig
	config.Cache.Dir = filepath.Join(t.TempDir(), "cache")
	config.Pacing = PacingConfig{BaseMs: 10, JitterMs: 5}

	builder, cleanup, err := newBuilder(config)
	require.NoError(t, err)
	defer cleanup()

	require.Len(t, builder.Reconciler.Sources, 2)
	require.Equal(t, 10*time.Millisecond, builder.Pacer.Base)
	require.Equal(t, 5*time.Millisecond, builder.Pacer.Jitter)
	require.Equal(t, config.plausibility(), builder.Reconciler.Plausibility)
}
