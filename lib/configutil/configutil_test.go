package configutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type sampleConfig struct {
	Output string `json:"output"`
	Pacing struct {
		BaseMs int `json:"base_ms"`
	} `json:"pacing"`
	Channels []string `json:"channels"`
}

func TestReadConfigLocalOverride(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json5"), []byte(`{
		// comments are fine
		output: "data/channels.json",
		pacing: { base_ms: 800 },
		channels: ["@a",],
	}`), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.local.json5"), []byte(`{
		output: "tmp/channels.json",
	}`), 0600))

	config, err := ReadConfig[sampleConfig](filepath.Join(dir, "config.json5"))
	require.NoError(t, err)
	require.Equal(t, "tmp/channels.json", config.Output)
	require.Equal(t, 800, config.Pacing.BaseMs)
	require.Equal(t, []string{"@a"}, config.Channels)
}

func TestReadConfigMissing(t *testing.T) {
	_, err := ReadConfig[sampleConfig](filepath.Join(t.TempDir(), "config.json5"))
	require.True(t, os.IsNotExist(err))
}

func TestReadConfigInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json5")
	require.NoError(t, os.WriteFile(path, []byte(`{ output: `), 0600))
	_, err := ReadConfig[sampleConfig](path)
	require.Error(t, err)
	require.False(t, os.IsNotExist(err))
}

func TestWithDefaults(t *testing.T) {
	var defaults sampleConfig
	defaults.Output = "data/channels.json"
	defaults.Pacing.BaseMs = 800

	var config sampleConfig
	config.Pacing.BaseMs = 100

	merged, err := WithDefaults(config, defaults)
	require.NoError(t, err)
	require.Equal(t, "data/channels.json", merged.Output)
	require.Equal(t, 100, merged.Pacing.BaseMs)
}
