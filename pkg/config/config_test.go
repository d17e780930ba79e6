package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/borgmon/alarm-clock/pkg/models"
)

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func TestLoadMissingFileGivesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, models.DefaultConfig(DefaultDir()), cfg)
}

func TestLoadOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, FileName)
	writeFile(t, path, `
data_dir: `+dir+`
store_backend: preferences
log_level: DEBUG
hold_to_dismiss: 3s
volume: 1.7
fallback_sound: backseat
metrics_addr: 127.0.0.1:9464
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, dir, cfg.DataDir)
	assert.Equal(t, models.StoreBackendPreferences, cfg.StoreBackend)
	assert.Equal(t, "DEBUG", cfg.LogLevel)
	assert.Equal(t, "CONSOLE", cfg.LogFormat)
	assert.Equal(t, 3*time.Second, cfg.HoldToDismiss)
	assert.Equal(t, 1.0, cfg.Volume)
	assert.Equal(t, models.Builtin("backseat"), cfg.FallbackSource())
	assert.Equal(t, "127.0.0.1:9464", cfg.MetricsAddr)
	assert.Equal(t, models.DefaultChannelID, cfg.ChannelID)
}

func TestLoadRejectsBadValues(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]string{
		"backend":  "store_backend: postgres\n",
		"fallback": "fallback_sound: kazoo\n",
		"yaml":     "volume: [\n",
		"duration": "hold_to_dismiss: forever\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name+".yaml")
			writeFile(t, path, body)
			cfg, err := Load(path)
			assert.Error(t, err)
			assert.Equal(t, models.DefaultConfig(DefaultDir()), cfg)
		})
	}
}

func TestSaveThenLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", FileName)
	cfg := models.DefaultConfig(t.TempDir())
	cfg.AutoStart = true
	cfg.HoldToDismiss = 2 * time.Second

	require.NoError(t, Save(path, cfg))
	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestWatcherReloads(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, FileName)
	writeFile(t, path, "volume: 1.0\n")

	changes := make(chan models.Config, 16)
	w, err := NewWatcher(path, func(cfg models.Config) {
		select {
		case changes <- cfg:
		default:
		}
	}, zap.NewNop().Sugar())
	require.NoError(t, err)
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	writeFile(t, filepath.Join(dir, "unrelated.yaml"), "volume: 0.1\n")
	writeFile(t, path, "volume: 0.25\n")

	// A save can surface as several writes; wait for the final content.
	deadline := time.After(5 * time.Second)
	for {
		select {
		case cfg := <-changes:
			if cfg.Volume == 0.25 {
				return
			}
		case <-deadline:
			t.Fatal("no reload observed")
		}
	}
}
