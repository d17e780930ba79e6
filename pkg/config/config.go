// Package config loads the YAML config file and watches it for edits.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/borgmon/alarm-clock/pkg/models"
)

const (
	appDirName = "alarm-clock"
	FileName   = "config.yaml"
)

// DefaultDir is the per-user directory holding the config file and the
// database.
func DefaultDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(".", appDirName)
	}
	return filepath.Join(dir, appDirName)
}

// DefaultPath is where the config file lives unless --config says otherwise.
func DefaultPath() string {
	return filepath.Join(DefaultDir(), FileName)
}

// Load reads path over the defaults. A missing file yields the defaults.
func Load(path string) (models.Config, error) {
	cfg := models.DefaultConfig(DefaultDir())

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return models.DefaultConfig(DefaultDir()), fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := normalize(&cfg); err != nil {
		return models.DefaultConfig(DefaultDir()), fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func normalize(cfg *models.Config) error {
	if cfg.DataDir == "" {
		cfg.DataDir = DefaultDir()
	}
	if strings.HasPrefix(cfg.DataDir, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			cfg.DataDir = filepath.Join(home, cfg.DataDir[2:])
		}
	}

	switch cfg.StoreBackend {
	case "":
		cfg.StoreBackend = models.StoreBackendSQLite
	case models.StoreBackendSQLite, models.StoreBackendPreferences:
	default:
		return fmt.Errorf("unknown store_backend %q", cfg.StoreBackend)
	}

	if cfg.HoldToDismiss <= 0 {
		cfg.HoldToDismiss = models.DefaultHoldToDismiss
	}
	if cfg.ChannelID == "" {
		cfg.ChannelID = models.DefaultChannelID
	}
	cfg.Volume = models.ClampVolume(cfg.Volume)

	if cfg.FallbackSound != "" {
		if _, ok := models.LookupBuiltinSound(cfg.FallbackSound); !ok {
			return fmt.Errorf("unknown fallback_sound %q", cfg.FallbackSound)
		}
	}
	return nil
}

// Save writes cfg to path, creating the directory.
func Save(path string, cfg models.Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}
