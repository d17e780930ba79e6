package models

import "time"

// Config holds application configuration
type Config struct {
	DataDir       string        `yaml:"data_dir"`
	StoreBackend  string        `yaml:"store_backend"` // sqlite or preferences
	LogLevel      string        `yaml:"log_level"`
	LogFormat     string        `yaml:"log_format"`
	HoldToDismiss time.Duration `yaml:"hold_to_dismiss"`
	Volume        float64       `yaml:"volume"`
	ChannelID     string        `yaml:"channel_id"`
	FallbackSound string        `yaml:"fallback_sound"` // built-in id, empty disables
	MetricsAddr   string        `yaml:"metrics_addr"`
	AutoStart     bool          `yaml:"autostart"`
}

const (
	StoreBackendSQLite      = "sqlite"
	StoreBackendPreferences = "preferences"

	DefaultChannelID     = "alarm-channel-v3"
	DefaultHoldToDismiss = 5 * time.Second
)

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig(dataDir string) Config {
	return Config{
		DataDir:       dataDir,
		StoreBackend:  StoreBackendSQLite,
		LogLevel:      "INFO",
		LogFormat:     "CONSOLE",
		HoldToDismiss: DefaultHoldToDismiss,
		Volume:        1.0,
		ChannelID:     DefaultChannelID,
	}
}

// ClampVolume limits v to [0, 1].
func ClampVolume(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// FallbackSource returns the configured fallback sound, or the zero
// SoundSource when none is configured or the id is unknown.
func (c *Config) FallbackSource() SoundSource {
	if _, ok := LookupBuiltinSound(c.FallbackSound); !ok {
		return SoundSource{}
	}
	return Builtin(c.FallbackSound)
}
