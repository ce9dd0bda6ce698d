package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Settings are the behavioral knobs, loaded once at process start through
// viper (settings.yaml + PUSH_* env) and passed down explicitly. Task
// operations never mutate them.
type Settings struct {
	// APIBaseURL points at the Push edge functions. Override for staging.
	APIBaseURL string `mapstructure:"api_base_url" validate:"required,url"`

	// CacheMaxAge bounds how long a cached task snapshot is served without
	// a refresh attempt.
	CacheMaxAge time.Duration `mapstructure:"cache_max_age" validate:"required"`

	// AutoCommit lets the host agent commit after finishing a task.
	AutoCommit bool `mapstructure:"auto_commit"`

	// Telemetry enables anonymous usage events. Off by default.
	Telemetry bool `mapstructure:"telemetry"`

	// Verbose mirrors the global --verbose flag.
	Verbose bool `mapstructure:"verbose"`

	// JSON mirrors the global --json flag.
	JSON bool `mapstructure:"json"`
}

// Defaults returns the settings used when no file or env overrides exist.
func Defaults() Settings {
	return Settings{
		APIBaseURL:  "https://jxuzqcbqhiaxmfitzxlo.supabase.co/functions/v1",
		CacheMaxAge: 5 * time.Minute,
	}
}

var validateSettings = validator.New()

// Validate checks the populated settings.
func (s Settings) Validate() error {
	if err := validateSettings.Struct(s); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}
	if s.CacheMaxAge <= 0 {
		return fmt.Errorf("invalid settings: cache_max_age must be positive")
	}
	return nil
}
