package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/masslessai/push-cli/internal/config"
	"github.com/spf13/viper"
)

const envPrefix = "PUSH"

// appSettings is populated once by initConfig and passed down from the
// command layer; nothing below cmd reads viper or the environment.
var appSettings config.Settings

func initConfig() {
	// A .env in the working directory may carry PUSH_* overrides.
	_ = godotenv.Load()

	viper.SetEnvPrefix(envPrefix)
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	defaults := config.Defaults()
	viper.SetDefault("api_base_url", defaults.APIBaseURL)
	viper.SetDefault("cache_max_age", defaults.CacheMaxAge)
	viper.SetDefault("auto_commit", false)
	viper.SetDefault("telemetry", false)

	if dir, err := config.Dir(); err == nil {
		viper.AddConfigPath(dir)
		viper.SetConfigName("settings")
		viper.SetConfigType("yaml")
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			// A broken settings file should be visible but not fatal:
			// defaults still let every command run.
			fmt.Fprintln(os.Stderr, "Warning: could not read settings file:", err)
		}
	}

	if err := viper.Unmarshal(&appSettings); err != nil {
		fmt.Fprintf(os.Stderr, "Error unmarshaling settings: %v\n", err)
		os.Exit(2)
	}
	if err := appSettings.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}
}

// saveSetting persists one key to the settings file, creating it when
// needed.
func saveSetting(key string, value any) error {
	viper.Set(key, value)
	if viper.ConfigFileUsed() != "" {
		return viper.WriteConfig()
	}
	dir, err := config.Dir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	path := filepath.Join(dir, "settings.yaml")
	viper.SetConfigFile(path)
	return viper.WriteConfigAs(path)
}
