package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/masslessai/push-cli/internal/api"
	"github.com/masslessai/push-cli/internal/cache"
	"github.com/masslessai/push-cli/internal/config"
	"github.com/masslessai/push-cli/internal/registry"
	"github.com/masslessai/push-cli/internal/tasks"
	"github.com/masslessai/push-cli/internal/telemetry"
	"github.com/spf13/viper"
)

func isJSON() bool {
	return viper.GetBool("json")
}

func isVerbose() bool {
	return viper.GetBool("verbose")
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func isKind(err, kind error) bool {
	return errors.Is(err, kind)
}

// newService builds the task service for one invocation. Missing
// credentials surface here, before any network call.
func newService() (*tasks.Service, error) {
	creds, dir, err := loadCredentials()
	if err != nil {
		return nil, err
	}

	workDir, err := os.Getwd()
	if err != nil {
		workDir = "."
	}

	return tasks.NewService(tasks.Options{
		Backend:     api.New(appSettings.APIBaseURL, creds.APIKey),
		Cache:       cache.New(dir),
		CacheMaxAge: appSettings.CacheMaxAge,
		MachineID:   registry.MachineID(dir),
		MachineName: registry.MachineName(),
		WorkDir:     workDir,
	}), nil
}

// loadCredentials returns the stored credentials and the config directory.
func loadCredentials() (config.Credentials, string, error) {
	dir, err := config.Dir()
	if err != nil {
		return config.Credentials{}, "", err
	}
	store, err := config.NewCredentialStore()
	if err != nil {
		return config.Credentials{}, "", err
	}
	creds, err := store.Load()
	if err != nil {
		return config.Credentials{}, "", err
	}
	return creds, dir, nil
}

// newTelemetry builds the telemetry client from settings. The API key is
// injected at release build time; development builds stay silent.
var telemetryAPIKey string

func newTelemetry() telemetry.Client {
	dir, err := config.Dir()
	if err != nil {
		return telemetry.NoopClient{}
	}
	return telemetry.New(appSettings.Telemetry, telemetryAPIKey, version, dir)
}

// trackCommand records a command invocation and flushes before exit.
func trackCommand(name string, err error) {
	tc := newTelemetry()
	defer func() { _ = tc.Close() }()

	props := map[string]any{"command": name}
	if err != nil {
		props["error_kind"] = errorKind(err)
	}
	tc.Track(telemetry.EventCommandRun, props)
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, api.ErrMissingCredentials):
		return "missing_credentials"
	case errors.Is(err, api.ErrAuthInvalid):
		return "auth_invalid"
	case errors.Is(err, api.ErrNetwork):
		return "network"
	case errors.Is(err, api.ErrNotFound):
		return "not_found"
	case errors.Is(err, api.ErrConflict):
		return "conflict"
	case errors.Is(err, api.ErrValidation):
		return "validation"
	default:
		return "other"
	}
}
