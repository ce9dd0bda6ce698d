package cmd

import (
	"fmt"
	"strconv"
	"time"

	"github.com/masslessai/push-cli/internal/api"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// settableKeys are the behavioral settings exposed to `push setting`.
var settableKeys = map[string]string{
	"auto_commit":   "bool",
	"telemetry":     "bool",
	"cache_max_age": "duration",
	"api_base_url":  "string",
}

var settingCmd = &cobra.Command{
	Use:   "setting [key] [value]",
	Short: "Get or set behavioral settings",
	Long: `Without arguments, lists all settings. With a key, prints its value.
With a key and value, persists the new value to settings.yaml.

Keys: auto_commit, telemetry, cache_max_age, api_base_url`,
	Args: cobra.MaximumNArgs(2),
	RunE: runSetting,
}

func init() {
	rootCmd.AddCommand(settingCmd)
}

func runSetting(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	switch len(args) {
	case 0:
		if isJSON() {
			all := map[string]any{}
			for key := range settableKeys {
				all[key] = viper.Get(key)
			}
			return printJSON(all)
		}
		for key := range settableKeys {
			fmt.Fprintf(out, "%s = %v\n", key, viper.Get(key))
		}
		return nil

	case 1:
		key := args[0]
		if _, ok := settableKeys[key]; !ok {
			return fmt.Errorf("%w: unknown setting %q", api.ErrValidation, key)
		}
		if isJSON() {
			return printJSON(map[string]any{key: viper.Get(key)})
		}
		fmt.Fprintf(out, "%v\n", viper.Get(key))
		return nil

	default:
		key, raw := args[0], args[1]
		value, err := parseSettingValue(key, raw)
		if err != nil {
			return err
		}
		if err := saveSetting(key, value); err != nil {
			return err
		}
		fmt.Fprintf(out, "%s = %v\n", key, value)
		return nil
	}
}

func parseSettingValue(key, raw string) (any, error) {
	kind, ok := settableKeys[key]
	if !ok {
		return nil, fmt.Errorf("%w: unknown setting %q", api.ErrValidation, key)
	}
	switch kind {
	case "bool":
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %s expects true or false", api.ErrValidation, key)
		}
		return v, nil
	case "duration":
		v, err := time.ParseDuration(raw)
		if err != nil || v < 0 {
			return nil, fmt.Errorf("%w: %s expects a duration like 5m or 30s", api.ErrValidation, key)
		}
		return v.String(), nil
	default:
		return raw, nil
	}
}
