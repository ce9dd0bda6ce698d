package cmd

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/masslessai/push-cli/internal/api"
)

func TestHumanizeError(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{api.ErrMissingCredentials, "push connect"},
		{api.ErrAuthInvalid, "--reauth"},
		{fmt.Errorf("%w: dial tcp: refused", api.ErrNetwork), "Check your connection"},
		{errors.New("something else"), "something else"},
	}
	for _, tc := range cases {
		if got := humanizeError(tc.err); !strings.Contains(got, tc.want) {
			t.Errorf("humanizeError(%v) = %q, want it to mention %q", tc.err, got, tc.want)
		}
	}
}

func TestScopeLabel(t *testing.T) {
	if got := scopeLabel(""); got != "all projects" {
		t.Errorf("empty scope label = %q", got)
	}
	if got := scopeLabel("github.com/a/b"); got != "github.com/a/b" {
		t.Errorf("scoped label = %q", got)
	}
}

func TestResolveClientType(t *testing.T) {
	for _, valid := range []string{clientClaudeCode, clientOpenAICodex, clientClawdbot} {
		got, err := resolveClientType(valid)
		if err != nil || got != valid {
			t.Errorf("resolveClientType(%q) = %q, %v", valid, got, err)
		}
	}
	if _, err := resolveClientType("vim"); !errors.Is(err, api.ErrValidation) {
		t.Errorf("unknown client type: got %v, want ErrValidation", err)
	}
}

func TestParseSettingValue(t *testing.T) {
	if v, err := parseSettingValue("auto_commit", "true"); err != nil || v != true {
		t.Errorf("bool: got %v, %v", v, err)
	}
	if _, err := parseSettingValue("auto_commit", "yes please"); !errors.Is(err, api.ErrValidation) {
		t.Errorf("bad bool: got %v, want ErrValidation", err)
	}
	if v, err := parseSettingValue("cache_max_age", "5m"); err != nil || v != "5m0s" {
		t.Errorf("duration: got %v, %v", v, err)
	}
	if _, err := parseSettingValue("cache_max_age", "fast"); !errors.Is(err, api.ErrValidation) {
		t.Errorf("bad duration: got %v, want ErrValidation", err)
	}
	if v, err := parseSettingValue("api_base_url", "https://staging.example.com"); err != nil || v != "https://staging.example.com" {
		t.Errorf("string: got %v, %v", v, err)
	}
	if _, err := parseSettingValue("nope", "1"); !errors.Is(err, api.ErrValidation) {
		t.Errorf("unknown key: got %v, want ErrValidation", err)
	}
}

// Reserved words must route to their subcommands rather than the search
// path of the root command.
func TestReservedWordsAreSubcommands(t *testing.T) {
	reserved := []string{"review", "connect", "status", "watch", "setting", "commands"}
	for _, word := range reserved {
		cmd, _, err := rootCmd.Find([]string{word})
		if err != nil || cmd == rootCmd {
			t.Errorf("%q did not resolve to a subcommand", word)
		}
	}

	// A number must stay on the root command (the fetch path).
	cmd, _, err := rootCmd.Find([]string{"427"})
	if err != nil || cmd != rootCmd {
		t.Errorf("numeric argument left the root command: %v, %v", cmd, err)
	}
}
