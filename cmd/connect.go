package cmd

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/masslessai/push-cli/internal/api"
	"github.com/masslessai/push-cli/internal/config"
	"github.com/masslessai/push-cli/internal/registry"
	"github.com/masslessai/push-cli/internal/scope"
	"github.com/masslessai/push-cli/internal/telemetry"
	"github.com/masslessai/push-cli/internal/ui"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// supabaseAnonKey is injected at release build time with -ldflags. The
// device-auth endpoints accept requests without it in development.
var supabaseAnonKey string

// Client types the backend distinguishes for action naming.
const (
	clientClaudeCode  = "claude-code"
	clientOpenAICodex = "openai-codex"
	clientClawdbot    = "clawdbot"
)

var connectFlags struct {
	reauth      bool
	status      bool
	validateKey bool
	client      string
}

var connectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Link this machine and project to your Push account",
	Long: `connect is the doctor flow: with a working API key it registers the
current project; without one it walks you through browser sign-in.`,
	Args: cobra.NoArgs,
	RunE: runConnect,
}

func init() {
	connectCmd.Flags().BoolVar(&connectFlags.reauth, "reauth", false, "discard the stored key and sign in again")
	connectCmd.Flags().BoolVar(&connectFlags.status, "status", false, "show connection status and exit")
	connectCmd.Flags().BoolVar(&connectFlags.validateKey, "validate-key", false, "check the stored key against the backend and exit")
	connectCmd.Flags().StringVar(&connectFlags.client, "client", "", "client type: claude-code, openai-codex, or clawdbot (auto-detected)")
	rootCmd.AddCommand(connectCmd)
}

func runConnect(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()
	store, err := config.NewCredentialStore()
	if err != nil {
		return err
	}
	dir, err := config.Dir()
	if err != nil {
		return err
	}

	if connectFlags.status {
		return printConnectStatus(cmd, store, dir)
	}

	clientType, err := resolveClientType(connectFlags.client)
	if err != nil {
		return err
	}

	if connectFlags.validateKey {
		creds, err := store.Load()
		if err != nil {
			return err
		}
		client := api.New(appSettings.APIBaseURL, creds.APIKey, api.WithAnonKey(supabaseAnonKey))
		if err := client.ValidateKey(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintln(out, ui.StyleSuccess.Render("✓")+" API key is valid")
		return nil
	}

	if connectFlags.reauth {
		if err := store.Clear(); err != nil {
			return err
		}
	}

	// Fast path: an existing key that still validates only needs the
	// project registered.
	creds, loadErr := store.Load()
	if loadErr == nil {
		client := api.New(appSettings.APIBaseURL, creds.APIKey, api.WithAnonKey(supabaseAnonKey))
		if err := client.ValidateKey(cmd.Context()); err == nil {
			return registerCurrentProject(cmd, client, dir, clientType)
		} else if !isKind(err, api.ErrAuthInvalid) {
			return err
		}
		fmt.Fprintln(out, ui.StyleWarning.Render("Stored API key was rejected; signing in again."))
	} else if !isKind(loadErr, api.ErrMissingCredentials) {
		return loadErr
	}

	// Slow path: browser device-auth flow.
	creds, err = deviceAuthFlow(cmd, clientType)
	if err != nil {
		return err
	}
	if err := store.Save(creds); err != nil {
		return err
	}
	fmt.Fprintf(out, "%s Signed in as %s\n", ui.StyleSuccess.Render("✓"), creds.Email)

	tc := newTelemetry()
	tc.Track(telemetry.EventConnect, map[string]any{"client_type": clientType})
	_ = tc.Close()

	client := api.New(appSettings.APIBaseURL, creds.APIKey, api.WithAnonKey(supabaseAnonKey))
	return registerCurrentProject(cmd, client, dir, clientType)
}

// deviceAuthFlow runs the browser sign-in: init, open the verification URL,
// poll until authorized or expired. Honors slow_down backoff.
func deviceAuthFlow(cmd *cobra.Command, clientType string) (config.Credentials, error) {
	out := cmd.OutOrStdout()
	ctx := cmd.Context()
	client := api.New(appSettings.APIBaseURL, "", api.WithAnonKey(supabaseAnonKey))

	workDir, _ := os.Getwd()
	auth, err := client.InitDeviceAuth(ctx, api.DeviceAuthRequest{
		ClientName:    "push-cli",
		ClientType:    clientType,
		ClientVersion: version,
		DeviceName:    registry.MachineName(),
		ProjectPath:   workDir,
		GitRemote:     scope.Current(ctx, workDir),
	})
	if err != nil {
		return config.Credentials{}, err
	}

	fmt.Fprintln(out, "Open this link to authorize:")
	fmt.Fprintln(out, "  "+ui.StylePrimary.Render(auth.VerificationURI))
	// Only pop a browser for a human at a terminal; agent hosts get the
	// printed link.
	if term.IsTerminal(int(os.Stdin.Fd())) {
		openBrowser(auth.VerificationURI)
	}

	interval := auth.Interval
	if interval <= 0 {
		interval = 5
	}
	deadline := time.Now().Add(time.Duration(auth.ExpiresIn) * time.Second)

	for {
		if time.Now().After(deadline) {
			return config.Credentials{}, fmt.Errorf("sign-in expired before it was authorized; run 'push connect' again")
		}
		select {
		case <-ctx.Done():
			return config.Credentials{}, ctx.Err()
		case <-time.After(time.Duration(interval) * time.Second):
		}

		poll, err := client.PollDeviceAuth(ctx, auth.DeviceCode)
		var slow *api.SlowDownError
		if errors.As(err, &slow) {
			interval = slow.Interval
			continue
		}
		if err != nil {
			return config.Credentials{}, err
		}

		switch poll.Status {
		case "authorized":
			if poll.APIKey == "" {
				return config.Credentials{}, fmt.Errorf("backend authorized the device but returned no API key")
			}
			return config.Credentials{APIKey: poll.APIKey, Email: poll.Email}, nil
		case "denied":
			return config.Credentials{}, fmt.Errorf("sign-in was denied")
		case "expired":
			return config.Credentials{}, fmt.Errorf("sign-in expired; run 'push connect' again")
		default:
			// pending: keep polling.
		}
	}
}

// registerCurrentProject registers the working directory with the backend
// and mirrors the mapping into the local registry.
func registerCurrentProject(cmd *cobra.Command, client *api.Client, configDir, clientType string) error {
	out := cmd.OutOrStdout()
	ctx := cmd.Context()

	workDir, err := os.Getwd()
	if err != nil {
		return err
	}
	remote := scope.Current(ctx, workDir)

	res, err := client.RegisterProject(ctx, api.RegisterProjectRequest{
		ClientType:  clientType,
		ClientName:  "push-cli",
		DeviceName:  registry.MachineName(),
		ProjectPath: workDir,
		GitRemote:   remote,
	})
	if err != nil {
		return err
	}

	if remote != scope.All {
		if _, err := registry.New(configDir).Register(remote, workDir); err != nil {
			fmt.Fprintln(cmd.ErrOrStderr(), ui.StyleWarning.Render("Warning: could not update local project registry: "+err.Error()))
		}
	}

	verb := "already registered"
	if res.Created {
		verb = "registered"
	}
	name := res.ActionName
	if name == "" {
		name = remote
	}
	fmt.Fprintf(out, "%s Project %s as %q\n", ui.StyleSuccess.Render("✓"), verb, name)
	return nil
}

func printConnectStatus(cmd *cobra.Command, store *config.CredentialStore, configDir string) error {
	out := cmd.OutOrStdout()
	creds, err := store.Load()
	linked := err == nil

	if isJSON() {
		reg := registry.New(configDir)
		return printJSON(struct {
			Linked   bool                        `json:"linked"`
			Email    string                      `json:"email,omitempty"`
			Config   string                      `json:"config_path"`
			Projects map[string]registry.Project `json:"projects"`
			Default  string                      `json:"default_project,omitempty"`
			Invalid  []registry.InvalidEntry     `json:"invalid_projects,omitempty"`
		}{linked, creds.Email, store.Path(), reg.Projects(), reg.DefaultProject(), reg.Validate()})
	}

	if !linked {
		fmt.Fprintln(out, "Not connected. Run 'push connect' to sign in.")
		return nil
	}
	fmt.Fprintf(out, "%s Connected", ui.StyleSuccess.Render("✓"))
	if creds.Email != "" {
		fmt.Fprintf(out, " as %s", creds.Email)
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, ui.StyleSubtle.Render("Credentials: "+store.Path()))

	reg := registry.New(configDir)
	projects := reg.Projects()
	if len(projects) == 0 {
		fmt.Fprintln(out, "No projects registered on this machine.")
		return nil
	}
	def := reg.DefaultProject()
	tbl := ui.Table{Headers: []string{"Project", "Path", ""}, MaxWidth: 60}
	for remote, p := range projects {
		mark := ""
		if remote == def {
			mark = "(default)"
		}
		tbl.Rows = append(tbl.Rows, []string{remote, p.LocalPath, mark})
	}
	fmt.Fprintln(out, tbl.Render())

	for _, inv := range reg.Validate() {
		fmt.Fprintln(out, ui.StyleWarning.Render(fmt.Sprintf("! %s: %s (%s)", inv.GitRemote, inv.LocalPath, inv.Reason)))
	}
	return nil
}

// resolveClientType validates an explicit --client or detects the host
// from the install location.
func resolveClientType(explicit string) (string, error) {
	switch explicit {
	case "":
	case clientClaudeCode, clientOpenAICodex, clientClawdbot:
		return explicit, nil
	default:
		return "", fmt.Errorf("%w: unknown client type %q", api.ErrValidation, explicit)
	}

	exe, err := os.Executable()
	if err != nil {
		return clientClaudeCode, nil
	}
	switch {
	case strings.Contains(exe, ".codex"):
		return clientOpenAICodex, nil
	case strings.Contains(exe, "clawdbot"):
		return clientClawdbot, nil
	default:
		return clientClaudeCode, nil
	}
}

// openBrowser tries to open the URL; silence on failure since the link is
// already printed.
func openBrowser(url string) {
	var c *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		c = exec.Command("open", url)
	case "windows":
		c = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		c = exec.Command("xdg-open", url)
	}
	_ = c.Start()
}
