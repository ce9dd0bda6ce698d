package cmd

import (
	"fmt"

	"github.com/masslessai/push-cli/internal/config"
	"github.com/masslessai/push-cli/internal/daemon"
	"github.com/masslessai/push-cli/internal/registry"
	"github.com/masslessai/push-cli/internal/ui"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show account, daemon, and project status",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

type statusReport struct {
	Linked       bool           `json:"linked"`
	Email        string         `json:"email,omitempty"`
	DaemonOnline bool           `json:"daemon_online"`
	Daemon       *daemon.Status `json:"daemon,omitempty"`
	Projects     int            `json:"projects"`
	Default      string         `json:"default_project,omitempty"`
}

func runStatus(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()

	store, err := config.NewCredentialStore()
	if err != nil {
		return err
	}
	dir, err := config.Dir()
	if err != nil {
		return err
	}
	creds, credErr := store.Load()
	linked := credErr == nil

	var ds *daemon.Status
	if path, err := daemon.StatusPath(); err == nil {
		ds, _ = daemon.ReadStatus(path)
	}

	reg := registry.New(dir)
	projects := reg.Projects()

	if isJSON() {
		return printJSON(statusReport{
			Linked:       linked,
			Email:        creds.Email,
			DaemonOnline: ds.Online(),
			Daemon:       ds,
			Projects:     len(projects),
			Default:      reg.DefaultProject(),
		})
	}

	if linked {
		line := ui.StyleSuccess.Render("✓") + " Account linked"
		if creds.Email != "" {
			line += " (" + creds.Email + ")"
		}
		fmt.Fprintln(out, line)
	} else {
		fmt.Fprintln(out, ui.StyleWarning.Render("✗")+" Not connected. Run 'push connect'.")
	}

	if ds.Online() {
		fmt.Fprintf(out, "%s Daemon online: pid %d on %s, %d/%d running, %d completed today\n",
			ui.StyleSuccess.Render("✓"), ds.Daemon.PID, ds.Daemon.MachineName,
			ds.Stats.Running, ds.Stats.MaxConcurrent, ds.Stats.CompletedToday)
	} else {
		fmt.Fprintln(out, ui.StyleSubtle.Render("- Daemon not running on this machine"))
	}

	fmt.Fprintf(out, "%d project(s) registered", len(projects))
	if def := reg.DefaultProject(); def != "" {
		fmt.Fprintf(out, ", default %s", def)
	}
	fmt.Fprintln(out)

	for _, inv := range reg.Validate() {
		fmt.Fprintln(out, ui.StyleWarning.Render(fmt.Sprintf("! %s: %s (%s)", inv.GitRemote, inv.LocalPath, inv.Reason)))
	}
	return nil
}
