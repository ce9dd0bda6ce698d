package cmd

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/fsnotify/fsnotify"
	"github.com/masslessai/push-cli/internal/daemon"
	"github.com/masslessai/push-cli/internal/ui"
	"github.com/spf13/cobra"
)

// pollInterval is the fallback refresh when no filesystem event arrives.
const pollInterval = 2 * time.Second

var watchFlags struct {
	oneShot bool
	follow  bool
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Live view of the task executor daemon",
	Long: `watch renders the executor daemon's published status and refreshes as
the daemon updates it. Use --status for a one-shot snapshot, --follow to
exit once the queue drains.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().BoolVar(&watchFlags.oneShot, "status", false, "print one snapshot and exit")
	watchCmd.Flags().BoolVar(&watchFlags.follow, "follow", false, "exit when all queued tasks finish")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, _ []string) error {
	path, err := daemon.StatusPath()
	if err != nil {
		return err
	}

	if watchFlags.oneShot || isJSON() {
		st, err := daemon.ReadStatus(path)
		if err != nil {
			return err
		}
		if isJSON() {
			return printJSON(st)
		}
		fmt.Fprintln(cmd.OutOrStdout(), renderDaemonStatus(st))
		return nil
	}

	events := make(chan struct{}, 1)
	watcher, err := fsnotify.NewWatcher()
	if err == nil {
		// Watch the directory: the daemon replaces the file atomically, so
		// a watch on the file itself would go stale after the first write.
		if addErr := watcher.Add(filepath.Dir(path)); addErr == nil {
			go func() {
				for {
					select {
					case ev, ok := <-watcher.Events:
						if !ok {
							return
						}
						if filepath.Base(ev.Name) == daemon.StatusFileName {
							select {
							case events <- struct{}{}:
							default:
							}
						}
					case _, ok := <-watcher.Errors:
						if !ok {
							return
						}
					}
				}
			}()
			defer func() { _ = watcher.Close() }()
		} else {
			_ = watcher.Close()
		}
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = ui.StylePrimary

	m := watchModel{
		spin:   sp,
		path:   path,
		follow: watchFlags.follow,
		events: events,
	}
	m.status, _ = daemon.ReadStatus(path)

	_, err = tea.NewProgram(m, tea.WithContext(cmd.Context())).Run()
	return err
}

type fsEventMsg struct{}

type pollMsg time.Time

type watchModel struct {
	spin   spinner.Model
	path   string
	status *daemon.Status
	follow bool
	events chan struct{}
}

func (m watchModel) Init() tea.Cmd {
	return tea.Batch(m.spin.Tick, m.waitForEvent(), pollCmd())
}

func (m watchModel) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		<-m.events
		return fsEventMsg{}
	}
}

func pollCmd() tea.Cmd {
	return tea.Tick(pollInterval, func(t time.Time) tea.Msg { return pollMsg(t) })
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		}
		return m, nil

	case fsEventMsg:
		m.status, _ = daemon.ReadStatus(m.path)
		if m.drained() {
			return m, tea.Quit
		}
		return m, m.waitForEvent()

	case pollMsg:
		m.status, _ = daemon.ReadStatus(m.path)
		if m.drained() {
			return m, tea.Quit
		}
		return m, pollCmd()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}
	return m, nil
}

// drained reports whether --follow should exit: daemon reachable and no
// task queued or running.
func (m watchModel) drained() bool {
	return m.follow && m.status.Online() && len(m.status.ActiveTasks) == 0
}

func (m watchModel) View() string {
	body := renderDaemonStatus(m.status)
	footer := ui.StyleSubtle.Render("q to quit")
	if m.status.Online() && len(m.status.ActiveTasks) > 0 {
		footer = m.spin.View() + " working  " + footer
	}
	return ui.StyleFrame.Render(body+"\n\n"+footer) + "\n"
}

// renderDaemonStatus is shared between the TUI and --status.
func renderDaemonStatus(st *daemon.Status) string {
	if !st.Online() {
		return ui.StyleWarning.Render("Daemon is not running on this machine.")
	}

	var b strings.Builder
	b.WriteString(ui.StyleTitle.Render(fmt.Sprintf("Push daemon on %s", st.Daemon.MachineName)))
	fmt.Fprintf(&b, "\npid %d · v%s · %d/%d running · %d completed today\n",
		st.Daemon.PID, st.Daemon.Version,
		st.Stats.Running, st.Stats.MaxConcurrent, st.Stats.CompletedToday)

	if len(st.ActiveTasks) > 0 {
		b.WriteString("\n" + ui.StyleHeader.Render("Active") + "\n")
		tbl := ui.Table{Headers: []string{"#", "Summary", "Status", "Elapsed"}, MaxWidth: 40}
		for _, t := range st.ActiveTasks {
			status := t.Status
			if t.Phase != "" {
				status += " · " + t.Phase
			}
			tbl.Rows = append(tbl.Rows, []string{
				fmt.Sprintf("#%d", t.DisplayNumber), t.Summary, status,
				ui.FormatDuration(t.ElapsedSeconds),
			})
		}
		b.WriteString(tbl.Render())
	} else {
		b.WriteString("\n" + ui.StyleSubtle.Render("No tasks queued or running.") + "\n")
	}

	if len(st.CompletedToday) > 0 {
		b.WriteString("\n" + ui.StyleHeader.Render("Completed today") + "\n")
		for _, t := range st.CompletedToday {
			line := fmt.Sprintf("%s #%d %s (%s)", ui.StyleSuccess.Render("✓"),
				t.DisplayNumber, t.Summary, ui.FormatDuration(t.DurationSeconds))
			if t.PRURL != "" {
				line += " " + ui.StyleSubtle.Render(t.PRURL)
			}
			b.WriteString(line + "\n")
		}
	}
	return b.String()
}
