package ui

import (
	"fmt"
	"strings"

	"github.com/masslessai/push-cli/models"
)

// RenderTask formats one task as markdown for the host agent to read. The
// section layout is part of the agent-facing contract: skills reference
// the "Content" and "Original Voice Transcript" headings.
func RenderTask(t models.Task) string {
	var b strings.Builder

	pin := ""
	if t.IsFocused {
		pin = "📌 "
	}
	fmt.Fprintf(&b, "## Task: #%d %s%s\n\n", t.DisplayNumber, pin, t.Summary)

	if t.ProjectHint != "" {
		fmt.Fprintf(&b, "**Project:** %s\n\n", t.ProjectHint)
	}

	b.WriteString("### Content\n")
	content := t.Content
	if content == "" {
		content = "No content"
	}
	b.WriteString(content + "\n\n")

	if t.Transcript != "" {
		b.WriteString("### Original Voice Transcript\n")
		fmt.Fprintf(&b, "> %s\n\n", t.Transcript)
	}

	fmt.Fprintf(&b, "**Task ID:** `%s`\n", t.ID)
	fmt.Fprintf(&b, "**Display Number:** #%d\n", t.DisplayNumber)
	if !t.CreatedAt.IsZero() {
		fmt.Fprintf(&b, "**Created:** %s\n", t.CreatedAt.Format("2006-01-02 15:04"))
	}
	return b.String()
}

// RenderTaskList formats the active-task listing as a table.
func RenderTaskList(tasks []models.Task, scopeLabel string, stale bool) string {
	var b strings.Builder

	header := fmt.Sprintf("%d active task(s) — %s", len(tasks), scopeLabel)
	if stale {
		header += StyleWarning.Render(" (cached, backend unreachable)")
	}
	b.WriteString(StyleTitle.Render(header) + "\n\n")

	tbl := Table{Headers: []string{"#", "", "Summary", "Status"}, MaxWidth: 48}
	for _, t := range tasks {
		pin := ""
		if t.IsFocused {
			pin = "📌"
		}
		status := string(t.Status)
		if t.IsBacklog {
			status += " (backlog)"
		}
		tbl.Rows = append(tbl.Rows, []string{t.Ref(), pin, t.Summary, status})
	}
	b.WriteString(tbl.Render())
	return b.String()
}

// FormatDuration renders seconds as a compact human duration.
func FormatDuration(seconds int) string {
	switch {
	case seconds < 60:
		return fmt.Sprintf("%ds", seconds)
	case seconds < 3600:
		m, s := seconds/60, seconds%60
		if s == 0 {
			return fmt.Sprintf("%dm", m)
		}
		return fmt.Sprintf("%dm %ds", m, s)
	default:
		h, m := seconds/3600, (seconds%3600)/60
		if m == 0 {
			return fmt.Sprintf("%dh", h)
		}
		return fmt.Sprintf("%dh %dm", h, m)
	}
}
