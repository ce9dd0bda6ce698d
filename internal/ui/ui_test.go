package ui

import (
	"strings"
	"testing"
	"time"

	"github.com/masslessai/push-cli/models"
)

func TestTableColumnWidths(t *testing.T) {
	tbl := Table{
		Headers:  []string{"#", "Summary"},
		Rows:     [][]string{{"#427", "a very long summary that should be capped"}},
		MaxWidth: 10,
	}
	widths := tbl.ColumnWidths()
	if widths[0] != 4 {
		t.Errorf("first column width = %d, want 4", widths[0])
	}
	if widths[1] != 10 {
		t.Errorf("second column width = %d, want the MaxWidth cap", widths[1])
	}
}

func TestTableRender_TruncatesLongCells(t *testing.T) {
	tbl := Table{
		Headers:  []string{"Summary"},
		Rows:     [][]string{{"this cell is far longer than ten characters"}},
		MaxWidth: 10,
	}
	out := tbl.Render()
	if !strings.Contains(out, "…") {
		t.Error("overlong cell was not truncated with an ellipsis")
	}
	if strings.Contains(out, "characters") {
		t.Error("overlong cell rendered in full")
	}
}

func TestRenderTask_Sections(t *testing.T) {
	task := models.Task{
		ID:            "t427",
		DisplayNumber: 427,
		Summary:       "Fix the login bug",
		Content:       "The login form rejects valid emails.",
		Transcript:    "uh so the login thing is broken again",
		CreatedAt:     time.Date(2026, 8, 1, 10, 30, 0, 0, time.UTC),
	}
	out := RenderTask(task)

	for _, want := range []string{
		"## Task: #427 Fix the login bug",
		"### Content",
		"The login form rejects valid emails.",
		"### Original Voice Transcript",
		"> uh so the login thing is broken again",
		"**Task ID:** `t427`",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("rendered task missing %q:\n%s", want, out)
		}
	}
}

func TestRenderTask_PinnedAndEmptyContent(t *testing.T) {
	task := models.Task{ID: "t1", DisplayNumber: 1, Summary: "Pinned one", IsFocused: true}
	out := RenderTask(task)
	if !strings.Contains(out, "📌") {
		t.Error("pinned marker missing")
	}
	if !strings.Contains(out, "No content") {
		t.Error("empty content placeholder missing")
	}
	if strings.Contains(out, "Original Voice Transcript") {
		t.Error("transcript section rendered without a transcript")
	}
}

func TestRenderTaskList_StaleWarning(t *testing.T) {
	tasks := []models.Task{{ID: "t1", DisplayNumber: 1, Summary: "x"}}
	if out := RenderTaskList(tasks, "github.com/a/b", true); !strings.Contains(out, "cached") {
		t.Error("stale listing missing the cached warning")
	}
	if out := RenderTaskList(tasks, "github.com/a/b", false); strings.Contains(out, "cached") {
		t.Error("fresh listing should not warn about caching")
	}
}

func TestFormatDuration(t *testing.T) {
	cases := []struct {
		seconds int
		want    string
	}{
		{45, "45s"},
		{60, "1m"},
		{95, "1m 35s"},
		{3600, "1h"},
		{3720, "1h 2m"},
	}
	for _, tc := range cases {
		if got := FormatDuration(tc.seconds); got != tc.want {
			t.Errorf("FormatDuration(%d) = %q, want %q", tc.seconds, got, tc.want)
		}
	}
}
