package models

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// TaskStatus represents the lifecycle state of a synced task.
// Transitions only move forward: pending -> started -> completed.
type TaskStatus string

const (
	StatusPending   TaskStatus = "pending"
	StatusStarted   TaskStatus = "started"
	StatusCompleted TaskStatus = "completed"
)

// MaxCompletionCommentLen caps the free-text comment attached when
// completing a task. Longer comments are rejected outright rather than
// silently truncated.
const MaxCompletionCommentLen = 500

// Task is a voice-captured todo synced from the Push backend.
//
// ID is the opaque identifier used for mutation calls. DisplayNumber is the
// stable, user-facing number (#1, #2, ...) unique per account; the CLI
// resolves a number to an ID before mutating.
type Task struct {
	ID            string     `json:"id" validate:"required"`
	DisplayNumber int        `json:"display_number" validate:"required,gt=0"`
	Summary       string     `json:"summary" validate:"required"`
	Content       string     `json:"content,omitempty"`
	Transcript    string     `json:"transcript,omitempty"`
	ProjectHint   string     `json:"project_hint,omitempty"`
	GitRemote     string     `json:"git_remote,omitempty"`
	IsBacklog     bool       `json:"is_backlog,omitempty"`
	IsFocused     bool       `json:"is_focused,omitempty"`
	Status        TaskStatus `json:"status,omitempty" validate:"omitempty,oneof=pending started completed"`
	CreatedAt     time.Time  `json:"created_at"`
}

// Active reports whether the task should appear in default listings.
func (t Task) Active() bool {
	return t.Status != StatusCompleted
}

// Ref returns the user-facing reference, e.g. "#42".
func (t Task) Ref() string {
	return fmt.Sprintf("#%d", t.DisplayNumber)
}

var validate = validator.New()

// ValidateTask checks a task against its struct tags.
func ValidateTask(t Task) error {
	if err := validate.Struct(t); err != nil {
		var msgs []string
		for _, fe := range err.(validator.ValidationErrors) {
			msgs = append(msgs, fmt.Sprintf("field %q failed rule %q", fe.Field(), fe.Tag()))
		}
		return fmt.Errorf("invalid task: %s", strings.Join(msgs, "; "))
	}
	return nil
}

// ValidateCompletionComment enforces the comment length cap. An empty
// comment is fine; the field is optional.
func ValidateCompletionComment(comment string) error {
	if len(comment) > MaxCompletionCommentLen {
		return fmt.Errorf("completion comment is %d characters, max %d", len(comment), MaxCompletionCommentLen)
	}
	return nil
}

// SortActive orders tasks the way listings present them: pinned first,
// then newest first by display number. The sort is stable so server order
// breaks remaining ties.
func SortActive(tasks []Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		a, b := tasks[i], tasks[j]
		if a.IsFocused != b.IsFocused {
			return a.IsFocused
		}
		return a.DisplayNumber > b.DisplayNumber
	})
}
