// Package daemon reads the status file the task-executor daemon maintains.
// The daemon itself is a separate component; the CLI only displays what it
// publishes at ~/.push/daemon_status.json.
package daemon

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
)

// StatusFileName is the daemon's published state, relative to StatusDir.
const StatusFileName = "daemon_status.json"

// Info identifies the running daemon.
type Info struct {
	PID         int    `json:"pid"`
	Version     string `json:"version"`
	MachineName string `json:"machine_name"`
}

// Stats summarizes executor throughput.
type Stats struct {
	Running        int `json:"running"`
	MaxConcurrent  int `json:"max_concurrent"`
	CompletedToday int `json:"completed_today"`
}

// TaskState is one task as the executor sees it. Status is one of queued,
// running, completed, failed, timeout.
type TaskState struct {
	DisplayNumber   int    `json:"display_number"`
	Summary         string `json:"summary"`
	Status          string `json:"status"`
	Phase           string `json:"phase,omitempty"`
	Detail          string `json:"detail,omitempty"`
	Branch          string `json:"branch,omitempty"`
	PRURL           string `json:"pr_url,omitempty"`
	ElapsedSeconds  int    `json:"elapsed_seconds,omitempty"`
	DurationSeconds int    `json:"duration_seconds,omitempty"`
}

// Status is the full published state.
type Status struct {
	Daemon         Info        `json:"daemon"`
	Stats          Stats       `json:"stats"`
	ActiveTasks    []TaskState `json:"active_tasks"`
	CompletedToday []TaskState `json:"completed_today"`
}

// Online reports whether a daemon process is advertised.
func (s *Status) Online() bool {
	return s != nil && s.Daemon.PID > 0
}

// StatusPath returns the status file location, ~/.push/daemon_status.json.
func StatusPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".push", StatusFileName), nil
}

// ReadStatus loads the status file. A missing file returns (nil, nil):
// the daemon is simply not running. A corrupt file is treated the same
// way, since the daemon rewrites it every few seconds.
func ReadStatus(path string) (*Status, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var st Status
	if err := json.Unmarshal(raw, &st); err != nil {
		return nil, nil
	}
	return &st, nil
}
