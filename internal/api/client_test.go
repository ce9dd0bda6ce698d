package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/masslessai/push-cli/models"
)

func jsonResponse(t *testing.T, w http.ResponseWriter, status int, body any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		t.Fatalf("encode response: %v", err)
	}
}

func TestClient_MissingKeyShortCircuits(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer srv.Close()

	c := New(srv.URL, "")
	if _, err := c.ListActive(context.Background(), "", false); !errors.Is(err, ErrMissingCredentials) {
		t.Fatalf("got %v, want ErrMissingCredentials", err)
	}
	if err := c.MarkCompleted(context.Background(), "id", ""); !errors.Is(err, ErrMissingCredentials) {
		t.Fatalf("got %v, want ErrMissingCredentials", err)
	}
	if n := atomic.LoadInt32(&hits); n != 0 {
		t.Errorf("server saw %d requests, want 0", n)
	}
}

func TestClient_AuthRejectedMapsToErrAuthInvalid(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := New(srv.URL, "revoked-key")
	if _, err := c.ListActive(context.Background(), "", false); !errors.Is(err, ErrAuthInvalid) {
		t.Fatalf("got %v, want ErrAuthInvalid", err)
	}
}

func TestClient_ServerErrorMapsToErrNetwork(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := New(srv.URL, "key")
	if _, err := c.ListActive(context.Background(), "", false); !errors.Is(err, ErrNetwork) {
		t.Fatalf("got %v, want ErrNetwork", err)
	}
}

func TestClient_UnreachableHostMapsToErrNetwork(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	c := New(srv.URL, "key")
	if _, err := c.ListActive(context.Background(), "", false); !errors.Is(err, ErrNetwork) {
		t.Fatalf("got %v, want ErrNetwork", err)
	}
}

func TestListActive(t *testing.T) {
	var gotRemote string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/synced-todos" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer key" {
			t.Errorf("Authorization = %q", auth)
		}
		gotRemote = r.URL.Query().Get("git_remote")
		jsonResponse(t, w, http.StatusOK, map[string]any{
			"success": true,
			"todos": []map[string]any{
				{"id": "t1", "displayNumber": 3, "summary": "plain"},
				{"id": "t2", "displayNumber": 9, "summary": "pinned", "isFocused": true},
				{"id": "t3", "displayNumber": 12, "summary": "done", "status": "completed"},
				{"id": "t4", "displayNumber": 4, "summary": "backlog", "isBacklog": true},
				{"id": "t5", "displayNumber": 0, "summary": "unnumbered"},
			},
		})
	}))
	defer srv.Close()

	c := New(srv.URL, "key")
	tasks, err := c.ListActive(context.Background(), "github.com/a/b", false)
	if err != nil {
		t.Fatalf("ListActive failed: %v", err)
	}
	if gotRemote != "github.com/a/b" {
		t.Errorf("git_remote = %q", gotRemote)
	}

	// Completed, backlog, and unnumbered tasks are filtered; pinned leads.
	if len(tasks) != 2 {
		t.Fatalf("got %d tasks, want 2", len(tasks))
	}
	if tasks[0].ID != "t2" || tasks[1].ID != "t1" {
		t.Errorf("order = %s, %s; want pinned first", tasks[0].ID, tasks[1].ID)
	}

	withBacklog, err := c.ListActive(context.Background(), "github.com/a/b", true)
	if err != nil {
		t.Fatal(err)
	}
	if len(withBacklog) != 3 {
		t.Errorf("with backlog: got %d tasks, want 3", len(withBacklog))
	}
}

func TestFetchByNumber(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("display_number"); got != "427" {
			jsonResponse(t, w, http.StatusOK, map[string]any{"success": true, "todos": []any{}})
			return
		}
		jsonResponse(t, w, http.StatusOK, map[string]any{
			"success": true,
			"todos": []map[string]any{
				{"id": "t427", "displayNumber": 427, "summary": "fix login", "originalTranscript": "uh fix the login thing"},
			},
		})
	}))
	defer srv.Close()

	c := New(srv.URL, "key")
	task, err := c.FetchByNumber(context.Background(), 427)
	if err != nil {
		t.Fatalf("FetchByNumber failed: %v", err)
	}
	if task.ID != "t427" || task.Transcript != "uh fix the login thing" {
		t.Errorf("unexpected task: %+v", task)
	}

	if _, err := c.FetchByNumber(context.Background(), 9999); !errors.Is(err, ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
	if _, err := c.FetchByNumber(context.Background(), 0); !errors.Is(err, ErrValidation) {
		t.Errorf("got %v, want ErrValidation for zero", err)
	}
}

func TestSearch_ActiveFirst(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/synced-todos/search" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if q := r.URL.Query().Get("q"); q != "login" {
			t.Errorf("q = %q", q)
		}
		jsonResponse(t, w, http.StatusOK, map[string]any{
			"success": true,
			"todos": []map[string]any{
				{"id": "done", "displayNumber": 1, "summary": "login flow", "status": "completed"},
				{"id": "open", "displayNumber": 2, "summary": "login bug"},
			},
		})
	}))
	defer srv.Close()

	c := New(srv.URL, "key")
	tasks, err := c.Search(context.Background(), "login", true, "")
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(tasks) != 2 || tasks[0].ID != "open" {
		t.Errorf("active task should come first: %+v", tasks)
	}

	if _, err := c.Search(context.Background(), "", true, ""); !errors.Is(err, ErrValidation) {
		t.Errorf("empty query: got %v, want ErrValidation", err)
	}
}

func TestMarkStarted_ClaimConflict(t *testing.T) {
	claimed := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch || r.URL.Path != "/update-task-execution" {
			t.Errorf("%s %s", r.Method, r.URL.Path)
		}
		var body struct {
			TodoID    string `json:"todoId"`
			MachineID string `json:"machineId"`
			Atomic    bool   `json:"atomic"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatal(err)
		}
		if !body.Atomic || body.MachineID == "" {
			t.Errorf("atomic claim fields missing: %+v", body)
		}
		jsonResponse(t, w, http.StatusOK, map[string]any{
			"success": true, "claimed": claimed, "claimedBy": "laptop-a1b2c3d4",
		})
	}))
	defer srv.Close()

	c := New(srv.URL, "key")
	err := c.MarkStarted(context.Background(), "t1", "desktop-11223344", "desktop")
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("got %v, want ErrConflict", err)
	}
	if !strings.Contains(err.Error(), "laptop-a1b2c3d4") {
		t.Errorf("conflict error should name the claimer: %v", err)
	}

	claimed = true
	if err := c.MarkStarted(context.Background(), "t1", "desktop-11223344", "desktop"); err != nil {
		t.Errorf("claim granted but got %v", err)
	}
}

func TestMarkCompleted_CommentValidatedLocally(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		jsonResponse(t, w, http.StatusOK, map[string]any{"success": true})
	}))
	defer srv.Close()

	c := New(srv.URL, "key")
	long := strings.Repeat("x", models.MaxCompletionCommentLen+1)
	if err := c.MarkCompleted(context.Background(), "t1", long); !errors.Is(err, ErrValidation) {
		t.Fatalf("got %v, want ErrValidation", err)
	}
	if n := atomic.LoadInt32(&hits); n != 0 {
		t.Errorf("oversized comment reached the network: %d requests", n)
	}

	if err := c.MarkCompleted(context.Background(), "t1", "done"); err != nil {
		t.Errorf("MarkCompleted failed: %v", err)
	}
}

func TestCountPending(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/claude-tasks/count" {
			t.Errorf("path = %q", r.URL.Path)
		}
		jsonResponse(t, w, http.StatusOK, map[string]any{"success": true, "count": 7})
	}))
	defer srv.Close()

	c := New(srv.URL, "key")
	n, err := c.CountPending(context.Background())
	if err != nil {
		t.Fatalf("CountPending failed: %v", err)
	}
	if n != 7 {
		t.Errorf("count = %d, want 7", n)
	}
}

func TestPollDeviceAuth_SlowDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		jsonResponse(t, w, http.StatusTooManyRequests, map[string]any{
			"error": "slow_down", "interval": 15,
		})
	}))
	defer srv.Close()

	c := New(srv.URL, "")
	_, err := c.PollDeviceAuth(context.Background(), "code")
	var slow *SlowDownError
	if !errors.As(err, &slow) {
		t.Fatalf("got %v, want *SlowDownError", err)
	}
	if slow.Interval != 15 {
		t.Errorf("interval = %d, want 15", slow.Interval)
	}
}

func TestExitCode(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{nil, 0},
		{ErrNotFound, 1},
		{ErrValidation, 1},
		{ErrConflict, 1},
		{ErrMissingCredentials, 2},
		{ErrAuthInvalid, 2},
		{ErrNetwork, 2},
	}
	for _, tc := range cases {
		if got := ExitCode(tc.err); got != tc.want {
			t.Errorf("ExitCode(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}
