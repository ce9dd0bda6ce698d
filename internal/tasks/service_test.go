package tasks

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/masslessai/push-cli/internal/api"
	"github.com/masslessai/push-cli/internal/cache"
	"github.com/masslessai/push-cli/models"
	"github.com/spf13/afero"
)

// stubBackend plays back canned tasks and records which calls ran.
type stubBackend struct {
	tasks      []models.Task
	listCalls  int
	fetchCalls int
	started    []string
	completed  []string
	listErr    error
}

func (s *stubBackend) ListActive(_ context.Context, scope string, includeBacklog bool) ([]models.Task, error) {
	s.listCalls++
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []models.Task
	for _, t := range s.tasks {
		if !t.Active() {
			continue
		}
		if t.IsBacklog && !includeBacklog {
			continue
		}
		if scope != "" && t.GitRemote != scope {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (s *stubBackend) FetchByNumber(_ context.Context, n int) (models.Task, error) {
	s.fetchCalls++
	for _, t := range s.tasks {
		if t.DisplayNumber == n {
			return t, nil
		}
	}
	return models.Task{}, api.ErrNotFound
}

func (s *stubBackend) Search(_ context.Context, query string, _ bool, _ string) ([]models.Task, error) {
	var out []models.Task
	for _, t := range s.tasks {
		if strings.Contains(t.Summary, query) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *stubBackend) MarkStarted(_ context.Context, id, _, _ string) error {
	s.started = append(s.started, id)
	return nil
}

func (s *stubBackend) MarkCompleted(_ context.Context, id, _ string) error {
	s.completed = append(s.completed, id)
	return nil
}

func (s *stubBackend) CountPending(context.Context) (int, error) {
	n := 0
	for _, t := range s.tasks {
		if t.Status == models.StatusPending || t.Status == "" {
			n++
		}
	}
	return n, nil
}

func newTestService(t *testing.T, backend *stubBackend) (*Service, *cache.Store) {
	t.Helper()
	store := cache.NewWithFs(afero.NewMemMapFs(), "/cache/tasks.json")
	svc := NewService(Options{
		Backend:     backend,
		Cache:       store,
		CacheMaxAge: 5 * time.Minute,
		MachineID:   "test-12345678",
		MachineName: "test",
		WorkDir:     t.TempDir(), // not a git repo, so scope resolves to all
	})
	return svc, store
}

func TestListActive_PinnedFirst(t *testing.T) {
	backend := &stubBackend{tasks: []models.Task{
		{ID: "a", DisplayNumber: 3, Summary: "older"},
		{ID: "b", DisplayNumber: 5, Summary: "pinned", IsFocused: true},
		{ID: "c", DisplayNumber: 9, Summary: "newest"},
	}}
	svc, _ := newTestService(t, backend)

	res, err := svc.ListActive(context.Background(), ListOptions{})
	if err != nil {
		t.Fatalf("ListActive failed: %v", err)
	}
	if len(res.Tasks) != 3 {
		t.Fatalf("got %d tasks, want 3", len(res.Tasks))
	}
	if res.Tasks[0].DisplayNumber != 5 {
		t.Errorf("first task is #%d, want pinned #5", res.Tasks[0].DisplayNumber)
	}
	if res.Tasks[1].DisplayNumber != 9 || res.Tasks[2].DisplayNumber != 3 {
		t.Errorf("unpinned tail should be newest-first: %v, %v",
			res.Tasks[1].DisplayNumber, res.Tasks[2].DisplayNumber)
	}
}

func TestListActive_BacklogFilteredFromOneCacheEntry(t *testing.T) {
	backend := &stubBackend{tasks: []models.Task{
		{ID: "a", DisplayNumber: 1, Summary: "normal"},
		{ID: "b", DisplayNumber: 2, Summary: "deferred", IsBacklog: true},
	}}
	svc, _ := newTestService(t, backend)

	res, err := svc.ListActive(context.Background(), ListOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Tasks) != 1 || res.Tasks[0].ID != "a" {
		t.Errorf("default listing should hide backlog: %+v", res.Tasks)
	}

	// The same cache entry must serve the backlog view without refetching.
	res, err = svc.ListActive(context.Background(), ListOptions{IncludeBacklog: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Tasks) != 2 {
		t.Errorf("backlog view: got %d tasks, want 2", len(res.Tasks))
	}
	if backend.listCalls != 1 {
		t.Errorf("backend listed %d times, want 1 (cache hit)", backend.listCalls)
	}
}

func TestListActive_PinnedOnlyFallsBack(t *testing.T) {
	backend := &stubBackend{tasks: []models.Task{
		{ID: "a", DisplayNumber: 1, Summary: "plain"},
	}}
	svc, _ := newTestService(t, backend)

	res, err := svc.ListActive(context.Background(), ListOptions{PinnedOnly: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Tasks) != 1 {
		t.Errorf("with no pinned tasks the full list should return, got %d", len(res.Tasks))
	}
}

func TestListActive_RefreshBypassesCache(t *testing.T) {
	backend := &stubBackend{tasks: []models.Task{{ID: "a", DisplayNumber: 1, Summary: "x"}}}
	svc, _ := newTestService(t, backend)

	if _, err := svc.ListActive(context.Background(), ListOptions{}); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.ListActive(context.Background(), ListOptions{Refresh: true}); err != nil {
		t.Fatal(err)
	}
	if backend.listCalls != 2 {
		t.Errorf("backend listed %d times, want 2 with --refresh", backend.listCalls)
	}
}

func TestListActive_StaleFallbackOnNetworkError(t *testing.T) {
	backend := &stubBackend{tasks: []models.Task{{ID: "a", DisplayNumber: 1, Summary: "x"}}}
	svc, _ := newTestService(t, backend)

	if _, err := svc.ListActive(context.Background(), ListOptions{}); err != nil {
		t.Fatal(err)
	}

	backend.listErr = api.ErrNetwork
	res, err := svc.ListActive(context.Background(), ListOptions{Refresh: true})
	if err != nil {
		t.Fatalf("expected stale fallback, got %v", err)
	}
	if !res.Stale {
		t.Error("fallback result not flagged stale")
	}
	if len(res.Tasks) != 1 {
		t.Errorf("got %d tasks from snapshot, want 1", len(res.Tasks))
	}
}

func TestStart_ResolvesNumberWithoutListing(t *testing.T) {
	backend := &stubBackend{tasks: []models.Task{
		{ID: "t427", DisplayNumber: 427, Summary: "fix login"},
	}}
	svc, _ := newTestService(t, backend)

	task, err := svc.Start(context.Background(), "#427")
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if task.ID != "t427" || task.Status != models.StatusStarted {
		t.Errorf("unexpected task: %+v", task)
	}
	if backend.listCalls != 0 {
		t.Errorf("number reference triggered %d listing calls, want 0", backend.listCalls)
	}
	if len(backend.started) != 1 || backend.started[0] != "t427" {
		t.Errorf("started = %v", backend.started)
	}
}

func TestComplete_InvalidatesCache(t *testing.T) {
	backend := &stubBackend{tasks: []models.Task{
		{ID: "t1", DisplayNumber: 1, Summary: "a"},
		{ID: "t2", DisplayNumber: 2, Summary: "b"},
	}}
	svc, _ := newTestService(t, backend)

	if _, err := svc.ListActive(context.Background(), ListOptions{}); err != nil {
		t.Fatal(err)
	}

	if _, err := svc.Complete(context.Background(), "2", ""); err != nil {
		t.Fatalf("Complete failed: %v", err)
	}

	// Within the staleness window the completed task must be gone.
	res, err := svc.ListActive(context.Background(), ListOptions{})
	if err != nil {
		t.Fatal(err)
	}
	for _, task := range res.Tasks {
		if task.ID == "t2" {
			t.Error("completed task resurrected from the cache")
		}
	}
	if backend.listCalls != 1 {
		t.Errorf("backend listed %d times, want 1 (second list from cache)", backend.listCalls)
	}
}

func TestComplete_OversizedCommentFailsBeforeBackend(t *testing.T) {
	backend := &stubBackend{tasks: []models.Task{{ID: "t1", DisplayNumber: 1, Summary: "a"}}}
	svc, _ := newTestService(t, backend)

	long := strings.Repeat("x", models.MaxCompletionCommentLen+1)
	_, err := svc.Complete(context.Background(), "1", long)
	if !errors.Is(err, api.ErrValidation) {
		t.Fatalf("got %v, want ErrValidation", err)
	}
	if backend.fetchCalls != 0 || len(backend.completed) != 0 {
		t.Error("oversized comment reached the backend")
	}
}

func TestComplete_RawIDPassesThrough(t *testing.T) {
	backend := &stubBackend{}
	svc, _ := newTestService(t, backend)

	if _, err := svc.Complete(context.Background(), "uuid-like-id", "done"); err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if backend.fetchCalls != 0 {
		t.Error("raw id should not trigger a number lookup")
	}
	if len(backend.completed) != 1 || backend.completed[0] != "uuid-like-id" {
		t.Errorf("completed = %v", backend.completed)
	}
}

func TestParseNumber(t *testing.T) {
	cases := []struct {
		in string
		n  int
		ok bool
	}{
		{"427", 427, true},
		{"#427", 427, true},
		{" #3 ", 3, true},
		{"0", 0, false},
		{"-5", 0, false},
		{"12a", 0, false},
		{"login bug", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		n, ok := ParseNumber(tc.in)
		if n != tc.n || ok != tc.ok {
			t.Errorf("ParseNumber(%q) = %d, %v; want %d, %v", tc.in, n, ok, tc.n, tc.ok)
		}
	}
}
