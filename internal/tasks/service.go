// Package tasks is the core task-sync service. The cobra commands and the
// MCP server are thin adapters over it; everything that touches the
// backend, the cache, or project scoping goes through Service.
package tasks

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/masslessai/push-cli/internal/api"
	"github.com/masslessai/push-cli/internal/cache"
	"github.com/masslessai/push-cli/internal/scope"
	"github.com/masslessai/push-cli/models"
)

// Backend is the slice of the API client the service needs. Narrowed to an
// interface so tests can stub the remote side.
type Backend interface {
	ListActive(ctx context.Context, scope string, includeBacklog bool) ([]models.Task, error)
	FetchByNumber(ctx context.Context, n int) (models.Task, error)
	Search(ctx context.Context, query string, allProjects bool, scope string) ([]models.Task, error)
	MarkStarted(ctx context.Context, id, machineID, machineName string) error
	MarkCompleted(ctx context.Context, id, comment string) error
	CountPending(ctx context.Context) (int, error)
}

// Service composes the remote client, the local cache, and project
// scoping. One Service lives for the duration of a command invocation.
type Service struct {
	backend     Backend
	cache       *cache.Store
	maxAge      time.Duration
	machineID   string
	machineName string
	workDir     string
}

// Options configure a Service.
type Options struct {
	Backend     Backend
	Cache       *cache.Store
	CacheMaxAge time.Duration
	MachineID   string
	MachineName string
	WorkDir     string
}

// NewService wires a service. CacheMaxAge of zero disables serving cached
// snapshots (every list refreshes).
func NewService(opts Options) *Service {
	return &Service{
		backend:     opts.Backend,
		cache:       opts.Cache,
		maxAge:      opts.CacheMaxAge,
		machineID:   opts.MachineID,
		machineName: opts.MachineName,
		workDir:     opts.WorkDir,
	}
}

// ListOptions shape a listing request.
type ListOptions struct {
	// AllProjects disables project scoping.
	AllProjects bool
	// IncludeBacklog includes tasks the user deferred.
	IncludeBacklog bool
	// PinnedOnly narrows to focused tasks when any exist; otherwise the
	// full list is returned pinned-first (the original plugin behavior).
	PinnedOnly bool
	// Refresh bypasses the cache.
	Refresh bool
}

// ListResult carries the listing plus staleness metadata for display.
type ListResult struct {
	Tasks []models.Task `json:"tasks"`
	Scope string        `json:"scope,omitempty"`
	Stale bool          `json:"stale,omitempty"`
}

// CurrentScope resolves the working directory to a scope key.
func (s *Service) CurrentScope(ctx context.Context) string {
	return scope.Current(ctx, s.workDir)
}

// ListActive returns active tasks for the current scope (or all projects),
// serving the cache within its max age and falling back to a stale
// snapshot on network failure.
func (s *Service) ListActive(ctx context.Context, opts ListOptions) (ListResult, error) {
	key := scope.All
	if !opts.AllProjects {
		key = s.CurrentScope(ctx)
	}

	// Always fetch with backlog included so one cache entry serves both
	// views; the backlog filter is applied after.
	fetch := func(ctx context.Context) ([]models.Task, error) {
		return s.backend.ListActive(ctx, key, true)
	}

	var (
		tasks []models.Task
		stale bool
		err   error
	)
	maxAge := s.maxAge
	if opts.Refresh {
		maxAge = 0
	}
	if s.cache != nil {
		tasks, stale, err = s.cache.GetOrRefresh(ctx, key, maxAge, fetch)
	} else {
		tasks, err = fetch(ctx)
	}
	if err != nil {
		return ListResult{}, err
	}

	if !opts.IncludeBacklog {
		tasks = filter(tasks, func(t models.Task) bool { return !t.IsBacklog })
	}
	if opts.PinnedOnly {
		pinned := filter(tasks, func(t models.Task) bool { return t.IsFocused })
		if len(pinned) > 0 {
			tasks = pinned
		}
	}
	models.SortActive(tasks)

	return ListResult{Tasks: tasks, Scope: key, Stale: stale}, nil
}

// FetchByNumber resolves a display number directly, bypassing listing and
// scope filtering.
func (s *Service) FetchByNumber(ctx context.Context, n int) (models.Task, error) {
	return s.backend.FetchByNumber(ctx, n)
}

// Search queries summary, content, and transcript across active and
// completed tasks, active first.
func (s *Service) Search(ctx context.Context, query string, allProjects bool) ([]models.Task, error) {
	key := scope.All
	if !allProjects {
		key = s.CurrentScope(ctx)
	}
	return s.backend.Search(ctx, query, allProjects, key)
}

// Start marks a task started and invalidates cached copies. The id may be
// a display-number reference ("427" or "#427"), resolved first.
func (s *Service) Start(ctx context.Context, ref string) (models.Task, error) {
	task, err := s.resolve(ctx, ref)
	if err != nil {
		return models.Task{}, err
	}
	if err := s.backend.MarkStarted(ctx, task.ID, s.machineID, s.machineName); err != nil {
		return models.Task{}, err
	}
	if s.cache != nil {
		_ = s.cache.Invalidate(task.ID)
	}
	task.Status = models.StatusStarted
	return task, nil
}

// Complete marks a task completed with an optional comment and invalidates
// cached copies unconditionally, so a list within the same staleness
// window never resurrects it.
func (s *Service) Complete(ctx context.Context, ref, comment string) (models.Task, error) {
	if err := models.ValidateCompletionComment(comment); err != nil {
		return models.Task{}, fmt.Errorf("%w: %v", api.ErrValidation, err)
	}
	task, err := s.resolve(ctx, ref)
	if err != nil {
		return models.Task{}, err
	}
	if err := s.backend.MarkCompleted(ctx, task.ID, comment); err != nil {
		return models.Task{}, err
	}
	if s.cache != nil {
		_ = s.cache.Invalidate(task.ID)
	}
	task.Status = models.StatusCompleted
	return task, nil
}

// CountPending reports the number of pending tasks (session-start hook).
func (s *Service) CountPending(ctx context.Context) (int, error) {
	return s.backend.CountPending(ctx)
}

// resolve turns a task reference into a task. Mutations need the opaque
// id, so display-number references go through FetchByNumber first; raw ids
// pass through with a placeholder task.
func (s *Service) resolve(ctx context.Context, ref string) (models.Task, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return models.Task{}, fmt.Errorf("%w: task reference required", api.ErrValidation)
	}
	if n, ok := ParseNumber(ref); ok {
		return s.FetchByNumber(ctx, n)
	}
	return models.Task{ID: ref}, nil
}

// ParseNumber reports whether ref is a display-number reference, with or
// without the leading '#'.
func ParseNumber(ref string) (int, bool) {
	ref = strings.TrimPrefix(strings.TrimSpace(ref), "#")
	n, err := strconv.Atoi(ref)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

func filter(tasks []models.Task, keep func(models.Task) bool) []models.Task {
	out := tasks[:0:0]
	for _, t := range tasks {
		if keep(t) {
			out = append(out, t)
		}
	}
	return out
}

// TermExtractor is the seam for semantic keyword extraction, which lives
// outside this client (an LLM does it during connect). Implementations
// must be side-effect free.
type TermExtractor interface {
	ExtractTerms(ctx context.Context, text string) ([]string, error)
}
