// Package cache keeps a time-bounded local snapshot of fetched tasks so
// repeated invocations inside an agent session avoid network round trips.
// Overlapping processes may race on the file; last writer wins, which is
// acceptable because the cache is purely a performance layer.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/masslessai/push-cli/internal/api"
	"github.com/masslessai/push-cli/models"
	"github.com/spf13/afero"
)

// scopeKeyAll names the cache entry for unscoped fetches. The empty scope
// key cannot be a JSON-friendly map key on its own, so it is aliased.
const scopeKeyAll = "__all__"

// entry is one cached snapshot: the tasks fetched under a scope plus the
// fetch time.
type entry struct {
	Tasks    []models.Task `json:"tasks"`
	CachedAt time.Time     `json:"cached_at"`
}

// file is the on-disk shape, keyed by scope.
type file struct {
	Scopes map[string]entry `json:"scopes"`
}

// FetchFunc performs the remote refresh for a scope.
type FetchFunc func(ctx context.Context) ([]models.Task, error)

// Store is the task cache backed by a single JSON file.
type Store struct {
	fs   afero.Fs
	path string
}

// New builds a store over the OS filesystem at the default location,
// ~/.config/push/cache/tasks.json.
func New(configDir string) *Store {
	return NewWithFs(afero.NewOsFs(), filepath.Join(configDir, "cache", "tasks.json"))
}

// NewWithFs builds a store over an arbitrary filesystem (tests use
// afero.NewMemMapFs).
func NewWithFs(fs afero.Fs, path string) *Store {
	return &Store{fs: fs, path: path}
}

// GetOrRefresh returns tasks for a scope. Tiered policy: a snapshot
// younger than maxAge is served as-is; otherwise fetch runs, and on
// success replaces the entry. When fetch fails with api.ErrNetwork and a
// stale snapshot exists, the snapshot is returned with stale=true; with no
// snapshot at all the error propagates.
func (s *Store) GetOrRefresh(ctx context.Context, scope string, maxAge time.Duration, fetch FetchFunc) (tasks []models.Task, stale bool, err error) {
	cached, cachedAt, ok := s.lookup(scope)
	if ok && time.Since(cachedAt) <= maxAge {
		return cached, false, nil
	}

	fresh, fetchErr := fetch(ctx)
	if fetchErr == nil {
		if putErr := s.Put(scope, fresh); putErr != nil {
			// Cache write failure must not mask fresh data.
			return fresh, false, nil
		}
		return fresh, false, nil
	}

	if ok && errors.Is(fetchErr, api.ErrNetwork) {
		return cached, true, nil
	}
	return nil, false, fetchErr
}

// Put replaces the cache entry for a scope.
func (s *Store) Put(scope string, tasks []models.Task) error {
	f := s.load()
	f.Scopes[key(scope)] = entry{Tasks: tasks, CachedAt: time.Now().UTC()}
	return s.save(f)
}

// Invalidate removes a task from every scope entry it appears in. Called
// after every successful mutation so a list within the same staleness
// window never shows a task the user already finished.
func (s *Store) Invalidate(taskID string) error {
	f := s.load()
	changed := false
	for k, e := range f.Scopes {
		kept := e.Tasks[:0]
		for _, t := range e.Tasks {
			if t.ID != taskID {
				kept = append(kept, t)
			}
		}
		if len(kept) != len(e.Tasks) {
			e.Tasks = kept
			f.Scopes[k] = e
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return s.save(f)
}

// Clear drops the whole cache file.
func (s *Store) Clear() error {
	err := s.fs.Remove(s.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove cache file: %w", err)
	}
	return nil
}

func (s *Store) lookup(scope string) ([]models.Task, time.Time, bool) {
	f := s.load()
	e, ok := f.Scopes[key(scope)]
	if !ok || e.CachedAt.IsZero() {
		return nil, time.Time{}, false
	}
	return e.Tasks, e.CachedAt, true
}

// load reads the cache file, treating a missing or corrupt file as empty.
// A broken cache must never break the command.
func (s *Store) load() file {
	f := file{Scopes: map[string]entry{}}
	raw, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		return f
	}
	if err := json.Unmarshal(raw, &f); err != nil || f.Scopes == nil {
		return file{Scopes: map[string]entry{}}
	}
	return f
}

func (s *Store) save(f file) error {
	raw, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return err
	}
	if err := s.fs.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create cache directory: %w", err)
	}
	if err := afero.WriteFile(s.fs, s.path, raw, 0o644); err != nil {
		return fmt.Errorf("write cache file: %w", err)
	}
	return nil
}

func key(scope string) string {
	if scope == "" {
		return scopeKeyAll
	}
	return scope
}
