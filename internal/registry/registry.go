// Package registry maps normalized git remotes to local checkout paths.
// The executor daemon uses it to route tasks to the right directory; the
// CLI writes entries on connect and reads them for status display.
package registry

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/afero"
)

// Version of the registry file schema.
const Version = 1

// Project is one registered checkout.
type Project struct {
	LocalPath    string    `json:"local_path"`
	RegisteredAt time.Time `json:"registered_at"`
	LastUsed     time.Time `json:"last_used"`
}

type registryFile struct {
	Version        int                `json:"version"`
	Projects       map[string]Project `json:"projects"`
	DefaultProject string             `json:"default_project,omitempty"`
}

// InvalidEntry describes a registered path that no longer checks out.
type InvalidEntry struct {
	GitRemote string `json:"git_remote"`
	LocalPath string `json:"local_path"`
	Reason    string `json:"reason"`
}

// Registry is the file-backed project registry.
type Registry struct {
	fs   afero.Fs
	path string
}

// New opens the registry at ~/.config/push/projects.json.
func New(configDir string) *Registry {
	return NewWithFs(afero.NewOsFs(), filepath.Join(configDir, "projects.json"))
}

// NewWithFs opens a registry on an arbitrary filesystem (tests).
func NewWithFs(fs afero.Fs, path string) *Registry {
	return &Registry{fs: fs, path: path}
}

// Register adds or updates a project mapping. Returns true when the remote
// was not registered before. The first project registered becomes the
// default.
func (r *Registry) Register(gitRemote, localPath string) (bool, error) {
	f := r.load()
	now := time.Now().UTC()

	p, exists := f.Projects[gitRemote]
	if exists {
		p.LocalPath = localPath
		p.LastUsed = now
	} else {
		p = Project{LocalPath: localPath, RegisteredAt: now, LastUsed: now}
	}
	f.Projects[gitRemote] = p

	if f.DefaultProject == "" {
		f.DefaultProject = gitRemote
	}
	if err := r.save(f); err != nil {
		return false, err
	}
	return !exists, nil
}

// Path returns the local path for a remote, or ok=false when unregistered.
// Reads do not touch last_used; only Register does.
func (r *Registry) Path(gitRemote string) (string, bool) {
	p, ok := r.load().Projects[gitRemote]
	if !ok {
		return "", false
	}
	return p.LocalPath, true
}

// Projects returns all registered projects keyed by remote.
func (r *Registry) Projects() map[string]Project {
	return r.load().Projects
}

// DefaultProject returns the default remote, or empty when none is set.
func (r *Registry) DefaultProject() string {
	return r.load().DefaultProject
}

// Unregister removes a mapping. When the default project is removed, an
// arbitrary remaining project becomes the default.
func (r *Registry) Unregister(gitRemote string) (bool, error) {
	f := r.load()
	if _, ok := f.Projects[gitRemote]; !ok {
		return false, nil
	}
	delete(f.Projects, gitRemote)
	if f.DefaultProject == gitRemote {
		f.DefaultProject = ""
		for remote := range f.Projects {
			f.DefaultProject = remote
			break
		}
	}
	if err := r.save(f); err != nil {
		return false, err
	}
	return true, nil
}

// Validate reports registered paths that are missing, not directories, or
// no longer git checkouts.
func (r *Registry) Validate() []InvalidEntry {
	var invalid []InvalidEntry
	for remote, p := range r.load().Projects {
		info, err := r.fs.Stat(p.LocalPath)
		switch {
		case err != nil:
			invalid = append(invalid, InvalidEntry{remote, p.LocalPath, "path_not_found"})
		case !info.IsDir():
			invalid = append(invalid, InvalidEntry{remote, p.LocalPath, "not_a_directory"})
		default:
			if _, err := r.fs.Stat(filepath.Join(p.LocalPath, ".git")); err != nil {
				invalid = append(invalid, InvalidEntry{remote, p.LocalPath, "not_a_git_repo"})
			}
		}
	}
	return invalid
}

func (r *Registry) load() registryFile {
	f := registryFile{Version: Version, Projects: map[string]Project{}}
	raw, err := afero.ReadFile(r.fs, r.path)
	if err != nil {
		return f
	}
	if err := json.Unmarshal(raw, &f); err != nil || f.Projects == nil {
		return registryFile{Version: Version, Projects: map[string]Project{}}
	}
	return f
}

func (r *Registry) save(f registryFile) error {
	f.Version = Version
	raw, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return err
	}
	if err := r.fs.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := afero.WriteFile(r.fs, r.path, raw, 0o644); err != nil {
		return fmt.Errorf("write registry: %w", err)
	}
	return nil
}
