// Package scope resolves the working directory to a project identity. The
// backend compares git_remote values as exact strings, so normalization
// must map every spelling of the same remote to one canonical key.
package scope

import (
	"context"
	"os/exec"
	"strings"
	"time"
)

// All is the universal scope used outside a git repository: no project
// filter is applied.
const All = ""

// gitTimeout bounds the subprocess call so a hung git never stalls the CLI.
const gitTimeout = 5 * time.Second

// Current returns the normalized scope key for dir. Outside a repo, or
// when the repo has no origin remote, it returns All.
func Current(ctx context.Context, dir string) string {
	ctx, cancel := context.WithTimeout(ctx, gitTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", "remote", "get-url", "origin")
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		return All
	}
	raw := strings.TrimSpace(string(out))
	if raw == "" {
		return All
	}
	return Normalize(raw)
}

// Normalize canonicalizes a git remote URL:
//
//	git@github.com:User/Repo.git  -> github.com/User/Repo
//	https://github.com/User/Repo/ -> github.com/User/Repo
//	ssh://git@Host/User/Repo.git  -> host/User/Repo
//
// The host is lower-cased; the path keeps its case because some forges
// treat repository paths case-sensitively. Normalize is pure and
// idempotent.
func Normalize(remote string) string {
	url := strings.TrimSpace(remote)
	if url == "" {
		return All
	}

	for _, prefix := range []string{"ssh://git@", "https://", "http://", "git://", "git@"} {
		if strings.HasPrefix(url, prefix) {
			url = url[len(prefix):]
			break
		}
	}

	// Strip embedded credentials (user:pass@host).
	if at := strings.LastIndex(url, "@"); at != -1 && !strings.Contains(url[:at], "/") {
		url = url[at+1:]
	}

	// scp-like syntax: host:path -> host/path.
	if i := strings.Index(url, ":"); i != -1 && !strings.Contains(url[:i], "/") {
		url = url[:i] + "/" + url[i+1:]
	}

	url = strings.TrimSuffix(url, "/")
	url = strings.TrimSuffix(url, ".git")
	url = strings.TrimSuffix(url, "/")

	if slash := strings.Index(url, "/"); slash != -1 {
		url = strings.ToLower(url[:slash]) + url[slash:]
	} else {
		url = strings.ToLower(url)
	}
	return url
}
