// Package gitsnap implements the git-snapshot collaborator: it captures
// an opaque state identifier for a directory before and after commands.
// The engine never inspects the identifier; it only forwards it to the
// audit sink.
package gitsnap

import (
	"context"
	"log/slog"
	"os/exec"
	"strings"
)

// Snapshotter captures state identifiers from a git working tree.
// Non-repository roots are handled silently: Capture returns an empty
// identifier and no error.
type Snapshotter struct {
	root   string
	logger *slog.Logger
}

// New creates a Snapshotter over root.
func New(root string, logger *slog.Logger) *Snapshotter {
	return &Snapshotter{root: root, logger: logger}
}

// Capture returns an identifier for the current state of the tree:
// a `git stash create` commit when the working tree is dirty, the HEAD
// commit when clean, or an empty string when root is not a git
// repository.
func (s *Snapshotter) Capture(ctx context.Context) (string, error) {
	if !s.isRepo(ctx) {
		return "", nil
	}

	// stash create writes a commit object without moving any ref;
	// empty output means the working tree is clean.
	out, err := s.git(ctx, "stash", "create")
	if err == nil && out != "" {
		return out, nil
	}

	head, err := s.git(ctx, "rev-parse", "HEAD")
	if err != nil {
		// A repo with no commits yet has no HEAD to name.
		s.logger.Debug("git snapshot unavailable", slog.String("error", err.Error()))
		return "", nil
	}
	return head, nil
}

func (s *Snapshotter) isRepo(ctx context.Context) bool {
	_, err := s.git(ctx, "rev-parse", "--is-inside-work-tree")
	return err == nil
}

func (s *Snapshotter) git(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = s.root
	out, err := cmd.Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}
