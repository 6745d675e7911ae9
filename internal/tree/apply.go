package tree

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/jkaninda/clai/internal/diff"
)

// Outcome is the per-file result of replaying one change onto the
// original tree. Err is nil on success.
type Outcome struct {
	Path string
	Type diff.ChangeType
	Err  error
}

// ApplyError reports the change-set entries that could not be replayed.
// Apply is deliberately not transactional across files: successes stand,
// failures are collected exhaustively, and the caller decides what to do
// next.
type ApplyError struct {
	Failures []Outcome
	Applied  int
}

func (e *ApplyError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "apply failed for %d of %d files:", len(e.Failures), e.Applied+len(e.Failures))
	for _, f := range e.Failures {
		fmt.Fprintf(&b, "\n  %s (%s): %v", f.Path, f.Type, f.Err)
	}
	return b.String()
}

// Total reports whether not a single file was applied.
func (e *ApplyError) Total() bool { return e.Applied == 0 }

// Applier replays change-sets from a sandbox root onto the original root.
type Applier struct {
	logger *slog.Logger
}

// NewApplier creates an Applier.
func NewApplier(logger *slog.Logger) *Applier {
	return &Applier{logger: logger}
}

// Apply copies added and modified entries from sandboxRoot over
// originalRoot (creating parent directories as needed) and removes
// deleted entries. Every entry is attempted; per-file failures are
// collected into an ApplyError rather than aborting the pass. The
// returned outcomes cover every entry in order.
func (a *Applier) Apply(originalRoot, sandboxRoot string, changes []diff.FileChange) ([]Outcome, error) {
	outcomes := make([]Outcome, 0, len(changes))
	var failures []Outcome
	applied := 0

	for _, change := range changes {
		origPath := filepath.Join(originalRoot, filepath.FromSlash(change.Path))
		sandPath := filepath.Join(sandboxRoot, filepath.FromSlash(change.Path))

		var err error
		switch change.Type {
		case diff.Added, diff.Modified:
			err = copyOver(sandPath, origPath)
		case diff.Deleted:
			err = os.Remove(origPath)
			if errors.Is(err, fs.ErrNotExist) {
				// Already gone; the goal state holds.
				err = nil
			}
		default:
			err = fmt.Errorf("unknown change type %q", change.Type)
		}

		outcome := Outcome{Path: change.Path, Type: change.Type, Err: err}
		outcomes = append(outcomes, outcome)
		if err != nil {
			a.logger.Warn("apply entry failed",
				slog.String("path", change.Path),
				slog.String("type", string(change.Type)),
				slog.String("error", err.Error()),
			)
			failures = append(failures, outcome)
			continue
		}
		applied++
	}

	if len(failures) > 0 {
		return outcomes, &ApplyError{Failures: failures, Applied: applied}
	}
	return outcomes, nil
}

// copyOver writes the sandbox version of a file (or symlink) over the
// original path, creating parent directories.
func copyOver(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}

	info, err := os.Lstat(src)
	if err != nil {
		return err
	}
	if info.Mode()&fs.ModeSymlink != 0 {
		target, err := os.Readlink(src)
		if err != nil {
			return err
		}
		if err := os.Remove(dst); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		return os.Symlink(target, dst)
	}
	return copyFile(src, dst)
}
