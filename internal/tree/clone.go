// Package tree copies directory trees: full clones into a fresh sandbox
// root and per-file replay of a change-set back onto the original.
//
// Symlink policy: links are preserved as links and never followed. The
// clone walk keeps a visited set of resolved directory paths and fails
// fast if a directory is reachable twice (bind mounts, link cycles)
// instead of looping or recursing without bound.
package tree

import (
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/jkaninda/clai/internal/pathfilter"
)

// CloneError reports a failed clone and the path that caused it. The
// partially created sandbox has already been removed when this is
// returned.
type CloneError struct {
	Path string
	Err  error
}

func (e *CloneError) Error() string {
	return fmt.Sprintf("cloning %s: %v", e.Path, e.Err)
}

func (e *CloneError) Unwrap() error { return e.Err }

// Cloner recursively copies a filtered directory tree.
type Cloner struct {
	filter *pathfilter.Filter
	logger *slog.Logger
}

// NewCloner creates a Cloner using the given filter.
func NewCloner(filter *pathfilter.Filter, logger *slog.Logger) *Cloner {
	return &Cloner{filter: filter, logger: logger}
}

// Clone copies src into dst, creating dst. File bytes and permission
// bits are copied; entries rejected by the filter are skipped. There is
// no partial-clone recovery: any I/O failure removes dst entirely and
// returns a CloneError naming the offending path.
func (c *Cloner) Clone(src, dst string) error {
	if _, err := os.Stat(dst); err == nil {
		return &CloneError{Path: dst, Err: fmt.Errorf("sandbox directory already exists")}
	}
	if err := c.clone(src, dst); err != nil {
		if rmErr := os.RemoveAll(dst); rmErr != nil {
			c.logger.Warn("failed to remove partial sandbox",
				slog.String("dir", dst),
				slog.String("error", rmErr.Error()),
			)
		}
		if ce, ok := err.(*CloneError); ok {
			return ce
		}
		return &CloneError{Path: src, Err: err}
	}
	return nil
}

func (c *Cloner) clone(src, dst string) error {
	visited := make(map[string]bool)

	return filepath.WalkDir(src, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return &CloneError{Path: path, Err: err}
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return &CloneError{Path: path, Err: err}
		}
		if rel != "." && c.filter.Ignore(filepath.ToSlash(rel)) {
			if entry.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		target := filepath.Join(dst, rel)

		switch {
		case entry.IsDir():
			real, err := filepath.EvalSymlinks(path)
			if err != nil {
				return &CloneError{Path: path, Err: err}
			}
			if visited[real] {
				return &CloneError{Path: path, Err: fmt.Errorf("directory cycle detected at %s", real)}
			}
			visited[real] = true

			info, err := entry.Info()
			if err != nil {
				return &CloneError{Path: path, Err: err}
			}
			if err := os.MkdirAll(target, info.Mode().Perm()); err != nil {
				return &CloneError{Path: path, Err: err}
			}

		case entry.Type()&fs.ModeSymlink != 0:
			linkTarget, err := os.Readlink(path)
			if err != nil {
				return &CloneError{Path: path, Err: err}
			}
			if err := os.Symlink(linkTarget, target); err != nil {
				return &CloneError{Path: path, Err: err}
			}

		default:
			if err := copyFile(path, target); err != nil {
				return &CloneError{Path: path, Err: err}
			}
		}
		return nil
	})
}

// copyFile copies bytes and permission bits from src to dst.
func copyFile(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
