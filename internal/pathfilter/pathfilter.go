// Package pathfilter decides which filesystem entries participate in
// cloning and change detection. Filters are pure: no I/O, no state
// mutation after construction. Malformed patterns are rejected at
// construction time, never per path.
package pathfilter

import (
	"fmt"
	"path"
	"strings"
)

// SandboxPrefix names sandbox directories. Entries carrying this prefix
// are always excluded so a sandbox never clones itself and a stale
// sandbox never pollutes a diff.
const SandboxPrefix = ".clai_sandbox_"

// DefaultPatterns is the standard ignore set: VCS metadata, dependency
// and virtualenv directories, and build artifacts.
var DefaultPatterns = []string{
	".git",
	"__pycache__",
	"*.pyc",
	"node_modules",
	".venv",
	"venv",
	"*.egg-info",
}

// Filter reports whether a relative path should be ignored.
type Filter struct {
	patterns []string
}

// New builds a Filter from glob-style patterns (path.Match syntax).
// Each pattern is validated eagerly; a malformed pattern fails the
// whole construction.
func New(patterns []string) (*Filter, error) {
	for _, p := range patterns {
		if p == "" {
			return nil, fmt.Errorf("ignore pattern must not be empty")
		}
		if _, err := path.Match(p, "probe"); err != nil {
			return nil, fmt.Errorf("invalid ignore pattern %q: %w", p, err)
		}
	}
	return &Filter{patterns: patterns}, nil
}

// Default returns a Filter over DefaultPatterns.
func Default() *Filter {
	f, err := New(DefaultPatterns)
	if err != nil {
		// DefaultPatterns are constants; this cannot happen.
		panic(err)
	}
	return f
}

// Ignore reports whether the slash-separated relative path should be
// skipped. Every path segment is checked, so a match on a directory
// name excludes everything beneath it regardless of how the caller
// walks the tree.
func (f *Filter) Ignore(rel string) bool {
	if rel == "" || rel == "." {
		return false
	}
	for _, seg := range strings.Split(rel, "/") {
		if strings.HasPrefix(seg, SandboxPrefix) {
			return true
		}
		for _, p := range f.patterns {
			if ok, _ := path.Match(p, seg); ok {
				return true
			}
		}
	}
	return false
}

// Patterns returns the configured pattern set.
func (f *Filter) Patterns() []string {
	out := make([]string, len(f.patterns))
	copy(out, f.patterns)
	return out
}
