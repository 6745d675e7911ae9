package diff

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/jkaninda/clai/internal/pathfilter"
)

// maxDiffLines caps the unified diff attached to a modified text file.
const maxDiffLines = 100

// fileState is the comparison key for one file: size first (cheap
// reject), content hash second.
type fileState struct {
	size int64
	hash string
}

// Detector walks two trees through a shared path filter and produces
// ordered change-sets.
type Detector struct {
	filter *pathfilter.Filter
	logger *slog.Logger
}

// NewDetector creates a Detector. The filter must be the same one used
// for cloning, otherwise filtered entries show up as spurious changes.
func NewDetector(filter *pathfilter.Filter, logger *slog.Logger) *Detector {
	return &Detector{filter: filter, logger: logger}
}

// Detect returns the changes in sandboxRoot relative to originalRoot,
// sorted lexicographically by relative path.
func (d *Detector) Detect(originalRoot, sandboxRoot string) ([]FileChange, error) {
	original, err := d.snapshot(originalRoot)
	if err != nil {
		return nil, fmt.Errorf("scanning original tree: %w", err)
	}
	sandbox, err := d.snapshot(sandboxRoot)
	if err != nil {
		return nil, fmt.Errorf("scanning sandbox tree: %w", err)
	}

	var changes []FileChange

	for rel := range sandbox {
		if _, ok := original[rel]; !ok {
			changes = append(changes, FileChange{Path: rel, Type: Added})
		}
	}
	for rel := range original {
		if _, ok := sandbox[rel]; !ok {
			changes = append(changes, FileChange{Path: rel, Type: Deleted})
		}
	}
	for rel, origState := range original {
		sandState, ok := sandbox[rel]
		if !ok {
			continue
		}
		if origState == sandState {
			continue
		}
		change := FileChange{Path: rel, Type: Modified}
		origPath := filepath.Join(originalRoot, filepath.FromSlash(rel))
		sandPath := filepath.Join(sandboxRoot, filepath.FromSlash(rel))
		if isText(origPath) && isText(sandPath) {
			lines, err := unifiedDiff(origPath, sandPath, rel)
			if err != nil {
				d.logger.Warn("line diff failed, reporting change without diff",
					slog.String("path", rel),
					slog.String("error", err.Error()),
				)
			} else {
				change.DiffLines = lines
			}
		}
		changes = append(changes, change)
	}

	sort.Slice(changes, func(i, j int) bool { return changes[i].Path < changes[j].Path })
	return changes, nil
}

// snapshot collects the filtered file set of root keyed by slash-relative
// path. Symlinks are never followed; a link is keyed by its target string
// so retargeting shows up as a modification.
func (d *Detector) snapshot(root string) (map[string]fileState, error) {
	out := make(map[string]fileState)
	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if d.filter.Ignore(rel) {
			if entry.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		switch {
		case entry.IsDir():
			return nil
		case entry.Type()&fs.ModeSymlink != 0:
			target, err := os.Readlink(path)
			if err != nil {
				return err
			}
			sum := sha256.Sum256([]byte(target))
			out[rel] = fileState{size: int64(len(target)), hash: hex.EncodeToString(sum[:])}
		default:
			state, err := hashFile(path)
			if err != nil {
				return err
			}
			out[rel] = state
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func hashFile(path string) (fileState, error) {
	f, err := os.Open(path)
	if err != nil {
		return fileState{}, err
	}
	defer f.Close()

	h := sha256.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return fileState{}, err
	}
	return fileState{size: n, hash: hex.EncodeToString(h.Sum(nil))}, nil
}
