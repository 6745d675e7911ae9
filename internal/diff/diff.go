// Package diff computes the change-set between an original directory
// tree and its sandbox copy. Detection is content-based: file sizes and
// SHA-256 hashes decide modification, never mtimes (copies may preserve
// or reset them). Detection is read-only and reflects the trees at call
// time; nothing is cached across calls.
package diff

// ChangeType classifies a single file change.
type ChangeType string

const (
	Added    ChangeType = "added"
	Modified ChangeType = "modified"
	Deleted  ChangeType = "deleted"
)

// FileChange is one entry of a change-set. Path is relative to the tree
// root with forward slashes on every platform. DiffLines is populated
// only for text-like modified files; binary modifications carry the
// change type alone. Values are immutable once constructed and safe for
// concurrent observation.
type FileChange struct {
	Path      string     `json:"path"`
	Type      ChangeType `json:"type"`
	DiffLines []string   `json:"diff_lines,omitempty"`
}
