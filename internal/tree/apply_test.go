package tree

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/jkaninda/clai/internal/diff"
)

func TestApplyAddModifyDelete(t *testing.T) {
	tmp := t.TempDir()
	orig := filepath.Join(tmp, "orig")
	sand := filepath.Join(tmp, "sand")

	writeFile(t, filepath.Join(orig, "modified.txt"), "old")
	writeFile(t, filepath.Join(orig, "deleted.txt"), "bye")
	writeFile(t, filepath.Join(sand, "modified.txt"), "new")
	writeFile(t, filepath.Join(sand, "added", "fresh.txt"), "hello")

	changes := []diff.FileChange{
		{Path: "added/fresh.txt", Type: diff.Added},
		{Path: "deleted.txt", Type: diff.Deleted},
		{Path: "modified.txt", Type: diff.Modified},
	}

	outcomes, err := NewApplier(testLogger()).Apply(orig, sand, changes)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if len(outcomes) != len(changes) {
		t.Fatalf("outcomes = %d, want %d", len(outcomes), len(changes))
	}
	for _, o := range outcomes {
		if o.Err != nil {
			t.Errorf("outcome %s: %v", o.Path, o.Err)
		}
	}

	if got := readFile(t, filepath.Join(orig, "added", "fresh.txt")); got != "hello" {
		t.Errorf("added file = %q, want %q", got, "hello")
	}
	if got := readFile(t, filepath.Join(orig, "modified.txt")); got != "new" {
		t.Errorf("modified file = %q, want %q", got, "new")
	}
	if _, err := os.Stat(filepath.Join(orig, "deleted.txt")); !os.IsNotExist(err) {
		t.Errorf("deleted.txt still present")
	}
}

func TestApplyDeletedAlreadyGone(t *testing.T) {
	tmp := t.TempDir()
	orig := filepath.Join(tmp, "orig")
	sand := filepath.Join(tmp, "sand")
	if err := os.MkdirAll(orig, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(sand, 0o755); err != nil {
		t.Fatal(err)
	}

	changes := []diff.FileChange{{Path: "ghost.txt", Type: diff.Deleted}}
	outcomes, err := NewApplier(testLogger()).Apply(orig, sand, changes)
	if err != nil {
		t.Fatalf("Apply with already-deleted file: %v", err)
	}
	if outcomes[0].Err != nil {
		t.Errorf("outcome err = %v, want nil", outcomes[0].Err)
	}
}

func TestApplyCollectsFailures(t *testing.T) {
	tmp := t.TempDir()
	orig := filepath.Join(tmp, "orig")
	sand := filepath.Join(tmp, "sand")

	writeFile(t, filepath.Join(sand, "good.txt"), "ok")
	// bad.txt is claimed Added but missing from the sandbox.
	changes := []diff.FileChange{
		{Path: "bad.txt", Type: diff.Added},
		{Path: "good.txt", Type: diff.Added},
	}

	outcomes, err := NewApplier(testLogger()).Apply(orig, sand, changes)
	var ae *ApplyError
	if !errors.As(err, &ae) {
		t.Fatalf("err = %v, want *ApplyError", err)
	}
	if ae.Applied != 1 {
		t.Errorf("Applied = %d, want 1", ae.Applied)
	}
	if len(ae.Failures) != 1 || ae.Failures[0].Path != "bad.txt" {
		t.Errorf("Failures = %+v, want one failure for bad.txt", ae.Failures)
	}
	if ae.Total() {
		t.Error("Total() = true, want false (one file succeeded)")
	}
	if len(outcomes) != 2 {
		t.Errorf("outcomes = %d, want 2", len(outcomes))
	}
	if got := readFile(t, filepath.Join(orig, "good.txt")); got != "ok" {
		t.Errorf("good.txt = %q, want %q", got, "ok")
	}
}

func TestApplyErrorTotal(t *testing.T) {
	tmp := t.TempDir()
	orig := filepath.Join(tmp, "orig")
	sand := filepath.Join(tmp, "sand")
	if err := os.MkdirAll(sand, 0o755); err != nil {
		t.Fatal(err)
	}

	changes := []diff.FileChange{{Path: "missing.txt", Type: diff.Added}}
	_, err := NewApplier(testLogger()).Apply(orig, sand, changes)
	var ae *ApplyError
	if !errors.As(err, &ae) {
		t.Fatalf("err = %v, want *ApplyError", err)
	}
	if !ae.Total() {
		t.Error("Total() = false, want true (nothing applied)")
	}
}

func TestApplySymlink(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}
	tmp := t.TempDir()
	orig := filepath.Join(tmp, "orig")
	sand := filepath.Join(tmp, "sand")
	if err := os.MkdirAll(orig, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(sand, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink("target.txt", filepath.Join(sand, "link.txt")); err != nil {
		t.Fatal(err)
	}

	changes := []diff.FileChange{{Path: "link.txt", Type: diff.Added}}
	if _, err := NewApplier(testLogger()).Apply(orig, sand, changes); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	got, err := os.Readlink(filepath.Join(orig, "link.txt"))
	if err != nil {
		t.Fatalf("Readlink: %v", err)
	}
	if got != "target.txt" {
		t.Errorf("link target = %q, want %q", got, "target.txt")
	}
}
