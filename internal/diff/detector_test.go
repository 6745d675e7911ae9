package diff

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/jkaninda/clai/internal/pathfilter"
)

func testDetector(t *testing.T) *Detector {
	t.Helper()
	return NewDetector(pathfilter.Default(), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestDetectNoChanges(t *testing.T) {
	tmp := t.TempDir()
	orig := filepath.Join(tmp, "orig")
	sand := filepath.Join(tmp, "sand")
	writeFile(t, filepath.Join(orig, "a.txt"), "same")
	writeFile(t, filepath.Join(sand, "a.txt"), "same")

	changes, err := testDetector(t).Detect(orig, sand)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if len(changes) != 0 {
		t.Errorf("changes = %+v, want none", changes)
	}
}

func TestDetectAddedModifiedDeleted(t *testing.T) {
	tmp := t.TempDir()
	orig := filepath.Join(tmp, "orig")
	sand := filepath.Join(tmp, "sand")

	writeFile(t, filepath.Join(orig, "modified.txt"), "line one\nline two\n")
	writeFile(t, filepath.Join(orig, "deleted.txt"), "bye")
	writeFile(t, filepath.Join(orig, "same.txt"), "same")
	writeFile(t, filepath.Join(sand, "modified.txt"), "line one\nline changed\n")
	writeFile(t, filepath.Join(sand, "same.txt"), "same")
	writeFile(t, filepath.Join(sand, "added.txt"), "new")

	changes, err := testDetector(t).Detect(orig, sand)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}

	want := []struct {
		path string
		typ  ChangeType
	}{
		{"added.txt", Added},
		{"deleted.txt", Deleted},
		{"modified.txt", Modified},
	}
	if len(changes) != len(want) {
		t.Fatalf("changes = %d, want %d: %+v", len(changes), len(want), changes)
	}
	for i, w := range want {
		if changes[i].Path != w.path || changes[i].Type != w.typ {
			t.Errorf("changes[%d] = %s/%s, want %s/%s",
				i, changes[i].Path, changes[i].Type, w.path, w.typ)
		}
	}

	// Only the modified text file carries a diff.
	if len(changes[0].DiffLines) != 0 {
		t.Errorf("added file has diff lines: %v", changes[0].DiffLines)
	}
	mod := changes[2]
	if len(mod.DiffLines) == 0 {
		t.Fatal("modified text file has no diff lines")
	}
	joined := strings.Join(mod.DiffLines, "")
	if !strings.Contains(joined, "-line two") || !strings.Contains(joined, "+line changed") {
		t.Errorf("diff does not show the edit:\n%s", joined)
	}
}

func TestDetectSameContentDifferentMtime(t *testing.T) {
	tmp := t.TempDir()
	orig := filepath.Join(tmp, "orig")
	sand := filepath.Join(tmp, "sand")
	writeFile(t, filepath.Join(orig, "a.txt"), "same")
	writeFile(t, filepath.Join(sand, "a.txt"), "same")

	// Touch the sandbox copy; content comparison must not care.
	past := time.Now().Add(-time.Hour)
	if err := os.Chtimes(filepath.Join(sand, "a.txt"), past, past); err != nil {
		t.Fatal(err)
	}

	changes, err := testDetector(t).Detect(orig, sand)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if len(changes) != 0 {
		t.Errorf("mtime-only difference reported as change: %+v", changes)
	}
}

func TestDetectBinaryModifiedNoDiff(t *testing.T) {
	tmp := t.TempDir()
	orig := filepath.Join(tmp, "orig")
	sand := filepath.Join(tmp, "sand")
	writeFile(t, filepath.Join(orig, "blob.bin"), "abc\x00def")
	writeFile(t, filepath.Join(sand, "blob.bin"), "abc\x00xyz")

	changes, err := testDetector(t).Detect(orig, sand)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if len(changes) != 1 || changes[0].Type != Modified {
		t.Fatalf("changes = %+v, want one modification", changes)
	}
	if len(changes[0].DiffLines) != 0 {
		t.Errorf("binary file has diff lines: %v", changes[0].DiffLines)
	}
}

func TestDetectIgnoredNotReported(t *testing.T) {
	tmp := t.TempDir()
	orig := filepath.Join(tmp, "orig")
	sand := filepath.Join(tmp, "sand")
	writeFile(t, filepath.Join(orig, "a.txt"), "a")
	writeFile(t, filepath.Join(sand, "a.txt"), "a")
	writeFile(t, filepath.Join(sand, ".git", "index"), "junk")
	writeFile(t, filepath.Join(sand, "__pycache__", "m.pyc"), "junk")

	changes, err := testDetector(t).Detect(orig, sand)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if len(changes) != 0 {
		t.Errorf("ignored paths reported: %+v", changes)
	}
}

func TestDetectSymlinkRetarget(t *testing.T) {
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
	if err := os.Symlink("old-target", filepath.Join(orig, "link")); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink("new-target", filepath.Join(sand, "link")); err != nil {
		t.Fatal(err)
	}

	changes, err := testDetector(t).Detect(orig, sand)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if len(changes) != 1 || changes[0].Type != Modified || changes[0].Path != "link" {
		t.Errorf("changes = %+v, want modified link", changes)
	}
}
