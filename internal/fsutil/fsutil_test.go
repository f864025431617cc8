package fsutil_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/flowforge-dev/flowmigrate/internal/fsutil"
)

func TestWriteFileAtomicLeavesNoTemp(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "out.json")

	if err := fsutil.WriteFileAtomic(path, []byte("data"), 0o600); err != nil {
		t.Fatalf("WriteFileAtomic: %v", err)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading back: %v", err)
	}
	if string(got) != "data" {
		t.Errorf("content = %q, want %q", got, "data")
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temp file left behind after atomic write")
	}
}

func TestWriteJSONStableOrdering(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "m.json")

	v := map[string]int{"zeta": 1, "alpha": 2, "mid": 3}
	if err := fsutil.WriteJSON(path, v); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}

	first, _ := os.ReadFile(path)
	if err := fsutil.WriteJSON(path, v); err != nil {
		t.Fatalf("WriteJSON second pass: %v", err)
	}
	second, _ := os.ReadFile(path)
	if string(first) != string(second) {
		t.Error("repeated writes of the same value produced different bytes")
	}
}

func TestHashFileDetectsChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f.txt")
	if err := os.WriteFile(path, []byte("hello"), 0o600); err != nil {
		t.Fatal(err)
	}

	h1, err := fsutil.HashFile(path)
	if err != nil {
		t.Fatalf("HashFile: %v", err)
	}
	if len(h1) != 64 {
		t.Errorf("hash length = %d, want 64", len(h1))
	}

	if err := os.WriteFile(path, []byte("hellO"), 0o600); err != nil {
		t.Fatal(err)
	}
	h2, err := fsutil.HashFile(path)
	if err != nil {
		t.Fatalf("HashFile after change: %v", err)
	}
	if h1 == h2 {
		t.Error("hash unchanged after single-byte edit")
	}
}

func TestCopyFileReplacesExisting(t *testing.T) {
	src := filepath.Join(t.TempDir(), "src.md")
	if err := os.WriteFile(src, []byte("new content"), 0o640); err != nil {
		t.Fatal(err)
	}
	dst := filepath.Join(t.TempDir(), "nested", "dst.md")
	if err := os.MkdirAll(filepath.Dir(dst), 0o700); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(dst, []byte("old content"), 0o600); err != nil {
		t.Fatal(err)
	}

	if err := fsutil.CopyFile(src, dst); err != nil {
		t.Fatalf("CopyFile: %v", err)
	}

	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "new content" {
		t.Errorf("content = %q, want %q", got, "new content")
	}
	fi, err := os.Stat(dst)
	if err != nil {
		t.Fatal(err)
	}
	if fi.Mode().Perm() != 0o640 {
		t.Errorf("mode = %o, want 640", fi.Mode().Perm())
	}
	if _, err := os.Stat(dst + ".tmp"); !os.IsNotExist(err) {
		t.Error("temp file left behind after copy")
	}
}

func TestCopyDir(t *testing.T) {
	src := t.TempDir()
	dst := filepath.Join(t.TempDir(), "copy")

	if err := os.MkdirAll(filepath.Join(src, "a", "b"), 0o700); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(src, "a", "b", "f.txt"), []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(src, "top.txt"), []byte("y"), 0o600); err != nil {
		t.Fatal(err)
	}

	if err := fsutil.CopyDir(src, dst); err != nil {
		t.Fatalf("CopyDir: %v", err)
	}

	for _, rel := range []string{"a/b/f.txt", "top.txt"} {
		if !fsutil.Exists(filepath.Join(dst, rel)) {
			t.Errorf("missing %s in copy", rel)
		}
	}
}
