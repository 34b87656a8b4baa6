package storage

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/starford/dailyvault/internal/apperr"
)

func tempVault(t *testing.T) *FS {
	t.Helper()
	dir := t.TempDir()
	fs, err := NewFS(dir, []string{"alice", "bob"})
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs
}

func TestWriteAndRead(t *testing.T) {
	s := tempVault(t)
	content := "# Hello\nWorld\n"
	if err := s.Write("alice", "note.md", content); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("alice", "note.md")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got != content {
		t.Errorf("content mismatch: got %q", got)
	}
}

func TestWriteCreatesSubdirs(t *testing.T) {
	s := tempVault(t)
	if err := s.Write("alice", "a/b/c.md", "deep"); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("alice", "a/b/c.md")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got != "deep" {
		t.Errorf("content = %q", got)
	}
}

func TestNamespacesAreIsolated(t *testing.T) {
	s := tempVault(t)
	_ = s.Write("alice", "secret.md", "mine")

	if _, err := s.Read("bob", "secret.md"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("bob read alice's file: err = %v", err)
	}
	if _, err := s.Read("bob", "../alice/secret.md"); !errors.Is(err, apperr.ErrPathEscapesRoot) {
		t.Errorf("sibling traversal: err = %v", err)
	}
}

func TestAppendAfterWrite(t *testing.T) {
	s := tempVault(t)
	_ = s.Write("alice", "log.md", "first\n")
	if err := s.Append("alice", "log.md", "second\n"); err != nil {
		t.Fatalf("Append: %v", err)
	}
	got, _ := s.Read("alice", "log.md")
	if got != "first\nsecond\n" {
		t.Errorf("content = %q", got)
	}
}

func TestAppendCreatesFile(t *testing.T) {
	s := tempVault(t)
	if err := s.Append("alice", "new/log.md", "hello"); err != nil {
		t.Fatalf("Append: %v", err)
	}
	got, _ := s.Read("alice", "new/log.md")
	if got != "hello" {
		t.Errorf("content = %q", got)
	}
}

func TestReadErrors(t *testing.T) {
	s := tempVault(t)
	_ = s.Write("alice", "dir/file.md", "x")

	if _, err := s.Read("alice", "missing.md"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing: err = %v", err)
	}
	if _, err := s.Read("alice", "dir"); !errors.Is(err, apperr.ErrIsDirectory) {
		t.Errorf("dir: err = %v", err)
	}
	if _, err := s.Read("alice", "dir/file.md/child"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("through file: err = %v", err)
	}
}

func TestWriteOverDirectory(t *testing.T) {
	s := tempVault(t)
	_ = s.Write("alice", "dir/file.md", "x")
	if err := s.Write("alice", "dir", "boom"); !errors.Is(err, apperr.ErrIsDirectory) {
		t.Errorf("err = %v, want ErrIsDirectory", err)
	}
}

func TestDelete(t *testing.T) {
	s := tempVault(t)
	_ = s.Write("alice", "del.md", "bye")
	if err := s.Delete("alice", "del.md"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Read("alice", "del.md"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected ErrNotFound reading deleted file, got %v", err)
	}
	if err := s.Delete("alice", "del.md"); err != nil {
		t.Errorf("second delete should be a no-op, got %v", err)
	}
}

func TestDeleteDirectoryRefused(t *testing.T) {
	s := tempVault(t)
	_ = s.Write("alice", "keep/a.md", "a")
	if err := s.Delete("alice", "keep"); !errors.Is(err, apperr.ErrIsDirectory) {
		t.Fatalf("err = %v, want ErrIsDirectory", err)
	}
	if ok, _ := s.Exists("alice", "keep/a.md"); !ok {
		t.Error("directory contents were removed")
	}
}

func TestListOrderAndHidden(t *testing.T) {
	s := tempVault(t)
	for _, p := range []string{"b.md", "A.md", "c.txt", ".hidden.md", "zeta/x.md", "Alpha/y.md", ".git/config"} {
		if err := s.Write("alice", p, "x"); err != nil {
			t.Fatalf("Write %s: %v", p, err)
		}
	}

	items, err := s.List("alice", ".")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	var names []string
	for _, it := range items {
		if strings.HasPrefix(it.Name, ".") {
			t.Errorf("hidden entry listed: %s", it.Name)
		}
		names = append(names, it.Name)
	}
	want := "A.md,b.md,c.txt,Alpha,zeta"
	if got := strings.Join(names, ","); got != want {
		t.Errorf("order = %s, want %s", got, want)
	}
	if !items[3].IsDir || items[0].IsDir {
		t.Errorf("IsDir flags wrong: %+v", items)
	}
}

func TestListNestedPaths(t *testing.T) {
	s := tempVault(t)
	_ = s.Write("alice", "daily/2024-01-15.md", "x")

	items, err := s.List("alice", "daily")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 1 || items[0].Path != "daily/2024-01-15.md" {
		t.Errorf("items = %+v", items)
	}
}

func TestListErrors(t *testing.T) {
	s := tempVault(t)
	_ = s.Write("alice", "file.md", "x")

	if _, err := s.List("alice", "nope"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing dir: err = %v", err)
	}
	if _, err := s.List("alice", "file.md"); !errors.Is(err, apperr.ErrNotADirectory) {
		t.Errorf("file: err = %v", err)
	}
}

func TestTraversalBlocked(t *testing.T) {
	s := tempVault(t)

	cases := []string{
		"../../etc/passwd",
		"../outside.md",
		"a/../../b.md",
	}
	for _, p := range cases {
		if _, err := s.Read("alice", p); !errors.Is(err, apperr.ErrPathEscapesRoot) {
			t.Errorf("read %q: err = %v", p, err)
		}
		if err := s.Write("alice", p, "x"); !errors.Is(err, apperr.ErrPathEscapesRoot) {
			t.Errorf("write %q: err = %v", p, err)
		}
	}
	if err := s.Write("alice", "/etc/shadow", "x"); !errors.Is(err, apperr.ErrAbsolutePath) {
		t.Errorf("absolute: err = %v", err)
	}
}

func TestAtomicWriteNoCorruption(t *testing.T) {
	s := tempVault(t)
	_ = s.Write("alice", "atomic.md", "original content")

	if err := s.Write("alice", "atomic.md", "updated content"); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, _ := s.Read("alice", "atomic.md")
	if got != "updated content" {
		t.Errorf("expected updated content, got %q", got)
	}

	matches, _ := filepath.Glob(filepath.Join(s.Root(), "alice", ".vault-tmp-*"))
	if len(matches) != 0 {
		t.Errorf("leftover temp files: %v", matches)
	}
}

func TestFilesSkipsHidden(t *testing.T) {
	s := tempVault(t)
	_ = s.Write("alice", "daily/2024-01-15.md", "x")
	_ = s.Write("alice", ".obsidian/workspace.md", "x")
	_ = s.Write("alice", "notes.txt", "x")

	files, err := s.Files("alice")
	if err != nil {
		t.Fatalf("Files: %v", err)
	}
	if len(files) != 1 || files[0].Path != "daily/2024-01-15.md" || files[0].Checksum == "" {
		t.Errorf("files = %+v", files)
	}

	empty, err := s.Files("bob")
	if err != nil || len(empty) != 0 {
		t.Errorf("missing namespace: files = %v err = %v", empty, err)
	}
}

func TestNewFS_NonExistentDir(t *testing.T) {
	_, err := NewFS(filepath.Join(t.TempDir(), "does-not-exist"), nil)
	if err == nil {
		t.Error("expected error for non-existent dir")
	}
}

func TestNewFS_FileNotDir(t *testing.T) {
	f, _ := os.CreateTemp(t.TempDir(), "vault-test-*")
	_ = f.Close()
	_, err := NewFS(f.Name(), nil)
	if err == nil {
		t.Error("expected error when root is a file")
	}
}
