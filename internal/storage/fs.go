package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"syscall"

	"github.com/starford/dailyvault/internal/apperr"
	"github.com/starford/dailyvault/internal/checksum"
	"github.com/starford/dailyvault/internal/models"
)

// FS implements Provider backed by the local file system.
type FS struct {
	resolver *Resolver
}

// NewFS creates a new FS provider rooted at the given directory.
// The directory must already exist.
func NewFS(root string, namespaces []string) (*FS, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("storage: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage: root is not a directory: %s", root)
	}
	r, err := NewResolver(root, namespaces)
	if err != nil {
		return nil, err
	}
	return &FS{resolver: r}, nil
}

// Root returns the canonical vault root.
func (f *FS) Root() string { return f.resolver.Root() }

// Resolver returns the path resolver used by f.
func (f *FS) Resolver() *Resolver { return f.resolver }

// Read returns the text content of a file.
func (f *FS) Read(namespace, path string) (string, error) {
	abs, err := f.resolver.Resolve(namespace, path)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(abs)
	if err != nil {
		if errors.Is(err, syscall.ENOTDIR) {
			return "", fmt.Errorf("storage: read %s: %w", path, apperr.ErrNotFound)
		}
		return "", wrap("read", path, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("storage: read %s: %w", path, apperr.ErrIsDirectory)
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return "", wrap("read", path, err)
	}
	return string(data), nil
}

// Write atomically replaces content: tmp file → fsync → rename.
func (f *FS) Write(namespace, path, content string) error {
	abs, err := f.resolver.Resolve(namespace, path)
	if err != nil {
		return err
	}
	if info, err := os.Stat(abs); err == nil && info.IsDir() {
		return fmt.Errorf("storage: write %s: %w", path, apperr.ErrIsDirectory)
	}
	dir := filepath.Dir(abs)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return wrap("mkdir", path, err)
	}

	tmp, err := os.CreateTemp(dir, ".vault-tmp-*")
	if err != nil {
		return wrap("create temp", path, err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.WriteString(content); err != nil {
		return wrap("write temp", path, err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		return wrap("chmod temp", path, err)
	}
	if err := tmp.Sync(); err != nil {
		return wrap("fsync", path, err)
	}
	if err := tmp.Close(); err != nil {
		return wrap("close temp", path, err)
	}
	if err := os.Rename(tmpName, abs); err != nil {
		return wrap("rename", path, err)
	}
	success = true
	return nil
}

// Append adds content to the end of a file, creating it and its parents.
func (f *FS) Append(namespace, path, content string) error {
	abs, err := f.resolver.Resolve(namespace, path)
	if err != nil {
		return err
	}
	if info, err := os.Stat(abs); err == nil && info.IsDir() {
		return fmt.Errorf("storage: append %s: %w", path, apperr.ErrIsDirectory)
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return wrap("mkdir", path, err)
	}
	fh, err := os.OpenFile(abs, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return wrap("append", path, err)
	}
	if _, err := fh.WriteString(content); err != nil {
		_ = fh.Close()
		return wrap("append", path, err)
	}
	if err := fh.Close(); err != nil {
		return wrap("append", path, err)
	}
	return nil
}

// Delete removes a file. A missing file is not an error; directories are
// never removed.
func (f *FS) Delete(namespace, path string) error {
	abs, err := f.resolver.Resolve(namespace, path)
	if err != nil {
		return err
	}
	info, err := os.Lstat(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, syscall.ENOTDIR) {
			return nil
		}
		return wrap("delete", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("storage: delete %s: %w", path, apperr.ErrIsDirectory)
	}
	if err := os.Remove(abs); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return wrap("delete", path, err)
	}
	return nil
}

// List returns the non-hidden entries of a directory: files first, then
// directories, each group ordered case-insensitively by name.
func (f *FS) List(namespace, path string) ([]models.FileEntry, error) {
	abs, err := f.resolver.Resolve(namespace, path)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		if errors.Is(err, syscall.ENOTDIR) {
			return nil, fmt.Errorf("storage: list %s: %w", path, apperr.ErrNotFound)
		}
		return nil, wrap("list", path, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage: list %s: %w", path, apperr.ErrNotADirectory)
	}

	nsRoot, err := f.resolver.NamespaceRoot(namespace)
	if err != nil {
		return nil, err
	}
	base, err := filepath.Rel(nsRoot, abs)
	if err != nil {
		return nil, fmt.Errorf("storage: list %s: %w", path, err)
	}

	dirEntries, err := os.ReadDir(abs)
	if err != nil {
		return nil, wrap("list", path, err)
	}

	out := make([]models.FileEntry, 0, len(dirEntries))
	for _, e := range dirEntries {
		name := e.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		isDir := e.IsDir()
		if e.Type()&fs.ModeSymlink != 0 {
			if target, err := os.Stat(filepath.Join(abs, name)); err == nil {
				isDir = target.IsDir()
			}
		}
		out = append(out, models.FileEntry{
			Name:  name,
			Path:  filepath.ToSlash(filepath.Join(base, name)),
			IsDir: isDir,
		})
	}

	slices.SortFunc(out, func(a, b models.FileEntry) int {
		if a.IsDir != b.IsDir {
			if a.IsDir {
				return 1
			}
			return -1
		}
		if c := strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name)); c != 0 {
			return c
		}
		return strings.Compare(a.Name, b.Name)
	})
	return out, nil
}

// Exists reports whether anything exists at path.
func (f *FS) Exists(namespace, path string) (bool, error) {
	abs, err := f.resolver.Resolve(namespace, path)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(abs); err != nil {
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, syscall.ENOTDIR) {
			return false, nil
		}
		return false, wrap("stat", path, err)
	}
	return true, nil
}

// Files walks a namespace and returns metadata for every visible .md file.
func (f *FS) Files(namespace string) ([]models.FileMetadata, error) {
	nsRoot, err := f.resolver.NamespaceRoot(namespace)
	if err != nil {
		return nil, err
	}
	var out []models.FileMetadata
	err = filepath.WalkDir(nsRoot, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if p == nsRoot && errors.Is(walkErr, fs.ErrNotExist) {
				return fs.SkipAll
			}
			return walkErr
		}
		if strings.HasPrefix(d.Name(), ".") && p != nsRoot {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".md") {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		rel, _ := filepath.Rel(nsRoot, p)
		out = append(out, models.FileMetadata{
			Namespace: namespace,
			Path:      filepath.ToSlash(rel),
			Checksum:  checksum.Sum(data),
			UpdatedAt: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("storage: walk %s: %w", namespace, err)
	}
	return out, nil
}

// wrap attaches the matching IO sentinel to an os error.
func wrap(op, path string, err error) error {
	var kind error
	switch {
	case errors.Is(err, fs.ErrNotExist):
		kind = apperr.ErrNotFound
	case errors.Is(err, fs.ErrPermission):
		kind = apperr.ErrPermissionDenied
	case errors.Is(err, syscall.EISDIR):
		kind = apperr.ErrIsDirectory
	case errors.Is(err, syscall.ENOTDIR):
		kind = apperr.ErrNotADirectory
	default:
		return fmt.Errorf("storage: %s %s: %w", op, path, err)
	}
	return fmt.Errorf("storage: %s %s: %w: %w", op, path, kind, err)
}
