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
)

// maxLinkHops bounds symlink chains followed while canonicalizing a path
// whose tail does not exist yet.
const maxLinkHops = 40

// Resolver maps (namespace, relative path) pairs to absolute paths that are
// guaranteed to stay inside VaultRoot/<namespace>.
type Resolver struct {
	root       string // canonical absolute vault root
	namespaces []string
}

// NewResolver creates a resolver for root. When namespaces is non-empty only
// those names are accepted.
func NewResolver(root string, namespaces []string) (*Resolver, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	canonical, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: canonicalize root: %w", err)
	}
	for _, ns := range namespaces {
		if !validSegment(ns) {
			return nil, fmt.Errorf("storage: namespace %q: %w", ns, apperr.ErrInvalidNamespace)
		}
	}
	return &Resolver{root: canonical, namespaces: slices.Clone(namespaces)}, nil
}

// Root returns the canonical vault root.
func (r *Resolver) Root() string { return r.root }

// Namespaces returns the configured namespace set.
func (r *Resolver) Namespaces() []string { return slices.Clone(r.namespaces) }

// NamespaceRoot returns the canonical directory of a namespace. The
// directory does not need to exist.
func (r *Resolver) NamespaceRoot(namespace string) (string, error) {
	if !validSegment(namespace) {
		return "", fmt.Errorf("storage: namespace %q: %w", namespace, apperr.ErrInvalidNamespace)
	}
	if len(r.namespaces) > 0 && !slices.Contains(r.namespaces, namespace) {
		return "", fmt.Errorf("storage: namespace %q: %w", namespace, apperr.ErrInvalidNamespace)
	}
	return canonicalize(filepath.Join(r.root, namespace))
}

// Resolve validates rel and returns its canonical absolute path. The result
// is equal to, or a descendant of, the namespace root.
func (r *Resolver) Resolve(namespace, rel string) (string, error) {
	if rel == "" {
		return "", fmt.Errorf("storage: resolve: %w", apperr.ErrEmptyPath)
	}
	if filepath.IsAbs(rel) || strings.HasPrefix(rel, "/") {
		return "", fmt.Errorf("storage: resolve %s: %w", rel, apperr.ErrAbsolutePath)
	}
	nsRoot, err := r.NamespaceRoot(namespace)
	if err != nil {
		return "", err
	}

	// Canonicalize first so neither ".." nor a planted symlink can slip
	// past the containment check.
	resolved, err := canonicalize(filepath.Join(nsRoot, rel))
	if err != nil {
		return "", fmt.Errorf("storage: resolve %s: %w", rel, err)
	}
	if !within(nsRoot, resolved) {
		return "", fmt.Errorf("storage: resolve %s: %w", rel, apperr.ErrPathEscapesRoot)
	}
	return resolved, nil
}

func within(root, p string) bool {
	rel, err := filepath.Rel(root, p)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

func validSegment(name string) bool {
	return name != "" && name != "." && name != ".." &&
		!strings.ContainsAny(name, `/\`) && !strings.HasPrefix(name, ".")
}

// canonicalize cleans p and resolves every symlink on its longest existing
// prefix. Missing trailing components are appended unchanged.
func canonicalize(p string) (string, error) {
	cur := filepath.Clean(p)
	var rest []string
	for hops := 0; ; {
		real, err := filepath.EvalSymlinks(cur)
		if err == nil {
			return filepath.Join(append([]string{real}, rest...)...), nil
		}
		if !errors.Is(err, fs.ErrNotExist) && !errors.Is(err, syscall.ENOTDIR) {
			return "", err
		}

		// A dangling symlink still points somewhere; follow it.
		if info, lerr := os.Lstat(cur); lerr == nil && info.Mode()&fs.ModeSymlink != 0 {
			if hops++; hops > maxLinkHops {
				return "", fmt.Errorf("too many symlinks: %s", p)
			}
			target, rerr := os.Readlink(cur)
			if rerr != nil {
				return "", rerr
			}
			if !filepath.IsAbs(target) {
				target = filepath.Join(filepath.Dir(cur), target)
			}
			cur = filepath.Clean(target)
			continue
		}

		parent := filepath.Dir(cur)
		if parent == cur {
			return filepath.Join(append([]string{cur}, rest...)...), nil
		}
		rest = append([]string{filepath.Base(cur)}, rest...)
		cur = parent
	}
}
