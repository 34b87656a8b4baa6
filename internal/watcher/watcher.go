// Package watcher turns file system events inside the vault into
// per-namespace change notifications.
package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/gobwas/glob"

	"github.com/starford/dailyvault/internal/checksum"
	"github.com/starford/dailyvault/internal/models"
)

// Callback is called for every change. kind is one of "created",
// "updated", "deleted"; path is relative to the namespace root and uses
// forward slashes.
type Callback func(kind, namespace, path string)

// Lister enumerates the notes of a namespace with their checksums.
type Lister interface {
	Files(namespace string) ([]models.FileMetadata, error)
}

// Watcher watches every namespace directory under a vault root.
type Watcher struct {
	root       string
	namespaces map[string]bool
	ignore     []glob.Glob
	files      Lister
	seen       *checksum.Seen
	logger     *slog.Logger
}

// New creates a watcher for the namespaces under root. ignore holds glob
// patterns matched against namespace-relative paths and base names.
func New(root string, namespaces, ignore []string, files Lister, logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	w := &Watcher{
		root:       root,
		namespaces: make(map[string]bool, len(namespaces)),
		files:      files,
		seen:       checksum.NewSeen(),
		logger:     logger,
	}
	for _, ns := range namespaces {
		w.namespaces[ns] = true
	}
	for _, pattern := range ignore {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, fmt.Errorf("watcher: invalid ignore pattern %q: %w", pattern, err)
		}
		w.ignore = append(w.ignore, g)
	}
	return w, nil
}

// Ignored reports whether a namespace-relative path is excluded from
// notifications.
func (w *Watcher) Ignored(rel string) bool {
	rel = filepath.ToSlash(rel)
	for _, seg := range strings.Split(rel, "/") {
		if strings.HasPrefix(seg, ".") {
			return true
		}
	}
	base := path.Base(rel)
	for _, g := range w.ignore {
		if g.Match(rel) || g.Match(base) {
			return true
		}
	}
	return false
}

// Run watches until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context, cb Callback) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watcher: %w", err)
	}
	defer fw.Close()

	for ns := range w.namespaces {
		nsRoot := filepath.Join(w.root, ns)
		if _, err := os.Stat(nsRoot); err != nil {
			w.logger.Debug("watcher: namespace missing", slog.String("namespace", ns))
			continue
		}
		if err := w.addDirs(fw, ns, nsRoot); err != nil {
			return fmt.Errorf("watcher: watch %s: %w", ns, err)
		}
		w.prime(ns)
	}

	w.logger.Info("watcher: started", slog.String("root", w.root))

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("watcher: stopped")
			return nil

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			w.handle(fw, ev, cb)

		case watchErr, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

func (w *Watcher) handle(fw *fsnotify.Watcher, ev fsnotify.Event, cb Callback) {
	ns, rel, ok := w.split(ev.Name)
	if !ok || w.Ignored(rel) {
		return
	}

	if ev.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if err := w.addDirs(fw, ns, ev.Name); err != nil {
				w.logger.Warn("watcher: add new dir failed",
					slog.String("path", ev.Name),
					slog.String("error", err.Error()))
			}
			w.scanDir(ns, ev.Name, cb)
			return
		}
	}

	if !strings.HasSuffix(rel, ".md") {
		return
	}

	switch {
	case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
		w.changed(ns, rel, ev.Name, cb)
	case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		// Rename fires for the old name; the new name arrives as Create.
		w.seen.Forget(key(ns, rel))
		w.logger.Debug("watcher: deleted", slog.String("namespace", ns), slog.String("path", rel))
		if cb != nil {
			cb("deleted", ns, rel)
		}
	}
}

// changed reports a created or updated file, dropping events whose content
// has not changed since the last notification.
func (w *Watcher) changed(ns, rel, abs string, cb Callback) {
	data, err := os.ReadFile(abs)
	if err != nil {
		w.logger.Debug("watcher: read failed", slog.String("path", abs), slog.String("error", err.Error()))
		return
	}
	k := key(ns, rel)
	kind := "created"
	if w.seen.Has(k) {
		kind = "updated"
	}
	if !w.seen.Observe(k, data) {
		return
	}
	w.logger.Debug("watcher: "+kind, slog.String("namespace", ns), slog.String("path", rel))
	if cb != nil {
		cb(kind, ns, rel)
	}
}

// scanDir reports notes already present in a directory that appeared at
// runtime.
func (w *Watcher) scanDir(ns, dir string, cb Callback) {
	_ = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		_, rel, ok := w.split(p)
		if !ok || w.Ignored(rel) || !strings.HasSuffix(rel, ".md") {
			return nil
		}
		w.changed(ns, rel, p, cb)
		return nil
	})
}

// prime records the current checksum of every note so that the first
// event for an unchanged file is dropped.
func (w *Watcher) prime(ns string) {
	if w.files == nil {
		return
	}
	metas, err := w.files.Files(ns)
	if err != nil {
		w.logger.Warn("watcher: prime failed", slog.String("namespace", ns), slog.String("error", err.Error()))
		return
	}
	for _, m := range metas {
		w.seen.Set(key(ns, m.Path), m.Checksum)
	}
}

// addDirs adds dir and its subdirectories, skipping hidden and ignored ones.
func (w *Watcher) addDirs(fw *fsnotify.Watcher, ns, dir string) error {
	nsRoot := filepath.Join(w.root, ns)
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != nsRoot {
			rel, relErr := filepath.Rel(nsRoot, p)
			if relErr != nil || w.Ignored(rel) {
				return filepath.SkipDir
			}
		}
		return fw.Add(p)
	})
}

// split maps an absolute path to its namespace and namespace-relative path.
func (w *Watcher) split(abs string) (ns, rel string, ok bool) {
	r, err := filepath.Rel(w.root, abs)
	if err != nil {
		return "", "", false
	}
	r = filepath.ToSlash(r)
	ns, rel, found := strings.Cut(r, "/")
	if !found || rel == "" || !w.namespaces[ns] {
		return "", "", false
	}
	return ns, rel, true
}

func key(ns, rel string) string {
	return ns + "/" + rel
}
