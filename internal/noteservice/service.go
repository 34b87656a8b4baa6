// Package noteservice is the operation set shared by the HTTP and MCP
// adapters. Every call names the namespace it acts on.
package noteservice

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/starford/dailyvault/internal/daily"
	"github.com/starford/dailyvault/internal/gitsync"
	"github.com/starford/dailyvault/internal/models"
	"github.com/starford/dailyvault/internal/storage"
)

// Syncer is the sync engine as seen by the service.
type Syncer interface {
	daily.Syncer
	SyncNow(ctx context.Context, message string) gitsync.Outcome
	Status() gitsync.Status
}

// Result is the outcome of a mutating operation.
type Result = daily.Result

// TodayNote is today's note as returned by Today.
type TodayNote = daily.TodayNote

// Service coordinates storage, daily notes and synchronization.
type Service struct {
	store  storage.Provider
	daily  *daily.Engine
	sync   Syncer
	logger *slog.Logger
}

// NewService creates a new note service. A nil syncer disables
// synchronization.
func NewService(store storage.Provider, engine *daily.Engine, syncer Syncer, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, daily: engine, sync: syncer, logger: logger}
}

// Today returns today's note for namespace, creating it when needed.
func (s *Service) Today(ctx context.Context, namespace string) (TodayNote, error) {
	return s.daily.Today(ctx, namespace)
}

// TodayPath returns the relative path of today's note.
func (s *Service) TodayPath() string {
	return s.daily.TodayPath()
}

// ReadFile returns the content of a file.
func (s *Service) ReadFile(_ context.Context, namespace, path string) (string, error) {
	return s.store.Read(namespace, path)
}

// WriteFile replaces the content of a file and commits it.
func (s *Service) WriteFile(ctx context.Context, namespace, path, content string) (Result, error) {
	if err := s.store.Write(namespace, path, content); err != nil {
		return Result{}, err
	}
	return s.commit(ctx, namespace, path, "saved", fmt.Sprintf("vault: save %s %s", namespace, path)), nil
}

// DeleteFile removes a file and commits the removal. Deleting a missing
// file succeeds.
func (s *Service) DeleteFile(ctx context.Context, namespace, path string) (Result, error) {
	if err := s.store.Delete(namespace, path); err != nil {
		return Result{}, err
	}
	return s.commit(ctx, namespace, path, "deleted", fmt.Sprintf("vault: delete %s %s", namespace, path)), nil
}

// ListDir lists a directory.
func (s *Service) ListDir(_ context.Context, namespace, path string) ([]models.FileEntry, error) {
	entries, err := s.store.List(namespace, path)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []models.FileEntry{}
	}
	return entries, nil
}

// FileExists reports whether path exists.
func (s *Service) FileExists(_ context.Context, namespace, path string) (bool, error) {
	return s.store.Exists(namespace, path)
}

// ToggleTask flips the checkbox at line of path.
func (s *Service) ToggleTask(ctx context.Context, namespace, path string, line int) (Result, error) {
	return s.daily.ToggleTask(ctx, namespace, path, line)
}

// AppendEntry adds a timestamped entry to today's note.
func (s *Service) AppendEntry(ctx context.Context, namespace, text string, pinned bool) (Result, error) {
	return s.daily.AppendEntry(ctx, namespace, text, pinned)
}

// AddTask adds an open task to category in today's note.
func (s *Service) AddTask(ctx context.Context, namespace, category, text string) (Result, error) {
	return s.daily.AddTask(ctx, namespace, category, text)
}

// ClearPinned unpins every entry of the note at path, or of today's note
// when path is empty.
func (s *Service) ClearPinned(ctx context.Context, namespace, path string) (Result, error) {
	if path == "" {
		return s.daily.ClearPinned(ctx, namespace)
	}
	return s.daily.ClearPinnedAt(ctx, namespace, path)
}

// UnpinEntry unpins the entry heading at line of path.
func (s *Service) UnpinEntry(ctx context.Context, namespace, path string, line int) (Result, error) {
	return s.daily.UnpinEntry(ctx, namespace, path, line)
}

// Sync pulls and pushes now.
func (s *Service) Sync(ctx context.Context) gitsync.Outcome {
	if s.sync == nil {
		return gitsync.Outcome{OK: true, Message: "sync disabled"}
	}
	o := s.sync.SyncNow(ctx, "vault: sync")
	s.logger.Info("noteservice: sync",
		slog.Bool("ok", o.OK),
		slog.String("message", o.Message))
	return o
}

// SyncStatus reports recent sync activity.
func (s *Service) SyncStatus() gitsync.Status {
	if s.sync == nil {
		return gitsync.Status{}
	}
	return s.sync.Status()
}

func (s *Service) commit(ctx context.Context, namespace, path, msg, commitMsg string) Result {
	res := Result{Changed: true, Message: msg, Path: path}
	if s.sync == nil {
		return res
	}
	o := s.sync.CommitAndPush(ctx, commitMsg)
	if !o.OK {
		s.logger.Warn("noteservice: sync after write failed",
			slog.String("namespace", namespace),
			slog.String("path", path),
			slog.String("message", o.Message))
	}
	res.Sync = &o
	return res
}
