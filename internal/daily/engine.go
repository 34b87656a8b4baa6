// Package daily implements the daily-note engine: get-or-create with
// carryover, task editing and pinned-entry maintenance on top of a
// storage.Provider, with git synchronization around every change.
package daily

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/starford/dailyvault/internal/apperr"
	"github.com/starford/dailyvault/internal/gitsync"
	"github.com/starford/dailyvault/internal/models"
	"github.com/starford/dailyvault/internal/storage"
)

const dateLayout = "2006-01-02"

var categoryRe = regexp.MustCompile(`^[\p{L}\p{N}][\p{L}\p{N} _-]*$`)

// Syncer is the part of the sync engine the daily engine depends on.
type Syncer interface {
	Pull(ctx context.Context) gitsync.Outcome
	CommitAndPush(ctx context.Context, message string) gitsync.Outcome
}

// Result describes the outcome of a mutating operation.
type Result struct {
	Changed bool             `json:"changed"`
	Message string           `json:"message"`
	Path    string           `json:"path"`
	Sync    *gitsync.Outcome `json:"sync,omitempty"`
}

// TodayNote is today's note plus what happened while fetching it.
type TodayNote struct {
	models.DailyNote
	Created bool            `json:"created"`
	Sync    gitsync.Outcome `json:"sync"`
}

// Engine operates on daily notes stored at <dir>/<YYYY-MM-DD>.md in each
// namespace.
type Engine struct {
	store      storage.Provider
	sync       Syncer
	dir        string
	loc        *time.Location
	now        func() time.Time
	categories []string
	logger     *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithDir sets the notes directory inside each namespace.
func WithDir(dir string) Option {
	return func(e *Engine) { e.dir = dir }
}

// WithLocation sets the time zone that decides what "today" is.
func WithLocation(loc *time.Location) Option {
	return func(e *Engine) { e.loc = loc }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithCategories restricts AddTask to the given subcategory names.
func WithCategories(categories []string) Option {
	return func(e *Engine) { e.categories = categories }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// New creates an Engine. A nil syncer disables synchronization.
func New(store storage.Provider, syncer Syncer, opts ...Option) *Engine {
	e := &Engine{
		store:  store,
		sync:   syncer,
		dir:    "daily",
		loc:    time.Local,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.sync == nil {
		e.sync = noopSyncer{}
	}
	return e
}

// TodayPath returns the relative path of today's note.
func (e *Engine) TodayPath() string {
	return e.notePath(e.today())
}

// Today returns today's note, creating it from the most recent earlier note
// when it does not exist yet.
func (e *Engine) Today(ctx context.Context, namespace string) (TodayNote, error) {
	pull := e.sync.Pull(ctx)
	if !pull.OK {
		e.logger.Warn("daily: pull failed", slog.String("namespace", namespace), slog.String("message", pull.Message))
	}

	date := e.today()
	p := e.notePath(date)
	content, err := e.store.Read(namespace, p)
	if err == nil {
		return TodayNote{
			DailyNote: models.DailyNote{Date: date, Path: p, Content: content},
			Sync:      pull,
		}, nil
	}
	if !errors.Is(err, apperr.ErrNotFound) {
		return TodayNote{}, err
	}

	prevPath, previous, err := e.previous(namespace, date)
	if err != nil {
		return TodayNote{}, err
	}
	content = carryover(date, previous)
	if err := e.store.Write(namespace, p, content); err != nil {
		return TodayNote{}, err
	}
	e.logger.Info("daily: note created",
		slog.String("namespace", namespace),
		slog.String("path", p),
		slog.String("previous", prevPath))

	push := e.sync.CommitAndPush(ctx, fmt.Sprintf("daily: create %s %s", namespace, date))
	return TodayNote{
		DailyNote: models.DailyNote{Date: date, Path: p, Content: content},
		Created:   true,
		Sync:      push,
	}, nil
}

// ToggleTask flips the checkbox of the task at 1-indexed line of path.
func (e *Engine) ToggleTask(ctx context.Context, namespace, path string, line int) (Result, error) {
	e.sync.Pull(ctx)
	return e.modify(ctx, namespace, path, fmt.Sprintf("daily: toggle task %s %s:%d", namespace, path, line),
		func(content string) (string, string, error) {
			out, changed, err := toggleLine(content, line)
			if err != nil {
				return "", "", fmt.Errorf("daily: toggle %s:%d: %w", path, line, err)
			}
			if !changed {
				return content, "not a task line", nil
			}
			return out, "task toggled", nil
		})
}

// AppendEntry adds a timestamped entry to today's custom notes.
func (e *Engine) AppendEntry(ctx context.Context, namespace, text string, pinned bool) (Result, error) {
	if strings.TrimSpace(text) == "" {
		return Result{}, fmt.Errorf("daily: append: %w", apperr.ErrEmptyText)
	}
	note, err := e.Today(ctx, namespace)
	if err != nil {
		return Result{}, err
	}
	at := e.now().In(e.loc)
	return e.modify(ctx, namespace, note.Path, fmt.Sprintf("daily: append entry %s %s", namespace, at.Format("15:04")),
		func(content string) (string, string, error) {
			return appendEntry(content, at, text, pinned), "entry added", nil
		})
}

// AddTask appends an open task to category in today's todos. Empty text
// adds a blank task to fill in later.
func (e *Engine) AddTask(ctx context.Context, namespace, category, text string) (Result, error) {
	category = strings.TrimSpace(category)
	if err := e.validCategory(category); err != nil {
		return Result{}, err
	}
	note, err := e.Today(ctx, namespace)
	if err != nil {
		return Result{}, err
	}
	return e.modify(ctx, namespace, note.Path, fmt.Sprintf("daily: add task %s/%s", namespace, category),
		func(content string) (string, string, error) {
			return addTask(content, category, strings.TrimSpace(text)), "task added", nil
		})
}

// ClearPinned removes every pinned marker from today's note.
func (e *Engine) ClearPinned(ctx context.Context, namespace string) (Result, error) {
	note, err := e.Today(ctx, namespace)
	if err != nil {
		return Result{}, err
	}
	return e.clearPinned(ctx, namespace, note.Path)
}

// ClearPinnedAt removes every pinned marker from the note at path.
func (e *Engine) ClearPinnedAt(ctx context.Context, namespace, path string) (Result, error) {
	e.sync.Pull(ctx)
	return e.clearPinned(ctx, namespace, path)
}

func (e *Engine) clearPinned(ctx context.Context, namespace, path string) (Result, error) {
	return e.modify(ctx, namespace, path, fmt.Sprintf("daily: clear pinned %s %s", namespace, path),
		func(content string) (string, string, error) {
			out, n := clearPinned(content)
			if n == 0 {
				return content, "no pinned entries", nil
			}
			return out, fmt.Sprintf("cleared %d pinned entries", n), nil
		})
}

// UnpinEntry removes the pinned marker from the heading at line of path.
func (e *Engine) UnpinEntry(ctx context.Context, namespace, path string, line int) (Result, error) {
	e.sync.Pull(ctx)
	return e.modify(ctx, namespace, path, fmt.Sprintf("daily: unpin %s %s:%d", namespace, path, line),
		func(content string) (string, string, error) {
			out, changed, err := unpinLine(content, line)
			if err != nil {
				return "", "", fmt.Errorf("daily: unpin %s:%d: %w", path, line, err)
			}
			if !changed {
				return content, "already unpinned", nil
			}
			return out, "entry unpinned", nil
		})
}

// modify runs a read-modify-write of one file and commits when the content
// changed.
func (e *Engine) modify(ctx context.Context, namespace, path, message string, fn func(string) (string, string, error)) (Result, error) {
	content, err := e.store.Read(namespace, path)
	if err != nil {
		return Result{}, err
	}
	out, msg, err := fn(content)
	if err != nil {
		return Result{}, err
	}
	res := Result{Message: msg, Path: path}
	if out == content {
		return res, nil
	}
	if err := e.store.Write(namespace, path, out); err != nil {
		return Result{}, err
	}
	res.Changed = true
	outcome := e.sync.CommitAndPush(ctx, message)
	if !outcome.OK {
		e.logger.Warn("daily: sync after write failed",
			slog.String("namespace", namespace),
			slog.String("path", path),
			slog.String("message", outcome.Message))
	}
	res.Sync = &outcome
	return res, nil
}

// previous returns the latest note dated strictly before date. File names
// that are not <YYYY-MM-DD>.md are skipped.
func (e *Engine) previous(namespace, date string) (string, string, error) {
	entries, err := e.store.List(namespace, e.dir)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return "", "", nil
		}
		return "", "", err
	}
	today, _ := time.Parse(dateLayout, date)

	var (
		best     time.Time
		bestPath string
	)
	for _, ent := range entries {
		if ent.IsDir {
			continue
		}
		stem, ok := strings.CutSuffix(ent.Name, ".md")
		if !ok {
			continue
		}
		d, err := time.Parse(dateLayout, stem)
		if err != nil {
			e.logger.Debug("daily: skipping non-date file", slog.String("namespace", namespace), slog.String("name", ent.Name))
			continue
		}
		if !d.Before(today) {
			continue
		}
		if bestPath == "" || d.After(best) {
			best, bestPath = d, ent.Path
		}
	}
	if bestPath == "" {
		return "", "", nil
	}
	content, err := e.store.Read(namespace, bestPath)
	if err != nil {
		return "", "", err
	}
	return bestPath, content, nil
}

func (e *Engine) validCategory(category string) error {
	if !categoryRe.MatchString(category) {
		return fmt.Errorf("daily: category %q: %w", category, apperr.ErrInvalidCategory)
	}
	if len(e.categories) > 0 && !slices.ContainsFunc(e.categories, func(c string) bool {
		return strings.EqualFold(c, category)
	}) {
		return fmt.Errorf("daily: category %q: %w", category, apperr.ErrInvalidCategory)
	}
	return nil
}

func (e *Engine) today() string {
	return e.now().In(e.loc).Format(dateLayout)
}

func (e *Engine) notePath(date string) string {
	return path.Join(e.dir, date+".md")
}

type noopSyncer struct{}

func (noopSyncer) Pull(context.Context) gitsync.Outcome {
	return gitsync.Outcome{OK: true, Message: "sync disabled"}
}

func (noopSyncer) CommitAndPush(context.Context, string) gitsync.Outcome {
	return gitsync.Outcome{OK: true, Message: "sync disabled"}
}
