package gitsync

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Status is a snapshot of the manager's recent activity.
type Status struct {
	LastPullAt  *time.Time `json:"last_pull_at,omitempty"`
	LastPushAt  *time.Time `json:"last_push_at,omitempty"`
	LastError   string     `json:"last_error,omitempty"`
	LastErrorAt *time.Time `json:"last_error_at,omitempty"`
	Pending     bool       `json:"pending"`
}

// Notifier is called after every pull or push the manager performs. kind is
// "pull" or "push".
type Notifier func(kind string, o Outcome)

// Manager moves synchronization off the request path. Pulls are rate
// limited and coalesced; commit+push requests are queued, debounced and run
// by Run with the most recent message.
type Manager struct {
	vc       VersionControl
	debounce time.Duration
	minPull  time.Duration
	inline   bool
	notify   Notifier
	logger   *slog.Logger
	now      func() time.Time

	pulls singleflight.Group
	gitMu sync.Mutex // serializes calls into vc
	kick  chan struct{}

	mu         sync.Mutex
	pending    string
	hasPending bool
	lastPull   time.Time
	lastPush   time.Time
	lastErr    string
	lastErrAt  time.Time
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithDebounce sets how long Run waits for further pushes before acting.
func WithDebounce(d time.Duration) ManagerOption {
	return func(m *Manager) { m.debounce = d }
}

// WithMinPullInterval sets how long a successful pull stays fresh.
func WithMinPullInterval(d time.Duration) ManagerOption {
	return func(m *Manager) { m.minPull = d }
}

// WithInline makes CommitAndPush run synchronously instead of queueing.
func WithInline(inline bool) ManagerOption {
	return func(m *Manager) { m.inline = inline }
}

// WithNotifier registers a callback for completed operations.
func WithNotifier(n Notifier) ManagerOption {
	return func(m *Manager) { m.notify = n }
}

// WithManagerLogger sets the logger.
func WithManagerLogger(l *slog.Logger) ManagerOption {
	return func(m *Manager) { m.logger = l }
}

// NewManager wraps vc.
func NewManager(vc VersionControl, opts ...ManagerOption) *Manager {
	m := &Manager{
		vc:       vc,
		debounce: 500 * time.Millisecond,
		minPull:  30 * time.Second,
		logger:   slog.Default(),
		now:      time.Now,
		kick:     make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Pull pulls unless the last successful pull is recent. Concurrent callers
// share one pull. A queued commit+push runs before the pull so that a queued
// write is in history before remote changes are merged.
func (m *Manager) Pull(ctx context.Context) Outcome {
	m.mu.Lock()
	fresh := !m.lastPull.IsZero() && m.now().Sub(m.lastPull) < m.minPull
	m.mu.Unlock()
	if fresh {
		return Outcome{OK: true, Message: "pull skipped: recent"}
	}
	return m.pull(ctx)
}

func (m *Manager) pull(ctx context.Context) Outcome {
	v, _, _ := m.pulls.Do("pull", func() (any, error) {
		if o := m.Flush(ctx); !o.OK {
			m.logger.Warn("gitsync: push before pull failed", slog.String("message", o.Message))
		}
		m.gitMu.Lock()
		o := m.vc.Pull(ctx)
		m.gitMu.Unlock()
		m.record("pull", o)
		return o, nil
	})
	return v.(Outcome)
}

// CommitAndPush queues a commit+push and returns immediately. In inline
// mode it commits and pushes before returning.
func (m *Manager) CommitAndPush(ctx context.Context, message string) Outcome {
	if m.inline {
		return m.commitAndPush(ctx, message)
	}
	m.mu.Lock()
	m.pending, m.hasPending = message, true
	m.mu.Unlock()

	select {
	case m.kick <- struct{}{}:
	default:
	}
	return Outcome{OK: true, Message: "queued: " + message}
}

// HasChanges reports whether the working tree has uncommitted changes.
func (m *Manager) HasChanges(ctx context.Context) (bool, error) {
	m.gitMu.Lock()
	defer m.gitMu.Unlock()
	return m.vc.HasChanges(ctx)
}

// SyncNow commits and pushes whatever is pending, then pulls regardless of
// freshness, synchronously.
func (m *Manager) SyncNow(ctx context.Context, message string) Outcome {
	m.mu.Lock()
	if m.hasPending {
		message = m.pending
		m.hasPending = false
	}
	m.mu.Unlock()

	push := m.commitAndPush(ctx, message)
	pull := m.pull(ctx)
	return Outcome{OK: push.OK && pull.OK, Message: join(push.Message, pull.Message)}
}

// Flush performs a queued commit+push now, if any.
func (m *Manager) Flush(ctx context.Context) Outcome {
	m.mu.Lock()
	if !m.hasPending {
		m.mu.Unlock()
		return Outcome{OK: true, Message: "nothing pending"}
	}
	message := m.pending
	m.hasPending = false
	m.mu.Unlock()

	return m.commitAndPush(ctx, message)
}

func (m *Manager) commitAndPush(ctx context.Context, message string) Outcome {
	m.gitMu.Lock()
	o := m.vc.CommitAndPush(ctx, message)
	m.gitMu.Unlock()
	m.record("push", o)
	return o
}

// Run processes queued pushes until ctx is cancelled. Anything still
// queued at shutdown is flushed once.
func (m *Manager) Run(ctx context.Context) error {
	m.logger.Info("gitsync: manager started",
		slog.Duration("debounce", m.debounce),
		slog.Duration("min_pull_interval", m.minPull))

	for {
		select {
		case <-ctx.Done():
			m.Flush(context.WithoutCancel(ctx))
			m.logger.Info("gitsync: manager stopped")
			return nil
		case <-m.kick:
		}

		timer := time.NewTimer(m.debounce)
	wait:
		for {
			select {
			case <-m.kick:
				timer.Reset(m.debounce)
			case <-timer.C:
				break wait
			case <-ctx.Done():
				timer.Stop()
				break wait
			}
		}

		o := m.Flush(context.WithoutCancel(ctx))
		if !o.OK {
			m.logger.Warn("gitsync: background push failed", slog.String("message", o.Message))
		}
	}
}

// Status returns a snapshot of recent activity.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Status{
		LastPullAt:  timePtr(m.lastPull),
		LastPushAt:  timePtr(m.lastPush),
		LastError:   m.lastErr,
		LastErrorAt: timePtr(m.lastErrAt),
		Pending:     m.hasPending,
	}
}

func (m *Manager) record(kind string, o Outcome) {
	now := m.now()
	m.mu.Lock()
	switch {
	case !o.OK:
		m.lastErr, m.lastErrAt = o.Message, now
	case kind == "pull":
		m.lastPull = now
	default:
		m.lastPush = now
	}
	m.mu.Unlock()

	if m.notify != nil {
		m.notify(kind, o)
	}
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
