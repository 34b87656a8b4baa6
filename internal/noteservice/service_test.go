package noteservice

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/starford/dailyvault/internal/apperr"
	"github.com/starford/dailyvault/internal/daily"
	"github.com/starford/dailyvault/internal/gitsync"
	"github.com/starford/dailyvault/internal/testutil"
)

type fakeSyncer struct {
	commits []string
	syncs   int
}

func (f *fakeSyncer) Pull(context.Context) gitsync.Outcome {
	return gitsync.Outcome{OK: true, Message: "Pulled latest changes"}
}

func (f *fakeSyncer) CommitAndPush(_ context.Context, msg string) gitsync.Outcome {
	f.commits = append(f.commits, msg)
	return gitsync.Outcome{OK: true, Message: "queued: " + msg}
}

func (f *fakeSyncer) SyncNow(context.Context, string) gitsync.Outcome {
	f.syncs++
	return gitsync.Outcome{OK: true, Message: "Pulled latest changes; No changes to commit"}
}

func (f *fakeSyncer) Status() gitsync.Status { return gitsync.Status{Pending: len(f.commits) > 0} }

func newTestService(t *testing.T, syncer Syncer) *Service {
	t.Helper()
	_, store := testutil.TestVault(t)
	now := func() time.Time { return time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC) }
	var ds daily.Syncer
	if syncer != nil {
		ds = syncer
	}
	engine := daily.New(store, ds, daily.WithClock(now), daily.WithLocation(time.UTC))
	return NewService(store, engine, syncer, nil)
}

func TestWriteAndDeleteCommit(t *testing.T) {
	syncer := &fakeSyncer{}
	svc := newTestService(t, syncer)
	ctx := context.Background()

	res, err := svc.WriteFile(ctx, "alice", "notes/a.md", "hello\n")
	if err != nil {
		t.Fatal(err)
	}
	if !res.Changed || res.Sync == nil || res.Sync.Message != "queued: vault: save alice notes/a.md" {
		t.Errorf("write result = %+v", res)
	}
	got, err := svc.ReadFile(ctx, "alice", "notes/a.md")
	if err != nil || got != "hello\n" {
		t.Fatalf("ReadFile = %q, %v", got, err)
	}
	if ok, _ := svc.FileExists(ctx, "alice", "notes/a.md"); !ok {
		t.Error("file should exist")
	}

	if _, err := svc.DeleteFile(ctx, "alice", "notes/a.md"); err != nil {
		t.Fatal(err)
	}
	if ok, _ := svc.FileExists(ctx, "alice", "notes/a.md"); ok {
		t.Error("file should be gone")
	}
	if len(syncer.commits) != 2 || syncer.commits[1] != "vault: delete alice notes/a.md" {
		t.Errorf("commits = %v", syncer.commits)
	}
}

func TestListDirEmptyIsNotNil(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()
	if _, err := svc.WriteFile(ctx, "alice", "empty/.keep", ""); err != nil {
		t.Fatal(err)
	}
	entries, err := svc.ListDir(ctx, "alice", "empty")
	if err != nil {
		t.Fatal(err)
	}
	if entries == nil || len(entries) != 0 {
		t.Errorf("entries = %#v", entries)
	}
	if _, err := svc.ListDir(ctx, "alice", "missing"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v", err)
	}
}

func TestClearPinnedDefaultsToToday(t *testing.T) {
	svc := newTestService(t, &fakeSyncer{})
	ctx := context.Background()

	if _, err := svc.AppendEntry(ctx, "alice", "remember", true); err != nil {
		t.Fatal(err)
	}
	res, err := svc.ClearPinned(ctx, "alice", "")
	if err != nil {
		t.Fatal(err)
	}
	if res.Path != "daily/2024-01-15.md" || res.Message != "cleared 1 pinned entries" {
		t.Errorf("result = %+v", res)
	}
}

func TestSyncDisabled(t *testing.T) {
	svc := newTestService(t, nil)
	if o := svc.Sync(context.Background()); !o.OK || o.Message != "sync disabled" {
		t.Errorf("outcome = %+v", o)
	}
	res, err := svc.WriteFile(context.Background(), "bob", "a.md", "x")
	if err != nil {
		t.Fatal(err)
	}
	if res.Sync != nil {
		t.Errorf("sync = %+v", res.Sync)
	}
}

func TestSyncDelegates(t *testing.T) {
	syncer := &fakeSyncer{}
	svc := newTestService(t, syncer)
	if o := svc.Sync(context.Background()); !o.OK || syncer.syncs != 1 {
		t.Errorf("outcome = %+v, syncs = %d", o, syncer.syncs)
	}
}
