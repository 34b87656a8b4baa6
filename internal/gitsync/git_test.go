package gitsync

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/starford/dailyvault/internal/testutil"
)

type fakeRunner struct {
	mu      sync.Mutex
	calls   [][]string
	respond func(args []string) (string, error)
}

func (f *fakeRunner) Run(_ context.Context, _ string, args ...string) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, args)
	respond := f.respond
	f.mu.Unlock()
	if respond == nil {
		return "", nil
	}
	return respond(args)
}

func (f *fakeRunner) count(sub string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if subcommand(c) == sub {
			n++
		}
	}
	return n
}

func (f *fakeRunner) find(sub string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.calls {
		if subcommand(c) == sub {
			return c
		}
	}
	return nil
}

var errFake = errors.New("exit status 1")

func newTestGit(t *testing.T, remote string, respond func([]string) (string, error)) (*Git, *fakeRunner) {
	t.Helper()
	dir := t.TempDir()
	testutil.TestRepo(t, dir, remote)
	r := &fakeRunner{respond: respond}
	return NewGit(dir, WithRunner(r)), r
}

func TestPullNoRepository(t *testing.T) {
	r := &fakeRunner{}
	g := NewGit(t.TempDir(), WithRunner(r))

	o := g.Pull(context.Background())
	if !o.OK || o.Message != "no repository" {
		t.Errorf("outcome = %+v", o)
	}
	if len(r.calls) != 0 {
		t.Errorf("unexpected git calls: %v", r.calls)
	}
}

func TestPullNoRemote(t *testing.T) {
	g, r := newTestGit(t, "", nil)
	o := g.Pull(context.Background())
	if !o.OK || o.Message != "no remote configured" {
		t.Errorf("outcome = %+v", o)
	}
	if r.count("pull") != 0 {
		t.Error("pull must not run without a remote")
	}
}

func TestPullPrefersTheirs(t *testing.T) {
	g, r := newTestGit(t, "/srv/vault.git", nil)
	o := g.Pull(context.Background())
	if !o.OK || o.Message != "Pulled latest changes" {
		t.Errorf("outcome = %+v", o)
	}
	want := []string{"pull", "--no-rebase", "-X", "theirs", "origin", "master"}
	if got := r.find("pull"); !slices.Equal(got, want) {
		t.Errorf("pull args = %v, want %v", got, want)
	}
}

func TestPullFallsBackToReset(t *testing.T) {
	g, r := newTestGit(t, "/srv/vault.git", func(args []string) (string, error) {
		if subcommand(args) == "pull" {
			return "", errFake
		}
		return "", nil
	})
	o := g.Pull(context.Background())
	if !o.OK || o.Message != "Recovered by resetting to remote" {
		t.Errorf("outcome = %+v", o)
	}
	want := []string{"reset", "--hard", "origin/master"}
	if got := r.find("reset"); !slices.Equal(got, want) {
		t.Errorf("reset args = %v, want %v", got, want)
	}
}

func TestPullFailureIsAnOutcome(t *testing.T) {
	g, _ := newTestGit(t, "/srv/vault.git", func(args []string) (string, error) {
		switch subcommand(args) {
		case "pull", "fetch":
			return "", errors.New("git fetch failed: exit status 128\nfatal: could not read from remote")
		}
		return "", nil
	})
	o := g.Pull(context.Background())
	if o.OK {
		t.Fatal("expected failure")
	}
	if !strings.HasPrefix(o.Message, "pull failed:") || !strings.Contains(o.Message, "could not read from remote") {
		t.Errorf("message = %q", o.Message)
	}
}

func TestPullAbortsInterruptedMergeAndRebase(t *testing.T) {
	g, r := newTestGit(t, "/srv/vault.git", func(args []string) (string, error) {
		if subcommand(args) == "merge" || subcommand(args) == "rebase" {
			return "", errFake
		}
		return "", nil
	})
	gitDir := filepath.Join(g.root, ".git")
	if err := os.WriteFile(filepath.Join(gitDir, "MERGE_HEAD"), []byte("deadbeef\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(filepath.Join(gitDir, "rebase-merge"), 0o755); err != nil {
		t.Fatal(err)
	}

	o := g.Pull(context.Background())
	if !o.OK {
		t.Errorf("abort failures must be ignored: %+v", o)
	}
	if got := r.find("merge"); !slices.Equal(got, []string{"merge", "--abort"}) {
		t.Errorf("merge args = %v", got)
	}
	if got := r.find("rebase"); !slices.Equal(got, []string{"rebase", "--abort"}) {
		t.Errorf("rebase args = %v", got)
	}
}

func TestCommitAndPushNoChanges(t *testing.T) {
	g, r := newTestGit(t, "/srv/vault.git", func(args []string) (string, error) {
		if subcommand(args) == "rev-list" {
			return "0\n", nil
		}
		return "", nil
	})
	o := g.CommitAndPush(context.Background(), "daily: update")
	if !o.OK || o.Message != "No changes to commit" {
		t.Errorf("outcome = %+v", o)
	}
	for _, sub := range []string{"add", "commit", "push"} {
		if n := r.count(sub); n != 0 {
			t.Errorf("%s called %d times", sub, n)
		}
	}
}

func TestCommitAndPushPushesPendingCommits(t *testing.T) {
	g, r := newTestGit(t, "/srv/vault.git", func(args []string) (string, error) {
		if subcommand(args) == "rev-list" {
			return "2\n", nil
		}
		return "", nil
	})
	o := g.CommitAndPush(context.Background(), "daily: update")
	if !o.OK || o.Message != "No changes to commit; pushed pending commits" {
		t.Errorf("outcome = %+v", o)
	}
	if r.count("commit") != 0 || r.count("push") != 1 {
		t.Errorf("calls = %v", r.calls)
	}
}

func TestCommitAndPushLocalOnly(t *testing.T) {
	g, r := newTestGit(t, "", func(args []string) (string, error) {
		if subcommand(args) == "status" {
			return " M daily/2024-01-15.md\n", nil
		}
		return "", nil
	})
	o := g.CommitAndPush(context.Background(), "daily: update")
	if !o.OK || o.Message != "Committed locally (no remote configured)" {
		t.Errorf("outcome = %+v", o)
	}
	if got := r.find("commit"); !slices.Equal(got, []string{"commit", "-m", "daily: update"}) {
		t.Errorf("commit args = %v", got)
	}
}

func TestCommitAndPushSoftFailure(t *testing.T) {
	statuses := 0
	g, r := newTestGit(t, "/srv/vault.git", func(args []string) (string, error) {
		switch subcommand(args) {
		case "status":
			statuses++
			if statuses > 1 {
				return "", nil
			}
			return "?? alice/daily/2024-01-15.md\n", nil
		case "push", "pull", "fetch":
			return "", errors.New("git push failed: exit status 1\n! [rejected] master -> master (fetch first)")
		}
		return "", nil
	})
	o := g.CommitAndPush(context.Background(), "daily: create alice 2024-01-15")
	if o.OK {
		t.Fatalf("expected soft failure, got %+v", o)
	}
	if !strings.HasPrefix(o.Message, "Committed locally; push failed") {
		t.Errorf("message = %q", o.Message)
	}
	if r.count("commit") != 1 || r.count("push") != 2 || r.count("pull") != 1 {
		t.Errorf("commit=%d push=%d pull=%d", r.count("commit"), r.count("push"), r.count("pull"))
	}
}

func TestCommitAndPushRetrySucceeds(t *testing.T) {
	pushes := 0
	g, _ := newTestGit(t, "/srv/vault.git", func(args []string) (string, error) {
		switch subcommand(args) {
		case "status":
			return " M a.md\n", nil
		case "push":
			pushes++
			if pushes == 1 {
				return "", errFake
			}
		}
		return "", nil
	})
	o := g.CommitAndPush(context.Background(), "edit")
	if !o.OK || o.Message != "Committed and pushed after pull" {
		t.Errorf("outcome = %+v", o)
	}
}

func TestAuthorIsPassedWithConfigFlags(t *testing.T) {
	dir := t.TempDir()
	testutil.TestRepo(t, dir, "")
	r := &fakeRunner{respond: func(args []string) (string, error) {
		if subcommand(args) == "status" {
			return " M a.md\n", nil
		}
		return "", nil
	}}
	g := NewGit(dir, WithRunner(r), WithAuthor("Vault Bot", "bot@example.com"))
	g.CommitAndPush(context.Background(), "edit")

	got := r.find("commit")
	want := []string{"-c", "user.name=Vault Bot", "-c", "user.email=bot@example.com", "commit", "-m", "edit"}
	if !slices.Equal(got, want) {
		t.Errorf("commit args = %v, want %v", got, want)
	}
}

func TestHead(t *testing.T) {
	dir := t.TempDir()
	testutil.TestRepo(t, dir, "")
	c, err := NewGit(dir).Head()
	if err != nil {
		t.Fatalf("Head: %v", err)
	}
	if c.Message != "init" || len(c.Hash) != 40 {
		t.Errorf("head = %+v", c)
	}
}

func TestPullCommitsDirtyTreeFirst(t *testing.T) {
	g, r := newTestGit(t, "/srv/vault.git", func(args []string) (string, error) {
		if subcommand(args) == "status" {
			return " M alice/daily/2024-01-15.md\n", nil
		}
		return "", nil
	})
	if o := g.Pull(context.Background()); !o.OK {
		t.Fatalf("outcome = %+v", o)
	}
	var order []string
	for _, c := range r.calls {
		switch sub := subcommand(c); sub {
		case "add", "commit", "pull":
			order = append(order, sub)
		}
	}
	if !slices.Equal(order, []string{"add", "commit", "pull"}) {
		t.Errorf("order = %v, want commit before pull", order)
	}
	if got := r.find("commit"); !slices.Equal(got, []string{"commit", "-m", autoCommitMessage}) {
		t.Errorf("commit args = %v", got)
	}
}

func TestPullSkippedWhenLocalCommitFails(t *testing.T) {
	g, r := newTestGit(t, "/srv/vault.git", func(args []string) (string, error) {
		switch subcommand(args) {
		case "status":
			return " M a.md\n", nil
		case "commit":
			return "", errFake
		}
		return "", nil
	})
	o := g.Pull(context.Background())
	if o.OK || !strings.HasPrefix(o.Message, "pull skipped:") {
		t.Errorf("outcome = %+v", o)
	}
	if r.count("pull") != 0 || r.count("reset") != 0 {
		t.Errorf("pull/reset must not run over a dirty tree: %v", r.calls)
	}
}

func TestPullResetKeepsLocalCommitsInBackupRef(t *testing.T) {
	g, r := newTestGit(t, "/srv/vault.git", func(args []string) (string, error) {
		switch subcommand(args) {
		case "pull":
			return "", errFake
		case "rev-list":
			return "2\n", nil
		}
		return "", nil
	})
	o := g.Pull(context.Background())
	if !o.OK || !strings.Contains(o.Message, "local commits kept at refs/vault-backup/") {
		t.Errorf("outcome = %+v", o)
	}
	ref := r.find("update-ref")
	if len(ref) != 3 || !strings.HasPrefix(ref[1], "refs/vault-backup/") || ref[2] != "HEAD" {
		t.Errorf("update-ref args = %v", ref)
	}
	var order []string
	for _, c := range r.calls {
		if sub := subcommand(c); sub == "update-ref" || sub == "reset" {
			order = append(order, sub)
		}
	}
	if !slices.Equal(order, []string{"update-ref", "reset"}) {
		t.Errorf("order = %v, want backup before reset", order)
	}
}

func TestCommitAndPushWithoutUpstream(t *testing.T) {
	g, r := newTestGit(t, "/srv/vault.git", func(args []string) (string, error) {
		if subcommand(args) == "rev-list" {
			return "", errors.New("fatal: no upstream configured for branch 'master'")
		}
		return "", nil
	})
	o := g.CommitAndPush(context.Background(), "daily: update")
	if !o.OK || o.Message != "No changes to commit; pushed pending commits" {
		t.Errorf("outcome = %+v", o)
	}
	if got := r.find("push"); !slices.Equal(got, []string{"push", "-u", "origin", "master"}) {
		t.Errorf("push args = %v", got)
	}
}
