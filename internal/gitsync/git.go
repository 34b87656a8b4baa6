package gitsync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// Commit is a summary of a commit object.
type Commit struct {
	Hash    string    `json:"hash"`
	Message string    `json:"message"`
	When    time.Time `json:"when"`
}

// Git implements VersionControl for a working copy at root. Mutating
// commands go through the git CLI so hooks, credentials and merge
// strategies behave exactly as on the command line; read-only inspection
// uses go-git.
type Git struct {
	root    string
	remote  string
	runner  Runner
	timeout time.Duration
	name    string
	email   string
	logger  *slog.Logger
}

// GitOption configures Git.
type GitOption func(*Git)

// WithRunner replaces the subprocess runner.
func WithRunner(r Runner) GitOption {
	return func(g *Git) { g.runner = r }
}

// WithRemote sets the remote name. Defaults to "origin".
func WithRemote(name string) GitOption {
	return func(g *Git) { g.remote = name }
}

// WithTimeout bounds every git subprocess.
func WithTimeout(d time.Duration) GitOption {
	return func(g *Git) { g.timeout = d }
}

// WithAuthor sets the committer identity passed to git with -c.
func WithAuthor(name, email string) GitOption {
	return func(g *Git) { g.name, g.email = name, email }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) GitOption {
	return func(g *Git) { g.logger = l }
}

// NewGit creates a Git for the working copy at root.
func NewGit(root string, opts ...GitOption) *Git {
	g := &Git{
		root:    root,
		remote:  "origin",
		runner:  ExecRunner{},
		timeout: 60 * time.Second,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// autoCommitMessage labels local changes committed so that a pull never
// runs over a dirty working tree.
const autoCommitMessage = "vault: save local changes before pull"

// Pull integrates remote changes, preferring the remote side on conflict.
// Uncommitted changes are committed first. When the merge cannot complete,
// the local branch is reset to the remote tip; local commits the reset
// drops stay reachable from a backup ref under refs/vault-backup/.
func (g *Git) Pull(ctx context.Context) Outcome {
	repo, ok := g.repository()
	if !ok {
		return Outcome{OK: true, Message: "no repository"}
	}
	g.abortInProgress(ctx)

	if !g.hasRemote(repo) {
		return Outcome{OK: true, Message: "no remote configured"}
	}
	branch := g.branch(ctx, repo)

	dirty, err := g.HasChanges(ctx)
	if err != nil {
		return Outcome{OK: false, Message: "pull skipped: status failed: " + firstLine(err)}
	}
	if dirty {
		if err := g.commit(ctx, autoCommitMessage); err != nil {
			return Outcome{OK: false, Message: "pull skipped: could not commit local changes: " + firstLine(err)}
		}
		g.logger.Info("gitsync: committed local changes before pull", slog.String("branch", branch))
	}

	_, err = g.git(ctx, "pull", "--no-rebase", "-X", "theirs", g.remote, branch)
	if err == nil {
		return Outcome{OK: true, Message: "Pulled latest changes"}
	}
	g.logger.Warn("gitsync: pull failed, resetting to remote",
		slog.String("branch", branch),
		slog.String("error", err.Error()))
	g.abortInProgress(ctx)

	if _, err := g.git(ctx, "fetch", g.remote, branch); err != nil {
		return Outcome{OK: false, Message: "pull failed: " + firstLine(err)}
	}

	msg := "Recovered by resetting to remote"
	if n := g.count(ctx, g.remote+"/"+branch+"..HEAD"); n > 0 {
		ref := fmt.Sprintf("refs/vault-backup/%d", time.Now().UnixNano())
		if _, err := g.git(ctx, "update-ref", ref, "HEAD"); err != nil {
			return Outcome{OK: false, Message: "pull failed: could not back up local commits: " + firstLine(err)}
		}
		g.logger.Warn("gitsync: local commits moved to backup ref",
			slog.String("ref", ref),
			slog.Int("commits", n))
		msg += "; local commits kept at " + ref
	}
	if _, err := g.git(ctx, "reset", "--hard", g.remote+"/"+branch); err != nil {
		return Outcome{OK: false, Message: "pull failed: " + firstLine(err)}
	}
	return Outcome{OK: true, Message: msg}
}

// CommitAndPush stages and commits every change, then pushes. A push that
// still fails after one pull-and-retry leaves the commit in local history
// and reports OK=false.
func (g *Git) CommitAndPush(ctx context.Context, message string) Outcome {
	repo, ok := g.repository()
	if !ok {
		return Outcome{OK: true, Message: "no repository"}
	}

	dirty, err := g.HasChanges(ctx)
	if err != nil {
		return Outcome{OK: false, Message: "status failed: " + firstLine(err)}
	}
	if !dirty {
		if !g.hasRemote(repo) || g.ahead(ctx, repo) == 0 {
			return Outcome{OK: true, Message: "No changes to commit"}
		}
		if err := g.push(ctx, repo); err != nil {
			return Outcome{OK: false, Message: "No changes to commit; push failed: " + firstLine(err)}
		}
		return Outcome{OK: true, Message: "No changes to commit; pushed pending commits"}
	}

	if _, err := g.git(ctx, "add", "-A"); err != nil {
		return Outcome{OK: false, Message: "stage failed: " + firstLine(err)}
	}
	if _, err := g.git(ctx, "commit", "-m", message); err != nil {
		return Outcome{OK: false, Message: "commit failed: " + firstLine(err)}
	}

	if !g.hasRemote(repo) {
		return Outcome{OK: true, Message: "Committed locally (no remote configured)"}
	}
	if err := g.push(ctx, repo); err == nil {
		return Outcome{OK: true, Message: "Committed and pushed"}
	}

	pull := g.Pull(ctx)
	g.logger.Info("gitsync: push rejected, pulled before retry", slog.String("pull", pull.Message))
	if err := g.push(ctx, repo); err != nil {
		g.logger.Warn("gitsync: push failed after retry", slog.String("error", err.Error()))
		return Outcome{OK: false, Message: "Committed locally; push failed: " + firstLine(err)}
	}
	return Outcome{OK: true, Message: "Committed and pushed after pull"}
}

// HasChanges reports whether the working tree has uncommitted changes,
// untracked files included.
func (g *Git) HasChanges(ctx context.Context) (bool, error) {
	out, err := g.git(ctx, "status", "--porcelain")
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(out) != "", nil
}

// StatusShort returns `git status --short --branch` output.
func (g *Git) StatusShort(ctx context.Context) (string, error) {
	if _, ok := g.repository(); !ok {
		return "", fmt.Errorf("gitsync: %s is not a git repository", g.root)
	}
	return g.git(ctx, "status", "--short", "--branch")
}

// Head returns the commit HEAD points to.
func (g *Git) Head() (Commit, error) {
	repo, err := git.PlainOpen(g.root)
	if err != nil {
		return Commit{}, fmt.Errorf("gitsync: open: %w", err)
	}
	ref, err := repo.Head()
	if err != nil {
		return Commit{}, fmt.Errorf("gitsync: head: %w", err)
	}
	c, err := repo.CommitObject(ref.Hash())
	if err != nil {
		return Commit{}, fmt.Errorf("gitsync: commit %s: %w", ref.Hash(), err)
	}
	return Commit{
		Hash:    c.Hash.String(),
		Message: strings.TrimSpace(c.Message),
		When:    c.Committer.When,
	}, nil
}

func (g *Git) push(ctx context.Context, repo *git.Repository) error {
	_, err := g.git(ctx, "push", "-u", g.remote, g.branch(ctx, repo))
	return err
}

// repository opens the working copy. A repository go-git cannot parse
// still counts when a .git entry exists; the CLI decides from there.
func (g *Git) repository() (*git.Repository, bool) {
	repo, err := git.PlainOpen(g.root)
	if err == nil {
		return repo, true
	}
	if errors.Is(err, git.ErrRepositoryNotExists) {
		return nil, false
	}
	if _, statErr := os.Stat(filepath.Join(g.root, ".git")); statErr == nil {
		g.logger.Debug("gitsync: go-git open failed", slog.String("error", err.Error()))
		return nil, true
	}
	return nil, false
}

func (g *Git) hasRemote(repo *git.Repository) bool {
	if repo == nil {
		return true
	}
	_, err := repo.Remote(g.remote)
	return err == nil
}

// branch returns the checked-out branch name.
func (g *Git) branch(ctx context.Context, repo *git.Repository) string {
	if repo != nil {
		if ref, err := repo.Head(); err == nil && ref.Name().IsBranch() {
			return ref.Name().Short()
		}
		if ref, err := repo.Reference(plumbing.HEAD, false); err == nil && ref.Type() == plumbing.SymbolicReference {
			return ref.Target().Short()
		}
	}
	out, err := g.git(ctx, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil || strings.TrimSpace(out) == "" {
		return "main"
	}
	return strings.TrimSpace(out)
}

// ahead counts local commits not on the remote branch. Without an upstream
// it compares against the remote-tracking ref; a branch the remote has
// never seen counts as ahead when it has any commit.
func (g *Git) ahead(ctx context.Context, repo *git.Repository) int {
	if n := g.count(ctx, "@{u}..HEAD"); n >= 0 {
		return n
	}
	if n := g.count(ctx, g.remote+"/"+g.branch(ctx, repo)+"..HEAD"); n >= 0 {
		return n
	}
	if _, err := g.git(ctx, "rev-parse", "--verify", "-q", "HEAD"); err != nil {
		return 0
	}
	return 1
}

// count returns the number of commits in a rev-list range, or -1 when the
// range does not resolve.
func (g *Git) count(ctx context.Context, rng string) int {
	out, err := g.git(ctx, "rev-list", "--count", rng)
	if err != nil {
		return -1
	}
	n, err := strconv.Atoi(strings.TrimSpace(out))
	if err != nil {
		return -1
	}
	return n
}

// commit stages and commits every change.
func (g *Git) commit(ctx context.Context, message string) error {
	if _, err := g.git(ctx, "add", "-A"); err != nil {
		return err
	}
	_, err := g.git(ctx, "commit", "-m", message)
	return err
}

// abortInProgress aborts a rebase or merge left behind by a crashed run.
// Errors are ignored: the operation may simply not be in progress.
func (g *Git) abortInProgress(ctx context.Context) {
	gitDir := filepath.Join(g.root, ".git")
	if exists(filepath.Join(gitDir, "rebase-merge")) || exists(filepath.Join(gitDir, "rebase-apply")) {
		g.logger.Warn("gitsync: aborting stale rebase")
		_, _ = g.git(ctx, "rebase", "--abort")
	}
	if exists(filepath.Join(gitDir, "MERGE_HEAD")) {
		g.logger.Warn("gitsync: aborting stale merge")
		_, _ = g.git(ctx, "merge", "--abort")
	}
}

func (g *Git) git(ctx context.Context, args ...string) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}
	var full []string
	if g.name != "" {
		full = append(full, "-c", "user.name="+g.name)
	}
	if g.email != "" {
		full = append(full, "-c", "user.email="+g.email)
	}
	full = append(full, args...)

	start := time.Now()
	out, err := g.runner.Run(ctx, g.root, full...)
	g.logger.Debug("gitsync: git",
		slog.String("cmd", subcommand(full)),
		slog.Duration("took", time.Since(start)),
		slog.Bool("ok", err == nil))
	return out, err
}

func exists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}

// firstLine condenses a multi-line git error to its summary and the last
// line of output, which is where git reports the reason.
func firstLine(err error) string {
	lines := strings.Split(strings.TrimSpace(err.Error()), "\n")
	last := strings.TrimSpace(lines[len(lines)-1])
	if len(lines) == 1 || last == "" {
		return lines[0]
	}
	return lines[0] + ": " + last
}
