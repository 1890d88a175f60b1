package gitcli

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cool-RR/git-cascade/internal/vcs"
)

func requireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
}

// git runs a git command in dir and fails the test on error.
func git(t *testing.T, dir string, args ...string) string {
	t.Helper()
	cmd := exec.Command("git", append([]string{"-C", dir}, args...)...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("git %v: %v\n%s", args, err, out)
	}
	return strings.TrimSpace(string(out))
}

func commitFile(t *testing.T, dir, name, content, message string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	git(t, dir, "add", name)
	git(t, dir, "commit", "-m", message)
	return git(t, dir, "rev-parse", "HEAD")
}

// initRepo creates a repository with one root commit on main and opens it.
func initRepo(t *testing.T) (string, *Repository) {
	t.Helper()
	requireGit(t)
	dir := t.TempDir()
	git(t, dir, "init", "--initial-branch=main")
	git(t, dir, "config", "user.email", "cascade-test@example.com")
	git(t, dir, "config", "user.name", "Cascade Test")
	git(t, dir, "config", "commit.gpgsign", "false")
	commitFile(t, dir, "README.md", "hello\n", "initial commit")

	repo, err := Open(context.Background(), dir)
	require.NoError(t, err)
	return dir, repo
}

func TestOpen(t *testing.T) {
	dir, repo := initRepo(t)

	assert.True(t, filepath.IsAbs(repo.GitDir), "GitDir should be absolute: %s", repo.GitDir)
	assert.True(t, filepath.IsAbs(repo.CommonDir), "CommonDir should be absolute: %s", repo.CommonDir)
	assert.Equal(t, repo.GitDir, repo.CommonDir, "plain repository shares one git dir")

	resolved, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)
	top, err := filepath.EvalSymlinks(repo.TopLevel)
	require.NoError(t, err)
	assert.Equal(t, resolved, top)
}

func TestOpenOutsideRepository(t *testing.T) {
	requireGit(t)
	dir := t.TempDir()
	// Guard against the temp dir living under some enclosing repository.
	t.Setenv("GIT_CEILING_DIRECTORIES", filepath.Dir(dir))

	_, err := Open(context.Background(), dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a git repository")
}

func TestOpenInLinkedWorktree(t *testing.T) {
	dir, _ := initRepo(t)
	wt := filepath.Join(t.TempDir(), "wt")
	git(t, dir, "worktree", "add", wt, "-b", "side")

	repo, err := Open(context.Background(), wt)
	require.NoError(t, err)
	assert.NotEqual(t, repo.GitDir, repo.CommonDir, "linked worktree has a private git dir")

	branch, err := repo.CurrentBranch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "side", branch)
}

func TestResolveCommit(t *testing.T) {
	dir, repo := initRepo(t)
	ctx := context.Background()

	want := git(t, dir, "rev-parse", "main")
	got, err := repo.ResolveCommit(ctx, "main")
	require.NoError(t, err)
	assert.Equal(t, vcs.CommitID(want), got)

	head, err := repo.ResolveCommit(ctx, "HEAD")
	require.NoError(t, err)
	assert.Equal(t, got, head)

	_, err = repo.ResolveCommit(ctx, "no-such-branch")
	var unresolved *vcs.UnresolvedBranchError
	require.ErrorAs(t, err, &unresolved)
	assert.Equal(t, "no-such-branch", unresolved.Branch)
}

func TestCurrentBranch(t *testing.T) {
	dir, repo := initRepo(t)
	ctx := context.Background()

	branch, err := repo.CurrentBranch(ctx)
	require.NoError(t, err)
	assert.Equal(t, "main", branch)

	git(t, dir, "checkout", "--detach")
	_, err = repo.CurrentBranch(ctx)
	assert.ErrorIs(t, err, vcs.ErrDetachedHead)
}

func TestMergeBase(t *testing.T) {
	dir, repo := initRepo(t)
	ctx := context.Background()

	root := git(t, dir, "rev-parse", "main")
	git(t, dir, "checkout", "-b", "feature")
	commitFile(t, dir, "feature.txt", "work\n", "feature work")
	git(t, dir, "checkout", "main")
	commitFile(t, dir, "main.txt", "work\n", "main work")

	base, err := repo.MergeBase(ctx, "feature", "main")
	require.NoError(t, err)
	assert.Equal(t, vcs.CommitID(root), base)

	// MergeBase(x, x) is x's own tip, which the classifier relies on.
	tip, err := repo.MergeBase(ctx, "main", "main")
	require.NoError(t, err)
	assert.Equal(t, vcs.CommitID(git(t, dir, "rev-parse", "main")), tip)

	_, err = repo.MergeBase(ctx, "feature", "no-such-branch")
	var unresolved *vcs.UnresolvedBranchError
	require.ErrorAs(t, err, &unresolved)
	assert.Equal(t, "no-such-branch", unresolved.Branch)
}

func TestCreateOrMoveRef(t *testing.T) {
	dir, repo := initRepo(t)
	ctx := context.Background()

	first := vcs.CommitID(git(t, dir, "rev-parse", "main"))
	second := vcs.CommitID(commitFile(t, dir, "more.txt", "more\n", "second commit"))

	// Creating a branch that does not exist yet.
	require.NoError(t, repo.CreateOrMoveRef(ctx, "release", first, true))
	assert.Equal(t, string(first), git(t, dir, "rev-parse", "release"))

	// Fast-forwarding it.
	require.NoError(t, repo.CreateOrMoveRef(ctx, "release", second, true))
	assert.Equal(t, string(second), git(t, dir, "rev-parse", "release"))

	// Moving backwards is refused in fast-forward mode...
	err := repo.CreateOrMoveRef(ctx, "release", first, true)
	var refErr *vcs.RefUpdateError
	require.ErrorAs(t, err, &refErr)
	assert.Equal(t, "release", refErr.Branch)
	assert.Equal(t, string(second), git(t, dir, "rev-parse", "release"), "failed move must not change the ref")

	// ...and allowed without it.
	require.NoError(t, repo.CreateOrMoveRef(ctx, "release", first, false))
	assert.Equal(t, string(first), git(t, dir, "rev-parse", "release"))
}

func TestReadConfigChains(t *testing.T) {
	dir, repo := initRepo(t)
	ctx := context.Background()

	chains, err := repo.ReadConfigChains(ctx)
	require.NoError(t, err)
	assert.Empty(t, chains, "unset key reads as no chains")

	git(t, dir, "config", "--add", "cascade.chain", "development > staging > master")
	git(t, dir, "config", "--add", "cascade.chain", "hotfix > master")

	chains, err = repo.ReadConfigChains(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"development > staging > master", "hotfix > master"}, chains)
}

func TestReadAliasMap(t *testing.T) {
	dir, repo := initRepo(t)
	ctx := context.Background()

	aliases, err := repo.ReadAliasMap(ctx)
	require.NoError(t, err)
	assert.Empty(t, aliases)

	git(t, dir, "config", "cascade.alias.dev", "development")
	git(t, dir, "config", "cascade.alias.mg", "master")

	aliases, err = repo.ReadAliasMap(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"dev": "development", "mg": "master"}, aliases)
}

func TestPerformInPlaceMerge(t *testing.T) {
	dir, repo := initRepo(t)
	ctx := context.Background()

	git(t, dir, "checkout", "-b", "topic")
	commitFile(t, dir, "topic.txt", "topic\n", "topic work")
	git(t, dir, "checkout", "main")
	mainTip := commitFile(t, dir, "main.txt", "main\n", "main work")

	id, err := repo.PerformInPlaceMerge(ctx, "topic")
	require.NoError(t, err)
	assert.Equal(t, string(id), git(t, dir, "rev-parse", "main"))
	assert.Equal(t, mainTip, git(t, dir, "rev-parse", "main^1"))
	assert.Equal(t, git(t, dir, "rev-parse", "topic"), git(t, dir, "rev-parse", "main^2"))
	assert.FileExists(t, filepath.Join(dir, "topic.txt"), "merge must materialize in the working tree")
}

func TestPerformInPlaceMergeConflict(t *testing.T) {
	dir, repo := initRepo(t)
	ctx := context.Background()

	git(t, dir, "checkout", "-b", "topic")
	commitFile(t, dir, "shared.txt", "topic version\n", "topic edit")
	git(t, dir, "checkout", "main")
	mainTip := commitFile(t, dir, "shared.txt", "main version\n", "main edit")

	_, err := repo.PerformInPlaceMerge(ctx, "topic")
	var left *vcs.ConflictLeftInWorkingTree
	require.ErrorAs(t, err, &left)
	assert.Equal(t, "topic", left.Source)
	assert.Equal(t, "main", left.Branch)

	// The branch did not advance, and the conflict markers are in place for
	// the usual manual workflow.
	assert.Equal(t, mainTip, git(t, dir, "rev-parse", "main"))
	content, readErr := os.ReadFile(filepath.Join(dir, "shared.txt"))
	require.NoError(t, readErr)
	assert.Contains(t, string(content), "<<<<<<<")
}

func TestGitErrorExitCode(t *testing.T) {
	_, repo := initRepo(t)

	_, err := repo.run.run(context.Background(), "rev-parse", "--verify", "--quiet", "nope^{commit}")
	var gitErr *GitError
	require.ErrorAs(t, err, &gitErr)
	assert.Equal(t, 1, gitErr.ExitCode())
}
