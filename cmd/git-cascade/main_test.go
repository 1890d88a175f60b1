package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cool-RR/git-cascade/internal/merge"
)

func requireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git binary not available")
	}
}

func gitRun(t *testing.T, dir string, args ...string) string {
	t.Helper()
	cmd := exec.Command("git", append([]string{"-C", dir}, args...)...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("git %v: %v\n%s", args, err, out)
	}
	return strings.TrimSpace(string(out))
}

func writeCommit(t *testing.T, dir, name, content, message string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	gitRun(t, dir, "add", name)
	gitRun(t, dir, "commit", "-m", message)
}

// initCascadeRepo creates a repository on master with one base commit,
// isolates the global config scope, and makes the repository the working
// directory for the rest of the test.
func initCascadeRepo(t *testing.T) string {
	t.Helper()
	requireGit(t)
	dir := t.TempDir()
	gitRun(t, dir, "init", "--initial-branch=master")
	gitRun(t, dir, "config", "user.email", "cascade@example.com")
	gitRun(t, dir, "config", "user.name", "cascade tests")
	gitRun(t, dir, "config", "commit.gpgsign", "false")
	writeCommit(t, dir, "base.txt", "base\n", "base")
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Chdir(dir)
	return dir
}

// runCLI executes the root command with args, capturing stdout. Flag state
// is reset afterwards so invocations in one test stay independent.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	oldStdout := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	os.Stdout = w

	rootCmd.SetArgs(args)
	execErr := rootCmd.Execute()

	_ = w.Close()
	os.Stdout = oldStdout
	rootCmd.SetArgs(nil)
	jsonOutput = false
	noColor = false
	cascadeShow = false
	cascadeDryRun = false
	forwardMergeDryRun = false

	var buf bytes.Buffer
	_, _ = io.Copy(&buf, r)
	return buf.String(), execErr
}

func TestCascadeRun(t *testing.T) {
	dir := initCascadeRepo(t)
	gitRun(t, dir, "branch", "staging")
	gitRun(t, dir, "checkout", "-b", "development")
	writeCommit(t, dir, "feature.txt", "feature\n", "feature work")
	gitRun(t, dir, "config", "cascade.chain", "development > staging > master")
	devTip := gitRun(t, dir, "rev-parse", "development")

	out, err := runCLI(t, "cascade")
	if err != nil {
		t.Fatalf("cascade: %v\n%s", err, out)
	}
	if got := gitRun(t, dir, "rev-parse", "staging"); got != devTip {
		t.Errorf("staging = %s, want %s", got, devTip)
	}
	if got := gitRun(t, dir, "rev-parse", "master"); got != devTip {
		t.Errorf("master = %s, want %s", got, devTip)
	}
	if !strings.Contains(out, "fast-forwarded") {
		t.Errorf("output missing fast-forward lines:\n%s", out)
	}
}

func TestCascadeFromChainRoot(t *testing.T) {
	dir := initCascadeRepo(t)
	gitRun(t, dir, "branch", "development")
	gitRun(t, dir, "branch", "staging")
	gitRun(t, dir, "checkout", "-b", "feature")
	writeCommit(t, dir, "feature.txt", "feature\n", "feature work")
	gitRun(t, dir, "config", "cascade.chain", "development > staging > master")
	featureTip := gitRun(t, dir, "rev-parse", "feature")

	// HEAD is feature, which is not a destination, so every hop is a plain
	// ref move: three fast-forwarded rows.
	out, err := runCLI(t, "cascade", "development")
	if err != nil {
		t.Fatalf("cascade development: %v\n%s", err, out)
	}
	if got := strings.Count(out, "fast-forwarded"); got < 3 {
		t.Errorf("output has %d fast-forwarded mentions, want at least 3:\n%s", got, out)
	}
	for _, branch := range []string{"development", "staging", "master"} {
		if got := gitRun(t, dir, "rev-parse", branch); got != featureTip {
			t.Errorf("%s = %s, want %s", branch, got, featureTip)
		}
	}
}

func TestCascadeDivergedDestinationMerges(t *testing.T) {
	dir := initCascadeRepo(t)
	gitRun(t, dir, "branch", "staging")
	gitRun(t, dir, "checkout", "staging")
	writeCommit(t, dir, "staging.txt", "staging\n", "staging work")
	gitRun(t, dir, "checkout", "master")
	gitRun(t, dir, "checkout", "-b", "development")
	writeCommit(t, dir, "feature.txt", "feature\n", "feature work")
	gitRun(t, dir, "config", "cascade.chain", "development > staging")

	out, err := runCLI(t, "cascade")
	if err != nil {
		t.Fatalf("cascade: %v\n%s", err, out)
	}
	if !strings.Contains(out, "staging: merged development") {
		t.Errorf("output missing merged row for staging:\n%s", out)
	}
	// Both sides' files are present on staging after the sandbox merge.
	gitRun(t, dir, "cat-file", "-e", "staging:staging.txt")
	gitRun(t, dir, "cat-file", "-e", "staging:feature.txt")
	if subject := gitRun(t, dir, "log", "-1", "--format=%s", "staging"); subject != "Merge development into staging" {
		t.Errorf("merge subject = %q", subject)
	}
}

func TestCascadeDryRunMutatesNothing(t *testing.T) {
	dir := initCascadeRepo(t)
	gitRun(t, dir, "branch", "staging")
	gitRun(t, dir, "checkout", "-b", "development")
	writeCommit(t, dir, "feature.txt", "feature\n", "feature work")
	gitRun(t, dir, "config", "cascade.chain", "development > staging > master")
	stagingBefore := gitRun(t, dir, "rev-parse", "staging")

	out, err := runCLI(t, "cascade", "--dry-run")
	if err != nil {
		t.Fatalf("cascade --dry-run: %v\n%s", err, out)
	}
	for _, want := range []string{"would merge development in place", "would fast-forward"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if got := gitRun(t, dir, "rev-parse", "staging"); got != stagingBefore {
		t.Errorf("dry run moved staging to %s", got)
	}
}

func TestCascadeConflictExitsNonzero(t *testing.T) {
	dir := initCascadeRepo(t)
	gitRun(t, dir, "branch", "staging")
	gitRun(t, dir, "checkout", "staging")
	writeCommit(t, dir, "base.txt", "staging change\n", "staging change")
	gitRun(t, dir, "checkout", "master")
	gitRun(t, dir, "checkout", "-b", "development")
	writeCommit(t, dir, "base.txt", "development change\n", "development change")
	gitRun(t, dir, "config", "cascade.chain", "development > staging > master")
	stagingTip := gitRun(t, dir, "rev-parse", "staging")

	out, err := runCLI(t, "cascade")
	if !errors.Is(err, errRunFailed) {
		t.Fatalf("cascade error = %v, want errRunFailed", err)
	}
	for _, want := range []string{"aborted-conflict", "skipped"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if got := gitRun(t, dir, "rev-parse", "staging"); got != stagingTip {
		t.Errorf("conflicting run moved staging to %s", got)
	}
}

func TestCascadeShow(t *testing.T) {
	dir := initCascadeRepo(t)
	gitRun(t, dir, "branch", "staging")
	gitRun(t, dir, "config", "cascade.chain", "master > staging")

	out, err := runCLI(t, "cascade", "--show")
	if err != nil {
		t.Fatalf("cascade --show: %v\n%s", err, out)
	}
	for _, want := range []string{
		"Declared chains:",
		"master > staging  (git config cascade.chain)",
		"staging",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestCascadeJSONOutput(t *testing.T) {
	dir := initCascadeRepo(t)
	gitRun(t, dir, "branch", "staging")
	gitRun(t, dir, "checkout", "-b", "development")
	writeCommit(t, dir, "feature.txt", "feature\n", "feature work")
	gitRun(t, dir, "config", "cascade.chain", "development > staging")

	out, err := runCLI(t, "cascade", "--json", "--dry-run")
	if err != nil {
		t.Fatalf("cascade --json --dry-run: %v\n%s", err, out)
	}
	var results []merge.Result
	if err := json.Unmarshal([]byte(out), &results); err != nil {
		t.Fatalf("output is not a JSON array: %v\n%s", err, out)
	}
	if len(results) != 2 {
		t.Fatalf("decoded %d results, want 2", len(results))
	}
	if results[1].Destination != "staging" || results[1].Outcome != merge.OutcomeWouldFastForward {
		t.Errorf("results[1] = %+v, want staging would-fast-forward", results[1])
	}
}

func TestCascadeAlias(t *testing.T) {
	dir := initCascadeRepo(t)
	gitRun(t, dir, "branch", "development")
	gitRun(t, dir, "config", "cascade.alias.dev", "development")
	gitRun(t, dir, "config", "cascade.chain", "dev > master")

	out, err := runCLI(t, "cascade", "--dry-run", "dev")
	if err != nil {
		t.Fatalf("cascade --dry-run dev: %v\n%s", err, out)
	}
	if !strings.Contains(out, "development") {
		t.Errorf("alias dev did not resolve to development:\n%s", out)
	}
}

func TestCascadeUnknownBranchFails(t *testing.T) {
	initCascadeRepo(t)

	out, err := runCLI(t, "cascade", "nosuch")
	if !errors.Is(err, errRunFailed) {
		t.Fatalf("cascade nosuch error = %v, want errRunFailed", err)
	}
	if !strings.Contains(out, "failed") {
		t.Errorf("output missing failed outcome:\n%s", out)
	}
}

func TestForwardMerge(t *testing.T) {
	dir := initCascadeRepo(t)
	gitRun(t, dir, "branch", "release")
	writeCommit(t, dir, "more.txt", "more\n", "more work")
	masterTip := gitRun(t, dir, "rev-parse", "master")

	out, err := runCLI(t, "forward-merge", "release")
	if err != nil {
		t.Fatalf("forward-merge: %v\n%s", err, out)
	}
	if got := gitRun(t, dir, "rev-parse", "release"); got != masterTip {
		t.Errorf("release = %s, want %s", got, masterTip)
	}
	if !strings.Contains(out, "fast-forwarded") {
		t.Errorf("output missing fast-forwarded:\n%s", out)
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := runCLI(t, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if strings.TrimSpace(out) != version {
		t.Errorf("version output = %q, want %q", out, version)
	}
}
