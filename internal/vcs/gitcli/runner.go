// Package gitcli implements the vcs interface by driving the git binary.
// Every operation is a subprocess; nothing in here caches repository state,
// so a handle stays correct when refs move underneath it between calls.
package gitcli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"k8s.io/klog/v2"
)

// runner executes git commands in a fixed directory with a fixed set of
// extra environment variables. The sandbox path derives a second runner
// whose environment points GIT_DIR, GIT_WORK_TREE and GIT_INDEX_FILE at the
// sandbox instead of the live checkout.
type runner struct {
	// Path to the git executable.
	gitPath string

	// dir is the directory the commands run in.
	dir string

	// env entries are appended to the inherited environment.
	env []string
}

func newRunner(dir string) (*runner, error) {
	p, err := exec.LookPath("git")
	if err != nil {
		return nil, fmt.Errorf("no 'git' program on path: %w", err)
	}
	return &runner{gitPath: p, dir: dir}, nil
}

type runResult struct {
	Stdout string
	Stderr string
}

// run runs a git command. Omit the 'git' part of the command.
func (r *runner) run(ctx context.Context, args ...string) (runResult, error) {
	cmd := exec.CommandContext(ctx, r.gitPath, args...)
	cmd.Dir = r.dir
	cmd.Env = append(os.Environ(), r.env...)

	cmdStdout := &bytes.Buffer{}
	cmdStderr := &bytes.Buffer{}
	cmd.Stdout = cmdStdout
	cmd.Stderr = cmdStderr

	klog.V(4).Infof("git %s (in %s)", strings.Join(args, " "), r.dir)

	err := cmd.Run()
	if err != nil {
		return runResult{}, &GitError{
			Args:   args,
			Err:    err,
			StdOut: cmdStdout.String(),
			StdErr: cmdStderr.String(),
		}
	}
	return runResult{
		Stdout: cmdStdout.String(),
		Stderr: cmdStderr.String(),
	}, nil
}

// GitError is the failure of one git invocation, with the captured output
// that explains it.
type GitError struct {
	Args   []string
	Err    error
	StdErr string
	StdOut string
}

func (e *GitError) Error() string {
	b := new(strings.Builder)
	b.WriteString("git ")
	b.WriteString(strings.Join(e.Args, " "))
	b.WriteString(": ")
	b.WriteString(e.Err.Error())
	if msg := strings.TrimSpace(e.StdErr); msg != "" {
		b.WriteString(": ")
		b.WriteString(msg)
	}
	return b.String()
}

func (e *GitError) Unwrap() error { return e.Err }

// ExitCode returns the subprocess exit code, or -1 when the command did not
// run to completion.
func (e *GitError) ExitCode() int {
	var exit *exec.ExitError
	if errors.As(e.Err, &exit) {
		return exit.ExitCode()
	}
	return -1
}
