package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// DefaultTimeout applies when an Invocation does not set one.
const DefaultTimeout = 10 * time.Second

// Invocation describes one external command.
type Invocation struct {
	Executable string
	// Args is a single argument string; see SplitArgs for the quoting rules.
	Args         string
	Dir          string
	Timeout      time.Duration
	PathPrefixes []string
}

// Result captures the outcome of an Invocation. A clean non-zero exit is
// reported through Succeeded and Stderr, never as an error.
type Result struct {
	Succeeded bool
	Stdout    string
	Stderr    string
	ExitCode  int
	TimedOut  bool
}

// Diagnostic picks the most useful text to show for a failed run.
func (r Result) Diagnostic() string {
	if msg := strings.TrimSpace(r.Stderr); msg != "" {
		return msg
	}
	if msg := strings.TrimSpace(r.Stdout); msg != "" {
		return msg
	}
	if r.TimedOut {
		return "command timed out"
	}
	return fmt.Sprintf("command exited with status %d", r.ExitCode)
}

type Runner interface {
	Run(ctx context.Context, inv Invocation) Result
}

type CmdRunner struct{}

func (CmdRunner) Run(ctx context.Context, inv Invocation) Result {
	if ctx == nil {
		ctx = context.Background()
	}
	timeout := inv.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	searchPath := SearchPath(inv.Executable, inv.PathPrefixes)
	executable, err := LookPathIn(inv.Executable, searchPath)
	if err != nil {
		return Result{ExitCode: -1, Stderr: err.Error()}
	}

	cmd := exec.CommandContext(ctx, executable, SplitArgs(inv.Args)...)
	if inv.Dir != "" {
		cmd.Dir = inv.Dir
	}
	cmd.Env = withPath(os.Environ(), searchPath)
	// Give the process a moment to exit after the kill before the pipes
	// are forcibly closed.
	cmd.WaitDelay = time.Second

	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf

	err = cmd.Run()
	res := Result{Stdout: stdoutBuf.String(), Stderr: stderrBuf.String()}

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		res.TimedOut = true
		res.ExitCode = -1
		note := fmt.Sprintf("%s timed out after %s", filepath.Base(executable), timeout)
		res.Stderr = strings.TrimSpace(res.Stderr + "\n" + note)
		return res
	}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		res.Succeeded = true
	case errors.As(err, &exitErr):
		res.ExitCode = exitErr.ExitCode()
	default:
		res.ExitCode = -1
		res.Stderr = strings.TrimSpace(res.Stderr + "\n" + err.Error())
	}
	return res
}

var _ Runner = CmdRunner{}

func withPath(env []string, searchPath string) []string {
	out := make([]string, 0, len(env)+1)
	for _, kv := range env {
		if key, _, ok := strings.Cut(kv, "="); ok && strings.EqualFold(key, "PATH") {
			continue
		}
		out = append(out, kv)
	}
	return append(out, "PATH="+searchPath)
}
