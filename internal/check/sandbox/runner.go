// Package sandbox runs evaluation harnesses as confined subprocesses: a
// dedicated working directory, a hard wall-clock limit and capped output.
package sandbox

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"time"

	appErr "mlgrader/pkg/errors"
)

const defaultOutputMaxBytes = 64 << 10

// Request describes one harness execution.
type Request struct {
	// WorkDir is the evaluation directory; the harness runs with it as cwd.
	WorkDir string
	// Script is the harness file name inside WorkDir.
	Script string
	// Timeout is the wall-clock limit for the whole harness run.
	Timeout time.Duration
	// Env entries are appended to the inherited environment.
	Env []string
	// OutputMaxBytes caps captured stdout and stderr individually.
	OutputMaxBytes int64
}

// Result is the outcome of a finished or killed harness run.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
	TimedOut bool
	Duration time.Duration
}

// Runner executes evaluation harnesses. Timeouts and nonzero exits are
// reported through Result, not the error; the error is reserved for failures
// to run the harness at all.
type Runner interface {
	Run(ctx context.Context, req Request) (Result, error)
}

// ExecRunner runs harnesses through /bin/bash.
type ExecRunner struct{}

func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

func (r *ExecRunner) Run(ctx context.Context, req Request) (Result, error) {
	maxBytes := req.OutputMaxBytes
	if maxBytes <= 0 {
		maxBytes = defaultOutputMaxBytes
	}

	runCtx, cancel := context.WithTimeout(ctx, req.Timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, "/bin/bash", req.Script)
	cmd.Dir = req.WorkDir
	cmd.Env = append(os.Environ(), req.Env...)

	stdout := &cappedBuffer{max: maxBytes}
	stderr := &cappedBuffer{max: maxBytes}
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	start := time.Now()
	err := cmd.Run()
	res := Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}

	if runCtx.Err() == context.DeadlineExceeded {
		res.TimedOut = true
		return res, nil
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
			return res, nil
		}
		return res, appErr.Wrapf(err, appErr.EvaluationError, "start harness failed")
	}
	return res, nil
}

// cappedBuffer keeps the first max bytes and silently drops the rest, so a
// runaway harness cannot balloon memory through its output streams.
type cappedBuffer struct {
	buf bytes.Buffer
	max int64
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	remaining := b.max - int64(b.buf.Len())
	if remaining > 0 {
		if int64(len(p)) > remaining {
			b.buf.Write(p[:remaining])
		} else {
			b.buf.Write(p)
		}
	}
	return len(p), nil
}

func (b *cappedBuffer) String() string {
	return b.buf.String()
}
