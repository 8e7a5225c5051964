// Package runner starts external processes and captures what they print.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"

	"llm-tutor/internal/domain"
)

// Runner runs one external process to completion.
// A nonzero exit status is reported through ProcessResult.ExitCode, not as an error.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (domain.ProcessResult, error)
}

// LaunchError is returned when the process could not be started at all.
type LaunchError struct {
	Name string
	Err  error
}

func (e *LaunchError) Error() string {
	return e.Err.Error()
}

func (e *LaunchError) Unwrap() error {
	return e.Err
}

// LaunchFailed marks the error as a start failure for callers that only
// depend on behaviour.
func (e *LaunchError) LaunchFailed() bool {
	return true
}

// waitDelay bounds how long Wait keeps draining pipes after the process is
// killed, since grandchildren may still hold them open.
const waitDelay = time.Second

// ExecRunner implements Runner with os/exec.
type ExecRunner struct {
	// Dir is the working directory of started processes; empty means the
	// current directory.
	Dir string
	// Env is appended to the parent environment.
	Env []string
}

func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) (domain.ProcessResult, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = r.Dir
	cmd.WaitDelay = waitDelay
	if len(r.Env) > 0 {
		cmd.Env = append(os.Environ(), r.Env...)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return domain.ProcessResult{}, &LaunchError{Name: name, Err: err}
	}

	waitErr := cmd.Wait()
	res := domain.ProcessResult{
		ExitCode: cmd.ProcessState.ExitCode(),
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
	}
	if waitErr == nil {
		return res, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return res, fmt.Errorf("runner: %s interrupted: %w", name, ctxErr)
	}
	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		return res, nil
	}
	return res, fmt.Errorf("runner: wait for %s: %w", name, waitErr)
}
