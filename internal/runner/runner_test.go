package runner

import (
	"context"
	"errors"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func requireShell(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func TestExecRunner_CapturesStreamsSeparately(t *testing.T) {
	requireShell(t)
	r := &ExecRunner{}

	res, err := r.Run(context.Background(), "sh", "-c", `printf out; printf err >&2`)
	require.NoError(t, err)
	require.Equal(t, 0, res.ExitCode)
	require.Equal(t, "out", res.Stdout)
	require.Equal(t, "err", res.Stderr)
}

func TestExecRunner_NonzeroExitIsNotAnError(t *testing.T) {
	requireShell(t)
	r := &ExecRunner{}

	res, err := r.Run(context.Background(), "sh", "-c", `echo boom >&2; exit 3`)
	require.NoError(t, err)
	require.Equal(t, 3, res.ExitCode)
	require.Equal(t, "boom\n", res.Stderr)
}

func TestExecRunner_PassesArguments(t *testing.T) {
	requireShell(t)
	r := &ExecRunner{}

	res, err := r.Run(context.Background(), "sh", "-c", `printf '%s' "$1"`, "sh", "Erstelle mir ein Zitat: x")
	require.NoError(t, err)
	require.Equal(t, "Erstelle mir ein Zitat: x", res.Stdout)
}

func TestExecRunner_UsesDirAndEnv(t *testing.T) {
	requireShell(t)
	dir := t.TempDir()
	r := &ExecRunner{Dir: dir, Env: []string{"TUTOR_TEST_VALUE=42"}}

	res, err := r.Run(context.Background(), "sh", "-c", `printf '%s' "$TUTOR_TEST_VALUE"`)
	require.NoError(t, err)
	require.Equal(t, "42", res.Stdout)

	want, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)
	res, err = r.Run(context.Background(), "sh", "-c", `pwd -P`)
	require.NoError(t, err)
	require.Equal(t, want+"\n", res.Stdout)
}

func TestExecRunner_LaunchFailure(t *testing.T) {
	r := &ExecRunner{}

	_, err := r.Run(context.Background(), "/nonexistent/python-interpreter", "./main.py")
	require.Error(t, err)

	var launchErr *LaunchError
	require.ErrorAs(t, err, &launchErr)
	require.Equal(t, "/nonexistent/python-interpreter", launchErr.Name)
	require.True(t, launchErr.LaunchFailed())
	require.Contains(t, err.Error(), "/nonexistent/python-interpreter")
}

func TestExecRunner_ContextCancelKillsProcess(t *testing.T) {
	requireShell(t)
	r := &ExecRunner{}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := r.Run(ctx, "sh", "-c", `exec sleep 5`)
	require.Error(t, err)
	require.True(t, errors.Is(err, context.DeadlineExceeded))
	require.Less(t, time.Since(start), 4*time.Second)
}
