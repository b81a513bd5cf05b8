package orchestrator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
)

// Result is what a finished stage process left behind.
type Result struct {
	Stdout   string
	ExitCode int
}

// Executor runs one stage to completion.
// A non-zero exit is reported through Result, not as an error.
type Executor interface {
	Execute(ctx context.Context, spec StageSpec, env []string) (Result, error)
}

// ProcessExecutor runs stages as child processes. Stdout is captured for the
// completion report; stderr, where stages log, is passed through.
type ProcessExecutor struct {
	Stderr io.Writer
}

// NewProcessExecutor creates an executor that forwards stage logs to stderr.
func NewProcessExecutor() *ProcessExecutor {
	return &ProcessExecutor{Stderr: os.Stderr}
}

// Execute starts the stage binary and waits for it to exit.
func (e *ProcessExecutor) Execute(ctx context.Context, spec StageSpec, env []string) (Result, error) {
	var stdout bytes.Buffer

	cmd := exec.CommandContext(ctx, spec.Path, spec.Args...)
	cmd.Stdout = &stdout
	cmd.Stderr = e.Stderr
	cmd.Env = append(os.Environ(), env...)

	err := cmd.Run()
	result := Result{Stdout: stdout.String()}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		return result, nil
	case errors.As(err, &exitErr):
		result.ExitCode = exitErr.ExitCode()
		return result, nil
	default:
		return result, fmt.Errorf("failed to run %s: %w", spec.Path, err)
	}
}
