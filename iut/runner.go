// Package iut runs the implementation under test: it builds the argument
// vector for a test case and executes the routed binary as a subprocess.
package iut

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sort"
	"time"
)

// waitDelay bounds how long Run waits for output pipes after the process was
// killed by ctx; grandchildren of a wrapper may still hold them open.
const waitDelay = 2 * time.Second

// Result is the captured outcome of one process run.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Runner abstracts process execution so the invoker can be driven by scripted
// output in tests.
type Runner interface {
	// Run executes argv and waits for it. A non-zero exit is reported through
	// Result.ExitCode with a nil error; the error is reserved for processes
	// that could not be started or were stopped by ctx.
	Run(ctx context.Context, argv []string) (Result, error)
}

// OSRunner executes commands on the host.
type OSRunner struct {
	// Env is merged over the inherited environment.
	Env map[string]string
}

// Run executes argv with separate stdout and stderr capture.
func (r OSRunner) Run(ctx context.Context, argv []string) (Result, error) {
	if len(argv) == 0 {
		return Result{}, fmt.Errorf("empty argv")
	}
	// #nosec G204 -- argv is the routed IUT path plus vector-file fields.
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	if len(r.Env) != 0 {
		keys := make([]string, 0, len(r.Env))
		for k := range r.Env {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		merged := cmd.Environ()
		for _, k := range keys {
			merged = append(merged, fmt.Sprintf("%s=%s", k, r.Env[k]))
		}
		cmd.Env = merged
	}
	cmd.WaitDelay = waitDelay
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := Result{Stdout: stdout.String(), Stderr: stderr.String()}
	if err == nil {
		return res, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		res.ExitCode = -1
		return res, ctxErr
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		return res, nil
	}
	return res, fmt.Errorf("run %q: %w", argv, err)
}
