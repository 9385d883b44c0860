package iut

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/lattice-substrate/mlkem-acvp/acvperr"
	"github.com/lattice-substrate/mlkem-acvp/route"
	"github.com/lattice-substrate/mlkem-acvp/vector"
)

// Options configures an Invoker.
type Options struct {
	// BuildRoot is the directory holding the per-level IUT builds.
	BuildRoot string
	// Wrapper tokens are prepended to every argv, e.g. an emulator.
	Wrapper []string
	// Env is added to the environment of host-executed IUTs.
	Env map[string]string
	// Timeout bounds each invocation. Zero waits forever.
	Timeout time.Duration
	Logger  *slog.Logger
}

// Invoker executes one IUT process per test case.
type Invoker struct {
	runner Runner
	opts   Options
	log    *slog.Logger
}

// New creates an Invoker. A nil runner executes on the host with opts.Env.
func New(r Runner, opts Options) *Invoker {
	if r == nil {
		r = OSRunner{Env: opts.Env}
	}
	if opts.BuildRoot == "" {
		opts.BuildRoot = route.DefaultBuildRoot
	}
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Invoker{runner: r, opts: opts, log: log}
}

// ParseWrapper splits an EXEC_WRAPPER value into tokens. Empty or blank
// values mean direct execution.
func ParseWrapper(s string) []string {
	return strings.Fields(s)
}

// Argv builds the full argument vector for c, wrapper first.
func (iv *Invoker) Argv(g vector.TestGroup, c vector.TestCase) ([]string, error) {
	bin, err := route.Binary(iv.opts.BuildRoot, g.ParameterSet)
	if err != nil {
		return nil, fmt.Errorf("tgId %d: %w", g.TgID, err)
	}

	var args []string
	switch tc := c.(type) {
	case vector.KeyGenCase:
		args = []string{"keyGen", "AFT", "z=" + tc.Z, "d=" + tc.D}
	case vector.EncapsulationCase:
		args = []string{"encapDecap", "AFT", "encapsulation", "ek=" + tc.EK, "m=" + tc.M}
	case vector.DecapsulationCase:
		args = []string{"encapDecap", "VAL", "decapsulation", "dk=" + g.DK, "c=" + tc.C}
	default:
		return nil, acvperr.Newf(acvperr.InternalError, "unknown test case type %T", c)
	}

	argv := make([]string, 0, len(iv.opts.Wrapper)+1+len(args))
	argv = append(argv, iv.opts.Wrapper...)
	argv = append(argv, bin)
	argv = append(argv, args...)
	return argv, nil
}

// Invoke runs the IUT for c and returns its stdout. Any non-zero exit,
// timeout, or start failure is returned as an aborting error.
func (iv *Invoker) Invoke(ctx context.Context, g vector.TestGroup, c vector.TestCase) (string, error) {
	argv, err := iv.Argv(g, c)
	if err != nil {
		return "", err
	}

	if iv.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, iv.opts.Timeout)
		defer cancel()
	}

	iv.log.Debug("invoking iut", "tgId", g.TgID, "tcId", c.CaseID(), "argv", argv)
	start := time.Now()
	res, err := iv.runner.Run(ctx, argv)
	iv.log.Debug("iut finished", "tcId", c.CaseID(), "exit", res.ExitCode, "elapsed", time.Since(start))

	cmdline := FormatCommand(argv)
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "", acvperr.Wrap(acvperr.Timeout, fmt.Sprintf("%s did not finish within %s", cmdline, iv.opts.Timeout), err).
			WithDetail(res.Stderr)
	case err != nil:
		return "", acvperr.Wrap(acvperr.Invocation, fmt.Sprintf("%s could not be run", cmdline), err).
			WithDetail(res.Stderr)
	case res.ExitCode != 0:
		return "", acvperr.Newf(acvperr.Invocation, "%s failed with error code %d", cmdline, res.ExitCode).
			WithDetail(res.Stderr)
	}
	return res.Stdout, nil
}

// FormatCommand renders argv as a shell-like command line for diagnostics.
func FormatCommand(argv []string) string {
	parts := make([]string, len(argv))
	for i, a := range argv {
		if a == "" || strings.ContainsAny(a, " \t\n\"'\\") {
			parts[i] = fmt.Sprintf("%q", a)
			continue
		}
		parts[i] = a
	}
	return strings.Join(parts, " ")
}
