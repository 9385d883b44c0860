package mlkemref

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/lattice-substrate/mlkem-acvp/iut"
	"github.com/lattice-substrate/mlkem-acvp/route"
)

// Runner is an iut.Runner that serves invocations of the acvp_mlkem<level>
// binaries in process. Wrapper tokens before the binary are ignored.
type Runner struct{}

var _ iut.Runner = Runner{}

// Run implements iut.Runner. Failures are reported like a failing process:
// exit code 1 with the diagnostic on stderr.
func (Runner) Run(ctx context.Context, argv []string) (iut.Result, error) {
	if err := ctx.Err(); err != nil {
		return iut.Result{ExitCode: -1}, err
	}
	for i, a := range argv {
		ps, ok := LevelFromName(a)
		if !ok {
			continue
		}
		fields, err := Execute(ps, argv[i+1:])
		if err != nil {
			return iut.Result{ExitCode: 1, Stderr: err.Error() + "\n"}, nil
		}
		return iut.Result{Stdout: Format(fields)}, nil
	}
	return iut.Result{ExitCode: 127, Stderr: "no acvp_mlkem executable in argv\n"}, nil
}

// LevelFromName returns the parameter set named by an executable path such
// as build/mlkem768/bin/acvp_mlkem768.
func LevelFromName(path string) (route.ParameterSet, bool) {
	base := strings.TrimSuffix(filepath.Base(path), ".exe")
	for _, ps := range route.ParameterSets {
		if base == ps.ExecutableName() {
			return ps, true
		}
	}
	return route.ParameterSet{}, false
}
