// Command acvp-mlkem is a reference IUT for acvp-client. Installed or linked
// as acvp_mlkem512, acvp_mlkem768 or acvp_mlkem1024 it serves that security
// level; otherwise pass --level.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"

	"github.com/lattice-substrate/mlkem-acvp/mlkemref"
	"github.com/lattice-substrate/mlkem-acvp/route"
)

const (
	exitSuccess = 0
	exitFailure = 1
)

func main() {
	os.Exit(run(os.Args, os.Stdout, os.Stderr))
}

// run takes the full argv, including the program name.
func run(argv []string, stdout, stderr io.Writer) int {
	if len(argv) == 0 {
		return fail(stderr, "missing program name")
	}
	fs := pflag.NewFlagSet(argv[0], pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.SetInterspersed(false)
	level := fs.Int("level", 0, "security level (512, 768 or 1024); defaults to the one in the program name")
	if err := fs.Parse(argv[1:]); err != nil {
		return exitFailure
	}

	ps, ok := mlkemref.LevelFromName(argv[0])
	if *level != 0 {
		var err error
		if ps, err = route.ForLevel(*level); err != nil {
			return fail(stderr, err.Error())
		}
		ok = true
	}
	if !ok {
		return fail(stderr, "cannot determine security level; run as acvp_mlkem<level> or pass --level")
	}

	fields, err := mlkemref.Execute(ps, fs.Args())
	if err != nil {
		return fail(stderr, err.Error())
	}
	if _, err := io.WriteString(stdout, mlkemref.Format(fields)); err != nil {
		return fail(stderr, fmt.Sprintf("writing output: %v", err))
	}
	return exitSuccess
}

func fail(stderr io.Writer, msg string) int {
	_, _ = fmt.Fprintf(stderr, "error: %s\n", msg)
	return exitFailure
}
