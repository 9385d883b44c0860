// Command acvp-client runs ACVP ML-KEM vector sets against the IUT binaries
// and either compares the results with expected results or writes them out.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/lattice-substrate/mlkem-acvp/acvperr"
	"github.com/lattice-substrate/mlkem-acvp/config"
	"github.com/lattice-substrate/mlkem-acvp/driver"
	"github.com/lattice-substrate/mlkem-acvp/iut"
	"github.com/lattice-substrate/mlkem-acvp/mlkemref"
	"github.com/lattice-substrate/mlkem-acvp/output"
)

const exitSuccess = 0

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr, nil)
	stop()
	os.Exit(code)
}

type cliFlags struct {
	prompt     string
	expected   string
	output     string
	report     string
	configFile string
	reference  bool
}

// run executes the client. A nil runner executes the IUT on the host.
func run(ctx context.Context, args []string, stdout, stderr io.Writer, runner iut.Runner) int {
	cmd := newRootCmd(ctx, stdout, stderr, runner)
	cmd.SetArgs(args)
	if err := cmd.Execute(); err != nil {
		return writeClassifiedError(stderr, err)
	}
	return exitSuccess
}

func newRootCmd(ctx context.Context, stdout, stderr io.Writer, runner iut.Runner) *cobra.Command {
	var fl cliFlags
	v := config.New()

	cmd := &cobra.Command{
		Use:   "acvp-client",
		Short: "Run ACVP ML-KEM test vectors against the IUT",
		Long: `Runs every test case of an ACVP prompt through the per-level IUT binary.

With --expected the results are compared with the expected results; with
--output they are written as canonical JSON. Without --prompt the regression
catalog is run and compared.`,
		Args:          usageArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(_ *cobra.Command, _ []string) error {
			return execute(ctx, v, fl, stdout, stderr, runner)
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return acvperr.Wrap(acvperr.Usage, "invalid flags", err)
	})

	f := cmd.Flags()
	f.StringVarP(&fl.prompt, "prompt", "p", "", "ACVP prompt file")
	f.StringVarP(&fl.expected, "expected", "e", "", "ACVP expected results file")
	f.StringVarP(&fl.output, "output", "o", "", "write results to this file")
	f.StringVar(&fl.report, "report", "", "write a JSON run report after a successful run")
	f.StringVar(&fl.configFile, "config", "", "config file (yaml, json or toml)")
	f.BoolVar(&fl.reference, "reference-iut", false, "serve invocations in process with the built-in ML-KEM instead of the IUT binaries")
	f.String("catalog", "", "YAML catalog of prompt/expected pairs to run without --prompt")
	f.String("build-root", "", "directory holding mlkem<level>/bin/acvp_mlkem<level>")
	f.StringArray("iut-env", nil, "KEY=VALUE added to the IUT environment, repeatable")
	f.Duration("timeout", 0, "per-invocation timeout, 0 disables")
	f.String("log-level", "", "debug, info, warn or error")
	f.String("log-format", "", "text or json")
	f.Bool("no-color", false, "disable colored status lines")
	bindFlags(v, f)
	return cmd
}

var flagKeys = map[string]string{
	"catalog":    config.KeyCatalog,
	"build-root": config.KeyBuildRoot,
	"iut-env":    config.KeyIUTEnv,
	"timeout":    config.KeyTimeout,
	"log-level":  config.KeyLogLevel,
	"log-format": config.KeyLogFormat,
	"no-color":   config.KeyNoColor,
}

// bindFlags lets explicitly set flags override config file and environment.
func bindFlags(v *viper.Viper, f *pflag.FlagSet) {
	for name, key := range flagKeys {
		_ = v.BindPFlag(key, f.Lookup(name))
	}
}

func usageArgs(_ *cobra.Command, args []string) error {
	if len(args) > 0 {
		return acvperr.Newf(acvperr.Usage, "unexpected arguments: %s", strings.Join(args, " "))
	}
	return nil
}

func execute(ctx context.Context, v *viper.Viper, fl cliFlags, stdout, stderr io.Writer, runner iut.Runner) error {
	settings, err := config.Load(v, fl.configFile)
	if err != nil {
		return acvperr.Wrap(acvperr.Usage, "configuration", err)
	}
	log, err := output.NewLogger(stderr, settings.LogLevel, settings.LogFormat)
	if err != nil {
		return acvperr.Wrap(acvperr.Usage, "configuration", err)
	}

	opts := driver.Options{
		PromptPath:   fl.prompt,
		ExpectedPath: fl.expected,
		OutputPath:   fl.output,
		ReportPath:   fl.report,
	}
	if err := driver.ValidateOptions(opts); err != nil {
		return err
	}
	if opts.PromptPath == "" {
		cat, err := settings.CatalogValue()
		if err != nil {
			return err
		}
		opts.Catalog = cat
	}

	env, err := settings.Env()
	if err != nil {
		return acvperr.Wrap(acvperr.Usage, "configuration", err)
	}
	if fl.reference {
		runner = mlkemref.Runner{}
	}
	inv := iut.New(runner, iut.Options{
		BuildRoot: settings.BuildRoot,
		Wrapper:   settings.Wrapper(),
		Env:       env,
		Timeout:   settings.Timeout,
		Logger:    log,
	})
	d := driver.New(inv, output.NewProgress(stdout, !settings.NoColor), log)
	_, err = d.Run(ctx, opts)
	return err
}

func writeClassifiedError(stderr io.Writer, err error) int {
	class := acvperr.ClassOf(err)
	msg := err.Error()
	if class == acvperr.InternalError && !acvperr.Is(err, acvperr.InternalError) {
		msg = fmt.Sprintf("%s: %s", class, msg)
	}
	_, _ = fmt.Fprintf(stderr, "error: %s\n", msg)

	var e *acvperr.Error
	if errors.As(err, &e) && e.Detail != "" {
		_, _ = fmt.Fprintln(stderr, strings.TrimRight(e.Detail, "\n"))
	}
	return class.ExitCode()
}
