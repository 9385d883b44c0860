package iut

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lattice-substrate/mlkem-acvp/route"
	"github.com/lattice-substrate/mlkem-acvp/vector"
)

func TestOSRunnerSeparatesStreams(t *testing.T) {
	res, err := OSRunner{}.Run(context.Background(), []string{"sh", "-c", "echo k=01; echo oops >&2"})
	require.NoError(t, err)
	assert.Equal(t, Result{Stdout: "k=01\n", Stderr: "oops\n"}, res)
}

func TestOSRunnerExitCode(t *testing.T) {
	res, err := OSRunner{}.Run(context.Background(), []string{"sh", "-c", "echo bad key >&2; exit 2"})
	require.NoError(t, err, "non-zero exit must not be a run error")
	assert.Equal(t, 2, res.ExitCode)
	assert.Equal(t, "bad key\n", res.Stderr)
}

func TestOSRunnerEnv(t *testing.T) {
	res, err := OSRunner{Env: map[string]string{"ACVP_TEST_VALUE": "x1"}}.Run(
		context.Background(), []string{"sh", "-c", "printf %s \"$ACVP_TEST_VALUE\""})
	require.NoError(t, err)
	assert.Equal(t, "x1", res.Stdout)
}

func TestInvokerPassesEnvToHostRunner(t *testing.T) {
	root := t.TempDir()
	path := route.BinaryPath(root, route.MLKEM512)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	script := "#!/bin/sh\necho \"ek=$IUT_MARK\"\necho dk=00\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0o700))

	iv := New(nil, Options{BuildRoot: root, Env: map[string]string{"IUT_MARK": "m1"}})
	out, err := iv.Invoke(context.Background(), vector.TestGroup{ParameterSet: "ML-KEM-512"}, vector.KeyGenCase{TcID: 1, Z: "00", D: "11"})
	require.NoError(t, err)
	assert.Equal(t, "ek=m1\ndk=00\n", out)
}

func TestOSRunnerDeadline(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := OSRunner{}.Run(ctx, []string{"sh", "-c", "exec sleep 5"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestOSRunnerMissingBinary(t *testing.T) {
	_, err := OSRunner{}.Run(context.Background(), []string{"/nonexistent/acvp_mlkem512"})
	assert.Error(t, err)
}

func TestOSRunnerEmptyArgv(t *testing.T) {
	_, err := OSRunner{}.Run(context.Background(), nil)
	assert.Error(t, err)
}
