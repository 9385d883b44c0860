package mlkemref_test

import (
	"bytes"
	"context"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lattice-substrate/mlkem-acvp/driver"
	"github.com/lattice-substrate/mlkem-acvp/iut"
	"github.com/lattice-substrate/mlkem-acvp/mlkemref"
	"github.com/lattice-substrate/mlkem-acvp/output"
	"github.com/lattice-substrate/mlkem-acvp/result"
	"github.com/lattice-substrate/mlkem-acvp/route"
)

func fill(b byte, n int) []byte {
	return bytes.Repeat([]byte{b}, n)
}

func TestSizes(t *testing.T) {
	sizes := map[int][4]int{ // ek, dk, c, k
		512:  {800, 1632, 768, 32},
		768:  {1184, 2400, 1088, 32},
		1024: {1568, 3168, 1568, 32},
	}
	for _, ps := range route.ParameterSets {
		t.Run(ps.Name, func(t *testing.T) {
			s, err := mlkemref.Scheme(ps)
			require.NoError(t, err)
			ek, dk, err := mlkemref.KeyGen(s, fill(1, 32), fill(2, 32))
			require.NoError(t, err)
			c, k, err := mlkemref.Encapsulate(s, ek, fill(3, 32))
			require.NoError(t, err)

			want := sizes[ps.Level]
			assert.Len(t, ek, want[0])
			assert.Len(t, dk, want[1])
			assert.Len(t, c, want[2])
			assert.Len(t, k, want[3])
		})
	}
}

func TestKeyGenDeterministic(t *testing.T) {
	s, err := mlkemref.Scheme(route.MLKEM768)
	require.NoError(t, err)
	ek1, dk1, err := mlkemref.KeyGen(s, fill(7, 32), fill(9, 32))
	require.NoError(t, err)
	ek2, dk2, err := mlkemref.KeyGen(s, fill(7, 32), fill(9, 32))
	require.NoError(t, err)
	assert.Equal(t, ek1, ek2)
	assert.Equal(t, dk1, dk2)

	ek3, _, err := mlkemref.KeyGen(s, fill(7, 32), fill(8, 32))
	require.NoError(t, err)
	assert.NotEqual(t, ek1, ek3)

	// z only enters dk.
	ek4, dk4, err := mlkemref.KeyGen(s, fill(6, 32), fill(9, 32))
	require.NoError(t, err)
	assert.Equal(t, ek1, ek4)
	assert.NotEqual(t, dk1, dk4)
}

func TestEncapsulateDecapsulate(t *testing.T) {
	s, err := mlkemref.Scheme(route.MLKEM1024)
	require.NoError(t, err)
	ek, dk, err := mlkemref.KeyGen(s, fill(1, 32), fill(2, 32))
	require.NoError(t, err)
	c, k, err := mlkemref.Encapsulate(s, ek, fill(5, 32))
	require.NoError(t, err)

	got, err := mlkemref.Decapsulate(s, dk, c)
	require.NoError(t, err)
	assert.Equal(t, k, got)

	tampered := append([]byte(nil), c...)
	tampered[0] ^= 1
	rejected, err := mlkemref.Decapsulate(s, dk, tampered)
	require.NoError(t, err)
	assert.NotEqual(t, k, rejected)
	assert.Len(t, rejected, 32)
}

func TestEncapsulateRejectsBadInputs(t *testing.T) {
	s, err := mlkemref.Scheme(route.MLKEM512)
	require.NoError(t, err)
	ek, _, err := mlkemref.KeyGen(s, fill(1, 32), fill(2, 32))
	require.NoError(t, err)

	_, _, err = mlkemref.Encapsulate(s, ek, fill(5, 31))
	assert.Error(t, err)
	_, _, err = mlkemref.Encapsulate(s, ek[:100], fill(5, 32))
	assert.Error(t, err)
	_, err = mlkemref.Decapsulate(s, fill(0, 10), fill(0, 768))
	assert.Error(t, err)
}

func TestExecuteArguments(t *testing.T) {
	z := strings.Repeat("AB", 32)
	tests := []struct {
		name string
		args []string
	}{
		{"too short", []string{"keyGen"}},
		{"no function", []string{"encapDecap", "AFT"}},
		{"unknown function", []string{"encapDecap", "AFT", "keyCheck", "ek=00"}},
		{"duplicate", []string{"keyGen", "AFT", "z=" + z, "z=" + z}},
		{"extra", []string{"keyGen", "AFT", "z=" + z, "d=" + z, "m=" + z}},
		{"no equals", []string{"keyGen", "AFT", "z" + z, "d=" + z}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := mlkemref.Execute(route.MLKEM512, tt.args)
			assert.Error(t, err)
		})
	}
}

func TestFormatIsUppercaseHexParseable(t *testing.T) {
	out := mlkemref.Format([]mlkemref.Field{{Key: "c", Value: []byte{0xab, 0x01}}, {Key: "k", Value: []byte{0xff}}})
	assert.Equal(t, "c=AB01\nk=FF\n", out)

	fields, err := result.ParseOutput(out)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"c": "AB01", "k": "FF"}, fields)
}

func TestLevelFromName(t *testing.T) {
	ps, ok := mlkemref.LevelFromName("test/build/mlkem1024/bin/acvp_mlkem1024")
	require.True(t, ok)
	assert.Equal(t, route.MLKEM1024, ps)

	_, ok = mlkemref.LevelFromName("acvp_mlkem256")
	assert.False(t, ok)
}

func runArgv(t *testing.T, argv ...string) map[string]string {
	t.Helper()
	res, err := mlkemref.Runner{}.Run(context.Background(), argv)
	require.NoError(t, err)
	require.Equal(t, 0, res.ExitCode, res.Stderr)
	fields, err := result.ParseOutput(res.Stdout)
	require.NoError(t, err)
	return fields
}

func TestRunnerRoundTrip(t *testing.T) {
	bin := route.BinaryPath("build", route.MLKEM768)
	seed := strings.Repeat("5A", 32)

	keys := runArgv(t, "qemu-x86_64", bin, "keyGen", "AFT", "z="+seed, "d="+seed)
	enc := runArgv(t, bin, "encapDecap", "AFT", "encapsulation", "ek="+keys["ek"], "m="+seed)
	dec := runArgv(t, bin, "encapDecap", "VAL", "decapsulation", "dk="+keys["dk"], "c="+enc["c"])
	assert.Equal(t, enc["k"], dec["k"])
}

func TestRunnerFailures(t *testing.T) {
	res, err := mlkemref.Runner{}.Run(context.Background(), []string{"/bin/true"})
	require.NoError(t, err)
	assert.Equal(t, 127, res.ExitCode)

	res, err = mlkemref.Runner{}.Run(context.Background(), []string{"acvp_mlkem512", "keyGen", "AFT", "z=00", "d=00"})
	require.NoError(t, err)
	assert.Equal(t, 1, res.ExitCode)
	assert.Contains(t, res.Stderr, "keyGen")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = mlkemref.Runner{}.Run(ctx, []string{"acvp_mlkem512"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDriverWithReferenceIUT(t *testing.T) {
	dir := t.TempDir()
	z := hex.EncodeToString(fill(0x11, 32))
	d := hex.EncodeToString(fill(0x22, 32))
	prompt := `{"vsId":100,"algorithm":"ML-KEM","mode":"keyGen","revision":"FIPS203","isSample":false,
"testGroups":[{"tgId":1,"parameterSet":"ML-KEM-512","tests":[{"tcId":1,"z":"` + z + `","d":"` + d + `"}]},
{"tgId":2,"parameterSet":"ML-KEM-1024","tests":[{"tcId":2,"z":"` + d + `","d":"` + z + `"}]}]}`
	promptPath := filepath.Join(dir, "prompt.json")
	require.NoError(t, os.WriteFile(promptPath, []byte(prompt), 0o600))
	outPath := filepath.Join(dir, "results.json")

	newDriver := func(stdout *bytes.Buffer) *driver.Driver {
		inv := iut.New(mlkemref.Runner{}, iut.Options{})
		return driver.New(inv, output.NewProgress(stdout, false), output.Discard())
	}

	var stdout bytes.Buffer
	_, err := newDriver(&stdout).Run(context.Background(), driver.Options{PromptPath: promptPath, OutputPath: outPath})
	require.NoError(t, err)

	stdout.Reset()
	_, err = newDriver(&stdout).Run(context.Background(), driver.Options{PromptPath: promptPath, ExpectedPath: outPath})
	require.NoError(t, err)
	assert.Contains(t, stdout.String(), "ALL GOOD!")
}
