// Package route maps ML-KEM parameter sets to the IUT executable built for
// that security level. Each level is compiled into its own binary.
package route

import (
	"fmt"
	"path/filepath"

	"github.com/lattice-substrate/mlkem-acvp/acvperr"
)

// DefaultBuildRoot is the build output directory of a source checkout.
const DefaultBuildRoot = "./test/build"

// ParameterSet is a supported ML-KEM parameter set.
type ParameterSet struct {
	Name  string
	Level int
}

var (
	MLKEM512  = ParameterSet{Name: "ML-KEM-512", Level: 512}
	MLKEM768  = ParameterSet{Name: "ML-KEM-768", Level: 768}
	MLKEM1024 = ParameterSet{Name: "ML-KEM-1024", Level: 1024}
)

// ParameterSets lists every supported parameter set in ascending level.
var ParameterSets = []ParameterSet{MLKEM512, MLKEM768, MLKEM1024}

// Parse resolves a parameter-set name as found in a prompt's test group.
func Parse(name string) (ParameterSet, error) {
	for _, ps := range ParameterSets {
		if ps.Name == name {
			return ps, nil
		}
	}
	return ParameterSet{}, acvperr.Newf(acvperr.UnsupportedParameters, "unsupported parameter set %q", name)
}

// ForLevel resolves a security level to its parameter set.
func ForLevel(level int) (ParameterSet, error) {
	for _, ps := range ParameterSets {
		if ps.Level == level {
			return ps, nil
		}
	}
	return ParameterSet{}, acvperr.Newf(acvperr.UnsupportedParameters, "unsupported security level %d", level)
}

// ExecutableName is the file name of the IUT for ps.
func (ps ParameterSet) ExecutableName() string {
	return fmt.Sprintf("acvp_mlkem%d", ps.Level)
}

// BinaryPath returns <buildRoot>/mlkem<level>/bin/acvp_mlkem<level>.
func BinaryPath(buildRoot string, ps ParameterSet) string {
	return filepath.Join(buildRoot, fmt.Sprintf("mlkem%d", ps.Level), "bin", ps.ExecutableName())
}

// Binary parses name and returns the IUT path under buildRoot.
func Binary(buildRoot, name string) (string, error) {
	ps, err := Parse(name)
	if err != nil {
		return "", err
	}
	return BinaryPath(buildRoot, ps), nil
}
