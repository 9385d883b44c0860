package vector

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/lattice-substrate/mlkem-acvp/acvperr"
)

// DefaultDataDir is where the regression vectors live in a source checkout.
const DefaultDataDir = "test/acvp_data"

// DefaultRevisions are the ACVP server revisions covered by the default
// catalog.
var DefaultRevisions = []string{"v1.1.0.36", "v1.1.0.38", "v1.1.0.39"}

// CatalogEntry names one prompt and its expected results.
type CatalogEntry struct {
	Prompt          string `yaml:"prompt"`
	ExpectedResults string `yaml:"expected_results"`
}

// Catalog is the list of vector pairs run when no prompt is given.
type Catalog struct {
	Entries []CatalogEntry `yaml:"entries"`
}

// DefaultCatalog returns the regression catalog rooted at dir: every default
// revision for keyGen, then every default revision for encapDecap.
func DefaultCatalog(dir string) Catalog {
	var c Catalog
	for _, mode := range []Mode{ModeKeyGen, ModeEncapDecap} {
		for _, rev := range DefaultRevisions {
			base := fmt.Sprintf("acvp_%s_%s", rev, mode)
			c.Entries = append(c.Entries, CatalogEntry{
				Prompt:          filepath.Join(dir, base+"_prompt.json"),
				ExpectedResults: filepath.Join(dir, base+"_expectedResults.json"),
			})
		}
	}
	return c
}

// LoadCatalogFile reads a YAML catalog. Relative entry paths are resolved
// against the catalog file's directory.
//
//nolint:gosec // catalog path is explicit operator input.
func LoadCatalogFile(path string) (Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Catalog{}, acvperr.Wrap(acvperr.Load, "read catalog", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var c Catalog
	if err := dec.Decode(&c); err != nil && !errors.Is(err, io.EOF) {
		return Catalog{}, acvperr.Wrap(acvperr.Load, "decode catalog yaml", err)
	}
	if err := ValidateCatalog(c); err != nil {
		return Catalog{}, err
	}

	base := filepath.Dir(path)
	for i := range c.Entries {
		c.Entries[i].Prompt = resolve(base, c.Entries[i].Prompt)
		c.Entries[i].ExpectedResults = resolve(base, c.Entries[i].ExpectedResults)
	}
	return c, nil
}

// ValidateCatalog checks that c is usable for a compare-only batch run.
func ValidateCatalog(c Catalog) error {
	if len(c.Entries) == 0 {
		return acvperr.New(acvperr.Load, "catalog must include at least one entry")
	}
	for i, e := range c.Entries {
		if e.Prompt == "" {
			return acvperr.Newf(acvperr.Load, "catalog entry[%d]: prompt is required", i)
		}
		if e.ExpectedResults == "" {
			return acvperr.Newf(acvperr.Load, "catalog entry[%d]: expected_results is required", i)
		}
	}
	return nil
}

func resolve(base, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}
