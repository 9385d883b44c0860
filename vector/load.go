package vector

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/lattice-substrate/mlkem-acvp/acvperr"
)

// Pair is one loaded prompt with its optional expected results.
type Pair struct {
	PromptPath string
	Prompt     *VectorSet
	// ExpectedPath is empty and Expected nil when no expected results were
	// supplied.
	ExpectedPath string
	Expected     json.RawMessage
}

// HasExpected reports whether p carries expected results.
func (p *Pair) HasExpected() bool {
	return p.Expected != nil
}

// LoadPair reads a prompt and, when expectedPath is non-empty, an
// expected-results document.
//
//nolint:gosec // prompt and expected paths are explicit operator input.
func LoadPair(promptPath, expectedPath string) (*Pair, error) {
	data, err := os.ReadFile(promptPath)
	if err != nil {
		return nil, acvperr.Wrap(acvperr.Load, "read prompt", err)
	}
	vs, err := DecodeVectorSet(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", promptPath, err)
	}

	p := &Pair{PromptPath: promptPath, Prompt: vs}
	if expectedPath == "" {
		return p, nil
	}
	expected, err := loadExpected(expectedPath)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", expectedPath, err)
	}
	p.ExpectedPath = expectedPath
	p.Expected = expected
	return p, nil
}

//nolint:gosec // expected-results path is explicit operator input.
func loadExpected(path string) (json.RawMessage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, acvperr.Wrap(acvperr.Load, "read expected results", err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	var doc map[string]json.RawMessage
	if err := dec.Decode(&doc); err != nil {
		return nil, acvperr.Wrap(acvperr.Load, "decode expected results json", err)
	}
	if dec.More() {
		return nil, acvperr.New(acvperr.Load, "decode expected results json: unexpected trailing content")
	}
	if doc == nil {
		return nil, acvperr.New(acvperr.Load, "expected results must be a json object")
	}
	return json.RawMessage(bytes.TrimSpace(data)), nil
}

// LoadCatalog loads every entry of c in order, stopping at the first failure.
func LoadCatalog(c Catalog) ([]*Pair, error) {
	if err := ValidateCatalog(c); err != nil {
		return nil, err
	}
	pairs := make([]*Pair, 0, len(c.Entries))
	for _, e := range c.Entries {
		p, err := LoadPair(e.Prompt, e.ExpectedResults)
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, p)
	}
	return pairs, nil
}
