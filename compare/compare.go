// Package compare checks produced result documents against expected results.
//
// Both sides are reduced to RFC 8785 canonical form before comparison: object
// keys are sorted, whitespace is dropped, arrays keep their order. Group and
// case order is part of the contract, so a reordered expected document is a
// mismatch.
package compare

import (
	"bytes"
	"encoding/json"
	"fmt"

	cyberphone "github.com/cyberphone/json-canonicalization/go/src/webpki.org/jsoncanonicalizer"
	"github.com/google/go-cmp/cmp"

	"github.com/lattice-substrate/mlkem-acvp/acvperr"
)

// Canonicalize returns the canonical bytes of a JSON document. Canonicalizing
// canonical input returns it unchanged.
func Canonicalize(doc []byte) ([]byte, error) {
	out, err := cyberphone.Transform(doc)
	if err != nil {
		return nil, fmt.Errorf("canonicalize: %w", err)
	}
	return out, nil
}

// CanonicalizeValue marshals v and canonicalizes the result.
func CanonicalizeValue(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}
	return Canonicalize(data)
}

// Documents compares a produced document with expected results. A mismatch
// is COMPARISON_MISMATCH with a diff ("-expected +produced") as detail.
func Documents(produced, expected []byte) error {
	got, err := Canonicalize(produced)
	if err != nil {
		return acvperr.Wrap(acvperr.InternalError, "produced results", err)
	}
	want, err := Canonicalize(expected)
	if err != nil {
		return acvperr.Wrap(acvperr.Load, "expected results", err)
	}
	if bytes.Equal(got, want) {
		return nil
	}
	return acvperr.New(acvperr.ComparisonMismatch, "produced results differ from expected results").
		WithDetail(Diff(want, got))
}

// Diff renders the structural difference between two canonical documents.
func Diff(expected, produced []byte) string {
	var e, p any
	if err := json.Unmarshal(expected, &e); err != nil {
		return fmt.Sprintf("expected results unreadable: %v", err)
	}
	if err := json.Unmarshal(produced, &p); err != nil {
		return fmt.Sprintf("produced results unreadable: %v", err)
	}
	return cmp.Diff(e, p)
}
