// Package vector holds the read-only model of ACVP ML-KEM prompt files and
// loads prompt/expected-result pairs from disk.
package vector

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/lattice-substrate/mlkem-acvp/acvperr"
)

// Algorithm is the only algorithm name this client accepts.
const Algorithm = "ML-KEM"

// Mode is the vector-set mode.
type Mode string

const (
	ModeKeyGen     Mode = "keyGen"
	ModeEncapDecap Mode = "encapDecap"
)

// Function is the operation declared by an encapDecap test group.
type Function string

const (
	FunctionEncapsulation Function = "encapsulation"
	FunctionDecapsulation Function = "decapsulation"
)

// Kind identifies the concrete TestCase variant.
type Kind string

const (
	KindKeyGen        Kind = "keyGen"
	KindEncapsulation Kind = "encapsulation"
	KindDecapsulation Kind = "decapsulation"
)

// VectorSet is a parsed prompt document.
type VectorSet struct {
	VsID       int64
	Algorithm  string
	Mode       Mode
	Revision   string
	IsSample   bool
	TestGroups []TestGroup
}

// TestGroup is one group of a vector set. Function and DK are only set for
// encapDecap groups; DK only for decapsulation.
type TestGroup struct {
	TgID         int64
	ParameterSet string
	Function     Function
	DK           string
	Tests        []TestCase
}

// TestCase is one of KeyGenCase, EncapsulationCase or DecapsulationCase.
type TestCase interface {
	CaseID() int64
	Kind() Kind
}

// KeyGenCase carries the seeds of a keyGen AFT case.
type KeyGenCase struct {
	TcID int64
	Z    string
	D    string
}

// EncapsulationCase carries the encapsulation key and message.
type EncapsulationCase struct {
	TcID int64
	EK   string
	M    string
}

// DecapsulationCase carries the ciphertext; the key lives on the group.
type DecapsulationCase struct {
	TcID int64
	C    string
}

func (c KeyGenCase) CaseID() int64        { return c.TcID }
func (c EncapsulationCase) CaseID() int64 { return c.TcID }
func (c DecapsulationCase) CaseID() int64 { return c.TcID }

func (KeyGenCase) Kind() Kind        { return KindKeyGen }
func (EncapsulationCase) Kind() Kind { return KindEncapsulation }
func (DecapsulationCase) Kind() Kind { return KindDecapsulation }

type rawVectorSet struct {
	VsID       *int64         `json:"vsId"`
	Algorithm  string         `json:"algorithm"`
	Mode       Mode           `json:"mode"`
	Revision   string         `json:"revision"`
	IsSample   bool           `json:"isSample"`
	TestGroups []rawTestGroup `json:"testGroups"`
}

type rawTestGroup struct {
	TgID         *int64            `json:"tgId"`
	ParameterSet string            `json:"parameterSet"`
	Function     Function          `json:"function"`
	DK           *string           `json:"dk"`
	Tests        []json.RawMessage `json:"tests"`
}

type rawTestCase struct {
	TcID *int64  `json:"tcId"`
	Z    *string `json:"z"`
	D    *string `json:"d"`
	EK   *string `json:"ek"`
	M    *string `json:"m"`
	C    *string `json:"c"`
}

// DecodeVectorSet parses and validates a prompt document. Structural problems
// are LOAD_ERROR; an encapDecap group without a usable function is
// USAGE_ERROR.
//
//nolint:gocyclo,cyclop // field presence checks are kept inline so each failure names its location.
func DecodeVectorSet(data []byte) (*VectorSet, error) {
	var raw rawVectorSet
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&raw); err != nil {
		return nil, acvperr.Wrap(acvperr.Load, "decode prompt json", err)
	}
	if dec.More() {
		return nil, acvperr.New(acvperr.Load, "decode prompt json: unexpected trailing content")
	}
	if raw.VsID == nil {
		return nil, acvperr.New(acvperr.Load, "prompt: vsId is required")
	}
	if raw.Algorithm != Algorithm {
		return nil, acvperr.Newf(acvperr.Load, "prompt: algorithm must be %q, got %q", Algorithm, raw.Algorithm)
	}
	switch raw.Mode {
	case ModeKeyGen, ModeEncapDecap:
	default:
		return nil, acvperr.Newf(acvperr.Load, "prompt: invalid mode %q", raw.Mode)
	}

	vs := &VectorSet{
		VsID:       *raw.VsID,
		Algorithm:  raw.Algorithm,
		Mode:       raw.Mode,
		Revision:   raw.Revision,
		IsSample:   raw.IsSample,
		TestGroups: make([]TestGroup, 0, len(raw.TestGroups)),
	}
	for i := range raw.TestGroups {
		g, err := decodeGroup(raw.Mode, &raw.TestGroups[i])
		if err != nil {
			return nil, fmt.Errorf("testGroups[%d]: %w", i, err)
		}
		vs.TestGroups = append(vs.TestGroups, g)
	}
	return vs, nil
}

func decodeGroup(mode Mode, raw *rawTestGroup) (TestGroup, error) {
	if raw.TgID == nil {
		return TestGroup{}, acvperr.New(acvperr.Load, "tgId is required")
	}
	g := TestGroup{
		TgID:         *raw.TgID,
		ParameterSet: raw.ParameterSet,
		Tests:        make([]TestCase, 0, len(raw.Tests)),
	}

	kind := KindKeyGen
	if mode == ModeEncapDecap {
		switch raw.Function {
		case FunctionEncapsulation:
			kind = KindEncapsulation
		case FunctionDecapsulation:
			kind = KindDecapsulation
			if raw.DK == nil {
				return TestGroup{}, acvperr.Newf(acvperr.Load, "tgId %d: decapsulation group requires dk", g.TgID)
			}
			g.DK = *raw.DK
		case "":
			return TestGroup{}, acvperr.Newf(acvperr.Usage, "tgId %d: encapDecap group declares no function", g.TgID)
		default:
			return TestGroup{}, acvperr.Newf(acvperr.Usage, "tgId %d: unsupported function %q", g.TgID, raw.Function)
		}
		g.Function = raw.Function
	}

	for i, msg := range raw.Tests {
		tc, err := decodeCase(kind, msg)
		if err != nil {
			return TestGroup{}, fmt.Errorf("tgId %d tests[%d]: %w", g.TgID, i, err)
		}
		g.Tests = append(g.Tests, tc)
	}
	return g, nil
}

func decodeCase(kind Kind, msg json.RawMessage) (TestCase, error) {
	var raw rawTestCase
	if err := json.Unmarshal(msg, &raw); err != nil {
		return nil, acvperr.Wrap(acvperr.Load, "decode test case", err)
	}
	if raw.TcID == nil {
		return nil, acvperr.New(acvperr.Load, "tcId is required")
	}
	id := *raw.TcID

	switch kind {
	case KindKeyGen:
		if err := require(id, field{"z", raw.Z}, field{"d", raw.D}); err != nil {
			return nil, err
		}
		return KeyGenCase{TcID: id, Z: *raw.Z, D: *raw.D}, nil
	case KindEncapsulation:
		if err := require(id, field{"ek", raw.EK}, field{"m", raw.M}); err != nil {
			return nil, err
		}
		return EncapsulationCase{TcID: id, EK: *raw.EK, M: *raw.M}, nil
	default:
		if err := require(id, field{"c", raw.C}); err != nil {
			return nil, err
		}
		return DecapsulationCase{TcID: id, C: *raw.C}, nil
	}
}

type field struct {
	name  string
	value *string
}

func require(tcID int64, fields ...field) error {
	for _, f := range fields {
		if f.value == nil {
			return acvperr.Newf(acvperr.Load, "tcId %d: field %q is required", tcID, f.name)
		}
	}
	return nil
}

// CaseCount returns the total number of test cases in vs.
func (vs *VectorSet) CaseCount() int {
	n := 0
	for _, g := range vs.TestGroups {
		n += len(g.Tests)
	}
	return n
}
