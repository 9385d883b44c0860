// Package result turns IUT stdout into result records and assembles the
// result document that mirrors a prompt's group and case structure.
package result

import (
	"bufio"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/lattice-substrate/mlkem-acvp/acvperr"
	"github.com/lattice-substrate/mlkem-acvp/vector"
)

// Record is the result of one test case: its id plus the IUT output fields.
// It serializes as a flat object.
type Record struct {
	TcID   int64
	Fields map[string]string
}

// MarshalJSON implements json.Marshaler.
func (r Record) MarshalJSON() ([]byte, error) {
	flat := make(map[string]any, len(r.Fields)+1)
	for k, v := range r.Fields {
		flat[k] = v
	}
	flat["tcId"] = r.TcID
	return json.Marshal(flat)
}

// GroupResult holds the records of one test group.
type GroupResult struct {
	TgID  int64    `json:"tgId"`
	Tests []Record `json:"tests"`
}

// Document is the result document of one vector set.
type Document struct {
	VsID       int64         `json:"vsId"`
	Algorithm  string        `json:"algorithm"`
	Mode       vector.Mode   `json:"mode"`
	Revision   string        `json:"revision"`
	IsSample   bool          `json:"isSample"`
	TestGroups []GroupResult `json:"testGroups"`
}

// requiredOutputs lists the fields each variant's IUT must print.
var requiredOutputs = map[vector.Kind][]string{
	vector.KindKeyGen:        {"ek", "dk"},
	vector.KindEncapsulation: {"c", "k"},
	vector.KindDecapsulation: {"k"},
}

// NewDocument copies the vector-set metadata of vs and prepares one empty
// group result per test group, in prompt order.
func NewDocument(vs *vector.VectorSet) *Document {
	d := &Document{
		VsID:       vs.VsID,
		Algorithm:  vs.Algorithm,
		Mode:       vs.Mode,
		Revision:   vs.Revision,
		IsSample:   vs.IsSample,
		TestGroups: make([]GroupResult, len(vs.TestGroups)),
	}
	for i, g := range vs.TestGroups {
		d.TestGroups[i] = GroupResult{TgID: g.TgID, Tests: make([]Record, 0, len(g.Tests))}
	}
	return d
}

// Append adds r to the group at index group.
func (d *Document) Append(group int, r Record) error {
	if group < 0 || group >= len(d.TestGroups) {
		return acvperr.Newf(acvperr.InternalError, "group index %d out of range", group)
	}
	d.TestGroups[group].Tests = append(d.TestGroups[group].Tests, r)
	return nil
}

// CaseCount returns the number of records in d.
func (d *Document) CaseCount() int {
	n := 0
	for _, g := range d.TestGroups {
		n += len(g.Tests)
	}
	return n
}

// ParseOutput splits stdout into key=value pairs. Each line must be valid
// UTF-8 and is split on its first '='.
func ParseOutput(stdout string) (map[string]string, error) {
	fields := make(map[string]string)
	sc := bufio.NewScanner(strings.NewReader(stdout))
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	line := 0
	for sc.Scan() {
		line++
		k, v, ok := strings.Cut(sc.Text(), "=")
		switch {
		case !utf8.ValidString(sc.Text()):
			return nil, acvperr.Newf(acvperr.MalformedOutput, "line %d: invalid UTF-8 in %q", line, sc.Text())
		case !ok:
			return nil, acvperr.Newf(acvperr.MalformedOutput, "line %d: missing '=' in %q", line, sc.Text())
		case k == "":
			return nil, acvperr.Newf(acvperr.MalformedOutput, "line %d: empty key", line)
		case k == "tcId":
			return nil, acvperr.Newf(acvperr.MalformedOutput, "line %d: reserved key %q", line, k)
		}
		if _, dup := fields[k]; dup {
			return nil, acvperr.Newf(acvperr.MalformedOutput, "line %d: duplicate key %q", line, k)
		}
		fields[k] = v
	}
	if err := sc.Err(); err != nil {
		return nil, acvperr.Wrap(acvperr.MalformedOutput, "scan output", err)
	}
	return fields, nil
}

// Normalize parses stdout for test case c into its Record.
func Normalize(c vector.TestCase, stdout string) (Record, error) {
	fields, err := ParseOutput(stdout)
	if err != nil {
		return Record{}, fmt.Errorf("tcId %d: %w", c.CaseID(), err)
	}
	for _, name := range requiredOutputs[c.Kind()] {
		if _, ok := fields[name]; !ok {
			return Record{}, acvperr.Newf(acvperr.MalformedOutput, "tcId %d: %s output is missing %q", c.CaseID(), c.Kind(), name)
		}
	}
	return Record{TcID: c.CaseID(), Fields: fields}, nil
}
