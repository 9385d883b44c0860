package output

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/lattice-substrate/mlkem-acvp/vector"
)

// Progress writes the per-case status lines of a run. The last "Running ...
// test case N" line printed before an abort names the failing case.
type Progress struct {
	w    io.Writer
	ok   *color.Color
	fail *color.Color
	warn *color.Color
}

// NewProgress creates a Progress on w. With colorize false no escape
// sequences are written; with true, color follows terminal detection.
func NewProgress(w io.Writer, colorize bool) *Progress {
	p := &Progress{
		w:    w,
		ok:   color.New(color.FgGreen, color.Bold),
		fail: color.New(color.FgRed, color.Bold),
		warn: color.New(color.FgYellow),
	}
	if !colorize {
		p.ok.DisableColor()
		p.fail.DisableColor()
		p.warn.DisableColor()
	}
	return p
}

func (p *Progress) VectorSet(promptPath string) {
	fmt.Fprintf(p.w, "Running ACVP tests for %s\n", promptPath)
}

func (p *Progress) CaseStart(mode vector.Mode, g vector.TestGroup, c vector.TestCase) {
	if mode == vector.ModeEncapDecap {
		fmt.Fprintf(p.w, "Running %s test case %d (%s) ... ", mode, c.CaseID(), g.Function)
		return
	}
	fmt.Fprintf(p.w, "Running %s test case %d ... ", mode, c.CaseID())
}

func (p *Progress) CaseDone() {
	fmt.Fprintln(p.w, "done")
}

func (p *Progress) CaseFailed() {
	p.fail.Fprintln(p.w, "FAIL!")
}

func (p *Progress) Comparing(expectedPath string) {
	fmt.Fprintf(p.w, "Comparing results with %s\n", expectedPath)
}

func (p *Progress) Matched() {
	p.ok.Fprintln(p.w, "OK")
}

func (p *Progress) Mismatched(promptPath string) {
	p.fail.Fprintf(p.w, "FAIL! Mismatching result for %s\n", promptPath)
}

func (p *Progress) NotValidated() {
	p.warn.Fprintln(p.w, "Results could not be validated as no expected results were provided to --expected")
}

func (p *Progress) Writing(outputPath string) {
	fmt.Fprintf(p.w, "Writing results to %s\n", outputPath)
}

// AllGood is the success marker of a complete run.
func (p *Progress) AllGood() {
	p.ok.Fprintln(p.w, "ALL GOOD!")
}
