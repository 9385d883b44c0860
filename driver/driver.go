// Package driver runs ACVP vector sets through the IUT and gates on the
// results. A run is strictly sequential and stops at the first failure.
package driver

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/lattice-substrate/mlkem-acvp/acvperr"
	"github.com/lattice-substrate/mlkem-acvp/compare"
	"github.com/lattice-substrate/mlkem-acvp/iut"
	"github.com/lattice-substrate/mlkem-acvp/output"
	"github.com/lattice-substrate/mlkem-acvp/result"
	"github.com/lattice-substrate/mlkem-acvp/vector"
)

// State is the position of a run in its lifecycle.
type State int

const (
	StateIdle State = iota
	StateLoading
	StateDispatching
	StateInvoking
	StateNormalizing
	StateComparing
	StateDone
	StateAborted
)

var stateNames = [...]string{"idle", "loading", "dispatching", "invoking", "normalizing", "comparing", "done", "aborted"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Options selects what a run loads and where its results go.
type Options struct {
	// PromptPath selects single-prompt mode. When empty, Catalog is run with
	// comparison only.
	PromptPath   string
	ExpectedPath string
	OutputPath   string
	// ReportPath, when set, receives the run report after a successful run.
	ReportPath string
	Catalog    vector.Catalog
	Now        func() time.Time
}

// ValidateOptions enforces the flag combinations accepted by a run.
func ValidateOptions(o Options) error {
	if o.PromptPath == "" {
		if o.OutputPath != "" {
			return acvperr.New(acvperr.Usage, "cannot produce output if there is no input prompt")
		}
		if o.ExpectedPath != "" {
			return acvperr.New(acvperr.Usage, "expected results require a prompt")
		}
		return nil
	}
	if o.ExpectedPath == "" && o.OutputPath == "" {
		return acvperr.New(acvperr.Usage, "a prompt requires expected results or an output path")
	}
	return nil
}

// Driver ties loading, invocation, normalization and comparison together.
type Driver struct {
	invoker  *iut.Invoker
	progress *output.Progress
	log      *slog.Logger
	state    State
}

// New creates a Driver.
func New(inv *iut.Invoker, progress *output.Progress, log *slog.Logger) *Driver {
	if log == nil {
		log = output.Discard()
	}
	return &Driver{invoker: inv, progress: progress, log: log}
}

// State returns the current lifecycle state.
func (d *Driver) State() State {
	return d.state
}

func (d *Driver) transition(to State) {
	if d.state == to {
		return
	}
	d.log.Debug("state", "from", d.state.String(), "to", to.String())
	d.state = to
}

// Run executes every vector set selected by opts. It returns the run report
// on success; any error means the run was aborted.
func (d *Driver) Run(ctx context.Context, opts Options) (rep *Report, err error) {
	defer func() {
		if err != nil {
			d.log.Error("run aborted", "state", d.state.String(), "class", string(acvperr.ClassOf(err)))
			d.transition(StateAborted)
			return
		}
		d.transition(StateDone)
	}()

	if err := ValidateOptions(opts); err != nil {
		return nil, err
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	d.transition(StateLoading)
	pairs, err := d.load(opts)
	if err != nil {
		return nil, err
	}
	if opts.OutputPath != "" && len(pairs) != 1 {
		return nil, acvperr.Newf(acvperr.Usage, "an output path requires exactly one input, got %d", len(pairs))
	}

	rep = &Report{SchemaVersion: ReportSchemaVersion, GeneratedAtUTC: now().UTC().Format(time.RFC3339)}
	for _, p := range pairs {
		ev, err := d.runVectorSet(ctx, p, opts.OutputPath)
		if err != nil {
			return nil, err
		}
		rep.VectorSets = append(rep.VectorSets, ev)
	}

	if opts.ReportPath != "" {
		if err := WriteReport(opts.ReportPath, rep); err != nil {
			return nil, acvperr.Wrap(acvperr.InternalIO, "write report", err)
		}
	}
	d.progress.AllGood()
	return rep, nil
}

func (d *Driver) load(opts Options) ([]*vector.Pair, error) {
	if opts.PromptPath != "" {
		p, err := vector.LoadPair(opts.PromptPath, opts.ExpectedPath)
		if err != nil {
			return nil, err
		}
		return []*vector.Pair{p}, nil
	}
	d.log.Info("no prompt given, running catalog", "entries", len(opts.Catalog.Entries))
	return vector.LoadCatalog(opts.Catalog)
}

func (d *Driver) runVectorSet(ctx context.Context, p *vector.Pair, outputPath string) (VectorSetEvidence, error) {
	vs := p.Prompt
	log := d.log.With("prompt", p.PromptPath, "vsId", vs.VsID, "mode", string(vs.Mode))
	log.Info("running vector set", "groups", len(vs.TestGroups), "cases", vs.CaseCount())
	d.progress.VectorSet(p.PromptPath)

	doc := result.NewDocument(vs)
	for gi, g := range vs.TestGroups {
		for _, c := range g.Tests {
			if err := ctx.Err(); err != nil {
				return VectorSetEvidence{}, acvperr.Wrap(acvperr.Invocation, "run interrupted", err)
			}
			d.transition(StateDispatching)
			d.progress.CaseStart(vs.Mode, g, c)

			d.transition(StateInvoking)
			stdout, err := d.invoker.Invoke(ctx, g, c)
			if err != nil {
				d.progress.CaseFailed()
				return VectorSetEvidence{}, fmt.Errorf("%s: tgId %d tcId %d: %w", p.PromptPath, g.TgID, c.CaseID(), err)
			}

			d.transition(StateNormalizing)
			rec, err := result.Normalize(c, stdout)
			if err != nil {
				d.progress.CaseFailed()
				return VectorSetEvidence{}, fmt.Errorf("%s: tgId %d: %w", p.PromptPath, g.TgID, err)
			}
			if err := doc.Append(gi, rec); err != nil {
				return VectorSetEvidence{}, err
			}
			d.progress.CaseDone()
		}
	}

	canonical, err := compare.CanonicalizeValue(doc)
	if err != nil {
		return VectorSetEvidence{}, acvperr.Wrap(acvperr.InternalError, "canonicalize results", err)
	}

	if p.HasExpected() {
		d.transition(StateComparing)
		d.progress.Comparing(p.ExpectedPath)
		if err := compare.Documents(canonical, p.Expected); err != nil {
			d.progress.Mismatched(p.PromptPath)
			return VectorSetEvidence{}, fmt.Errorf("%s: %w", p.PromptPath, err)
		}
		d.progress.Matched()
	} else {
		d.progress.NotValidated()
	}

	if outputPath != "" {
		d.progress.Writing(outputPath)
		if err := os.WriteFile(outputPath, canonical, 0o600); err != nil {
			return VectorSetEvidence{}, acvperr.Wrap(acvperr.InternalIO, "write results", err)
		}
	}

	sum := sha256.Sum256(canonical)
	log.Info("vector set passed", "compared", p.HasExpected())
	return VectorSetEvidence{
		PromptPath:   p.PromptPath,
		ExpectedPath: p.ExpectedPath,
		OutputPath:   outputPath,
		VsID:         vs.VsID,
		Mode:         string(vs.Mode),
		Revision:     vs.Revision,
		CaseCount:    doc.CaseCount(),
		Compared:     p.HasExpected(),
		ResultSHA256: hex.EncodeToString(sum[:]),
	}, nil
}
