package assigner

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/inodb/vibe-acmg/internal/acmg"
	"github.com/inodb/vibe-acmg/internal/evaluation"
	"github.com/inodb/vibe-acmg/internal/pedigree"
	"github.com/inodb/vibe-acmg/internal/variantkey"
)

// ErrProbandNotInPedigree is returned by New when the proband is not a
// member of the pedigree.
var ErrProbandNotInPedigree = errors.New("proband not in pedigree")

// Diagnostics describe how one assignment was reached.
type Diagnostics struct {
	// PS1PM5Candidates counts reviewed pathogenic ClinVar neighbours
	// considered by PS1/PM5.
	PS1PM5Candidates int
	// Applied lists the rules that contributed evidence, in order.
	Applied []string
}

// Assignment is the result for one (variant, mode) pair.
type Assignment struct {
	Key             variantkey.Key
	Gene            string
	Mode            acmg.ModeOfInheritance
	ProbandGenotype evaluation.Genotype
	Evidence        acmg.EvidenceSet
	Classification  acmg.Classification
	Diagnostics     Diagnostics
}

// Stats are cumulative counters over every Assign call.
type Stats struct {
	Assignments      int64
	PS1PM5Candidates int64
	// Applied maps rule name to the number of assignments it contributed to.
	Applied map[string]int64
}

// Option configures an Assigner.
type Option func(*Assigner)

// WithRegistry replaces the default rules.
func WithRegistry(r *Registry) Option {
	return func(a *Assigner) { a.registry = r }
}

// WithLogger sets the logger. Rules log through the same logger.
func WithLogger(l *zap.Logger) Option {
	return func(a *Assigner) { a.logger = l }
}

// Assigner runs the registered rules for a proband. Safe for concurrent use.
type Assigner struct {
	proband  string
	deps     Deps
	registry *Registry
	combiner *acmg.Combiner
	logger   *zap.Logger

	assignments atomic.Int64
	candidates  atomic.Int64
	applied     []atomic.Int64 // indexed like registry rules
}

// New returns an Assigner for proband, who must be in ped.
func New(proband string, ped *pedigree.Pedigree, deps Deps, opts ...Option) (*Assigner, error) {
	if !ped.Has(proband) {
		return nil, fmt.Errorf("%w: %q", ErrProbandNotInPedigree, proband)
	}
	a := &Assigner{
		proband:  proband,
		deps:     deps,
		registry: DefaultRegistry(),
		combiner: acmg.NewCombiner(acmg.NewTable(acmg.Table5Rules)),
		logger:   deps.Logger,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = zap.NewNop()
	}
	a.deps.Logger = a.logger
	a.applied = make([]atomic.Int64, len(a.registry.rules))
	return a, nil
}

// Proband returns the proband's sample ID.
func (a *Assigner) Proband() string {
	return a.proband
}

// Registry returns the rules in use.
func (a *Assigner) Registry() *Registry {
	return a.registry
}

// Assign evaluates every rule once for e under mode m and classifies the
// resulting evidence. Storage errors abort the assignment.
func (a *Assigner) Assign(e *evaluation.VariantEvaluation, m acmg.ModeOfInheritance) (Assignment, error) {
	in := &Input{Eval: e, Mode: m, Deps: &a.deps}
	b := acmg.NewEvidenceBuilder()
	var diag Diagnostics
	applied := make([]int, 0, len(a.registry.rules))

	for i, rule := range a.registry.rules {
		if !rule.Implemented() {
			continue
		}
		out, err := rule.Evaluate(in)
		if err != nil {
			return Assignment{}, fmt.Errorf("evaluate %s for %s: %w", rule.Name, e.Key, err)
		}
		if err := b.AddEvidence(out.Evidence...); err != nil {
			return Assignment{}, fmt.Errorf("evaluate %s for %s: %w", rule.Name, e.Key, err)
		}
		diag.PS1PM5Candidates += out.Candidates
		if len(out.Evidence) > 0 {
			diag.Applied = append(diag.Applied, rule.Name)
			applied = append(applied, i)
		}
	}

	set := b.Build()
	res := Assignment{
		Key:             e.Key,
		Gene:            e.GeneSymbol,
		Mode:            m,
		ProbandGenotype: e.Genotypes[a.proband],
		Evidence:        set,
		Classification:  a.combiner.Classify(set, m),
		Diagnostics:     diag,
	}

	a.assignments.Add(1)
	a.candidates.Add(int64(diag.PS1PM5Candidates))
	for _, i := range applied {
		a.applied[i].Add(1)
	}
	a.logger.Debug("assigned evidence",
		zap.Stringer("variant", e.Key),
		zap.String("mode", string(m)),
		zap.Stringer("evidence", set),
		zap.String("classification", string(res.Classification)))
	return res, nil
}

// Stats returns the counters accumulated so far.
func (a *Assigner) Stats() Stats {
	s := Stats{
		Assignments:      a.assignments.Load(),
		PS1PM5Candidates: a.candidates.Load(),
		Applied:          make(map[string]int64, len(a.applied)),
	}
	for i, rule := range a.registry.rules {
		if rule.Implemented() {
			s.Applied[rule.Name] = a.applied[i].Load()
		}
	}
	return s
}

// AssignAll assigns every variant under every mode using up to workers
// goroutines (runtime.NumCPU() when workers <= 0). Results are ordered by
// variant, then by mode. The first error cancels the remaining work.
func (a *Assigner) AssignAll(ctx context.Context, evals []*evaluation.VariantEvaluation, modes []acmg.ModeOfInheritance, workers int) ([]Assignment, error) {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	out := make([]Assignment, len(evals)*len(modes))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, e := range evals {
		for j, m := range modes {
			if gctx.Err() != nil {
				break
			}
			idx := i*len(modes) + j
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				r, err := a.Assign(e, m)
				if err != nil {
					return err
				}
				out[idx] = r
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
