package pipeline

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/phylodag/phylodag/pkg/engine"
	"github.com/phylodag/phylodag/pkg/gpdag"
	"github.com/phylodag/phylodag/pkg/tree"
)

// Runner loads pipeline instances. It is stateless except for the
// logger, so one Runner can serve many loads concurrently.
type Runner struct {
	Logger *log.Logger
}

// NewRunner creates a runner. A nil logger falls back to the package
// default.
func NewRunner(logger *log.Logger) *Runner {
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{Logger: logger}
}

// Instance binds one DAG to one engine: the trees and alignment are
// loaded, the DAG is built, leaf data is seeded, and the parameter
// vector starts uniform. All fitting methods mutate the engine state.
type Instance struct {
	RunID uuid.UUID

	Trees     *tree.Collection
	Alignment *engine.SitePattern
	DAG       *gpdag.DAG
	Engine    *engine.Engine

	logger *log.Logger

	populateOps   []gpdag.Op
	likelihoodOps []gpdag.Op
}

// Load runs the load and build stages and returns a ready Instance.
func (r *Runner) Load(opts Options) (*Instance, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	trees, err := tree.ParseNewickFile(opts.TreesPath)
	if err != nil {
		return nil, fmt.Errorf("load trees: %w", err)
	}
	alignment, err := engine.ReadFastaFile(opts.AlignmentPath)
	if err != nil {
		return nil, fmt.Errorf("load alignment: %w", err)
	}
	r.Logger.Info("loaded inputs",
		"trees", trees.Topologies.Total(),
		"distinct", trees.TreeCount(),
		"taxa", trees.TaxonCount(),
		"sites", alignment.SiteCount(),
		"patterns", alignment.PatternCount(),
		"duration", time.Since(start))

	return r.Build(trees, alignment)
}

// Build constructs the DAG and engine for already-loaded inputs.
func (r *Runner) Build(trees *tree.Collection, alignment *engine.SitePattern) (*Instance, error) {
	for _, name := range trees.TaxonNames {
		if _, ok := alignment.Row(name); !ok {
			return nil, fmt.Errorf("%w: taxon %q has no sequence", ErrTaxaDisagree, name)
		}
	}
	if len(alignment.Names()) != trees.TaxonCount() {
		return nil, fmt.Errorf("%w: %d sequences for %d taxa",
			ErrTaxaDisagree, len(alignment.Names()), trees.TaxonCount())
	}

	start := time.Now()
	dag, err := gpdag.New(trees)
	if err != nil {
		return nil, fmt.Errorf("build dag: %w", err)
	}
	r.Logger.Info("built subsplit dag",
		"nodes", dag.NodeCount(),
		"rootsplits", dag.RootsplitCount(),
		"parameters", dag.GeneralizedPCSPCount(),
		"duration", time.Since(start))

	eng := engine.New(alignment, dag.PLVCount(), dag.GeneralizedPCSPCount())
	eng.SetParameters(dag.UniformParameters())
	for taxon, name := range trees.TaxonNames {
		row, _ := alignment.Row(name)
		eng.SeedLeaf(dag.PLVIndex(gpdag.PLVP, taxon), row)
	}

	return &Instance{
		RunID:         uuid.New(),
		Trees:         trees,
		Alignment:     alignment,
		DAG:           dag,
		Engine:        eng,
		logger:        r.Logger,
		populateOps:   dag.PopulatePLVs(),
		likelihoodOps: dag.ComputeLikelihoods(),
	}, nil
}

// PopulatePLVs fills every partial likelihood vector from the current
// branch lengths and parameters.
func (in *Instance) PopulatePLVs() {
	in.Engine.Run(in.populateOps)
}

// ComputeLikelihoods computes every per-edge likelihood and the marginal,
// returning the log marginal likelihood. Vectors must be populated.
func (in *Instance) ComputeLikelihoods() float64 {
	in.Engine.ResetMarginalLikelihood()
	in.Engine.Run(in.likelihoodOps)
	return in.Engine.LogMarginalLikelihood()
}

// LogMarginalLikelihood re-populates the vectors and returns the current
// log marginal likelihood.
func (in *Instance) LogMarginalLikelihood() float64 {
	in.PopulatePLVs()
	return in.ComputeLikelihoods()
}

// EstimateBranchLengths runs interleaved branch length optimization
// sweeps until the log marginal likelihood changes by less than the
// tolerance or the iteration cap is reached.
func (in *Instance) EstimateBranchLengths(ctx context.Context, opts FitOptions) (*FitResult, error) {
	return in.fit(ctx, opts, "branch lengths", in.DAG.BranchLengthOptimization())
}

// EstimateSBNParameters runs subsplit support optimization sweeps until
// the log marginal likelihood converges.
func (in *Instance) EstimateSBNParameters(ctx context.Context, opts FitOptions) (*FitResult, error) {
	return in.fit(ctx, opts, "sbn parameters", in.DAG.SBNParameterOptimization())
}

func (in *Instance) fit(ctx context.Context, opts FitOptions, what string, sweep []gpdag.Op) (*FitResult, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}

	start := time.Now()
	in.PopulatePLVs()
	current := in.ComputeLikelihoods()
	result := &FitResult{Trace: []float64{current}}
	in.logger.Info("starting optimization", "target", what, "log_marginal", current)

	for iter := 1; iter <= opts.MaxIterations; iter++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		in.Engine.Run(sweep)
		in.PopulatePLVs()
		next := in.ComputeLikelihoods()

		result.Iterations = iter
		result.Trace = append(result.Trace, next)
		in.logger.Debug("optimization sweep",
			"target", what, "iteration", iter, "log_marginal", next)

		delta := math.Abs(next - current)
		current = next
		if delta < opts.Tolerance {
			result.Converged = true
			break
		}
	}

	result.LogMarginal = current
	result.Duration = time.Since(start)
	in.logger.Info("finished optimization",
		"target", what,
		"iterations", result.Iterations,
		"converged", result.Converged,
		"log_marginal", result.LogMarginal,
		"duration", result.Duration)
	return result, nil
}

// BranchLengths returns the engine's current branch length vector.
func (in *Instance) BranchLengths() []float64 {
	return in.Engine.BranchLengths()
}

// Parameters returns the engine's current parameter vector.
func (in *Instance) Parameters() []float64 {
	return in.Engine.Parameters()
}
