// Package pipeline provides the complete generalized-pruning workflow for
// phylodag.
//
// This package implements the load → build → fit pipeline used by the CLI
// and by library callers. By centralizing this logic, every entry point
// gets the same construction, seeding, and convergence behavior.
//
// # Architecture
//
// The pipeline consists of three stages:
//
//  1. Load: parse a Newick tree sample and a FASTA alignment, and check
//     that they describe the same taxa.
//  2. Build: construct the subsplit DAG from the tree sample and allocate
//     a numerical engine sized for it.
//  3. Fit: run generalized-pruning schedules against the engine to
//     estimate branch lengths and subsplit support probabilities.
//
// # Usage
//
// Create a Runner, load an Instance, and fit:
//
//	runner := pipeline.NewRunner(logger)
//	inst, err := runner.Load(pipeline.Options{
//	    TreesPath:     "sample.nwk",
//	    AlignmentPath: "sample.fasta",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fit, err := inst.EstimateBranchLengths(ctx, pipeline.FitOptions{})
package pipeline

import (
	"errors"
	"fmt"
	"time"
)

// Defaults shared by the CLI and library callers.
const (
	// DefaultTolerance is the convergence threshold on the change of the
	// log marginal likelihood between optimization sweeps.
	DefaultTolerance = 1e-4

	// DefaultMaxIterations caps the number of optimization sweeps.
	DefaultMaxIterations = 100
)

// ErrTaxaDisagree is returned when the tree sample and the alignment do
// not describe the same taxon set.
var ErrTaxaDisagree = errors.New("pipeline: trees and alignment disagree on taxa")

// Options configures loading one pipeline instance.
type Options struct {
	// TreesPath is a Newick file with one rooted tree per line.
	TreesPath string

	// AlignmentPath is a FASTA nucleotide alignment covering the same
	// taxa as the trees.
	AlignmentPath string
}

// Validate checks that the options name both inputs.
func (o *Options) Validate() error {
	if o.TreesPath == "" {
		return fmt.Errorf("pipeline: missing trees path")
	}
	if o.AlignmentPath == "" {
		return fmt.Errorf("pipeline: missing alignment path")
	}
	return nil
}

// FitOptions configures one optimization run.
type FitOptions struct {
	Tolerance     float64
	MaxIterations int
}

// ValidateAndSetDefaults fills zero values with the package defaults.
func (o *FitOptions) ValidateAndSetDefaults() error {
	if o.Tolerance == 0 {
		o.Tolerance = DefaultTolerance
	}
	if o.Tolerance < 0 {
		return fmt.Errorf("pipeline: negative tolerance %g", o.Tolerance)
	}
	if o.MaxIterations == 0 {
		o.MaxIterations = DefaultMaxIterations
	}
	if o.MaxIterations < 0 {
		return fmt.Errorf("pipeline: negative iteration cap %d", o.MaxIterations)
	}
	return nil
}

// FitResult reports one optimization run.
type FitResult struct {
	// Converged is true when the marginal stopped moving within
	// tolerance before the iteration cap.
	Converged bool

	// Iterations is the number of sweeps actually run.
	Iterations int

	// LogMarginal is the final log marginal likelihood.
	LogMarginal float64

	// Trace holds the log marginal after each sweep, starting with the
	// pre-optimization value.
	Trace []float64

	// Duration is the wall time of the run.
	Duration time.Duration
}
