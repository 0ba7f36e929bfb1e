package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/phylodag/phylodag/pkg/pipeline"
)

// fitTarget selects which optimization a fitting command runs.
type fitTarget int

const (
	fitBranchLengths fitTarget = iota
	fitSBNParameters
)

// fitCommand creates the fit command, which estimates branch lengths.
func (c *CLI) fitCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fit",
		Short: "Estimate branch lengths by generalized pruning",
		Long: `Fit builds the subsplit DAG from a tree sample, seeds the engine with a
FASTA alignment, and runs interleaved branch length optimization sweeps
until the log marginal likelihood converges.`,
	}
	return c.bindFitFlags(cmd, fitBranchLengths)
}

// sbnCommand creates the sbn command, which estimates subsplit support
// probabilities.
func (c *CLI) sbnCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sbn",
		Short: "Estimate subsplit support probabilities",
		Long: `Sbn builds the subsplit DAG from a tree sample, seeds the engine with a
FASTA alignment, and renormalizes each parent's child distribution from
per-edge likelihoods until the log marginal likelihood converges.`,
	}
	return c.bindFitFlags(cmd, fitSBNParameters)
}

func (c *CLI) bindFitFlags(cmd *cobra.Command, target fitTarget) *cobra.Command {
	var (
		treesPath     string
		alignmentPath string
		output        string
		tolerance     float64
		maxIterations int
	)

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		if !cmd.Flags().Changed("tolerance") {
			tolerance = c.Config.Tolerance
		}
		if !cmd.Flags().Changed("max-iterations") {
			maxIterations = c.Config.MaxIterations
		}
		return c.runFit(cmd.Context(), target, pipeline.Options{
			TreesPath:     treesPath,
			AlignmentPath: alignmentPath,
		}, pipeline.FitOptions{
			Tolerance:     tolerance,
			MaxIterations: maxIterations,
		}, output)
	}

	cmd.Flags().StringVarP(&treesPath, "trees", "t", "", "Newick file with one rooted tree per line (required)")
	cmd.Flags().StringVarP(&alignmentPath, "alignment", "a", "", "FASTA nucleotide alignment (required)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write per-edge estimates as TSV")
	cmd.Flags().Float64Var(&tolerance, "tolerance", pipeline.DefaultTolerance, "convergence threshold on the log marginal likelihood")
	cmd.Flags().IntVar(&maxIterations, "max-iterations", pipeline.DefaultMaxIterations, "cap on optimization sweeps")
	_ = cmd.MarkFlagRequired("trees")
	_ = cmd.MarkFlagRequired("alignment")
	return cmd
}

func (c *CLI) runFit(ctx context.Context, target fitTarget, opts pipeline.Options, fitOpts pipeline.FitOptions, output string) error {
	inst, err := c.newRunner().Load(opts)
	if err != nil {
		return err
	}

	var fit *pipeline.FitResult
	switch target {
	case fitBranchLengths:
		fit, err = inst.EstimateBranchLengths(ctx, fitOpts)
	case fitSBNParameters:
		fit, err = inst.EstimateSBNParameters(ctx, fitOpts)
	}
	if err != nil {
		return err
	}

	if fit.Converged {
		printSuccess("Converged after %d sweeps", fit.Iterations)
	} else {
		printInfo("Stopped at the %d-sweep cap without converging", fit.Iterations)
	}
	printKeyValue("log marginal", fmt.Sprintf("%.6f", fit.LogMarginal))
	printKeyValue("run id", inst.RunID.String())
	printDetail("run: %s", fit.Duration.Round(time.Millisecond))

	if output == "" {
		return nil
	}
	if err := writeEstimates(inst, output); err != nil {
		return err
	}
	printFile(output)
	return nil
}

// writeEstimates dumps one TSV row per DAG edge: the parameter index, the
// parent and child subsplits, the branch length, and the probability.
func writeEstimates(inst *pipeline.Instance, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("write estimates: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	fmt.Fprintln(w, "param\tparent\tchild\trotated\tbranch_length\tprobability")
	lengths := inst.BranchLengths()
	q := inst.Parameters()
	for _, e := range inst.DAG.Edges() {
		parent := inst.DAG.Node(e.Parent).Subsplit()
		if e.Rotated {
			parent = parent.Rotate()
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%t\t%.8f\t%.8f\n",
			e.Param, parent, inst.DAG.Node(e.Child).Subsplit(), e.Rotated, lengths[e.Param], q[e.Param])
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("write estimates: %w", err)
	}
	return nil
}
