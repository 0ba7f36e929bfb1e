package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/phylodag/phylodag/pkg/gpdag"
	"github.com/phylodag/phylodag/pkg/tree"
)

// statsCommand creates the stats command, which builds the subsplit DAG
// from a tree sample and reports its shape.
func (c *CLI) statsCommand() *cobra.Command {
	var treesPath string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Build the subsplit DAG and report its shape",
		Long: `Stats parses a Newick tree sample, merges the topologies into one
subsplit DAG, and prints node, rootsplit, and parameter counts.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			p := newProgress(c.Logger)
			trees, err := tree.ParseNewickFile(treesPath)
			if err != nil {
				return err
			}
			dag, err := gpdag.New(trees)
			if err != nil {
				return err
			}
			p.done(fmt.Sprintf("Built DAG from %d trees", trees.Topologies.Total()))

			printKeyValue("taxa", fmt.Sprint(dag.TaxonCount()))
			printKeyValue("trees", fmt.Sprint(trees.Topologies.Total()))
			printKeyValue("distinct", fmt.Sprint(trees.TreeCount()))
			printKeyValue("nodes", fmt.Sprint(dag.NodeCount()))
			printKeyValue("rootsplits", fmt.Sprint(dag.RootsplitCount()))
			printKeyValue("edges", fmt.Sprint(len(dag.Edges())))
			printKeyValue("parameters", fmt.Sprint(dag.GeneralizedPCSPCount()))
			printKeyValue("plv buffers", fmt.Sprint(dag.PLVCount()))
			return nil
		},
	}

	cmd.Flags().StringVarP(&treesPath, "trees", "t", "", "Newick file with one rooted tree per line (required)")
	_ = cmd.MarkFlagRequired("trees")
	return cmd
}
