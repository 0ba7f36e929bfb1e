package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/phylodag/phylodag/pkg/gpdag"
	"github.com/phylodag/phylodag/pkg/render"
	"github.com/phylodag/phylodag/pkg/tree"
)

// exportCommand creates the export command, which writes the subsplit DAG
// as a Graphviz DOT file or a rendered SVG.
func (c *CLI) exportCommand() *cobra.Command {
	var (
		treesPath string
		output    string
		detailed  bool
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the subsplit DAG as DOT or SVG",
		Long: `Export builds the subsplit DAG from a Newick tree sample and writes a
node-link diagram. The output format follows the file extension: .dot
writes Graphviz source, .svg renders it through Graphviz.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			trees, err := tree.ParseNewickFile(treesPath)
			if err != nil {
				return err
			}
			dag, err := gpdag.New(trees)
			if err != nil {
				return err
			}
			dot := render.ToDOT(dag, trees, render.Options{Detailed: detailed})

			var data []byte
			switch strings.ToLower(filepath.Ext(output)) {
			case ".dot", ".gv":
				data = []byte(dot)
			case ".svg":
				spinner := newSpinner(cmd.Context(), "rendering diagram")
				spinner.Start()
				data, err = render.RenderSVG(dot)
				if err != nil {
					spinner.StopWithError("rendering failed")
					return err
				}
				spinner.Stop()
				if spinner.Cancelled() {
					return cmd.Context().Err()
				}
			default:
				return fmt.Errorf("unsupported output extension %q (want .dot, .gv, or .svg)", filepath.Ext(output))
			}

			if err := os.WriteFile(output, data, 0o644); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			printSuccess("Exported DAG with %d nodes", dag.NodeCount())
			printFile(output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&treesPath, "trees", "t", "", "Newick file with one rooted tree per line (required)")
	cmd.Flags().StringVarP(&output, "output", "o", "dag.svg", "output path (.dot, .gv, or .svg)")
	cmd.Flags().BoolVar(&detailed, "detailed", false, "include node ids and bit-vector subsplits in labels")
	_ = cmd.MarkFlagRequired("trees")
	return cmd
}
