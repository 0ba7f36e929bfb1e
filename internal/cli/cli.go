// Package cli implements the phylodag command-line interface.
//
// This package provides commands for inspecting subsplit DAGs built from
// posterior tree samples, exporting them as diagrams, and fitting branch
// lengths and subsplit support probabilities by generalized pruning. The
// CLI is built using cobra and supports verbose logging via the
// charmbracelet/log library.
//
// # Commands
//
// The main commands are:
//   - stats: Build the DAG from a tree sample and report its shape
//   - export: Write the DAG as a Graphviz DOT file or SVG diagram
//   - fit: Estimate branch lengths against an alignment
//   - sbn: Estimate subsplit support probabilities against an alignment
//
// All commands support --verbose (-v) for debug-level logging.
package cli

import (
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/phylodag/phylodag/pkg/buildinfo"
	"github.com/phylodag/phylodag/pkg/pipeline"
)

// appName is the application name used for config paths and display.
const appName = "phylodag"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
	Config *Config
}

// New creates a new CLI instance with a default logger and config.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		Config: DefaultConfig(),
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands
// registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "Phylodag fits phylogenetic models over subsplit DAGs",
		Long:         `Phylodag merges a sample of rooted phylogenetic trees into one subsplit DAG and runs generalized-pruning schedules over it, so partial likelihoods shared across trees are computed once instead of once per tree.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}

	root.SetVersionTemplate(buildinfo.Template())

	root.AddCommand(c.statsCommand())
	root.AddCommand(c.exportCommand())
	root.AddCommand(c.fitCommand())
	root.AddCommand(c.sbnCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// newRunner creates a pipeline runner for CLI use.
func (c *CLI) newRunner() *pipeline.Runner {
	return pipeline.NewRunner(c.Logger)
}
