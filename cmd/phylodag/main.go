package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/phylodag/phylodag/internal/cli"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			os.Exit(130) // Standard shell convention for SIGINT
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	var (
		verbose    bool
		configPath string
	)

	c := cli.New(os.Stderr, cli.LogInfo)
	root := c.RootCommand()

	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to config.toml (default: user config dir)")

	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		path, explicit := configPath, configPath != ""
		if !explicit {
			if p, err := cli.DefaultConfigPath(); err == nil {
				path = p
			}
		}
		if path != "" {
			cfg, err := cli.LoadConfig(path, explicit)
			if err != nil {
				return err
			}
			c.Config = cfg
		}
		if verbose || c.Config.Verbose {
			c.SetLogLevel(cli.LogDebug)
		}
		return nil
	}

	return root.ExecuteContext(ctx)
}
