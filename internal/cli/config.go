package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/phylodag/phylodag/pkg/pipeline"
)

// Config holds the user-tunable defaults for fitting commands. Values
// from the config file seed the command flags; flags given on the command
// line still win.
type Config struct {
	// Tolerance is the convergence threshold on the log marginal
	// likelihood.
	Tolerance float64 `toml:"tolerance"`

	// MaxIterations caps the number of optimization sweeps.
	MaxIterations int `toml:"max_iterations"`

	// Verbose enables debug logging without passing --verbose.
	Verbose bool `toml:"verbose"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Tolerance:     pipeline.DefaultTolerance,
		MaxIterations: pipeline.DefaultMaxIterations,
	}
}

// DefaultConfigPath returns the per-user config file location, e.g.
// ~/.config/phylodag/config.toml on Linux.
func DefaultConfigPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve config dir: %w", err)
	}
	return filepath.Join(dir, appName, "config.toml"), nil
}

// LoadConfig reads a TOML config file into the built-in defaults. A
// missing file at the default location is not an error; a missing file
// named explicitly is.
func LoadConfig(path string, explicit bool) (*Config, error) {
	cfg := DefaultConfig()
	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !explicit {
			return cfg, nil
		}
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("load config %s: unknown key %q", path, undecoded[0].String())
	}
	return cfg, nil
}
