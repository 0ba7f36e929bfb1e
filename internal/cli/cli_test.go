package cli

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

func quietCLI() *CLI {
	return &CLI{
		Logger: newLogger(io.Discard, log.FatalLevel),
		Config: DefaultConfig(),
	}
}

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

const (
	testNewick = "((a,b),(c,d));\n(((a,b),c),d);\n"
	testFasta  = ">a\nACGTA\n>b\nACGTT\n>c\nACGCA\n>d\nACGCG\n"
)

func TestRootCommandRegistersSubcommands(t *testing.T) {
	root := quietCLI().RootCommand()
	want := []string{"stats", "export", "fit", "sbn", "completion"}
	for _, name := range want {
		found := false
		for _, sub := range root.Commands() {
			if sub.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("root command is missing %q", name)
		}
	}
}

func TestStatsCommand(t *testing.T) {
	trees := writeTempFile(t, "sample.nwk", testNewick)
	root := quietCLI().RootCommand()
	root.SetArgs([]string{"stats", "--trees", trees})
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	if err := root.Execute(); err != nil {
		t.Fatalf("stats: %v", err)
	}
}

func TestStatsCommandMissingFile(t *testing.T) {
	root := quietCLI().RootCommand()
	root.SetArgs([]string{"stats", "--trees", filepath.Join(t.TempDir(), "missing.nwk")})
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	if err := root.Execute(); err == nil {
		t.Fatal("stats on a missing file succeeded")
	}
}

func TestExportCommandDOT(t *testing.T) {
	trees := writeTempFile(t, "sample.nwk", testNewick)
	out := filepath.Join(t.TempDir(), "dag.dot")
	root := quietCLI().RootCommand()
	root.SetArgs([]string{"export", "--trees", trees, "--output", out})
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	if err := root.Execute(); err != nil {
		t.Fatalf("export: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if !strings.HasPrefix(string(data), "digraph G {") {
		t.Errorf("output is not DOT:\n%s", data)
	}
}

func TestExportCommandBadExtension(t *testing.T) {
	trees := writeTempFile(t, "sample.nwk", testNewick)
	root := quietCLI().RootCommand()
	root.SetArgs([]string{"export", "--trees", trees, "--output", "dag.pdf"})
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	if err := root.Execute(); err == nil {
		t.Fatal("export with unsupported extension succeeded")
	}
}

func TestFitCommandWritesEstimates(t *testing.T) {
	trees := writeTempFile(t, "sample.nwk", testNewick)
	alignment := writeTempFile(t, "sample.fasta", testFasta)
	out := filepath.Join(t.TempDir(), "estimates.tsv")

	root := quietCLI().RootCommand()
	root.SetArgs([]string{
		"fit",
		"--trees", trees,
		"--alignment", alignment,
		"--output", out,
		"--max-iterations", "3",
	})
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	if err := root.Execute(); err != nil {
		t.Fatalf("fit: %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read estimates: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) < 2 {
		t.Fatalf("estimates file has %d lines, want header plus edges", len(lines))
	}
	if !strings.HasPrefix(lines[0], "param\tparent\tchild") {
		t.Errorf("header = %q", lines[0])
	}
}

func TestLoadConfig(t *testing.T) {
	path := writeTempFile(t, "config.toml", "tolerance = 1e-6\nmax_iterations = 7\n")
	cfg, err := LoadConfig(path, true)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Tolerance != 1e-6 || cfg.MaxIterations != 7 {
		t.Errorf("config = %+v", cfg)
	}
}

func TestLoadConfigMissing(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "config.toml")

	cfg, err := LoadConfig(missing, false)
	if err != nil {
		t.Fatalf("implicit missing config: %v", err)
	}
	if cfg.MaxIterations != DefaultConfig().MaxIterations {
		t.Errorf("config = %+v, want defaults", cfg)
	}

	if _, err := LoadConfig(missing, true); err == nil {
		t.Error("explicit missing config succeeded")
	}
}

func TestLoadConfigUnknownKey(t *testing.T) {
	path := writeTempFile(t, "config.toml", "tollerance = 1e-6\n")
	if _, err := LoadConfig(path, true); err == nil {
		t.Error("unknown key accepted")
	}
}
