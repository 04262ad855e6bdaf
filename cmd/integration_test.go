package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	cfgpkg "github.com/KaramelBytes/sweepq/internal/config"
	"github.com/KaramelBytes/sweepq/internal/store"
)

// resetCmdFlags restores named flags to their defaults and clears the sticky
// Changed state that persists across invocations in one process.
func resetCmdFlags(c *cobra.Command, names ...string) {
	f := c.Flags()
	for _, n := range names {
		if fl := f.Lookup(n); fl != nil {
			_ = fl.Value.Set(fl.DefValue)
			fl.Changed = false
		}
	}
}

// runCmd is a helper to execute the root command with args.
func runCmd(t *testing.T, args ...string) {
	t.Helper()
	resetCmdFlags(listCmd, "limit")
	resetCmdFlags(showCmd, "index", "params", "sample")
	resetCmdFlags(queryCmd, "index", "params", "x")
	resetCmdFlags(errorCmd, "index", "params")
	resetCmdFlags(minErrorCmd, "percentage")
	resetCmdFlags(thresholdCmd, "threshold", "percentage", "operator", "limit", "verbose")
	resetCmdFlags(paramSearchCmd, "name", "value", "tolerance", "verbose")
	resetCmdFlags(compareCmd, "a", "b")
	resetCmdFlags(importCmd, "name", "circuit", "description", "vdd", "vt", "temperature", "ratio", "db", "no-metrics")
	resetCmdFlags(dbSearchCmd, "name", "circuit", "limit")
	resetCmdFlags(dbSeriesCmd, "signal", "where")
	resetCmdFlags(dbMetricsCmd, "circuit", "min", "max", "limit")
	resetCmdFlags(plotCmd, "index", "params", "format", "out", "title")
	// Slice flags accumulate across parses, so their bound vars are cleared
	// directly instead of going through Value.Set.
	importCategories, importParameters = nil, nil
	dbSearchCategories = nil
	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("command %v failed: %v", args, err)
	}
}

// writeSweepCSV writes a small paren-grammar export with two series.
func writeSweepCSV(t *testing.T, dir string) string {
	t.Helper()
	rows := []string{
		`"/I4/Out (Nm_In_W=2.4e-07,Nm_Out_W=2.4e-07) X","/I4/Out (Nm_In_W=2.4e-07,Nm_Out_W=2.4e-07) Y","/I4/Out (Nm_In_W=4.8e-07,Nm_Out_W=2.4e-07) X","/I4/Out (Nm_In_W=4.8e-07,Nm_Out_W=2.4e-07) Y"`,
		`1,1.1,1,2.2`,
		`2,2.05,2,4.1`,
		`3,3.2,3,6.4`,
	}
	path := filepath.Join(dir, "sweep.csv")
	if err := os.WriteFile(path, []byte(strings.Join(rows, "\n")), 0o644); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	return path
}

func TestCLI_QueryCommands(t *testing.T) {
	home := t.TempDir()
	oldHome := os.Getenv("HOME")
	defer os.Setenv("HOME", oldHome)
	os.Setenv("HOME", home)
	cfg = nil

	csv := writeSweepCSV(t, home)

	runCmd(t, "list", csv)
	runCmd(t, "list", csv, "--limit", "1")
	runCmd(t, "show", csv, "--index", "0", "--sample", "2")
	runCmd(t, "show", csv, "--params", "Nm_In_W=2.4e-07,Nm_Out_W=2.4e-07")
	runCmd(t, "query", csv, "--index", "1", "--x", "2.4")
	runCmd(t, "error", csv, "--index", "0")
	runCmd(t, "min-error", csv)
	runCmd(t, "min-error", csv, "--percentage")
	runCmd(t, "threshold", csv, "--threshold", "10", "--operator", "<=")
	runCmd(t, "param-search", csv, "--name", "Nm_In_W", "--value", "2.4e-07")
	runCmd(t, "compare", csv, "--a", "0", "--b", "Nm_In_W=4.8e-07,Nm_Out_W=2.4e-07")
}

func TestCLI_QueryRequiresSelector(t *testing.T) {
	home := t.TempDir()
	oldHome := os.Getenv("HOME")
	defer os.Setenv("HOME", oldHome)
	os.Setenv("HOME", home)
	cfg = nil

	csv := writeSweepCSV(t, home)
	resetCmdFlags(queryCmd, "index", "params", "x")
	rootCmd.SetArgs([]string{"query", csv, "--x", "2"})
	if err := rootCmd.Execute(); err == nil {
		t.Fatal("query without --index/--params should fail")
	}
}

func TestCLI_ImportAndDB(t *testing.T) {
	home := t.TempDir()
	oldHome := os.Getenv("HOME")
	defer os.Setenv("HOME", oldHome)
	os.Setenv("HOME", home)
	cfg = nil

	csv := writeSweepCSV(t, home)
	dbFile := filepath.Join(home, "sweeps.db")

	runCmd(t, "import", csv,
		"--name", "mirror run",
		"--circuit", "current_mirror",
		"--description", "integration test",
		"--categories", "mirror,baseline",
		"--parameters", "Iref:100e-6:A",
		"--vdd", "1.2",
		"--db", dbFile)

	st, err := store.Open(dbFile)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer st.Close()
	info, err := st.Status()
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if info.Simulations != 1 || info.Series != 2 || info.Points != 6 {
		t.Fatalf("status = %+v, want 1 simulation, 2 series, 6 points", info)
	}
	if info.Metrics == 0 {
		t.Fatal("import should have recorded metrics")
	}

	runCmd(t, "db", "status", "--db", dbFile)
	runCmd(t, "db", "search", "--db", dbFile, "--name", "mirror")
	runCmd(t, "db", "show", "1", "--db", dbFile)
	runCmd(t, "db", "series", "1", "--db", dbFile, "--where", "Nm_In_W=2.4e-07")
	runCmd(t, "db", "metrics", "gain", "--db", dbFile)
	runCmd(t, "db", "metrics", "error_percentage", "--db", dbFile, "--min", "0")
	runCmd(t, "db", "categories", "--db", dbFile)
}

func TestCLI_ImportNoMetrics(t *testing.T) {
	home := t.TempDir()
	oldHome := os.Getenv("HOME")
	defer os.Setenv("HOME", oldHome)
	os.Setenv("HOME", home)
	cfg = nil

	csv := writeSweepCSV(t, home)
	dbFile := filepath.Join(home, "raw.db")
	runCmd(t, "import", csv, "--name", "raw", "--circuit", "c", "--no-metrics", "--db", dbFile)

	st, err := store.Open(dbFile)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer st.Close()
	info, err := st.Status()
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if info.Metrics != 0 {
		t.Fatalf("metrics = %d, want none", info.Metrics)
	}
}

func TestCLI_Plot(t *testing.T) {
	home := t.TempDir()
	oldHome := os.Getenv("HOME")
	defer os.Setenv("HOME", oldHome)
	os.Setenv("HOME", home)
	cfg = nil

	csv := writeSweepCSV(t, home)
	out := filepath.Join(home, "charts", "series.html")
	runCmd(t, "plot", csv, "--index", "0", "--format", "html", "--out", out, "--title", "Mirror")
	if _, err := os.Stat(out); err != nil {
		t.Fatalf("plot output missing: %v", err)
	}
}

func TestCLI_ConfigSetAndShow(t *testing.T) {
	home := t.TempDir()
	oldHome := os.Getenv("HOME")
	defer os.Setenv("HOME", oldHome)
	os.Setenv("HOME", home)
	cfg = nil

	runCmd(t, "config", "set", "model", "gpt-4o-mini")
	runCmd(t, "config", "show")
	runCmd(t, "config", "path")

	c, err := cfgpkg.Load("")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if c.Model != "gpt-4o-mini" {
		t.Fatalf("model = %q, want the saved value", c.Model)
	}
}

func TestCLI_ConfigSetRejectsBadValues(t *testing.T) {
	home := t.TempDir()
	oldHome := os.Getenv("HOME")
	defer os.Setenv("HOME", oldHome)
	os.Setenv("HOME", home)
	cfg = nil

	for _, args := range [][]string{
		{"config", "set", "grammar", "fancy"},
		{"config", "set", "workers", "many"},
		{"config", "set", "plot_format", "svg"},
		{"config", "set", "no_such_key", "1"},
	} {
		rootCmd.SetArgs(args)
		if err := rootCmd.Execute(); err == nil {
			t.Fatalf("command %v should fail", args)
		}
	}
}
