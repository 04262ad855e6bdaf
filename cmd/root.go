package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	cfgpkg "github.com/KaramelBytes/sweepq/internal/config"
)

var (
	// Global flags (wired to config/viper at load time)
	cfgFile string
	// CSV loading flags (override config if set)
	flagGrammar      string
	flagAssumeSorted bool
	flagLowMemory    bool
	flagWorkers      int
	// Retry/HTTP flags (override config if set)
	flagHTTPTimeoutSec   int
	flagRetryMaxAttempts int
	flagRetryBaseDelayMs int
	flagRetryMaxDelayMs  int

	// Loaded configuration
	cfg *cfgpkg.Global
)

var rootCmd = &cobra.Command{
	Use:   "sweepq",
	Short: "SweepQ CLI: query and analyze parametric sweep exports",
	Long: `SweepQ loads simulator CSV exports where each column pair holds one (X,Y)
series of a parametric sweep, and answers nearest-sample queries, error
statistics, and parameter searches across the swept series.`,
}

// Execute is the entry point called by main.main()
func Execute() {
	// Initialize configuration before executing commands
	cobra.OnInitialize(loadConfig)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		os.Exit(1)
	}
}

func init() {
	// Persistent global flags available to all subcommands
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.sweepq/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&flagGrammar, "grammar", "", "header grammar: auto, paren, or suffix (overrides config)")
	rootCmd.PersistentFlags().BoolVar(&flagAssumeSorted, "assume-sorted", true, "assume each series is sorted by X (overrides config)")
	rootCmd.PersistentFlags().BoolVar(&flagLowMemory, "low-memory", false, "stream the CSV instead of slurping it (overrides config)")
	rootCmd.PersistentFlags().IntVar(&flagWorkers, "workers", 0, "goroutines for whole-index scans, 0 = serial (overrides config)")
	rootCmd.PersistentFlags().IntVar(&flagHTTPTimeoutSec, "http-timeout", 0, "HTTP client timeout in seconds (overrides config)")
	rootCmd.PersistentFlags().IntVar(&flagRetryMaxAttempts, "retry-max", 0, "max retry attempts on 429/5xx (overrides config)")
	rootCmd.PersistentFlags().IntVar(&flagRetryBaseDelayMs, "retry-base-ms", 0, "base retry backoff in ms (overrides config)")
	rootCmd.PersistentFlags().IntVar(&flagRetryMaxDelayMs, "retry-max-ms", 0, "max retry backoff cap in ms (overrides config)")
}

func loadConfig() {
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		// Non-fatal: allow running commands that don't need config
		fmt.Fprintf(os.Stderr, "⚠ Warning: failed to load config: %v\n", err)
		return
	}
	cfg = c

	// Apply CLI overrides if provided
	f := rootCmd.PersistentFlags()
	if f.Changed("grammar") && flagGrammar != "" {
		cfg.Grammar = flagGrammar
	}
	if f.Changed("assume-sorted") {
		cfg.AssumeSorted = flagAssumeSorted
	}
	if f.Changed("low-memory") {
		cfg.LowMemory = flagLowMemory
	}
	if f.Changed("workers") && flagWorkers > 0 {
		cfg.Workers = flagWorkers
	}
	if f.Changed("http-timeout") && flagHTTPTimeoutSec > 0 {
		cfg.HTTPTimeoutSec = flagHTTPTimeoutSec
	}
	if f.Changed("retry-max") && flagRetryMaxAttempts > 0 {
		cfg.RetryMaxAttempts = flagRetryMaxAttempts
	}
	if f.Changed("retry-base-ms") && flagRetryBaseDelayMs > 0 {
		cfg.RetryBaseDelayMs = flagRetryBaseDelayMs
	}
	if f.Changed("retry-max-ms") && flagRetryMaxDelayMs > 0 {
		cfg.RetryMaxDelayMs = flagRetryMaxDelayMs
	}
}
