package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/KaramelBytes/sweepq/internal/utils"
)

// Global configuration structure.
type Global struct {
	// CSV loading
	Grammar      string `mapstructure:"grammar" yaml:"grammar"`
	AssumeSorted bool   `mapstructure:"assume_sorted" yaml:"assume_sorted"`
	LowMemory    bool   `mapstructure:"low_memory" yaml:"low_memory"`

	// Workers caps the goroutines used by whole-index error scans.
	Workers int `mapstructure:"workers" yaml:"workers"`

	// Simulation database
	DBPath string `mapstructure:"db_path" yaml:"db_path"`

	// Assistant
	APIKey             string  `mapstructure:"api_key" yaml:"api_key"`
	APIKeyFile         string  `mapstructure:"api_key_file" yaml:"api_key_file"`
	BaseURL            string  `mapstructure:"base_url" yaml:"base_url"`
	Model              string  `mapstructure:"model" yaml:"model"`
	MaxTokens          int     `mapstructure:"max_tokens" yaml:"max_tokens"`
	Temperature        float64 `mapstructure:"temperature" yaml:"temperature"`
	HistoryTokenBudget int     `mapstructure:"history_token_budget" yaml:"history_token_budget"`

	// HTTP/Retry configuration
	HTTPTimeoutSec   int `mapstructure:"http_timeout_sec" yaml:"http_timeout_sec"`
	RetryMaxAttempts int `mapstructure:"retry_max_attempts" yaml:"retry_max_attempts"`
	RetryBaseDelayMs int `mapstructure:"retry_base_delay_ms" yaml:"retry_base_delay_ms"`
	RetryMaxDelayMs  int `mapstructure:"retry_max_delay_ms" yaml:"retry_max_delay_ms"`

	// Plot output
	PlotFormat string `mapstructure:"plot_format" yaml:"plot_format"`
}

// DefaultPath returns the default config file location, ~/.sweepq/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".sweepq", "config.yaml"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is
// empty, it writes to ~/.sweepq/config.yaml, creating the directory if
// necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return err
		}
		if err := utils.EnsureDir(filepath.Dir(p)); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = p
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := utils.SafeWriteFile(path, b); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: flags (cfgFile) > env > config file > defaults.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("SWEEPQ")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("grammar", "auto")
	v.SetDefault("assume_sorted", true)
	v.SetDefault("low_memory", false)
	v.SetDefault("workers", 0)
	v.SetDefault("api_key_file", "key")
	v.SetDefault("base_url", "https://api.openai.com/v1")
	v.SetDefault("model", "gpt-4o")
	v.SetDefault("max_tokens", 4096)
	v.SetDefault("temperature", 0.7)
	v.SetDefault("history_token_budget", 24000)
	// HTTP/retry defaults
	v.SetDefault("http_timeout_sec", 60)
	v.SetDefault("retry_max_attempts", 3)
	v.SetDefault("retry_base_delay_ms", 500)
	v.SetDefault("retry_max_delay_ms", 4000)
	v.SetDefault("plot_format", "html")

	// Config file
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home dir: %w", err)
		}
		dir := filepath.Join(home, ".sweepq")
		_ = os.MkdirAll(dir, 0o755)
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	// optional read
	_ = v.ReadInConfig()

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	// Resolve db_path default: ~/.sweepq/sweeps.db
	if c.DBPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home dir: %w", err)
		}
		c.DBPath = filepath.Join(home, ".sweepq", "sweeps.db")
	}
	return &c, nil
}

// ResolveAPIKey returns the assistant API key, trying in order: the key file
// (searched upward from the working directory), the OPENAI_API_KEY
// environment variable, and the configured api_key.
func (c *Global) ResolveAPIKey() (string, error) {
	if c.APIKeyFile != "" {
		if path, err := utils.FindUp("", c.APIKeyFile); err == nil {
			b, err := os.ReadFile(path)
			if err != nil {
				return "", fmt.Errorf("read key file: %w", err)
			}
			if key := strings.TrimSpace(string(b)); key != "" {
				return key, nil
			}
		}
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		return key, nil
	}
	if c.APIKey != "" {
		return c.APIKey, nil
	}
	return "", fmt.Errorf("API key not found: place it in a %q file, set OPENAI_API_KEY, or set api_key in the config", c.APIKeyFile)
}
