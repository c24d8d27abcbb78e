package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"time"
)

// CLIConfig holds command-line configuration
type CLIConfig struct {
	ConfigPath      string
	LogLevel        string
	LogFormat       string
	Debug           bool
	ShutdownTimeout time.Duration
	ShowVersion     bool
	ShowHelp        bool
	Validate        bool
	PrintConfig     bool
	WriteConfig     string
}

func parseFlags(fs *flag.FlagSet, args []string) (*CLIConfig, error) {
	cfg := &CLIConfig{}

	// Define flags with environment variable fallback
	fs.StringVar(&cfg.ConfigPath, "config",
		getEnv("RINGWATCH_CONFIG", ""),
		"Path to a JSON or YAML configuration file; built-in defaults when empty (env: RINGWATCH_CONFIG)")

	fs.StringVar(&cfg.ConfigPath, "c",
		getEnv("RINGWATCH_CONFIG", ""),
		"Path to configuration file (env: RINGWATCH_CONFIG)")

	fs.StringVar(&cfg.LogLevel, "log-level",
		getEnv("RINGWATCH_LOG_LEVEL", "info"),
		"Log level: debug, info, warn, error (env: RINGWATCH_LOG_LEVEL)")

	fs.StringVar(&cfg.LogFormat, "log-format",
		getEnv("RINGWATCH_LOG_FORMAT", "json"),
		"Log format: json, text (env: RINGWATCH_LOG_FORMAT)")

	fs.BoolVar(&cfg.Debug, "debug",
		getEnvBool("RINGWATCH_DEBUG", false),
		"Enable debug logging (env: RINGWATCH_DEBUG)")

	fs.DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout",
		getEnvDuration("RINGWATCH_SHUTDOWN_TIMEOUT", 10*time.Second),
		"Graceful shutdown timeout (env: RINGWATCH_SHUTDOWN_TIMEOUT)")

	fs.BoolVar(&cfg.ShowVersion, "version", false, "Show version information")
	fs.BoolVar(&cfg.ShowVersion, "v", false, "Show version information")
	fs.BoolVar(&cfg.ShowHelp, "help", false, "Show help information")
	fs.BoolVar(&cfg.ShowHelp, "h", false, "Show help information")
	fs.BoolVar(&cfg.Validate, "validate", false, "Validate configuration and exit")
	fs.BoolVar(&cfg.PrintConfig, "print-config", false, "Print the effective configuration as YAML and exit")
	fs.StringVar(&cfg.WriteConfig, "write-config", "", "Write the effective configuration to a .json or .yaml file and exit")

	fs.Usage = func() {
		printDetailedHelp(fs.Output(), fs)
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if cfg.Debug {
		cfg.LogLevel = "debug"
	}

	return cfg, nil
}

func validateFlags(cfg *CLIConfig) error {
	if cfg.ShowVersion || cfg.ShowHelp {
		return nil
	}

	if cfg.ConfigPath != "" {
		if _, err := os.Stat(cfg.ConfigPath); err != nil {
			return fmt.Errorf("config file not found: %s", cfg.ConfigPath)
		}
	}

	if !slices.Contains([]string{"debug", "info", "warn", "error"}, cfg.LogLevel) {
		return fmt.Errorf("invalid log level: %s", cfg.LogLevel)
	}

	if !slices.Contains([]string{"json", "text"}, cfg.LogFormat) {
		return fmt.Errorf("invalid log format: %s", cfg.LogFormat)
	}

	if cfg.ShutdownTimeout <= 0 {
		return fmt.Errorf("invalid shutdown timeout: %v", cfg.ShutdownTimeout)
	}

	return nil
}

func printDetailedHelp(w io.Writer, fs *flag.FlagSet) {
	_, _ = fmt.Fprintf(w, `%s - sliding window statistics over a bounded sample stream

Usage: %s [options]

Options:
`, appName, appName)
	fs.SetOutput(w)
	fs.PrintDefaults()
	_, _ = fmt.Fprintf(w, `
Examples:
  # Synthetic random walk with built-in defaults
  %[1]s --log-format=text

  # Summarize numbers piped on stdin
  seq 1 1000 | RINGWATCH_SAMPLER_SOURCE=stdin %[1]s --config=ringwatch.yaml

  # Validate configuration only
  %[1]s --config=ringwatch.yaml --validate

  # Capture defaults plus environment overrides as a starting config file
  RINGWATCH_BUFFER_CAPACITY=4096 %[1]s --write-config=ringwatch.yaml

Send SIGHUP to reload the report interval and sampler rate from the config file.

Version: %[2]s
Build: %[3]s
`, appName, Version, BuildTime)
}

// Environment variable helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
