package main

import (
	"flag"
	"fmt"
	"os"
)

// CLIConfig holds command-line configuration
type CLIConfig struct {
	ConfigPath  string
	LogLevel    string
	LogFormat   string
	APIAddr     string
	Debug       bool
	ShowVersion bool
	ShowHelp    bool
	Validate    bool
}

func parseFlags() *CLIConfig {
	cfg := &CLIConfig{}

	// Define flags with environment variable fallback
	flag.StringVar(&cfg.ConfigPath, "config",
		getEnv("LINEWATCH_CONFIG", ""),
		"Path to configuration file, empty for built-in defaults (env: LINEWATCH_CONFIG)")

	flag.StringVar(&cfg.ConfigPath, "c",
		getEnv("LINEWATCH_CONFIG", ""),
		"Path to configuration file, empty for built-in defaults (env: LINEWATCH_CONFIG)")

	flag.StringVar(&cfg.LogLevel, "log-level",
		getEnv("LINEWATCH_LOG_LEVEL", "info"),
		"Log level: debug, info, warn, error (env: LINEWATCH_LOG_LEVEL)")

	flag.StringVar(&cfg.LogFormat, "log-format",
		getEnv("LINEWATCH_LOG_FORMAT", "json"),
		"Log format: json, text (env: LINEWATCH_LOG_FORMAT)")

	flag.StringVar(&cfg.APIAddr, "api-addr",
		getEnv("LINEWATCH_API_ADDR", ""),
		"API listen address override, e.g. :9090 (env: LINEWATCH_API_ADDR)")

	flag.BoolVar(&cfg.Debug, "debug",
		getEnvBool("LINEWATCH_DEBUG", false),
		"Enable debug mode (env: LINEWATCH_DEBUG)")

	flag.BoolVar(&cfg.ShowVersion, "version", false, "Show version information")
	flag.BoolVar(&cfg.ShowVersion, "v", false, "Show version information")
	flag.BoolVar(&cfg.ShowHelp, "help", false, "Show help information")
	flag.BoolVar(&cfg.ShowHelp, "h", false, "Show help information")
	flag.BoolVar(&cfg.Validate, "validate", false, "Validate configuration and exit")

	flag.Usage = printDetailedHelp

	flag.Parse()

	// Override log level if debug is set
	if cfg.Debug {
		cfg.LogLevel = "debug"
	}

	return cfg
}

func validateFlags(cfg *CLIConfig) error {
	// Skip validation for special flags
	if cfg.ShowVersion || cfg.ShowHelp {
		return nil
	}

	// An explicit config path must exist; empty means built-in defaults.
	if cfg.ConfigPath != "" {
		if _, err := os.Stat(cfg.ConfigPath); err != nil {
			return fmt.Errorf("config file not found: %s", cfg.ConfigPath)
		}
	}

	validLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLevels, cfg.LogLevel) {
		return fmt.Errorf("invalid log level: %s", cfg.LogLevel)
	}

	validFormats := []string{"json", "text"}
	if !contains(validFormats, cfg.LogFormat) {
		return fmt.Errorf("invalid log format: %s", cfg.LogFormat)
	}

	return nil
}

func printDetailedHelp() {
	_, _ = fmt.Fprintf(os.Stderr, `%s - Industrial Sensor Alarm Processor

Usage: %s [options]

Options:
`, appName, os.Args[0])
	flag.PrintDefaults()
	_, _ = fmt.Fprintf(os.Stderr, `
Examples:
  # Run with the built-in sensor set
  %s

  # Run with custom config
  %s --config=/etc/linewatch/config.json

  # Run with debug logging
  %s --log-level=debug --log-format=text

  # Run with environment variables
  export LINEWATCH_CONFIG=/etc/linewatch/config.json
  export LINEWATCH_TCP_HOST=10.0.0.5
  %s

  # Validate configuration only
  %s --config=/etc/linewatch/config.json --validate

Version: %s
Build: %s
`, os.Args[0], os.Args[0], os.Args[0], os.Args[0], os.Args[0], Version, BuildTime)
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
		switch value {
		case "1", "t", "T", "true", "TRUE", "True":
			return true
		case "0", "f", "F", "false", "FALSE", "False":
			return false
		}
	}
	return defaultValue
}

// Utility function to check if slice contains string
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
