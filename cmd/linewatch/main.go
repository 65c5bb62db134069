// Package main implements the entry point for the linewatch daemon.
// Linewatch consumes a line-delimited JSON sensor feed over TCP, maintains
// latest-value state per sensor, evaluates alarm criteria against every
// update and fans the resulting alarm events out to webhooks, NATS and an
// HTTP/websocket API.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	goruntime "runtime"
	"syscall"

	"github.com/c360/linewatch/config"
	"github.com/c360/linewatch/runtime"
)

// Build information constants
const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "linewatch"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := goruntime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := run(); err != nil {
		slog.Error("Application failed", "error", err, "exit_code", 1)
		os.Exit(1)
	}
}

func run() error {
	cliCfg := parseFlags()
	if err := validateFlags(cliCfg); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}

	if cliCfg.ShowVersion {
		fmt.Printf("%s version %s\n", appName, Version)
		return nil
	}
	if cliCfg.ShowHelp {
		printDetailedHelp()
		return nil
	}

	logger := setupLogger(cliCfg.LogLevel, cliCfg.LogFormat)
	slog.SetDefault(logger)

	slog.Info("Starting linewatch",
		"version", Version,
		"build_time", BuildTime,
		"config_path", cliCfg.ConfigPath)

	cfg, err := loadConfig(cliCfg)
	if err != nil {
		return err
	}
	if cliCfg.APIAddr != "" {
		cfg.API.Addr = cliCfg.APIAddr
	}

	if cliCfg.Validate {
		slog.Info("Configuration is valid")
		return nil
	}

	supervisor, err := runtime.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("build pipeline: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	slog.Info("linewatch started",
		"feed", cfg.Transport.TCPClient.Addr(),
		"api_enabled", cfg.API.Enabled,
		"webhook_enabled", cfg.Notifications.Webhook.Enabled(),
		"nats_enabled", cfg.Bridge.NATS.Enabled())

	if err := supervisor.Run(ctx); err != nil {
		return fmt.Errorf("run pipeline: %w", err)
	}

	slog.Info("linewatch shutdown complete")
	return nil
}

// loadConfig layers defaults, the optional config file and LINEWATCH_*
// environment overrides. No file means built-in defaults.
func loadConfig(cliCfg *CLIConfig) (*config.Config, error) {
	loader := config.NewLoader()
	if cliCfg.ConfigPath == "" {
		cfg, err := loader.Load()
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		return cfg, nil
	}

	cfg, err := loader.LoadFile(cliCfg.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", cliCfg.ConfigPath, err)
	}
	return cfg, nil
}
