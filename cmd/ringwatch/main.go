// Package main implements ringwatch, which keeps a bounded sliding window over a
// stream of numeric samples and periodically reports summary statistics.
package main

import (
	"context"
	stderrors "errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/c360/ringbuff/config"
)

// Build information constants
const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "ringwatch"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := run(os.Args[1:]); err != nil {
		slog.Error("Application failed", "error", err, "exit_code", 1)
		os.Exit(1)
	}
}

func run(args []string) error {
	cliCfg, logger, shouldExit, err := initializeCLI(args)
	if shouldExit || err != nil {
		return err
	}

	loader := newConfigLoader(cliCfg.ConfigPath)
	cfg, err := loader.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if cliCfg.Validate {
		logger.Info("Configuration is valid")
		return nil
	}
	if cliCfg.PrintConfig {
		fmt.Print(cfg.String())
		return nil
	}
	if cliCfg.WriteConfig != "" {
		if err := cfg.SaveToFile(cliCfg.WriteConfig); err != nil {
			return fmt.Errorf("write config: %w", err)
		}
		logger.Info("Configuration written", "path", cliCfg.WriteConfig)
		return nil
	}

	p, err := newPipeline(cfg, os.Stdin, logger)
	if err != nil {
		return err
	}

	return runWithSignalHandling(context.Background(), p, loader, cliCfg.ShutdownTimeout)
}

// initializeCLI parses flags and sets up logging
func initializeCLI(args []string) (*CLIConfig, *slog.Logger, bool, error) {
	fs := flag.NewFlagSet(appName, flag.ContinueOnError)
	cliCfg, err := parseFlags(fs, args)
	if err != nil {
		if stderrors.Is(err, flag.ErrHelp) {
			return nil, nil, true, nil
		}
		return nil, nil, false, fmt.Errorf("parse flags: %w", err)
	}
	if err := validateFlags(cliCfg); err != nil {
		return nil, nil, false, fmt.Errorf("invalid flags: %w", err)
	}

	if cliCfg.ShowVersion {
		fmt.Printf("%s version %s (build %s)\n", appName, Version, BuildTime)
		return nil, nil, true, nil
	}

	if cliCfg.ShowHelp {
		printDetailedHelp(os.Stdout, fs)
		return nil, nil, true, nil
	}

	logger := setupLogger(os.Stdout, cliCfg.LogLevel, cliCfg.LogFormat)
	slog.SetDefault(logger)

	logger.Info("Starting ringwatch",
		"version", Version,
		"build_time", BuildTime,
		"config_path", cliCfg.ConfigPath)

	return cliCfg, logger, false, nil
}

func newConfigLoader(path string) *config.Loader {
	loader := config.NewLoader()
	if path != "" {
		loader.AddLayer(path)
	}
	loader.EnableValidation(true)
	return loader
}

// runWithSignalHandling runs the pipeline until SIGINT or SIGTERM, or until a
// finite source is exhausted, and then waits up to shutdownTimeout for it to stop.
func runWithSignalHandling(ctx context.Context, p *pipeline, loader *config.Loader, shutdownTimeout time.Duration) error {
	signalCtx, signalCancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer signalCancel()

	runCtx, cancel := context.WithCancel(signalCtx)
	defer cancel()

	var g errgroup.Group
	g.Go(func() error { return p.watchReload(runCtx, loader) })

	done := make(chan error, 1)
	go func() {
		err := p.run(runCtx)
		cancel()
		done <- err
	}()

	p.logger.Info("ringwatch started",
		"source", p.source,
		"buffer_capacity", p.buf.Capacity(),
		"window_capacity", p.win.Cap())

	var err error
	select {
	case err = <-done:
	case <-signalCtx.Done():
		p.logger.Info("Received shutdown signal")
		select {
		case err = <-done:
		case <-time.After(shutdownTimeout):
			// A blocked stdin read cannot be interrupted. Report what made it
			// into the buffer and leave the reader behind.
			p.logger.Warn("Graceful shutdown timed out, abandoning sample source",
				"timeout", shutdownTimeout)
			p.finish()
		}
	}

	_ = g.Wait()
	if err != nil {
		return err
	}

	p.logger.Info("ringwatch shutdown complete")
	return nil
}
