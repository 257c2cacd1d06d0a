package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/sdkloader/internal/harness"
	"github.com/GriffinCanCode/AgentOS/sdkloader/internal/infrastructure/config"
	"github.com/GriffinCanCode/AgentOS/sdkloader/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AgentOS/sdkloader/internal/lifecycle"
	"github.com/GriffinCanCode/AgentOS/sdkloader/internal/loader"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run loads the requested modules and returns the process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	cfg := config.LoadOrDefault()

	fs := flag.NewFlagSet("sdkrun", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&cfg.Loader.Root, "root", cfg.Loader.Root, "Module root directory or .zip/.xpi pack")
	fs.StringVar(&cfg.Loader.Manifest, "manifest", cfg.Loader.Manifest, "Manifest file (.json, .yaml, .toml)")
	fs.StringVar(&cfg.Loader.ID, "id", cfg.Loader.ID, "Loader instance id")
	fs.StringVar(&cfg.Loader.Name, "name", cfg.Loader.Name, "Loader name")
	fs.BoolVar(&cfg.Logging.Development, "dev", cfg.Logging.Development, "Development logging")
	all := fs.Bool("all", false, "Load every module in the manifest preload set")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if fs.NArg() == 0 && !*all {
		fmt.Fprintln(stderr, "usage: sdkrun [flags] module-id...")
		fs.PrintDefaults()
		return 2
	}

	logger, err := cfg.NewLogger()
	if err != nil {
		fmt.Fprintf(stderr, "invalid logging configuration: %v\n", err)
		return 1
	}
	defer func() { _ = logger.Sync() }()

	profile, err := cfg.Profile()
	if err != nil {
		logger.Error("Failed to resolve loader profile", zap.Error(err))
		return 1
	}
	defer func() { _ = profile.Close() }()

	tracker := lifecycle.NewTracker(lifecycle.WithLogger(logger))
	defer tracker.Close("shutdown")

	factory := harness.NewFactory(
		harness.WithProfile(profile),
		harness.WithLogger(logger),
		harness.WithMetrics(monitoring.Default()),
		harness.WithTracker(tracker),
	)

	h, err := factory.NewWithPlainTextConsole(&loader.Module{ID: "sdkrun"}, func(line string) {
		_, _ = io.WriteString(stdout, line)
	})
	if err != nil {
		logger.Error("Failed to create loader", zap.Error(err))
		return 1
	}
	defer func() { _ = h.Unload("shutdown") }()

	if *all {
		if err := h.Preload(); err != nil {
			logger.Error("Preload failed", zap.Error(err))
			return 1
		}
	}

	for _, id := range fs.Args() {
		if _, err := h.Require(id); err != nil {
			logger.Error("Failed to load module", zap.String("id", id), zap.Error(err))
			return 1
		}
	}

	logger.Debug("modules loaded",
		zap.String("loader", h.ID),
		zap.Int("modules", len(h.Loaded())),
		zap.Int("messages", h.Messages.Len()))
	return 0
}
