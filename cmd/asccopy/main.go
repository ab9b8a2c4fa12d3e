package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"

	infra_config "github.com/robwilkens/AppStireCopyDesctoNewVersionScript/internal/infra/config"
	"github.com/robwilkens/AppStireCopyDesctoNewVersionScript/internal/wiring"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg, err := infra_config.Load(os.Getenv("ASCCOPY_CONFIG_PATH"))
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return 1
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Log.Level)); err != nil {
		level = slog.LevelInfo
	}
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})).
		With("run_id", uuid.NewString(), "version", cfg.ServiceVersion)

	logger.InfoContext(ctx, "starting description copy",
		"source_state", cfg.Copy.SourceState,
		"target_state", cfg.Copy.TargetState,
		"dry_run", cfg.Copy.DryRun,
		"aws", cfg.NeedsAWS(),
	)

	deps, err := wiring.ProvideDependencies(ctx, cfg, logger)
	if err != nil {
		logger.ErrorContext(ctx, "failed to initialise", "error", err)
		return 1
	}

	report, err := deps.Copier.Run(ctx)
	if report == nil {
		logger.ErrorContext(ctx, "failed to fetch apps", "error", err)
		return 1
	}
	if err != nil {
		logger.WarnContext(ctx, "run interrupted", "error", err)
	}

	if err := deps.Dump.Write(ctx, report.RawApps); err != nil {
		logger.ErrorContext(ctx, "failed to write dump", "error", err)
	}

	report.LogSummary(ctx, logger)

	if err != nil || report.HasFailures() {
		return 1
	}
	return 0
}
