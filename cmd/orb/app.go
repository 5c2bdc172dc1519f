package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/orb-chat/orb/internal/channel/discord"
	"github.com/orb-chat/orb/internal/config"
	"github.com/orb-chat/orb/internal/history"
	"github.com/orb-chat/orb/internal/history/sqlitekv"
	"github.com/orb-chat/orb/internal/maintenance"
	"github.com/orb-chat/orb/internal/memory"
	"github.com/orb-chat/orb/internal/observability"
	"github.com/orb-chat/orb/internal/ops"
	"github.com/orb-chat/orb/internal/provider/openrouter"
	"github.com/orb-chat/orb/internal/relay"
	"github.com/orb-chat/orb/internal/telemetry"
	"github.com/orb-chat/orb/internal/tool"
)

// runApp wires all components and blocks until a shutdown signal.
func runApp(ctx context.Context, cfg *config.Config) error {
	logger := newLogger(cfg.LogLevel)
	startedAt := time.Now()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTraces, err := telemetry.Setup(ctx, telemetry.Config{
		Endpoint:    cfg.Telemetry.Endpoint,
		SampleRatio: cfg.Telemetry.SampleRatio,
	})
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTraces(flushCtx); err != nil {
			logger.Warn("trace flush failed", "error", err)
		}
	}()

	metrics := observability.NewMetrics("orb")

	// Storage.
	kv, err := sqlitekv.Open(cfg.History.Path)
	if err != nil {
		return err
	}
	defer kv.Close()

	memStore := memory.NewStore(cfg.Memory.Dir, cfg.Memory.MaxChars)
	if err := memStore.EnsureDirs(); err != nil {
		return err
	}
	composer := memory.NewComposer(cfg.Memory.CorePromptPath, memStore)

	hist := history.NewStore(kv, history.Limits{
		MaxTurns: cfg.History.MaxTurns,
		MaxChars: cfg.History.MaxChars,
	}, composer.CorePrompt, logger)
	hist.SetEvictionObserver(metrics.ObserveEvictions)

	// Completion provider with the memory tools wired in.
	llm := openrouter.New(openrouter.Config{
		BaseURL: cfg.Provider.BaseURL,
		APIKey:  cfg.Provider.APIKey,
		Model:   cfg.Provider.Model,
		Referer: cfg.Provider.Referer,
		Title:   cfg.Provider.Title,
	}, logger, metrics)

	merger := memory.NewMerger(llm, cfg.Provider.WorkerModel, cfg.Memory.MaxChars)
	llm.SetToolRunner(tool.NewExecutor(memStore, merger, logger, metrics))

	// Channel and relay.
	ch := discord.New(discord.Config{Token: cfg.Discord.Token}, logger)
	handler := relay.NewHandler(ch, hist, composer, llm, tool.Definitions(), logger, metrics)
	ch.SetHandler(handler)

	// Ops surface.
	var opsServer *ops.Server
	if cfg.Ops.Addr != "" {
		opsServer = ops.New(cfg.Ops.Addr, func() ops.Status {
			return ops.Status{
				Status:    "ok",
				StartedAt: startedAt,
				Model:     cfg.Provider.Model,
				Connected: ch.Connected(),
			}
		}, logger)
		opsServer.Start()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := opsServer.Shutdown(shutdownCtx); err != nil {
				logger.Warn("ops shutdown failed", "error", err)
			}
		}()
	}

	// Background maintenance.
	if cfg.Maintenance.VacuumSchedule != "" {
		scheduler := maintenance.NewScheduler(logger)
		if err := scheduler.RegisterJob(maintenance.NewVacuumJob(kv, cfg.Maintenance.VacuumSchedule)); err != nil {
			return err
		}
		if err := scheduler.Start(); err != nil {
			return err
		}
		defer func() {
			if err := scheduler.Stop(context.Background()); err != nil {
				logger.Warn("scheduler stop failed", "error", err)
			}
		}()
	}

	logger.Info("starting",
		"version", version,
		"model", cfg.Provider.Model,
		"worker_model", cfg.Provider.WorkerModel,
	)

	err = ch.Start(ctx)
	if ctx.Err() != nil {
		logger.Info("shutting down")
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := ch.Stop(stopCtx); err != nil {
			logger.Warn("channel stop failed", "error", err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("gateway terminated: %w", err)
	}
	return nil
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
