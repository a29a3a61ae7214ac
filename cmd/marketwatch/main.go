// Command marketwatch runs the market steward. It observes markets via the
// API and halts any market whose price index moves too far in one sample.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jamesperreaultdev/Nascraft/internal/config"
	"github.com/jamesperreaultdev/Nascraft/internal/watch"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	env, err := config.LoadWatchEnv()
	if err != nil {
		slog.Error("failed to read environment", "error", err)
		os.Exit(1)
	}
	if env.AdminKey == "" && !env.DryRun {
		slog.Error("NASCRAFT_ADMIN_KEY is required unless NASCRAFT_WATCH_DRY_RUN is set")
		os.Exit(1)
	}

	slog.Info("market steward starting",
		"api_url", env.APIURL,
		"interval", env.Interval,
		"threshold", env.Threshold,
		"dry_run", env.DryRun,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	steward := &watch.Steward{
		Observer:  watch.NewObserver(env.APIURL),
		Actor:     watch.NewActor(env.APIURL, env.AdminKey),
		Threshold: env.Threshold,
		DryRun:    env.DryRun,
	}

	slog.Info("waiting for market API...")
	if err := steward.Observer.WaitReady(ctx, 5*time.Minute); err != nil {
		slog.Error("market API unavailable", "error", err)
		os.Exit(1)
	}

	steward.Run(ctx, env.Interval)
	slog.Info("steward stopped")
}
