// Command marketsim runs the market pricing engine and its HTTP API.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/jamesperreaultdev/Nascraft/internal/api"
	"github.com/jamesperreaultdev/Nascraft/internal/config"
	"github.com/jamesperreaultdev/Nascraft/internal/engine"
	"github.com/jamesperreaultdev/Nascraft/internal/persistence"
)

const shutdownTimeout = 30 * time.Second

func main() {
	env, err := config.LoadEnv()
	if err != nil {
		slog.Error("failed to read environment", "error", err)
		os.Exit(1)
	}

	cfg, err := config.Load(env.ConfigPath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		cfg = config.Default()
		slog.Warn("config file not found, using defaults", "path", env.ConfigPath)
	case err != nil:
		slog.Error("failed to load config", "path", env.ConfigPath, "error", err)
		os.Exit(1)
	}
	slog.SetDefault(cfg.Log.NewLogger())

	slog.Info("Nascraft market engine",
		"items", len(cfg.Items),
		"categories", len(cfg.Categories),
		"stock", cfg.Market.StockEnabled,
		"noise", cfg.Noise.Enabled,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Database ──────────────────────────────────────────────────────
	if env.DBDriver == "sqlite" {
		os.MkdirAll(filepath.Dir(env.DBDSN), 0755)
	}
	store, err := persistence.Open(ctx, env.DBDriver, env.DBDSN)
	if err != nil {
		slog.Error("failed to open database", "driver", env.DBDriver, "error", err)
		os.Exit(1)
	}
	defer store.Close()
	slog.Info("database opened", "driver", env.DBDriver)

	// ── Markets ───────────────────────────────────────────────────────
	sim := engine.NewSimulation(cfg, store, engine.Options{MarketsPath: env.MarketsPath})
	if err := sim.Start(ctx); err != nil {
		slog.Error("failed to start markets", "error", err)
		os.Exit(1)
	}

	// ── HTTP API ──────────────────────────────────────────────────────
	if env.AdminKey == "" {
		slog.Warn("NASCRAFT_ADMIN_KEY not set, admin POST endpoints will be disabled")
	}
	apiServer := &api.Server{
		Sim:      sim,
		Port:     env.APIPort,
		AdminKey: env.AdminKey,
	}
	apiServer.Start()

	// ── Start ─────────────────────────────────────────────────────────
	status := sim.Status()
	fmt.Printf("\nNascraft is open: %d items across %d markets.\n", status.Items, status.Markets)
	fmt.Printf("API: http://localhost:%d/api/v1/status\n", env.APIPort)
	if status.Tick > 0 {
		fmt.Printf("Resuming from tick %d (%s)\n", status.Tick, status.SimTime)
	}
	fmt.Println("Starting simulation... (Ctrl+C to stop)")

	if err := sim.Run(ctx); err != nil {
		slog.Error("simulation stopped", "error", err)
	}
	slog.Info("received signal, shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP shutdown failed", "error", err)
	}
	if err := sim.Shutdown(shutdownCtx); err != nil {
		slog.Error("final save failed", "error", err)
	}

	fmt.Println("Markets closed. State saved.")
}
