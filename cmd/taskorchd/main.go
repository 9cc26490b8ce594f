// Command taskorchd is the task-orchestration server's process entrypoint:
// it wires configuration, the note schema service, the SQLite store, the
// transition handler, and the JSON-RPC tool server together, then runs
// until a shutdown signal arrives. Grounded on the teacher's cmd/bd/main.go
// top-level wiring order (config before storage, storage before the RPC
// server), generalized from a cobra command tree to a single stdio loop
// since this server has exactly one mode.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/jpicklyk/task-orchestrator/internal/config"
	"github.com/jpicklyk/task-orchestrator/internal/lifecycle"
	"github.com/jpicklyk/task-orchestrator/internal/metrics"
	"github.com/jpicklyk/task-orchestrator/internal/schema"
	"github.com/jpicklyk/task-orchestrator/internal/storage/sqlite"
	"github.com/jpicklyk/task-orchestrator/internal/toolserver"
	"github.com/jpicklyk/task-orchestrator/internal/workflow"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal startup failure", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.Load()

	logLevel := slog.LevelInfo
	if cfg.LogLevel == "debug" {
		logLevel = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(log)

	coord := lifecycle.New(log)
	defer coord.Stop()

	if path, err := config.FindConfigYaml(cfg.AgentConfigDir); err == nil {
		fc, err := config.LoadFileConfig(path)
		if err != nil {
			return fmt.Errorf("load config.yaml: %w", err)
		}
		fc.Apply(cfg)
		return runServer(coord, cfg, schema.Load(fc, log), log)
	}

	log.Info("no .taskorchestrator/config.yaml found, running schema-free")
	return runServer(coord, cfg, schema.Load(nil, log), log)
}

func runServer(coord *lifecycle.Coordinator, cfg *config.Config, schemaSvc *schema.Service, log *slog.Logger) error {
	ctx := coord.Context()
	store, err := sqlite.Open(ctx, cfg.DatabasePath, sqlite.Options{
		MaxConnections: cfg.DatabaseMaxConns,
		ShowSQL:        cfg.DatabaseShowSQL,
		Logger:         log,
	})
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error("close database", "error", err)
		}
	}()

	recorder, err := metrics.New(cfg.LogLevel == "debug")
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), lifecycle.DrainTimeout)
		defer cancel()
		if err := recorder.Shutdown(shutdownCtx); err != nil {
			log.Error("shutdown metrics", "error", err)
		}
	}()

	handler := workflow.NewHandler(store, schemaSvc, cfg, recorder)
	server := toolserver.New(store, handler, schemaSvc, cfg, recorder, log)

	done := make(chan struct{})
	var runErr error
	go func() {
		defer close(done)
		runErr = server.Run(ctx, os.Stdin, os.Stdout)
	}()

	<-ctx.Done()
	log.Info("shutdown signal received, draining in-flight requests")
	coord.AwaitDrain(done)

	return runErr
}
