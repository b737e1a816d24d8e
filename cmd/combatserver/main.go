package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/udisondev/qimud/internal/api"
	"github.com/udisondev/qimud/internal/config"
	"github.com/udisondev/qimud/internal/data"
	"github.com/udisondev/qimud/internal/db"
	"github.com/udisondev/qimud/internal/game/combat"
	"github.com/udisondev/qimud/internal/game/dice"
	"github.com/udisondev/qimud/internal/message"
	"github.com/udisondev/qimud/internal/telemetry"
)

const (
	ConfigPath      = "config/combatserver.yaml"
	shutdownTimeout = 10 * time.Second
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("shutting down", "signal", sig)
		cancel()
	}()

	if err := run(ctx); err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfgPath := ConfigPath
	if p := os.Getenv("QIMUD_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.LoadServer(cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	})))
	slog.Info("qimud combat server starting", "log_level", cfg.LogLevel, "config", cfgPath)

	shutdownTracing, err := telemetry.Setup(ctx, cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("setting up telemetry: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			slog.Error("flushing traces", "error", err)
		}
	}()

	catalog, err := data.LoadCatalogFile(cfg.SkillsPath)
	if err != nil {
		return fmt.Errorf("loading skills: %w", err)
	}
	slog.Info("skills loaded", "count", catalog.Len(), "path", cfg.SkillsPath)

	hub := message.NewHub(cfg.SendQueueSize, cfg.WriteTimeout)
	defer hub.Close()

	deps := combat.Deps{
		Catalog: catalog,
		Sink:    message.Fanout{hub, message.LogSink{Logger: slog.Default()}},
		Rand:    dice.Default(),
	}

	if cfg.Database.Enabled() {
		dsn := cfg.Database.DSN()
		database, err := db.New(ctx, dsn)
		if err != nil {
			return fmt.Errorf("connecting to database: %w", err)
		}
		defer database.Close()
		slog.Info("database connected")

		if err := db.RunMigrations(ctx, dsn); err != nil {
			return fmt.Errorf("running migrations: %w", err)
		}
		slog.Info("database migrations applied")

		progress := db.NewProgressRepository(database.Pool())
		deps.Rewards = progress
		deps.Quests = progress
		deps.Results = db.NewCombatResultRepository(database.Pool())
	} else {
		slog.Warn("database disabled, combat results are not persisted")
	}

	engine := combat.New(cfg.Combat, deps)

	mux := http.NewServeMux()
	mux.Handle("/ws", hub.Handler())
	mux.Handle("/", api.NewHandler(engine, api.NewRoster()))

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("starting http server", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := engine.Close(sctx); err != nil {
			slog.Error("closing combat engine", "error", err)
		}
		if err := srv.Shutdown(sctx); err != nil {
			return fmt.Errorf("http server shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	slog.Info("combat server stopped")
	return nil
}

// parseLogLevel converts string log level to slog.Level.
// Defaults to Info if invalid or empty.
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
