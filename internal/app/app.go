// Package app provides the top-level application lifecycle management for
// the engagement engine. It wires together all dependencies (the document
// store, audit trail, cold archive, engine, and HTTP server) and runs them
// until the context is cancelled.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/questlab/engagehub/internal/config"
	"github.com/questlab/engagehub/internal/engine"
	"github.com/questlab/engagehub/internal/persist"
	"github.com/questlab/engagehub/internal/server"
	"github.com/questlab/engagehub/internal/server/handler"
	"github.com/questlab/engagehub/internal/server/ws"
)

// App is the root application object. It owns the configuration, logger, and
// a list of cleanup functions that are called in reverse order on shutdown.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	closers []func()
}

// New creates a new App from the given configuration and logger.
func New(cfg *config.Config, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "app")),
	}
}

// Run is the main entry point. It wires all dependencies, starts the engine
// loops and the HTTP server, and blocks until the context is cancelled. On
// return it runs all registered cleanup functions.
func (a *App) Run(ctx context.Context) error {
	a.logger.InfoContext(ctx, "starting application",
		slog.String("storage_backend", a.cfg.Storage.Backend),
		slog.String("log_level", a.cfg.LogLevel),
	)

	deps, cleanup, err := Wire(ctx, a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("app: wire dependencies: %w", err)
	}
	a.closers = append(a.closers, cleanup)
	defer a.Close()

	// Startup sweep: clear stale keys before the engine loads state.
	monitor := persist.NewMonitor(deps.KV, a.cfg.Storage.HighWaterBytes, a.cfg.Storage.SweepPrefixes, a.logger)
	monitor.Sweep(ctx)

	wsHub := ws.NewHub(a.logger)

	eng := engine.New(
		engine.Config{
			OwnerID:           a.cfg.Engine.OwnerID,
			MotivationMessage: a.cfg.Engine.MotivationMessage,
			FlushDebounce:     a.cfg.Engine.FlushDebounce.Duration,
		},
		deps.KV,
		deps.AuditStore,
		deps.Archiver,
		wsHub.BroadcastNotifications,
		a.logger,
	)
	eng.Start(ctx)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := wsHub.Run(ctx)
		if err == context.Canceled {
			return nil
		}
		return err
	})
	g.Go(func() error {
		return eng.RunFlusher(ctx)
	})
	g.Go(func() error {
		return eng.RunMotivation(ctx)
	})

	if a.cfg.Server.Enabled {
		srv := server.NewServer(
			server.Config{
				Port:        a.cfg.Server.Port,
				CORSOrigins: a.cfg.Server.CORSOrigins,
				APIKey:      a.cfg.Server.APIKey,
				RateLimiter: deps.RateLimiter,
				RateLimit:   a.cfg.Server.RateLimit,
				RateWindow:  a.cfg.Server.RateWindow.Duration,
			},
			server.Handlers{
				Health:        handler.NewHealthHandler(a.logger),
				Notifications: handler.NewNotificationHandler(eng, a.logger),
				State:         handler.NewStateHandler(eng, a.logger),
				Users:         handler.NewUserHandler(eng, a.logger),
				Battles:       handler.NewBattleHandler(eng, a.logger),
				Flags:         handler.NewFlagHandler(eng, a.logger),
				Audit:         handler.NewAuditHandler(deps.AuditStore, a.logger),
			},
			wsHub,
			a.logger,
		)

		g.Go(func() error {
			return srv.Start()
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	return g.Wait()
}

// Close tears down all resources in reverse registration order. It is safe
// to call multiple times; subsequent calls are no-ops.
func (a *App) Close() {
	a.logger.Info("shutting down application")
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
