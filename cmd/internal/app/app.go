// Package app wires the splitbite server runtime: config, logging, metrics,
// HTTP routes, the realtime gateway, and the retention sweeper.
//
// It is intentionally small and deterministic to keep CI gates strict and behavior predictable.
package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"splitbite/cmd/internal/api"
	"splitbite/cmd/internal/realtime"
	"splitbite/cmd/internal/session"

	"github.com/jackc/pgx/v5/pgxpool"
)

// App is the splitbite server runtime: it owns HTTP wiring, the session
// service, the realtime gateway, and persistence lifecycle.
type App struct {
	cfg Config
	log Logger

	store session.Store

	dbPool    *pgxpool.Pool
	dbEnabled bool

	svc     *session.Service
	metrics *Metrics

	apiRouter http.Handler
	ws        *realtime.WSGateway
}

// New constructs a fully wired App instance from config and logger.
func New(cfg Config, log Logger) (*App, error) {
	if log == nil {
		log = NewLogger(cfg.LogLevel)
	}

	if cfg.JWTSecret == "" {
		cfg.JWTSecret = "splitbite-dev-secret"
		log.Warn("auth.jwt_secret.default", "hint", "set SPLITBITE_JWT_SECRET in production")
	}

	st, dbPool, dbEnabled, err := newStore(context.Background(), cfg, log)
	if err != nil {
		return nil, err
	}

	metrics := NewMetrics()
	hub := realtime.NewHub(log)
	publisher := realtime.NewPublisher(log, hub,
		realtime.WithPublishCounters(metrics.EventsPublished, metrics.BroadcastDropped))

	svc := session.NewService(log, st,
		session.WithNotifier(publisher),
		session.WithNotificationSink(logSink{log: log}))

	apiHandler := api.NewHandler(log, svc, []byte(cfg.JWTSecret),
		api.WithMutationCounter(metrics.Mutations))

	ws := realtime.NewWSGateway(log, hub, svc,
		realtime.WithConnectedGauge(metrics.ConnectedClients))

	return &App{
		cfg:       cfg,
		log:       log,
		store:     st,
		dbPool:    dbPool,
		dbEnabled: dbEnabled,
		svc:       svc,
		metrics:   metrics,
		apiRouter: apiHandler.Router(cfg.AllowedOrigins),
		ws:        ws,
	}, nil
}

// Run starts the HTTP server and the retention sweeper and blocks until
// context cancellation or fatal server error.
func (a *App) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	registerHTTP(mux, a.log, a.cfg, a.dbPool, a.dbEnabled, a.apiRouter, a.ws, a.metrics)

	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           WithObservability(mux, a.log, a.metrics),
		ReadHeaderTimeout: nonZeroDuration(a.cfg.ReadHeaderTimeout, 5*time.Second),
		ReadTimeout:       nonZeroDuration(a.cfg.ReadTimeout, 15*time.Second),
		WriteTimeout:      nonZeroDuration(a.cfg.WriteTimeout, 15*time.Second),
		IdleTimeout:       nonZeroDuration(a.cfg.IdleTimeout, 60*time.Second),
		MaxHeaderBytes:    nonZeroInt(a.cfg.MaxHeaderBytes, 1<<20),
	}

	a.log.Info("server.start", "addr", a.cfg.HTTPAddr, "db_enabled", a.dbEnabled)

	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go a.svc.RunSweeper(sweepCtx, nonZeroDuration(a.cfg.SweepInterval, session.DefaultSweepInterval))

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		a.log.Info("server.stop", "reason", "context_done")
	case err := <-errCh:
		a.log.Error("server.fail", "err", err)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.Error("server.shutdown.fail", "err", err)
		return err
	}

	if err := a.store.Close(); err != nil {
		a.log.Error("store.close.fail", "err", err)
	}
	if a.dbPool != nil {
		a.dbPool.Close()
	}

	a.log.Info("server.stopped")
	return nil
}

func nonZeroDuration(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}

func nonZeroInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// newStore decides between Postgres-backed persistence and the in-memory dev
// store.
//
// Ownership model:
// - app owns the pool lifecycle
// - PostgresStore.Close() is a no-op
func newStore(ctx context.Context, cfg Config, log Logger) (session.Store, *pgxpool.Pool, bool, error) {
	if cfg.DatabaseURL == "" {
		log.Info("db.disabled.inmemory_store")
		return session.NewInMemoryStore(), nil, false, nil
	}

	pool, err := NewDBPool(ctx, cfg)
	if err != nil {
		return nil, nil, false, err
	}

	st, err := session.NewPostgresStore(pool, session.WithSchema(cfg.DBSchema))
	if err != nil {
		pool.Close()
		return nil, nil, false, err
	}

	log.Info("db.enabled.postgres_store", "schema", cfg.DBSchema)
	return st, pool, true, nil
}
