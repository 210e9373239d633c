// Package main provides the tracerd binary entry point that starts the HTTP
// server for the exposure-notification backend. It loads configuration from
// environment variables, validates it, and then starts the HTTP server.
//
// The application flow:
//  1. Load defaults and apply environment variables.
//  2. Validate configuration and set the log level.
//  3. Open the bucket store and the metrics database.
//  4. Wire the application service, HTTP handler, and janitor.
//  5. Start the HTTP server and block until shutdown.
//
// It exits the process with a non-zero status code on configuration
// validation failure or fatal server errors.
package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/covtrace/tracerd/internal/app"
	"github.com/covtrace/tracerd/internal/config"
	"github.com/covtrace/tracerd/internal/httpx"
	"github.com/covtrace/tracerd/internal/janitor"
	"github.com/covtrace/tracerd/internal/metrics"
	"github.com/covtrace/tracerd/internal/store/bucket"
)

// realClock implements app.Clock using time.Now.
type realClock struct{}

func (realClock) Now() time.Time { return time.Now().UTC() }

func loadConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("configuration error", "err", err)
		os.Exit(2)
	}
	return cfg
}

func setLogLevel(level string) {
	var l slog.Level
	switch level {
	case "debug":
		l = slog.LevelDebug
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l})))
}

func openStore(cfg *config.Config, clock app.Clock) *bucket.Store {
	st, err := bucket.Open(cfg.DataDir, clock, cfg.RecencyWindowHours)
	if err != nil {
		slog.Error("open bucket store", "dir", cfg.DataDir, "err", err)
		os.Exit(3)
	}
	return st
}

func openMetrics(ctx context.Context, cfg *config.Config) (*sql.DB, *metrics.Manager) {
	dbPath := filepath.Join(cfg.DataDir, "tracerd.db")
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		slog.Error("open sqlite driver", "err", err)
		os.Exit(4)
	}
	mgr := metrics.New(db, metrics.Config{FlushInterval: cfg.MetricsFlushInterval})
	if err := mgr.InitSchema(ctx); err != nil {
		slog.Error("init metrics schema", "err", err)
		os.Exit(4)
	}
	return db, mgr
}

func buildHandler(cfg *config.Config, svc *app.Service, st *bucket.Store, mgr *metrics.Manager) http.Handler {
	readiness := func(context.Context) error {
		_, err := os.ReadDir(st.Dir())
		return err
	}
	h := httpx.New(svc, 0, readiness)
	h.Metrics = mgr
	h.MaxContacts = cfg.MaxCheckContacts
	h.MetricsHandler = metrics.Handler(mgr, cfg.MetricsToken)
	return h.Router()
}

func newServer(cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{Addr: cfg.Addr, Handler: handler, ReadTimeout: 5 * time.Second, WriteTimeout: 10 * time.Second, IdleTimeout: 120 * time.Second}
}

func run() error {
	cfg := loadConfig()
	setLogLevel(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	clock := realClock{}
	st := openStore(cfg, clock)
	db, mgr := openMetrics(ctx, cfg)
	defer db.Close()
	mgr.Start(ctx)

	svc := &app.Service{Store: st}
	srv := newServer(cfg, buildHandler(cfg, svc, st, mgr))

	var jan *janitor.Janitor
	if cfg.RetentionDays > 0 {
		jan = janitor.New(st, janitor.Config{
			Interval:  cfg.JanitorInterval,
			Retention: time.Duration(cfg.RetentionDays) * 24 * time.Hour,
			Clock:     clock,
			Observe:   func(pruned int) { mgr.Observe(metrics.SummaryPrunedPerCycle, int64(pruned)) },
		})
		jan.Start(ctx)
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting server", "addr", cfg.Addr, "pid", os.Getpid())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	var serveErr error
	select {
	case serveErr = <-errCh:
	case <-ctx.Done():
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Warn("server shutdown", "err", err)
		}
		serveErr = <-errCh
	}

	if jan != nil {
		jan.Stop()
	}
	flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	mgr.Stop(flushCtx)
	return serveErr
}

func main() {
	if err := run(); err != nil {
		slog.Error("server error", "err", err)
		os.Exit(1)
	}
}
