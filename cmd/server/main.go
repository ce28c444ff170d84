package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mmynk/secretsanta/internal/auth"
	"github.com/mmynk/secretsanta/internal/config"
	"github.com/mmynk/secretsanta/internal/draw"
	"github.com/mmynk/secretsanta/internal/groups"
	"github.com/mmynk/secretsanta/internal/membership"
	"github.com/mmynk/secretsanta/internal/metrics"
	"github.com/mmynk/secretsanta/internal/profiles"
	"github.com/mmynk/secretsanta/internal/service"
	"github.com/mmynk/secretsanta/internal/storage"
	"github.com/mmynk/secretsanta/internal/storage/postgres"
	"github.com/mmynk/secretsanta/internal/storage/sqlite"
	"github.com/mmynk/secretsanta/internal/watch"
	"github.com/mmynk/secretsanta/pkg/logging"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.New()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	logging.Setup(cfg.LogLevel)

	strategy, err := draw.ParseStrategy(cfg.DrawStrategy)
	if err != nil {
		slog.Error("Invalid draw strategy", "error", err)
		os.Exit(1)
	}

	base, err := openStore(cfg)
	if err != nil {
		slog.Error("Failed to initialize storage", "driver", cfg.StoreDriver, "error", err)
		os.Exit(1)
	}
	defer base.Close()
	slog.Info("Storage initialized", "driver", cfg.StoreDriver)

	hub := watch.NewHub()
	store := watch.Wrap(base, hub)
	changes, stopWatching := hub.Subscribe("")
	go logChanges(changes)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	groupSvc := groups.NewService(store)
	memberSvc := membership.NewService(store, groupSvc, membership.Policy{
		AllowClosedInvites: cfg.AllowClosedInvites,
	}).WithObserver(m)
	engine := draw.NewEngine(store, groupSvc, strategy).WithObserver(m)

	router := service.NewRouter(service.Deps{
		Groups:     groupSvc,
		Membership: memberSvc,
		Profiles:   profiles.NewService(store),
		Draw:       engine,
		Identity:   auth.NewJWTManager(cfg.JWTSecret, cfg.TokenTTL),
		Metrics:    m,
		Gatherer:   reg,
	})

	// Wrap with h2c for HTTP/2 without TLS (required for Connect)
	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           h2c.NewHandler(router, &http2.Server{}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("Connect server starting", "address", server.Addr, "draw_strategy", string(strategy))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Graceful shutdown failed", "error", err)
	}
	stopWatching()
}

func openStore(cfg *config.Config) (storage.Store, error) {
	switch cfg.StoreDriver {
	case "postgres":
		return postgres.New(cfg.PostgresDSN)
	default:
		return sqlite.New(cfg.DBPath)
	}
}

func logChanges(changes <-chan storage.Change) {
	for c := range changes {
		slog.Debug("Document changed", "path", c.Path.String(), "kind", string(c.Kind))
	}
}
