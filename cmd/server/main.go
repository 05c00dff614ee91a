// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"custodia/internal/events"
	"custodia/internal/idempotency"
	"custodia/internal/platform/config"
	"custodia/internal/platform/httpserver"
	"custodia/internal/platform/logger"
	"custodia/internal/platform/metrics"
	"custodia/internal/platform/middleware"
	platformredis "custodia/internal/platform/redis"
	"custodia/internal/settlement"
	"custodia/internal/vault/handler"
	"custodia/internal/vault/service"
	"custodia/internal/vault/store"
	id "custodia/pkg/domain"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	clock := id.SystemClock{}

	vaults, cleanupVaults, err := newVaultStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer cleanupVaults()

	idemStore, cleanupIdem, err := newIdempotencyStore(cfg, log)
	if err != nil {
		return err
	}
	defer cleanupIdem()

	publisher, err := newPublisher(cfg, log)
	if err != nil {
		return err
	}
	defer publisher.Close()

	svc := service.New(
		vaults,
		idempotency.NewExecutor(idemStore, log),
		settlement.NewSimulated(clock),
		service.WithLogger(log),
		service.WithMetrics(metrics.New()),
		service.WithPublisher(publisher),
		service.WithClock(clock),
	)

	r := chi.NewRouter()
	r.Use(chimw.RequestID, chimw.RealIP, chimw.Recoverer)
	r.Use(middleware.Identity(cfg.JWTSigningKey, log))
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", promhttp.Handler())
	handler.New(svc, log).Register(r)

	srv := httpserver.New(cfg.Addr, r)
	log.Info("starting custodia", "addr", cfg.Addr)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func newVaultStore(ctx context.Context, cfg config.Config, log *slog.Logger) (store.VaultStore, func(), error) {
	if cfg.PostgresURL == "" {
		log.Info("no postgres configured; using in-memory vault store")
		return store.NewMemoryStore(), func() {}, nil
	}
	pool, err := pgxpool.New(ctx, cfg.PostgresURL)
	if err != nil {
		return nil, nil, err
	}
	pg := store.NewPostgres(pool)
	if err := pg.Migrate(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}
	return pg, pool.Close, nil
}

func newIdempotencyStore(cfg config.Config, log *slog.Logger) (idempotency.Store, func(), error) {
	if cfg.Redis.URL == "" {
		log.Info("no redis configured; using in-memory idempotency store")
		return idempotency.NewMemoryStore(), func() {}, nil
	}
	client, err := platformredis.New(cfg.Redis)
	if err != nil {
		return nil, nil, err
	}
	s := idempotency.NewRedisStore(client.Client, idempotency.WithTTL(cfg.IdempotencyTTL))
	return s, func() { _ = client.Close() }, nil
}

func newPublisher(cfg config.Config, log *slog.Logger) (events.Publisher, error) {
	if len(cfg.Kafka.Brokers) == 0 {
		log.Info("no kafka brokers configured; domain events stay in-process")
		return events.NewMemoryPublisher(), nil
	}
	return events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
}
