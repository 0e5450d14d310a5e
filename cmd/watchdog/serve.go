package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/raj200501/WatchDog-datadog-local-stack/internal/app/migrate"
	httpx "github.com/raj200501/WatchDog-datadog-local-stack/internal/http"
	"github.com/raj200501/WatchDog-datadog-local-stack/internal/metrics"
	"github.com/raj200501/WatchDog-datadog-local-stack/internal/repository"
	"github.com/raj200501/WatchDog-datadog-local-stack/internal/repository/memory"
	"github.com/raj200501/WatchDog-datadog-local-stack/internal/repository/postgres"
	"github.com/raj200501/WatchDog-datadog-local-stack/internal/service/incident"
	"github.com/raj200501/WatchDog-datadog-local-stack/internal/service/ingest"
	"github.com/raj200501/WatchDog-datadog-local-stack/internal/service/monitor"
	"github.com/raj200501/WatchDog-datadog-local-stack/internal/service/query"
	"github.com/raj200501/WatchDog-datadog-local-stack/internal/service/slo"
	"github.com/raj200501/WatchDog-datadog-local-stack/internal/service/synthetics"
	"github.com/raj200501/WatchDog-datadog-local-stack/internal/ws"
	"github.com/raj200501/WatchDog-datadog-local-stack/pkg/config"
	"github.com/raj200501/WatchDog-datadog-local-stack/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the API, the monitor evaluator and the synthetic probe scheduler",
		Description: `Configuration comes from WATCHDOG_* environment variables layered over
the optional YAML file named by WATCHDOG_CONFIG_FILE. With the postgres store
driver, pending migrations are applied before serving.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "listen address, overrides WATCHDOG_ADDR",
			},
			&cli.StringFlag{
				Name:  "store",
				Usage: "store driver (postgres|memory), overrides WATCHDOG_STORE_DRIVER",
			},
		},
		Action: runServe,
	}
}

func runServe(parent context.Context, cmd *cli.Command) error {
	cfg, err := config.LoadAPIConfig()
	if err != nil {
		return err
	}
	if addr := strings.TrimSpace(cmd.String("addr")); addr != "" {
		cfg.Addr = addr
	}
	if driver := strings.TrimSpace(cmd.String("store")); driver != "" {
		cfg.StoreDriver = strings.ToLower(driver)
	}
	log := logger.New("watchdog", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	m := metrics.New(prometheus.DefaultRegisterer)
	hub := ws.NewHub(ws.WithPublishHook(m.TailQueued))

	svc := httpx.Services{
		Ingest:     ingest.New(store, hub, log, m),
		Query:      query.New(store),
		Monitors:   monitor.NewService(store, log),
		SLOs:       slo.New(store, store, log),
		Synthetics: synthetics.NewService(store, log),
		Incidents:  incident.New(store, log),
		Hub:        hub,
	}
	evaluator := monitor.NewEvaluator(store, store, log, m, cfg.MonitorInterval)
	scheduler := synthetics.NewScheduler(store, &http.Client{}, log, m, cfg.SyntheticsInterval, cfg.ProbeConcurrency)

	limiter := httpx.NewMemoryRateLimiter()
	if addr := strings.TrimSpace(cfg.RateLimitRedisAddr); addr != "" {
		redisLimiter, err := httpx.NewRedisRateLimiter(addr, cfg.RateLimitRedisPass, cfg.RateLimitRedisDB, log)
		if err != nil {
			log.Warn("redis rate limiter unavailable", "error", err)
		} else {
			limiter.Close()
			limiter = redisLimiter
		}
	}

	router := httpx.NewRouter(log, svc, limiter, httpx.Options{
		APIKey:          cfg.APIKey,
		IngestRateLimit: cfg.IngestRateLimit,
		QueryRateLimit:  cfg.QueryRateLimit,
		Metrics:         m,
	}, store.Ping)
	defer router.Close()

	g, gctx := errgroup.WithContext(ctx)
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return gctx },
	}

	g.Go(func() error {
		evaluator.Run(gctx)
		return nil
	})
	g.Go(func() error {
		scheduler.Run(gctx)
		return nil
	})
	g.Go(func() error {
		log.Info("api server starting", "addr", cfg.Addr, "store", cfg.StoreDriver, "env", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve http: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("graceful shutdown failed", "error", err)
		}
		return nil
	})

	err = g.Wait()
	log.Info("api server stopped")
	return err
}

// openStore connects the configured telemetry store. For postgres it applies
// pending migrations first.
func openStore(ctx context.Context, cfg config.APIConfig, log *slog.Logger) (repository.Store, func(), error) {
	if cfg.StoreDriver == config.StoreDriverMemory {
		log.Warn("using in-memory store, data is lost on exit")
		return memory.New(cfg.ServiceEnv), func() {}, nil
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("connect database: %w", err)
	}
	runner, err := migrate.New(pool, cfg.DatabaseURL, log)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("configure migrations: %w", err)
	}
	if err := runner.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}
	if err := runner.Ensure(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}
	return postgres.New(pool, cfg.ServiceEnv), pool.Close, nil
}
