package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	jwttoken "ecovalue/internal/jwt_token"
	"ecovalue/internal/platform/config"
	"ecovalue/internal/platform/httpserver"
	"ecovalue/internal/platform/logger"
	platformmetrics "ecovalue/internal/platform/metrics"
	"ecovalue/internal/platform/postgres"
	redisclient "ecovalue/internal/platform/redis"
	"ecovalue/internal/valuation"
	"ecovalue/pkg/platform/audit/kafka"
	"ecovalue/pkg/platform/audit/worker"
	"ecovalue/pkg/platform/httputil"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the registry HTTP API",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}
	log := logger.New(cfg.LogLevel)
	decimal.MarshalJSONWithoutQuotes = true

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	deps := valuation.Dependencies{
		Config:      cfg,
		Logger:      log,
		Registerer:  reg,
		HTTPMetrics: platformmetrics.New(reg),
	}

	var db *sql.DB
	if cfg.Storage.Driver == config.DriverPostgres {
		db, err = postgres.Open(ctx, cfg.Database)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := postgres.Migrate(ctx, db, log); err != nil {
			return err
		}
		deps.DB = db
	}

	rc, err := redisclient.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if rc != nil {
		defer rc.Close()
		if err := rc.RegisterPoolMetrics(reg); err != nil {
			return err
		}
		deps.Redis = rc.Client
		log.Info("write limiter backed by redis", "roi_cache_shared", cfg.Storage.Driver == config.DriverPostgres)
	}

	if cfg.Auth.SigningKey != "" {
		tokens := jwttoken.NewJWTService(cfg.Auth.SigningKey, cfg.Auth.Issuer, cfg.Auth.Audience)
		deps.JWTValidator = jwttoken.NewJWTServiceAdapter(tokens)
	} else {
		log.Warn("auth.signing_key is empty; mutating routes accept anonymous callers")
	}

	module, err := valuation.New(deps)
	if err != nil {
		return err
	}

	var producer *kafka.Producer
	if len(cfg.Kafka.Brokers) > 0 {
		producer, err = kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.AuditTopic)
		if err != nil {
			return err
		}
		defer producer.Close()
		if err := producer.EnsureTopic(ctx, 1, 1); err != nil {
			return err
		}
	}

	router := chi.NewRouter()
	router.Get("/healthz", healthHandler(log, db, rc, producer))
	router.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	module.Handler.Register(router)

	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return httpserver.Run(gctx, srv, cfg.ShutdownTimeout, log)
	})
	if producer != nil {
		relay := worker.NewWorker(module.Outbox, producer,
			worker.WithLogger(log),
			worker.WithInterval(cfg.Kafka.RelayInterval),
		)
		g.Go(func() error {
			log.Info("audit outbox relay started", "topic", cfg.Kafka.AuditTopic)
			if err := relay.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	log.Info("starting ecovalue",
		"addr", cfg.Addr,
		"storage", cfg.Storage.Driver,
		"kafka_relay", producer != nil,
	)
	return g.Wait()
}

// healthHandler reports 503 when any configured backend is unreachable.
func healthHandler(log *slog.Logger, db *sql.DB, rc *redisclient.Client, producer *kafka.Producer) http.HandlerFunc {
	checks := map[string]func(context.Context) error{}
	if db != nil {
		checks["postgres"] = db.PingContext
	}
	if rc != nil {
		checks["redis"] = rc.Health
	}
	if producer != nil {
		checks["kafka"] = producer.Ping
	}
	return func(w http.ResponseWriter, r *http.Request) {
		status := map[string]string{"status": "ok"}
		code := http.StatusOK
		for name, check := range checks {
			if err := check(r.Context()); err != nil {
				log.WarnContext(r.Context(), "health check failed", "backend", name, "error", err)
				status[name] = fmt.Sprintf("unavailable: %v", err)
				status["status"] = "degraded"
				code = http.StatusServiceUnavailable
				continue
			}
			status[name] = "ok"
		}
		httputil.WriteJSON(w, code, status)
	}
}
