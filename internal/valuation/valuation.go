// Package valuation assembles the registry from configuration: storage
// backend, ROI cache, audit sink and HTTP handler.
package valuation

import (
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"

	"ecovalue/internal/platform/config"
	platformmetrics "ecovalue/internal/platform/metrics"
	"ecovalue/internal/platform/middleware"
	"ecovalue/internal/ratelimit"
	"ecovalue/internal/valuation/handler"
	"ecovalue/internal/valuation/metrics"
	"ecovalue/internal/valuation/service"
	"ecovalue/internal/valuation/store"
	"ecovalue/pkg/platform/audit"
	"ecovalue/pkg/platform/audit/publishers/compliance"
	auditmemory "ecovalue/pkg/platform/audit/store/memory"
	auditpostgres "ecovalue/pkg/platform/audit/store/postgres"
)

// Dependencies are the process-level resources the registry is built on.
// DB is required for the postgres driver; Redis is optional.
type Dependencies struct {
	Config       config.Config
	Logger       *slog.Logger
	Registerer   prometheus.Registerer
	HTTPMetrics  *platformmetrics.Metrics
	DB           *sql.DB
	Redis        goredis.UniversalClient
	JWTValidator middleware.JWTValidator
}

// Module is the assembled registry.
type Module struct {
	Service *service.Service
	Handler *handler.Handler
	Audit   audit.Store
	// Outbox is set for the postgres driver and feeds the Kafka relay.
	Outbox *auditpostgres.Store
}

func New(deps Dependencies) (*Module, error) {
	if deps.Logger == nil {
		return nil, errors.New("valuation: logger is required")
	}
	if deps.Registerer == nil {
		deps.Registerer = prometheus.NewRegistry()
	}

	var (
		registryStore service.Store
		registryTx    service.StoreTx
		auditStore    audit.Store
		outbox        *auditpostgres.Store
	)
	switch deps.Config.Storage.Driver {
	case config.DriverPostgres:
		if deps.DB == nil {
			return nil, errors.New("valuation: postgres driver requires a database handle")
		}
		pg := store.NewPostgres(deps.DB, deps.Config.TxTimeout)
		registryStore, registryTx = pg, pg
		outbox = auditpostgres.New(deps.DB)
		auditStore = outbox
	default:
		mem := store.NewInMemory(store.WithTxTimeout(deps.Config.TxTimeout))
		registryStore, registryTx = mem, mem
		auditStore = auditmemory.NewInMemoryStore()
	}

	publisher := compliance.New(auditStore,
		compliance.WithLogger(deps.Logger),
		compliance.WithMetrics(compliance.NewMetrics(deps.Registerer)),
	)

	svc := service.New(registryStore, registryTx,
		service.WithLogger(deps.Logger),
		service.WithAuditPublisher(publisher),
		service.WithROICache(newROICache(deps)),
		service.WithMetrics(metrics.New(deps.Registerer)),
	)

	proxies, err := deps.Config.TrustedProxyPrefixes()
	if err != nil {
		return nil, err
	}

	opts := []handler.Option{
		handler.WithMetrics(deps.HTTPMetrics),
		handler.WithTrustedProxies(proxies),
		handler.WithAuditReader(auditStore),
		handler.WithWriteLimiter(newWriteLimiter(deps).Handler),
	}
	if deps.JWTValidator != nil {
		opts = append(opts, handler.WithJWTValidator(deps.JWTValidator))
	}
	if deps.Config.TxTimeout > 0 {
		opts = append(opts, handler.WithRequestTimeout(requestTimeout(deps.Config)))
	}

	return &Module{
		Service: svc,
		Handler: handler.New(svc, deps.Logger, opts...),
		Audit:   auditStore,
		Outbox:  outbox,
	}, nil
}

func newROICache(deps Dependencies) service.ROICache {
	ttl := deps.Config.Redis.ROICacheTTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	// Memory ids restart with the process, so a shared cache would outlive them.
	if deps.Redis != nil && deps.Config.Storage.Driver == config.DriverPostgres {
		return store.NewRedisROICache(deps.Redis, ttl)
	}
	return store.NewInMemoryROICache(ttl)
}

func newWriteLimiter(deps Dependencies) *ratelimit.Middleware {
	var limitStore ratelimit.Store = ratelimit.NewInMemoryStore()
	if deps.Redis != nil {
		limitStore = ratelimit.NewRedisStore(deps.Redis)
	}
	rl := deps.Config.RateLimit
	return ratelimit.New(limitStore, deps.Logger, rl.Writes, rl.Window,
		ratelimit.WithRegisterer(deps.Registerer),
	)
}

// requestTimeout leaves room inside the write timeout for the response.
func requestTimeout(cfg config.Config) time.Duration {
	d := 3 * cfg.TxTimeout
	if d < 5*time.Second {
		d = 5 * time.Second
	}
	return d
}
