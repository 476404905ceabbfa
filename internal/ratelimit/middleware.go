package ratelimit

import (
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	dErrors "ecovalue/pkg/domain-errors"
	"ecovalue/pkg/platform/httputil"
	"ecovalue/pkg/requestcontext"
)

// Middleware limits requests per principal, falling back to client IP for
// anonymous callers.
type Middleware struct {
	store    Store
	logger   *slog.Logger
	limit    int
	window   time.Duration
	rejected prometheus.Counter
	failures prometheus.Counter
}

type Option func(*Middleware)

// WithRegisterer exports rejection and store-failure counters.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(m *Middleware) {
		factory := promauto.With(reg)
		m.rejected = factory.NewCounter(prometheus.CounterOpts{
			Name: "ecovalue_ratelimit_rejected_total",
			Help: "Write requests rejected by the rate limiter",
		})
		m.failures = factory.NewCounter(prometheus.CounterOpts{
			Name: "ecovalue_ratelimit_store_errors_total",
			Help: "Rate limit checks that failed open because the store errored",
		})
	}
}

// New builds a limiter allowing limit requests per window. A non-positive
// limit disables it.
func New(store Store, logger *slog.Logger, limit int, window time.Duration, opts ...Option) *Middleware {
	m := &Middleware{
		store:  store,
		logger: logger,
		limit:  limit,
		window: window,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.disabled() {
		logger.Info("rate limiting disabled")
	}
	return m
}

func (m *Middleware) disabled() bool {
	return m.store == nil || m.limit <= 0 || m.window <= 0
}

// Handler enforces the limit. Store errors fail open.
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.disabled() {
			next.ServeHTTP(w, r)
			return
		}

		ctx := r.Context()
		key := callerKey(r)
		result, err := m.store.Allow(ctx, key, m.limit, m.window)
		if err != nil {
			if m.failures != nil {
				m.failures.Inc()
			}
			m.logger.ErrorContext(ctx, "rate limit check failed",
				"error", err,
				"request_id", requestcontext.RequestID(ctx),
			)
			next.ServeHTTP(w, r)
			return
		}

		addHeaders(w, result)
		if !result.Allowed {
			if m.rejected != nil {
				m.rejected.Inc()
			}
			m.logger.WarnContext(ctx, "rate limit exceeded",
				"key", key,
				"request_id", requestcontext.RequestID(ctx),
			)
			w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(result.RetryAfter)))
			httputil.WriteError(w, dErrors.New(dErrors.CodeRateLimited, "too many write requests, retry later"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func callerKey(r *http.Request) string {
	ctx := r.Context()
	if p := requestcontext.Principal(ctx); p != "" && p != requestcontext.AnonymousPrincipal {
		return "principal:" + sanitizeKeySegment(p)
	}
	return "ip:" + sanitizeKeySegment(requestcontext.ClientIP(ctx))
}

func addHeaders(w http.ResponseWriter, result *Result) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
}

// retryAfterSeconds rounds up so clients never retry early.
func retryAfterSeconds(d time.Duration) int {
	if d <= 0 {
		return 1
	}
	return int(math.Ceil(d.Seconds()))
}
