// Package service implements the ecosystem services valuation registry.
//
// Every mutation runs inside one StoreTx boundary: the service reference is
// checked, input validated, an id allocated, the record saved and the audit
// event written, all or nothing. Validation happens before id allocation, so a
// rejected call never consumes an id.
package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks Store,StoreTx,AuditPublisher,ROICache

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"ecovalue/internal/valuation/metrics"
	"ecovalue/internal/valuation/models"
	dErrors "ecovalue/pkg/domain-errors"
	"ecovalue/pkg/platform/audit"
	"ecovalue/pkg/platform/sentinel"
	"ecovalue/pkg/requestcontext"
)

// Store persists registry records. Implementations return sentinel errors for
// missing or conflicting records and join the transaction bound to ctx.
type Store interface {
	NextID(ctx context.Context, seq models.Sequence) (int64, error)

	SaveService(ctx context.Context, svc *models.Service) error
	FindService(ctx context.Context, id models.ServiceID) (*models.Service, error)
	ListServices(ctx context.Context) ([]*models.Service, error)

	SavePaymentProgram(ctx context.Context, p *models.PaymentProgram) error
	FindPaymentProgram(ctx context.Context, id models.PaymentID) (*models.PaymentProgram, error)
	ListPaymentPrograms(ctx context.Context, serviceID models.ServiceID) ([]*models.PaymentProgram, error)

	AppendMeasurement(ctx context.Context, m *models.Measurement) error
	ListMeasurements(ctx context.Context, serviceID models.ServiceID) ([]*models.Measurement, error)

	SaveIssuance(ctx context.Context, c *models.CreditIssuance) error
	ListIssuances(ctx context.Context, serviceID models.ServiceID) ([]*models.CreditIssuance, error)

	Totals(ctx context.Context) (*models.Totals, error)
}

// StoreTx provides the transactional boundary for mutations. Implementations
// may wrap a database transaction or, in memory, a coarse lock. fn must use
// the context it receives.
type StoreTx interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// ROICache memoizes ComputeROI results under models.ROICacheKey. Get returns
// sentinel.ErrNotFound on a miss.
type ROICache interface {
	Get(ctx context.Context, key string) (*models.ROI, error)
	Set(ctx context.Context, key string, roi *models.ROI) error
}

// Operation names used in logs, metrics and spans.
const (
	opRegisterService      = "register_service"
	opCreatePaymentProgram = "create_payment_program"
	opRecordMeasurement    = "record_measurement"
	opIssueCredits         = "issue_credits"
	opComputeROI           = "compute_roi"
	opTotals               = "totals"
)

// Service orchestrates the valuation registry.
type Service struct {
	store          Store
	tx             StoreTx
	logger         *slog.Logger
	auditPublisher AuditPublisher
	roiCache       ROICache
	metrics        *metrics.Metrics
	tracer         trace.Tracer
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithROICache(cache ROICache) Option {
	return func(s *Service) {
		s.roiCache = cache
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = tracer
	}
}

// New constructs a Service. tx must guard the same data store operates on.
func New(store Store, tx StoreTx, opts ...Option) *Service {
	s := &Service{
		store:  store,
		tx:     tx,
		tracer: otel.Tracer("ecovalue/internal/valuation/service"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) startSpan(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "valuation."+op, trace.WithAttributes(attrs...))
}

// finish records latency and, on failure, the error code on the span and metrics.
func (s *Service) finish(span trace.Span, op string, start time.Time, err error) {
	s.metrics.ObserveLatency(op, time.Since(start))
	if err != nil {
		code := dErrors.CodeOf(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, string(code))
		s.metrics.IncrementFailure(op, string(code))
	}
	span.End()
}

// ensureCoded wraps uncoded infrastructure errors as internal.
func ensureCoded(err error, msg string) error {
	if err == nil {
		return nil
	}
	var de *dErrors.Error
	if errors.As(err, &de) {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, msg)
}

// requireService loads a service, translating a missing record to ERR-NOT-FOUND.
func (s *Service) requireService(ctx context.Context, id models.ServiceID) (*models.Service, error) {
	svc, err := s.store.FindService(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "service not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load service")
	}
	return svc, nil
}

// emitAudit writes the audit event inside the caller's transaction.
func (s *Service) emitAudit(ctx context.Context, event audit.AuditEvent, serviceID models.ServiceID, entityID int64, detail string) error {
	if s.auditPublisher == nil {
		return nil
	}
	err := s.auditPublisher.Emit(ctx, audit.Event{
		Timestamp: requestcontext.Now(ctx),
		Action:    string(event),
		ServiceID: int64(serviceID),
		EntityID:  entityID,
		ActorID:   requestcontext.Principal(ctx),
		RequestID: requestcontext.RequestID(ctx),
		Detail:    detail,
	})
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record audit event")
	}
	return nil
}

func (s *Service) logAudit(ctx context.Context, event audit.AuditEvent, attributes ...any) {
	if s.logger == nil {
		return
	}
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}
	args := append(attributes, "event", string(event), "log_type", "audit", "principal", requestcontext.Principal(ctx))
	s.logger.InfoContext(ctx, string(event), args...)
}

func (s *Service) logFailure(ctx context.Context, op string, err error, attributes ...any) {
	if s.logger == nil {
		return
	}
	args := append(attributes,
		"operation", op,
		"code", string(dErrors.CodeOf(err)),
		"request_id", requestcontext.RequestID(ctx),
		"error", err,
	)
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		s.logger.ErrorContext(ctx, "registry operation failed", args...)
		return
	}
	s.logger.WarnContext(ctx, "registry operation rejected", args...)
}
