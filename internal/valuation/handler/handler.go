// Package handler exposes the valuation registry over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"net/netip"
	"time"

	"github.com/go-chi/chi/v5"

	"ecovalue/internal/platform/metrics"
	"ecovalue/internal/platform/middleware"
	"ecovalue/internal/valuation/models"
	dErrors "ecovalue/pkg/domain-errors"
	"ecovalue/pkg/platform/audit"
	"ecovalue/pkg/platform/httputil"
	"ecovalue/pkg/requestcontext"
)

// Service defines the registry operations the handler serves.
type Service interface {
	RegisterService(ctx context.Context, attrs models.ServiceAttributes) (*models.Service, error)
	GetService(ctx context.Context, id models.ServiceID) (*models.Service, error)
	ListServices(ctx context.Context) ([]*models.Service, error)
	ComputeROI(ctx context.Context, id models.ServiceID) (*models.ROI, error)

	CreatePaymentProgram(ctx context.Context, serviceID models.ServiceID, terms models.PaymentTerms) (*models.PaymentProgram, error)
	GetPaymentProgram(ctx context.Context, id models.PaymentID) (*models.PaymentProgram, error)
	ListPaymentPrograms(ctx context.Context, serviceID models.ServiceID) ([]*models.PaymentProgram, error)

	RecordMeasurement(ctx context.Context, serviceID models.ServiceID, obs models.Observation) (*models.Measurement, error)
	ListMeasurements(ctx context.Context, serviceID models.ServiceID) ([]*models.Measurement, error)

	IssueCredits(ctx context.Context, serviceID models.ServiceID, req models.IssuanceRequest) (*models.CreditIssuance, error)
	ListIssuances(ctx context.Context, serviceID models.ServiceID) ([]*models.CreditIssuance, error)

	Totals(ctx context.Context) (*models.Totals, error)
}

// AuditReader lists the audit trail of one service.
type AuditReader interface {
	ListByService(ctx context.Context, serviceID int64) ([]audit.Event, error)
}

const defaultRequestTimeout = 30 * time.Second

// Handler handles registry endpoints.
type Handler struct {
	logger         *slog.Logger
	registry       Service
	metrics        *metrics.Metrics
	jwtValidator   middleware.JWTValidator
	auditReader    AuditReader
	writeLimiter   func(http.Handler) http.Handler
	trustedProxies []netip.Prefix
	requestTimeout time.Duration
}

type Option func(*Handler)

// WithJWTValidator requires a bearer token on mutating routes.
func WithJWTValidator(v middleware.JWTValidator) Option {
	return func(h *Handler) {
		h.jwtValidator = v
	}
}

// WithAuditReader exposes the audit trail route.
func WithAuditReader(reader AuditReader) Option {
	return func(h *Handler) {
		h.auditReader = reader
	}
}

// WithWriteLimiter throttles mutating routes. It runs after authentication
// so limits apply per principal.
func WithWriteLimiter(mw func(http.Handler) http.Handler) Option {
	return func(h *Handler) {
		h.writeLimiter = mw
	}
}

// WithTrustedProxies names the peers whose forwarding headers identify the client.
func WithTrustedProxies(prefixes []netip.Prefix) Option {
	return func(h *Handler) {
		h.trustedProxies = prefixes
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(h *Handler) {
		h.metrics = m
	}
}

func WithRequestTimeout(d time.Duration) Option {
	return func(h *Handler) {
		h.requestTimeout = d
	}
}

// New creates a registry Handler.
func New(registry Service, logger *slog.Logger, opts ...Option) *Handler {
	h := &Handler{
		logger:         logger,
		registry:       registry,
		requestTimeout: defaultRequestTimeout,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts the registry routes on r.
func (h *Handler) Register(r chi.Router) {
	api := chi.NewRouter()
	api.Use(middleware.Recovery(h.logger))
	api.Use(middleware.RequestID)
	api.Use(middleware.RequestTime)
	api.Use(middleware.ClientMetadata(h.trustedProxies))
	api.Use(middleware.Logger(h.logger))
	api.Use(middleware.Timeout(h.requestTimeout))
	api.Use(middleware.LatencyMiddleware(h.metrics))

	api.Get("/services", h.handleListServices)
	api.Get("/services/{id}", h.handleGetService)
	api.Get("/services/{id}/roi", h.handleComputeROI)
	api.Get("/services/{id}/payment-programs", h.handleListPaymentPrograms)
	api.Get("/services/{id}/measurements", h.handleListMeasurements)
	api.Get("/services/{id}/credits", h.handleListIssuances)
	api.Get("/payment-programs/{id}", h.handleGetPaymentProgram)
	api.Get("/totals", h.handleTotals)
	if h.auditReader != nil {
		api.Get("/services/{id}/audit-events", h.handleListAuditEvents)
	}

	api.Group(func(w chi.Router) {
		w.Use(middleware.ContentTypeJSON)
		if h.jwtValidator != nil {
			w.Use(middleware.RequireAuth(h.jwtValidator, h.logger))
		}
		if h.writeLimiter != nil {
			w.Use(h.writeLimiter)
		}
		w.Post("/services", h.handleRegisterService)
		w.Post("/services/{id}/payment-programs", h.handleCreatePaymentProgram)
		w.Post("/services/{id}/measurements", h.handleRecordMeasurement)
		w.Post("/services/{id}/credits", h.handleIssueCredits)
	})

	r.Mount("/api/v1", api)
}

func (h *Handler) handleRegisterService(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[RegisterServiceRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	svc, err := h.registry.RegisterService(ctx, req.toAttributes())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, serviceCreatedResponse{ServiceID: svc.ID})
}

func (h *Handler) handleListServices(w http.ResponseWriter, r *http.Request) {
	services, err := h.registry.ListServices(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if services == nil {
		services = []*models.Service{}
	}
	httputil.WriteJSON(w, http.StatusOK, serviceListResponse{Services: services})
}

func (h *Handler) handleGetService(w http.ResponseWriter, r *http.Request) {
	id, err := models.ParseServiceID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	svc, err := h.registry.GetService(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, svc)
}

func (h *Handler) handleComputeROI(w http.ResponseWriter, r *http.Request) {
	id, err := models.ParseServiceID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	roi, err := h.registry.ComputeROI(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, roi)
}

func (h *Handler) handleCreatePaymentProgram(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	serviceID, err := models.ParseServiceID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[CreatePaymentProgramRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	program, err := h.registry.CreatePaymentProgram(ctx, serviceID, req.toTerms())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, paymentCreatedResponse{PaymentID: program.ID})
}

func (h *Handler) handleListPaymentPrograms(w http.ResponseWriter, r *http.Request) {
	serviceID, err := models.ParseServiceID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	programs, err := h.registry.ListPaymentPrograms(r.Context(), serviceID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	resp := paymentProgramListResponse{PaymentPrograms: make([]paymentProgramResponse, 0, len(programs))}
	for _, p := range programs {
		resp.PaymentPrograms = append(resp.PaymentPrograms, toPaymentProgramResponse(p))
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleGetPaymentProgram(w http.ResponseWriter, r *http.Request) {
	id, err := models.ParsePaymentID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	program, err := h.registry.GetPaymentProgram(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toPaymentProgramResponse(program))
}

func (h *Handler) handleRecordMeasurement(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	serviceID, err := models.ParseServiceID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[RecordMeasurementRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	m, err := h.registry.RecordMeasurement(ctx, serviceID, req.toObservation())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, m)
}

func (h *Handler) handleListMeasurements(w http.ResponseWriter, r *http.Request) {
	serviceID, err := models.ParseServiceID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	measurements, err := h.registry.ListMeasurements(r.Context(), serviceID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if measurements == nil {
		measurements = []*models.Measurement{}
	}
	httputil.WriteJSON(w, http.StatusOK, measurementListResponse{Measurements: measurements})
}

func (h *Handler) handleIssueCredits(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	serviceID, err := models.ParseServiceID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[IssueCreditsRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	issuance, err := h.registry.IssueCredits(ctx, serviceID, req.toIssuanceRequest())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, issuanceCreatedResponse{IssuanceID: issuance.ID})
}

func (h *Handler) handleListIssuances(w http.ResponseWriter, r *http.Request) {
	serviceID, err := models.ParseServiceID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	issuances, err := h.registry.ListIssuances(r.Context(), serviceID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	resp := issuanceListResponse{Issuances: make([]issuanceResponse, 0, len(issuances))}
	for _, c := range issuances {
		resp.Issuances = append(resp.Issuances, issuanceResponse{CreditIssuance: c, TotalValue: c.TotalValue()})
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleTotals(w http.ResponseWriter, r *http.Request) {
	totals, err := h.registry.Totals(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, totals)
}

// handleListAuditEvents returns the audit trail of an existing service.
func (h *Handler) handleListAuditEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	serviceID, err := models.ParseServiceID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if _, err := h.registry.GetService(ctx, serviceID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	events, err := h.auditReader.ListByService(ctx, int64(serviceID))
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list audit events",
			"service_id", int64(serviceID),
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list audit events"))
		return
	}
	resp := auditEventListResponse{Events: make([]auditEventResponse, 0, len(events))}
	for _, e := range events {
		resp.Events = append(resp.Events, toAuditEventResponse(e))
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}
