package handler

import (
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	jwttoken "ecovalue/internal/jwt_token"
	"ecovalue/internal/valuation/models"
	"ecovalue/internal/valuation/service"
	"ecovalue/internal/valuation/store"
	dErrors "ecovalue/pkg/domain-errors"
	"ecovalue/pkg/platform/audit/publishers/compliance"
	auditmemory "ecovalue/pkg/platform/audit/store/memory"
	"ecovalue/pkg/requestcontext"
	"ecovalue/pkg/testutil"
)

// =============================================================================
// Registry Handler Test Suite
// =============================================================================
// Drives the routes through chi with the real service over the in-memory store,
// so status mapping and body shapes are checked end to end.

type HandlerSuite struct {
	suite.Suite
	router http.Handler
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func newRouter(opts ...Option) http.Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mem := store.NewInMemory()
	registry := service.New(mem, mem, service.WithLogger(logger))
	r := chi.NewRouter()
	New(registry, logger, opts...).Register(r)
	return r
}

func (s *HandlerSuite) SetupTest() {
	s.router = newRouter()
}

func amazonBody() map[string]any {
	return map[string]any{
		"name":                 "Amazon Rainforest Carbon Sink",
		"type":                 "carbon_sequestration",
		"location":             "Brazil",
		"area_km2":             10000,
		"annual_value":         50000000,
		"carbon_sequestration": 500000,
		"water_purification":   1000000,
		"biodiversity_index":   95,
		"soil_protection":      250000,
	}
}

func (s *HandlerSuite) registerService(body map[string]any) models.ServiceID {
	rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/v1/services", body))
	s.Require().Equal(http.StatusCreated, rr.Code, rr.Body.String())
	return testutil.UnmarshalResponse[serviceCreatedResponse](s.T(), rr).ServiceID
}

func (s *HandlerSuite) TestRegisterAndFetchService() {
	id := s.registerService(amazonBody())
	s.Equal(models.ServiceID(1), id)

	rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodGet, "/api/v1/services/1", nil))
	s.Require().Equal(http.StatusOK, rr.Code)
	svc := testutil.UnmarshalResponse[models.Service](s.T(), rr)
	s.Equal("Amazon Rainforest Carbon Sink", svc.Name)
	s.Equal(95, svc.BiodiversityIndex)
	s.Equal(requestcontext.AnonymousPrincipal, svc.RegisteredBy)
	s.NotEmpty(rr.Header().Get("X-Request-ID"))

	rr = testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodGet, "/api/v1/services", nil))
	list := testutil.UnmarshalResponse[serviceListResponse](s.T(), rr)
	s.Len(list.Services, 1)
}

type programView struct {
	PaymentID          models.PaymentID `json:"payment_id"`
	ServiceID          models.ServiceID `json:"service_id"`
	PerformanceMetrics []int64          `json:"performance_metrics"`
	TotalCommitment    decimal.Decimal  `json:"total_commitment"`
	AveragePerformance decimal.Decimal  `json:"average_performance"`
}

type issuanceListView struct {
	Issuances []struct {
		TotalValue decimal.Decimal `json:"total_value"`
	} `json:"issuances"`
}

func (s *HandlerSuite) TestRegisterServiceRejections() {
	cases := []struct {
		name   string
		mutate func(map[string]any)
		raw    string
		status int
		code   dErrors.Code
	}{
		{
			name:   "biodiversity above range",
			mutate: func(b map[string]any) { b["biodiversity_index"] = 101 },
			status: http.StatusBadRequest,
			code:   dErrors.CodeInvalidInput,
		},
		{
			name:   "zero area",
			mutate: func(b map[string]any) { b["area_km2"] = 0 },
			status: http.StatusBadRequest,
			code:   dErrors.CodeInvalidInput,
		},
		{
			name:   "unknown field",
			mutate: func(b map[string]any) { b["owner"] = "someone" },
			status: http.StatusBadRequest,
			code:   dErrors.CodeBadRequest,
		},
		{
			name:   "malformed json",
			raw:    `{"name":`,
			status: http.StatusBadRequest,
			code:   dErrors.CodeBadRequest,
		},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			var req *http.Request
			if tc.raw != "" {
				req = testutil.NewRequestWithBody(s.T(), http.MethodPost, "/api/v1/services", tc.raw)
			} else {
				body := amazonBody()
				tc.mutate(body)
				req = testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/v1/services", body)
			}
			rr := testutil.DoRequest(s.router, req)
			testutil.AssertError(s.T(), rr, tc.status, tc.code)
		})
	}

	s.Run("failed registrations consume no id", func() {
		s.Equal(models.ServiceID(1), s.registerService(amazonBody()))
	})
}

func (s *HandlerSuite) TestROI() {
	id := s.registerService(amazonBody())

	rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodGet, "/api/v1/services/"+id.String()+"/roi", nil))
	s.Require().Equal(http.StatusOK, rr.Code)
	roi := testutil.UnmarshalResponse[models.ROI](s.T(), rr)
	s.True(roi.ValuePerKm2.Equal(decimal.NewFromInt(5000)))
	s.True(roi.CarbonValuePerTon.Equal(decimal.NewFromInt(100)))
	s.True(roi.BiodiversityEfficiency.Equal(decimal.NewFromInt(950000)))

	s.Run("zero carbon is unprocessable", func() {
		body := amazonBody()
		body["carbon_sequestration"] = 0
		zero := s.registerService(body)
		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodGet, "/api/v1/services/"+zero.String()+"/roi", nil))
		errBody := testutil.AssertError(s.T(), rr, http.StatusUnprocessableEntity, dErrors.CodeDivisionByZero)
		s.Contains(errBody.Description, "carbon_sequestration")
	})

	s.Run("non-numeric id", func() {
		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodGet, "/api/v1/services/abc/roi", nil))
		testutil.AssertError(s.T(), rr, http.StatusBadRequest, dErrors.CodeInvalidInput)
	})

	s.Run("unknown id", func() {
		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodGet, "/api/v1/services/77/roi", nil))
		testutil.AssertError(s.T(), rr, http.StatusNotFound, dErrors.CodeNotFound)
	})
}

func (s *HandlerSuite) TestPaymentPrograms() {
	id := s.registerService(amazonBody())
	path := "/api/v1/services/" + id.String() + "/payment-programs"

	rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, path, map[string]any{
		"payment_type":        "performance_based",
		"annual_payment":      2000000,
		"duration_years":      10,
		"performance_metrics": []int{85, 90, 95},
	}))
	s.Require().Equal(http.StatusCreated, rr.Code, rr.Body.String())
	s.Equal(models.PaymentID(1), testutil.UnmarshalResponse[paymentCreatedResponse](s.T(), rr).PaymentID)

	rr = testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodGet, "/api/v1/payment-programs/1", nil))
	s.Require().Equal(http.StatusOK, rr.Code)
	program := testutil.UnmarshalResponse[programView](s.T(), rr)
	s.Equal(id, program.ServiceID)
	s.Equal([]int64{85, 90, 95}, program.PerformanceMetrics)
	s.True(program.TotalCommitment.Equal(decimal.NewFromInt(20000000)))
	s.True(program.AveragePerformance.Equal(decimal.NewFromInt(90)))

	s.Run("zero duration is invalid", func() {
		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, path, map[string]any{
			"annual_payment": 1, "duration_years": 0,
		}))
		testutil.AssertError(s.T(), rr, http.StatusBadRequest, dErrors.CodeInvalidInput)
	})

	s.Run("unknown service wins over invalid terms", func() {
		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/v1/services/99/payment-programs", map[string]any{
			"duration_years": 0,
		}))
		testutil.AssertError(s.T(), rr, http.StatusNotFound, dErrors.CodeNotFound)
	})

	s.Run("listing an unknown service", func() {
		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodGet, "/api/v1/services/99/payment-programs", nil))
		testutil.AssertError(s.T(), rr, http.StatusNotFound, dErrors.CodeNotFound)
	})
}

func (s *HandlerSuite) TestMeasurementsAndCredits() {
	id := s.registerService(amazonBody())
	base := "/api/v1/services/" + id.String()

	for _, carbon := range []int{480000, 520000} {
		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, base+"/measurements", map[string]any{
			"carbon_captured":    carbon,
			"water_filtered":     950000,
			"species_count":      1200,
			"soil_quality_score": 88,
		}))
		s.Require().Equal(http.StatusCreated, rr.Code, rr.Body.String())
	}
	rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodGet, base+"/measurements", nil))
	history := testutil.UnmarshalResponse[measurementListResponse](s.T(), rr)
	s.Require().Len(history.Measurements, 2)
	s.True(history.Measurements[0].CarbonCaptured.Equal(decimal.NewFromInt(480000)))

	rr = testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, base+"/credits", map[string]any{
		"credits_generated":     500000,
		"price_per_credit":      "25.50",
		"verification_standard": "VCS",
	}))
	s.Require().Equal(http.StatusCreated, rr.Code, rr.Body.String())
	s.Equal(models.IssuanceID(1), testutil.UnmarshalResponse[issuanceCreatedResponse](s.T(), rr).IssuanceID)

	rr = testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodGet, base+"/credits", nil))
	issuances := testutil.UnmarshalResponse[issuanceListView](s.T(), rr)
	s.Require().Len(issuances.Issuances, 1)
	s.True(issuances.Issuances[0].TotalValue.Equal(decimal.NewFromInt(12750000)))

	s.Run("missing standard is invalid", func() {
		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, base+"/credits", map[string]any{
			"credits_generated": 1, "price_per_credit": 1,
		}))
		testutil.AssertError(s.T(), rr, http.StatusBadRequest, dErrors.CodeInvalidInput)
	})

	s.Run("measurement against unknown service", func() {
		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/v1/services/99/measurements", map[string]any{}))
		testutil.AssertError(s.T(), rr, http.StatusNotFound, dErrors.CodeNotFound)
	})
}

func (s *HandlerSuite) TestTotals() {
	s.registerService(amazonBody())
	second := amazonBody()
	second["annual_value"] = 1000
	s.registerService(second)

	rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodGet, "/api/v1/totals", nil))
	s.Require().Equal(http.StatusOK, rr.Code)
	totals := testutil.UnmarshalResponse[models.Totals](s.T(), rr)
	s.Equal(int64(2), totals.TotalServices)
	s.Equal(int64(0), totals.TotalPayments)
	s.True(totals.TotalValueTracked.Equal(decimal.NewFromInt(50001000)))
}

func (s *HandlerSuite) TestContentTypeRequiredOnMutations() {
	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/v1/services", amazonBody())
	req.Header.Set("Content-Type", "text/plain")
	rr := testutil.DoRequest(s.router, req)
	testutil.AssertError(s.T(), rr, http.StatusBadRequest, dErrors.CodeBadRequest)
}

func TestBearerTokenRecordsPrincipal(t *testing.T) {
	tokens := jwttoken.NewJWTService("handler-test-key", "ecovalue", "ecovalue-api")
	router := newRouter(WithJWTValidator(jwttoken.NewJWTServiceAdapter(tokens)))

	t.Run("mutation without a token is unauthorized", func(t *testing.T) {
		rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/api/v1/services", amazonBody()))
		testutil.AssertError(t, rr, http.StatusUnauthorized, dErrors.CodeUnauthorized)
	})

	t.Run("token subject is recorded as the registrant", func(t *testing.T) {
		token, err := tokens.GenerateAccessToken("owner-12", time.Hour)
		require.NoError(t, err)
		rr := testutil.DoRequest(router, testutil.WithBearer(
			testutil.NewJSONRequest(t, http.MethodPost, "/api/v1/services", amazonBody()), token))
		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

		rr = testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodGet, "/api/v1/services/1", nil))
		svc := testutil.UnmarshalResponse[models.Service](t, rr)
		assert.Equal(t, "owner-12", svc.RegisteredBy)
	})

	t.Run("reads stay open", func(t *testing.T) {
		rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodGet, "/api/v1/totals", nil))
		assert.Equal(t, http.StatusOK, rr.Code)
	})
}

func TestAuditTrailRoute(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mem := store.NewInMemory()
	auditStore := auditmemory.NewInMemoryStore()
	registry := service.New(mem, mem,
		service.WithLogger(logger),
		service.WithAuditPublisher(compliance.New(auditStore)),
	)
	router := chi.NewRouter()
	New(registry, logger, WithAuditReader(auditStore)).Register(router)

	rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/api/v1/services", amazonBody()))
	require.Equal(t, http.StatusCreated, rr.Code)
	rr = testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/api/v1/services/1/credits", map[string]any{
		"credits_generated": 10, "price_per_credit": 2, "verification_standard": "Gold Standard",
	}))
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodGet, "/api/v1/services/1/audit-events", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	trail := testutil.UnmarshalResponse[auditEventListResponse](t, rr)
	require.Len(t, trail.Events, 2)
	assert.Equal(t, "service_registered", trail.Events[0].Action)
	assert.Equal(t, "operations", trail.Events[0].Category)
	assert.Equal(t, "credits_issued", trail.Events[1].Action)
	assert.Equal(t, "compliance", trail.Events[1].Category)
	assert.NotEmpty(t, trail.Events[1].RequestID)

	rr = testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodGet, "/api/v1/services/5/audit-events", nil))
	testutil.AssertError(t, rr, http.StatusNotFound, dErrors.CodeNotFound)
}
