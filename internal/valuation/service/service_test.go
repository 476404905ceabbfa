package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"ecovalue/internal/valuation/metrics"
	"ecovalue/internal/valuation/models"
	"ecovalue/internal/valuation/store"
	dErrors "ecovalue/pkg/domain-errors"
	"ecovalue/pkg/platform/audit"
	"ecovalue/pkg/platform/audit/publishers/compliance"
	auditmemory "ecovalue/pkg/platform/audit/store/memory"
	"ecovalue/pkg/requestcontext"
)

// =============================================================================
// Registry Service Test Suite
// =============================================================================
// Runs the service against the in-memory store and audit store so the
// transactional guarantees are exercised end to end.

type RegistryServiceSuite struct {
	suite.Suite
	store      *store.InMemory
	auditStore *auditmemory.InMemoryStore
	service    *Service
	ctx        context.Context
}

func TestRegistryServiceSuite(t *testing.T) {
	suite.Run(t, new(RegistryServiceSuite))
}

func (s *RegistryServiceSuite) SetupTest() {
	s.store = store.NewInMemory()
	s.auditStore = auditmemory.NewInMemoryStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.service = New(s.store, s.store,
		WithLogger(logger),
		WithAuditPublisher(compliance.New(s.auditStore)),
		WithMetrics(metrics.New(prometheus.NewRegistry())),
	)
	ctx := requestcontext.WithPrincipal(context.Background(), "owner-1")
	ctx = requestcontext.WithRequestID(ctx, "req-1")
	s.ctx = requestcontext.WithTime(ctx, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
}

func amazon() models.ServiceAttributes {
	return models.ServiceAttributes{
		Name:                "Amazon Rainforest Carbon Sink",
		Type:                "carbon_sequestration",
		Location:            "Brazil",
		AreaKm2:             decimal.NewFromInt(10_000),
		AnnualValue:         decimal.NewFromInt(50_000_000),
		CarbonSequestration: decimal.NewFromInt(500_000),
		WaterPurification:   decimal.NewFromInt(1_000_000),
		BiodiversityIndex:   95,
		SoilProtection:      decimal.NewFromInt(250_000),
	}
}

func (s *RegistryServiceSuite) register(attrs models.ServiceAttributes) *models.Service {
	svc, err := s.service.RegisterService(s.ctx, attrs)
	s.Require().NoError(err)
	return svc
}

func (s *RegistryServiceSuite) requireCode(err error, code dErrors.Code) {
	s.Require().Error(err)
	s.Equal(code, dErrors.CodeOf(err), "unexpected error: %v", err)
}

func (s *RegistryServiceSuite) TestRegisterService() {
	s.Run("assigns sequential ids starting at one", func() {
		first := s.register(amazon())
		second := s.register(amazon())

		s.Equal(models.ServiceID(1), first.ID)
		s.Equal(models.ServiceID(2), second.ID)
		s.Equal("owner-1", first.RegisteredBy)
		s.Equal(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), first.CreatedAt)
	})

	s.Run("rejects biodiversity index outside range without consuming an id", func() {
		s.SetupTest()
		for _, index := range []int{-1, 101, 150} {
			attrs := amazon()
			attrs.BiodiversityIndex = index
			_, err := s.service.RegisterService(s.ctx, attrs)
			s.requireCode(err, dErrors.CodeInvalidInput)
		}

		svc := s.register(amazon())
		s.Equal(models.ServiceID(1), svc.ID)
	})

	s.Run("rejects non-positive area", func() {
		attrs := amazon()
		attrs.AreaKm2 = decimal.Zero
		_, err := s.service.RegisterService(s.ctx, attrs)
		s.requireCode(err, dErrors.CodeInvalidInput)
	})

	s.Run("writes a service_registered audit event", func() {
		s.SetupTest()
		svc := s.register(amazon())

		events, err := s.auditStore.ListByService(s.ctx, int64(svc.ID))
		s.Require().NoError(err)
		s.Require().Len(events, 1)
		s.Equal(string(audit.EventServiceRegistered), events[0].Action)
		s.Equal("owner-1", events[0].ActorID)
		s.Equal("req-1", events[0].RequestID)
	})
}

func (s *RegistryServiceSuite) TestComputeROI() {
	s.Run("matches the reference valuation exactly", func() {
		svc := s.register(amazon())

		roi, err := s.service.ComputeROI(s.ctx, svc.ID)
		s.Require().NoError(err)
		s.Equal("5000", roi.ValuePerKm2.String())
		s.Equal("100", roi.CarbonValuePerTon.String())
		s.Equal("950000", roi.BiodiversityEfficiency.String())
	})

	s.Run("value per km2 equals annual value over area", func() {
		attrs := amazon()
		attrs.AnnualValue = decimal.RequireFromString("1234.5")
		attrs.AreaKm2 = decimal.RequireFromString("2.5")
		svc := s.register(attrs)

		roi, err := s.service.ComputeROI(s.ctx, svc.ID)
		s.Require().NoError(err)
		s.True(roi.ValuePerKm2.Equal(attrs.AnnualValue.Div(attrs.AreaKm2)))
	})

	s.Run("zero carbon sequestration is a division by zero", func() {
		attrs := amazon()
		attrs.CarbonSequestration = decimal.Zero
		svc := s.register(attrs)

		_, err := s.service.ComputeROI(s.ctx, svc.ID)
		s.requireCode(err, dErrors.CodeDivisionByZero)
	})

	s.Run("unknown service", func() {
		_, err := s.service.ComputeROI(s.ctx, 999)
		s.requireCode(err, dErrors.CodeNotFound)
	})
}

func (s *RegistryServiceSuite) TestROICacheSurvivesStoreReset() {
	cache := store.NewInMemoryROICache(time.Hour)
	newService := func(st *store.InMemory) *Service {
		return New(st, st,
			WithROICache(cache),
			WithMetrics(metrics.New(prometheus.NewRegistry())),
		)
	}

	before := newService(store.NewInMemory())
	first, err := before.RegisterService(s.ctx, amazon())
	s.Require().NoError(err)
	_, err = before.ComputeROI(s.ctx, first.ID)
	s.Require().NoError(err)

	// A restarted process numbers services from 1 again against the same cache.
	after := newService(store.NewInMemory())

	_, err = after.ComputeROI(s.ctx, first.ID)
	s.requireCode(err, dErrors.CodeNotFound)

	attrs := amazon()
	attrs.AnnualValue = decimal.NewFromInt(1000)
	second, err := after.RegisterService(s.ctx, attrs)
	s.Require().NoError(err)
	s.Require().Equal(first.ID, second.ID)

	roi, err := after.ComputeROI(s.ctx, second.ID)
	s.Require().NoError(err)
	s.Equal("0.1", roi.ValuePerKm2.String())
	s.True(roi.ValuePerKm2.Equal(attrs.AnnualValue.Div(attrs.AreaKm2)))
}

func (s *RegistryServiceSuite) TestUnknownServiceIsNotFound() {
	s.register(amazon())
	missing := models.ServiceID(42)

	_, err := s.service.CreatePaymentProgram(s.ctx, missing, models.PaymentTerms{DurationYears: 5})
	s.requireCode(err, dErrors.CodeNotFound)

	_, err = s.service.RecordMeasurement(s.ctx, missing, models.Observation{})
	s.requireCode(err, dErrors.CodeNotFound)

	_, err = s.service.IssueCredits(s.ctx, missing, models.IssuanceRequest{VerificationStandard: "VCS"})
	s.requireCode(err, dErrors.CodeNotFound)

	s.Run("existence is checked before input", func() {
		_, err := s.service.CreatePaymentProgram(s.ctx, missing, models.PaymentTerms{DurationYears: 0})
		s.requireCode(err, dErrors.CodeNotFound)

		_, err = s.service.IssueCredits(s.ctx, missing, models.IssuanceRequest{PricePerCredit: decimal.NewFromInt(-1)})
		s.requireCode(err, dErrors.CodeNotFound)
	})
}

func (s *RegistryServiceSuite) TestCreatePaymentProgram() {
	svc := s.register(amazon())

	s.Run("stores terms and derived values", func() {
		program, err := s.service.CreatePaymentProgram(s.ctx, svc.ID, models.PaymentTerms{
			PaymentType:        "performance_based",
			AnnualPayment:      decimal.NewFromInt(2_000_000),
			DurationYears:      10,
			PerformanceMetrics: []int64{85, 90, 88},
		})
		s.Require().NoError(err)
		s.Equal(models.PaymentID(1), program.ID)
		s.Equal("20000000", program.TotalCommitment().String())
		s.Equal("87.6666666666666667", program.AveragePerformance().String())
	})

	s.Run("invalid duration consumes no id", func() {
		_, err := s.service.CreatePaymentProgram(s.ctx, svc.ID, models.PaymentTerms{DurationYears: 0})
		s.requireCode(err, dErrors.CodeInvalidInput)

		program, err := s.service.CreatePaymentProgram(s.ctx, svc.ID, models.PaymentTerms{DurationYears: 1})
		s.Require().NoError(err)
		s.Equal(models.PaymentID(2), program.ID)
	})

	s.Run("listed in id order", func() {
		programs, err := s.service.ListPaymentPrograms(s.ctx, svc.ID)
		s.Require().NoError(err)
		s.Require().Len(programs, 2)
		s.Equal(models.PaymentID(1), programs[0].ID)

		got, err := s.service.GetPaymentProgram(s.ctx, 2)
		s.Require().NoError(err)
		s.Equal(svc.ID, got.ServiceID)

		_, err = s.service.GetPaymentProgram(s.ctx, 99)
		s.requireCode(err, dErrors.CodeNotFound)
	})
}

func (s *RegistryServiceSuite) TestRecordMeasurement() {
	svc := s.register(amazon())

	for _, carbon := range []int64{480_000, 510_000} {
		_, err := s.service.RecordMeasurement(s.ctx, svc.ID, models.Observation{
			CarbonCaptured: decimal.NewFromInt(carbon),
			SpeciesCount:   1200,
		})
		s.Require().NoError(err)
	}

	history, err := s.service.ListMeasurements(s.ctx, svc.ID)
	s.Require().NoError(err)
	s.Require().Len(history, 2)
	s.Equal("480000", history[0].CarbonCaptured.String())
	s.Equal("510000", history[1].CarbonCaptured.String())
	s.Equal("owner-1", history[1].RecordedBy)
}

func (s *RegistryServiceSuite) TestIssueCredits() {
	svc := s.register(amazon())

	issuance, err := s.service.IssueCredits(s.ctx, svc.ID, models.IssuanceRequest{
		CreditsGenerated:     decimal.NewFromInt(500_000),
		PricePerCredit:       decimal.NewFromInt(25),
		VerificationStandard: "VCS",
	})
	s.Require().NoError(err)
	s.Equal(models.IssuanceID(1), issuance.ID)
	s.Equal("12500000", issuance.TotalValue().String())

	s.Run("rejects negative price", func() {
		_, err := s.service.IssueCredits(s.ctx, svc.ID, models.IssuanceRequest{
			PricePerCredit:       decimal.NewFromInt(-1),
			VerificationStandard: "VCS",
		})
		s.requireCode(err, dErrors.CodeInvalidInput)

		issuances, err := s.service.ListIssuances(s.ctx, svc.ID)
		s.Require().NoError(err)
		s.Len(issuances, 1)
	})

	s.Run("compliance audit event", func() {
		events, err := s.auditStore.ListByService(s.ctx, int64(svc.ID))
		s.Require().NoError(err)
		s.Require().Len(events, 2)
		s.Equal(string(audit.EventCreditsIssued), events[1].Action)
		s.Equal(audit.CategoryCompliance, events[1].Category)
		s.Equal(int64(1), events[1].EntityID)
	})
}

func (s *RegistryServiceSuite) TestTotals() {
	s.register(amazon())
	second := amazon()
	second.AnnualValue = decimal.RequireFromString("12.5")
	svc := s.register(second)

	bad := amazon()
	bad.BiodiversityIndex = 101
	_, err := s.service.RegisterService(s.ctx, bad)
	s.Require().Error(err)

	_, err = s.service.CreatePaymentProgram(s.ctx, svc.ID, models.PaymentTerms{DurationYears: 3})
	s.Require().NoError(err)

	totals, err := s.service.Totals(s.ctx)
	s.Require().NoError(err)
	s.Equal(int64(2), totals.TotalServices)
	s.Equal(int64(1), totals.TotalPayments)
	s.Equal("50000012.5", totals.TotalValueTracked.String())
}

func (s *RegistryServiceSuite) TestConcurrentRegistrationsGetDistinctIDs() {
	const workers = 16
	ids := make(chan models.ServiceID, workers)
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			svc, err := s.service.RegisterService(s.ctx, amazon())
			if err == nil {
				ids <- svc.ID
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[models.ServiceID]bool)
	for id := range ids {
		s.False(seen[id], "duplicate id %d", id)
		seen[id] = true
	}
	s.Len(seen, workers)
	for id := models.ServiceID(1); id <= workers; id++ {
		s.True(seen[id], "missing id %d", id)
	}
}

func (s *RegistryServiceSuite) TestReads() {
	svc := s.register(amazon())

	got, err := s.service.GetService(s.ctx, svc.ID)
	s.Require().NoError(err)
	s.Equal(svc.Name, got.Name)

	all, err := s.service.ListServices(s.ctx)
	s.Require().NoError(err)
	s.Len(all, 1)

	_, err = s.service.ListMeasurements(s.ctx, 7)
	s.requireCode(err, dErrors.CodeNotFound)
	_, err = s.service.ListIssuances(s.ctx, 7)
	s.requireCode(err, dErrors.CodeNotFound)
	_, err = s.service.ListPaymentPrograms(s.ctx, 7)
	s.requireCode(err, dErrors.CodeNotFound)
}

func (s *RegistryServiceSuite) TestAuditFailureRollsBack() {
	failing := New(s.store, s.store, WithAuditPublisher(compliance.New(failingAuditStore{})))

	_, err := failing.RegisterService(s.ctx, amazon())
	s.requireCode(err, dErrors.CodeInternal)

	totals, err := s.service.Totals(s.ctx)
	s.Require().NoError(err)
	s.Equal(int64(0), totals.TotalServices)

	svc := s.register(amazon())
	s.Equal(models.ServiceID(1), svc.ID, "rolled-back registration must not consume an id")
}

type failingAuditStore struct{}

func (failingAuditStore) Append(context.Context, audit.Event) error {
	return errors.New("audit sink down")
}

func (failingAuditStore) ListByService(context.Context, int64) ([]audit.Event, error) {
	return nil, nil
}

func (failingAuditStore) ListAll(context.Context) ([]audit.Event, error) { return nil, nil }
