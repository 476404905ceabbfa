package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"ecovalue/internal/valuation/models"
	dErrors "ecovalue/pkg/domain-errors"
	"ecovalue/pkg/platform/audit"
	"ecovalue/pkg/platform/sentinel"
	"ecovalue/pkg/requestcontext"
)

// RegisterService validates attrs and stores a new service under the next
// service id.
func (s *Service) RegisterService(ctx context.Context, attrs models.ServiceAttributes) (svc *models.Service, err error) {
	start := time.Now()
	ctx, span := s.startSpan(ctx, opRegisterService)
	defer func() { s.finish(span, opRegisterService, start, err) }()

	if err = attrs.Validate(); err != nil {
		s.logFailure(ctx, opRegisterService, err, "name", attrs.Name)
		return nil, err
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		id, err := s.store.NextID(ctx, models.SequenceService)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to allocate service id")
		}
		created, err := models.NewService(models.ServiceID(id), attrs, requestcontext.Principal(ctx), requestcontext.Now(ctx))
		if err != nil {
			return err
		}
		if err := s.store.SaveService(ctx, created); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save service")
		}
		if err := s.emitAudit(ctx, audit.EventServiceRegistered, created.ID, id, created.Name); err != nil {
			return err
		}
		svc = created
		return nil
	})
	if err != nil {
		err = ensureCoded(err, "failed to register service")
		s.logFailure(ctx, opRegisterService, err, "name", attrs.Name)
		return nil, err
	}

	span.SetAttributes(attribute.Int64("service.id", int64(svc.ID)))
	s.logAudit(ctx, audit.EventServiceRegistered,
		"service_id", int64(svc.ID),
		"name", svc.Name,
		"annual_value", svc.AnnualValue.String(),
	)
	s.metrics.IncrementCreated("service")
	return svc, nil
}

// CreatePaymentProgram attaches a payment program to a registered service.
// An unknown service is reported before any input problem.
func (s *Service) CreatePaymentProgram(ctx context.Context, serviceID models.ServiceID, terms models.PaymentTerms) (program *models.PaymentProgram, err error) {
	start := time.Now()
	ctx, span := s.startSpan(ctx, opCreatePaymentProgram, attribute.Int64("service.id", int64(serviceID)))
	defer func() { s.finish(span, opCreatePaymentProgram, start, err) }()

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if _, err := s.requireService(ctx, serviceID); err != nil {
			return err
		}
		if err := terms.Validate(); err != nil {
			return err
		}
		id, err := s.store.NextID(ctx, models.SequencePayment)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to allocate payment id")
		}
		created, err := models.NewPaymentProgram(models.PaymentID(id), serviceID, terms, requestcontext.Principal(ctx), requestcontext.Now(ctx))
		if err != nil {
			return err
		}
		if err := s.store.SavePaymentProgram(ctx, created); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save payment program")
		}
		detail := fmt.Sprintf("type=%s annual_payment=%s duration_years=%d",
			created.PaymentType, created.AnnualPayment.String(), created.DurationYears)
		if err := s.emitAudit(ctx, audit.EventPaymentProgramCreated, serviceID, id, detail); err != nil {
			return err
		}
		program = created
		return nil
	})
	if err != nil {
		err = ensureCoded(err, "failed to create payment program")
		s.logFailure(ctx, opCreatePaymentProgram, err, "service_id", int64(serviceID))
		return nil, err
	}

	s.logAudit(ctx, audit.EventPaymentProgramCreated,
		"service_id", int64(serviceID),
		"payment_id", int64(program.ID),
		"total_commitment", program.TotalCommitment().String(),
	)
	s.metrics.IncrementCreated("payment_program")
	return program, nil
}

// RecordMeasurement appends an observation to the service's history. Values
// are stored as given.
func (s *Service) RecordMeasurement(ctx context.Context, serviceID models.ServiceID, obs models.Observation) (m *models.Measurement, err error) {
	start := time.Now()
	ctx, span := s.startSpan(ctx, opRecordMeasurement, attribute.Int64("service.id", int64(serviceID)))
	defer func() { s.finish(span, opRecordMeasurement, start, err) }()

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if _, err := s.requireService(ctx, serviceID); err != nil {
			return err
		}
		recorded := models.NewMeasurement(serviceID, obs, requestcontext.Principal(ctx), requestcontext.Now(ctx))
		if err := s.store.AppendMeasurement(ctx, recorded); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to append measurement")
		}
		detail := fmt.Sprintf("carbon_captured=%s species_count=%d", recorded.CarbonCaptured.String(), recorded.SpeciesCount)
		if err := s.emitAudit(ctx, audit.EventMeasurementRecorded, serviceID, 0, detail); err != nil {
			return err
		}
		m = recorded
		return nil
	})
	if err != nil {
		err = ensureCoded(err, "failed to record measurement")
		s.logFailure(ctx, opRecordMeasurement, err, "service_id", int64(serviceID))
		return nil, err
	}

	s.logAudit(ctx, audit.EventMeasurementRecorded, "service_id", int64(serviceID))
	s.metrics.IncrementCreated("measurement")
	return m, nil
}

// IssueCredits records a credit issuance against a registered service.
func (s *Service) IssueCredits(ctx context.Context, serviceID models.ServiceID, req models.IssuanceRequest) (issuance *models.CreditIssuance, err error) {
	start := time.Now()
	ctx, span := s.startSpan(ctx, opIssueCredits, attribute.Int64("service.id", int64(serviceID)))
	defer func() { s.finish(span, opIssueCredits, start, err) }()

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if _, err := s.requireService(ctx, serviceID); err != nil {
			return err
		}
		if err := req.Validate(); err != nil {
			return err
		}
		id, err := s.store.NextID(ctx, models.SequenceIssuance)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to allocate issuance id")
		}
		created, err := models.NewCreditIssuance(models.IssuanceID(id), serviceID, req, requestcontext.Principal(ctx), requestcontext.Now(ctx))
		if err != nil {
			return err
		}
		if err := s.store.SaveIssuance(ctx, created); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save issuance")
		}
		detail := fmt.Sprintf("credits=%s price_per_credit=%s standard=%s",
			created.CreditsGenerated.String(), created.PricePerCredit.String(), created.VerificationStandard)
		if err := s.emitAudit(ctx, audit.EventCreditsIssued, serviceID, id, detail); err != nil {
			return err
		}
		issuance = created
		return nil
	})
	if err != nil {
		err = ensureCoded(err, "failed to issue credits")
		s.logFailure(ctx, opIssueCredits, err, "service_id", int64(serviceID))
		return nil, err
	}

	s.logAudit(ctx, audit.EventCreditsIssued,
		"service_id", int64(serviceID),
		"issuance_id", int64(issuance.ID),
		"total_value", issuance.TotalValue().String(),
	)
	s.metrics.IncrementCreated("credit_issuance")
	return issuance, nil
}

// ComputeROI derives the valuation ratios of a service. The service is always
// read first and the cache is keyed on the stored registration.
func (s *Service) ComputeROI(ctx context.Context, serviceID models.ServiceID) (roi *models.ROI, err error) {
	start := time.Now()
	ctx, span := s.startSpan(ctx, opComputeROI, attribute.Int64("service.id", int64(serviceID)))
	defer func() { s.finish(span, opComputeROI, start, err) }()

	svc, err := s.requireService(ctx, serviceID)
	if err != nil {
		s.logFailure(ctx, opComputeROI, err, "service_id", int64(serviceID))
		return nil, err
	}

	key := models.ROICacheKey(svc)
	if cached := s.cachedROI(ctx, serviceID, key); cached != nil {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return cached, nil
	}

	roi, err = models.ComputeROI(svc)
	if err != nil {
		s.logFailure(ctx, opComputeROI, err, "service_id", int64(serviceID))
		return nil, err
	}

	if s.roiCache != nil {
		if cacheErr := s.roiCache.Set(ctx, key, roi); cacheErr != nil && s.logger != nil {
			s.logger.WarnContext(ctx, "failed to cache roi",
				"service_id", int64(serviceID),
				"request_id", requestcontext.RequestID(ctx),
				"error", cacheErr,
			)
		}
	}
	return roi, nil
}

// cachedROI returns a cached result or nil. Cache failures degrade to a miss.
func (s *Service) cachedROI(ctx context.Context, serviceID models.ServiceID, key string) *models.ROI {
	if s.roiCache == nil {
		return nil
	}
	roi, err := s.roiCache.Get(ctx, key)
	switch {
	case err == nil && roi != nil && roi.ServiceID == serviceID:
		s.metrics.IncrementROICache("hit")
		return roi
	case err == nil, errors.Is(err, sentinel.ErrNotFound):
		s.metrics.IncrementROICache("miss")
	default:
		s.metrics.IncrementROICache("error")
		if s.logger != nil {
			s.logger.WarnContext(ctx, "roi cache lookup failed",
				"service_id", int64(serviceID),
				"request_id", requestcontext.RequestID(ctx),
				"error", err,
			)
		}
	}
	return nil
}

// Totals returns the registry-wide aggregates as one consistent snapshot.
func (s *Service) Totals(ctx context.Context) (totals *models.Totals, err error) {
	start := time.Now()
	ctx, span := s.startSpan(ctx, opTotals)
	defer func() { s.finish(span, opTotals, start, err) }()

	totals, err = s.store.Totals(ctx)
	if err != nil {
		err = dErrors.Wrap(err, dErrors.CodeInternal, "failed to read totals")
		s.logFailure(ctx, opTotals, err)
		return nil, err
	}
	s.metrics.SetValueTracked(totals.TotalValueTracked.InexactFloat64())
	return totals, nil
}
