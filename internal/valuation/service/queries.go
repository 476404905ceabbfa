package service

import (
	"context"
	"errors"

	"ecovalue/internal/valuation/models"
	dErrors "ecovalue/pkg/domain-errors"
	"ecovalue/pkg/platform/sentinel"
)

// GetService returns one registered service.
func (s *Service) GetService(ctx context.Context, id models.ServiceID) (*models.Service, error) {
	return s.requireService(ctx, id)
}

// ListServices returns every registered service ordered by id.
func (s *Service) ListServices(ctx context.Context) ([]*models.Service, error) {
	services, err := s.store.ListServices(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list services")
	}
	return services, nil
}

func (s *Service) GetPaymentProgram(ctx context.Context, id models.PaymentID) (*models.PaymentProgram, error) {
	program, err := s.store.FindPaymentProgram(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "payment program not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load payment program")
	}
	return program, nil
}

// ListPaymentPrograms returns a service's programs ordered by id.
func (s *Service) ListPaymentPrograms(ctx context.Context, serviceID models.ServiceID) ([]*models.PaymentProgram, error) {
	if _, err := s.requireService(ctx, serviceID); err != nil {
		return nil, err
	}
	programs, err := s.store.ListPaymentPrograms(ctx, serviceID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list payment programs")
	}
	return programs, nil
}

// ListMeasurements returns a service's measurements in the order they were recorded.
func (s *Service) ListMeasurements(ctx context.Context, serviceID models.ServiceID) ([]*models.Measurement, error) {
	if _, err := s.requireService(ctx, serviceID); err != nil {
		return nil, err
	}
	measurements, err := s.store.ListMeasurements(ctx, serviceID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list measurements")
	}
	return measurements, nil
}

// ListIssuances returns a service's credit issuances in issue order.
func (s *Service) ListIssuances(ctx context.Context, serviceID models.ServiceID) ([]*models.CreditIssuance, error) {
	if _, err := s.requireService(ctx, serviceID); err != nil {
		return nil, err
	}
	issuances, err := s.store.ListIssuances(ctx, serviceID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list issuances")
	}
	return issuances, nil
}
