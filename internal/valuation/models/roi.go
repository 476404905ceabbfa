package models

import (
	"fmt"

	"github.com/shopspring/decimal"

	dErrors "ecovalue/pkg/domain-errors"
)

// ROI holds the per-area and per-unit valuation ratios of a service.
type ROI struct {
	ServiceID              ServiceID       `json:"service_id"`
	ValuePerKm2            decimal.Decimal `json:"value_per_km2"`
	CarbonValuePerTon      decimal.Decimal `json:"carbon_value_per_ton"`
	BiodiversityEfficiency decimal.Decimal `json:"biodiversity_efficiency"`
}

// ComputeROI derives the ratios from the stored service fields. It fails with
// ERR-DIVISION-BY-ZERO when the service sequesters no carbon.
func ComputeROI(s *Service) (*ROI, error) {
	if s.CarbonSequestration.IsZero() {
		return nil, dErrors.New(dErrors.CodeDivisionByZero, "carbon_sequestration is zero")
	}
	if s.AreaKm2.IsZero() {
		return nil, dErrors.New(dErrors.CodeDivisionByZero, "area_km2 is zero")
	}
	return &ROI{
		ServiceID:              s.ID,
		ValuePerKm2:            s.AnnualValue.Div(s.AreaKm2),
		CarbonValuePerTon:      s.AnnualValue.Div(s.CarbonSequestration),
		BiodiversityEfficiency: decimal.NewFromInt(int64(s.BiodiversityIndex)).Mul(s.AreaKm2),
	}, nil
}

// ROICacheKey names a cached ROI after the registration it was computed from:
// id, creation instant and the ratio inputs. Ids restart with a fresh memory
// store or a reset database, so the id alone can match a different service.
func ROICacheKey(s *Service) string {
	return fmt.Sprintf("%d:%d:%s:%s:%s:%d",
		s.ID, s.CreatedAt.UnixMicro(),
		s.AnnualValue.String(), s.AreaKm2.String(), s.CarbonSequestration.String(),
		s.BiodiversityIndex)
}
