package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	dErrors "ecovalue/pkg/domain-errors"
)

const (
	MinBiodiversityIndex = 0
	MaxBiodiversityIndex = 100
)

// Service is a registered ecosystem service: a natural-capital asset valued
// for its environmental output.
//
// Invariants:
//   - Name is non-empty
//   - AreaKm2 > 0
//   - BiodiversityIndex in [0, 100]
//   - AnnualValue, CarbonSequestration, WaterPurification, SoilProtection >= 0
//   - Immutable after registration
type Service struct {
	ID                  ServiceID       `json:"service_id"`
	Name                string          `json:"name"`
	Type                string          `json:"type"`
	Location            string          `json:"location"`
	AreaKm2             decimal.Decimal `json:"area_km2"`
	AnnualValue         decimal.Decimal `json:"annual_value"`
	CarbonSequestration decimal.Decimal `json:"carbon_sequestration"`
	WaterPurification   decimal.Decimal `json:"water_purification"`
	BiodiversityIndex   int             `json:"biodiversity_index"`
	SoilProtection      decimal.Decimal `json:"soil_protection"`
	RegisteredBy        string          `json:"registered_by"`
	CreatedAt           time.Time       `json:"created_at"`
}

// ServiceAttributes are the caller-supplied fields of a service.
type ServiceAttributes struct {
	Name                string
	Type                string
	Location            string
	AreaKm2             decimal.Decimal
	AnnualValue         decimal.Decimal
	CarbonSequestration decimal.Decimal
	WaterPurification   decimal.Decimal
	BiodiversityIndex   int
	SoilProtection      decimal.Decimal
}

// Validate checks the attribute invariants without allocating anything.
func (a ServiceAttributes) Validate() error {
	if a.BiodiversityIndex < MinBiodiversityIndex || a.BiodiversityIndex > MaxBiodiversityIndex {
		return dErrors.New(dErrors.CodeInvalidInput, "biodiversity_index must be between 0 and 100")
	}
	if !a.AreaKm2.IsPositive() {
		return dErrors.New(dErrors.CodeInvalidInput, "area_km2 must be greater than zero")
	}
	if strings.TrimSpace(a.Name) == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "name cannot be empty")
	}
	nonNegative := []struct {
		field string
		value decimal.Decimal
	}{
		{"annual_value", a.AnnualValue},
		{"carbon_sequestration", a.CarbonSequestration},
		{"water_purification", a.WaterPurification},
		{"soil_protection", a.SoilProtection},
	}
	for _, f := range nonNegative {
		if f.value.IsNegative() {
			return dErrors.New(dErrors.CodeInvalidInput, f.field+" cannot be negative")
		}
	}
	return nil
}

// NewService builds a Service after validating attrs.
func NewService(id ServiceID, attrs ServiceAttributes, registeredBy string, now time.Time) (*Service, error) {
	if err := attrs.Validate(); err != nil {
		return nil, err
	}
	return &Service{
		ID:                  id,
		Name:                strings.TrimSpace(attrs.Name),
		Type:                attrs.Type,
		Location:            attrs.Location,
		AreaKm2:             attrs.AreaKm2,
		AnnualValue:         attrs.AnnualValue,
		CarbonSequestration: attrs.CarbonSequestration,
		WaterPurification:   attrs.WaterPurification,
		BiodiversityIndex:   attrs.BiodiversityIndex,
		SoilProtection:      attrs.SoilProtection,
		RegisteredBy:        registeredBy,
		CreatedAt:           now,
	}, nil
}
