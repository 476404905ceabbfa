package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Measurement is one observation of a service's output. Measurements form an
// append-only history per service and are never validated beyond the
// service reference.
type Measurement struct {
	ServiceID        ServiceID       `json:"service_id"`
	CarbonCaptured   decimal.Decimal `json:"carbon_captured"`
	WaterFiltered    decimal.Decimal `json:"water_filtered"`
	SpeciesCount     int64           `json:"species_count"`
	SoilQualityScore int64           `json:"soil_quality_score"`
	RecordedBy       string          `json:"recorded_by"`
	RecordedAt       time.Time       `json:"recorded_at"`
}

// Observation holds the caller-supplied measurement values.
type Observation struct {
	CarbonCaptured   decimal.Decimal
	WaterFiltered    decimal.Decimal
	SpeciesCount     int64
	SoilQualityScore int64
}

func NewMeasurement(serviceID ServiceID, obs Observation, recordedBy string, now time.Time) *Measurement {
	return &Measurement{
		ServiceID:        serviceID,
		CarbonCaptured:   obs.CarbonCaptured,
		WaterFiltered:    obs.WaterFiltered,
		SpeciesCount:     obs.SpeciesCount,
		SoilQualityScore: obs.SoilQualityScore,
		RecordedBy:       recordedBy,
		RecordedAt:       now,
	}
}
