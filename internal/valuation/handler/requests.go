package handler

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"ecovalue/internal/valuation/models"
	dErrors "ecovalue/pkg/domain-errors"
)

// Request bodies only get shape checks here. Value rules live in the models
// and run after the service reference is resolved.

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func requestValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(jsonFieldName)
	})
	return validate
}

// jsonFieldName reports validation failures by JSON name.
func jsonFieldName(fld reflect.StructField) string {
	name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
	if name == "-" {
		return ""
	}
	if name == "" {
		return fld.Name
	}
	return name
}

// validateStruct runs the tag rules on req and reports the first failing field.
func validateStruct(req any) error {
	err := requestValidator().Struct(req)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return dErrors.New(dErrors.CodeInvalidInput, fe.Field()+" failed "+fe.Tag()+" check")
	}
	return dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid request")
}

type RegisterServiceRequest struct {
	Name                string          `json:"name" validate:"max=200"`
	Type                string          `json:"type" validate:"max=100"`
	Location            string          `json:"location" validate:"max=200"`
	AreaKm2             decimal.Decimal `json:"area_km2"`
	AnnualValue         decimal.Decimal `json:"annual_value"`
	CarbonSequestration decimal.Decimal `json:"carbon_sequestration"`
	WaterPurification   decimal.Decimal `json:"water_purification"`
	BiodiversityIndex   int             `json:"biodiversity_index"`
	SoilProtection      decimal.Decimal `json:"soil_protection"`
}

func (r *RegisterServiceRequest) Validate() error {
	return validateStruct(r)
}

func (r *RegisterServiceRequest) toAttributes() models.ServiceAttributes {
	return models.ServiceAttributes{
		Name:                r.Name,
		Type:                r.Type,
		Location:            r.Location,
		AreaKm2:             r.AreaKm2,
		AnnualValue:         r.AnnualValue,
		CarbonSequestration: r.CarbonSequestration,
		WaterPurification:   r.WaterPurification,
		BiodiversityIndex:   r.BiodiversityIndex,
		SoilProtection:      r.SoilProtection,
	}
}

type CreatePaymentProgramRequest struct {
	PaymentType        string          `json:"payment_type" validate:"max=100"`
	AnnualPayment      decimal.Decimal `json:"annual_payment"`
	DurationYears      int             `json:"duration_years"`
	PerformanceMetrics []int64         `json:"performance_metrics" validate:"max=1000"`
}

func (r *CreatePaymentProgramRequest) Validate() error {
	return validateStruct(r)
}

func (r *CreatePaymentProgramRequest) toTerms() models.PaymentTerms {
	return models.PaymentTerms{
		PaymentType:        r.PaymentType,
		AnnualPayment:      r.AnnualPayment,
		DurationYears:      r.DurationYears,
		PerformanceMetrics: r.PerformanceMetrics,
	}
}

type RecordMeasurementRequest struct {
	CarbonCaptured   decimal.Decimal `json:"carbon_captured"`
	WaterFiltered    decimal.Decimal `json:"water_filtered"`
	SpeciesCount     int64           `json:"species_count"`
	SoilQualityScore int64           `json:"soil_quality_score"`
}

func (r *RecordMeasurementRequest) Validate() error {
	return validateStruct(r)
}

func (r *RecordMeasurementRequest) toObservation() models.Observation {
	return models.Observation{
		CarbonCaptured:   r.CarbonCaptured,
		WaterFiltered:    r.WaterFiltered,
		SpeciesCount:     r.SpeciesCount,
		SoilQualityScore: r.SoilQualityScore,
	}
}

type IssueCreditsRequest struct {
	CreditsGenerated     decimal.Decimal `json:"credits_generated"`
	PricePerCredit       decimal.Decimal `json:"price_per_credit"`
	VerificationStandard string          `json:"verification_standard" validate:"max=100"`
}

func (r *IssueCreditsRequest) Validate() error {
	return validateStruct(r)
}

func (r *IssueCreditsRequest) toIssuanceRequest() models.IssuanceRequest {
	return models.IssuanceRequest{
		CreditsGenerated:     r.CreditsGenerated,
		PricePerCredit:       r.PricePerCredit,
		VerificationStandard: r.VerificationStandard,
	}
}
