package models

import (
	"time"

	"github.com/shopspring/decimal"

	dErrors "ecovalue/pkg/domain-errors"
)

// PaymentProgram is a recurring disbursement tied to a service's performance.
//
// Invariants:
//   - ServiceID references a registered service
//   - DurationYears > 0
//   - AnnualPayment >= 0
type PaymentProgram struct {
	ID                 PaymentID       `json:"payment_id"`
	ServiceID          ServiceID       `json:"service_id"`
	PaymentType        string          `json:"payment_type"`
	AnnualPayment      decimal.Decimal `json:"annual_payment"`
	DurationYears      int             `json:"duration_years"`
	PerformanceMetrics []int64         `json:"performance_metrics"`
	CreatedBy          string          `json:"created_by"`
	CreatedAt          time.Time       `json:"created_at"`
}

// PaymentTerms are the caller-supplied fields of a payment program.
type PaymentTerms struct {
	PaymentType        string
	AnnualPayment      decimal.Decimal
	DurationYears      int
	PerformanceMetrics []int64
}

func (t PaymentTerms) Validate() error {
	if t.DurationYears <= 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "duration_years must be greater than zero")
	}
	if t.AnnualPayment.IsNegative() {
		return dErrors.New(dErrors.CodeInvalidInput, "annual_payment cannot be negative")
	}
	return nil
}

func NewPaymentProgram(id PaymentID, serviceID ServiceID, terms PaymentTerms, createdBy string, now time.Time) (*PaymentProgram, error) {
	if err := terms.Validate(); err != nil {
		return nil, err
	}
	metrics := make([]int64, len(terms.PerformanceMetrics))
	copy(metrics, terms.PerformanceMetrics)
	return &PaymentProgram{
		ID:                 id,
		ServiceID:          serviceID,
		PaymentType:        terms.PaymentType,
		AnnualPayment:      terms.AnnualPayment,
		DurationYears:      terms.DurationYears,
		PerformanceMetrics: metrics,
		CreatedBy:          createdBy,
		CreatedAt:          now,
	}, nil
}

// TotalCommitment is AnnualPayment over the whole contract duration.
func (p *PaymentProgram) TotalCommitment() decimal.Decimal {
	return p.AnnualPayment.Mul(decimal.NewFromInt(int64(p.DurationYears)))
}

// AveragePerformance is the mean performance score, zero when none were given.
func (p *PaymentProgram) AveragePerformance() decimal.Decimal {
	if len(p.PerformanceMetrics) == 0 {
		return decimal.Zero
	}
	sum := decimal.Zero
	for _, m := range p.PerformanceMetrics {
		sum = sum.Add(decimal.NewFromInt(m))
	}
	return sum.Div(decimal.NewFromInt(int64(len(p.PerformanceMetrics))))
}
