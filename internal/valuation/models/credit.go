package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	dErrors "ecovalue/pkg/domain-errors"
)

// CreditIssuance records tradable credits minted against a service's output.
//
// Invariants:
//   - CreditsGenerated >= 0
//   - PricePerCredit >= 0
//   - VerificationStandard is non-empty (e.g. "VCS", "Gold Standard")
type CreditIssuance struct {
	ID                   IssuanceID      `json:"issuance_id"`
	ServiceID            ServiceID       `json:"service_id"`
	CreditsGenerated     decimal.Decimal `json:"credits_generated"`
	PricePerCredit       decimal.Decimal `json:"price_per_credit"`
	VerificationStandard string          `json:"verification_standard"`
	IssuedBy             string          `json:"issued_by"`
	IssuedAt             time.Time       `json:"issued_at"`
}

// IssuanceRequest holds the caller-supplied issuance values.
type IssuanceRequest struct {
	CreditsGenerated     decimal.Decimal
	PricePerCredit       decimal.Decimal
	VerificationStandard string
}

func (r IssuanceRequest) Validate() error {
	if r.PricePerCredit.IsNegative() {
		return dErrors.New(dErrors.CodeInvalidInput, "price_per_credit cannot be negative")
	}
	if r.CreditsGenerated.IsNegative() {
		return dErrors.New(dErrors.CodeInvalidInput, "credits_generated cannot be negative")
	}
	if strings.TrimSpace(r.VerificationStandard) == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "verification_standard cannot be empty")
	}
	return nil
}

func NewCreditIssuance(id IssuanceID, serviceID ServiceID, req IssuanceRequest, issuedBy string, now time.Time) (*CreditIssuance, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return &CreditIssuance{
		ID:                   id,
		ServiceID:            serviceID,
		CreditsGenerated:     req.CreditsGenerated,
		PricePerCredit:       req.PricePerCredit,
		VerificationStandard: strings.TrimSpace(req.VerificationStandard),
		IssuedBy:             issuedBy,
		IssuedAt:             now,
	}, nil
}

// TotalValue is CreditsGenerated × PricePerCredit.
func (c *CreditIssuance) TotalValue() decimal.Decimal {
	return c.CreditsGenerated.Mul(c.PricePerCredit)
}
