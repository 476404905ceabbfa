package handler

import (
	"time"

	"github.com/shopspring/decimal"

	"ecovalue/internal/valuation/models"
	"ecovalue/pkg/platform/audit"
)

type serviceCreatedResponse struct {
	ServiceID models.ServiceID `json:"service_id"`
}

type paymentCreatedResponse struct {
	PaymentID models.PaymentID `json:"payment_id"`
}

type issuanceCreatedResponse struct {
	IssuanceID models.IssuanceID `json:"issuance_id"`
}

type serviceListResponse struct {
	Services []*models.Service `json:"services"`
}

type paymentProgramResponse struct {
	*models.PaymentProgram
	TotalCommitment    decimal.Decimal `json:"total_commitment"`
	AveragePerformance decimal.Decimal `json:"average_performance"`
}

func toPaymentProgramResponse(p *models.PaymentProgram) paymentProgramResponse {
	return paymentProgramResponse{
		PaymentProgram:     p,
		TotalCommitment:    p.TotalCommitment(),
		AveragePerformance: p.AveragePerformance(),
	}
}

type paymentProgramListResponse struct {
	PaymentPrograms []paymentProgramResponse `json:"payment_programs"`
}

type measurementListResponse struct {
	Measurements []*models.Measurement `json:"measurements"`
}

type issuanceResponse struct {
	*models.CreditIssuance
	TotalValue decimal.Decimal `json:"total_value"`
}

type issuanceListResponse struct {
	Issuances []issuanceResponse `json:"issuances"`
}

type auditEventResponse struct {
	ID        string    `json:"id"`
	Category  string    `json:"category"`
	Action    string    `json:"action"`
	EntityID  int64     `json:"entity_id,omitempty"`
	ActorID   string    `json:"actor_id"`
	RequestID string    `json:"request_id,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func toAuditEventResponse(e audit.Event) auditEventResponse {
	return auditEventResponse{
		ID:        e.ID.String(),
		Category:  string(e.Category),
		Action:    e.Action,
		EntityID:  e.EntityID,
		ActorID:   e.ActorID,
		RequestID: e.RequestID,
		Detail:    e.Detail,
		Timestamp: e.Timestamp,
	}
}

type auditEventListResponse struct {
	Events []auditEventResponse `json:"events"`
}
