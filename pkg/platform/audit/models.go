package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EventCategory classifies audit events by their primary purpose so stores
// and sinks can apply different retention and routing.
type EventCategory string

const (
	// CategoryCompliance covers events with financial or regulatory weight:
	// money committed to a payment program, credits minted.
	CategoryCompliance EventCategory = "compliance"

	// CategoryOperations covers routine registry activity.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	ID        uuid.UUID
	Category  EventCategory
	Timestamp time.Time
	Action    string
	// ServiceID is the ecosystem service the action touched.
	ServiceID int64
	// EntityID is the id allocated by the action (payment, issuance), zero when none.
	EntityID  int64
	ActorID   string
	RequestID string
	Detail    string
}

type AuditEvent string

const (
	EventServiceRegistered     AuditEvent = "service_registered"
	EventPaymentProgramCreated AuditEvent = "payment_program_created"
	EventMeasurementRecorded   AuditEvent = "measurement_recorded"
	EventCreditsIssued         AuditEvent = "credits_issued"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventServiceRegistered:     CategoryOperations,
	EventMeasurementRecorded:   CategoryOperations,
	EventPaymentProgramCreated: CategoryCompliance,
	EventCreditsIssued:         CategoryCompliance,
}

// Known reports whether e is one of the registry's audit actions.
func (e AuditEvent) Known() bool {
	_, ok := eventCategories[e]
	return ok
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Store persists audit events. Append must join the caller's transaction
// when one is present in ctx.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByService(ctx context.Context, serviceID int64) ([]Event, error)
	ListAll(ctx context.Context) ([]Event, error)
}
