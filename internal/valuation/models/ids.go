package models

import (
	"strconv"

	dErrors "ecovalue/pkg/domain-errors"
)

// ServiceID identifies an ecosystem service. Allocated sequentially from 1.
type ServiceID int64

// PaymentID identifies a payment program. Allocated sequentially from 1.
type PaymentID int64

// IssuanceID identifies a credit issuance. Allocated sequentially from 1.
type IssuanceID int64

// Sequence names a per-entity id counter.
type Sequence string

const (
	SequenceService  Sequence = "service"
	SequencePayment  Sequence = "payment"
	SequenceIssuance Sequence = "issuance"
)

// Sequences lists every counter the registry maintains.
var Sequences = []Sequence{SequenceService, SequencePayment, SequenceIssuance}

func (id ServiceID) String() string  { return strconv.FormatInt(int64(id), 10) }
func (id PaymentID) String() string  { return strconv.FormatInt(int64(id), 10) }
func (id IssuanceID) String() string { return strconv.FormatInt(int64(id), 10) }

func parseID(raw, kind string) (int64, error) {
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "invalid "+kind+" id")
	}
	return v, nil
}

// ParseServiceID parses a path or query value. Non-numeric input is invalid;
// numeric ids that were never allocated surface later as not found.
func ParseServiceID(raw string) (ServiceID, error) {
	v, err := parseID(raw, "service")
	return ServiceID(v), err
}

// ParsePaymentID parses a payment program id.
func ParsePaymentID(raw string) (PaymentID, error) {
	v, err := parseID(raw, "payment program")
	return PaymentID(v), err
}
