package models

import "github.com/shopspring/decimal"

// Totals is a registry-wide snapshot.
type Totals struct {
	TotalValueTracked decimal.Decimal `json:"total_value_tracked"`
	TotalServices     int64           `json:"total_services"`
	TotalPayments     int64           `json:"total_payments"`
}
