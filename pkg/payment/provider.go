// Package payment abstracts the card-charging gateway so services depend
// on a small interface instead of a concrete SDK.
package payment

import "context"

// ChargeInput carries everything the gateway needs to create a charge.
// Amount is in minor units (cents).
type ChargeInput struct {
	Amount       int64
	Currency     string
	CardToken    string
	Description  string
	ReceiptEmail string
	ReferenceID  string
}

// ChargeResult is the provider-neutral outcome of a charge attempt.
type ChargeResult struct {
	IntentID       string
	Status         string // "paid", "pending" or "failed"
	FailureCode    string
	FailureMessage string
}

const (
	ChargeStatusPaid    = "paid"
	ChargeStatusPending = "pending"
	ChargeStatusFailed  = "failed"
)

// Provider is the payment gateway surface the services use.
type Provider interface {
	CreateCharge(ctx context.Context, in ChargeInput) (*ChargeResult, error)
	Refund(ctx context.Context, intentID string, amount int64) error
}
