package model

import "time"

const (
	PaymentStatusPending  = "pending"
	PaymentStatusPaid     = "paid"
	PaymentStatusFailed   = "failed"
	PaymentStatusRefunded = "refunded"
)

const (
	PaymentMethodCreditCard   = "credit-card"
	PaymentMethodPaypal       = "paypal"
	PaymentMethodBankTransfer = "bank-transfer"
)

// Payment captures the provider-side state of a charge against a booking.
// Amount is in minor units (cents).
type Payment struct {
	Amount      int64     `json:"amount" bson:"amount" validate:"required,min=1"`
	Currency    string    `json:"currency" bson:"currency" validate:"required,len=3"`
	Method      string    `json:"method" bson:"method" validate:"required,oneof=credit-card paypal bank-transfer"`
	IntentID    string    `json:"intent_id,omitempty" bson:"intent_id,omitempty"`
	Status      string    `json:"status" bson:"status" validate:"required,oneof=pending paid failed refunded"`
	ProcessedAt time.Time `json:"processed_at" bson:"processed_at"`
}
