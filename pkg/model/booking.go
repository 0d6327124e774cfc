package model

import "time"

const (
	BookingStatusPending   = "pending"
	BookingStatusConfirmed = "confirmed"
	BookingStatusCancelled = "cancelled"
	BookingStatusCompleted = "completed"
)

// ConflictWindow is the exclusion interval around a booking time: another
// active booking for the same email within this window (inclusive) is
// rejected.
const ConflictWindow = 60 * time.Minute

// Customer is the contact block embedded in bookings.
type Customer struct {
	Name  string `json:"name" bson:"name" validate:"required,min=2,max=100"`
	Email string `json:"email" bson:"email" validate:"required,email"`
	Phone string `json:"phone" bson:"phone" validate:"required,min=7,max=20"`
}

type Booking struct {
	ID          string    `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	Customer    Customer  `json:"customer" bson:"customer" validate:"required"`
	ScheduledAt time.Time `json:"scheduled_at" bson:"scheduled_at" validate:"required"`
	Notes       string    `json:"notes,omitempty" bson:"notes,omitempty" validate:"omitempty,max=2000"`
	Status      string    `json:"status" bson:"status" validate:"required,oneof=pending confirmed cancelled completed"`
	Payment     *Payment  `json:"payment,omitempty" bson:"payment,omitempty"`
	CreatedAt   time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" bson:"updated_at"`
}

type BookingUpdate struct {
	Customer    *Customer  `json:"customer,omitempty" validate:"omitempty"`
	ScheduledAt *time.Time `json:"scheduled_at,omitempty" validate:"omitempty"`
	Notes       *string    `json:"notes,omitempty" validate:"omitempty,max=2000"`
	Status      string     `json:"status,omitempty" validate:"omitempty,oneof=pending confirmed cancelled completed"`
}

// CanTransition reports whether a booking may move between the two statuses.
// Cancelled is terminal; everything else is permitted administratively.
func CanTransition(from, to string) bool {
	if from == BookingStatusCancelled && to != BookingStatusCancelled {
		return false
	}
	return true
}

// IsActive reports whether a booking participates in conflict detection.
func (b *Booking) IsActive() bool {
	return b.Status != BookingStatusCancelled
}
