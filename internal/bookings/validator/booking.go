package validator

import (
	"time"

	"atelier/pkg/logger"
	"atelier/pkg/model"
	"atelier/pkg/validate"
)

// BookingValidator layers booking-specific rules on top of the shared
// struct validation.
type BookingValidator struct {
	validate *validate.Validator
	log      *logger.Logger
}

func NewBookingValidator(log *logger.Logger) *BookingValidator {
	return &BookingValidator{
		validate: validate.New(),
		log:      log,
	}
}

// Validate checks a fully merged booking before it is written.
func (v *BookingValidator) Validate(booking *model.Booking) error {
	if err := v.validate.Struct(booking); err != nil {
		return err
	}
	return nil
}

// ValidateCreate additionally requires the scheduled time to be in the
// future; updates may keep a past time (completing an old booking).
func (v *BookingValidator) ValidateCreate(booking *model.Booking) error {
	if err := v.Validate(booking); err != nil {
		return err
	}
	if !booking.ScheduledAt.After(time.Now()) {
		return validate.FieldErrors{{
			Field:   "scheduled_at",
			Message: "scheduled_at must be in the future",
		}}
	}
	return nil
}

func (v *BookingValidator) ValidateUpdate(updates *model.BookingUpdate) error {
	return v.validate.Struct(updates)
}
