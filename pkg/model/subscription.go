package model

import "time"

type Subscription struct {
	ID                string    `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	Name              string    `json:"name" bson:"name" validate:"required,min=2,max=100"`
	Email             string    `json:"email" bson:"email" validate:"required,email"`
	Verified          bool      `json:"verified" bson:"verified"`
	VerificationToken string    `json:"-" bson:"verification_token,omitempty"`
	CreatedAt         time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt         time.Time `json:"updated_at" bson:"updated_at"`
}

type SubscriptionUpdate struct {
	Name  string `json:"name,omitempty" validate:"omitempty,min=2,max=100"`
	Email string `json:"email,omitempty" validate:"omitempty,email"`
}

// MonthlySubscriptionStat is one month's bucket over the trailing year.
type MonthlySubscriptionStat struct {
	Month    int   `json:"month" bson:"month"`
	Total    int64 `json:"total" bson:"total"`
	Verified int64 `json:"verified" bson:"verified"`
}
