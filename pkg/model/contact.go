package model

import "time"

const (
	ContactStatusPending    = "pending"
	ContactStatusInProgress = "in-progress"
	ContactStatusResolved   = "resolved"
	ContactStatusSpam       = "spam"
)

type Contact struct {
	ID          string     `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	Name        string     `json:"name" bson:"name" validate:"required,min=2,max=100"`
	Email       string     `json:"email" bson:"email" validate:"required,email"`
	Subject     string     `json:"subject" bson:"subject" validate:"required,min=2,max=200"`
	Message     string     `json:"message" bson:"message" validate:"required,min=2,max=5000"`
	Status      string     `json:"status" bson:"status" validate:"omitempty,oneof=pending in-progress resolved spam"`
	IPAddress   string     `json:"ip_address,omitempty" bson:"ip_address,omitempty"`
	UserAgent   string     `json:"user_agent,omitempty" bson:"user_agent,omitempty"`
	RespondedAt *time.Time `json:"responded_at,omitempty" bson:"responded_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" bson:"updated_at"`
}

// ContactStatistics aggregates per-status counts plus a rolling 7 day count.
type ContactStatistics struct {
	Total     int64         `json:"total" bson:"total"`
	Last7Days int64         `json:"last_7_days" bson:"last_7_days"`
	ByStatus  []StatusCount `json:"by_status" bson:"by_status"`
}

// StatusCount is the generic bucket shared by status-grouping pipelines.
type StatusCount struct {
	Status string `json:"status" bson:"status"`
	Count  int64  `json:"count" bson:"count"`
}
