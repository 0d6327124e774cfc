package model

import "time"

const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

// User.PasswordHash never leaves the process: excluded from JSON, and
// repositories only project it in for credential checks.
type User struct {
	ID           string    `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	Name         string    `json:"name" bson:"name" validate:"required,min=2,max=100"`
	Email        string    `json:"email" bson:"email" validate:"required,email"`
	PasswordHash string    `json:"-" bson:"password_hash,omitempty"`
	Role         string    `json:"role" bson:"role" validate:"omitempty,oneof=customer admin"`
	Active       bool      `json:"active" bson:"active"`
	LoginCount   int64     `json:"login_count" bson:"login_count"`
	LastLogin    time.Time `json:"last_login,omitempty" bson:"last_login,omitempty"`
	CreatedAt    time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" bson:"updated_at"`
}

type UserUpdate struct {
	Name  string `json:"name,omitempty" validate:"omitempty,min=2,max=100"`
	Email string `json:"email,omitempty" validate:"omitempty,email"`
	Role  string `json:"role,omitempty" validate:"omitempty,oneof=customer admin"`
}

// MonthlyUserStat buckets signups per month with average login activity.
type MonthlyUserStat struct {
	Month         int     `json:"month" bson:"month"`
	NumUsers      int64   `json:"num_users" bson:"num_users"`
	AvgLoginCount float64 `json:"avg_login_count" bson:"avg_login_count"`
}
