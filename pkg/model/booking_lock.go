package model

import "time"

// BookingLock is an advisory lock document keyed by email + time slot. It
// serializes the conflict check against concurrent creates for the same
// customer; a TTL index on ExpiresAt reaps leaked locks.
type BookingLock struct {
	ID        string    `bson:"_id" json:"id"`
	ExpiresAt time.Time `bson:"expires_at" json:"expires_at"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

// BookingStatistics is the status-count aggregation for bookings.
type BookingStatistics struct {
	Total    int64         `json:"total" bson:"total"`
	ByStatus []StatusCount `json:"by_status" bson:"by_status"`
}
