package config

import "time"

const (
	DefaultEnvironment = "development"
	DefaultPort        = "8080"
	DefaultLogLevel    = "info"

	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "atelier"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultJWTTTL = 24 * time.Hour

	DefaultSMTPPort        = 587
	DefaultEmailFrom       = "Atelier <no-reply@atelier.example>"
	DefaultPaymentCurrency = "usd"

	DefaultKafkaEventTopic = "atelier.events"
	DefaultKafkaDLQTopic   = "atelier.events.dlq"
	DefaultKafkaGroupID    = "atelier-notify"

	DefaultRateLimitRequests = 100
	DefaultRateLimitWindow   = 1 * time.Minute

	DefaultRequestTimeout = 30 * time.Second
	DefaultMaxRequestSize = 1 * 1024 * 1024 // 1MB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
)
