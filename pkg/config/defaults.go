package config

import "time"

const (
	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "jobfair"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultPort     = "5000"
	DefaultLogLevel = "info"

	DefaultRateLimitRequests = 60
	DefaultRateLimitWindow   = 1 * time.Minute

	DefaultRequestTimeout = 30 * time.Second
	DefaultIdempotencyTTL = 24 * time.Hour
	DefaultMaxRequestSize = 1 * 1024 * 1024 // 1MB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	DefaultCORSOrigins = "http://localhost:3000"

	DefaultJWTExpire = 30 * 24 * time.Hour

	// The event runs 10-13 May 2022, both days inclusive.
	DefaultEventDateMin       = "2022-05-10T00:00:00Z"
	DefaultEventDateMax       = "2022-05-13T23:59:59Z"
	DefaultMaxBookingsPerUser = 3
	DefaultOwnerLockTTL       = 10 * time.Second
	DefaultOwnerLockWait      = 3 * time.Second

	DefaultBookingEventsEnabled = false
	DefaultBookingEventsTopic   = "booking-events"
	DefaultBookingEventsDLQ     = "booking-events-dlq"
	DefaultBookingEventsGroup   = "booking-events-audit"

	DefaultPaginationLimit = 100
)
