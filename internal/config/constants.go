package config

import "time"

// Database connection pool settings
const (
	DBMaxOpenConns    = 25
	DBMaxIdleConns    = 5
	DBConnMaxLifetime = 5 * time.Minute
)

// HTTP server timeouts
const (
	ServerRequestTimeout  = 60 * time.Second
	ServerReadTimeout     = 15 * time.Second
	ServerIdleTimeout     = 120 * time.Second
	ServerShutdownTimeout = 30 * time.Second
)

// Connectivity check timeouts at startup
const (
	DBPingTimeout    = 5 * time.Second
	RedisPingTimeout = 5 * time.Second
)

// Background job intervals
const SymlinkCleanupInterval = 5 * time.Minute

// Rate limiting
const (
	SocketRateLimitPerMin  = 60
	PublishRateLimitPerMin = 10
)

// Request body cap for JSON and form endpoints
const DefaultMaxBodySize = 1 << 20 // 1MB

// WebSocket tuning
const (
	WSReadLimit    = 1 << 20
	WSSendBuffer   = 64
	WSWriteTimeout = 10 * time.Second
)
