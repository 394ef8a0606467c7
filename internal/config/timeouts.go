package config

import "time"

// TimeoutConfig holds timeout settings for the HTTP server.
// These can be configured via CLI flags to tune behaviour for different environments.
type TimeoutConfig struct {
	// ServerRead is the maximum duration for reading an entire request.
	// Default: 15s
	ServerRead time.Duration

	// ServerIdle is how long keep-alive connections stay open between requests.
	// Default: 120s
	ServerIdle time.Duration

	// Shutdown bounds the graceful drain of in-flight requests.
	// Default: 30s
	Shutdown time.Duration
}

// DefaultTimeoutConfig returns the default timeout configuration
func DefaultTimeoutConfig() *TimeoutConfig {
	return &TimeoutConfig{
		ServerRead: 15 * time.Second,
		ServerIdle: 120 * time.Second,
		Shutdown:   30 * time.Second,
	}
}

// global instance that can be set at startup
var globalTimeouts = DefaultTimeoutConfig()

// SetGlobalTimeouts sets the global timeout configuration
func SetGlobalTimeouts(cfg *TimeoutConfig) {
	globalTimeouts = cfg
}

// GetTimeouts returns the global timeout configuration
func GetTimeouts() *TimeoutConfig {
	return globalTimeouts
}
