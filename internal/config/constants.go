package config

import "time"

// Address generation
const (
	DefaultMaxScanID = 5_000
)

// Transaction shape constants shared across the fee-converging builder.
const (
	DustThreshold         = 1_000  // sats; outputs at or below this are never created
	DefaultRunePostage    = 10_000 // sats attached to a rune-carrying output
	FallbackFeeRateMSatVB = 2_000  // millisat/vbyte (2 sat/vbyte), used when the node reports no fee percentiles
)

// Server
const (
	ServerPort           = 8080
	ServerReadTimeout    = 30 * time.Second
	ServerWriteTimeout   = 60 * time.Second
	ServerIdleTimeout    = 120 * time.Second
	ServerMaxHeaderBytes = 1 << 20
	ShutdownTimeout      = 15 * time.Second
	APITimeout           = 30 * time.Second
)

// Logging
const (
	LogDir         = "./logs"
	LogFilePattern = "hdwallet-%s-%s.log" // %s, %s = YYYY-MM-DD, level
	LogMaxAgeDays  = 30
)

// Database / persistence substrate
const (
	DBPath        = "./data/hdwallet.sqlite"
	DBTestPath    = "./data/hdwallet_test.sqlite"
	DBWALMode     = true
	DBBusyTimeout = 5000 // milliseconds
)

// Provider rate limiting (requests per second)
const (
	RateLimitChainRPC  = 10
	RateLimitRuneIndex = 10
)

// Provider request tuning
const (
	ProviderRequestTimeout = 15 * time.Second
	ProviderMaxRetries     = 3
	ProviderRetryBaseDelay = 1 * time.Second
)
