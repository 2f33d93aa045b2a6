package config

import (
	"os"
	"runtime"
	"strconv"
	"time"

	"github.com/tanglekit/walletcore/internal/signing"
)

// Config holds all configurable parameters for the wallet core.
type Config struct {
	// Node API endpoint
	NodeURL     string
	HTTPTimeout time.Duration

	// Tip selection and proof of work
	Depth              uint64
	MinWeightMagnitude int
	PowWorkers         int
	PowMaxAttempts     uint64

	// Key derivation
	SecurityLevel signing.SecurityLevel

	// Balance monitor poll interval
	PollInterval time.Duration
}

// Default returns a Config populated with default values.
func Default() Config {
	return Config{
		NodeURL:     "http://localhost:14265",
		HTTPTimeout: 30 * time.Second,

		Depth:              3,
		MinWeightMagnitude: 14,
		PowWorkers:         runtime.NumCPU(),
		PowMaxAttempts:     1 << 32,

		SecurityLevel: signing.SecurityMedium,

		PollInterval: 5 * time.Second,
	}
}

// FromEnv returns a Config populated from environment variables,
// falling back to defaults for unset values.
func FromEnv() Config {
	cfg := Default()

	if v := os.Getenv("IOTA_NODE_URL"); v != "" {
		cfg.NodeURL = v
	}
	if v := os.Getenv("IOTA_HTTP_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.HTTPTimeout = d
		}
	}
	if v := os.Getenv("IOTA_DEPTH"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			cfg.Depth = n
		}
	}
	if v := os.Getenv("IOTA_MWM"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MinWeightMagnitude = n
		}
	}
	if v := os.Getenv("IOTA_POW_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.PowWorkers = n
		}
	}
	if v := os.Getenv("IOTA_POW_MAX_ATTEMPTS"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			cfg.PowMaxAttempts = n
		}
	}
	if v := os.Getenv("IOTA_SECURITY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && signing.SecurityLevel(n).Valid() {
			cfg.SecurityLevel = signing.SecurityLevel(n)
		}
	}
	if v := os.Getenv("IOTA_POLL_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.PollInterval = d
		}
	}

	return cfg
}
