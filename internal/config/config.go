// Package config holds runtime configuration for the Cadly server.
//
// Everything is read from environment variables with sensible defaults,
// so the server runs out of the box against a local Fusion add-in and
// can be pointed elsewhere without code changes.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Default values. The settle delay must cover the add-in's worst observed
// asynchronous-apply latency (~1.5–3s empirically), so the default sits at
// the top of that range.
const (
	DefaultFusionHost   = "localhost"
	DefaultFusionPort   = 5000
	DefaultFusionTimeout = 20 * time.Second
	DefaultSettleDelay  = 3 * time.Second
	DefaultRetryCount   = 3
	DefaultRetryDelay   = time.Second
)

// Config is the fully-resolved runtime configuration. It is built once
// in main and passed down by value; nothing mutates it after FromEnv.
type Config struct {
	// FusionHost and FusionPort locate the CAD add-in's HTTP server.
	FusionHost string
	FusionPort int

	// FusionTimeout bounds every individual HTTP call to the add-in.
	FusionTimeout time.Duration

	// SettleDelay is the wait between issuing a mutation and re-querying
	// geometry. The add-in applies mutations asynchronously; validating
	// too early reads stale state.
	SettleDelay time.Duration

	// RetryCount and RetryDelay govern read-only request retries.
	// Mutating calls are never retried (duplicate mutation risk).
	RetryCount int
	RetryDelay time.Duration

	// DataDir is where the history database lives.
	DataDir string

	// LogLevel is one of debug, info, warn, error.
	LogLevel string
}

// FusionBaseURL returns the add-in's base URL.
func (c Config) FusionBaseURL() string {
	return fmt.Sprintf("http://%s:%d", c.FusionHost, c.FusionPort)
}

// FromEnv builds a Config from CADLY_* environment variables,
// falling back to defaults for anything unset or unparsable.
func FromEnv() Config {
	return Config{
		FusionHost:    envString("CADLY_FUSION_HOST", DefaultFusionHost),
		FusionPort:    envInt("CADLY_FUSION_PORT", DefaultFusionPort),
		FusionTimeout: envDuration("CADLY_FUSION_TIMEOUT", DefaultFusionTimeout),
		SettleDelay:   envDuration("CADLY_SETTLE_DELAY", DefaultSettleDelay),
		RetryCount:    envInt("CADLY_RETRY_COUNT", DefaultRetryCount),
		RetryDelay:    envDuration("CADLY_RETRY_DELAY", DefaultRetryDelay),
		DataDir:       envString("CADLY_DATA_DIR", defaultDataDir()),
		LogLevel:      envString("CADLY_LOG_LEVEL", "info"),
	}
}

// defaultDataDir resolves to ~/.cadly, or the working directory when the
// home directory cannot be determined.
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".cadly"
	}
	return filepath.Join(home, ".cadly")
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

// envDuration accepts either a Go duration string ("2.5s") or a bare
// number of seconds ("2.5"), matching the original add-in configs.
func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if secs, err := strconv.ParseFloat(v, 64); err == nil {
		return time.Duration(secs * float64(time.Second))
	}
	return fallback
}
