package config

import (
	"testing"
	"time"
)

// --- FromEnv defaults ---

func TestFromEnv_Defaults(t *testing.T) {
	// t.Setenv with empty values isolates this test from the real env.
	for _, key := range []string{
		"CADLY_FUSION_HOST", "CADLY_FUSION_PORT", "CADLY_FUSION_TIMEOUT",
		"CADLY_SETTLE_DELAY", "CADLY_RETRY_COUNT", "CADLY_RETRY_DELAY",
		"CADLY_DATA_DIR", "CADLY_LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}

	cfg := FromEnv()

	if cfg.FusionHost != DefaultFusionHost {
		t.Errorf("FusionHost = %s, want %s", cfg.FusionHost, DefaultFusionHost)
	}
	if cfg.FusionPort != DefaultFusionPort {
		t.Errorf("FusionPort = %d, want %d", cfg.FusionPort, DefaultFusionPort)
	}
	if cfg.FusionTimeout != DefaultFusionTimeout {
		t.Errorf("FusionTimeout = %v, want %v", cfg.FusionTimeout, DefaultFusionTimeout)
	}
	if cfg.SettleDelay != DefaultSettleDelay {
		t.Errorf("SettleDelay = %v, want %v", cfg.SettleDelay, DefaultSettleDelay)
	}
	if cfg.RetryCount != DefaultRetryCount {
		t.Errorf("RetryCount = %d, want %d", cfg.RetryCount, DefaultRetryCount)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %s, want info", cfg.LogLevel)
	}
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("CADLY_FUSION_HOST", "cadbox.local")
	t.Setenv("CADLY_FUSION_PORT", "8080")
	t.Setenv("CADLY_SETTLE_DELAY", "5s")
	t.Setenv("CADLY_LOG_LEVEL", "debug")

	cfg := FromEnv()

	if cfg.FusionHost != "cadbox.local" {
		t.Errorf("FusionHost = %s, want cadbox.local", cfg.FusionHost)
	}
	if cfg.FusionPort != 8080 {
		t.Errorf("FusionPort = %d, want 8080", cfg.FusionPort)
	}
	if cfg.SettleDelay != 5*time.Second {
		t.Errorf("SettleDelay = %v, want 5s", cfg.SettleDelay)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %s, want debug", cfg.LogLevel)
	}
}

func TestFusionBaseURL(t *testing.T) {
	cfg := Config{FusionHost: "localhost", FusionPort: 5000}
	if got := cfg.FusionBaseURL(); got != "http://localhost:5000" {
		t.Errorf("FusionBaseURL = %s", got)
	}
}

// --- envDuration ---

func TestEnvDuration_AcceptsBareSeconds(t *testing.T) {
	t.Setenv("CADLY_TEST_DUR", "2.5")
	if got := envDuration("CADLY_TEST_DUR", time.Second); got != 2500*time.Millisecond {
		t.Errorf("envDuration = %v, want 2.5s", got)
	}
}

func TestEnvDuration_BadValueFallsBack(t *testing.T) {
	t.Setenv("CADLY_TEST_DUR", "soon")
	if got := envDuration("CADLY_TEST_DUR", time.Second); got != time.Second {
		t.Errorf("envDuration = %v, want fallback 1s", got)
	}
}

func TestEnvInt_BadValueFallsBack(t *testing.T) {
	t.Setenv("CADLY_TEST_INT", "many")
	if got := envInt("CADLY_TEST_INT", 7); got != 7 {
		t.Errorf("envInt = %d, want fallback 7", got)
	}
}
