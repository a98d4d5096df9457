package config

import (
	"os"
	"testing"
	"time"
)

// setenv sets an env var for the duration of a test, restoring the original
// on cleanup.
func setenv(t *testing.T, key, value string) {
	t.Helper()
	original, had := os.LookupEnv(key)
	os.Setenv(key, value) //nolint:errcheck
	t.Cleanup(func() {
		if had {
			os.Setenv(key, original) //nolint:errcheck
		} else {
			os.Unsetenv(key) //nolint:errcheck
		}
	})
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"DATABRICKS_HOST",
		"DATABRICKS_TOKEN",
		"SERVING_ENDPOINT",
		"SERVINGBRIDGE_TIMEOUT",
		"SERVINGBRIDGE_MAX_TOKENS",
		"SERVINGBRIDGE_VERBOSE",
	} {
		setenv(t, key, "")
		os.Unsetenv(key) //nolint:errcheck
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg := Load()
	if cfg.Host != "" || cfg.Token != "" || cfg.Endpoint != "" {
		t.Errorf("expected empty workspace settings, got %+v", cfg)
	}
	if cfg.Timeout != defaultTimeout {
		t.Errorf("Timeout: got %v, want %v", cfg.Timeout, defaultTimeout)
	}
	if cfg.MaxOutputTokens != defaultMaxTokens {
		t.Errorf("MaxOutputTokens: got %d, want %d", cfg.MaxOutputTokens, defaultMaxTokens)
	}
	if cfg.Verbose {
		t.Error("Verbose should default to false")
	}
}

func TestLoadFromEnv(t *testing.T) {
	clearEnv(t)
	setenv(t, "DATABRICKS_HOST", "https://example.cloud.databricks.com ")
	setenv(t, "DATABRICKS_TOKEN", "dapi123")
	setenv(t, "SERVING_ENDPOINT", "my-chat")
	setenv(t, "SERVINGBRIDGE_TIMEOUT", "30s")
	setenv(t, "SERVINGBRIDGE_MAX_TOKENS", "256")
	setenv(t, "SERVINGBRIDGE_VERBOSE", "true")

	cfg := Load()
	if cfg.Host != "https://example.cloud.databricks.com" {
		t.Errorf("Host: got %q (should be trimmed)", cfg.Host)
	}
	if cfg.Token != "dapi123" {
		t.Errorf("Token: got %q", cfg.Token)
	}
	if cfg.Endpoint != "my-chat" {
		t.Errorf("Endpoint: got %q", cfg.Endpoint)
	}
	if cfg.Timeout != 30*time.Second {
		t.Errorf("Timeout: got %v, want 30s", cfg.Timeout)
	}
	if cfg.MaxOutputTokens != 256 {
		t.Errorf("MaxOutputTokens: got %d, want 256", cfg.MaxOutputTokens)
	}
	if !cfg.Verbose {
		t.Error("Verbose should be true")
	}
}

func TestLoadBadValuesFallBack(t *testing.T) {
	clearEnv(t)
	setenv(t, "SERVINGBRIDGE_TIMEOUT", "not-a-duration")
	setenv(t, "SERVINGBRIDGE_MAX_TOKENS", "-10")

	cfg := Load()
	if cfg.Timeout != defaultTimeout {
		t.Errorf("Timeout: got %v, want default on parse failure", cfg.Timeout)
	}
	if cfg.MaxOutputTokens != defaultMaxTokens {
		t.Errorf("MaxOutputTokens: got %d, want default on non-positive value", cfg.MaxOutputTokens)
	}
}

func TestValidate(t *testing.T) {
	cfg := &Config{Host: "https://example.cloud.databricks.com", Token: "dapi123"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := (&Config{Token: "dapi123"}).Validate(); err == nil {
		t.Error("expected an error for missing host")
	}
	if err := (&Config{Host: "https://example.com"}).Validate(); err == nil {
		t.Error("expected an error for missing token")
	}
}

func TestEnvBool(t *testing.T) {
	for value, want := range map[string]bool{
		"1": true, "true": true, "YES": true, "on": true,
		"0": false, "false": false, "": false, "maybe": false,
	} {
		setenv(t, "SERVINGBRIDGE_VERBOSE", value)
		if got := envBool("SERVINGBRIDGE_VERBOSE"); got != want {
			t.Errorf("envBool(%q): got %v, want %v", value, got, want)
		}
	}
}
