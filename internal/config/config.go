// Package config loads workspace and endpoint settings from the
// environment.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultTimeout   = 2 * time.Minute
	defaultMaxTokens = 512
)

// Config holds everything needed to reach a workspace and talk to an
// endpoint. The adapter core never reads ambient state; these values are
// threaded in explicitly by the caller.
type Config struct {
	Host            string
	Token           string
	Endpoint        string // default serving endpoint for chat/query
	Timeout         time.Duration
	MaxOutputTokens int
	Verbose         bool
}

// Load reads configuration from the environment. A .env file in the
// working directory is applied first when present.
func Load() *Config {
	_ = godotenv.Load()
	return &Config{
		Host:            strings.TrimSpace(os.Getenv("DATABRICKS_HOST")),
		Token:           strings.TrimSpace(os.Getenv("DATABRICKS_TOKEN")),
		Endpoint:        strings.TrimSpace(os.Getenv("SERVING_ENDPOINT")),
		Timeout:         envDuration("SERVINGBRIDGE_TIMEOUT", defaultTimeout),
		MaxOutputTokens: envInt("SERVINGBRIDGE_MAX_TOKENS", defaultMaxTokens),
		Verbose:         envBool("SERVINGBRIDGE_VERBOSE"),
	}
}

// Validate checks the fields required to reach the workspace at all.
func (c *Config) Validate() error {
	if c.Host == "" {
		return errors.New("config: DATABRICKS_HOST is required")
	}
	if c.Token == "" {
		return errors.New("config: DATABRICKS_TOKEN is required")
	}
	return nil
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}

func envInt(key string, defaultVal int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return defaultVal
	}
	return n
}

func envBool(key string) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	return v == "1" || v == "true" || v == "yes" || v == "on"
}
