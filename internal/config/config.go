// Package config loads the authorization service configuration from the
// environment, with optional .env file support for development setups.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

const envPrefix = "TRADEPOST_"

// Config holds the runtime configuration for the authorization service.
type Config struct {
	// ListenAddr is the HTTP listen address for the API.
	ListenAddr string

	// LogLevel and LogFormat configure zerolog initialization.
	LogLevel  string
	LogFormat string

	// DataDir is the base directory for local state (audit trail, billing
	// read model).
	DataDir string

	// BillingURL is the base URL of the platform billing service. When empty
	// the local SQLite read model is used instead.
	BillingURL     string
	BillingToken   string
	BillingTimeout time.Duration

	// FlagsPath is the feature-flag file watched for plan entitlements.
	FlagsPath string

	// GrantsPath is the role permission-grant file.
	GrantsPath string

	// CheckoutURL is the billing-provider endpoint that creates checkout
	// sessions for upgrades.
	CheckoutURL string
}

// Defaults returns the baseline configuration before any overrides.
func Defaults() *Config {
	return &Config{
		ListenAddr:     ":7655",
		LogLevel:       "info",
		LogFormat:      "auto",
		DataDir:        "/var/lib/tradepost",
		BillingTimeout: 10 * time.Second,
	}
}

// Load builds the configuration from defaults, an optional .env file, and
// TRADEPOST_* environment variables, in increasing precedence.
func Load() (*Config, error) {
	// A missing .env is the normal production case.
	if err := godotenv.Load(); err == nil {
		log.Debug().Msg("Loaded environment overrides from .env")
	}

	cfg := Defaults()
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) applyEnv() {
	setString(&c.ListenAddr, "LISTEN_ADDR")
	setString(&c.LogLevel, "LOG_LEVEL")
	setString(&c.LogFormat, "LOG_FORMAT")
	setString(&c.DataDir, "DATA_DIR")
	setString(&c.BillingURL, "BILLING_URL")
	setString(&c.BillingToken, "BILLING_TOKEN")
	setString(&c.FlagsPath, "FLAGS_PATH")
	setString(&c.GrantsPath, "GRANTS_PATH")
	setString(&c.CheckoutURL, "CHECKOUT_URL")

	if raw, ok := lookup("BILLING_TIMEOUT_SECONDS"); ok {
		seconds, err := strconv.Atoi(raw)
		if err != nil || seconds <= 0 {
			log.Warn().Str("value", raw).Msg("Ignoring invalid billing timeout override")
		} else {
			c.BillingTimeout = time.Duration(seconds) * time.Second
		}
	}
}

// Validate checks the assembled configuration for contradictions.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.ListenAddr) == "" {
		return fmt.Errorf("listen address is required")
	}
	if c.BillingTimeout <= 0 {
		return fmt.Errorf("billing timeout must be positive")
	}
	if c.BillingURL != "" && !strings.HasPrefix(c.BillingURL, "http://") && !strings.HasPrefix(c.BillingURL, "https://") {
		return fmt.Errorf("billing URL must be http(s), got %q", c.BillingURL)
	}
	return nil
}

func lookup(key string) (string, bool) {
	value, ok := os.LookupEnv(envPrefix + key)
	if !ok {
		return "", false
	}
	value = strings.TrimSpace(value)
	return value, value != ""
}

func setString(dst *string, key string) {
	if value, ok := lookup(key); ok {
		*dst = value
	}
}
