package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// applyEnvOverrides applies environment variable overrides to the config.
// Environment variables take precedence over YAML configuration.
// All env vars use the CHECKOUT_ prefix.
func (c *Config) applyEnvOverrides() {
	// Server config
	setIfEnv(&c.Server.BaseURL, "CHECKOUT_SERVER_BASE_URL")
	setDurationIfEnv(&c.Server.Timeout, "CHECKOUT_SERVER_TIMEOUT")
	setIfEnv(&c.Server.CSRFHeader, "CHECKOUT_SERVER_CSRF_HEADER")
	setIfEnv(&c.Server.PreferencePath, "CHECKOUT_PREFERENCE_PATH")
	setIfEnv(&c.Server.DonationPreferencePath, "CHECKOUT_DONATION_PREFERENCE_PATH")
	setIfEnv(&c.Server.TransferReservePath, "CHECKOUT_TRANSFER_RESERVE_PATH")
	setIfEnv(&c.Server.FailedReservePath, "CHECKOUT_FAILED_RESERVE_PATH")

	// Payment widget
	setIfEnv(&c.Payment.PublicKey, "CHECKOUT_MP_PUBLIC_KEY")
	setIfEnv(&c.Payment.Locale, "CHECKOUT_MP_LOCALE")
	setIfEnv(&c.Payment.ContainerID, "CHECKOUT_WALLET_CONTAINER_ID")

	// Raffle / donation
	setInt64IfEnv(&c.Raffle.UnitPrice, "CHECKOUT_RAFFLE_UNIT_PRICE")
	setInt64IfEnv(&c.Donation.MinAmount, "CHECKOUT_DONATION_MIN_AMOUNT")

	// Transfer
	if v := os.Getenv("CHECKOUT_TRANSFER_MAX_NUMBERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Transfer.MaxNumbers = n
		}
	}
	setDurationIfEnv(&c.Transfer.HoldDuration, "CHECKOUT_TRANSFER_HOLD_DURATION")
	setDurationIfEnv(&c.Transfer.RedirectDelay, "CHECKOUT_TRANSFER_REDIRECT_DELAY")

	// Logging
	setIfEnv(&c.Logging.Level, "CHECKOUT_LOG_LEVEL")
	setIfEnv(&c.Logging.Format, "CHECKOUT_LOG_FORMAT")
	setIfEnv(&c.Logging.Environment, "CHECKOUT_ENVIRONMENT")

	// Circuit breaker
	setBoolIfEnv(&c.CircuitBreaker.Enabled, "CHECKOUT_CIRCUIT_BREAKER_ENABLED")
}

// setIfEnv sets a string pointer to the environment variable value if it exists.
func setIfEnv(target *string, key string) {
	if val := os.Getenv(key); val != "" {
		*target = val
	}
}

// setBoolIfEnv sets a boolean pointer from an environment variable.
// Accepts "1", "true", "TRUE", "True" as true values.
func setBoolIfEnv(target *bool, key string) {
	if v := os.Getenv(key); v != "" {
		*target = v == "1" || strings.EqualFold(v, "true")
	}
}

// setDurationIfEnv sets a Duration pointer from an environment variable.
func setDurationIfEnv(target *Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if dur, err := time.ParseDuration(v); err == nil {
			*target = Duration{Duration: dur}
		}
	}
}

func setInt64IfEnv(target *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*target = n
		}
	}
}
