package config

import (
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration to support string based YAML decoding.
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses duration values expressed as Go-style strings or numbers interpreted as seconds.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		raw := strings.TrimSpace(value.Value)
		if raw == "" {
			d.Duration = 0
			return nil
		}
		parsed, err := time.ParseDuration(raw)
		if err == nil {
			d.Duration = parsed
			return nil
		}
		secs, convErr := time.ParseDuration(fmt.Sprintf("%ss", raw))
		if convErr == nil {
			d.Duration = secs
			return nil
		}
		return fmt.Errorf("invalid duration value %q: %w", raw, err)
	default:
		return fmt.Errorf("unsupported duration node kind: %v", value.Kind)
	}
}

// MarshalYAML renders the duration as a string.
func (d Duration) MarshalYAML() (interface{}, error) {
	return d.Duration.String(), nil
}

// Config holds page level configuration aggregated from file and environment variables.
type Config struct {
	Server         ServerConfig         `yaml:"server"`
	Payment        PaymentConfig        `yaml:"payment"`
	Raffle         RaffleConfig         `yaml:"raffle"`
	Donation       DonationConfig       `yaml:"donation"`
	Transfer       TransferConfig       `yaml:"transfer"`
	Logging        LoggingConfig        `yaml:"logging"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuit_breaker"`
}

// ServerConfig describes the checkout backend the page talks to.
type ServerConfig struct {
	BaseURL    string   `yaml:"base_url"`
	Timeout    Duration `yaml:"timeout"`     // Per-request timeout; zero falls back to the transport default
	CSRFHeader string   `yaml:"csrf_header"` // Header carrying the CSRF token, e.g. X-CSRFToken

	PreferencePath         string `yaml:"preference_path"`
	DonationPreferencePath string `yaml:"donation_preference_path"`
	TransferReservePath    string `yaml:"transfer_reserve_path"`
	FailedReservePath      string `yaml:"failed_reserve_path"`
}

// PaymentConfig configures the external payment widget.
type PaymentConfig struct {
	PublicKey   string `yaml:"public_key"` // Required; without it the wallet never activates
	Locale      string `yaml:"locale"`
	ContainerID string `yaml:"container_id"`
}

// RaffleConfig holds raffle page settings.
type RaffleConfig struct {
	UnitPrice int64 `yaml:"unit_price"` // CLP per number
}

// DonationConfig holds donation page settings.
type DonationConfig struct {
	MinAmount int64 `yaml:"min_amount"` // CLP
}

// TransferConfig holds manual transfer reservation settings.
type TransferConfig struct {
	MaxNumbers    int      `yaml:"max_numbers"`
	HoldDuration  Duration `yaml:"hold_duration"`
	RedirectDelay Duration `yaml:"redirect_delay"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level       string `yaml:"level"`
	Format      string `yaml:"format"`
	Environment string `yaml:"environment"`
}

// CircuitBreakerConfig holds circuit breaker settings for the backend endpoints.
type CircuitBreakerConfig struct {
	Enabled        bool                 `yaml:"enabled"`
	PreferenceAPI  BreakerServiceConfig `yaml:"preference_api"`
	ReservationAPI BreakerServiceConfig `yaml:"reservation_api"`
}

// BreakerServiceConfig configures a single circuit breaker.
type BreakerServiceConfig struct {
	MaxRequests         uint32   `yaml:"max_requests"`
	Interval            Duration `yaml:"interval"`
	Timeout             Duration `yaml:"timeout"`
	ConsecutiveFailures uint32   `yaml:"consecutive_failures"`
	FailureRatio        float64  `yaml:"failure_ratio"`
	MinRequests         uint32   `yaml:"min_requests"`
}
