package config

import (
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Load reads configuration from a YAML file and applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	if path != "" {
		if err := cfg.parseFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.finalize(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Default returns the defaults without validation, for callers that fill fields programmatically.
func Default() *Config {
	return defaultConfig()
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			BaseURL:                "http://localhost:8000",
			Timeout:                Duration{Duration: 15 * time.Second},
			CSRFHeader:             "X-CSRFToken",
			PreferencePath:         "/mp/create_preference/",
			DonationPreferencePath: "/mp/create_donation_preference/",
			TransferReservePath:    "/transfer/reserve/",
			FailedReservePath:      "/transfer/reserve_from_failed/",
		},
		Payment: PaymentConfig{
			Locale:      "es-CL",
			ContainerID: "walletBrick_container",
		},
		Raffle: RaffleConfig{
			UnitPrice: 2000,
		},
		Donation: DonationConfig{
			MinAmount: 1000,
		},
		Transfer: TransferConfig{
			MaxNumbers:    50,
			HoldDuration:  Duration{Duration: 12 * time.Hour},
			RedirectDelay: Duration{Duration: 2500 * time.Millisecond},
		},
		CircuitBreaker: CircuitBreakerConfig{
			Enabled: true,
			PreferenceAPI: BreakerServiceConfig{
				MaxRequests:         1,
				Interval:            Duration{Duration: 60 * time.Second},
				Timeout:             Duration{Duration: 15 * time.Second},
				ConsecutiveFailures: 5,
				FailureRatio:        0.6,
				MinRequests:         10,
			},
			ReservationAPI: BreakerServiceConfig{
				MaxRequests:         1,
				Interval:            Duration{Duration: 60 * time.Second},
				Timeout:             Duration{Duration: 30 * time.Second},
				ConsecutiveFailures: 3,
				FailureRatio:        0.5,
				MinRequests:         6,
			},
		},
	}
}

// parseFile reads and unmarshals a YAML configuration file.
func (c *Config) parseFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config file: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config yaml: %w", err)
	}
	return nil
}
