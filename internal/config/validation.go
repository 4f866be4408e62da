package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrMissingPublicKey is returned when no payment public key is configured.
// The page entrypoint treats it as "do not activate the wallet".
var ErrMissingPublicKey = errors.New("payment.public_key is required")

// finalize applies defaults and validates the configuration.
func (c *Config) finalize() error {
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
	if c.Logging.Environment == "" {
		c.Logging.Environment = "production"
	}
	if c.Payment.Locale == "" {
		c.Payment.Locale = "es-CL"
	}
	if c.Payment.ContainerID == "" {
		c.Payment.ContainerID = "walletBrick_container"
	}
	c.Server.BaseURL = strings.TrimSuffix(strings.TrimSpace(c.Server.BaseURL), "/")

	return c.validate()
}

func (c *Config) validate() error {
	var errs []error

	if strings.TrimSpace(c.Payment.PublicKey) == "" {
		errs = append(errs, ErrMissingPublicKey)
	}

	if c.Server.BaseURL != "" {
		u, err := url.Parse(c.Server.BaseURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, fmt.Errorf("server.base_url must be an absolute http(s) URL, got %q", c.Server.BaseURL))
		}
	}

	for name, p := range map[string]string{
		"server.preference_path":          c.Server.PreferencePath,
		"server.donation_preference_path": c.Server.DonationPreferencePath,
		"server.transfer_reserve_path":    c.Server.TransferReservePath,
		"server.failed_reserve_path":      c.Server.FailedReservePath,
	} {
		if !strings.HasPrefix(p, "/") {
			errs = append(errs, fmt.Errorf("%s must start with /", name))
		}
	}

	if c.Raffle.UnitPrice < 0 {
		errs = append(errs, errors.New("raffle.unit_price must not be negative"))
	}
	if c.Donation.MinAmount < 0 {
		errs = append(errs, errors.New("donation.min_amount must not be negative"))
	}
	if c.Transfer.MaxNumbers <= 0 {
		errs = append(errs, errors.New("transfer.max_numbers must be positive"))
	}
	if c.Transfer.RedirectDelay.Duration < 0 {
		errs = append(errs, errors.New("transfer.redirect_delay must not be negative"))
	}

	if c.CircuitBreaker.Enabled {
		if err := validateBreaker("circuit_breaker.preference_api", c.CircuitBreaker.PreferenceAPI); err != nil {
			errs = append(errs, err)
		}
		if err := validateBreaker("circuit_breaker.reservation_api", c.CircuitBreaker.ReservationAPI); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func validateBreaker(name string, b BreakerServiceConfig) error {
	if b.FailureRatio < 0 || b.FailureRatio > 1 {
		return fmt.Errorf("%s.failure_ratio must be between 0 and 1", name)
	}
	if b.ConsecutiveFailures == 0 && (b.FailureRatio == 0 || b.MinRequests == 0) {
		return fmt.Errorf("%s needs consecutive_failures or failure_ratio with min_requests", name)
	}
	return nil
}
