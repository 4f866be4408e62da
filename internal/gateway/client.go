package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/rifasite/checkout/internal/circuitbreaker"
	"github.com/rifasite/checkout/internal/config"
	cerrors "github.com/rifasite/checkout/internal/errors"
	"github.com/rifasite/checkout/internal/httputil"
	"github.com/rifasite/checkout/internal/logger"
	"github.com/rifasite/checkout/internal/metrics"
)

// maxResponseBytes caps how much of a backend response is read.
const maxResponseBytes = 1 << 20

// Client talks to the checkout backend over JSON.
type Client struct {
	baseURL    string
	paths      config.ServerConfig
	httpClient *http.Client
	breakers   *circuitbreaker.Manager
	metrics    *metrics.Metrics
	logger     zerolog.Logger
	csrfHeader string
	csrfToken  func() string
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithBreakers wraps calls in circuit breakers.
func WithBreakers(m *circuitbreaker.Manager) Option {
	return func(c *Client) {
		c.breakers = m
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// WithCSRFToken supplies the token sent in the configured CSRF header.
// Retrieving the token (cookie, meta tag) is the caller's concern.
func WithCSRFToken(token func() string) Option {
	return func(c *Client) {
		c.csrfToken = token
	}
}

// NewClient builds a backend client from server config.
func NewClient(cfg config.ServerConfig, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		paths:      cfg,
		httpClient: httputil.NewClient(cfg.Timeout.Duration),
		logger:     zerolog.Nop(),
		csrfHeader: cfg.CSRFHeader,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CreatePreference requests a payment preference and returns its id.
// Calling it repeatedly with the same payload is safe; deduplication is the caller's job.
func (c *Client) CreatePreference(ctx context.Context, req PreferenceRequest) (string, error) {
	path := c.paths.PreferencePath
	endpoint := "preference"
	if req.Kind == KindDonation {
		path = c.paths.DonationPreferencePath
		endpoint = "donation_preference"
	}

	var out preferenceResponse
	if err := c.postJSON(ctx, circuitbreaker.ServicePreferenceAPI, endpoint, path, req, &out); err != nil {
		return "", err
	}
	if strings.TrimSpace(out.PreferenceID) == "" {
		return "", cerrors.New(cerrors.ErrCodeMissingPreferenceID, "response has no preference_id")
	}
	return out.PreferenceID, nil
}

// CreateReservation holds numbers for payment by bank transfer.
func (c *Client) CreateReservation(ctx context.Context, req ReservationRequest) (*Reservation, error) {
	var out Reservation
	if err := c.postJSON(ctx, circuitbreaker.ServiceReservationAPI, "transfer_reserve", c.paths.TransferReservePath, req, &out); err != nil {
		return nil, err
	}
	if !out.OK {
		return nil, cerrors.New(cerrors.ErrCodeServerRejected, "reservation was not confirmed")
	}
	return &out, nil
}

// ReserveFromFailedPayment converts a failed card attempt into a transfer hold.
func (c *Client) ReserveFromFailedPayment(ctx context.Context, externalReference string) (*Reservation, error) {
	var out Reservation
	body := failedReservationRequest{ExternalReference: externalReference}
	if err := c.postJSON(ctx, circuitbreaker.ServiceReservationAPI, "failed_reserve", c.paths.FailedReservePath, body, &out); err != nil {
		return nil, err
	}
	if !out.OK {
		return nil, cerrors.New(cerrors.ErrCodeServerRejected, "reservation was not confirmed")
	}
	return &out, nil
}

// CloseIdleConnections releases pooled connections to the backend.
func (c *Client) CloseIdleConnections() {
	c.httpClient.CloseIdleConnections()
}

// rawResponse carries a completed round trip out of the breaker.
type rawResponse struct {
	status int
	body   []byte
}

func (c *Client) postJSON(ctx context.Context, service circuitbreaker.ServiceType, endpoint, path string, in, out interface{}) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode %s request: %w", endpoint, err)
	}

	start := time.Now()
	result, err := c.breakers.Execute(service, func() (interface{}, error) {
		resp, err := c.roundTrip(ctx, path, payload)
		if err != nil {
			return nil, err
		}
		// Server-side faults count against the breaker; client rejections do not.
		if resp.status >= 500 {
			return resp, fmt.Errorf("backend status %d", resp.status)
		}
		return resp, nil
	})
	duration := time.Since(start)

	log := c.logger.With().Str("endpoint", endpoint).Str("cycle_id", logger.GetCycleID(ctx)).Logger()

	if err != nil {
		if circuitbreaker.IsOpenError(err) {
			c.metrics.ObserveGatewayRequest(endpoint, "circuit_open", duration)
			log.Warn().Str("breaker_state", c.breakers.State(service)).Msg("gateway.circuit_open")
			return cerrors.Wrap(cerrors.ErrCodeCircuitOpen, "backend temporarily unavailable", err)
		}
		resp, _ := result.(*rawResponse)
		if resp == nil {
			c.metrics.ObserveGatewayRequest(endpoint, "error", duration)
			log.Error().Err(err).Dur("duration", duration).Msg("gateway.transport_failed")
			return cerrors.Wrap(cerrors.ErrCodeTransportFailure, "network error", err)
		}
	}

	resp := result.(*rawResponse)
	c.metrics.ObserveGatewayRequest(endpoint, strconv.Itoa(resp.status), duration)

	if resp.status < 200 || resp.status >= 300 {
		gwErr := decodeError(resp)
		log.Error().
			Int("status", resp.status).
			Str("error_code", string(gwErr.Code)).
			Str("message", gwErr.Message).
			Msg("gateway.request_rejected")
		return gwErr
	}

	if err := json.Unmarshal(resp.body, out); err != nil {
		log.Error().Err(err).Int("status", resp.status).Msg("gateway.decode_failed")
		return cerrors.Wrap(cerrors.ErrCodeMalformedResponse, "could not read backend response", err)
	}

	log.Debug().Int("status", resp.status).Dur("duration", duration).Msg("gateway.request_ok")
	return nil
}

func (c *Client) roundTrip(ctx context.Context, path string, payload []byte) (*rawResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.csrfToken != nil && c.csrfHeader != "" {
		if token := c.csrfToken(); token != "" {
			req.Header.Set(c.csrfHeader, token)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, err
	}
	return &rawResponse{status: resp.StatusCode, body: body}, nil
}

// decodeError turns a non-2xx response into a typed error, keeping the
// backend's own message when it sent one.
func decodeError(resp *rawResponse) *cerrors.Error {
	code := cerrors.CodeForStatus(resp.status)

	var eb errorBody
	if err := json.Unmarshal(resp.body, &eb); err != nil || eb.Error == "" {
		e := cerrors.New(code, fmt.Sprintf("backend returned status %d", resp.status))
		e.Status = resp.status
		return e
	}

	e := cerrors.New(code, eb.Error)
	e.Status = resp.status
	if len(eb.ConflictNumbers) > 0 {
		e.WithDetail("conflict_numbers", eb.ConflictNumbers)
	}
	return e
}
