// Package checkout wires the checkout page: config, gateway client, the state
// owner for the page kind, the wallet sync session and the transfer flow.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"golang.org/x/text/language"

	"github.com/rifasite/checkout/internal/circuitbreaker"
	"github.com/rifasite/checkout/internal/config"
	"github.com/rifasite/checkout/internal/donation"
	cerrors "github.com/rifasite/checkout/internal/errors"
	"github.com/rifasite/checkout/internal/gateway"
	"github.com/rifasite/checkout/internal/lifecycle"
	"github.com/rifasite/checkout/internal/logger"
	"github.com/rifasite/checkout/internal/metrics"
	"github.com/rifasite/checkout/internal/money"
	"github.com/rifasite/checkout/internal/selection"
	"github.com/rifasite/checkout/internal/transfer"
	"github.com/rifasite/checkout/internal/wallet"
)

// Version is reported in log lines.
var Version = "dev"

// Kind selects the page variant.
type Kind string

const (
	KindRaffle   Kind = "raffle"
	KindDonation Kind = "donation"
)

// ErrMissingPublicKey means the page has no payment public key and must not
// activate the wallet. It carries the missing_config code.
var ErrMissingPublicKey = cerrors.Wrap(cerrors.ErrCodeMissingConfig, "payment public key is not configured", config.ErrMissingPublicKey)

// App is one activated checkout page.
type App struct {
	Kind    Kind
	Config  *config.Config
	Logger  zerolog.Logger
	Metrics *metrics.Metrics
	Gateway *gateway.Client

	Selection *selection.Controller // raffle pages
	Donation  *donation.Form        // donation pages
	Transfer  *transfer.Service     // raffle pages
	Wallet    *wallet.Controller

	resourceManager *lifecycle.Manager
}

// Option configures App construction.
type Option func(*options)

type options struct {
	kind        Kind
	widget      wallet.Widget
	summaryView selection.View
	amountView  donation.View
	pager       selection.Pager
	grid        transfer.GridRefresher
	navigator   transfer.Navigator
	registry    prometheus.Registerer
	logger      *zerolog.Logger
	httpClient  *http.Client
	csrfToken   func() string
	onStatus    func(wallet.Status)
	ctx         context.Context
}

// WithKind selects the raffle or donation variant. Raffle is the default.
func WithKind(kind Kind) Option {
	return func(o *options) {
		o.kind = kind
	}
}

// WithWidget injects the payment widget SDK adapter. Required.
func WithWidget(w wallet.Widget) Option {
	return func(o *options) {
		o.widget = w
	}
}

// WithSummaryView sets the raffle summary renderer.
func WithSummaryView(v selection.View) Option {
	return func(o *options) {
		o.summaryView = v
	}
}

// WithAmountView sets the donation amount renderer.
func WithAmountView(v donation.View) Option {
	return func(o *options) {
		o.amountView = v
	}
}

// WithPager sets the grid pager used for auto-advance.
func WithPager(p selection.Pager) Option {
	return func(o *options) {
		o.pager = p
	}
}

// WithGridRefresher sets what reloads the grid after a transfer hold.
func WithGridRefresher(g transfer.GridRefresher) Option {
	return func(o *options) {
		o.grid = g
	}
}

// WithNavigator sets the post-reservation redirect target.
func WithNavigator(n transfer.Navigator) Option {
	return func(o *options) {
		o.navigator = n
	}
}

// WithRegistry registers metrics on reg instead of a private registry.
func WithRegistry(reg prometheus.Registerer) Option {
	return func(o *options) {
		o.registry = reg
	}
}

// WithLogger overrides the logger built from config.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) {
		o.logger = &l
	}
}

// WithHTTPClient overrides the gateway's HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) {
		o.httpClient = hc
	}
}

// WithCSRFToken supplies the CSRF token for backend requests.
func WithCSRFToken(fn func() string) Option {
	return func(o *options) {
		o.csrfToken = fn
	}
}

// WithStatusCallback receives wallet state transitions.
func WithStatusCallback(fn func(wallet.Status)) Option {
	return func(o *options) {
		o.onStatus = fn
	}
}

// WithContext sets the parent context for backend calls.
func WithContext(ctx context.Context) Option {
	return func(o *options) {
		o.ctx = ctx
	}
}

// New assembles a checkout page. It returns ErrMissingPublicKey when the
// payment key is absent; callers log it and leave the page inert.
func New(cfg *config.Config, opts ...Option) (*App, error) {
	if cfg == nil {
		return nil, errors.New("checkout: config required")
	}
	if strings.TrimSpace(cfg.Payment.PublicKey) == "" {
		return nil, ErrMissingPublicKey
	}

	o := options{kind: KindRaffle, ctx: context.Background()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.widget == nil {
		return nil, errors.New("checkout: payment widget required")
	}
	if o.kind != KindRaffle && o.kind != KindDonation {
		return nil, fmt.Errorf("checkout: unknown page kind %q", o.kind)
	}

	var log zerolog.Logger
	if o.logger != nil {
		log = *o.logger
	} else {
		log = logger.New(logger.Config{
			Level:       cfg.Logging.Level,
			Format:      cfg.Logging.Format,
			Service:     "checkout",
			Version:     Version,
			Environment: cfg.Logging.Environment,
		})
	}
	log = log.With().Str("page", string(o.kind)).Logger()

	registry := o.registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	app := &App{
		Kind:            o.kind,
		Config:          cfg,
		Logger:          log,
		Metrics:         metrics.New(registry),
		resourceManager: lifecycle.NewManager(log),
	}

	breakers := circuitbreaker.NewManagerFromConfig(cfg.CircuitBreaker, log)

	gwOpts := []gateway.Option{
		gateway.WithBreakers(breakers),
		gateway.WithMetrics(app.Metrics),
		gateway.WithLogger(log),
	}
	if o.httpClient != nil {
		gwOpts = append(gwOpts, gateway.WithHTTPClient(o.httpClient))
	}
	if o.csrfToken != nil {
		gwOpts = append(gwOpts, gateway.WithCSRFToken(o.csrfToken))
	}
	app.Gateway = gateway.NewClient(cfg.Server, gwOpts...)
	app.resourceManager.RegisterFunc("gateway", func() error {
		app.Gateway.CloseIdleConnections()
		return nil
	})

	var source wallet.Source
	switch o.kind {
	case KindDonation:
		dOpts := []donation.Option{
			donation.WithMinAmount(money.CLP(cfg.Donation.MinAmount)),
			donation.WithLocale(parseLocale(cfg.Payment.Locale, log)),
			donation.WithLogger(log),
		}
		if o.amountView != nil {
			dOpts = append(dOpts, donation.WithView(o.amountView))
		}
		form := donation.NewForm(dOpts...)
		app.Donation = form
		source = form
	default:
		selOpts := []selection.Option{selection.WithLogger(log)}
		if o.summaryView != nil {
			selOpts = append(selOpts, selection.WithView(o.summaryView))
		}
		if o.pager != nil {
			selOpts = append(selOpts, selection.WithPager(o.pager))
		}
		app.Selection = selection.NewController(money.CLP(cfg.Raffle.UnitPrice), selOpts...)
		source = app.Selection

		tOpts := []transfer.Option{
			transfer.WithMaxNumbers(cfg.Transfer.MaxNumbers),
			transfer.WithHoldDuration(cfg.Transfer.HoldDuration.Duration),
			transfer.WithRedirectDelay(cfg.Transfer.RedirectDelay.Duration),
			transfer.WithLogger(log),
			transfer.WithMetrics(app.Metrics),
		}
		if o.grid != nil {
			tOpts = append(tOpts, transfer.WithGridRefresher(o.grid))
		}
		if o.navigator != nil {
			tOpts = append(tOpts, transfer.WithNavigator(o.navigator))
		}
		app.Transfer = transfer.NewService(app.Gateway, app.Selection, tOpts...)
		app.resourceManager.Register("transfer", app.Transfer)
	}

	wOpts := []wallet.Option{
		wallet.WithKind(string(o.kind)),
		wallet.WithLogger(log),
		wallet.WithMetrics(app.Metrics),
		wallet.WithContext(o.ctx),
	}
	if o.onStatus != nil {
		wOpts = append(wOpts, wallet.WithStatusCallback(o.onStatus))
	}
	app.Wallet = wallet.New(cfg.Payment.ContainerID, source, app.Gateway, o.widget, wOpts...)
	app.resourceManager.Register("wallet", app.Wallet)

	if app.Selection != nil {
		app.Selection.SetNotifier(app.Wallet)
	}
	if app.Donation != nil {
		app.Donation.SetNotifier(app.Wallet)
	}

	log.Info().
		Str("base_url", cfg.Server.BaseURL).
		Str("container_id", cfg.Payment.ContainerID).
		Bool("circuit_breaker", cfg.CircuitBreaker.Enabled).
		Msg("checkout.initialized")

	return app, nil
}

// Start runs the initial wallet evaluation for the page load.
func (a *App) Start() error {
	return a.Wallet.Start()
}

// Close stops the wallet session and cancels pending redirects.
func (a *App) Close() error {
	return a.resourceManager.Close()
}

func parseLocale(raw string, log zerolog.Logger) language.Tag {
	tag, err := language.Parse(raw)
	if err != nil {
		log.Warn().Err(err).Str("locale", raw).Msg("checkout.invalid_locale")
		return money.DefaultLocale
	}
	return tag
}
