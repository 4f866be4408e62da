//go:build js && wasm

// Command checkout-wasm activates the checkout controllers on a raffle or
// donation page. Build with GOOS=js GOARCH=wasm.
package main

import (
	"context"
	"errors"

	"github.com/rifasite/checkout/internal/config"
	"github.com/rifasite/checkout/internal/dom"
	"github.com/rifasite/checkout/internal/logger"
	"github.com/rifasite/checkout/pkg/checkout"
)

func main() {
	cfg := config.Default()
	zl := logger.New(logger.Config{
		Level:       cfg.Logging.Level,
		Format:      "console",
		Service:     "checkout-wasm",
		Version:     checkout.Version,
		Environment: cfg.Logging.Environment,
	})

	page, ok := dom.ReadPageConfig()
	if !ok {
		zl.Error().Msg("checkout.config_element_missing")
		return
	}
	cfg.Server.BaseURL = dom.Origin()
	cfg.Payment.PublicKey = page.PublicKey
	if page.UnitPrice > 0 {
		cfg.Raffle.UnitPrice = page.UnitPrice
	}

	kind := checkout.KindRaffle
	if page.Kind == string(checkout.KindDonation) {
		kind = checkout.KindDonation
	}

	if cfg.Payment.PublicKey == "" {
		zl.Error().Err(checkout.ErrMissingPublicKey).Msg("checkout.not_activated")
		return
	}

	bricks, err := dom.NewBricks(cfg.Payment.PublicKey, cfg.Payment.Locale)
	if err != nil {
		zl.Error().Err(err).Msg("checkout.sdk_unavailable")
		return
	}

	ctx := context.Background()
	app, err := checkout.New(cfg,
		checkout.WithKind(kind),
		checkout.WithLogger(zl),
		checkout.WithWidget(bricks),
		checkout.WithSummaryView(dom.SummaryView{}),
		checkout.WithAmountView(dom.AmountView{}),
		checkout.WithPager(dom.Grid{}),
		checkout.WithGridRefresher(dom.Grid{}),
		checkout.WithNavigator(dom.Location{}),
		checkout.WithCSRFToken(dom.CSRFToken),
		checkout.WithContext(ctx),
	)
	if err != nil {
		if errors.Is(err, config.ErrMissingPublicKey) {
			zl.Error().Err(err).Msg("checkout.not_activated")
			return
		}
		zl.Error().Err(err).Msg("checkout.init_failed")
		return
	}

	binder := dom.NewBinder(zl)
	defer binder.Release()

	// The initial render notifies the wallet, which is the page-load evaluation.
	switch kind {
	case checkout.KindDonation:
		binder.BindAmount(app.Donation)
		binder.BindBuyer(app.Donation)
		app.Donation.Refresh()
	default:
		binder.BindGrid(app.Selection)
		binder.BindBuyer(app.Selection)
		binder.BindTransfer(ctx, app.Transfer)
		app.Selection.RecomputeSummary()
	}
	zl.Info().Str("kind", string(kind)).Msg("checkout.activated")

	// Keep the module alive for event callbacks.
	select {}
}
