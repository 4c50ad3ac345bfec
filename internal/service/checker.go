// Package service implements the provider side of the pay-per-request
// protocol: challenge issuance, proof gating, and the verified check
// pipeline (price, evaluation, notification).
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"sentinelwatch/internal/alerting"
	"sentinelwatch/internal/model"
	"sentinelwatch/internal/payment"
)

// PriceProvider yields quotes; satisfied by oracle.Aggregator.
type PriceProvider interface {
	GetPrice(ctx context.Context) model.PriceQuote
}

// Options parameterise the provider.
type Options struct {
	Fee           decimal.Decimal
	Treasury      string
	Network       model.Network
	VerifyTimeout time.Duration
}

// Checker gates price data behind payment and runs verified checks.
type Checker struct {
	opts     Options
	verifier payment.Verifier
	prices   PriceProvider
	notifier alerting.Notifier
	logger   zerolog.Logger
}

// NewChecker wires the provider pipeline. notifier may be nil.
func NewChecker(opts Options, verifier payment.Verifier, prices PriceProvider, notifier alerting.Notifier, logger zerolog.Logger) *Checker {
	if opts.Fee.Sign() <= 0 {
		opts.Fee = decimal.NewFromFloat(0.0003)
	}
	if opts.VerifyTimeout <= 0 {
		opts.VerifyTimeout = 10 * time.Second
	}
	return &Checker{
		opts:     opts,
		verifier: verifier,
		prices:   prices,
		notifier: notifier,
		logger:   logger.With().Str("component", "checker").Logger(),
	}
}

// Network the provider settles on.
func (c *Checker) Network() model.Network { return c.opts.Network }

// Challenge describes the payment this provider demands. Idempotent
// and side-effect free.
func (c *Checker) Challenge() model.PaymentChallenge {
	return model.PaymentChallenge{
		Amount:              c.opts.Fee,
		Recipient:           c.opts.Treasury,
		DefaultInstrument:   c.opts.Network.DefaultInstrument(),
		AcceptedInstruments: c.opts.Network.AcceptedInstruments(),
		Message:             fmt.Sprintf("payment of %s required to access price data", c.opts.Fee),
	}
}

// VerifyProof gates access. A verifier error counts as "not verified";
// its detail is logged, never leaked to the requester.
func (c *Checker) VerifyProof(ctx context.Context, proof model.PaymentProof) bool {
	ctx, cancel := context.WithTimeout(ctx, c.opts.VerifyTimeout)
	defer cancel()

	ok, err := c.verifier.Check(ctx, proof.ID)
	if err != nil {
		c.logger.Warn().Err(err).Str("proof_id", proof.ID).Msg("proof verification errored; treating as not verified")
		return false
	}
	return ok
}

// Quote serves the lightweight polling path. Call only after
// VerifyProof has passed.
func (c *Checker) Quote(ctx context.Context) model.PriceQuote {
	return c.prices.GetPrice(ctx)
}

// Check runs the full verified pipeline for one paid request: fetch the
// price, evaluate the threshold, dispatch a notification on trigger,
// and hand back the Activity for the requester to persist.
func (c *Checker) Check(ctx context.Context, req payment.CheckRequest, proof model.PaymentProof) (model.PriceQuote, model.Activity) {
	quote := c.prices.GetPrice(ctx)

	triggered := alerting.Evaluate(quote.Price, req.Threshold, req.Direction)

	status := model.StatusSuccess
	if triggered {
		status = model.StatusAlert
	}

	activity := model.NewActivity(req.MonitorID, status)
	activity.Price = quote.Price
	activity.FeePaid = c.opts.Fee
	activity.ProofID = proof.ID
	activity.Instrument = proof.Instrument
	activity.Triggered = triggered

	if triggered && c.notifier != nil {
		alert := alerting.Alert{
			MonitorID: req.MonitorID,
			Price:     quote.Price,
			Threshold: req.Threshold,
			Direction: req.Direction,
			Delta:     quote.Price.Sub(req.Threshold),
			Source:    quote.Source,
			Network:   req.Network,
			At:        quote.Timestamp,
		}
		if err := c.notifier.Notify(ctx, alert); err != nil {
			c.logger.Error().Err(err).Str("monitor_id", req.MonitorID).Msg("notifier failed; tick continues")
		}
	}

	c.logger.Info().
		Str("monitor_id", req.MonitorID).
		Str("price", quote.Price.String()).
		Str("source", quote.Source).
		Bool("triggered", triggered).
		Msg("paid check completed")

	return quote, activity
}
