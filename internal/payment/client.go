package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"sentinelwatch/internal/model"
)

// state of one pay-per-request exchange.
type state string

const (
	stateInitial    state = "initial"
	stateChallenged state = "challenged"
	statePaid       state = "paid"
	stateVerified   state = "verified"
	stateRejected   state = "rejected"
)

// ClientOptions parameterise the requester side of the protocol.
type ClientOptions struct {
	BaseURL     string
	Network     model.Network
	TickTimeout time.Duration
	HTTPTimeout time.Duration
	UserAgent   string
}

// Client drives one paid price check per tick: call, settle the
// challenge through a Signer, retry exactly once with the proof.
type Client struct {
	opts    ClientOptions
	logger  zerolog.Logger
	client  *http.Client
	baseURL string
}

// NewClient constructs a protocol client.
func NewClient(opts ClientOptions, logger zerolog.Logger) *Client {
	if opts.TickTimeout <= 0 {
		opts.TickTimeout = 20 * time.Second
	}
	httpTimeout := opts.HTTPTimeout
	if httpTimeout <= 0 {
		httpTimeout = 10 * time.Second
	}
	return &Client{
		opts:    opts,
		logger:  logger.With().Str("component", "payment_client").Logger(),
		client:  &http.Client{Timeout: httpTimeout},
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
	}
}

// FetchPaid runs the full exchange for one monitor tick. An Activity is
// always returned, failed or not, so the caller can append it to the
// ledger unconditionally.
func (c *Client) FetchPaid(ctx context.Context, monitor *model.Monitor, signer Signer) (model.PriceQuote, model.Activity, error) {
	if monitor.Network != c.opts.Network {
		activity := failedActivity(monitor.ID, fmt.Sprintf("monitor bound to %s but client runs against %s", monitor.Network, c.opts.Network))
		return model.PriceQuote{}, activity, fmt.Errorf("%w: monitor=%s client=%s", ErrNetworkMismatch, monitor.Network, c.opts.Network)
	}

	ctx, cancel := context.WithTimeout(ctx, c.opts.TickTimeout)
	defer cancel()

	c.transition(monitor.ID, stateInitial)

	resp, challenge, err := c.call(ctx, monitor, nil)
	if err != nil {
		activity := failedActivity(monitor.ID, err.Error())
		return model.PriceQuote{}, activity, err
	}
	if challenge == nil {
		// Provider served without demanding payment; accept it.
		c.transition(monitor.ID, stateVerified)
		return c.settle(monitor, resp, model.PaymentProof{}, decimal.Zero, 0)
	}
	c.transition(monitor.ID, stateChallenged)

	instrument := SelectInstrument(monitor.Network, monitor.Instrument, challenge.AcceptedInstruments)
	fee := challenge.Amount

	settleStart := time.Now()
	proofID, err := signer.Pay(ctx, fee, challenge.Recipient, instrument)
	if err != nil {
		wrapped := fmt.Errorf("%w: %v", ErrInsufficientFunds, err)
		activity := failedActivity(monitor.ID, wrapped.Error())
		return model.PriceQuote{}, activity, wrapped
	}
	settlement := time.Since(settleStart)
	c.transition(monitor.ID, statePaid)

	proof := model.PaymentProof{ID: proofID, Instrument: instrument}
	resp, challenge, err = c.call(ctx, monitor, &proof)
	if err != nil {
		activity := failedActivity(monitor.ID, err.Error())
		activity.ProofID = proof.ID
		activity.Instrument = proof.Instrument
		activity.FeePaid = fee
		activity.Settlement = settlement
		return model.PriceQuote{}, activity, err
	}
	if challenge != nil {
		// Second challenge means verification failed. One retry per
		// tick; surface a terminal rejection instead of looping.
		c.transition(monitor.ID, stateRejected)
		wrapped := fmt.Errorf("%w: proof %s not accepted", ErrPaymentRejected, proof.ID)
		activity := failedActivity(monitor.ID, wrapped.Error())
		activity.ProofID = proof.ID
		activity.Instrument = proof.Instrument
		activity.FeePaid = fee
		activity.Settlement = settlement
		return model.PriceQuote{}, activity, wrapped
	}

	c.transition(monitor.ID, stateVerified)
	return c.settle(monitor, resp, proof, fee, settlement)
}

// settle converts a verified provider response into the tick outcome.
func (c *Client) settle(monitor *model.Monitor, resp *CheckResponse, proof model.PaymentProof, fee decimal.Decimal, settlement time.Duration) (model.PriceQuote, model.Activity, error) {
	quote := model.PriceQuote{
		Price:     resp.Price,
		Source:    resp.Source,
		Fresh:     true,
		Timestamp: time.Now().UTC(),
	}
	if parsed, err := time.Parse(time.RFC3339, resp.Timestamp); err == nil {
		quote.Timestamp = parsed
	}

	status := model.StatusSuccess
	triggered := false
	if resp.Activity != nil {
		triggered = resp.Activity.Triggered
		if triggered {
			status = model.StatusAlert
		}
	}

	activity := model.NewActivity(monitor.ID, status)
	activity.Price = resp.Price
	activity.FeePaid = fee
	activity.ProofID = proof.ID
	activity.Instrument = proof.Instrument
	activity.Triggered = triggered
	activity.Settlement = settlement

	return quote, activity, nil
}

func (c *Client) transition(monitorID string, next state) {
	c.logger.Debug().Str("monitor_id", monitorID).Str("state", string(next)).Msg("payment state transition")
}

// call performs one round-trip. A nil challenge in the return means the
// provider answered 200; a non-nil challenge means 402.
func (c *Client) call(ctx context.Context, monitor *model.Monitor, proof *model.PaymentProof) (*CheckResponse, *model.PaymentChallenge, error) {
	payload := CheckRequest{
		MonitorID: monitor.ID,
		Threshold: monitor.Threshold,
		Direction: monitor.Direction,
		Network:   monitor.Network,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, err
	}

	endpoint := c.baseURL + "/price-check"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if ua := strings.TrimSpace(c.opts.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	}
	if proof != nil {
		req.Header.Set(HeaderPaymentProof, proof.ID)
		req.Header.Set(HeaderInstrumentUsed, string(proof.Instrument))
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	payloadBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, err
	}

	switch resp.StatusCode {
	case http.StatusOK:
		var parsed CheckResponse
		if err := json.Unmarshal(payloadBytes, &parsed); err != nil {
			return nil, nil, fmt.Errorf("decode check response: %w", err)
		}
		return &parsed, nil, nil
	case http.StatusPaymentRequired:
		var challengeBody ChallengeBody
		if err := json.Unmarshal(payloadBytes, &challengeBody); err != nil {
			return nil, nil, fmt.Errorf("decode challenge: %w", err)
		}
		challenge := challengeBody.Challenge()
		return nil, &challenge, nil
	default:
		return nil, nil, fmt.Errorf("provider error (%d): %s", resp.StatusCode, strings.TrimSpace(string(payloadBytes)))
	}
}

func failedActivity(monitorID, errText string) model.Activity {
	activity := model.NewActivity(monitorID, model.StatusFailed)
	activity.Error = errText
	return activity
}
