package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sentinelwatch/internal/alerting"
	"sentinelwatch/internal/model"
	"sentinelwatch/internal/payment"
	"sentinelwatch/internal/service"
)

type fakeVerifier struct {
	ok    bool
	err   error
	calls int32
}

func (f *fakeVerifier) Check(context.Context, string) (bool, error) {
	atomic.AddInt32(&f.calls, 1)
	return f.ok, f.err
}

type countingPrices struct {
	price decimal.Decimal
	calls int32
}

func (c *countingPrices) GetPrice(context.Context) model.PriceQuote {
	atomic.AddInt32(&c.calls, 1)
	return model.PriceQuote{Price: c.price, Source: "premium-feed", Fresh: true, Timestamp: time.Now().UTC()}
}

type countingNotifier struct {
	calls int32
	last  alerting.Alert
}

func (c *countingNotifier) Notify(_ context.Context, alert alerting.Alert) error {
	atomic.AddInt32(&c.calls, 1)
	c.last = alert
	return nil
}

func newTestServer(t *testing.T, verifier payment.Verifier, prices service.PriceProvider, notifier alerting.Notifier) *httptest.Server {
	t.Helper()
	checker := service.NewChecker(service.Options{
		Fee:      decimal.NewFromFloat(0.0003),
		Treasury: "treasury-wallet",
		Network:  model.NetworkDevnet,
	}, verifier, prices, notifier, zerolog.Nop())

	srv := httptest.NewServer(New(Options{}, checker, zerolog.Nop()).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func checkBody(t *testing.T) *bytes.Reader {
	t.Helper()
	body, err := json.Marshal(payment.CheckRequest{
		MonitorID: "mon-1",
		Threshold: decimal.NewFromInt(200),
		Direction: model.DirectionBelow,
		Network:   model.NetworkDevnet,
	})
	require.NoError(t, err)
	return bytes.NewReader(body)
}

func TestPriceCheckWithoutProofChallenges(t *testing.T) {
	prices := &countingPrices{price: decimal.NewFromInt(150)}
	srv := newTestServer(t, &fakeVerifier{ok: true}, prices, nil)

	resp, err := http.Post(srv.URL+"/price-check", "application/json", checkBody(t))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusPaymentRequired, resp.StatusCode)
	assert.Equal(t, payment.AuthScheme, resp.Header.Get("WWW-Authenticate"))
	assert.Equal(t, "0.0003", resp.Header.Get(payment.HeaderPaymentRequired))
	assert.Equal(t, string(model.InstrumentUSDC), resp.Header.Get(payment.HeaderPaymentInstrument))

	var challenge payment.ChallengeBody
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&challenge))
	assert.True(t, challenge.Amount.Equal(decimal.NewFromFloat(0.0003)))
	assert.NotEmpty(t, challenge.AcceptedInstruments)
	assert.Equal(t, "treasury-wallet", challenge.Recipient)

	assert.Equal(t, int32(0), atomic.LoadInt32(&prices.calls), "no price data before verification")
}

func TestPriceCheckVerifiedProofSucceeds(t *testing.T) {
	prices := &countingPrices{price: decimal.NewFromInt(150)}
	notifier := &countingNotifier{}
	srv := newTestServer(t, &fakeVerifier{ok: true}, prices, notifier)

	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/price-check", checkBody(t))
	req.Header.Set(payment.HeaderPaymentProof, "sig123")
	req.Header.Set(payment.HeaderInstrumentUsed, string(model.InstrumentUSDC))

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var parsed payment.CheckResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&parsed))
	assert.True(t, parsed.Paid)
	assert.Equal(t, "sig123", parsed.ProofID)
	assert.Equal(t, model.InstrumentUSDC, parsed.InstrumentUsed, "instrument echoed back")
	require.NotNil(t, parsed.Activity)
	assert.True(t, parsed.Activity.Triggered, "150 below 200 must trigger")
	assert.Equal(t, string(model.StatusAlert), parsed.Activity.Status)

	assert.Equal(t, int32(1), atomic.LoadInt32(&notifier.calls), "exactly one notification")
	assert.True(t, notifier.last.Price.Equal(decimal.NewFromInt(150)))
	assert.Equal(t, int32(1), atomic.LoadInt32(&prices.calls))
}

func TestPriceCheckRejectedProofChallengesAgain(t *testing.T) {
	prices := &countingPrices{price: decimal.NewFromInt(150)}
	srv := newTestServer(t, &fakeVerifier{ok: false}, prices, nil)

	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/price-check", checkBody(t))
	req.Header.Set(payment.HeaderPaymentProof, "sig123")
	req.Header.Set(payment.HeaderInstrumentUsed, string(model.InstrumentUSDC))

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusPaymentRequired, resp.StatusCode, "failed verification re-challenges, never 500 or 200")
	assert.Equal(t, int32(0), atomic.LoadInt32(&prices.calls))
}

func TestPriceCheckVerifierErrorFailsClosed(t *testing.T) {
	prices := &countingPrices{price: decimal.NewFromInt(150)}
	srv := newTestServer(t, &fakeVerifier{err: errors.New("rpc down")}, prices, nil)

	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/price-check", checkBody(t))
	req.Header.Set(payment.HeaderPaymentProof, "sig123")
	req.Header.Set(payment.HeaderInstrumentUsed, string(model.InstrumentUSDC))

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusPaymentRequired, resp.StatusCode)
	var challenge payment.ChallengeBody
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&challenge))
	assert.NotContains(t, challenge.Message, "rpc down", "verifier internals must not leak")
}

func TestPriceCheckProofWithoutInstrumentIsMalformed(t *testing.T) {
	srv := newTestServer(t, &fakeVerifier{ok: true}, &countingPrices{price: decimal.NewFromInt(150)}, nil)

	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/price-check", checkBody(t))
	req.Header.Set(payment.HeaderPaymentProof, "sig123")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPriceCheckNetworkMismatchRejected(t *testing.T) {
	srv := newTestServer(t, &fakeVerifier{ok: true}, &countingPrices{price: decimal.NewFromInt(150)}, nil)

	body, _ := json.Marshal(payment.CheckRequest{
		MonitorID: "mon-1",
		Threshold: decimal.NewFromInt(200),
		Direction: model.DirectionBelow,
		Network:   model.NetworkMainnet,
	})
	resp, err := http.Post(srv.URL+"/price-check", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestGetPriceGatedBySameChallenge(t *testing.T) {
	prices := &countingPrices{price: decimal.NewFromInt(150)}
	srv := newTestServer(t, &fakeVerifier{ok: true}, prices, nil)

	resp, err := http.Get(srv.URL + "/price")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusPaymentRequired, resp.StatusCode)

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/price", nil)
	req.Header.Set(payment.HeaderPaymentProof, "sig123")
	req.Header.Set(payment.HeaderInstrumentUsed, string(model.InstrumentUSDC))

	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	var parsed payment.CheckResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&parsed))
	assert.True(t, parsed.Paid)
	assert.Nil(t, parsed.Activity, "polling path records no activity")
}
