package payment

import (
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

	"sentinelwatch/internal/model"
)

type fakeSigner struct {
	proofID string
	err     error
	calls   int32
}

func (f *fakeSigner) Pay(context.Context, decimal.Decimal, string, model.Instrument) (string, error) {
	atomic.AddInt32(&f.calls, 1)
	return f.proofID, f.err
}

func testMonitor(t *testing.T, network model.Network) *model.Monitor {
	t.Helper()
	monitor, err := model.NewMonitor("user-1", "9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin",
		decimal.NewFromInt(200), model.DirectionBelow, model.InstrumentUSDC, network)
	require.NoError(t, err)
	return monitor
}

func writeChallenge(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", AuthScheme)
	w.Header().Set(HeaderPaymentRequired, "0.0003")
	w.Header().Set(HeaderPaymentInstrument, string(model.InstrumentUSDC))
	w.WriteHeader(http.StatusPaymentRequired)
	_ = json.NewEncoder(w).Encode(ChallengeBody{
		Amount:              decimal.NewFromFloat(0.0003),
		Recipient:           "treasury",
		DefaultInstrument:   model.InstrumentUSDC,
		AcceptedInstruments: []model.Instrument{model.InstrumentUSDC},
		Message:             "payment required to access price data",
	})
}

func TestFetchPaidChallengeThenSuccess(t *testing.T) {
	var proofHeader, instrumentHeader string
	var calls int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		if r.Header.Get(HeaderPaymentProof) == "" {
			writeChallenge(w)
			return
		}
		proofHeader = r.Header.Get(HeaderPaymentProof)
		instrumentHeader = r.Header.Get(HeaderInstrumentUsed)
		_ = json.NewEncoder(w).Encode(CheckResponse{
			Price:          decimal.NewFromInt(150),
			Timestamp:      time.Now().UTC().Format(time.RFC3339),
			Source:         "premium-feed",
			Paid:           true,
			ProofID:        proofHeader,
			InstrumentUsed: model.Instrument(instrumentHeader),
			Activity:       &ActivityBody{Triggered: true, Status: string(model.StatusAlert)},
		})
	}))
	defer srv.Close()

	client := NewClient(ClientOptions{BaseURL: srv.URL, Network: model.NetworkDevnet}, zerolog.Nop())
	signer := &fakeSigner{proofID: "sig123"}

	quote, activity, err := client.FetchPaid(context.Background(), testMonitor(t, model.NetworkDevnet), signer)
	require.NoError(t, err)

	assert.Equal(t, int32(2), atomic.LoadInt32(&calls), "exactly one retry")
	assert.Equal(t, "sig123", proofHeader)
	assert.Equal(t, string(model.InstrumentUSDC), instrumentHeader)
	assert.True(t, quote.Price.Equal(decimal.NewFromInt(150)))
	assert.Equal(t, model.StatusAlert, activity.Status)
	assert.True(t, activity.Triggered)
	assert.True(t, activity.FeePaid.Equal(decimal.NewFromFloat(0.0003)))
	assert.Equal(t, "sig123", activity.ProofID)
	assert.Equal(t, model.InstrumentUSDC, activity.Instrument)
	assert.Equal(t, int32(1), atomic.LoadInt32(&signer.calls), "never pay twice")
}

func TestFetchPaidRejectedAfterOneRetry(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		writeChallenge(w)
	}))
	defer srv.Close()

	client := NewClient(ClientOptions{BaseURL: srv.URL, Network: model.NetworkDevnet}, zerolog.Nop())
	signer := &fakeSigner{proofID: "sig123"}

	_, activity, err := client.FetchPaid(context.Background(), testMonitor(t, model.NetworkDevnet), signer)
	require.ErrorIs(t, err, ErrPaymentRejected)

	assert.Equal(t, int32(2), atomic.LoadInt32(&calls), "at most one retry per tick")
	assert.Equal(t, int32(1), atomic.LoadInt32(&signer.calls), "never pay twice")
	assert.Equal(t, model.StatusFailed, activity.Status)
	assert.NotEmpty(t, activity.Error)
	assert.Equal(t, "sig123", activity.ProofID)
}

func TestFetchPaidSignerFailureAbortsTick(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		writeChallenge(w)
	}))
	defer srv.Close()

	client := NewClient(ClientOptions{BaseURL: srv.URL, Network: model.NetworkDevnet}, zerolog.Nop())
	signer := &fakeSigner{err: errors.New("balance too low")}

	_, activity, err := client.FetchPaid(context.Background(), testMonitor(t, model.NetworkDevnet), signer)
	require.ErrorIs(t, err, ErrInsufficientFunds)

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "no retry without a proof")
	assert.Equal(t, model.StatusFailed, activity.Status)
	assert.Contains(t, activity.Error, "balance too low")
}

func TestFetchPaidNetworkMismatchRejectedBeforePayment(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("provider must not be contacted on network mismatch")
	}))
	defer srv.Close()

	client := NewClient(ClientOptions{BaseURL: srv.URL, Network: model.NetworkMainnet}, zerolog.Nop())
	signer := &fakeSigner{proofID: "sig123"}

	_, activity, err := client.FetchPaid(context.Background(), testMonitor(t, model.NetworkDevnet), signer)
	require.ErrorIs(t, err, ErrNetworkMismatch)

	assert.Equal(t, int32(0), atomic.LoadInt32(&signer.calls))
	assert.Equal(t, model.StatusFailed, activity.Status)
}
