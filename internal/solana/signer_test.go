package solana

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sentinelwatch/internal/model"
)

func TestAgentSignerPay(t *testing.T) {
	var got transferRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(transferResponse{Signature: "sig-abc"})
	}))
	defer srv.Close()

	signer := NewAgentSigner(AgentSignerOptions{Endpoint: srv.URL, Network: model.NetworkDevnet, Timeout: time.Second}, zerolog.Nop())
	proofID, err := signer.Pay(context.Background(), decimal.NewFromFloat(0.0003), "treasury", model.InstrumentUSDC)
	require.NoError(t, err)

	assert.Equal(t, "sig-abc", proofID)
	assert.Equal(t, "treasury", got.Destination)
	assert.Equal(t, model.InstrumentUSDC, got.Instrument)
	assert.Equal(t, model.NetworkDevnet, got.Network)
	assert.True(t, got.Amount.Equal(decimal.NewFromFloat(0.0003)))
}

func TestAgentSignerAgentFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_ = json.NewEncoder(w).Encode(transferResponse{Error: "insufficient balance"})
	}))
	defer srv.Close()

	signer := NewAgentSigner(AgentSignerOptions{Endpoint: srv.URL, Network: model.NetworkDevnet, Timeout: time.Second}, zerolog.Nop())
	_, err := signer.Pay(context.Background(), decimal.NewFromFloat(0.0003), "treasury", model.InstrumentUSDC)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insufficient balance")
}

func TestAgentSignerValidation(t *testing.T) {
	signer := NewAgentSigner(AgentSignerOptions{Endpoint: "http://localhost:0"}, zerolog.Nop())

	if _, err := signer.Pay(context.Background(), decimal.Zero, "treasury", model.InstrumentUSDC); err == nil {
		t.Fatal("zero amount must be rejected")
	}
	if _, err := signer.Pay(context.Background(), decimal.NewFromInt(1), "", model.InstrumentUSDC); err == nil {
		t.Fatal("empty destination must be rejected")
	}

	unconfigured := NewAgentSigner(AgentSignerOptions{}, zerolog.Nop())
	if _, err := unconfigured.Pay(context.Background(), decimal.NewFromInt(1), "treasury", model.InstrumentUSDC); err == nil {
		t.Fatal("missing endpoint must be rejected")
	}
}
