package solana

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"sentinelwatch/internal/model"
	"sentinelwatch/internal/payment"
)

// AgentSignerOptions parameterise the signing-agent delegate.
type AgentSignerOptions struct {
	Endpoint string
	Network  model.Network
	Timeout  time.Duration
	APIToken string
}

// AgentSigner delegates transfer execution to an external signing
// agent over HTTP. Key custody never enters this process; the agent
// settles the transfer and reports back the transaction signature.
type AgentSigner struct {
	opts   AgentSignerOptions
	logger zerolog.Logger
	client *http.Client
}

// NewAgentSigner constructs the delegate.
func NewAgentSigner(opts AgentSignerOptions, logger zerolog.Logger) *AgentSigner {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &AgentSigner{
		opts:   opts,
		logger: logger.With().Str("component", "agent_signer").Logger(),
		client: &http.Client{Timeout: timeout},
	}
}

type transferRequest struct {
	Amount      decimal.Decimal  `json:"amount"`
	Destination string           `json:"destination"`
	Instrument  model.Instrument `json:"instrument"`
	Network     model.Network    `json:"network"`
}

type transferResponse struct {
	Signature string `json:"signature"`
	Error     string `json:"error"`
}

// Pay asks the agent to transfer amount to destination and blocks
// until the agent confirms settlement.
func (s *AgentSigner) Pay(ctx context.Context, amount decimal.Decimal, destination string, instrument model.Instrument) (string, error) {
	if s.opts.Endpoint == "" {
		return "", errors.New("signing agent endpoint not configured")
	}
	if amount.Sign() <= 0 {
		return "", fmt.Errorf("transfer amount must be positive, got %s", amount)
	}
	if destination == "" {
		return "", errors.New("transfer destination required")
	}

	body, err := json.Marshal(transferRequest{
		Amount:      amount,
		Destination: destination,
		Instrument:  instrument,
		Network:     s.opts.Network,
	})
	if err != nil {
		return "", err
	}

	endpoint := strings.TrimRight(s.opts.Endpoint, "/") + "/transfer"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.opts.APIToken != "" {
		req.Header.Set("Authorization", "Bearer "+s.opts.APIToken)
	}

	started := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("signing agent request: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	var parsed transferResponse
	if unmarshalErr := json.Unmarshal(payload, &parsed); unmarshalErr != nil && resp.StatusCode == http.StatusOK {
		return "", fmt.Errorf("decode agent response: %w", unmarshalErr)
	}

	if resp.StatusCode != http.StatusOK {
		if parsed.Error != "" {
			return "", fmt.Errorf("signing agent error (%d): %s", resp.StatusCode, parsed.Error)
		}
		return "", fmt.Errorf("signing agent error (%d): %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}
	if parsed.Signature == "" {
		return "", errors.New("signing agent returned no signature")
	}

	s.logger.Info().
		Str("instrument", string(instrument)).
		Str("amount", amount.String()).
		Dur("settlement", time.Since(started)).
		Msg("transfer settled")
	return parsed.Signature, nil
}

var _ payment.Signer = (*AgentSigner)(nil)
