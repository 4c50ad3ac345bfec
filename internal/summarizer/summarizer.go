// Package summarizer wraps the external text-analysis capability that
// periodically interprets a monitor's recent price samples. Calls are
// best-effort; callers must tolerate failure.
package summarizer

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
)

// Summary is the analysis result for a sample window.
type Summary struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	Sentiment  string  `json:"sentiment"`
}

// Summarizer analyses a sequence of price samples.
type Summarizer interface {
	Analyze(ctx context.Context, samples []model.Activity) (Summary, error)
}

// HTTPOptions parameterise the remote analysis client.
type HTTPOptions struct {
	Endpoint string
	APIToken string
	Timeout  time.Duration
}

// HTTP posts sample windows to a remote analysis endpoint.
type HTTP struct {
	opts   HTTPOptions
	logger zerolog.Logger
	client *http.Client
}

// NewHTTP constructs the remote summarizer client.
func NewHTTP(opts HTTPOptions, logger zerolog.Logger) *HTTP {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &HTTP{
		opts:   opts,
		logger: logger.With().Str("component", "summarizer").Logger(),
		client: &http.Client{Timeout: timeout},
	}
}

type sampleBody struct {
	Price     decimal.Decimal `json:"price"`
	Status    string          `json:"status"`
	Triggered bool            `json:"triggered"`
	Timestamp string          `json:"timestamp"`
}

// Analyze sends the window and returns the remote summary.
func (h *HTTP) Analyze(ctx context.Context, samples []model.Activity) (Summary, error) {
	if h.opts.Endpoint == "" {
		return Summary{}, errors.New("summarizer endpoint not configured")
	}
	if len(samples) == 0 {
		return Summary{}, errors.New("no samples to analyze")
	}

	window := make([]sampleBody, 0, len(samples))
	for _, sample := range samples {
		window = append(window, sampleBody{
			Price:     sample.Price,
			Status:    string(sample.Status),
			Triggered: sample.Triggered,
			Timestamp: sample.Timestamp.UTC().Format(time.RFC3339),
		})
	}

	body, err := json.Marshal(map[string]any{"samples": window})
	if err != nil {
		return Summary{}, err
	}

	endpoint := strings.TrimRight(h.opts.Endpoint, "/") + "/analyze"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return Summary{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	if h.opts.APIToken != "" {
		req.Header.Set("Authorization", "Bearer "+h.opts.APIToken)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return Summary{}, fmt.Errorf("summarizer request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Summary{}, fmt.Errorf("summarizer error (%d): %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}

	var summary Summary
	if err := json.NewDecoder(resp.Body).Decode(&summary); err != nil {
		return Summary{}, fmt.Errorf("decode summary: %w", err)
	}
	return summary, nil
}

var _ Summarizer = (*HTTP)(nil)
