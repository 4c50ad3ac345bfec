package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// FeedOptions parameterise the metered premium feed.
type FeedOptions struct {
	BaseURL   string
	APIKey    string
	Symbol    string
	Timeout   time.Duration
	UserAgent string
}

// Feed queries a metered premium price API. Requests are authenticated
// with an API key; a 429 is treated like any other source failure.
type Feed struct {
	opts    FeedOptions
	logger  zerolog.Logger
	client  *http.Client
	baseURL string
}

// NewFeed constructs the metered feed source.
func NewFeed(opts FeedOptions, logger zerolog.Logger) *Feed {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Feed{
		opts:    opts,
		logger:  logger.With().Str("component", "feed_source").Logger(),
		client:  &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
	}
}

// Name identifies this source in quotes and logs.
func (f *Feed) Name() string { return "premium-feed" }

// TryFetch retrieves the current price for the configured symbol.
func (f *Feed) TryFetch(ctx context.Context) (decimal.Decimal, error) {
	if f.baseURL == "" {
		return decimal.Decimal{}, errors.New("feed base url not configured")
	}
	symbol := f.opts.Symbol
	if symbol == "" {
		symbol = "SOL"
	}

	endpoint := fmt.Sprintf("%s/v1/price?symbol=%s", f.baseURL, url.QueryEscape(symbol))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return decimal.Decimal{}, err
	}
	req.Header.Set("Accept", "application/json")
	if f.opts.APIKey != "" {
		req.Header.Set("X-API-Key", f.opts.APIKey)
	}
	if ua := strings.TrimSpace(f.opts.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return decimal.Decimal{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return decimal.Decimal{}, errors.New("feed rate limited")
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return decimal.Decimal{}, fmt.Errorf("feed api error (%d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload struct {
		Price json.Number `json:"price"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return decimal.Decimal{}, fmt.Errorf("decode feed payload: %w", err)
	}

	price, err := decimal.NewFromString(payload.Price.String())
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("parse feed price: %w", err)
	}
	return price, nil
}

var _ Source = (*Feed)(nil)
