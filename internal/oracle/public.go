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

// PublicOptions parameterise the free public feed.
type PublicOptions struct {
	BaseURL  string
	AssetID  string
	Currency string
	Timeout  time.Duration
}

// Public queries an unauthenticated public price API (CoinGecko wire shape).
type Public struct {
	opts    PublicOptions
	logger  zerolog.Logger
	client  *http.Client
	baseURL string
}

// NewPublic constructs the public feed source.
func NewPublic(opts PublicOptions, logger zerolog.Logger) *Public {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.coingecko.com/api/v3"
	}
	if opts.AssetID == "" {
		opts.AssetID = "solana"
	}
	if opts.Currency == "" {
		opts.Currency = "usd"
	}
	return &Public{
		opts:    opts,
		logger:  logger.With().Str("component", "public_source").Logger(),
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

// Name identifies this source in quotes and logs.
func (p *Public) Name() string { return "public-feed" }

// TryFetch retrieves the asset spot price in the configured currency.
func (p *Public) TryFetch(ctx context.Context) (decimal.Decimal, error) {
	endpoint := fmt.Sprintf("%s/simple/price?ids=%s&vs_currencies=%s",
		p.baseURL, url.QueryEscape(p.opts.AssetID), url.QueryEscape(p.opts.Currency))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return decimal.Decimal{}, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return decimal.Decimal{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return decimal.Decimal{}, fmt.Errorf("public api error (%d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload map[string]map[string]json.Number
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return decimal.Decimal{}, fmt.Errorf("decode public payload: %w", err)
	}

	asset, ok := payload[p.opts.AssetID]
	if !ok {
		return decimal.Decimal{}, errors.New("asset missing from public payload")
	}
	raw, ok := asset[p.opts.Currency]
	if !ok {
		return decimal.Decimal{}, errors.New("currency missing from public payload")
	}

	price, err := decimal.NewFromString(raw.String())
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("parse public price: %w", err)
	}
	return price, nil
}

var _ Source = (*Public)(nil)
