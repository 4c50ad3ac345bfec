package oracle

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"sentinelwatch/internal/model"
)

// Source fetches a single spot price from one upstream.
type Source interface {
	Name() string
	TryFetch(ctx context.Context) (decimal.Decimal, error)
}

// Options tune aggregation behaviour.
type Options struct {
	SourceTimeout   time.Duration
	FreshnessWindow time.Duration
}

// Aggregator walks an ordered source chain with a shared one-slot cache.
// The last source in the chain must never fail, so GetPrice never does.
type Aggregator struct {
	sources []Source
	opts    Options
	logger  zerolog.Logger

	mu     sync.Mutex
	cached model.PriceQuote
	warm   bool
}

// NewAggregator constructs an aggregator over the given source chain.
// The chain must end with a source that cannot fail (see Synthetic).
func NewAggregator(sources []Source, opts Options, logger zerolog.Logger) *Aggregator {
	if len(sources) == 0 {
		panic("oracle: aggregator requires at least one source")
	}
	if opts.SourceTimeout <= 0 {
		opts.SourceTimeout = 4 * time.Second
	}
	if opts.FreshnessWindow <= 0 {
		opts.FreshnessWindow = 5 * time.Minute
	}
	return &Aggregator{
		sources: sources,
		opts:    opts,
		logger:  logger.With().Str("component", "oracle").Logger(),
	}
}

// GetPrice returns a quote, served from the cache inside the freshness
// window, otherwise fetched through the fallback chain. Source failures
// are absorbed and logged; a quote is always returned.
func (a *Aggregator) GetPrice(ctx context.Context) model.PriceQuote {
	if quote, ok := a.fromCache(); ok {
		return quote
	}

	for _, source := range a.sources {
		price, err := a.attempt(ctx, source)
		if err != nil {
			a.logger.Warn().Err(err).Str("source", source.Name()).Msg("price source failed, falling through")
			continue
		}
		if price.Sign() <= 0 {
			a.logger.Warn().Str("source", source.Name()).Str("price", price.String()).Msg("non-positive price treated as source failure")
			continue
		}

		quote := model.PriceQuote{
			Price:     price,
			Source:    source.Name(),
			Fresh:     true,
			Timestamp: time.Now().UTC(),
		}
		a.store(quote)
		return quote
	}

	// Unreachable when the chain is terminated by Synthetic; kept as a
	// hard stop for misconfigured chains rather than a silent zero quote.
	panic("oracle: source chain exhausted; terminal source must not fail")
}

func (a *Aggregator) attempt(ctx context.Context, source Source) (decimal.Decimal, error) {
	ctx, cancel := context.WithTimeout(ctx, a.opts.SourceTimeout)
	defer cancel()
	return source.TryFetch(ctx)
}

func (a *Aggregator) fromCache() (model.PriceQuote, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.warm || time.Since(a.cached.Timestamp) >= a.opts.FreshnessWindow {
		return model.PriceQuote{}, false
	}
	quote := a.cached
	quote.Fresh = false
	return quote, true
}

func (a *Aggregator) store(quote model.PriceQuote) {
	a.mu.Lock()
	a.cached = quote
	a.warm = true
	a.mu.Unlock()
}
