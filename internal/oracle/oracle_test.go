package oracle

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

type fakeSource struct {
	name  string
	price decimal.Decimal
	err   error
	calls int
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) TryFetch(context.Context) (decimal.Decimal, error) {
	f.calls++
	return f.price, f.err
}

func noopLogger() zerolog.Logger {
	return zerolog.Nop()
}

func TestAggregatorFallsThroughToSynthetic(t *testing.T) {
	failing := &fakeSource{name: "broken", err: errors.New("boom")}
	negative := &fakeSource{name: "bogus", price: decimal.NewFromInt(-3)}
	agg := NewAggregator(
		[]Source{failing, negative, NewSynthetic(decimal.NewFromInt(150), 7)},
		Options{},
		noopLogger(),
	)

	quote := agg.GetPrice(context.Background())
	if quote.Source != "synthetic" {
		t.Fatalf("expected synthetic fallback, got %q", quote.Source)
	}
	if !quote.Fresh {
		t.Fatal("first quote should be fresh")
	}
	if quote.Price.Sign() <= 0 {
		t.Fatalf("synthetic price must be positive, got %s", quote.Price)
	}
	if failing.calls != 1 || negative.calls != 1 {
		t.Fatalf("every source should be attempted exactly once, got %d/%d", failing.calls, negative.calls)
	}
}

func TestAggregatorCacheIdempotence(t *testing.T) {
	source := &fakeSource{name: "primary", price: decimal.NewFromInt(200)}
	agg := NewAggregator([]Source{source, NewSynthetic(decimal.NewFromInt(100), 1)}, Options{
		FreshnessWindow: time.Minute,
	}, noopLogger())

	first := agg.GetPrice(context.Background())
	second := agg.GetPrice(context.Background())

	if !first.Fresh {
		t.Fatal("first call should fetch fresh")
	}
	if second.Fresh {
		t.Fatal("second call within window must be served from cache")
	}
	if !first.Price.Equal(second.Price) || first.Source != second.Source {
		t.Fatalf("cached quote must match: %v vs %v", first, second)
	}
	if source.calls != 1 {
		t.Fatalf("source should be hit once, got %d", source.calls)
	}
}

func TestAggregatorCacheExpiry(t *testing.T) {
	source := &fakeSource{name: "primary", price: decimal.NewFromInt(200)}
	agg := NewAggregator([]Source{source, NewSynthetic(decimal.NewFromInt(100), 1)}, Options{
		FreshnessWindow: 10 * time.Millisecond,
	}, noopLogger())

	agg.GetPrice(context.Background())
	time.Sleep(20 * time.Millisecond)
	quote := agg.GetPrice(context.Background())

	if !quote.Fresh {
		t.Fatal("expired cache must trigger a new fetch")
	}
	if source.calls != 2 {
		t.Fatalf("source should be hit twice, got %d", source.calls)
	}
}

func TestSyntheticStaysBounded(t *testing.T) {
	baseline := decimal.NewFromInt(100)
	s := NewSynthetic(baseline, 42)

	floor := decimal.NewFromInt(50)
	ceiling := decimal.NewFromInt(150)
	for i := 0; i < 500; i++ {
		price, err := s.TryFetch(context.Background())
		if err != nil {
			t.Fatalf("synthetic must never fail: %v", err)
		}
		if price.LessThan(floor) || price.GreaterThan(ceiling) {
			t.Fatalf("walk escaped bounds: %s", price)
		}
	}
}
