package alerting

import (
	"time"

	"github.com/shopspring/decimal"

	"sentinelwatch/internal/model"
)

// Evaluate decides whether a price observation crosses the threshold.
// Equality never triggers.
func Evaluate(price, threshold decimal.Decimal, direction model.Direction) bool {
	switch direction {
	case model.DirectionAbove:
		return price.GreaterThan(threshold)
	case model.DirectionBelow:
		return price.LessThan(threshold)
	default:
		return false
	}
}

// Alert is the structured payload handed to a Notifier on trigger.
type Alert struct {
	MonitorID string
	Price     decimal.Decimal
	Threshold decimal.Decimal
	Direction model.Direction
	Delta     decimal.Decimal
	Source    string
	Network   model.Network
	At        time.Time
}

// NewAlert builds the payload for a triggered observation.
func NewAlert(monitor *model.Monitor, quote model.PriceQuote) Alert {
	return Alert{
		MonitorID: monitor.ID,
		Price:     quote.Price,
		Threshold: monitor.Threshold,
		Direction: monitor.Direction,
		Delta:     quote.Price.Sub(monitor.Threshold),
		Source:    quote.Source,
		Network:   monitor.Network,
		At:        quote.Timestamp,
	}
}
