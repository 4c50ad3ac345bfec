package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Network identifies the chain environment a monitor is bound to.
// A monitor's network is fixed at creation and never changes.
type Network string

const (
	NetworkDevnet  Network = "devnet"
	NetworkMainnet Network = "mainnet"
)

// Instrument is a fungible payment token accepted by the protocol.
type Instrument string

const (
	InstrumentUSDC Instrument = "USDC"
	InstrumentSOL  Instrument = "SOL"
)

// Direction selects which side of the threshold triggers an alert.
type Direction string

const (
	DirectionAbove Direction = "above"
	DirectionBelow Direction = "below"
)

// ActivityStatus classifies the outcome of one check cycle.
type ActivityStatus string

const (
	StatusSuccess ActivityStatus = "success"
	StatusFailed  ActivityStatus = "failed"
	StatusAlert   ActivityStatus = "alert"
)

// ParseNetwork validates a network name.
func ParseNetwork(s string) (Network, error) {
	switch Network(s) {
	case NetworkDevnet, NetworkMainnet:
		return Network(s), nil
	}
	return "", fmt.Errorf("unknown network %q", s)
}

// ParseDirection validates a comparison direction.
func ParseDirection(s string) (Direction, error) {
	switch Direction(s) {
	case DirectionAbove, DirectionBelow:
		return Direction(s), nil
	}
	return "", fmt.Errorf("unknown direction %q", s)
}

// AcceptedInstruments returns the instrument set the network settles in.
// Devnet settles exclusively in USDC.
func (n Network) AcceptedInstruments() []Instrument {
	switch n {
	case NetworkMainnet:
		return []Instrument{InstrumentUSDC, InstrumentSOL}
	default:
		return []Instrument{InstrumentUSDC}
	}
}

// DefaultInstrument returns the canonical instrument for the network.
func (n Network) DefaultInstrument() Instrument {
	return InstrumentUSDC
}

// Supports reports whether the network settles in the given instrument.
func (n Network) Supports(instrument Instrument) bool {
	for _, accepted := range n.AcceptedInstruments() {
		if accepted == instrument {
			return true
		}
	}
	return false
}

// Monitor is one configured sentinel watching a price signal.
type Monitor struct {
	ID         string
	UserID     string
	Wallet     string
	Threshold  decimal.Decimal
	Direction  Direction
	Instrument Instrument
	Network    Network
	Active     bool
	CreatedAt  time.Time
}

// NewMonitor builds a monitor with a fresh identity. The network is
// validated here and is immutable afterwards.
func NewMonitor(userID, wallet string, threshold decimal.Decimal, direction Direction, instrument Instrument, network Network) (*Monitor, error) {
	if _, err := ParseNetwork(string(network)); err != nil {
		return nil, err
	}
	if _, err := ParseDirection(string(direction)); err != nil {
		return nil, err
	}
	if threshold.Sign() <= 0 {
		return nil, fmt.Errorf("threshold must be positive, got %s", threshold)
	}
	if instrument == "" {
		instrument = network.DefaultInstrument()
	}

	return &Monitor{
		ID:         uuid.NewString(),
		UserID:     userID,
		Wallet:     wallet,
		Threshold:  threshold,
		Direction:  direction,
		Instrument: instrument,
		Network:    network,
		Active:     true,
		CreatedAt:  time.Now().UTC(),
	}, nil
}

// Activity is one completed (or failed) check cycle. Append-only.
type Activity struct {
	ID         string
	MonitorID  string
	Price      decimal.Decimal
	FeePaid    decimal.Decimal
	Settlement time.Duration
	ProofID    string
	Instrument Instrument
	Triggered  bool
	Status     ActivityStatus
	Error      string
	Timestamp  time.Time
}

// NewActivity stamps identity and time onto an activity record.
func NewActivity(monitorID string, status ActivityStatus) Activity {
	return Activity{
		ID:        uuid.NewString(),
		MonitorID: monitorID,
		Status:    status,
		Timestamp: time.Now().UTC(),
	}
}

// PriceQuote is a transient observation from the oracle pipeline.
type PriceQuote struct {
	Price     decimal.Decimal
	Source    string
	Fresh     bool
	Timestamp time.Time
}

// PaymentChallenge describes what a provider demands before serving data.
type PaymentChallenge struct {
	Amount              decimal.Decimal
	Recipient           string
	DefaultInstrument   Instrument
	AcceptedInstruments []Instrument
	Message             string
}

// PaymentProof is the settlement evidence a requester attaches on retry.
type PaymentProof struct {
	ID         string
	Instrument Instrument
}
