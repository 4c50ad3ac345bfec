// Package payment implements both halves of the pay-per-request price
// protocol: the wire contract shared with the provider, the instrument
// selection rule, and the requester-side challenge/pay/retry client.
package payment

import (
	"context"

	"github.com/shopspring/decimal"

	"sentinelwatch/internal/model"
)

// Protocol headers.
const (
	HeaderPaymentProof      = "X-Payment-Proof"
	HeaderInstrumentUsed    = "X-Payment-Instrument-Used"
	HeaderPaymentRequired   = "X-Payment-Required"
	HeaderPaymentInstrument = "X-Payment-Instrument"

	// AuthScheme is advertised in WWW-Authenticate on challenges.
	AuthScheme = "X402"
)

// Signer executes a transfer and returns its settlement reference.
// Key custody lives behind this interface.
type Signer interface {
	Pay(ctx context.Context, amount decimal.Decimal, destination string, instrument model.Instrument) (proofID string, err error)
}

// Verifier checks a settlement reference on chain.
type Verifier interface {
	Check(ctx context.Context, proofID string) (bool, error)
}

// ChallengeBody is the JSON body of a 402 response.
type ChallengeBody struct {
	Amount              decimal.Decimal    `json:"amount"`
	Recipient           string             `json:"recipient"`
	DefaultInstrument   model.Instrument   `json:"defaultInstrument"`
	AcceptedInstruments []model.Instrument `json:"acceptedInstruments"`
	Message             string             `json:"message"`
}

// Challenge converts the wire body into the domain value.
func (b ChallengeBody) Challenge() model.PaymentChallenge {
	return model.PaymentChallenge{
		Amount:              b.Amount,
		Recipient:           b.Recipient,
		DefaultInstrument:   b.DefaultInstrument,
		AcceptedInstruments: b.AcceptedInstruments,
		Message:             b.Message,
	}
}

// CheckRequest is the JSON body of POST /price-check.
type CheckRequest struct {
	MonitorID string          `json:"monitorId"`
	Threshold decimal.Decimal `json:"threshold"`
	Direction model.Direction `json:"direction"`
	Network   model.Network   `json:"network"`
}

// ActivityBody is the activity fragment echoed in a paid response.
type ActivityBody struct {
	ID        string          `json:"id"`
	MonitorID string          `json:"monitorId"`
	Price     decimal.Decimal `json:"price"`
	Triggered bool            `json:"triggered"`
	Status    string          `json:"status"`
	Timestamp string          `json:"timestamp"`
}

// CheckResponse is the JSON body of a 200 response.
type CheckResponse struct {
	Price          decimal.Decimal  `json:"price"`
	Timestamp      string           `json:"timestamp"`
	Source         string           `json:"source"`
	Paid           bool             `json:"paid"`
	ProofID        string           `json:"proofId"`
	InstrumentUsed model.Instrument `json:"instrumentUsed"`
	Activity       *ActivityBody    `json:"activity,omitempty"`
}
