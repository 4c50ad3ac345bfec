package payment

import "errors"

var (
	// ErrPaymentRequired is a control-flow signal: the provider wants a
	// proof before serving data.
	ErrPaymentRequired = errors.New("payment required")

	// ErrPaymentRejected means a submitted proof failed verification.
	// Terminal for the tick.
	ErrPaymentRejected = errors.New("payment proof rejected")

	// ErrInsufficientFunds means the signer could not execute the
	// transfer. Terminal for the tick and counted towards auto-pause.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrNetworkMismatch means a monitor was asked to run against a
	// network other than the one it was created on.
	ErrNetworkMismatch = errors.New("monitor network mismatch")
)
