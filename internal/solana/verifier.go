package solana

import (
	"context"
	"fmt"

	"github.com/mr-tron/base58"
	"github.com/rs/zerolog"

	"sentinelwatch/internal/payment"
)

const signatureLen = 64

// RPCVerifier checks payment proofs against the chain. It fails
// closed: any RPC error or unknown signature means "not verified".
type RPCVerifier struct {
	client RPCClient
	logger zerolog.Logger
}

// NewRPCVerifier constructs a verifier over an RPC client.
func NewRPCVerifier(client RPCClient, logger zerolog.Logger) *RPCVerifier {
	return &RPCVerifier{
		client: client,
		logger: logger.With().Str("component", "rpc_verifier").Logger(),
	}
}

// Check reports whether proofID is a settled transaction signature.
func (v *RPCVerifier) Check(ctx context.Context, proofID string) (bool, error) {
	if err := ValidateSignature(proofID); err != nil {
		return false, err
	}

	status, err := v.client.GetSignatureStatus(ctx, proofID)
	if err != nil {
		return false, fmt.Errorf("signature status lookup: %w", err)
	}
	if status == nil {
		return false, nil
	}
	if status.Err != nil {
		return false, nil
	}

	switch status.ConfirmationStatus {
	case "confirmed", "finalized":
		return true, nil
	default:
		return false, nil
	}
}

// ValidateSignature checks the base58 shape of a transaction signature.
func ValidateSignature(signature string) error {
	raw, err := base58.Decode(signature)
	if err != nil {
		return fmt.Errorf("proof is not base58: %w", err)
	}
	if len(raw) != signatureLen {
		return fmt.Errorf("proof decodes to %d bytes, want %d", len(raw), signatureLen)
	}
	return nil
}

var _ payment.Verifier = (*RPCVerifier)(nil)
