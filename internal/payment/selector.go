package payment

import "sentinelwatch/internal/model"

// SelectInstrument picks the instrument to pay a challenge in. It is
// total and deterministic: the result is always a member of accepted
// (when accepted is non-empty) and never the zero value.
//
// An unsupported user preference is forced to the network default
// rather than honoured (fail-safe, not fail-open).
func SelectInstrument(network model.Network, preference model.Instrument, accepted []model.Instrument) model.Instrument {
	if len(accepted) == 0 {
		return network.DefaultInstrument()
	}

	candidate := preference
	if candidate == "" || !network.Supports(candidate) {
		candidate = network.DefaultInstrument()
	}

	if contains(accepted, candidate) {
		return candidate
	}
	if fallback := network.DefaultInstrument(); contains(accepted, fallback) {
		return fallback
	}
	return accepted[0]
}

func contains(set []model.Instrument, instrument model.Instrument) bool {
	for _, member := range set {
		if member == instrument {
			return true
		}
	}
	return false
}
