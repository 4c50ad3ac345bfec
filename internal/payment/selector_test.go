package payment

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"sentinelwatch/internal/model"
)

func TestSelectInstrument(t *testing.T) {
	usdc := model.InstrumentUSDC
	sol := model.InstrumentSOL

	cases := []struct {
		name       string
		network    model.Network
		preference model.Instrument
		accepted   []model.Instrument
		want       model.Instrument
	}{
		{"devnet forces usdc over sol preference", model.NetworkDevnet, sol, []model.Instrument{usdc}, usdc},
		{"mainnet honours sol preference", model.NetworkMainnet, sol, []model.Instrument{usdc, sol}, sol},
		{"mainnet honours usdc preference", model.NetworkMainnet, usdc, []model.Instrument{usdc, sol}, usdc},
		{"preference outside accepted falls back to default", model.NetworkMainnet, sol, []model.Instrument{usdc}, usdc},
		{"empty preference uses default", model.NetworkMainnet, "", []model.Instrument{usdc, sol}, usdc},
		{"default missing from accepted picks first member", model.NetworkMainnet, usdc, []model.Instrument{sol}, sol},
		{"empty accepted set still total", model.NetworkDevnet, sol, nil, usdc},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := SelectInstrument(tc.network, tc.preference, tc.accepted)
			assert.Equal(t, tc.want, got)
			if len(tc.accepted) > 0 {
				assert.True(t, contains(tc.accepted, got), "result must be a member of the accepted set")
			}
			// deterministic: same inputs, same output
			assert.Equal(t, got, SelectInstrument(tc.network, tc.preference, tc.accepted))
		})
	}
}
