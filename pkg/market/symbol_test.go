package market

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSymbol(t *testing.T) {
	tests := []struct {
		in      string
		want    Symbol
		wantErr bool
	}{
		{in: "BTC/USDT:USDT", want: Symbol{Base: "BTC", Quote: "USDT", Settle: "USDT"}},
		{in: "eth/usd:eth", want: Symbol{Base: "ETH", Quote: "USD", Settle: "ETH"}},
		{in: "SOL/USDC", want: Symbol{Base: "SOL", Quote: "USDC", Settle: "USDC"}},
		{in: " btc ", want: Symbol{Base: "BTC", Quote: "USDT", Settle: "USDT"}},
		{in: "", wantErr: true},
		{in: "/USDT", wantErr: true},
		{in: "BTC/:USDT", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseSymbol(tt.in)
			if tt.wantErr {
				var validation *ValidationError
				require.ErrorAs(t, err, &validation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSymbolHelpers(t *testing.T) {
	s, err := ParseSymbol("BTC/USD:BTC")
	require.NoError(t, err)
	assert.True(t, s.Inverse())
	assert.Equal(t, "BTC/USD:BTC", s.Unified())
	assert.Equal(t, "ETH/USDT:USDT", UnifiedSymbol("eth", "usdt", ""))
}

func TestConcatSymbol(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"BTC/USDT:USDT", "BTCUSDT"},
		{"btc", "BTCUSDT"},
		{"ETH/USDC", "ETHUSDC"},
		{"solusdt", "SOLUSDT"},
		{"BTCUSD", "BTCUSD"},
	}
	for _, tt := range tests {
		got, err := ConcatSymbol(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ConcatSymbol("  ")
	var validation *ValidationError
	assert.ErrorAs(t, err, &validation)
}
