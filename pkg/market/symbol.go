package market

import (
	"strings"
)

const defaultQuote = "USDT"

// Symbol is a unified perpetual symbol, BASE/QUOTE:SETTLE.
type Symbol struct {
	Base   string
	Quote  string
	Settle string
}

// ParseSymbol accepts "BASE/QUOTE:SETTLE", "BASE/QUOTE" (settled in quote) or
// a bare "BASE" (quoted and settled in USDT).
func ParseSymbol(raw string) (Symbol, error) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	if s == "" {
		return Symbol{}, NewValidationError("symbol cannot be empty")
	}

	pair, settle, hasSettle := strings.Cut(s, ":")
	base, quote, hasQuote := strings.Cut(pair, "/")
	if !hasQuote {
		quote = defaultQuote
	}
	if !hasSettle {
		settle = quote
	}
	base, quote, settle = strings.TrimSpace(base), strings.TrimSpace(quote), strings.TrimSpace(settle)
	if base == "" || quote == "" || settle == "" {
		return Symbol{}, NewValidationError("malformed symbol %q", raw)
	}
	return Symbol{Base: base, Quote: quote, Settle: settle}, nil
}

// Unified renders the symbol as BASE/QUOTE:SETTLE.
func (s Symbol) Unified() string {
	return s.Base + "/" + s.Quote + ":" + s.Settle
}

// Inverse reports whether the contract settles in the base asset.
func (s Symbol) Inverse() bool {
	return s.Settle == s.Base
}

// UnifiedSymbol builds the BASE/QUOTE:SETTLE form from parts.
func UnifiedSymbol(base, quote, settle string) string {
	if settle == "" {
		settle = quote
	}
	return Symbol{Base: strings.ToUpper(base), Quote: strings.ToUpper(quote), Settle: strings.ToUpper(settle)}.Unified()
}

// ConcatSymbol renders the BASEQUOTE id used by binance and bybit. A bare id
// that already ends in a quote asset passes through.
func ConcatSymbol(raw string) (string, error) {
	trimmed := strings.ToUpper(strings.TrimSpace(raw))
	if !strings.ContainsAny(trimmed, "/:") {
		for _, quote := range []string{"USDT", "USDC", "BUSD", "USD"} {
			if len(trimmed) > len(quote) && strings.HasSuffix(trimmed, quote) {
				return trimmed, nil
			}
		}
	}
	sym, err := ParseSymbol(raw)
	if err != nil {
		return "", err
	}
	return sym.Base + sym.Quote, nil
}
