package marketdata

import "strings"

// NormalizeInstrument maps a user-facing symbol ("btc", "BTC/USDT",
// "BTC_USDT") to the exchange instrument form BASE_QUOTE.
func NormalizeInstrument(symbol, quote string) string {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	s = strings.ReplaceAll(s, "/", "_")
	if strings.Contains(s, "_") {
		return s
	}
	return s + "_" + strings.ToUpper(quote)
}

// InstrumentCandidates returns the ordered instrument spellings to probe
// when placing orders. The first is the normalized form; fallbacks cover
// exchanges listing the pair without a separator or only against USDT.
func InstrumentCandidates(symbol, quote string) []string {
	primary := NormalizeInstrument(symbol, quote)
	base := primary
	if i := strings.IndexByte(primary, '_'); i > 0 {
		base = primary[:i]
	}
	candidates := []string{
		primary,
		strings.ReplaceAll(primary, "_", ""),
		base + "_USDT",
	}
	seen := make(map[string]bool, len(candidates))
	out := candidates[:0]
	for _, c := range candidates {
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	return out
}

// BaseCurrency extracts the base asset from a symbol or instrument name.
func BaseCurrency(symbol string) string {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	s = strings.ReplaceAll(s, "/", "_")
	if i := strings.IndexByte(s, '_'); i > 0 {
		return s[:i]
	}
	return s
}
