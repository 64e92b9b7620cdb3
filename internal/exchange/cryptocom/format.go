package cryptocom

import (
	"strings"

	"github.com/shopspring/decimal"
)

// quantityPrecision is the number of base-quantity decimal places the
// exchange accepts per asset. Unlisted assets use defaultQtyPrecision.
var quantityPrecision = map[string]int32{
	"BTC":  6,
	"ETH":  6,
	"SOL":  6,
	"DOGE": 0,
	"SHIB": 0,
	"PEPE": 0,
	"BONK": 0,
}

const (
	defaultQtyPrecision int32 = 2
	pricePrecision      int32 = 8
)

// FormatQuantity renders a base quantity for the wire, truncated (never
// rounded up) to the asset's precision so a flatten can not oversell.
func FormatQuantity(instrument string, quantity float64) string {
	base := instrument
	if i := strings.IndexByte(instrument, '_'); i > 0 {
		base = instrument[:i]
	}
	prec, ok := quantityPrecision[strings.ToUpper(base)]
	if !ok {
		prec = defaultQtyPrecision
	}
	return trimZeros(decimal.NewFromFloat(quantity).Truncate(prec).String())
}

// FormatPrice renders a price or notional for the wire.
func FormatPrice(value float64) string {
	return trimZeros(decimal.NewFromFloat(value).Round(pricePrecision).String())
}

func trimZeros(s string) string {
	if !strings.Contains(s, ".") {
		return s
	}
	s = strings.TrimRight(s, "0")
	return strings.TrimRight(s, ".")
}
