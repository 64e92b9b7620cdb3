package indicator

// Config carries the tunable indicator periods. Fixed-period context
// indicators (MA50, MA200, MACD 12/26, Bollinger 20/2, stochastic 14)
// are not configurable.
type Config struct {
	RSIPeriod int
	MAPeriod  int
	EMAPeriod int
	ATRPeriod int
}

// Set is a full indicator snapshot for one instrument at one point in
// time. Individual values may be unavailable when the history is short;
// callers must check OK per value.
type Set struct {
	RSI Value
	ATR Value

	MA    Value // configured period
	MA50  Value
	MA200 Value
	EMA   Value // configured period

	BollUpper  Value
	BollMiddle Value
	BollLower  Value

	MACDLine   Value
	MACDSignal Value
	MACDHist   Value

	StochK Value
	StochD Value

	VolumeSMA Value

	LastClose  float64
	LastVolume float64
}

const (
	bollPeriod = 20
	bollWidth  = 2.0
	macdFast   = 12
	macdSlow   = 26
	stochLen   = 14
)

// Compute evaluates the whole indicator set over aligned OHLCV series.
// Slices must be ordered oldest first.
func Compute(highs, lows, closes, volumes []float64, cfg Config) Set {
	var s Set
	if len(closes) == 0 {
		return s
	}
	s.LastClose = closes[len(closes)-1]
	if len(volumes) > 0 {
		s.LastVolume = volumes[len(volumes)-1]
	}

	if v, ok := RSI(closes, cfg.RSIPeriod); ok {
		s.RSI = value(v)
	}
	if v, ok := ATR(highs, lows, closes, cfg.ATRPeriod); ok {
		s.ATR = value(v)
	}
	if v, ok := SMA(closes, cfg.MAPeriod); ok {
		s.MA = value(v)
	}
	if v, ok := SMA(closes, 50); ok {
		s.MA50 = value(v)
	}
	if v, ok := SMA(closes, 200); ok {
		s.MA200 = value(v)
	}
	if v, ok := EMA(closes, cfg.EMAPeriod); ok {
		s.EMA = value(v)
	}
	if up, mid, lo, ok := BollingerBands(closes, bollPeriod, bollWidth); ok {
		s.BollUpper = value(up)
		s.BollMiddle = value(mid)
		s.BollLower = value(lo)
	}
	if line, sig, hist, ok := MACD(closes, macdFast, macdSlow); ok {
		s.MACDLine = value(line)
		s.MACDSignal = value(sig)
		s.MACDHist = value(hist)
	}
	if k, d, ok := Stochastic(highs, lows, closes, stochLen); ok {
		s.StochK = value(k)
		s.StochD = value(d)
	}
	if v, ok := SMA(volumes, bollPeriod); ok {
		s.VolumeSMA = value(v)
	}
	return s
}
