// Package indicator implements technical indicators as pure functions over
// price series. Every function reports ok=false when the input window is
// too short instead of guessing a value.
package indicator

import "math"

// Value is a single indicator output. OK is false when the indicator could
// not be computed from the available history.
type Value struct {
	V  float64
	OK bool
}

func value(v float64) Value { return Value{V: v, OK: true} }

// RSI computes the relative strength index with Wilder smoothing.
// Requires period+1 closes. A window with no losses returns 100, a window
// with no gains returns 0.
func RSI(closes []float64, period int) (float64, bool) {
	if period <= 0 || len(closes) < period+1 {
		return 0, false
	}
	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		d := closes[i] - closes[i-1]
		if d > 0 {
			avgGain += d
		} else {
			avgLoss -= d
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)
	for i := period + 1; i < len(closes); i++ {
		d := closes[i] - closes[i-1]
		gain, loss := 0.0, 0.0
		if d > 0 {
			gain = d
		} else {
			loss = -d
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
	}
	if avgLoss == 0 {
		return 100, true
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs), true
}

// SMA computes the simple moving average of the last period values.
func SMA(values []float64, period int) (float64, bool) {
	if period <= 0 || len(values) < period {
		return 0, false
	}
	var sum float64
	for _, v := range values[len(values)-period:] {
		sum += v
	}
	return sum / float64(period), true
}

// EMA computes the exponential moving average over the whole series,
// seeded with the first value, multiplier 2/(period+1).
func EMA(values []float64, period int) (float64, bool) {
	if period <= 0 || len(values) < period {
		return 0, false
	}
	k := 2.0 / float64(period+1)
	ema := values[0]
	for _, v := range values[1:] {
		ema = v*k + ema*(1-k)
	}
	return ema, true
}

// ATR computes the average true range as the plain mean of the last
// period true ranges. Requires period+1 candles.
func ATR(highs, lows, closes []float64, period int) (float64, bool) {
	n := len(closes)
	if period <= 0 || n < period+1 || len(highs) != n || len(lows) != n {
		return 0, false
	}
	var sum float64
	for i := n - period; i < n; i++ {
		tr := highs[i] - lows[i]
		if hc := math.Abs(highs[i] - closes[i-1]); hc > tr {
			tr = hc
		}
		if lc := math.Abs(lows[i] - closes[i-1]); lc > tr {
			tr = lc
		}
		sum += tr
	}
	return sum / float64(period), true
}

// BollingerBands computes mean +/- k standard deviations over the last
// period values.
func BollingerBands(values []float64, period int, k float64) (upper, middle, lower float64, ok bool) {
	middle, ok = SMA(values, period)
	if !ok {
		return 0, 0, 0, false
	}
	var variance float64
	for _, v := range values[len(values)-period:] {
		d := v - middle
		variance += d * d
	}
	std := math.Sqrt(variance / float64(period))
	return middle + k*std, middle, middle - k*std, true
}

// MACD computes the moving average convergence divergence. The signal
// line is approximated by the MACD line itself (no separate EMA of the
// line is kept), so the histogram is always zero; direction checks use
// the line against the zero axis.
func MACD(closes []float64, fast, slow int) (line, signal, histogram float64, ok bool) {
	if fast <= 0 || slow <= fast || len(closes) < slow {
		return 0, 0, 0, false
	}
	fastEMA, _ := EMA(closes, fast)
	slowEMA, _ := EMA(closes, slow)
	line = fastEMA - slowEMA
	return line, line, 0, true
}

// Stochastic computes the %K oscillator over the last period candles.
// %D is reported equal to %K (no separate smoothing). A flat window
// (high == low) yields the neutral 50.
func Stochastic(highs, lows, closes []float64, period int) (k, d float64, ok bool) {
	n := len(closes)
	if period <= 0 || n < period || len(highs) != n || len(lows) != n {
		return 0, 0, false
	}
	hh, ll := highs[n-period], lows[n-period]
	for i := n - period + 1; i < n; i++ {
		if highs[i] > hh {
			hh = highs[i]
		}
		if lows[i] < ll {
			ll = lows[i]
		}
	}
	if hh == ll {
		return 50, 50, true
	}
	k = (closes[n-1] - ll) / (hh - ll) * 100
	return k, k, true
}
