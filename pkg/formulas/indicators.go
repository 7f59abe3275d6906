package formulas

import (
	"github.com/markcheno/go-talib"
)

// RSI calculates the Relative Strength Index over the given period
//
// RSI Formula:
//   RSI = 100 - (100 / (1 + RS))
//   where RS = Average Gain / Average Loss over N periods
//
// Returns the current RSI value (0-100) or nil if insufficient data
func RSI(closes []float64, period int) *float64 {
	if len(closes) < period+1 {
		return nil
	}

	values := talib.Rsi(closes, period)
	return lastValid(values)
}

// SMA calculates the simple moving average over the given period,
// returning the current value or nil if insufficient data
func SMA(closes []float64, period int) *float64 {
	if len(closes) < period {
		return nil
	}

	values := talib.Sma(closes, period)
	return lastValid(values)
}

// MACDHistogram calculates the current MACD histogram value (12/26/9),
// or nil if insufficient data
func MACDHistogram(closes []float64) *float64 {
	if len(closes) < 35 {
		return nil
	}

	_, _, hist := talib.Macd(closes, 12, 26, 9)
	return lastValid(hist)
}

// lastValid returns a pointer to the last non-NaN value in the series
func lastValid(values []float64) *float64 {
	for i := len(values) - 1; i >= 0; i-- {
		if !isNaN(values[i]) {
			v := values[i]
			return &v
		}
	}
	return nil
}

// isNaN checks if a float64 is NaN
func isNaN(f float64) bool {
	return f != f
}
