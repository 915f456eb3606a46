package indicator

import "autotrader/internal/models"

const (
	ladderLookback = 20
	pivotWing      = 2
)

// CalcLadderStage classifies market structure from swing pivots inside the
// trailing lookback window. A pivot low has a lower low than the two bars
// on each side; a pivot high mirrors that.
//
// Stage 0: no swing lows. Stage 1: one swing low. Stage 2: two swing lows,
// or one low plus one high. Stage 3: two or more swing lows with the latest
// above the previous, plus at least one swing high.
func CalcLadderStage(candles []models.Candle, lookback int) int {
	if lookback <= 0 {
		lookback = ladderLookback
	}
	start := len(candles) - lookback
	if start < pivotWing {
		start = pivotWing
	}

	var swingLows []float64
	var swingHighs []float64
	for i := start; i < len(candles)-pivotWing; i++ {
		if isPivotLow(candles, i) {
			swingLows = append(swingLows, candles[i].Low)
		}
		if isPivotHigh(candles, i) {
			swingHighs = append(swingHighs, candles[i].High)
		}
	}

	switch {
	case len(swingLows) >= 2 && swingLows[len(swingLows)-1] > swingLows[len(swingLows)-2] && len(swingHighs) >= 1:
		return 3
	case len(swingLows) >= 2, len(swingLows) == 1 && len(swingHighs) >= 1:
		return 2
	case len(swingLows) == 1:
		return 1
	default:
		return 0
	}
}

func isPivotLow(candles []models.Candle, i int) bool {
	for d := 1; d <= pivotWing; d++ {
		if candles[i].Low >= candles[i-d].Low || candles[i].Low >= candles[i+d].Low {
			return false
		}
	}
	return true
}

func isPivotHigh(candles []models.Candle, i int) bool {
	for d := 1; d <= pivotWing; d++ {
		if candles[i].High <= candles[i-d].High || candles[i].High <= candles[i+d].High {
			return false
		}
	}
	return true
}
