package indicator

import "autotrader/internal/models"

type AVWAP struct {
	Value       float64 `json:"value"`
	AnchorPrice float64 `json:"anchor_price"`
}

const (
	avwapMajorLookback   = 400
	avwapCurrentLookback = 63
)

// CalcAVWAP accumulates volume-weighted typical price from anchorIndex to
// the latest bar.
func CalcAVWAP(candles []models.Candle, anchorIndex int) (AVWAP, error) {
	if len(candles) == 0 {
		return AVWAP{}, insufficient("avwap", 1, 0)
	}
	if anchorIndex < 0 || anchorIndex >= len(candles) {
		anchorIndex = 0
	}

	var sumPV, sumV float64
	for i := anchorIndex; i < len(candles); i++ {
		c := candles[i]
		typical := (c.High + c.Low + c.Close) / 3.0
		sumPV += typical * c.Volume
		sumV += c.Volume
	}

	value := 0.0
	if sumV > 0 {
		value = sumPV / sumV
	}
	return AVWAP{Value: value, AnchorPrice: candles[anchorIndex].Low}, nil
}

// lowestLowIndex returns the index of the lowest low within the trailing
// lookback window, clamped to the series length.
func lowestLowIndex(candles []models.Candle, lookback int) int {
	start := len(candles) - lookback
	if start < 0 {
		start = 0
	}
	idx := start
	for i := start; i < len(candles); i++ {
		if candles[i].Low < candles[idx].Low {
			idx = i
		}
	}
	return idx
}
