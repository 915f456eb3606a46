package indicator

import (
	"math"

	"autotrader/internal/models"
)

type ATR struct {
	Current       float64 `json:"current"`
	Abnormal      bool    `json:"abnormal"`
	LastTrueRange float64 `json:"last_true_range"`
}

// CalcATR computes the Wilder-smoothed Average True Range. The seed is the
// simple mean of the first period true ranges. Requires period+1 candles.
func CalcATR(candles []models.Candle, period int) (ATR, error) {
	if period <= 0 {
		return ATR{}, errPeriod
	}
	if len(candles) < period+1 {
		return ATR{}, insufficient("atr", period+1, len(candles))
	}

	trs := make([]float64, 0, len(candles)-1)
	for i := 1; i < len(candles); i++ {
		trs = append(trs, trueRange(candles[i], candles[i-1].Close))
	}

	atr := 0.0
	for i := 0; i < period; i++ {
		atr += trs[i]
	}
	atr /= float64(period)

	for i := period; i < len(trs); i++ {
		atr = (atr*float64(period-1) + trs[i]) / float64(period)
	}

	last := trs[len(trs)-1]
	return ATR{
		Current:       atr,
		Abnormal:      last > 2*atr,
		LastTrueRange: last,
	}, nil
}

func trueRange(c models.Candle, prevClose float64) float64 {
	hl := c.High - c.Low
	hc := math.Abs(c.High - prevClose)
	lc := math.Abs(c.Low - prevClose)
	return math.Max(hl, math.Max(hc, lc))
}
