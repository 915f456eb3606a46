package indicator

import "autotrader/internal/models"

// CalcEMA computes the exponential moving average of closes, seeded with
// the simple average of the first period closes.
func CalcEMA(candles []models.Candle, period int) (float64, error) {
	if period <= 0 {
		return 0, errPeriod
	}
	if len(candles) < period {
		return 0, insufficient("ema", period, len(candles))
	}

	ema := 0.0
	for i := 0; i < period; i++ {
		ema += candles[i].Close
	}
	ema /= float64(period)

	k := 2.0 / float64(period+1)
	for i := period; i < len(candles); i++ {
		ema = candles[i].Close*k + ema*(1-k)
	}
	return ema, nil
}
