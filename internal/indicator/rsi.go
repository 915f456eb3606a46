package indicator

import "autotrader/internal/models"

type RSI struct {
	Current float64        `json:"current"`
	Zone    models.RSIZone `json:"zone"`
}

// CalcRSI computes the Wilder-smoothed Relative Strength Index over the
// given period. Requires at least period+1 candles.
func CalcRSI(candles []models.Candle, period int) (RSI, error) {
	value, err := rsiValue(candles, period)
	if err != nil {
		return RSI{}, err
	}
	return RSI{Current: value, Zone: rsiZone(value)}, nil
}

func rsiValue(candles []models.Candle, period int) (float64, error) {
	if period <= 0 {
		return 0, errPeriod
	}
	if len(candles) < period+1 {
		return 0, insufficient("rsi", period+1, len(candles))
	}

	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		change := candles[i].Close - candles[i-1].Close
		if change > 0 {
			avgGain += change
		} else {
			avgLoss -= change
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	for i := period + 1; i < len(candles); i++ {
		change := candles[i].Close - candles[i-1].Close
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
	}

	// A lossless window caps RS at 100 rather than dividing by zero.
	rs := 100.0
	if avgLoss > 0 {
		rs = avgGain / avgLoss
	}
	return 100.0 - 100.0/(1.0+rs), nil
}

func rsiZone(value float64) models.RSIZone {
	switch {
	case value >= 70:
		return models.RSIOverbought
	case value <= 30:
		return models.RSIOversold
	default:
		return models.RSINeutral
	}
}
