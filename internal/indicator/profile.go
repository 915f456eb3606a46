package indicator

import "autotrader/internal/models"

type VolumeProfile struct {
	POC             float64 `json:"poc"`
	VAH             float64 `json:"vah"`
	VAL             float64 `json:"val"`
	TotalVolume     float64 `json:"total_volume"`
	ValueAreaVolume float64 `json:"value_area_volume"`
}

const (
	profileBins  = 50
	valueAreaPct = 0.70
)

// CalcVolumeProfile partitions the full high/low range into equal buckets,
// spreads each candle's volume evenly across every bucket its range
// touches, and expands a value area around the point of control until it
// holds valueAreaPct of total volume. Equal adjacent buckets expand toward
// the low side.
func CalcVolumeProfile(candles []models.Candle, bins int, areaPct float64) (VolumeProfile, error) {
	if len(candles) == 0 {
		return VolumeProfile{}, insufficient("volume_profile", 1, 0)
	}
	if bins <= 0 {
		bins = profileBins
	}
	if areaPct <= 0 || areaPct > 1 {
		areaPct = valueAreaPct
	}

	lo, hi := candles[0].Low, candles[0].High
	for _, c := range candles {
		if c.Low < lo {
			lo = c.Low
		}
		if c.High > hi {
			hi = c.High
		}
	}

	if hi == lo {
		// Degenerate flat series: the whole profile sits on one price.
		var total float64
		for _, c := range candles {
			total += c.Volume
		}
		return VolumeProfile{POC: lo, VAH: lo, VAL: lo, TotalVolume: total, ValueAreaVolume: total}, nil
	}

	width := (hi - lo) / float64(bins)
	volumes := make([]float64, bins)
	var total float64

	for _, c := range candles {
		first := bucketIndex(c.Low, lo, width, bins)
		last := bucketIndex(c.High, lo, width, bins)
		share := c.Volume / float64(last-first+1)
		for b := first; b <= last; b++ {
			volumes[b] += share
		}
		total += c.Volume
	}

	poc := 0
	for b := 1; b < bins; b++ {
		if volumes[b] > volumes[poc] {
			poc = b
		}
	}

	lowEdge, highEdge := poc, poc
	accumulated := volumes[poc]
	target := areaPct * total

	for accumulated < target {
		canLow := lowEdge > 0
		canHigh := highEdge < bins-1
		if !canLow && !canHigh {
			break
		}
		switch {
		case canLow && canHigh:
			if volumes[lowEdge-1] >= volumes[highEdge+1] {
				lowEdge--
				accumulated += volumes[lowEdge]
			} else {
				highEdge++
				accumulated += volumes[highEdge]
			}
		case canLow:
			lowEdge--
			accumulated += volumes[lowEdge]
		default:
			highEdge++
			accumulated += volumes[highEdge]
		}
	}

	return VolumeProfile{
		POC:             lo + (float64(poc)+0.5)*width,
		VAH:             lo + float64(highEdge+1)*width,
		VAL:             lo + float64(lowEdge)*width,
		TotalVolume:     total,
		ValueAreaVolume: accumulated,
	}, nil
}

func bucketIndex(price, lo, width float64, bins int) int {
	b := int((price - lo) / width)
	if b < 0 {
		b = 0
	}
	if b > bins-1 {
		b = bins - 1
	}
	return b
}
