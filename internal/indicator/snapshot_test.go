package indicator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autotrader/internal/models"
)

func flatCandles(n int, price, volume float64) []models.Candle {
	out := make([]models.Candle, n)
	for i := range out {
		out[i] = models.Candle{
			Timestamp: int64(i) * 86400000,
			Open:      price,
			High:      price,
			Low:       price,
			Close:     price,
			Volume:    volume,
		}
	}
	return out
}

func trendCandles(closes []float64) []models.Candle {
	out := make([]models.Candle, len(closes))
	for i, c := range closes {
		out[i] = models.Candle{
			Timestamp: int64(i) * 86400000,
			Open:      c,
			High:      c + 0.5,
			Low:       c - 0.5,
			Close:     c,
			Volume:    100,
		}
	}
	return out
}

func TestBuildSnapshot_InsufficientData(t *testing.T) {
	_, err := BuildSnapshot(flatCandles(MinCandles-1, 50, 100))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInsufficientData))
}

func TestBuildSnapshot_FlatSeries(t *testing.T) {
	snap, err := BuildSnapshot(flatCandles(30, 50, 100))
	require.NoError(t, err)

	assert.Equal(t, 50.0, snap.Price)
	assert.InDelta(t, 50.0, snap.VolumeProfile.POC, 1e-9)
	assert.InDelta(t, 50.0, snap.VolumeProfile.VAH, 1e-9)
	assert.InDelta(t, 50.0, snap.VolumeProfile.VAL, 1e-9)
	assert.Zero(t, snap.PriceRelative.VsPOC)
	assert.False(t, snap.ATR.Abnormal)
}

func TestCalcATR_NonNegativeAndAbnormal(t *testing.T) {
	candles := trendCandles([]float64{
		100, 101, 100, 102, 101, 103, 102, 104, 103, 105,
		104, 106, 105, 107, 106, 108,
	})
	atr, err := CalcATR(candles, 14)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, atr.Current, 0.0)
	assert.False(t, atr.Abnormal)

	// One violent final bar blows past twice the smoothed range.
	spiked := append(candles[:len(candles)-1:len(candles)-1], models.Candle{
		Open: 106, High: 130, Low: 90, Close: 95, Volume: 100,
	})
	atr, err = CalcATR(spiked, 14)
	require.NoError(t, err)
	assert.True(t, atr.Abnormal)
	assert.Greater(t, atr.LastTrueRange, 2*atr.Current)
}

func TestCalcATR_ExactlyTwiceIsNotAbnormal(t *testing.T) {
	// Constant true range: last TR equals the ATR itself, well under 2x.
	atr, err := CalcATR(flatCandles(20, 50, 100), 14)
	require.NoError(t, err)
	assert.Zero(t, atr.Current)
	assert.False(t, atr.Abnormal, "boundary: lastTR == 2*ATR must not flag")
}

func TestCalcRSI_Bounds(t *testing.T) {
	gains := make([]float64, 20)
	losses := make([]float64, 20)
	for i := range gains {
		gains[i] = 100 + float64(i)
		losses[i] = 100 - float64(i)
	}

	// Lossless window: RS caps at 100, so RSI is 100 - 100/101.
	up, err := CalcRSI(trendCandles(gains), 14)
	require.NoError(t, err)
	assert.InDelta(t, 100.0-100.0/101.0, up.Current, 1e-9)
	assert.Equal(t, models.RSIOverbought, up.Zone)

	down, err := CalcRSI(trendCandles(losses), 14)
	require.NoError(t, err)
	assert.Zero(t, down.Current)
	assert.Equal(t, models.RSIOversold, down.Zone)
}

func TestCalcRSI_MonotonicRise(t *testing.T) {
	// 20 daily candles, closes rising 100 -> 120.
	closes := make([]float64, 20)
	for i := range closes {
		closes[i] = 100 + float64(i)*20.0/19.0
	}
	rsi, err := CalcRSI(trendCandles(closes), 14)
	require.NoError(t, err)
	assert.Greater(t, rsi.Current, 70.0)
}

func TestCalcEMA_ConstantSeries(t *testing.T) {
	ema, err := CalcEMA(flatCandles(40, 73.5, 10), 9)
	require.NoError(t, err)
	assert.InDelta(t, 73.5, ema, 1e-9)
}

func TestCalcAVWAP_UniformVolume(t *testing.T) {
	candles := trendCandles([]float64{100, 102, 104, 106, 108})
	avwap, err := CalcAVWAP(candles, 0)
	require.NoError(t, err)
	// Typical price equals close here; uniform volume means plain mean.
	assert.InDelta(t, 104.0, avwap.Value, 1e-9)
	assert.InDelta(t, 99.5, avwap.AnchorPrice, 1e-9)
}

func TestCalcVolumeProfile_ValueAreaOrdering(t *testing.T) {
	closes := []float64{100, 105, 95, 110, 98, 104, 101, 99, 103, 100,
		102, 97, 106, 100, 101}
	vp, err := CalcVolumeProfile(trendCandles(closes), 50, 0.70)
	require.NoError(t, err)
	assert.LessOrEqual(t, vp.VAL, vp.POC)
	assert.LessOrEqual(t, vp.POC, vp.VAH)
}

func TestCalcVolumeProfile_VolumeConservation(t *testing.T) {
	closes := []float64{100, 105, 95, 110, 98, 104, 101, 99, 103, 100,
		102, 97, 106, 100, 101}
	candles := trendCandles(closes)
	for i := range candles {
		candles[i].Volume = 50 + float64(i)*7
	}
	var total float64
	for _, c := range candles {
		total += c.Volume
	}

	vp, err := CalcVolumeProfile(candles, 50, 0.70)
	require.NoError(t, err)

	// Accumulating the expanded range covers at least 70% of total volume
	// and never more than the whole histogram.
	assert.InDelta(t, total, vp.TotalVolume, 1e-6)
	assert.GreaterOrEqual(t, vp.ValueAreaVolume, 0.70*total)
	assert.LessOrEqual(t, vp.ValueAreaVolume, total+1e-6)

	// With the area target at 100% the expansion walks every bucket, so
	// the bucket volumes must sum back to the input volume.
	full, err := CalcVolumeProfile(candles, 50, 1.0)
	require.NoError(t, err)
	assert.InDelta(t, total, full.ValueAreaVolume, 1e-6)
}

func TestCalcLadderStage(t *testing.T) {
	testCases := []struct {
		desc     string
		closes   []float64
		expected int
	}{
		{
			"monotonic rise has no pivots",
			[]float64{100, 101, 102, 103, 104, 105, 106, 107, 108, 109,
				110, 111, 112, 113, 114, 115, 116, 117, 118, 119},
			0,
		},
		{
			"single dip is one swing low",
			[]float64{105, 104, 103, 102, 101, 100, 101, 102, 103, 104,
				105, 106, 107, 108, 109, 110, 111, 112, 113, 114},
			1,
		},
		{
			"higher low after a swing high confirms structure",
			[]float64{105, 103, 100, 102, 104, 106, 108, 106, 104, 102,
				101, 103, 105, 106, 107, 108, 109, 110, 111, 112},
			3,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			stage := CalcLadderStage(trendCandles(tc.closes), 20)
			assert.Equal(t, tc.expected, stage)
		})
	}
}

func TestCalcDiamond_PurpleOnOversoldBreakout(t *testing.T) {
	closes := make([]float64, 21)
	for i := range closes {
		closes[i] = 100 - float64(i)
	}
	d := CalcDiamond(trendCandles(closes), 2, 14)
	assert.True(t, d.Present)
	assert.Equal(t, models.DiamondPurple, d.Color)
}

func TestCalcDiamond_RequiresStructure(t *testing.T) {
	closes := make([]float64, 21)
	for i := range closes {
		closes[i] = 100 - float64(i)
	}
	d := CalcDiamond(trendCandles(closes), 1, 14)
	assert.False(t, d.Present)
	assert.Equal(t, models.DiamondNone, d.Color)
}

func TestCalcDiamond_NoBreakout(t *testing.T) {
	d := CalcDiamond(flatCandles(30, 50, 100), 3, 14)
	assert.False(t, d.Present)
}
