package indicator

import (
	"errors"
	"fmt"

	"autotrader/internal/models"
)

// MinCandles is the fewest bars the engine will compute a snapshot from.
// Below it every caller gets ErrInsufficientData and skips the tick.
const MinCandles = 15

const defaultPeriod = 14

var emaPeriods = []int{9, 21, 50}

var errPeriod = errors.New("period must be positive")

// ErrInsufficientData marks a series too short for the requested
// computation. Callers check it with errors.Is and degrade gracefully.
var ErrInsufficientData = errors.New("insufficient candle data")

func insufficient(op string, need, got int) error {
	return fmt.Errorf("%s: need %d candles, got %d: %w", op, need, got, ErrInsufficientData)
}

type PriceRelative struct {
	VsVAL float64 `json:"vs_val"`
	VsPOC float64 `json:"vs_poc"`
	VsVAH float64 `json:"vs_vah"`
}

type Snapshot struct {
	Price         float64         `json:"price"`
	ATR           ATR             `json:"atr"`
	RSI           RSI             `json:"rsi"`
	EMAs          map[int]float64 `json:"emas"`
	AVWAPMajor    AVWAP           `json:"avwap_major"`
	AVWAPCurrent  AVWAP           `json:"avwap_current"`
	VolumeProfile VolumeProfile   `json:"volume_profile"`
	LadderStage   int             `json:"ladder_stage"`
	Diamond       Diamond         `json:"diamond"`
	PriceRelative PriceRelative   `json:"price_relative"`
}

// BuildSnapshot derives the full indicator set from an oldest-first candle
// series. Pure computation, no I/O.
func BuildSnapshot(candles []models.Candle) (*Snapshot, error) {
	if len(candles) < MinCandles {
		return nil, insufficient("snapshot", MinCandles, len(candles))
	}

	price := candles[len(candles)-1].Close

	atr, err := CalcATR(candles, defaultPeriod)
	if err != nil {
		return nil, err
	}
	rsi, err := CalcRSI(candles, defaultPeriod)
	if err != nil {
		return nil, err
	}

	emas := make(map[int]float64, len(emaPeriods))
	for _, period := range emaPeriods {
		value, err := CalcEMA(candles, period)
		if err != nil {
			if errors.Is(err, ErrInsufficientData) {
				continue
			}
			return nil, err
		}
		emas[period] = value
	}

	major, err := CalcAVWAP(candles, lowestLowIndex(candles, avwapMajorLookback))
	if err != nil {
		return nil, err
	}
	current, err := CalcAVWAP(candles, lowestLowIndex(candles, avwapCurrentLookback))
	if err != nil {
		return nil, err
	}

	profile, err := CalcVolumeProfile(candles, profileBins, valueAreaPct)
	if err != nil {
		return nil, err
	}

	stage := CalcLadderStage(candles, ladderLookback)
	diamond := CalcDiamond(candles, stage, defaultPeriod)

	return &Snapshot{
		Price:         price,
		ATR:           atr,
		RSI:           rsi,
		EMAs:          emas,
		AVWAPMajor:    major,
		AVWAPCurrent:  current,
		VolumeProfile: profile,
		LadderStage:   stage,
		Diamond:       diamond,
		PriceRelative: PriceRelative{
			VsVAL: relative(price, profile.VAL),
			VsPOC: relative(price, profile.POC),
			VsVAH: relative(price, profile.VAH),
		},
	}, nil
}

func relative(price, level float64) float64 {
	if level == 0 {
		return 0
	}
	return (price - level) / level
}
