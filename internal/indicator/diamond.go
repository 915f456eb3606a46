package indicator

import "autotrader/internal/models"

type Diamond struct {
	Present bool                `json:"present"`
	Color   models.DiamondColor `json:"color"`
}

const (
	diamondScanBars     = 5
	diamondBreakoutBars = 15
)

// CalcDiamond looks for a fresh swing-low breakout once ladder structure is
// established (stage >= 2): any of the last 5 bars whose low undercuts the
// minimum low of the preceding 15 bars. The signal color comes from the RSI
// at the breaking bar.
func CalcDiamond(candles []models.Candle, ladderStage int, rsiPeriod int) Diamond {
	if ladderStage < 2 {
		return Diamond{Color: models.DiamondNone}
	}

	n := len(candles)
	start := n - diamondScanBars
	if start < diamondBreakoutBars {
		start = diamondBreakoutBars
	}

	breakIdx := -1
	for i := start; i < n; i++ {
		floor := candles[i-diamondBreakoutBars].Low
		for j := i - diamondBreakoutBars + 1; j < i; j++ {
			if candles[j].Low < floor {
				floor = candles[j].Low
			}
		}
		if candles[i].Low < floor {
			breakIdx = i
		}
	}

	if breakIdx < 0 {
		return Diamond{Color: models.DiamondNone}
	}

	rsiAtBar, err := rsiValue(candles[:breakIdx+1], rsiPeriod)
	if err != nil {
		return Diamond{Color: models.DiamondNone}
	}

	color := models.DiamondGreen
	switch {
	case rsiAtBar < 30:
		color = models.DiamondPurple
	case rsiAtBar > 69:
		color = models.DiamondRed
	}
	return Diamond{Present: true, Color: color}
}
