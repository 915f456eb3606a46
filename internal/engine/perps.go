package engine

import (
	"context"
	"fmt"

	"autotrader/internal/models"
)

// manageAutoPerps closes leveraged positions outside the ROI band, then
// considers at most one new entry when below the open-position cap.
func (t *Trader) manageAutoPerps(ctx context.Context, sess uint64) {
	positions, err := t.perps.List(ctx)
	if err != nil {
		t.logEntry().WithError(err).Warn("perp position list failed")
		return
	}

	remaining := 0
	for _, pos := range positions {
		roi := perpROI(pos)
		switch {
		case roi >= t.cfg.Perps.TakeProfitROI:
			if !t.closePerp(ctx, sess, pos, roi, "take_profit") {
				remaining++
			}
		case roi <= t.cfg.Perps.StopLossROI:
			if !t.closePerp(ctx, sess, pos, roi, "stop_loss") {
				remaining++
			}
		default:
			remaining++
		}
	}

	if remaining >= t.cfg.Perps.MaxOpen {
		return
	}
	t.tryPerpEntry(ctx, sess)
}

func perpROI(pos models.PerpPosition) float64 {
	if pos.CollateralUsd <= 0 {
		return 0
	}
	return pos.UnrealizedPnl / pos.CollateralUsd * 100
}

// closePerp reports whether the position was actually closed; a failed
// close means it still counts against the open-position cap.
func (t *Trader) closePerp(ctx context.Context, sess uint64, pos models.PerpPosition, roi float64, reason string) bool {
	if _, err := t.perps.Close(ctx, pos.Key); err != nil {
		t.logEntry().WithError(err).WithField("position_key", pos.Key).Warn("perp close failed")
		t.logTrade("error", fmt.Sprintf("perp close %s: %v", pos.Key, err), "")
		return false
	}

	if !t.sessionActive(sess) {
		return true
	}

	t.logTrade("perp_"+reason, fmt.Sprintf("closed %s %s at %+.1f%% ROI", pos.Side, pos.Market, roi), "")
	t.bus.Publish(Event{Type: EventPerpClosed, UserID: t.cfg.UserID, Payload: map[string]interface{}{
		"position_key": pos.Key,
		"market":       pos.Market,
		"roi":          roi,
		"reason":       reason,
	}})
	return true
}

// tryPerpEntry evaluates the first auto-perps-eligible strategy and opens a
// conservatively sized long when it signals entry.
func (t *Trader) tryPerpEntry(ctx context.Context, sess uint64) {
	var eligible *models.Strategy
	for _, strat := range t.Strategies() {
		if strat.AutoPerpsEligible {
			s := strat
			eligible = &s
			break
		}
	}
	if eligible == nil {
		return
	}

	eval, err := t.strategyEngine.EvaluateEntry(ctx, *eligible, t.cfg.Pair)
	if err != nil {
		t.reportStrategyError(eligible.Name, err)
		return
	}
	t.bus.Publish(Event{Type: EventStrategyEval, UserID: t.cfg.UserID, Payload: eval})
	if !eval.Entry {
		return
	}

	balance, err := t.swapper.Balance(ctx, t.cfg.QuoteToken)
	if err != nil {
		t.logEntry().WithError(err).Warn("perp entry skipped, balance fetch failed")
		return
	}

	collateral := balance * t.cfg.Perps.BalanceFraction
	if collateral < t.cfg.Perps.MinCollateral {
		t.logEntry().WithField("collateral", collateral).Debug("perp entry skipped, collateral below floor")
		return
	}
	if collateral > t.cfg.Perps.MaxCollateral {
		collateral = t.cfg.Perps.MaxCollateral
	}

	market := baseToken(t.cfg.Pair) + "-PERP"
	pos, err := t.perps.Open(ctx, market, models.PerpSideLong, collateral, t.cfg.Perps.Leverage, t.cfg.QuoteToken)
	if err != nil {
		t.logTrade("error", fmt.Sprintf("perp open %s: %v", market, err), "")
		return
	}

	if !t.sessionActive(sess) {
		return
	}

	t.logTrade("perp_entry", fmt.Sprintf("opened %s long, %.2f USD collateral at %.0fx (%s)", market, collateral, t.cfg.Perps.Leverage, eligible.Name), "")
	t.bus.Publish(Event{Type: EventPerpOpened, UserID: t.cfg.UserID, Payload: pos})
}
