package engine

import (
	"context"
	"errors"
	"fmt"

	"autotrader/internal/indicator"
	"autotrader/internal/models"
	"autotrader/internal/strategy"
)

// evaluateStrategies runs every stored strategy against the configured
// pair: exit rules over open positions first, then entry rules. The full
// rule-by-rule trace is broadcast for every evaluation.
func (t *Trader) evaluateStrategies(ctx context.Context, sess uint64) {
	strategies := t.Strategies()
	if len(strategies) == 0 || t.cfg.Pair == "" {
		return
	}

	for _, strat := range strategies {
		open := t.ledger.OpenByPair(t.cfg.Pair)
		if len(open) > 0 && len(strat.ExitRules) > 0 {
			signals, err := t.strategyEngine.EvaluateExits(ctx, strat, t.cfg.Pair, open)
			if err != nil {
				t.reportStrategyError(strat.Name, err)
				continue
			}
			for _, signal := range signals {
				t.closeSpotPosition(ctx, sess, signal)
			}
		}

		eval, err := t.strategyEngine.EvaluateEntry(ctx, strat, t.cfg.Pair)
		if err != nil {
			t.reportStrategyError(strat.Name, err)
			continue
		}
		t.bus.Publish(Event{Type: EventStrategyEval, UserID: t.cfg.UserID, Payload: eval})

		if eval.Entry && len(t.ledger.OpenByPair(t.cfg.Pair)) == 0 {
			t.enterSpotPosition(ctx, sess, strat)
		}
	}
}

func (t *Trader) reportStrategyError(name string, err error) {
	if errors.Is(err, indicator.ErrInsufficientData) {
		t.logEntry().WithField("strategy", name).Debug("not enough candles yet, skipping evaluation")
		return
	}
	t.logEntry().WithError(err).WithField("strategy", name).Warn("strategy evaluation failed")
	t.logTrade("error", fmt.Sprintf("strategy %s: %v", name, err), "")
}

func (t *Trader) enterSpotPosition(ctx context.Context, sess uint64, strat models.Strategy) {
	base := baseToken(t.cfg.Pair)

	balance, err := t.swapper.Balance(ctx, t.cfg.QuoteToken)
	if err != nil {
		t.logTrade("error", fmt.Sprintf("entry %s: balance fetch failed: %v", strat.Name, err), "")
		return
	}
	amount := balance * t.cfg.SwapFraction
	if amount <= 0 {
		return
	}

	price, err := t.feed.Price(ctx, base)
	if err != nil {
		t.logTrade("error", fmt.Sprintf("entry %s: price fetch failed: %v", strat.Name, err), "")
		return
	}

	result, err := t.swapper.Swap(ctx, t.cfg.QuoteToken, base, amount)
	if err != nil {
		t.logTrade("error", fmt.Sprintf("entry %s: swap failed: %v", strat.Name, err), "")
		return
	}

	if !t.sessionActive(sess) {
		t.logEntry().Warn("session changed mid-entry, position not recorded")
		return
	}

	size := result.OutAmount
	if size <= 0 && price > 0 {
		size = amount / price
	}
	pos, err := t.ledger.Open(t.cfg.Pair, price, size, strat.Name)
	if err != nil {
		t.logTrade("error", fmt.Sprintf("entry %s: ledger open failed: %v", strat.Name, err), result.TransactionID)
		return
	}

	t.logTrade("entry", fmt.Sprintf("strategy %s entered %s: %.6f at %.6f", strat.Name, t.cfg.Pair, size, price), result.TransactionID)
	t.bus.Publish(Event{Type: EventSwapResult, UserID: t.cfg.UserID, Payload: result})
	t.logEntry().WithFields(map[string]interface{}{"position_id": pos.ID, "strategy": strat.Name}).Info("spot position opened")
}

func (t *Trader) closeSpotPosition(ctx context.Context, sess uint64, signal strategy.ExitSignal) {
	base := baseToken(t.cfg.Pair)
	pos := signal.Position

	price, err := t.feed.Price(ctx, base)
	if err != nil {
		t.logTrade("error", fmt.Sprintf("exit %s: price fetch failed: %v", pos.ID, err), "")
		return
	}

	result, err := t.swapper.Swap(ctx, base, t.cfg.QuoteToken, pos.Size)
	if err != nil {
		t.logTrade("error", fmt.Sprintf("exit %s: swap failed: %v", pos.ID, err), "")
		return
	}

	if !t.sessionActive(sess) {
		t.logEntry().Warn("session changed mid-exit, ledger not updated")
		return
	}

	closed, err := t.ledger.Close(pos.ID, price, string(signal.Rule))
	if err != nil {
		t.logTrade("error", fmt.Sprintf("exit %s: ledger close failed: %v", pos.ID, err), result.TransactionID)
		return
	}

	pnl := 0.0
	if closed.PnlPercent != nil {
		pnl = *closed.PnlPercent
	}
	t.logTrade("exit", fmt.Sprintf("%s closed %s at %.6f (%+.2f%%)", signal.Rule, t.cfg.Pair, price, pnl), result.TransactionID)
	t.bus.Publish(Event{Type: EventSwapResult, UserID: t.cfg.UserID, Payload: result})
}
