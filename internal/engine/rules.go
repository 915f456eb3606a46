package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"autotrader/internal/models"
	"autotrader/internal/store"
)

const actionSellAll = "sell_all"

// AddRule registers a one-shot price rule and persists the rule set.
func (t *Trader) AddRule(token string, kind models.RuleKind, triggerPrice float64, action, outputToken string) (models.PriceRule, error) {
	if kind != models.RuleKindStopLoss && kind != models.RuleKindTakeProfit {
		return models.PriceRule{}, &models.ValidationError{Field: "kind", Msg: fmt.Sprintf("unsupported price rule kind %q", kind)}
	}
	if triggerPrice <= 0 {
		return models.PriceRule{}, &models.ValidationError{Field: "trigger_price", Msg: "must be positive"}
	}
	if outputToken == "" {
		outputToken = t.cfg.QuoteToken
	}

	rule := models.PriceRule{
		ID:           uuid.New().String(),
		Token:        token,
		Kind:         kind,
		TriggerPrice: triggerPrice,
		Action:       action,
		OutputToken:  outputToken,
		Active:       true,
		CreatedAt:    t.now(),
	}

	t.mu.Lock()
	t.rules = append(t.rules, rule)
	err := t.saveRulesLocked()
	t.mu.Unlock()
	if err != nil {
		return models.PriceRule{}, err
	}
	return rule, nil
}

func (t *Trader) Rules() []models.PriceRule {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]models.PriceRule, len(t.rules))
	copy(out, t.rules)
	return out
}

// SetStrategies replaces the stored strategy set.
func (t *Trader) SetStrategies(strategies []models.Strategy) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.strategies = strategies
	return t.store.Save(store.FileStrategies, strategies)
}

func (t *Trader) Strategies() []models.Strategy {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]models.Strategy, len(t.strategies))
	copy(out, t.strategies)
	return out
}

// evaluatePriceRules fetches each referenced token's price once, then runs
// every active rule against it. Evaluations are sequential to keep external
// call ordering deterministic.
func (t *Trader) evaluatePriceRules(ctx context.Context, sess uint64) {
	t.mu.Lock()
	active := make([]models.PriceRule, 0, len(t.rules))
	for _, rule := range t.rules {
		if rule.Active {
			active = append(active, rule)
		}
	}
	t.mu.Unlock()

	if len(active) == 0 {
		return
	}

	prices := map[string]float64{}
	for _, rule := range active {
		if _, ok := prices[rule.Token]; ok {
			continue
		}
		price, err := t.feed.Price(ctx, rule.Token)
		if err != nil {
			t.logEntry().WithError(err).WithField("token", rule.Token).Warn("price fetch failed, skipping token this tick")
			continue
		}
		prices[rule.Token] = price
	}

	for _, rule := range active {
		price, ok := prices[rule.Token]
		if !ok {
			continue
		}
		if !ruleFires(rule, price) {
			continue
		}
		t.executeRule(ctx, sess, rule, price)
	}
}

func ruleFires(rule models.PriceRule, price float64) bool {
	switch rule.Kind {
	case models.RuleKindStopLoss:
		return price <= rule.TriggerPrice
	case models.RuleKindTakeProfit:
		return price >= rule.TriggerPrice
	default:
		return false
	}
}

// executeRule swaps the computed size and deactivates the rule on success
// only. A failed execution leaves the rule active for the next tick.
func (t *Trader) executeRule(ctx context.Context, sess uint64, rule models.PriceRule, price float64) {
	if t.wallet != nil && !t.wallet.HasKey() {
		err := &models.ConfigurationError{Op: "rule_execute", Msg: "no wallet configured"}
		t.logEntry().WithError(err).Warn("rule fired without a wallet")
		t.logTrade("error", err.Error(), "")
		return
	}

	balance, err := t.swapper.Balance(ctx, rule.Token)
	if err != nil {
		t.logEntry().WithError(err).WithField("token", rule.Token).Warn("balance fetch failed, rule stays active")
		t.logTrade("error", fmt.Sprintf("rule %s: balance fetch failed: %v", rule.ID, err), "")
		return
	}

	fraction := t.cfg.SwapFraction
	if strings.EqualFold(rule.Action, actionSellAll) {
		fraction = t.cfg.SellAllFraction
	}
	amount := balance * fraction
	if amount <= 0 {
		t.logTrade("error", fmt.Sprintf("rule %s fired but %s balance is empty", rule.ID, rule.Token), "")
		return
	}

	result, err := t.swapper.Swap(ctx, rule.Token, rule.OutputToken, amount)
	if err != nil {
		t.logEntry().WithError(err).WithField("rule_id", rule.ID).Warn("swap failed, rule stays active for next tick")
		t.logTrade("error", fmt.Sprintf("rule %s: swap failed: %v", rule.ID, err), "")
		return
	}

	if !t.sessionActive(sess) {
		t.logEntry().WithField("rule_id", rule.ID).Warn("session changed mid-execution, discarding rule result")
		return
	}

	t.deactivateRule(rule.ID)
	t.logTrade(string(rule.Kind), fmt.Sprintf("rule fired at %.6f: swapped %.6f %s for %s", price, amount, rule.Token, rule.OutputToken), result.TransactionID)

	t.bus.Publish(Event{Type: EventRuleTriggered, UserID: t.cfg.UserID, Payload: map[string]interface{}{
		"rule_id": rule.ID,
		"kind":    rule.Kind,
		"token":   rule.Token,
		"price":   price,
	}})
	t.bus.Publish(Event{Type: EventSwapResult, UserID: t.cfg.UserID, Payload: result})
}

func (t *Trader) deactivateRule(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range t.rules {
		if t.rules[i].ID == id {
			now := t.now()
			t.rules[i].Active = false
			t.rules[i].FiredAt = &now
			break
		}
	}
	if err := t.saveRulesLocked(); err != nil {
		t.log.WithError(err).Warn("failed to persist rules")
	}
}

func (t *Trader) saveRulesLocked() error {
	return t.store.Save(store.FileRules, t.rules)
}
