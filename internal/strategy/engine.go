package strategy

import (
	"context"
	"fmt"
	"math"
	"time"

	"autotrader/internal/indicator"
	"autotrader/internal/logger"
	"autotrader/internal/models"
)

// SnapshotProvider supplies a fresh indicator snapshot for a pair.
type SnapshotProvider interface {
	Snapshot(ctx context.Context, pair string) (*indicator.Snapshot, error)
}

// RuleTrace records one rule's evaluation for the audit trail. Every
// evaluation returns the full set, not just failures.
type RuleTrace struct {
	Label       string  `json:"label"`
	Description string  `json:"description"`
	Value       float64 `json:"value"`
	Passed      bool    `json:"passed"`
}

type Evaluation struct {
	Strategy string      `json:"strategy"`
	Pair     string      `json:"pair"`
	Entry    bool        `json:"entry"`
	Traces   []RuleTrace `json:"traces"`
}

type ExitSignal struct {
	Position models.Position `json:"position"`
	Rule     models.RuleKind `json:"rule"`
	Reason   string          `json:"reason"`
	Trace    RuleTrace       `json:"trace"`
}

type Engine struct {
	snapshots SnapshotProvider
	log       *logger.Logger
	now       func() time.Time
}

func NewEngine(snapshots SnapshotProvider, log *logger.Logger) *Engine {
	return &Engine{snapshots: snapshots, log: log, now: time.Now}
}

// EvaluateEntry fetches a fresh snapshot and checks every entry rule.
// Entry rules combine with AND semantics; an empty rule list always passes.
func (e *Engine) EvaluateEntry(ctx context.Context, strat models.Strategy, pair string) (Evaluation, error) {
	snap, err := e.snapshots.Snapshot(ctx, pair)
	if err != nil {
		return Evaluation{}, err
	}
	eval := e.evaluateEntryWith(strat, pair, snap)
	e.log.WithComponent("strategy").WithFields(map[string]interface{}{
		"strategy": strat.Name,
		"pair":     pair,
		"entry":    eval.Entry,
		"rules":    len(eval.Traces),
	}).Debug("entry rules evaluated")
	return eval, nil
}

func (e *Engine) evaluateEntryWith(strat models.Strategy, pair string, snap *indicator.Snapshot) Evaluation {
	eval := Evaluation{Strategy: strat.Name, Pair: pair, Entry: true}
	for _, rule := range strat.EntryRules {
		trace := EvaluateRule(rule, snap)
		eval.Traces = append(eval.Traces, trace)
		if !trace.Passed {
			eval.Entry = false
		}
	}
	return eval
}

// EvaluateExits checks the strategy's exit rules against each open position
// of the pair.
func (e *Engine) EvaluateExits(ctx context.Context, strat models.Strategy, pair string, positions []models.Position) ([]ExitSignal, error) {
	snap, err := e.snapshots.Snapshot(ctx, pair)
	if err != nil {
		return nil, err
	}
	return e.evaluateExitsWith(strat, positions, snap), nil
}

func (e *Engine) evaluateExitsWith(strat models.Strategy, positions []models.Position, snap *indicator.Snapshot) []ExitSignal {
	var signals []ExitSignal
	for _, pos := range positions {
		if pos.Status != models.PositionOpen {
			continue
		}
		for _, rule := range strat.ExitRules {
			trace, fired := e.evaluateExitRule(rule, pos, snap)
			if fired {
				e.log.WithComponent("strategy").WithFields(map[string]interface{}{
					"strategy":    strat.Name,
					"position_id": pos.ID,
					"rule":        rule.Kind,
				}).Info("exit rule fired")
				signals = append(signals, ExitSignal{
					Position: pos,
					Rule:     rule.Kind,
					Reason:   trace.Description,
					Trace:    trace,
				})
				break
			}
		}
	}
	return signals
}

func (e *Engine) evaluateExitRule(rule models.StrategyRule, pos models.Position, snap *indicator.Snapshot) (RuleTrace, bool) {
	switch rule.Kind {
	case models.RuleKindHardStop:
		stop := pos.EntryPrice - rule.ATRMultiplier*snap.ATR.Current
		fired := snap.Price <= stop
		return RuleTrace{
			Label:       string(rule.Kind),
			Description: fmt.Sprintf("price <= entry - %.1fx ATR (%.6f)", rule.ATRMultiplier, stop),
			Value:       snap.Price,
			Passed:      fired,
		}, fired

	case models.RuleKindProfitTarget:
		target := pos.AvgPrice * (1 + rule.TargetPct/100)
		holdDays := int(e.now().Sub(pos.EntryDate).Milliseconds() / 86400000)
		fired := holdDays >= rule.MinHoldDays && snap.Price >= target
		return RuleTrace{
			Label:       string(rule.Kind),
			Description: fmt.Sprintf("price >= %.6f after %d days held", target, rule.MinHoldDays),
			Value:       snap.Price,
			Passed:      fired,
		}, fired

	case models.RuleKindEmergency:
		fired := snap.ATR.Abnormal && snap.Price < snap.VolumeProfile.POC
		return RuleTrace{
			Label:       string(rule.Kind),
			Description: fmt.Sprintf("abnormal ATR and price below POC (%.6f)", snap.VolumeProfile.POC),
			Value:       snap.Price,
			Passed:      fired,
		}, fired

	default:
		// Entry-style rules can double as exits; fire when they pass.
		trace := EvaluateRule(rule, snap)
		return trace, trace.Passed
	}
}

// EvaluateRule dispatches one entry-rule predicate against a snapshot.
// Unknown kinds pass: a permissive fallback, so a strategy authored against
// a newer rule set degrades instead of deadlocking the user's entries.
func EvaluateRule(rule models.StrategyRule, snap *indicator.Snapshot) RuleTrace {
	switch rule.Kind {
	case models.RuleKindRSI:
		return RuleTrace{
			Label:       string(rule.Kind),
			Description: fmt.Sprintf("RSI %s %.1f", rule.Op, rule.Value),
			Value:       snap.RSI.Current,
			Passed:      compare(snap.RSI.Current, rule.Op, rule.Value),
		}

	case models.RuleKindLadderStage:
		stage := float64(snap.LadderStage)
		return RuleTrace{
			Label:       string(rule.Kind),
			Description: fmt.Sprintf("ladder stage %s %.0f", rule.Op, rule.Value),
			Value:       stage,
			Passed:      compare(stage, rule.Op, rule.Value),
		}

	case models.RuleKindPriceVsVAL:
		return proximityTrace(rule, snap.Price, snap.VolumeProfile.VAL, "VAL")

	case models.RuleKindPriceVsPOC:
		return proximityTrace(rule, snap.Price, snap.VolumeProfile.POC, "POC")

	case models.RuleKindPriceAbove:
		level, label := aboveTarget(rule.Target, snap)
		return RuleTrace{
			Label:       string(rule.Kind),
			Description: fmt.Sprintf("price above %s (%.6f)", label, level),
			Value:       snap.Price,
			Passed:      snap.Price > level,
		}

	case models.RuleKindDiamond:
		passed := snap.Diamond.Present
		want := "any color"
		if rule.Color != "" && rule.Color != models.DiamondNone {
			passed = passed && snap.Diamond.Color == rule.Color
			want = string(rule.Color)
		}
		value := 0.0
		if snap.Diamond.Present {
			value = 1.0
		}
		return RuleTrace{
			Label:       string(rule.Kind),
			Description: fmt.Sprintf("diamond present, %s", want),
			Value:       value,
			Passed:      passed,
		}

	case models.RuleKindATRAbnormal:
		value := 0.0
		if snap.ATR.Abnormal {
			value = 1.0
		}
		return RuleTrace{
			Label:       string(rule.Kind),
			Description: fmt.Sprintf("ATR abnormal == %t", rule.Abnormal),
			Value:       value,
			Passed:      snap.ATR.Abnormal == rule.Abnormal,
		}

	default:
		return RuleTrace{
			Label:       string(rule.Kind),
			Description: "unknown rule kind, permissive pass",
			Passed:      true,
		}
	}
}

func proximityTrace(rule models.StrategyRule, price, level float64, label string) RuleTrace {
	distPct := math.MaxFloat64
	if level != 0 {
		distPct = math.Abs(price-level) / level * 100
	}
	return RuleTrace{
		Label:       string(rule.Kind),
		Description: fmt.Sprintf("price within %.2f%% of %s (%.6f)", rule.ThresholdPct, label, level),
		Value:       distPct,
		Passed:      distPct <= rule.ThresholdPct,
	}
}

func aboveTarget(target string, snap *indicator.Snapshot) (float64, string) {
	switch target {
	case "avwap_major":
		return snap.AVWAPMajor.Value, "AVWAP major"
	case "avwap_current":
		return snap.AVWAPCurrent.Value, "AVWAP current"
	case "vah":
		return snap.VolumeProfile.VAH, "VAH"
	case "poc":
		return snap.VolumeProfile.POC, "POC"
	default:
		return math.MaxFloat64, target
	}
}

func compare(value float64, op models.RuleOp, threshold float64) bool {
	switch op {
	case models.OpGT:
		return value > threshold
	case models.OpGTE:
		return value >= threshold
	case models.OpLT:
		return value < threshold
	case models.OpLTE:
		return value <= threshold
	case models.OpEQ:
		return value == threshold
	case models.OpNEQ:
		return value != threshold
	default:
		return false
	}
}
