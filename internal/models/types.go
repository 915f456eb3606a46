package models

import "time"

type RuleKind string
type RuleOp string
type PositionStatus string
type DiamondColor string
type RSIZone string
type PerpSide string

const (
	RuleKindStopLoss   RuleKind = "stop_loss"
	RuleKindTakeProfit RuleKind = "take_profit"

	RuleKindRSI         RuleKind = "rsi"
	RuleKindLadderStage RuleKind = "ladder_stage"
	RuleKindPriceVsVAL  RuleKind = "price_vs_val"
	RuleKindPriceVsPOC  RuleKind = "price_vs_poc"
	RuleKindPriceAbove  RuleKind = "price_above"
	RuleKindDiamond     RuleKind = "diamond"
	RuleKindATRAbnormal RuleKind = "atr_abnormal"

	RuleKindHardStop     RuleKind = "hard_stop"
	RuleKindProfitTarget RuleKind = "profit_target"
	RuleKindEmergency    RuleKind = "emergency"

	OpGT  RuleOp = ">"
	OpGTE RuleOp = ">="
	OpLT  RuleOp = "<"
	OpLTE RuleOp = "<="
	OpEQ  RuleOp = "=="
	OpNEQ RuleOp = "!="

	PositionOpen   PositionStatus = "open"
	PositionClosed PositionStatus = "closed"

	DiamondNone   DiamondColor = "none"
	DiamondGreen  DiamondColor = "green"
	DiamondPurple DiamondColor = "purple"
	DiamondRed    DiamondColor = "red"

	RSIOversold   RSIZone = "oversold"
	RSINeutral    RSIZone = "neutral"
	RSIOverbought RSIZone = "overbought"

	PerpSideLong  PerpSide = "long"
	PerpSideShort PerpSide = "short"
)

type Candle struct {
	Timestamp int64   `json:"timestamp"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
}

// PriceRule is a one-shot price trigger evaluated directly by the monitor
// loop without consulting any strategy.
type PriceRule struct {
	ID           string     `json:"id"`
	Token        string     `json:"token"`
	Kind         RuleKind   `json:"kind"`
	TriggerPrice float64    `json:"trigger_price"`
	Action       string     `json:"action"`
	OutputToken  string     `json:"output_token"`
	Active       bool       `json:"active"`
	CreatedAt    time.Time  `json:"created_at"`
	FiredAt      *time.Time `json:"fired_at,omitempty"`
}

// StrategyRule is one clause of a strategy. Only the fields relevant to its
// Kind are set; the strategy engine matches kinds exhaustively.
type StrategyRule struct {
	Kind RuleKind `json:"kind"`

	Op    RuleOp  `json:"op,omitempty"`
	Value float64 `json:"value,omitempty"`

	ThresholdPct float64 `json:"threshold_pct,omitempty"`

	Target string `json:"target,omitempty"`

	Color DiamondColor `json:"color,omitempty"`

	Abnormal bool `json:"abnormal,omitempty"`

	ATRMultiplier float64 `json:"atr_multiplier,omitempty"`
	TargetPct     float64 `json:"target_pct,omitempty"`
	MinHoldDays   int     `json:"min_hold_days,omitempty"`
}

type Strategy struct {
	Name              string         `json:"name"`
	EntryRules        []StrategyRule `json:"entry_rules"`
	ExitRules         []StrategyRule `json:"exit_rules"`
	AutoPerpsEligible bool           `json:"auto_perps_eligible"`
}

type PositionAdd struct {
	Price float64   `json:"price"`
	Size  float64   `json:"size"`
	Time  time.Time `json:"time"`
}

type Position struct {
	ID           string         `json:"id"`
	Pair         string         `json:"pair"`
	EntryPrice   float64        `json:"entry_price"`
	AvgPrice     float64        `json:"avg_price"`
	Size         float64        `json:"size"`
	Adds         []PositionAdd  `json:"adds,omitempty"`
	EntryDate    time.Time      `json:"entry_date"`
	ExitDate     *time.Time     `json:"exit_date,omitempty"`
	PnlPercent   *float64       `json:"pnl_percent,omitempty"`
	HoldDays     *int           `json:"hold_days,omitempty"`
	Status       PositionStatus `json:"status"`
	StrategyName string         `json:"strategy_name"`
	CloseReason  string         `json:"close_reason,omitempty"`
}

type TradeLogEntry struct {
	Kind          string    `json:"kind"`
	Message       string    `json:"message"`
	TransactionID string    `json:"transaction_id,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

type Wallet struct {
	PublicKey string `json:"public_key"`
	SecretKey string `json:"secret_key"`
	Mnemonic  string `json:"mnemonic,omitempty"`
}

type PerpPosition struct {
	Key           string   `json:"key"`
	Market        string   `json:"market"`
	Side          PerpSide `json:"side"`
	CollateralUsd float64  `json:"collateral_usd"`
	SizeUsd       float64  `json:"size_usd"`
	EntryPrice    float64  `json:"entry_price"`
	MarkPrice     float64  `json:"mark_price"`
	UnrealizedPnl float64  `json:"unrealized_pnl"`
	Leverage      float64  `json:"leverage"`
}

type PerpMarket struct {
	Name        string  `json:"name"`
	BaseToken   string  `json:"base_token"`
	MaxLeverage float64 `json:"max_leverage"`
}
