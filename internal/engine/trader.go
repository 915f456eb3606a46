package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"autotrader/internal/gateway"
	"autotrader/internal/indicator"
	"autotrader/internal/ledger"
	"autotrader/internal/logger"
	"autotrader/internal/market"
	"autotrader/internal/models"
	"autotrader/internal/store"
	"autotrader/internal/strategy"
)

// PriceFeed is the slice of the market data feed the trader consumes.
type PriceFeed interface {
	Price(ctx context.Context, token string) (float64, error)
	Candles(ctx context.Context, token, timeframe string) ([]models.Candle, error)
}

// Swapper executes spot swaps and reports token balances.
type Swapper interface {
	Swap(ctx context.Context, inputToken, outputToken string, amount float64) (gateway.SwapResult, error)
	Balance(ctx context.Context, token string) (float64, error)
}

// Wallet is the slice of the keystore the trader needs for readiness checks
// and reset coordination.
type Wallet interface {
	HasKey() bool
	Reset() error
}

type PerpsConfig struct {
	Leverage        float64
	BalanceFraction float64
	MinCollateral   float64
	MaxCollateral   float64
	MaxOpen         int
	TakeProfitROI   float64
	StopLossROI     float64
}

type Config struct {
	UserID          string
	Pair            string
	QuoteToken      string
	TickInterval    time.Duration
	SellAllFraction float64
	SwapFraction    float64
	StatusTimeout   time.Duration
	AutoPerps       bool
	Perps           PerpsConfig
}

// Trader is the per-user orchestrator. One instance per user; sessions are
// fully isolated and share no state across users.
type Trader struct {
	cfg     Config
	feed    PriceFeed
	swapper Swapper
	perps   gateway.PerpClient
	ledger  *ledger.Ledger
	wallet  Wallet
	store   *store.Store
	bus     *Bus
	log     *logger.Logger

	strategyEngine *strategy.Engine

	mu         sync.Mutex
	running    bool
	session    uint64
	cancel     context.CancelFunc
	rules      []models.PriceRule
	strategies []models.Strategy
	tradeLog   []models.TradeLogEntry
	lastStatus Status

	now func() time.Time
}

func New(cfg Config, feed PriceFeed, swapper Swapper, perps gateway.PerpClient, lg *ledger.Ledger, w Wallet, st *store.Store, bus *Bus, log *logger.Logger) (*Trader, error) {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = 30 * time.Second
	}
	if cfg.SellAllFraction <= 0 {
		cfg.SellAllFraction = 0.98
	}
	if cfg.SwapFraction <= 0 {
		cfg.SwapFraction = 0.25
	}
	if cfg.StatusTimeout <= 0 {
		cfg.StatusTimeout = 8 * time.Second
	}
	if cfg.QuoteToken == "" {
		cfg.QuoteToken = "USDC"
	}

	t := &Trader{
		cfg:     cfg,
		feed:    feed,
		swapper: swapper,
		perps:   perps,
		ledger:  lg,
		wallet:  w,
		store:   st,
		bus:     bus,
		log:     log,
		now:     time.Now,
	}
	t.strategyEngine = strategy.NewEngine(t, log)

	if _, err := st.Load(store.FileRules, &t.rules); err != nil {
		return nil, err
	}
	if _, err := st.Load(store.FileStrategies, &t.strategies); err != nil {
		return nil, err
	}
	if _, err := st.Load(store.FileTradeLog, &t.tradeLog); err != nil {
		return nil, err
	}
	return t, nil
}

// Snapshot implements strategy.SnapshotProvider from daily candles.
func (t *Trader) Snapshot(ctx context.Context, pair string) (*indicator.Snapshot, error) {
	candles, err := t.feed.Candles(ctx, baseToken(pair), market.TimeframeDay)
	if err != nil {
		return nil, err
	}
	return indicator.BuildSnapshot(candles)
}

// Start begins the tick loop. Starting a running session is a no-op.
func (t *Trader) Start() {
	t.mu.Lock()
	if t.running {
		t.mu.Unlock()
		return
	}
	t.running = true
	t.session++
	sess := t.session
	ctx, cancel := context.WithCancel(context.Background())
	t.cancel = cancel
	t.mu.Unlock()

	t.logEntry().Info("trading session started")
	t.bus.Publish(Event{Type: EventStatus, UserID: t.cfg.UserID, Payload: map[string]interface{}{"running": true}})

	go t.run(ctx, sess)
}

// Stop cancels the schedule of future ticks. An in-flight tick finishes on
// its own; its results are discarded once the session is gone. Stopping a
// stopped session is a no-op.
func (t *Trader) Stop() {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return
	}
	t.running = false
	cancel := t.cancel
	t.cancel = nil
	t.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	t.logEntry().Info("trading session stopped")
	t.bus.Publish(Event{Type: EventStatus, UserID: t.cfg.UserID, Payload: map[string]interface{}{"running": false}})
}

func (t *Trader) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

// ResetWallet stops any running session before wiping the key material.
func (t *Trader) ResetWallet() error {
	t.Stop()
	return t.wallet.Reset()
}

func (t *Trader) run(ctx context.Context, sess uint64) {
	ticker := time.NewTicker(t.cfg.TickInterval)
	defer ticker.Stop()

	t.tick(ctx, sess)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.tick(ctx, sess)
		}
	}
}

// tick runs one full evaluation pass. Its own failure boundary: an error or
// panic in one tick is logged and never terminates the session.
func (t *Trader) tick(ctx context.Context, sess uint64) {
	defer func() {
		if r := recover(); r != nil {
			t.logEntry().WithFields(logrus.Fields{"panic": r}).Error("tick panicked")
			t.logTrade("error", fmt.Sprintf("tick aborted: %v", r), "")
		}
	}()

	t.evaluatePriceRules(ctx, sess)
	t.evaluateStrategies(ctx, sess)
	if t.cfg.AutoPerps && t.perps != nil {
		t.manageAutoPerps(ctx, sess)
	}

	t.refreshCachedStatus(ctx, sess)
}

// sessionActive reports whether results computed under sess may still be
// applied. A stale tick that outlived its session discards its work.
func (t *Trader) sessionActive(sess uint64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running && t.session == sess
}

func (t *Trader) logEntry() *logrus.Entry {
	entry := t.log.WithComponent("trader").WithField("user_id", t.cfg.UserID)
	if t.cfg.Pair != "" {
		entry = entry.WithField("pair", t.cfg.Pair)
	}
	return entry
}

func baseToken(pair string) string {
	if idx := strings.IndexByte(pair, '/'); idx > 0 {
		return pair[:idx]
	}
	return pair
}
