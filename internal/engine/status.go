package engine

import (
	"context"
	"time"

	"autotrader/internal/models"
)

type Status struct {
	Running       bool      `json:"running"`
	Pair          string    `json:"pair"`
	LastTick      time.Time `json:"last_tick"`
	LastPrice     float64   `json:"last_price"`
	ActiveRules   int       `json:"active_rules"`
	OpenPositions int       `json:"open_positions"`
	OpenPerps     int       `json:"open_perps"`
	WalletReady   bool      `json:"wallet_ready"`
}

// Status races live field collection against the configured timeout. On
// expiry the last-known cached fields are returned instead of blocking.
func (t *Trader) Status(ctx context.Context) Status {
	done := make(chan Status, 1)
	go func() {
		done <- t.liveStatus(ctx)
	}()

	select {
	case s := <-done:
		t.mu.Lock()
		t.lastStatus = s
		t.mu.Unlock()
		return s
	case <-time.After(t.cfg.StatusTimeout):
	case <-ctx.Done():
	}

	t.mu.Lock()
	cached := t.lastStatus
	cached.Running = t.running
	t.mu.Unlock()
	return cached
}

func (t *Trader) liveStatus(ctx context.Context) Status {
	s := t.baseStatus()

	if price, err := t.feed.Price(ctx, baseToken(t.cfg.Pair)); err == nil {
		s.LastPrice = price
	}
	if t.perps != nil {
		if positions, err := t.perps.List(ctx); err == nil {
			s.OpenPerps = len(positions)
		}
	}
	return s
}

func (t *Trader) baseStatus() Status {
	t.mu.Lock()
	defer t.mu.Unlock()

	active := 0
	for _, rule := range t.rules {
		if rule.Active {
			active++
		}
	}

	return Status{
		Running:       t.running,
		Pair:          t.cfg.Pair,
		LastTick:      t.lastStatus.LastTick,
		LastPrice:     t.lastStatus.LastPrice,
		ActiveRules:   active,
		OpenPositions: len(t.ledger.Query(models.PositionOpen)),
		WalletReady:   t.wallet != nil && t.wallet.HasKey(),
	}
}

// refreshCachedStatus updates the cached fields at the end of a tick and
// broadcasts a status event.
func (t *Trader) refreshCachedStatus(ctx context.Context, sess uint64) {
	s := t.baseStatus()
	s.LastTick = t.now()
	if price, err := t.feed.Price(ctx, baseToken(t.cfg.Pair)); err == nil {
		s.LastPrice = price
	}

	if !t.sessionActive(sess) {
		return
	}

	t.mu.Lock()
	t.lastStatus = s
	t.mu.Unlock()

	t.bus.Publish(Event{Type: EventStatus, UserID: t.cfg.UserID, Payload: s})
}
