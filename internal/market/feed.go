package market

import (
	"context"
	"sync"
	"time"

	"autotrader/internal/logger"
	"autotrader/internal/models"
)

const (
	TimeframeDay    = "day"
	TimeframeHour   = "hour"
	TimeframeMinute = "minute"

	defaultCandleLimit = 400
)

type candleEntry struct {
	candles   []models.Candle
	fetchedAt time.Time
}

type priceEntry struct {
	price     float64
	fetchedAt time.Time
}

// Feed resolves pairs to pools and serves cached candle and price data.
// Pool lookups are cached forever; candles and prices by TTL. Failed
// refreshes fall back to the last cached value when one exists.
type Feed struct {
	api API
	log *logger.Logger

	dailyTTL    time.Duration
	intradayTTL time.Duration
	priceTTL    time.Duration

	mu      sync.Mutex
	pools   map[string]string
	candles map[string]candleEntry
	prices  map[string]priceEntry

	now func() time.Time
}

func NewFeed(api API, dailyTTL, intradayTTL time.Duration, log *logger.Logger) *Feed {
	if dailyTTL <= 0 {
		dailyTTL = 5 * time.Minute
	}
	if intradayTTL <= 0 {
		intradayTTL = time.Minute
	}
	return &Feed{
		api:         api,
		log:         log,
		dailyTTL:    dailyTTL,
		intradayTTL: intradayTTL,
		priceTTL:    intradayTTL,
		pools:       map[string]string{},
		candles:     map[string]candleEntry{},
		prices:      map[string]priceEntry{},
		now:         time.Now,
	}
}

// Pool resolves a mint to its most liquid pool, cached indefinitely.
func (f *Feed) Pool(ctx context.Context, mint string) (string, error) {
	f.mu.Lock()
	if pool, ok := f.pools[mint]; ok {
		f.mu.Unlock()
		return pool, nil
	}
	f.mu.Unlock()

	pool, err := f.api.PoolForMint(ctx, mint)
	if err != nil {
		return "", err
	}

	f.mu.Lock()
	f.pools[mint] = pool
	f.mu.Unlock()
	return pool, nil
}

// Candles returns oldest-first bars for a mint's pool on the given
// timeframe.
func (f *Feed) Candles(ctx context.Context, mint, timeframe string) ([]models.Candle, error) {
	pool, err := f.Pool(ctx, mint)
	if err != nil {
		return nil, err
	}

	key := pool + ":" + timeframe
	ttl := f.intradayTTL
	if timeframe == TimeframeDay {
		ttl = f.dailyTTL
	}

	f.mu.Lock()
	entry, ok := f.candles[key]
	f.mu.Unlock()
	if ok && f.now().Sub(entry.fetchedAt) < ttl {
		return entry.candles, nil
	}

	candles, err := f.api.OHLCV(ctx, pool, timeframe, defaultCandleLimit)
	if err != nil {
		if ok {
			f.log.WithToken(mint).WithError(err).Warn("candle refresh failed, serving cached bars")
			return entry.candles, nil
		}
		return nil, err
	}

	f.mu.Lock()
	f.candles[key] = candleEntry{candles: candles, fetchedAt: f.now()}
	f.mu.Unlock()
	return candles, nil
}

// Price returns the current spot price for a mint.
func (f *Feed) Price(ctx context.Context, mint string) (float64, error) {
	f.mu.Lock()
	entry, ok := f.prices[mint]
	f.mu.Unlock()
	if ok && f.now().Sub(entry.fetchedAt) < f.priceTTL {
		return entry.price, nil
	}

	price, err := f.api.Price(ctx, mint)
	if err != nil {
		if ok {
			f.log.WithToken(mint).WithError(err).Warn("price refresh failed, serving cached price")
			return entry.price, nil
		}
		return 0, err
	}

	f.mu.Lock()
	f.prices[mint] = priceEntry{price: price, fetchedAt: f.now()}
	f.mu.Unlock()
	return price, nil
}
