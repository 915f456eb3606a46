package market

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autotrader/internal/logger"
	"autotrader/internal/models"
)

type stubAPI struct {
	poolCalls   int
	candleCalls int
	priceCalls  int

	pool    string
	poolErr error

	candles   []models.Candle
	candleErr error

	price    float64
	priceErr error
}

func (s *stubAPI) PoolForMint(ctx context.Context, mint string) (string, error) {
	s.poolCalls++
	return s.pool, s.poolErr
}

func (s *stubAPI) OHLCV(ctx context.Context, pool, timeframe string, limit int) ([]models.Candle, error) {
	s.candleCalls++
	return s.candles, s.candleErr
}

func (s *stubAPI) Price(ctx context.Context, mint string) (float64, error) {
	s.priceCalls++
	return s.price, s.priceErr
}

func TestPoolCachedIndefinitely(t *testing.T) {
	api := &stubAPI{pool: "pool-1"}
	f := NewFeed(api, 0, 0, logger.NewNop())

	for i := 0; i < 3; i++ {
		pool, err := f.Pool(context.Background(), "MINT")
		require.NoError(t, err)
		assert.Equal(t, "pool-1", pool)
	}
	assert.Equal(t, 1, api.poolCalls)
}

func TestCandlesTTLAndStaleFallback(t *testing.T) {
	api := &stubAPI{
		pool:    "pool-1",
		candles: []models.Candle{{Timestamp: 1, Close: 100}},
	}
	f := NewFeed(api, 5*time.Minute, time.Minute, logger.NewNop())

	clock := time.Now()
	f.now = func() time.Time { return clock }

	_, err := f.Candles(context.Background(), "MINT", TimeframeDay)
	require.NoError(t, err)
	_, err = f.Candles(context.Background(), "MINT", TimeframeDay)
	require.NoError(t, err)
	assert.Equal(t, 1, api.candleCalls, "within TTL the cache answers")

	// Past the TTL with a failing refresh: the stale bars are served.
	clock = clock.Add(6 * time.Minute)
	api.candleErr = errors.New("feed down")
	candles, err := f.Candles(context.Background(), "MINT", TimeframeDay)
	require.NoError(t, err)
	assert.Len(t, candles, 1)
	assert.Equal(t, 2, api.candleCalls)
}

func TestPriceErrorWithoutCachePropagates(t *testing.T) {
	api := &stubAPI{pool: "pool-1", priceErr: errors.New("feed down")}
	f := NewFeed(api, 0, 0, logger.NewNop())

	_, err := f.Price(context.Background(), "MINT")
	assert.Error(t, err)
}

func TestPriceCachedWithinTTL(t *testing.T) {
	api := &stubAPI{price: 42.5}
	f := NewFeed(api, 0, 0, logger.NewNop())

	p1, err := f.Price(context.Background(), "MINT")
	require.NoError(t, err)
	p2, err := f.Price(context.Background(), "MINT")
	require.NoError(t, err)
	assert.Equal(t, 42.5, p1)
	assert.Equal(t, p1, p2)
	assert.Equal(t, 1, api.priceCalls)
}
