package market

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"autotrader/internal/logger"
	"autotrader/internal/models"
)

// API is the slice of the market-data service the feed consumes.
type API interface {
	PoolForMint(ctx context.Context, mint string) (string, error)
	OHLCV(ctx context.Context, pool, timeframe string, limit int) ([]models.Candle, error)
	Price(ctx context.Context, mint string) (float64, error)
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	log        *logger.Logger
}

func NewClient(baseURL string, log *logger.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		log: log,
	}
}

type poolResponse struct {
	PoolAddress string  `json:"pool_address"`
	Liquidity   float64 `json:"liquidity"`
}

type ohlcvResponse struct {
	Candles [][]float64 `json:"candles"`
}

type priceResponse struct {
	Price float64 `json:"price"`
}

// PoolForMint resolves a token mint to its most liquid pool address.
func (c *Client) PoolForMint(ctx context.Context, mint string) (string, error) {
	var resp poolResponse
	if err := c.doRequest(ctx, http.MethodGet, "/pools/"+mint, nil, &resp); err != nil {
		return "", err
	}
	if resp.PoolAddress == "" {
		return "", &models.DataError{Op: "pool_discovery", Msg: fmt.Sprintf("no pool found for mint %s", mint)}
	}
	return resp.PoolAddress, nil
}

// OHLCV fetches candles for a pool. The service returns the newest bar
// first; the result is reversed to oldest-first.
func (c *Client) OHLCV(ctx context.Context, pool, timeframe string, limit int) ([]models.Candle, error) {
	params := url.Values{}
	params.Set("timeframe", timeframe)
	params.Set("limit", strconv.Itoa(limit))

	var resp ohlcvResponse
	if err := c.doRequest(ctx, http.MethodGet, "/ohlcv/"+pool, params, &resp); err != nil {
		return nil, err
	}

	candles := make([]models.Candle, 0, len(resp.Candles))
	for i := len(resp.Candles) - 1; i >= 0; i-- {
		row := resp.Candles[i]
		if len(row) < 6 {
			return nil, &models.DataError{Op: "ohlcv", Msg: fmt.Sprintf("malformed candle row of length %d", len(row))}
		}
		candles = append(candles, models.Candle{
			Timestamp: int64(row[0]),
			Open:      row[1],
			High:      row[2],
			Low:       row[3],
			Close:     row[4],
			Volume:    row[5],
		})
	}
	return candles, nil
}

func (c *Client) Price(ctx context.Context, mint string) (float64, error) {
	var resp priceResponse
	if err := c.doRequest(ctx, http.MethodGet, "/price/"+mint, nil, &resp); err != nil {
		return 0, err
	}
	return resp.Price, nil
}

func (c *Client) doRequest(ctx context.Context, method, path string, params url.Values, out any) error {
	urlStr := c.baseURL + path
	if len(params) > 0 {
		urlStr += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, urlStr, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &models.DataError{Op: "feed_request", Msg: path, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &models.DataError{Op: "feed_request", Msg: "read response", Err: err}
	}

	if resp.StatusCode >= 400 {
		return &models.DataError{Op: "feed_request", Msg: fmt.Sprintf("%s: status %s", path, resp.Status)}
	}

	if err := json.Unmarshal(data, out); err != nil {
		return &models.DataError{Op: "feed_request", Msg: "decode response", Err: err}
	}
	return nil
}
