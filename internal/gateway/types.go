package gateway

import (
	"context"
	"encoding/json"

	"autotrader/internal/models"
)

// Signer is the slice of the wallet keystore the gateway needs. The secret
// key stays behind it.
type Signer interface {
	PublicKey() (string, error)
	Sign(message []byte) ([]byte, error)
}

type SwapResult struct {
	TransactionID string  `json:"transaction_id"`
	InputToken    string  `json:"input_token"`
	OutputToken   string  `json:"output_token"`
	InAmount      float64 `json:"in_amount"`
	OutAmount     float64 `json:"out_amount"`
}

// PerpClient is the perpetuals sub-client. The engine is agnostic to the
// on-chain program behind it.
type PerpClient interface {
	Open(ctx context.Context, market string, side models.PerpSide, collateralUsd, leverage float64, collateralToken string) (models.PerpPosition, error)
	Close(ctx context.Context, positionKey string) (string, error)
	List(ctx context.Context) ([]models.PerpPosition, error)
	Markets(ctx context.Context) ([]models.PerpMarket, error)
}

type quoteRequest struct {
	InputToken  string  `json:"input_token"`
	OutputToken string  `json:"output_token"`
	Amount      float64 `json:"amount"`
	SlippageBps int     `json:"slippage_bps"`
}

type quoteResponse struct {
	Quote     json.RawMessage `json:"quote"`
	OutAmount float64         `json:"out_amount"`
}

type buildRequest struct {
	Quote           json.RawMessage `json:"quote"`
	SignerPublicKey string          `json:"signer_public_key"`
}

type buildResponse struct {
	Transaction string `json:"transaction"`
}

type sendRequest struct {
	Transaction string `json:"transaction"`
	Signature   string `json:"signature"`
	PublicKey   string `json:"public_key"`
}

type sendResponse struct {
	TransactionID string `json:"transaction_id"`
}

type confirmResponse struct {
	Confirmed bool   `json:"confirmed"`
	Failed    bool   `json:"failed"`
	Error     string `json:"error"`
}

type balanceResponse struct {
	Amount float64 `json:"amount"`
}

type perpOpenRequest struct {
	Market          string  `json:"market"`
	Side            string  `json:"side"`
	CollateralUsd   float64 `json:"collateral_usd"`
	Leverage        float64 `json:"leverage"`
	CollateralToken string  `json:"collateral_token"`
	Owner           string  `json:"owner"`
}

type perpOpenResponse struct {
	Position    models.PerpPosition `json:"position"`
	Transaction string              `json:"transaction"`
}

type perpCloseRequest struct {
	PositionKey string `json:"position_key"`
	Owner       string `json:"owner"`
}

type perpCloseResponse struct {
	Transaction string `json:"transaction"`
}

type perpListResponse struct {
	Positions []models.PerpPosition `json:"positions"`
}

type perpMarketsResponse struct {
	Markets []models.PerpMarket `json:"markets"`
}
