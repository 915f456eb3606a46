package gateway

import (
	"context"
	"net/http"
	"time"

	"autotrader/internal/logger"
	"autotrader/internal/models"
)

// RESTPerps talks to the aggregator's perpetuals endpoints. Signing is
// delegated to the same Signer as spot swaps.
type RESTPerps struct {
	client         *client
	signer         Signer
	confirmTimeout time.Duration
	log            *logger.Logger
}

func NewRESTPerps(baseURL string, signer Signer, confirmTimeout time.Duration, log *logger.Logger) *RESTPerps {
	if confirmTimeout <= 0 {
		confirmTimeout = 60 * time.Second
	}
	return &RESTPerps{
		client:         newClient(baseURL, log),
		signer:         signer,
		confirmTimeout: confirmTimeout,
		log:            log,
	}
}

func (p *RESTPerps) Open(ctx context.Context, market string, side models.PerpSide, collateralUsd, leverage float64, collateralToken string) (models.PerpPosition, error) {
	pubkey, err := p.signer.PublicKey()
	if err != nil {
		return models.PerpPosition{}, &models.ExecutionError{Stage: "sign", Err: err}
	}

	var resp perpOpenResponse
	err = p.client.doRequest(ctx, http.MethodPost, "/perps/open", nil, perpOpenRequest{
		Market:          market,
		Side:            string(side),
		CollateralUsd:   collateralUsd,
		Leverage:        leverage,
		CollateralToken: collateralToken,
		Owner:           pubkey,
	}, &resp)
	if err != nil {
		return models.PerpPosition{}, &models.ExecutionError{Stage: "perp_open", Err: err}
	}

	if err := p.signAndSubmit(ctx, resp.Transaction, pubkey); err != nil {
		return models.PerpPosition{}, err
	}

	p.log.WithFields(map[string]interface{}{
		"market":     market,
		"side":       side,
		"collateral": collateralUsd,
		"leverage":   leverage,
	}).Info("perp position opened")
	return resp.Position, nil
}

func (p *RESTPerps) Close(ctx context.Context, positionKey string) (string, error) {
	pubkey, err := p.signer.PublicKey()
	if err != nil {
		return "", &models.ExecutionError{Stage: "sign", Err: err}
	}

	var resp perpCloseResponse
	err = p.client.doRequest(ctx, http.MethodPost, "/perps/close", nil, perpCloseRequest{
		PositionKey: positionKey,
		Owner:       pubkey,
	}, &resp)
	if err != nil {
		return "", &models.ExecutionError{Stage: "perp_close", Err: err}
	}

	if err := p.signAndSubmit(ctx, resp.Transaction, pubkey); err != nil {
		return "", err
	}
	return positionKey, nil
}

func (p *RESTPerps) List(ctx context.Context) ([]models.PerpPosition, error) {
	pubkey, err := p.signer.PublicKey()
	if err != nil {
		return nil, err
	}
	var resp perpListResponse
	if err := p.client.doRequest(ctx, http.MethodGet, "/perps/positions/"+pubkey, nil, nil, &resp); err != nil {
		return nil, &models.DataError{Op: "perp_list", Msg: "fetch positions", Err: err}
	}
	return resp.Positions, nil
}

func (p *RESTPerps) Markets(ctx context.Context) ([]models.PerpMarket, error) {
	var resp perpMarketsResponse
	if err := p.client.doRequest(ctx, http.MethodGet, "/perps/markets", nil, nil, &resp); err != nil {
		return nil, &models.DataError{Op: "perp_markets", Msg: "fetch markets", Err: err}
	}
	return resp.Markets, nil
}

func (p *RESTPerps) signAndSubmit(ctx context.Context, transaction, pubkey string) error {
	txID, err := p.client.signAndSend(ctx, p.signer, transaction, pubkey)
	if err != nil {
		return err
	}
	return p.client.awaitConfirmation(ctx, txID, p.confirmTimeout)
}
