package gateway

import (
	"context"
	"net/http"
	"time"

	"autotrader/internal/logger"
	"autotrader/internal/models"
)

// Gateway executes spot swaps through the aggregator: quote, build, sign,
// send, confirm. Any failing stage aborts the call with an ExecutionError;
// retry policy belongs to the caller.
type Gateway struct {
	client         *client
	signer         Signer
	slippageBps    int
	confirmTimeout time.Duration
	log            *logger.Logger
}

func New(baseURL string, signer Signer, slippageBps int, confirmTimeout time.Duration, log *logger.Logger) *Gateway {
	if confirmTimeout <= 0 {
		confirmTimeout = 60 * time.Second
	}
	return &Gateway{
		client:         newClient(baseURL, log),
		signer:         signer,
		slippageBps:    slippageBps,
		confirmTimeout: confirmTimeout,
		log:            log,
	}
}

func (g *Gateway) Swap(ctx context.Context, inputToken, outputToken string, amount float64) (SwapResult, error) {
	pubkey, err := g.signer.PublicKey()
	if err != nil {
		return SwapResult{}, &models.ExecutionError{Stage: "sign", Err: err}
	}

	var quote quoteResponse
	err = g.client.doRequest(ctx, http.MethodPost, "/swap/quote", nil, quoteRequest{
		InputToken:  inputToken,
		OutputToken: outputToken,
		Amount:      amount,
		SlippageBps: g.slippageBps,
	}, &quote)
	if err != nil {
		return SwapResult{}, &models.ExecutionError{Stage: "quote", Err: err}
	}

	var built buildResponse
	err = g.client.doRequest(ctx, http.MethodPost, "/swap/build", nil, buildRequest{
		Quote:           quote.Quote,
		SignerPublicKey: pubkey,
	}, &built)
	if err != nil {
		return SwapResult{}, &models.ExecutionError{Stage: "build", Err: err}
	}

	txID, err := g.client.signAndSend(ctx, g.signer, built.Transaction, pubkey)
	if err != nil {
		return SwapResult{}, err
	}

	if err := g.client.awaitConfirmation(ctx, txID, g.confirmTimeout); err != nil {
		return SwapResult{}, err
	}

	g.log.WithTx(txID).WithFields(map[string]interface{}{
		"input":  inputToken,
		"output": outputToken,
		"amount": amount,
	}).Info("swap confirmed")

	return SwapResult{
		TransactionID: txID,
		InputToken:    inputToken,
		OutputToken:   outputToken,
		InAmount:      amount,
		OutAmount:     quote.OutAmount,
	}, nil
}

// Balance returns the owner's balance of one token, in token units.
func (g *Gateway) Balance(ctx context.Context, token string) (float64, error) {
	pubkey, err := g.signer.PublicKey()
	if err != nil {
		return 0, err
	}
	var resp balanceResponse
	if err := g.client.doRequest(ctx, http.MethodGet, "/balances/"+pubkey+"/"+token, nil, nil, &resp); err != nil {
		return 0, &models.DataError{Op: "balance", Msg: token, Err: err}
	}
	return resp.Amount, nil
}
