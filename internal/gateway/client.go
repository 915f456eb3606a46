package gateway

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/mr-tron/base58"

	"autotrader/internal/logger"
	"autotrader/internal/models"
)

type client struct {
	baseURL    string
	httpClient *http.Client
	log        *logger.Logger
}

func newClient(baseURL string, log *logger.Logger) *client {
	return &client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		log: log,
	}
}

func (c *client) doRequest(ctx context.Context, method, path string, params url.Values, body any, out any) error {
	var bodyReader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		bodyReader = bytes.NewReader(payload)
	}

	urlStr := c.baseURL + path
	if len(params) > 0 {
		urlStr += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, urlStr, bodyReader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return fmt.Errorf("%s: status %s: %s", path, resp.Status, truncate(data, 200))
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// signAndSend decodes the base64 transaction blob, signs it, and submits
// the base58 signature alongside the original blob.
func (c *client) signAndSend(ctx context.Context, signer Signer, transaction, pubkey string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(transaction)
	if err != nil {
		return "", &models.ExecutionError{Stage: "sign", Err: err}
	}
	signature, err := signer.Sign(raw)
	if err != nil {
		return "", &models.ExecutionError{Stage: "sign", Err: err}
	}

	var sent sendResponse
	err = c.doRequest(ctx, http.MethodPost, "/swap/send", nil, sendRequest{
		Transaction: transaction,
		Signature:   base58.Encode(signature),
		PublicKey:   pubkey,
	}, &sent)
	if err != nil {
		return "", &models.ExecutionError{Stage: "send", Err: err}
	}
	return sent.TransactionID, nil
}

// awaitConfirmation polls the transaction status every 2s until it is
// confirmed, fails, or the timeout elapses.
func (c *client) awaitConfirmation(ctx context.Context, txID string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		var status confirmResponse
		err := c.doRequest(ctx, http.MethodGet, "/transactions/"+txID, nil, nil, &status)
		if err == nil {
			if status.Confirmed {
				return nil
			}
			if status.Failed {
				return &models.ExecutionError{Stage: "confirm", Err: &models.DataError{Op: "confirm", Msg: status.Error}}
			}
		}
		if time.Now().After(deadline) {
			return &models.ExecutionError{Stage: "confirm", Err: context.DeadlineExceeded}
		}
		select {
		case <-ctx.Done():
			return &models.ExecutionError{Stage: "confirm", Err: ctx.Err()}
		case <-ticker.C:
		}
	}
}

func truncate(data []byte, n int) string {
	if len(data) > n {
		data = data[:n]
	}
	return string(data)
}
