package gateway

import (
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autotrader/internal/logger"
	"autotrader/internal/models"
)

func TestPerpOpenPipeline(t *testing.T) {
	signer := newFakeSigner(t)
	txBlob := base64.StdEncoding.EncodeToString([]byte("perp-open-tx"))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/perps/open":
			var req perpOpenRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "SOL-PERP", req.Market)
			assert.Equal(t, "long", req.Side)
			json.NewEncoder(w).Encode(perpOpenResponse{
				Position:    models.PerpPosition{Key: "pos-1", Market: req.Market, Side: models.PerpSideLong, CollateralUsd: req.CollateralUsd},
				Transaction: txBlob,
			})
		case "/swap/send":
			var req sendRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			sig, err := base58.Decode(req.Signature)
			require.NoError(t, err)
			pub := signer.priv.Public().(ed25519.PublicKey)
			assert.True(t, ed25519.Verify(pub, []byte("perp-open-tx"), sig))
			json.NewEncoder(w).Encode(sendResponse{TransactionID: "tx-7"})
		case "/transactions/tx-7":
			json.NewEncoder(w).Encode(confirmResponse{Confirmed: true})
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	p := NewRESTPerps(srv.URL, signer, 5*time.Second, logger.NewNop())
	pos, err := p.Open(context.Background(), "SOL-PERP", models.PerpSideLong, 100, 5, "USDC")
	require.NoError(t, err)
	assert.Equal(t, "pos-1", pos.Key)
	assert.Equal(t, 100.0, pos.CollateralUsd)
}

func TestPerpCloseHonorsConfirmTimeout(t *testing.T) {
	txBlob := base64.StdEncoding.EncodeToString([]byte("perp-close-tx"))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/perps/close":
			json.NewEncoder(w).Encode(perpCloseResponse{Transaction: txBlob})
		case "/swap/send":
			json.NewEncoder(w).Encode(sendResponse{TransactionID: "tx-8"})
		case "/transactions/tx-8":
			// Never confirms.
			json.NewEncoder(w).Encode(confirmResponse{})
		}
	}))
	defer srv.Close()

	p := NewRESTPerps(srv.URL, newFakeSigner(t), time.Millisecond, logger.NewNop())

	start := time.Now()
	_, err := p.Close(context.Background(), "pos-1")
	require.Error(t, err)

	var execErr *models.ExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, "confirm", execErr.Stage)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Less(t, time.Since(start), 10*time.Second, "configured timeout bounds the poll")
}
