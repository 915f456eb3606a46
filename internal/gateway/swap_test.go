package gateway

import (
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
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

type fakeSigner struct {
	priv ed25519.PrivateKey
}

func newFakeSigner(t *testing.T) *fakeSigner {
	t.Helper()
	seed := make([]byte, ed25519.SeedSize)
	for i := range seed {
		seed[i] = byte(i)
	}
	return &fakeSigner{priv: ed25519.NewKeyFromSeed(seed)}
}

func (s *fakeSigner) PublicKey() (string, error) {
	return base58.Encode(s.priv.Public().(ed25519.PublicKey)), nil
}

func (s *fakeSigner) Sign(message []byte) ([]byte, error) {
	return ed25519.Sign(s.priv, message), nil
}

func TestSwapPipeline(t *testing.T) {
	signer := newFakeSigner(t)
	txBlob := base64.StdEncoding.EncodeToString([]byte("unsigned-transaction"))

	var stages []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		stages = append(stages, r.URL.Path)
		switch r.URL.Path {
		case "/swap/quote":
			var req quoteRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "SOL", req.InputToken)
			assert.Equal(t, 100, req.SlippageBps)
			json.NewEncoder(w).Encode(quoteResponse{
				Quote:     json.RawMessage(`{"route":"r1"}`),
				OutAmount: 123.4,
			})
		case "/swap/build":
			json.NewEncoder(w).Encode(buildResponse{Transaction: txBlob})
		case "/swap/send":
			var req sendRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			sig, err := base58.Decode(req.Signature)
			require.NoError(t, err)
			pub := signer.priv.Public().(ed25519.PublicKey)
			assert.True(t, ed25519.Verify(pub, []byte("unsigned-transaction"), sig))
			json.NewEncoder(w).Encode(sendResponse{TransactionID: "tx-1"})
		case "/transactions/tx-1":
			json.NewEncoder(w).Encode(confirmResponse{Confirmed: true})
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	g := New(srv.URL, signer, 100, 5*time.Second, logger.NewNop())
	result, err := g.Swap(context.Background(), "SOL", "USDC", 10)
	require.NoError(t, err)

	assert.Equal(t, "tx-1", result.TransactionID)
	assert.Equal(t, 123.4, result.OutAmount)
	assert.Equal(t, []string{"/swap/quote", "/swap/build", "/swap/send", "/transactions/tx-1"}, stages)
}

func TestSwapQuoteFailureAborts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no route", http.StatusBadGateway)
	}))
	defer srv.Close()

	g := New(srv.URL, newFakeSigner(t), 100, time.Second, logger.NewNop())
	_, err := g.Swap(context.Background(), "SOL", "USDC", 10)
	require.Error(t, err)

	var execErr *models.ExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, "quote", execErr.Stage)
}

func TestSwapFailedConfirmation(t *testing.T) {
	txBlob := base64.StdEncoding.EncodeToString([]byte("tx"))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/swap/quote":
			json.NewEncoder(w).Encode(quoteResponse{Quote: json.RawMessage(`{}`)})
		case "/swap/build":
			json.NewEncoder(w).Encode(buildResponse{Transaction: txBlob})
		case "/swap/send":
			json.NewEncoder(w).Encode(sendResponse{TransactionID: "tx-9"})
		case "/transactions/tx-9":
			json.NewEncoder(w).Encode(confirmResponse{Failed: true, Error: "slippage exceeded"})
		}
	}))
	defer srv.Close()

	g := New(srv.URL, newFakeSigner(t), 50, 5*time.Second, logger.NewNop())
	_, err := g.Swap(context.Background(), "SOL", "USDC", 10)
	require.Error(t, err)

	var execErr *models.ExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, "confirm", execErr.Stage)
}
