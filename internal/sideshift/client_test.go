package sideshift

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webpiratt/swapd/internal/types"
)

func testClient(serverURL string) *Client {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	c := NewClient(serverURL, "aff-123", 5*time.Second, logger)
	c.retry.BaseDelay = time.Millisecond
	c.retry.MaxDelay = time.Millisecond
	return c
}

func TestGetPair(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/pair/usdc-ethereum/btc-mainnet", r.URL.Path)
		json.NewEncoder(w).Encode(Pair{
			Min:  decimal.RequireFromString("10"),
			Max:  decimal.RequireFromString("50000"),
			Rate: decimal.RequireFromString("0.0000166"),
		})
	}))
	defer srv.Close()

	pair, err := testClient(srv.URL).GetPair(context.Background(), "USDC", "ethereum", "BTC", "mainnet")
	require.NoError(t, err)
	assert.True(t, pair.Min.Equal(decimal.RequireFromString("10")))
	assert.True(t, pair.Max.Equal(decimal.RequireFromString("50000")))
}

func TestCreateQuoteSendsAffiliateID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/quotes", r.URL.Path)
		var payload map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "aff-123", payload["affiliateId"])
		assert.Equal(t, "usdc", payload["depositCoin"])
		assert.Equal(t, "100", payload["depositAmount"])
		json.NewEncoder(w).Encode(Quote{
			ID:            "quote-1",
			DepositAmount: decimal.RequireFromString("100"),
			SettleAmount:  decimal.RequireFromString("0.00166"),
		})
	}))
	defer srv.Close()

	quote, err := testClient(srv.URL).CreateQuote(context.Background(), "usdc", "ethereum", "btc", "mainnet", decimal.NewFromInt(100))
	require.NoError(t, err)
	assert.Equal(t, "quote-1", quote.ID)
}

func TestCreateOrderValidationError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]string{"message": "invalid settle address"},
		})
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).CreateOrder(context.Background(), "quote-1", "not-an-address")
	require.Error(t, err)
	var v *types.ValidationError
	require.ErrorAs(t, err, &v)
	assert.Equal(t, "invalid settle address", v.Reason)
	assert.False(t, types.IsRetryable(err))
}

func TestGetOrderStatusNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).GetOrderStatus(context.Background(), "missing")
	require.Error(t, err)
	var nf *types.NotFoundError
	assert.ErrorAs(t, err, &nf)
	assert.False(t, types.IsRetryable(err))
}

func TestServerErrorsAreTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).GetOrderStatus(context.Background(), "shift-1")
	require.Error(t, err)
	assert.True(t, types.IsRetryable(err))
}

func TestMapStatus(t *testing.T) {
	assert.Equal(t, types.SwapStatusPending, MapStatus("waiting"))
	assert.Equal(t, types.SwapStatusProcessing, MapStatus("settling"))
	assert.Equal(t, types.SwapStatusSettled, MapStatus("settled"))
	assert.Equal(t, types.SwapStatusCancelled, MapStatus("refunded"))
	// Unknown strings never invent a terminal state.
	assert.Equal(t, types.SwapStatusProcessing, MapStatus("some-new-status"))
}
