package sideshift

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/webpiratt/swapd/common"
	"github.com/webpiratt/swapd/internal/httputil"
	"github.com/webpiratt/swapd/internal/types"
)

// Client wraps the swap provider's HTTP API. All calls carry the caller's
// context and the configured request timeout; transport failures and 5xx
// responses surface as TransientError, 4xx as ValidationError.
type Client struct {
	baseURL     string
	affiliateID string
	httpClient  *http.Client
	retry       httputil.RetryConfig
	logger      *logrus.Logger
}

func NewClient(baseURL, affiliateID string, timeout time.Duration, logger *logrus.Logger) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL:     baseURL,
		affiliateID: affiliateID,
		httpClient:  &http.Client{Timeout: timeout},
		retry: httputil.RetryConfig{
			MaxAttempts: 3,
			BaseDelay:   1 * time.Second,
			MaxDelay:    5 * time.Second,
		},
		logger: logger,
	}
}

func (c *Client) GetPair(ctx context.Context, fromAsset, fromChain, toAsset, toChain string) (*Pair, error) {
	url := fmt.Sprintf("%s/pair/%s", c.baseURL, common.PairKey(fromAsset, fromChain, toAsset, toChain))

	var pair Pair
	if err := c.getJSON(ctx, url, &pair); err != nil {
		return nil, err
	}
	return &pair, nil
}

func (c *Client) CreateQuote(ctx context.Context, fromAsset, fromChain, toAsset, toChain string, amount decimal.Decimal) (*Quote, error) {
	payload := map[string]string{
		"depositCoin":    fromAsset,
		"depositNetwork": fromChain,
		"settleCoin":     toAsset,
		"settleNetwork":  toChain,
		"depositAmount":  amount.String(),
		"affiliateId":    c.affiliateID,
	}

	var quote Quote
	if err := c.postJSON(ctx, c.baseURL+"/quotes", payload, &quote); err != nil {
		return nil, err
	}
	return &quote, nil
}

func (c *Client) CreateOrder(ctx context.Context, quoteID, settleAddress string) (*Order, error) {
	payload := map[string]string{
		"quoteId":       quoteID,
		"settleAddress": settleAddress,
		"affiliateId":   c.affiliateID,
	}

	var order Order
	if err := c.postJSON(ctx, c.baseURL+"/shifts/fixed", payload, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (c *Client) GetOrderStatus(ctx context.Context, orderID string) (*OrderStatus, error) {
	var status OrderStatus
	if err := c.getJSON(ctx, c.baseURL+"/shifts/"+orderID, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

func (c *Client) getJSON(ctx context.Context, url string, out any) error {
	resp, err := httputil.Do(ctx, c.httpClient, c.retry, c.logger, func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	})
	if err != nil {
		return types.NewTransient(err)
	}
	defer resp.Body.Close()

	return c.decodeResponse(resp, out)
}

func (c *Client) postJSON(ctx context.Context, url string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("fail to marshal to json, err: %w", err)
	}

	resp, err := httputil.Do(ctx, c.httpClient, c.retry, c.logger, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	})
	if err != nil {
		return types.NewTransient(err)
	}
	defer resp.Body.Close()

	return c.decodeResponse(resp, out)
}

func (c *Client) decodeResponse(resp *http.Response, out any) error {
	if resp.StatusCode == http.StatusNotFound {
		return &types.NotFoundError{OrderID: resp.Request.URL.Path}
	}
	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		var apiErr struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		reason := string(body)
		if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error.Message != "" {
			reason = apiErr.Error.Message
		}
		return &types.ValidationError{Reason: reason}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return types.NewTransient(fmt.Errorf("decode response: %w", err))
	}
	return nil
}
