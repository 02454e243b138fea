package condition

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/webpiratt/swapd/internal/pricecache"
	"github.com/webpiratt/swapd/internal/types"
)

func order(op types.ConditionOperator, value string) types.LimitOrder {
	return types.LimitOrder{
		ConditionAsset:    "BTC",
		ConditionOperator: op,
		ConditionValue:    decimal.RequireFromString(value),
	}
}

func snapshot(price string) pricecache.Snapshot {
	return pricecache.Snapshot{
		Asset:     "BTC",
		PriceUSD:  decimal.RequireFromString(price),
		FetchedAt: time.Now(),
	}
}

func TestEvaluateGreaterThan(t *testing.T) {
	o := order(types.ConditionGT, "50000")

	tests := []struct {
		price     string
		triggered bool
	}{
		{"50000.01", true},
		{"50000.00", false}, // equality never triggers
		{"49999.99", false},
		{"50000", false},
		{"100000", true},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.triggered, Evaluate(o, snapshot(tt.price)), "price %s", tt.price)
	}
}

func TestEvaluateLessThan(t *testing.T) {
	o := order(types.ConditionLT, "50000")

	tests := []struct {
		price     string
		triggered bool
	}{
		{"49999.99", true},
		{"50000.00", false}, // equality never triggers
		{"50000.01", false},
		{"1", true},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.triggered, Evaluate(o, snapshot(tt.price)), "price %s", tt.price)
	}
}

func TestEvaluateUnknownOperator(t *testing.T) {
	o := order(types.ConditionOperator("gte"), "50000")
	assert.False(t, Evaluate(o, snapshot("60000")))
}

func TestFresh(t *testing.T) {
	now := time.Now()
	window := 5 * time.Minute

	assert.True(t, Fresh(pricecache.Snapshot{FetchedAt: now.Add(-time.Minute)}, window, now))
	assert.True(t, Fresh(pricecache.Snapshot{FetchedAt: now.Add(-window)}, window, now))
	assert.False(t, Fresh(pricecache.Snapshot{FetchedAt: now.Add(-window - time.Second)}, window, now))
	assert.False(t, Fresh(pricecache.Snapshot{}, window, now))
}
