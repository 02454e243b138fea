package reputation

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/webpiratt/swapd/storage"
)

func TestComputeNoHistory(t *testing.T) {
	m := Compute("tg-1", storage.ReputationAggregates{}, time.Now())

	assert.Equal(t, 0, m.TrustScore)
	assert.True(t, m.SuccessRate.IsZero())
	assert.True(t, m.TotalVolume.IsZero())
}

func TestComputePerfectRecord(t *testing.T) {
	first := time.Now().Add(-365 * 24 * time.Hour)
	agg := storage.ReputationAggregates{
		TotalSwaps:   50,
		SettledSwaps: 50,
		FailedSwaps:  0,
		TotalVolume:  "25000",
		RecentVolume: "3000",
		FirstSwapAt:  &first,
	}

	m := Compute("tg-1", agg, time.Now())

	assert.Equal(t, 100, m.TrustScore)
	assert.True(t, m.SuccessRate.Equal(decimal.NewFromInt(1)))
	assert.Equal(t, int64(50), m.SettledSwaps)
}

func TestComputeMixedRecord(t *testing.T) {
	first := time.Now().Add(-30 * 24 * time.Hour)
	agg := storage.ReputationAggregates{
		TotalSwaps:   10,
		SettledSwaps: 8,
		FailedSwaps:  2,
		TotalVolume:  "1000",
		RecentVolume: "500",
		FirstSwapAt:  &first,
	}

	m := Compute("tg-1", agg, time.Now())

	// 0.8*50 + 0.1*25 + (30/180)*15 + 0.5*10 = 40 + 2.5 + 2.5 + 5 = 50
	assert.Equal(t, 50, m.TrustScore)
	assert.True(t, m.SuccessRate.Equal(decimal.RequireFromString("0.8")))
}

func TestComputePendingOnlySwapsGiveNoSuccessRate(t *testing.T) {
	agg := storage.ReputationAggregates{TotalSwaps: 3}

	m := Compute("tg-1", agg, time.Now())

	assert.True(t, m.SuccessRate.IsZero())
	// Activity still counts: 3/20 * 10 = 1.5, rounds to 2
	assert.Equal(t, 2, m.TrustScore)
}

func TestComputeBadVolumeStringIsZero(t *testing.T) {
	agg := storage.ReputationAggregates{TotalSwaps: 1, TotalVolume: "not-a-number"}
	m := Compute("tg-1", agg, time.Now())
	assert.True(t, m.TotalVolume.IsZero())
}
