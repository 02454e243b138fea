package pricecache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Snapshot is one cached price observation. FetchedAt decides staleness.
type Snapshot struct {
	Asset     string          `json:"asset"`
	PriceUSD  decimal.Decimal `json:"price_usd"`
	FetchedAt time.Time       `json:"fetched_at"`
}

// Source fetches current USD prices for a set of assets.
type Source interface {
	FetchPrices(ctx context.Context, assets []string) (map[string]decimal.Decimal, error)
}

// Store is the key/value backend holding snapshots (Redis in production).
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, expiry time.Duration) error
}

// Cache serves price snapshots to the monitor loop. Reads never hit the
// source; a cron-driven Refresh keeps the store warm. A missing or stale
// snapshot is reported via ok=false so callers can fail safe.
type Cache struct {
	store     Store
	source    Source
	assets    []string
	freshness time.Duration
	logger    *logrus.Logger
}

func NewCache(store Store, source Source, assets []string, freshness time.Duration, logger *logrus.Logger) *Cache {
	if freshness <= 0 {
		freshness = 5 * time.Minute
	}
	return &Cache{
		store:     store,
		source:    source,
		assets:    assets,
		freshness: freshness,
		logger:    logger,
	}
}

func cacheKey(asset string) string {
	return "price:" + strings.ToUpper(asset)
}

// Get returns the latest snapshot for the asset. ok is false on a cache
// miss or when the snapshot is older than the freshness window.
func (c *Cache) Get(ctx context.Context, asset string) (Snapshot, bool) {
	raw, err := c.store.Get(ctx, cacheKey(asset))
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.WithError(err).Warnf("price cache read failed for %s", asset)
		}
		return Snapshot{}, false
	}

	var snap Snapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		c.logger.WithError(err).Warnf("corrupt price snapshot for %s", asset)
		return Snapshot{}, false
	}

	if time.Since(snap.FetchedAt) > c.freshness {
		return Snapshot{}, false
	}
	return snap, true
}

// Refresh pulls fresh prices for all configured assets and stores them.
// Meant to be driven by cron; a partial fetch failure only skips the
// affected assets.
func (c *Cache) Refresh(ctx context.Context) error {
	if len(c.assets) == 0 {
		return nil
	}

	prices, err := c.source.FetchPrices(ctx, c.assets)
	if err != nil {
		return fmt.Errorf("fetch prices: %w", err)
	}

	now := time.Now().UTC()
	for asset, price := range prices {
		snap := Snapshot{Asset: strings.ToUpper(asset), PriceUSD: price, FetchedAt: now}
		buf, err := json.Marshal(snap)
		if err != nil {
			c.logger.WithError(err).Errorf("marshal snapshot for %s", asset)
			continue
		}
		// Expiry is generous; staleness is enforced on read.
		if err := c.store.Set(ctx, cacheKey(asset), string(buf), 4*c.freshness); err != nil {
			c.logger.WithError(err).Errorf("store snapshot for %s", asset)
		}
	}
	return nil
}
