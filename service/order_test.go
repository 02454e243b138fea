package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webpiratt/swapd/internal/sideshift"
	"github.com/webpiratt/swapd/internal/types"
	"github.com/webpiratt/swapd/storage"
)

// stubDB overrides only the methods a test exercises; anything else panics
// through the embedded nil interface.
type stubDB struct {
	storage.DatabaseStorage
	entries  map[string]types.SwapHistoryEntry
	orders   map[uuid.UUID]types.LimitOrder
	statuses map[string]types.SwapStatus
}

func newStubDB() *stubDB {
	return &stubDB{
		entries:  make(map[string]types.SwapHistoryEntry),
		orders:   make(map[uuid.UUID]types.LimitOrder),
		statuses: make(map[string]types.SwapStatus),
	}
}

func (s *stubDB) CreateSwapHistoryEntry(ctx context.Context, entry types.SwapHistoryEntry) (uuid.UUID, error) {
	s.entries[entry.ProviderOrderID] = entry
	return entry.ID, nil
}

func (s *stubDB) GetSwapHistoryEntry(ctx context.Context, providerOrderID string) (types.SwapHistoryEntry, error) {
	e, ok := s.entries[providerOrderID]
	if !ok {
		return types.SwapHistoryEntry{}, storage.ErrNotFound
	}
	return e, nil
}

func (s *stubDB) UpdateSwapHistoryStatus(ctx context.Context, providerOrderID string, status types.SwapStatus, txHash string) error {
	e := s.entries[providerOrderID]
	e.Status = status
	if txHash != "" {
		e.TxHash = txHash
	}
	s.entries[providerOrderID] = e
	return nil
}

func (s *stubDB) GetLimitOrder(ctx context.Context, id uuid.UUID) (types.LimitOrder, error) {
	o, ok := s.orders[id]
	if !ok {
		return types.LimitOrder{}, storage.ErrNotFound
	}
	return o, nil
}

func (s *stubDB) UpdateLimitOrderStatus(ctx context.Context, id uuid.UUID, status types.LimitOrderStatus, reason string) error {
	o := s.orders[id]
	o.Status = status
	o.FailureReason = reason
	s.orders[id] = o
	return nil
}

type stubProvider struct {
	pair        sideshift.Pair
	orderStatus string
}

func (p *stubProvider) GetPair(ctx context.Context, fromAsset, fromChain, toAsset, toChain string) (*sideshift.Pair, error) {
	pair := p.pair
	return &pair, nil
}

func (p *stubProvider) CreateQuote(ctx context.Context, fromAsset, fromChain, toAsset, toChain string, amount decimal.Decimal) (*sideshift.Quote, error) {
	return &sideshift.Quote{
		ID:            "quote-1",
		DepositAmount: amount,
		SettleAmount:  amount.Mul(p.pair.Rate),
	}, nil
}

func (p *stubProvider) CreateOrder(ctx context.Context, quoteID, settleAddress string) (*sideshift.Order, error) {
	return &sideshift.Order{
		ID:             "shift-1",
		DepositAddress: "bc1qdeposit",
		SettleAddress:  settleAddress,
	}, nil
}

func (p *stubProvider) GetOrderStatus(ctx context.Context, orderID string) (*sideshift.OrderStatus, error) {
	return &sideshift.OrderStatus{ID: orderID, Status: p.orderStatus, TxHash: "0xdef"}, nil
}

func testService(t *testing.T, db *stubDB, provider *stubProvider) *OrderService {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	svc, err := NewOrderService(db, provider, logger)
	require.NoError(t, err)
	return svc
}

func defaultPair() sideshift.Pair {
	return sideshift.Pair{
		Min:  decimal.RequireFromString("10"),
		Max:  decimal.RequireFromString("10000"),
		Rate: decimal.RequireFromString("0.0000166"),
	}
}

func TestCreateSwapRecordsHistory(t *testing.T) {
	db := newStubDB()
	svc := testService(t, db, &stubProvider{pair: defaultPair()})

	result, err := svc.CreateSwap(context.Background(), types.CreateSwapRequest{
		Owner:         "alice",
		FromAsset:     "usdc",
		FromChain:     "ethereum",
		ToAsset:       "btc",
		ToChain:       "mainnet",
		Amount:        decimal.NewFromInt(100),
		SettleAddress: "bc1qalice",
	})
	require.NoError(t, err)
	assert.Equal(t, "shift-1", result.ProviderOrderID)
	assert.Equal(t, "bc1qdeposit", result.DepositAddress)

	entry, ok := db.entries["shift-1"]
	require.True(t, ok)
	assert.Equal(t, types.SourceManual, entry.Source)
	assert.Equal(t, types.SwapStatusPending, entry.Status)
	assert.Equal(t, "alice", entry.Owner)
}

func TestCreateSwapRejectsAmountOutsidePairLimits(t *testing.T) {
	db := newStubDB()
	svc := testService(t, db, &stubProvider{pair: defaultPair()})

	_, err := svc.CreateSwap(context.Background(), types.CreateSwapRequest{
		Owner:         "alice",
		FromAsset:     "usdc",
		FromChain:     "ethereum",
		ToAsset:       "btc",
		ToChain:       "mainnet",
		Amount:        decimal.NewFromInt(5),
		SettleAddress: "bc1qalice",
	})
	require.Error(t, err)
	var v *types.ValidationError
	assert.ErrorAs(t, err, &v)
	assert.Empty(t, db.entries)
}

func TestCancelLimitOrderOnlyWhilePending(t *testing.T) {
	db := newStubDB()
	svc := testService(t, db, &stubProvider{pair: defaultPair()})

	pending := uuid.New()
	executing := uuid.New()
	db.orders[pending] = types.LimitOrder{ID: pending, Status: types.OrderStatusPending}
	db.orders[executing] = types.LimitOrder{ID: executing, Status: types.OrderStatusExecuting}

	require.NoError(t, svc.CancelLimitOrder(context.Background(), pending))
	assert.Equal(t, types.OrderStatusCancelled, db.orders[pending].Status)

	err := svc.CancelLimitOrder(context.Background(), executing)
	var v *types.ValidationError
	assert.ErrorAs(t, err, &v)

	err = svc.CancelLimitOrder(context.Background(), uuid.New())
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestGetSwapStatusRefreshesFromProvider(t *testing.T) {
	db := newStubDB()
	db.entries["shift-1"] = types.SwapHistoryEntry{
		ProviderOrderID: "shift-1",
		Status:          types.SwapStatusPending,
	}
	svc := testService(t, db, &stubProvider{pair: defaultPair(), orderStatus: "settled"})

	entry, err := svc.GetSwapStatus(context.Background(), "shift-1")
	require.NoError(t, err)
	assert.Equal(t, types.SwapStatusSettled, entry.Status)
	assert.Equal(t, "0xdef", entry.TxHash)
}

func TestGetSwapStatusLeavesTerminalEntriesAlone(t *testing.T) {
	db := newStubDB()
	db.entries["shift-1"] = types.SwapHistoryEntry{
		ProviderOrderID: "shift-1",
		Status:          types.SwapStatusFailed,
	}
	svc := testService(t, db, &stubProvider{pair: defaultPair(), orderStatus: "settled"})

	entry, err := svc.GetSwapStatus(context.Background(), "shift-1")
	require.NoError(t, err)
	assert.Equal(t, types.SwapStatusFailed, entry.Status)
}
