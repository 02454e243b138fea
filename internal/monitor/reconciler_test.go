package monitor

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webpiratt/swapd/internal/sideshift"
	"github.com/webpiratt/swapd/internal/tasks"
	"github.com/webpiratt/swapd/internal/types"
)

type statusProvider struct {
	fakeProvider
	statuses map[string]string
	notFound bool
	calls    int
}

func (p *statusProvider) GetOrderStatus(ctx context.Context, orderID string) (*sideshift.OrderStatus, error) {
	p.calls++
	if p.notFound {
		return nil, &types.NotFoundError{OrderID: orderID}
	}
	s, ok := p.statuses[orderID]
	if !ok {
		s = "pending"
	}
	return &sideshift.OrderStatus{ID: orderID, Status: s, TxHash: "0xabc"}, nil
}

func seedEntry(db *fakeStore, providerOrderID string, status types.SwapStatus) {
	db.history[providerOrderID] = &types.SwapHistoryEntry{
		ID:              uuid.New(),
		Owner:           "alice",
		ProviderOrderID: providerOrderID,
		FromAsset:       "usdc",
		ToAsset:         "btc",
		DepositAmount:   decimal.NewFromInt(100),
		Status:          status,
		Source:          types.SourceManual,
	}
}

func TestReconcileAdvancesStatusAndNotifies(t *testing.T) {
	db := newFakeStore()
	seedEntry(db, "shift-1", types.SwapStatusPending)
	provider := &statusProvider{statuses: map[string]string{"shift-1": "settled"}}
	notifier := &fakeNotifier{}
	m := testMonitor(t, db, provider, btcPrice("1"), notifier)

	require.NoError(t, m.Reconcile(context.Background(), "shift-1"))

	entry, err := db.GetSwapHistoryEntry(context.Background(), "shift-1")
	require.NoError(t, err)
	assert.Equal(t, types.SwapStatusSettled, entry.Status)
	assert.Equal(t, "0xabc", entry.TxHash)
	assert.Equal(t, []string{tasks.KindSwapSettled}, notifier.sent())
}

func TestReconcileUnchangedStatusWritesNothing(t *testing.T) {
	db := newFakeStore()
	seedEntry(db, "shift-1", types.SwapStatusPending)
	provider := &statusProvider{statuses: map[string]string{"shift-1": "pending"}}
	m := testMonitor(t, db, provider, btcPrice("1"), &fakeNotifier{})

	require.NoError(t, m.Reconcile(context.Background(), "shift-1"))
	require.NoError(t, m.Reconcile(context.Background(), "shift-1"))

	assert.Zero(t, db.updates["shift-1"])
}

func TestReconcileIgnoresBackwardsStatus(t *testing.T) {
	db := newFakeStore()
	seedEntry(db, "shift-1", types.SwapStatusProcessing)
	provider := &statusProvider{statuses: map[string]string{"shift-1": "waiting"}}
	m := testMonitor(t, db, provider, btcPrice("1"), &fakeNotifier{})

	require.NoError(t, m.Reconcile(context.Background(), "shift-1"))

	entry, err := db.GetSwapHistoryEntry(context.Background(), "shift-1")
	require.NoError(t, err)
	assert.Equal(t, types.SwapStatusProcessing, entry.Status)
	assert.Zero(t, db.updates["shift-1"])
}

func TestReconcileSkipsTerminalEntries(t *testing.T) {
	db := newFakeStore()
	seedEntry(db, "shift-1", types.SwapStatusSettled)
	provider := &statusProvider{}
	m := testMonitor(t, db, provider, btcPrice("1"), &fakeNotifier{})

	require.NoError(t, m.Reconcile(context.Background(), "shift-1"))

	assert.Zero(t, provider.calls)
}

func TestReconcileExpiresForgottenOrders(t *testing.T) {
	db := newFakeStore()
	seedEntry(db, "shift-1", types.SwapStatusPending)
	provider := &statusProvider{notFound: true}
	notifier := &fakeNotifier{}
	m := testMonitor(t, db, provider, btcPrice("1"), notifier)

	require.NoError(t, m.Reconcile(context.Background(), "shift-1"))

	entry, err := db.GetSwapHistoryEntry(context.Background(), "shift-1")
	require.NoError(t, err)
	assert.Equal(t, types.SwapStatusExpired, entry.Status)
	assert.Equal(t, []string{tasks.KindSwapFailed}, notifier.sent())
}

func TestReconcileSkipsUnsubmittedOccurrences(t *testing.T) {
	db := newFakeStore()
	key := "dca-" + uuid.NewString() + "-" + time.Now().UTC().Format("20060102T150405")
	seedEntry(db, key, types.SwapStatusPending)
	provider := &statusProvider{}
	m := testMonitor(t, db, provider, btcPrice("1"), &fakeNotifier{})

	require.NoError(t, m.Reconcile(context.Background(), key))

	assert.Zero(t, provider.calls)
}

func TestReconcileAllSweepsNonTerminal(t *testing.T) {
	db := newFakeStore()
	seedEntry(db, "shift-1", types.SwapStatusPending)
	seedEntry(db, "shift-2", types.SwapStatusProcessing)
	seedEntry(db, "shift-3", types.SwapStatusSettled)
	provider := &statusProvider{statuses: map[string]string{
		"shift-1": "settled",
		"shift-2": "failed",
	}}
	m := testMonitor(t, db, provider, btcPrice("1"), &fakeNotifier{})

	m.ReconcileAll(context.Background())

	e1, _ := db.GetSwapHistoryEntry(context.Background(), "shift-1")
	e2, _ := db.GetSwapHistoryEntry(context.Background(), "shift-2")
	e3, _ := db.GetSwapHistoryEntry(context.Background(), "shift-3")
	assert.Equal(t, types.SwapStatusSettled, e1.Status)
	assert.Equal(t, types.SwapStatusFailed, e2.Status)
	assert.Equal(t, types.SwapStatusSettled, e3.Status)
	assert.Equal(t, 2, provider.calls)
}
