package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/DataDog/datadog-go/statsd"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/webpiratt/swapd/internal/condition"
	"github.com/webpiratt/swapd/internal/notify"
	"github.com/webpiratt/swapd/internal/pricecache"
	"github.com/webpiratt/swapd/internal/schedule"
	"github.com/webpiratt/swapd/internal/sideshift"
	"github.com/webpiratt/swapd/internal/tasks"
	"github.com/webpiratt/swapd/internal/types"
)

// Provider is the swap-provider capability the monitor requires. It is a
// hard dependency: construction fails if it is absent.
type Provider interface {
	CreateQuote(ctx context.Context, fromAsset, fromChain, toAsset, toChain string, amount decimal.Decimal) (*sideshift.Quote, error)
	CreateOrder(ctx context.Context, quoteID, settleAddress string) (*sideshift.Order, error)
	GetOrderStatus(ctx context.Context, orderID string) (*sideshift.OrderStatus, error)
}

// Prices serves cached price snapshots. A miss means "do not execute".
type Prices interface {
	Get(ctx context.Context, asset string) (pricecache.Snapshot, bool)
}

// Store is the persistence surface the monitor drives. The postgres
// backend satisfies it; tests use an in-memory fake.
type Store interface {
	ListPendingLimitOrders(ctx context.Context) ([]types.LimitOrder, error)
	ListDueDCASchedules(ctx context.Context, now time.Time) ([]types.DCASchedule, error)
	ClaimLimitOrder(ctx context.Context, id uuid.UUID) (bool, error)
	ClaimDCASchedule(ctx context.Context, id uuid.UUID, now time.Time, staleAfter time.Duration) (bool, error)
	RevertStaleExecutingOrders(ctx context.Context, olderThan time.Time) (int64, error)
	UpdateLimitOrderStatus(ctx context.Context, id uuid.UUID, status types.LimitOrderStatus, reason string) error
	CreateSwapHistoryEntry(ctx context.Context, entry types.SwapHistoryEntry) (uuid.UUID, error)
	GetSwapHistoryEntry(ctx context.Context, providerOrderID string) (types.SwapHistoryEntry, error)
	UpdateSwapHistoryStatus(ctx context.Context, providerOrderID string, status types.SwapStatus, txHash string) error
	ListNonTerminalSwaps(ctx context.Context) ([]types.SwapHistoryEntry, error)
	CompleteLimitExecution(ctx context.Context, id uuid.UUID, entry types.SwapHistoryEntry) error
	CompleteDCAExecution(ctx context.Context, id uuid.UUID, occurrenceKey string, entry types.SwapHistoryEntry, nextExecution, executedAt time.Time) error
	MarkDCAFailure(ctx context.Context, id uuid.UUID, maxFailures int) (bool, error)
}

type Config struct {
	Interval       time.Duration
	ItemTimeout    time.Duration
	MaxDCAFailures int
	PriceFreshness time.Duration
}

// Monitor drives periodic evaluation and at-most-once execution of due
// conditional orders: one atomic pass per interval, per-item failure
// isolation, never two overlapping ticks.
type Monitor struct {
	db       Store
	provider Provider
	prices   Prices
	notifier notify.Notifier
	sdClient *statsd.Client
	logger   *logrus.Logger
	cfg      Config

	mu      sync.Mutex
	running bool
	ticking bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

func New(db Store, provider Provider, prices Prices, notifier notify.Notifier, sdClient *statsd.Client, logger *logrus.Logger, cfg Config) (*Monitor, error) {
	if db == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	if provider == nil {
		return nil, fmt.Errorf("swap provider cannot be nil")
	}
	if prices == nil {
		return nil, fmt.Errorf("price cache cannot be nil")
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 60 * time.Second
	}
	if cfg.ItemTimeout <= 0 {
		cfg.ItemTimeout = 45 * time.Second
	}
	if cfg.MaxDCAFailures <= 0 {
		cfg.MaxDCAFailures = 5
	}
	if cfg.PriceFreshness <= 0 {
		cfg.PriceFreshness = 5 * time.Minute
	}
	return &Monitor{
		db:       db,
		provider: provider,
		prices:   prices,
		notifier: notifier,
		sdClient: sdClient,
		logger:   logger,
		cfg:      cfg,
	}, nil
}

func (m *Monitor) incCounter(name string, tags []string) {
	if m.sdClient == nil {
		return
	}
	if err := m.sdClient.Count(name, 1, tags, 1); err != nil {
		m.logger.Errorf("fail to count metric, err: %v", err)
	}
}

func (m *Monitor) measureTime(name string, start time.Time, tags []string) {
	if m.sdClient == nil {
		return
	}
	if err := m.sdClient.Timing(name, time.Since(start), tags, 1); err != nil {
		m.logger.Errorf("fail to measure time metric, err: %v", err)
	}
}

// Start launches the polling loop. Stop lets an in-flight tick finish.
func (m *Monitor) Start() {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		m.logger.Warn("monitor already running")
		return
	}
	m.running = true
	m.stopCh = make(chan struct{})
	m.mu.Unlock()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ticker := time.NewTicker(m.cfg.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-m.stopCh:
				return
			case <-ticker.C:
				m.Tick(context.Background())
			}
		}
	}()

	m.logger.Infof("monitor started, interval %s", m.cfg.Interval)
}

func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	close(m.stopCh)
	m.running = false
	m.mu.Unlock()

	m.wg.Wait()
	m.logger.Info("monitor stopped")
}

// Tick runs one atomic pass. A tick that arrives while a previous one is
// still executing is skipped; overlapping ticks would break the
// at-most-once-per-tick guarantee under a slow provider.
func (m *Monitor) Tick(ctx context.Context) {
	m.mu.Lock()
	if m.ticking {
		m.mu.Unlock()
		m.logger.Warn("previous tick still running, skipping")
		m.incCounter("monitor.tick.skipped", nil)
		return
	}
	m.ticking = true
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.ticking = false
		m.mu.Unlock()
	}()
	defer m.measureTime("monitor.tick.latency", time.Now(), nil)

	now := time.Now().UTC()

	// A claim whose executor died leaves the order stranded in executing;
	// the item context has long expired by ItemTimeout, so reverting is safe.
	if n, err := m.db.RevertStaleExecutingOrders(ctx, now.Add(-m.cfg.ItemTimeout)); err != nil {
		m.logger.WithError(err).Error("failed to revert stale executing orders")
	} else if n > 0 {
		m.logger.Warnf("reverted %d stale executing orders to pending", n)
		m.incCounter("monitor.limit.reclaimed", nil)
	}

	orders, err := m.db.ListPendingLimitOrders(ctx)
	if err != nil {
		m.logger.WithError(err).Error("failed to load pending limit orders")
	}
	for _, order := range orders {
		itemCtx, cancel := context.WithTimeout(ctx, m.cfg.ItemTimeout)
		if err := m.processLimitOrder(itemCtx, order, now); err != nil {
			m.logger.WithFields(logrus.Fields{
				"order_id": order.ID,
				"owner":    order.Owner,
			}).Errorf("limit order processing failed: %v", err)
		}
		cancel()
	}

	schedules, err := m.db.ListDueDCASchedules(ctx, now)
	if err != nil {
		m.logger.WithError(err).Error("failed to load due dca schedules")
	}
	for _, s := range schedules {
		itemCtx, cancel := context.WithTimeout(ctx, m.cfg.ItemTimeout)
		if err := m.processDCASchedule(itemCtx, s, now); err != nil {
			m.logger.WithFields(logrus.Fields{
				"schedule_id": s.ID,
				"owner":       s.Owner,
			}).Errorf("dca schedule processing failed: %v", err)
		}
		cancel()
	}
}

func (m *Monitor) processLimitOrder(ctx context.Context, order types.LimitOrder, now time.Time) error {
	snapshot, ok := m.prices.Get(ctx, order.ConditionAsset)
	if !ok || !condition.Fresh(snapshot, m.cfg.PriceFreshness, now) {
		// Never execute on missing or stale data; a skip, not an error.
		m.logger.WithField("order_id", order.ID).Debugf("no fresh price for %s, skipping", order.ConditionAsset)
		m.incCounter("monitor.limit.price_miss", nil)
		return nil
	}

	if !condition.Evaluate(order, snapshot) {
		return nil
	}

	claimed, err := m.db.ClaimLimitOrder(ctx, order.ID)
	if err != nil {
		return fmt.Errorf("claim failed: %w", err)
	}
	if !claimed {
		// Another instance got there first.
		return nil
	}

	m.logger.WithFields(logrus.Fields{
		"order_id": order.ID,
		"asset":    order.ConditionAsset,
		"price":    snapshot.PriceUSD.String(),
		"value":    order.ConditionValue.String(),
	}).Info("limit order triggered")
	m.incCounter("monitor.limit.triggered", nil)

	entry, execErr := m.executeSwap(ctx, order.Owner, order.FromAsset, order.FromChain, order.ToAsset, order.ToChain, order.Amount, order.SettleAddress, types.SourceLimit)
	if execErr != nil {
		return m.failLimitOrder(ctx, order, execErr)
	}

	if err := m.db.CompleteLimitExecution(ctx, order.ID, *entry); err != nil {
		// Execution happened upstream but was not recorded; revert to
		// pending so the next tick reconciles. At-most-once degrades to
		// at-least-once under persistence failure.
		if revertErr := m.db.UpdateLimitOrderStatus(ctx, order.ID, types.OrderStatusPending, ""); revertErr != nil {
			m.logger.WithError(revertErr).Error("failed to revert limit order to pending")
		}
		return fmt.Errorf("failed to record execution: %w", err)
	}

	m.incCounter("monitor.limit.executed", nil)
	m.notify(ctx, order.Owner, tasks.KindLimitExecuted, tasks.NotificationPayload{
		Subject: "Limit order executed",
		Body: fmt.Sprintf("Your %s→%s limit order executed at %s %s.",
			order.FromAsset, order.ToAsset, snapshot.PriceUSD.String(), "USD"),
		Fields: map[string]string{"order": entry.ProviderOrderID},
	})
	return nil
}

func (m *Monitor) failLimitOrder(ctx context.Context, order types.LimitOrder, execErr error) error {
	if types.IsRetryable(execErr) {
		// Transient: back to pending, retried on a later tick.
		if err := m.db.UpdateLimitOrderStatus(ctx, order.ID, types.OrderStatusPending, ""); err != nil {
			return errors.Join(execErr, err)
		}
		m.incCounter("monitor.limit.retry", nil)
		return execErr
	}

	// Terminal: never retried, surfaced to the user.
	if err := m.db.UpdateLimitOrderStatus(ctx, order.ID, types.OrderStatusFailed, execErr.Error()); err != nil {
		return errors.Join(execErr, err)
	}
	m.incCounter("monitor.limit.failed", nil)
	m.notify(ctx, order.Owner, tasks.KindLimitFailed, tasks.NotificationPayload{
		Subject: "Limit order failed",
		Body:    fmt.Sprintf("Your %s→%s limit order failed: %v", order.FromAsset, order.ToAsset, execErr),
	})
	return execErr
}

func (m *Monitor) processDCASchedule(ctx context.Context, s types.DCASchedule, now time.Time) error {
	claimed, err := m.db.ClaimDCASchedule(ctx, s.ID, now, m.cfg.ItemTimeout)
	if err != nil {
		return fmt.Errorf("claim failed: %w", err)
	}
	if !claimed {
		// Another instance owns this slot.
		return nil
	}

	occurrenceKey := s.OccurrenceKey()

	// Record the occurrence before touching the provider so a retried slot
	// reuses the same row instead of double-keying a partial success.
	_, err = m.db.CreateSwapHistoryEntry(ctx, types.SwapHistoryEntry{
		ID:              uuid.New(),
		Owner:           s.Owner,
		ProviderOrderID: occurrenceKey,
		FromAsset:       s.FromAsset,
		FromChain:       s.FromChain,
		ToAsset:         s.ToAsset,
		ToChain:         s.ToChain,
		DepositAmount:   s.Amount,
		Status:          types.SwapStatusPending,
		Source:          types.SourceDCA,
	})
	if err != nil {
		return fmt.Errorf("failed to record occurrence: %w", err)
	}

	m.logger.WithFields(logrus.Fields{
		"schedule_id": s.ID,
		"occurrence":  occurrenceKey,
	}).Info("dca schedule due")
	m.incCounter("monitor.dca.due", nil)

	entry, execErr := m.executeSwap(ctx, s.Owner, s.FromAsset, s.FromChain, s.ToAsset, s.ToChain, s.Amount, s.SettleAddress, types.SourceDCA)
	if execErr != nil {
		return m.failDCASchedule(ctx, s, occurrenceKey, execErr)
	}

	next := schedule.NextExecution(s)
	if err := m.db.CompleteDCAExecution(ctx, s.ID, occurrenceKey, *entry, next, now); err != nil {
		// Slot stays due; retry next tick reuses the occurrence row.
		return fmt.Errorf("failed to record dca execution: %w", err)
	}

	m.incCounter("monitor.dca.executed", nil)
	m.notify(ctx, s.Owner, tasks.KindDCAExecuted, tasks.NotificationPayload{
		Subject: "DCA purchase executed",
		Body: fmt.Sprintf("Swapped %s %s for %s. Next run: %s.",
			s.Amount.String(), s.FromAsset, s.ToAsset, next.Format(time.RFC1123)),
		Fields: map[string]string{"order": entry.ProviderOrderID},
	})
	return nil
}

func (m *Monitor) failDCASchedule(ctx context.Context, s types.DCASchedule, occurrenceKey string, execErr error) error {
	maxFailures := m.cfg.MaxDCAFailures
	terminal := !types.IsRetryable(execErr)
	if terminal {
		// A schedule that cannot ever succeed is stopped immediately.
		maxFailures = 1
	}

	deactivated, err := m.db.MarkDCAFailure(ctx, s.ID, maxFailures)
	if err != nil {
		return errors.Join(execErr, err)
	}
	m.incCounter("monitor.dca.failure", nil)

	if terminal || deactivated {
		// The slot will never execute; settle its occurrence row so it
		// leaves the non-terminal set.
		if err := m.db.UpdateSwapHistoryStatus(ctx, occurrenceKey, types.SwapStatusFailed, ""); err != nil {
			m.logger.WithError(err).Warnf("failed to settle occurrence %s", occurrenceKey)
		}
	}

	if deactivated {
		m.incCounter("monitor.dca.deactivated", nil)
		m.notify(ctx, s.Owner, tasks.KindDCADeactivated, tasks.NotificationPayload{
			Subject: "DCA schedule paused",
			Body: fmt.Sprintf("Your %s→%s DCA schedule was paused after repeated failures: %v",
				s.FromAsset, s.ToAsset, execErr),
		})
	}
	return execErr
}

// executeSwap performs one quote + order round trip against the provider.
func (m *Monitor) executeSwap(ctx context.Context, owner, fromAsset, fromChain, toAsset, toChain string, amount decimal.Decimal, settleAddress string, source types.SwapSource) (*types.SwapHistoryEntry, error) {
	quote, err := m.provider.CreateQuote(ctx, fromAsset, fromChain, toAsset, toChain, amount)
	if err != nil {
		return nil, types.ClassifyProviderError(fmt.Errorf("create quote: %w", err))
	}

	order, err := m.provider.CreateOrder(ctx, quote.ID, settleAddress)
	if err != nil {
		return nil, types.ClassifyProviderError(fmt.Errorf("create order: %w", err))
	}

	return &types.SwapHistoryEntry{
		ID:              uuid.New(),
		Owner:           owner,
		ProviderOrderID: order.ID,
		FromAsset:       fromAsset,
		FromChain:       fromChain,
		ToAsset:         toAsset,
		ToChain:         toChain,
		DepositAmount:   quote.DepositAmount,
		SettleAmount:    quote.SettleAmount,
		Status:          types.SwapStatusPending,
		Source:          source,
	}, nil
}

// notify is fire-and-forget; failures are logged, never propagated.
func (m *Monitor) notify(ctx context.Context, userID, kind string, payload tasks.NotificationPayload) {
	if m.notifier == nil {
		return
	}
	if err := m.notifier.Notify(ctx, userID, kind, payload); err != nil {
		m.logger.WithError(err).Warnf("failed to enqueue %s notification for %s", kind, userID)
	}
}
