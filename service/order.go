package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/webpiratt/swapd/internal/reputation"
	"github.com/webpiratt/swapd/internal/schedule"
	"github.com/webpiratt/swapd/internal/sideshift"
	"github.com/webpiratt/swapd/internal/types"
	"github.com/webpiratt/swapd/storage"
)

// SwapProvider is the provider surface the order service depends on.
type SwapProvider interface {
	GetPair(ctx context.Context, fromAsset, fromChain, toAsset, toChain string) (*sideshift.Pair, error)
	CreateQuote(ctx context.Context, fromAsset, fromChain, toAsset, toChain string, amount decimal.Decimal) (*sideshift.Quote, error)
	CreateOrder(ctx context.Context, quoteID, settleAddress string) (*sideshift.Order, error)
	GetOrderStatus(ctx context.Context, orderID string) (*sideshift.OrderStatus, error)
}

type Order interface {
	CreateSwap(ctx context.Context, req types.CreateSwapRequest) (*SwapResult, error)
	CreateLimitOrder(ctx context.Context, req types.CreateLimitOrderRequest) (*types.LimitOrder, error)
	CreateDCA(ctx context.Context, req types.CreateDCARequest) (*types.DCASchedule, error)
	CancelLimitOrder(ctx context.Context, id uuid.UUID) error
	CancelDCA(ctx context.Context, id uuid.UUID) error
	GetSwapStatus(ctx context.Context, providerOrderID string) (*types.SwapHistoryEntry, error)
	GetHistory(ctx context.Context, owner, sort string, take, skip int) ([]types.SwapHistoryEntry, error)
	GetReputation(ctx context.Context, owner string) (*reputation.Metrics, error)
}

var _ Order = (*OrderService)(nil)

type OrderService struct {
	db       storage.DatabaseStorage
	provider SwapProvider
	logger   *logrus.Logger
}

func NewOrderService(db storage.DatabaseStorage, provider SwapProvider, logger *logrus.Logger) (*OrderService, error) {
	if db == nil {
		return nil, fmt.Errorf("database storage cannot be nil")
	}
	if provider == nil {
		return nil, fmt.Errorf("swap provider cannot be nil")
	}
	return &OrderService{
		db:       db,
		provider: provider,
		logger:   logger,
	}, nil
}

func (s *OrderService) handleRollback(ctx context.Context, tx pgx.Tx) {
	if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		s.logger.WithError(err).Error("failed to rollback transaction")
	}
}

// SwapResult is what a caller needs to fund a freshly created swap.
type SwapResult struct {
	ProviderOrderID string          `json:"provider_order_id"`
	DepositAddress  string          `json:"deposit_address"`
	DepositMemo     string          `json:"deposit_memo,omitempty"`
	DepositAmount   decimal.Decimal `json:"deposit_amount"`
	SettleAmount    decimal.Decimal `json:"settle_amount"`
	ExpiresAt       string          `json:"expires_at,omitempty"`
}

// CreateSwap executes an immediate swap: pair check, quote, order, then a
// pending history entry the reconciler will carry to a terminal status.
func (s *OrderService) CreateSwap(ctx context.Context, req types.CreateSwapRequest) (*SwapResult, error) {
	pair, err := s.provider.GetPair(ctx, req.FromAsset, req.FromChain, req.ToAsset, req.ToChain)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch pair: %w", err)
	}
	if req.Amount.LessThan(pair.Min) || req.Amount.GreaterThan(pair.Max) {
		return nil, &types.ValidationError{
			Reason: fmt.Sprintf("amount %s outside pair limits [%s, %s]", req.Amount, pair.Min, pair.Max),
		}
	}

	quote, err := s.provider.CreateQuote(ctx, req.FromAsset, req.FromChain, req.ToAsset, req.ToChain, req.Amount)
	if err != nil {
		return nil, fmt.Errorf("failed to create quote: %w", err)
	}
	order, err := s.provider.CreateOrder(ctx, quote.ID, req.SettleAddress)
	if err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	if _, err := s.db.CreateSwapHistoryEntry(ctx, types.SwapHistoryEntry{
		ID:              uuid.New(),
		Owner:           req.Owner,
		ProviderOrderID: order.ID,
		FromAsset:       req.FromAsset,
		FromChain:       req.FromChain,
		ToAsset:         req.ToAsset,
		ToChain:         req.ToChain,
		DepositAmount:   quote.DepositAmount,
		SettleAmount:    quote.SettleAmount,
		Status:          types.SwapStatusPending,
		Source:          types.SourceManual,
	}); err != nil {
		// The shift exists upstream either way; surface the id so the user
		// can still fund it.
		s.logger.WithError(err).Errorf("failed to record swap %s", order.ID)
	}

	return &SwapResult{
		ProviderOrderID: order.ID,
		DepositAddress:  order.DepositAddress,
		DepositMemo:     order.DepositMemo,
		DepositAmount:   quote.DepositAmount,
		SettleAmount:    quote.SettleAmount,
		ExpiresAt:       quote.ExpiresAt,
	}, nil
}

func (s *OrderService) CreateLimitOrder(ctx context.Context, req types.CreateLimitOrderRequest) (*types.LimitOrder, error) {
	if _, err := s.provider.GetPair(ctx, req.FromAsset, req.FromChain, req.ToAsset, req.ToChain); err != nil {
		return nil, fmt.Errorf("failed to verify pair: %w", err)
	}

	tx, err := s.db.Pool().Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer s.handleRollback(ctx, tx)

	order, err := s.db.CreateLimitOrderTx(ctx, tx, types.LimitOrder{
		ID:                uuid.New(),
		Owner:             req.Owner,
		FromAsset:         req.FromAsset,
		FromChain:         req.FromChain,
		ToAsset:           req.ToAsset,
		ToChain:           req.ToChain,
		Amount:            req.Amount,
		ConditionAsset:    req.ConditionAsset,
		ConditionOperator: types.ConditionOperator(req.ConditionOperator),
		ConditionValue:    req.ConditionValue,
		SettleAddress:     req.SettleAddress,
		Status:            types.OrderStatusPending,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to insert limit order: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"order_id": order.ID,
		"owner":    order.Owner,
	}).Info("limit order created")
	return order, nil
}

func (s *OrderService) CreateDCA(ctx context.Context, req types.CreateDCARequest) (*types.DCASchedule, error) {
	if _, err := s.provider.GetPair(ctx, req.FromAsset, req.FromChain, req.ToAsset, req.ToChain); err != nil {
		return nil, fmt.Errorf("failed to verify pair: %w", err)
	}

	sched := types.DCASchedule{
		ID:            uuid.New(),
		Owner:         req.Owner,
		FromAsset:     req.FromAsset,
		FromChain:     req.FromChain,
		ToAsset:       req.ToAsset,
		ToChain:       req.ToChain,
		Amount:        req.Amount,
		Frequency:     types.Frequency(req.Frequency),
		SettleAddress: req.SettleAddress,
		IsActive:      true,
	}
	if req.DayOfWeek != nil {
		d := time.Weekday(*req.DayOfWeek)
		sched.DayOfWeek = &d
	}
	sched.DayOfMonth = req.DayOfMonth

	switch sched.Frequency {
	case types.FrequencyWeekly:
		if sched.DayOfWeek == nil {
			return nil, &types.ValidationError{Reason: "weekly schedule requires day_of_week"}
		}
	case types.FrequencyMonthly:
		if sched.DayOfMonth == nil {
			return nil, &types.ValidationError{Reason: "monthly schedule requires day_of_month"}
		}
	}
	sched.NextExecution = schedule.InitialExecution(sched, time.Now().UTC())

	tx, err := s.db.Pool().Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer s.handleRollback(ctx, tx)

	created, err := s.db.CreateDCAScheduleTx(ctx, tx, sched)
	if err != nil {
		return nil, fmt.Errorf("failed to insert dca schedule: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"schedule_id": created.ID,
		"owner":       created.Owner,
		"next":        created.NextExecution,
	}).Info("dca schedule created")
	return created, nil
}

// CancelLimitOrder cancels a pending order. An executing order cannot be
// cancelled: its swap may already exist upstream.
func (s *OrderService) CancelLimitOrder(ctx context.Context, id uuid.UUID) error {
	order, err := s.db.GetLimitOrder(ctx, id)
	if err != nil {
		return err
	}
	if order.Status != types.OrderStatusPending {
		return &types.ValidationError{
			Reason: fmt.Sprintf("order in status %s cannot be cancelled", order.Status),
		}
	}
	return s.db.UpdateLimitOrderStatus(ctx, id, types.OrderStatusCancelled, "cancelled by user")
}

func (s *OrderService) CancelDCA(ctx context.Context, id uuid.UUID) error {
	if _, err := s.db.GetDCASchedule(ctx, id); err != nil {
		return err
	}
	return s.db.DeactivateDCASchedule(ctx, id)
}

// GetSwapStatus reads a swap and, while it is non-terminal, refreshes it
// from the provider. Statuses only move forward; an unchanged provider
// report writes nothing.
func (s *OrderService) GetSwapStatus(ctx context.Context, providerOrderID string) (*types.SwapHistoryEntry, error) {
	entry, err := s.db.GetSwapHistoryEntry(ctx, providerOrderID)
	if err != nil {
		return nil, err
	}
	if entry.Status.IsTerminal() {
		return &entry, nil
	}

	status, err := s.provider.GetOrderStatus(ctx, providerOrderID)
	if err != nil {
		// Serve the stored view when the provider is unreachable.
		s.logger.WithError(err).Warnf("failed to refresh status for %s", providerOrderID)
		return &entry, nil
	}
	mapped := sideshift.MapStatus(status.Status)
	if mapped == entry.Status || !entry.Status.CanTransitionTo(mapped) {
		return &entry, nil
	}
	if err := s.db.UpdateSwapHistoryStatus(ctx, providerOrderID, mapped, status.TxHash); err != nil {
		return nil, fmt.Errorf("failed to update swap status: %w", err)
	}
	entry, err = s.db.GetSwapHistoryEntry(ctx, providerOrderID)
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (s *OrderService) GetHistory(ctx context.Context, owner, sort string, take, skip int) ([]types.SwapHistoryEntry, error) {
	if take <= 0 || take > 100 {
		take = 50
	}
	if skip < 0 {
		skip = 0
	}
	return s.db.ListSwapHistoryByOwner(ctx, owner, sort, take, skip)
}

func (s *OrderService) GetReputation(ctx context.Context, owner string) (*reputation.Metrics, error) {
	now := time.Now().UTC()
	agg, err := s.db.GetReputationAggregates(ctx, owner, now.AddDate(0, -1, 0))
	if err != nil {
		return nil, fmt.Errorf("failed to load reputation aggregates: %w", err)
	}
	metrics := reputation.Compute(owner, agg, now)
	return &metrics, nil
}
