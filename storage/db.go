package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/webpiratt/swapd/internal/types"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

type DatabaseStorage interface {
	Close() error

	CreateLimitOrderTx(ctx context.Context, dbTx pgx.Tx, order types.LimitOrder) (*types.LimitOrder, error)
	GetLimitOrder(ctx context.Context, id uuid.UUID) (types.LimitOrder, error)
	ListPendingLimitOrders(ctx context.Context) ([]types.LimitOrder, error)
	ListLimitOrdersByOwner(ctx context.Context, owner string) ([]types.LimitOrder, error)
	// ClaimLimitOrder flips pending -> executing only if the order is still
	// pending, returning false when another executor got there first.
	ClaimLimitOrder(ctx context.Context, id uuid.UUID) (bool, error)
	// RevertStaleExecutingOrders returns executing orders whose claim is
	// older than olderThan to pending. Reclaims claims orphaned by a crash.
	RevertStaleExecutingOrders(ctx context.Context, olderThan time.Time) (int64, error)
	UpdateLimitOrderStatus(ctx context.Context, id uuid.UUID, status types.LimitOrderStatus, reason string) error

	CreateDCAScheduleTx(ctx context.Context, dbTx pgx.Tx, schedule types.DCASchedule) (*types.DCASchedule, error)
	GetDCASchedule(ctx context.Context, id uuid.UUID) (types.DCASchedule, error)
	ListDueDCASchedules(ctx context.Context, now time.Time) ([]types.DCASchedule, error)
	ListDCASchedulesByOwner(ctx context.Context, owner string) ([]types.DCASchedule, error)
	// ClaimDCASchedule grants one executor the current due slot via a
	// conditional update on the schedule's claim timestamp. A claim older
	// than staleAfter is treated as orphaned and can be taken over.
	ClaimDCASchedule(ctx context.Context, id uuid.UUID, now time.Time, staleAfter time.Duration) (bool, error)
	// MarkDCAFailure bumps the consecutive-failure counter and deactivates
	// the schedule once it reaches maxFailures. Returns whether the schedule
	// was deactivated by this call.
	MarkDCAFailure(ctx context.Context, id uuid.UUID, maxFailures int) (bool, error)
	DeactivateDCASchedule(ctx context.Context, id uuid.UUID) error

	// CompleteLimitExecution atomically records the swap history entry and
	// flips the order to executed.
	CompleteLimitExecution(ctx context.Context, id uuid.UUID, entry types.SwapHistoryEntry) error
	// CompleteDCAExecution atomically rebinds the occurrence's history row
	// to the provider-issued order id and advances the schedule.
	CompleteDCAExecution(ctx context.Context, id uuid.UUID, occurrenceKey string, entry types.SwapHistoryEntry, nextExecution, executedAt time.Time) error

	CreateSwapHistoryEntry(ctx context.Context, entry types.SwapHistoryEntry) (uuid.UUID, error)
	CreateSwapHistoryEntryTx(ctx context.Context, dbTx pgx.Tx, entry types.SwapHistoryEntry) (uuid.UUID, error)
	GetSwapHistoryEntry(ctx context.Context, providerOrderID string) (types.SwapHistoryEntry, error)
	UpdateSwapHistoryStatus(ctx context.Context, providerOrderID string, status types.SwapStatus, txHash string) error
	ListSwapHistoryByOwner(ctx context.Context, owner string, sort string, take, skip int) ([]types.SwapHistoryEntry, error)
	ListNonTerminalSwaps(ctx context.Context) ([]types.SwapHistoryEntry, error)

	GetReputationAggregates(ctx context.Context, owner string, since time.Time) (ReputationAggregates, error)

	Pool() *pgxpool.Pool
}

// ReputationAggregates are the raw per-owner sums the reputation calculator
// derives its metrics from.
type ReputationAggregates struct {
	TotalSwaps      int64
	SettledSwaps    int64
	FailedSwaps     int64
	TotalVolume     string
	RecentVolume    string
	FirstSwapAt     *time.Time
	DistinctSources int64
}
