package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/webpiratt/swapd/internal/types"
	"github.com/webpiratt/swapd/storage"
)

const limitOrderColumns = `id, owner, from_asset, from_chain, to_asset, to_chain, amount,
	condition_asset, condition_operator, condition_value, settle_address,
	status, failure_reason, created_at, updated_at`

func scanLimitOrder(row pgx.Row) (types.LimitOrder, error) {
	var o types.LimitOrder
	err := row.Scan(
		&o.ID,
		&o.Owner,
		&o.FromAsset,
		&o.FromChain,
		&o.ToAsset,
		&o.ToChain,
		&o.Amount,
		&o.ConditionAsset,
		&o.ConditionOperator,
		&o.ConditionValue,
		&o.SettleAddress,
		&o.Status,
		&o.FailureReason,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	return o, err
}

func (p *PostgresBackend) CreateLimitOrderTx(ctx context.Context, dbTx pgx.Tx, order types.LimitOrder) (*types.LimitOrder, error) {
	query := `
	INSERT INTO limit_orders (
	  id, owner, from_asset, from_chain, to_asset, to_chain, amount,
	  condition_asset, condition_operator, condition_value, settle_address, status
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	RETURNING ` + limitOrderColumns

	inserted, err := scanLimitOrder(dbTx.QueryRow(ctx, query,
		order.ID,
		order.Owner,
		order.FromAsset,
		order.FromChain,
		order.ToAsset,
		order.ToChain,
		order.Amount,
		order.ConditionAsset,
		order.ConditionOperator,
		order.ConditionValue,
		order.SettleAddress,
		types.OrderStatusPending,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to insert limit order: %w", err)
	}
	return &inserted, nil
}

func (p *PostgresBackend) GetLimitOrder(ctx context.Context, id uuid.UUID) (types.LimitOrder, error) {
	query := `SELECT ` + limitOrderColumns + ` FROM limit_orders WHERE id = $1`

	order, err := scanLimitOrder(p.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return types.LimitOrder{}, storage.ErrNotFound
	}
	if err != nil {
		return types.LimitOrder{}, fmt.Errorf("failed to get limit order: %w", err)
	}
	return order, nil
}

func (p *PostgresBackend) ListPendingLimitOrders(ctx context.Context) ([]types.LimitOrder, error) {
	query := `SELECT ` + limitOrderColumns + ` FROM limit_orders WHERE status = $1 ORDER BY created_at`

	rows, err := p.pool.Query(ctx, query, types.OrderStatusPending)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending limit orders: %w", err)
	}
	defer rows.Close()

	var orders []types.LimitOrder
	for rows.Next() {
		order, err := scanLimitOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, rows.Err()
}

func (p *PostgresBackend) ListLimitOrdersByOwner(ctx context.Context, owner string) ([]types.LimitOrder, error) {
	query := `SELECT ` + limitOrderColumns + ` FROM limit_orders WHERE owner = $1 ORDER BY created_at DESC`

	rows, err := p.pool.Query(ctx, query, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to list limit orders: %w", err)
	}
	defer rows.Close()

	var orders []types.LimitOrder
	for rows.Next() {
		order, err := scanLimitOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, rows.Err()
}

// ClaimLimitOrder is the conditional update that guarantees at-most-one
// executor per order even when multiple instances poll the same table.
func (p *PostgresBackend) ClaimLimitOrder(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := p.pool.Exec(ctx, `
	UPDATE limit_orders
	SET status = $2, updated_at = NOW()
	WHERE id = $1 AND status = $3
	`, id, types.OrderStatusExecuting, types.OrderStatusPending)
	if err != nil {
		return false, fmt.Errorf("failed to claim limit order: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// RevertStaleExecutingOrders reclaims orders whose executor never finished.
// ClaimLimitOrder bumps updated_at, and an attempt is bounded by the item
// timeout, so an executing row older than that has no live executor.
func (p *PostgresBackend) RevertStaleExecutingOrders(ctx context.Context, olderThan time.Time) (int64, error) {
	tag, err := p.pool.Exec(ctx, `
	UPDATE limit_orders
	SET status = $1, updated_at = NOW()
	WHERE status = $2 AND updated_at < $3
	`, types.OrderStatusPending, types.OrderStatusExecuting, olderThan)
	if err != nil {
		return 0, fmt.Errorf("failed to revert stale executing orders: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (p *PostgresBackend) UpdateLimitOrderStatus(ctx context.Context, id uuid.UUID, status types.LimitOrderStatus, reason string) error {
	tag, err := p.pool.Exec(ctx, `
	UPDATE limit_orders
	SET status = $2, failure_reason = $3, updated_at = NOW()
	WHERE id = $1
	`, id, status, reason)
	if err != nil {
		return fmt.Errorf("failed to update limit order status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}
