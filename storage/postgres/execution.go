package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/webpiratt/swapd/internal/types"
)

func (p *PostgresBackend) handleRollback(ctx context.Context, tx pgx.Tx) {
	// Rollback after a successful commit returns ErrTxClosed, which is fine.
	_ = tx.Rollback(ctx)
}

// CompleteLimitExecution records the execution outcome in one transaction:
// the history entry and the executed status stand or fall together.
func (p *PostgresBackend) CompleteLimitExecution(ctx context.Context, id uuid.UUID, entry types.SwapHistoryEntry) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer p.handleRollback(ctx, tx)

	if _, err := p.CreateSwapHistoryEntryTx(ctx, tx, entry); err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, `
	UPDATE limit_orders
	SET status = $2, updated_at = NOW()
	WHERE id = $1
	`, id, types.OrderStatusExecuted); err != nil {
		return fmt.Errorf("failed to update limit order status: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// CompleteDCAExecution rebinds the pre-created occurrence row to the
// provider-issued order id and advances the schedule, atomically. If any
// step fails the occurrence stays claimable by the next tick.
func (p *PostgresBackend) CompleteDCAExecution(ctx context.Context, id uuid.UUID, occurrenceKey string, entry types.SwapHistoryEntry, nextExecution, executedAt time.Time) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer p.handleRollback(ctx, tx)

	tag, err := tx.Exec(ctx, `
	UPDATE swap_history
	SET provider_order_id = $2,
	    settle_amount = $3,
	    updated_at = NOW()
	WHERE provider_order_id = $1
	`, occurrenceKey, entry.ProviderOrderID, entry.SettleAmount)
	if err != nil {
		return fmt.Errorf("failed to rebind swap history entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Occurrence row missing (administrative cleanup); record it fresh.
		if _, err := p.CreateSwapHistoryEntryTx(ctx, tx, entry); err != nil {
			return err
		}
	}

	if _, err := tx.Exec(ctx, `
	UPDATE dca_schedules
	SET next_execution = $2,
	    last_executed = $3,
	    execution_count = execution_count + 1,
	    failure_count = 0,
	    last_claimed = NULL
	WHERE id = $1
	`, id, nextExecution, executedAt); err != nil {
		return fmt.Errorf("failed to advance dca schedule: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
