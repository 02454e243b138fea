package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/webpiratt/swapd/common"
	"github.com/webpiratt/swapd/internal/types"
	"github.com/webpiratt/swapd/storage"
)

const historyColumns = `id, owner, provider_order_id, from_asset, from_chain, to_asset, to_chain,
	deposit_amount, settle_amount, status, tx_hash, source, created_at, updated_at`

func scanHistoryEntry(row pgx.Row) (types.SwapHistoryEntry, error) {
	var e types.SwapHistoryEntry
	err := row.Scan(
		&e.ID,
		&e.Owner,
		&e.ProviderOrderID,
		&e.FromAsset,
		&e.FromChain,
		&e.ToAsset,
		&e.ToChain,
		&e.DepositAmount,
		&e.SettleAmount,
		&e.Status,
		&e.TxHash,
		&e.Source,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	return e, err
}

func (p *PostgresBackend) CreateSwapHistoryEntry(ctx context.Context, entry types.SwapHistoryEntry) (uuid.UUID, error) {
	return p.createHistoryEntry(ctx, p.pool, entry)
}

func (p *PostgresBackend) CreateSwapHistoryEntryTx(ctx context.Context, dbTx pgx.Tx, entry types.SwapHistoryEntry) (uuid.UUID, error) {
	return p.createHistoryEntry(ctx, dbTx, entry)
}

type execQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (p *PostgresBackend) createHistoryEntry(ctx context.Context, q execQuerier, entry types.SwapHistoryEntry) (uuid.UUID, error) {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.Status == "" {
		entry.Status = types.SwapStatusPending
	}

	// Retried execution of the same occurrence hits the provider_order_id
	// unique constraint and returns the existing row instead.
	query := `
	INSERT INTO swap_history (
	  id, owner, provider_order_id, from_asset, from_chain, to_asset, to_chain,
	  deposit_amount, settle_amount, status, tx_hash, source
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	ON CONFLICT (provider_order_id) DO UPDATE SET updated_at = swap_history.updated_at
	RETURNING id`

	var id uuid.UUID
	err := q.QueryRow(ctx, query,
		entry.ID,
		entry.Owner,
		entry.ProviderOrderID,
		entry.FromAsset,
		entry.FromChain,
		entry.ToAsset,
		entry.ToChain,
		entry.DepositAmount,
		entry.SettleAmount,
		entry.Status,
		entry.TxHash,
		entry.Source,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to create swap history entry: %w", err)
	}
	return id, nil
}

func (p *PostgresBackend) GetSwapHistoryEntry(ctx context.Context, providerOrderID string) (types.SwapHistoryEntry, error) {
	query := `SELECT ` + historyColumns + ` FROM swap_history WHERE provider_order_id = $1`

	entry, err := scanHistoryEntry(p.pool.QueryRow(ctx, query, providerOrderID))
	if errors.Is(err, pgx.ErrNoRows) {
		return types.SwapHistoryEntry{}, storage.ErrNotFound
	}
	if err != nil {
		return types.SwapHistoryEntry{}, fmt.Errorf("failed to get swap history entry: %w", err)
	}
	return entry, nil
}

// statusRank mirrors the forward-only ordering of SwapStatus so the guard
// can live inside the UPDATE instead of a read-then-write pair.
const statusRank = `CASE %s
	WHEN 'pending' THEN 0
	WHEN 'processing' THEN 1
	ELSE 2
END`

// UpdateSwapHistoryStatus writes the new status only when it moves forward;
// a same-status or backwards call matches zero rows, so updated_at stays
// put even with concurrent reconcilers racing on the same entry.
func (p *PostgresBackend) UpdateSwapHistoryStatus(ctx context.Context, providerOrderID string, status types.SwapStatus, txHash string) error {
	query := fmt.Sprintf(`
	UPDATE swap_history
	SET status = $2,
	    tx_hash = CASE WHEN $3 <> '' THEN $3 ELSE tx_hash END,
	    updated_at = NOW()
	WHERE provider_order_id = $1
	  AND `+statusRank+` < `+statusRank,
		"status", "$2::TEXT")

	tag, err := p.pool.Exec(ctx, query, providerOrderID, status, txHash)
	if err != nil {
		return fmt.Errorf("failed to update swap history status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Distinguish a refused transition (fine) from a missing row.
		if _, err := p.GetSwapHistoryEntry(ctx, providerOrderID); err != nil {
			return err
		}
	}
	return nil
}

func (p *PostgresBackend) ListSwapHistoryByOwner(ctx context.Context, owner string, sort string, take, skip int) ([]types.SwapHistoryEntry, error) {
	orderBy, orderDirection := common.GetSortingCondition(sort)

	query := fmt.Sprintf(`SELECT `+historyColumns+`
	FROM swap_history
	WHERE owner = $1
	ORDER BY %s %s
	LIMIT $2 OFFSET $3`, orderBy, orderDirection)

	rows, err := p.pool.Query(ctx, query, owner, take, skip)
	if err != nil {
		return nil, fmt.Errorf("failed to list swap history: %w", err)
	}
	defer rows.Close()

	var entries []types.SwapHistoryEntry
	for rows.Next() {
		entry, err := scanHistoryEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func (p *PostgresBackend) ListNonTerminalSwaps(ctx context.Context) ([]types.SwapHistoryEntry, error) {
	query := `SELECT ` + historyColumns + `
	FROM swap_history
	WHERE status IN ($1, $2)
	ORDER BY created_at`

	rows, err := p.pool.Query(ctx, query, types.SwapStatusPending, types.SwapStatusProcessing)
	if err != nil {
		return nil, fmt.Errorf("failed to list non-terminal swaps: %w", err)
	}
	defer rows.Close()

	var entries []types.SwapHistoryEntry
	for rows.Next() {
		entry, err := scanHistoryEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func (p *PostgresBackend) GetReputationAggregates(ctx context.Context, owner string, since time.Time) (storage.ReputationAggregates, error) {
	query := `
	SELECT
	  COUNT(*),
	  COUNT(*) FILTER (WHERE status IN ('completed', 'settled')),
	  COUNT(*) FILTER (WHERE status IN ('failed', 'cancelled', 'expired')),
	  COALESCE(SUM(deposit_amount) FILTER (WHERE status IN ('completed', 'settled')), 0)::TEXT,
	  COALESCE(SUM(deposit_amount) FILTER (WHERE status IN ('completed', 'settled') AND created_at >= $2), 0)::TEXT,
	  MIN(created_at),
	  COUNT(DISTINCT source)
	FROM swap_history
	WHERE owner = $1`

	var agg storage.ReputationAggregates
	err := p.pool.QueryRow(ctx, query, owner, since).Scan(
		&agg.TotalSwaps,
		&agg.SettledSwaps,
		&agg.FailedSwaps,
		&agg.TotalVolume,
		&agg.RecentVolume,
		&agg.FirstSwapAt,
		&agg.DistinctSources,
	)
	if err != nil {
		return storage.ReputationAggregates{}, fmt.Errorf("failed to get reputation aggregates: %w", err)
	}
	return agg, nil
}
