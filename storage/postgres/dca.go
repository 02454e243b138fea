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

const dcaColumns = `id, owner, from_asset, from_chain, to_asset, to_chain, amount,
	frequency, day_of_week, day_of_month, settle_address, next_execution,
	last_executed, execution_count, failure_count, is_active, created_at`

func scanDCASchedule(row pgx.Row) (types.DCASchedule, error) {
	var s types.DCASchedule
	var dayOfWeek *int16
	var dayOfMonth *int16
	err := row.Scan(
		&s.ID,
		&s.Owner,
		&s.FromAsset,
		&s.FromChain,
		&s.ToAsset,
		&s.ToChain,
		&s.Amount,
		&s.Frequency,
		&dayOfWeek,
		&dayOfMonth,
		&s.SettleAddress,
		&s.NextExecution,
		&s.LastExecuted,
		&s.ExecutionCount,
		&s.FailureCount,
		&s.IsActive,
		&s.CreatedAt,
	)
	if err != nil {
		return s, err
	}
	if dayOfWeek != nil {
		d := time.Weekday(*dayOfWeek)
		s.DayOfWeek = &d
	}
	if dayOfMonth != nil {
		d := int(*dayOfMonth)
		s.DayOfMonth = &d
	}
	return s, nil
}

func (p *PostgresBackend) CreateDCAScheduleTx(ctx context.Context, dbTx pgx.Tx, schedule types.DCASchedule) (*types.DCASchedule, error) {
	var dayOfWeek *int16
	if schedule.DayOfWeek != nil {
		d := int16(*schedule.DayOfWeek)
		dayOfWeek = &d
	}
	var dayOfMonth *int16
	if schedule.DayOfMonth != nil {
		d := int16(*schedule.DayOfMonth)
		dayOfMonth = &d
	}

	query := `
	INSERT INTO dca_schedules (
	  id, owner, from_asset, from_chain, to_asset, to_chain, amount,
	  frequency, day_of_week, day_of_month, settle_address, next_execution, is_active
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, TRUE)
	RETURNING ` + dcaColumns

	inserted, err := scanDCASchedule(dbTx.QueryRow(ctx, query,
		schedule.ID,
		schedule.Owner,
		schedule.FromAsset,
		schedule.FromChain,
		schedule.ToAsset,
		schedule.ToChain,
		schedule.Amount,
		schedule.Frequency,
		dayOfWeek,
		dayOfMonth,
		schedule.SettleAddress,
		schedule.NextExecution,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to insert dca schedule: %w", err)
	}
	return &inserted, nil
}

func (p *PostgresBackend) GetDCASchedule(ctx context.Context, id uuid.UUID) (types.DCASchedule, error) {
	query := `SELECT ` + dcaColumns + ` FROM dca_schedules WHERE id = $1`

	schedule, err := scanDCASchedule(p.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return types.DCASchedule{}, storage.ErrNotFound
	}
	if err != nil {
		return types.DCASchedule{}, fmt.Errorf("failed to get dca schedule: %w", err)
	}
	return schedule, nil
}

func (p *PostgresBackend) ListDueDCASchedules(ctx context.Context, now time.Time) ([]types.DCASchedule, error) {
	query := `SELECT ` + dcaColumns + `
	FROM dca_schedules
	WHERE is_active AND next_execution <= $1
	ORDER BY next_execution`

	rows, err := p.pool.Query(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list due dca schedules: %w", err)
	}
	defer rows.Close()

	var schedules []types.DCASchedule
	for rows.Next() {
		schedule, err := scanDCASchedule(rows)
		if err != nil {
			return nil, err
		}
		schedules = append(schedules, schedule)
	}
	return schedules, rows.Err()
}

func (p *PostgresBackend) ListDCASchedulesByOwner(ctx context.Context, owner string) ([]types.DCASchedule, error) {
	query := `SELECT ` + dcaColumns + ` FROM dca_schedules WHERE owner = $1 ORDER BY created_at DESC`

	rows, err := p.pool.Query(ctx, query, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to list dca schedules: %w", err)
	}
	defer rows.Close()

	var schedules []types.DCASchedule
	for rows.Next() {
		schedule, err := scanDCASchedule(rows)
		if err != nil {
			return nil, err
		}
		schedules = append(schedules, schedule)
	}
	return schedules, rows.Err()
}

// ClaimDCASchedule grants the caller the schedule's current due slot. The
// conditional update on last_claimed serializes competing instances; a
// claim older than staleAfter belongs to a dead executor and is taken over.
func (p *PostgresBackend) ClaimDCASchedule(ctx context.Context, id uuid.UUID, now time.Time, staleAfter time.Duration) (bool, error) {
	tag, err := p.pool.Exec(ctx, `
	UPDATE dca_schedules
	SET last_claimed = $2
	WHERE id = $1
	  AND is_active
	  AND next_execution <= $2
	  AND (last_claimed IS NULL OR last_claimed < $3)
	`, id, now, now.Add(-staleAfter))
	if err != nil {
		return false, fmt.Errorf("failed to claim dca schedule: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (p *PostgresBackend) MarkDCAFailure(ctx context.Context, id uuid.UUID, maxFailures int) (bool, error) {
	var active bool
	// Releasing the claim lets the slot retry on the very next tick.
	err := p.pool.QueryRow(ctx, `
	UPDATE dca_schedules
	SET failure_count = failure_count + 1,
	    is_active = (failure_count + 1 < $2),
	    last_claimed = NULL
	WHERE id = $1
	RETURNING is_active
	`, id, maxFailures).Scan(&active)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, storage.ErrNotFound
	}
	if err != nil {
		return false, fmt.Errorf("failed to mark dca failure: %w", err)
	}
	return !active, nil
}

func (p *PostgresBackend) DeactivateDCASchedule(ctx context.Context, id uuid.UUID) error {
	tag, err := p.pool.Exec(ctx, `
	UPDATE dca_schedules SET is_active = FALSE WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("failed to deactivate dca schedule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}
