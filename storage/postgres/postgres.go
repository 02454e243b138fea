package postgres

import (
	"context"
	"embed"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/webpiratt/swapd/storage"
)

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

var _ storage.DatabaseStorage = (*PostgresBackend)(nil)

type PostgresBackend struct {
	pool *pgxpool.Pool
}

func NewPostgresBackend(dsn string, runMigrations bool) (*PostgresBackend, error) {
	pool, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		return nil, fmt.Errorf("fail to connect to database: %w", err)
	}

	backend := &PostgresBackend{pool: pool}

	if runMigrations {
		if err := backend.Migrate(); err != nil {
			return nil, fmt.Errorf("fail to run migrations: %w", err)
		}
	}

	return backend, nil
}

func (p *PostgresBackend) Migrate() error {
	goose.SetBaseFS(embeddedMigrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set dialect: %w", err)
	}

	db := stdlib.OpenDBFromPool(p.pool)
	defer db.Close()

	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

func (p *PostgresBackend) Pool() *pgxpool.Pool {
	return p.pool
}

func (p *PostgresBackend) Close() error {
	p.pool.Close()
	return nil
}
