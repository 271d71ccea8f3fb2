package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"

	"tracker/internal/core"
)

// PostgresRepository keeps the ledger in PostgreSQL through a pgx pool.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository connects, migrates the schema and returns a ready
// repository.
func NewPostgresRepository(ctx context.Context, url string) (*PostgresRepository, error) {
	if err := migratePostgres(url); err != nil {
		return nil, err
	}

	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &PostgresRepository{pool: pool}, nil
}

func migratePostgres(url string) error {
	db, err := sql.Open("pgx", url)
	if err != nil {
		return fmt.Errorf("open postgres for migrations: %w", err)
	}
	defer db.Close()
	return RunPostgresMigrations(db)
}

func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

func (r *PostgresRepository) Load(ctx context.Context) ([]core.Transaction, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, description, amount, to_char(date, 'YYYY-MM-DD'), category
		   FROM transactions ORDER BY id`)
	if err != nil {
		return nil, core.Unavailable("load", err)
	}
	txs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (core.Transaction, error) {
		var tx core.Transaction
		err := row.Scan(&tx.ID, &tx.Description, &tx.Amount, &tx.Date, &tx.Category)
		return tx, err
	})
	if err != nil {
		return nil, core.Unavailable("load", err)
	}
	if txs == nil {
		txs = []core.Transaction{}
	}
	return txs, nil
}

func (r *PostgresRepository) Append(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO transactions (description, amount, date, category)
		 VALUES ($1, $2, $3::date, $4) RETURNING id`,
		tx.Description, tx.Amount, tx.Date, tx.Category).Scan(&tx.ID)
	if err != nil {
		return core.Transaction{}, core.Unavailable("append", err)
	}
	return tx, nil
}

func (r *PostgresRepository) RemoveAt(ctx context.Context, index int) error {
	if index < 0 {
		return core.IndexNotFound(index)
	}

	err := pgx.BeginFunc(ctx, r.pool, func(dbtx pgx.Tx) error {
		var id int64
		err := dbtx.QueryRow(ctx,
			`SELECT id FROM transactions ORDER BY id LIMIT 1 OFFSET $1 FOR UPDATE`, index).Scan(&id)
		if errors.Is(err, pgx.ErrNoRows) {
			return core.IndexNotFound(index)
		}
		if err != nil {
			return core.Unavailable("remove", err)
		}
		_, err = dbtx.Exec(ctx, `DELETE FROM transactions WHERE id = $1`, id)
		return err
	})
	return core.Unavailable("remove", err)
}

func (r *PostgresRepository) Remove(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM transactions WHERE id = $1`, id)
	if err != nil {
		return core.Unavailable("remove", err)
	}
	if tag.RowsAffected() == 0 {
		return core.IDNotFound(id)
	}
	return nil
}
