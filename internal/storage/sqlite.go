package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"tracker/internal/core"

	_ "modernc.org/sqlite"
)

// SQLiteRepository keeps the ledger in a single SQLite table. Insertion order
// is id order.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite allows one writer; a single connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunSQLiteMigrations(db); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Load(ctx context.Context) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, description, amount, date, category FROM transactions ORDER BY id`)
	if err != nil {
		return nil, core.Unavailable("load", err)
	}
	defer rows.Close()

	txs, err := scanTransactions(rows)
	if err != nil {
		return nil, core.Unavailable("load", err)
	}
	return txs, nil
}

func (r *SQLiteRepository) Append(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO transactions (description, amount, date, category) VALUES (?, ?, ?, ?)`,
		tx.Description, tx.Amount, tx.Date, tx.Category)
	if err != nil {
		return core.Transaction{}, core.Unavailable("append", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Transaction{}, core.Unavailable("append", err)
	}
	tx.ID = id
	return tx, nil
}

func (r *SQLiteRepository) RemoveAt(ctx context.Context, index int) error {
	if index < 0 {
		return core.IndexNotFound(index)
	}

	dbtx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Unavailable("remove", err)
	}
	defer dbtx.Rollback()

	var id int64
	err = dbtx.QueryRowContext(ctx,
		`SELECT id FROM transactions ORDER BY id LIMIT 1 OFFSET ?`, index).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.IndexNotFound(index)
	}
	if err != nil {
		return core.Unavailable("remove", err)
	}

	if _, err := dbtx.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id); err != nil {
		return core.Unavailable("remove", err)
	}
	return core.Unavailable("remove", dbtx.Commit())
}

func (r *SQLiteRepository) Remove(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return core.Unavailable("remove", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return core.Unavailable("remove", err)
	}
	if n == 0 {
		return core.IDNotFound(id)
	}
	return nil
}

// Replace swaps the whole ledger inside one transaction, keeping IDs.
func (r *SQLiteRepository) Replace(ctx context.Context, txs []core.Transaction) error {
	dbtx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Unavailable("replace", err)
	}
	defer dbtx.Rollback()

	if _, err := dbtx.ExecContext(ctx, `DELETE FROM transactions`); err != nil {
		return core.Unavailable("replace", err)
	}
	for _, tx := range txs {
		if tx.ID > 0 {
			_, err = dbtx.ExecContext(ctx,
				`INSERT INTO transactions (id, description, amount, date, category) VALUES (?, ?, ?, ?, ?)`,
				tx.ID, tx.Description, tx.Amount, tx.Date, tx.Category)
		} else {
			_, err = dbtx.ExecContext(ctx,
				`INSERT INTO transactions (description, amount, date, category) VALUES (?, ?, ?, ?)`,
				tx.Description, tx.Amount, tx.Date, tx.Category)
		}
		if err != nil {
			return core.Unavailable("replace", err)
		}
	}
	return core.Unavailable("replace", dbtx.Commit())
}

func scanTransactions(rows *sql.Rows) ([]core.Transaction, error) {
	txs := []core.Transaction{}
	for rows.Next() {
		var tx core.Transaction
		if err := rows.Scan(&tx.ID, &tx.Description, &tx.Amount, &tx.Date, &tx.Category); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}
