package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/alecthomas/assert/v2"

	"tracker/internal/core"
	"tracker/internal/ledger"
	"tracker/internal/storage/storetest"
)

func newSQLite(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "ledger.db"))
	assert.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestSQLiteContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) ledger.Store { return newSQLite(t) })
}

func TestSQLiteMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")

	first, err := NewSQLiteRepository(path)
	assert.NoError(t, err)
	_, err = first.Append(context.Background(), storetest.Sample()[0])
	assert.NoError(t, err)
	assert.NoError(t, first.Close())

	second, err := NewSQLiteRepository(path)
	assert.NoError(t, err)
	defer second.Close()

	txs, err := second.Load(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 1, len(txs))
}

func TestSQLiteReplaceKeepsIDs(t *testing.T) {
	repo := newSQLite(t)
	want := []core.Transaction{
		{ID: 5, Description: "A", Amount: 1, Date: "2024-01-01"},
		{ID: 9, Description: "B", Amount: -1, Date: "2024-01-02", Category: "Misc"},
	}

	assert.NoError(t, repo.Replace(context.Background(), want))

	txs, err := repo.Load(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, want, txs)
}
