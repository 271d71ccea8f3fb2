// Package storetest runs the behavior every ledger.Store must share.
package storetest

import (
	"context"
	"testing"

	"github.com/alecthomas/assert/v2"

	"tracker/internal/core"
	"tracker/internal/ledger"
)

// Open returns a fresh, empty store.
type Open func(t *testing.T) ledger.Store

// Sample returns three valid records in date order.
func Sample() []core.Transaction {
	return []core.Transaction{
		{Description: "Salary", Amount: 2500, Date: "2024-01-01", Category: "Income"},
		{Description: "Rent", Amount: -900, Date: "2024-01-03", Category: "Housing"},
		{Description: "Groceries", Amount: -72.5, Date: "2024-01-05"},
	}
}

// Run exercises open against the store contract.
func Run(t *testing.T, open Open) {
	t.Run("EmptyOnFirstLoad", func(t *testing.T) {
		s := open(t)
		txs, err := s.Load(context.Background())
		assert.NoError(t, err)
		assert.True(t, txs != nil)
		assert.Equal(t, 0, len(txs))
	})

	t.Run("AppendKeepsOrderAndAssignsIDs", func(t *testing.T) {
		s := open(t)
		stored := seed(t, s)

		for i := 1; i < len(stored); i++ {
			assert.True(t, stored[i].ID > stored[i-1].ID, "ids must increase")
		}

		txs, err := s.Load(context.Background())
		assert.NoError(t, err)
		assert.Equal(t, stored, txs)
	})

	t.Run("RemoveAtShiftsLaterRecords", func(t *testing.T) {
		s := open(t)
		stored := seed(t, s)

		assert.NoError(t, s.RemoveAt(context.Background(), 1))

		txs, err := s.Load(context.Background())
		assert.NoError(t, err)
		assert.Equal(t, []core.Transaction{stored[0], stored[2]}, txs)
	})

	t.Run("RemoveAtOutOfRange", func(t *testing.T) {
		s := open(t)
		seed(t, s)

		for _, index := range []int{-1, 3, 100} {
			err := s.RemoveAt(context.Background(), index)
			assert.IsError(t, err, core.ErrNotFound)
		}

		txs, err := s.Load(context.Background())
		assert.NoError(t, err)
		assert.Equal(t, 3, len(txs))
	})

	t.Run("RemoveByID", func(t *testing.T) {
		s := open(t)
		stored := seed(t, s)

		assert.NoError(t, s.Remove(context.Background(), stored[0].ID))

		txs, err := s.Load(context.Background())
		assert.NoError(t, err)
		assert.Equal(t, []core.Transaction{stored[1], stored[2]}, txs)

		err = s.Remove(context.Background(), stored[0].ID)
		assert.IsError(t, err, core.ErrNotFound)
	})

	t.Run("RemoveMaxThenAppendGetsFreshID", func(t *testing.T) {
		s := open(t)
		stored := seed(t, s)
		newest := stored[len(stored)-1]

		assert.NoError(t, s.Remove(context.Background(), newest.ID))
		next, err := s.Append(context.Background(), Sample()[0])
		assert.NoError(t, err)
		assert.True(t, next.ID > newest.ID, "id %d reused", next.ID)

		// A client still holding the removed ID must not hit the new record.
		err = s.Remove(context.Background(), newest.ID)
		assert.IsError(t, err, core.ErrNotFound)

		txs, err := s.Load(context.Background())
		assert.NoError(t, err)
		assert.Equal(t, next, txs[len(txs)-1])
	})

	t.Run("LoadReturnsACopy", func(t *testing.T) {
		s := open(t)
		seed(t, s)

		txs, err := s.Load(context.Background())
		assert.NoError(t, err)
		txs[0].Description = "changed"

		again, err := s.Load(context.Background())
		assert.NoError(t, err)
		assert.Equal(t, "Salary", again[0].Description)
	})
}

func seed(t *testing.T, s ledger.Store) []core.Transaction {
	t.Helper()
	var stored []core.Transaction
	for _, tx := range Sample() {
		got, err := s.Append(context.Background(), tx)
		assert.NoError(t, err)
		assert.Equal(t, tx.Description, got.Description)
		stored = append(stored, got)
	}
	return stored
}
