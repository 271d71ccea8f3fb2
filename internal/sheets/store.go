// Package sheets keeps the ledger in a spreadsheet tab: one header row, then
// one row per record in ledger order. The same store serves as the mirror
// target of the worker.
package sheets

import (
	"context"
	"fmt"

	"tracker/internal/core"
	"tracker/internal/storage"
)

// Store assigns IDs from a process-wide mark, so an ID freed by removing the
// last record is not handed out again while the process runs.
type Store struct {
	tab Tab
	seq storage.Sequence
}

func NewStore(tab Tab) *Store {
	return &Store{tab: tab}
}

// Load bootstraps the header on an empty tab. Blank rows are skipped.
func (s *Store) Load(ctx context.Context) ([]core.Transaction, error) {
	txs, _, err := s.records(ctx)
	return txs, core.Unavailable("load", err)
}

func (s *Store) Append(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	txs, _, err := s.records(ctx)
	if err != nil {
		return core.Transaction{}, core.Unavailable("append", err)
	}
	tx.ID = s.seq.Next(txs)
	if err := s.tab.AppendRow(ctx, FormatRow(tx)); err != nil {
		return core.Transaction{}, core.Unavailable("append", err)
	}
	return tx, nil
}

func (s *Store) RemoveAt(ctx context.Context, index int) error {
	_, rows, err := s.records(ctx)
	if err != nil {
		return core.Unavailable("remove", err)
	}
	if index < 0 || index >= len(rows) {
		return core.IndexNotFound(index)
	}
	return core.Unavailable("remove", s.tab.DeleteRow(ctx, rows[index]))
}

func (s *Store) Remove(ctx context.Context, id int64) error {
	txs, rows, err := s.records(ctx)
	if err != nil {
		return core.Unavailable("remove", err)
	}
	i := storage.IndexOfID(txs, id)
	if i < 0 {
		return core.IDNotFound(id)
	}
	return core.Unavailable("remove", s.tab.DeleteRow(ctx, rows[i]))
}

// Replace rewrites the tab with the header followed by txs.
func (s *Store) Replace(ctx context.Context, txs []core.Transaction) error {
	rows := make([][]any, 0, len(txs)+1)
	rows = append(rows, Header)
	for _, tx := range txs {
		rows = append(rows, FormatRow(tx))
	}
	if err := s.tab.ReplaceRows(ctx, rows); err != nil {
		return core.Unavailable("replace", err)
	}
	s.seq.Observe(storage.MaxID(txs))
	return nil
}

// records returns the ledger and, for each record, its row in the tab.
func (s *Store) records(ctx context.Context) ([]core.Transaction, []int, error) {
	raw, err := s.tab.Rows(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("read rows: %w", err)
	}
	if len(raw) == 0 {
		if err := s.tab.ReplaceRows(ctx, [][]any{Header}); err != nil {
			return nil, nil, fmt.Errorf("write header: %w", err)
		}
		return []core.Transaction{}, []int{}, nil
	}

	txs := make([]core.Transaction, 0, len(raw))
	rows := make([]int, 0, len(raw))
	for i, row := range raw {
		if (i == 0 && IsHeader(row)) || IsBlank(row) {
			continue
		}
		tx, err := ParseRow(row)
		if err != nil {
			return nil, nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		txs = append(txs, tx)
		rows = append(rows, i)
	}
	return txs, rows, nil
}
