// Package memory is an in-process sheets.Tab, used for dry runs of the
// mirror and in tests.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"
)

type Tab struct {
	mu   sync.Mutex
	rows [][]any
}

func New(rows ...[]any) *Tab {
	t := &Tab{}
	for _, r := range rows {
		t.rows = append(t.rows, slices.Clone(r))
	}
	return t
}

func (t *Tab) Rows(_ context.Context) ([][]any, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([][]any, len(t.rows))
	for i, r := range t.rows {
		out[i] = slices.Clone(r)
	}
	return out, nil
}

func (t *Tab) AppendRow(_ context.Context, row []any) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rows = append(t.rows, slices.Clone(row))
	return nil
}

func (t *Tab) DeleteRow(_ context.Context, row int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if row < 0 || row >= len(t.rows) {
		return fmt.Errorf("row %d out of range", row)
	}
	t.rows = slices.Delete(t.rows, row, row+1)
	return nil
}

func (t *Tab) ReplaceRows(_ context.Context, rows [][]any) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rows = make([][]any, 0, len(rows))
	for _, r := range rows {
		t.rows = append(t.rows, slices.Clone(r))
	}
	return nil
}

// Len returns the number of rows, header included.
func (t *Tab) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.rows)
}
