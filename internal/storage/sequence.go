package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"sync/atomic"

	"tracker/internal/core"
)

// Sequence hands out record IDs that are never reused within the process,
// even after the record holding the highest ID is removed. The zero value is
// ready to use.
type Sequence struct {
	last atomic.Int64
}

// Next returns an ID above every ID in txs and every ID handed out or
// observed before.
func (s *Sequence) Next(txs []core.Transaction) int64 {
	floor := NextID(txs)
	for {
		last := s.last.Load()
		id := max(floor, last+1)
		if s.last.CompareAndSwap(last, id) {
			return id
		}
	}
}

// Observe raises the mark to at least id.
func (s *Sequence) Observe(id int64) {
	for {
		last := s.last.Load()
		if id <= last || s.last.CompareAndSwap(last, id) {
			return
		}
	}
}

// Last returns the highest ID handed out or observed so far.
func (s *Sequence) Last() int64 {
	return s.last.Load()
}

// MaxID returns the highest ID in txs, or 0.
func MaxID(txs []core.Transaction) int64 {
	return NextID(txs) - 1
}

// LastIDPath is where the highest ID ever assigned to the ledger file at
// ledgerPath is kept.
func LastIDPath(ledgerPath string) string { return ledgerPath + ".lastid" }

// ReadLastID returns the mark kept beside ledgerPath, or 0 when there is none.
func ReadLastID(ledgerPath string) (int64, error) {
	data, err := os.ReadFile(LastIDPath(ledgerPath))
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read last id: %w", err)
	}
	text := strings.TrimSpace(string(data))
	id, err := strconv.ParseInt(text, 10, 64)
	if err != nil || id < 0 {
		return 0, fmt.Errorf("parse last id %q", text)
	}
	return id, nil
}
