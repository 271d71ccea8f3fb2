// Package storage holds what the ledger backends share: the JSON file format,
// ID assignment and the SQL schema migrations.
package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"tracker/internal/core"
)

// EmptyLedger is the content written when a ledger file is bootstrapped.
var EmptyLedger = []byte("[]\n")

var errNotArray = errors.New("ledger is not a JSON array")

// Decode parses a JSON array of transaction objects.
func Decode(data []byte) ([]core.Transaction, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, errNotArray
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil, fmt.Errorf("decode ledger: %w", err)
	}
	txs := make([]core.Transaction, 0, len(raw))
	for i, item := range raw {
		item = bytes.TrimSpace(item)
		if len(item) == 0 || item[0] != '{' {
			return nil, fmt.Errorf("decode ledger: element %d is not an object", i)
		}
		var tx core.Transaction
		if err := json.Unmarshal(item, &tx); err != nil {
			return nil, fmt.Errorf("decode ledger element %d: %w", i, err)
		}
		txs = append(txs, tx)
	}
	return txs, nil
}

// Encode renders the ledger as an indented JSON array.
func Encode(txs []core.Transaction) ([]byte, error) {
	if txs == nil {
		txs = []core.Transaction{}
	}
	data, err := json.MarshalIndent(txs, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode ledger: %w", err)
	}
	return append(data, '\n'), nil
}

// NextID returns one past the highest ID in txs.
func NextID(txs []core.Transaction) int64 {
	var maxID int64
	for _, tx := range txs {
		if tx.ID > maxID {
			maxID = tx.ID
		}
	}
	return maxID + 1
}

// IndexOfID returns the position of the record carrying id, or -1.
func IndexOfID(txs []core.Transaction, id int64) int {
	if id <= 0 {
		return -1
	}
	for i, tx := range txs {
		if tx.ID == id {
			return i
		}
	}
	return -1
}

// RemoveIndex returns a new slice without element i. txs is not modified.
func RemoveIndex(txs []core.Transaction, i int) []core.Transaction {
	out := make([]core.Transaction, 0, len(txs)-1)
	out = append(out, txs[:i]...)
	return append(out, txs[i+1:]...)
}
