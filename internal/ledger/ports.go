package ledger

import (
	"context"

	"tracker/internal/core"
)

// Event kinds published after a successful mutation.
const (
	EventAppended = "appended"
	EventRemoved  = "removed"
	EventChanged  = "changed"
)

// Ports for ledger adapters.
type (
	// Store is the durable, ordered collection of transactions.
	//
	// Load bootstraps an empty ledger on first access and never overwrites an
	// existing one. Append returns the stored record, with its ID assigned.
	// RemoveAt addresses a record by its position in the current sequence,
	// Remove by its stable ID. Failures are core.ValidationError,
	// core.ErrNotFound or core.ErrStorageUnavailable.
	Store interface {
		Load(ctx context.Context) ([]core.Transaction, error)
		Append(ctx context.Context, tx core.Transaction) (core.Transaction, error)
		RemoveAt(ctx context.Context, index int) error
		Remove(ctx context.Context, id int64) error
	}

	// Replacer overwrites the whole ledger. Mirrors implement it.
	Replacer interface {
		Replace(ctx context.Context, txs []core.Transaction) error
	}

	// Publisher announces ledger mutations to other processes.
	Publisher interface {
		PublishLedgerEvent(ctx context.Context, kind string, id int64, index int) error
	}
)
