package http

import (
	"time"

	"golang.org/x/sync/singleflight"

	"tracker/internal/cache"
	"tracker/internal/core"
)

// HeaderIdempotencyKey lets clients retry a POST without appending twice.
const HeaderIdempotencyKey = "Idempotency-Key"

const (
	idempotencyTTL     = 10 * time.Minute
	idempotencyEntries = 1024
	maxIdempotencyKey  = 255
)

// idempotency remembers the record each key produced. Concurrent requests
// with the same key share one append.
type idempotency struct {
	results  *cache.LRUCache[core.Transaction]
	inflight singleflight.Group
}

func newIdempotency() *idempotency {
	return &idempotency{results: cache.NewLRUCache[core.Transaction](idempotencyEntries, idempotencyTTL)}
}

// do runs fn once per key within the TTL. Failed attempts are not
// remembered so the client may retry them. Only the caller whose fn ran gets
// replayed=false; callers that waited on it or hit the cache are replays.
func (i *idempotency) do(key string, fn func() (core.Transaction, error)) (core.Transaction, bool, error) {
	if tx, ok := i.results.Get(key); ok {
		return tx, true, nil
	}
	ran := false
	v, err, _ := i.inflight.Do(key, func() (any, error) {
		if tx, ok := i.results.Get(key); ok {
			return tx, nil
		}
		ran = true
		tx, err := fn()
		if err != nil {
			return nil, err
		}
		i.results.Set(key, tx)
		return tx, nil
	})
	if err != nil {
		return core.Transaction{}, false, err
	}
	return v.(core.Transaction), !ran, nil
}
