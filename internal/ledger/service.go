// Package ledger orchestrates the ledger store, the aggregation engine and
// event publication. Handlers and commands talk to Service, never to a Store
// directly.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"tracker/internal/aggregate"
	"tracker/internal/core"
	"tracker/internal/log"
)

const defaultQueueSize = 64

// Service serializes mutations, coalesces concurrent snapshot loads and
// publishes an event after every successful mutation.
type Service struct {
	store     Store
	publisher Publisher
	logger    *log.Logger
	writer    *writer

	loads singleflight.Group
	// generation changes on every mutation so a load started before a write
	// is never shared with a caller that arrives after it.
	generation atomic.Uint64
}

// Option configures a Service.
type Option func(*serviceOptions)

type serviceOptions struct {
	serialize bool
	queueSize int
	publisher Publisher
	logger    *log.Logger
}

// WithSerializedWrites toggles the single-writer queue. It is on by default;
// turning it off exposes the store's own, possibly racy, behavior.
func WithSerializedWrites(on bool) Option {
	return func(o *serviceOptions) { o.serialize = on }
}

// WithQueueSize sets how many mutations may wait for the writer.
func WithQueueSize(n int) Option {
	return func(o *serviceOptions) { o.queueSize = n }
}

// WithPublisher sets where mutation events go.
func WithPublisher(p Publisher) Option {
	return func(o *serviceOptions) { o.publisher = p }
}

// WithLogger sets the service logger.
func WithLogger(l *log.Logger) Option {
	return func(o *serviceOptions) { o.logger = l }
}

func NewService(store Store, opts ...Option) *Service {
	o := serviceOptions{serialize: true, queueSize: defaultQueueSize}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = log.New(log.DefaultConfig())
	}

	s := &Service{
		store:     store,
		publisher: o.publisher,
		logger:    o.logger.WithComponent(log.ComponentLedger),
	}
	if o.serialize {
		s.writer = newWriter(o.queueSize)
	}
	return s
}

// Serialized reports whether mutations go through the single-writer queue.
func (s *Service) Serialized() bool { return s.writer != nil }

// Snapshot loads the full ledger. Concurrent callers share one load and each
// receives its own copy.
func (s *Service) Snapshot(ctx context.Context) ([]core.Transaction, error) {
	key := strconv.FormatUint(s.generation.Load(), 10)
	v, err, _ := s.loads.Do(key, func() (any, error) {
		// Shared by every waiting caller, so one caller's cancellation
		// must not fail the others.
		return s.store.Load(context.WithoutCancel(ctx))
	})
	if err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}
	txs := v.([]core.Transaction)
	if txs == nil {
		return []core.Transaction{}, nil
	}
	return slices.Clone(txs), nil
}

// Append validates tx and stores it at the end of the ledger.
func (s *Service) Append(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	tx = tx.Normalize()
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}

	var stored core.Transaction
	err := s.mutate(ctx, func(ctx context.Context) error {
		var err error
		stored, err = s.store.Append(ctx, tx)
		return err
	})
	if err != nil {
		return core.Transaction{}, fmt.Errorf("append transaction: %w", err)
	}

	s.logger.InfoContext(ctx, "Transaction appended",
		log.FieldTxID, stored.ID,
		log.FieldDescription, stored.Description,
		log.FieldAmount, stored.Amount,
		log.FieldCategory, stored.Category)
	s.publish(ctx, EventAppended, stored.ID, -1)
	return stored, nil
}

// RemoveAt deletes the record at index of the current ledger.
func (s *Service) RemoveAt(ctx context.Context, index int) error {
	if index < 0 {
		return core.IndexNotFound(index)
	}
	err := s.mutate(ctx, func(ctx context.Context) error {
		return s.store.RemoveAt(ctx, index)
	})
	if err != nil {
		return fmt.Errorf("remove transaction at %d: %w", index, err)
	}

	s.logger.InfoContext(ctx, "Transaction removed", log.FieldIndex, index)
	s.publish(ctx, EventRemoved, 0, index)
	return nil
}

// Remove deletes the record carrying id.
func (s *Service) Remove(ctx context.Context, id int64) error {
	if id <= 0 {
		return core.IDNotFound(id)
	}
	err := s.mutate(ctx, func(ctx context.Context) error {
		return s.store.Remove(ctx, id)
	})
	if err != nil {
		return fmt.Errorf("remove transaction %d: %w", id, err)
	}

	s.logger.InfoContext(ctx, "Transaction removed", log.FieldTxID, id)
	s.publish(ctx, EventRemoved, id, -1)
	return nil
}

// CategoryTotals sums the current ledger per category.
func (s *Service) CategoryTotals(ctx context.Context) (map[string]float64, error) {
	txs, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return aggregate.CategoryTotals(txs), nil
}

// MonthlyBalance reports count and balance for one month.
func (s *Service) MonthlyBalance(ctx context.Context, year, month int) (aggregate.Balance, error) {
	txs, err := s.Snapshot(ctx)
	if err != nil {
		return aggregate.Balance{}, err
	}
	return aggregate.MonthlyBalance(txs, year, month)
}

// YearlyTrend reports twelve monthly totals and their trend line.
func (s *Service) YearlyTrend(ctx context.Context, year int) (aggregate.Trend, error) {
	txs, err := s.Snapshot(ctx)
	if err != nil {
		return aggregate.Trend{}, err
	}
	return aggregate.YearlyTrend(txs, year)
}

// Summary totals the whole ledger.
func (s *Service) Summary(ctx context.Context) (aggregate.Summary, error) {
	txs, err := s.Snapshot(ctx)
	if err != nil {
		return aggregate.Summary{}, err
	}
	return aggregate.Summarize(txs), nil
}

// NotifyChanged publishes a change event for edits made outside the service.
func (s *Service) NotifyChanged(ctx context.Context) {
	s.generation.Add(1)
	s.publish(ctx, EventChanged, 0, -1)
}

// Close drains queued mutations and releases the store and publisher.
func (s *Service) Close() error {
	if s.writer != nil {
		s.writer.close()
	}

	var errs []error
	if c, ok := s.store.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("store: %w", err))
		}
	}
	if c, ok := s.publisher.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("publisher: %w", err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("close ledger service: %w", err)
	}
	return nil
}

func (s *Service) mutate(ctx context.Context, fn func(context.Context) error) error {
	defer s.generation.Add(1)
	if s.writer == nil {
		return fn(ctx)
	}
	return s.writer.do(ctx, fn)
}

func (s *Service) publish(ctx context.Context, kind string, id int64, index int) {
	if s.publisher == nil {
		return
	}
	// Mutation already succeeded; a lost event only delays mirrors.
	if err := s.publisher.PublishLedgerEvent(ctx, kind, id, index); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish ledger event",
			log.FieldEventKind, kind,
			log.FieldTxID, id,
			log.FieldIndex, index,
			log.FieldError, err)
	}
}
