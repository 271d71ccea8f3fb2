// Package worker mirrors the primary ledger into a secondary store, usually
// a Google Sheets tab. Every ledger event triggers a full resync; a cron
// schedule and a startup pass catch up on events lost while the worker or
// the broker was down.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"tracker/internal/amqp"
	"tracker/internal/core"
	"tracker/internal/ledger"
	"tracker/internal/log"
)

// Source is the ledger being mirrored.
type Source interface {
	Snapshot(ctx context.Context) ([]core.Transaction, error)
}

// EventSource delivers ledger events until ctx is done.
type EventSource interface {
	ConsumeLedgerEvents(ctx context.Context, handler func(context.Context, *amqp.LedgerEventMessage) error) error
}

// SyncWorker copies the ledger from Source to a mirror.
type SyncWorker struct {
	source Source
	mirror ledger.Replacer
	logger *log.Logger

	// mu keeps concurrent syncs from interleaving their writes to the mirror.
	mu       sync.Mutex
	syncs    atomic.Int64
	failures atomic.Int64
	lastSync atomic.Int64
}

func NewSyncWorker(source Source, mirror ledger.Replacer, logger *log.Logger) *SyncWorker {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &SyncWorker{
		source: source,
		mirror: mirror,
		logger: logger.WithComponent(log.ComponentWorker),
	}
}

// Sync replaces the mirror content with the current ledger.
func (w *SyncWorker) Sync(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	txs, err := w.source.Snapshot(ctx)
	if err != nil {
		w.failures.Add(1)
		return fmt.Errorf("load ledger: %w", err)
	}
	if err := w.mirror.Replace(ctx, txs); err != nil {
		w.failures.Add(1)
		return fmt.Errorf("replace mirror: %w", err)
	}

	w.syncs.Add(1)
	w.lastSync.Store(time.Now().UnixNano())
	w.logger.InfoContext(ctx, "Mirror synced", log.FieldCount, len(txs))
	return nil
}

// HandleLedgerEvent resyncs the mirror after a ledger event. An error makes
// the consumer requeue the event.
func (w *SyncWorker) HandleLedgerEvent(ctx context.Context, msg *amqp.LedgerEventMessage) error {
	w.logger.InfoContext(ctx, "Processing ledger event",
		log.FieldEventKind, msg.Kind,
		log.FieldTxID, msg.ID,
		log.FieldIndex, msg.Index)

	if err := w.Sync(ctx); err != nil {
		return fmt.Errorf("sync after %s event: %w", msg.Kind, err)
	}
	return nil
}

// StartupSync brings the mirror up to date before events are consumed.
func (w *SyncWorker) StartupSync(ctx context.Context) error {
	w.logger.InfoContext(ctx, "Running startup sync")
	if err := w.Sync(ctx); err != nil {
		return fmt.Errorf("startup sync: %w", err)
	}
	return nil
}

// Run performs a startup sync, schedules periodic resyncs and consumes
// events until ctx is done. A nil events source leaves only the schedule.
// Sync failures are logged; the next event or tick retries.
func (w *SyncWorker) Run(ctx context.Context, events EventSource, schedule string) error {
	if err := w.StartupSync(ctx); err != nil {
		w.logger.ErrorContext(ctx, "Startup sync failed", log.FieldError, err)
	}

	c := cron.New()
	if schedule != "" {
		_, err := c.AddFunc(schedule, func() {
			if err := w.Sync(ctx); err != nil {
				w.logger.ErrorContext(ctx, "Scheduled sync failed", log.FieldError, err)
			}
		})
		if err != nil {
			return fmt.Errorf("schedule %q: %w", schedule, err)
		}
	}
	c.Start()
	defer func() { <-c.Stop().Done() }()

	w.logger.InfoContext(ctx, "Mirror worker started", "schedule", schedule)

	if events == nil {
		<-ctx.Done()
		return nil
	}
	err := events.ConsumeLedgerEvents(ctx, w.HandleLedgerEvent)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("consume ledger events: %w", err)
	}
	return nil
}

// Stats reports sync counters for health output.
type Stats struct {
	Syncs    int64
	Failures int64
	LastSync time.Time
}

func (w *SyncWorker) Stats() Stats {
	s := Stats{Syncs: w.syncs.Load(), Failures: w.failures.Load()}
	if ns := w.lastSync.Load(); ns != 0 {
		s.LastSync = time.Unix(0, ns)
	}
	return s
}
