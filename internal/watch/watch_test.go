package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alecthomas/assert/v2"

	"tracker/internal/core"
	"tracker/internal/storage/jsonfile"
)

type countingNotifier struct {
	calls atomic.Int32
	ch    chan struct{}
}

func newCountingNotifier() *countingNotifier {
	return &countingNotifier{ch: make(chan struct{}, 16)}
}

func (n *countingNotifier) NotifyChanged(context.Context) {
	n.calls.Add(1)
	n.ch <- struct{}{}
}

func (n *countingNotifier) wait(t *testing.T) {
	t.Helper()
	select {
	case <-n.ch:
	case <-time.After(3 * time.Second):
		t.Fatal("no change notification")
	}
}

func (n *countingNotifier) expectNone(t *testing.T, within time.Duration) {
	t.Helper()
	select {
	case <-n.ch:
		t.Fatal("unexpected change notification")
	case <-time.After(within):
	}
}

func startWatcher(t *testing.T, path string, n Notifier, opts ...Option) {
	t.Helper()
	w, err := New(path, n, opts...)
	assert.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		assert.NoError(t, <-done)
	})
}

func TestExternalEditIsReported(t *testing.T) {
	path := filepath.Join(t.TempDir(), "transactions.json")
	n := newCountingNotifier()
	startWatcher(t, path, n)

	assert.NoError(t, os.WriteFile(path, []byte("[]\n"), 0o644))
	n.wait(t)
}

func TestBurstIsDebounced(t *testing.T) {
	path := filepath.Join(t.TempDir(), "transactions.json")
	n := newCountingNotifier()
	startWatcher(t, path, n, WithDebounce(200*time.Millisecond))

	for i := 0; i < 5; i++ {
		assert.NoError(t, os.WriteFile(path, []byte("[]\n"), 0o644))
	}
	n.wait(t)
	n.expectNone(t, 400*time.Millisecond)
	assert.Equal(t, int32(1), n.calls.Load())
}

func TestOtherFilesAreIgnored(t *testing.T) {
	dir := t.TempDir()
	n := newCountingNotifier()
	startWatcher(t, filepath.Join(dir, "transactions.json"), n)

	assert.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hi"), 0o644))
	n.expectNone(t, 300*time.Millisecond)
}

func TestOwnWritesAreIgnored(t *testing.T) {
	path := filepath.Join(t.TempDir(), "transactions.json")
	store, err := jsonfile.New(path)
	assert.NoError(t, err)

	n := newCountingNotifier()
	startWatcher(t, path, n, WithIgnore(store.Wrote))

	_, err = store.Append(context.Background(), core.Transaction{
		Description: "Tea", Amount: -2, Date: "2024-03-01", Category: "Food",
	})
	assert.NoError(t, err)
	n.expectNone(t, 400*time.Millisecond)

	assert.NoError(t, os.WriteFile(path, []byte("[]\n"), 0o644))
	n.wait(t)
}
