// Package jsonfile stores the ledger as one pretty-printed JSON array on disk.
//
// Every mutation is a load-modify-persist cycle with no locking of its own:
// concurrent writers through a Store may lose updates. Callers that need
// ordering go through ledger.Service, which serializes writes.
package jsonfile

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"sync/atomic"

	"tracker/internal/core"
	"tracker/internal/storage"
)

// Store keeps the highest ID it ever assigned in a sidecar file next to the
// ledger (see storage.LastIDPath), so removing the newest record never frees its ID
// for reuse, across restarts included.
type Store struct {
	path string
	seq  storage.Sequence

	// digest of the last content this store put on disk
	written atomic.Pointer[[sha256.Size]byte]
}

// New returns a store for path, creating its directory. The file itself is
// bootstrapped on first access.
func New(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("ledger file path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create ledger directory: %w", err)
	}
	return &Store{path: path}, nil
}

// Path returns the ledger file location.
func (s *Store) Path() string { return s.path }

// Wrote reports whether data is exactly the content this store last wrote.
// The file watcher uses it to tell external edits from the store's own.
func (s *Store) Wrote(data []byte) bool {
	last := s.written.Load()
	if last == nil {
		return false
	}
	return sha256.Sum256(data) == *last
}

func (s *Store) remember(data []byte) {
	sum := sha256.Sum256(data)
	s.written.Store(&sum)
}

func (s *Store) Load(ctx context.Context) ([]core.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	txs, err := s.read()
	return txs, core.Unavailable("load", err)
}

func (s *Store) Append(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return core.Transaction{}, err
	}
	txs, err := s.read()
	if err != nil {
		return core.Transaction{}, core.Unavailable("append", err)
	}

	last, err := storage.ReadLastID(s.path)
	if err != nil {
		return core.Transaction{}, core.Unavailable("append", err)
	}
	s.seq.Observe(last)
	tx.ID = s.seq.Next(txs)
	// The mark goes first: a crash between the two writes skips an ID
	// instead of reusing one.
	if err := s.writeLastID(tx.ID); err != nil {
		return core.Transaction{}, core.Unavailable("append", err)
	}

	next := make([]core.Transaction, 0, len(txs)+1)
	next = append(append(next, txs...), tx)
	if err := s.write(next); err != nil {
		return core.Transaction{}, core.Unavailable("append", err)
	}
	return tx, nil
}

func (s *Store) RemoveAt(ctx context.Context, index int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	txs, err := s.read()
	if err != nil {
		return core.Unavailable("remove", err)
	}
	if index < 0 || index >= len(txs) {
		return core.IndexNotFound(index)
	}
	return core.Unavailable("remove", s.write(storage.RemoveIndex(txs, index)))
}

func (s *Store) Remove(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	txs, err := s.read()
	if err != nil {
		return core.Unavailable("remove", err)
	}
	i := storage.IndexOfID(txs, id)
	if i < 0 {
		return core.IDNotFound(id)
	}
	return core.Unavailable("remove", s.write(storage.RemoveIndex(txs, i)))
}

// Replace overwrites the file with txs, IDs included.
func (s *Store) Replace(ctx context.Context, txs []core.Transaction) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.write(txs); err != nil {
		return core.Unavailable("replace", err)
	}
	s.seq.Observe(storage.MaxID(txs))
	return nil
}

func (s *Store) writeLastID(id int64) error {
	tmp, err := s.writeTemp([]byte(strconv.FormatInt(id, 10) + "\n"))
	if err != nil {
		return err
	}
	if err := os.Rename(tmp, storage.LastIDPath(s.path)); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace last id file: %w", err)
	}
	return nil
}

func (s *Store) read() ([]core.Transaction, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		if err := s.bootstrap(); err != nil {
			return nil, err
		}
		data, err = os.ReadFile(s.path)
	}
	if err != nil {
		return nil, fmt.Errorf("read ledger file: %w", err)
	}
	return storage.Decode(data)
}

// bootstrap creates an empty ledger unless one already exists. The file is
// linked into place so a concurrent reader never sees it half written.
func (s *Store) bootstrap() error {
	tmp, err := s.writeTemp(storage.EmptyLedger)
	if err != nil {
		return err
	}
	defer os.Remove(tmp)

	err = os.Link(tmp, s.path)
	switch {
	case err == nil:
		s.remember(storage.EmptyLedger)
		return nil
	case errors.Is(err, fs.ErrExist):
		return nil
	default:
		// Filesystems without hard links.
		f, err := os.OpenFile(s.path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("create ledger file: %w", err)
		}
		_, werr := f.Write(storage.EmptyLedger)
		if cerr := f.Close(); werr == nil {
			werr = cerr
		}
		if werr == nil {
			s.remember(storage.EmptyLedger)
		}
		return werr
	}
}

// write replaces the ledger atomically: readers see the old or the new
// content, never a torn file.
func (s *Store) write(txs []core.Transaction) error {
	data, err := storage.Encode(txs)
	if err != nil {
		return err
	}
	tmp, err := s.writeTemp(data)
	if err != nil {
		return err
	}
	// Remembered before the rename so a watcher woken by it already knows,
	// and forgotten again if the content never reaches the ledger path.
	prev := s.written.Load()
	s.remember(data)
	if err := os.Rename(tmp, s.path); err != nil {
		s.written.Store(prev)
		os.Remove(tmp)
		return fmt.Errorf("replace ledger file: %w", err)
	}
	return nil
}

func (s *Store) writeTemp(data []byte) (string, error) {
	f, err := os.CreateTemp(filepath.Dir(s.path), "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	name := f.Name()

	_, err = f.Write(data)
	if err == nil {
		err = f.Sync()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = os.Chmod(name, 0o644)
	}
	if err != nil {
		os.Remove(name)
		return "", fmt.Errorf("write temp file: %w", err)
	}
	return name, nil
}
