package storage

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
)

// Store is a thin pebble wrapper shared by the nonce ledger, the order book,
// receipts and the event log. Values are JSON unless a caller stores raw
// bytes. Callers serialize their own writes.
type Store struct {
	db *pebble.DB
}

// Open opens a pebble database at path.
func Open(path string) (*Store, error) {
	opts := &pebble.Options{
		Cache:                    pebble.NewCache(64 << 20),
		MemTableSize:             32 << 20,
		MaxConcurrentCompactions: func() int { return 2 },
		L0CompactionThreshold:    2,
		L0StopWritesThreshold:    12,
		LBaseMaxBytes:            64 << 20,
		MaxOpenFiles:             1000,
		BytesPerSync:             512 << 10,
	}
	db, err := pebble.Open(path, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open pebble db at %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

// OpenInMemory opens a store backed by an in-memory filesystem.
func OpenInMemory() (*Store, error) {
	db, err := pebble.Open("", &pebble.Options{FS: vfs.NewMem()})
	if err != nil {
		return nil, fmt.Errorf("failed to open in-memory pebble db: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Get returns a copy of the value at key. A missing key is (nil, false, nil).
func (s *Store) Get(key []byte) ([]byte, bool, error) {
	val, closer, err := s.db.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get %q: %w", key, err)
	}
	defer closer.Close()
	return append([]byte(nil), val...), true, nil
}

func (s *Store) Set(key, val []byte) error {
	if err := s.db.Set(key, val, pebble.Sync); err != nil {
		return fmt.Errorf("failed to set %q: %w", key, err)
	}
	return nil
}

func (s *Store) Delete(key []byte) error {
	if err := s.db.Delete(key, pebble.Sync); err != nil {
		return fmt.Errorf("failed to delete %q: %w", key, err)
	}
	return nil
}

// GetJSON decodes the value at key into v and reports whether it existed.
func (s *Store) GetJSON(key []byte, v any) (bool, error) {
	data, ok, err := s.Get(key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("failed to unmarshal %q: %w", key, err)
	}
	return true, nil
}

func (s *Store) SetJSON(key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %q: %w", key, err)
	}
	return s.Set(key, data)
}

// Scan calls fn for every key with the given prefix in ascending order until
// fn returns false. Key and value are only valid during the call.
func (s *Store) Scan(prefix []byte, fn func(key, val []byte) bool) error {
	return s.scan(prefix, false, fn)
}

// ScanReverse is Scan in descending key order.
func (s *Store) ScanReverse(prefix []byte, fn func(key, val []byte) bool) error {
	return s.scan(prefix, true, fn)
}

// ScanFrom is Scan starting at the first key >= from inside prefix.
func (s *Store) ScanFrom(prefix, from []byte, fn func(key, val []byte) bool) error {
	return s.iterate(from, KeyUpperBound(prefix), false, fn)
}

func (s *Store) scan(prefix []byte, reverse bool, fn func(key, val []byte) bool) error {
	return s.iterate(prefix, KeyUpperBound(prefix), reverse, fn)
}

func (s *Store) iterate(lower, upper []byte, reverse bool, fn func(key, val []byte) bool) error {
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: lower,
		UpperBound: upper,
	})
	if err != nil {
		return fmt.Errorf("failed to create iterator: %w", err)
	}
	defer iter.Close()

	if reverse {
		for iter.Last(); iter.Valid(); iter.Prev() {
			if !fn(iter.Key(), iter.Value()) {
				break
			}
		}
	} else {
		for iter.First(); iter.Valid(); iter.Next() {
			if !fn(iter.Key(), iter.Value()) {
				break
			}
		}
	}
	return iter.Error()
}

// Batch groups writes that must land together.
type Batch struct {
	b   *pebble.Batch
	err error
}

func (s *Store) NewBatch() *Batch {
	return &Batch{b: s.db.NewBatch()}
}

func (b *Batch) Set(key, val []byte) {
	if b.err == nil {
		b.err = b.b.Set(key, val, nil)
	}
}

func (b *Batch) SetJSON(key []byte, v any) {
	if b.err != nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		b.err = fmt.Errorf("failed to marshal %q: %w", key, err)
		return
	}
	b.Set(key, data)
}

func (b *Batch) Delete(key []byte) {
	if b.err == nil {
		b.err = b.b.Delete(key, nil)
	}
}

// Commit writes the batch durably. The first error recorded while building
// the batch is returned instead and nothing is written.
func (b *Batch) Commit() error {
	defer b.b.Close()
	if b.err != nil {
		return b.err
	}
	if err := b.b.Commit(pebble.Sync); err != nil {
		return fmt.Errorf("failed to commit batch: %w", err)
	}
	return nil
}
