package storage

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// WALRecord is one applied transaction as journaled by the sequencer.
type WALRecord struct {
	Height uint64      `json:"height"`
	TxHash common.Hash `json:"txHash"`
	Type   string      `json:"type"`
	Status string      `json:"status"`
}

// WAL is an append-only journal of applied transactions.
type WAL interface {
	Append(rec WALRecord) error
}

type NopWAL struct{}

func NewNopWAL() *NopWAL                   { return &NopWAL{} }
func (w *NopWAL) Append(_ WALRecord) error { return nil }

// FileWAL writes one JSON record per line.
type FileWAL struct {
	mu  sync.Mutex
	f   *os.File
	enc *json.Encoder
}

func NewFileWAL(path string) (*FileWAL, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open wal %s: %w", path, err)
	}
	return &FileWAL{f: f, enc: json.NewEncoder(f)}, nil
}

func (w *FileWAL) Append(rec WALRecord) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.enc.Encode(rec)
}

func (w *FileWAL) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.f.Close()
}

// ReadWAL returns every record in the journal at path, oldest first.
func ReadWAL(path string) ([]WALRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []WALRecord
	sc := bufio.NewScanner(f)
	for line := 1; sc.Scan(); line++ {
		var rec WALRecord
		if err := json.Unmarshal(sc.Bytes(), &rec); err != nil {
			return out, fmt.Errorf("wal line %d: %w", line, err)
		}
		out = append(out, rec)
	}
	return out, sc.Err()
}

var _ WAL = (*NopWAL)(nil)
var _ WAL = (*FileWAL)(nil)
