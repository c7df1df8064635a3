package storage

import (
	"encoding/binary"
	"fmt"
)

func EncodeUint64(v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return b[:]
}

func DecodeUint64(b []byte) (uint64, error) {
	if len(b) != 8 {
		return 0, fmt.Errorf("expected 8 bytes, got %d", len(b))
	}
	return binary.BigEndian.Uint64(b), nil
}

// GetUint64 reads a big-endian counter, returning 0 for a missing key.
func (s *Store) GetUint64(key []byte) (uint64, error) {
	val, ok, err := s.Get(key)
	if err != nil || !ok {
		return 0, err
	}
	return DecodeUint64(val)
}
