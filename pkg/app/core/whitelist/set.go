// Package whitelist keeps the currencies and strategies the exchange accepts.
package whitelist

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// Set is an ordered address set. Removal moves the last member into the
// freed slot, so order is insertion order until the first removal.
type Set struct {
	mu      sync.RWMutex
	members []common.Address
	index   map[common.Address]int
}

func NewSet() *Set {
	return &Set{index: make(map[common.Address]int)}
}

// Add reports false if addr is already a member.
func (s *Set) Add(addr common.Address) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.index[addr]; ok {
		return false
	}
	s.index[addr] = len(s.members)
	s.members = append(s.members, addr)
	return true
}

// Remove reports false if addr is not a member.
func (s *Set) Remove(addr common.Address) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.index[addr]
	if !ok {
		return false
	}
	last := len(s.members) - 1
	if i != last {
		moved := s.members[last]
		s.members[i] = moved
		s.index[moved] = i
	}
	s.members = s.members[:last]
	delete(s.index, addr)
	return true
}

func (s *Set) Contains(addr common.Address) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.index[addr]
	return ok
}

func (s *Set) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.members)
}

// View returns up to size members starting at cursor and the cursor of the
// next page. A cursor past the end yields an empty page.
func (s *Set) View(cursor, size int) ([]common.Address, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if cursor < 0 {
		cursor = 0
	}
	if cursor >= len(s.members) || size <= 0 {
		return []common.Address{}, cursor
	}
	end := cursor + size
	if end > len(s.members) {
		end = len(s.members)
	}
	page := make([]common.Address, end-cursor)
	copy(page, s.members[cursor:end])
	return page, end
}
