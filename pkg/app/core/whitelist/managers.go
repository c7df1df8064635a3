package whitelist

import (
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/uhyunpark/mintedexchange/pkg/app/core/errs"
	"github.com/uhyunpark/mintedexchange/pkg/app/core/strategy"
)

var (
	ErrCurrencyAlreadyWhitelisted = errs.New(errs.Configuration, "Currency: Already whitelisted")
	ErrCurrencyNotWhitelisted     = errs.New(errs.Authorization, "Currency: Not whitelisted")
	ErrStrategyAlreadyWhitelisted = errs.New(errs.Configuration, "Strategy: Already whitelisted")
	ErrStrategyNotWhitelisted     = errs.New(errs.Authorization, "Strategy: Not whitelisted")
)

// CurrencyManager holds the settlement currencies.
type CurrencyManager struct {
	set *Set
}

func NewCurrencyManager() *CurrencyManager {
	return &CurrencyManager{set: NewSet()}
}

func (m *CurrencyManager) AddCurrency(currency common.Address) error {
	if !m.set.Add(currency) {
		return ErrCurrencyAlreadyWhitelisted
	}
	return nil
}

func (m *CurrencyManager) RemoveCurrency(currency common.Address) error {
	if !m.set.Remove(currency) {
		return ErrCurrencyNotWhitelisted
	}
	return nil
}

func (m *CurrencyManager) IsCurrencyWhitelisted(currency common.Address) bool {
	return m.set.Contains(currency)
}

func (m *CurrencyManager) WhitelistedCurrencyCount() int { return m.set.Count() }

func (m *CurrencyManager) ViewWhitelistedCurrencies(cursor, size int) ([]common.Address, int) {
	return m.set.View(cursor, size)
}

// ExecutionManager holds the whitelisted strategies and resolves a strategy
// address to its implementation.
type ExecutionManager struct {
	set *Set

	mu    sync.RWMutex
	impls map[common.Address]strategy.Strategy
}

func NewExecutionManager() *ExecutionManager {
	return &ExecutionManager{
		set:   NewSet(),
		impls: make(map[common.Address]strategy.Strategy),
	}
}

func (m *ExecutionManager) AddStrategy(s strategy.Strategy) error {
	if !m.set.Add(s.Address()) {
		return ErrStrategyAlreadyWhitelisted
	}
	m.mu.Lock()
	m.impls[s.Address()] = s
	m.mu.Unlock()
	return nil
}

// RemoveStrategy drops the strategy from the whitelist. Its implementation
// stays resolvable so it can be whitelisted again by address.
func (m *ExecutionManager) RemoveStrategy(addr common.Address) error {
	if !m.set.Remove(addr) {
		return ErrStrategyNotWhitelisted
	}
	return nil
}

// Register makes an implementation resolvable without whitelisting it.
func (m *ExecutionManager) Register(s strategy.Strategy) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.impls[s.Address()] = s
}

// Whitelist re-adds a registered strategy by address.
func (m *ExecutionManager) Whitelist(addr common.Address) error {
	m.mu.RLock()
	s, ok := m.impls[addr]
	m.mu.RUnlock()
	if !ok {
		return ErrStrategyNotWhitelisted.With("unknown strategy %s", addr.Hex())
	}
	return m.AddStrategy(s)
}

func (m *ExecutionManager) IsStrategyWhitelisted(addr common.Address) bool {
	return m.set.Contains(addr)
}

// Strategy returns the whitelisted implementation at addr.
func (m *ExecutionManager) Strategy(addr common.Address) (strategy.Strategy, bool) {
	if !m.set.Contains(addr) {
		return nil, false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.impls[addr]
	return s, ok
}

// Lookup returns a registered implementation whether or not it is
// whitelisted.
func (m *ExecutionManager) Lookup(addr common.Address) (strategy.Strategy, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.impls[addr]
	return s, ok
}

// Registered returns every known implementation sorted by address.
func (m *ExecutionManager) Registered() []strategy.Strategy {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]strategy.Strategy, 0, len(m.impls))
	for _, s := range m.impls {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Address().Hex() < out[j].Address().Hex() })
	return out
}

func (m *ExecutionManager) WhitelistedStrategyCount() int { return m.set.Count() }

func (m *ExecutionManager) ViewWhitelistedStrategies(cursor, size int) ([]common.Address, int) {
	return m.set.View(cursor, size)
}
