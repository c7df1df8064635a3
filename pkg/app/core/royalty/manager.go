package royalty

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Manager answers the royalty question for a sale.
type Manager struct {
	registry    *Registry
	collections Collections
}

func NewManager(registry *Registry, collections Collections) *Manager {
	return &Manager{registry: registry, collections: collections}
}

func (m *Manager) Registry() *Registry { return m.registry }

// CalculateRoyaltyFeeAndGetRecipient prefers the collection's own ERC2981
// declaration and falls back to the registry. Amounts are floored. A zero
// receiver means no royalty is due.
func (m *Manager) CalculateRoyaltyFeeAndGetRecipient(collection common.Address, tokenID, price *big.Int) (common.Address, *big.Int) {
	if receiver, amount, ok := m.collections.RoyaltyInfo(collection, tokenID, price); ok {
		return receiver, amount
	}
	return m.registry.RoyaltyInfo(collection, price)
}
