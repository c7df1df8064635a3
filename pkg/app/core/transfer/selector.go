package transfer

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/uhyunpark/mintedexchange/pkg/app/core/errs"
	"github.com/uhyunpark/mintedexchange/pkg/app/core/state"
)

var (
	ErrNullCollection = errs.New(errs.Structural, "Owner: Collection cannot be null address")
	ErrNullManager    = errs.New(errs.Structural, "Owner: TransferManager cannot be null address")
	ErrUnknownManager = errs.New(errs.Configuration, "Owner: TransferManager is not registered")
	ErrNoOverride     = errs.New(errs.Configuration, "Owner: Collection has no transfer manager")
	ErrNoManager      = errs.New(errs.Ineligible, "Transfer: No NFT transfer manager available")
)

// Selector resolves the transfer manager for a collection: a per-collection
// override first, then by advertised interface.
type Selector struct {
	assets       Assets
	erc721       Manager
	erc1155      Manager
	nonCompliant Manager

	mu        sync.RWMutex
	overrides map[common.Address]Manager
	known     map[common.Address]Manager
}

// NewSelector wires the three standard managers. nonCompliant may be nil, in
// which case collections advertising no interface have no manager.
func NewSelector(assets Assets, erc721, erc1155, nonCompliant Manager) *Selector {
	s := &Selector{
		assets:       assets,
		erc721:       erc721,
		erc1155:      erc1155,
		nonCompliant: nonCompliant,
		overrides:    make(map[common.Address]Manager),
		known:        make(map[common.Address]Manager),
	}
	for _, m := range []Manager{erc721, erc1155, nonCompliant} {
		if m != nil {
			s.known[m.Address()] = m
		}
	}
	return s
}

// Register makes m addressable by AddCollectionTransferManager.
func (s *Selector) Register(m Manager) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.known[m.Address()] = m
}

// Manager returns a registered manager by address.
func (s *Selector) Manager(addr common.Address) (Manager, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.known[addr]
	return m, ok
}

func (s *Selector) AddCollectionTransferManager(collection, managerAddr common.Address) error {
	if collection == (common.Address{}) {
		return ErrNullCollection
	}
	if managerAddr == (common.Address{}) {
		return ErrNullManager
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.known[managerAddr]
	if !ok {
		return ErrUnknownManager.With("%s", managerAddr.Hex())
	}
	s.overrides[collection] = m
	return nil
}

func (s *Selector) RemoveCollectionTransferManager(collection common.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.overrides[collection]; !ok {
		return ErrNoOverride
	}
	delete(s.overrides, collection)
	return nil
}

// TransferManagerForCollection returns the override, or the zero address.
func (s *Selector) TransferManagerForCollection(collection common.Address) common.Address {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if m, ok := s.overrides[collection]; ok {
		return m.Address()
	}
	return common.Address{}
}

// Overrides returns a copy of the per-collection manager overrides.
func (s *Selector) Overrides() map[common.Address]common.Address {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[common.Address]common.Address, len(s.overrides))
	for c, m := range s.overrides {
		out[c] = m.Address()
	}
	return out
}

// CheckTransferManagerForToken picks the manager for collection. ERC1155 wins
// when a collection advertises both interfaces.
func (s *Selector) CheckTransferManagerForToken(collection common.Address) (Manager, error) {
	s.mu.RLock()
	m, ok := s.overrides[collection]
	s.mu.RUnlock()
	if ok {
		return m, nil
	}

	switch {
	case s.erc1155 != nil && s.assets.SupportsInterface(collection, state.ERC1155):
		return s.erc1155, nil
	case s.erc721 != nil && s.assets.SupportsInterface(collection, state.ERC721):
		return s.erc721, nil
	case s.nonCompliant != nil:
		return s.nonCompliant, nil
	}
	return nil, ErrNoManager.With("collection %s", collection.Hex())
}
