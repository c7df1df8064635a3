// Package transfer moves assets on behalf of the exchange. Each token
// standard has its own manager; the selector picks one per collection.
package transfer

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/uhyunpark/mintedexchange/pkg/app/core/errs"
	"github.com/uhyunpark/mintedexchange/pkg/app/core/state"
)

var ErrOnlyExchange = errs.New(errs.Authorization, "Transfer: Only Minted Exchange")

// Assets is the token layer the managers drive.
type Assets interface {
	TransferFrom(collection, operator, from, to common.Address, tokenID *big.Int) error
	SafeTransferFrom721(collection, operator, from, to common.Address, tokenID *big.Int) error
	SafeTransferFrom1155(collection, operator, from, to common.Address, id, amount *big.Int) error
	SupportsInterface(collection common.Address, std state.Standard) bool
}

// Manager moves one token standard. The manager's own address is the
// operator, so holders approve the manager rather than the exchange.
type Manager interface {
	Address() common.Address
	TransferNonFungibleToken(caller, collection, from, to common.Address, tokenID, amount *big.Int) error
}

type manager struct {
	address  common.Address
	exchange common.Address
	assets   Assets
}

func (m manager) Address() common.Address { return m.address }

func (m manager) checkCaller(caller common.Address) error {
	if caller != m.exchange {
		return ErrOnlyExchange
	}
	return nil
}

// ERC721Manager uses safeTransferFrom, so the collection must advertise
// ERC721 and the recipient must accept tokens. The amount is ignored.
type ERC721Manager struct{ manager }

func NewERC721Manager(addr, exchange common.Address, assets Assets) *ERC721Manager {
	return &ERC721Manager{manager{addr, exchange, assets}}
}

func (m *ERC721Manager) TransferNonFungibleToken(caller, collection, from, to common.Address, tokenID, _ *big.Int) error {
	if err := m.checkCaller(caller); err != nil {
		return err
	}
	return m.assets.SafeTransferFrom721(collection, m.address, from, to, tokenID)
}

// ERC1155Manager moves amount units of the token.
type ERC1155Manager struct{ manager }

func NewERC1155Manager(addr, exchange common.Address, assets Assets) *ERC1155Manager {
	return &ERC1155Manager{manager{addr, exchange, assets}}
}

func (m *ERC1155Manager) TransferNonFungibleToken(caller, collection, from, to common.Address, tokenID, amount *big.Int) error {
	if err := m.checkCaller(caller); err != nil {
		return err
	}
	return m.assets.SafeTransferFrom1155(collection, m.address, from, to, tokenID, amount)
}

// NonCompliantERC721Manager serves ERC721 collections that do not advertise
// the interface, through plain transferFrom. It skips the recipient check.
type NonCompliantERC721Manager struct{ manager }

func NewNonCompliantERC721Manager(addr, exchange common.Address, assets Assets) *NonCompliantERC721Manager {
	return &NonCompliantERC721Manager{manager{addr, exchange, assets}}
}

func (m *NonCompliantERC721Manager) TransferNonFungibleToken(caller, collection, from, to common.Address, tokenID, _ *big.Int) error {
	if err := m.checkCaller(caller); err != nil {
		return err
	}
	return m.assets.TransferFrom(collection, m.address, from, to, tokenID)
}
