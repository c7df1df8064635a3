package exchange

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/uhyunpark/mintedexchange/pkg/app/core/access"
)

type auctionLengthGetter interface {
	MinimumAuctionLength() uint64
}

// Settings is the mutable administrative state of the exchange: everything
// the admin entry points change outside the nonce ledger, the royalty
// registry and the world.
type Settings struct {
	ProtocolFeeRecipient       common.Address                    `json:"protocolFeeRecipient"`
	OpenBeta                   bool                              `json:"openBeta"`
	Currencies                 []common.Address                  `json:"currencies"`
	Strategies                 []common.Address                  `json:"strategies"`
	Roles                      map[access.Role][]common.Address  `json:"roles"`
	CollectionTransferManagers map[common.Address]common.Address `json:"collectionTransferManagers"`
	MinAuctionLengths          map[common.Address]uint64         `json:"minAuctionLengths"`
}

// ExportSettings captures the current administrative state.
func (e *Exchange) ExportSettings() Settings {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := Settings{
		ProtocolFeeRecipient:       e.protocolFeeRecipient,
		OpenBeta:                   e.openBeta,
		Roles:                      make(map[access.Role][]common.Address, len(access.AllRoles)),
		CollectionTransferManagers: e.transfers.Overrides(),
		MinAuctionLengths:          make(map[common.Address]uint64),
	}
	s.Currencies, _ = e.currencies.ViewWhitelistedCurrencies(0, e.currencies.WhitelistedCurrencyCount())
	s.Strategies, _ = e.strategies.ViewWhitelistedStrategies(0, e.strategies.WhitelistedStrategyCount())
	for _, role := range access.AllRoles {
		if members := e.roles.Members(role); len(members) > 0 {
			s.Roles[role] = members
		}
	}
	for _, impl := range e.strategies.Registered() {
		if g, ok := impl.(auctionLengthGetter); ok {
			s.MinAuctionLengths[impl.Address()] = g.MinimumAuctionLength()
		}
	}
	return s
}

// ImportSettings replaces the administrative state with s. Every strategy
// and transfer manager named in s must already be registered. No events are
// emitted.
func (e *Exchange) ImportSettings(s Settings) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	current, _ := e.currencies.ViewWhitelistedCurrencies(0, e.currencies.WhitelistedCurrencyCount())
	for _, c := range current {
		if err := e.currencies.RemoveCurrency(c); err != nil {
			return fmt.Errorf("failed to reset currency %s: %w", c.Hex(), err)
		}
	}
	for _, c := range s.Currencies {
		if err := e.currencies.AddCurrency(c); err != nil {
			return fmt.Errorf("failed to restore currency %s: %w", c.Hex(), err)
		}
	}

	whitelisted, _ := e.strategies.ViewWhitelistedStrategies(0, e.strategies.WhitelistedStrategyCount())
	for _, addr := range whitelisted {
		if err := e.strategies.RemoveStrategy(addr); err != nil {
			return fmt.Errorf("failed to reset strategy %s: %w", addr.Hex(), err)
		}
	}
	for _, addr := range s.Strategies {
		if err := e.strategies.Whitelist(addr); err != nil {
			return fmt.Errorf("failed to restore strategy %s: %w", addr.Hex(), err)
		}
	}
	for addr, seconds := range s.MinAuctionLengths {
		impl, ok := e.strategies.Lookup(addr)
		if !ok {
			return fmt.Errorf("unknown strategy %s", addr.Hex())
		}
		setter, ok := impl.(auctionLengthSetter)
		if !ok {
			return ErrNotAuctionStrategy.With("%s", addr.Hex())
		}
		if g, ok := impl.(auctionLengthGetter); ok && g.MinimumAuctionLength() == seconds {
			continue
		}
		if err := setter.UpdateMinimumAuctionLength(seconds); err != nil {
			return err
		}
	}

	for _, role := range access.AllRoles {
		keep := make(map[common.Address]bool, len(s.Roles[role]))
		for _, a := range s.Roles[role] {
			keep[a] = true
			e.roles.Grant(role, a)
		}
		for _, a := range e.roles.Members(role) {
			if !keep[a] {
				e.roles.Revoke(role, a)
			}
		}
	}

	for collection := range e.transfers.Overrides() {
		if err := e.transfers.RemoveCollectionTransferManager(collection); err != nil {
			return err
		}
	}
	for collection, manager := range s.CollectionTransferManagers {
		if err := e.transfers.AddCollectionTransferManager(collection, manager); err != nil {
			return fmt.Errorf("failed to restore transfer manager for %s: %w", collection.Hex(), err)
		}
	}

	e.protocolFeeRecipient = s.ProtocolFeeRecipient
	e.openBeta = s.OpenBeta
	return nil
}
