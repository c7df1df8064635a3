package exchange

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/uhyunpark/mintedexchange/pkg/app/core/access"
	"github.com/uhyunpark/mintedexchange/pkg/app/core/royalty"
	"github.com/uhyunpark/mintedexchange/pkg/app/core/transfer"
	"github.com/uhyunpark/mintedexchange/pkg/app/core/whitelist"
)

// auctionLengthSetter is implemented by strategies with a configurable
// minimum auction length.
type auctionLengthSetter interface {
	UpdateMinimumAuctionLength(seconds uint64) error
}

// admin runs fn under the exchange lock after checking caller holds role,
// then emits name with the fields fn returns. fn returning nil fields emits
// nothing.
func (e *Exchange) admin(caller common.Address, role access.Role, name string, fn func() (map[string]string, error)) (Event, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if role != "" {
		if err := e.roles.Check(role, caller); err != nil {
			return Event{}, err
		}
	}
	fields, err := fn()
	if err != nil {
		return Event{}, err
	}
	if fields == nil {
		return Event{}, nil
	}
	e.log.Infow("admin_call", "event", name, "caller", caller.Hex())
	return e.emit(name, e.now(), fields), nil
}

func (e *Exchange) UpdateCurrencyManager(caller, addr common.Address, m *whitelist.CurrencyManager) (Event, error) {
	return e.admin(caller, access.CurrencyAdmin, EventNewCurrencyManager, func() (map[string]string, error) {
		if addr == (common.Address{}) || m == nil {
			return nil, ErrNullAddress
		}
		e.currencies, e.currencyManagerAddr = m, addr
		return map[string]string{"currencyManager": hexAddr(addr)}, nil
	})
}

func (e *Exchange) UpdateExecutionManager(caller, addr common.Address, m *whitelist.ExecutionManager) (Event, error) {
	return e.admin(caller, access.StrategyAdmin, EventNewExecutionManager, func() (map[string]string, error) {
		if addr == (common.Address{}) || m == nil {
			return nil, ErrNullAddress
		}
		e.strategies, e.executionManagerAddr = m, addr
		return map[string]string{"executionManager": hexAddr(addr)}, nil
	})
}

func (e *Exchange) UpdateRoyaltyFeeManager(caller, addr common.Address, m *royalty.Manager) (Event, error) {
	return e.admin(caller, access.RoyaltyAdmin, EventNewRoyaltyFeeManager, func() (map[string]string, error) {
		if addr == (common.Address{}) || m == nil {
			return nil, ErrNullAddress
		}
		e.royalty, e.royaltyManagerAddr = m, addr
		return map[string]string{"royaltyFeeManager": hexAddr(addr)}, nil
	})
}

func (e *Exchange) UpdateTransferSelectorNFT(caller, addr common.Address, s *transfer.Selector) (Event, error) {
	return e.admin(caller, access.TransferAdmin, EventNewTransferSelectorNFT, func() (map[string]string, error) {
		if addr == (common.Address{}) || s == nil {
			return nil, ErrNullAddress
		}
		e.transfers, e.transferSelectorAddr = s, addr
		return map[string]string{"transferSelectorNFT": hexAddr(addr)}, nil
	})
}

// UpdateProtocolFeeRecipient accepts the zero address, which waives the
// protocol fee.
func (e *Exchange) UpdateProtocolFeeRecipient(caller, recipient common.Address) (Event, error) {
	return e.admin(caller, access.FeeAdmin, EventNewProtocolFeeRecipient, func() (map[string]string, error) {
		e.protocolFeeRecipient = recipient
		return map[string]string{"protocolFeeRecipient": hexAddr(recipient)}, nil
	})
}

func (e *Exchange) SetMakerMatchOpenBeta(caller common.Address, open bool) (Event, error) {
	return e.admin(caller, access.BetaAdmin, EventMakerMatchOpenBetaUpdated, func() (map[string]string, error) {
		e.openBeta = open
		if open {
			return map[string]string{"openBeta": "true"}, nil
		}
		return map[string]string{"openBeta": "false"}, nil
	})
}

// GrantRole emits only when account did not already hold role.
func (e *Exchange) GrantRole(caller common.Address, role access.Role, account common.Address) (Event, error) {
	return e.admin(caller, access.DefaultAdmin, EventRoleGranted, func() (map[string]string, error) {
		if account == (common.Address{}) {
			return nil, ErrNullAddress
		}
		if !e.roles.Grant(role, account) {
			return nil, nil
		}
		return map[string]string{"role": string(role), "account": hexAddr(account), "sender": hexAddr(caller)}, nil
	})
}

// RevokeRole emits only when account held role.
func (e *Exchange) RevokeRole(caller common.Address, role access.Role, account common.Address) (Event, error) {
	return e.admin(caller, access.DefaultAdmin, EventRoleRevoked, func() (map[string]string, error) {
		if !e.roles.Revoke(role, account) {
			return nil, nil
		}
		return map[string]string{"role": string(role), "account": hexAddr(account), "sender": hexAddr(caller)}, nil
	})
}

// ---------------------------------------------------------------------------
// Whitelists

func (e *Exchange) AddCurrency(caller, currency common.Address) (Event, error) {
	return e.admin(caller, access.CurrencyAdmin, EventCurrencyWhitelisted, func() (map[string]string, error) {
		if currency == (common.Address{}) {
			return nil, ErrNullAddress
		}
		if err := e.currencies.AddCurrency(currency); err != nil {
			return nil, err
		}
		return map[string]string{"currency": hexAddr(currency)}, nil
	})
}

func (e *Exchange) RemoveCurrency(caller, currency common.Address) (Event, error) {
	return e.admin(caller, access.CurrencyAdmin, EventCurrencyRemoved, func() (map[string]string, error) {
		if err := e.currencies.RemoveCurrency(currency); err != nil {
			return nil, err
		}
		return map[string]string{"currency": hexAddr(currency)}, nil
	})
}

// AddStrategy whitelists a registered strategy implementation by address.
func (e *Exchange) AddStrategy(caller, strat common.Address) (Event, error) {
	return e.admin(caller, access.StrategyAdmin, EventStrategyWhitelisted, func() (map[string]string, error) {
		if strat == (common.Address{}) {
			return nil, ErrNullAddress
		}
		if err := e.strategies.Whitelist(strat); err != nil {
			return nil, err
		}
		return map[string]string{"strategy": hexAddr(strat)}, nil
	})
}

func (e *Exchange) RemoveStrategy(caller, strat common.Address) (Event, error) {
	return e.admin(caller, access.StrategyAdmin, EventStrategyRemoved, func() (map[string]string, error) {
		if err := e.strategies.RemoveStrategy(strat); err != nil {
			return nil, err
		}
		return map[string]string{"strategy": hexAddr(strat)}, nil
	})
}

// UpdateMinimumAuctionLength configures a Dutch-auction-like strategy.
func (e *Exchange) UpdateMinimumAuctionLength(caller, strat common.Address, seconds uint64) (Event, error) {
	return e.admin(caller, access.StrategyAdmin, EventNewMinimumAuctionLength, func() (map[string]string, error) {
		impl, ok := e.strategies.Lookup(strat)
		if !ok {
			return nil, whitelist.ErrStrategyNotWhitelisted
		}
		setter, ok := impl.(auctionLengthSetter)
		if !ok {
			return nil, ErrNotAuctionStrategy
		}
		if err := setter.UpdateMinimumAuctionLength(seconds); err != nil {
			return nil, err
		}
		return map[string]string{"strategy": hexAddr(strat), "minimumAuctionLengthInSeconds": u64(seconds)}, nil
	})
}

// ---------------------------------------------------------------------------
// Transfer selector

func (e *Exchange) AddCollectionTransferManager(caller, collection, manager common.Address) (Event, error) {
	return e.admin(caller, access.TransferAdmin, EventCollectionTransferManagerAdded, func() (map[string]string, error) {
		if err := e.transfers.AddCollectionTransferManager(collection, manager); err != nil {
			return nil, err
		}
		return map[string]string{"collection": hexAddr(collection), "transferManager": hexAddr(manager)}, nil
	})
}

func (e *Exchange) RemoveCollectionTransferManager(caller, collection common.Address) (Event, error) {
	return e.admin(caller, access.TransferAdmin, EventCollectionTransferManagerRemove, func() (map[string]string, error) {
		if err := e.transfers.RemoveCollectionTransferManager(collection); err != nil {
			return nil, err
		}
		return map[string]string{"collection": hexAddr(collection)}, nil
	})
}

// ---------------------------------------------------------------------------
// Royalty

func (e *Exchange) UpdateRoyaltyFeeLimit(caller common.Address, limit uint64) (Event, error) {
	return e.admin(caller, access.RoyaltyAdmin, EventNewRoyaltyFeeLimit, func() (map[string]string, error) {
		if err := e.royaltySetter.UpdateRoyaltyFeeLimit(limit); err != nil {
			return nil, err
		}
		return map[string]string{"royaltyFeeLimit": u64(limit)}, nil
	})
}

func royaltyFields(collection, setter, receiver common.Address, fee uint64) map[string]string {
	return map[string]string{
		"collection": hexAddr(collection),
		"setter":     hexAddr(setter),
		"receiver":   hexAddr(receiver),
		"fee":        u64(fee),
	}
}

func (e *Exchange) UpdateRoyaltyInfoForCollection(caller, collection, setter, receiver common.Address, fee uint64) (Event, error) {
	return e.admin(caller, access.RoyaltyAdmin, EventRoyaltyFeeUpdate, func() (map[string]string, error) {
		if err := e.royaltySetter.UpdateRoyaltyInfoForCollection(collection, setter, receiver, fee); err != nil {
			return nil, err
		}
		return royaltyFields(collection, setter, receiver, fee), nil
	})
}

func (e *Exchange) UpdateRoyaltyInfoForCollectionIfOwner(caller, collection, setter, receiver common.Address, fee uint64) (Event, error) {
	return e.admin(caller, "", EventRoyaltyFeeUpdate, func() (map[string]string, error) {
		if err := e.royaltySetter.UpdateRoyaltyInfoForCollectionIfOwner(caller, collection, setter, receiver, fee); err != nil {
			return nil, err
		}
		return royaltyFields(collection, setter, receiver, fee), nil
	})
}

func (e *Exchange) UpdateRoyaltyInfoForCollectionIfAdmin(caller, collection, setter, receiver common.Address, fee uint64) (Event, error) {
	return e.admin(caller, "", EventRoyaltyFeeUpdate, func() (map[string]string, error) {
		if err := e.royaltySetter.UpdateRoyaltyInfoForCollectionIfAdmin(caller, collection, setter, receiver, fee); err != nil {
			return nil, err
		}
		return royaltyFields(collection, setter, receiver, fee), nil
	})
}

func (e *Exchange) UpdateRoyaltyInfoForCollectionIfSetter(caller, collection, setter, receiver common.Address, fee uint64) (Event, error) {
	return e.admin(caller, "", EventRoyaltyFeeUpdate, func() (map[string]string, error) {
		if err := e.royaltySetter.UpdateRoyaltyInfoForCollectionIfSetter(caller, collection, setter, receiver, fee); err != nil {
			return nil, err
		}
		return royaltyFields(collection, setter, receiver, fee), nil
	})
}

// ---------------------------------------------------------------------------
// Assets

// SetApprovalForAll lets operator move every caller token in collection.
func (e *Exchange) SetApprovalForAll(caller, collection, operator common.Address, approved bool) (Event, error) {
	return e.admin(caller, "", EventApprovalForAll, func() (map[string]string, error) {
		if err := e.world.SetApprovalForAll(collection, caller, operator, approved); err != nil {
			return nil, err
		}
		e.world.Commit()
		approvedStr := "false"
		if approved {
			approvedStr = "true"
		}
		return map[string]string{
			"collection": hexAddr(collection),
			"owner":      hexAddr(caller),
			"operator":   hexAddr(operator),
			"approved":   approvedStr,
		}, nil
	})
}

// RoyaltyFor previews the royalty owed on a sale.
func (e *Exchange) RoyaltyFor(collection common.Address, tokenID, price *big.Int) (common.Address, *big.Int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.royalty.CalculateRoyaltyFeeAndGetRecipient(collection, tokenID, price)
}
