package node

import (
	"encoding/json"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/uhyunpark/mintedexchange/pkg/app/core/access"
	"github.com/uhyunpark/mintedexchange/pkg/app/exchange"
	"github.com/uhyunpark/mintedexchange/pkg/crypto"
)

func decodePayload(env *Envelope, v any) error {
	if err := json.Unmarshal(env.Payload, v); err != nil {
		return ErrMalformedTx.With("%s payload: %v", env.Type, err)
	}
	return nil
}

// addresses parses each named hex address, stopping at the first failure.
func addresses(in ...string) ([]common.Address, error) {
	out := make([]common.Address, len(in))
	for i, s := range in {
		a, err := crypto.ParseAddress(s)
		if err != nil {
			return nil, ErrMalformedTx.With("address %q: %v", s, err)
		}
		out[i] = a
	}
	return out, nil
}

// dispatch invokes the exchange entry point named by env.Type.
func (a *App) dispatch(env *Envelope, caller common.Address, value *big.Int) (exchange.Event, error) {
	ex := a.exchange
	if value.Sign() > 0 && env.Type != TxMatchAskWithTakerBidETH {
		return exchange.Event{}, ErrValueNotPayable
	}

	switch env.Type {
	case TxMatchAskWithTakerBid, TxMatchAskWithTakerBidETH:
		var p TakerBidPayload
		if err := decodePayload(env, &p); err != nil {
			return exchange.Event{}, err
		}
		taker, err := p.TakerBid.ToTakerOrder()
		if err != nil {
			return exchange.Event{}, err
		}
		maker, err := p.MakerAsk.ToMakerOrder()
		if err != nil {
			return exchange.Event{}, err
		}
		if env.Type == TxMatchAskWithTakerBidETH {
			return ex.MatchAskWithTakerBidUsingETHAndWETH(caller, value, taker, maker)
		}
		return ex.MatchAskWithTakerBid(caller, taker, maker)

	case TxMatchBidWithTakerAsk:
		var p TakerAskPayload
		if err := decodePayload(env, &p); err != nil {
			return exchange.Event{}, err
		}
		taker, err := p.TakerAsk.ToTakerOrder()
		if err != nil {
			return exchange.Event{}, err
		}
		maker, err := p.MakerBid.ToMakerOrder()
		if err != nil {
			return exchange.Event{}, err
		}
		return ex.MatchBidWithTakerAsk(caller, taker, maker)

	case TxMatchMakerOrders:
		var p MakerMatchPayload
		if err := decodePayload(env, &p); err != nil {
			return exchange.Event{}, err
		}
		bid, err := p.MakerBid.ToMakerOrder()
		if err != nil {
			return exchange.Event{}, err
		}
		ask, err := p.MakerAsk.ToMakerOrder()
		if err != nil {
			return exchange.Event{}, err
		}
		return ex.MatchMakerOrders(caller, bid, ask)

	case TxCancelAllOrdersForSender:
		var p CancelAllPayload
		if err := decodePayload(env, &p); err != nil {
			return exchange.Event{}, err
		}
		return ex.CancelAllOrdersForSender(caller, p.MinNonce)

	case TxCancelMultipleMakerOrders:
		var p CancelManyPayload
		if err := decodePayload(env, &p); err != nil {
			return exchange.Event{}, err
		}
		return ex.CancelMultipleMakerOrders(caller, p.Nonces)

	case TxSetApprovalForAll:
		var p ApprovalPayload
		if err := decodePayload(env, &p); err != nil {
			return exchange.Event{}, err
		}
		addrs, err := addresses(p.Collection, p.Operator)
		if err != nil {
			return exchange.Event{}, err
		}
		return ex.SetApprovalForAll(caller, addrs[0], addrs[1], p.Approved)

	case TxUpdateRoyaltyInfoIfOwner, TxUpdateRoyaltyInfoIfAdmin, TxUpdateRoyaltyInfoIfSetter, TxUpdateRoyaltyInfo:
		var p RoyaltyPayload
		if err := decodePayload(env, &p); err != nil {
			return exchange.Event{}, err
		}
		addrs, err := addresses(p.Collection, p.Setter, p.Receiver)
		if err != nil {
			return exchange.Event{}, err
		}
		update := map[TxType]func(caller, collection, setter, receiver common.Address, fee uint64) (exchange.Event, error){
			TxUpdateRoyaltyInfoIfOwner:  ex.UpdateRoyaltyInfoForCollectionIfOwner,
			TxUpdateRoyaltyInfoIfAdmin:  ex.UpdateRoyaltyInfoForCollectionIfAdmin,
			TxUpdateRoyaltyInfoIfSetter: ex.UpdateRoyaltyInfoForCollectionIfSetter,
			TxUpdateRoyaltyInfo:         ex.UpdateRoyaltyInfoForCollection,
		}[env.Type]
		return update(caller, addrs[0], addrs[1], addrs[2], p.Fee)

	case TxUpdateProtocolFeeRecipient, TxAddCurrency, TxRemoveCurrency, TxAddStrategy, TxRemoveStrategy:
		var p AddressPayload
		if err := decodePayload(env, &p); err != nil {
			return exchange.Event{}, err
		}
		addrs, err := addresses(p.Address)
		if err != nil {
			return exchange.Event{}, err
		}
		update := map[TxType]func(caller, addr common.Address) (exchange.Event, error){
			TxUpdateProtocolFeeRecipient: ex.UpdateProtocolFeeRecipient,
			TxAddCurrency:                ex.AddCurrency,
			TxRemoveCurrency:             ex.RemoveCurrency,
			TxAddStrategy:                ex.AddStrategy,
			TxRemoveStrategy:             ex.RemoveStrategy,
		}[env.Type]
		return update(caller, addrs[0])

	case TxSetOpenBeta:
		var p BoolPayload
		if err := decodePayload(env, &p); err != nil {
			return exchange.Event{}, err
		}
		return ex.SetMakerMatchOpenBeta(caller, p.Value)

	case TxAddCollectionTransferMgr:
		var p TransferManagerPayload
		if err := decodePayload(env, &p); err != nil {
			return exchange.Event{}, err
		}
		addrs, err := addresses(p.Collection, p.Manager)
		if err != nil {
			return exchange.Event{}, err
		}
		return ex.AddCollectionTransferManager(caller, addrs[0], addrs[1])

	case TxRemoveCollectionTransferMgr:
		var p TransferManagerPayload
		if err := decodePayload(env, &p); err != nil {
			return exchange.Event{}, err
		}
		addrs, err := addresses(p.Collection)
		if err != nil {
			return exchange.Event{}, err
		}
		return ex.RemoveCollectionTransferManager(caller, addrs[0])

	case TxUpdateRoyaltyFeeLimit:
		var p FeeLimitPayload
		if err := decodePayload(env, &p); err != nil {
			return exchange.Event{}, err
		}
		return ex.UpdateRoyaltyFeeLimit(caller, p.Limit)

	case TxUpdateMinAuctionLength:
		var p AuctionLengthPayload
		if err := decodePayload(env, &p); err != nil {
			return exchange.Event{}, err
		}
		addrs, err := addresses(p.Strategy)
		if err != nil {
			return exchange.Event{}, err
		}
		return ex.UpdateMinimumAuctionLength(caller, addrs[0], p.Seconds)

	case TxGrantRole, TxRevokeRole:
		var p RolePayload
		if err := decodePayload(env, &p); err != nil {
			return exchange.Event{}, err
		}
		role, err := access.ParseRole(p.Role)
		if err != nil {
			return exchange.Event{}, err
		}
		addrs, err := addresses(p.Account)
		if err != nil {
			return exchange.Event{}, err
		}
		if env.Type == TxGrantRole {
			return ex.GrantRole(caller, role, addrs[0])
		}
		return ex.RevokeRole(caller, role, addrs[0])
	}

	return exchange.Event{}, ErrUnknownTxType.With("%q", env.Type)
}
