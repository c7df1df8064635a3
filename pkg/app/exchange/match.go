package exchange

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/uhyunpark/mintedexchange/pkg/app/core/access"
	"github.com/uhyunpark/mintedexchange/pkg/app/core/errs"
	"github.com/uhyunpark/mintedexchange/pkg/app/core/fee"
	"github.com/uhyunpark/mintedexchange/pkg/app/core/nonce"
	"github.com/uhyunpark/mintedexchange/pkg/app/core/order"
	"github.com/uhyunpark/mintedexchange/pkg/app/core/strategy"
	"github.com/uhyunpark/mintedexchange/pkg/app/core/whitelist"
)

// Match paths, used as the metrics label.
const (
	PathTakerBid    = "taker_bid"
	PathTakerBidETH = "taker_bid_eth"
	PathTakerAsk    = "taker_ask"
	PathMakerMatch  = "maker_match"
)

// settlement is what a successful match hands back to its caller.
type settlement struct {
	path       string
	orderHash  common.Hash
	strategy   strategy.Strategy
	collection common.Address
	currency   common.Address
	buyer      common.Address
	seller     common.Address
	result     strategy.Result
	split      fee.Split
}

// MatchAskWithTakerBid fills a maker ask for the caller.
func (e *Exchange) MatchAskWithTakerBid(caller common.Address, takerBid *order.TakerOrder, makerAsk *order.MakerOrder) (Event, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.atomically(PathTakerBid, func(now uint64) (Event, error) {
		if takerBid.IsOrderAsk || !makerAsk.IsOrderAsk {
			return Event{}, ErrWrongSides
		}
		if takerBid.Taker != caller {
			return Event{}, ErrTakerNotSender
		}
		return e.fillAsk(PathTakerBid, now, takerBid, makerAsk)
	})
}

// MatchAskWithTakerBidUsingETHAndWETH is MatchAskWithTakerBid where the
// caller attaches value in native currency. The value is wrapped into the
// caller's WETH balance and any shortfall is paid from existing WETH.
func (e *Exchange) MatchAskWithTakerBidUsingETHAndWETH(caller common.Address, value *big.Int, takerBid *order.TakerOrder, makerAsk *order.MakerOrder) (Event, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.atomically(PathTakerBidETH, func(now uint64) (Event, error) {
		if takerBid.IsOrderAsk || !makerAsk.IsOrderAsk {
			return Event{}, ErrWrongSides
		}
		if makerAsk.Currency != e.weth {
			return Event{}, ErrCurrencyNotWETH
		}
		if takerBid.Taker != caller {
			return Event{}, ErrTakerNotSender
		}
		if err := checkTaker(takerBid); err != nil {
			return Event{}, err
		}
		if value == nil {
			value = new(big.Int)
		}
		if value.Cmp(takerBid.Price) > 0 {
			return Event{}, ErrValueTooHigh
		}
		if value.Sign() > 0 {
			if err := e.world.Deposit(e.weth, caller, value); err != nil {
				return Event{}, err
			}
		}
		return e.fillAsk(PathTakerBidETH, now, takerBid, makerAsk)
	})
}

func (e *Exchange) fillAsk(path string, now uint64, takerBid *order.TakerOrder, makerAsk *order.MakerOrder) (Event, error) {
	if err := checkTaker(takerBid); err != nil {
		return Event{}, err
	}
	hash, strat, err := e.validateOrder(makerAsk)
	if err != nil {
		return Event{}, err
	}
	res, err := strat.CanExecuteTakerBid(takerBid, makerAsk, now)
	if err := eligibility(res, err); err != nil {
		return Event{}, err
	}

	s, err := e.settle(settlement{
		path:       path,
		orderHash:  hash,
		strategy:   strat,
		collection: makerAsk.Collection,
		currency:   makerAsk.Currency,
		buyer:      takerBid.Taker,
		seller:     makerAsk.Signer,
		result:     res,
	}, fee.MinPercentage(takerBid.MinPercentageToAsk, makerAsk.MinPercentageToAsk),
		nonce.Use{Signer: makerAsk.Signer, Nonce: makerAsk.Nonce})
	if err != nil {
		return Event{}, err
	}

	e.log.Infow("taker_bid_matched",
		"order_hash", hash.Hex(), "taker", takerBid.Taker.Hex(), "maker", makerAsk.Signer.Hex(),
		"collection", makerAsk.Collection.Hex(), "token_id", bigStr(res.TokenID), "price", bigStr(res.Price))

	fields := s.fields(makerAsk.Nonce)
	fields["taker"] = hexAddr(takerBid.Taker)
	fields["maker"] = hexAddr(makerAsk.Signer)
	return e.emit(EventTakerBid, now, fields), nil
}

// MatchBidWithTakerAsk sells the caller's asset into a maker bid.
func (e *Exchange) MatchBidWithTakerAsk(caller common.Address, takerAsk *order.TakerOrder, makerBid *order.MakerOrder) (Event, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.atomically(PathTakerAsk, func(now uint64) (Event, error) {
		if !takerAsk.IsOrderAsk || makerBid.IsOrderAsk {
			return Event{}, ErrWrongSides
		}
		if takerAsk.Taker != caller {
			return Event{}, ErrTakerNotSender
		}
		if err := checkTaker(takerAsk); err != nil {
			return Event{}, err
		}
		hash, strat, err := e.validateOrder(makerBid)
		if err != nil {
			return Event{}, err
		}
		res, err := strat.CanExecuteTakerAsk(takerAsk, makerBid, now)
		if err := eligibility(res, err); err != nil {
			return Event{}, err
		}

		s, err := e.settle(settlement{
			path:       PathTakerAsk,
			orderHash:  hash,
			strategy:   strat,
			collection: makerBid.Collection,
			currency:   makerBid.Currency,
			buyer:      makerBid.Signer,
			seller:     takerAsk.Taker,
			result:     res,
		}, fee.MinPercentage(takerAsk.MinPercentageToAsk, makerBid.MinPercentageToAsk),
			nonce.Use{Signer: makerBid.Signer, Nonce: makerBid.Nonce})
		if err != nil {
			return Event{}, err
		}

		e.log.Infow("taker_ask_matched",
			"order_hash", hash.Hex(), "taker", takerAsk.Taker.Hex(), "maker", makerBid.Signer.Hex(),
			"collection", makerBid.Collection.Hex(), "token_id", bigStr(res.TokenID), "price", bigStr(res.Price))

		fields := s.fields(makerBid.Nonce)
		fields["taker"] = hexAddr(takerAsk.Taker)
		fields["maker"] = hexAddr(makerBid.Signer)
		return e.emit(EventTakerAsk, now, fields), nil
	})
}

// MatchMakerOrders settles two signed maker orders against each other. Only
// holders of the match-maker-orders role may call it unless open beta is on.
func (e *Exchange) MatchMakerOrders(caller common.Address, makerBid, makerAsk *order.MakerOrder) (Event, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.atomically(PathMakerMatch, func(now uint64) (Event, error) {
		if !e.openBeta && !e.roles.Has(access.MatchMakerOrders, caller) {
			return Event{}, ErrNoMakerMatchAccess
		}
		if makerBid.IsOrderAsk || !makerAsk.IsOrderAsk {
			return Event{}, ErrWrongSides
		}
		bidHash, strat, err := e.validateOrder(makerBid)
		if err != nil {
			return Event{}, err
		}
		askHash, _, err := e.validateOrder(makerAsk)
		if err != nil {
			return Event{}, err
		}
		if makerBid.Strategy != makerAsk.Strategy {
			return Event{}, ErrExecutionInvalid.With("strategies differ")
		}
		if makerBid.Currency != makerAsk.Currency {
			return Event{}, ErrExecutionInvalid.With("currencies differ")
		}
		res, err := strat.CanExecuteMakerOrders(makerBid, makerAsk, now)
		if err := eligibility(res, err); err != nil {
			return Event{}, err
		}

		s, err := e.settle(settlement{
			path:       PathMakerMatch,
			orderHash:  askHash,
			strategy:   strat,
			collection: makerAsk.Collection,
			currency:   makerAsk.Currency,
			buyer:      makerBid.Signer,
			seller:     makerAsk.Signer,
			result:     res,
		}, fee.MinPercentage(makerBid.MinPercentageToAsk, makerAsk.MinPercentageToAsk),
			nonce.Use{Signer: makerBid.Signer, Nonce: makerBid.Nonce},
			nonce.Use{Signer: makerAsk.Signer, Nonce: makerAsk.Nonce})
		if err != nil {
			return Event{}, err
		}

		e.log.Infow("maker_orders_matched",
			"bid_hash", bidHash.Hex(), "ask_hash", askHash.Hex(), "relayer", caller.Hex(),
			"collection", makerAsk.Collection.Hex(), "token_id", bigStr(res.TokenID), "price", bigStr(res.Price))

		fields := s.fields(makerAsk.Nonce)
		fields["bidHash"] = bidHash.Hex()
		fields["bidNonce"] = u64(makerBid.Nonce)
		fields["askHash"] = askHash.Hex()
		fields["askNonce"] = u64(makerAsk.Nonce)
		fields["relayer"] = hexAddr(caller)
		fields["buyer"] = hexAddr(makerBid.Signer)
		fields["seller"] = hexAddr(makerAsk.Signer)
		return e.emit(EventMakerMatch, now, fields), nil
	})
}

// atomically runs fn inside a world snapshot. On failure every world
// mutation fn made is reverted. The caller holds e.mu.
func (e *Exchange) atomically(path string, fn func(now uint64) (Event, error)) (Event, error) {
	snap := e.world.Snapshot()
	ev, err := fn(e.now())
	if err != nil {
		e.world.RevertToSnapshot(snap)
		e.metrics.ObserveMatchFailure(errs.ClassOf(err).String())
		e.log.Debugw("match_rejected", "path", path, "reason", errs.ReasonOf(err), "err", err)
		return Event{}, err
	}
	e.world.Commit()
	return ev, nil
}

func checkTaker(t *order.TakerOrder) error {
	if t.Price == nil || t.TokenID == nil || t.Price.Sign() < 0 || t.TokenID.Sign() < 0 {
		return order.ErrMalformed.With("taker price and token id are required")
	}
	if t.MinPercentageToAsk > fee.BpsDenominator {
		return order.ErrMalformed.With("minPercentageToAsk %d above 10000", t.MinPercentageToAsk)
	}
	return nil
}

// validateOrder checks a maker order in a fixed order: nonce, signer,
// amount, signature, currency, strategy.
func (e *Exchange) validateOrder(o *order.MakerOrder) (common.Hash, strategy.Strategy, error) {
	if err := o.Validate(); err != nil {
		return common.Hash{}, nil, err
	}
	usable, err := e.nonces.IsUsable(o.Signer, o.Nonce)
	if err != nil {
		return common.Hash{}, nil, err
	}
	if !usable {
		return common.Hash{}, nil, ErrOrderExpired
	}
	if o.Signer == (common.Address{}) {
		return common.Hash{}, nil, order.ErrInvalidSigner
	}
	if o.Amount.Sign() == 0 {
		return common.Hash{}, nil, order.ErrZeroAmount
	}
	if err := e.verifier.Verify(o); err != nil {
		return common.Hash{}, nil, err
	}
	if !e.currencies.IsCurrencyWhitelisted(o.Currency) {
		return common.Hash{}, nil, whitelist.ErrCurrencyNotWhitelisted
	}
	strat, ok := e.strategies.Strategy(o.Strategy)
	if !ok {
		return common.Hash{}, nil, whitelist.ErrStrategyNotWhitelisted
	}
	hash, err := o.Hash()
	if err != nil {
		return common.Hash{}, nil, err
	}
	return hash, strat, nil
}

// eligibility turns a strategy answer into an error. Configuration errors
// pass through; a closed window is staleness; anything else is ineligible.
func eligibility(res strategy.Result, err error) error {
	if err != nil {
		return err
	}
	if res.Eligible {
		return nil
	}
	if res.Reason == strategy.ReasonWindow {
		return ErrOutsideWindow
	}
	return ErrExecutionInvalid.With("%s", res.Reason)
}

// settle pays out and moves the asset, then retires the nonces. The caller
// runs it inside atomically.
func (e *Exchange) settle(s settlement, minPct uint64, uses ...nonce.Use) (*settlement, error) {
	receiver, royaltyAmount := e.royalty.CalculateRoyaltyFeeAndGetRecipient(s.collection, s.result.TokenID, s.result.Price)
	split, err := fee.Compute(fee.Input{
		Price:              s.result.Price,
		ProtocolFeeBps:     s.strategy.ProtocolFee(),
		ProtocolRecipient:  e.protocolFeeRecipient,
		RoyaltyReceiver:    receiver,
		RoyaltyAmount:      royaltyAmount,
		MinPercentageToAsk: minPct,
	})
	if err != nil {
		return nil, err
	}
	if err := fee.Settle(e.world, s.currency, s.buyer, s.seller, split); err != nil {
		return nil, err
	}

	manager, err := e.transfers.CheckTransferManagerForToken(s.collection)
	if err != nil {
		return nil, err
	}
	if err := manager.TransferNonFungibleToken(e.address, s.collection, s.seller, s.buyer, s.result.TokenID, s.result.Amount); err != nil {
		return nil, err
	}

	if err := e.nonces.ConsumeAll(uses...); err != nil {
		return nil, err
	}

	s.split = split
	e.metrics.ObserveMatch(s.path, s.strategy.Name(), s.currency.Hex(), s.result.Price)
	return &s, nil
}

func (s *settlement) fields(orderNonce uint64) map[string]string {
	return map[string]string{
		"orderHash":       s.orderHash.Hex(),
		"orderNonce":      u64(orderNonce),
		"strategy":        hexAddr(s.strategy.Address()),
		"currency":        hexAddr(s.currency),
		"collection":      hexAddr(s.collection),
		"tokenId":         bigStr(s.result.TokenID),
		"amount":          bigStr(s.result.Amount),
		"price":           bigStr(s.result.Price),
		"protocolFee":     bigStr(s.split.ProtocolFee),
		"royaltyFee":      bigStr(s.split.RoyaltyFee),
		"royaltyReceiver": hexAddr(s.split.RoyaltyReceiver),
		"sellerNet":       bigStr(s.split.SellerNet),
	}
}
