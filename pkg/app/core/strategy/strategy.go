// Package strategy holds the matching rules a maker order can opt into.
//
// A strategy never mutates state. It answers whether a pair of orders may
// settle and, if so, at which token id, amount and price.
package strategy

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/uhyunpark/mintedexchange/pkg/app/core/order"
)

// Reason names why a pair of orders is ineligible.
type Reason string

const (
	ReasonNone        Reason = ""
	ReasonWindow      Reason = "window"
	ReasonPrice       Reason = "price"
	ReasonToken       Reason = "token"
	ReasonCollection  Reason = "collection"
	ReasonAmount      Reason = "amount"
	ReasonBuyer       Reason = "buyer"
	ReasonReserve     Reason = "reserve"
	ReasonUnsupported Reason = "unsupported"
)

// Result is the outcome of an eligibility check. TokenID, Amount and Price
// are only meaningful when Eligible is true.
type Result struct {
	Eligible bool
	TokenID  *big.Int
	Amount   *big.Int
	Price    *big.Int
	Reason   Reason
}

func ineligible(r Reason) Result { return Result{Reason: r} }

func eligible(tokenID, amount, price *big.Int) Result {
	return Result{
		Eligible: true,
		TokenID:  new(big.Int).Set(tokenID),
		Amount:   new(big.Int).Set(amount),
		Price:    new(big.Int).Set(price),
	}
}

// Strategy decides eligibility for the three matching paths. The error
// return is reserved for configuration failures; an order pair that simply
// does not match yields an ineligible Result and a nil error.
type Strategy interface {
	Address() common.Address
	Name() string
	ProtocolFee() uint64

	// CanExecuteTakerAsk: a seller accepts the maker bid.
	CanExecuteTakerAsk(taker *order.TakerOrder, makerBid *order.MakerOrder, now uint64) (Result, error)
	// CanExecuteTakerBid: a buyer accepts the maker ask.
	CanExecuteTakerBid(taker *order.TakerOrder, makerAsk *order.MakerOrder, now uint64) (Result, error)
	CanExecuteMakerOrders(makerBid, makerAsk *order.MakerOrder, now uint64) (Result, error)
}

type base struct {
	address     common.Address
	name        string
	protocolFee uint64
}

func (b base) Address() common.Address { return b.address }
func (b base) Name() string            { return b.name }
func (b base) ProtocolFee() uint64     { return b.protocolFee }

// fixedPriceTaker applies the shared fixed-price rule to a taker against a
// maker: the maker window, equal price and equal token id.
func fixedPriceTaker(taker *order.TakerOrder, maker *order.MakerOrder, now uint64, price *big.Int) Result {
	if !maker.WithinWindow(now) {
		return ineligible(ReasonWindow)
	}
	if maker.Price.Cmp(taker.Price) != 0 {
		return ineligible(ReasonPrice)
	}
	if maker.TokenID.Cmp(taker.TokenID) != 0 {
		return ineligible(ReasonToken)
	}
	return eligible(maker.TokenID, maker.Amount, price)
}

// sameItem checks both windows and that the two maker orders name the same
// collection, token id and amount.
func sameItem(bid, ask *order.MakerOrder, now uint64) Reason {
	if !bid.WithinWindow(now) || !ask.WithinWindow(now) {
		return ReasonWindow
	}
	if bid.Collection != ask.Collection {
		return ReasonCollection
	}
	if bid.TokenID.Cmp(ask.TokenID) != 0 {
		return ReasonToken
	}
	if bid.Amount.Cmp(ask.Amount) != 0 {
		return ReasonAmount
	}
	return ReasonNone
}

// fixedPriceMakers is sameItem plus equal prices.
func fixedPriceMakers(bid, ask *order.MakerOrder, now uint64) Result {
	if r := sameItem(bid, ask, now); r != ReasonNone {
		return ineligible(r)
	}
	if bid.Price.Cmp(ask.Price) != 0 {
		return ineligible(ReasonPrice)
	}
	return eligible(ask.TokenID, ask.Amount, bid.Price)
}
