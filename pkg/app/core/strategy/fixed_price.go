package strategy

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/uhyunpark/mintedexchange/pkg/app/core/order"
)

// FixedPrice matches orders at one exact price for one exact token.
type FixedPrice struct{ base }

func NewFixedPrice(addr common.Address, protocolFee uint64) *FixedPrice {
	return &FixedPrice{base{address: addr, name: "fixed_price", protocolFee: protocolFee}}
}

func (s *FixedPrice) CanExecuteTakerAsk(taker *order.TakerOrder, makerBid *order.MakerOrder, now uint64) (Result, error) {
	return fixedPriceTaker(taker, makerBid, now, makerBid.Price), nil
}

func (s *FixedPrice) CanExecuteTakerBid(taker *order.TakerOrder, makerAsk *order.MakerOrder, now uint64) (Result, error) {
	return fixedPriceTaker(taker, makerAsk, now, taker.Price), nil
}

func (s *FixedPrice) CanExecuteMakerOrders(makerBid, makerAsk *order.MakerOrder, now uint64) (Result, error) {
	return fixedPriceMakers(makerBid, makerAsk, now), nil
}
