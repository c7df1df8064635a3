package strategy

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/uhyunpark/mintedexchange/pkg/app/core/order"
)

// AnyItemFromCollection is a collection-wide bid: any holder of any token in
// the bid's collection may fill it by presenting a taker ask.
type AnyItemFromCollection struct{ base }

func NewAnyItemFromCollection(addr common.Address, protocolFee uint64) *AnyItemFromCollection {
	return &AnyItemFromCollection{base{address: addr, name: "any_item_from_collection", protocolFee: protocolFee}}
}

// CanExecuteTakerAsk settles the taker's chosen token for the bid's amount.
func (s *AnyItemFromCollection) CanExecuteTakerAsk(taker *order.TakerOrder, makerBid *order.MakerOrder, now uint64) (Result, error) {
	if !makerBid.WithinWindow(now) {
		return ineligible(ReasonWindow), nil
	}
	if makerBid.Price.Cmp(taker.Price) != 0 {
		return ineligible(ReasonPrice), nil
	}
	return eligible(taker.TokenID, makerBid.Amount, makerBid.Price), nil
}

func (s *AnyItemFromCollection) CanExecuteTakerBid(*order.TakerOrder, *order.MakerOrder, uint64) (Result, error) {
	return ineligible(ReasonUnsupported), nil
}

func (s *AnyItemFromCollection) CanExecuteMakerOrders(*order.MakerOrder, *order.MakerOrder, uint64) (Result, error) {
	return ineligible(ReasonUnsupported), nil
}
