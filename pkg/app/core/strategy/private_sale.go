package strategy

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/uhyunpark/mintedexchange/pkg/app/core/order"
)

// PrivateSale is a fixed-price ask reserved for one buyer, whose address is
// the ask's params.
type PrivateSale struct{ base }

func NewPrivateSale(addr common.Address, protocolFee uint64) *PrivateSale {
	return &PrivateSale{base{address: addr, name: "private_sale", protocolFee: protocolFee}}
}

func (s *PrivateSale) CanExecuteTakerAsk(*order.TakerOrder, *order.MakerOrder, uint64) (Result, error) {
	return ineligible(ReasonUnsupported), nil
}

func (s *PrivateSale) CanExecuteTakerBid(taker *order.TakerOrder, makerAsk *order.MakerOrder, now uint64) (Result, error) {
	target, err := order.DecodePrivateSaleParams(makerAsk.Params)
	if err != nil {
		return Result{}, err
	}
	if taker.Taker != target {
		return ineligible(ReasonBuyer), nil
	}
	return fixedPriceTaker(taker, makerAsk, now, taker.Price), nil
}

func (s *PrivateSale) CanExecuteMakerOrders(makerBid, makerAsk *order.MakerOrder, now uint64) (Result, error) {
	target, err := order.DecodePrivateSaleParams(makerAsk.Params)
	if err != nil {
		return Result{}, err
	}
	if makerBid.Signer != target {
		return ineligible(ReasonBuyer), nil
	}
	return fixedPriceMakers(makerBid, makerAsk, now), nil
}
