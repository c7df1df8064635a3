package strategy

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/uhyunpark/mintedexchange/pkg/app/core/order"
)

// EnglishAuction settles the winning bid of an off-chain ascending auction.
// The relayer matches the best maker bid against the maker ask; a seller may
// also accept a maker bid directly at its price.
type EnglishAuction struct{ base }

func NewEnglishAuction(addr common.Address, protocolFee uint64) *EnglishAuction {
	return &EnglishAuction{base{address: addr, name: "english_auction", protocolFee: protocolFee}}
}

func (s *EnglishAuction) CanExecuteTakerAsk(taker *order.TakerOrder, makerBid *order.MakerOrder, now uint64) (Result, error) {
	return fixedPriceTaker(taker, makerBid, now, makerBid.Price), nil
}

func (s *EnglishAuction) CanExecuteTakerBid(*order.TakerOrder, *order.MakerOrder, uint64) (Result, error) {
	return ineligible(ReasonUnsupported), nil
}

// CanExecuteMakerOrders accepts any bid at or above the ask's reserve. An ask
// without params has no reserve.
func (s *EnglishAuction) CanExecuteMakerOrders(makerBid, makerAsk *order.MakerOrder, now uint64) (Result, error) {
	reserve, err := order.DecodeEnglishParams(makerAsk.Params)
	if err != nil {
		return Result{}, err
	}
	if r := sameItem(makerBid, makerAsk, now); r != ReasonNone {
		return ineligible(r), nil
	}
	if reserve != nil && makerBid.Price.Cmp(reserve) < 0 {
		return ineligible(ReasonReserve), nil
	}
	return eligible(makerAsk.TokenID, makerAsk.Amount, makerBid.Price), nil
}
