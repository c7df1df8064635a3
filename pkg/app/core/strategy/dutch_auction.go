package strategy

import (
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/uhyunpark/mintedexchange/pkg/app/core/errs"
	"github.com/uhyunpark/mintedexchange/pkg/app/core/order"
)

// MinAuctionLengthFloor is the smallest minimum auction length the owner may
// configure, in seconds.
const MinAuctionLengthFloor = 15 * 60

var (
	ErrAuctionTooShort     = errs.New(errs.Configuration, "Dutch Auction: Length must be longer")
	ErrStartPriceNotAbove  = errs.New(errs.Configuration, "Dutch Auction: Start price must be greater than end price")
	ErrMinLengthBelowFloor = errs.New(errs.Configuration, "Owner: Auction length must be > 15 min")
)

// DutchAuction is a descending-price ask. The price falls linearly from the
// start price in params at the ask's StartTime to the ask's Price at the
// auction end time in params, and stays there afterwards.
type DutchAuction struct {
	base

	mu               sync.RWMutex
	minAuctionLength uint64
}

func NewDutchAuction(addr common.Address, protocolFee, minAuctionLength uint64) *DutchAuction {
	return &DutchAuction{
		base:             base{address: addr, name: "dutch_auction", protocolFee: protocolFee},
		minAuctionLength: minAuctionLength,
	}
}

func (s *DutchAuction) MinimumAuctionLength() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.minAuctionLength
}

func (s *DutchAuction) UpdateMinimumAuctionLength(seconds uint64) error {
	if seconds < MinAuctionLengthFloor {
		return ErrMinLengthBelowFloor
	}
	s.mu.Lock()
	s.minAuctionLength = seconds
	s.mu.Unlock()
	return nil
}

// CurrentPrice returns the auction price of makerAsk at now. It fails when
// the auction is misconfigured.
func (s *DutchAuction) CurrentPrice(makerAsk *order.MakerOrder, now uint64) (*big.Int, error) {
	p, err := order.DecodeDutchParams(makerAsk.Params)
	if err != nil {
		return nil, err
	}
	start := makerAsk.StartTime
	if p.AuctionEndTime < start || p.AuctionEndTime-start < s.MinimumAuctionLength() {
		return nil, ErrAuctionTooShort
	}
	endPrice := makerAsk.Price
	if p.StartPrice.Cmp(endPrice) <= 0 {
		return nil, ErrStartPriceNotAbove
	}
	if now >= p.AuctionEndTime {
		return new(big.Int).Set(endPrice), nil
	}
	if now < start {
		return new(big.Int).Set(p.StartPrice), nil
	}

	// endPrice + (startPrice-endPrice) * (auctionEnd-now) / (auctionEnd-start)
	span := new(big.Int).Sub(p.StartPrice, endPrice)
	span.Mul(span, new(big.Int).SetUint64(p.AuctionEndTime-now))
	span.Quo(span, new(big.Int).SetUint64(p.AuctionEndTime-start))
	return span.Add(span, endPrice), nil
}

func (s *DutchAuction) CanExecuteTakerAsk(taker *order.TakerOrder, makerBid *order.MakerOrder, now uint64) (Result, error) {
	return fixedPriceTaker(taker, makerBid, now, makerBid.Price), nil
}

func (s *DutchAuction) CanExecuteTakerBid(taker *order.TakerOrder, makerAsk *order.MakerOrder, now uint64) (Result, error) {
	current, err := s.CurrentPrice(makerAsk, now)
	if err != nil {
		return Result{}, err
	}
	if !makerAsk.WithinWindow(now) {
		return ineligible(ReasonWindow), nil
	}
	if makerAsk.TokenID.Cmp(taker.TokenID) != 0 {
		return ineligible(ReasonToken), nil
	}
	if taker.Price.Cmp(current) < 0 {
		return ineligible(ReasonPrice), nil
	}
	return eligible(makerAsk.TokenID, makerAsk.Amount, taker.Price), nil
}

func (s *DutchAuction) CanExecuteMakerOrders(makerBid, makerAsk *order.MakerOrder, now uint64) (Result, error) {
	current, err := s.CurrentPrice(makerAsk, now)
	if err != nil {
		return Result{}, err
	}
	if r := sameItem(makerBid, makerAsk, now); r != ReasonNone {
		return ineligible(r), nil
	}
	if makerBid.Price.Cmp(current) < 0 {
		return ineligible(ReasonPrice), nil
	}
	return eligible(makerAsk.TokenID, makerAsk.Amount, makerBid.Price), nil
}
