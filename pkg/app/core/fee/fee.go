// Package fee splits an execution price into protocol fee, royalty and the
// seller's net proceeds.
package fee

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/uhyunpark/mintedexchange/pkg/app/core/errs"
)

const BpsDenominator = 10000

var (
	ErrHigherThanExpected = errs.New(errs.Ineligible, "Fees: Higher than expected")
	ErrFeesExceedPrice    = errs.New(errs.Ineligible, "Fees: Exceed price")
)

var bpsDenominator = big.NewInt(BpsDenominator)

// Split is the outcome of the waterfall. The parts always sum to the price.
type Split struct {
	Price           *big.Int
	ProtocolFee     *big.Int
	ProtocolFeeTo   common.Address
	RoyaltyFee      *big.Int
	RoyaltyReceiver common.Address
	SellerNet       *big.Int
}

// Input gathers what Compute needs.
type Input struct {
	Price              *big.Int
	ProtocolFeeBps     uint64
	ProtocolRecipient  common.Address
	RoyaltyReceiver    common.Address
	RoyaltyAmount      *big.Int
	MinPercentageToAsk uint64
}

// Compute runs the waterfall. The protocol fee is floor(price*bps/10000)
// and is waived when the recipient is the zero address. A royalty to the
// zero address is waived too. The seller must keep at least
// MinPercentageToAsk of the price.
func Compute(in Input) (Split, error) {
	price := new(big.Int).Set(in.Price)

	protocol := new(big.Int)
	if in.ProtocolRecipient != (common.Address{}) && in.ProtocolFeeBps > 0 {
		protocol.Mul(price, new(big.Int).SetUint64(in.ProtocolFeeBps))
		protocol.Quo(protocol, bpsDenominator)
	}

	royalty := new(big.Int)
	if in.RoyaltyReceiver != (common.Address{}) && in.RoyaltyAmount != nil {
		royalty.Set(in.RoyaltyAmount)
	}

	net := new(big.Int).Sub(price, protocol)
	net.Sub(net, royalty)
	if net.Sign() < 0 {
		return Split{}, ErrFeesExceedPrice.With("protocol %s + royalty %s > price %s", protocol, royalty, price)
	}

	// net*10000 >= price*minPct
	lhs := new(big.Int).Mul(net, bpsDenominator)
	rhs := new(big.Int).Mul(price, new(big.Int).SetUint64(in.MinPercentageToAsk))
	if lhs.Cmp(rhs) < 0 {
		return Split{}, ErrHigherThanExpected.With("seller keeps %s of %s, wants %d bps", net, price, in.MinPercentageToAsk)
	}

	return Split{
		Price:           price,
		ProtocolFee:     protocol,
		ProtocolFeeTo:   in.ProtocolRecipient,
		RoyaltyFee:      royalty,
		RoyaltyReceiver: in.RoyaltyReceiver,
		SellerNet:       net,
	}, nil
}

// MinPercentage is the stricter of the two orders' seller floors.
func MinPercentage(a, b uint64) uint64 {
	if a > b {
		return a
	}
	return b
}

// Ledger moves currency between holders.
type Ledger interface {
	Transfer(currency, from, to common.Address, amount *big.Int) error
}

// Settle pays the split out of buyer's currency balance: protocol fee first,
// then royalty, then the seller.
func Settle(ledger Ledger, currency, buyer, seller common.Address, s Split) error {
	if s.ProtocolFee.Sign() > 0 {
		if err := ledger.Transfer(currency, buyer, s.ProtocolFeeTo, s.ProtocolFee); err != nil {
			return err
		}
	}
	if s.RoyaltyFee.Sign() > 0 {
		if err := ledger.Transfer(currency, buyer, s.RoyaltyReceiver, s.RoyaltyFee); err != nil {
			return err
		}
	}
	return ledger.Transfer(currency, buyer, seller, s.SellerNet)
}
