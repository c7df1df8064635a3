package order

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/uhyunpark/mintedexchange/pkg/app/core/errs"
)

var (
	ErrInvalidSigner    = errs.New(errs.Authorization, "Order: Invalid signer")
	ErrInvalidSignature = errs.New(errs.Authorization, "Signature: Invalid")
	ErrZeroAmount       = errs.New(errs.Structural, "Order: Amount cannot be 0")
	ErrMalformed        = errs.New(errs.Structural, "Order: Malformed")
)

// MakerOrder is a signed standing intent to buy (bid) or sell (ask).
// Price is the unit price the maker expects; the strategy named by Strategy
// decides the execution price.
type MakerOrder struct {
	IsOrderAsk         bool
	Signer             common.Address
	Collection         common.Address
	Price              *big.Int
	TokenID            *big.Int
	Amount             *big.Int
	Strategy           common.Address
	Currency           common.Address
	Nonce              uint64
	StartTime          uint64 // unix seconds, inclusive
	EndTime            uint64 // unix seconds, exclusive
	MinPercentageToAsk uint64 // basis points
	Params             []byte
	Signature          []byte
}

// TakerOrder is the unsigned counter-order. Its authenticity comes from
// being submitted by Taker itself.
type TakerOrder struct {
	IsOrderAsk         bool
	Taker              common.Address
	Price              *big.Int
	TokenID            *big.Int
	MinPercentageToAsk uint64
	Params             []byte
}

// WithinWindow reports whether now lies in [StartTime, EndTime).
func (o *MakerOrder) WithinWindow(now uint64) bool {
	return o.StartTime <= now && now < o.EndTime
}

func (o *MakerOrder) Side() string { return sideName(o.IsOrderAsk) }

func (o *TakerOrder) Side() string { return sideName(o.IsOrderAsk) }

func sideName(ask bool) string {
	if ask {
		return "ask"
	}
	return "bid"
}

// Clone returns a deep copy so callers can mutate fields in tests and tools
// without aliasing big.Int or byte slices.
func (o *MakerOrder) Clone() *MakerOrder {
	c := *o
	c.Price = cloneInt(o.Price)
	c.TokenID = cloneInt(o.TokenID)
	c.Amount = cloneInt(o.Amount)
	c.Params = append([]byte(nil), o.Params...)
	c.Signature = append([]byte(nil), o.Signature...)
	return &c
}

func cloneInt(x *big.Int) *big.Int {
	if x == nil {
		return nil
	}
	return new(big.Int).Set(x)
}

// intOrZero treats a nil big.Int as zero.
func intOrZero(x *big.Int) *big.Int {
	if x == nil {
		return new(big.Int)
	}
	return x
}
