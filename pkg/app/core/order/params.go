package order

import (
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// Strategy parameters travel inside the signed order as ABI-encoded bytes.
// Only the strategies interpret them.

var (
	reserveArgs    = abi.Arguments{{Type: uint256Type}}
	dutchArgs      = abi.Arguments{{Type: uint256Type}, {Type: uint256Type}}
	targetBuyerArg = abi.Arguments{{Type: addressType}}
)

// EncodeEnglishParams packs an English auction reserve price.
func EncodeEnglishParams(reserve *big.Int) ([]byte, error) {
	return reserveArgs.Pack(intOrZero(reserve))
}

// DecodeEnglishParams returns the reserve price, or nil when params is empty.
func DecodeEnglishParams(params []byte) (*big.Int, error) {
	if len(params) == 0 {
		return nil, nil
	}
	vals, err := reserveArgs.Unpack(params)
	if err != nil {
		return nil, ErrMalformed.With("english params: %v", err)
	}
	return vals[0].(*big.Int), nil
}

// DutchParams are the maker ask's auction parameters. The end price is the
// ask's own Price and the start time is its StartTime.
type DutchParams struct {
	StartPrice     *big.Int
	AuctionEndTime uint64
}

func EncodeDutchParams(p DutchParams) ([]byte, error) {
	return dutchArgs.Pack(intOrZero(p.StartPrice), new(big.Int).SetUint64(p.AuctionEndTime))
}

func DecodeDutchParams(params []byte) (DutchParams, error) {
	vals, err := dutchArgs.Unpack(params)
	if err != nil {
		return DutchParams{}, ErrMalformed.With("dutch params: %v", err)
	}
	end := vals[1].(*big.Int)
	if !end.IsUint64() {
		return DutchParams{}, ErrMalformed.With("dutch params: auction end time out of range")
	}
	return DutchParams{StartPrice: vals[0].(*big.Int), AuctionEndTime: end.Uint64()}, nil
}

func EncodePrivateSaleParams(target common.Address) ([]byte, error) {
	return targetBuyerArg.Pack(target)
}

func DecodePrivateSaleParams(params []byte) (common.Address, error) {
	vals, err := targetBuyerArg.Unpack(params)
	if err != nil {
		return common.Address{}, ErrMalformed.With("private sale params: %v", err)
	}
	return vals[0].(common.Address), nil
}
