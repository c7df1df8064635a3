package order

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

const makerOrderType = "MakerOrder(bool isOrderAsk,address signer,address collection,uint256 price," +
	"uint256 tokenId,uint256 amount,address strategy,address currency,uint256 nonce,uint256 startTime," +
	"uint256 endTime,uint256 minPercentageToAsk,bytes params)"

var MakerOrderTypeHash = crypto.Keccak256Hash([]byte(makerOrderType))

var (
	bytes32Type, _ = abi.NewType("bytes32", "", nil)
	boolType, _    = abi.NewType("bool", "", nil)
	addressType, _ = abi.NewType("address", "", nil)
	uint256Type, _ = abi.NewType("uint256", "", nil)

	makerOrderArgs = abi.Arguments{
		{Type: bytes32Type}, // typehash
		{Type: boolType},    // isOrderAsk
		{Type: addressType}, // signer
		{Type: addressType}, // collection
		{Type: uint256Type}, // price
		{Type: uint256Type}, // tokenId
		{Type: uint256Type}, // amount
		{Type: addressType}, // strategy
		{Type: addressType}, // currency
		{Type: uint256Type}, // nonce
		{Type: uint256Type}, // startTime
		{Type: uint256Type}, // endTime
		{Type: uint256Type}, // minPercentageToAsk
		{Type: bytes32Type}, // keccak256(params)
	}
)

// Hash returns the EIP-712 struct hash of the order. The variable-length
// params are replaced by their keccak256 so the encoding is fixed-width.
// This is the order hash reported in settlement events.
func (o *MakerOrder) Hash() (common.Hash, error) {
	packed, err := makerOrderArgs.Pack(
		MakerOrderTypeHash,
		o.IsOrderAsk,
		o.Signer,
		o.Collection,
		intOrZero(o.Price),
		intOrZero(o.TokenID),
		intOrZero(o.Amount),
		o.Strategy,
		o.Currency,
		new(big.Int).SetUint64(o.Nonce),
		new(big.Int).SetUint64(o.StartTime),
		new(big.Int).SetUint64(o.EndTime),
		new(big.Int).SetUint64(o.MinPercentageToAsk),
		crypto.Keccak256Hash(o.Params),
	)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to pack maker order: %w", err)
	}
	return crypto.Keccak256Hash(packed), nil
}
