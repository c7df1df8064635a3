package crypto

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

var EIP712DomainTypeHash = crypto.Keccak256Hash([]byte(
	"EIP712Domain(string name,string version,uint256 chainId,address verifyingContract)",
))

var (
	bytes32Type, _ = abi.NewType("bytes32", "", nil)
	uint256Type, _ = abi.NewType("uint256", "", nil)
	addressType, _ = abi.NewType("address", "", nil)

	domainArgs = abi.Arguments{
		{Type: bytes32Type},
		{Type: bytes32Type},
		{Type: bytes32Type},
		{Type: uint256Type},
		{Type: addressType},
	}
)

// EIP712Domain binds signatures to one protocol deployment so an order signed
// for one chain or exchange cannot be replayed on another.
type EIP712Domain struct {
	Name              string
	Version           string
	ChainID           *big.Int
	VerifyingContract common.Address
}

// DefaultDomain returns the exchange domain for chainID and the exchange identity.
func DefaultDomain(chainID int64, exchange common.Address) EIP712Domain {
	return EIP712Domain{
		Name:              "MintedExchange",
		Version:           "1",
		ChainID:           big.NewInt(chainID),
		VerifyingContract: exchange,
	}
}

// Separator computes the EIP-712 domain separator.
func (d EIP712Domain) Separator() (common.Hash, error) {
	chainID := d.ChainID
	if chainID == nil {
		chainID = new(big.Int)
	}

	packed, err := domainArgs.Pack(
		EIP712DomainTypeHash,
		crypto.Keccak256Hash([]byte(d.Name)),
		crypto.Keccak256Hash([]byte(d.Version)),
		chainID,
		d.VerifyingContract,
	)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to pack domain: %w", err)
	}
	return crypto.Keccak256Hash(packed), nil
}

// TypedData returns the apitypes form of the domain, used to build wallet
// payloads for eth_signTypedData_v4.
func (d EIP712Domain) TypedData() apitypes.TypedDataDomain {
	return apitypes.TypedDataDomain{
		Name:              d.Name,
		Version:           d.Version,
		ChainId:           (*math.HexOrDecimal256)(d.ChainID),
		VerifyingContract: d.VerifyingContract.Hex(),
	}
}

// TypedDataHash returns keccak256("\x19\x01" || separator || structHash).
func TypedDataHash(separator, structHash common.Hash) common.Hash {
	raw := make([]byte, 0, 66)
	raw = append(raw, 0x19, 0x01)
	raw = append(raw, separator.Bytes()...)
	raw = append(raw, structHash.Bytes()...)
	return crypto.Keccak256Hash(raw)
}
