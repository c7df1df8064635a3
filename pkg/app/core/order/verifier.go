package order

import (
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"

	"github.com/uhyunpark/mintedexchange/pkg/crypto"
)

// Verifier checks maker order signatures against one EIP-712 domain.
type Verifier struct {
	domain    crypto.EIP712Domain
	separator common.Hash
}

func NewVerifier(domain crypto.EIP712Domain) (*Verifier, error) {
	sep, err := domain.Separator()
	if err != nil {
		return nil, err
	}
	return &Verifier{domain: domain, separator: sep}, nil
}

func (v *Verifier) Domain() crypto.EIP712Domain { return v.domain }

func (v *Verifier) DomainSeparator() common.Hash { return v.separator }

// Digest returns the hash a maker signs.
func (v *Verifier) Digest(o *MakerOrder) (common.Hash, error) {
	structHash, err := o.Hash()
	if err != nil {
		return common.Hash{}, err
	}
	return crypto.TypedDataHash(v.separator, structHash), nil
}

// Recover returns the address that signed o. It does not compare against
// o.Signer.
func (v *Verifier) Recover(o *MakerOrder) (common.Address, error) {
	digest, err := v.Digest(o)
	if err != nil {
		return common.Address{}, err
	}
	addr, err := crypto.RecoverAddress(digest.Bytes(), o.Signature)
	if err != nil {
		return common.Address{}, ErrInvalidSignature.With("%v", err)
	}
	return addr, nil
}

// Verify fails with ErrInvalidSigner for a zero signer and with
// ErrInvalidSignature when the signature is malformed, malleable or recovers
// to someone other than o.Signer.
func (v *Verifier) Verify(o *MakerOrder) error {
	if o.Signer == (common.Address{}) {
		return ErrInvalidSigner
	}
	recovered, err := v.Recover(o)
	if err != nil {
		return err
	}
	if recovered != o.Signer {
		return ErrInvalidSignature.With("recovered %s", recovered.Hex())
	}
	return nil
}

// Sign fills o.Signature using signer. o.Signer must already be set.
func (v *Verifier) Sign(signer *crypto.Signer, o *MakerOrder) error {
	if o.Signer != signer.Address() {
		return fmt.Errorf("order signer %s does not match key %s", o.Signer.Hex(), signer.Address().Hex())
	}
	digest, err := v.Digest(o)
	if err != nil {
		return fmt.Errorf("failed to hash order: %w", err)
	}
	sig, err := signer.Sign(digest.Bytes())
	if err != nil {
		return fmt.Errorf("failed to sign order: %w", err)
	}
	o.Signature = sig
	return nil
}

var makerOrderTypes = apitypes.Types{
	"EIP712Domain": []apitypes.Type{
		{Name: "name", Type: "string"},
		{Name: "version", Type: "string"},
		{Name: "chainId", Type: "uint256"},
		{Name: "verifyingContract", Type: "address"},
	},
	"MakerOrder": []apitypes.Type{
		{Name: "isOrderAsk", Type: "bool"},
		{Name: "signer", Type: "address"},
		{Name: "collection", Type: "address"},
		{Name: "price", Type: "uint256"},
		{Name: "tokenId", Type: "uint256"},
		{Name: "amount", Type: "uint256"},
		{Name: "strategy", Type: "address"},
		{Name: "currency", Type: "address"},
		{Name: "nonce", Type: "uint256"},
		{Name: "startTime", Type: "uint256"},
		{Name: "endTime", Type: "uint256"},
		{Name: "minPercentageToAsk", Type: "uint256"},
		{Name: "params", Type: "bytes"},
	},
}

// TypedData builds the eth_signTypedData_v4 document for o.
func (v *Verifier) TypedData(o *MakerOrder) apitypes.TypedData {
	return apitypes.TypedData{
		Types:       makerOrderTypes,
		PrimaryType: "MakerOrder",
		Domain:      v.domain.TypedData(),
		Message: apitypes.TypedDataMessage{
			"isOrderAsk":         o.IsOrderAsk,
			"signer":             o.Signer.Hex(),
			"collection":         o.Collection.Hex(),
			"price":              intOrZero(o.Price).String(),
			"tokenId":            intOrZero(o.TokenID).String(),
			"amount":             intOrZero(o.Amount).String(),
			"strategy":           o.Strategy.Hex(),
			"currency":           o.Currency.Hex(),
			"nonce":              fmt.Sprintf("%d", o.Nonce),
			"startTime":          fmt.Sprintf("%d", o.StartTime),
			"endTime":            fmt.Sprintf("%d", o.EndTime),
			"minPercentageToAsk": fmt.Sprintf("%d", o.MinPercentageToAsk),
			"params":             hexutil.Encode(o.Params),
		},
	}
}

// TypedDataJSON renders TypedData as indented JSON for wallets.
func (v *Verifier) TypedDataJSON(o *MakerOrder) (string, error) {
	td := v.TypedData(o)
	out, err := json.MarshalIndent(td, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal typed data: %w", err)
	}
	return string(out), nil
}
