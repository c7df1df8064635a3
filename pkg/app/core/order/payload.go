package order

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/uhyunpark/mintedexchange/pkg/crypto"
)

// MakerOrderPayload is the JSON wire form of a MakerOrder. Big integers are
// decimal strings, byte fields are 0x-prefixed hex.
type MakerOrderPayload struct {
	IsOrderAsk         bool          `json:"isOrderAsk"`
	Signer             string        `json:"signer"`
	Collection         string        `json:"collection"`
	Price              string        `json:"price"`
	TokenID            string        `json:"tokenId"`
	Amount             string        `json:"amount"`
	Strategy           string        `json:"strategy"`
	Currency           string        `json:"currency"`
	Nonce              uint64        `json:"nonce"`
	StartTime          uint64        `json:"startTime"`
	EndTime            uint64        `json:"endTime"`
	MinPercentageToAsk uint64        `json:"minPercentageToAsk"`
	Params             hexutil.Bytes `json:"params"`
	Signature          hexutil.Bytes `json:"signature"`
}

// TakerOrderPayload is the JSON wire form of a TakerOrder.
type TakerOrderPayload struct {
	IsOrderAsk         bool          `json:"isOrderAsk"`
	Taker              string        `json:"taker"`
	Price              string        `json:"price"`
	TokenID            string        `json:"tokenId"`
	MinPercentageToAsk uint64        `json:"minPercentageToAsk"`
	Params             hexutil.Bytes `json:"params"`
}

// ToMakerOrder parses and validates the payload.
func (p *MakerOrderPayload) ToMakerOrder() (*MakerOrder, error) {
	var (
		o   = &MakerOrder{IsOrderAsk: p.IsOrderAsk}
		err error
	)

	addrs := []struct {
		name string
		in   string
		out  *common.Address
	}{
		{"signer", p.Signer, &o.Signer},
		{"collection", p.Collection, &o.Collection},
		{"strategy", p.Strategy, &o.Strategy},
		{"currency", p.Currency, &o.Currency},
	}
	for _, a := range addrs {
		if *a.out, err = crypto.ParseAddress(a.in); err != nil {
			return nil, ErrMalformed.With("%s: %v", a.name, err)
		}
	}

	if o.Price, err = parseUint256("price", p.Price); err != nil {
		return nil, err
	}
	if o.TokenID, err = parseUint256("tokenId", p.TokenID); err != nil {
		return nil, err
	}
	if o.Amount, err = parseUint256("amount", p.Amount); err != nil {
		return nil, err
	}

	o.Nonce = p.Nonce
	o.StartTime = p.StartTime
	o.EndTime = p.EndTime
	o.MinPercentageToAsk = p.MinPercentageToAsk
	o.Params = append([]byte(nil), p.Params...)
	o.Signature = append([]byte(nil), p.Signature...)

	if err := o.Validate(); err != nil {
		return nil, err
	}
	return o, nil
}

// ToTakerOrder parses and validates the payload.
func (p *TakerOrderPayload) ToTakerOrder() (*TakerOrder, error) {
	taker, err := crypto.ParseAddress(p.Taker)
	if err != nil {
		return nil, ErrMalformed.With("taker: %v", err)
	}
	price, err := parseUint256("price", p.Price)
	if err != nil {
		return nil, err
	}
	tokenID, err := parseUint256("tokenId", p.TokenID)
	if err != nil {
		return nil, err
	}
	if p.MinPercentageToAsk > 10000 {
		return nil, ErrMalformed.With("minPercentageToAsk %d above 10000", p.MinPercentageToAsk)
	}

	return &TakerOrder{
		IsOrderAsk:         p.IsOrderAsk,
		Taker:              taker,
		Price:              price,
		TokenID:            tokenID,
		MinPercentageToAsk: p.MinPercentageToAsk,
		Params:             append([]byte(nil), p.Params...),
	}, nil
}

// Validate checks shape only. Amount, signer and signature are judged by the
// exchange so the failure order matches settlement semantics.
func (o *MakerOrder) Validate() error {
	if o.Price == nil || o.TokenID == nil || o.Amount == nil {
		return ErrMalformed.With("missing numeric field")
	}
	if o.Price.Sign() < 0 || o.TokenID.Sign() < 0 || o.Amount.Sign() < 0 {
		return ErrMalformed.With("negative numeric field")
	}
	if o.MinPercentageToAsk > 10000 {
		return ErrMalformed.With("minPercentageToAsk %d above 10000", o.MinPercentageToAsk)
	}
	if o.EndTime < o.StartTime {
		return ErrMalformed.With("endTime %d before startTime %d", o.EndTime, o.StartTime)
	}
	return nil
}

// FromMakerOrder converts a MakerOrder into its wire form.
func FromMakerOrder(o *MakerOrder) *MakerOrderPayload {
	return &MakerOrderPayload{
		IsOrderAsk:         o.IsOrderAsk,
		Signer:             o.Signer.Hex(),
		Collection:         o.Collection.Hex(),
		Price:              intOrZero(o.Price).String(),
		TokenID:            intOrZero(o.TokenID).String(),
		Amount:             intOrZero(o.Amount).String(),
		Strategy:           o.Strategy.Hex(),
		Currency:           o.Currency.Hex(),
		Nonce:              o.Nonce,
		StartTime:          o.StartTime,
		EndTime:            o.EndTime,
		MinPercentageToAsk: o.MinPercentageToAsk,
		Params:             append(hexutil.Bytes(nil), o.Params...),
		Signature:          append(hexutil.Bytes(nil), o.Signature...),
	}
}

// FromTakerOrder converts a TakerOrder into its wire form.
func FromTakerOrder(o *TakerOrder) *TakerOrderPayload {
	return &TakerOrderPayload{
		IsOrderAsk:         o.IsOrderAsk,
		Taker:              o.Taker.Hex(),
		Price:              intOrZero(o.Price).String(),
		TokenID:            intOrZero(o.TokenID).String(),
		MinPercentageToAsk: o.MinPercentageToAsk,
		Params:             append(hexutil.Bytes(nil), o.Params...),
	}
}

// DecodeMakerOrder parses a JSON maker order.
func DecodeMakerOrder(data []byte) (*MakerOrder, error) {
	var p MakerOrderPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, ErrMalformed.With("%v", err)
	}
	return p.ToMakerOrder()
}

// EncodeMakerOrder serializes a maker order to JSON.
func EncodeMakerOrder(o *MakerOrder) ([]byte, error) {
	return json.Marshal(FromMakerOrder(o))
}

var maxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

func parseUint256(field, s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, ErrMalformed.With("invalid %s: %q", field, s)
	}
	if v.Sign() < 0 || v.Cmp(maxUint256) > 0 {
		return nil, ErrMalformed.With("%s out of uint256 range", field)
	}
	return v, nil
}

// String is used in log lines.
func (o *MakerOrder) String() string {
	return fmt.Sprintf("maker{%s signer=%s collection=%s token=%s amount=%s price=%s nonce=%d}",
		o.Side(), o.Signer.Hex(), o.Collection.Hex(), intOrZero(o.TokenID), intOrZero(o.Amount),
		intOrZero(o.Price), o.Nonce)
}
