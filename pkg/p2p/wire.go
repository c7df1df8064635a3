package p2p

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"github.com/uhyunpark/mintedexchange/pkg/app/core/order"
)

const wireVersion = 1

func init() {
	gob.Register(OrderWire{})
}

// OrderWire is the gossip envelope of one signed maker order.
type OrderWire struct {
	Version uint8
	Order   []byte // JSON order.MakerOrderPayload
}

func encodeOrder(o *order.MakerOrder) ([]byte, error) {
	raw, err := order.EncodeMakerOrder(o)
	if err != nil {
		return nil, err
	}
	return gobEncode(OrderWire{Version: wireVersion, Order: raw})
}

func decodeOrder(data []byte) (*order.MakerOrder, error) {
	var w OrderWire
	if err := gobDecode(data, &w); err != nil {
		return nil, err
	}
	if w.Version != wireVersion {
		return nil, fmt.Errorf("unsupported wire version %d", w.Version)
	}
	return order.DecodeMakerOrder(w.Order)
}

func gobEncode(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func gobDecode(b []byte, v any) error {
	return gob.NewDecoder(bytes.NewReader(b)).Decode(v)
}
