package node

import (
	"github.com/uhyunpark/mintedexchange/pkg/app/core/order"
)

type TakerBidPayload struct {
	TakerBid order.TakerOrderPayload `json:"takerBid"`
	MakerAsk order.MakerOrderPayload `json:"makerAsk"`
}

type TakerAskPayload struct {
	TakerAsk order.TakerOrderPayload `json:"takerAsk"`
	MakerBid order.MakerOrderPayload `json:"makerBid"`
}

type MakerMatchPayload struct {
	MakerBid order.MakerOrderPayload `json:"makerBid"`
	MakerAsk order.MakerOrderPayload `json:"makerAsk"`
}

type CancelAllPayload struct {
	MinNonce uint64 `json:"minNonce"`
}

type CancelManyPayload struct {
	Nonces []uint64 `json:"nonces"`
}

type ApprovalPayload struct {
	Collection string `json:"collection"`
	Operator   string `json:"operator"`
	Approved   bool   `json:"approved"`
}

// AddressPayload carries the single address of currency, strategy and fee
// recipient updates.
type AddressPayload struct {
	Address string `json:"address"`
}

type BoolPayload struct {
	Value bool `json:"value"`
}

type TransferManagerPayload struct {
	Collection string `json:"collection"`
	Manager    string `json:"manager,omitempty"`
}

type FeeLimitPayload struct {
	Limit uint64 `json:"limit"`
}

type RoyaltyPayload struct {
	Collection string `json:"collection"`
	Setter     string `json:"setter"`
	Receiver   string `json:"receiver"`
	Fee        uint64 `json:"fee"`
}

type AuctionLengthPayload struct {
	Strategy string `json:"strategy"`
	Seconds  uint64 `json:"seconds"`
}

type RolePayload struct {
	Role    string `json:"role"`
	Account string `json:"account"`
}
