package api

// API response types for REST endpoints and WebSocket messages

import (
	"github.com/uhyunpark/mintedexchange/pkg/app/core/book"
	"github.com/uhyunpark/mintedexchange/pkg/app/core/order"
	"github.com/uhyunpark/mintedexchange/pkg/app/exchange"
)

// ==============================
// REST Response Types
// ==============================

// HealthResponse is served at /health.
type HealthResponse struct {
	Status   string `json:"status"`
	Height   uint64 `json:"height"`
	Mempool  int    `json:"mempool"`
	Orders   int    `json:"orders"`
	WSClient int    `json:"wsClients"`
}

// SubmitTxResponse is returned for an admitted envelope.
type SubmitTxResponse struct {
	TxHash string `json:"txHash"`
	Status string `json:"status"` // "pending"
}

// TxStatusResponse is returned while a tx waits in the mempool.
type TxStatusResponse struct {
	TxHash string `json:"txHash"`
	Status string `json:"status"`
}

// SubmitOrderResponse is the response from POST /api/v1/orders.
type SubmitOrderResponse struct {
	Hash  string `json:"hash"`
	Added bool   `json:"added"` // false if the book already held it
}

// OrderResponse is a booked maker order.
type OrderResponse struct {
	Hash      string                   `json:"hash"`
	Side      string                   `json:"side"`                // "ask" or "bid"
	PriceUnit string                   `json:"priceUnit,omitempty"` // price / 1e18, e.g. "1.5"
	Order     *order.MakerOrderPayload `json:"order"`
}

// OrderListResponse lists a collection's orders, best price first.
type OrderListResponse struct {
	Collection string          `json:"collection"`
	Side       string          `json:"side"`
	Orders     []OrderResponse `json:"orders"`
}

// DepthResponse aggregates one side of a collection by price.
type DepthResponse struct {
	Collection string       `json:"collection"`
	Side       string       `json:"side"`
	Levels     []book.Level `json:"levels"`
}

// NonceResponse carries a signer's minimum nonce.
type NonceResponse struct {
	Address  string `json:"address"`
	MinNonce uint64 `json:"minNonce"`
}

// NonceStatusResponse reports whether one nonce can still back an order.
type NonceStatusResponse struct {
	Address             string `json:"address"`
	Nonce               uint64 `json:"nonce"`
	ExecutedOrCancelled bool   `json:"executedOrCancelled"`
	BelowMinNonce       bool   `json:"belowMinNonce"`
	Usable              bool   `json:"usable"`
}

// PageResponse is one page of a whitelist. Cursor is the value to pass for
// the next page.
type PageResponse struct {
	Items  []string `json:"items"`
	Cursor int      `json:"cursor"`
	Total  int      `json:"total"`
}

// StrategyInfo describes a whitelisted strategy.
type StrategyInfo struct {
	Address     string `json:"address"`
	Name        string `json:"name"`
	ProtocolFee uint64 `json:"protocolFee"` // basis points
}

// StrategyPageResponse is one page of whitelisted strategies.
type StrategyPageResponse struct {
	Items  []StrategyInfo `json:"items"`
	Cursor int            `json:"cursor"`
	Total  int            `json:"total"`
}

// RoyaltyResponse is a collection's registry entry and who may change it.
// The quote fields are filled when a price query parameter is given.
type RoyaltyResponse struct {
	Collection string `json:"collection"`
	Setter     string `json:"setter"`
	Receiver   string `json:"receiver"`
	Fee        uint64 `json:"fee"`
	FeeLimit   uint64 `json:"feeLimit"`
	SetterKind string `json:"setterKind"`

	QuoteReceiver string `json:"quoteReceiver,omitempty"`
	QuoteAmount   string `json:"quoteAmount,omitempty"`
}

// ExchangeInfo describes the deployment.
type ExchangeInfo struct {
	Name                 string                    `json:"name"`
	Version              string                    `json:"version"`
	ChainID              string                    `json:"chainId"`
	Address              string                    `json:"address"`
	DomainSeparator      string                    `json:"domainSeparator"`
	WETH                 string                    `json:"weth"`
	ProtocolFeeRecipient string                    `json:"protocolFeeRecipient"`
	MakerMatchOpenBeta   bool                      `json:"makerMatchOpenBeta"`
	Managers             exchange.ManagerAddresses `json:"managers"`
	Height               uint64                    `json:"height"`
}

// EventsResponse is a page of the persisted event log.
type EventsResponse struct {
	Events []exchange.Event `json:"events"`
	Last   uint64           `json:"last"` // pass as ?after= for the next page
}

// ErrorResponse is returned for all errors. Class is the error taxonomy
// class for domain failures.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Class   string `json:"class,omitempty"`
}

// ==============================
// WebSocket Types
// ==============================

// WSSubscribeRequest is sent by clients: {"op":"subscribe","channels":["events"]}.
type WSSubscribeRequest struct {
	Op       string   `json:"op"`
	Channels []string `json:"channels"`
}

// WSMessage wraps every pushed message.
type WSMessage struct {
	Channel string      `json:"channel"`
	Data    interface{} `json:"data"`
}
