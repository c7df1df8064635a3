package node

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/uhyunpark/mintedexchange/pkg/app/core/errs"
	"github.com/uhyunpark/mintedexchange/pkg/crypto"
)

// TxType names the exchange entry point an envelope invokes.
type TxType string

const (
	TxMatchAskWithTakerBid        TxType = "matchAskWithTakerBid"
	TxMatchAskWithTakerBidETH     TxType = "matchAskWithTakerBidUsingETHAndWETH"
	TxMatchBidWithTakerAsk        TxType = "matchBidWithTakerAsk"
	TxMatchMakerOrders            TxType = "matchMakerOrders"
	TxCancelAllOrdersForSender    TxType = "cancelAllOrdersForSender"
	TxCancelMultipleMakerOrders   TxType = "cancelMultipleMakerOrders"
	TxSetApprovalForAll           TxType = "setApprovalForAll"
	TxUpdateRoyaltyInfoIfOwner    TxType = "updateRoyaltyInfoIfOwner"
	TxUpdateRoyaltyInfoIfAdmin    TxType = "updateRoyaltyInfoIfAdmin"
	TxUpdateRoyaltyInfoIfSetter   TxType = "updateRoyaltyInfoIfSetter"
	TxUpdateProtocolFeeRecipient  TxType = "admin.updateProtocolFeeRecipient"
	TxSetOpenBeta                 TxType = "admin.setOpenBeta"
	TxAddCurrency                 TxType = "admin.addCurrency"
	TxRemoveCurrency              TxType = "admin.removeCurrency"
	TxAddStrategy                 TxType = "admin.addStrategy"
	TxRemoveStrategy              TxType = "admin.removeStrategy"
	TxAddCollectionTransferMgr    TxType = "admin.addCollectionTransferManager"
	TxRemoveCollectionTransferMgr TxType = "admin.removeCollectionTransferManager"
	TxUpdateRoyaltyFeeLimit       TxType = "admin.updateRoyaltyFeeLimit"
	TxUpdateRoyaltyInfo           TxType = "admin.updateRoyaltyInfoForCollection"
	TxUpdateMinAuctionLength      TxType = "admin.updateMinimumAuctionLength"
	TxGrantRole                   TxType = "admin.grantRole"
	TxRevokeRole                  TxType = "admin.revokeRole"
)

var (
	ErrMalformedTx     = errs.New(errs.Structural, "Tx: Malformed")
	ErrUnknownTxType   = errs.New(errs.Structural, "Tx: Unknown type")
	ErrCallerSignature = errs.New(errs.Authorization, "Tx: Signature does not match caller")
	ErrDeadlineExpired = errs.New(errs.Staleness, "Tx: Deadline expired")
	ErrDuplicateTx     = errs.New(errs.Staleness, "Tx: Already submitted")
	ErrValueNotPayable = errs.New(errs.Structural, "Tx: Value not accepted")
	ErrMempoolFull     = errs.New(errs.Internal, "Tx: Mempool full")
)

// Envelope is a caller-signed request to invoke one exchange entry point.
// The signature stands in for a chain transaction signature: it proves the
// request came from Caller.
type Envelope struct {
	Type      TxType          `json:"type"`
	Caller    string          `json:"caller"`
	Value     string          `json:"value,omitempty"` // native value in wei, decimal
	Deadline  uint64          `json:"deadline"`        // unix seconds, 0 = none
	Salt      hexutil.Bytes   `json:"salt"`
	Payload   json.RawMessage `json:"payload"`
	Signature hexutil.Bytes   `json:"signature"`
}

// Decode parses and structurally validates a raw envelope.
func Decode(data []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, ErrMalformedTx.With("%v", err)
	}
	if err := env.Validate(); err != nil {
		return nil, err
	}
	return &env, nil
}

func (e *Envelope) Encode() ([]byte, error) {
	return json.Marshal(e)
}

func (e *Envelope) Validate() error {
	if e.Type == "" {
		return ErrMalformedTx.With("missing type")
	}
	if _, err := crypto.ParseAddress(e.Caller); err != nil {
		return ErrMalformedTx.With("caller: %v", err)
	}
	if _, err := e.value(); err != nil {
		return err
	}
	if len(e.Signature) == 0 {
		return ErrMalformedTx.With("missing signature")
	}
	if len(e.Payload) == 0 {
		return ErrMalformedTx.With("missing payload")
	}
	return nil
}

func (e *Envelope) caller() common.Address {
	addr, _ := crypto.ParseAddress(e.Caller)
	return addr
}

func (e *Envelope) value() (*big.Int, error) {
	if e.Value == "" {
		return new(big.Int), nil
	}
	v, ok := new(big.Int).SetString(e.Value, 10)
	if !ok || v.Sign() < 0 || v.BitLen() > 256 {
		return nil, ErrMalformedTx.With("invalid value %q", e.Value)
	}
	return v, nil
}

// Digest is keccak256(type || caller || value32 || deadline8 || salt ||
// keccak256(payload)). It doubles as the tx hash.
func (e *Envelope) Digest() (common.Hash, error) {
	caller, err := crypto.ParseAddress(e.Caller)
	if err != nil {
		return common.Hash{}, ErrMalformedTx.With("caller: %v", err)
	}
	value, err := e.value()
	if err != nil {
		return common.Hash{}, err
	}

	buf := make([]byte, 0, len(e.Type)+20+32+8+len(e.Salt)+32)
	buf = append(buf, e.Type...)
	buf = append(buf, caller.Bytes()...)
	buf = append(buf, common.LeftPadBytes(value.Bytes(), 32)...)
	buf = append(buf, common.LeftPadBytes(new(big.Int).SetUint64(e.Deadline).Bytes(), 8)...)
	buf = append(buf, e.Salt...)
	buf = append(buf, ethcrypto.Keccak256(e.Payload)...)
	return ethcrypto.Keccak256Hash(buf), nil
}

// Sign sets Caller to the signer and fills Signature.
func (e *Envelope) Sign(signer *crypto.Signer) error {
	e.Caller = signer.Address().Hex()
	digest, err := e.Digest()
	if err != nil {
		return err
	}
	sig, err := signer.Sign(digest.Bytes())
	if err != nil {
		return err
	}
	e.Signature = sig
	return nil
}

// Authenticate checks the signature recovers Caller and returns the tx hash.
func (e *Envelope) Authenticate() (common.Hash, error) {
	digest, err := e.Digest()
	if err != nil {
		return common.Hash{}, err
	}
	recovered, err := crypto.RecoverAddress(digest.Bytes(), e.Signature)
	if err != nil {
		return common.Hash{}, ErrCallerSignature.With("%v", err)
	}
	if recovered != e.caller() {
		return common.Hash{}, ErrCallerSignature
	}
	return digest, nil
}

// NewEnvelope builds an unsigned envelope around payload.
func NewEnvelope(txType TxType, payload any, deadline uint64, salt []byte) (*Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	return &Envelope{Type: txType, Deadline: deadline, Salt: salt, Payload: raw}, nil
}
