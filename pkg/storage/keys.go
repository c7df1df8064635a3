package storage

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// Key schema. Prefixes never overlap so every collection can be range
// scanned on its own.
//
//	minnonce:<signer>              → uint64
//	nonce:<signer>:<nonce 020d>    → status byte
//	order:<hash>                   → signed maker order
//	receipt:<txhash>               → tx receipt
//	event:<seq 020d>               → exchange event
//	royalty:<collection>           → royalty fee info
//	meta:<name>                    → node metadata (height, event seq)
const (
	prefixMinNonce = "minnonce:"
	prefixNonce    = "nonce:"
	prefixOrder    = "order:"
	prefixReceipt  = "receipt:"
	prefixEvent    = "event:"
	prefixRoyalty  = "royalty:"
	prefixMeta     = "meta:"
)

func MinNonceKey(signer common.Address) []byte {
	return []byte(prefixMinNonce + signer.Hex())
}

// NonceKey zero-pads the nonce so keys sort numerically.
func NonceKey(signer common.Address, nonce uint64) []byte {
	return []byte(fmt.Sprintf("%s%s:%020d", prefixNonce, signer.Hex(), nonce))
}

func NoncePrefix(signer common.Address) []byte {
	return []byte(fmt.Sprintf("%s%s:", prefixNonce, signer.Hex()))
}

func OrderKey(hash common.Hash) []byte {
	return []byte(prefixOrder + hash.Hex())
}

func OrderPrefix() []byte { return []byte(prefixOrder) }

func ReceiptKey(txHash common.Hash) []byte {
	return []byte(prefixReceipt + txHash.Hex())
}

func EventKey(seq uint64) []byte {
	return []byte(fmt.Sprintf("%s%020d", prefixEvent, seq))
}

func EventPrefix() []byte { return []byte(prefixEvent) }

func RoyaltyKey(collection common.Address) []byte {
	return []byte(prefixRoyalty + collection.Hex())
}

func RoyaltyPrefix() []byte { return []byte(prefixRoyalty) }

func MetaKey(name string) []byte {
	return []byte(prefixMeta + name)
}

// KeyUpperBound returns the exclusive upper bound for a prefix scan.
func KeyUpperBound(prefix []byte) []byte {
	bound := make([]byte, len(prefix))
	copy(bound, prefix)
	bound[len(bound)-1]++
	return bound
}
