package mempool

import (
	"encoding/json"
	"strings"
	"sync"
)

// Bucket is the application priority of a transaction.
type Bucket int

const (
	BucketAdmin Bucket = iota
	BucketCancel
	BucketMatch
)

func (b Bucket) String() string {
	switch b {
	case BucketAdmin:
		return "admin"
	case BucketCancel:
		return "cancel"
	default:
		return "match"
	}
}

// ClassifyRaw classifies a raw transaction by its JSON envelope type:
//
//	{"type": "admin.addCurrency", ...}           -> BucketAdmin
//	{"type": "setApprovalForAll", ...}           -> BucketAdmin
//	{"type": "updateRoyaltyInfoIfOwner", ...}    -> BucketAdmin
//	{"type": "cancelAllOrdersForSender", ...}    -> BucketCancel
//	{"type": "matchAskWithTakerBid", ...}        -> BucketMatch
//
// Anything else lands in BucketMatch and is rejected when applied.
func ClassifyRaw(b []byte) Bucket {
	var envelope struct {
		Type string `json:"type"`
	}
	if len(b) == 0 || b[0] != '{' || json.Unmarshal(b, &envelope) != nil {
		return BucketMatch
	}
	return Classify(envelope.Type)
}

// Classify maps an envelope type name to its bucket.
func Classify(txType string) Bucket {
	switch {
	case strings.HasPrefix(txType, "admin."),
		strings.HasPrefix(txType, "updateRoyaltyInfo"),
		txType == "setApprovalForAll":
		return BucketAdmin
	case strings.HasPrefix(txType, "cancel"):
		return BucketCancel
	default:
		return BucketMatch
	}
}

// Mempool keeps one queue per bucket: (1) admin, (2) cancel, (3) match.
// Within each bucket, FIFO by admission order. Configuration changes and
// cancellations therefore take effect before matches in the same block.
type Mempool struct {
	mu     sync.Mutex
	admin  [][]byte
	cancel [][]byte
	match  [][]byte
	limit  int
}

// NewMempool returns a mempool holding at most limit txs; 0 is unbounded.
func NewMempool(limit int) *Mempool {
	return &Mempool{limit: limit}
}

// PushRaw classifies and enqueues a tx. It reports false when the pool is full.
func (m *Mempool) PushRaw(b []byte) bool {
	cp := append([]byte(nil), b...)
	bucket := ClassifyRaw(b)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.limit > 0 && m.lenLocked() >= m.limit {
		return false
	}
	switch bucket {
	case BucketAdmin:
		m.admin = append(m.admin, cp)
	case BucketCancel:
		m.cancel = append(m.cancel, cp)
	default:
		m.match = append(m.match, cp)
	}
	return true
}

// SelectForBlock returns up to maxBytes worth of txs in bucket order,
// removing selected txs from the mempool. maxBytes <= 0 takes everything.
func (m *Mempool) SelectForBlock(maxBytes int64) [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out [][]byte
	var used int64

	pull := func(q *[][]byte) bool {
		for len(*q) > 0 {
			tx := (*q)[0]
			n := int64(len(tx))
			if maxBytes > 0 && used+n > maxBytes {
				return false
			}
			out = append(out, tx)
			used += n
			*q = (*q)[1:]
		}
		return true
	}

	// A lower bucket never overtakes a higher one that still has txs left.
	_ = pull(&m.admin) && pull(&m.cancel) && pull(&m.match)

	return out
}

func (m *Mempool) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lenLocked()
}

func (m *Mempool) lenLocked() int {
	return len(m.admin) + len(m.cancel) + len(m.match)
}
