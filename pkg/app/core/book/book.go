// Package book is the off-chain maker order book. It holds verified signed
// maker orders, persisted in pebble and indexed per collection by price, so
// takers can discover what to fill. The book never settles anything.
package book

import (
	"container/heap"
	"fmt"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/uhyunpark/mintedexchange/pkg/app/core/nonce"
	"github.com/uhyunpark/mintedexchange/pkg/app/core/order"
	"github.com/uhyunpark/mintedexchange/pkg/storage"
	"github.com/uhyunpark/mintedexchange/pkg/util"
)

// NonceChecker reports whether a maker nonce can still settle.
type NonceChecker interface {
	IsUsable(signer common.Address, n uint64) (bool, error)
}

// Listener is told about every order newly admitted to the book.
type Listener func(hash common.Hash, o *order.MakerOrder)

type sides struct {
	asks askHeap
	bids bidHeap
}

type resting struct {
	order *order.MakerOrder
	entry *entry
}

type Book struct {
	store    *storage.Store
	verifier *order.Verifier
	nonces   NonceChecker
	log      *zap.SugaredLogger

	mu          sync.RWMutex
	orders      map[common.Hash]*resting
	collections map[common.Address]*sides
	seq         uint64
	listeners   []Listener
}

// New opens the book and reloads every persisted order.
func New(store *storage.Store, verifier *order.Verifier, nonces NonceChecker, log *zap.SugaredLogger) (*Book, error) {
	b := &Book{
		store:       store,
		verifier:    verifier,
		nonces:      nonces,
		log:         util.OrNop(log),
		orders:      make(map[common.Hash]*resting),
		collections: make(map[common.Address]*sides),
	}
	var loadErr error
	err := store.Scan(storage.OrderPrefix(), func(_, val []byte) bool {
		o, err := order.DecodeMakerOrder(val)
		if err != nil {
			loadErr = err
			return false
		}
		hash, err := o.Hash()
		if err != nil {
			loadErr = err
			return false
		}
		b.index(hash, o)
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan orders: %w", err)
	}
	if loadErr != nil {
		return nil, fmt.Errorf("failed to load order: %w", loadErr)
	}
	return b, nil
}

func (b *Book) OnAdd(l Listener) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners = append(b.listeners, l)
}

// Put verifies o and adds it. Adding an order already in the book is a
// no-op that reports added=false.
func (b *Book) Put(o *order.MakerOrder) (hash common.Hash, added bool, err error) {
	if err := o.Validate(); err != nil {
		return common.Hash{}, false, err
	}
	if o.Amount.Sign() == 0 {
		return common.Hash{}, false, order.ErrZeroAmount
	}
	if err := b.verifier.Verify(o); err != nil {
		return common.Hash{}, false, err
	}
	usable, err := b.nonces.IsUsable(o.Signer, o.Nonce)
	if err != nil {
		return common.Hash{}, false, err
	}
	if !usable {
		return common.Hash{}, false, nonce.ErrNotUsable
	}
	hash, err = o.Hash()
	if err != nil {
		return common.Hash{}, false, err
	}

	b.mu.Lock()
	if _, ok := b.orders[hash]; ok {
		b.mu.Unlock()
		return hash, false, nil
	}
	raw, err := order.EncodeMakerOrder(o)
	if err != nil {
		b.mu.Unlock()
		return common.Hash{}, false, err
	}
	if err := b.store.Set(storage.OrderKey(hash), raw); err != nil {
		b.mu.Unlock()
		return common.Hash{}, false, fmt.Errorf("failed to persist order: %w", err)
	}
	cp := o.Clone()
	b.index(hash, cp)
	listeners := append([]Listener(nil), b.listeners...)
	b.mu.Unlock()

	b.log.Debugw("order_added", "hash", hash.Hex(), "order", cp.String())
	for _, l := range listeners {
		l(hash, cp)
	}
	return hash, true, nil
}

// index adds o to the in-memory structures. Caller holds b.mu or is New.
func (b *Book) index(hash common.Hash, o *order.MakerOrder) {
	b.seq++
	e := &entry{hash: hash, price: o.Price, seq: b.seq}
	s := b.sidesFor(o.Collection)
	if o.IsOrderAsk {
		heap.Push(&s.asks, e)
	} else {
		heap.Push(&s.bids, e)
	}
	b.orders[hash] = &resting{order: o, entry: e}
}

func (b *Book) sidesFor(collection common.Address) *sides {
	s, ok := b.collections[collection]
	if !ok {
		s = &sides{}
		b.collections[collection] = s
	}
	return s
}

func (b *Book) Get(hash common.Hash) (*order.MakerOrder, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	r, ok := b.orders[hash]
	if !ok {
		return nil, false
	}
	return r.order.Clone(), true
}

// BestAsk returns the lowest-priced ask for collection.
func (b *Book) BestAsk(collection common.Address) (*order.MakerOrder, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	s, ok := b.collections[collection]
	if !ok || len(s.asks) == 0 {
		return nil, false
	}
	return b.orders[s.asks[0].hash].order.Clone(), true
}

// BestBid returns the highest-priced bid for collection.
func (b *Book) BestBid(collection common.Address) (*order.MakerOrder, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	s, ok := b.collections[collection]
	if !ok || len(s.bids) == 0 {
		return nil, false
	}
	return b.orders[s.bids[0].hash].order.Clone(), true
}

// ListByCollection returns the orders on one side of a collection, best
// price first.
func (b *Book) ListByCollection(collection common.Address, asks bool) []*order.MakerOrder {
	b.mu.RLock()
	defer b.mu.RUnlock()
	s, ok := b.collections[collection]
	if !ok {
		return nil
	}

	var out []*order.MakerOrder
	if asks {
		h := append(askHeap(nil), s.asks...)
		sort.Slice(h, func(i, j int) bool { return h.Less(i, j) })
		for _, e := range h {
			out = append(out, b.orders[e.hash].order.Clone())
		}
		return out
	}
	h := append(bidHeap(nil), s.bids...)
	sort.Slice(h, func(i, j int) bool { return h.Less(i, j) })
	for _, e := range h {
		out = append(out, b.orders[e.hash].order.Clone())
	}
	return out
}

// Prune drops orders that are expired at now or whose nonce is no longer
// usable. It returns how many were dropped.
func (b *Book) Prune(now uint64) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var drop []common.Hash
	for hash, r := range b.orders {
		if r.order.EndTime <= now {
			drop = append(drop, hash)
			continue
		}
		usable, err := b.nonces.IsUsable(r.order.Signer, r.order.Nonce)
		if err != nil {
			return 0, err
		}
		if !usable {
			drop = append(drop, hash)
		}
	}
	if len(drop) == 0 {
		return 0, nil
	}

	batch := b.store.NewBatch()
	for _, hash := range drop {
		batch.Delete(storage.OrderKey(hash))
	}
	if err := batch.Commit(); err != nil {
		return 0, fmt.Errorf("failed to prune orders: %w", err)
	}
	for _, hash := range drop {
		b.remove(hash)
	}
	b.log.Debugw("orders_pruned", "count", len(drop), "remaining", len(b.orders))
	return len(drop), nil
}

func (b *Book) remove(hash common.Hash) {
	r, ok := b.orders[hash]
	if !ok {
		return
	}
	s := b.collections[r.order.Collection]
	if r.order.IsOrderAsk {
		heap.Remove(&s.asks, r.entry.index)
	} else {
		heap.Remove(&s.bids, r.entry.index)
	}
	if len(s.asks) == 0 && len(s.bids) == 0 {
		delete(b.collections, r.order.Collection)
	}
	delete(b.orders, hash)
}

func (b *Book) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.orders)
}

// Level is a price point with the number of orders resting at it.
type Level struct {
	Price string `json:"price"`
	Count int    `json:"count"`
}

// Levels summarizes one side of a collection by price, best first.
func (b *Book) Levels(collection common.Address, asks bool) []Level {
	levels := []Level{}
	for _, o := range b.ListByCollection(collection, asks) {
		p := o.Price.String()
		if n := len(levels); n > 0 && levels[n-1].Price == p {
			levels[n-1].Count++
			continue
		}
		levels = append(levels, Level{Price: p, Count: 1})
	}
	return levels
}
