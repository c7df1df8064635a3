package book

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// entry is one resting maker order in a price heap.
type entry struct {
	hash  common.Hash
	price *big.Int
	seq   uint64 // admission order, earlier wins ties
	index int    // position in its heap, maintained by Swap
}

// bidHeap implements heap.Interface for bids (highest price on top).
// Use container/heap to manipulate it (Init, Push, Pop, Remove).
type bidHeap []*entry

func (h bidHeap) Len() int { return len(h) }
func (h bidHeap) Less(i, j int) bool {
	if c := h[i].price.Cmp(h[j].price); c != 0 {
		return c > 0
	}
	return h[i].seq < h[j].seq
}
func (h bidHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *bidHeap) Push(x interface{}) {
	e := x.(*entry)
	e.index = len(*h)
	*h = append(*h, e)
}

func (h *bidHeap) Pop() interface{} {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*h = old[0 : n-1]
	e.index = -1
	return e
}

// askHeap implements heap.Interface for asks (lowest price on top).
type askHeap []*entry

func (h askHeap) Len() int { return len(h) }
func (h askHeap) Less(i, j int) bool {
	if c := h[i].price.Cmp(h[j].price); c != 0 {
		return c < 0
	}
	return h[i].seq < h[j].seq
}
func (h askHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *askHeap) Push(x interface{}) {
	e := x.(*entry)
	e.index = len(*h)
	*h = append(*h, e)
}

func (h *askHeap) Pop() interface{} {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*h = old[0 : n-1]
	e.index = -1
	return e
}
