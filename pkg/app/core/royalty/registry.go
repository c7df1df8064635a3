// Package royalty resolves who is owed a creator royalty on a sale and how
// much.
package royalty

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/uhyunpark/mintedexchange/pkg/app/core/errs"
	"github.com/uhyunpark/mintedexchange/pkg/storage"
)

// MaxFeeLimit is the highest royalty fee limit the owner can configure.
const MaxFeeLimit = 9500

var (
	ErrFeeLimitTooHigh = errs.New(errs.Configuration, "Owner: Royalty fee limit too high")
	ErrFeeTooHigh      = errs.New(errs.Configuration, "Registry: Royalty fee too high")
)

var feeLimitKey = storage.MetaKey("royaltyFeeLimit")

// Info is the registry entry for one collection.
type Info struct {
	Setter   common.Address `json:"setter"`
	Receiver common.Address `json:"receiver"`
	Fee      uint64         `json:"fee"`
}

// Registry stores per-collection royalty info, bounded by a fee limit. When
// a store is given, every write is persisted and the registry reloads from it
// on construction.
type Registry struct {
	store *storage.Store

	mu       sync.RWMutex
	feeLimit uint64
	infos    map[common.Address]Info
}

// NewRegistry opens a registry. store may be nil for a memory-only registry.
// feeLimit applies only when the store holds no limit yet.
func NewRegistry(store *storage.Store, feeLimit uint64) (*Registry, error) {
	if feeLimit > MaxFeeLimit {
		return nil, ErrFeeLimitTooHigh
	}
	r := &Registry{
		store:    store,
		feeLimit: feeLimit,
		infos:    make(map[common.Address]Info),
	}
	if store == nil {
		return r, nil
	}
	if err := r.load(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Registry) load() error {
	val, ok, err := r.store.Get(feeLimitKey)
	if err != nil {
		return err
	}
	if ok {
		if r.feeLimit, err = storage.DecodeUint64(val); err != nil {
			return fmt.Errorf("failed to decode royalty fee limit: %w", err)
		}
	}

	prefix := storage.RoyaltyPrefix()
	var decodeErr error
	err = r.store.Scan(prefix, func(key, val []byte) bool {
		var info Info
		if err := json.Unmarshal(val, &info); err != nil {
			decodeErr = fmt.Errorf("failed to decode royalty entry %q: %w", key, err)
			return false
		}
		r.infos[common.HexToAddress(string(bytes.TrimPrefix(key, prefix)))] = info
		return true
	})
	if err != nil {
		return err
	}
	return decodeErr
}

func (r *Registry) FeeLimit() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.feeLimit
}

func (r *Registry) UpdateRoyaltyFeeLimit(limit uint64) error {
	if limit > MaxFeeLimit {
		return ErrFeeLimitTooHigh
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.store != nil {
		if err := r.store.Set(feeLimitKey, storage.EncodeUint64(limit)); err != nil {
			return err
		}
	}
	r.feeLimit = limit
	return nil
}

func (r *Registry) UpdateRoyaltyInfoForCollection(collection, setter, receiver common.Address, fee uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if fee > r.feeLimit {
		return ErrFeeTooHigh.With("fee %d above limit %d", fee, r.feeLimit)
	}
	info := Info{Setter: setter, Receiver: receiver, Fee: fee}
	if r.store != nil {
		if err := r.store.SetJSON(storage.RoyaltyKey(collection), info); err != nil {
			return err
		}
	}
	r.infos[collection] = info
	return nil
}

// RoyaltyInfo returns the receiver and floor(price*fee/10000).
func (r *Registry) RoyaltyInfo(collection common.Address, price *big.Int) (common.Address, *big.Int) {
	info := r.RoyaltyFeeInfoCollection(collection)
	amount := new(big.Int).Mul(price, new(big.Int).SetUint64(info.Fee))
	return info.Receiver, amount.Quo(amount, big.NewInt(10000))
}

// RoyaltyFeeInfoCollection returns the entry for collection, zero if unset.
func (r *Registry) RoyaltyFeeInfoCollection(collection common.Address) Info {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.infos[collection]
}
