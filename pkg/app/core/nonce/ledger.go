// Package nonce tracks which maker order nonces a signer can still use.
//
// A nonce is usable when it is at or above the signer's minimum nonce and has
// not been individually cancelled or executed. Both facts persist in pebble;
// an in-memory cache fronts the minimum nonces.
package nonce

import (
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/uhyunpark/mintedexchange/pkg/app/core/errs"
	"github.com/uhyunpark/mintedexchange/pkg/storage"
)

// MaxCancelSpan bounds how far a single CancelAllBelow may raise the minimum.
// The raise must stay strictly below it.
const MaxCancelSpan = 500000

var (
	ErrNonceTooLow       = errs.New(errs.Staleness, "Cancel: Order nonce lower than current")
	ErrCancelSpanTooWide = errs.New(errs.Staleness, "Cancel: Cannot cancel more orders")
	ErrEmptyCancel       = errs.New(errs.Structural, "Cancel: Cannot be empty")
	ErrAlreadyUsed       = errs.New(errs.Staleness, "Cancel: Order nonce already cancelled or executed")
	ErrNotUsable         = errs.New(errs.Staleness, "Order: Matching order expired")
)

// Status is the stored state of an individual nonce.
type Status byte

const (
	Open Status = iota
	Cancelled
	Executed
)

type Ledger struct {
	store *storage.Store

	mu       sync.RWMutex
	minNonce map[common.Address]uint64
}

func NewLedger(store *storage.Store) *Ledger {
	return &Ledger{
		store:    store,
		minNonce: make(map[common.Address]uint64),
	}
}

func (l *Ledger) MinNonce(signer common.Address) (uint64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.minNonceLocked(signer)
}

func (l *Ledger) minNonceLocked(signer common.Address) (uint64, error) {
	if v, ok := l.minNonce[signer]; ok {
		return v, nil
	}
	return l.store.GetUint64(storage.MinNonceKey(signer))
}

func (l *Ledger) statusLocked(signer common.Address, n uint64) (Status, error) {
	val, ok, err := l.store.Get(storage.NonceKey(signer, n))
	if err != nil || !ok || len(val) == 0 {
		return Open, err
	}
	return Status(val[0]), nil
}

// Status returns the individual state of nonce n, ignoring the minimum.
func (l *Ledger) Status(signer common.Address, n uint64) (Status, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.statusLocked(signer, n)
}

func (l *Ledger) IsUsable(signer common.Address, n uint64) (bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.isUsableLocked(signer, n)
}

func (l *Ledger) isUsableLocked(signer common.Address, n uint64) (bool, error) {
	minNonce, err := l.minNonceLocked(signer)
	if err != nil {
		return false, err
	}
	if n < minNonce {
		return false, nil
	}
	st, err := l.statusLocked(signer, n)
	if err != nil {
		return false, err
	}
	return st == Open, nil
}

// CancelAllBelow invalidates every nonce below newMin.
func (l *Ledger) CancelAllBelow(signer common.Address, newMin uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	current, err := l.minNonceLocked(signer)
	if err != nil {
		return err
	}
	if newMin <= current {
		return ErrNonceTooLow
	}
	if newMin-current >= MaxCancelSpan {
		return ErrCancelSpanTooWide
	}

	if err := l.store.Set(storage.MinNonceKey(signer), storage.EncodeUint64(newMin)); err != nil {
		return fmt.Errorf("failed to persist min nonce: %w", err)
	}
	l.minNonce[signer] = newMin
	return nil
}

// CancelMany cancels each listed nonce. Either all are cancelled or none is.
func (l *Ledger) CancelMany(signer common.Address, nonces []uint64) error {
	if len(nonces) == 0 {
		return ErrEmptyCancel
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	current, err := l.minNonceLocked(signer)
	if err != nil {
		return err
	}
	seen := make(map[uint64]struct{}, len(nonces))
	for _, n := range nonces {
		if n < current {
			return ErrNonceTooLow.With("nonce %d below %d", n, current)
		}
		if _, dup := seen[n]; dup {
			return ErrAlreadyUsed.With("nonce %d repeated", n)
		}
		seen[n] = struct{}{}
		st, err := l.statusLocked(signer, n)
		if err != nil {
			return err
		}
		if st != Open {
			return ErrAlreadyUsed.With("nonce %d", n)
		}
	}

	b := l.store.NewBatch()
	for _, n := range nonces {
		b.Set(storage.NonceKey(signer, n), []byte{byte(Cancelled)})
	}
	return b.Commit()
}

// Use names one signer nonce.
type Use struct {
	Signer common.Address
	Nonce  uint64
}

// Consume marks n executed. It fails with ErrNotUsable if n was cancelled,
// executed or lies below the minimum.
func (l *Ledger) Consume(signer common.Address, n uint64) error {
	return l.ConsumeAll(Use{Signer: signer, Nonce: n})
}

// ConsumeAll marks every use executed in one batch, or none of them.
func (l *Ledger) ConsumeAll(uses ...Use) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	seen := make(map[Use]struct{}, len(uses))
	for _, u := range uses {
		if _, dup := seen[u]; dup {
			return ErrNotUsable.With("signer %s nonce %d used twice", u.Signer.Hex(), u.Nonce)
		}
		seen[u] = struct{}{}
		ok, err := l.isUsableLocked(u.Signer, u.Nonce)
		if err != nil {
			return err
		}
		if !ok {
			return ErrNotUsable.With("signer %s nonce %d", u.Signer.Hex(), u.Nonce)
		}
	}

	b := l.store.NewBatch()
	for _, u := range uses {
		b.Set(storage.NonceKey(u.Signer, u.Nonce), []byte{byte(Executed)})
	}
	return b.Commit()
}
