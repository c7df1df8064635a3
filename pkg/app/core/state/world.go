// Package state is the world-state ledger the exchange settles against:
// currency balances, native value, asset collections and operator approvals.
//
// Every mutation is journaled. Snapshot marks a point in the journal and
// RevertToSnapshot undoes everything after it, the way an EVM call frame is
// rolled back on revert.
package state

import (
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/uhyunpark/mintedexchange/pkg/app/core/errs"
)

var (
	ErrInsufficientBalance = errs.New(errs.Ineligible, "Ledger: Insufficient balance")
	ErrNegativeAmount      = errs.New(errs.Structural, "Ledger: Negative amount")
	ErrUnknownCollection   = errs.New(errs.Structural, "Collection: Unknown collection")
	ErrCollectionExists    = errs.New(errs.Configuration, "Collection: Already registered")
	ErrWrongStandard       = errs.New(errs.Structural, "Collection: Wrong token standard")
	ErrNotTokenOwner       = errs.New(errs.Ineligible, "Transfer: From is not the token owner")
	ErrNotApproved         = errs.New(errs.Ineligible, "Transfer: Caller is not owner nor approved")
	ErrZeroRecipient       = errs.New(errs.Structural, "Transfer: To cannot be null address")
	ErrUnsafeRecipient     = errs.New(errs.Ineligible, "Transfer: Transfer to non ERC721Receiver implementer")
	ErrTokenExists         = errs.New(errs.Structural, "Collection: Token already minted")
)

type World struct {
	mu sync.RWMutex

	balances    map[common.Address]map[common.Address]*big.Int // currency → holder → amount
	native      map[common.Address]*big.Int
	collections map[common.Address]*collection

	journal []func()
}

func NewWorld() *World {
	return &World{
		balances:    make(map[common.Address]map[common.Address]*big.Int),
		native:      make(map[common.Address]*big.Int),
		collections: make(map[common.Address]*collection),
	}
}

// Snapshot returns an id for the current journal position.
func (w *World) Snapshot() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.journal)
}

// RevertToSnapshot undoes every mutation recorded after id.
func (w *World) RevertToSnapshot(id int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for i := len(w.journal) - 1; i >= id; i-- {
		w.journal[i]()
	}
	w.journal = w.journal[:id]
}

// Commit forgets the journal. Snapshots taken earlier become invalid.
func (w *World) Commit() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.journal = w.journal[:0]
}

func (w *World) record(undo func()) {
	w.journal = append(w.journal, undo)
}

// setAmount stores v in m[k], journaling the previous value.
func (w *World) setAmount(m map[common.Address]*big.Int, k common.Address, v *big.Int) {
	prev, had := m[k]
	w.record(func() {
		if had {
			m[k] = prev
		} else {
			delete(m, k)
		}
	})
	m[k] = v
}

func amountOf(m map[common.Address]*big.Int, k common.Address) *big.Int {
	if v, ok := m[k]; ok {
		return new(big.Int).Set(v)
	}
	return new(big.Int)
}

// ---------------------------------------------------------------------------
// Currency balances

func (w *World) BalanceOf(currency, holder common.Address) *big.Int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return amountOf(w.balances[currency], holder)
}

func (w *World) currencyBook(currency common.Address) map[common.Address]*big.Int {
	book, ok := w.balances[currency]
	if !ok {
		book = make(map[common.Address]*big.Int)
		w.balances[currency] = book
		w.record(func() { delete(w.balances, currency) })
	}
	return book
}

// Mint credits amount of currency to holder.
func (w *World) Mint(currency, holder common.Address, amount *big.Int) error {
	if amount.Sign() < 0 {
		return ErrNegativeAmount
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	book := w.currencyBook(currency)
	w.setAmount(book, holder, new(big.Int).Add(amountOf(book, holder), amount))
	return nil
}

// Transfer moves amount of currency from one holder to another.
func (w *World) Transfer(currency, from, to common.Address, amount *big.Int) error {
	if amount.Sign() < 0 {
		return ErrNegativeAmount
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.transferLocked(currency, from, to, amount)
}

func (w *World) transferLocked(currency, from, to common.Address, amount *big.Int) error {
	if amount.Sign() == 0 {
		return nil
	}
	book := w.currencyBook(currency)
	have := amountOf(book, from)
	if have.Cmp(amount) < 0 {
		return ErrInsufficientBalance.With("%s holds %s of %s, needs %s", from.Hex(), have, currency.Hex(), amount)
	}
	w.setAmount(book, from, have.Sub(have, amount))
	w.setAmount(book, to, new(big.Int).Add(amountOf(book, to), amount))
	return nil
}

// ---------------------------------------------------------------------------
// Native value

func (w *World) NativeBalance(holder common.Address) *big.Int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return amountOf(w.native, holder)
}

func (w *World) CreditNative(holder common.Address, amount *big.Int) error {
	if amount.Sign() < 0 {
		return ErrNegativeAmount
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.setAmount(w.native, holder, new(big.Int).Add(amountOf(w.native, holder), amount))
	return nil
}

// Deposit wraps amount of holder's native value into the wrapped currency,
// like WETH.deposit().
func (w *World) Deposit(wrapped, holder common.Address, amount *big.Int) error {
	if amount.Sign() < 0 {
		return ErrNegativeAmount
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	have := amountOf(w.native, holder)
	if have.Cmp(amount) < 0 {
		return ErrInsufficientBalance.With("%s holds %s native, needs %s", holder.Hex(), have, amount)
	}
	w.setAmount(w.native, holder, have.Sub(have, amount))
	book := w.currencyBook(wrapped)
	w.setAmount(book, holder, new(big.Int).Add(amountOf(book, holder), amount))
	return nil
}
