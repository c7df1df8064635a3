package state

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Dump is the serializable form of a World. Entries are sorted so equal
// worlds produce equal bytes.
type Dump struct {
	Balances    []BalanceEntry   `json:"balances"`
	Native      []NativeEntry    `json:"native"`
	Collections []CollectionDump `json:"collections"`
}

type BalanceEntry struct {
	Currency common.Address `json:"currency"`
	Holder   common.Address `json:"holder"`
	Amount   *big.Int       `json:"amount"`
}

type NativeEntry struct {
	Holder common.Address `json:"holder"`
	Amount *big.Int       `json:"amount"`
}

type CollectionDump struct {
	Info      CollectionInfo `json:"info"`
	Owners    []TokenOwner   `json:"owners,omitempty"`
	Balances  []TokenBalance `json:"balances,omitempty"`
	Approvals []Approval     `json:"approvals,omitempty"`
}

type TokenOwner struct {
	TokenID string         `json:"tokenId"`
	Owner   common.Address `json:"owner"`
}

type TokenBalance struct {
	TokenID string         `json:"tokenId"`
	Holder  common.Address `json:"holder"`
	Amount  *big.Int       `json:"amount"`
}

type Approval struct {
	Owner    common.Address `json:"owner"`
	Operator common.Address `json:"operator"`
}

func lessAddr(a, b common.Address) bool { return bytes.Compare(a[:], b[:]) < 0 }

// Export copies the world into a Dump.
func (w *World) Export() *Dump {
	w.mu.RLock()
	defer w.mu.RUnlock()

	d := &Dump{}
	for currency, book := range w.balances {
		for holder, amount := range book {
			if amount.Sign() == 0 {
				continue
			}
			d.Balances = append(d.Balances, BalanceEntry{currency, holder, new(big.Int).Set(amount)})
		}
	}
	sort.Slice(d.Balances, func(i, j int) bool {
		a, b := d.Balances[i], d.Balances[j]
		if a.Currency != b.Currency {
			return lessAddr(a.Currency, b.Currency)
		}
		return lessAddr(a.Holder, b.Holder)
	})

	for holder, amount := range w.native {
		if amount.Sign() == 0 {
			continue
		}
		d.Native = append(d.Native, NativeEntry{holder, new(big.Int).Set(amount)})
	}
	sort.Slice(d.Native, func(i, j int) bool { return lessAddr(d.Native[i].Holder, d.Native[j].Holder) })

	for _, c := range w.collections {
		cd := CollectionDump{Info: c.info}
		for token, owner := range c.owners {
			cd.Owners = append(cd.Owners, TokenOwner{token, owner})
		}
		sort.Slice(cd.Owners, func(i, j int) bool { return cd.Owners[i].TokenID < cd.Owners[j].TokenID })

		for k, amount := range c.balances {
			if amount.Sign() == 0 {
				continue
			}
			cd.Balances = append(cd.Balances, TokenBalance{k.token, k.holder, new(big.Int).Set(amount)})
		}
		sort.Slice(cd.Balances, func(i, j int) bool {
			a, b := cd.Balances[i], cd.Balances[j]
			if a.TokenID != b.TokenID {
				return a.TokenID < b.TokenID
			}
			return lessAddr(a.Holder, b.Holder)
		})

		for k, ok := range c.approvals {
			if ok {
				cd.Approvals = append(cd.Approvals, Approval{k.owner, k.operator})
			}
		}
		sort.Slice(cd.Approvals, func(i, j int) bool {
			a, b := cd.Approvals[i], cd.Approvals[j]
			if a.Owner != b.Owner {
				return lessAddr(a.Owner, b.Owner)
			}
			return lessAddr(a.Operator, b.Operator)
		})
		d.Collections = append(d.Collections, cd)
	}
	sort.Slice(d.Collections, func(i, j int) bool {
		return lessAddr(d.Collections[i].Info.Address, d.Collections[j].Info.Address)
	})
	return d
}

// Import builds a World from a Dump. The journal starts empty.
func Import(d *Dump) (*World, error) {
	w := NewWorld()
	for _, b := range d.Balances {
		if b.Amount == nil || b.Amount.Sign() < 0 {
			return nil, fmt.Errorf("invalid balance for %s", b.Holder.Hex())
		}
		w.currencyBook(b.Currency)[b.Holder] = new(big.Int).Set(b.Amount)
	}
	for _, n := range d.Native {
		if n.Amount == nil || n.Amount.Sign() < 0 {
			return nil, fmt.Errorf("invalid native balance for %s", n.Holder.Hex())
		}
		w.native[n.Holder] = new(big.Int).Set(n.Amount)
	}
	for _, cd := range d.Collections {
		if err := w.RegisterCollection(cd.Info); err != nil {
			return nil, err
		}
		c := w.collections[cd.Info.Address]
		for _, o := range cd.Owners {
			c.owners[o.TokenID] = o.Owner
		}
		for _, b := range cd.Balances {
			c.balances[balanceKey{b.TokenID, b.Holder}] = new(big.Int).Set(b.Amount)
		}
		for _, a := range cd.Approvals {
			c.approvals[approvalKey{a.Owner, a.Operator}] = true
		}
	}
	w.journal = nil
	return w, nil
}

// Root is the keccak256 of the canonical JSON dump.
func (w *World) Root() (common.Hash, error) {
	data, err := json.Marshal(w.Export())
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to marshal world: %w", err)
	}
	return crypto.Keccak256Hash(data), nil
}
