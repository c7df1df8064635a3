package state

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Standard is the token interface a collection implements.
type Standard uint8

const (
	ERC721 Standard = iota + 1
	ERC1155
	// NonCompliantERC721 implements transferFrom without the ERC165
	// interface advertisement.
	NonCompliantERC721
)

func (s Standard) String() string {
	switch s {
	case ERC721:
		return "erc721"
	case ERC1155:
		return "erc1155"
	case NonCompliantERC721:
		return "noncompliant-erc721"
	default:
		return "unknown"
	}
}

// ParseStandard is the inverse of Standard.String.
func ParseStandard(s string) (Standard, bool) {
	for _, st := range []Standard{ERC721, ERC1155, NonCompliantERC721} {
		if st.String() == s {
			return st, true
		}
	}
	return 0, false
}

// CollectionInfo describes a collection. Royalty fields are only used when
// HasERC2981 is set.
type CollectionInfo struct {
	Address         common.Address
	Standard        Standard
	Owner           common.Address
	Admin           common.Address
	HasERC2981      bool
	RoyaltyReceiver common.Address
	RoyaltyBps      uint64
}

type approvalKey struct{ owner, operator common.Address }

type balanceKey struct {
	token  string
	holder common.Address
}

type collection struct {
	info      CollectionInfo
	owners    map[string]common.Address // ERC721 token id → owner
	balances  map[balanceKey]*big.Int   // ERC1155
	approvals map[approvalKey]bool
}

func tokenKey(id *big.Int) string { return id.String() }

func (w *World) RegisterCollection(info CollectionInfo) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.collections[info.Address]; ok {
		return ErrCollectionExists.With("%s", info.Address.Hex())
	}
	w.collections[info.Address] = &collection{
		info:      info,
		owners:    make(map[string]common.Address),
		balances:  make(map[balanceKey]*big.Int),
		approvals: make(map[approvalKey]bool),
	}
	w.record(func() { delete(w.collections, info.Address) })
	return nil
}

func (w *World) Collection(addr common.Address) (CollectionInfo, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	c, ok := w.collections[addr]
	if !ok {
		return CollectionInfo{}, false
	}
	return c.info, true
}

// SupportsInterface answers the ERC165 question for std. Non-compliant
// collections advertise nothing.
func (w *World) SupportsInterface(addr common.Address, std Standard) bool {
	info, ok := w.Collection(addr)
	return ok && info.Standard == std && std != NonCompliantERC721
}

// RoyaltyInfo is the ERC2981 view: receiver and floor(price*bps/10000). ok
// is false when the collection does not implement ERC2981.
func (w *World) RoyaltyInfo(addr common.Address, tokenID, price *big.Int) (common.Address, *big.Int, bool) {
	info, ok := w.Collection(addr)
	if !ok || !info.HasERC2981 {
		return common.Address{}, nil, false
	}
	amount := new(big.Int).Mul(price, new(big.Int).SetUint64(info.RoyaltyBps))
	amount.Quo(amount, big.NewInt(10000))
	return info.RoyaltyReceiver, amount, true
}

func (w *World) collectionLocked(addr common.Address) (*collection, error) {
	c, ok := w.collections[addr]
	if !ok {
		return nil, ErrUnknownCollection.With("%s", addr.Hex())
	}
	return c, nil
}

// ---------------------------------------------------------------------------
// Approvals

func (w *World) SetApprovalForAll(addr, owner, operator common.Address, approved bool) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	c, err := w.collectionLocked(addr)
	if err != nil {
		return err
	}
	k := approvalKey{owner, operator}
	prev, had := c.approvals[k]
	w.record(func() {
		if had {
			c.approvals[k] = prev
		} else {
			delete(c.approvals, k)
		}
	})
	c.approvals[k] = approved
	return nil
}

func (w *World) IsApprovedForAll(addr, owner, operator common.Address) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	c, ok := w.collections[addr]
	return ok && c.approvals[approvalKey{owner, operator}]
}

func (c *collection) authorized(operator, from common.Address) bool {
	return operator == from || c.approvals[approvalKey{from, operator}]
}

// ---------------------------------------------------------------------------
// Single-owner tokens (ERC721 and non-compliant ERC721)

func (w *World) MintERC721(addr, to common.Address, tokenID *big.Int) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	c, err := w.collectionLocked(addr)
	if err != nil {
		return err
	}
	if c.info.Standard == ERC1155 {
		return ErrWrongStandard
	}
	k := tokenKey(tokenID)
	if _, ok := c.owners[k]; ok {
		return ErrTokenExists.With("token %s", k)
	}
	w.setOwner(c, k, to)
	return nil
}

func (w *World) OwnerOf(addr common.Address, tokenID *big.Int) (common.Address, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	c, ok := w.collections[addr]
	if !ok {
		return common.Address{}, false
	}
	owner, ok := c.owners[tokenKey(tokenID)]
	return owner, ok
}

func (w *World) setOwner(c *collection, k string, owner common.Address) {
	prev, had := c.owners[k]
	w.record(func() {
		if had {
			c.owners[k] = prev
		} else {
			delete(c.owners, k)
		}
	})
	c.owners[k] = owner
}

// TransferFrom moves a single-owner token. operator must be the owner or an
// approved operator.
func (w *World) TransferFrom(addr, operator, from, to common.Address, tokenID *big.Int) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	c, err := w.collectionLocked(addr)
	if err != nil {
		return err
	}
	if c.info.Standard == ERC1155 {
		return ErrWrongStandard
	}
	return w.transfer721Locked(c, operator, from, to, tokenID)
}

// SafeTransferFrom721 is safeTransferFrom: only collections advertising
// ERC721 implement it, and the recipient must accept tokens. Collection
// contracts are the only recipients known not to.
func (w *World) SafeTransferFrom721(addr, operator, from, to common.Address, tokenID *big.Int) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	c, err := w.collectionLocked(addr)
	if err != nil {
		return err
	}
	if c.info.Standard != ERC721 {
		return ErrWrongStandard
	}
	if _, isContract := w.collections[to]; isContract {
		return ErrUnsafeRecipient.With("%s", to.Hex())
	}
	return w.transfer721Locked(c, operator, from, to, tokenID)
}

func (w *World) transfer721Locked(c *collection, operator, from, to common.Address, tokenID *big.Int) error {
	if to == (common.Address{}) {
		return ErrZeroRecipient
	}
	k := tokenKey(tokenID)
	if owner, ok := c.owners[k]; !ok || owner != from {
		return ErrNotTokenOwner.With("token %s", k)
	}
	if !c.authorized(operator, from) {
		return ErrNotApproved.With("operator %s", operator.Hex())
	}
	w.setOwner(c, k, to)
	return nil
}

// ---------------------------------------------------------------------------
// Multi-token balances (ERC1155)

func (w *World) MintERC1155(addr, to common.Address, id, amount *big.Int) error {
	if amount.Sign() < 0 {
		return ErrNegativeAmount
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	c, err := w.collectionLocked(addr)
	if err != nil {
		return err
	}
	if c.info.Standard != ERC1155 {
		return ErrWrongStandard
	}
	k := balanceKey{tokenKey(id), to}
	w.setBalance(c, k, new(big.Int).Add(c.balance(k), amount))
	return nil
}

func (w *World) BalanceOfToken(addr, holder common.Address, id *big.Int) *big.Int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	c, ok := w.collections[addr]
	if !ok {
		return new(big.Int)
	}
	return c.balance(balanceKey{tokenKey(id), holder})
}

func (c *collection) balance(k balanceKey) *big.Int {
	if v, ok := c.balances[k]; ok {
		return new(big.Int).Set(v)
	}
	return new(big.Int)
}

func (w *World) setBalance(c *collection, k balanceKey, v *big.Int) {
	prev, had := c.balances[k]
	w.record(func() {
		if had {
			c.balances[k] = prev
		} else {
			delete(c.balances, k)
		}
	})
	c.balances[k] = v
}

// SafeTransferFrom1155 moves amount of token id.
func (w *World) SafeTransferFrom1155(addr, operator, from, to common.Address, id, amount *big.Int) error {
	if amount.Sign() < 0 {
		return ErrNegativeAmount
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	c, err := w.collectionLocked(addr)
	if err != nil {
		return err
	}
	if c.info.Standard != ERC1155 {
		return ErrWrongStandard
	}
	if to == (common.Address{}) {
		return ErrZeroRecipient
	}
	if !c.authorized(operator, from) {
		return ErrNotApproved.With("operator %s", operator.Hex())
	}
	fromKey := balanceKey{tokenKey(id), from}
	have := c.balance(fromKey)
	if have.Cmp(amount) < 0 {
		return ErrInsufficientBalance.With("%s holds %s of token %s, needs %s", from.Hex(), have, id, amount)
	}
	w.setBalance(c, fromKey, have.Sub(have, amount))
	toKey := balanceKey{tokenKey(id), to}
	w.setBalance(c, toKey, new(big.Int).Add(c.balance(toKey), amount))
	return nil
}
