// Package access is role-based authorization for exchange administration.
package access

import (
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/uhyunpark/mintedexchange/pkg/app/core/errs"
)

type Role string

const (
	DefaultAdmin     Role = "DEFAULT_ADMIN"
	CurrencyAdmin    Role = "CURRENCY_ADMIN"
	StrategyAdmin    Role = "STRATEGY_ADMIN"
	RoyaltyAdmin     Role = "ROYALTY_ADMIN"
	TransferAdmin    Role = "TRANSFER_ADMIN"
	FeeAdmin         Role = "FEE_ADMIN"
	BetaAdmin        Role = "BETA_ADMIN"
	MatchMakerOrders Role = "MATCH_MAKER_ORDERS"
)

// AllRoles lists every role, in the order the owner receives them.
var AllRoles = []Role{
	DefaultAdmin, CurrencyAdmin, StrategyAdmin, RoyaltyAdmin,
	TransferAdmin, FeeAdmin, BetaAdmin, MatchMakerOrders,
}

var (
	ErrMissingRole = errs.New(errs.Authorization, "AccessControl: missing role")
	ErrUnknownRole = errs.New(errs.Structural, "AccessControl: unknown role")
)

func ParseRole(s string) (Role, error) {
	for _, r := range AllRoles {
		if string(r) == s {
			return r, nil
		}
	}
	return "", ErrUnknownRole.With("%q", s)
}

type Roles struct {
	mu      sync.RWMutex
	members map[Role]map[common.Address]struct{}
}

// NewRoles grants every role to owner.
func NewRoles(owner common.Address) *Roles {
	r := &Roles{members: make(map[Role]map[common.Address]struct{})}
	for _, role := range AllRoles {
		r.Grant(role, owner)
	}
	return r
}

// Grant reports whether account was newly added.
func (r *Roles) Grant(role Role, account common.Address) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.members[role]
	if !ok {
		set = make(map[common.Address]struct{})
		r.members[role] = set
	}
	if _, had := set[account]; had {
		return false
	}
	set[account] = struct{}{}
	return true
}

// Revoke reports whether account held the role.
func (r *Roles) Revoke(role Role, account common.Address) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, had := r.members[role][account]; !had {
		return false
	}
	delete(r.members[role], account)
	return true
}

func (r *Roles) Has(role Role, account common.Address) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.members[role][account]
	return ok
}

// Check fails with ErrMissingRole unless account holds role.
func (r *Roles) Check(role Role, account common.Address) error {
	if !r.Has(role, account) {
		return ErrMissingRole.With("%s for %s", role, account.Hex())
	}
	return nil
}

// Members returns the holders of role sorted by address.
func (r *Roles) Members(role Role) []common.Address {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]common.Address, 0, len(r.members[role]))
	for a := range r.members[role] {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Hex() < out[j].Hex() })
	return out
}
