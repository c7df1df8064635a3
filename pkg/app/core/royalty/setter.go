package royalty

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/uhyunpark/mintedexchange/pkg/app/core/errs"
	"github.com/uhyunpark/mintedexchange/pkg/app/core/state"
)

var (
	ErrSetterAlreadySet = errs.New(errs.Authorization, "Setter: Already set")
	ErrAdminIsERC2981   = errs.New(errs.Authorization, "Admin: Must not be ERC2981")
	ErrNotAdmin         = errs.New(errs.Authorization, "Admin: Not the admin")
	ErrOwnerIsERC2981   = errs.New(errs.Authorization, "Owner: Must not be ERC2981")
	ErrNotOwner         = errs.New(errs.Authorization, "Owner: Not the owner")
	ErrNotSetter        = errs.New(errs.Authorization, "Setter: Not the setter")
)

// Collections is the view of the asset layer the royalty subsystem needs.
type Collections interface {
	Collection(addr common.Address) (state.CollectionInfo, bool)
	RoyaltyInfo(addr common.Address, tokenID, price *big.Int) (common.Address, *big.Int, bool)
}

// SetterKind classifies who may set a collection's royalty.
type SetterKind uint8

const (
	KindSetter  SetterKind = iota // a setter is recorded in the registry
	KindERC2981                   // the collection declares its own royalty
	KindOwner                     // the collection owner
	KindAdmin                     // the collection admin
	KindNone
)

func (k SetterKind) String() string {
	switch k {
	case KindSetter:
		return "setter"
	case KindERC2981:
		return "erc2981"
	case KindOwner:
		return "owner"
	case KindAdmin:
		return "admin"
	default:
		return "none"
	}
}

// Setter lets collection owners, admins and recorded setters manage their
// own registry entry.
type Setter struct {
	registry    *Registry
	collections Collections
}

func NewSetter(registry *Registry, collections Collections) *Setter {
	return &Setter{registry: registry, collections: collections}
}

func (s *Setter) is2981(collection common.Address) bool {
	info, ok := s.collections.Collection(collection)
	return ok && info.HasERC2981
}

func (s *Setter) UpdateRoyaltyInfoForCollectionIfAdmin(caller, collection, setter, receiver common.Address, fee uint64) error {
	if s.registry.RoyaltyFeeInfoCollection(collection).Setter != (common.Address{}) {
		return ErrSetterAlreadySet
	}
	if s.is2981(collection) {
		return ErrAdminIsERC2981
	}
	info, _ := s.collections.Collection(collection)
	if info.Admin == (common.Address{}) || caller != info.Admin {
		return ErrNotAdmin
	}
	return s.registry.UpdateRoyaltyInfoForCollection(collection, setter, receiver, fee)
}

func (s *Setter) UpdateRoyaltyInfoForCollectionIfOwner(caller, collection, setter, receiver common.Address, fee uint64) error {
	if s.registry.RoyaltyFeeInfoCollection(collection).Setter != (common.Address{}) {
		return ErrSetterAlreadySet
	}
	if s.is2981(collection) {
		return ErrOwnerIsERC2981
	}
	info, _ := s.collections.Collection(collection)
	if info.Owner == (common.Address{}) || caller != info.Owner {
		return ErrNotOwner
	}
	return s.registry.UpdateRoyaltyInfoForCollection(collection, setter, receiver, fee)
}

func (s *Setter) UpdateRoyaltyInfoForCollectionIfSetter(caller, collection, setter, receiver common.Address, fee uint64) error {
	current := s.registry.RoyaltyFeeInfoCollection(collection).Setter
	if current == (common.Address{}) || caller != current {
		return ErrNotSetter
	}
	return s.registry.UpdateRoyaltyInfoForCollection(collection, setter, receiver, fee)
}

// UpdateRoyaltyInfoForCollection bypasses the setter checks. Callers gate it
// behind the royalty admin role.
func (s *Setter) UpdateRoyaltyInfoForCollection(collection, setter, receiver common.Address, fee uint64) error {
	return s.registry.UpdateRoyaltyInfoForCollection(collection, setter, receiver, fee)
}

func (s *Setter) UpdateRoyaltyFeeLimit(limit uint64) error {
	return s.registry.UpdateRoyaltyFeeLimit(limit)
}

// CheckForCollectionSetter reports who may currently set the royalty.
func (s *Setter) CheckForCollectionSetter(collection common.Address) (common.Address, SetterKind) {
	if setter := s.registry.RoyaltyFeeInfoCollection(collection).Setter; setter != (common.Address{}) {
		return setter, KindSetter
	}
	info, ok := s.collections.Collection(collection)
	switch {
	case ok && info.HasERC2981:
		return common.Address{}, KindERC2981
	case ok && info.Owner != (common.Address{}):
		return info.Owner, KindOwner
	case ok && info.Admin != (common.Address{}):
		return info.Admin, KindAdmin
	default:
		return common.Address{}, KindNone
	}
}
