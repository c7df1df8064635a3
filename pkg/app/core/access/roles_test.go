package access

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uhyunpark/mintedexchange/pkg/app/core/errs"
)

func TestOwnerHoldsEveryRole(t *testing.T) {
	owner := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	r := NewRoles(owner)
	for _, role := range AllRoles {
		assert.True(t, r.Has(role, owner), role)
	}
}

func TestGrantRevoke(t *testing.T) {
	owner := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	relayer := common.HexToAddress("0x00000000000000000000000000000000000000bb")
	r := NewRoles(owner)

	err := r.Check(MatchMakerOrders, relayer)
	assert.ErrorIs(t, err, ErrMissingRole)
	assert.Equal(t, errs.Authorization, errs.ClassOf(err))

	assert.True(t, r.Grant(MatchMakerOrders, relayer))
	assert.False(t, r.Grant(MatchMakerOrders, relayer))
	require.NoError(t, r.Check(MatchMakerOrders, relayer))
	assert.Equal(t, []common.Address{owner, relayer}, r.Members(MatchMakerOrders))

	assert.True(t, r.Revoke(MatchMakerOrders, relayer))
	assert.False(t, r.Revoke(MatchMakerOrders, relayer))
	assert.False(t, r.Has(MatchMakerOrders, relayer))
}

func TestParseRole(t *testing.T) {
	role, err := ParseRole("FEE_ADMIN")
	require.NoError(t, err)
	assert.Equal(t, FeeAdmin, role)

	_, err = ParseRole("ROOT")
	assert.ErrorIs(t, err, ErrUnknownRole)
}
