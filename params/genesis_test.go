package params

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleGenesis = `
owner: 0x00000000000000000000000000000000000000a1
currencies:
  - 0x000000000000000000000000000000000000d5dc
managers:
  execution: 0x000000000000000000000000000000000000e0e0
transferManagers:
  erc1155: 0x0000000000000000000000000000000000009155
strategies:
  - kind: fixed_price
    address: 0x0000000000000000000000000000000000005001
  - kind: dutch_auction
    address: 0x0000000000000000000000000000000000005004
    protocolFeeBps: 0
    minAuctionLengthS: 1800
collections:
  - address: 0x00000000000000000000000000000000000000c1
    standard: erc721
    owner: 0x00000000000000000000000000000000000000a5
    tokens:
      - id: "115792089237316195423570985008687907853269984665640564039457584007913129639935"
        owner: 0x00000000000000000000000000000000000000a2
balances:
  - currency: 0x000000000000000000000000000000000000d5dc
    holder: 0x00000000000000000000000000000000000000a3
    amount: 1000
roles:
  - {role: MATCH_MAKER_ORDERS, account: 0x00000000000000000000000000000000000000a4}
`

func TestLoadGenesis(t *testing.T) {
	path := filepath.Join(t.TempDir(), "genesis.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleGenesis), 0o644))

	g, err := LoadGenesis(path)
	require.NoError(t, err)

	assert.Equal(t, common.HexToAddress("0xa1"), g.Owner.Common())
	require.Len(t, g.Strategies, 2)
	require.NotNil(t, g.Strategies[1].ProtocolFeeBps)
	assert.Zero(t, *g.Strategies[1].ProtocolFeeBps, "an explicit zero fee is kept")
	assert.Nil(t, g.Strategies[0].ProtocolFeeBps)
	assert.Equal(t, common.HexToAddress("0xe0e0"), g.Managers.Execution.Common())

	id := g.Collections[0].Tokens[0].ID.Big()
	assert.Equal(t, 256, id.BitLen())
	assert.Equal(t, int64(1000), g.Balances[0].Amount.Big().Int64())

	erc721, erc1155, nonCompliant := g.TransferManagers.Resolved()
	assert.Equal(t, DefaultERC721TransferManager, erc721)
	assert.Equal(t, common.HexToAddress("0x9155"), erc1155)
	assert.Equal(t, DefaultNonCompliantERC721TransferManager, nonCompliant)
}

func TestLoadGenesisMissingFile(t *testing.T) {
	_, err := LoadGenesis(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorContains(t, err, "read genesis")
}

func TestParseGenesisRejects(t *testing.T) {
	tests := []struct {
		name, yaml, want string
	}{
		{
			name: "bad checksum",
			yaml: "owner: 0xc02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2\n",
			want: "checksum",
		},
		{
			name: "negative amount",
			yaml: "nativeBalances: [{holder: 0x00000000000000000000000000000000000000a3, amount: -5}]\n",
			want: "non-negative",
		},
		{
			name: "unknown strategy kind",
			yaml: "strategies: [{kind: batch_auction, address: 0x0000000000000000000000000000000000005001}]\n",
			want: "unknown kind",
		},
		{
			name: "duplicate strategy",
			yaml: `strategies:
  - {kind: fixed_price, address: 0x0000000000000000000000000000000000005001}
  - {kind: private_sale, address: 0x0000000000000000000000000000000000005001}
`,
			want: "duplicate address",
		},
		{
			name: "auction length below floor",
			yaml: "strategies: [{kind: dutch_auction, address: 0x0000000000000000000000000000000000005004, minAuctionLengthS: 60}]\n",
			want: "below",
		},
		{
			name: "auction length on fixed price",
			yaml: "strategies: [{kind: fixed_price, address: 0x0000000000000000000000000000000000005001, minAuctionLengthS: 3600}]\n",
			want: "dutch_auction only",
		},
		{
			name: "unknown standard",
			yaml: "collections: [{address: 0x00000000000000000000000000000000000000c1, standard: erc20}]\n",
			want: "unknown standard",
		},
		{
			name: "amount on erc721",
			yaml: `collections:
  - address: 0x00000000000000000000000000000000000000c1
    standard: erc721
    tokens: [{id: 1, owner: 0x00000000000000000000000000000000000000a2, amount: 3}]
`,
			want: "erc1155 only",
		},
		{
			name: "approval for unknown collection",
			yaml: `approvals:
  - {collection: 0x00000000000000000000000000000000000000c9, owner: 0x00000000000000000000000000000000000000a2, operator: 0x0000000000000000000000000000000000000721}
`,
			want: "unknown collection",
		},
		{
			name: "unknown role",
			yaml: "roles: [{role: SUPERUSER, account: 0x00000000000000000000000000000000000000a4}]\n",
			want: "unknown role",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseGenesis([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParseGenesisReportsEveryProblem(t *testing.T) {
	_, err := ParseGenesis([]byte(`
strategies:
  - {kind: nope, address: 0x0000000000000000000000000000000000005001}
roles:
  - {role: NOBODY, account: 0x00000000000000000000000000000000000000a4}
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "strategies[0]")
	assert.Contains(t, err.Error(), "roles[0]")
}

func TestEmptyGenesisIsValid(t *testing.T) {
	g, err := ParseGenesis(nil)
	require.NoError(t, err)
	assert.True(t, g.Owner.IsZero())
}
