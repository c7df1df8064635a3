package params

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noEnvFile(t *testing.T) string {
	return filepath.Join(t.TempDir(), "missing.env")
}

func TestLoadFromEnvDefaults(t *testing.T) {
	cfg, err := LoadFromEnv(noEnvFile(t))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, DevExchangeAddress, cfg.Exchange.Address)
}

func TestLoadFromEnvOverrides(t *testing.T) {
	t.Setenv("CHAIN_ID", "5")
	t.Setenv("WETH_ADDRESS", "0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2")
	t.Setenv("PROTOCOL_FEE_BPS", "150")
	t.Setenv("MAKER_MATCH_OPEN_BETA", "false")
	t.Setenv("DUTCH_MIN_AUCTION_LENGTH_S", "3600")
	t.Setenv("BLOCK_INTERVAL_MS", "50")
	t.Setenv("API_CORS_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("P2P_ENABLED", "true")
	t.Setenv("P2P_BOOTSTRAP", "/ip4/10.0.0.1/tcp/4001/p2p/QmPeer")

	cfg, err := LoadFromEnv(noEnvFile(t))
	require.NoError(t, err)
	assert.Equal(t, int64(5), cfg.Exchange.ChainID)
	assert.Equal(t, common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"), cfg.Exchange.WETH)
	assert.Equal(t, uint64(150), cfg.Fees.StandardProtocolFeeBps)
	assert.False(t, cfg.Exchange.OpenBeta)
	assert.Equal(t, time.Hour, cfg.Dutch.MinAuctionLength)
	assert.Equal(t, 50*time.Millisecond, cfg.Node.BlockInterval)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Node.AllowedOrigins)
	assert.True(t, cfg.P2P.Enabled)
	assert.Len(t, cfg.P2P.Bootstrap, 1)
}

func TestLoadFromEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("API_ADDR=:9090\nMEMPOOL_LIMIT=7\n"), 0o644))
	t.Setenv("MEMPOOL_LIMIT", "9")

	cfg, err := LoadFromEnv(path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Node.APIAddr)
	assert.Equal(t, 9, cfg.Node.MempoolLimit, "the environment wins over the file")
}

func TestLoadFromEnvRejects(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"CHAIN_ID", "mainnet"},
		{"EXCHANGE_ADDRESS", "0x1234"},
		{"WETH_ADDRESS", "0xC02aaa39b223FE8D0A0e5C4F27eAD9083C756Cc2"},
		{"PROTOCOL_FEE_BPS", "10001"},
		{"ROYALTY_FEE_LIMIT_BPS", "-1"},
		{"DUTCH_MIN_AUCTION_LENGTH_S", "60"},
		{"BLOCK_INTERVAL_MS", "0"},
		{"P2P_ENABLED", "maybe"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := LoadFromEnv(noEnvFile(t))
			assert.ErrorContains(t, err, tt.key)
		})
	}
}
