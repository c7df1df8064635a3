package p2p

import (
	"context"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uhyunpark/mintedexchange/pkg/app/core/order"
	"github.com/uhyunpark/mintedexchange/pkg/crypto"
)

var exchangeAddr = common.HexToAddress("0x00000000000000000000000000000000000000ee")

func newVerifier(t *testing.T, chainID int64) *order.Verifier {
	t.Helper()
	v, err := order.NewVerifier(crypto.DefaultDomain(chainID, exchangeAddr))
	require.NoError(t, err)
	return v
}

func signedAsk(t *testing.T, v *order.Verifier, nonce uint64) *order.MakerOrder {
	t.Helper()
	signer, err := crypto.GenerateKey()
	require.NoError(t, err)
	o := &order.MakerOrder{
		IsOrderAsk: true,
		Signer:     signer.Address(),
		Collection: common.HexToAddress("0xc1"),
		Price:      big.NewInt(100),
		TokenID:    big.NewInt(1),
		Amount:     big.NewInt(1),
		Strategy:   common.HexToAddress("0x5001"),
		Currency:   common.HexToAddress("0xe7e7"),
		Nonce:      nonce,
		StartTime:  1,
		EndTime:    2_000_000_000,
	}
	require.NoError(t, v.Sign(signer, o))
	return o
}

func newGossip(t *testing.T, ctx context.Context, v *order.Verifier) *OrderGossip {
	t.Helper()
	g, err := NewOrderGossip(ctx, Config{ListenAddr: "/ip4/127.0.0.1/tcp/0"}, v)
	require.NoError(t, err)
	t.Cleanup(func() { g.Close() })
	return g
}

func TestWireRejectsUnknownVersion(t *testing.T) {
	v := newVerifier(t, 1337)
	o := signedAsk(t, v, 1)

	data, err := encodeOrder(o)
	require.NoError(t, err)
	got, err := decodeOrder(data)
	require.NoError(t, err)
	assert.Equal(t, o.Signature, got.Signature)
	assert.Equal(t, 0, o.Price.Cmp(got.Price))

	raw, err := order.EncodeMakerOrder(o)
	require.NoError(t, err)
	future, err := gobEncode(OrderWire{Version: wireVersion + 1, Order: raw})
	require.NoError(t, err)
	_, err = decodeOrder(future)
	assert.Error(t, err)
}

func TestCheckOrder(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	v := newVerifier(t, 1337)
	g := newGossip(t, ctx, v)

	valid := signedAsk(t, v, 1)
	forged := signedAsk(t, v, 2)
	forged.Price = big.NewInt(1)
	otherChain := signedAsk(t, newVerifier(t, 1), 3)

	encode := func(o *order.MakerOrder) []byte {
		data, err := encodeOrder(o)
		require.NoError(t, err)
		return data
	}

	tests := []struct {
		name    string
		data    []byte
		wantErr bool
	}{
		{"valid", encode(valid), false},
		{"forged price", encode(forged), true},
		{"other domain", encode(otherChain), true},
		{"garbage", []byte("not gob"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := g.checkOrder(tt.data)
			assert.Equal(t, tt.wantErr, err != nil, "err = %v", err)
		})
	}
}

func TestGossipBetweenPeers(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	v := newVerifier(t, 1337)

	a := newGossip(t, ctx, v)
	b := newGossip(t, ctx, v)

	var (
		mu  sync.Mutex
		got []*order.MakerOrder
	)
	b.SetHandler(func(o *order.MakerOrder) error {
		mu.Lock()
		got = append(got, o)
		mu.Unlock()
		return nil
	})

	require.NotEmpty(t, a.Addrs())
	require.NoError(t, b.Connect(ctx, a.Addrs()[0]))

	o := signedAsk(t, v, 9)
	// The mesh forms on the gossipsub heartbeat, so publish until b sees it.
	require.Eventually(t, func() bool {
		if err := a.Publish(ctx, o); err != nil {
			return false
		}
		mu.Lock()
		defer mu.Unlock()
		return len(got) > 0
	}, 10*time.Second, 200*time.Millisecond)

	mu.Lock()
	assert.Equal(t, o.Signer, got[0].Signer)
	assert.Equal(t, uint64(9), got[0].Nonce)
	mu.Unlock()

	received, _ := b.Stats()
	assert.NotZero(t, received)

	forged := signedAsk(t, v, 10)
	forged.Nonce = 11
	assert.Error(t, a.Publish(ctx, forged), "the local validator rejects forged orders")
}
