package book

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uhyunpark/mintedexchange/pkg/app/core/nonce"
	"github.com/uhyunpark/mintedexchange/pkg/app/core/order"
	"github.com/uhyunpark/mintedexchange/pkg/crypto"
	"github.com/uhyunpark/mintedexchange/pkg/storage"
)

var (
	punks    = common.HexToAddress("0x00000000000000000000000000000000000000c1")
	weth     = common.HexToAddress("0x000000000000000000000000000000000000e7e7")
	strategy = common.HexToAddress("0x0000000000000000000000000000000000005001")
)

const now = 1_700_000_000

type fixture struct {
	store    *storage.Store
	ledger   *nonce.Ledger
	verifier *order.Verifier
	book     *Book
	signer   *crypto.Signer
	nonce    uint64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := storage.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	verifier, err := order.NewVerifier(crypto.DefaultDomain(1337, common.HexToAddress("0xee")))
	require.NoError(t, err)
	ledger := nonce.NewLedger(store)
	b, err := New(store, verifier, ledger, nil)
	require.NoError(t, err)

	signer, err := crypto.GenerateKey()
	require.NoError(t, err)
	return &fixture{store: store, ledger: ledger, verifier: verifier, book: b, signer: signer}
}

func (f *fixture) order(t *testing.T, ask bool, price int64) *order.MakerOrder {
	t.Helper()
	f.nonce++
	o := &order.MakerOrder{
		IsOrderAsk: ask,
		Signer:     f.signer.Address(),
		Collection: punks,
		Price:      big.NewInt(price),
		TokenID:    big.NewInt(int64(f.nonce)),
		Amount:     big.NewInt(1),
		Strategy:   strategy,
		Currency:   weth,
		Nonce:      f.nonce,
		StartTime:  now,
		EndTime:    now + 3600,
	}
	require.NoError(t, f.verifier.Sign(f.signer, o))
	return o
}

func prices(orders []*order.MakerOrder) []int64 {
	out := make([]int64, len(orders))
	for i, o := range orders {
		out[i] = o.Price.Int64()
	}
	return out
}

func TestBestPrices(t *testing.T) {
	f := newFixture(t)
	for _, p := range []int64{120, 100, 110} {
		_, added, err := f.book.Put(f.order(t, true, p))
		require.NoError(t, err)
		assert.True(t, added)
	}
	for _, p := range []int64{80, 95, 90} {
		_, _, err := f.book.Put(f.order(t, false, p))
		require.NoError(t, err)
	}

	ask, ok := f.book.BestAsk(punks)
	require.True(t, ok)
	assert.Equal(t, int64(100), ask.Price.Int64())

	bid, ok := f.book.BestBid(punks)
	require.True(t, ok)
	assert.Equal(t, int64(95), bid.Price.Int64())

	assert.Equal(t, []int64{100, 110, 120}, prices(f.book.ListByCollection(punks, true)))
	assert.Equal(t, []int64{95, 90, 80}, prices(f.book.ListByCollection(punks, false)))

	_, ok = f.book.BestAsk(common.HexToAddress("0xc2"))
	assert.False(t, ok)
}

func TestTiesKeepArrivalOrder(t *testing.T) {
	f := newFixture(t)
	first := f.order(t, true, 100)
	second := f.order(t, true, 100)
	_, _, err := f.book.Put(second)
	require.NoError(t, err)
	_, _, err = f.book.Put(first)
	require.NoError(t, err)

	best, ok := f.book.BestAsk(punks)
	require.True(t, ok)
	assert.Equal(t, second.Nonce, best.Nonce)
}

func TestPutRejects(t *testing.T) {
	f := newFixture(t)

	forged := f.order(t, true, 100)
	forged.Price = big.NewInt(1)
	_, _, err := f.book.Put(forged)
	assert.ErrorIs(t, err, order.ErrInvalidSignature)

	stale := f.order(t, true, 100)
	require.NoError(t, f.ledger.CancelAllBelow(f.signer.Address(), stale.Nonce+1))
	_, _, err = f.book.Put(stale)
	assert.ErrorIs(t, err, nonce.ErrNotUsable)

	o := f.order(t, true, 100)
	hash, added, err := f.book.Put(o)
	require.NoError(t, err)
	require.True(t, added)
	again, added, err := f.book.Put(o)
	require.NoError(t, err)
	assert.False(t, added)
	assert.Equal(t, hash, again)
	assert.Equal(t, 1, f.book.Len())
}

func TestPruneDropsStaleAndExpired(t *testing.T) {
	f := newFixture(t)
	keep := f.order(t, true, 100)
	cancelled := f.order(t, true, 90)
	expired := f.order(t, false, 50)
	expired.EndTime = now + 10
	require.NoError(t, f.verifier.Sign(f.signer, expired))

	for _, o := range []*order.MakerOrder{keep, cancelled, expired} {
		_, _, err := f.book.Put(o)
		require.NoError(t, err)
	}
	require.NoError(t, f.ledger.CancelMany(f.signer.Address(), []uint64{cancelled.Nonce}))

	n, err := f.book.Prune(now + 10)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 1, f.book.Len())

	best, ok := f.book.BestAsk(punks)
	require.True(t, ok)
	assert.Equal(t, keep.Nonce, best.Nonce)
	_, ok = f.book.BestBid(punks)
	assert.False(t, ok)
}

func TestReloadFromStore(t *testing.T) {
	f := newFixture(t)
	hash, _, err := f.book.Put(f.order(t, true, 100))
	require.NoError(t, err)
	_, _, err = f.book.Put(f.order(t, false, 70))
	require.NoError(t, err)

	reopened, err := New(f.store, f.verifier, f.ledger, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, reopened.Len())
	got, ok := reopened.Get(hash)
	require.True(t, ok)
	assert.Equal(t, int64(100), got.Price.Int64())
}

func TestListenersAndLevels(t *testing.T) {
	f := newFixture(t)
	var seen []common.Hash
	f.book.OnAdd(func(hash common.Hash, _ *order.MakerOrder) { seen = append(seen, hash) })

	h1, _, err := f.book.Put(f.order(t, true, 100))
	require.NoError(t, err)
	h2, _, err := f.book.Put(f.order(t, true, 100))
	require.NoError(t, err)
	_, _, err = f.book.Put(f.order(t, true, 130))
	require.NoError(t, err)
	assert.Equal(t, []common.Hash{h1, h2}, seen[:2])

	assert.Equal(t, []Level{{Price: "100", Count: 2}, {Price: "130", Count: 1}}, f.book.Levels(punks, true))
	assert.Empty(t, f.book.Levels(punks, false))
}
