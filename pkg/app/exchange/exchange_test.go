package exchange

import (
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uhyunpark/mintedexchange/pkg/app/core/access"
	"github.com/uhyunpark/mintedexchange/pkg/app/core/errs"
	"github.com/uhyunpark/mintedexchange/pkg/app/core/fee"
	"github.com/uhyunpark/mintedexchange/pkg/app/core/nonce"
	"github.com/uhyunpark/mintedexchange/pkg/app/core/order"
	"github.com/uhyunpark/mintedexchange/pkg/app/core/royalty"
	"github.com/uhyunpark/mintedexchange/pkg/app/core/state"
	"github.com/uhyunpark/mintedexchange/pkg/app/core/strategy"
	"github.com/uhyunpark/mintedexchange/pkg/app/core/transfer"
	"github.com/uhyunpark/mintedexchange/pkg/app/core/whitelist"
	"github.com/uhyunpark/mintedexchange/pkg/crypto"
	"github.com/uhyunpark/mintedexchange/pkg/storage"
	"github.com/uhyunpark/mintedexchange/pkg/util"
)

var (
	exchangeAddr = common.HexToAddress("0x00000000000000000000000000000000000000ee")
	owner        = common.HexToAddress("0x00000000000000000000000000000000000000a0")
	treasury     = common.HexToAddress("0x00000000000000000000000000000000000000f0")
	creator      = common.HexToAddress("0x00000000000000000000000000000000000000c0")
	relayer      = common.HexToAddress("0x00000000000000000000000000000000000000d0")

	weth = common.HexToAddress("0x000000000000000000000000000000000000e7e7")
	usdc = common.HexToAddress("0x000000000000000000000000000000000000d5dc")

	punks  = common.HexToAddress("0x00000000000000000000000000000000000000c1")
	badges = common.HexToAddress("0x00000000000000000000000000000000000000c2")

	fixedPriceAddr  = common.HexToAddress("0x0000000000000000000000000000000000005001")
	dutchAddr       = common.HexToAddress("0x0000000000000000000000000000000000005002")
	privateSaleAddr = common.HexToAddress("0x0000000000000000000000000000000000005003")

	erc721Mgr  = common.HexToAddress("0x0000000000000000000000000000000000000721")
	erc1155Mgr = common.HexToAddress("0x0000000000000000000000000000000000001155")
	legacyMgr  = common.HexToAddress("0x0000000000000000000000000000000000000722")
)

const t0 = 1_700_000_000

type fixture struct {
	ex     *Exchange
	store  *storage.Store
	world  *state.World
	clock  *util.ManualClock
	seller *crypto.Signer
	buyer  *crypto.Signer
	nonce  uint64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := storage.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	w := state.NewWorld()
	require.NoError(t, w.RegisterCollection(state.CollectionInfo{Address: punks, Standard: state.ERC721}))
	require.NoError(t, w.RegisterCollection(state.CollectionInfo{Address: badges, Standard: state.ERC1155}))

	currencies := whitelist.NewCurrencyManager()
	require.NoError(t, currencies.AddCurrency(weth))
	strategies := whitelist.NewExecutionManager()
	require.NoError(t, strategies.AddStrategy(strategy.NewFixedPrice(fixedPriceAddr, 400)))
	require.NoError(t, strategies.AddStrategy(strategy.NewDutchAuction(dutchAddr, 400, strategy.MinAuctionLengthFloor)))
	require.NoError(t, strategies.AddStrategy(strategy.NewPrivateSale(privateSaleAddr, 0)))

	registry, err := royalty.NewRegistry(store, royalty.MaxFeeLimit)
	require.NoError(t, err)
	selector := transfer.NewSelector(w,
		transfer.NewERC721Manager(erc721Mgr, exchangeAddr, w),
		transfer.NewERC1155Manager(erc1155Mgr, exchangeAddr, w),
		transfer.NewNonCompliantERC721Manager(legacyMgr, exchangeAddr, w),
	)
	events, err := NewEventLog(store, nil)
	require.NoError(t, err)

	clock := util.NewManualClock(time.Unix(t0, 0))
	ex, err := New(Config{
		Address:              exchangeAddr,
		ChainID:              1337,
		Owner:                owner,
		WETH:                 weth,
		ProtocolFeeRecipient: treasury,
	}, Components{
		Nonces:        nonce.NewLedger(store),
		World:         w,
		Currencies:    currencies,
		Strategies:    strategies,
		Royalty:       royalty.NewManager(registry, w),
		RoyaltySetter: royalty.NewSetter(registry, w),
		Transfers:     selector,
		Events:        events,
		Clock:         clock,
	})
	require.NoError(t, err)

	seller, err := crypto.GenerateKey()
	require.NoError(t, err)
	buyer, err := crypto.GenerateKey()
	require.NoError(t, err)

	require.NoError(t, w.MintERC721(punks, seller.Address(), big.NewInt(1)))
	require.NoError(t, w.SetApprovalForAll(punks, seller.Address(), erc721Mgr, true))
	require.NoError(t, w.Mint(weth, buyer.Address(), big.NewInt(1000)))
	w.Commit()

	return &fixture{ex: ex, store: store, world: w, clock: clock, seller: seller, buyer: buyer}
}

// ask returns a signed fixed-price ask for punk #1.
func (f *fixture) ask(t *testing.T, price int64, mutate ...func(*order.MakerOrder)) *order.MakerOrder {
	t.Helper()
	f.nonce++
	o := &order.MakerOrder{
		IsOrderAsk:         true,
		Signer:             f.seller.Address(),
		Collection:         punks,
		Price:              big.NewInt(price),
		TokenID:            big.NewInt(1),
		Amount:             big.NewInt(1),
		Strategy:           fixedPriceAddr,
		Currency:           weth,
		Nonce:              f.nonce,
		StartTime:          t0,
		EndTime:            t0 + 86400,
		MinPercentageToAsk: 8500,
	}
	for _, m := range mutate {
		m(o)
	}
	require.NoError(t, f.ex.Verifier().Sign(f.seller, o))
	return o
}

func (f *fixture) bid(t *testing.T, price int64) *order.MakerOrder {
	t.Helper()
	f.nonce++
	o := &order.MakerOrder{
		Signer:     f.buyer.Address(),
		Collection: punks,
		Price:      big.NewInt(price),
		TokenID:    big.NewInt(1),
		Amount:     big.NewInt(1),
		Strategy:   fixedPriceAddr,
		Currency:   weth,
		Nonce:      f.nonce,
		StartTime:  t0,
		EndTime:    t0 + 86400,
	}
	require.NoError(t, f.ex.Verifier().Sign(f.buyer, o))
	return o
}

func (f *fixture) takerBid(price int64) *order.TakerOrder {
	return &order.TakerOrder{
		Taker:   f.buyer.Address(),
		Price:   big.NewInt(price),
		TokenID: big.NewInt(1),
	}
}

func (f *fixture) balance(holder common.Address) int64 {
	return f.world.BalanceOf(weth, holder).Int64()
}

func (f *fixture) ownerOfPunk() common.Address {
	o, _ := f.world.OwnerOf(punks, big.NewInt(1))
	return o
}

func TestMatchAskWithTakerBid(t *testing.T) {
	f := newFixture(t)
	ask := f.ask(t, 100)

	ev, err := f.ex.MatchAskWithTakerBid(f.buyer.Address(), f.takerBid(100), ask)
	require.NoError(t, err)

	assert.Equal(t, EventTakerBid, ev.Name)
	assert.Equal(t, "100", ev.Fields["price"])
	assert.Equal(t, "4", ev.Fields["protocolFee"])
	assert.Equal(t, "96", ev.Fields["sellerNet"])

	assert.Equal(t, f.buyer.Address(), f.ownerOfPunk())
	assert.Equal(t, int64(900), f.balance(f.buyer.Address()))
	assert.Equal(t, int64(96), f.balance(f.seller.Address()))
	assert.Equal(t, int64(4), f.balance(treasury))

	executed, err := f.ex.IsUserOrderNonceExecutedOrCancelled(f.seller.Address(), ask.Nonce)
	require.NoError(t, err)
	assert.True(t, executed)

	// Replaying the same order is refused.
	_, err = f.ex.MatchAskWithTakerBid(f.buyer.Address(), f.takerBid(100), ask)
	assert.ErrorIs(t, err, ErrOrderExpired)
	assert.Equal(t, errs.Staleness, errs.ClassOf(err))
}

func TestMatchPaysRegistryRoyalty(t *testing.T) {
	f := newFixture(t)
	_, err := f.ex.UpdateRoyaltyInfoForCollection(owner, punks, owner, creator, 200)
	require.NoError(t, err)

	ev, err := f.ex.MatchAskWithTakerBid(f.buyer.Address(), f.takerBid(100), f.ask(t, 100))
	require.NoError(t, err)

	assert.Equal(t, creator.Hex(), ev.Fields["royaltyReceiver"])
	assert.Equal(t, int64(94), f.balance(f.seller.Address()))
	assert.Equal(t, int64(4), f.balance(treasury))
	assert.Equal(t, int64(2), f.balance(creator))
}

func TestZeroProtocolRecipientWaivesFee(t *testing.T) {
	f := newFixture(t)
	_, err := f.ex.UpdateProtocolFeeRecipient(owner, common.Address{})
	require.NoError(t, err)

	_, err = f.ex.MatchAskWithTakerBid(f.buyer.Address(), f.takerBid(100), f.ask(t, 100))
	require.NoError(t, err)
	assert.Equal(t, int64(100), f.balance(f.seller.Address()))
	assert.Zero(t, f.balance(treasury))
}

func TestMatchRejectsForgedSignature(t *testing.T) {
	f := newFixture(t)
	mallory, err := crypto.GenerateKey()
	require.NoError(t, err)

	ask := f.ask(t, 100)
	forged := ask.Clone()
	forged.Signer = mallory.Address()
	require.NoError(t, f.ex.Verifier().Sign(mallory, forged))
	forged.Signer = f.seller.Address()

	_, err = f.ex.MatchAskWithTakerBid(f.buyer.Address(), f.takerBid(100), forged)
	assert.ErrorIs(t, err, order.ErrInvalidSignature)
	assert.Equal(t, f.seller.Address(), f.ownerOfPunk())
	assert.Equal(t, int64(1000), f.balance(f.buyer.Address()))
}

func TestCheckOrderFailures(t *testing.T) {
	tests := []struct {
		name    string
		build   func(t *testing.T, f *fixture) (*order.TakerOrder, *order.MakerOrder)
		caller  func(f *fixture) common.Address
		wantErr error
	}{
		{
			name: "wrong sides",
			build: func(t *testing.T, f *fixture) (*order.TakerOrder, *order.MakerOrder) {
				return f.takerBid(100), f.ask(t, 100, func(o *order.MakerOrder) { o.IsOrderAsk = false })
			},
			wantErr: ErrWrongSides,
		},
		{
			name: "taker is not the caller",
			build: func(t *testing.T, f *fixture) (*order.TakerOrder, *order.MakerOrder) {
				return f.takerBid(100), f.ask(t, 100)
			},
			caller:  func(*fixture) common.Address { return relayer },
			wantErr: ErrTakerNotSender,
		},
		{
			name: "zero amount",
			build: func(t *testing.T, f *fixture) (*order.TakerOrder, *order.MakerOrder) {
				return f.takerBid(100), f.ask(t, 100, func(o *order.MakerOrder) { o.Amount = big.NewInt(0) })
			},
			wantErr: order.ErrZeroAmount,
		},
		{
			name: "currency not whitelisted",
			build: func(t *testing.T, f *fixture) (*order.TakerOrder, *order.MakerOrder) {
				return f.takerBid(100), f.ask(t, 100, func(o *order.MakerOrder) { o.Currency = usdc })
			},
			wantErr: whitelist.ErrCurrencyNotWhitelisted,
		},
		{
			name: "strategy not whitelisted",
			build: func(t *testing.T, f *fixture) (*order.TakerOrder, *order.MakerOrder) {
				return f.takerBid(100), f.ask(t, 100, func(o *order.MakerOrder) { o.Strategy = common.Address{9} })
			},
			wantErr: whitelist.ErrStrategyNotWhitelisted,
		},
		{
			name: "not started",
			build: func(t *testing.T, f *fixture) (*order.TakerOrder, *order.MakerOrder) {
				return f.takerBid(100), f.ask(t, 100, func(o *order.MakerOrder) { o.StartTime = t0 + 10 })
			},
			wantErr: ErrOutsideWindow,
		},
		{
			name: "price below ask",
			build: func(t *testing.T, f *fixture) (*order.TakerOrder, *order.MakerOrder) {
				return f.takerBid(99), f.ask(t, 100)
			},
			wantErr: ErrExecutionInvalid,
		},
		{
			name: "min percentage above net",
			build: func(t *testing.T, f *fixture) (*order.TakerOrder, *order.MakerOrder) {
				return f.takerBid(100), f.ask(t, 100, func(o *order.MakerOrder) { o.MinPercentageToAsk = 9700 })
			},
			wantErr: fee.ErrHigherThanExpected,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			taker, maker := tt.build(t, f)
			caller := f.buyer.Address()
			if tt.caller != nil {
				caller = tt.caller(f)
			}
			_, err := f.ex.MatchAskWithTakerBid(caller, taker, maker)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, f.seller.Address(), f.ownerOfPunk())
			assert.Equal(t, int64(1000), f.balance(f.buyer.Address()))
		})
	}
}

func TestFailedTransferRevertsPayments(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.world.SetApprovalForAll(punks, f.seller.Address(), erc721Mgr, false))
	f.world.Commit()

	ask := f.ask(t, 100)
	_, err := f.ex.MatchAskWithTakerBid(f.buyer.Address(), f.takerBid(100), ask)
	assert.ErrorIs(t, err, state.ErrNotApproved)

	assert.Equal(t, int64(1000), f.balance(f.buyer.Address()))
	assert.Zero(t, f.balance(f.seller.Address()))
	assert.Zero(t, f.balance(treasury))
	usable, err := f.ex.IsOrderUsable(ask)
	require.NoError(t, err)
	assert.True(t, usable)
}

func TestCancelAllOrdersForSender(t *testing.T) {
	f := newFixture(t)
	f.nonce = 49
	old := f.ask(t, 100) // nonce 50

	ev, err := f.ex.CancelAllOrdersForSender(f.seller.Address(), 100)
	require.NoError(t, err)
	assert.Equal(t, EventCancelAllOrders, ev.Name)
	assert.Equal(t, "100", ev.Fields["newMinNonce"])

	_, err = f.ex.MatchAskWithTakerBid(f.buyer.Address(), f.takerBid(100), old)
	assert.ErrorIs(t, err, ErrOrderExpired)

	_, err = f.ex.CancelAllOrdersForSender(f.seller.Address(), 100)
	assert.ErrorIs(t, err, nonce.ErrNonceTooLow)

	f.nonce = 99
	fresh := f.ask(t, 100) // nonce 100
	_, err = f.ex.MatchAskWithTakerBid(f.buyer.Address(), f.takerBid(100), fresh)
	require.NoError(t, err)
}

func TestCancelMultipleMakerOrders(t *testing.T) {
	f := newFixture(t)
	ask := f.ask(t, 100)

	ev, err := f.ex.CancelMultipleMakerOrders(f.seller.Address(), []uint64{ask.Nonce, 7})
	require.NoError(t, err)
	assert.Equal(t, EventCancelMultipleOrders, ev.Name)
	assert.Equal(t, "1,7", ev.Fields["orderNonces"])

	_, err = f.ex.MatchAskWithTakerBid(f.buyer.Address(), f.takerBid(100), ask)
	assert.ErrorIs(t, err, ErrOrderExpired)

	_, err = f.ex.CancelMultipleMakerOrders(f.seller.Address(), nil)
	assert.ErrorIs(t, err, nonce.ErrEmptyCancel)
}

func TestDutchAuctionTakerBid(t *testing.T) {
	f := newFixture(t)
	params, err := order.EncodeDutchParams(order.DutchParams{StartPrice: big.NewInt(300), AuctionEndTime: t0 + 86400})
	require.NoError(t, err)
	ask := f.ask(t, 100, func(o *order.MakerOrder) {
		o.Strategy = dutchAddr
		o.Params = params
	})

	f.clock.Set(time.Unix(t0+43200, 0))

	_, err = f.ex.MatchAskWithTakerBid(f.buyer.Address(), f.takerBid(199), ask)
	assert.ErrorIs(t, err, ErrExecutionInvalid)

	ev, err := f.ex.MatchAskWithTakerBid(f.buyer.Address(), f.takerBid(200), ask)
	require.NoError(t, err)
	assert.Equal(t, "200", ev.Fields["price"])
	assert.Equal(t, int64(192), f.balance(f.seller.Address()))
}

func TestDutchAuctionTooShortIsConfigurationError(t *testing.T) {
	f := newFixture(t)
	params, err := order.EncodeDutchParams(order.DutchParams{StartPrice: big.NewInt(300), AuctionEndTime: t0 + 60})
	require.NoError(t, err)
	ask := f.ask(t, 100, func(o *order.MakerOrder) {
		o.Strategy = dutchAddr
		o.Params = params
	})

	_, err = f.ex.MatchAskWithTakerBid(f.buyer.Address(), f.takerBid(300), ask)
	assert.ErrorIs(t, err, strategy.ErrAuctionTooShort)
	assert.Equal(t, errs.Configuration, errs.ClassOf(err))
}

func TestMatchWithETHAndWETH(t *testing.T) {
	f := newFixture(t)
	buyer := f.buyer.Address()
	require.NoError(t, f.world.CreditNative(buyer, big.NewInt(60)))
	f.world.Commit()

	_, err := f.ex.MatchAskWithTakerBidUsingETHAndWETH(buyer, big.NewInt(101), f.takerBid(100), f.ask(t, 100))
	assert.ErrorIs(t, err, ErrValueTooHigh)

	_, err = f.ex.MatchAskWithTakerBidUsingETHAndWETH(buyer, big.NewInt(60), f.takerBid(100),
		f.ask(t, 100, func(o *order.MakerOrder) { o.Currency = usdc }))
	assert.ErrorIs(t, err, ErrCurrencyNotWETH)

	_, err = f.ex.MatchAskWithTakerBidUsingETHAndWETH(buyer, big.NewInt(60), f.takerBid(100), f.ask(t, 100))
	require.NoError(t, err)
	assert.Zero(t, f.world.NativeBalance(buyer).Sign())
	assert.Equal(t, int64(960), f.balance(buyer))
	assert.Equal(t, buyer, f.ownerOfPunk())
}

func TestWETHDepositRevertsOnFailure(t *testing.T) {
	f := newFixture(t)
	buyer := f.buyer.Address()
	require.NoError(t, f.world.CreditNative(buyer, big.NewInt(60)))
	f.world.Commit()

	_, err := f.ex.MatchAskWithTakerBidUsingETHAndWETH(buyer, big.NewInt(60), f.takerBid(99), f.ask(t, 100))
	assert.ErrorIs(t, err, ErrExecutionInvalid)
	assert.Equal(t, int64(60), f.world.NativeBalance(buyer).Int64())
	assert.Equal(t, int64(1000), f.balance(buyer))
}

func TestMatchBidWithTakerAsk(t *testing.T) {
	f := newFixture(t)
	makerBid := f.bid(t, 100)
	takerAsk := &order.TakerOrder{
		IsOrderAsk:         true,
		Taker:              f.seller.Address(),
		Price:              big.NewInt(100),
		TokenID:            big.NewInt(1),
		MinPercentageToAsk: 9000,
	}

	ev, err := f.ex.MatchBidWithTakerAsk(f.seller.Address(), takerAsk, makerBid)
	require.NoError(t, err)
	assert.Equal(t, EventTakerAsk, ev.Name)
	assert.Equal(t, f.buyer.Address(), f.ownerOfPunk())
	assert.Equal(t, int64(96), f.balance(f.seller.Address()))
}

func TestMatchMakerOrdersPermission(t *testing.T) {
	f := newFixture(t)

	_, err := f.ex.MatchMakerOrders(relayer, f.bid(t, 100), f.ask(t, 100))
	assert.ErrorIs(t, err, ErrNoMakerMatchAccess)

	_, err = f.ex.SetMakerMatchOpenBeta(relayer, true)
	assert.ErrorIs(t, err, access.ErrMissingRole)

	_, err = f.ex.SetMakerMatchOpenBeta(owner, true)
	require.NoError(t, err)

	bid, ask := f.bid(t, 100), f.ask(t, 100)
	ev, err := f.ex.MatchMakerOrders(relayer, bid, ask)
	require.NoError(t, err)
	assert.Equal(t, EventMakerMatch, ev.Name)
	assert.Equal(t, relayer.Hex(), ev.Fields["relayer"])
	assert.Equal(t, f.buyer.Address(), f.ownerOfPunk())

	for _, o := range []*order.MakerOrder{bid, ask} {
		usable, err := f.ex.IsOrderUsable(o)
		require.NoError(t, err)
		assert.False(t, usable)
	}
}

func TestMatchMakerOrdersByRoleHolder(t *testing.T) {
	f := newFixture(t)
	_, err := f.ex.GrantRole(owner, access.MatchMakerOrders, relayer)
	require.NoError(t, err)

	_, err = f.ex.MatchMakerOrders(relayer, f.bid(t, 100), f.ask(t, 100))
	require.NoError(t, err)
}

func TestAdminEntryPoints(t *testing.T) {
	f := newFixture(t)

	_, err := f.ex.AddCurrency(relayer, usdc)
	assert.ErrorIs(t, err, access.ErrMissingRole)

	ev, err := f.ex.AddCurrency(owner, usdc)
	require.NoError(t, err)
	assert.Equal(t, EventCurrencyWhitelisted, ev.Name)
	_, err = f.ex.AddCurrency(owner, usdc)
	assert.ErrorIs(t, err, whitelist.ErrCurrencyAlreadyWhitelisted)

	_, err = f.ex.RemoveStrategy(owner, fixedPriceAddr)
	require.NoError(t, err)
	_, err = f.ex.MatchAskWithTakerBid(f.buyer.Address(), f.takerBid(100), f.ask(t, 100))
	assert.ErrorIs(t, err, whitelist.ErrStrategyNotWhitelisted)
	_, err = f.ex.AddStrategy(owner, fixedPriceAddr)
	require.NoError(t, err)

	_, err = f.ex.UpdateMinimumAuctionLength(owner, fixedPriceAddr, 3600)
	assert.ErrorIs(t, err, ErrNotAuctionStrategy)
	_, err = f.ex.UpdateMinimumAuctionLength(owner, dutchAddr, 600)
	assert.ErrorIs(t, err, strategy.ErrMinLengthBelowFloor)
	ev, err = f.ex.UpdateMinimumAuctionLength(owner, dutchAddr, 3600)
	require.NoError(t, err)
	assert.Equal(t, "3600", ev.Fields["minimumAuctionLengthInSeconds"])

	_, err = f.ex.UpdateCurrencyManager(owner, common.Address{}, whitelist.NewCurrencyManager())
	assert.ErrorIs(t, err, ErrNullAddress)

	ev, err = f.ex.GrantRole(owner, access.FeeAdmin, relayer)
	require.NoError(t, err)
	assert.Equal(t, EventRoleGranted, ev.Name)
	ev, err = f.ex.GrantRole(owner, access.FeeAdmin, relayer)
	require.NoError(t, err)
	assert.Empty(t, ev.Name, "granting a held role emits nothing")

	_, err = f.ex.UpdateProtocolFeeRecipient(relayer, creator)
	require.NoError(t, err)
	assert.Equal(t, creator, f.ex.ProtocolFeeRecipient())
}

func TestRoyaltySetterEntryPoints(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.world.RegisterCollection(state.CollectionInfo{
		Address: common.HexToAddress("0xc3"), Standard: state.ERC721, Owner: creator,
	}))

	_, err := f.ex.UpdateRoyaltyInfoForCollectionIfOwner(relayer, common.HexToAddress("0xc3"), creator, creator, 500)
	assert.ErrorIs(t, err, royalty.ErrNotOwner)

	ev, err := f.ex.UpdateRoyaltyInfoForCollectionIfOwner(creator, common.HexToAddress("0xc3"), creator, creator, 500)
	require.NoError(t, err)
	assert.Equal(t, EventRoyaltyFeeUpdate, ev.Name)

	_, err = f.ex.UpdateRoyaltyInfoForCollectionIfSetter(creator, common.HexToAddress("0xc3"), creator, treasury, 300)
	require.NoError(t, err)

	_, err = f.ex.UpdateRoyaltyFeeLimit(owner, royalty.MaxFeeLimit+1)
	assert.ErrorIs(t, err, royalty.ErrFeeLimitTooHigh)
}

func TestEventLogPersists(t *testing.T) {
	f := newFixture(t)
	var seen []string
	f.ex.Events().Subscribe(SinkFunc(func(ev Event) { seen = append(seen, ev.Name) }))

	_, err := f.ex.MatchAskWithTakerBid(f.buyer.Address(), f.takerBid(100), f.ask(t, 100))
	require.NoError(t, err)
	_, err = f.ex.CancelMultipleMakerOrders(f.seller.Address(), []uint64{42})
	require.NoError(t, err)

	assert.Equal(t, []string{EventTakerBid, EventCancelMultipleOrders}, seen)

	got, err := f.ex.Events().Since(0, 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, uint64(1), got[0].Seq)
	assert.Equal(t, EventCancelMultipleOrders, got[1].Name)

	reopened, err := NewEventLog(f.store, nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), reopened.Seq())

	tail, err := reopened.Since(1, 10)
	require.NoError(t, err)
	require.Len(t, tail, 1)
	assert.Equal(t, uint64(2), tail[0].Seq)
}
