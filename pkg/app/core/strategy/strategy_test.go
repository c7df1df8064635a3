package strategy

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uhyunpark/mintedexchange/pkg/app/core/errs"
	"github.com/uhyunpark/mintedexchange/pkg/app/core/order"
)

var (
	seller     = common.HexToAddress("0x00000000000000000000000000000000000000a5")
	buyer      = common.HexToAddress("0x00000000000000000000000000000000000000b5")
	stranger   = common.HexToAddress("0x00000000000000000000000000000000000000c5")
	collection = common.HexToAddress("0x00000000000000000000000000000000000000c1")
	other      = common.HexToAddress("0x00000000000000000000000000000000000000c2")
)

const (
	start = uint64(1_000_000)
	day   = uint64(86400)
)

func makerAsk(price, tokenID int64) *order.MakerOrder {
	return &order.MakerOrder{
		IsOrderAsk: true,
		Signer:     seller,
		Collection: collection,
		Price:      big.NewInt(price),
		TokenID:    big.NewInt(tokenID),
		Amount:     big.NewInt(1),
		StartTime:  start,
		EndTime:    start + day,
	}
}

func makerBid(price, tokenID int64) *order.MakerOrder {
	o := makerAsk(price, tokenID)
	o.IsOrderAsk = false
	o.Signer = buyer
	return o
}

func takerBid(price, tokenID int64) *order.TakerOrder {
	return &order.TakerOrder{Taker: buyer, Price: big.NewInt(price), TokenID: big.NewInt(tokenID)}
}

func takerAsk(price, tokenID int64) *order.TakerOrder {
	return &order.TakerOrder{IsOrderAsk: true, Taker: seller, Price: big.NewInt(price), TokenID: big.NewInt(tokenID)}
}

func TestFixedPrice(t *testing.T) {
	s := NewFixedPrice(common.Address{1}, 200)
	now := start + 10

	tests := []struct {
		name  string
		check func() (Result, error)
		want  Reason
	}{
		{"taker bid matches", func() (Result, error) { return s.CanExecuteTakerBid(takerBid(100, 1), makerAsk(100, 1), now) }, ReasonNone},
		{"taker bid price", func() (Result, error) { return s.CanExecuteTakerBid(takerBid(99, 1), makerAsk(100, 1), now) }, ReasonPrice},
		{"taker bid token", func() (Result, error) { return s.CanExecuteTakerBid(takerBid(100, 2), makerAsk(100, 1), now) }, ReasonToken},
		{"taker bid before start", func() (Result, error) { return s.CanExecuteTakerBid(takerBid(100, 1), makerAsk(100, 1), start-1) }, ReasonWindow},
		{"taker bid at end", func() (Result, error) { return s.CanExecuteTakerBid(takerBid(100, 1), makerAsk(100, 1), start+day) }, ReasonWindow},
		{"taker ask matches", func() (Result, error) { return s.CanExecuteTakerAsk(takerAsk(100, 1), makerBid(100, 1), now) }, ReasonNone},
		{"taker ask price", func() (Result, error) { return s.CanExecuteTakerAsk(takerAsk(101, 1), makerBid(100, 1), now) }, ReasonPrice},
		{"makers match", func() (Result, error) { return s.CanExecuteMakerOrders(makerBid(100, 1), makerAsk(100, 1), now) }, ReasonNone},
		{"makers price", func() (Result, error) { return s.CanExecuteMakerOrders(makerBid(101, 1), makerAsk(100, 1), now) }, ReasonPrice},
		{"makers collection", func() (Result, error) {
			bid := makerBid(100, 1)
			bid.Collection = other
			return s.CanExecuteMakerOrders(bid, makerAsk(100, 1), now)
		}, ReasonCollection},
		{"makers amount", func() (Result, error) {
			bid := makerBid(100, 1)
			bid.Amount = big.NewInt(2)
			return s.CanExecuteMakerOrders(bid, makerAsk(100, 1), now)
		}, ReasonAmount},
		{"makers bid expired", func() (Result, error) {
			bid := makerBid(100, 1)
			bid.EndTime = now
			return s.CanExecuteMakerOrders(bid, makerAsk(100, 1), now)
		}, ReasonWindow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := tt.check()
			require.NoError(t, err)
			assert.Equal(t, tt.want == ReasonNone, res.Eligible)
			assert.Equal(t, tt.want, res.Reason)
			if res.Eligible {
				assert.Equal(t, int64(100), res.Price.Int64())
				assert.Equal(t, int64(1), res.TokenID.Int64())
				assert.Equal(t, int64(1), res.Amount.Int64())
			}
		})
	}
	assert.Equal(t, uint64(200), s.ProtocolFee())
}

func TestAnyItemFromCollection(t *testing.T) {
	s := NewAnyItemFromCollection(common.Address{2}, 200)
	now := start + 10

	bid := makerBid(100, 0)
	bid.Amount = big.NewInt(3)
	res, err := s.CanExecuteTakerAsk(takerAsk(100, 42), bid, now)
	require.NoError(t, err)
	require.True(t, res.Eligible)
	assert.Equal(t, int64(42), res.TokenID.Int64())
	assert.Equal(t, int64(3), res.Amount.Int64())
	assert.Equal(t, int64(100), res.Price.Int64())

	res, _ = s.CanExecuteTakerAsk(takerAsk(90, 42), bid, now)
	assert.Equal(t, ReasonPrice, res.Reason)

	res, _ = s.CanExecuteTakerAsk(takerAsk(100, 42), bid, start+day)
	assert.Equal(t, ReasonWindow, res.Reason)

	res, _ = s.CanExecuteTakerBid(takerBid(100, 1), makerAsk(100, 1), now)
	assert.Equal(t, ReasonUnsupported, res.Reason)
	res, _ = s.CanExecuteMakerOrders(makerBid(100, 1), makerAsk(100, 1), now)
	assert.Equal(t, ReasonUnsupported, res.Reason)
}

func TestPrivateSale(t *testing.T) {
	s := NewPrivateSale(common.Address{3}, 200)
	now := start + 10

	params, err := order.EncodePrivateSaleParams(buyer)
	require.NoError(t, err)
	ask := makerAsk(100, 1)
	ask.Params = params

	res, err := s.CanExecuteTakerBid(takerBid(100, 1), ask, now)
	require.NoError(t, err)
	assert.True(t, res.Eligible)

	tb := takerBid(100, 1)
	tb.Taker = stranger
	res, _ = s.CanExecuteTakerBid(tb, ask, now)
	assert.Equal(t, ReasonBuyer, res.Reason)

	res, _ = s.CanExecuteTakerBid(takerBid(100, 1), ask, start+day)
	assert.Equal(t, ReasonWindow, res.Reason)

	res, _ = s.CanExecuteMakerOrders(makerBid(100, 1), ask, now)
	assert.True(t, res.Eligible)

	bid := makerBid(100, 1)
	bid.Signer = stranger
	res, _ = s.CanExecuteMakerOrders(bid, ask, now)
	assert.Equal(t, ReasonBuyer, res.Reason)

	res, _ = s.CanExecuteTakerAsk(takerAsk(100, 1), makerBid(100, 1), now)
	assert.Equal(t, ReasonUnsupported, res.Reason)

	ask.Params = nil
	_, err = s.CanExecuteTakerBid(takerBid(100, 1), ask, now)
	assert.ErrorIs(t, err, order.ErrMalformed)
}

func TestEnglishAuctionReserve(t *testing.T) {
	s := NewEnglishAuction(common.Address{4}, 200)
	now := start + 10

	t.Run("no reserve accepts any bid", func(t *testing.T) {
		res, err := s.CanExecuteMakerOrders(makerBid(1, 1), makerAsk(100, 1), now)
		require.NoError(t, err)
		require.True(t, res.Eligible)
		assert.Equal(t, int64(1), res.Price.Int64())
	})

	params, err := order.EncodeEnglishParams(big.NewInt(150))
	require.NoError(t, err)
	ask := makerAsk(100, 1)
	ask.Params = params

	tests := []struct {
		bid  int64
		want Reason
	}{
		{149, ReasonReserve},
		{150, ReasonNone},
		{400, ReasonNone},
	}
	for _, tt := range tests {
		res, err := s.CanExecuteMakerOrders(makerBid(tt.bid, 1), ask, now)
		require.NoError(t, err)
		assert.Equal(t, tt.want, res.Reason, "bid %d", tt.bid)
		if res.Eligible {
			assert.Equal(t, tt.bid, res.Price.Int64())
		}
	}

	res, _ := s.CanExecuteMakerOrders(makerBid(200, 2), ask, now)
	assert.Equal(t, ReasonToken, res.Reason)

	res, _ = s.CanExecuteTakerBid(takerBid(100, 1), ask, now)
	assert.Equal(t, ReasonUnsupported, res.Reason)

	res, _ = s.CanExecuteTakerAsk(takerAsk(100, 1), makerBid(100, 1), now)
	assert.True(t, res.Eligible)
}

func dutchAsk(t *testing.T, startPrice, endPrice int64, length uint64) *order.MakerOrder {
	t.Helper()
	params, err := order.EncodeDutchParams(order.DutchParams{
		StartPrice:     big.NewInt(startPrice),
		AuctionEndTime: start + length,
	})
	require.NoError(t, err)
	ask := makerAsk(endPrice, 1)
	ask.EndTime = start + 2*length
	ask.Params = params
	return ask
}

func TestDutchAuctionScenario(t *testing.T) {
	s := NewDutchAuction(common.Address{5}, 200, 3600)
	ask := dutchAsk(t, 300, 100, day)
	half := start + day/2

	price, err := s.CurrentPrice(ask, half)
	require.NoError(t, err)
	assert.Equal(t, int64(200), price.Int64())

	for _, tt := range []struct {
		bid  int64
		want bool
	}{{199, false}, {200, true}, {201, true}} {
		res, err := s.CanExecuteTakerBid(takerBid(tt.bid, 1), ask, half)
		require.NoError(t, err)
		assert.Equal(t, tt.want, res.Eligible, "bid %d", tt.bid)
		if res.Eligible {
			assert.Equal(t, tt.bid, res.Price.Int64())
		}
	}

	res, err := s.CanExecuteMakerOrders(makerBid(199, 1), ask, half)
	require.NoError(t, err)
	assert.Equal(t, ReasonPrice, res.Reason)
	res, err = s.CanExecuteMakerOrders(makerBid(250, 1), ask, half)
	require.NoError(t, err)
	assert.True(t, res.Eligible)
}

func TestDutchAuctionPriceCurve(t *testing.T) {
	s := NewDutchAuction(common.Address{5}, 200, 3600)
	ask := dutchAsk(t, 300, 100, day)

	atStart, err := s.CurrentPrice(ask, start)
	require.NoError(t, err)
	assert.Equal(t, int64(300), atStart.Int64())

	atEnd, err := s.CurrentPrice(ask, start+day)
	require.NoError(t, err)
	assert.Equal(t, int64(100), atEnd.Int64())

	after, err := s.CurrentPrice(ask, start+day+500)
	require.NoError(t, err)
	assert.Equal(t, int64(100), after.Int64())

	prev := atStart
	for now := start; now <= start+day; now += 977 {
		p, err := s.CurrentPrice(ask, now)
		require.NoError(t, err)
		assert.LessOrEqual(t, p.Cmp(prev), 0, "price rose at %d", now)
		prev = p
	}

	res, err := s.CanExecuteTakerBid(takerBid(300, 1), ask, start-1)
	require.NoError(t, err)
	assert.Equal(t, ReasonWindow, res.Reason)
}

func TestDutchAuctionConfiguration(t *testing.T) {
	s := NewDutchAuction(common.Address{5}, 200, 3600)

	_, err := s.CanExecuteTakerBid(takerBid(300, 1), dutchAsk(t, 300, 100, 3599), start+1)
	assert.ErrorIs(t, err, ErrAuctionTooShort)
	assert.Equal(t, errs.Configuration, errs.ClassOf(err))

	_, err = s.CanExecuteTakerBid(takerBid(300, 1), dutchAsk(t, 100, 100, day), start+1)
	assert.ErrorIs(t, err, ErrStartPriceNotAbove)

	_, err = s.CanExecuteMakerOrders(makerBid(300, 1), dutchAsk(t, 50, 100, day), start+1)
	assert.ErrorIs(t, err, ErrStartPriceNotAbove)

	assert.ErrorIs(t, s.UpdateMinimumAuctionLength(899), ErrMinLengthBelowFloor)
	require.NoError(t, s.UpdateMinimumAuctionLength(7200))
	assert.Equal(t, uint64(7200), s.MinimumAuctionLength())

	_, err = s.CanExecuteTakerBid(takerBid(300, 1), dutchAsk(t, 300, 100, 3600), start+1)
	assert.ErrorIs(t, err, ErrAuctionTooShort)
}
