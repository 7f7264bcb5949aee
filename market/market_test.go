package market

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dappmarket-org/dappmarket-go-base/ledger"
	"github.com/dappmarket-org/dappmarket-go-base/registry"
	"github.com/dappmarket-org/dappmarket-go-base/testutils"
	"github.com/dappmarket-org/dappmarket-go-base/types"
)

const testURI = "sample URI"

type fixture struct {
	led      *ledger.Ledger
	nft      *registry.Registry
	mkt      *Marketplace
	deployer types.Address
	seller   types.Address
	buyer    types.Address
}

// newFixture deploys a registry and a marketplace with a 1% fee and mints
// token 1 for the seller, with blanket approval granted to the
// marketplace.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	led := ledger.New()
	f := &fixture{
		led:      led,
		deployer: testutils.FundedAccount(t, led, 10_000),
		seller:   testutils.FundedAccount(t, led, 10_000),
		buyer:    testutils.FundedAccount(t, led, 10_000),
	}
	f.nft = registry.New(led, "DApp NFT", "DAPP")
	mkt, err := New(led, f.deployer, 1, WithInitialBalance(1000))
	require.NoError(t, err)
	f.mkt = mkt

	_, err = f.nft.Mint(f.seller, testURI)
	require.NoError(t, err)
	require.NoError(t, f.nft.SetApprovalForAll(f.seller, mkt.Address(), true))
	return f
}

func (f *fixture) list(t *testing.T, price uint64) types.ItemID {
	t.Helper()
	id, err := f.mkt.MakeItem(f.seller, f.nft, 1, price)
	require.NoError(t, err)
	return id
}

func Test_Deployment(t *testing.T) {
	f := newFixture(t)

	require.Equal(t, f.deployer, f.mkt.FeeAccount())
	require.EqualValues(t, 1, f.mkt.FeePercent())
	require.Zero(t, f.mkt.ItemCount())

	// deployment endowment moved from the deployer to the contract
	require.EqualValues(t, 1000, f.led.BalanceOf(f.mkt.Address()))
	require.EqualValues(t, 9_000, f.led.BalanceOf(f.deployer))

	t.Run("endowment exceeding deployer balance", func(t *testing.T) {
		poor := testutils.FundedAccount(t, f.led, 10)
		_, err := New(f.led, poor, 1, WithInitialBalance(100))
		require.Error(t, err)
		require.True(t, types.IsCode(err, types.CodeInsufficientFunds))
	})
}

func Test_MakeItem(t *testing.T) {
	t.Run("creates the item and takes custody", func(t *testing.T) {
		f := newFixture(t)
		id := f.list(t, 200)
		require.EqualValues(t, 1, id)
		require.EqualValues(t, 1, f.mkt.ItemCount())

		owner, err := f.nft.OwnerOf(1)
		require.NoError(t, err)
		require.Equal(t, f.mkt.Address(), owner)

		item, err := f.mkt.Item(id)
		require.NoError(t, err)
		require.EqualValues(t, 1, item.ID)
		require.Equal(t, f.nft.Address(), item.Registry)
		require.EqualValues(t, 1, item.TokenID)
		require.EqualValues(t, 200, item.Price)
		require.Equal(t, f.seller, item.Seller)
		require.False(t, item.Sold)

		recs := f.led.Records(ledger.ByName(EventOffered))
		require.Len(t, recs, 1)
		var ev OfferedEvent
		require.NoError(t, recs[0].Decode(&ev))
		require.Equal(t, OfferedEvent{
			ItemID:   1,
			Registry: f.nft.Address(),
			TokenID:  1,
			Price:    200,
			Seller:   f.seller,
		}, ev)
	})

	t.Run("zero price", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.mkt.MakeItem(f.seller, f.nft, 1, 0)
		require.EqualError(t, err, "Price must be greater than zero")
		require.True(t, types.IsCode(err, types.CodeInvalidArgument))

		// token ownership unchanged, nothing listed
		owner, err := f.nft.OwnerOf(1)
		require.NoError(t, err)
		require.Equal(t, f.seller, owner)
		require.Zero(t, f.mkt.ItemCount())
		require.Empty(t, f.led.Records(ledger.ByName(EventOffered)))
	})

	t.Run("without blanket approval", func(t *testing.T) {
		f := newFixture(t)
		require.NoError(t, f.nft.SetApprovalForAll(f.seller, f.mkt.Address(), false))

		_, err := f.mkt.MakeItem(f.seller, f.nft, 1, 200)
		require.True(t, types.IsCode(err, types.CodeAuthorization))

		owner, err := f.nft.OwnerOf(1)
		require.NoError(t, err)
		require.Equal(t, f.seller, owner)
		require.Zero(t, f.mkt.ItemCount())
	})

	t.Run("unminted token", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.mkt.MakeItem(f.seller, f.nft, 42, 200)
		require.True(t, types.IsCode(err, types.CodeNotFound))
	})
}

func Test_GetTotalPrice(t *testing.T) {
	f := newFixture(t)
	f.list(t, 200)

	t.Run("price plus truncated fee", func(t *testing.T) {
		// 200 * 101 / 100
		total, err := f.mkt.GetTotalPrice(1)
		require.NoError(t, err)
		require.EqualValues(t, 202, total)
	})

	t.Run("fee remainder is truncated", func(t *testing.T) {
		led := ledger.New()
		deployer := testutils.FundedAccount(t, led, 1000)
		seller := testutils.FundedAccount(t, led, 1000)
		nft := registry.New(led, "DApp NFT", "DAPP")
		mkt, err := New(led, deployer, 1)
		require.NoError(t, err)
		_, err = nft.Mint(seller, testURI)
		require.NoError(t, err)
		require.NoError(t, nft.SetApprovalForAll(seller, mkt.Address(), true))
		_, err = mkt.MakeItem(seller, nft, 1, 150)
		require.NoError(t, err)

		// 150 * 101 / 100 = 151.5 truncated
		total, err := mkt.GetTotalPrice(1)
		require.NoError(t, err)
		require.EqualValues(t, 151, total)
	})

	t.Run("repeated reads are identical", func(t *testing.T) {
		a, err := f.mkt.GetTotalPrice(1)
		require.NoError(t, err)
		b, err := f.mkt.GetTotalPrice(1)
		require.NoError(t, err)
		require.Equal(t, a, b)
	})

	t.Run("out of range", func(t *testing.T) {
		for _, id := range []types.ItemID{0, 2} {
			_, err := f.mkt.GetTotalPrice(id)
			require.EqualError(t, err, "Item doesn't exist")
			require.True(t, types.IsCode(err, types.CodeNotFound))
		}
	})
}

func Test_PurchaseItem(t *testing.T) {
	t.Run("settles with exact payment", func(t *testing.T) {
		f := newFixture(t)
		f.list(t, 200)
		total, err := f.mkt.GetTotalPrice(1)
		require.NoError(t, err)

		sellerBefore := f.led.BalanceOf(f.seller)
		feeBefore := f.led.BalanceOf(f.deployer)
		buyerBefore := f.led.BalanceOf(f.buyer)

		require.NoError(t, f.mkt.PurchaseItem(f.buyer, 1, total))

		// custody to the buyer, seller paid the price, fee account the fee
		owner, err := f.nft.OwnerOf(1)
		require.NoError(t, err)
		require.Equal(t, f.buyer, owner)
		require.Equal(t, sellerBefore+200, f.led.BalanceOf(f.seller))
		require.Equal(t, feeBefore+2, f.led.BalanceOf(f.deployer))
		require.Equal(t, buyerBefore-total, f.led.BalanceOf(f.buyer))

		item, err := f.mkt.Item(1)
		require.NoError(t, err)
		require.True(t, item.Sold)

		recs := f.led.Records(ledger.ByName(EventBought), ledger.ByTopic(f.buyer))
		require.Len(t, recs, 1)
		var ev BoughtEvent
		require.NoError(t, recs[0].Decode(&ev))
		require.Equal(t, BoughtEvent{
			ItemID:   1,
			Registry: f.nft.Address(),
			TokenID:  1,
			Price:    200,
			Seller:   f.seller,
			Buyer:    f.buyer,
		}, ev)
	})

	t.Run("overpayment is retained, not refunded", func(t *testing.T) {
		f := newFixture(t)
		f.list(t, 200)
		marketBefore := f.led.BalanceOf(f.mkt.Address())
		buyerBefore := f.led.BalanceOf(f.buyer)

		require.NoError(t, f.mkt.PurchaseItem(f.buyer, 1, 500))

		// buyer paid the full 500; the 298 excess over price+fee stays
		// with the marketplace account
		require.Equal(t, buyerBefore-500, f.led.BalanceOf(f.buyer))
		require.Equal(t, marketBefore+500-202, f.led.BalanceOf(f.mkt.Address()))
	})

	t.Run("item doesn't exist", func(t *testing.T) {
		f := newFixture(t)
		f.list(t, 200)
		for _, id := range []types.ItemID{0, 2} {
			err := f.mkt.PurchaseItem(f.buyer, id, 1000)
			require.EqualError(t, err, "Item doesn't exist")
			require.True(t, types.IsCode(err, types.CodeNotFound))
		}
	})

	t.Run("underpayment", func(t *testing.T) {
		f := newFixture(t)
		f.list(t, 200)
		sellerBefore := f.led.BalanceOf(f.seller)

		err := f.mkt.PurchaseItem(f.buyer, 1, 201)
		require.EqualError(t, err, "Not enough ether to cover item price and market fee")
		require.True(t, types.IsCode(err, types.CodeInsufficientFunds))

		// nothing changed: token stays in escrow, item unsold, no payout
		owner, err := f.nft.OwnerOf(1)
		require.NoError(t, err)
		require.Equal(t, f.mkt.Address(), owner)
		item, err := f.mkt.Item(1)
		require.NoError(t, err)
		require.False(t, item.Sold)
		require.Equal(t, sellerBefore, f.led.BalanceOf(f.seller))
		require.Empty(t, f.led.Records(ledger.ByName(EventBought)))
	})

	t.Run("already sold", func(t *testing.T) {
		f := newFixture(t)
		f.list(t, 200)
		require.NoError(t, f.mkt.PurchaseItem(f.buyer, 1, 202))

		other := testutils.FundedAccount(t, f.led, 10_000)
		err := f.mkt.PurchaseItem(other, 1, 202)
		require.EqualError(t, err, "Item already sold")
		require.True(t, types.IsCode(err, types.CodeAlreadySold))

		// the first buyer keeps the token
		owner, err := f.nft.OwnerOf(1)
		require.NoError(t, err)
		require.Equal(t, f.buyer, owner)
	})

	t.Run("buyer cannot cover the payment", func(t *testing.T) {
		f := newFixture(t)
		f.list(t, 200)
		broke := testutils.FundedAccount(t, f.led, 100)

		err := f.mkt.PurchaseItem(broke, 1, 202)
		require.True(t, types.IsCode(err, types.CodeInsufficientFunds))

		// full rollback: custody stays with the marketplace, item unsold
		owner, err := f.nft.OwnerOf(1)
		require.NoError(t, err)
		require.Equal(t, f.mkt.Address(), owner)
		item, err := f.mkt.Item(1)
		require.NoError(t, err)
		require.False(t, item.Sold)
		require.Empty(t, f.led.Records(ledger.ByName(EventBought)))
	})

	t.Run("repeated item reads are identical", func(t *testing.T) {
		f := newFixture(t)
		f.list(t, 200)
		require.NoError(t, f.mkt.PurchaseItem(f.buyer, 1, 202))

		a, err := f.mkt.Item(1)
		require.NoError(t, err)
		b, err := f.mkt.Item(1)
		require.NoError(t, err)
		require.Equal(t, a, b)
	})
}

func Test_ZeroFeeMarketplace(t *testing.T) {
	led := ledger.New()
	deployer := testutils.FundedAccount(t, led, 1000)
	seller := testutils.FundedAccount(t, led, 1000)
	buyer := testutils.FundedAccount(t, led, 1000)
	nft := registry.New(led, "DApp NFT", "DAPP")
	mkt, err := New(led, deployer, 0)
	require.NoError(t, err)

	_, err = nft.Mint(seller, testURI)
	require.NoError(t, err)
	require.NoError(t, nft.SetApprovalForAll(seller, mkt.Address(), true))
	_, err = mkt.MakeItem(seller, nft, 1, 200)
	require.NoError(t, err)

	total, err := mkt.GetTotalPrice(1)
	require.NoError(t, err)
	require.EqualValues(t, 200, total)

	feeBefore := led.BalanceOf(deployer)
	require.NoError(t, mkt.PurchaseItem(buyer, 1, 200))
	require.Equal(t, feeBefore, led.BalanceOf(deployer))
	require.EqualValues(t, 1200, led.BalanceOf(seller))
}
