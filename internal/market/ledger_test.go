package market_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/punchamoorthee/marketledger/internal/domain"
	"github.com/punchamoorthee/marketledger/internal/market"
	"github.com/punchamoorthee/marketledger/internal/registry"
	"github.com/punchamoorthee/marketledger/internal/store"
)

const (
	marketplace = domain.Address("marketplace")
	operator    = domain.Address("operator")
	alice       = domain.Address("alice")
	bob         = domain.Address("bob")
	carol       = domain.Address("carol")

	listingFee = int64(10)
)

type fixture struct {
	ledger *market.Ledger
	assets *registry.Service
	store  store.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	st := store.NewMemory()
	reg := registry.New(marketplace)
	ledger := market.NewLedger(st, reg, marketplace)
	require.NoError(t, ledger.Bootstrap(ctx, listingFee, operator))

	return &fixture{
		ledger: ledger,
		assets: registry.NewService(st, reg),
		store:  st,
	}
}

func (f *fixture) fund(t *testing.T, addr domain.Address, balance int64) {
	t.Helper()
	ctx := context.Background()
	_, err := f.ledger.CreateAccount(ctx, addr)
	require.NoError(t, err)
	require.NoError(t, f.ledger.Deposit(ctx, addr, balance))
}

func (f *fixture) mint(t *testing.T, holder domain.Address) int64 {
	t.Helper()
	id, err := f.assets.Mint(context.Background(), holder, "uri")
	require.NoError(t, err)
	return id
}

func (f *fixture) holderOf(t *testing.T, tokenID int64) domain.Address {
	t.Helper()
	a, err := f.assets.Asset(context.Background(), tokenID)
	require.NoError(t, err)
	return a.Holder
}

func (f *fixture) balanceOf(t *testing.T, addr domain.Address) int64 {
	t.Helper()
	acc, err := f.ledger.AccountOf(context.Background(), addr)
	require.NoError(t, err)
	return acc.Balance
}

func TestListItemValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.fund(t, alice, 1000)
	token := f.mint(t, alice)

	_, err := f.ledger.ListItem(ctx, alice, token, 0, listingFee)
	require.ErrorIs(t, err, domain.ErrInvalidPrice)

	_, err = f.ledger.ListItem(ctx, alice, token, -5, listingFee)
	require.ErrorIs(t, err, domain.ErrInvalidPrice)

	_, err = f.ledger.ListItem(ctx, bob, token, 10, listingFee)
	require.ErrorIs(t, err, domain.ErrNotAuthorized)

	_, err = f.ledger.ListItem(ctx, alice, token, 10, listingFee-1)
	require.ErrorIs(t, err, domain.ErrInsufficientFee)

	// Nothing was debited by the failed attempts.
	require.Equal(t, int64(1000), f.balanceOf(t, alice))
	require.Equal(t, alice, f.holderOf(t, token))
}

func TestListItemRequiresApprovedCustodian(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	reg := registry.New() // marketplace not approved
	ledger := market.NewLedger(st, reg, marketplace)
	require.NoError(t, ledger.Bootstrap(ctx, listingFee, operator))

	assets := registry.NewService(st, reg)
	id, err := assets.Mint(ctx, alice, "uri")
	require.NoError(t, err)

	_, err = ledger.CreateAccount(ctx, alice)
	require.NoError(t, err)
	require.NoError(t, ledger.Deposit(ctx, alice, 100))

	_, err = ledger.ListItem(ctx, alice, id, 10, listingFee)
	require.ErrorIs(t, err, domain.ErrNotAuthorized)
}

func TestListItemTakesCustodyAndFee(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.fund(t, alice, 1000)
	token := f.mint(t, alice)

	id, err := f.ledger.ListItem(ctx, alice, token, 10, listingFee+5)
	require.NoError(t, err)
	require.Equal(t, int64(1), id)

	// The ledger holds the asset for the lifetime of the listing.
	require.Equal(t, marketplace, f.holderOf(t, token))

	// The whole paid fee goes to the operator, excess included.
	require.Equal(t, int64(1000-listingFee-5), f.balanceOf(t, alice))
	require.Equal(t, listingFee+5, f.balanceOf(t, operator))

	listing, err := f.ledger.GetListedItem(ctx, token)
	require.NoError(t, err)
	require.Equal(t, domain.StatusActive, listing.Status)
	require.Equal(t, alice, listing.Seller)
	require.Equal(t, marketplace, listing.Custodian)
	require.Equal(t, int64(10), listing.Price)

	// While listed the seller no longer holds the asset, so a second
	// listing attempt is rejected as unauthorized.
	_, err = f.ledger.ListItem(ctx, alice, token, 20, listingFee)
	require.ErrorIs(t, err, domain.ErrNotAuthorized)
}

func TestBuyItemGuards(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.fund(t, alice, 1000)
	f.fund(t, bob, 1000)
	token := f.mint(t, alice)

	require.ErrorIs(t, f.ledger.BuyItem(ctx, bob, token, 100), domain.ErrListingNotActive)

	_, err := f.ledger.ListItem(ctx, alice, token, 10, listingFee)
	require.NoError(t, err)

	require.ErrorIs(t, f.ledger.BuyItem(ctx, alice, token, 100), domain.ErrSellerCannotBuy)
	require.ErrorIs(t, f.ledger.BuyItem(ctx, bob, token, 9), domain.ErrInsufficientFunds)

	// Failed buys moved nothing.
	require.Equal(t, marketplace, f.holderOf(t, token))
	require.Equal(t, int64(1000), f.balanceOf(t, bob))
}

func TestBuyItemTransfersCustodyAndFunds(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.fund(t, alice, 1000)
	f.fund(t, bob, 1000)
	token := f.mint(t, alice)

	_, err := f.ledger.ListItem(ctx, alice, token, 10, listingFee)
	require.NoError(t, err)
	aliceBefore := f.balanceOf(t, alice)

	// Overpayment is forwarded to the seller in full.
	require.NoError(t, f.ledger.BuyItem(ctx, bob, token, 15))

	require.Equal(t, bob, f.holderOf(t, token))
	require.Equal(t, aliceBefore+15, f.balanceOf(t, alice))
	require.Equal(t, int64(1000-15), f.balanceOf(t, bob))

	listing, err := f.ledger.GetListedItem(ctx, token)
	require.NoError(t, err)
	require.Equal(t, domain.StatusSold, listing.Status)

	// Terminal states do not transition.
	require.ErrorIs(t, f.ledger.BuyItem(ctx, carol, token, 100), domain.ErrListingNotActive)
	require.ErrorIs(t, f.ledger.CancelListedItem(ctx, alice, token), domain.ErrListingNotActive)
}

func TestCancelListedItem(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.fund(t, alice, 1000)
	token := f.mint(t, alice)

	_, err := f.ledger.ListItem(ctx, alice, token, 10, listingFee)
	require.NoError(t, err)

	require.ErrorIs(t, f.ledger.CancelListedItem(ctx, bob, token), domain.ErrNotSeller)

	require.NoError(t, f.ledger.CancelListedItem(ctx, alice, token))
	require.Equal(t, alice, f.holderOf(t, token))

	listing, err := f.ledger.GetListedItem(ctx, token)
	require.NoError(t, err)
	require.Equal(t, domain.StatusCancelled, listing.Status)

	require.ErrorIs(t, f.ledger.CancelListedItem(ctx, alice, token), domain.ErrListingNotActive)

	// The asset can be listed again after cancellation; only one listing
	// is ever active per asset.
	id, err := f.ledger.ListItem(ctx, alice, token, 20, listingFee)
	require.NoError(t, err)
	require.Equal(t, int64(2), id)
}

func TestMakeOfferGuards(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.fund(t, alice, 1000)
	token := f.mint(t, alice)

	require.ErrorIs(t, f.ledger.MakeOffer(ctx, alice, token, 15), domain.ErrCannotOfferOwnItem)
	require.ErrorIs(t, f.ledger.MakeOffer(ctx, bob, token, 0), domain.ErrInvalidAmount)
	require.ErrorIs(t, f.ledger.MakeOffer(ctx, bob, 99, 15), domain.ErrUnknownAsset)

	_, err := f.ledger.ListItem(ctx, alice, token, 10, listingFee)
	require.NoError(t, err)
	require.ErrorIs(t, f.ledger.MakeOffer(ctx, bob, token, 15), domain.ErrItemIsListed)
}

func TestOfferOverwrite(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.fund(t, alice, 1000)
	f.fund(t, bob, 1000)
	f.fund(t, carol, 1000)
	token := f.mint(t, alice)

	require.NoError(t, f.ledger.MakeOffer(ctx, bob, token, 15))
	// A later offer overwrites the open one, whoever made it.
	require.NoError(t, f.ledger.MakeOffer(ctx, carol, token, 20))

	require.NoError(t, f.ledger.AcceptOffer(ctx, alice, token, listingFee))

	require.Equal(t, carol, f.holderOf(t, token))
	require.Equal(t, int64(1000-20), f.balanceOf(t, carol))
	require.Equal(t, int64(1000), f.balanceOf(t, bob))
}

func TestAcceptOfferGuards(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.fund(t, alice, 1000)
	f.fund(t, bob, 1000)
	token := f.mint(t, alice)

	require.ErrorIs(t, f.ledger.AcceptOffer(ctx, alice, token, listingFee), domain.ErrNoSuchOffer)
	require.ErrorIs(t, f.ledger.AcceptOffer(ctx, bob, token, listingFee), domain.ErrNotSeller)

	require.NoError(t, f.ledger.MakeOffer(ctx, bob, token, 15))
	require.ErrorIs(t, f.ledger.AcceptOffer(ctx, alice, token, listingFee-1), domain.ErrInsufficientFee)

	_, err := f.ledger.ListItem(ctx, alice, token, 10, listingFee)
	require.NoError(t, err)
	require.ErrorIs(t, f.ledger.AcceptOffer(ctx, alice, token, listingFee), domain.ErrItemIsListed)
}

func TestAcceptOfferIsAtomic(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.fund(t, alice, 1000)
	f.fund(t, bob, 5) // cannot cover its own 15 offer
	token := f.mint(t, alice)

	require.NoError(t, f.ledger.MakeOffer(ctx, bob, token, 15))
	require.ErrorIs(t, f.ledger.AcceptOffer(ctx, alice, token, listingFee), domain.ErrInsufficientFunds)

	// The failed acceptance left no trace: no fee taken, custody and the
	// offer untouched.
	require.Equal(t, int64(1000), f.balanceOf(t, alice))
	require.Equal(t, int64(0), f.balanceOf(t, operator))
	require.Equal(t, alice, f.holderOf(t, token))

	require.NoError(t, f.ledger.Deposit(ctx, bob, 100))
	require.NoError(t, f.ledger.AcceptOffer(ctx, alice, token, listingFee))
	require.Equal(t, bob, f.holderOf(t, token))
}

func TestAcceptOfferMovesFundsAndCustody(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.fund(t, alice, 1000)
	f.fund(t, bob, 1000)
	token := f.mint(t, alice)

	require.NoError(t, f.ledger.MakeOffer(ctx, bob, token, 15))
	require.NoError(t, f.ledger.AcceptOffer(ctx, alice, token, listingFee))

	require.Equal(t, bob, f.holderOf(t, token))
	require.Equal(t, int64(1000-listingFee+15), f.balanceOf(t, alice))
	require.Equal(t, int64(1000-15), f.balanceOf(t, bob))
	require.Equal(t, listingFee, f.balanceOf(t, operator))

	// The accepted offer is spent.
	require.ErrorIs(t, f.ledger.AcceptOffer(ctx, bob, token, listingFee), domain.ErrNoSuchOffer)
}

func TestQueriesKeepCreationOrder(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.fund(t, alice, 1000)
	f.fund(t, bob, 1000)
	f.fund(t, carol, 1000)

	t1 := f.mint(t, alice)
	t2 := f.mint(t, alice)
	t3 := f.mint(t, bob)

	id1, err := f.ledger.ListItem(ctx, alice, t1, 10, listingFee)
	require.NoError(t, err)
	id2, err := f.ledger.ListItem(ctx, alice, t2, 10, listingFee)
	require.NoError(t, err)
	id3, err := f.ledger.ListItem(ctx, bob, t3, 10, listingFee)
	require.NoError(t, err)

	// Terminate two of them; history queries still return them in order.
	require.NoError(t, f.ledger.BuyItem(ctx, carol, t1, 10))
	require.NoError(t, f.ledger.CancelListedItem(ctx, alice, t2))

	mine, err := f.ledger.ItemsOf(ctx, alice)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	require.Equal(t, id1, mine[0].ID)
	require.Equal(t, domain.StatusSold, mine[0].Status)
	require.Equal(t, id2, mine[1].ID)
	require.Equal(t, domain.StatusCancelled, mine[1].Status)

	all, err := f.ledger.AllItems(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.Equal(t, []int64{id1, id2, id3}, []int64{all[0].ID, all[1].ID, all[2].ID})
	require.Equal(t, bob, all[2].Seller)

	_, err = f.ledger.GetListedItem(ctx, 99)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUpdateListingFee(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	fee, err := f.ledger.ListingFee(ctx)
	require.NoError(t, err)
	require.Equal(t, listingFee, fee)

	require.ErrorIs(t, f.ledger.UpdateListingFee(ctx, alice, 50), domain.ErrNotAuthorized)
	require.ErrorIs(t, f.ledger.UpdateListingFee(ctx, operator, -1), domain.ErrInvalidAmount)

	require.NoError(t, f.ledger.UpdateListingFee(ctx, operator, 50))
	fee, err = f.ledger.ListingFee(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(50), fee)

	// The new fee binds immediately.
	f.fund(t, alice, 1000)
	token := f.mint(t, alice)
	_, err = f.ledger.ListItem(ctx, alice, token, 10, 49)
	require.ErrorIs(t, err, domain.ErrInsufficientFee)
}

func TestFundEntriesBalancePerMovement(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.fund(t, alice, 1000)
	f.fund(t, bob, 1000)
	token := f.mint(t, alice)

	_, err := f.ledger.ListItem(ctx, alice, token, 10, listingFee)
	require.NoError(t, err)
	require.NoError(t, f.ledger.BuyItem(ctx, bob, token, 10))

	aliceEntries, err := f.ledger.EntriesOf(ctx, alice)
	require.NoError(t, err)
	// deposit, paid listing fee, sale proceeds
	require.Len(t, aliceEntries, 3)
	require.Equal(t, domain.RefDeposit, aliceEntries[0].RefKind)
	require.Equal(t, -listingFee, aliceEntries[1].Delta)
	require.Equal(t, int64(10), aliceEntries[2].Delta)

	opEntries, err := f.ledger.EntriesOf(ctx, operator)
	require.NoError(t, err)
	require.Len(t, opEntries, 1)
	require.Equal(t, listingFee, opEntries[0].Delta)
	require.Equal(t, aliceEntries[1].RefID, opEntries[0].RefID)
	require.Equal(t, aliceEntries[1].Delta+opEntries[0].Delta, int64(0))
}

func TestDepositAndAccountGuards(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.ledger.CreateAccount(ctx, alice)
	require.NoError(t, err)
	_, err = f.ledger.CreateAccount(ctx, alice)
	require.ErrorIs(t, err, domain.ErrAccountExists)

	require.ErrorIs(t, f.ledger.Deposit(ctx, alice, 0), domain.ErrInvalidAmount)
	require.ErrorIs(t, f.ledger.Deposit(ctx, bob, 10), domain.ErrUnknownAccount)

	_, err = f.ledger.AccountOf(ctx, bob)
	require.ErrorIs(t, err, domain.ErrUnknownAccount)
}
