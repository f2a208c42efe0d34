// Package market implements the marketplace ledger: the listing and offer
// state machines and the fund movements that go with them. Every operation
// takes the authenticated caller as an explicit parameter and runs as a
// single store transaction, so custody, funds and listing state commit
// together or not at all.
package market

import (
	"context"
	"errors"

	"github.com/punchamoorthee/marketledger/internal/domain"
	"github.com/punchamoorthee/marketledger/internal/store"
)

// AssetRegistry is the capability surface the ledger consumes from the
// asset registry.
type AssetRegistry interface {
	OwnerOf(tx store.Tx, id int64) (domain.Address, error)
	TransferCustody(tx store.Tx, operator, from, to domain.Address, id int64) error
	Approved(operator domain.Address) bool
}

// Ledger orchestrates listings, offers and fee collection. It acts under
// its own account, which takes custody of every listed asset for the
// lifetime of the listing.
type Ledger struct {
	store   store.Store
	reg     AssetRegistry
	account domain.Address
}

func NewLedger(s store.Store, reg AssetRegistry, account domain.Address) *Ledger {
	return &Ledger{store: s, reg: reg, account: account}
}

// Account returns the ledger's custodian address.
func (l *Ledger) Account() domain.Address {
	return l.account
}

// Bootstrap installs the fee configuration if none exists and makes sure
// the ledger and operator accounts are present. It is safe to call on
// every startup.
func (l *Ledger) Bootstrap(ctx context.Context, listingFee int64, operator domain.Address) error {
	if listingFee < 0 {
		return domain.ErrInvalidAmount
	}
	return l.store.Update(ctx, func(tx store.Tx) error {
		for _, addr := range []domain.Address{l.account, operator} {
			if _, err := tx.CreateAccount(addr); err != nil && !errors.Is(err, domain.ErrAccountExists) {
				return err
			}
		}
		if _, err := tx.FeeConfig(); err == nil {
			return nil
		} else if !errors.Is(err, domain.ErrNotFound) {
			return err
		}
		return tx.SetFeeConfig(&domain.FeeConfig{ListingFee: listingFee, Operator: operator})
	})
}

// ListItem registers a new active listing for the caller's asset and moves
// the asset into the ledger's custody. paidFee is drawn from the caller's
// funds account and forwarded to the operator in full; it must cover the
// current listing fee. Returns the new listing id.
func (l *Ledger) ListItem(ctx context.Context, caller domain.Address, tokenID, price, paidFee int64) (int64, error) {
	var listingID int64
	err := l.store.Update(ctx, func(tx store.Tx) error {
		if price <= 0 {
			return domain.ErrInvalidPrice
		}

		owner, err := l.reg.OwnerOf(tx, tokenID)
		if err != nil {
			return err
		}
		if owner != caller || !l.reg.Approved(l.account) {
			return domain.ErrNotAuthorized
		}

		fc, err := tx.FeeConfig()
		if err != nil {
			return err
		}
		if paidFee < fc.ListingFee {
			return domain.ErrInsufficientFee
		}

		listingID, err = tx.NextListingID()
		if err != nil {
			return err
		}

		if err := tx.Debit(caller, domain.RefListingFee, listingID, paidFee); err != nil {
			return err
		}
		if err := tx.Credit(fc.Operator, domain.RefListingFee, listingID, paidFee); err != nil {
			return err
		}
		if err := l.reg.TransferCustody(tx, l.account, caller, l.account, tokenID); err != nil {
			return err
		}
		return tx.PutListing(&domain.Listing{
			ID:        listingID,
			TokenID:   tokenID,
			Seller:    caller,
			Custodian: l.account,
			Price:     price,
			Status:    domain.StatusActive,
		})
	})
	if err != nil {
		return 0, err
	}
	return listingID, nil
}

// BuyItem sells the active listing for tokenID to the caller. payment is
// drawn from the caller's funds account; it must cover the listing price
// and is forwarded to the seller in full, excess included. Custody moves
// from the ledger to the buyer and the listing terminates as Sold.
func (l *Ledger) BuyItem(ctx context.Context, caller domain.Address, tokenID, payment int64) error {
	return l.store.Update(ctx, func(tx store.Tx) error {
		listing, err := tx.ActiveListingOf(tokenID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.ErrListingNotActive
			}
			return err
		}
		if caller == listing.Seller {
			return domain.ErrSellerCannotBuy
		}
		if payment < listing.Price {
			return domain.ErrInsufficientFunds
		}

		if err := tx.Debit(caller, domain.RefSale, listing.ID, payment); err != nil {
			return err
		}
		if err := tx.Credit(listing.Seller, domain.RefSale, listing.ID, payment); err != nil {
			return err
		}
		if err := l.reg.TransferCustody(tx, l.account, l.account, caller, tokenID); err != nil {
			return err
		}

		listing.Status = domain.StatusSold
		listing.Custodian = caller
		return tx.PutListing(listing)
	})
}

// CancelListedItem cancels the caller's active listing and returns custody
// of the asset to the seller.
func (l *Ledger) CancelListedItem(ctx context.Context, caller domain.Address, tokenID int64) error {
	return l.store.Update(ctx, func(tx store.Tx) error {
		listing, err := tx.ActiveListingOf(tokenID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.ErrListingNotActive
			}
			return err
		}
		if caller != listing.Seller {
			return domain.ErrNotSeller
		}

		if err := l.reg.TransferCustody(tx, l.account, l.account, listing.Seller, tokenID); err != nil {
			return err
		}

		listing.Status = domain.StatusCancelled
		listing.Custodian = listing.Seller
		return tx.PutListing(listing)
	})
}

// MakeOffer records an open offer by the caller on an unlisted asset. No
// funds move until the offer is accepted. A later offer on the same asset
// overwrites the open one, whoever made it.
func (l *Ledger) MakeOffer(ctx context.Context, caller domain.Address, tokenID, amount int64) error {
	return l.store.Update(ctx, func(tx store.Tx) error {
		if amount <= 0 {
			return domain.ErrInvalidAmount
		}

		owner, err := l.reg.OwnerOf(tx, tokenID)
		if err != nil {
			return err
		}
		if owner == caller {
			return domain.ErrCannotOfferOwnItem
		}

		if _, err := tx.ActiveListingOf(tokenID); err == nil {
			return domain.ErrItemIsListed
		} else if !errors.Is(err, domain.ErrNotFound) {
			return err
		}

		return tx.PutOffer(&domain.Offer{
			TokenID: tokenID,
			Bidder:  caller,
			Amount:  amount,
			State:   domain.OfferOpen,
		})
	})
}

// AcceptOffer lets the asset's owner accept the open offer on it. The
// caller pays paidFee to the operator (it must cover the listing fee); the
// offer amount moves from the bidder to the caller and custody moves to
// the bidder. The asset must not be listed.
func (l *Ledger) AcceptOffer(ctx context.Context, caller domain.Address, tokenID, paidFee int64) error {
	return l.store.Update(ctx, func(tx store.Tx) error {
		// The listing check comes first: while listed the ledger holds
		// custody, so the ownership check alone would misreport the
		// seller as a non-owner.
		if _, err := tx.ActiveListingOf(tokenID); err == nil {
			return domain.ErrItemIsListed
		} else if !errors.Is(err, domain.ErrNotFound) {
			return err
		}

		owner, err := l.reg.OwnerOf(tx, tokenID)
		if err != nil {
			return err
		}
		if owner != caller {
			return domain.ErrNotSeller
		}

		offer, err := tx.OpenOfferOf(tokenID)
		if err != nil {
			return err
		}

		fc, err := tx.FeeConfig()
		if err != nil {
			return err
		}
		if paidFee < fc.ListingFee {
			return domain.ErrInsufficientFee
		}

		if err := tx.Debit(caller, domain.RefListingFee, tokenID, paidFee); err != nil {
			return err
		}
		if err := tx.Credit(fc.Operator, domain.RefListingFee, tokenID, paidFee); err != nil {
			return err
		}
		if err := tx.Debit(offer.Bidder, domain.RefOffer, tokenID, offer.Amount); err != nil {
			return err
		}
		if err := tx.Credit(caller, domain.RefOffer, tokenID, offer.Amount); err != nil {
			return err
		}
		if err := l.reg.TransferCustody(tx, l.account, caller, offer.Bidder, tokenID); err != nil {
			return err
		}

		offer.State = domain.OfferAccepted
		return tx.PutOffer(offer)
	})
}

// GetListedItem returns the latest listing record for tokenID, whatever
// its status. Records are never deleted.
func (l *Ledger) GetListedItem(ctx context.Context, tokenID int64) (*domain.Listing, error) {
	var listing *domain.Listing
	err := l.store.View(ctx, func(tx store.Tx) error {
		var err error
		listing, err = tx.LatestListingOf(tokenID)
		return err
	})
	return listing, err
}

// ItemsOf returns every listing ever created by seller, in creation order.
func (l *Ledger) ItemsOf(ctx context.Context, seller domain.Address) ([]domain.Listing, error) {
	var out []domain.Listing
	err := l.store.View(ctx, func(tx store.Tx) error {
		var err error
		out, err = tx.ListingsBySeller(seller)
		return err
	})
	return out, err
}

// AllItems returns every listing ever created, in creation order.
func (l *Ledger) AllItems(ctx context.Context) ([]domain.Listing, error) {
	var out []domain.Listing
	err := l.store.View(ctx, func(tx store.Tx) error {
		var err error
		out, err = tx.AllListings()
		return err
	})
	return out, err
}

// ListingFee returns the current flat listing fee.
func (l *Ledger) ListingFee(ctx context.Context) (int64, error) {
	var fee int64
	err := l.store.View(ctx, func(tx store.Tx) error {
		fc, err := tx.FeeConfig()
		if err != nil {
			return err
		}
		fee = fc.ListingFee
		return nil
	})
	return fee, err
}

// UpdateListingFee replaces the listing fee. Only the operator may call it.
func (l *Ledger) UpdateListingFee(ctx context.Context, caller domain.Address, newFee int64) error {
	return l.store.Update(ctx, func(tx store.Tx) error {
		if newFee < 0 {
			return domain.ErrInvalidAmount
		}
		fc, err := tx.FeeConfig()
		if err != nil {
			return err
		}
		if caller != fc.Operator {
			return domain.ErrNotAuthorized
		}
		fc.ListingFee = newFee
		return tx.SetFeeConfig(fc)
	})
}
