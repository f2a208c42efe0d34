// Package store owns the ledger's durable state: funds accounts and their
// double-entry history, the asset registry's records, listings, offers and
// the fee configuration. All access goes through a transaction boundary so
// that an operation either commits every one of its effects or none.
package store

import (
	"context"

	"github.com/punchamoorthee/marketledger/internal/domain"
)

// Tx is the state visible to a single atomic operation. Implementations do
// not need to be safe for concurrent use; the Store serializes callbacks.
type Tx interface {
	// Funds accounts.
	CreateAccount(addr domain.Address) (*domain.Account, error)
	Account(addr domain.Address) (*domain.Account, error)
	// Credit and Debit move funds and append the matching entry leg.
	// Debit fails with domain.ErrInsufficientFunds before any mutation.
	Credit(addr domain.Address, refKind string, refID, amount int64) error
	Debit(addr domain.Address, refKind string, refID, amount int64) error
	EntriesOf(addr domain.Address) ([]domain.Entry, error)

	// Registry records.
	NextAssetID() (int64, error)
	Asset(id int64) (*domain.Asset, error)
	PutAsset(a *domain.Asset) error
	DeleteAsset(id int64) error

	// Listings. PutListing upserts by listing ID; records are append-only
	// otherwise and keep their creation order.
	NextListingID() (int64, error)
	PutListing(l *domain.Listing) error
	LatestListingOf(tokenID int64) (*domain.Listing, error)
	ActiveListingOf(tokenID int64) (*domain.Listing, error)
	ListingsBySeller(seller domain.Address) ([]domain.Listing, error)
	AllListings() ([]domain.Listing, error)

	// Offers, keyed by token. PutOffer overwrites any previous record.
	PutOffer(o *domain.Offer) error
	OpenOfferOf(tokenID int64) (*domain.Offer, error)

	// Fee configuration.
	FeeConfig() (*domain.FeeConfig, error)
	SetFeeConfig(fc *domain.FeeConfig) error
}

// Store runs transactional callbacks over the ledger state.
type Store interface {
	// Update runs fn atomically. If fn returns an error every mutation it
	// made is discarded and the error is returned unchanged.
	Update(ctx context.Context, fn func(Tx) error) error
	// View runs fn against a read-only snapshot.
	View(ctx context.Context, fn func(Tx) error) error
	Close()
}
