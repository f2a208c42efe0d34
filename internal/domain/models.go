package domain

import "time"

// Address identifies an account. The execution environment authenticates
// callers; the ledger trusts the address it is handed.
type Address string

// Account represents a funds account in the ledger.
type Account struct {
	Address   Address   `json:"address"`
	Balance   int64     `json:"balance"`
	CreatedAt time.Time `json:"created_at"`
}

// Asset is a unique digital item tracked by the registry.
type Asset struct {
	ID          int64     `json:"id"`
	Holder      Address   `json:"holder"`
	MetadataURI string    `json:"metadata_uri"`
	CreatedAt   time.Time `json:"created_at"`
}

// ListingStatus is the lifecycle state of a listing. Sold and Cancelled
// are terminal.
type ListingStatus int

const (
	StatusActive ListingStatus = iota
	StatusSold
	StatusCancelled
)

func (s ListingStatus) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusSold:
		return "sold"
	case StatusCancelled:
		return "cancelled"
	}
	return "unknown"
}

// Listing is a seller's open offer to sell an asset at a fixed price.
// Listings are never deleted; terminal records are kept for history.
type Listing struct {
	ID        int64         `json:"id"`
	TokenID   int64         `json:"token_id"`
	Seller    Address       `json:"seller"`
	Custodian Address       `json:"custodian"`
	Price     int64         `json:"price"`
	Status    ListingStatus `json:"status"`
	CreatedAt time.Time     `json:"created_at"`
}

// OfferState is the lifecycle state of an offer.
type OfferState int

const (
	OfferOpen OfferState = iota
	OfferAccepted
)

// Offer is a prospective buyer's proposed price for an unlisted asset.
// At most one offer record exists per asset; a later offer overwrites it.
type Offer struct {
	TokenID   int64      `json:"token_id"`
	Bidder    Address    `json:"bidder"`
	Amount    int64      `json:"amount"`
	State     OfferState `json:"state"`
	CreatedAt time.Time  `json:"created_at"`
}

// FeeConfig holds the flat listing fee and the operator allowed to change it.
type FeeConfig struct {
	ListingFee int64   `json:"listing_fee"`
	Operator   Address `json:"operator"`
}

// Entry represents one leg of a fund movement. For a given (RefKind, RefID)
// pair the internal legs sum to zero; deposits are single-legged since the
// counterparty is outside the ledger.
type Entry struct {
	ID        int64     `json:"id"`
	RefKind   string    `json:"ref_kind"`
	RefID     int64     `json:"ref_id"`
	Account   Address   `json:"account"`
	Delta     int64     `json:"delta"`
	CreatedAt time.Time `json:"created_at"`
}

// Entry reference kinds.
const (
	RefDeposit    = "deposit"
	RefListingFee = "listing_fee"
	RefSale       = "sale"
	RefOffer      = "offer"
)
