package domain

import "errors"

// Failure taxonomy shared by the registry and the marketplace ledger.
// Every operation fails with exactly one of these and leaves state untouched.
var (
	ErrInvalidPrice       = errors.New("price should be more than 0")
	ErrInvalidAmount      = errors.New("positive amount required")
	ErrNotAuthorized      = errors.New("caller is not token owner nor approved")
	ErrNotOwner           = errors.New("caller does not hold the asset")
	ErrNotSeller          = errors.New("caller is not the seller of the item")
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrInsufficientFee    = errors.New("paid fee is below the listing fee")
	ErrListingNotActive   = errors.New("listing is not active")
	ErrItemIsListed       = errors.New("item has an active listing")
	ErrSellerCannotBuy    = errors.New("seller cannot buy its own item")
	ErrCannotOfferOwnItem = errors.New("cannot make an offer on own item")
	ErrUnknownAsset       = errors.New("unknown asset")
	ErrUnknownAccount     = errors.New("account not found")
	ErrNotFound           = errors.New("listing not found")
	ErrNoSuchOffer        = errors.New("no open offer for the asset")
	ErrAccountExists      = errors.New("account already exists")
	ErrInvalidURI         = errors.New("metadata uri required")
)
