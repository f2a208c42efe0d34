// Package registry implements the asset registry: the canonical mapping
// from asset id to current holder and metadata. It holds no state of its
// own; every operation runs against the store transaction it is handed, so
// custody moves commit together with whatever marketplace operation
// triggered them.
package registry

import (
	"strings"

	"github.com/punchamoorthee/marketledger/internal/domain"
	"github.com/punchamoorthee/marketledger/internal/store"
)

// Registry tracks assets and the operators allowed to move custody on a
// holder's behalf. The marketplace's custodian account is approved at
// construction.
type Registry struct {
	approved map[domain.Address]bool
}

func New(approved ...domain.Address) *Registry {
	r := &Registry{approved: make(map[domain.Address]bool, len(approved))}
	for _, a := range approved {
		r.approved[a] = true
	}
	return r
}

// Approved reports whether operator may move custody of assets it does not
// hold itself.
func (r *Registry) Approved(operator domain.Address) bool {
	return r.approved[operator]
}

// Mint creates a new asset held by caller. Asset ids are monotonically
// increasing and never reused.
func (r *Registry) Mint(tx store.Tx, caller domain.Address, metadataURI string) (int64, error) {
	if strings.TrimSpace(metadataURI) == "" {
		return 0, domain.ErrInvalidURI
	}
	id, err := tx.NextAssetID()
	if err != nil {
		return 0, err
	}
	if err := tx.PutAsset(&domain.Asset{ID: id, Holder: caller, MetadataURI: metadataURI}); err != nil {
		return 0, err
	}
	return id, nil
}

// Burn destroys the asset. Only the current holder may burn; the id never
// resolves to a holder again.
func (r *Registry) Burn(tx store.Tx, caller domain.Address, id int64) error {
	a, err := tx.Asset(id)
	if err != nil {
		return err
	}
	if a.Holder != caller {
		return domain.ErrNotOwner
	}
	return tx.DeleteAsset(id)
}

// OwnerOf returns the current holder of the asset.
func (r *Registry) OwnerOf(tx store.Tx, id int64) (domain.Address, error) {
	a, err := tx.Asset(id)
	if err != nil {
		return "", err
	}
	return a.Holder, nil
}

// TokenURI returns the asset's metadata URI.
func (r *Registry) TokenURI(tx store.Tx, id int64) (string, error) {
	a, err := tx.Asset(id)
	if err != nil {
		return "", err
	}
	return a.MetadataURI, nil
}

// TransferCustody reassigns the holder from from to to. The operator must
// be the holder itself or an approved operator.
func (r *Registry) TransferCustody(tx store.Tx, operator, from, to domain.Address, id int64) error {
	a, err := tx.Asset(id)
	if err != nil {
		return err
	}
	if a.Holder != from {
		return domain.ErrNotOwner
	}
	if operator != from && !r.approved[operator] {
		return domain.ErrNotAuthorized
	}
	a.Holder = to
	return tx.PutAsset(a)
}
