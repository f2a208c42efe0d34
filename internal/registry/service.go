package registry

import (
	"context"

	"github.com/punchamoorthee/marketledger/internal/domain"
	"github.com/punchamoorthee/marketledger/internal/store"
)

// Service exposes the registry's standalone operations (mint, burn,
// metadata lookup) over a Store, each in its own transaction. The
// marketplace ledger does not go through Service; it calls the Registry
// inside its own transactions.
type Service struct {
	store store.Store
	reg   *Registry
}

func NewService(s store.Store, r *Registry) *Service {
	return &Service{store: s, reg: r}
}

func (s *Service) Mint(ctx context.Context, caller domain.Address, metadataURI string) (int64, error) {
	var id int64
	err := s.store.Update(ctx, func(tx store.Tx) error {
		var err error
		id, err = s.reg.Mint(tx, caller, metadataURI)
		return err
	})
	return id, err
}

func (s *Service) Burn(ctx context.Context, caller domain.Address, id int64) error {
	return s.store.Update(ctx, func(tx store.Tx) error {
		return s.reg.Burn(tx, caller, id)
	})
}

func (s *Service) Asset(ctx context.Context, id int64) (*domain.Asset, error) {
	var a *domain.Asset
	err := s.store.View(ctx, func(tx store.Tx) error {
		var err error
		a, err = tx.Asset(id)
		return err
	})
	return a, err
}
