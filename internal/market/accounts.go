package market

import (
	"context"

	"github.com/punchamoorthee/marketledger/internal/domain"
	"github.com/punchamoorthee/marketledger/internal/store"
)

// Funds account management. Attached value is modeled explicitly: callers
// hold a funds account with the ledger and every payment is drawn from it
// in the same transaction as the state change it pays for.

// CreateAccount opens an empty funds account for addr.
func (l *Ledger) CreateAccount(ctx context.Context, addr domain.Address) (*domain.Account, error) {
	var acc *domain.Account
	err := l.store.Update(ctx, func(tx store.Tx) error {
		var err error
		acc, err = tx.CreateAccount(addr)
		return err
	})
	return acc, err
}

// Deposit credits addr's funds account from outside the ledger.
func (l *Ledger) Deposit(ctx context.Context, addr domain.Address, amount int64) error {
	if amount <= 0 {
		return domain.ErrInvalidAmount
	}
	return l.store.Update(ctx, func(tx store.Tx) error {
		return tx.Credit(addr, domain.RefDeposit, 0, amount)
	})
}

// AccountOf returns addr's funds account.
func (l *Ledger) AccountOf(ctx context.Context, addr domain.Address) (*domain.Account, error) {
	var acc *domain.Account
	err := l.store.View(ctx, func(tx store.Tx) error {
		var err error
		acc, err = tx.Account(addr)
		return err
	})
	return acc, err
}

// EntriesOf returns the fund movements recorded against addr, oldest first.
func (l *Ledger) EntriesOf(ctx context.Context, addr domain.Address) ([]domain.Entry, error) {
	var entries []domain.Entry
	err := l.store.View(ctx, func(tx store.Tx) error {
		var err error
		entries, err = tx.EntriesOf(addr)
		return err
	})
	return entries, err
}
