package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/punchamoorthee/marketledger/internal/domain"
)

var errReadOnlyTx = errors.New("store: mutation inside read-only transaction")

// Memory is an in-process Store. Update clones the whole state, applies the
// callback to the clone and swaps it in only when the callback succeeds, so
// a failed operation can never leave a partial effect behind.
type Memory struct {
	mu    sync.RWMutex
	state *memState
}

type memState struct {
	accounts map[domain.Address]*domain.Account
	entries  []domain.Entry
	assets   map[int64]*domain.Asset
	listings []domain.Listing
	offers   map[int64]*domain.Offer
	fee      *domain.FeeConfig

	nextEntryID   int64
	nextAssetID   int64
	nextListingID int64
}

func NewMemory() *Memory {
	return &Memory{state: &memState{
		accounts: make(map[domain.Address]*domain.Account),
		assets:   make(map[int64]*domain.Asset),
		offers:   make(map[int64]*domain.Offer),
	}}
}

func (s *memState) clone() *memState {
	next := &memState{
		accounts:      make(map[domain.Address]*domain.Account, len(s.accounts)),
		entries:       make([]domain.Entry, len(s.entries)),
		assets:        make(map[int64]*domain.Asset, len(s.assets)),
		listings:      make([]domain.Listing, len(s.listings)),
		offers:        make(map[int64]*domain.Offer, len(s.offers)),
		nextEntryID:   s.nextEntryID,
		nextAssetID:   s.nextAssetID,
		nextListingID: s.nextListingID,
	}
	for addr, acc := range s.accounts {
		c := *acc
		next.accounts[addr] = &c
	}
	copy(next.entries, s.entries)
	for id, a := range s.assets {
		c := *a
		next.assets[id] = &c
	}
	copy(next.listings, s.listings)
	for id, o := range s.offers {
		c := *o
		next.offers[id] = &c
	}
	if s.fee != nil {
		c := *s.fee
		next.fee = &c
	}
	return next
}

func (m *Memory) Update(ctx context.Context, fn func(Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	next := m.state.clone()
	if err := fn(&memTx{state: next, writable: true}); err != nil {
		return err
	}
	m.state = next
	return nil
}

func (m *Memory) View(ctx context.Context, fn func(Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	return fn(&memTx{state: m.state})
}

func (m *Memory) Close() {}

type memTx struct {
	state    *memState
	writable bool
}

func (t *memTx) CreateAccount(addr domain.Address) (*domain.Account, error) {
	if !t.writable {
		return nil, errReadOnlyTx
	}
	if _, ok := t.state.accounts[addr]; ok {
		return nil, domain.ErrAccountExists
	}
	acc := &domain.Account{Address: addr, CreatedAt: time.Now().UTC()}
	t.state.accounts[addr] = acc
	c := *acc
	return &c, nil
}

func (t *memTx) Account(addr domain.Address) (*domain.Account, error) {
	acc, ok := t.state.accounts[addr]
	if !ok {
		return nil, domain.ErrUnknownAccount
	}
	c := *acc
	return &c, nil
}

func (t *memTx) Credit(addr domain.Address, refKind string, refID, amount int64) error {
	return t.move(addr, refKind, refID, amount)
}

func (t *memTx) Debit(addr domain.Address, refKind string, refID, amount int64) error {
	return t.move(addr, refKind, refID, -amount)
}

func (t *memTx) move(addr domain.Address, refKind string, refID, delta int64) error {
	if !t.writable {
		return errReadOnlyTx
	}
	acc, ok := t.state.accounts[addr]
	if !ok {
		return domain.ErrUnknownAccount
	}
	if acc.Balance+delta < 0 {
		return domain.ErrInsufficientFunds
	}
	acc.Balance += delta
	t.state.nextEntryID++
	t.state.entries = append(t.state.entries, domain.Entry{
		ID:        t.state.nextEntryID,
		RefKind:   refKind,
		RefID:     refID,
		Account:   addr,
		Delta:     delta,
		CreatedAt: time.Now().UTC(),
	})
	return nil
}

func (t *memTx) EntriesOf(addr domain.Address) ([]domain.Entry, error) {
	if _, ok := t.state.accounts[addr]; !ok {
		return nil, domain.ErrUnknownAccount
	}
	var out []domain.Entry
	for _, e := range t.state.entries {
		if e.Account == addr {
			out = append(out, e)
		}
	}
	return out, nil
}

func (t *memTx) NextAssetID() (int64, error) {
	if !t.writable {
		return 0, errReadOnlyTx
	}
	t.state.nextAssetID++
	return t.state.nextAssetID, nil
}

func (t *memTx) Asset(id int64) (*domain.Asset, error) {
	a, ok := t.state.assets[id]
	if !ok {
		return nil, domain.ErrUnknownAsset
	}
	c := *a
	return &c, nil
}

func (t *memTx) PutAsset(a *domain.Asset) error {
	if !t.writable {
		return errReadOnlyTx
	}
	c := *a
	t.state.assets[a.ID] = &c
	return nil
}

func (t *memTx) DeleteAsset(id int64) error {
	if !t.writable {
		return errReadOnlyTx
	}
	if _, ok := t.state.assets[id]; !ok {
		return domain.ErrUnknownAsset
	}
	delete(t.state.assets, id)
	return nil
}

func (t *memTx) NextListingID() (int64, error) {
	if !t.writable {
		return 0, errReadOnlyTx
	}
	t.state.nextListingID++
	return t.state.nextListingID, nil
}

func (t *memTx) PutListing(l *domain.Listing) error {
	if !t.writable {
		return errReadOnlyTx
	}
	for i := range t.state.listings {
		if t.state.listings[i].ID == l.ID {
			t.state.listings[i] = *l
			return nil
		}
	}
	t.state.listings = append(t.state.listings, *l)
	return nil
}

func (t *memTx) LatestListingOf(tokenID int64) (*domain.Listing, error) {
	for i := len(t.state.listings) - 1; i >= 0; i-- {
		if t.state.listings[i].TokenID == tokenID {
			c := t.state.listings[i]
			return &c, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (t *memTx) ActiveListingOf(tokenID int64) (*domain.Listing, error) {
	for i := len(t.state.listings) - 1; i >= 0; i-- {
		l := t.state.listings[i]
		if l.TokenID == tokenID && l.Status == domain.StatusActive {
			c := l
			return &c, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (t *memTx) ListingsBySeller(seller domain.Address) ([]domain.Listing, error) {
	var out []domain.Listing
	for _, l := range t.state.listings {
		if l.Seller == seller {
			out = append(out, l)
		}
	}
	return out, nil
}

func (t *memTx) AllListings() ([]domain.Listing, error) {
	out := make([]domain.Listing, len(t.state.listings))
	copy(out, t.state.listings)
	return out, nil
}

func (t *memTx) PutOffer(o *domain.Offer) error {
	if !t.writable {
		return errReadOnlyTx
	}
	c := *o
	t.state.offers[o.TokenID] = &c
	return nil
}

func (t *memTx) OpenOfferOf(tokenID int64) (*domain.Offer, error) {
	o, ok := t.state.offers[tokenID]
	if !ok || o.State != domain.OfferOpen {
		return nil, domain.ErrNoSuchOffer
	}
	c := *o
	return &c, nil
}

func (t *memTx) FeeConfig() (*domain.FeeConfig, error) {
	if t.state.fee == nil {
		return nil, domain.ErrNotFound
	}
	c := *t.state.fee
	return &c, nil
}

func (t *memTx) SetFeeConfig(fc *domain.FeeConfig) error {
	if !t.writable {
		return errReadOnlyTx
	}
	c := *fc
	t.state.fee = &c
	return nil
}
