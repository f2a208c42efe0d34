package store

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/punchamoorthee/marketledger/internal/domain"
)

//go:embed schema.sql
var schema string

// Postgres is the durable Store. Update wraps the callback in a
// RepeatableRead transaction; row locks are taken with FOR UPDATE on the
// rows an operation mutates.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(ctx context.Context, connString string) (*Postgres, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	return &Postgres{pool: pool}, nil
}

// ApplySchema creates the tables, sequences and indexes if missing.
func (p *Postgres) ApplySchema(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

func (p *Postgres) Update(ctx context.Context, fn func(Tx) error) error {
	tx, err := p.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return fmt.Errorf("tx begin failed: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&pgTx{ctx: ctx, tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("tx commit failed: %w", err)
	}
	return nil
}

func (p *Postgres) View(ctx context.Context, fn func(Tx) error) error {
	tx, err := p.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return fmt.Errorf("tx begin failed: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&pgTx{ctx: ctx, tx: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (p *Postgres) Close() {
	p.pool.Close()
}

type pgTx struct {
	ctx context.Context
	tx  pgx.Tx
}

func (t *pgTx) CreateAccount(addr domain.Address) (*domain.Account, error) {
	var acc domain.Account
	err := t.tx.QueryRow(t.ctx,
		"INSERT INTO accounts (address) VALUES ($1) ON CONFLICT (address) DO NOTHING RETURNING address, balance, created_at",
		addr).Scan(&acc.Address, &acc.Balance, &acc.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrAccountExists
	}
	if err != nil {
		return nil, fmt.Errorf("account insert failed: %w", err)
	}
	return &acc, nil
}

func (t *pgTx) Account(addr domain.Address) (*domain.Account, error) {
	var acc domain.Account
	err := t.tx.QueryRow(t.ctx,
		"SELECT address, balance, created_at FROM accounts WHERE address = $1",
		addr).Scan(&acc.Address, &acc.Balance, &acc.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrUnknownAccount
	}
	if err != nil {
		return nil, err
	}
	return &acc, nil
}

func (t *pgTx) Credit(addr domain.Address, refKind string, refID, amount int64) error {
	return t.move(addr, refKind, refID, amount)
}

func (t *pgTx) Debit(addr domain.Address, refKind string, refID, amount int64) error {
	return t.move(addr, refKind, refID, -amount)
}

func (t *pgTx) move(addr domain.Address, refKind string, refID, delta int64) error {
	var balance int64
	err := t.tx.QueryRow(t.ctx,
		"SELECT balance FROM accounts WHERE address = $1 FOR UPDATE", addr).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrUnknownAccount
	}
	if err != nil {
		return fmt.Errorf("lock acquisition failed: %w", err)
	}
	if balance+delta < 0 {
		return domain.ErrInsufficientFunds
	}

	_, err = t.tx.Exec(t.ctx,
		"UPDATE accounts SET balance = balance + $1 WHERE address = $2", delta, addr)
	if err != nil {
		return fmt.Errorf("balance update failed: %w", err)
	}
	_, err = t.tx.Exec(t.ctx,
		"INSERT INTO fund_entries (ref_kind, ref_id, account, delta) VALUES ($1, $2, $3, $4)",
		refKind, refID, addr, delta)
	if err != nil {
		return fmt.Errorf("ledger entry failed: %w", err)
	}
	return nil
}

func (t *pgTx) EntriesOf(addr domain.Address) ([]domain.Entry, error) {
	if _, err := t.Account(addr); err != nil {
		return nil, err
	}

	rows, err := t.tx.Query(t.ctx,
		"SELECT id, ref_kind, ref_id, account, delta, created_at FROM fund_entries WHERE account = $1 ORDER BY id",
		addr)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.Entry
	for rows.Next() {
		var e domain.Entry
		if err := rows.Scan(&e.ID, &e.RefKind, &e.RefID, &e.Account, &e.Delta, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (t *pgTx) NextAssetID() (int64, error) {
	var id int64
	err := t.tx.QueryRow(t.ctx, "SELECT nextval('asset_ids')").Scan(&id)
	return id, err
}

func (t *pgTx) Asset(id int64) (*domain.Asset, error) {
	var a domain.Asset
	err := t.tx.QueryRow(t.ctx,
		"SELECT id, holder, metadata_uri, created_at FROM assets WHERE id = $1", id).
		Scan(&a.ID, &a.Holder, &a.MetadataURI, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrUnknownAsset
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (t *pgTx) PutAsset(a *domain.Asset) error {
	created := a.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	_, err := t.tx.Exec(t.ctx,
		`INSERT INTO assets (id, holder, metadata_uri, created_at) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (id) DO UPDATE SET holder = EXCLUDED.holder, metadata_uri = EXCLUDED.metadata_uri`,
		a.ID, a.Holder, a.MetadataURI, created)
	if err != nil {
		return fmt.Errorf("asset upsert failed: %w", err)
	}
	return nil
}

func (t *pgTx) DeleteAsset(id int64) error {
	tag, err := t.tx.Exec(t.ctx, "DELETE FROM assets WHERE id = $1", id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUnknownAsset
	}
	return nil
}

func (t *pgTx) NextListingID() (int64, error) {
	var id int64
	err := t.tx.QueryRow(t.ctx, "SELECT nextval('listing_ids')").Scan(&id)
	return id, err
}

func (t *pgTx) PutListing(l *domain.Listing) error {
	created := l.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	_, err := t.tx.Exec(t.ctx,
		`INSERT INTO listings (id, token_id, seller, custodian, price, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (id) DO UPDATE SET status = EXCLUDED.status, custodian = EXCLUDED.custodian`,
		l.ID, l.TokenID, l.Seller, l.Custodian, l.Price, l.Status, created)
	if err != nil {
		return fmt.Errorf("listing upsert failed: %w", err)
	}
	return nil
}

const listingCols = "id, token_id, seller, custodian, price, status, created_at"

func scanListing(row pgx.Row) (*domain.Listing, error) {
	var l domain.Listing
	err := row.Scan(&l.ID, &l.TokenID, &l.Seller, &l.Custodian, &l.Price, &l.Status, &l.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (t *pgTx) LatestListingOf(tokenID int64) (*domain.Listing, error) {
	l, err := scanListing(t.tx.QueryRow(t.ctx,
		"SELECT "+listingCols+" FROM listings WHERE token_id = $1 ORDER BY id DESC LIMIT 1", tokenID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return l, err
}

func (t *pgTx) ActiveListingOf(tokenID int64) (*domain.Listing, error) {
	l, err := scanListing(t.tx.QueryRow(t.ctx,
		"SELECT "+listingCols+" FROM listings WHERE token_id = $1 AND status = $2 FOR UPDATE",
		tokenID, domain.StatusActive))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return l, err
}

func (t *pgTx) ListingsBySeller(seller domain.Address) ([]domain.Listing, error) {
	return t.queryListings("SELECT "+listingCols+" FROM listings WHERE seller = $1 ORDER BY id", seller)
}

func (t *pgTx) AllListings() ([]domain.Listing, error) {
	return t.queryListings("SELECT " + listingCols + " FROM listings ORDER BY id")
}

func (t *pgTx) queryListings(sql string, args ...any) ([]domain.Listing, error) {
	rows, err := t.tx.Query(t.ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Listing
	for rows.Next() {
		var l domain.Listing
		if err := rows.Scan(&l.ID, &l.TokenID, &l.Seller, &l.Custodian, &l.Price, &l.Status, &l.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (t *pgTx) PutOffer(o *domain.Offer) error {
	created := o.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	_, err := t.tx.Exec(t.ctx,
		`INSERT INTO offers (token_id, bidder, amount, state, created_at) VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (token_id) DO UPDATE
		 SET bidder = EXCLUDED.bidder, amount = EXCLUDED.amount, state = EXCLUDED.state, created_at = EXCLUDED.created_at`,
		o.TokenID, o.Bidder, o.Amount, o.State, created)
	if err != nil {
		return fmt.Errorf("offer upsert failed: %w", err)
	}
	return nil
}

func (t *pgTx) OpenOfferOf(tokenID int64) (*domain.Offer, error) {
	var o domain.Offer
	err := t.tx.QueryRow(t.ctx,
		"SELECT token_id, bidder, amount, state, created_at FROM offers WHERE token_id = $1 AND state = $2 FOR UPDATE",
		tokenID, domain.OfferOpen).
		Scan(&o.TokenID, &o.Bidder, &o.Amount, &o.State, &o.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNoSuchOffer
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (t *pgTx) FeeConfig() (*domain.FeeConfig, error) {
	var fc domain.FeeConfig
	err := t.tx.QueryRow(t.ctx,
		"SELECT listing_fee, operator FROM fee_config WHERE id = 1").
		Scan(&fc.ListingFee, &fc.Operator)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &fc, nil
}

func (t *pgTx) SetFeeConfig(fc *domain.FeeConfig) error {
	_, err := t.tx.Exec(t.ctx,
		`INSERT INTO fee_config (id, listing_fee, operator) VALUES (1, $1, $2)
		 ON CONFLICT (id) DO UPDATE SET listing_fee = EXCLUDED.listing_fee, operator = EXCLUDED.operator`,
		fc.ListingFee, fc.Operator)
	if err != nil {
		return fmt.Errorf("fee config upsert failed: %w", err)
	}
	return nil
}
