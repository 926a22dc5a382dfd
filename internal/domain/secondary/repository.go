package secondary

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

const listingColumns = `
	id, holding_id, seller_id, asking_price, status,
	listing_expiry, created_at, updated_at`

const offerColumns = `
	id, listing_id, buyer_id, offer_price, status,
	expires_at, created_at, updated_at`

func (r *Repository) BeginTx(ctx context.Context) (*sqlx.Tx, error) {
	return r.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
}

func (r *Repository) CreateListingTx(ctx context.Context, tx *sqlx.Tx, l *Listing) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO secondary_listings (
			id, holding_id, seller_id, asking_price, status,
			listing_expiry, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, l.ID, l.HoldingID, l.SellerID, l.AskingPrice, l.Status,
		l.ListingExpiry, l.CreatedAt, l.UpdatedAt)
	return err
}

func (r *Repository) GetListing(ctx context.Context, id uuid.UUID) (*Listing, error) {
	var l Listing
	err := r.db.GetContext(ctx, &l, `SELECT `+listingColumns+` FROM secondary_listings WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrListingNotFound
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// GetListingForUpdate locks the listing row, serializing competing
// purchase-offer accepts.
func (r *Repository) GetListingForUpdate(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*Listing, error) {
	var l Listing
	err := tx.GetContext(ctx, &l, `SELECT `+listingColumns+` FROM secondary_listings WHERE id = $1 FOR UPDATE`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrListingNotFound
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// HasActiveListingForHolding reports whether the holding already has an
// active resale listing.
func (r *Repository) HasActiveListingForHolding(ctx context.Context, holdingID uuid.UUID) (bool, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM secondary_listings WHERE holding_id = $1 AND status = 'active'
	`, holdingID)
	return count > 0, err
}

// Browse returns active resale listings, newest first.
func (r *Repository) Browse(ctx context.Context, limit, offset int) ([]Listing, error) {
	listings := []Listing{}
	err := r.db.SelectContext(ctx, &listings, `
		SELECT `+listingColumns+`
		FROM secondary_listings
		WHERE status = 'active'
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	return listings, err
}

func (r *Repository) ListBySeller(ctx context.Context, sellerID uuid.UUID, limit, offset int) ([]Listing, error) {
	listings := []Listing{}
	err := r.db.SelectContext(ctx, &listings, `
		SELECT `+listingColumns+`
		FROM secondary_listings
		WHERE seller_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, sellerID, limit, offset)
	return listings, err
}

func (r *Repository) UpdateListingStatusTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, status ListingStatus) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE secondary_listings SET status = $1, updated_at = now() WHERE id = $2
	`, status, id)
	return err
}

// ListExpirableListings returns active listings past their expiry.
func (r *Repository) ListExpirableListings(ctx context.Context, now time.Time, limit int) ([]Listing, error) {
	listings := []Listing{}
	err := r.db.SelectContext(ctx, &listings, `
		SELECT `+listingColumns+`
		FROM secondary_listings
		WHERE status = 'active' AND listing_expiry < $1
		ORDER BY listing_expiry
		LIMIT $2
	`, now, limit)
	return listings, err
}

func (r *Repository) CreateOffer(ctx context.Context, o *Offer) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO purchase_offers (
			id, listing_id, buyer_id, offer_price, status,
			expires_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, o.ID, o.ListingID, o.BuyerID, o.OfferPrice, o.Status,
		o.ExpiresAt, o.CreatedAt, o.UpdatedAt)
	return err
}

func (r *Repository) GetOffer(ctx context.Context, id uuid.UUID) (*Offer, error) {
	var o Offer
	err := r.db.GetContext(ctx, &o, `SELECT `+offerColumns+` FROM purchase_offers WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOfferNotFound
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *Repository) GetOfferForUpdate(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*Offer, error) {
	var o Offer
	err := tx.GetContext(ctx, &o, `SELECT `+offerColumns+` FROM purchase_offers WHERE id = $1 FOR UPDATE`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOfferNotFound
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *Repository) ListOffersByListing(ctx context.Context, listingID uuid.UUID) ([]Offer, error) {
	offers := []Offer{}
	err := r.db.SelectContext(ctx, &offers, `
		SELECT `+offerColumns+`
		FROM purchase_offers
		WHERE listing_id = $1
		ORDER BY created_at DESC
	`, listingID)
	return offers, err
}

func (r *Repository) ListOffersByBuyer(ctx context.Context, buyerID uuid.UUID, limit, offset int) ([]Offer, error) {
	offers := []Offer{}
	err := r.db.SelectContext(ctx, &offers, `
		SELECT `+offerColumns+`
		FROM purchase_offers
		WHERE buyer_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, buyerID, limit, offset)
	return offers, err
}

func (r *Repository) UpdateOfferStatus(ctx context.Context, id uuid.UUID, status OfferStatus) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE purchase_offers SET status = $1, updated_at = now() WHERE id = $2
	`, status, id)
	return err
}

func (r *Repository) UpdateOfferStatusTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, status OfferStatus) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE purchase_offers SET status = $1, updated_at = now() WHERE id = $2
	`, status, id)
	return err
}

// RejectPendingOffersTx rejects competing pending offers once one is
// accepted or the listing closes.
func (r *Repository) RejectPendingOffersTx(ctx context.Context, tx *sqlx.Tx, listingID uuid.UUID, exceptOfferID uuid.UUID) ([]Offer, error) {
	offers := []Offer{}
	err := tx.SelectContext(ctx, &offers, `
		UPDATE purchase_offers
		SET status = 'rejected', updated_at = now()
		WHERE listing_id = $1 AND status = 'pending' AND id <> $2
		RETURNING `+offerColumns+`
	`, listingID, exceptOfferID)
	return offers, err
}

// ExpireOffers batch-transitions pending offers past their deadline.
func (r *Repository) ExpireOffers(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE purchase_offers
		SET status = 'expired', updated_at = now()
		WHERE status = 'pending' AND expires_at < $1
	`, now)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
