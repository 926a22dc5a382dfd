package marketplace

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

const listingColumns = `
	id, borrower_id, purpose, principal_requested, term_months,
	requested_rate, funding_goal, amount_funded, monthly_payment,
	status, funding_deadline, created_at, updated_at`

const offerColumns = `
	id, listing_id, lender_id, offer_amount, offered_rate,
	status, expires_at, created_at, updated_at`

func (r *Repository) BeginTx(ctx context.Context) (*sqlx.Tx, error) {
	return r.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
}

func (r *Repository) CreateListing(ctx context.Context, l *Listing) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO loan_listings (
			id, borrower_id, purpose, principal_requested, term_months,
			requested_rate, funding_goal, amount_funded, monthly_payment,
			status, funding_deadline, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, l.ID, l.BorrowerID, l.Purpose, l.PrincipalRequested, l.TermMonths,
		l.RequestedRate, l.FundingGoal, l.AmountFunded, l.MonthlyPayment,
		l.Status, l.FundingDeadline, l.CreatedAt, l.UpdatedAt)
	return err
}

func (r *Repository) GetListing(ctx context.Context, id uuid.UUID) (*Listing, error) {
	var l Listing
	err := r.db.GetContext(ctx, &l, `SELECT `+listingColumns+` FROM loan_listings WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrListingNotFound
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// GetListingForUpdate locks the listing row; the funding-goal check and
// increment depend on this lock.
func (r *Repository) GetListingForUpdate(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*Listing, error) {
	var l Listing
	err := tx.GetContext(ctx, &l, `SELECT `+listingColumns+` FROM loan_listings WHERE id = $1 FOR UPDATE`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrListingNotFound
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// Browse returns marketplace listings, newest first.
func (r *Repository) Browse(ctx context.Context, f BrowseFilters) ([]Listing, int, error) {
	where := "WHERE status = $1"
	args := []interface{}{f.Status}

	if f.MinAmount != nil {
		args = append(args, *f.MinAmount)
		where += fmt.Sprintf(" AND principal_requested >= $%d", len(args))
	}
	if f.MaxAmount != nil {
		args = append(args, *f.MaxAmount)
		where += fmt.Sprintf(" AND principal_requested <= $%d", len(args))
	}
	if f.MaxTerm != nil {
		args = append(args, *f.MaxTerm)
		where += fmt.Sprintf(" AND term_months <= $%d", len(args))
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM loan_listings "+where, args...); err != nil {
		return nil, 0, err
	}

	args = append(args, f.Limit, (f.Page-1)*f.Limit)
	query := fmt.Sprintf(`
		SELECT `+listingColumns+`
		FROM loan_listings
		%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d
	`, where, len(args)-1, len(args))

	listings := []Listing{}
	if err := r.db.SelectContext(ctx, &listings, query, args...); err != nil {
		return nil, 0, err
	}
	return listings, total, nil
}

func (r *Repository) ListByBorrower(ctx context.Context, borrowerID uuid.UUID, limit, offset int) ([]Listing, error) {
	listings := []Listing{}
	err := r.db.SelectContext(ctx, &listings, `
		SELECT `+listingColumns+`
		FROM loan_listings
		WHERE borrower_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, borrowerID, limit, offset)
	return listings, err
}

// UpdateListingFundingTx writes the new funded amount and status under
// the row lock taken by GetListingForUpdate.
func (r *Repository) UpdateListingFundingTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, amountFunded decimal.Decimal, status ListingStatus) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE loan_listings
		SET amount_funded = $1, status = $2, updated_at = now()
		WHERE id = $3
	`, amountFunded, status, id)
	return err
}

func (r *Repository) UpdateListingStatus(ctx context.Context, id uuid.UUID, status ListingStatus) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE loan_listings SET status = $1, updated_at = now() WHERE id = $2
	`, status, id)
	return err
}

// ListExpirableListings returns fundable listings past their deadline.
func (r *Repository) ListExpirableListings(ctx context.Context, now time.Time, limit int) ([]Listing, error) {
	listings := []Listing{}
	err := r.db.SelectContext(ctx, &listings, `
		SELECT `+listingColumns+`
		FROM loan_listings
		WHERE status IN ('active', 'partially_funded') AND funding_deadline < $1
		ORDER BY funding_deadline
		LIMIT $2
	`, now, limit)
	return listings, err
}

func (r *Repository) CreateOffer(ctx context.Context, o *Offer) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO funding_offers (
			id, listing_id, lender_id, offer_amount, offered_rate,
			status, expires_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, o.ID, o.ListingID, o.LenderID, o.OfferAmount, o.OfferedRate,
		o.Status, o.ExpiresAt, o.CreatedAt, o.UpdatedAt)
	return err
}

func (r *Repository) GetOffer(ctx context.Context, id uuid.UUID) (*Offer, error) {
	var o Offer
	err := r.db.GetContext(ctx, &o, `SELECT `+offerColumns+` FROM funding_offers WHERE id = $1`, id)
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
	err := tx.GetContext(ctx, &o, `SELECT `+offerColumns+` FROM funding_offers WHERE id = $1 FOR UPDATE`, id)
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
		FROM funding_offers
		WHERE listing_id = $1
		ORDER BY created_at DESC
	`, listingID)
	return offers, err
}

func (r *Repository) ListOffersByLender(ctx context.Context, lenderID uuid.UUID, limit, offset int) ([]Offer, error) {
	offers := []Offer{}
	err := r.db.SelectContext(ctx, &offers, `
		SELECT `+offerColumns+`
		FROM funding_offers
		WHERE lender_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, lenderID, limit, offset)
	return offers, err
}

func (r *Repository) UpdateOfferStatus(ctx context.Context, id uuid.UUID, status OfferStatus) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE funding_offers SET status = $1, updated_at = now() WHERE id = $2
	`, status, id)
	return err
}

func (r *Repository) UpdateOfferStatusTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, status OfferStatus) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE funding_offers SET status = $1, updated_at = now() WHERE id = $2
	`, status, id)
	return err
}

// RejectPendingOffersTx rejects all still-pending offers on a listing,
// used once the funding goal is reached.
func (r *Repository) RejectPendingOffersTx(ctx context.Context, tx *sqlx.Tx, listingID uuid.UUID) ([]Offer, error) {
	offers := []Offer{}
	err := tx.SelectContext(ctx, &offers, `
		UPDATE funding_offers
		SET status = 'rejected', updated_at = now()
		WHERE listing_id = $1 AND status = 'pending'
		RETURNING `+offerColumns+`
	`, listingID)
	return offers, err
}

// ExpireOffers batch-transitions pending offers past their deadline.
func (r *Repository) ExpireOffers(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE funding_offers
		SET status = 'expired', updated_at = now()
		WHERE status = 'pending' AND expires_at < $1
	`, now)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
