package coverage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

const offerColumns = `
	id, installment_id, loan_id, lender_id, original_amount_due, days_late,
	coverage_percent, offer_amount_credits, status, expires_at,
	responded_at, created_at, updated_at`

func (r *Repository) BeginTx(ctx context.Context) (*sqlx.Tx, error) {
	return r.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
}

// CreateOffer inserts a pending offer. A partial unique index on
// (installment_id, lender_id) WHERE status = 'pending' makes creation
// idempotent under concurrent sweeps.
func (r *Repository) CreateOffer(ctx context.Context, o *Offer) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO coverage_offers (
			id, installment_id, loan_id, lender_id, original_amount_due,
			days_late, coverage_percent, offer_amount_credits, status,
			expires_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, o.ID, o.InstallmentID, o.LoanID, o.LenderID, o.OriginalAmountDue,
		o.DaysLate, o.CoveragePercent, o.OfferAmountCredits, o.Status,
		o.ExpiresAt, o.CreatedAt, o.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrOfferAlreadyExists
		}
		return err
	}
	return nil
}

func (r *Repository) GetOffer(ctx context.Context, id uuid.UUID) (*Offer, error) {
	var o Offer
	err := r.db.GetContext(ctx, &o, `SELECT `+offerColumns+` FROM coverage_offers WHERE id = $1`, id)
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
	err := tx.GetContext(ctx, &o, `SELECT `+offerColumns+` FROM coverage_offers WHERE id = $1 FOR UPDATE`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOfferNotFound
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *Repository) ListByLender(ctx context.Context, lenderID uuid.UUID, limit, offset int) ([]Offer, error) {
	offers := []Offer{}
	err := r.db.SelectContext(ctx, &offers, `
		SELECT `+offerColumns+`
		FROM coverage_offers
		WHERE lender_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, lenderID, limit, offset)
	return offers, err
}

func (r *Repository) UpdateOfferStatus(ctx context.Context, id uuid.UUID, status OfferStatus, respondedAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE coverage_offers SET status = $1, responded_at = $2, updated_at = now() WHERE id = $3
	`, status, respondedAt, id)
	return err
}

func (r *Repository) UpdateOfferStatusTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, status OfferStatus, respondedAt time.Time) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE coverage_offers SET status = $1, responded_at = $2, updated_at = now() WHERE id = $3
	`, status, respondedAt, id)
	return err
}

// ExpireOldOffers batch-transitions pending offers past their deadline.
func (r *Repository) ExpireOldOffers(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE coverage_offers
		SET status = 'expired', updated_at = now()
		WHERE status = 'pending' AND expires_at < $1
	`, now)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// LateShare is one (installment, lender) pair needing a coverage offer.
type LateShare struct {
	InstallmentID uuid.UUID       `db:"installment_id"`
	LoanID        uuid.UUID       `db:"loan_id"`
	BorrowerID    uuid.UUID       `db:"borrower_id"`
	LenderID      uuid.UUID       `db:"lender_id"`
	AmountDue     decimal.Decimal `db:"amount_due"`
	SharePercent  decimal.Decimal `db:"share_percentage"`
	DaysLate      int             `db:"days_late"`
}

// ListLateSharesNeedingOffers finds late installments whose holding
// lenders have no pending or accepted coverage offer yet.
func (r *Repository) ListLateSharesNeedingOffers(ctx context.Context, limit int) ([]LateShare, error) {
	shares := []LateShare{}
	err := r.db.SelectContext(ctx, &shares, `
		SELECT i.id AS installment_id, i.loan_id, i.borrower_id,
		       h.lender_id, i.amount_due, h.share_percentage, i.days_late
		FROM installments i
		JOIN holdings h ON h.loan_id = i.loan_id AND h.status = 'active'
		WHERE i.status = 'late'
		  AND NOT EXISTS (
			SELECT 1 FROM coverage_offers o
			WHERE o.installment_id = i.id
			  AND o.lender_id = h.lender_id
			  AND o.status IN ('pending', 'accepted')
		  )
		ORDER BY i.due_date
		LIMIT $1
	`, limit)
	return shares, err
}

// ListAcceptedByInstallmentTx returns the accepted offers on an
// installment. Accepted offers never change again, so no row locks.
func (r *Repository) ListAcceptedByInstallmentTx(ctx context.Context, tx *sqlx.Tx, installmentID uuid.UUID) ([]Offer, error) {
	offers := []Offer{}
	err := tx.SelectContext(ctx, &offers, `
		SELECT `+offerColumns+`
		FROM coverage_offers
		WHERE installment_id = $1 AND status = 'accepted'
	`, installmentID)
	return offers, err
}

// UpsertReceivableTx accumulates the borrower's preserved obligation
// for a covered installment.
func (r *Repository) UpsertReceivableTx(ctx context.Context, tx *sqlx.Tx, installmentID, loanID, borrowerID uuid.UUID, amount decimal.Decimal) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO coverage_receivables (
			id, installment_id, loan_id, borrower_id, amount,
			amount_recovered, status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, 0, 'outstanding', $6, $6)
		ON CONFLICT (installment_id) DO UPDATE
		SET amount = coverage_receivables.amount + EXCLUDED.amount,
		    updated_at = now()
	`, uuid.New(), installmentID, loanID, borrowerID, amount, time.Now())
	return err
}

// SettleReceivableTx books recovered borrower cash against the
// receivable, marking it settled once fully recovered.
func (r *Repository) SettleReceivableTx(ctx context.Context, tx *sqlx.Tx, installmentID uuid.UUID, amount decimal.Decimal) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE coverage_receivables
		SET amount_recovered = amount_recovered + $1,
		    status = CASE WHEN amount_recovered + $1 >= amount THEN 'settled' ELSE 'outstanding' END,
		    updated_at = now()
		WHERE installment_id = $2
	`, amount, installmentID)
	return err
}

func (r *Repository) GetReceivable(ctx context.Context, installmentID uuid.UUID) (*Receivable, error) {
	var rec Receivable
	err := r.db.GetContext(ctx, &rec, `
		SELECT id, installment_id, loan_id, borrower_id, amount,
		       amount_recovered, status, created_at, updated_at
		FROM coverage_receivables
		WHERE installment_id = $1
	`, installmentID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrReceivableNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}
