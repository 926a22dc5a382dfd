package directloan

import (
	"context"
	"database/sql"
	"errors"
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

const loanColumns = `
	id, user_id, amount, duration_days, score, fee_percent, fee,
	total_repayment, apr, amount_paid, status, offer_expires_at,
	signature_name, signature_ip, signed_at, disbursed_at, due_date,
	created_at, updated_at`

func (r *Repository) BeginTx(ctx context.Context) (*sqlx.Tx, error) {
	return r.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
}

func (r *Repository) Create(ctx context.Context, l *Loan) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO direct_loans (
			id, user_id, amount, duration_days, score, fee_percent, fee,
			total_repayment, apr, amount_paid, status, offer_expires_at,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`, l.ID, l.UserID, l.Amount, l.DurationDays, l.Score, l.FeePercent, l.Fee,
		l.TotalRepayment, l.APR, l.AmountPaid, l.Status, l.OfferExpiresAt,
		l.CreatedAt, l.UpdatedAt)
	return err
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Loan, error) {
	var l Loan
	err := r.db.GetContext(ctx, &l, `SELECT `+loanColumns+` FROM direct_loans WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrLoanNotFound
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *Repository) GetByIDForUpdate(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*Loan, error) {
	var l Loan
	err := tx.GetContext(ctx, &l, `SELECT `+loanColumns+` FROM direct_loans WHERE id = $1 FOR UPDATE`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrLoanNotFound
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Loan, error) {
	loans := []Loan{}
	err := r.db.SelectContext(ctx, &loans, `
		SELECT `+loanColumns+`
		FROM direct_loans
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	return loans, err
}

// Sign records the e-signature artifact and binds the loan.
func (r *Repository) Sign(ctx context.Context, id uuid.UUID, name, ip string, signedAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE direct_loans
		SET status = $1, signature_name = $2, signature_ip = $3, signed_at = $4, updated_at = now()
		WHERE id = $5
	`, StatusSigned, name, ip, signedAt, id)
	return err
}

// DisburseTx moves the loan to disbursed and starts the repayment clock.
func (r *Repository) DisburseTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, disbursedAt, dueDate time.Time) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE direct_loans
		SET status = $1, disbursed_at = $2, due_date = $3, updated_at = now()
		WHERE id = $4
	`, StatusDisbursed, disbursedAt, dueDate, id)
	return err
}

// RecordRepaymentTx books a repayment and transitions to repaid when
// the total is met.
func (r *Repository) RecordRepaymentTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, amount decimal.Decimal, repaid bool) error {
	status := ""
	if repaid {
		status = string(StatusRepaid)
	}
	_, err := tx.ExecContext(ctx, `
		UPDATE direct_loans
		SET amount_paid = amount_paid + $1,
		    status = COALESCE(NULLIF($2, ''), status),
		    updated_at = now()
		WHERE id = $3
	`, amount, status, id)
	return err
}

func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE direct_loans SET status = $1, updated_at = now() WHERE id = $2
	`, status, id)
	return err
}

// ExpireOffers lapses unsigned offers past their deadline.
func (r *Repository) ExpireOffers(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE direct_loans
		SET status = 'expired', updated_at = now()
		WHERE status = 'offered' AND offer_expires_at < $1
	`, now)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// MarkLate flags disbursed loans past due.
func (r *Repository) MarkLate(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE direct_loans
		SET status = 'late', updated_at = now()
		WHERE status = 'disbursed' AND due_date < $1
	`, now)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// MarkDefaulted flags late loans past the grace window.
func (r *Repository) MarkDefaulted(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE direct_loans
		SET status = 'defaulted', updated_at = now()
		WHERE status = 'late' AND due_date < $1
	`, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
