package repayment

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

const installmentColumns = `
	id, loan_id, borrower_id, installment_number, due_date, amount_due,
	paid_amount, late_fee, days_late, status, paid_at, created_at, updated_at`

func (r *Repository) BeginTx(ctx context.Context) (*sqlx.Tx, error) {
	return r.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
}

// CreateScheduleTx inserts all installments of a loan in one batch.
func (r *Repository) CreateScheduleTx(ctx context.Context, tx *sqlx.Tx, installments []Installment) error {
	for i := range installments {
		inst := &installments[i]
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO installments (
				id, loan_id, borrower_id, installment_number, due_date,
				amount_due, paid_amount, late_fee, days_late, status,
				created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		`, inst.ID, inst.LoanID, inst.BorrowerID, inst.InstallmentNumber, inst.DueDate,
			inst.AmountDue, inst.PaidAmount, inst.LateFee, inst.DaysLate, inst.Status,
			inst.CreatedAt, inst.UpdatedAt); err != nil {
			return err
		}
	}
	return nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Installment, error) {
	var inst Installment
	err := r.db.GetContext(ctx, &inst, `SELECT `+installmentColumns+` FROM installments WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInstallmentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &inst, nil
}

func (r *Repository) GetByIDForUpdate(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*Installment, error) {
	var inst Installment
	err := tx.GetContext(ctx, &inst, `SELECT `+installmentColumns+` FROM installments WHERE id = $1 FOR UPDATE`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInstallmentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &inst, nil
}

func (r *Repository) ListByLoan(ctx context.Context, loanID uuid.UUID) ([]Installment, error) {
	installments := []Installment{}
	err := r.db.SelectContext(ctx, &installments, `
		SELECT `+installmentColumns+`
		FROM installments
		WHERE loan_id = $1
		ORDER BY installment_number
	`, loanID)
	return installments, err
}

func (r *Repository) ListByBorrower(ctx context.Context, borrowerID uuid.UUID, limit, offset int) ([]Installment, error) {
	installments := []Installment{}
	err := r.db.SelectContext(ctx, &installments, `
		SELECT `+installmentColumns+`
		FROM installments
		WHERE borrower_id = $1
		ORDER BY due_date
		LIMIT $2 OFFSET $3
	`, borrowerID, limit, offset)
	return installments, err
}

// RecordPaymentTx books borrower cash against the installment.
func (r *Repository) RecordPaymentTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, paidAmount decimal.Decimal, status InstallmentStatus, paidAt time.Time) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE installments
		SET paid_amount = paid_amount + $1, status = $2, paid_at = $3, updated_at = now()
		WHERE id = $4
	`, paidAmount, status, paidAt, id)
	return err
}

// AddCoverageCreditTx books platform coverage credit against the
// installment and flags it covered.
func (r *Repository) AddCoverageCreditTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, credits decimal.Decimal) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE installments
		SET paid_amount = paid_amount + $1, status = $2, updated_at = now()
		WHERE id = $3
	`, credits, InstallmentCovered, id)
	return err
}

// CountUnsettledTx counts installments of a loan still awaiting cash or
// coverage, excluding the given installment.
func (r *Repository) CountUnsettledTx(ctx context.Context, tx *sqlx.Tx, loanID, exceptID uuid.UUID) (int, error) {
	var count int
	err := tx.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM installments
		WHERE loan_id = $1 AND id <> $2 AND status IN ('pending', 'late', 'covered_by_platform')
	`, loanID, exceptID)
	return count, err
}

// MarkLate transitions due pending installments to late, stamping the
// late fee once, and refreshes days_late on everything already late.
// Returns how many installments newly went late.
func (r *Repository) MarkLate(ctx context.Context, now time.Time, feeFor func(inst *Installment) decimal.Decimal) ([]Installment, error) {
	due := []Installment{}
	err := r.db.SelectContext(ctx, &due, `
		SELECT `+installmentColumns+`
		FROM installments
		WHERE status = 'pending' AND due_date < $1
		ORDER BY due_date
	`, now)
	if err != nil {
		return nil, err
	}

	newlyLate := make([]Installment, 0, len(due))
	for i := range due {
		inst := &due[i]
		daysLate := int(now.Sub(inst.DueDate).Hours() / 24)
		fee := feeFor(inst)
		if _, err := r.db.ExecContext(ctx, `
			UPDATE installments
			SET status = 'late', late_fee = $1, days_late = $2, updated_at = now()
			WHERE id = $3 AND status = 'pending'
		`, fee, daysLate, inst.ID); err != nil {
			return newlyLate, err
		}
		inst.Status = InstallmentLate
		inst.LateFee = fee
		inst.DaysLate = daysLate
		newlyLate = append(newlyLate, *inst)
	}

	_, err = r.db.ExecContext(ctx, `
		UPDATE installments
		SET days_late = GREATEST(0, EXTRACT(DAY FROM $1::timestamptz - due_date))::int, updated_at = now()
		WHERE status = 'late'
	`, now)
	return newlyLate, err
}

// SumOutstandingByLoan is the borrower's remaining obligation across
// unpaid installments, late fees included.
func (r *Repository) SumOutstandingByLoan(ctx context.Context, loanID uuid.UUID) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := r.db.GetContext(ctx, &sum, `
		SELECT COALESCE(SUM(amount_due + late_fee - paid_amount), 0)
		FROM installments
		WHERE loan_id = $1 AND status IN ('pending', 'late', 'covered_by_platform')
	`, loanID)
	return sum, err
}
