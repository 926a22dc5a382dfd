package holding

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

const holdingColumns = `
	id, lender_id, loan_id, principal_amount, outstanding_balance,
	share_percentage, acquisition_method, status, is_for_sale,
	created_at, updated_at`

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Holding, error) {
	var h Holding
	err := r.db.GetContext(ctx, &h, `SELECT `+holdingColumns+` FROM holdings WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrHoldingNotFound
	}
	if err != nil {
		return nil, err
	}
	return &h, nil
}

// GetByIDForUpdate locks the holding row for the duration of tx.
func (r *Repository) GetByIDForUpdate(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*Holding, error) {
	var h Holding
	err := tx.GetContext(ctx, &h, `SELECT `+holdingColumns+` FROM holdings WHERE id = $1 FOR UPDATE`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrHoldingNotFound
	}
	if err != nil {
		return nil, err
	}
	return &h, nil
}

func (r *Repository) ListByLender(ctx context.Context, lenderID uuid.UUID, limit, offset int) ([]Holding, error) {
	holdings := []Holding{}
	err := r.db.SelectContext(ctx, &holdings, `
		SELECT `+holdingColumns+`
		FROM holdings
		WHERE lender_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, lenderID, limit, offset)
	return holdings, err
}

// ListActiveByLoan returns all active holdings against a loan.
func (r *Repository) ListActiveByLoan(ctx context.Context, loanID uuid.UUID) ([]Holding, error) {
	holdings := []Holding{}
	err := r.db.SelectContext(ctx, &holdings, `
		SELECT `+holdingColumns+`
		FROM holdings
		WHERE loan_id = $1 AND status = 'active'
		ORDER BY created_at
	`, loanID)
	return holdings, err
}

// ListActiveByLoanTx is ListActiveByLoan inside an external transaction,
// with the rows locked for repayment distribution.
func (r *Repository) ListActiveByLoanTx(ctx context.Context, tx *sqlx.Tx, loanID uuid.UUID) ([]Holding, error) {
	holdings := []Holding{}
	err := tx.SelectContext(ctx, &holdings, `
		SELECT `+holdingColumns+`
		FROM holdings
		WHERE loan_id = $1 AND status = 'active'
		ORDER BY created_at
		FOR UPDATE
	`, loanID)
	return holdings, err
}

// CreateTx inserts a holding inside an external transaction.
func (r *Repository) CreateTx(ctx context.Context, tx *sqlx.Tx, h *Holding) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO holdings (
			id, lender_id, loan_id, principal_amount, outstanding_balance,
			share_percentage, acquisition_method, status, is_for_sale,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, h.ID, h.LenderID, h.LoanID, h.PrincipalAmount, h.OutstandingBalance,
		h.SharePercentage, h.AcquisitionMethod, h.Status, h.IsForSale,
		h.CreatedAt, h.UpdatedAt)
	return err
}

// SetForSale flips the resale flag.
func (r *Repository) SetForSale(ctx context.Context, id uuid.UUID, forSale bool) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE holdings SET is_for_sale = $1, updated_at = now() WHERE id = $2
	`, forSale, id)
	return err
}

func (r *Repository) SetForSaleTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, forSale bool) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE holdings SET is_for_sale = $1, updated_at = now() WHERE id = $2
	`, forSale, id)
	return err
}

// TransferOwnershipTx moves the holding to a new lender and appends the
// transfer record, inside an external transaction.
func (r *Repository) TransferOwnershipTx(ctx context.Context, tx *sqlx.Tx, h *Holding, toLenderID uuid.UUID, price decimal.Decimal) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE holdings
		SET lender_id = $1, is_for_sale = false, updated_at = now()
		WHERE id = $2
	`, toLenderID, h.ID)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO holding_transfers (id, holding_id, from_lender_id, to_lender_id, price, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, uuid.New(), h.ID, h.LenderID, toLenderID, price, time.Now())
	return err
}

// ApplyRepaymentTx reduces the outstanding balance inside an external
// transaction, closing the holding when it reaches zero. Returns whether
// the holding closed.
func (r *Repository) ApplyRepaymentTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, principalReduction decimal.Decimal) (bool, error) {
	var outstanding decimal.Decimal
	err := tx.GetContext(ctx, &outstanding, `
		SELECT outstanding_balance FROM holdings WHERE id = $1 FOR UPDATE
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, ErrHoldingNotFound
	}
	if err != nil {
		return false, err
	}

	next := outstanding.Sub(principalReduction)
	if next.IsNegative() {
		next = decimal.Zero
	}

	closed := next.IsZero()
	status := StatusActive
	if closed {
		status = StatusClosed
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE holdings
		SET outstanding_balance = $1, status = $2, is_for_sale = CASE WHEN $2 = 'closed' THEN false ELSE is_for_sale END, updated_at = now()
		WHERE id = $3
	`, next, status, id)
	return closed, err
}

// CountActiveByLoanTx counts still-active holdings for a loan inside tx.
func (r *Repository) CountActiveByLoanTx(ctx context.Context, tx *sqlx.Tx, loanID uuid.UUID) (int, error) {
	var count int
	err := tx.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM holdings WHERE loan_id = $1 AND status = 'active'
	`, loanID)
	return count, err
}

// ListTransfers returns the transfer history for a holding.
func (r *Repository) ListTransfers(ctx context.Context, holdingID uuid.UUID) ([]Transfer, error) {
	transfers := []Transfer{}
	err := r.db.SelectContext(ctx, &transfers, `
		SELECT id, holding_id, from_lender_id, to_lender_id, price, created_at
		FROM holding_transfers
		WHERE holding_id = $1
		ORDER BY created_at DESC
	`, holdingID)
	return transfers, err
}
