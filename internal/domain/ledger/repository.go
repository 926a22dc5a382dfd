package ledger

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

func (r *Repository) EnsureWallet(ctx context.Context, userID uuid.UUID, walletType WalletType) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO wallets (user_id, wallet_type, balance)
		VALUES ($1, $2, 0)
		ON CONFLICT (user_id, wallet_type) DO NOTHING
	`, userID, walletType)
	return err
}

func (r *Repository) GetBalance(ctx context.Context, userID uuid.UUID, walletType WalletType) (decimal.Decimal, error) {
	if err := r.EnsureWallet(ctx, userID, walletType); err != nil {
		return decimal.Zero, err
	}

	var balance decimal.Decimal
	err := r.db.GetContext(ctx, &balance, `
		SELECT balance FROM wallets WHERE user_id = $1 AND wallet_type = $2
	`, userID, walletType)
	return balance, err
}

// ListEntries returns a page of a user's ledger history, newest first.
func (r *Repository) ListEntries(ctx context.Context, userID uuid.UUID, walletType WalletType, limit, offset int) ([]Entry, error) {
	entries := []Entry{}
	err := r.db.SelectContext(ctx, &entries, `
		SELECT id, user_id, wallet_type, amount, type, reference_id, notes, created_at
		FROM ledger_entries
		WHERE user_id = $1 AND wallet_type = $2
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`, userID, walletType, limit, offset)
	return entries, err
}

// SumEntries returns the sum of all entry amounts for one wallet.
// Used by the balance audit: it must always equal the cached balance.
func (r *Repository) SumEntries(ctx context.Context, userID uuid.UUID, walletType WalletType) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := r.db.GetContext(ctx, &sum, `
		SELECT COALESCE(SUM(amount), 0)
		FROM ledger_entries
		WHERE user_id = $1 AND wallet_type = $2
	`, userID, walletType)
	return sum, err
}

func (r *Repository) BeginTx(ctx context.Context) (*sqlx.Tx, error) {
	return r.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
}

func (r *Repository) lockWallet(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID, walletType WalletType) (decimal.Decimal, error) {
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO wallets (user_id, wallet_type, balance)
		VALUES ($1, $2, 0)
		ON CONFLICT (user_id, wallet_type) DO NOTHING
	`, userID, walletType); err != nil {
		return decimal.Zero, err
	}

	var balance decimal.Decimal
	err := tx.GetContext(ctx, &balance, `
		SELECT balance FROM wallets WHERE user_id = $1 AND wallet_type = $2 FOR UPDATE
	`, userID, walletType)
	return balance, err
}

func (r *Repository) getEntryAmountByRef(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID, walletType WalletType, entryType EntryType, referenceID string) (decimal.Decimal, bool, error) {
	if referenceID == "" {
		return decimal.Zero, false, nil
	}

	var amount decimal.Decimal
	err := tx.GetContext(ctx, &amount, `
		SELECT amount
		FROM ledger_entries
		WHERE user_id = $1 AND wallet_type = $2 AND type = $3 AND reference_id = $4
		LIMIT 1
	`, userID, walletType, string(entryType), referenceID)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, false, nil
	}
	if err != nil {
		return decimal.Zero, false, err
	}
	return amount, true, nil
}

func (r *Repository) updateBalance(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID, walletType WalletType, balance decimal.Decimal) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE wallets SET balance = $1, updated_at = now()
		WHERE user_id = $2 AND wallet_type = $3
	`, balance, userID, walletType)
	return err
}

func (r *Repository) insertEntry(ctx context.Context, tx *sqlx.Tx, e *Entry) error {
	var ref interface{}
	if e.ReferenceID != nil && *e.ReferenceID != "" {
		ref = *e.ReferenceID
	}

	_, err := tx.ExecContext(ctx, `
		INSERT INTO ledger_entries (id, user_id, wallet_type, amount, type, reference_id, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, e.ID, e.UserID, e.WalletType, e.Amount, string(e.Type), ref, e.Notes, e.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrDuplicateReference
		}
		return err
	}
	return nil
}

// ApplyTx mutates a wallet inside an existing transaction: locks the
// wallet row, checks reference idempotency, rejects overdrafts, updates
// the cached balance and appends the ledger entry. Amount is signed.
func (r *Repository) ApplyTx(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID, walletType WalletType, amount decimal.Decimal, entryType EntryType, referenceID, notes string) (decimal.Decimal, error) {
	balance, err := r.lockWallet(ctx, tx, userID, walletType)
	if err != nil {
		return decimal.Zero, err
	}

	existingAmount, exists, err := r.getEntryAmountByRef(ctx, tx, userID, walletType, entryType, referenceID)
	if err != nil {
		return decimal.Zero, err
	}
	if exists {
		if !existingAmount.Equal(amount) {
			return decimal.Zero, ErrReferenceConflict
		}
		// Idempotent replay of an applied mutation.
		return balance, nil
	}

	nextBalance := balance.Add(amount)
	if nextBalance.IsNegative() {
		return decimal.Zero, ErrInsufficientFunds
	}

	if err := r.updateBalance(ctx, tx, userID, walletType, nextBalance); err != nil {
		return decimal.Zero, err
	}

	entry := &Entry{
		ID:         uuid.New(),
		UserID:     userID,
		WalletType: walletType,
		Amount:     amount,
		Type:       entryType,
		Notes:      notes,
		CreatedAt:  time.Now(),
	}
	if referenceID != "" {
		entry.ReferenceID = &referenceID
	}

	if err := r.insertEntry(ctx, tx, entry); err != nil {
		if errors.Is(err, ErrDuplicateReference) {
			existingAmount, exists, checkErr := r.getEntryAmountByRef(ctx, tx, userID, walletType, entryType, referenceID)
			if checkErr != nil {
				return decimal.Zero, checkErr
			}
			if !exists || !existingAmount.Equal(amount) {
				return decimal.Zero, ErrReferenceConflict
			}
			return balance, nil
		}
		return decimal.Zero, err
	}

	return nextBalance, nil
}

// apply wraps ApplyTx in its own transaction.
func (r *Repository) apply(ctx context.Context, userID uuid.UUID, walletType WalletType, amount decimal.Decimal, entryType EntryType, referenceID, notes string) (decimal.Decimal, error) {
	tx, err := r.BeginTx(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	defer tx.Rollback()

	balance, err := r.ApplyTx(ctx, tx, userID, walletType, amount, entryType, referenceID, notes)
	if err != nil {
		return decimal.Zero, err
	}

	if err := tx.Commit(); err != nil {
		return decimal.Zero, err
	}
	return balance, nil
}

func (r *Repository) Credit(ctx context.Context, userID uuid.UUID, walletType WalletType, amount decimal.Decimal, entryType EntryType, referenceID, notes string) (decimal.Decimal, error) {
	return r.apply(ctx, userID, walletType, amount, entryType, referenceID, notes)
}

func (r *Repository) Debit(ctx context.Context, userID uuid.UUID, walletType WalletType, amount decimal.Decimal, entryType EntryType, referenceID, notes string) (decimal.Decimal, error) {
	return r.apply(ctx, userID, walletType, amount.Neg(), entryType, referenceID, notes)
}
