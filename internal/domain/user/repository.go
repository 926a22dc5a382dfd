package user

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	var u User
	err := r.db.GetContext(ctx, &u, `
		SELECT id, email, phone, status, completed_loans, created_at, updated_at
		FROM users
		WHERE id = $1
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetScore returns the user's ZimScore record, ErrNoZimScore when the
// user has never been scored.
func (r *Repository) GetScore(ctx context.Context, userID uuid.UUID) (*ZimScore, error) {
	var z ZimScore
	err := r.db.GetContext(ctx, &z, `
		SELECT user_id, score, updated_at
		FROM zimscores
		WHERE user_id = $1
	`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoZimScore
	}
	if err != nil {
		return nil, err
	}
	return &z, nil
}

// IncrementCompletedLoansTx bumps the completed-loan counter inside an
// external transaction. Clearing zero lifts the cold-start restriction.
func (r *Repository) IncrementCompletedLoansTx(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE users SET completed_loans = completed_loans + 1, updated_at = now()
		WHERE id = $1
	`, userID)
	return err
}
