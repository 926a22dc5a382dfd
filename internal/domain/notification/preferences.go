package notification

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Preferences holds a user's delivery toggles. Loan events cover the
// primary and secondary markets, payment events cover installments and
// coverage, account events cover KYC and moderation.
type Preferences struct {
	UserID uuid.UUID `db:"user_id" json:"user_id"`

	InAppEnabled bool `db:"in_app_enabled" json:"in_app_enabled"`
	EmailEnabled bool `db:"email_enabled" json:"email_enabled"`

	LoanEvents    bool `db:"loan_events" json:"loan_events"`
	PaymentEvents bool `db:"payment_events" json:"payment_events"`
	AccountEvents bool `db:"account_events" json:"account_events"`
}

// DefaultPreferences returns the opt-out baseline: everything on.
func DefaultPreferences(userID uuid.UUID) *Preferences {
	return &Preferences{
		UserID:       userID,
		InAppEnabled: true,
		EmailEnabled: true,

		LoanEvents:    true,
		PaymentEvents: true,
		AccountEvents: true,
	}
}

// Allows reports whether in-app delivery is enabled for the type.
func (p *Preferences) Allows(notifType Type) bool {
	if !p.InAppEnabled {
		return false
	}
	switch notifType {
	case TypeLoanApproved, TypeLoanRejected, TypeOfferAccepted, TypeOfferRejected, TypeInvestmentMatured:
		return p.LoanEvents
	case TypePaymentReminder, TypePaymentOverdue, TypeCoverageOffer:
		return p.PaymentEvents
	case TypeKYCApproved, TypeKYCRejected, TypeAccountFlag, TypeAccountRestriction:
		return p.AccountEvents
	default:
		return true
	}
}

// PreferencesRepository handles preferences data access
type PreferencesRepository struct {
	db *sqlx.DB
}

// NewPreferencesRepository creates preferences repository
func NewPreferencesRepository(db *sqlx.DB) *PreferencesRepository {
	return &PreferencesRepository{db: db}
}

// GetByUserID returns the user's preferences, falling back to the
// default set when the user has never saved any.
func (r *PreferencesRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*Preferences, error) {
	var prefs Preferences
	err := r.db.GetContext(ctx, &prefs, `
		SELECT user_id, in_app_enabled, email_enabled, loan_events, payment_events, account_events
		FROM user_notification_preferences
		WHERE user_id = $1
	`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return DefaultPreferences(userID), nil
	}
	if err != nil {
		return nil, err
	}
	return &prefs, nil
}

// Upsert saves the user's preferences.
func (r *PreferencesRepository) Upsert(ctx context.Context, prefs *Preferences) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO user_notification_preferences (
			user_id, in_app_enabled, email_enabled, loan_events, payment_events, account_events, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (user_id) DO UPDATE SET
			in_app_enabled = $2,
			email_enabled = $3,
			loan_events = $4,
			payment_events = $5,
			account_events = $6,
			updated_at = NOW()
	`, prefs.UserID, prefs.InAppEnabled, prefs.EmailEnabled,
		prefs.LoanEvents, prefs.PaymentEvents, prefs.AccountEvents)
	return err
}
