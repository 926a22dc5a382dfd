package notification

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Type represents notification type
type Type string

const (
	TypeLoanApproved       Type = "loan_approved"       // Borrower: listing fully funded
	TypeLoanRejected       Type = "loan_rejected"       // Borrower: listing expired unfunded
	TypeOfferAccepted      Type = "offer_accepted"      // Lender: funding offer accepted
	TypeOfferRejected      Type = "offer_rejected"      // Lender: funding offer rejected
	TypeInvestmentMatured  Type = "investment_matured"  // Lender: holding repaid in full
	TypePaymentReminder    Type = "payment_reminder"    // Borrower: installment due soon
	TypePaymentOverdue     Type = "payment_overdue"     // Borrower: installment past due
	TypeCoverageOffer      Type = "coverage_offer"      // Lender: coverage offered on late installment
	TypeReferralBonus      Type = "referral_bonus"      // Both: referral credit awarded
	TypeKYCApproved        Type = "kyc_approved"        // Both: identity verified
	TypeKYCRejected        Type = "kyc_rejected"        // Both: identity check failed
	TypeAccountFlag        Type = "account_flag"        // Both: account flagged for review
	TypeAccountRestriction Type = "account_restriction" // Both: account restricted
)

// Notification represents a user notification
type Notification struct {
	ID        uuid.UUID       `db:"id" json:"id"`
	UserID    uuid.UUID       `db:"user_id" json:"user_id"`
	Type      Type            `db:"type" json:"type"`
	Title     string          `db:"title" json:"title"`
	Body      sql.NullString  `db:"body" json:"body,omitempty"`
	Data      json.RawMessage `db:"data" json:"data,omitempty"`
	IsRead    bool            `db:"is_read" json:"is_read"`
	ReadAt    sql.NullTime    `db:"read_at" json:"read_at,omitempty"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}

// Data links a notification to the entity it is about.
type Data struct {
	ListingID     *uuid.UUID `json:"listing_id,omitempty"`
	OfferID       *uuid.UUID `json:"offer_id,omitempty"`
	HoldingID     *uuid.UUID `json:"holding_id,omitempty"`
	InstallmentID *uuid.UUID `json:"installment_id,omitempty"`
	LoanID        *uuid.UUID `json:"loan_id,omitempty"`
	Amount        *string    `json:"amount,omitempty"`
}

// SetData encodes data to JSON
func (n *Notification) SetData(data *Data) {
	if data != nil {
		n.Data, _ = json.Marshal(data)
	}
}

// GetData decodes data from JSON
func (n *Notification) GetData() *Data {
	if len(n.Data) == 0 {
		return nil
	}
	var d Data
	if err := json.Unmarshal(n.Data, &d); err != nil {
		return nil
	}
	return &d
}
