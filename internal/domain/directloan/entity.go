package directloan

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusOffered   Status = "offered"
	StatusExpired   Status = "expired"
	StatusSigned    Status = "signed"
	StatusDisbursed Status = "disbursed"
	StatusLate      Status = "late"
	StatusDefaulted Status = "defaulted"
	StatusRepaid    Status = "repaid"
)

// Loan is a platform-funded fixed-fee loan priced off the borrower's
// ZimScore. It starts life as an offer; signing the e-signature turns
// it into a binding loan, disbursal moves the money.
type Loan struct {
	ID             uuid.UUID       `db:"id" json:"id"`
	UserID         uuid.UUID       `db:"user_id" json:"user_id"`
	Amount         decimal.Decimal `db:"amount" json:"amount"`
	DurationDays   int             `db:"duration_days" json:"duration_days"`
	Score          int             `db:"score" json:"score"`
	FeePercent     decimal.Decimal `db:"fee_percent" json:"fee_percent"`
	Fee            decimal.Decimal `db:"fee" json:"fee"`
	TotalRepayment decimal.Decimal `db:"total_repayment" json:"total_repayment"`
	// APR is disclosure only, never used for settlement.
	APR            decimal.Decimal `db:"apr" json:"apr"`
	AmountPaid     decimal.Decimal `db:"amount_paid" json:"amount_paid"`
	Status         Status          `db:"status" json:"status"`
	OfferExpiresAt time.Time       `db:"offer_expires_at" json:"offer_expires_at"`
	SignatureName  *string         `db:"signature_name" json:"signature_name,omitempty"`
	SignatureIP    *string         `db:"signature_ip" json:"signature_ip,omitempty"`
	SignedAt       *time.Time      `db:"signed_at" json:"signed_at,omitempty"`
	DisbursedAt    *time.Time      `db:"disbursed_at" json:"disbursed_at,omitempty"`
	DueDate        *time.Time      `db:"due_date" json:"due_date,omitempty"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at" json:"updated_at"`
}

func (l *Loan) IsOfferExpired(now time.Time) bool {
	return l.Status == StatusOffered && now.After(l.OfferExpiresAt)
}

// IsRepayable reports whether repayments can still be recorded.
func (l *Loan) IsRepayable() bool {
	return l.Status == StatusDisbursed || l.Status == StatusLate || l.Status == StatusDefaulted
}

func (l *Loan) Remaining() decimal.Decimal {
	return l.TotalRepayment.Sub(l.AmountPaid)
}
