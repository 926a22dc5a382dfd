package coverage

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OfferStatus string

const (
	OfferPending  OfferStatus = "pending"
	OfferAccepted OfferStatus = "accepted"
	OfferDeclined OfferStatus = "declined"
	OfferExpired  OfferStatus = "expired"
)

// Offer is platform credit offered to one lender in lieu of their share
// of a late cash installment. The credit decays the longer the
// installment sits unpaid, floored at half the amount due.
type Offer struct {
	ID                 uuid.UUID       `db:"id" json:"id"`
	InstallmentID      uuid.UUID       `db:"installment_id" json:"installment_id"`
	LoanID             uuid.UUID       `db:"loan_id" json:"loan_id"`
	LenderID           uuid.UUID       `db:"lender_id" json:"lender_id"`
	OriginalAmountDue  decimal.Decimal `db:"original_amount_due" json:"original_amount_due"`
	DaysLate           int             `db:"days_late" json:"days_late"`
	CoveragePercent    decimal.Decimal `db:"coverage_percent" json:"coverage_percent"`
	OfferAmountCredits decimal.Decimal `db:"offer_amount_credits" json:"offer_amount_credits"`
	Status             OfferStatus     `db:"status" json:"status"`
	ExpiresAt          time.Time       `db:"expires_at" json:"expires_at"`
	RespondedAt        *time.Time      `db:"responded_at" json:"responded_at,omitempty"`
	CreatedAt          time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time       `db:"updated_at" json:"updated_at"`
}

func (o *Offer) IsExpired(now time.Time) bool {
	return now.After(o.ExpiresAt)
}

type ReceivableStatus string

const (
	ReceivableOutstanding ReceivableStatus = "outstanding"
	ReceivableSettled     ReceivableStatus = "settled"
)

// Receivable is the borrower's preserved obligation on a covered
// installment: the platform fronted credits to the lenders, and
// subsequent borrower cash for that installment belongs to the
// platform, not the lenders.
type Receivable struct {
	ID              uuid.UUID        `db:"id" json:"id"`
	InstallmentID   uuid.UUID        `db:"installment_id" json:"installment_id"`
	LoanID          uuid.UUID        `db:"loan_id" json:"loan_id"`
	BorrowerID      uuid.UUID        `db:"borrower_id" json:"borrower_id"`
	Amount          decimal.Decimal  `db:"amount" json:"amount"`
	AmountRecovered decimal.Decimal  `db:"amount_recovered" json:"amount_recovered"`
	Status          ReceivableStatus `db:"status" json:"status"`
	CreatedAt       time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time        `db:"updated_at" json:"updated_at"`
}
