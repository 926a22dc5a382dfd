package repayment

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type InstallmentStatus string

const (
	InstallmentPending InstallmentStatus = "pending"
	InstallmentLate    InstallmentStatus = "late"
	InstallmentPaid    InstallmentStatus = "paid"
	// InstallmentCovered marks an installment settled toward lenders
	// with platform credit instead of borrower cash. The borrower's
	// obligation survives as a platform receivable.
	InstallmentCovered InstallmentStatus = "covered_by_platform"
)

// Installment is one scheduled repayment of a funded marketplace loan.
// AmountDue is the full monthly payment including tenure and collection
// fees; LateFee is set once when the installment first goes late.
type Installment struct {
	ID                uuid.UUID         `db:"id" json:"id"`
	LoanID            uuid.UUID         `db:"loan_id" json:"loan_id"`
	BorrowerID        uuid.UUID         `db:"borrower_id" json:"borrower_id"`
	InstallmentNumber int               `db:"installment_number" json:"installment_number"`
	DueDate           time.Time         `db:"due_date" json:"due_date"`
	AmountDue         decimal.Decimal   `db:"amount_due" json:"amount_due"`
	PaidAmount        decimal.Decimal   `db:"paid_amount" json:"paid_amount"`
	LateFee           decimal.Decimal   `db:"late_fee" json:"late_fee"`
	DaysLate          int               `db:"days_late" json:"days_late"`
	Status            InstallmentStatus `db:"status" json:"status"`
	PaidAt            *time.Time        `db:"paid_at" json:"paid_at,omitempty"`
	CreatedAt         time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time         `db:"updated_at" json:"updated_at"`
}

// Outstanding is what the borrower still owes on this installment in cash.
func (i *Installment) Outstanding() decimal.Decimal {
	return i.AmountDue.Add(i.LateFee).Sub(i.PaidAmount)
}

// IsPayable reports whether borrower cash can still be recorded. A
// covered installment stays payable: the cash settles the platform's
// receivable instead of the lenders.
func (i *Installment) IsPayable() bool {
	return i.Status == InstallmentPending || i.Status == InstallmentLate || i.Status == InstallmentCovered
}
