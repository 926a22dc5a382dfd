package holding

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AcquisitionMethod records how the current owner came to hold the stake.
type AcquisitionMethod string

const (
	AcquisitionPrimary   AcquisitionMethod = "primary"
	AcquisitionSecondary AcquisitionMethod = "secondary"
)

// Status represents holding status
type Status string

const (
	StatusActive Status = "active"
	StatusSold   Status = "sold"
	StatusClosed Status = "closed"
)

// Holding is a lender's fractional ownership stake in a funded loan.
// Invariants: OutstandingBalance <= PrincipalAmount; the sum of active
// holdings' SharePercentage for one loan never exceeds 1.0.
type Holding struct {
	ID                 uuid.UUID         `db:"id" json:"id"`
	LenderID           uuid.UUID         `db:"lender_id" json:"lender_id"`
	LoanID             uuid.UUID         `db:"loan_id" json:"loan_id"`
	PrincipalAmount    decimal.Decimal   `db:"principal_amount" json:"principal_amount"`
	OutstandingBalance decimal.Decimal   `db:"outstanding_balance" json:"outstanding_balance"`
	SharePercentage    decimal.Decimal   `db:"share_percentage" json:"share_percentage"`
	AcquisitionMethod  AcquisitionMethod `db:"acquisition_method" json:"acquisition_method"`
	Status             Status            `db:"status" json:"status"`
	IsForSale          bool              `db:"is_for_sale" json:"is_for_sale"`
	CreatedAt          time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time         `db:"updated_at" json:"updated_at"`
}

// Transfer is an append-only record of a secondary-market ownership change.
type Transfer struct {
	ID           uuid.UUID       `db:"id" json:"id"`
	HoldingID    uuid.UUID       `db:"holding_id" json:"holding_id"`
	FromLenderID uuid.UUID       `db:"from_lender_id" json:"from_lender_id"`
	ToLenderID   uuid.UUID       `db:"to_lender_id" json:"to_lender_id"`
	Price        decimal.Decimal `db:"price" json:"price"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
}

// IsOwnedBy reports whether lenderID currently owns the holding.
func (h *Holding) IsOwnedBy(lenderID uuid.UUID) bool {
	return h.LenderID == lenderID
}

// IsSellable reports whether the holding can be listed for resale.
func (h *Holding) IsSellable() bool {
	return h.Status == StatusActive
}
