package repayment

import "github.com/shopspring/decimal"

// RecordPaymentRequest settles one installment with borrower cash.
type RecordPaymentRequest struct {
	InstallmentID string          `json:"installment_id" validate:"required,uuid"`
	Amount        decimal.Decimal `json:"amount" validate:"required,positive_amount"`
}
