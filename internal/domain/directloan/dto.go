package directloan

import "github.com/shopspring/decimal"

type CreateOfferRequest struct {
	Amount       decimal.Decimal `json:"amount" validate:"required,positive_amount"`
	DurationDays int             `json:"duration_days" validate:"required,min=1,max=365"`
}

type AcceptOfferRequest struct {
	SignatureName string `json:"signature_name" validate:"required,min=3"`
}

type RecordRepaymentRequest struct {
	Amount      decimal.Decimal `json:"amount" validate:"required,positive_amount"`
	ReferenceID string          `json:"reference_id" validate:"omitempty,max=128"`
}
