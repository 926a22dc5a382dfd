package secondary

import "github.com/shopspring/decimal"

// SellHoldingRequest puts a holding on the secondary market.
type SellHoldingRequest struct {
	AskingPrice decimal.Decimal `json:"asking_price" validate:"required,positive_amount"`
}

// SubmitOfferRequest is a buyer's bid payload.
type SubmitOfferRequest struct {
	OfferPrice decimal.Decimal `json:"offer_price" validate:"required,positive_amount"`
}
