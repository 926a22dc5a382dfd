package marketplace

import (
	"github.com/shopspring/decimal"
)

// CreateListingRequest is the borrower's loan request payload.
type CreateListingRequest struct {
	Amount     decimal.Decimal `json:"amount" validate:"required,positive_amount"`
	TermMonths int             `json:"term_months" validate:"required,gte=1,lte=60"`
	Rate       decimal.Decimal `json:"rate" validate:"listing_rate"`
	Purpose    string          `json:"purpose" validate:"required,min=3,max=500"`
}

// SubmitOfferRequest is a lender's funding bid payload.
type SubmitOfferRequest struct {
	Amount decimal.Decimal `json:"amount" validate:"required,positive_amount"`
	Rate   decimal.Decimal `json:"rate" validate:"listing_rate"`
}

// BrowseFilters narrows the marketplace listing query.
type BrowseFilters struct {
	Status    ListingStatus
	MinAmount *decimal.Decimal
	MaxAmount *decimal.Decimal
	MaxTerm   *int
	Page      int
	Limit     int
}

// ListingResponse augments a listing with derived funding figures.
type ListingResponse struct {
	Listing
	RemainingGoal decimal.Decimal `json:"remaining_goal"`
	PercentFunded decimal.Decimal `json:"percent_funded"`
}

// NewListingResponse builds the API view of a listing.
func NewListingResponse(l *Listing) ListingResponse {
	percent := decimal.Zero
	if l.FundingGoal.IsPositive() {
		percent = l.AmountFunded.Div(l.FundingGoal).Mul(decimal.NewFromInt(100)).Round(2)
	}
	return ListingResponse{
		Listing:       *l,
		RemainingGoal: l.RemainingGoal(),
		PercentFunded: percent,
	}
}
