package marketplace

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ListingStatus represents loan listing status (matches listing_status enum)
type ListingStatus string

const (
	ListingActive          ListingStatus = "active"
	ListingPartiallyFunded ListingStatus = "partially_funded"
	ListingFunded          ListingStatus = "funded"
	ListingExpired         ListingStatus = "expired"
	ListingCancelled       ListingStatus = "cancelled"
)

// OfferStatus represents funding offer status
type OfferStatus string

const (
	OfferPending   OfferStatus = "pending"
	OfferAccepted  OfferStatus = "accepted"
	OfferRejected  OfferStatus = "rejected"
	OfferExpired   OfferStatus = "expired"
	OfferWithdrawn OfferStatus = "withdrawn"
)

// Listing is a borrower's loan request, the root aggregate of the
// primary market. Invariant: AmountFunded <= FundingGoal.
type Listing struct {
	ID                 uuid.UUID       `db:"id" json:"id"`
	BorrowerID         uuid.UUID       `db:"borrower_id" json:"borrower_id"`
	Purpose            string          `db:"purpose" json:"purpose"`
	PrincipalRequested decimal.Decimal `db:"principal_requested" json:"principal_requested"`
	TermMonths         int             `db:"term_months" json:"term_months"`
	RequestedRate      decimal.Decimal `db:"requested_rate" json:"requested_rate"`
	FundingGoal        decimal.Decimal `db:"funding_goal" json:"funding_goal"`
	AmountFunded       decimal.Decimal `db:"amount_funded" json:"amount_funded"`
	MonthlyPayment     decimal.Decimal `db:"monthly_payment" json:"monthly_payment"`
	Status             ListingStatus   `db:"status" json:"status"`
	FundingDeadline    time.Time       `db:"funding_deadline" json:"funding_deadline"`
	CreatedAt          time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time       `db:"updated_at" json:"updated_at"`
}

// Offer is a lender's bid to fund part (or all) of a listing.
type Offer struct {
	ID          uuid.UUID       `db:"id" json:"id"`
	ListingID   uuid.UUID       `db:"listing_id" json:"listing_id"`
	LenderID    uuid.UUID       `db:"lender_id" json:"lender_id"`
	OfferAmount decimal.Decimal `db:"offer_amount" json:"offer_amount"`
	OfferedRate decimal.Decimal `db:"offered_rate" json:"offered_rate"`
	Status      OfferStatus     `db:"status" json:"status"`
	ExpiresAt   time.Time       `db:"expires_at" json:"expires_at"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updated_at"`
}

// IsFundable reports whether the listing still takes offers.
func (l *Listing) IsFundable() bool {
	return l.Status == ListingActive || l.Status == ListingPartiallyFunded
}

// IsOwnedBy reports whether userID is the listing's borrower.
func (l *Listing) IsOwnedBy(userID uuid.UUID) bool {
	return l.BorrowerID == userID
}

// RemainingGoal is the capacity left before the funding goal is reached.
func (l *Listing) RemainingGoal() decimal.Decimal {
	return l.FundingGoal.Sub(l.AmountFunded)
}

// IsExpired reports whether the offer has passed its deadline.
func (o *Offer) IsExpired(now time.Time) bool {
	return now.After(o.ExpiresAt)
}
