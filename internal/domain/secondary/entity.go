package secondary

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ListingStatus string

const (
	ListingActive    ListingStatus = "active"
	ListingSold      ListingStatus = "sold"
	ListingExpired   ListingStatus = "expired"
	ListingCancelled ListingStatus = "cancelled"
)

type OfferStatus string

const (
	OfferPending   OfferStatus = "pending"
	OfferAccepted  OfferStatus = "accepted"
	OfferRejected  OfferStatus = "rejected"
	OfferExpired   OfferStatus = "expired"
	OfferWithdrawn OfferStatus = "withdrawn"
)

// Listing is a holding put up for resale.
type Listing struct {
	ID            uuid.UUID       `db:"id" json:"id"`
	HoldingID     uuid.UUID       `db:"holding_id" json:"holding_id"`
	SellerID      uuid.UUID       `db:"seller_id" json:"seller_id"`
	AskingPrice   decimal.Decimal `db:"asking_price" json:"asking_price"`
	Status        ListingStatus   `db:"status" json:"status"`
	ListingExpiry time.Time       `db:"listing_expiry" json:"listing_expiry"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at" json:"updated_at"`
}

func (l *Listing) IsActive() bool {
	return l.Status == ListingActive
}

// Offer is a buyer's bid on a secondary listing.
type Offer struct {
	ID         uuid.UUID       `db:"id" json:"id"`
	ListingID  uuid.UUID       `db:"listing_id" json:"listing_id"`
	BuyerID    uuid.UUID       `db:"buyer_id" json:"buyer_id"`
	OfferPrice decimal.Decimal `db:"offer_price" json:"offer_price"`
	Status     OfferStatus     `db:"status" json:"status"`
	ExpiresAt  time.Time       `db:"expires_at" json:"expires_at"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time       `db:"updated_at" json:"updated_at"`
}

func (o *Offer) IsExpired(now time.Time) bool {
	return now.After(o.ExpiresAt)
}
