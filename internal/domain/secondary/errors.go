package secondary

import "errors"

var (
	ErrListingNotFound    = errors.New("secondary listing not found")
	ErrOfferNotFound      = errors.New("purchase offer not found")
	ErrHoldingNotSellable = errors.New("holding is not sellable")
	ErrAlreadyForSale     = errors.New("holding is already listed for sale")
	ErrNotSeller          = errors.New("only the listing's seller may do this")
	ErrNotBuyer           = errors.New("only the offer's buyer may do this")
	ErrListingNotActive   = errors.New("secondary listing is not active")
	ErrOfferNotPending    = errors.New("purchase offer is not pending")
	ErrOfferExpired       = errors.New("purchase offer has expired")
	ErrInvalidPrice       = errors.New("price must be greater than zero")
	ErrSelfPurchase       = errors.New("sellers cannot buy their own listing")
)
