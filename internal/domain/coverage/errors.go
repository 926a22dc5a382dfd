package coverage

import "errors"

var (
	ErrOfferNotFound      = errors.New("coverage offer not found")
	ErrOfferAlreadyExists = errors.New("a pending coverage offer already exists for this installment")
	ErrNotOfferOwner      = errors.New("only the offer's lender may do this")
	ErrOfferNotPending    = errors.New("coverage offer is not pending")
	ErrOfferExpired       = errors.New("coverage offer has expired")
	ErrReceivableNotFound = errors.New("coverage receivable not found")
)
