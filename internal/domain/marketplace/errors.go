package marketplace

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/Jothum123/Zimcrowd-Web-sub000/internal/domain/ledger"
)

// ledgerInsufficientFunds lets handlers match wallet shortfalls
// surfaced through offer acceptance.
var ledgerInsufficientFunds = ledger.ErrInsufficientFunds

var (
	ErrListingNotFound    = errors.New("listing not found")
	ErrOfferNotFound      = errors.New("offer not found")
	ErrNotListingOwner    = errors.New("only the listing's borrower may do this")
	ErrNotOfferOwner      = errors.New("only the offer's lender may do this")
	ErrListingNotFundable = errors.New("listing is not accepting offers")
	ErrOfferNotPending    = errors.New("offer is not pending")
	ErrOfferExpired       = errors.New("offer has expired")
	ErrInvalidRate        = errors.New("rate must be between 0 and 0.10")
	ErrInvalidAmount      = errors.New("amount must be greater than zero")
	ErrInvalidTerm        = errors.New("term must be between 1 and 60 months")
	ErrListingHasFunding  = errors.New("listing with accepted offers cannot be cancelled")
	ErrColdStartLimit     = errors.New("first-time borrower limit exceeded")
	ErrFundingGoalLimit   = errors.New("offer exceeds remaining funding goal")
	ErrSelfFunding        = errors.New("borrowers cannot fund their own listing")
)

// ColdStartError carries the ceiling so callers can surface it.
type ColdStartError struct {
	Ceiling decimal.Decimal
}

func (e *ColdStartError) Error() string {
	return fmt.Sprintf("first-time borrowers are limited to %s until one loan is completed", e.Ceiling)
}

func (e *ColdStartError) Is(target error) bool {
	return target == ErrColdStartLimit
}

// FundingGoalError carries the remaining capacity. Overshooting accepts
// are rejected outright, never silently capped.
type FundingGoalError struct {
	Remaining decimal.Decimal
}

func (e *FundingGoalError) Error() string {
	return fmt.Sprintf("offer exceeds remaining funding goal of %s", e.Remaining)
}

func (e *FundingGoalError) Is(target error) bool {
	return target == ErrFundingGoalLimit
}
