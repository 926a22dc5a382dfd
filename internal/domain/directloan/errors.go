package directloan

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrLoanNotFound       = errors.New("direct loan not found")
	ErrNotLoanOwner       = errors.New("only the loan's borrower may do this")
	ErrAmountExceedsLimit = errors.New("amount exceeds the score-based lending limit")
	ErrInvalidSignature   = errors.New("signature name must be at least 3 characters")
	ErrInvalidAmount      = errors.New("amount must be greater than zero")
	ErrInvalidDuration    = errors.New("duration must be between 1 and 365 days")
	ErrOfferNotPending    = errors.New("direct loan offer is not open for signing")
	ErrOfferExpired       = errors.New("direct loan offer has expired")
	ErrNotSigned          = errors.New("direct loan has not been signed")
	ErrNotRepayable       = errors.New("direct loan is not accepting repayments")
)

// LimitError carries the score-derived ceiling for the error payload.
type LimitError struct {
	MaxAmount decimal.Decimal
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("amount exceeds the lending limit of %s for this score", e.MaxAmount)
}

func (e *LimitError) Is(target error) bool {
	return target == ErrAmountExceedsLimit
}
