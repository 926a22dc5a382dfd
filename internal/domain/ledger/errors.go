package ledger

import "errors"

var (
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInvalidWalletType  = errors.New("invalid wallet type")
	ErrInsufficientFunds  = errors.New("insufficient wallet balance")
	ErrDuplicateReference = errors.New("duplicate reference")
	ErrReferenceConflict  = errors.New("reference conflicts with different amount")
)
