package repayment

import "errors"

var (
	ErrInstallmentNotFound   = errors.New("installment not found")
	ErrNotBorrower           = errors.New("only the loan's borrower may do this")
	ErrInstallmentNotPayable = errors.New("installment is not payable")
	ErrPaymentMismatch       = errors.New("payment must equal the installment's outstanding amount")
	ErrNotScheduleViewer     = errors.New("only the borrower or an invested lender may view the schedule")
)
