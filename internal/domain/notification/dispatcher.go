package notification

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// Dispatcher is the fire-and-forget façade the lending engines talk
// to. Delivery failures are logged and never surfaced to the caller;
// a balance mutation must not fail because a notification did.
type Dispatcher struct {
	svc *Service
}

// NewDispatcher creates the notification dispatcher.
func NewDispatcher(svc *Service) *Dispatcher {
	return &Dispatcher{svc: svc}
}

func (d *Dispatcher) create(ctx context.Context, userID uuid.UUID, notifType Type, title, body string, data *Data) {
	if _, err := d.svc.Create(ctx, userID, notifType, title, body, data); err != nil {
		log.Warn().Err(err).
			Str("user_id", userID.String()).
			Str("type", string(notifType)).
			Msg("notification dispatch failed")
	}
}

// NotifyLoanFunded tells the borrower the listing reached its goal.
func (d *Dispatcher) NotifyLoanFunded(ctx context.Context, borrowerID, listingID uuid.UUID, netDisbursed decimal.Decimal) {
	amount := netDisbursed.StringFixed(2)
	d.create(ctx, borrowerID, TypeLoanApproved,
		"Your loan is funded",
		fmt.Sprintf("%s has been disbursed to your cash wallet", amount),
		&Data{ListingID: &listingID, Amount: &amount},
	)
}

// NotifyLoanExpired tells the borrower the listing expired unfunded.
func (d *Dispatcher) NotifyLoanExpired(ctx context.Context, borrowerID, listingID uuid.UUID) {
	d.create(ctx, borrowerID, TypeLoanRejected,
		"Your loan listing expired",
		"The funding window closed before your goal was reached",
		&Data{ListingID: &listingID},
	)
}

// NotifyOfferAccepted tells the lender their funding offer went through.
func (d *Dispatcher) NotifyOfferAccepted(ctx context.Context, lenderID, listingID, offerID uuid.UUID) {
	d.create(ctx, lenderID, TypeOfferAccepted,
		"Funding offer accepted",
		"Your investment is active; a holding has been created",
		&Data{ListingID: &listingID, OfferID: &offerID},
	)
}

// NotifyOfferRejected tells the lender their funding offer was turned down.
func (d *Dispatcher) NotifyOfferRejected(ctx context.Context, lenderID, listingID, offerID uuid.UUID) {
	d.create(ctx, lenderID, TypeOfferRejected,
		"Funding offer not accepted",
		"Your funds remain in your cash wallet",
		&Data{ListingID: &listingID, OfferID: &offerID},
	)
}

// NotifyPaymentOverdue tells the borrower an installment is late.
func (d *Dispatcher) NotifyPaymentOverdue(ctx context.Context, borrowerID, installmentID uuid.UUID, daysLate int) {
	d.create(ctx, borrowerID, TypePaymentOverdue,
		"Payment overdue",
		fmt.Sprintf("An installment is %d days past due; a late fee has been applied", daysLate),
		&Data{InstallmentID: &installmentID},
	)
}

// NotifyPaymentReminder tells the borrower an installment is due soon.
func (d *Dispatcher) NotifyPaymentReminder(ctx context.Context, borrowerID, installmentID uuid.UUID) {
	d.create(ctx, borrowerID, TypePaymentReminder,
		"Payment due soon",
		"An installment on your loan is due within 3 days",
		&Data{InstallmentID: &installmentID},
	)
}

// NotifyInvestmentMatured tells the lender their holding repaid in full.
func (d *Dispatcher) NotifyInvestmentMatured(ctx context.Context, lenderID, loanID uuid.UUID) {
	d.create(ctx, lenderID, TypeInvestmentMatured,
		"Investment matured",
		"The loan you invested in has been repaid in full",
		&Data{LoanID: &loanID},
	)
}

// NotifyCoverageOffer tells the lender credits are on the table for a
// late installment.
func (d *Dispatcher) NotifyCoverageOffer(ctx context.Context, lenderID, installmentID uuid.UUID, credits decimal.Decimal) {
	amount := credits.StringFixed(2)
	d.create(ctx, lenderID, TypeCoverageOffer,
		"Payment coverage offered",
		fmt.Sprintf("Accept %s in credits now instead of waiting for the late payment", amount),
		&Data{InstallmentID: &installmentID, Amount: &amount},
	)
}
