package marketplace

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/Jothum123/Zimcrowd-Web-sub000/internal/domain/fees"
	"github.com/Jothum123/Zimcrowd-Web-sub000/internal/domain/holding"
	"github.com/Jothum123/Zimcrowd-Web-sub000/internal/domain/ledger"
	"github.com/Jothum123/Zimcrowd-Web-sub000/internal/domain/user"
)

// ScheduleGenerator creates the repayment schedule once a listing funds.
type ScheduleGenerator interface {
	GenerateScheduleTx(ctx context.Context, tx *sqlx.Tx, loanID, borrowerID uuid.UUID, principal decimal.Decimal, termMonths int, annualRatePercent decimal.Decimal) error
}

// NotificationService dispatches marketplace events, fire-and-forget.
type NotificationService interface {
	NotifyLoanFunded(ctx context.Context, borrowerID, listingID uuid.UUID, netDisbursed decimal.Decimal)
	NotifyOfferAccepted(ctx context.Context, lenderID, listingID, offerID uuid.UUID)
	NotifyOfferRejected(ctx context.Context, lenderID, listingID, offerID uuid.UUID)
	NotifyLoanExpired(ctx context.Context, borrowerID, listingID uuid.UUID)
}

// Service handles primary-market business logic.
type Service struct {
	repo        *Repository
	userRepo    *user.Repository
	holdingRepo *holding.Repository
	ledger      *ledger.Service
	calc        *fees.Calculator
	scheduler   ScheduleGenerator
	notifier    NotificationService
}

func NewService(repo *Repository, userRepo *user.Repository, holdingRepo *holding.Repository, ledgerSvc *ledger.Service, calc *fees.Calculator) *Service {
	return &Service{
		repo:        repo,
		userRepo:    userRepo,
		holdingRepo: holdingRepo,
		ledger:      ledgerSvc,
		calc:        calc,
	}
}

// SetScheduleGenerator wires the repayment schedule generator.
func (s *Service) SetScheduleGenerator(g ScheduleGenerator) {
	s.scheduler = g
}

// SetNotificationService sets the notification service (optional)
func (s *Service) SetNotificationService(n NotificationService) {
	s.notifier = n
}

func (s *Service) validRate(rate decimal.Decimal) bool {
	return !rate.IsNegative() && rate.LessThanOrEqual(s.calc.Schedule().MaxListingRate)
}

// CreateListing opens a loan request on the primary market.
func (s *Service) CreateListing(ctx context.Context, borrowerID uuid.UUID, req *CreateListingRequest) (*Listing, error) {
	if !req.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if req.TermMonths < 1 || req.TermMonths > 60 {
		return nil, ErrInvalidTerm
	}
	if !s.validRate(req.Rate) {
		return nil, ErrInvalidRate
	}

	borrower, err := s.userRepo.GetByID(ctx, borrowerID)
	if err != nil {
		return nil, err
	}

	ceiling := s.calc.Schedule().ColdStartCeiling
	if borrower.IsFirstTimeBorrower() && req.Amount.GreaterThan(ceiling) {
		return nil, &ColdStartError{Ceiling: ceiling}
	}

	annualRatePercent := req.Rate.Mul(decimal.NewFromInt(100))
	breakdown := s.calc.BorrowerFees(req.Amount, req.TermMonths, annualRatePercent)

	now := time.Now()
	listing := &Listing{
		ID:                 uuid.New(),
		BorrowerID:         borrowerID,
		Purpose:            req.Purpose,
		PrincipalRequested: req.Amount,
		TermMonths:         req.TermMonths,
		RequestedRate:      req.Rate,
		FundingGoal:        req.Amount,
		AmountFunded:       decimal.Zero,
		MonthlyPayment:     breakdown.TotalMonthlyPayment,
		Status:             ListingActive,
		FundingDeadline:    now.Add(s.calc.Schedule().ListingFundingTTL),
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	if err := s.repo.CreateListing(ctx, listing); err != nil {
		return nil, err
	}

	log.Info().
		Str("listing_id", listing.ID.String()).
		Str("borrower_id", borrowerID.String()).
		Str("amount", req.Amount.String()).
		Msg("loan listing created")
	return listing, nil
}

// GetListing returns one listing.
func (s *Service) GetListing(ctx context.Context, id uuid.UUID) (*Listing, error) {
	return s.repo.GetListing(ctx, id)
}

// Browse returns a filtered, paginated page of fundable listings,
// newest first.
func (s *Service) Browse(ctx context.Context, f BrowseFilters) ([]Listing, int, error) {
	if f.Status == "" {
		f.Status = ListingActive
	}
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 20
	}
	if f.Page <= 0 {
		f.Page = 1
	}
	return s.repo.Browse(ctx, f)
}

// MyListings returns a borrower's own listings.
func (s *Service) MyListings(ctx context.Context, borrowerID uuid.UUID, limit, offset int) ([]Listing, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.repo.ListByBorrower(ctx, borrowerID, limit, offset)
}

// SubmitOffer places a lender's pending funding bid on a listing.
func (s *Service) SubmitOffer(ctx context.Context, lenderID, listingID uuid.UUID, req *SubmitOfferRequest) (*Offer, error) {
	if !req.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if !s.validRate(req.Rate) {
		return nil, ErrInvalidRate
	}

	listing, err := s.repo.GetListing(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if !listing.IsFundable() {
		return nil, ErrListingNotFundable
	}
	if listing.IsOwnedBy(lenderID) {
		return nil, ErrSelfFunding
	}
	if req.Amount.GreaterThan(listing.FundingGoal) {
		return nil, &FundingGoalError{Remaining: listing.RemainingGoal()}
	}

	now := time.Now()
	offer := &Offer{
		ID:          uuid.New(),
		ListingID:   listingID,
		LenderID:    lenderID,
		OfferAmount: req.Amount,
		OfferedRate: req.Rate,
		Status:      OfferPending,
		ExpiresAt:   now.Add(s.calc.Schedule().FundingOfferTTL),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.CreateOffer(ctx, offer); err != nil {
		return nil, err
	}

	log.Info().
		Str("offer_id", offer.ID.String()).
		Str("listing_id", listingID.String()).
		Str("lender_id", lenderID.String()).
		Str("amount", req.Amount.String()).
		Msg("funding offer submitted")
	return offer, nil
}

// AcceptOffer is the settlement step of the primary market. The whole
// operation is one transaction: lock the listing, verify the offer,
// debit the lender's cash wallet, create the holding, bump the funded
// amount, and on reaching the goal disburse the net amount to the
// borrower and generate the repayment schedule. Concurrent accepts on
// the same listing serialize on the listing row lock, so the goal can
// never be overshot.
func (s *Service) AcceptOffer(ctx context.Context, borrowerID, offerID uuid.UUID) (*Listing, error) {
	preview, err := s.repo.GetOffer(ctx, offerID)
	if err != nil {
		return nil, err
	}

	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	// Lock order: listing before offer before wallets.
	listing, err := s.repo.GetListingForUpdate(ctx, tx, preview.ListingID)
	if err != nil {
		return nil, err
	}
	offer, err := s.repo.GetOfferForUpdate(ctx, tx, offerID)
	if err != nil {
		return nil, err
	}

	if !listing.IsOwnedBy(borrowerID) {
		return nil, ErrNotListingOwner
	}
	if offer.Status != OfferPending {
		return nil, ErrOfferNotPending
	}
	now := time.Now()
	if offer.IsExpired(now) {
		if err := s.repo.UpdateOfferStatusTx(ctx, tx, offer.ID, OfferExpired); err != nil {
			return nil, err
		}
		if err := tx.Commit(); err != nil {
			return nil, err
		}
		return nil, ErrOfferExpired
	}
	if !listing.IsFundable() {
		return nil, ErrListingNotFundable
	}

	remaining := listing.RemainingGoal()
	if offer.OfferAmount.GreaterThan(remaining) {
		return nil, &FundingGoalError{Remaining: remaining}
	}

	if _, err := s.ledger.DebitTx(ctx, tx, offer.LenderID, ledger.WalletCash, offer.OfferAmount,
		ledger.EntryTypeInvestment, offer.ID.String(), "primary market investment"); err != nil {
		return nil, err
	}

	h := &holding.Holding{
		ID:                 uuid.New(),
		LenderID:           offer.LenderID,
		LoanID:             listing.ID,
		PrincipalAmount:    offer.OfferAmount,
		OutstandingBalance: offer.OfferAmount,
		SharePercentage:    offer.OfferAmount.Div(listing.FundingGoal),
		AcquisitionMethod:  holding.AcquisitionPrimary,
		Status:             holding.StatusActive,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := s.holdingRepo.CreateTx(ctx, tx, h); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateOfferStatusTx(ctx, tx, offer.ID, OfferAccepted); err != nil {
		return nil, err
	}

	newFunded := listing.AmountFunded.Add(offer.OfferAmount)
	status := ListingPartiallyFunded
	funded := newFunded.Equal(listing.FundingGoal)
	if funded {
		status = ListingFunded
	}
	if err := s.repo.UpdateListingFundingTx(ctx, tx, listing.ID, newFunded, status); err != nil {
		return nil, err
	}

	var rejected []Offer
	var netDisbursed decimal.Decimal
	if funded {
		annualRatePercent := listing.RequestedRate.Mul(decimal.NewFromInt(100))
		breakdown := s.calc.BorrowerFees(listing.FundingGoal, listing.TermMonths, annualRatePercent)
		netDisbursed = breakdown.NetDisbursed

		if _, err := s.ledger.CreditTx(ctx, tx, listing.BorrowerID, ledger.WalletCash, netDisbursed,
			ledger.EntryTypeLoanDisbursement, listing.ID.String(), "loan disbursement"); err != nil {
			return nil, err
		}

		if s.scheduler != nil {
			if err := s.scheduler.GenerateScheduleTx(ctx, tx, listing.ID, listing.BorrowerID,
				listing.FundingGoal, listing.TermMonths, annualRatePercent); err != nil {
				return nil, err
			}
		}

		if rejected, err = s.repo.RejectPendingOffersTx(ctx, tx, listing.ID); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	listing.AmountFunded = newFunded
	listing.Status = status

	log.Info().
		Str("listing_id", listing.ID.String()).
		Str("offer_id", offer.ID.String()).
		Str("status", string(status)).
		Str("amount_funded", newFunded.String()).
		Msg("funding offer accepted")

	if s.notifier != nil {
		s.notifier.NotifyOfferAccepted(ctx, offer.LenderID, listing.ID, offer.ID)
		if funded {
			s.notifier.NotifyLoanFunded(ctx, listing.BorrowerID, listing.ID, netDisbursed)
		}
		for _, ro := range rejected {
			s.notifier.NotifyOfferRejected(ctx, ro.LenderID, listing.ID, ro.ID)
		}
	}

	return listing, nil
}

// WithdrawOffer lets a lender pull a still-pending offer.
func (s *Service) WithdrawOffer(ctx context.Context, lenderID, offerID uuid.UUID) error {
	offer, err := s.repo.GetOffer(ctx, offerID)
	if err != nil {
		return err
	}
	if offer.LenderID != lenderID {
		return ErrNotOfferOwner
	}
	if offer.Status != OfferPending {
		return ErrOfferNotPending
	}
	return s.repo.UpdateOfferStatus(ctx, offerID, OfferWithdrawn)
}

// CancelListing lets the borrower close a listing that has no accepted
// offers yet.
func (s *Service) CancelListing(ctx context.Context, borrowerID, listingID uuid.UUID) error {
	listing, err := s.repo.GetListing(ctx, listingID)
	if err != nil {
		return err
	}
	if !listing.IsOwnedBy(borrowerID) {
		return ErrNotListingOwner
	}
	if !listing.IsFundable() {
		return ErrListingNotFundable
	}
	if listing.AmountFunded.IsPositive() {
		return ErrListingHasFunding
	}
	return s.repo.UpdateListingStatus(ctx, listingID, ListingCancelled)
}

// ListingOffers returns the offers on a listing, visible to its borrower.
func (s *Service) ListingOffers(ctx context.Context, borrowerID, listingID uuid.UUID) ([]Offer, error) {
	listing, err := s.repo.GetListing(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if !listing.IsOwnedBy(borrowerID) {
		return nil, ErrNotListingOwner
	}
	return s.repo.ListOffersByListing(ctx, listingID)
}

// MyOffers returns a lender's own offers.
func (s *Service) MyOffers(ctx context.Context, lenderID uuid.UUID, limit, offset int) ([]Offer, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.repo.ListOffersByLender(ctx, lenderID, limit, offset)
}

// ExpireOffers batch-expires pending offers past their deadline.
func (s *Service) ExpireOffers(ctx context.Context) (int64, error) {
	return s.repo.ExpireOffers(ctx, time.Now())
}

// ExpireListings expires fundable listings past their funding deadline
// and refunds lenders whose offers were already accepted: each active
// holding is closed and its principal returned to the lender's cash
// wallet, in one transaction per listing.
func (s *Service) ExpireListings(ctx context.Context) (int, error) {
	listings, err := s.repo.ListExpirableListings(ctx, time.Now(), 100)
	if err != nil {
		return 0, err
	}

	expired := 0
	for i := range listings {
		if err := s.expireListing(ctx, &listings[i]); err != nil {
			log.Error().Err(err).Str("listing_id", listings[i].ID.String()).Msg("failed to expire listing")
			continue
		}
		expired++
	}
	return expired, nil
}

func (s *Service) expireListing(ctx context.Context, listing *Listing) error {
	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	locked, err := s.repo.GetListingForUpdate(ctx, tx, listing.ID)
	if err != nil {
		return err
	}
	if !locked.IsFundable() {
		// Raced with an accept that funded the listing.
		return tx.Commit()
	}

	holdings, err := s.holdingRepo.ListActiveByLoanTx(ctx, tx, locked.ID)
	if err != nil {
		return err
	}
	for i := range holdings {
		h := &holdings[i]
		if _, err := s.ledger.CreditTx(ctx, tx, h.LenderID, ledger.WalletCash, h.PrincipalAmount,
			ledger.EntryTypeInvestmentRefund, h.ID.String(), "refund on expired listing"); err != nil {
			return err
		}
		if _, err := s.holdingRepo.ApplyRepaymentTx(ctx, tx, h.ID, h.OutstandingBalance); err != nil {
			return err
		}
	}

	if _, err := s.repo.RejectPendingOffersTx(ctx, tx, locked.ID); err != nil {
		return err
	}
	if err := s.repo.UpdateListingFundingTx(ctx, tx, locked.ID, locked.AmountFunded, ListingExpired); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	if s.notifier != nil {
		s.notifier.NotifyLoanExpired(ctx, locked.BorrowerID, locked.ID)
	}
	return nil
}
