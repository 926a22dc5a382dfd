package coverage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/Jothum123/Zimcrowd-Web-sub000/internal/domain/fees"
	"github.com/Jothum123/Zimcrowd-Web-sub000/internal/domain/holding"
	"github.com/Jothum123/Zimcrowd-Web-sub000/internal/domain/ledger"
	"github.com/Jothum123/Zimcrowd-Web-sub000/internal/domain/marketplace"
	"github.com/Jothum123/Zimcrowd-Web-sub000/internal/domain/repayment"
)

// NotificationService dispatches coverage events, fire-and-forget.
type NotificationService interface {
	NotifyCoverageOffer(ctx context.Context, lenderID, installmentID uuid.UUID, credits decimal.Decimal)
}

// Service issues and settles payment coverage: platform credit offered
// to lenders in lieu of late borrower cash.
type Service struct {
	repo            *Repository
	installmentRepo *repayment.Repository
	listingRepo     *marketplace.Repository
	holdingRepo     *holding.Repository
	ledger          *ledger.Service
	calc            *fees.Calculator
	notifier        NotificationService
}

// SetNotificationService attaches the notification dispatcher.
func (s *Service) SetNotificationService(n NotificationService) {
	s.notifier = n
}

func NewService(repo *Repository, installmentRepo *repayment.Repository, listingRepo *marketplace.Repository, holdingRepo *holding.Repository, ledgerSvc *ledger.Service, calc *fees.Calculator) *Service {
	return &Service{
		repo:            repo,
		installmentRepo: installmentRepo,
		listingRepo:     listingRepo,
		holdingRepo:     holdingRepo,
		ledger:          ledgerSvc,
		calc:            calc,
	}
}

// CreateOffers scans late installments and issues a pending coverage
// offer to every holding lender who lacks one. Safe to re-run: the
// unique pending-offer guard makes creation idempotent.
func (s *Service) CreateOffers(ctx context.Context) (int, error) {
	shares, err := s.repo.ListLateSharesNeedingOffers(ctx, 500)
	if err != nil {
		return 0, err
	}

	created := 0
	for i := range shares {
		if err := s.createOffer(ctx, &shares[i]); err != nil {
			if errors.Is(err, ErrOfferAlreadyExists) {
				continue
			}
			log.Error().Err(err).
				Str("installment_id", shares[i].InstallmentID.String()).
				Str("lender_id", shares[i].LenderID.String()).
				Msg("failed to create coverage offer")
			continue
		}
		created++
	}
	return created, nil
}

func (s *Service) createOffer(ctx context.Context, share *LateShare) error {
	amountDue := share.AmountDue.Mul(share.SharePercent)
	now := time.Now()

	offer := &Offer{
		ID:                 uuid.New(),
		InstallmentID:      share.InstallmentID,
		LoanID:             share.LoanID,
		LenderID:           share.LenderID,
		OriginalAmountDue:  amountDue,
		DaysLate:           share.DaysLate,
		CoveragePercent:    s.calc.CoveragePercentage(share.DaysLate),
		OfferAmountCredits: s.calc.CoverageAmount(amountDue, share.DaysLate),
		Status:             OfferPending,
		ExpiresAt:          now.Add(s.calc.Schedule().CoverageOfferTTL),
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := s.repo.CreateOffer(ctx, offer); err != nil {
		return err
	}
	if s.notifier != nil {
		s.notifier.NotifyCoverageOffer(ctx, offer.LenderID, offer.InstallmentID, offer.OfferAmountCredits)
	}

	log.Info().
		Str("offer_id", offer.ID.String()).
		Str("installment_id", share.InstallmentID.String()).
		Str("credits", offer.OfferAmountCredits.String()).
		Msg("coverage offer created")
	return nil
}

// AcceptOffer settles a coverage offer in one transaction: the lender's
// credit wallet receives the offered credits, the installment is
// flagged covered, the borrower's obligation moves to a platform
// receivable, and the lender's holding amortizes one installment's
// principal just as a cash payment would have.
func (s *Service) AcceptOffer(ctx context.Context, lenderID, offerID uuid.UUID) (*Offer, error) {
	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	offer, err := s.repo.GetOfferForUpdate(ctx, tx, offerID)
	if err != nil {
		return nil, err
	}
	if offer.LenderID != lenderID {
		return nil, ErrNotOfferOwner
	}
	if offer.Status != OfferPending {
		return nil, ErrOfferNotPending
	}
	now := time.Now()
	if offer.IsExpired(now) {
		if err := s.repo.UpdateOfferStatusTx(ctx, tx, offer.ID, OfferExpired, now); err != nil {
			return nil, err
		}
		if err := tx.Commit(); err != nil {
			return nil, err
		}
		return nil, ErrOfferExpired
	}

	// Lock order: offer, then installment, then wallets, matching the
	// cash repayment path.
	inst, err := s.installmentRepo.GetByIDForUpdate(ctx, tx, offer.InstallmentID)
	if err != nil {
		return nil, err
	}

	if _, err := s.ledger.CreditTx(ctx, tx, lenderID, ledger.WalletCredit, offer.OfferAmountCredits,
		ledger.EntryTypePaymentCoverage, offer.ID.String(), "payment coverage credit"); err != nil {
		return nil, err
	}

	if err := s.coverInstallmentTx(ctx, tx, offer, inst.BorrowerID); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateOfferStatusTx(ctx, tx, offer.ID, OfferAccepted, now); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	offer.Status = OfferAccepted
	offer.RespondedAt = &now

	log.Info().
		Str("offer_id", offer.ID.String()).
		Str("lender_id", lenderID.String()).
		Str("credits", offer.OfferAmountCredits.String()).
		Msg("coverage offer accepted")
	return offer, nil
}

func (s *Service) coverInstallmentTx(ctx context.Context, tx *sqlx.Tx, offer *Offer, borrowerID uuid.UUID) error {
	if err := s.installmentRepo.AddCoverageCreditTx(ctx, tx, offer.InstallmentID, offer.OfferAmountCredits); err != nil {
		return err
	}
	if err := s.repo.UpsertReceivableTx(ctx, tx, offer.InstallmentID, offer.LoanID, borrowerID, offer.OriginalAmountDue); err != nil {
		return err
	}

	// The lender's holding amortizes as if the installment were paid.
	listing, err := s.listingRepo.GetListing(ctx, offer.LoanID)
	if err != nil {
		return err
	}
	holdings, err := s.holdingRepo.ListActiveByLoanTx(ctx, tx, offer.LoanID)
	if err != nil {
		return err
	}
	for i := range holdings {
		h := &holdings[i]
		if h.LenderID != offer.LenderID {
			continue
		}
		reduction := h.PrincipalAmount.Div(decimal.NewFromInt(int64(listing.TermMonths)))
		if reduction.GreaterThan(h.OutstandingBalance) {
			reduction = h.OutstandingBalance
		}
		if _, err := s.holdingRepo.ApplyRepaymentTx(ctx, tx, h.ID, reduction); err != nil {
			return err
		}
	}
	return nil
}

// DeclineOffer leaves the installment late: borrower cash is still
// expected and the offer can be re-issued at the new, lower rate.
func (s *Service) DeclineOffer(ctx context.Context, lenderID, offerID uuid.UUID) error {
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
	return s.repo.UpdateOfferStatus(ctx, offerID, OfferDeclined, time.Now())
}

// MyOffers returns a lender's coverage offers, newest first.
func (s *Service) MyOffers(ctx context.Context, lenderID uuid.UUID, limit, offset int) ([]Offer, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.repo.ListByLender(ctx, lenderID, limit, offset)
}

// ExpireOldOffers batch-expires pending offers past their deadline.
func (s *Service) ExpireOldOffers(ctx context.Context) (int64, error) {
	return s.repo.ExpireOldOffers(ctx, time.Now())
}

// CoveredSharesTx reports the lenders who accepted coverage on an
// installment, so the cash repayment path can route their slices to the
// platform instead of paying them twice.
func (s *Service) CoveredSharesTx(ctx context.Context, tx *sqlx.Tx, installmentID uuid.UUID) ([]repayment.CoveredShare, error) {
	offers, err := s.repo.ListAcceptedByInstallmentTx(ctx, tx, installmentID)
	if err != nil {
		return nil, err
	}
	shares := make([]repayment.CoveredShare, 0, len(offers))
	for i := range offers {
		o := &offers[i]
		shares = append(shares, repayment.CoveredShare{
			LenderID:  o.LenderID,
			AmountDue: o.OriginalAmountDue,
			Credits:   o.OfferAmountCredits,
		})
	}
	return shares, nil
}

// SettleReceivableTx books borrower cash recovered on a covered
// installment against the platform's receivable.
func (s *Service) SettleReceivableTx(ctx context.Context, tx *sqlx.Tx, installmentID uuid.UUID, amount decimal.Decimal) error {
	return s.repo.SettleReceivableTx(ctx, tx, installmentID, amount)
}

// GetReceivable returns the receivable for a covered installment.
func (s *Service) GetReceivable(ctx context.Context, installmentID uuid.UUID) (*Receivable, error) {
	return s.repo.GetReceivable(ctx, installmentID)
}
