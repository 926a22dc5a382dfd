package repayment

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
	"github.com/Jothum123/Zimcrowd-Web-sub000/internal/domain/marketplace"
	"github.com/Jothum123/Zimcrowd-Web-sub000/internal/domain/user"
)

// ReceivableSettler is the coverage engine's side of covered-installment
// settlement: it reports which lenders took platform credit on an
// installment and books recovered borrower cash against the platform's
// receivable.
type ReceivableSettler interface {
	CoveredSharesTx(ctx context.Context, tx *sqlx.Tx, installmentID uuid.UUID) ([]CoveredShare, error)
	SettleReceivableTx(ctx context.Context, tx *sqlx.Tx, installmentID uuid.UUID, amount decimal.Decimal) error
}

// CoveredShare is one lender's slice of an installment already settled
// with platform credit. AmountDue is the lender's gross share of the
// installment; Credits is what the platform paid for it.
type CoveredShare struct {
	LenderID  uuid.UUID
	AmountDue decimal.Decimal
	Credits   decimal.Decimal
}

// NotificationService dispatches repayment events, fire-and-forget.
type NotificationService interface {
	NotifyPaymentOverdue(ctx context.Context, borrowerID, installmentID uuid.UUID, daysLate int)
	NotifyInvestmentMatured(ctx context.Context, lenderID, loanID uuid.UUID)
}

// Service generates repayment schedules and settles borrower payments
// across the loan's holdings.
type Service struct {
	repo        *Repository
	listingRepo *marketplace.Repository
	holdingRepo *holding.Repository
	userRepo    *user.Repository
	ledger      *ledger.Service
	calc        *fees.Calculator
	settler     ReceivableSettler
	notifier    NotificationService
}

func NewService(repo *Repository, listingRepo *marketplace.Repository, holdingRepo *holding.Repository, userRepo *user.Repository, ledgerSvc *ledger.Service, calc *fees.Calculator) *Service {
	return &Service{
		repo:        repo,
		listingRepo: listingRepo,
		holdingRepo: holdingRepo,
		userRepo:    userRepo,
		ledger:      ledgerSvc,
		calc:        calc,
	}
}

// SetReceivableSettler wires the coverage receivable settlement.
func (s *Service) SetReceivableSettler(r ReceivableSettler) {
	s.settler = r
}

// SetNotificationService sets the notification service (optional)
func (s *Service) SetNotificationService(n NotificationService) {
	s.notifier = n
}

// GenerateScheduleTx writes the loan's amortized installment schedule
// inside the funding transaction. Each installment due amount is the
// full monthly payment, tenure and collection fees included.
func (s *Service) GenerateScheduleTx(ctx context.Context, tx *sqlx.Tx, loanID, borrowerID uuid.UUID, principal decimal.Decimal, termMonths int, annualRatePercent decimal.Decimal) error {
	breakdown := s.calc.BorrowerFees(principal, termMonths, annualRatePercent)

	now := time.Now()
	installments := make([]Installment, 0, termMonths)
	for n := 1; n <= termMonths; n++ {
		installments = append(installments, Installment{
			ID:                uuid.New(),
			LoanID:            loanID,
			BorrowerID:        borrowerID,
			InstallmentNumber: n,
			DueDate:           now.AddDate(0, n, 0),
			AmountDue:         breakdown.TotalMonthlyPayment,
			PaidAmount:        decimal.Zero,
			LateFee:           decimal.Zero,
			Status:            InstallmentPending,
			CreatedAt:         now,
			UpdatedAt:         now,
		})
	}
	return s.repo.CreateScheduleTx(ctx, tx, installments)
}

// Schedule returns a loan's installments. Visible to the borrower and
// to lenders holding a stake in the loan.
func (s *Service) Schedule(ctx context.Context, requesterID, loanID uuid.UUID) ([]Installment, error) {
	listing, err := s.listingRepo.GetListing(ctx, loanID)
	if err != nil {
		return nil, err
	}
	if listing.BorrowerID != requesterID {
		holdings, err := s.holdingRepo.ListActiveByLoan(ctx, loanID)
		if err != nil {
			return nil, err
		}
		invested := false
		for i := range holdings {
			if holdings[i].LenderID == requesterID {
				invested = true
				break
			}
		}
		if !invested {
			return nil, ErrNotScheduleViewer
		}
	}
	return s.repo.ListByLoan(ctx, loanID)
}

// MyInstallments returns a borrower's installments across loans, soonest
// due first.
func (s *Service) MyInstallments(ctx context.Context, borrowerID uuid.UUID, limit, offset int) ([]Installment, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.repo.ListByBorrower(ctx, borrowerID, limit, offset)
}

// RecordPayment settles one installment with borrower cash, all in one
// transaction: the borrower's cash wallet is debited the outstanding
// amount and each active holding owner's cash wallet is credited their
// net monthly return plus their share of any late fee. Lenders who
// accepted platform coverage on the installment were already
// compensated with credits, so their slice of the cash routes to the
// platform's receivable instead; lenders who declined are still paid.
// Paying the final installment completes the loan and clears the
// borrower's first-time restriction.
func (s *Service) RecordPayment(ctx context.Context, borrowerID, loanID, installmentID uuid.UUID, amount decimal.Decimal) (*Installment, error) {
	listing, err := s.listingRepo.GetListing(ctx, loanID)
	if err != nil {
		return nil, err
	}

	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	inst, err := s.repo.GetByIDForUpdate(ctx, tx, installmentID)
	if err != nil {
		return nil, err
	}
	if inst.LoanID != loanID {
		return nil, ErrInstallmentNotFound
	}
	if inst.BorrowerID != borrowerID {
		return nil, ErrNotBorrower
	}
	if !inst.IsPayable() {
		return nil, ErrInstallmentNotPayable
	}
	if !amount.Equal(inst.Outstanding()) {
		return nil, ErrPaymentMismatch
	}

	if _, err := s.ledger.DebitTx(ctx, tx, borrowerID, ledger.WalletCash, amount,
		ledger.EntryTypeLoanRepayment, inst.ID.String(), "loan repayment"); err != nil {
		return nil, err
	}

	remaining, err := s.repo.CountUnsettledTx(ctx, tx, loanID, inst.ID)
	if err != nil {
		return nil, err
	}
	lastInstallment := remaining == 0

	if err := s.distributeTx(ctx, tx, listing, inst, lastInstallment); err != nil {
		return nil, err
	}

	now := time.Now()
	if err := s.repo.RecordPaymentTx(ctx, tx, inst.ID, amount, InstallmentPaid, now); err != nil {
		return nil, err
	}

	var maturedLenders []uuid.UUID
	if lastInstallment {
		if err := s.userRepo.IncrementCompletedLoansTx(ctx, tx, borrowerID); err != nil {
			return nil, err
		}
		holdings, err := s.holdingRepo.ListActiveByLoanTx(ctx, tx, loanID)
		if err != nil {
			return nil, err
		}
		for i := range holdings {
			maturedLenders = append(maturedLenders, holdings[i].LenderID)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	inst.PaidAmount = inst.PaidAmount.Add(amount)
	inst.Status = InstallmentPaid
	inst.PaidAt = &now

	log.Info().
		Str("installment_id", inst.ID.String()).
		Str("loan_id", loanID.String()).
		Str("amount", amount.String()).
		Bool("loan_completed", lastInstallment).
		Msg("installment paid")

	if s.notifier != nil {
		for _, lenderID := range maturedLenders {
			s.notifier.NotifyInvestmentMatured(ctx, lenderID, loanID)
		}
	}
	return inst, nil
}

// distributeTx pays each active holding its net return and reduces its
// outstanding principal. Holdings whose lender accepted coverage on the
// installment are skipped: the platform stepped into their position at
// accept time, so their cash slice settles the receivable instead.
func (s *Service) distributeTx(ctx context.Context, tx *sqlx.Tx, listing *marketplace.Listing, inst *Installment, lastInstallment bool) error {
	holdings, err := s.holdingRepo.ListActiveByLoanTx(ctx, tx, listing.ID)
	if err != nil {
		return err
	}

	covered := map[uuid.UUID]decimal.Decimal{}
	if inst.Status == InstallmentCovered && s.settler != nil {
		shares, err := s.settler.CoveredSharesTx(ctx, tx, inst.ID)
		if err != nil {
			return err
		}
		for i := range shares {
			cs := &shares[i]
			covered[cs.LenderID] = cs.AmountDue.Sub(cs.Credits)
		}
	}

	baseMonthly := s.calc.MonthlyPayment(listing.FundingGoal, listing.TermMonths,
		listing.RequestedRate.Mul(decimal.NewFromInt(100)))
	lenderLateShare := decimal.Zero
	if inst.LateFee.IsPositive() {
		lenderLateShare = inst.LateFee.Mul(s.calc.Schedule().LateFeeLenderShare).Div(decimal.NewFromInt(100))
	}

	recovered := decimal.Zero
	for i := range holdings {
		h := &holdings[i]

		if slice, ok := covered[h.LenderID]; ok {
			// Compensated with credits and amortized at accept. The
			// cash remainder of this share, late slice included,
			// belongs to the platform.
			if lenderLateShare.IsPositive() {
				slice = slice.Add(lenderLateShare.Mul(h.SharePercentage))
			}
			recovered = recovered.Add(slice)
			continue
		}

		lf := s.calc.LenderFees(h.PrincipalAmount, listing.FundingGoal, baseMonthly)

		payout := lf.NetMonthlyReturn
		if lenderLateShare.IsPositive() {
			payout = payout.Add(lenderLateShare.Mul(h.SharePercentage))
		}

		if _, err := s.ledger.CreditTx(ctx, tx, h.LenderID, ledger.WalletCash, payout,
			ledger.EntryTypeInvestmentReturn, inst.ID.String(), "monthly investment return"); err != nil {
			return err
		}

		reduction := h.PrincipalAmount.Div(decimal.NewFromInt(int64(listing.TermMonths)))
		if lastInstallment {
			reduction = h.OutstandingBalance
		}
		if _, err := s.holdingRepo.ApplyRepaymentTx(ctx, tx, h.ID, reduction); err != nil {
			return err
		}
	}

	if recovered.IsPositive() {
		return s.settler.SettleReceivableTx(ctx, tx, inst.ID, recovered)
	}
	return nil
}

// MarkLate sweeps due pending installments into the late state,
// stamping each with a late fee computed from the borrower's remaining
// loan obligation.
func (s *Service) MarkLate(ctx context.Context) (int, error) {
	newlyLate, err := s.repo.MarkLate(ctx, time.Now(), func(inst *Installment) decimal.Decimal {
		remaining, err := s.repo.SumOutstandingByLoan(ctx, inst.LoanID)
		if err != nil {
			log.Error().Err(err).Str("loan_id", inst.LoanID.String()).Msg("failed to compute remaining balance")
			remaining = inst.AmountDue
		}
		return s.calc.LateFee(remaining).Total
	})
	if err != nil {
		return len(newlyLate), err
	}

	if s.notifier != nil {
		for i := range newlyLate {
			inst := &newlyLate[i]
			s.notifier.NotifyPaymentOverdue(ctx, inst.BorrowerID, inst.ID, inst.DaysLate)
		}
	}
	return len(newlyLate), nil
}

// GetInstallment returns one installment.
func (s *Service) GetInstallment(ctx context.Context, id uuid.UUID) (*Installment, error) {
	return s.repo.GetByID(ctx, id)
}
