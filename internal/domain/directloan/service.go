package directloan

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/Jothum123/Zimcrowd-Web-sub000/internal/domain/fees"
	"github.com/Jothum123/Zimcrowd-Web-sub000/internal/domain/ledger"
	"github.com/Jothum123/Zimcrowd-Web-sub000/internal/domain/user"
)

// defaultGraceDays is how long a late direct loan sits before it is
// written off as defaulted.
const defaultGraceDays = 60

// Service prices, signs and settles platform-funded direct loans.
type Service struct {
	repo     *Repository
	userRepo *user.Repository
	ledger   *ledger.Service
	calc     *fees.Calculator
}

func NewService(repo *Repository, userRepo *user.Repository, ledgerSvc *ledger.Service, calc *fees.Calculator) *Service {
	return &Service{
		repo:     repo,
		userRepo: userRepo,
		ledger:   ledgerSvc,
		calc:     calc,
	}
}

// CreateOffer prices a direct loan for the user's ZimScore. The offer
// holds for 24 hours; signing it makes it binding.
func (s *Service) CreateOffer(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, durationDays int) (*Loan, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if durationDays < 1 || durationDays > 365 {
		return nil, ErrInvalidDuration
	}

	score, err := s.userRepo.GetScore(ctx, userID)
	if err != nil {
		return nil, err
	}

	maxAmount := s.calc.MaxDirectLoanAmount(score.Score)
	if amount.GreaterThan(maxAmount) {
		return nil, &LimitError{MaxAmount: maxAmount}
	}

	fee, feePercent := s.calc.DirectLoanFee(amount, score.Score)
	now := time.Now()
	loan := &Loan{
		ID:             uuid.New(),
		UserID:         userID,
		Amount:         amount,
		DurationDays:   durationDays,
		Score:          score.Score,
		FeePercent:     feePercent,
		Fee:            fee,
		TotalRepayment: amount.Add(fee),
		APR:            s.calc.APR(amount, fee, durationDays),
		AmountPaid:     decimal.Zero,
		Status:         StatusOffered,
		OfferExpiresAt: now.Add(s.calc.Schedule().DirectLoanOfferTTL),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.Create(ctx, loan); err != nil {
		return nil, err
	}

	log.Info().
		Str("loan_id", loan.ID.String()).
		Str("user_id", userID.String()).
		Str("amount", amount.String()).
		Str("fee", fee.String()).
		Msg("direct loan offer created")
	return loan, nil
}

// AcceptOffer signs the offer. The typed name plus the caller's IP and
// a timestamp form the acceptance artifact.
func (s *Service) AcceptOffer(ctx context.Context, userID, loanID uuid.UUID, signatureName, ip string) (*Loan, error) {
	if len(strings.TrimSpace(signatureName)) < 3 {
		return nil, ErrInvalidSignature
	}

	loan, err := s.repo.GetByID(ctx, loanID)
	if err != nil {
		return nil, err
	}
	if loan.UserID != userID {
		return nil, ErrNotLoanOwner
	}
	if loan.Status != StatusOffered {
		return nil, ErrOfferNotPending
	}
	now := time.Now()
	if loan.IsOfferExpired(now) {
		if err := s.repo.UpdateStatus(ctx, loanID, StatusExpired); err != nil {
			return nil, err
		}
		return nil, ErrOfferExpired
	}

	name := strings.TrimSpace(signatureName)
	if err := s.repo.Sign(ctx, loanID, name, ip, now); err != nil {
		return nil, err
	}

	loan.Status = StatusSigned
	loan.SignatureName = &name
	loan.SignatureIP = &ip
	loan.SignedAt = &now

	log.Info().
		Str("loan_id", loanID.String()).
		Str("signed_by", name).
		Str("ip", ip).
		Msg("direct loan signed")
	return loan, nil
}

// Disburse credits the borrower's cash wallet with the principal and
// starts the repayment clock.
func (s *Service) Disburse(ctx context.Context, loanID uuid.UUID) (*Loan, error) {
	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	loan, err := s.repo.GetByIDForUpdate(ctx, tx, loanID)
	if err != nil {
		return nil, err
	}
	if loan.Status != StatusSigned {
		return nil, ErrNotSigned
	}

	if _, err := s.ledger.CreditTx(ctx, tx, loan.UserID, ledger.WalletCash, loan.Amount,
		ledger.EntryTypeLoanDisbursement, loan.ID.String(), "direct loan disbursement"); err != nil {
		return nil, err
	}

	now := time.Now()
	dueDate := now.AddDate(0, 0, loan.DurationDays)
	if err := s.repo.DisburseTx(ctx, tx, loanID, now, dueDate); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	loan.Status = StatusDisbursed
	loan.DisbursedAt = &now
	loan.DueDate = &dueDate

	log.Info().
		Str("loan_id", loanID.String()).
		Str("amount", loan.Amount.String()).
		Msg("direct loan disbursed")
	return loan, nil
}

// RecordRepayment books borrower cash against the loan. Partial
// repayments accumulate; meeting the total marks the loan repaid.
func (s *Service) RecordRepayment(ctx context.Context, userID, loanID uuid.UUID, amount decimal.Decimal, referenceID string) (*Loan, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	loan, err := s.repo.GetByIDForUpdate(ctx, tx, loanID)
	if err != nil {
		return nil, err
	}
	if loan.UserID != userID {
		return nil, ErrNotLoanOwner
	}
	if !loan.IsRepayable() {
		return nil, ErrNotRepayable
	}
	if amount.GreaterThan(loan.Remaining()) {
		amount = loan.Remaining()
	}

	if referenceID == "" {
		referenceID = uuid.New().String()
	}
	if _, err := s.ledger.DebitTx(ctx, tx, userID, ledger.WalletCash, amount,
		ledger.EntryTypeLoanRepayment, referenceID, "direct loan repayment"); err != nil {
		return nil, err
	}

	newPaid := loan.AmountPaid.Add(amount)
	repaid := newPaid.GreaterThanOrEqual(loan.TotalRepayment)
	if err := s.repo.RecordRepaymentTx(ctx, tx, loanID, amount, repaid); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	loan.AmountPaid = newPaid
	if repaid {
		loan.Status = StatusRepaid
	}

	log.Info().
		Str("loan_id", loanID.String()).
		Str("amount", amount.String()).
		Bool("repaid", repaid).
		Msg("direct loan repayment recorded")
	return loan, nil
}

// GetLoan returns one direct loan, visible to its borrower.
func (s *Service) GetLoan(ctx context.Context, userID, loanID uuid.UUID) (*Loan, error) {
	loan, err := s.repo.GetByID(ctx, loanID)
	if err != nil {
		return nil, err
	}
	if loan.UserID != userID {
		return nil, ErrNotLoanOwner
	}
	return loan, nil
}

// MyLoans returns the user's direct loans, newest first.
func (s *Service) MyLoans(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Loan, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.repo.ListByUser(ctx, userID, limit, offset)
}

// ExpireOffers lapses unsigned offers past their 24-hour window.
func (s *Service) ExpireOffers(ctx context.Context) (int64, error) {
	return s.repo.ExpireOffers(ctx, time.Now())
}

// MarkLate flags disbursed loans past their due date.
func (s *Service) MarkLate(ctx context.Context) (int64, error) {
	return s.repo.MarkLate(ctx, time.Now())
}

// MarkDefaulted writes off loans late beyond the grace window.
func (s *Service) MarkDefaulted(ctx context.Context) (int64, error) {
	return s.repo.MarkDefaulted(ctx, time.Now().AddDate(0, 0, -defaultGraceDays))
}
