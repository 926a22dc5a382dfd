package ledger

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// Service is the single entry point for every balance mutation in the
// system. Nothing else writes wallet balances.
type Service struct {
	repo *Repository
}

func NewService(repo *Repository) *Service {
	return &Service{repo: repo}
}

func validWalletType(wt WalletType) bool {
	return wt == WalletCash || wt == WalletCredit
}

func (s *Service) GetBalance(ctx context.Context, userID uuid.UUID, walletType WalletType) (decimal.Decimal, error) {
	if !validWalletType(walletType) {
		return decimal.Zero, ErrInvalidWalletType
	}
	return s.repo.GetBalance(ctx, userID, walletType)
}

func (s *Service) ListEntries(ctx context.Context, userID uuid.UUID, walletType WalletType, limit, offset int) ([]Entry, error) {
	if !validWalletType(walletType) {
		return nil, ErrInvalidWalletType
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListEntries(ctx, userID, walletType, limit, offset)
}

// Credit adds amount to a wallet. Amount must be strictly positive.
func (s *Service) Credit(ctx context.Context, userID uuid.UUID, walletType WalletType, amount decimal.Decimal, entryType EntryType, referenceID, notes string) (decimal.Decimal, error) {
	if err := s.validate(walletType, amount); err != nil {
		return decimal.Zero, err
	}
	balance, err := s.repo.Credit(ctx, userID, walletType, amount, entryType, referenceID, notes)
	if err != nil {
		return decimal.Zero, err
	}
	log.Info().
		Str("user_id", userID.String()).
		Str("wallet", string(walletType)).
		Str("type", string(entryType)).
		Str("amount", amount.String()).
		Str("reference_id", referenceID).
		Msg("ledger credit applied")
	return balance, nil
}

// Debit removes amount from a wallet, failing with ErrInsufficientFunds
// if the balance would go negative.
func (s *Service) Debit(ctx context.Context, userID uuid.UUID, walletType WalletType, amount decimal.Decimal, entryType EntryType, referenceID, notes string) (decimal.Decimal, error) {
	if err := s.validate(walletType, amount); err != nil {
		return decimal.Zero, err
	}
	balance, err := s.repo.Debit(ctx, userID, walletType, amount, entryType, referenceID, notes)
	if err != nil {
		return decimal.Zero, err
	}
	log.Info().
		Str("user_id", userID.String()).
		Str("wallet", string(walletType)).
		Str("type", string(entryType)).
		Str("amount", amount.String()).
		Str("reference_id", referenceID).
		Msg("ledger debit applied")
	return balance, nil
}

// CreditTx credits within an external transaction so callers can make a
// wallet mutation atomic with their own writes.
func (s *Service) CreditTx(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID, walletType WalletType, amount decimal.Decimal, entryType EntryType, referenceID, notes string) (decimal.Decimal, error) {
	if err := s.validate(walletType, amount); err != nil {
		return decimal.Zero, err
	}
	return s.repo.ApplyTx(ctx, tx, userID, walletType, amount, entryType, referenceID, notes)
}

// DebitTx debits within an external transaction.
func (s *Service) DebitTx(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID, walletType WalletType, amount decimal.Decimal, entryType EntryType, referenceID, notes string) (decimal.Decimal, error) {
	if err := s.validate(walletType, amount); err != nil {
		return decimal.Zero, err
	}
	return s.repo.ApplyTx(ctx, tx, userID, walletType, amount.Neg(), entryType, referenceID, notes)
}

// BeginTx starts a transaction other domains compose wallet mutations into.
func (s *Service) BeginTx(ctx context.Context) (*sqlx.Tx, error) {
	return s.repo.BeginTx(ctx)
}

// Audit verifies the balance invariant for one wallet: the cached
// balance must equal the sum of its ledger entries.
func (s *Service) Audit(ctx context.Context, userID uuid.UUID, walletType WalletType) (bool, error) {
	balance, err := s.repo.GetBalance(ctx, userID, walletType)
	if err != nil {
		return false, err
	}
	sum, err := s.repo.SumEntries(ctx, userID, walletType)
	if err != nil {
		return false, err
	}
	return balance.Equal(sum), nil
}

func (s *Service) validate(walletType WalletType, amount decimal.Decimal) error {
	if !validWalletType(walletType) {
		return ErrInvalidWalletType
	}
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	return nil
}
