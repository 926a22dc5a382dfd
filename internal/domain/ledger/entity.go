package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// WalletType selects one of the two balances every user holds.
type WalletType string

const (
	// WalletCash is withdrawable money.
	WalletCash WalletType = "cash"
	// WalletCredit is non-withdrawable, in-ecosystem credit.
	WalletCredit WalletType = "credit"
)

// EntryType classifies a ledger entry.
type EntryType string

const (
	EntryTypeDeposit           EntryType = "deposit"
	EntryTypeWithdrawal        EntryType = "withdrawal"
	EntryTypeInvestment        EntryType = "investment"
	EntryTypeInvestmentReturn  EntryType = "investment_return"
	EntryTypeInvestmentRefund  EntryType = "investment_refund"
	EntryTypeLoanDisbursement  EntryType = "loan_disbursement"
	EntryTypeLoanRepayment     EntryType = "loan_repayment"
	EntryTypeSecondarySale     EntryType = "secondary_sale"
	EntryTypeSecondaryPurchase EntryType = "secondary_purchase"
	EntryTypeDealFee           EntryType = "deal_fee"
	EntryTypePaymentCoverage   EntryType = "payment_coverage"
	EntryTypeLateFee           EntryType = "late_fee"
	EntryTypeReferralBonus     EntryType = "referral_bonus"
)

// Wallet is the cached balance for one (user, wallet type) pair.
// The balance always equals the sum of that pair's ledger entries.
type Wallet struct {
	UserID     uuid.UUID       `db:"user_id" json:"user_id"`
	WalletType WalletType      `db:"wallet_type" json:"wallet_type"`
	Balance    decimal.Decimal `db:"balance" json:"balance"`
	UpdatedAt  time.Time       `db:"updated_at" json:"updated_at"`
}

// Entry is an append-only ledger row. Amount is signed: credits are
// positive, debits negative.
type Entry struct {
	ID          uuid.UUID       `db:"id" json:"id"`
	UserID      uuid.UUID       `db:"user_id" json:"user_id"`
	WalletType  WalletType      `db:"wallet_type" json:"wallet_type"`
	Amount      decimal.Decimal `db:"amount" json:"amount"`
	Type        EntryType       `db:"type" json:"type"`
	ReferenceID *string         `db:"reference_id" json:"reference_id,omitempty"`
	Notes       string          `db:"notes" json:"notes,omitempty"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
}
