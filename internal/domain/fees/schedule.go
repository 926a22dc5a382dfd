package fees

import (
	"time"

	"github.com/shopspring/decimal"
)

// ScoreTier maps a minimum ZimScore to direct-loan terms.
// Tiers are matched in descending MinScore order, first match wins.
type ScoreTier struct {
	MinScore      int
	FeePercent    decimal.Decimal
	MaxLoanAmount decimal.Decimal
}

// Schedule holds every fee percentage and program constant. These change
// by product tier and must be auditable, so they are named values here
// rather than literals at call sites.
type Schedule struct {
	// Borrower upfront fees, percent of principal
	BorrowerServicePercent   decimal.Decimal
	BorrowerInsurancePercent decimal.Decimal

	// Borrower monthly fees
	TenureFeePercent             decimal.Decimal // of principal, per month
	BorrowerCollectionPercent    decimal.Decimal // of the amortized payment

	// Lender upfront fees, percent of investment
	LenderServicePercent         decimal.Decimal
	LenderInsurancePercent       decimal.Decimal // legacy path
	LenderInsuranceAltPercent    decimal.Decimal // newer investment-creation path
	LenderCollectionPercent      decimal.Decimal // of gross monthly return

	// Late fees
	LateFeePercent        decimal.Decimal
	LateFeeMinimum        decimal.Decimal
	LateFeePlatformShare  decimal.Decimal
	LateFeeLenderShare    decimal.Decimal

	// Secondary market
	DealFeePercent decimal.Decimal

	// Post-default recovery
	RecoveryFeePercent decimal.Decimal

	// Payment coverage
	CoverageStartPercent    decimal.Decimal
	CoverageDecayPerDay     decimal.Decimal
	CoverageFloorPercent    decimal.Decimal

	// Marketplace program constants
	ColdStartCeiling decimal.Decimal
	MaxListingRate   decimal.Decimal

	// Offer and listing lifetimes
	FundingOfferTTL     time.Duration
	PurchaseOfferTTL    time.Duration
	SecondaryListingTTL time.Duration
	CoverageOfferTTL    time.Duration
	DirectLoanOfferTTL  time.Duration
	ListingFundingTTL   time.Duration

	// Direct loan score tiers, descending by MinScore
	DirectLoanTiers []ScoreTier
}

// DefaultSchedule returns the current production fee schedule.
func DefaultSchedule() Schedule {
	return Schedule{
		BorrowerServicePercent:   decimal.NewFromInt(10),
		BorrowerInsurancePercent: decimal.NewFromInt(5),

		TenureFeePercent:          decimal.NewFromInt(1),
		BorrowerCollectionPercent: decimal.NewFromInt(5),

		LenderServicePercent:      decimal.NewFromInt(10),
		LenderInsurancePercent:    decimal.NewFromInt(5),
		LenderInsuranceAltPercent: decimal.NewFromInt(3),
		LenderCollectionPercent:   decimal.NewFromInt(5),

		LateFeePercent:       decimal.NewFromInt(10),
		LateFeeMinimum:       decimal.NewFromInt(50),
		LateFeePlatformShare: decimal.NewFromInt(95),
		LateFeeLenderShare:   decimal.NewFromInt(5),

		DealFeePercent: decimal.NewFromInt(2),

		RecoveryFeePercent: decimal.NewFromInt(30),

		CoverageStartPercent: decimal.NewFromInt(80),
		CoverageDecayPerDay:  decimal.NewFromInt(2),
		CoverageFloorPercent: decimal.NewFromInt(50),

		ColdStartCeiling: decimal.NewFromInt(100),
		MaxListingRate:   decimal.NewFromFloat(0.10),

		FundingOfferTTL:     7 * 24 * time.Hour,
		PurchaseOfferTTL:    7 * 24 * time.Hour,
		SecondaryListingTTL: 30 * 24 * time.Hour,
		CoverageOfferTTL:    180 * 24 * time.Hour,
		DirectLoanOfferTTL:  24 * time.Hour,
		ListingFundingTTL:   30 * 24 * time.Hour,

		DirectLoanTiers: []ScoreTier{
			{MinScore: 90, FeePercent: decimal.NewFromInt(5), MaxLoanAmount: decimal.NewFromInt(1000)},
			{MinScore: 80, FeePercent: decimal.NewFromInt(6), MaxLoanAmount: decimal.NewFromInt(750)},
			{MinScore: 70, FeePercent: decimal.NewFromInt(7), MaxLoanAmount: decimal.NewFromInt(500)},
			{MinScore: 60, FeePercent: decimal.NewFromInt(8), MaxLoanAmount: decimal.NewFromInt(400)},
			{MinScore: 50, FeePercent: decimal.NewFromInt(9), MaxLoanAmount: decimal.NewFromInt(300)},
			{MinScore: 40, FeePercent: decimal.NewFromInt(10), MaxLoanAmount: decimal.NewFromInt(200)},
			{MinScore: 0, FeePercent: decimal.NewFromInt(12), MaxLoanAmount: decimal.NewFromInt(100)},
		},
	}
}
