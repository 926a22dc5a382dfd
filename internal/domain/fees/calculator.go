package fees

import (
	"github.com/shopspring/decimal"
)

var (
	hundred     = decimal.NewFromInt(100)
	twelve      = decimal.NewFromInt(12)
	daysPerYear = decimal.NewFromInt(365)
)

// Calculator computes every fee in the system from a Schedule.
// All methods are pure; amounts in, amounts out.
type Calculator struct {
	schedule Schedule
}

// NewCalculator creates a calculator over the given fee schedule.
func NewCalculator(schedule Schedule) *Calculator {
	return &Calculator{schedule: schedule}
}

// Schedule returns the underlying fee schedule.
func (c *Calculator) Schedule() Schedule {
	return c.schedule
}

// BorrowerFeeBreakdown is the full cost of a marketplace loan to the borrower.
type BorrowerFeeBreakdown struct {
	ServiceFee          decimal.Decimal `json:"service_fee"`
	InsuranceFee        decimal.Decimal `json:"insurance_fee"`
	TotalUpfrontFees    decimal.Decimal `json:"total_upfront_fees"`
	NetDisbursed        decimal.Decimal `json:"net_disbursed"`
	BaseMonthlyPayment  decimal.Decimal `json:"base_monthly_payment"`
	TenureFee           decimal.Decimal `json:"tenure_fee"`
	CollectionFee       decimal.Decimal `json:"collection_fee"`
	TotalMonthlyPayment decimal.Decimal `json:"total_monthly_payment"`
}

// LenderFeeBreakdown is the lender side: upfront fees plus monthly return.
type LenderFeeBreakdown struct {
	ServiceFee         decimal.Decimal `json:"service_fee"`
	InsuranceFee       decimal.Decimal `json:"insurance_fee"`
	TotalUpfrontFees   decimal.Decimal `json:"total_upfront_fees"`
	NetInvestment      decimal.Decimal `json:"net_investment"`
	GrossMonthlyReturn decimal.Decimal `json:"gross_monthly_return"`
	CollectionFee      decimal.Decimal `json:"collection_fee"`
	NetMonthlyReturn   decimal.Decimal `json:"net_monthly_return"`
}

// LateFeeBreakdown splits a late fee between platform and lender.
type LateFeeBreakdown struct {
	Total         decimal.Decimal `json:"total"`
	PlatformShare decimal.Decimal `json:"platform_share"`
	LenderShare   decimal.Decimal `json:"lender_share"`
}

// RecoveryBreakdown describes post-default recovery for one lender.
type RecoveryBreakdown struct {
	RecoveryFee      decimal.Decimal `json:"recovery_fee"`
	NetRecovered     decimal.Decimal `json:"net_recovered"`
	LenderGrossShare decimal.Decimal `json:"lender_gross_share"`
	LenderNetShare   decimal.Decimal `json:"lender_net_share"`
	LenderLoss       decimal.Decimal `json:"lender_loss"`
}

func pct(amount, percent decimal.Decimal) decimal.Decimal {
	return amount.Mul(percent).Div(hundred)
}

// MonthlyPayment returns the amortized monthly payment
// P*r(1+r)^n / ((1+r)^n - 1) with r the monthly rate. A zero rate
// degenerates to straight division, avoiding the zero denominator.
func (c *Calculator) MonthlyPayment(principal decimal.Decimal, termMonths int, annualRatePercent decimal.Decimal) decimal.Decimal {
	if termMonths <= 0 {
		return decimal.Zero
	}
	n := decimal.NewFromInt(int64(termMonths))
	if annualRatePercent.IsZero() {
		return principal.Div(n)
	}

	r := annualRatePercent.Div(hundred).Div(twelve)
	compound := decimal.NewFromInt(1).Add(r).Pow(n)
	return principal.Mul(r).Mul(compound).Div(compound.Sub(decimal.NewFromInt(1)))
}

// BorrowerFees computes upfront and monthly fees for a marketplace loan.
// Upfront fees come out of the disbursed amount; monthly fees stack on
// top of the amortized payment.
func (c *Calculator) BorrowerFees(amount decimal.Decimal, termMonths int, annualRatePercent decimal.Decimal) BorrowerFeeBreakdown {
	service := pct(amount, c.schedule.BorrowerServicePercent)
	insurance := pct(amount, c.schedule.BorrowerInsurancePercent)
	upfront := service.Add(insurance)

	base := c.MonthlyPayment(amount, termMonths, annualRatePercent)
	tenure := pct(amount, c.schedule.TenureFeePercent)
	collection := pct(base, c.schedule.BorrowerCollectionPercent)

	return BorrowerFeeBreakdown{
		ServiceFee:          service,
		InsuranceFee:        insurance,
		TotalUpfrontFees:    upfront,
		NetDisbursed:        amount.Sub(upfront),
		BaseMonthlyPayment:  base,
		TenureFee:           tenure,
		CollectionFee:       collection,
		TotalMonthlyPayment: base.Add(tenure).Add(collection),
	}
}

// LenderFees computes the legacy lender fee structure (5% insurance).
func (c *Calculator) LenderFees(investment, loanAmount, monthlyPayment decimal.Decimal) LenderFeeBreakdown {
	return c.lenderFees(investment, loanAmount, monthlyPayment, c.schedule.LenderInsurancePercent)
}

// InvestmentLenderFees computes the newer investment-creation fee
// structure (3% insurance). Both variants stay live because existing
// holdings were priced under the legacy one.
func (c *Calculator) InvestmentLenderFees(investment, loanAmount, monthlyPayment decimal.Decimal) LenderFeeBreakdown {
	return c.lenderFees(investment, loanAmount, monthlyPayment, c.schedule.LenderInsuranceAltPercent)
}

func (c *Calculator) lenderFees(investment, loanAmount, monthlyPayment, insurancePercent decimal.Decimal) LenderFeeBreakdown {
	service := pct(investment, c.schedule.LenderServicePercent)
	insurance := pct(investment, insurancePercent)
	upfront := service.Add(insurance)
	net := investment.Sub(upfront)

	var gross decimal.Decimal
	if loanAmount.IsPositive() {
		gross = monthlyPayment.Mul(net.Div(loanAmount))
	}
	collection := pct(gross, c.schedule.LenderCollectionPercent)

	return LenderFeeBreakdown{
		ServiceFee:         service,
		InsuranceFee:       insurance,
		TotalUpfrontFees:   upfront,
		NetInvestment:      net,
		GrossMonthlyReturn: gross,
		CollectionFee:      collection,
		NetMonthlyReturn:   gross.Sub(collection),
	}
}

// LateFee is max(LateFeePercent of the remaining balance, LateFeeMinimum),
// split between platform and lender.
func (c *Calculator) LateFee(remainingBalance decimal.Decimal) LateFeeBreakdown {
	total := pct(remainingBalance, c.schedule.LateFeePercent)
	if total.LessThan(c.schedule.LateFeeMinimum) {
		total = c.schedule.LateFeeMinimum
	}

	platform := pct(total, c.schedule.LateFeePlatformShare)
	return LateFeeBreakdown{
		Total:         total,
		PlatformShare: platform,
		LenderShare:   total.Sub(platform),
	}
}

// DealFee is the platform cut on a secondary-market sale, deducted from
// seller proceeds.
func (c *Calculator) DealFee(salePrice decimal.Decimal) decimal.Decimal {
	return pct(salePrice, c.schedule.DealFeePercent)
}

// RecoveryFees applies the recovery fee to a collected amount and
// allocates one lender's pro-rata share by investment proportion.
func (c *Calculator) RecoveryFees(collected, lenderInvestment, totalLoanAmount decimal.Decimal) RecoveryBreakdown {
	fee := pct(collected, c.schedule.RecoveryFeePercent)
	net := collected.Sub(fee)

	var grossShare, netShare decimal.Decimal
	if totalLoanAmount.IsPositive() {
		proportion := lenderInvestment.Div(totalLoanAmount)
		grossShare = collected.Mul(proportion)
		netShare = net.Mul(proportion)
	}

	return RecoveryBreakdown{
		RecoveryFee:      fee,
		NetRecovered:     net,
		LenderGrossShare: grossShare,
		LenderNetShare:   netShare,
		LenderLoss:       lenderInvestment.Sub(netShare),
	}
}

// CoveragePercentage decays from the start percentage by DecayPerDay for
// each day late, never below the floor.
func (c *Calculator) CoveragePercentage(daysLate int) decimal.Decimal {
	p := c.schedule.CoverageStartPercent.Sub(c.schedule.CoverageDecayPerDay.Mul(decimal.NewFromInt(int64(daysLate))))
	if p.LessThan(c.schedule.CoverageFloorPercent) {
		return c.schedule.CoverageFloorPercent
	}
	return p
}

// CoverageAmount is the credit offered in lieu of a late cash installment.
func (c *Calculator) CoverageAmount(amountDue decimal.Decimal, daysLate int) decimal.Decimal {
	return amountDue.Mul(c.CoveragePercentage(daysLate)).Div(hundred)
}

// DirectLoanFee looks up the fee percentage for a ZimScore and returns
// the fixed finance fee for the amount.
func (c *Calculator) DirectLoanFee(amount decimal.Decimal, score int) (fee decimal.Decimal, feePercent decimal.Decimal) {
	tier := c.tierForScore(score)
	return pct(amount, tier.FeePercent), tier.FeePercent
}

// MaxDirectLoanAmount returns the lending ceiling for a ZimScore.
func (c *Calculator) MaxDirectLoanAmount(score int) decimal.Decimal {
	return c.tierForScore(score).MaxLoanAmount
}

func (c *Calculator) tierForScore(score int) ScoreTier {
	for _, tier := range c.schedule.DirectLoanTiers {
		if score >= tier.MinScore {
			return tier
		}
	}
	// The tier table always ends at MinScore 0.
	return c.schedule.DirectLoanTiers[len(c.schedule.DirectLoanTiers)-1]
}

// APR annualizes a fixed fee over a loan duration, for disclosure only.
// Rounded to 2 decimals.
func (c *Calculator) APR(principal, fee decimal.Decimal, days int) decimal.Decimal {
	if !principal.IsPositive() || days <= 0 {
		return decimal.Zero
	}
	return fee.Div(principal).Mul(hundred).Mul(daysPerYear.Div(decimal.NewFromInt(int64(days)))).Round(2)
}
