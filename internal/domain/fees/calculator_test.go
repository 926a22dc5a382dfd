package fees_test

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/Jothum123/Zimcrowd-Web-sub000/internal/domain/fees"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func newCalc() *fees.Calculator {
	return fees.NewCalculator(fees.DefaultSchedule())
}

func TestBorrowerFeesStandardLoan(t *testing.T) {
	// $1000 at 8% for 12 months
	calc := newCalc()
	b := calc.BorrowerFees(dec("1000"), 12, dec("8"))

	if !b.ServiceFee.Equal(dec("100")) {
		t.Errorf("service fee = %s, want 100", b.ServiceFee)
	}
	if !b.InsuranceFee.Equal(dec("50")) {
		t.Errorf("insurance fee = %s, want 50", b.InsuranceFee)
	}
	if !b.TotalUpfrontFees.Equal(dec("150")) {
		t.Errorf("upfront fees = %s, want 150", b.TotalUpfrontFees)
	}
	if !b.NetDisbursed.Equal(dec("850")) {
		t.Errorf("net disbursed = %s, want 850", b.NetDisbursed)
	}

	if !b.BaseMonthlyPayment.Round(2).Equal(dec("86.99")) {
		t.Errorf("base monthly payment = %s, want ~86.99", b.BaseMonthlyPayment.Round(2))
	}
	if !b.TenureFee.Equal(dec("10")) {
		t.Errorf("tenure fee = %s, want 10", b.TenureFee)
	}
	wantCollection := b.BaseMonthlyPayment.Mul(dec("0.05"))
	if !b.CollectionFee.Equal(wantCollection) {
		t.Errorf("collection fee = %s, want %s", b.CollectionFee, wantCollection)
	}
	wantTotal := b.BaseMonthlyPayment.Add(b.TenureFee).Add(b.CollectionFee)
	if !b.TotalMonthlyPayment.Equal(wantTotal) {
		t.Errorf("total monthly payment = %s, want %s", b.TotalMonthlyPayment, wantTotal)
	}
}

func TestBorrowerFeesRoundTrip(t *testing.T) {
	calc := newCalc()
	amounts := []string{"100", "250.50", "1000", "842.37"}
	for _, a := range amounts {
		amount := dec(a)
		b := calc.BorrowerFees(amount, 12, dec("8"))
		if !b.NetDisbursed.Add(b.TotalUpfrontFees).Equal(amount) {
			t.Errorf("amount %s: net %s + upfront %s != principal", a, b.NetDisbursed, b.TotalUpfrontFees)
		}
	}
}

func TestMonthlyPaymentZeroRate(t *testing.T) {
	calc := newCalc()
	got := calc.MonthlyPayment(dec("1200"), 12, decimal.Zero)
	if !got.Equal(dec("100")) {
		t.Errorf("zero-rate monthly payment = %s, want 100", got)
	}
}

func TestMonthlyPaymentZeroTerm(t *testing.T) {
	calc := newCalc()
	if got := calc.MonthlyPayment(dec("1200"), 0, dec("8")); !got.IsZero() {
		t.Errorf("zero-term monthly payment = %s, want 0", got)
	}
}

func TestLenderFeesRoundTrip(t *testing.T) {
	calc := newCalc()
	investment := dec("500")

	legacy := calc.LenderFees(investment, dec("1000"), dec("86.99"))
	if !legacy.NetInvestment.Add(legacy.TotalUpfrontFees).Equal(investment) {
		t.Errorf("legacy: net %s + upfront %s != investment", legacy.NetInvestment, legacy.TotalUpfrontFees)
	}
	if !legacy.TotalUpfrontFees.Equal(dec("75")) { // 10% + 5%
		t.Errorf("legacy upfront = %s, want 75", legacy.TotalUpfrontFees)
	}

	alt := calc.InvestmentLenderFees(investment, dec("1000"), dec("86.99"))
	if !alt.TotalUpfrontFees.Equal(dec("65")) { // 10% + 3%
		t.Errorf("alt upfront = %s, want 65", alt.TotalUpfrontFees)
	}
	if !alt.NetInvestment.Add(alt.TotalUpfrontFees).Equal(investment) {
		t.Errorf("alt: net %s + upfront %s != investment", alt.NetInvestment, alt.TotalUpfrontFees)
	}
}

func TestLenderFeesMonthlyReturn(t *testing.T) {
	calc := newCalc()
	b := calc.LenderFees(dec("500"), dec("1000"), dec("100"))

	// net = 425, gross = 100 * 425/1000 = 42.5, collection = 2.125
	if !b.GrossMonthlyReturn.Equal(dec("42.5")) {
		t.Errorf("gross return = %s, want 42.5", b.GrossMonthlyReturn)
	}
	if !b.CollectionFee.Equal(dec("2.125")) {
		t.Errorf("collection fee = %s, want 2.125", b.CollectionFee)
	}
	if !b.NetMonthlyReturn.Equal(dec("40.375")) {
		t.Errorf("net return = %s, want 40.375", b.NetMonthlyReturn)
	}
}

func TestLateFee(t *testing.T) {
	calc := newCalc()

	tests := []struct {
		remaining string
		total     string
	}{
		{"1000", "100"}, // 10%
		{"600", "60"},
		{"500", "50"},  // exactly the floor
		{"100", "50"},  // flat minimum kicks in
		{"0", "50"},
	}
	for _, tt := range tests {
		b := calc.LateFee(dec(tt.remaining))
		if !b.Total.Equal(dec(tt.total)) {
			t.Errorf("LateFee(%s) = %s, want %s", tt.remaining, b.Total, tt.total)
		}
		if !b.PlatformShare.Add(b.LenderShare).Equal(b.Total) {
			t.Errorf("LateFee(%s): shares %s + %s != total %s", tt.remaining, b.PlatformShare, b.LenderShare, b.Total)
		}
		wantPlatform := b.Total.Mul(dec("0.95"))
		if !b.PlatformShare.Equal(wantPlatform) {
			t.Errorf("LateFee(%s): platform share = %s, want %s", tt.remaining, b.PlatformShare, wantPlatform)
		}
	}
}

func TestDealFee(t *testing.T) {
	calc := newCalc()
	if got := calc.DealFee(dec("500")); !got.Equal(dec("10")) {
		t.Errorf("DealFee(500) = %s, want 10", got)
	}
}

func TestRecoveryFees(t *testing.T) {
	calc := newCalc()
	// $400 collected on a $1000 loan, lender invested $500
	b := calc.RecoveryFees(dec("400"), dec("500"), dec("1000"))

	if !b.RecoveryFee.Equal(dec("120")) { // 30%
		t.Errorf("recovery fee = %s, want 120", b.RecoveryFee)
	}
	if !b.NetRecovered.Equal(dec("280")) {
		t.Errorf("net recovered = %s, want 280", b.NetRecovered)
	}
	if !b.LenderNetShare.Equal(dec("140")) { // 280 * 0.5
		t.Errorf("lender net share = %s, want 140", b.LenderNetShare)
	}
	if !b.LenderLoss.Equal(dec("360")) { // 500 - 140
		t.Errorf("lender loss = %s, want 360", b.LenderLoss)
	}
}

func TestCoveragePercentage(t *testing.T) {
	calc := newCalc()

	tests := []struct {
		daysLate int
		want     string
	}{
		{0, "80"},
		{1, "78"},
		{10, "60"},
		{15, "50"},
		{16, "50"}, // floor
		{400, "50"},
	}
	for _, tt := range tests {
		if got := calc.CoveragePercentage(tt.daysLate); !got.Equal(dec(tt.want)) {
			t.Errorf("CoveragePercentage(%d) = %s, want %s", tt.daysLate, got, tt.want)
		}
	}
}

func TestCoveragePercentageMonotonic(t *testing.T) {
	calc := newCalc()
	prev := calc.CoveragePercentage(0)
	for d := 1; d <= 60; d++ {
		cur := calc.CoveragePercentage(d)
		if cur.GreaterThan(prev) {
			t.Fatalf("coverage percentage increased at day %d: %s > %s", d, cur, prev)
		}
		if cur.LessThan(dec("50")) {
			t.Fatalf("coverage percentage below floor at day %d: %s", d, cur)
		}
		prev = cur
	}
}

func TestCoverageAmount(t *testing.T) {
	calc := newCalc()
	// $100 due, 10 days late -> 60% -> $60
	if got := calc.CoverageAmount(dec("100"), 10); !got.Equal(dec("60")) {
		t.Errorf("CoverageAmount(100, 10) = %s, want 60", got)
	}
}

func TestDirectLoanFeeTiers(t *testing.T) {
	calc := newCalc()

	tests := []struct {
		score      int
		feePercent string
	}{
		{100, "5"},
		{90, "5"},
		{85, "6"},
		{80, "6"},
		{70, "7"},
		{65, "8"},
		{60, "8"},
		{50, "9"},
		{40, "10"},
		{39, "12"},
		{0, "12"},
	}
	for _, tt := range tests {
		fee, pctUsed := calc.DirectLoanFee(dec("100"), tt.score)
		if !pctUsed.Equal(dec(tt.feePercent)) {
			t.Errorf("score %d: fee percent = %s, want %s", tt.score, pctUsed, tt.feePercent)
		}
		if !fee.Equal(dec(tt.feePercent)) { // 100 * pct / 100
			t.Errorf("score %d: fee = %s, want %s", tt.score, fee, tt.feePercent)
		}
	}
}

func TestAPR(t *testing.T) {
	calc := newCalc()
	// fee/principal of 5% over 30 days: 5 * 365/30 = 60.83
	if got := calc.APR(dec("100"), dec("5"), 30); !got.Equal(dec("60.83")) {
		t.Errorf("APR = %s, want 60.83", got)
	}
	if got := calc.APR(decimal.Zero, dec("5"), 30); !got.IsZero() {
		t.Errorf("APR with zero principal = %s, want 0", got)
	}
}
