package tax

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umuterturk/investment-game/internal/refdata"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func dp(s string) *decimal.Decimal {
	v := d(s)
	return &v
}

func uk() *refdata.Dataset {
	ds, err := refdata.Default()
	if err != nil {
		panic(err)
	}
	return ds
}

func assertDec(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, d(want).Equal(got), "want %s got %s", want, got)
}

// closedForm walks thresholds cumulatively: full widths of every band
// below the one containing income, plus the partial top band.
func closedForm(bands []refdata.Band, income decimal.Decimal) decimal.Decimal {
	tax := decimal.Zero
	for _, b := range bands {
		if income.LessThanOrEqual(b.From) {
			break
		}
		if b.To != nil && income.GreaterThan(*b.To) {
			tax = tax.Add(b.To.Sub(b.From).Mul(b.Rate))
			continue
		}
		tax = tax.Add(income.Sub(b.From).Mul(b.Rate))
		break
	}
	return tax
}

func TestIncomeTaxMatchesClosedForm(t *testing.T) {
	ds := uk()
	for _, year := range []int{2005, 2008, 2010, 2013, 2016, 2020, 2021, 2023} {
		bands, ok := ds.IncomeTaxBands(year)
		require.True(t, ok)
		for _, inc := range []string{"0", "3000", "9000", "30000", "45000", "60000", "130000", "200000"} {
			assert.True(t, closedForm(bands, d(inc)).Equal(IncomeTax(bands, d(inc))), "year %d income %s", year, inc)
		}
	}
}

func TestIncomeTax2024Values(t *testing.T) {
	bands, _ := uk().IncomeTaxBands(2024)
	assertDec(t, "3486", IncomeTax(bands, d("30000")))
	assertDec(t, "11432", IncomeTax(bands, d("60000")))
	assertDec(t, "71175", IncomeTax(bands, d("200000")))
	assertDec(t, "0", IncomeTax(bands, d("-5000")))
	assertDec(t, "290.5", MonthlyIncomeTax(bands, d("30000")))
}

func TestIncomeTaxMonotonicAndContinuous(t *testing.T) {
	bands, _ := uk().IncomeTaxBands(2024)
	prev := decimal.Zero
	for inc := int64(0); inc <= 250000; inc += 250 {
		tx := IncomeTax(bands, decimal.NewFromInt(inc))
		require.True(t, tx.GreaterThanOrEqual(prev), "income %d", inc)
		prev = tx
	}
	for _, b := range bands {
		if b.To == nil {
			continue
		}
		below := IncomeTax(bands, b.To.Sub(d("0.01")))
		at := IncomeTax(bands, *b.To)
		assert.True(t, at.Sub(below).LessThanOrEqual(d("0.01")), "jump at %s", b.To)
	}
}

func TestStackWithOpenMiddleBand(t *testing.T) {
	bands := []refdata.Band{
		{From: d("100"), Rate: d("0.5")},
		{From: d("0"), To: dp("100"), Rate: d("0")},
		{From: d("200"), Rate: d("1")},
	}
	slices := Stack(bands, decimal.Zero, d("300"))
	require.Len(t, slices, 3)
	assertDec(t, "150", Total(slices))
}

func TestStampDuty2024(t *testing.T) {
	rule, ok := uk().StampDutyFor(2024)
	require.True(t, ok)

	// (300,000 - 250,000) × 5%.
	assertDec(t, "2500", StampDuty(rule, d("300000"), false))
	with := StampDuty(rule, d("300000"), true)
	assertDec(t, "11500", with)
	assertDec(t, "9000", with.Sub(StampDuty(rule, d("300000"), false)))

	assertDec(t, "0", StampDuty(rule, d("200000"), false))
	// 0 + 675,000×5% + 575,000×10% + 500,000×12%.
	assertDec(t, "151250", StampDuty(rule, d("2000000"), false))
}

func TestCapitalGainsSettlement(t *testing.T) {
	rule := refdata.CapitalGainsRule{Allowance: d("12300"), BasicRate: d("0.1"), HigherRate: d("0.2")}

	var ty TaxYear
	ty.Realize(d("5000"), rule)
	assertDec(t, "5000", ty.AllowanceUsed)
	s := ty.Settle(rule)
	assertDec(t, "0", s.Tax)
	assertDec(t, "0", ty.RealizedGains)
	assertDec(t, "0", ty.AllowanceUsed)

	ty.Realize(d("15000"), rule)
	ty.Realize(d("5000"), rule)
	assertDec(t, "12300", ty.AllowanceUsed)
	s = ty.Settle(rule)
	assertDec(t, "7700", s.Taxable)
	assertDec(t, "1540", s.Tax)
	assertDec(t, "1540", ty.TaxPaid)
	assertDec(t, "0", ty.RealizedGains)
	require.NotNil(t, ty.LastSettlement)
}

func TestCapitalLossesOffsetGains(t *testing.T) {
	rule := refdata.CapitalGainsRule{Allowance: d("3000"), HigherRate: d("0.24")}
	var ty TaxYear
	ty.Realize(d("10000"), rule)
	ty.Realize(d("-8000"), rule)
	assertDec(t, "2000", ty.AllowanceUsed)
	assertDec(t, "0", ty.Settle(rule).Tax)
}

func TestRentalIncomeIsTopSlice(t *testing.T) {
	rule, ok := uk().RentalFor(2024)
	require.True(t, ok)

	// Taxable 11,000 stacked on 45,000: 5,270 at 20% + 5,730 at 40%.
	assertDec(t, "3346", RentalIncomeTax(rule, d("12000"), d("45000")))
	assertDec(t, "0", RentalIncomeTax(rule, d("900"), d("45000")))

	// With no other income the zero-rate band absorbs it first.
	assertDec(t, "0", RentalIncomeTax(rule, d("13000"), decimal.Zero))
	assertDec(t, "86", RentalIncomeTax(rule, d("14000"), decimal.Zero))
}

func TestEmptyTablesTaxNothing(t *testing.T) {
	assertDec(t, "0", IncomeTax(nil, d("50000")))
	assertDec(t, "0", StampDuty(refdata.StampDutyRule{}, d("500000"), false))
}

func TestMoneyRounding(t *testing.T) {
	assertDec(t, "10.13", Money(10.125000001))
	assert.Equal(t, 12.5, Float(d("12.5")))
}
