// Package tax computes UK-style income tax, capital gains tax, stamp duty
// and rental income tax from band tables. All functions are pure and total:
// negative inputs are clamped to zero and an empty table taxes nothing.
package tax

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/umuterturk/investment-game/internal/refdata"
)

// Slice is the portion of an amount that fell into one band.
type Slice struct {
	From   decimal.Decimal  `json:"from"`
	To     *decimal.Decimal `json:"to,omitempty"`
	Rate   decimal.Decimal  `json:"rate"`
	Amount decimal.Decimal  `json:"amount"`
	Tax    decimal.Decimal  `json:"tax"`
}

// Stack allocates amount into the bands starting at position base (the
// part of the bands already filled by other income) and returns the
// per-band slices. Only bands that receive something are returned.
func Stack(bands []refdata.Band, base, amount decimal.Decimal) []Slice {
	if amount.Sign() <= 0 || len(bands) == 0 {
		return nil
	}
	if base.Sign() < 0 {
		base = decimal.Zero
	}
	sorted := make([]refdata.Band, len(bands))
	copy(sorted, bands)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].From.LessThan(sorted[j].From) })

	top := base.Add(amount)
	var out []Slice
	for i, b := range sorted {
		lower := decimal.Max(b.From, base)
		upper := top
		if b.To != nil {
			upper = decimal.Min(*b.To, top)
		} else if i+1 < len(sorted) {
			// An open band that is not the last ends where the next begins.
			upper = decimal.Min(sorted[i+1].From, top)
		}
		width := upper.Sub(lower)
		if width.Sign() <= 0 {
			continue
		}
		out = append(out, Slice{
			From:   b.From,
			To:     b.To,
			Rate:   b.Rate,
			Amount: width,
			Tax:    width.Mul(b.Rate),
		})
	}
	return out
}

// Total sums the tax of the slices.
func Total(slices []Slice) decimal.Decimal {
	sum := decimal.Zero
	for _, s := range slices {
		sum = sum.Add(s.Tax)
	}
	return sum
}

// IncomeTax is the progressive tax on an annual income.
func IncomeTax(bands []refdata.Band, annualIncome decimal.Decimal) decimal.Decimal {
	return Total(Stack(bands, decimal.Zero, annualIncome))
}

// MonthlyIncomeTax is the annual liability on an annualized income spread
// evenly over twelve months, so mid-year changes never produce a sawtooth.
func MonthlyIncomeTax(bands []refdata.Band, annualIncome decimal.Decimal) decimal.Decimal {
	return IncomeTax(bands, annualIncome).Div(decimal.NewFromInt(12))
}

// StampDuty is the marginal duty on price plus, for a buyer who already
// owns a main residence, the surcharge on the whole price.
func StampDuty(rule refdata.StampDutyRule, price decimal.Decimal, additional bool) decimal.Decimal {
	duty := Total(Stack(rule.Bands, decimal.Zero, price))
	if additional && price.Sign() > 0 {
		duty = duty.Add(price.Mul(rule.Surcharge))
	}
	return duty
}

// RentalIncomeTax deducts the property allowance and taxes the remainder
// as the top slice above otherIncome.
func RentalIncomeTax(rule refdata.RentalRule, rentalIncome, otherIncome decimal.Decimal) decimal.Decimal {
	return Total(RentalSlices(rule, rentalIncome, otherIncome))
}

// RentalSlices is the breakdown behind RentalIncomeTax.
func RentalSlices(rule refdata.RentalRule, rentalIncome, otherIncome decimal.Decimal) []Slice {
	taxable := rentalIncome.Sub(rule.PropertyAllowance)
	return Stack(rule.Bands, otherIncome, taxable)
}

// Money converts a float amount to a decimal rounded to pence.
func Money(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f).Round(2)
}

// Float converts back to float64 for the simulation state.
func Float(d decimal.Decimal) float64 {
	return d.InexactFloat64()
}
