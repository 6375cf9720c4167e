package tax

import (
	"github.com/shopspring/decimal"

	"github.com/umuterturk/investment-game/internal/refdata"
)

// CapitalGainsTax charges the higher rate on gains above the allowance.
// The basic rate is never blended in.
func CapitalGainsTax(gains decimal.Decimal, rule refdata.CapitalGainsRule) decimal.Decimal {
	taxable := gains.Sub(rule.Allowance)
	if taxable.Sign() <= 0 {
		return decimal.Zero
	}
	return taxable.Mul(rule.HigherRate)
}

// Settlement records one tax year close.
type Settlement struct {
	Gains     decimal.Decimal `json:"gains"`
	Allowance decimal.Decimal `json:"allowance"`
	Taxable   decimal.Decimal `json:"taxable"`
	Rate      decimal.Decimal `json:"rate"`
	Tax       decimal.Decimal `json:"tax"`
}

// TaxYear accumulates realized gains between settlements.
type TaxYear struct {
	RealizedGains  decimal.Decimal `json:"realized_gains"`
	AllowanceUsed  decimal.Decimal `json:"allowance_used"`
	TaxPaid        decimal.Decimal `json:"tax_paid"` // across all settlements
	LastSettlement *Settlement     `json:"last_settlement,omitempty"`
}

// Realize records the gain (proceeds minus cost basis, negative for a loss)
// of a sale and updates the allowance used so far.
func (ty *TaxYear) Realize(gain decimal.Decimal, rule refdata.CapitalGainsRule) {
	ty.RealizedGains = ty.RealizedGains.Add(gain)
	used := decimal.Max(ty.RealizedGains, decimal.Zero)
	ty.AllowanceUsed = decimal.Min(used, rule.Allowance)
}

// Settle taxes the accumulated gains and resets the year, whether or not
// any tax was due.
func (ty *TaxYear) Settle(rule refdata.CapitalGainsRule) Settlement {
	s := Settlement{
		Gains:     ty.RealizedGains,
		Allowance: rule.Allowance,
		Taxable:   decimal.Max(ty.RealizedGains.Sub(rule.Allowance), decimal.Zero),
		Rate:      rule.HigherRate,
		Tax:       CapitalGainsTax(ty.RealizedGains, rule),
	}
	ty.RealizedGains = decimal.Zero
	ty.AllowanceUsed = decimal.Zero
	ty.TaxPaid = ty.TaxPaid.Add(s.Tax)
	ty.LastSettlement = &s
	return s
}
