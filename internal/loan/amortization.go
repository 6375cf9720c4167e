// Package loan holds the annuity formulas behind mortgages and personal
// loans. Balances come from the closed-form schedule, so any month can be
// queried without replaying payments.
package loan

import (
	"math"

	"github.com/umuterturk/investment-game/internal/params"
)

// MonthlyPayment is the level annuity payment P·r·(1+r)^n / ((1+r)^n − 1)
// with r = annualRate/12. A zero rate repays principal evenly.
func MonthlyPayment(principal, annualRate float64, termMonths int) float64 {
	if principal <= 0 || termMonths <= 0 {
		return 0
	}
	r := annualRate / 12
	if r <= 0 {
		return principal / float64(termMonths)
	}
	g := math.Pow(1+r, float64(termMonths))
	return principal * r * g / (g - 1)
}

// RemainingPrincipal is the balance after k payments:
// P·((1+r)^n − (1+r)^k) / ((1+r)^n − 1). It is zero once k ≥ n.
func RemainingPrincipal(principal, annualRate float64, termMonths, elapsed int) float64 {
	if principal <= 0 || termMonths <= 0 || elapsed >= termMonths {
		return 0
	}
	if elapsed <= 0 {
		return principal
	}
	r := annualRate / 12
	if r <= 0 {
		return principal * float64(termMonths-elapsed) / float64(termMonths)
	}
	gn := math.Pow(1+r, float64(termMonths))
	gk := math.Pow(1+r, float64(elapsed))
	rem := principal * (gn - gk) / (gn - 1)
	if rem < 0 {
		return 0
	}
	return rem
}

// ERC configures an early repayment charge.
type ERC struct {
	InitialRate float64 // fraction of the balance in month zero
	Months      int     // months until the charge reaches zero
}

// DefaultERC is the charge applied to every loan in the simulator.
func DefaultERC() ERC {
	return ERC{InitialRate: params.ERCInitial, Months: params.ERCYears * 12}
}

// Rate returns the charge fraction after elapsed months, falling linearly
// from InitialRate to zero and never below it.
func (e ERC) Rate(elapsed int) float64 {
	if e.Months <= 0 || e.InitialRate <= 0 || elapsed >= e.Months {
		return 0
	}
	if elapsed < 0 {
		elapsed = 0
	}
	rate := e.InitialRate * float64(e.Months-elapsed) / float64(e.Months)
	return math.Max(rate, 0)
}

// Charge is the fee for repaying remaining in full after elapsed months.
func (e ERC) Charge(remaining float64, elapsed int) float64 {
	if remaining <= 0 {
		return 0
	}
	return remaining * e.Rate(elapsed)
}
