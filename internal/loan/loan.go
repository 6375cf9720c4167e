package loan

import (
	"github.com/google/uuid"
)

// Kind distinguishes secured from unsecured borrowing.
type Kind string

const (
	KindMortgage Kind = "mortgage"
	KindPersonal Kind = "personal"
)

// Loan is one amortizing debt.
type Loan struct {
	ID                 string  `json:"id"`
	Kind               Kind    `json:"kind"`
	PropertyID         string  `json:"property_id,omitempty"`
	Principal          float64 `json:"principal"`
	AnnualRate         float64 `json:"annual_rate"`
	TermMonths         int     `json:"term_months"`
	MonthlyPayment     float64 `json:"monthly_payment"`
	RemainingPrincipal float64 `json:"remaining_principal"`
	ElapsedMonths      int     `json:"elapsed_months"`
	OriginationYear    int     `json:"origination_year"`
	OriginationMonth   int     `json:"origination_month"`
}

// New originates a loan and fixes its payment.
func New(kind Kind, principal, annualRate float64, termMonths, year, month int) Loan {
	return Loan{
		ID:                 uuid.NewString(),
		Kind:               kind,
		Principal:          principal,
		AnnualRate:         annualRate,
		TermMonths:         termMonths,
		MonthlyPayment:     MonthlyPayment(principal, annualRate, termMonths),
		RemainingPrincipal: principal,
		OriginationYear:    year,
		OriginationMonth:   month,
	}
}

// Service records one monthly payment and returns the amount paid and the
// interest part of it. Retired reports whether the balance is now cleared.
func (l *Loan) Service() (paid, interest float64, retired bool) {
	if l.RemainingPrincipal <= 0 {
		return 0, 0, true
	}
	before := l.RemainingPrincipal
	l.ElapsedMonths++
	l.RemainingPrincipal = RemainingPrincipal(l.Principal, l.AnnualRate, l.TermMonths, l.ElapsedMonths)
	paid = l.MonthlyPayment
	if l.RemainingPrincipal <= 0 {
		l.RemainingPrincipal = 0
		// Final payment never overshoots the balance plus its interest.
		if due := before * (1 + l.AnnualRate/12); paid > due {
			paid = due
		}
	}
	interest = paid - (before - l.RemainingPrincipal)
	if interest < 0 {
		interest = 0
	}
	return paid, interest, l.RemainingPrincipal <= 0
}

// Payoff is the amount needed to clear the loan now, including the early
// repayment charge.
func (l Loan) Payoff(erc ERC) (balance, charge float64) {
	return l.RemainingPrincipal, erc.Charge(l.RemainingPrincipal, l.ElapsedMonths)
}
