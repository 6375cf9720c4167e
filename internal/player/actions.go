package player

import (
	"fmt"
	"math"

	"github.com/google/uuid"

	"github.com/umuterturk/investment-game/internal/loan"
	"github.com/umuterturk/investment-game/internal/params"
	"github.com/umuterturk/investment-game/internal/refdata"
	"github.com/umuterturk/investment-game/internal/tax"
)

// Market is today's view of prices and rules that actions settle against.
type Market interface {
	// Quote is today's price: per share for stocks, per m² for regions.
	Quote(key refdata.AssetKey) (float64, bool)
	RentPerSqm(region string) (float64, bool)
	BaseRate() float64
	StampDuty() refdata.StampDutyRule
	CapitalGains() refdata.CapitalGainsRule
	Year() int
	Month() int
}

// MortgageTermMonths is the term of every new mortgage.
const MortgageTermMonths = 300

// PropertyValue prices a property from the regional rate per m². Condition
// moves the value by up to 15% below a perfect home.
func PropertyValue(perSqm, sizeSqm, condition float64) float64 {
	c := math.Max(0, math.Min(100, condition))
	return perSqm * sizeSqm * (0.85 + 0.15*c/100)
}

// BuyStock buys shares of ticker at today's quote.
func (s *State) BuyStock(m Market, ticker string, shares float64) (float64, error) {
	if shares <= 0 || math.IsNaN(shares) {
		return 0, fmt.Errorf("buy %s: %w", ticker, ErrInvalidAmount)
	}
	price, ok := m.Quote(refdata.Stock(ticker))
	if !ok || price <= 0 {
		return 0, fmt.Errorf("buy %s: %w", ticker, ErrUnknownAsset)
	}
	cost := price * shares
	if cost > s.Cash {
		return 0, fmt.Errorf("buy %s for %.2f with %.2f: %w", ticker, cost, s.Cash, ErrInsufficientFunds)
	}
	h := s.Holdings[ticker]
	h.Shares += shares
	h.CostBasis += cost
	if s.Holdings == nil {
		s.Holdings = make(map[string]Holding)
	}
	s.Holdings[ticker] = h
	s.Cash -= cost
	return cost, nil
}

// SellStock sells shares of ticker and realizes the gain against the
// current tax year. It returns the proceeds and the realized gain.
func (s *State) SellStock(m Market, ticker string, shares float64) (proceeds, gain float64, err error) {
	if shares <= 0 || math.IsNaN(shares) {
		return 0, 0, fmt.Errorf("sell %s: %w", ticker, ErrInvalidAmount)
	}
	h, held := s.Holdings[ticker]
	if !held || h.Shares < shares {
		return 0, 0, fmt.Errorf("sell %s: %w", ticker, ErrNotOwned)
	}
	price, ok := m.Quote(refdata.Stock(ticker))
	if !ok || price <= 0 {
		return 0, 0, fmt.Errorf("sell %s: %w", ticker, ErrUnknownAsset)
	}
	proceeds = price * shares
	basis := h.AverageCost() * shares
	gain = proceeds - basis

	h.Shares -= shares
	h.CostBasis -= basis
	if h.Shares <= 1e-9 {
		delete(s.Holdings, ticker)
	} else {
		s.Holdings[ticker] = h
	}
	s.Cash += proceeds
	s.TaxYear.Realize(tax.Money(gain), m.CapitalGains())
	return proceeds, gain, nil
}

// PurchaseQuote is the cost breakdown of a property purchase.
type PurchaseQuote struct {
	Price      float64 `json:"price"`
	Deposit    float64 `json:"deposit"`
	Mortgage   float64 `json:"mortgage"`
	StampDuty  float64 `json:"stamp_duty"`
	Rate       float64 `json:"rate"`
	Payment    float64 `json:"monthly_payment"`
	Additional bool    `json:"additional"`
}

// QuoteProperty prices a purchase without applying it.
func (s *State) QuoteProperty(m Market, region string, sizeSqm, deposit float64) (PurchaseQuote, error) {
	if sizeSqm <= 0 || deposit < 0 {
		return PurchaseQuote{}, fmt.Errorf("quote %s: %w", region, ErrInvalidAmount)
	}
	perSqm, ok := m.Quote(refdata.Region(region))
	if !ok || perSqm <= 0 {
		return PurchaseQuote{}, fmt.Errorf("quote %s: %w", region, ErrUnknownAsset)
	}
	price := tax.Float(tax.Money(PropertyValue(perSqm, sizeSqm, params.DefaultPropertyQuality)))
	if deposit > price {
		deposit = price
	}
	_, additional := s.PrimaryHome()
	q := PurchaseQuote{
		Price:      price,
		Deposit:    deposit,
		Mortgage:   price - deposit,
		StampDuty:  tax.Float(tax.StampDuty(m.StampDuty(), tax.Money(price), additional)),
		Rate:       m.BaseRate() + params.MortgageSpread,
		Additional: additional,
	}
	if q.Mortgage > 0 {
		q.Payment = loan.MonthlyPayment(q.Mortgage, q.Rate, MortgageTermMonths)
	}
	return q, nil
}

// BuyProperty buys sizeSqm in region with deposit down and a mortgage for
// the rest. Buying as a primary home ends any tenancy and moves the player.
func (s *State) BuyProperty(m Market, region string, sizeSqm, deposit float64, primary bool) (Property, PurchaseQuote, error) {
	q, err := s.QuoteProperty(m, region, sizeSqm, deposit)
	if err != nil {
		return Property{}, q, err
	}
	if primary {
		if _, ok := s.PrimaryHome(); ok {
			return Property{}, q, fmt.Errorf("buy %s as home: %w", region, ErrPrimaryResidence)
		}
	}
	if q.Deposit < q.Price*params.MinDepositFraction {
		return Property{}, q, fmt.Errorf("buy %s: deposit %.2f below %.0f%%: %w",
			region, q.Deposit, params.MinDepositFraction*100, ErrInvalidAmount)
	}
	if q.Mortgage > 0 && q.Mortgage > s.Job.Salary*params.MaxMortgageMultiple {
		return Property{}, q, fmt.Errorf("buy %s: mortgage %.2f over %.1fx salary: %w",
			region, q.Mortgage, params.MaxMortgageMultiple, ErrLoanRefused)
	}
	upfront := q.Deposit + q.StampDuty
	if upfront > s.Cash {
		return Property{}, q, fmt.Errorf("buy %s for %.2f upfront: %w", region, upfront, ErrInsufficientFunds)
	}

	p := Property{
		ID:            uuid.NewString(),
		Region:        region,
		SizeSqm:       sizeSqm,
		PurchasePrice: q.Price,
		PurchaseYear:  m.Year(),
		Condition:     params.DefaultPropertyQuality,
		Primary:       primary,
	}
	s.Cash -= upfront
	if q.Mortgage > 0 {
		l := loan.New(loan.KindMortgage, q.Mortgage, q.Rate, MortgageTermMonths, m.Year(), m.Month())
		l.PropertyID = p.ID
		s.Loans = append(s.Loans, l)
	}
	s.Properties = append(s.Properties, p)
	if primary {
		if s.Tenancy != nil {
			s.Cash += s.Tenancy.Deposit
			s.Tenancy = nil
		}
		s.HomeRegion = region
	}
	return p, q, nil
}

// SaleQuote is the breakdown of a property sale.
type SaleQuote struct {
	Value  float64 `json:"value"`
	Debt   float64 `json:"debt"`
	Charge float64 `json:"early_repayment_charge"`
	Net    float64 `json:"net"`
	Gain   float64 `json:"gain"`
	Exempt bool    `json:"exempt"`
}

// SellProperty sells a property at today's value, clears its mortgage with
// any early repayment charge, and realizes the gain unless it is the
// primary home. A sale that cannot clear the debt is refused.
func (s *State) SellProperty(m Market, id string) (SaleQuote, error) {
	i := s.property(id)
	if i < 0 {
		return SaleQuote{}, fmt.Errorf("sell property %s: %w", id, ErrNotOwned)
	}
	p := s.Properties[i]
	perSqm, ok := m.Quote(refdata.Region(p.Region))
	if !ok || perSqm <= 0 {
		return SaleQuote{}, fmt.Errorf("sell property in %s: %w", p.Region, ErrUnknownAsset)
	}
	q := SaleQuote{
		Value:  tax.Float(tax.Money(PropertyValue(perSqm, p.SizeSqm, p.Condition))),
		Exempt: p.Primary,
	}
	erc := loan.DefaultERC()
	for _, l := range s.Loans {
		if l.PropertyID != id {
			continue
		}
		bal, charge := l.Payoff(erc)
		q.Debt += bal
		q.Charge += charge
	}
	q.Net = q.Value - q.Debt - q.Charge
	if q.Net < 0 {
		return q, fmt.Errorf("sell property %s: value %.2f, debt %.2f, charge %.2f: %w",
			id, q.Value, q.Debt, q.Charge, ErrNegativeEquity)
	}
	q.Gain = q.Value - p.PurchasePrice

	kept := s.Loans[:0]
	for _, l := range s.Loans {
		if l.PropertyID != id {
			kept = append(kept, l)
		}
	}
	s.Loans = kept
	s.Properties = append(s.Properties[:i], s.Properties[i+1:]...)
	s.Cash += q.Net
	if !q.Exempt {
		s.TaxYear.Realize(tax.Money(q.Gain), m.CapitalGains())
	}
	return q, nil
}

// LetProperty lets a non-primary property at today's market rent, or
// takes it off the market when let is false.
func (s *State) LetProperty(m Market, id string, let bool) (float64, error) {
	i := s.property(id)
	if i < 0 {
		return 0, fmt.Errorf("let property %s: %w", id, ErrNotOwned)
	}
	p := &s.Properties[i]
	if p.Primary {
		return 0, fmt.Errorf("let property %s: %w", id, ErrPrimaryResidence)
	}
	if !let {
		p.LetOut = false
		p.MonthlyRent = 0
		return 0, nil
	}
	perSqm, ok := m.RentPerSqm(p.Region)
	if !ok || perSqm <= 0 {
		return 0, fmt.Errorf("let property in %s: %w", p.Region, ErrUnknownAsset)
	}
	p.LetOut = true
	p.MonthlyRent = tax.Float(tax.Money(perSqm * p.SizeSqm))
	return p.MonthlyRent, nil
}

// Rent takes a tenancy on sizeSqm in region, paying the deposit and the
// first month up front.
func (s *State) Rent(m Market, region string, sizeSqm float64) (Tenancy, error) {
	if sizeSqm <= 0 {
		return Tenancy{}, fmt.Errorf("rent in %s: %w", region, ErrInvalidAmount)
	}
	if s.Tenancy != nil {
		return Tenancy{}, fmt.Errorf("rent in %s: %w", region, ErrTenancyActive)
	}
	if _, ok := s.PrimaryHome(); ok {
		return Tenancy{}, fmt.Errorf("rent in %s: %w", region, ErrPrimaryResidence)
	}
	perSqm, ok := m.RentPerSqm(region)
	if !ok || perSqm <= 0 {
		return Tenancy{}, fmt.Errorf("rent in %s: %w", region, ErrUnknownAsset)
	}
	monthly := tax.Float(tax.Money(perSqm * sizeSqm))
	t := Tenancy{
		Region:      region,
		SizeSqm:     sizeSqm,
		MonthlyRent: monthly,
		Deposit:     monthly * params.TenancyDepositMonths,
	}
	upfront := t.Deposit + monthly
	if upfront > s.Cash {
		return Tenancy{}, fmt.Errorf("rent in %s for %.2f upfront: %w", region, upfront, ErrInsufficientFunds)
	}
	s.Cash -= upfront
	s.Tenancy = &t
	s.HomeRegion = region
	return t, nil
}

// EndTenancy hands the rented home back and refunds the deposit.
func (s *State) EndTenancy() (float64, error) {
	if s.Tenancy == nil {
		return 0, fmt.Errorf("end tenancy: %w", ErrNotOwned)
	}
	refund := s.Tenancy.Deposit
	s.Cash += refund
	s.Tenancy = nil
	return refund, nil
}

// TakeLoan borrows an unsecured personal loan of up to one year's salary.
func (s *State) TakeLoan(m Market, amount float64, termMonths int) (loan.Loan, error) {
	if amount <= 0 || termMonths <= 0 {
		return loan.Loan{}, fmt.Errorf("personal loan: %w", ErrInvalidAmount)
	}
	if !s.Job.Employed() {
		return loan.Loan{}, fmt.Errorf("personal loan while unemployed: %w", ErrLoanRefused)
	}
	unsecured := 0.0
	for _, l := range s.Loans {
		if l.Kind == loan.KindPersonal {
			unsecured += l.RemainingPrincipal
		}
	}
	if unsecured+amount > s.Job.Salary {
		return loan.Loan{}, fmt.Errorf("personal loan of %.2f: %w", amount, ErrLoanRefused)
	}
	l := loan.New(loan.KindPersonal, amount, m.BaseRate()+params.PersonalSpread, termMonths, m.Year(), m.Month())
	s.Loans = append(s.Loans, l)
	s.Cash += amount
	return l, nil
}

// RepayLoan clears a loan early from cash, including any early repayment
// charge. It returns the total paid.
func (s *State) RepayLoan(id string) (float64, error) {
	i := s.loan(id)
	if i < 0 {
		return 0, fmt.Errorf("repay loan %s: %w", id, ErrNotOwned)
	}
	bal, charge := s.Loans[i].Payoff(loan.DefaultERC())
	total := bal + charge
	if total > s.Cash {
		return 0, fmt.Errorf("repay loan %s for %.2f: %w", id, total, ErrInsufficientFunds)
	}
	s.Cash -= total
	s.Loans = append(s.Loans[:i], s.Loans[i+1:]...)
	return total, nil
}

// SetInsurance turns one policy on or off. Kind is home, health or income.
func (s *State) SetInsurance(kind string, on bool) error {
	switch kind {
	case "home":
		s.Insurance.Home = on
	case "health":
		s.Insurance.Health = on
	case "income":
		s.Insurance.Income = on
	default:
		return fmt.Errorf("insurance %q: %w", kind, ErrInvalidAmount)
	}
	return nil
}
