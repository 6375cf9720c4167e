package engine

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/dustin/go-humanize"

	"github.com/umuterturk/investment-game/internal/clock"
	"github.com/umuterturk/investment-game/internal/params"
	"github.com/umuterturk/investment-game/internal/refdata"
	"github.com/umuterturk/investment-game/internal/tax"
)

// Statement is one month of cash flow.
type Statement struct {
	Date            clock.Date `json:"date"`
	Salary          float64    `json:"salary"`
	IncomeTax       float64    `json:"income_tax"`
	Benefit         float64    `json:"benefit"`
	RentPaid        float64    `json:"rent_paid"`
	RentalIncome    float64    `json:"rental_income"`
	RentalTax       float64    `json:"rental_tax"`
	Living          float64    `json:"living"`
	Children        float64    `json:"children"`
	Premiums        float64    `json:"premiums"`
	LoanPayments    float64    `json:"loan_payments"`
	LoanInterest    float64    `json:"loan_interest"`
	SavingsInterest float64    `json:"savings_interest"`
	Overdraft       float64    `json:"overdraft_interest"`
	Event           string     `json:"event,omitempty"`
	Net             float64    `json:"net"`
	Cash            float64    `json:"cash"`
	NetWorth        float64    `json:"net_worth"`
}

func money(v float64) string {
	return "£" + humanize.CommafWithDigits(math.Round(v*100)/100, 2)
}

// monthlyOutgoings is the recurring monthly spend before tax.
func (s *Simulation) monthlyOutgoings() float64 {
	p := s.player
	out := p.LivingExpenses + p.ChildExpenses + p.LoanPayments() +
		p.Premiums(params.HomeInsurancePremium, params.HealthInsurancePremium, params.IncomeInsurancePremium)
	if p.Tenancy != nil {
		out += p.Tenancy.MonthlyRent
	}
	return out
}

// settleMonth runs on the first of each month: income and its tax,
// housing, living costs, premiums, loan service, interest on the balance,
// and at most one life event.
func (s *Simulation) settleMonth() Statement {
	p := s.player
	year := s.clock.Year
	st := Statement{Date: s.clock.Date}
	start := p.Cash

	if p.Job.Employed() {
		st.Salary = p.Job.Salary / 12
		if bands, ok := s.data.IncomeTaxBands(taxYearOf(year, s.clock.Month)); ok {
			st.IncomeTax = tax.Float(tax.MonthlyIncomeTax(bands, tax.Money(p.Job.Salary)))
		}
	} else if p.Job.UnemployedMonths > 0 {
		if p.Insurance.Income {
			st.Benefit = p.Job.Salary / 12 * params.IncomeCoverShare
		}
		p.Job.UnemployedMonths--
		if p.Job.UnemployedMonths == 0 {
			s.emit(Event{Category: CategoryLife, Description: "Back in work"})
		}
	}

	if p.Tenancy != nil {
		st.RentPaid = p.Tenancy.MonthlyRent
	}
	for _, prop := range p.Properties {
		if prop.LetOut {
			st.RentalIncome += prop.MonthlyRent
		}
	}
	if st.RentalIncome > 0 {
		if rule, ok := s.data.RentalFor(taxYearOf(year, s.clock.Month)); ok {
			annual := tax.RentalIncomeTax(rule, tax.Money(st.RentalIncome*12), tax.Money(st.Salary*12))
			st.RentalTax = tax.Float(annual) / 12
		}
	}

	st.Living = p.LivingExpenses
	st.Children = p.ChildExpenses
	st.Premiums = p.Premiums(params.HomeInsurancePremium, params.HealthInsurancePremium, params.IncomeInsurancePremium)

	kept := p.Loans[:0]
	for i := range p.Loans {
		l := p.Loans[i]
		paid, interest, retired := l.Service()
		st.LoanPayments += paid
		st.LoanInterest += interest
		if retired {
			s.emit(Event{
				Category:    CategoryLife,
				Description: fmt.Sprintf("Paid off %s loan of %s", l.Kind, money(l.Principal)),
				Meta:        map[string]any{"loan_id": l.ID},
			})
			continue
		}
		kept = append(kept, l)
	}
	p.Loans = kept

	p.Cash += st.Salary - st.IncomeTax + st.Benefit - st.RentPaid + st.RentalIncome - st.RentalTax -
		st.Living - st.Children - st.Premiums - st.LoanPayments

	base, _ := s.data.BaseRate(year, s.clock.Month)
	if p.Cash > 0 {
		st.SavingsInterest = p.Cash * base / 12
		p.Cash += st.SavingsInterest
	} else if p.Cash < 0 {
		st.Overdraft = -p.Cash * (base + params.OverdraftSpread) / 12
		p.Cash -= st.Overdraft
	}

	if out, ok := s.sampler.Sample(s.eventContext()); ok {
		st.Event = out.Name
		s.applyOutcome(out)
	}

	st.Net = p.Cash - start
	st.Cash = p.Cash
	st.NetWorth = p.NetWorth(s.market()).Total
	s.statement = &st

	s.emit(Event{
		Category:    CategoryMonth,
		Description: fmt.Sprintf("Monthly statement: net %s, cash %s", money(st.Net), money(st.Cash)),
		Meta:        map[string]any{"net": st.Net, "cash": st.Cash, "net_worth": st.NetWorth},
	})
	slog.Info("monthly statement",
		"date", st.Date,
		"salary", money(st.Salary),
		"income_tax", money(st.IncomeTax),
		"rent", money(st.RentPaid),
		"rental_income", money(st.RentalIncome),
		"loans", money(st.LoanPayments),
		"net", money(st.Net),
		"cash", money(st.Cash),
		"net_worth", money(st.NetWorth),
		"event", st.Event,
	)
	return st
}

// settleYear runs on January 1: inflation re-indexes salary and costs,
// market rents reset on let property, and properties age.
func (s *Simulation) settleYear() {
	p := s.player
	year := s.clock.Year

	factor := 1.0
	cur, okCur := s.data.InflationIndex(year)
	prev, okPrev := s.data.InflationIndex(year - 1)
	if okCur && okPrev && prev > 0 {
		factor = cur / prev
	}
	p.Job.Salary *= factor
	p.LivingExpenses *= factor
	p.ChildExpenses *= factor

	for i := range p.Properties {
		prop := &p.Properties[i]
		prop.Condition = math.Max(0, prop.Condition-params.ConditionDecayPerYear)
		if prop.LetOut {
			if perSqm, ok := s.data.Rent(prop.Region, year); ok {
				prop.MonthlyRent = tax.Float(tax.Money(perSqm * prop.SizeSqm))
			}
		}
	}

	worth := p.NetWorth(s.market()).Total
	s.emit(Event{
		Category:    CategoryYear,
		Description: fmt.Sprintf("New year %d: prices up %.1f%%, net worth %s", year, (factor-1)*100, money(worth)),
		Meta:        map[string]any{"inflation": factor - 1, "net_worth": worth},
	})
	slog.Info("year end",
		"year", year,
		"age", s.clock.Age,
		"inflation", fmt.Sprintf("%.2f%%", (factor-1)*100),
		"salary", money(p.Job.Salary),
		"net_worth", money(worth),
		"happiness", fmt.Sprintf("%.1f", p.Happiness.Total),
	)
}

// settleTaxYear closes the tax year that began last April: gains above the
// allowance are taxed and the running totals reset.
func (s *Simulation) settleTaxYear() {
	// A year with no table settles at zero tax; the gains still reset.
	rule, ok := s.data.CapitalGainsFor(s.clock.Year - 1)
	if !ok {
		rule = refdata.CapitalGainsRule{}
	}
	res := s.player.TaxYear.Settle(rule)
	due := tax.Float(res.Tax)
	s.player.Cash -= due

	if res.Gains.IsZero() {
		return
	}
	s.emit(Event{
		Category:    CategoryTax,
		Description: fmt.Sprintf("Capital gains tax year closed: gains %s, tax %s", money(tax.Float(res.Gains)), money(due)),
		Meta:        map[string]any{"gains": tax.Float(res.Gains), "taxable": tax.Float(res.Taxable), "tax": due},
	})
	slog.Info("capital gains settled",
		"tax_year", s.clock.Year-1,
		"gains", money(tax.Float(res.Gains)),
		"allowance", money(tax.Float(res.Allowance)),
		"tax", money(due),
	)
}
