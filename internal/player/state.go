// Package player holds the mutable player state and the actions a player
// can take on it. Actions are validated up front and either apply in full
// or leave the state untouched.
package player

import (
	"errors"
	"sort"

	"github.com/umuterturk/investment-game/internal/happiness"
	"github.com/umuterturk/investment-game/internal/loan"
	"github.com/umuterturk/investment-game/internal/tax"
)

var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrNegativeEquity    = errors.New("sale proceeds do not cover outstanding debt")
	ErrUnknownAsset      = errors.New("unknown asset")
	ErrNotOwned          = errors.New("not owned")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrPrimaryResidence  = errors.New("not allowed on primary residence")
	ErrLoanRefused       = errors.New("loan refused")
	ErrTenancyActive     = errors.New("tenancy already active")
	ErrGameOver          = errors.New("game over")
)

// Holding is a position in one stock. CostBasis is the total paid for the
// shares still held.
type Holding struct {
	Shares    float64 `json:"shares"`
	CostBasis float64 `json:"cost_basis"`
}

// AverageCost per share.
func (h Holding) AverageCost() float64 {
	if h.Shares <= 0 {
		return 0
	}
	return h.CostBasis / h.Shares
}

// Property is an owned home or buy-to-let.
type Property struct {
	ID            string  `json:"id"`
	Region        string  `json:"region"`
	SizeSqm       float64 `json:"size_sqm"`
	PurchasePrice float64 `json:"purchase_price"`
	PurchaseYear  int     `json:"purchase_year"`
	Condition     float64 `json:"condition"`
	Primary       bool    `json:"primary"`
	LetOut        bool    `json:"let_out"`
	MonthlyRent   float64 `json:"monthly_rent,omitempty"`
}

// Job is the player's employment. Salary is kept while unemployed so it
// resumes when UnemployedMonths runs out.
type Job struct {
	Title            string  `json:"title"`
	Salary           float64 `json:"salary"`
	Region           string  `json:"region"`
	UnemployedMonths int     `json:"unemployed_months"`
}

// Employed reports whether salary is currently being paid.
func (j Job) Employed() bool { return j.Salary > 0 && j.UnemployedMonths == 0 }

// Tenancy is a rented home.
type Tenancy struct {
	Region      string  `json:"region"`
	SizeSqm     float64 `json:"size_sqm"`
	MonthlyRent float64 `json:"monthly_rent"`
	Deposit     float64 `json:"deposit"`
}

// Insurance flags.
type Insurance struct {
	Health bool `json:"health"`
	Home   bool `json:"home"`
	Income bool `json:"income"`
}

// State is the serializable player.
type State struct {
	Name           string               `json:"name"`
	Cash           float64              `json:"cash"`
	Holdings       map[string]Holding   `json:"holdings"`
	Properties     []Property           `json:"properties"`
	Loans          []loan.Loan          `json:"loans"`
	Job            Job                  `json:"job"`
	HomeRegion     string               `json:"home_region"`
	Married        bool                 `json:"married"`
	Children       int                  `json:"children"`
	ChildExpenses  float64              `json:"child_expenses"`
	LivingExpenses float64              `json:"living_expenses"`
	Tenancy        *Tenancy             `json:"tenancy,omitempty"`
	Insurance      Insurance            `json:"insurance"`
	TaxYear        tax.TaxYear          `json:"tax_year"`
	Modifiers      []happiness.Modifier `json:"modifiers"`
	Happiness      happiness.State      `json:"happiness"`
}

// New returns a player with cash and a job in region.
func New(name string, cash, salary float64, region string, livingExpenses float64) *State {
	return &State{
		Name:           name,
		Cash:           cash,
		Holdings:       make(map[string]Holding),
		Job:            Job{Salary: salary, Region: region},
		HomeRegion:     region,
		LivingExpenses: livingExpenses,
	}
}

// property returns the index of the property with id, or -1.
func (s *State) property(id string) int {
	for i := range s.Properties {
		if s.Properties[i].ID == id {
			return i
		}
	}
	return -1
}

// FindProperty returns a copy of the property with id.
func (s *State) FindProperty(id string) (Property, bool) {
	if i := s.property(id); i >= 0 {
		return s.Properties[i], true
	}
	return Property{}, false
}

// PrimaryHome returns the player's own home, if they own one.
func (s *State) PrimaryHome() (Property, bool) {
	for _, p := range s.Properties {
		if p.Primary {
			return p, true
		}
	}
	return Property{}, false
}

func (s *State) loan(id string) int {
	for i := range s.Loans {
		if s.Loans[i].ID == id {
			return i
		}
	}
	return -1
}

// TotalDebt is the outstanding principal across all loans, plus any
// overdrawn cash.
func (s *State) TotalDebt() float64 {
	total := 0.0
	for _, l := range s.Loans {
		total += l.RemainingPrincipal
	}
	if s.Cash < 0 {
		total -= s.Cash
	}
	return total
}

// LoanPayments is the sum of scheduled monthly payments.
func (s *State) LoanPayments() float64 {
	total := 0.0
	for _, l := range s.Loans {
		if l.RemainingPrincipal > 0 {
			total += l.MonthlyPayment
		}
	}
	return total
}

// Premiums is the monthly cost of the insurance policies held.
func (s *State) Premiums(home, health, income float64) float64 {
	total := 0.0
	if s.Insurance.Home {
		total += home * float64(len(s.Properties))
	}
	if s.Insurance.Health {
		total += health
	}
	if s.Insurance.Income {
		total += income
	}
	return total
}

// HouseholdSize counts the player, a spouse and children.
func (s *State) HouseholdSize() int {
	n := 1 + s.Children
	if s.Married {
		n++
	}
	return n
}

// LivingSpace is the floor area of wherever the player lives.
func (s *State) LivingSpace() float64 {
	if home, ok := s.PrimaryHome(); ok {
		return home.SizeSqm
	}
	if s.Tenancy != nil {
		return s.Tenancy.SizeSqm
	}
	return 0
}

// Tickers returns held tickers in sorted order.
func (s *State) Tickers() []string {
	out := make([]string, 0, len(s.Holdings))
	for t, h := range s.Holdings {
		if h.Shares > 0 {
			out = append(out, t)
		}
	}
	sort.Strings(out)
	return out
}

// Clone returns a deep copy safe to hand to readers.
func (s *State) Clone() *State {
	c := *s
	c.Holdings = make(map[string]Holding, len(s.Holdings))
	for k, v := range s.Holdings {
		c.Holdings[k] = v
	}
	c.Properties = append([]Property(nil), s.Properties...)
	c.Loans = append([]loan.Loan(nil), s.Loans...)
	c.Modifiers = append([]happiness.Modifier(nil), s.Modifiers...)
	c.Happiness.ShortTermModifiers = append([]happiness.Modifier(nil), s.Happiness.ShortTermModifiers...)
	if s.Tenancy != nil {
		t := *s.Tenancy
		c.Tenancy = &t
	}
	if s.TaxYear.LastSettlement != nil {
		ls := *s.TaxYear.LastSettlement
		c.TaxYear.LastSettlement = &ls
	}
	return &c
}
