// Package params collects the tuning constants of the life simulator.
// Reference tables (prices, bands, rates) live in refdata; everything here
// is game balance that does not vary by calendar year.
package params

// Valuation.
const (
	// StockVolatility is the full width of the daily multiplicative jitter
	// on stock quotes: a quote lands in base × (1 ± StockVolatility/2).
	StockVolatility = 0.04

	// PropertyVolatility is a quarter of the stock volatility.
	PropertyVolatility = StockVolatility / 4

	// CrashDepth is the fraction knocked off stock prices by a market crash.
	CrashDepth = 0.35

	// CrashRecoveryMonths is how long a crash takes to wear off linearly.
	CrashRecoveryMonths = 18
)

// Calendar.
const (
	// TaxYearMonth and TaxYearDay mark capital gains settlement (April 1,
	// months are zero-based).
	TaxYearMonth = 3
	TaxYearDay   = 1

	// Linear tick arithmetic used for modifier expiry. Deliberately not
	// calendar accurate.
	TickDaysPerMonth = 30
	TickDaysPerYear  = 365
)

// Lending.
const (
	MortgageSpread  = 0.015 // over base rate at origination
	PersonalSpread  = 0.055
	OverdraftSpread = 0.15

	// Early repayment charge: ERCInitial of the outstanding balance in the
	// first month, falling linearly to zero after ERCYears.
	ERCInitial = 0.05
	ERCYears   = 5

	MaxMortgageMultiple = 4.5 // of gross salary
	MinDepositFraction  = 0.05
)

// Household.
const (
	TenancyDepositMonths   = 1
	DivorceCashShare       = 0.5
	BaseLivingExpenses     = 900.0 // monthly, 2005 pounds
	HomeInsurancePremium   = 25.0  // monthly per owned property
	HealthInsurancePremium = 60.0
	IncomeInsurancePremium = 30.0
	InsuredShare           = 1.0 // fraction of an insured loss that is covered
	ConditionDecayPerYear  = 2.0
	DefaultPropertyQuality = 80.0
)

// Happiness.
const (
	HappinessBaseline = 70.0

	WeightFinancial = 0.30
	WeightLiving    = 0.25
	WeightWorkLife  = 0.20
	WeightSocial    = 0.15
	WeightHealth    = 0.10
)

// Engine.
const (
	// IncomeCoverShare is the share of salary income insurance pays while
	// unemployed.
	IncomeCoverShare = 0.6

	// EventLogSize bounds the in-memory event ring.
	EventLogSize = 500

	// ChildMonthlyCost is the monthly outgoing per child, in base-year
	// pounds.
	ChildMonthlyCost = 450
)
