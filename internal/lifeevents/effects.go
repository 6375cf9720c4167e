// Package lifeevents samples at most one random life event per month from
// a fixed ordered table. Events carry data-only effect descriptors that the
// engine applies; nothing here touches player state.
package lifeevents

// Effect is a closed set of descriptor types. Switch on it exhaustively.
type Effect interface {
	isEffect()
}

// CashChange adds Amount (negative for a cost) to the player's cash.
type CashChange struct {
	Amount float64 `json:"amount"`
}

// JobLoss leaves the player unemployed for Months salary periods.
type JobLoss struct {
	Months int `json:"months"`
}

// MarketCrash knocks stock prices down and lets them recover over time.
type MarketCrash struct {
	Depth          float64 `json:"depth"`
	RecoveryMonths int     `json:"recovery_months"`
}

// Divorce ends a marriage and splits liquid savings.
type Divorce struct {
	CashShare float64 `json:"cash_share"`
}

// ChildExpense adds Monthly to recurring child costs. A positive delta on a
// household with no children also adds a child.
type ChildExpense struct {
	Monthly  float64 `json:"monthly"`
	NewChild bool    `json:"new_child"`
}

// PropertyConditionChange moves one property's condition by Delta and
// costs RepairCost in cash.
type PropertyConditionChange struct {
	PropertyID string  `json:"property_id"`
	Delta      float64 `json:"delta"`
	RepairCost float64 `json:"repair_cost"`
}

func (CashChange) isEffect()              {}
func (JobLoss) isEffect()                 {}
func (MarketCrash) isEffect()             {}
func (Divorce) isEffect()                 {}
func (ChildExpense) isEffect()            {}
func (PropertyConditionChange) isEffect() {}

// Kind names an effect variant for logs and the ledger.
func Kind(e Effect) string {
	switch e.(type) {
	case CashChange:
		return "cash_change"
	case JobLoss:
		return "job_loss"
	case MarketCrash:
		return "market_crash"
	case Divorce:
		return "divorce"
	case ChildExpense:
		return "child_expense"
	case PropertyConditionChange:
		return "property_condition_change"
	default:
		return "unknown"
	}
}

// Cover is the insurance policy that waives an event's cash component.
type Cover string

const (
	CoverNone   Cover = ""
	CoverHome   Cover = "home"
	CoverHealth Cover = "health"
	CoverIncome Cover = "income"
)

// Mood is a short-term happiness shift lasting Days linear days.
type Mood struct {
	Value float64 `json:"value"`
	Days  int     `json:"days"`
}
