// Package happiness scores the player's well-being from five weighted
// factors plus temporary, seasonal and location modifiers.
package happiness

import (
	"math"

	"github.com/umuterturk/investment-game/internal/params"
)

// Factors are the five component scores, each in [0, 100].
type Factors struct {
	Financial float64 `json:"financial"`
	Living    float64 `json:"living"`
	WorkLife  float64 `json:"work_life"`
	Social    float64 `json:"social"`
	Health    float64 `json:"health"`
}

// Weighted is the fixed-weight sum of the factors.
func (f Factors) Weighted() float64 {
	return f.Financial*params.WeightFinancial +
		f.Living*params.WeightLiving +
		f.WorkLife*params.WeightWorkLife +
		f.Social*params.WeightSocial +
		f.Health*params.WeightHealth
}

// Modifier is a temporary bump that is active while the current linear
// tick is below Expiry.
type Modifier struct {
	Value  float64 `json:"value"`
	Expiry int     `json:"expiry"`
	Reason string  `json:"reason,omitempty"`
}

// Active reports whether the modifier still applies at tick now.
func (m Modifier) Active(now int) bool { return now < m.Expiry }

// State is the recomputed score.
type State struct {
	Total              float64    `json:"total"`
	Factors            Factors    `json:"factors"`
	ShortTermModifiers []Modifier `json:"short_term_modifiers"`
	SeasonalModifier   float64    `json:"seasonal_modifier"`
	LocationModifier   float64    `json:"location_modifier"`
}

// Inputs is everything the model reads from the player and the market.
type Inputs struct {
	Month int
	Age   int

	AnnualIncome          float64 // gross salary, zero while unemployed
	RegionalAverageIncome float64
	Cash                  float64
	MonthlyOutgoings      float64
	TotalDebt             float64
	Unemployed            bool

	OwnsHome            bool
	HomeCondition       float64 // 0-100; ignored when renting
	LivingSpaceSqm      float64
	HouseholdSize       int
	HomeRegion          string
	WorkRegion          string
	LocalPricePerSqm    float64
	NationalPricePerSqm float64

	Married       bool
	Children      int
	ChildExpenses float64 // monthly

	HealthInsurance bool
	HomeInsurance   bool
	IncomeInsurance bool
}

// Recompute scores the inputs at linear tick now. Expired modifiers are
// dropped from the returned state.
func Recompute(in Inputs, now int, modifiers []Modifier) State {
	f := Factors{
		Financial: clamp(financial(in)),
		Living:    clamp(living(in)),
		WorkLife:  clamp(workLife(in)),
		Social:    clamp(social(in)),
		Health:    clamp(health(in)),
	}

	active := Prune(modifiers, now)
	modSum := 0.0
	for _, m := range active {
		modSum += m.Value
	}

	seasonal := SeasonalModifier(in.Month)
	location := LocationModifier(in.LocalPricePerSqm, in.NationalPricePerSqm)

	return State{
		Total:              clamp(f.Weighted() + modSum + seasonal + location),
		Factors:            f,
		ShortTermModifiers: active,
		SeasonalModifier:   seasonal,
		LocationModifier:   location,
	}
}

// Prune returns the modifiers still active at now.
func Prune(mods []Modifier, now int) []Modifier {
	out := make([]Modifier, 0, len(mods))
	for _, m := range mods {
		if m.Active(now) {
			out = append(out, m)
		}
	}
	return out
}

var seasonBumps = [12]float64{-4, -3, 0, 1, 1, 2, 2, 2, 0, -1, -2, 3}

// SeasonalModifier is a fixed bump by zero-based month of year.
func SeasonalModifier(month int) float64 {
	if month < 0 || month > 11 {
		return 0
	}
	return seasonBumps[month]
}

// LocationModifier rewards living somewhere pricier than the national
// average, within ±5.
func LocationModifier(local, national float64) float64 {
	if local <= 0 || national <= 0 {
		return 0
	}
	return math.Max(-5, math.Min(5, (local/national-1)*5))
}

func financial(in Inputs) float64 {
	score := params.HappinessBaseline

	if in.RegionalAverageIncome > 0 {
		ratio := in.AnnualIncome / in.RegionalAverageIncome
		score += math.Max(-30, math.Min(20, (ratio-1)*20))
	}

	runway := 0.0
	if in.MonthlyOutgoings > 0 {
		runway = in.Cash / in.MonthlyOutgoings
	} else if in.Cash > 0 {
		runway = 12
	}
	switch {
	case runway < 1:
		score -= 20
	case runway < 3:
		score -= 10
	case runway >= 12:
		score += 10
	case runway >= 6:
		score += 5
	}

	if in.AnnualIncome > 0 {
		dti := in.TotalDebt / in.AnnualIncome
		switch {
		case dti > 4:
			score -= 15
		case dti > 2:
			score -= 8
		}
	} else if in.TotalDebt > 0 {
		score -= 15
	}

	if in.Cash < 0 {
		score -= 15
	}
	if in.Unemployed {
		score -= 25
		if in.IncomeInsurance {
			score += 10
		}
	}
	return score
}

func living(in Inputs) float64 {
	score := params.HappinessBaseline
	if in.OwnsHome {
		score += 5
		score += (in.HomeCondition - 70) * 0.3
	}

	household := in.HouseholdSize
	if household < 1 {
		household = 1
	}
	perPerson := in.LivingSpaceSqm / float64(household)
	switch {
	case in.LivingSpaceSqm <= 0:
		score -= 20
	case perPerson < 20:
		score -= 10
	case perPerson > 40:
		score += 5
	}

	if in.OwnsHome && !in.HomeInsurance {
		// Uninsured homes weigh on the mind.
		score *= 0.95
	}
	return score
}

func workLife(in Inputs) float64 {
	score := params.HappinessBaseline
	if in.Unemployed {
		score -= 10
	} else if in.WorkRegion != "" && in.HomeRegion != "" && in.WorkRegion != in.HomeRegion {
		score -= 15
	}
	if in.Children > 0 && !in.Unemployed {
		score -= 3 * math.Min(float64(in.Children), 3)
	}
	return score
}

func social(in Inputs) float64 {
	score := params.HappinessBaseline
	if in.Married {
		score += 10
	}
	score += 5 * math.Min(float64(in.Children), 3)

	monthlyIncome := in.AnnualIncome / 12
	if in.ChildExpenses > 0 && (monthlyIncome <= 0 || in.ChildExpenses/monthlyIncome > 0.3) {
		score -= 5
	}
	if in.Age > 60 {
		score -= float64(in.Age-60) * 0.5
	}
	return score
}

func health(in Inputs) float64 {
	score := params.HappinessBaseline
	if in.HealthInsurance {
		score += 5
	}
	if in.Age > 40 {
		score -= float64(in.Age-40) * 0.6
	}
	if in.Month == 0 || in.Month == 1 || in.Month == 11 {
		score -= 3
	}
	if in.Age > 60 && !in.HealthInsurance {
		score *= 0.9
	}
	return score
}

func clamp(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(100, v))
}
