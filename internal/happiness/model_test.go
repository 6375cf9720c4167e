package happiness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umuterturk/investment-game/internal/params"
)

func comfortable() Inputs {
	return Inputs{
		Month:                 4,
		Age:                   35,
		AnnualIncome:          40000,
		RegionalAverageIncome: 30000,
		Cash:                  20000,
		MonthlyOutgoings:      1500,
		TotalDebt:             60000,
		OwnsHome:              true,
		HomeCondition:         85,
		LivingSpaceSqm:        90,
		HouseholdSize:         2,
		HomeRegion:            "London",
		WorkRegion:            "London",
		LocalPricePerSqm:      5000,
		NationalPricePerSqm:   3000,
		Married:               true,
		HealthInsurance:       true,
		HomeInsurance:         true,
	}
}

func TestWeightsSumToOne(t *testing.T) {
	sum := params.WeightFinancial + params.WeightLiving + params.WeightWorkLife +
		params.WeightSocial + params.WeightHealth
	assert.InDelta(t, 1.0, sum, 1e-12)
}

func TestBoundedAtExtremes(t *testing.T) {
	bleak := Inputs{
		Month:                 0,
		Age:                   99,
		RegionalAverageIncome: 30000,
		TotalDebt:             500000,
		Cash:                  -10000,
		MonthlyOutgoings:      2000,
		Unemployed:            true,
		Children:              6,
		ChildExpenses:         2000,
		LocalPricePerSqm:      100,
		NationalPricePerSqm:   3000,
	}
	s := Recompute(bleak, 0, []Modifier{{Value: -80, Expiry: 100}})
	assert.GreaterOrEqual(t, s.Total, 0.0)
	assert.LessOrEqual(t, s.Total, 100.0)
	for _, f := range []float64{s.Factors.Financial, s.Factors.Living, s.Factors.WorkLife, s.Factors.Social, s.Factors.Health} {
		assert.GreaterOrEqual(t, f, 0.0)
		assert.LessOrEqual(t, f, 100.0)
	}

	zero := Recompute(Inputs{Age: 99}, 0, nil)
	assert.GreaterOrEqual(t, zero.Total, 0.0)
	assert.LessOrEqual(t, zero.Total, 100.0)

	elated := comfortable()
	elated.AnnualIncome = 1e7
	elated.Cash = 1e8
	s = Recompute(elated, 0, []Modifier{{Value: 90, Expiry: 100}})
	assert.Equal(t, 100.0, s.Total)
}

func TestTotalIsWeightedSumPlusModifiers(t *testing.T) {
	in := comfortable()
	base := Recompute(in, 1000, nil)
	withMod := Recompute(in, 1000, []Modifier{{Value: 4, Expiry: 1001}})

	want := base.Factors.Weighted() + base.SeasonalModifier + base.LocationModifier
	assert.InDelta(t, want, base.Total, 1e-9)
	assert.InDelta(t, base.Total+4, withMod.Total, 1e-9)
}

func TestModifierExpiry(t *testing.T) {
	mods := []Modifier{
		{Value: 10, Expiry: 500, Reason: "wedding"},
		{Value: -10, Expiry: 400, Reason: "burglary"},
	}

	s := Recompute(comfortable(), 399, mods)
	require.Len(t, s.ShortTermModifiers, 2)

	s = Recompute(comfortable(), 400, mods)
	require.Len(t, s.ShortTermModifiers, 1)
	assert.Equal(t, "wedding", s.ShortTermModifiers[0].Reason)

	assert.Empty(t, Prune(mods, 500))
}

func TestSeasonalModifier(t *testing.T) {
	assert.Equal(t, 3.0, SeasonalModifier(11))
	assert.Equal(t, -4.0, SeasonalModifier(0))
	assert.Equal(t, 2.0, SeasonalModifier(6))
	assert.Equal(t, 0.0, SeasonalModifier(12))
}

func TestLocationModifier(t *testing.T) {
	assert.Equal(t, 0.0, LocationModifier(3000, 3000))
	assert.Equal(t, 5.0, LocationModifier(9000, 3000))
	assert.Equal(t, -2.5, LocationModifier(1500, 3000))
	assert.Equal(t, 0.0, LocationModifier(1500, 0))
}

func TestFactorsRespondToInputs(t *testing.T) {
	in := comfortable()
	base := Recompute(in, 0, nil)

	jobless := in
	jobless.Unemployed = true
	jobless.AnnualIncome = 0
	assert.Less(t, Recompute(jobless, 0, nil).Factors.Financial, base.Factors.Financial)
	assert.Less(t, Recompute(jobless, 0, nil).Factors.WorkLife, base.Factors.WorkLife)

	commuter := in
	commuter.WorkRegion = "Scotland"
	assert.Less(t, Recompute(commuter, 0, nil).Factors.WorkLife, base.Factors.WorkLife)

	shabby := in
	shabby.HomeCondition = 20
	assert.Less(t, Recompute(shabby, 0, nil).Factors.Living, base.Factors.Living)

	single := in
	single.Married = false
	assert.Less(t, Recompute(single, 0, nil).Factors.Social, base.Factors.Social)

	older := in
	older.Age = 70
	older.HealthInsurance = false
	assert.Less(t, Recompute(older, 0, nil).Factors.Health, base.Factors.Health)
}
