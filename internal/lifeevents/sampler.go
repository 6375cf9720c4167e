package lifeevents

import (
	"github.com/umuterturk/investment-game/internal/entropy"
	"github.com/umuterturk/investment-game/internal/params"
)

// Guard is a precondition on the player for an event to fire.
type Guard int

const (
	GuardNone Guard = iota
	GuardOwnsProperty
	GuardMarried
	GuardSingle
	GuardEmployed
)

// Event is one row of the table.
type Event struct {
	Name        string
	Description string
	Probability float64 // per month
	Guard       Guard
	// ConditionScaled events are more likely the worse the player's
	// worst-kept property is, up to double at condition 0.
	ConditionScaled bool
	Effect          Effect
	Mood            Mood
	InsuredBy       Cover
}

// Property is the slice of a property the sampler needs.
type Property struct {
	ID        string
	Condition float64
}

// Context is what guards and adjustments read.
type Context struct {
	Married    bool
	Employed   bool
	Properties []Property
}

// Outcome is a fired event with its effect resolved against the context.
type Outcome struct {
	Name        string
	Description string
	Effect      Effect
	Mood        Mood
	InsuredBy   Cover
}

// Sampler draws from a single randomness source.
type Sampler struct {
	events []Event
	rng    entropy.Source
}

// NewSampler returns a sampler over events in table order.
func NewSampler(events []Event, rng entropy.Source) *Sampler {
	return &Sampler{events: events, rng: rng}
}

// Events returns the table.
func (s *Sampler) Events() []Event { return s.events }

// Sample draws one uniform per event in order and returns the first event
// whose draw succeeds and whose guard holds. Drawing stops once an event
// fires, so at most one event fires per call.
func (s *Sampler) Sample(ctx Context) (Outcome, bool) {
	for _, ev := range s.events {
		u := s.rng.Float64()
		p := ev.Probability
		var target *Property
		if ev.ConditionScaled || needsProperty(ev.Effect) {
			target = worstKept(ctx.Properties)
		}
		if ev.ConditionScaled && target != nil {
			p *= 1 + (100-clampCondition(target.Condition))/100
		}
		if u >= p || !guardHolds(ev.Guard, ctx) {
			continue
		}
		effect := ev.Effect
		if pc, ok := effect.(PropertyConditionChange); ok {
			if target == nil {
				continue
			}
			pc.PropertyID = target.ID
			effect = pc
		}
		return Outcome{
			Name:        ev.Name,
			Description: ev.Description,
			Effect:      effect,
			Mood:        ev.Mood,
			InsuredBy:   ev.InsuredBy,
		}, true
	}
	return Outcome{}, false
}

func guardHolds(g Guard, ctx Context) bool {
	switch g {
	case GuardOwnsProperty:
		return len(ctx.Properties) > 0
	case GuardMarried:
		return ctx.Married
	case GuardSingle:
		return !ctx.Married
	case GuardEmployed:
		return ctx.Employed
	default:
		return true
	}
}

func needsProperty(e Effect) bool {
	_, ok := e.(PropertyConditionChange)
	return ok
}

func worstKept(props []Property) *Property {
	var worst *Property
	for i := range props {
		if worst == nil || props[i].Condition < worst.Condition {
			worst = &props[i]
		}
	}
	return worst
}

func clampCondition(c float64) float64 {
	if c < 0 {
		return 0
	}
	if c > 100 {
		return 100
	}
	return c
}

// DefaultTable is the stock event table, most severe first.
func DefaultTable() []Event {
	return []Event{
		{
			Name:        "market_crash",
			Description: "Markets tumble as a financial crisis spreads",
			Probability: 0.004,
			Effect:      MarketCrash{Depth: params.CrashDepth, RecoveryMonths: params.CrashRecoveryMonths},
			Mood:        Mood{Value: -5, Days: 60},
		},
		{
			Name:        "redundancy",
			Description: "Your employer makes you redundant",
			Probability: 0.006,
			Guard:       GuardEmployed,
			Effect:      JobLoss{Months: 4},
			Mood:        Mood{Value: -10, Days: 120},
		},
		{
			Name:            "house_fire",
			Description:     "A fire damages one of your properties",
			Probability:     0.002,
			Guard:           GuardOwnsProperty,
			ConditionScaled: true,
			Effect:          PropertyConditionChange{Delta: -40, RepairCost: 15000},
			Mood:            Mood{Value: -12, Days: 90},
			InsuredBy:       CoverHome,
		},
		{
			Name:            "burst_pipe",
			Description:     "A burst pipe floods a property",
			Probability:     0.01,
			Guard:           GuardOwnsProperty,
			ConditionScaled: true,
			Effect:          PropertyConditionChange{Delta: -10, RepairCost: 2500},
			Mood:            Mood{Value: -4, Days: 30},
			InsuredBy:       CoverHome,
		},
		{
			Name:        "divorce",
			Description: "Your marriage ends in divorce",
			Probability: 0.002,
			Guard:       GuardMarried,
			Effect:      Divorce{CashShare: params.DivorceCashShare},
			Mood:        Mood{Value: -20, Days: 365},
		},
		{
			Name:        "new_baby",
			Description: "A new baby joins the family",
			Probability: 0.008,
			Guard:       GuardMarried,
			Effect:      ChildExpense{Monthly: params.ChildMonthlyCost, NewChild: true},
			Mood:        Mood{Value: 15, Days: 180},
		},
		{
			Name:        "medical_bill",
			Description: "An illness leaves you with private treatment bills",
			Probability: 0.01,
			Effect:      CashChange{Amount: -3000},
			Mood:        Mood{Value: -6, Days: 45},
			InsuredBy:   CoverHealth,
		},
		{
			Name:        "car_repair",
			Description: "Your car needs an expensive repair",
			Probability: 0.02,
			Effect:      CashChange{Amount: -900},
			Mood:        Mood{Value: -2, Days: 14},
		},
		{
			Name:        "work_bonus",
			Description: "You receive a performance bonus",
			Probability: 0.02,
			Guard:       GuardEmployed,
			Effect:      CashChange{Amount: 2000},
			Mood:        Mood{Value: 5, Days: 30},
		},
		{
			Name:        "inheritance",
			Description: "A distant relative leaves you an inheritance",
			Probability: 0.002,
			Effect:      CashChange{Amount: 25000},
			Mood:        Mood{Value: 3, Days: 60},
		},
	}
}
