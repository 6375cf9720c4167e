package engine

import (
	"log/slog"
	"math"

	"github.com/umuterturk/investment-game/internal/happiness"
	"github.com/umuterturk/investment-game/internal/lifeevents"
	"github.com/umuterturk/investment-game/internal/params"
	"github.com/umuterturk/investment-game/internal/player"
)

func (s *Simulation) eventContext() lifeevents.Context {
	p := s.player
	ctx := lifeevents.Context{Married: p.Married, Employed: p.Job.Employed()}
	for _, prop := range p.Properties {
		ctx.Properties = append(ctx.Properties, lifeevents.Property{ID: prop.ID, Condition: prop.Condition})
	}
	return ctx
}

func (s *Simulation) covered(c lifeevents.Cover) bool {
	switch c {
	case lifeevents.CoverHome:
		return s.player.Insurance.Home
	case lifeevents.CoverHealth:
		return s.player.Insurance.Health
	case lifeevents.CoverIncome:
		return s.player.Insurance.Income
	default:
		return false
	}
}

// insuredCost is what the player pays of cost once cover applies.
func (s *Simulation) insuredCost(cost float64, c lifeevents.Cover) float64 {
	if !s.covered(c) {
		return cost
	}
	return cost * (1 - params.InsuredShare)
}

// applyOutcome is the only place effects touch the player.
func (s *Simulation) applyOutcome(out lifeevents.Outcome) {
	p := s.player
	meta := map[string]any{"event": out.Name, "effect": lifeevents.Kind(out.Effect)}

	switch e := out.Effect.(type) {
	case lifeevents.CashChange:
		amount := e.Amount
		if amount < 0 {
			amount = -s.insuredCost(-amount, out.InsuredBy)
		}
		p.Cash += amount
		meta["amount"] = amount
	case lifeevents.JobLoss:
		if p.Job.UnemployedMonths < e.Months {
			p.Job.UnemployedMonths = e.Months
		}
		meta["months"] = e.Months
	case lifeevents.MarketCrash:
		s.startCrash(&Crash{Depth: e.Depth, RecoveryMonths: e.RecoveryMonths, StartMonth: s.clock.MonthIndex()})
		meta["depth"] = e.Depth
	case lifeevents.Divorce:
		p.Married = false
		lost := math.Max(p.Cash, 0) * e.CashShare
		p.Cash -= lost
		meta["amount"] = -lost
	case lifeevents.ChildExpense:
		p.ChildExpenses = math.Max(0, p.ChildExpenses+e.Monthly)
		if e.NewChild {
			p.Children++
		}
		meta["monthly"] = e.Monthly
	case lifeevents.PropertyConditionChange:
		for i := range p.Properties {
			prop := &p.Properties[i]
			if prop.ID != e.PropertyID {
				continue
			}
			prop.Condition = math.Max(0, math.Min(100, prop.Condition+e.Delta))
			cost := s.insuredCost(e.RepairCost, out.InsuredBy)
			p.Cash -= cost
			meta["property_id"] = prop.ID
			meta["condition"] = prop.Condition
			meta["amount"] = -cost
		}
	}

	if out.Mood.Value != 0 && out.Mood.Days > 0 {
		p.Modifiers = append(p.Modifiers, happiness.Modifier{
			Value:  out.Mood.Value,
			Expiry: s.clock.Tick() + out.Mood.Days,
			Reason: out.Name,
		})
	}
	if out.InsuredBy != lifeevents.CoverNone {
		meta["insured"] = s.covered(out.InsuredBy)
	}

	category := CategoryLife
	if _, ok := out.Effect.(lifeevents.MarketCrash); ok {
		category = CategoryMarket
	}
	s.emit(Event{Category: category, Description: out.Description, Meta: meta})
	slog.Info("life event", "event", out.Name, "date", s.clock.Date, "cash", money(p.Cash))
}

var _ player.Market = marketView{}
