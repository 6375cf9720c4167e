package engine

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/umuterturk/investment-game/internal/clock"
	"github.com/umuterturk/investment-game/internal/entropy"
	"github.com/umuterturk/investment-game/internal/happiness"
	"github.com/umuterturk/investment-game/internal/lifeevents"
	"github.com/umuterturk/investment-game/internal/player"
	"github.com/umuterturk/investment-game/internal/refdata"
	"github.com/umuterturk/investment-game/internal/valuation"
)

// Options configure a new Simulation.
type Options struct {
	Data   *refdata.Dataset
	Seed   int64
	Start  clock.Date
	Age    int
	EndAge int
	Player *player.State
	// Events overrides the default life event table.
	Events []lifeevents.Event
}

// Simulation owns the clock, the market and the player. A single mutex
// serializes ticks and player actions so an action never lands inside a
// half-applied tick.
type Simulation struct {
	mu sync.Mutex

	data    *refdata.Dataset
	keys    []refdata.AssetKey
	rng     *entropy.Seeded
	clock   *clock.Clock
	prices  *valuation.Interpolator
	sampler *lifeevents.Sampler
	player  *player.State

	quotes    map[refdata.AssetKey]float64
	crash     *Crash
	events    []Event
	emitted   uint64
	statement *Statement
	ticks     uint64

	observer func(TickReport)
}

// New builds a simulation and prices the starting day.
func New(opts Options) (*Simulation, error) {
	if opts.Data == nil {
		return nil, fmt.Errorf("new simulation: no reference data")
	}
	if opts.Player == nil {
		return nil, fmt.Errorf("new simulation: no player")
	}
	s := build(opts.Data, entropy.NewSeeded(opts.Seed), opts.Events)
	s.clock = clock.New(opts.Start, opts.Age, opts.EndAge)
	s.player = opts.Player
	s.quotes = s.prices.Refresh(s.keys, s.clock.Date)
	s.applyCrash()
	s.recomputeHappiness()
	return s, nil
}

func build(data *refdata.Dataset, rng *entropy.Seeded, table []lifeevents.Event) *Simulation {
	if table == nil {
		table = lifeevents.DefaultTable()
	}
	return &Simulation{
		data:    data,
		keys:    data.Keys(),
		rng:     rng,
		prices:  valuation.New(data, rng),
		sampler: lifeevents.NewSampler(table, rng),
		quotes:  make(map[refdata.AssetKey]float64),
	}
}

// SetObserver registers fn to receive every tick report, however the tick
// was driven. fn runs outside the simulation lock.
func (s *Simulation) SetObserver(fn func(TickReport)) {
	s.mu.Lock()
	s.observer = fn
	s.mu.Unlock()
}

// Data returns the reference tables.
func (s *Simulation) Data() *refdata.Dataset { return s.data }

// Date returns today's date.
func (s *Simulation) Date() clock.Date {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clock.Date
}

// RunState returns the clock's run state.
func (s *Simulation) RunState() clock.RunState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clock.State
}

// SetRunState requests a transition. It reports false when the clock has
// ended or Ended is requested.
func (s *Simulation) SetRunState(state clock.RunState) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	from := s.clock.State
	ok := s.clock.SetRunState(state)
	if ok && from != state {
		slog.Info("run state changed", "from", from, "to", state, "date", s.clock.Date)
	}
	return ok
}

// TickReport summarizes one tick.
type TickReport struct {
	Date      clock.Date      `json:"date"`
	Tick      uint64          `json:"tick"`
	NewMonth  bool            `json:"new_month"`
	NewYear   bool            `json:"new_year"`
	Ended     bool            `json:"ended"`
	Statement *Statement      `json:"statement,omitempty"`
	Events    []Event         `json:"events,omitempty"`
	Snapshot  PlayerStateView `json:"snapshot"`
}

// Tick advances one day and runs every routine due on it: price refresh,
// then monthly settlement with the optional life event on the 1st, yearly
// re-indexing on January 1, capital gains on April 1, and finally the
// happiness recompute. Ticking works while paused; only Ended refuses.
func (s *Simulation) Tick() (TickReport, error) {
	s.mu.Lock()
	report, err := s.tickLocked()
	obs := s.observer
	s.mu.Unlock()
	if err == nil && obs != nil {
		obs(report)
	}
	return report, err
}

func (s *Simulation) tickLocked() (TickReport, error) {
	if s.clock.State == clock.Ended {
		return TickReport{}, player.ErrGameOver
	}
	mark := s.emitted

	roll := s.clock.Advance()
	s.ticks++
	s.quotes = s.prices.Refresh(s.keys, s.clock.Date)
	s.applyCrash()

	report := TickReport{
		Date:     s.clock.Date,
		Tick:     s.ticks,
		NewMonth: roll.NewMonth,
		NewYear:  roll.NewYear,
		Ended:    roll.Ended,
	}
	if roll.NewYear {
		s.settleYear()
	}
	if roll.NewMonth {
		st := s.settleMonth()
		report.Statement = &st
	}
	if s.clock.Month == taxYearMonth && s.clock.Day == taxYearDay {
		s.settleTaxYear()
	}
	s.recomputeHappiness()

	if roll.Ended {
		s.emit(Event{Category: CategoryLife, Description: fmt.Sprintf("Retired at %d", s.clock.Age)})
		slog.Info("game over", "date", s.clock.Date, "age", s.clock.Age,
			"net_worth", money(s.player.NetWorth(s.market()).Total))
	}
	report.Events = s.since(mark)
	report.Snapshot = s.snapshotLocked()
	return report, nil
}

// PlayerStateView is the read-only view handed to renderers.
type PlayerStateView struct {
	Date      clock.Date         `json:"date"`
	Age       int                `json:"age"`
	EndAge    int                `json:"end_age"`
	RunState  string             `json:"run_state"`
	Player    *player.State      `json:"player"`
	Worth     player.Worth       `json:"net_worth"`
	Prices    map[string]float64 `json:"prices"`
	Happiness happiness.State    `json:"happiness"`
	Crash     *Crash             `json:"crash,omitempty"`
	LastMonth *Statement         `json:"last_month,omitempty"`
}

// Snapshot returns a deep copy of the player and today's market.
func (s *Simulation) Snapshot() PlayerStateView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Simulation) snapshotLocked() PlayerStateView {
	prices := make(map[string]float64, len(s.quotes))
	for k, v := range s.quotes {
		prices[k.String()] = v
	}
	v := PlayerStateView{
		Date:      s.clock.Date,
		Age:       s.clock.Age,
		EndAge:    s.clock.EndAge,
		RunState:  s.clock.State.String(),
		Player:    s.player.Clone(),
		Worth:     s.player.NetWorth(s.market()),
		Prices:    prices,
		Happiness: s.player.Happiness,
	}
	if s.crash != nil {
		c := *s.crash
		v.Crash = &c
	}
	if s.statement != nil {
		st := *s.statement
		v.LastMonth = &st
	}
	return v
}

// PriceOf returns the quote for key on d. For today it is the quote the
// player trades at, with jitter and any crash. Any other date is priced
// from the anchors alone (valuation.Baseline), times the crash factor for
// stocks, and consumes no random draws: asking for 2008-06-15 twice gives
// the same number, while today's quote can differ from the baseline for
// today by the month's jitter.
func (s *Simulation) PriceOf(key refdata.AssetKey, d clock.Date) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d == s.clock.Date {
		return s.quotes[key]
	}
	p := valuation.Baseline(s.data, key, d)
	if key.Class == refdata.ClassStock {
		p *= s.crash.factor(d.MonthIndex())
	}
	return p
}

// NetWorth values st at today's quotes.
func (s *Simulation) NetWorth(st *player.State) player.Worth {
	s.mu.Lock()
	defer s.mu.Unlock()
	return st.NetWorth(s.market())
}

// Events returns the most recent events, oldest first.
func (s *Simulation) Events(limit int) []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	start := 0
	if limit > 0 && len(s.events) > limit {
		start = len(s.events) - limit
	}
	return append([]Event(nil), s.events[start:]...)
}

func (s *Simulation) recomputeHappiness() {
	p := s.player
	d := s.clock.Date
	now := d.Tick()

	in := happiness.Inputs{
		Month:            d.Month,
		Age:              s.clock.Age,
		Cash:             p.Cash,
		MonthlyOutgoings: s.monthlyOutgoings(),
		TotalDebt:        p.TotalDebt(),
		Unemployed:       !p.Job.Employed(),
		LivingSpaceSqm:   p.LivingSpace(),
		HouseholdSize:    p.HouseholdSize(),
		HomeRegion:       p.HomeRegion,
		WorkRegion:       p.Job.Region,
		Married:          p.Married,
		Children:         p.Children,
		ChildExpenses:    p.ChildExpenses,
		HealthInsurance:  p.Insurance.Health,
		HomeInsurance:    p.Insurance.Home,
		IncomeInsurance:  p.Insurance.Income,
	}
	if p.Job.Employed() {
		in.AnnualIncome = p.Job.Salary
	}
	if avg, ok := s.data.AverageIncomeFor(p.HomeRegion, d.Year); ok {
		in.RegionalAverageIncome = avg
	}
	if home, ok := p.PrimaryHome(); ok {
		in.OwnsHome = true
		in.HomeCondition = home.Condition
	}
	if local, ok := s.data.Anchor(refdata.Region(p.HomeRegion), d.Year); ok {
		in.LocalPricePerSqm = local
	}
	if national, ok := s.data.NationalPricePerSqm(d.Year); ok {
		in.NationalPricePerSqm = national
	}

	p.Happiness = happiness.Recompute(in, now, p.Modifiers)
	p.Modifiers = p.Happiness.ShortTermModifiers
}
