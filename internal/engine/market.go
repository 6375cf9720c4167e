package engine

import (
	"github.com/umuterturk/investment-game/internal/params"
	"github.com/umuterturk/investment-game/internal/refdata"
)

// Crash is an active market crash. Stock quotes are scaled down by Depth
// in the crash month and recover linearly over RecoveryMonths.
type Crash struct {
	Depth          float64 `json:"depth"`
	RecoveryMonths int     `json:"recovery_months"`
	StartMonth     int     `json:"start_month"` // year*12+month
}

// factor is the multiplier on stock prices in month idx. A nil crash is 1.
func (c *Crash) factor(idx int) float64 {
	if c == nil || c.RecoveryMonths <= 0 {
		return 1
	}
	elapsed := idx - c.StartMonth
	if elapsed < 0 || elapsed >= c.RecoveryMonths {
		return 1
	}
	return 1 - c.Depth*(1-float64(elapsed)/float64(c.RecoveryMonths))
}

// applyCrash scales today's stock quotes and retires a recovered crash.
func (s *Simulation) applyCrash() {
	if s.crash == nil {
		return
	}
	idx := s.clock.MonthIndex()
	if idx-s.crash.StartMonth >= s.crash.RecoveryMonths {
		s.crash = nil
		return
	}
	f := s.crash.factor(idx)
	for k, v := range s.quotes {
		if k.Class == refdata.ClassStock {
			s.quotes[k] = v * f
		}
	}
}

// startCrash replaces any active crash. Today's stock quotes already carry
// the old crash's factor, so it is divided out before the new one applies.
func (s *Simulation) startCrash(c *Crash) {
	if old := s.crash.factor(s.clock.MonthIndex()); old > 0 && old != 1 {
		for k, v := range s.quotes {
			if k.Class == refdata.ClassStock {
				s.quotes[k] = v / old
			}
		}
	}
	s.crash = c
	s.applyCrash()
}

// marketView exposes today's market to player actions. Callers hold s.mu.
type marketView struct{ s *Simulation }

func (s *Simulation) market() marketView { return marketView{s} }

func (m marketView) Quote(key refdata.AssetKey) (float64, bool) {
	v, ok := m.s.quotes[key]
	return v, ok && v > 0
}

func (m marketView) RentPerSqm(region string) (float64, bool) {
	return m.s.data.Rent(region, m.s.clock.Year)
}

func (m marketView) BaseRate() float64 {
	r, _ := m.s.data.BaseRate(m.s.clock.Year, m.s.clock.Month)
	return r
}

func (m marketView) StampDuty() refdata.StampDutyRule {
	r, _ := m.s.data.StampDutyFor(m.s.clock.Year)
	return r
}

func (m marketView) CapitalGains() refdata.CapitalGainsRule {
	r, _ := m.s.data.CapitalGainsFor(taxYearOf(m.s.clock.Year, m.s.clock.Month))
	return r
}

func (m marketView) Year() int  { return m.s.clock.Year }
func (m marketView) Month() int { return m.s.clock.Month }

const (
	taxYearMonth = params.TaxYearMonth
	taxYearDay   = params.TaxYearDay
)

// taxYearOf returns the calendar year a tax year starting each April is
// keyed by.
func taxYearOf(year, month int) int {
	if month < taxYearMonth {
		return year - 1
	}
	return year
}
