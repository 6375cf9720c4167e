// Package valuation turns sparse yearly anchor prices into a continuous
// daily quote for stocks and property per square metre.
package valuation

import (
	"github.com/umuterturk/investment-game/internal/clock"
	"github.com/umuterturk/investment-game/internal/entropy"
	"github.com/umuterturk/investment-game/internal/params"
	"github.com/umuterturk/investment-game/internal/refdata"
)

// Anchors is the read side of the reference data the interpolator needs.
type Anchors interface {
	Anchor(key refdata.AssetKey, year int) (float64, bool)
	ExactAnchor(key refdata.AssetKey, year int) (float64, bool)
}

// DailyPriceState is the month bracket a quote is interpolated across.
type DailyPriceState struct {
	LastMonthAnchor    float64 `json:"last_month_anchor"`
	CurrentMonthAnchor float64 `json:"current_month_anchor"`
	MonthIndex         int     `json:"month_index"` // year*12+month the bracket belongs to

	quoteDay int
	quote    float64
}

// Interpolator prices assets day by day. Quotes are memoized per asset and
// date, so repeated reads never consume the random stream.
type Interpolator struct {
	anchors Anchors
	rng     entropy.Source
	states  map[refdata.AssetKey]*DailyPriceState
}

// New creates an interpolator drawing jitter from rng.
func New(anchors Anchors, rng entropy.Source) *Interpolator {
	return &Interpolator{
		anchors: anchors,
		rng:     rng,
		states:  make(map[refdata.AssetKey]*DailyPriceState),
	}
}

// Volatility returns the jitter width for an asset class.
func Volatility(class refdata.AssetClass) float64 {
	if class == refdata.ClassProperty {
		return params.PropertyVolatility
	}
	return params.StockVolatility
}

// MonthAnchor blends this year's anchor toward next year's by the elapsed
// fraction of the year. A missing next-year anchor extrapolates flat and a
// wholly absent series prices at zero.
func MonthAnchor(a Anchors, key refdata.AssetKey, month, year int) float64 {
	cur, ok := a.Anchor(key, year)
	if !ok {
		return 0
	}
	next, ok := a.ExactAnchor(key, year+1)
	if !ok {
		next = cur
	}
	return cur + (next-cur)*float64(month)/12
}

// Baseline is the jitter-free price of key on d: the in-month blend from
// last month's anchor toward this month's, exact on the last day.
func Baseline(a Anchors, key refdata.AssetKey, d clock.Date) float64 {
	cur := MonthAnchor(a, key, d.Month, d.Year)
	if cur == 0 {
		return 0
	}
	dim := clock.DaysInMonth(d.Month, d.Year)
	if d.Day >= dim {
		return cur
	}
	prevMonth, prevYear := d.Month-1, d.Year
	if prevMonth < 0 {
		prevMonth, prevYear = 11, d.Year-1
	}
	prev := MonthAnchor(a, key, prevMonth, prevYear)
	if prev == 0 {
		prev = cur
	}
	return prev + (cur-prev)*float64(d.Day-1)/float64(dim)
}

// PriceOf returns the quote for key on date d.
func (ip *Interpolator) PriceOf(key refdata.AssetKey, d clock.Date) float64 {
	st := ip.bracket(key, d)
	if st.CurrentMonthAnchor == 0 && st.LastMonthAnchor == 0 {
		return 0
	}
	if st.quoteDay == d.Day {
		return st.quote
	}

	dim := clock.DaysInMonth(d.Month, d.Year)
	var price float64
	if d.Day >= dim {
		price = st.CurrentMonthAnchor
	} else {
		frac := float64(d.Day-1) / float64(dim)
		base := st.LastMonthAnchor + (st.CurrentMonthAnchor-st.LastMonthAnchor)*frac
		price = base * (1 + (ip.rng.Float64()-0.5)*Volatility(key.Class))
	}
	if price < 0 {
		price = 0
	}
	st.quoteDay = d.Day
	st.quote = price
	return price
}

// bracket returns the month state for d, shifting or rebuilding it when d
// falls in a different month than the stored one.
func (ip *Interpolator) bracket(key refdata.AssetKey, d clock.Date) *DailyPriceState {
	idx := d.MonthIndex()
	st, ok := ip.states[key]
	if ok && st.MonthIndex == idx {
		return st
	}

	cur := MonthAnchor(ip.anchors, key, d.Month, d.Year)
	if ok && st.MonthIndex == idx-1 {
		st.LastMonthAnchor = st.CurrentMonthAnchor
		if st.LastMonthAnchor == 0 {
			st.LastMonthAnchor = cur
		}
	} else {
		// Fresh or discontinuous: derive the previous month directly.
		prevMonth, prevYear := d.Month-1, d.Year
		if prevMonth < 0 {
			prevMonth, prevYear = 11, d.Year-1
		}
		prev := MonthAnchor(ip.anchors, key, prevMonth, prevYear)
		if prev == 0 {
			prev = cur
		}
		st = &DailyPriceState{LastMonthAnchor: prev}
		ip.states[key] = st
	}
	st.CurrentMonthAnchor = cur
	st.MonthIndex = idx
	st.quoteDay = 0
	return st
}

// State returns a copy of the bracket for key, if one exists.
func (ip *Interpolator) State(key refdata.AssetKey) (DailyPriceState, bool) {
	st, ok := ip.states[key]
	if !ok {
		return DailyPriceState{}, false
	}
	return *st, true
}

// Refresh quotes every key for d in order. Called once per tick so the
// random stream is consumed in a cadence-independent order.
func (ip *Interpolator) Refresh(keys []refdata.AssetKey, d clock.Date) map[refdata.AssetKey]float64 {
	out := make(map[refdata.AssetKey]float64, len(keys))
	for _, k := range keys {
		out[k] = ip.PriceOf(k, d)
	}
	return out
}
