package engine

import (
	"github.com/umuterturk/investment-game/internal/clock"
	"github.com/umuterturk/investment-game/internal/params"
)

// Event categories.
const (
	CategoryMonth  = "month"
	CategoryYear   = "year"
	CategoryTax    = "tax"
	CategoryLife   = "life"
	CategoryAction = "action"
	CategoryMarket = "market"
)

// Event is a notable occurrence in the player's life.
type Event struct {
	Seq         uint64         `json:"seq"`
	Date        clock.Date     `json:"date"`
	Tick        uint64         `json:"tick"`
	Description string         `json:"description"`
	Category    string         `json:"category"`
	Meta        map[string]any `json:"meta,omitempty"`
}

// emit appends to the bounded event ring. Callers hold s.mu.
func (s *Simulation) emit(e Event) {
	e.Date = s.clock.Date
	e.Tick = s.ticks
	s.emitted++
	e.Seq = s.emitted
	s.events = append(s.events, e)
	if len(s.events) > params.EventLogSize {
		s.events = append(s.events[:0:0], s.events[len(s.events)-params.EventLogSize:]...)
	}
}

// since returns the events emitted after the emitted count was n.
func (s *Simulation) since(n uint64) []Event {
	k := int(s.emitted - n)
	if k > len(s.events) {
		k = len(s.events)
	}
	if k <= 0 {
		return nil
	}
	return append([]Event(nil), s.events[len(s.events)-k:]...)
}
