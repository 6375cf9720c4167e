package engine

import (
	"fmt"

	"github.com/umuterturk/investment-game/internal/clock"
	"github.com/umuterturk/investment-game/internal/entropy"
	"github.com/umuterturk/investment-game/internal/lifeevents"
	"github.com/umuterturk/investment-game/internal/player"
	"github.com/umuterturk/investment-game/internal/refdata"
)

// StateVersion is bumped when State changes shape.
const StateVersion = 1

// State is the plain serializable form of a running game.
type State struct {
	Version   int                `json:"version"`
	Dataset   string             `json:"dataset"`
	Seed      int64              `json:"seed"`
	Draws     uint64             `json:"draws"`
	Ticks     uint64             `json:"ticks"`
	Emitted   uint64             `json:"emitted"`
	Clock     clock.Clock        `json:"clock"`
	Player    *player.State      `json:"player"`
	Quotes    map[string]float64 `json:"quotes"`
	Crash     *Crash             `json:"crash,omitempty"`
	Statement *Statement         `json:"statement,omitempty"`
	Events    []Event            `json:"events"`
}

// Export captures the simulation for a save.
func (s *Simulation) Export() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	quotes := make(map[string]float64, len(s.quotes))
	for k, v := range s.quotes {
		quotes[k.String()] = v
	}
	st := State{
		Version: StateVersion,
		Dataset: s.data.Name,
		Seed:    s.rng.Seed(),
		Draws:   s.rng.Draws(),
		Ticks:   s.ticks,
		Emitted: s.emitted,
		Clock:   *s.clock,
		Player:  s.player.Clone(),
		Quotes:  quotes,
		Events:  append([]Event(nil), s.events...),
	}
	if s.crash != nil {
		c := *s.crash
		st.Crash = &c
	}
	if s.statement != nil {
		m := *s.statement
		st.Statement = &m
	}
	return st
}

// Restore rebuilds a simulation from a save. The random stream resumes at
// the saved draw count and today's quotes are taken from the save, so the
// next tick continues exactly where the saved game left off.
func Restore(data *refdata.Dataset, st State, table []lifeevents.Event) (*Simulation, error) {
	if st.Version != StateVersion {
		return nil, fmt.Errorf("restore: state version %d, want %d", st.Version, StateVersion)
	}
	if st.Player == nil {
		return nil, fmt.Errorf("restore: no player")
	}
	s := build(data, entropy.Resume(st.Seed, st.Draws), table)
	c := st.Clock
	s.clock = &c
	s.player = st.Player.Clone()
	if s.player.Holdings == nil {
		s.player.Holdings = make(map[string]player.Holding)
	}
	s.ticks = st.Ticks
	s.crash = st.Crash
	s.statement = st.Statement
	s.events = append([]Event(nil), st.Events...)
	s.emitted = st.Emitted
	for k, v := range st.Quotes {
		key, err := refdata.ParseAssetKey(k)
		if err != nil {
			return nil, fmt.Errorf("restore quotes: %w", err)
		}
		s.quotes[key] = v
	}
	return s, nil
}
