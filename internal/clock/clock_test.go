package clock

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLeapFebruary(t *testing.T) {
	assert.Equal(t, 29, DaysInMonth(1, 2008))
	assert.Equal(t, 28, DaysInMonth(1, 2009))
	assert.Equal(t, 28, DaysInMonth(1, 2100))
	assert.Equal(t, 29, DaysInMonth(1, 2000))
	assert.Equal(t, 31, DaysInMonth(11, 2008))
}

func TestAdvanceThroughLeapYear(t *testing.T) {
	c := New(Date{Day: 1, Month: 0, Year: 2008}, 25, 60)
	months, years := 0, 0
	for i := 0; i < 365; i++ {
		r := c.Advance()
		require.True(t, r.Advanced)
		if r.NewMonth {
			months++
		}
		if r.NewYear {
			years++
		}
		require.GreaterOrEqual(t, c.Day, 1)
		require.LessOrEqual(t, c.Day, DaysInMonth(c.Month, c.Year))
	}
	assert.Equal(t, Date{Day: 31, Month: 11, Year: 2008}, c.Date)
	assert.Equal(t, 11, months)
	assert.Equal(t, 0, years)
	assert.Equal(t, 25, c.Age)

	r := c.Advance()
	assert.True(t, r.NewMonth)
	assert.True(t, r.NewYear)
	assert.Equal(t, Date{Day: 1, Month: 0, Year: 2009}, c.Date)
	assert.Equal(t, 26, c.Age)
}

func TestEndAgeIsTerminal(t *testing.T) {
	c := New(Date{Day: 31, Month: 11, Year: 2023}, 40, 41)
	require.True(t, c.SetRunState(Running))

	r := c.Advance()
	assert.True(t, r.Ended)
	assert.Equal(t, Ended, c.State)
	assert.Equal(t, 41, c.Age)

	before := c.Date
	r = c.Advance()
	assert.False(t, r.Advanced)
	assert.Equal(t, before, c.Date)

	assert.False(t, c.SetRunState(Running))
	assert.Equal(t, Ended, c.State)
}

func TestStartsEndedPastEndAge(t *testing.T) {
	c := New(Date{Day: 1, Month: 0, Year: 2005}, 70, 65)
	assert.Equal(t, Ended, c.State)
}

func TestRunStateTransitions(t *testing.T) {
	c := New(Date{Day: 1, Month: 0, Year: 2005}, 25, 0)
	assert.Equal(t, Paused, c.State)
	assert.False(t, c.Running())

	assert.True(t, c.SetRunState(Fast))
	assert.True(t, c.Running())
	assert.True(t, c.SetRunState(Paused))
	assert.False(t, c.SetRunState(Ended))
	assert.Equal(t, Paused, c.State)

	s, err := ParseRunState("fast")
	require.NoError(t, err)
	assert.Equal(t, Fast, s)
	_, err = ParseRunState("turbo")
	assert.Error(t, err)
}

func TestLinearTick(t *testing.T) {
	d := Date{Day: 5, Month: 2, Year: 2010}
	assert.Equal(t, 5+2*30+2010*365, d.Tick())

	// 31-day months overlap the next month's first tick.
	last := Date{Day: 31, Month: 0, Year: 2010}
	first := Date{Day: 1, Month: 1, Year: 2010}
	assert.Equal(t, last.Tick(), first.Tick())
}

func TestNormalizeClampsDay(t *testing.T) {
	c := New(Date{Day: 31, Month: 1, Year: 2009}, 30, 0)
	assert.Equal(t, 28, c.Day)
	assert.True(t, c.LastOfMonth())
	assert.Equal(t, "2009-02-28", c.Date.String())
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2008-02-29")
	require.NoError(t, err)
	assert.Equal(t, Date{Day: 29, Month: 1, Year: 2008}, d)
	assert.Equal(t, "2008-02-29", d.String())

	_, err = ParseDate("2009-02-29")
	assert.Error(t, err)
	_, err = ParseDate("2009-13-01")
	assert.Error(t, err)
	_, err = ParseDate("yesterday")
	assert.Error(t, err)
}
