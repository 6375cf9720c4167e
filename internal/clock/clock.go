// Package clock advances game time one day per tick and owns the
// run/pause/fast/ended state machine.
package clock

import (
	"fmt"

	"github.com/umuterturk/investment-game/internal/params"
)

// RunState is the externally driven cadence of the clock.
type RunState uint8

const (
	Paused RunState = iota
	Running
	Fast
	Ended
)

func (s RunState) String() string {
	switch s {
	case Paused:
		return "paused"
	case Running:
		return "running"
	case Fast:
		return "fast"
	case Ended:
		return "ended"
	default:
		return "unknown"
	}
}

// ParseRunState is the inverse of String.
func ParseRunState(s string) (RunState, error) {
	switch s {
	case "paused":
		return Paused, nil
	case "running":
		return Running, nil
	case "fast":
		return Fast, nil
	case "ended":
		return Ended, nil
	}
	return Paused, fmt.Errorf("unknown run state %q", s)
}

// Date is a calendar day. Month is zero-based.
type Date struct {
	Day   int `json:"day"`
	Month int `json:"month"`
	Year  int `json:"year"`
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month+1, d.Day)
}

// ParseDate reads the YYYY-MM-DD form produced by String.
func ParseDate(s string) (Date, error) {
	var d Date
	if _, err := fmt.Sscanf(s, "%4d-%2d-%2d", &d.Year, &d.Month, &d.Day); err != nil {
		return Date{}, fmt.Errorf("date %q: %w", s, err)
	}
	d.Month--
	if d.Month < 0 || d.Month > 11 || d.Day < 1 || d.Day > DaysInMonth(d.Month, d.Year) {
		return Date{}, fmt.Errorf("date %q: out of range", s)
	}
	return d, nil
}

// Before reports whether d is strictly earlier than o.
func (d Date) Before(o Date) bool {
	if d.Year != o.Year {
		return d.Year < o.Year
	}
	if d.Month != o.Month {
		return d.Month < o.Month
	}
	return d.Day < o.Day
}

// LastOfMonth reports whether d is the final day of its month.
func (d Date) LastOfMonth() bool { return d.Day == DaysInMonth(d.Month, d.Year) }

// MonthIndex is a running month count, handy for month arithmetic.
func (d Date) MonthIndex() int { return d.Year*12 + d.Month }

// Tick is the linear day count used for modifier expiry:
// day + month×30 + year×365. It ignores real month lengths.
func (d Date) Tick() int {
	return d.Day + d.Month*params.TickDaysPerMonth + d.Year*params.TickDaysPerYear
}

// IsLeap reports Gregorian leap years.
func IsLeap(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

var monthDays = [12]int{31, 28, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31}

// DaysInMonth returns the length of month (0-11) in year. Out-of-range
// months are wrapped into range.
func DaysInMonth(month, year int) int {
	month = ((month % 12) + 12) % 12
	if month == 1 && IsLeap(year) {
		return 29
	}
	return monthDays[month]
}

// Rollover reports which boundaries one Advance crossed.
type Rollover struct {
	Advanced bool
	NewMonth bool
	NewYear  bool
	Ended    bool
}

// Clock is the simulation calendar plus the player's age.
type Clock struct {
	Date
	Age    int      `json:"age"`
	EndAge int      `json:"end_age"`
	State  RunState `json:"state"`
}

// New creates a paused clock at the given date. A clock created at or past
// the end age starts Ended.
func New(start Date, age, endAge int) *Clock {
	c := &Clock{Date: normalize(start), Age: age, EndAge: endAge, State: Paused}
	if c.finished() {
		c.State = Ended
	}
	return c
}

func normalize(d Date) Date {
	if d.Month < 0 || d.Month > 11 {
		d.Month = ((d.Month % 12) + 12) % 12
	}
	if d.Day < 1 {
		d.Day = 1
	}
	if dim := DaysInMonth(d.Month, d.Year); d.Day > dim {
		d.Day = dim
	}
	return d
}

func (c *Clock) finished() bool { return c.EndAge > 0 && c.Age >= c.EndAge }

// Advance moves the clock forward one day. It is a no-op once Ended.
func (c *Clock) Advance() Rollover {
	if c.State == Ended {
		return Rollover{Ended: true}
	}
	r := Rollover{Advanced: true}

	c.Day++
	if c.Day > DaysInMonth(c.Month, c.Year) {
		c.Day = 1
		c.Month++
		r.NewMonth = true
		if c.Month > 11 {
			c.Month = 0
			c.Year++
			c.Age++
			r.NewYear = true
		}
	}

	if c.finished() {
		c.State = Ended
		r.Ended = true
	}
	return r
}

// SetRunState applies an external transition. Ended is terminal, and
// Ended cannot be requested directly; both cases report false.
func (c *Clock) SetRunState(s RunState) bool {
	if c.State == Ended || s == Ended {
		return false
	}
	c.State = s
	return true
}

// Running reports whether an external timer should be ticking.
func (c *Clock) Running() bool { return c.State == Running || c.State == Fast }
