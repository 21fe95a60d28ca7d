package generic

import (
	"fmt"
	"time"
)

// =============================================================================
// PERIOD - Inclusive day range
// =============================================================================

// Period is an inclusive range of days [Start, End].
type Period struct {
	Start Day
	End   Day
}

// NewPeriod validates that end is not before start.
func NewPeriod(start, end Day) (Period, error) {
	if end.Before(start) {
		return Period{}, fmt.Errorf("%w: %s > %s", ErrInvalidPeriod, start, end)
	}
	return Period{Start: start, End: end}, nil
}

// Contains returns true if the day is within the period [Start, End]
func (p Period) Contains(d Day) bool {
	return d.AfterOrEqual(p.Start) && d.BeforeOrEqual(p.End)
}

// Days returns all days in the period in ascending order.
func (p Period) Days() []Day {
	var days []Day
	for current := p.Start; current.BeforeOrEqual(p.End); current = current.AddDays(1) {
		days = append(days, current)
	}
	return days
}

// NumDays counts days inclusively: 24 Nov - 23 Dec is 30.
func (p Period) NumDays() int {
	if p.End.Before(p.Start) {
		return 0
	}
	return p.Start.DaysUntil(p.End) + 1
}

func (p Period) String() string {
	return "[" + p.Start.String() + ", " + p.End.String() + "]"
}

// =============================================================================
// PAYROLL CYCLE - Runs from the 24th of one month to the 23rd of the next
// =============================================================================

// DefaultCycleStartDay is the day of month on which every payroll cycle opens.
const DefaultCycleStartDay = 24

// CycleCalendar computes payroll cycle boundaries. The zero value uses
// DefaultCycleStartDay.
type CycleCalendar struct {
	StartDay int
}

func (c CycleCalendar) startDay() int {
	if c.StartDay <= 0 {
		return DefaultCycleStartDay
	}
	return c.StartDay
}

// Validate rejects start days that do not exist in every month.
func (c CycleCalendar) Validate() error {
	if sd := c.startDay(); sd < 2 || sd > 28 {
		return fmt.Errorf("cycle start day must be between 2 and 28, got %d", sd)
	}
	return nil
}

// ForMonth returns the cycle named after (year, month): it starts on the start
// day of the previous month and ends the day before the start day of month.
// December 2025 is [2025-11-24, 2025-12-23]; January 2026 is [2025-12-24, 2026-01-23].
func (c CycleCalendar) ForMonth(year int, month time.Month) Period {
	sd := c.startDay()
	return Period{
		Start: NewDay(year, month-1, sd),
		End:   NewDay(year, month, sd-1),
	}
}

// Containing returns the cycle that today falls in.
func (c CycleCalendar) Containing(today Day) Period {
	if today.DayOfMonth() < c.startDay() {
		return c.ForMonth(today.Year(), today.Month())
	}
	return c.ForMonth(today.Year(), today.Month()+1)
}

// StartOn returns the most recent cycle start on or before today.
func (c CycleCalendar) StartOn(today Day) Day {
	return c.Containing(today).Start
}

// IsBoundary reports whether today opens a new cycle.
func (c CycleCalendar) IsBoundary(today Day) bool {
	return today.DayOfMonth() == c.startDay()
}

// PayrollDays is the inclusive number of days of the (year, month) cycle.
func (c CycleCalendar) PayrollDays(year int, month time.Month) int {
	return c.ForMonth(year, month).NumDays()
}

// YearRange is the calendar year [Jan 1, Dec 31].
func YearRange(year int) Period {
	return Period{Start: NewDay(year, time.January, 1), End: NewDay(year, time.December, 31)}
}

// MonthRange is the calendar month [1st, last day].
func MonthRange(year int, month time.Month) Period {
	start := NewDay(year, month, 1)
	return Period{Start: start, End: start.AddMonths(1).AddDays(-1)}
}
