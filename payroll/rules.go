package payroll

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/warp/attendance-engine/generic"
)

// Rules holds the payroll thresholds.
type Rules struct {
	CycleStartDay int // day of month a cycle opens on
	DaysPerMonth  int // divisor turning a monthly salary into a daily rate
}

func DefaultRules() Rules {
	return Rules{CycleStartDay: generic.DefaultCycleStartDay, DaysPerMonth: 30}
}

func (r Rules) Validate() error {
	if err := r.Calendar().Validate(); err != nil {
		return err
	}
	if r.DaysPerMonth <= 0 {
		return fmt.Errorf("days per month must be positive, got %d", r.DaysPerMonth)
	}
	return nil
}

func (r Rules) Calendar() generic.CycleCalendar {
	return generic.CycleCalendar{StartDay: r.CycleStartDay}
}

// DailyRate divides a monthly salary by DaysPerMonth, rounded to paise.
func (r Rules) DailyRate(monthly decimal.Decimal) decimal.Decimal {
	days := r.DaysPerMonth
	if days <= 0 {
		days = DefaultRules().DaysPerMonth
	}
	return monthly.Div(decimal.NewFromInt(int64(days))).Round(2)
}

// AccrualAmount is what one day of status earns at rate.
func AccrualAmount(status generic.Status, rate decimal.Decimal) decimal.Decimal {
	return rate.Mul(status.PayWeight())
}
