/*
Package factory provides JSON to Go rules conversion.

PURPOSE:
  Converts a JSON rules document into attendance.Rules and payroll.Rules.
  Thresholds (login window, minimum hours, cycle start day, daily rate
  divisor) can then be tuned per deployment without code changes.

JSON SCHEMA:
  {
    "attendance": {
      "login_start": "09:00",
      "full_present_limit": "09:10",
      "full_day_logout": "18:00",
      "auto_logout_at": "18:30",
      "min_hours": 5,
      "full_day_hours": 9
    },
    "payroll": {
      "cycle_start_day": 24,
      "days_per_month": 30
    }
  }

  Every field is optional; a missing field keeps its default.

USAGE:
  f := factory.NewRulesFactory()
  rules, err := f.LoadFile("rules.json")
  engine := attendance.NewEngine(..., attendance.WithRules(rules.Attendance))

SEE ALSO:
  - attendance/rules.go: what each threshold means
  - payroll/rules.go: cycle and daily rate
*/
package factory

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/generic"
	"github.com/warp/attendance-engine/payroll"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

type RulesJSON struct {
	Attendance *AttendanceJSON `json:"attendance,omitempty"`
	Payroll    *PayrollJSON    `json:"payroll,omitempty"`
}

// AttendanceJSON holds times as "HH:MM" strings.
type AttendanceJSON struct {
	LoginStart       string `json:"login_start,omitempty"`
	FullPresentLimit string `json:"full_present_limit,omitempty"`
	FullDayLogout    string `json:"full_day_logout,omitempty"`
	AutoLogoutAt     string `json:"auto_logout_at,omitempty"`
	MinHours         *int   `json:"min_hours,omitempty"`
	FullDayHours     *int   `json:"full_day_hours,omitempty"`
}

type PayrollJSON struct {
	CycleStartDay *int `json:"cycle_start_day,omitempty"`
	DaysPerMonth  *int `json:"days_per_month,omitempty"`
}

// Rules is the parsed result.
type Rules struct {
	Attendance attendance.Rules
	Payroll    payroll.Rules
}

func DefaultRules() Rules {
	return Rules{Attendance: attendance.DefaultRules(), Payroll: payroll.DefaultRules()}
}

// =============================================================================
// RULES FACTORY
// =============================================================================

type RulesFactory struct{}

func NewRulesFactory() *RulesFactory {
	return &RulesFactory{}
}

// ParseRules parses a JSON document. An empty document yields the defaults.
func (f *RulesFactory) ParseRules(jsonStr string) (Rules, error) {
	var rj RulesJSON
	if err := json.Unmarshal([]byte(jsonStr), &rj); err != nil {
		return Rules{}, fmt.Errorf("failed to parse rules JSON: %w", err)
	}
	return f.FromJSON(rj)
}

// LoadFile reads and parses a rules file.
func (f *RulesFactory) LoadFile(path string) (Rules, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Rules{}, fmt.Errorf("read rules file: %w", err)
	}
	return f.ParseRules(string(b))
}

// FromJSON overlays rj on the defaults and validates the result.
func (f *RulesFactory) FromJSON(rj RulesJSON) (Rules, error) {
	out := DefaultRules()

	if a := rj.Attendance; a != nil {
		for _, field := range []struct {
			name string
			raw  string
			dst  *generic.TimeOfDay
		}{
			{"login_start", a.LoginStart, &out.Attendance.LoginStart},
			{"full_present_limit", a.FullPresentLimit, &out.Attendance.FullPresentLimit},
			{"full_day_logout", a.FullDayLogout, &out.Attendance.FullDayLogout},
			{"auto_logout_at", a.AutoLogoutAt, &out.Attendance.AutoLogoutAt},
		} {
			if field.raw == "" {
				continue
			}
			tod, err := generic.ParseTimeOfDay(field.raw)
			if err != nil {
				return Rules{}, fmt.Errorf("attendance.%s: %w", field.name, err)
			}
			*field.dst = tod
		}
		setInt(&out.Attendance.MinHours, a.MinHours)
		setInt(&out.Attendance.FullDayHours, a.FullDayHours)
	}

	if p := rj.Payroll; p != nil {
		setInt(&out.Payroll.CycleStartDay, p.CycleStartDay)
		setInt(&out.Payroll.DaysPerMonth, p.DaysPerMonth)
	}

	if err := out.Attendance.Validate(); err != nil {
		return Rules{}, fmt.Errorf("attendance rules: %w", err)
	}
	if err := out.Payroll.Validate(); err != nil {
		return Rules{}, fmt.Errorf("payroll rules: %w", err)
	}
	return out, nil
}

// ToJSON converts Rules back to their JSON form.
func (f *RulesFactory) ToJSON(r Rules) RulesJSON {
	return RulesJSON{
		Attendance: &AttendanceJSON{
			LoginStart:       r.Attendance.LoginStart.String(),
			FullPresentLimit: r.Attendance.FullPresentLimit.String(),
			FullDayLogout:    r.Attendance.FullDayLogout.String(),
			AutoLogoutAt:     r.Attendance.AutoLogoutAt.String(),
			MinHours:         intPtr(r.Attendance.MinHours),
			FullDayHours:     intPtr(r.Attendance.FullDayHours),
		},
		Payroll: &PayrollJSON{
			CycleStartDay: intPtr(r.Payroll.CycleStartDay),
			DaysPerMonth:  intPtr(r.Payroll.DaysPerMonth),
		},
	}
}

// =============================================================================
// PARSING HELPERS
// =============================================================================

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func intPtr(v int) *int { return &v }
