/*
rules.go - Attendance classification rules

PURPOSE:
  Turns a login/logout pair into a status. The same rules serve the user's
  logout, the end-of-day roster finalize, and (with the full-day rule
  switched off) the forgot-logout job.

RULES (evaluated in order):
  1. Full-day rule: login at or before FullPresentLimit AND logout at or
     after FullDayLogout => PRESENT.
  2. Hours rule, on whole hours worked (truncated):
       hours < MinHours                 => ABSENT
       login after FullPresentLimit     => HALF_DAY
       hours >= FullDayHours            => PRESENT
       otherwise                        => HALF_DAY

EXAMPLES (defaults):
  09:05 -> 18:00                 PRESENT (full-day rule)
  09:11 -> 17:00 (7 hrs)         HALF_DAY (late login)
  09:00 -> 13:59 (4 hrs)         ABSENT
  09:00 -> 17:59 (8 hrs)         HALF_DAY

SEE ALSO:
  - factory/rules.go: loading Rules from JSON
*/
package attendance

import (
	"fmt"
	"time"

	"github.com/warp/attendance-engine/generic"
)

// Rules holds every tunable threshold of the attendance engine.
type Rules struct {
	LoginStart       generic.TimeOfDay // no login before this
	FullPresentLimit generic.TimeOfDay // latest login that can still be a full day
	FullDayLogout    generic.TimeOfDay // earliest logout for the full-day rule
	AutoLogoutAt     generic.TimeOfDay // logout stamped by the forgot-logout job
	MinHours         int               // below this a day is ABSENT
	FullDayHours     int               // at or above this an on-time day is PRESENT
}

func DefaultRules() Rules {
	return Rules{
		LoginStart:       generic.NewTimeOfDay(9, 0),
		FullPresentLimit: generic.NewTimeOfDay(9, 10),
		FullDayLogout:    generic.NewTimeOfDay(18, 0),
		AutoLogoutAt:     generic.NewTimeOfDay(18, 30),
		MinHours:         5,
		FullDayHours:     9,
	}
}

func (r Rules) Validate() error {
	if r.FullPresentLimit < r.LoginStart {
		return fmt.Errorf("full present limit %s is before login start %s", r.FullPresentLimit, r.LoginStart)
	}
	if r.FullDayLogout <= r.FullPresentLimit {
		return fmt.Errorf("full day logout %s must be after full present limit %s", r.FullDayLogout, r.FullPresentLimit)
	}
	if r.MinHours <= 0 || r.FullDayHours < r.MinHours {
		return fmt.Errorf("hours must satisfy 0 < min (%d) <= full day (%d)", r.MinHours, r.FullDayHours)
	}
	return nil
}

// Verdict is the outcome of classifying one day.
type Verdict struct {
	Status      generic.Status
	WorkedHours int
	Remark      string
}

// WorkedHours counts whole hours between login and logout, truncated.
func WorkedHours(login, logout time.Time) int {
	d := logout.Truncate(time.Second).Sub(login.Truncate(time.Second))
	if d <= 0 {
		return 0
	}
	return int(d / time.Hour)
}

// IsLate reports a login after the full-present limit.
func (r Rules) IsLate(login time.Time) bool {
	return generic.TimeOfDayOf(login) > r.FullPresentLimit
}

// Classify applies the full-day rule and then the hours rule.
func (r Rules) Classify(login, logout time.Time) Verdict {
	if !r.IsLate(login) && generic.TimeOfDayOf(logout) >= r.FullDayLogout {
		return Verdict{
			Status:      generic.StatusPresent,
			WorkedHours: WorkedHours(login, logout),
			Remark:      "Full Day Present - Time Condition Met",
		}
	}
	return r.hoursRule(login, logout)
}

// ClassifyRecorded classifies a stored record. A missing login or logout
// counts as zero hours.
func (r Rules) ClassifyRecorded(rec *generic.Attendance) Verdict {
	if rec == nil || !rec.HasLogin() {
		return Verdict{Status: generic.StatusAbsent, Remark: "No Login Found => Absent"}
	}
	if !rec.HasLogout() {
		return Verdict{Status: generic.StatusAbsent, Remark: "No Logout Found | Worked: 0 Hrs | ABSENT"}
	}
	return r.Classify(*rec.LoginTime, *rec.LogoutTime)
}

// ClassifyAutoLogout is used when the user forgot to log out: the day can
// never be PRESENT.
func (r Rules) ClassifyAutoLogout(login, logout time.Time) Verdict {
	hours := WorkedHours(login, logout)
	if hours < r.MinHours {
		return Verdict{Status: generic.StatusAbsent, WorkedHours: hours, Remark: fmt.Sprintf("Auto Absent - Less than %d Hours", r.MinHours)}
	}
	return Verdict{Status: generic.StatusHalfDay, WorkedHours: hours, Remark: "Auto Logout - Half Day (Forgot Logout)"}
}

func (r Rules) hoursRule(login, logout time.Time) Verdict {
	hours := WorkedHours(login, logout)
	switch {
	case hours < r.MinHours:
		return Verdict{Status: generic.StatusAbsent, WorkedHours: hours, Remark: fmt.Sprintf("Logout - Worked: %d Hrs | ABSENT", hours)}
	case r.IsLate(login):
		return Verdict{Status: generic.StatusHalfDay, WorkedHours: hours, Remark: fmt.Sprintf("Logout - Late Login | Worked: %d Hrs | HALF_DAY", hours)}
	case hours >= r.FullDayHours:
		return Verdict{Status: generic.StatusPresent, WorkedHours: hours, Remark: fmt.Sprintf("Logout - Worked: %d Hrs | PRESENT", hours)}
	default:
		return Verdict{Status: generic.StatusHalfDay, WorkedHours: hours, Remark: fmt.Sprintf("Logout - Worked: %d Hrs | HALF_DAY", hours)}
	}
}
