package attendance

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/warp/attendance-engine/generic"
)

// Today returns the user's record for today, or nil.
func (e *Engine) Today(ctx context.Context, userID generic.UserID) (*generic.Attendance, error) {
	return e.store.GetAttendance(ctx, userID, generic.Today(e.clock))
}

// HistoryFilter selects records. Precedence: Date, then Year+Month (payroll
// cycle), then Year (calendar year), otherwise the current cycle.
type HistoryFilter struct {
	Date  *generic.Day
	Year  int
	Month time.Month
}

func (e *Engine) History(ctx context.Context, userID generic.UserID, f HistoryFilter) ([]generic.Attendance, error) {
	if _, err := e.users.FindUserByID(ctx, userID); err != nil {
		return nil, err
	}

	switch {
	case f.Date != nil:
		rec, err := e.store.GetAttendance(ctx, userID, *f.Date)
		if err != nil || rec == nil {
			return nil, err
		}
		return []generic.Attendance{*rec}, nil
	case f.Year > 0 && f.Month > 0:
		p := e.cycles.ForMonth(f.Year, f.Month)
		return e.store.ListAttendanceRange(ctx, userID, p.Start, p.End)
	case f.Year > 0:
		p := generic.YearRange(f.Year)
		return e.store.ListAttendanceRange(ctx, userID, p.Start, p.End)
	default:
		p := e.CurrentCycle()
		return e.store.ListAttendanceRange(ctx, userID, p.Start, p.End)
	}
}

// FullHistory returns every record of the user, newest first.
func (e *Engine) FullHistory(ctx context.Context, userID generic.UserID) ([]generic.Attendance, error) {
	if _, err := e.users.FindUserByID(ctx, userID); err != nil {
		return nil, err
	}
	return e.store.ListAttendanceByUser(ctx, userID)
}

func (e *Engine) CurrentCycle() generic.Period {
	return e.cycles.Containing(generic.Today(e.clock))
}

// PayrollDays is the inclusive day count of the (year, month) cycle.
func (e *Engine) PayrollDays(year int, month time.Month) int {
	return e.cycles.PayrollDays(year, month)
}

// =============================================================================
// COUNTERS
// =============================================================================

type CycleCounters struct {
	Cycle    generic.Period
	Present  int
	Absent   int
	HalfDays int
	Late     int
}

// Counters tallies the current cycle. Late counts logins after the
// full-present limit regardless of final status.
func (e *Engine) Counters(ctx context.Context, userID generic.UserID) (CycleCounters, error) {
	cycle := e.CurrentCycle()
	out := CycleCounters{Cycle: cycle}

	recs, err := e.History(ctx, userID, HistoryFilter{})
	if err != nil {
		return out, err
	}
	for _, r := range recs {
		switch r.Status {
		case generic.StatusPresent:
			out.Present++
		case generic.StatusAbsent:
			out.Absent++
		case generic.StatusHalfDay:
			out.HalfDays++
		}
		if r.LoginTime != nil && e.rules.IsLate(*r.LoginTime) {
			out.Late++
		}
	}
	return out, nil
}

// =============================================================================
// WEEKLY VIEW
// =============================================================================

type WeeklyEntry struct {
	Date   generic.Day
	Day    string // MON..FRI
	Hours  float64
	Login  string // HH:MM:SS or "--"
	Status generic.Status
}

// Weekly returns Monday-Friday of the current week, oldest first.
func (e *Engine) Weekly(ctx context.Context, userID generic.UserID) ([]WeeklyEntry, error) {
	monday := generic.Today(e.clock).MostRecent(time.Monday)
	friday := monday.AddDays(4)

	recs, err := e.store.ListAttendanceRange(ctx, userID, monday, friday)
	if err != nil {
		return nil, err
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].Date.Before(recs[j].Date) })

	out := make([]WeeklyEntry, 0, len(recs))
	for _, r := range recs {
		entry := WeeklyEntry{
			Date:   r.Date,
			Day:    strings.ToUpper(r.Date.Weekday().String()[:3]),
			Hours:  float64(int(r.Worked().Minutes())) / 60,
			Login:  "--",
			Status: r.Status,
		}
		if r.LoginTime != nil {
			entry.Login = r.LoginTime.Format("15:04:05")
		}
		out = append(out, entry)
	}
	return out, nil
}

// =============================================================================
// DAILY LIST
// =============================================================================

type DailyEntry struct {
	generic.Attendance
	EmployeeName string
}

// Daily lists everyone's records for day (today when zero). A non-empty search
// keeps rows whose employee id or name contains it, case-insensitively.
func (e *Engine) Daily(ctx context.Context, day generic.Day, search string) ([]DailyEntry, error) {
	if day.IsZero() {
		day = generic.Today(e.clock)
	}
	recs, err := e.store.ListAttendanceByDate(ctx, day)
	if err != nil {
		return nil, err
	}
	users, err := e.users.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	names := make(map[generic.UserID]string, len(users))
	for _, u := range users {
		names[u.ID] = u.FullName
	}

	needle := strings.ToLower(strings.TrimSpace(search))
	out := make([]DailyEntry, 0, len(recs))
	for _, r := range recs {
		name := names[r.UserID]
		if needle != "" &&
			!strings.Contains(strings.ToLower(r.EmpID), needle) &&
			!strings.Contains(strings.ToLower(name), needle) {
			continue
		}
		out = append(out, DailyEntry{Attendance: r, EmployeeName: name})
	}
	return out, nil
}
