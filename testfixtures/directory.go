// Package testfixtures provides in-memory collaborators and clocks for tests
// of the attendance and payroll engines.
package testfixtures

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/warp/attendance-engine/generic"
)

// IST is the zone the service runs in by default.
var IST = time.FixedZone("IST", 5*3600+1800)

// At builds a wall-clock instant in IST.
func At(date string, hour, minute int) time.Time {
	d := generic.MustParseDay(date)
	return d.At(generic.NewTimeOfDay(hour, minute), IST)
}

// QuietLogger discards output.
func QuietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// =============================================================================
// DIRECTORY - generic.UserDirectory
// =============================================================================

type Directory struct {
	mu    sync.RWMutex
	users map[generic.UserID]generic.User
	// FailOn makes lookups for the listed user fail, to exercise job isolation.
	FailOn map[generic.UserID]error
}

func NewDirectory(users ...generic.User) *Directory {
	d := &Directory{users: make(map[generic.UserID]generic.User), FailOn: make(map[generic.UserID]error)}
	for _, u := range users {
		d.Add(u)
	}
	return d
}

func (d *Directory) Add(u generic.User) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.users[u.ID] = u
}

// Employee is a compact constructor: id, employee code and monthly salary.
func Employee(id int64, empID string, salary int64) generic.User {
	return generic.User{
		ID:         generic.UserID(id),
		EmpID:      empID,
		FullName:   "Employee " + empID,
		Role:       "EMPLOYEE",
		BaseSalary: decimal.NewFromInt(salary),
	}
}

func (d *Directory) ListUsers(context.Context) ([]generic.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]generic.User, 0, len(d.users))
	for _, u := range d.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (d *Directory) FindUserByID(_ context.Context, id generic.UserID) (*generic.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if err := d.FailOn[id]; err != nil {
		return nil, err
	}
	u, ok := d.users[id]
	if !ok {
		return nil, fmt.Errorf("%w: id %d", generic.ErrUserNotFound, id)
	}
	return &u, nil
}

func (d *Directory) FindUserByEmpID(_ context.Context, empID string) (*generic.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, u := range d.users {
		if u.EmpID == empID {
			if err := d.FailOn[u.ID]; err != nil {
				return nil, err
			}
			return &u, nil
		}
	}
	return nil, fmt.Errorf("%w: emp_id %s", generic.ErrUserNotFound, empID)
}

// =============================================================================
// CALENDAR - generic.HolidayCalendar + generic.LeaveAuthority
// =============================================================================

type Calendar struct {
	mu       sync.RWMutex
	holidays map[generic.Day]bool
	leaves   []generic.LeaveRange
}

func NewCalendar() *Calendar {
	return &Calendar{holidays: make(map[generic.Day]bool)}
}

func (c *Calendar) AddHoliday(date string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.holidays[generic.MustParseDay(date)] = true
}

func (c *Calendar) AddLeave(userID generic.UserID, from, to string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.leaves = append(c.leaves, generic.LeaveRange{UserID: userID, Start: generic.MustParseDay(from), End: generic.MustParseDay(to)})
}

func (c *Calendar) IsHoliday(_ context.Context, day generic.Day) (bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.holidays[day], nil
}

func (c *Calendar) HasApprovedLeave(_ context.Context, userID generic.UserID, day generic.Day) (bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, l := range c.leaves {
		if l.UserID == userID && l.Contains(day) {
			return true, nil
		}
	}
	return false, nil
}

func (c *Calendar) ApprovedLeaves(_ context.Context, userID generic.UserID, from, to generic.Day) ([]generic.LeaveRange, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []generic.LeaveRange
	for _, l := range c.leaves {
		if l.UserID == userID && !l.End.Before(from) && !l.Start.After(to) {
			out = append(out, l)
		}
	}
	return out, nil
}

// =============================================================================
// ROSTER - generic.RosterSource
// =============================================================================

type Roster struct {
	mu   sync.RWMutex
	rows map[generic.Day][]generic.RosterEntry
}

func NewRoster() *Roster {
	return &Roster{rows: make(map[generic.Day][]generic.RosterEntry)}
}

func (r *Roster) Add(date, empID, status, remark string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d := generic.MustParseDay(date)
	r.rows[d] = append(r.rows[d], generic.RosterEntry{EmpID: empID, Date: d, Status: status, Remark: remark})
}

func (r *Roster) RosterFor(_ context.Context, day generic.Day) ([]generic.RosterEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]generic.RosterEntry(nil), r.rows[day]...), nil
}
