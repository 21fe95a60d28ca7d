/*
Package generic provides the core types shared by the attendance and payroll engines.

PURPOSE:
  This package contains the records, enums and store contracts that both
  engines build on. The attendance engine writes one Attendance per user per
  day; the payroll engine reads those records and credits a Wallet through an
  append-only Accrual ledger.

KEY CONCEPTS IN THIS FILE (types.go):
  - Status: the six attendance statuses and their pay weight
  - Source: who wrote a record, ranked so stronger writers win
  - Attendance: one user's day (login, logout, status, remarks)
  - Wallet: one user's pay cycle (salary, daily rate, earned, deduction)
  - Accrual: an immutable ledger entry recording one day's pay

DESIGN PRINCIPLES:
  1. Precision: money uses decimal.Decimal
  2. Type Safety: UserID is a distinct type, EmpID is a plain directory code
  3. Auditability: every status change carries a Source and a remark

USAGE:
  rec := generic.Attendance{
      UserID: 7,
      Date:   generic.NewDay(2025, time.December, 1),
      Status: generic.StatusPresent,
      Source: generic.SourceLive,
  }

SEE ALSO:
  - store.go: persistence contracts
  - period.go: payroll cycle arithmetic
  - ledger.go: wallet crediting
*/
package generic

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

// UserID is the directory's numeric key. EmpID is the human employee code
// used by HR screens and the roster; lookups go through the directory.
type UserID int64

// =============================================================================
// STATUS - What a day counts as
// =============================================================================

type Status string

const (
	StatusPresent Status = "PRESENT"
	StatusAbsent  Status = "ABSENT"
	StatusHalfDay Status = "HALF_DAY"
	StatusLeave   Status = "LEAVE"
	StatusWeekend Status = "WEEKEND"
	StatusHoliday Status = "HOLIDAY"
)

// AllStatuses lists statuses in display order.
var AllStatuses = []Status{StatusPresent, StatusAbsent, StatusHalfDay, StatusLeave, StatusWeekend, StatusHoliday}

// ParseStatus accepts any case and the HALF-DAY / HALFDAY spellings.
func ParseStatus(s string) (Status, error) {
	norm := strings.ToUpper(strings.TrimSpace(s))
	switch norm {
	case "HALF-DAY", "HALFDAY", "HALF DAY":
		return StatusHalfDay, nil
	}
	st := Status(norm)
	if !st.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
	return st, nil
}

func (s Status) IsValid() bool {
	for _, v := range AllStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// PayWeight is the fraction of a daily rate a status earns when accrued:
// PRESENT, WEEKEND and HOLIDAY pay in full, HALF_DAY pays half, the rest nothing.
func (s Status) PayWeight() decimal.Decimal {
	switch s {
	case StatusPresent, StatusWeekend, StatusHoliday:
		return decimal.NewFromInt(1)
	case StatusHalfDay:
		return decimal.NewFromFloat(0.5)
	default:
		return decimal.Zero
	}
}

// PaidDayWeight is the weight a status carries in the salary overview.
// It differs from PayWeight: holidays are not counted as paid days there.
func (s Status) PaidDayWeight() decimal.Decimal {
	switch s {
	case StatusPresent, StatusWeekend:
		return decimal.NewFromInt(1)
	case StatusHalfDay:
		return decimal.NewFromFloat(0.5)
	default:
		return decimal.Zero
	}
}

// =============================================================================
// SOURCE - Who wrote the record
// =============================================================================

// Source ranks writers. A writer may overwrite a record only when its rank is
// at least the rank of the record's current source, so HR overrides survive
// every job, roster finalization survives auto-logout, and jobs survive the
// user's own actions.
type Source string

const (
	SourceLive   Source = "live"   // user login/logout
	SourceAuto   Source = "auto"   // auto-absent, auto-logout, weekend, day-off marking
	SourceRoster Source = "roster" // end-of-day roster finalize, sandwich policy
	SourceManual Source = "manual" // HR override
)

func (s Source) Rank() int {
	switch s {
	case SourceAuto:
		return 1
	case SourceRoster:
		return 2
	case SourceManual:
		return 3
	default:
		return 0
	}
}

// CanOverwrite reports whether a write from s may replace a record written by existing.
func (s Source) CanOverwrite(existing Source) bool {
	return s.Rank() >= existing.Rank()
}

// =============================================================================
// ATTENDANCE - One user's day
// =============================================================================

type Attendance struct {
	ID         int64
	UserID     UserID
	EmpID      string
	Date       Day
	LoginTime  *time.Time
	LogoutTime *time.Time
	Status     Status
	Source     Source
	Remarks    string
	CreatedAt  time.Time
	UpdatedAt  *time.Time
}

func (a *Attendance) HasLogin() bool  { return a.LoginTime != nil }
func (a *Attendance) HasLogout() bool { return a.LogoutTime != nil }

// Finalized reports whether anything stronger than the user has written the record.
func (a *Attendance) Finalized() bool { return a.Source.Rank() > SourceLive.Rank() }

// Worked returns the logged duration, zero if either end is missing.
func (a *Attendance) Worked() time.Duration {
	if a.LoginTime == nil || a.LogoutTime == nil {
		return 0
	}
	if d := a.LogoutTime.Sub(*a.LoginTime); d > 0 {
		return d
	}
	return 0
}

// =============================================================================
// WALLET - One user's pay cycle
// =============================================================================

// Wallet is open (active) while CycleEnd is nil. At most one wallet per user
// is open at a time.
type Wallet struct {
	ID                 int64
	UserID             UserID
	EmpID              string
	MonthlySalary      decimal.Decimal
	DailyRate          decimal.Decimal
	CurrentMonthEarned decimal.Decimal
	Deduction          decimal.Decimal
	CycleStart         Day
	CycleEnd           *Day
	LastUpdated        time.Time
}

func (w *Wallet) IsActive() bool { return w.CycleEnd == nil }

// Net is earned minus deduction.
func (w *Wallet) Net() decimal.Decimal {
	return w.CurrentMonthEarned.Sub(w.Deduction)
}

// Covers reports whether the wallet's cycle contains d. An open wallet
// covers every day from its start onwards.
func (w *Wallet) Covers(d Day) bool {
	if d.Before(w.CycleStart) {
		return false
	}
	return w.CycleEnd == nil || d.BeforeOrEqual(*w.CycleEnd)
}

// Overlaps reports whether the wallet's cycle intersects p.
func (w *Wallet) Overlaps(p Period) bool {
	if w.CycleStart.After(p.End) {
		return false
	}
	return w.CycleEnd == nil || w.CycleEnd.AfterOrEqual(p.Start)
}

// =============================================================================
// ACCRUAL - Immutable record of one day's pay
// =============================================================================

// Accrual is unique per (UserID, Date); that uniqueness is what makes the
// daily accrual job safe to rerun.
type Accrual struct {
	ID        int64
	UserID    UserID
	WalletID  int64
	Date      Day
	Status    Status
	Amount    decimal.Decimal
	CreatedAt time.Time
}

// =============================================================================
// COLLABORATOR RECORDS - Owned by the directory, read here
// =============================================================================

type User struct {
	ID         UserID
	EmpID      string
	FullName   string
	Email      string
	Role       string
	Department string
	Domain     string
	BaseSalary decimal.Decimal
}

// LeaveRange is an approved leave between two days inclusive.
type LeaveRange struct {
	UserID UserID
	Start  Day
	End    Day
}

func (l LeaveRange) Contains(d Day) bool {
	return Period{Start: l.Start, End: l.End}.Contains(d)
}

// RosterEntry is one row of the externally ingested end-of-day roster.
type RosterEntry struct {
	EmpID  string
	Name   string
	Date   Day
	Domain string
	Remark string
	Status string
}

// =============================================================================
// JOBS - Scheduled run reports
// =============================================================================

// JobReport summarizes a scheduled job run over all users.
type JobReport struct {
	Job       string
	Date      Day
	Processed int
	Skipped   int
	Failed    int
}

type JobRunStatus string

const (
	JobRunRunning   JobRunStatus = "running"
	JobRunCompleted JobRunStatus = "completed"
	JobRunFailed    JobRunStatus = "failed"
)

// JobRun is the persisted record of a job execution.
type JobRun struct {
	ID          string
	Job         string
	Trigger     string // "schedule" or "manual"
	Status      JobRunStatus
	Processed   int
	Skipped     int
	Failed      int
	Error       string
	StartedAt   time.Time
	CompletedAt *time.Time
}
