/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. Domain types carry
  generic.Day, *time.Time and decimal.Decimal; the wire uses YYYY-MM-DD,
  RFC 3339 and decimal strings.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/generic"
	"github.com/warp/attendance-engine/payroll"
)

// =============================================================================
// ATTENDANCE
// =============================================================================

type AttendanceDTO struct {
	ID         int64   `json:"id"`
	UserID     int64   `json:"user_id"`
	EmpID      string  `json:"emp_id"`
	Date       string  `json:"date"`
	LoginTime  *string `json:"login_time"`
	LogoutTime *string `json:"logout_time"`
	Status     string  `json:"status"`
	Source     string  `json:"source"`
	Remarks    string  `json:"remarks,omitempty"`
}

// OutcomeDTO is the answer to login and logout.
type OutcomeDTO struct {
	Result  string         `json:"result"`
	Denial  string         `json:"denial,omitempty"`
	Message string         `json:"message"`
	Record  *AttendanceDTO `json:"record,omitempty"`
}

type CountersDTO struct {
	CycleStart string `json:"cycle_start"`
	CycleEnd   string `json:"cycle_end"`
	Present    int    `json:"present"`
	Absent     int    `json:"absent"`
	HalfDays   int    `json:"half_days"`
	Late       int    `json:"late"`
}

type WeeklyEntryDTO struct {
	Date   string  `json:"date"`
	Day    string  `json:"day"`
	Hours  float64 `json:"hours"`
	Login  string  `json:"login"`
	Status string  `json:"status"`
}

type DailyEntryDTO struct {
	AttendanceDTO
	EmployeeName string `json:"employee_name"`
}

// StatusUpdateRequest is one HR correction. Remark is optional.
type StatusUpdateRequest struct {
	EmpID  string `json:"emp_id"`
	Date   string `json:"date"`
	Status string `json:"status"`
	Remark string `json:"remark,omitempty"`
}

type BulkStatusUpdateRequest struct {
	Updates []StatusUpdateRequest `json:"updates"`
}

type PayrollDaysDTO struct {
	Year  int `json:"year"`
	Month int `json:"month"`
	Days  int `json:"days"`
}

// =============================================================================
// WALLETS
// =============================================================================

type WalletDTO struct {
	ID                 int64   `json:"id"`
	UserID             int64   `json:"user_id"`
	EmpID              string  `json:"emp_id"`
	MonthlySalary      string  `json:"monthly_salary"`
	DailyRate          string  `json:"daily_rate"`
	CurrentMonthEarned string  `json:"current_month_earned"`
	Deduction          string  `json:"deduction"`
	Net                string  `json:"net"`
	CycleStart         string  `json:"cycle_start"`
	CycleEnd           *string `json:"cycle_end"`
	Active             bool    `json:"active"`
	LastUpdated        string  `json:"last_updated"`
}

type WalletSummaryDTO struct {
	MonthlySalary string `json:"monthly_salary"`
	DailyRate     string `json:"daily_rate"`
	Earned        string `json:"earned"`
	Deduction     string `json:"deduction"`
	Net           string `json:"net"`
	CycleStart    string `json:"cycle_start"`
	CycleEnd      string `json:"cycle_end"`
}

type AccrualDTO struct {
	Date     string `json:"date"`
	Status   string `json:"status"`
	Amount   string `json:"amount"`
	WalletID int64  `json:"wallet_id"`
}

type TotalsDTO struct {
	MonthlySalary string `json:"total_monthly_salary"`
	NetPayable    string `json:"net_payable"`
	Deduction     string `json:"total_deduction"`
}

// DeductionRequest carries the amount as a decimal string so no precision
// is lost in JSON numbers.
type DeductionRequest struct {
	EmpID  string          `json:"emp_id"`
	Amount decimal.Decimal `json:"amount"`
}

type SalaryLineDTO struct {
	EmpID            string `json:"emp_id"`
	FullName         string `json:"full_name"`
	Department       string `json:"department"`
	MonthlySalary    string `json:"monthly_salary"`
	DailyRate        string `json:"daily_rate"`
	Deduction        string `json:"deduction"`
	PaidDays         string `json:"paid_days"`
	EarnedSalary     string `json:"earned_salary"`
	NetSalary        string `json:"net_salary"`
	TotalPayrollDays int    `json:"total_payroll_days"`
	Summary          string `json:"summary"`
}

// =============================================================================
// JOBS
// =============================================================================

type JobDTO struct {
	Name    string `json:"name"`
	Spec    string `json:"spec"`
	NextRun string `json:"next_run,omitempty"`
}

type JobRunDTO struct {
	ID          string  `json:"id"`
	Job         string  `json:"job"`
	Trigger     string  `json:"trigger"`
	Status      string  `json:"status"`
	Processed   int     `json:"processed"`
	Skipped     int     `json:"skipped"`
	Failed      int     `json:"failed"`
	Error       string  `json:"error,omitempty"`
	StartedAt   string  `json:"started_at"`
	CompletedAt *string `json:"completed_at,omitempty"`
}

// ErrorDTO is the body of every non-2xx response.
type ErrorDTO struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toAttendanceDTO(a *generic.Attendance) *AttendanceDTO {
	if a == nil {
		return nil
	}
	return &AttendanceDTO{
		ID:         a.ID,
		UserID:     int64(a.UserID),
		EmpID:      a.EmpID,
		Date:       a.Date.String(),
		LoginTime:  timePtr(a.LoginTime),
		LogoutTime: timePtr(a.LogoutTime),
		Status:     string(a.Status),
		Source:     string(a.Source),
		Remarks:    a.Remarks,
	}
}

func toAttendanceDTOs(recs []generic.Attendance) []AttendanceDTO {
	out := make([]AttendanceDTO, len(recs))
	for i := range recs {
		out[i] = *toAttendanceDTO(&recs[i])
	}
	return out
}

func toOutcomeDTO(o attendance.Outcome) OutcomeDTO {
	return OutcomeDTO{
		Result:  string(o.Result),
		Denial:  string(o.Denial),
		Message: o.Message,
		Record:  toAttendanceDTO(o.Record),
	}
}

func toWalletDTO(w *generic.Wallet) WalletDTO {
	dto := WalletDTO{
		ID:                 w.ID,
		UserID:             int64(w.UserID),
		EmpID:              w.EmpID,
		MonthlySalary:      w.MonthlySalary.StringFixed(2),
		DailyRate:          w.DailyRate.StringFixed(2),
		CurrentMonthEarned: w.CurrentMonthEarned.StringFixed(2),
		Deduction:          w.Deduction.StringFixed(2),
		Net:                w.Net().StringFixed(2),
		CycleStart:         w.CycleStart.String(),
		Active:             w.IsActive(),
		LastUpdated:        w.LastUpdated.Format(time.RFC3339),
	}
	if w.CycleEnd != nil {
		end := w.CycleEnd.String()
		dto.CycleEnd = &end
	}
	return dto
}

func toSummaryDTO(s payroll.WalletSummary) WalletSummaryDTO {
	return WalletSummaryDTO{
		MonthlySalary: s.MonthlySalary.StringFixed(2),
		DailyRate:     s.DailyRate.StringFixed(2),
		Earned:        s.Earned.StringFixed(2),
		Deduction:     s.Deduction.StringFixed(2),
		Net:           s.Net.StringFixed(2),
		CycleStart:    s.Cycle.Start.String(),
		CycleEnd:      s.Cycle.End.String(),
	}
}

func toSalaryLineDTO(l payroll.SalaryLine) SalaryLineDTO {
	return SalaryLineDTO{
		EmpID:            l.EmpID,
		FullName:         l.FullName,
		Department:       l.Department,
		MonthlySalary:    l.MonthlySalary.StringFixed(2),
		DailyRate:        l.DailyRate.StringFixed(2),
		Deduction:        l.Deduction.StringFixed(2),
		PaidDays:         l.PaidDays.String(),
		EarnedSalary:     l.EarnedSalary.StringFixed(2),
		NetSalary:        l.NetSalary.StringFixed(2),
		TotalPayrollDays: l.TotalPayrollDays,
		Summary:          l.Summary,
	}
}

func toJobRunDTO(r generic.JobRun) JobRunDTO {
	return JobRunDTO{
		ID:          r.ID,
		Job:         r.Job,
		Trigger:     r.Trigger,
		Status:      string(r.Status),
		Processed:   r.Processed,
		Skipped:     r.Skipped,
		Failed:      r.Failed,
		Error:       r.Error,
		StartedAt:   r.StartedAt.Format(time.RFC3339),
		CompletedAt: timePtr(r.CompletedAt),
	}
}

func timePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}
