// Package directory holds the gorm-backed collaborators the engines read:
// users, holidays, leave requests and the ingested end-of-day roster.
package directory

import (
	"time"

	"github.com/shopspring/decimal"
)

// Dates are stored as YYYY-MM-DD text so equality and range filters are
// plain string comparisons in every SQL dialect.

type User struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	EmpID       string          `gorm:"column:emp_id;uniqueIndex;not null" json:"emp_id"`
	FullName    string          `gorm:"not null" json:"full_name"`
	Email       string          `gorm:"uniqueIndex;not null" json:"email"`
	Role        string          `gorm:"type:varchar(30)" json:"role"`
	Department  string          `gorm:"type:varchar(60)" json:"department"`
	Domain      string          `gorm:"type:varchar(60)" json:"domain"`
	Designation string          `gorm:"type:varchar(60)" json:"designation"`
	BaseSalary  decimal.Decimal `gorm:"type:decimal(12,2)" json:"base_salary"`
	Active      bool            `gorm:"default:true" json:"active"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

type Holiday struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Date        string    `gorm:"type:varchar(10);uniqueIndex;not null" json:"date"`
	Name        string    `gorm:"not null" json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

func (Holiday) TableName() string {
	return "holidays"
}

type LeaveRequest struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	UserID       uint       `gorm:"not null;index" json:"user_id"`
	StartDate    string     `gorm:"type:varchar(10);not null;index" json:"start_date"`
	EndDate      string     `gorm:"type:varchar(10);not null;index" json:"end_date"`
	Reason       string     `json:"reason"`
	Status       string     `gorm:"type:varchar(20);not null;default:pending" json:"status"`
	ApprovedBy   *uint      `json:"approved_by"`
	ApprovalDate *time.Time `json:"approval_date"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func (LeaveRequest) TableName() string {
	return "leave_requests"
}

const (
	LeavePending  = "pending"
	LeaveApproved = "approved"
	LeaveRejected = "rejected"
)

// RosterEntry is a row of the daily roster upload. Status is free text
// (ABSENT, LEAVE, HALF-DAY, blank...) and is interpreted by the finalize job.
type RosterEntry struct {
	ID     uint   `gorm:"primaryKey" json:"id"`
	EmpID  string `gorm:"column:emp_id;index:idx_roster_emp_date" json:"emp_id"`
	Name   string `json:"name"`
	Date   string `gorm:"type:varchar(10);index:idx_roster_emp_date;index" json:"date"`
	Domain string `json:"domain"`
	Remark string `json:"remark"`
	Status string `gorm:"type:varchar(20)" json:"status"`
}

func (RosterEntry) TableName() string {
	return "roster_entries"
}
