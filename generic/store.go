/*
store.go - Persistence and collaborator interfaces

PURPOSE:
  Defines the interface between the engines and the database, plus the
  read-only collaborators the engines consult (user directory, holiday
  calendar, leave authority, roster). Every engine receives these through
  its constructor; nothing is looked up globally.

KEY INTERFACES:
  AttendanceStore: one record per (user, day)
  WalletStore:     wallets + the accrual ledger
  TxStore:         atomic multi-table writes
  JobRunStore:     scheduled job run history

UNIQUENESS CONTRACT:
  The store is the last line of defense for the invariants:
  - CreateAttendance returns ErrDuplicateAttendance for a second (user, day)
  - CreateWallet returns ErrActiveWalletExists for a second open wallet
  - RecordAccrual returns ErrAccrualAlreadyApplied for a second (user, day)
  Engines translate these into "already done" rather than failures.

LOOKUPS:
  Get* methods return (nil, nil) when nothing matches. Directory Find*
  methods return ErrUserNotFound.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: SQLite with unique indexes
  - generic/store/memory.go: In-memory for testing
  - directory/: gorm-backed collaborators

SEE ALSO:
  - ledger.go: Higher-level wallet crediting using WalletStore
*/
package generic

import "context"

// =============================================================================
// ATTENDANCE STORE
// =============================================================================

type AttendanceStore interface {
	// CreateAttendance inserts a record and assigns its ID.
	// Returns a *DuplicateDayError if (UserID, Date) already exists.
	CreateAttendance(ctx context.Context, rec *Attendance) error

	// UpdateAttendance overwrites the record with rec.ID.
	UpdateAttendance(ctx context.Context, rec *Attendance) error

	// GetAttendance returns the record for (user, day), or nil.
	GetAttendance(ctx context.Context, userID UserID, day Day) (*Attendance, error)

	// ListAttendanceByDate returns every record on day.
	ListAttendanceByDate(ctx context.Context, day Day) ([]Attendance, error)

	// ListAttendanceRange returns the user's records in [from, to], newest first.
	ListAttendanceRange(ctx context.Context, userID UserID, from, to Day) ([]Attendance, error)

	// ListAttendanceByUser returns all of the user's records, newest first.
	ListAttendanceByUser(ctx context.Context, userID UserID) ([]Attendance, error)
}

// =============================================================================
// WALLET STORE
// =============================================================================

type WalletStore interface {
	// CreateWallet inserts a wallet. Returns ErrActiveWalletExists when the
	// wallet is open and the user already has an open wallet.
	CreateWallet(ctx context.Context, w *Wallet) error

	UpdateWallet(ctx context.Context, w *Wallet) error

	// GetActiveWallet returns the user's open wallet, or nil.
	GetActiveWallet(ctx context.Context, userID UserID) (*Wallet, error)

	// ListWallets returns every wallet, ordered by user then cycle start.
	ListWallets(ctx context.Context) ([]Wallet, error)

	// ListWalletsByUser returns the user's wallets, newest cycle first.
	ListWalletsByUser(ctx context.Context, userID UserID) ([]Wallet, error)

	// RecordAccrual appends to the accrual ledger.
	// Returns ErrAccrualAlreadyApplied if (UserID, Date) already exists.
	RecordAccrual(ctx context.Context, a *Accrual) error

	// ListAccruals returns the user's accruals in [from, to], oldest first.
	ListAccruals(ctx context.Context, userID UserID, from, to Day) ([]Accrual, error)
}

// Store is everything the engines persist.
type Store interface {
	AttendanceStore
	WalletStore
}

// =============================================================================
// TRANSACTIONAL STORE - For atomic operations across multiple writes
// =============================================================================

// TxStore wraps Store with transaction support.
type TxStore interface {
	Store

	// WithTx executes fn within a transaction.
	// If fn returns error, transaction is rolled back.
	// If fn returns nil, transaction is committed.
	WithTx(ctx context.Context, fn func(Store) error) error
}

// =============================================================================
// JOB RUNS
// =============================================================================

type JobRunStore interface {
	// SaveJobRun inserts or replaces the run with run.ID.
	SaveJobRun(ctx context.Context, run JobRun) error

	// ListJobRuns returns the most recent runs first. Empty job means all jobs.
	ListJobRuns(ctx context.Context, job string, limit int) ([]JobRun, error)
}

// =============================================================================
// COLLABORATORS - Owned elsewhere, read-only here
// =============================================================================

type UserDirectory interface {
	ListUsers(ctx context.Context) ([]User, error)
	FindUserByID(ctx context.Context, id UserID) (*User, error)
	FindUserByEmpID(ctx context.Context, empID string) (*User, error)
}

type HolidayCalendar interface {
	IsHoliday(ctx context.Context, day Day) (bool, error)
}

type LeaveAuthority interface {
	// HasApprovedLeave reports whether an approved leave covers day.
	HasApprovedLeave(ctx context.Context, userID UserID, day Day) (bool, error)

	// ApprovedLeaves returns approved leaves overlapping [from, to].
	ApprovedLeaves(ctx context.Context, userID UserID, from, to Day) ([]LeaveRange, error)
}

type RosterSource interface {
	// RosterFor returns the ingested roster rows for day.
	RosterFor(ctx context.Context, day Day) ([]RosterEntry, error)
}

// NoHolidays is the calendar used when holidays are disabled.
type NoHolidays struct{}

func (NoHolidays) IsHoliday(context.Context, Day) (bool, error) { return false, nil }
