/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Implements generic.TxStore and generic.JobRunStore using SQLite. The
  uniqueness invariants of the attendance and payroll engines live here as
  indexes, so two concurrent writers cannot both succeed.

INTERFACES IMPLEMENTED:
  generic.AttendanceStore: one record per user per day
  generic.WalletStore:     wallets and the accrual ledger
  generic.TxStore:         atomic multi-table writes
  generic.JobRunStore:     scheduled job history

KEY TABLES:
  attendance: daily records (login, logout, status, source, remarks)
  wallets:    one row per user per payroll cycle
  accruals:   append-only record of each day's pay
  job_runs:   scheduled and manual job executions

INDEXES:
  Critical indexes that carry invariants:
  - idx_attendance_user_date: UNIQUE(user_id, date)
  - idx_wallets_active:       UNIQUE(user_id) WHERE cycle_end IS NULL
  - idx_accruals_user_date:   UNIQUE(user_id, date)

CONCURRENCY:
  The pool is capped at one connection. Writes serialize through it and an
  in-memory database stays a single database. Transactions run on that
  connection until they commit or roll back.

WAL MODE:
  File databases are opened with WAL (Write-Ahead Logging) and a busy
  timeout so the gorm directory can share the same file.

USAGE:
  store, err := sqlite.New("./data/attendance.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New().

SEE ALSO:
  - generic/store.go: Interface definitions
  - generic/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/warp/attendance-engine/generic"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	repo
	db *sql.DB
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	store := &Store{repo: repo{q: db}, db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- One row per user per calendar day
	CREATE TABLE IF NOT EXISTS attendance (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		emp_id TEXT NOT NULL DEFAULT '',
		date TEXT NOT NULL,
		login_time TEXT,
		logout_time TEXT,
		status TEXT NOT NULL CHECK (status IN ('PRESENT','ABSENT','HALF_DAY','LEAVE','WEEKEND','HOLIDAY')),
		source TEXT NOT NULL DEFAULT 'live',
		remarks TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT
	);

	-- CRITICAL: a user has at most one attendance record per day
	CREATE UNIQUE INDEX IF NOT EXISTS idx_attendance_user_date
		ON attendance(user_id, date);
	CREATE INDEX IF NOT EXISTS idx_attendance_date
		ON attendance(date);

	-- Wallets (one per user per payroll cycle)
	CREATE TABLE IF NOT EXISTS wallets (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		emp_id TEXT NOT NULL DEFAULT '',
		monthly_salary TEXT NOT NULL DEFAULT '0',
		daily_rate TEXT NOT NULL DEFAULT '0',
		current_month_earned TEXT NOT NULL DEFAULT '0',
		deduction TEXT NOT NULL DEFAULT '0',
		cycle_start TEXT NOT NULL,
		cycle_end TEXT,
		last_updated TEXT NOT NULL
	);

	-- CRITICAL: at most one open wallet per user
	CREATE UNIQUE INDEX IF NOT EXISTS idx_wallets_active
		ON wallets(user_id) WHERE cycle_end IS NULL;
	CREATE INDEX IF NOT EXISTS idx_wallets_user_cycle
		ON wallets(user_id, cycle_start);

	-- Accrual ledger (append-only)
	CREATE TABLE IF NOT EXISTS accruals (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		wallet_id INTEGER NOT NULL REFERENCES wallets(id),
		date TEXT NOT NULL,
		status TEXT NOT NULL,
		amount TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	-- CRITICAL: at most one accrual per user per day
	CREATE UNIQUE INDEX IF NOT EXISTS idx_accruals_user_date
		ON accruals(user_id, date);

	-- Job runs
	CREATE TABLE IF NOT EXISTS job_runs (
		id TEXT PRIMARY KEY,
		job TEXT NOT NULL,
		trigger_kind TEXT NOT NULL DEFAULT 'schedule',
		status TEXT NOT NULL,
		processed INTEGER NOT NULL DEFAULT 0,
		skipped INTEGER NOT NULL DEFAULT 0,
		failed INTEGER NOT NULL DEFAULT 0,
		error TEXT NOT NULL DEFAULT '',
		started_at TEXT NOT NULL,
		completed_at TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_job_runs_job_started
		ON job_runs(job, started_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// TRANSACTIONAL STORE (generic.TxStore interface)
// =============================================================================

// WithTx executes a function within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(store generic.Store) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&repo{q: sqlTx}); err != nil {
		return err
	}

	return sqlTx.Commit()
}

// Reset clears all data.
func (s *Store) Reset(ctx context.Context) error {
	for _, table := range []string{"accruals", "wallets", "attendance", "job_runs"} {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to reset %s: %w", table, err)
		}
	}
	return nil
}

// =============================================================================
// REPO - Queries shared by the pool and by transactions
// =============================================================================

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type repo struct {
	q querier
}

// Helper functions

func isUniqueConstraintError(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

func formatTime(t time.Time) string {
	return t.Format(time.RFC3339)
}

func formatTimePtr(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func parseTimePtr(s sql.NullString) *time.Time {
	if !s.Valid || s.String == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s.String)
	if err != nil {
		return nil
	}
	return &t
}

func formatDayPtr(d *generic.Day) sql.NullString {
	if d == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

func parseDay(s string) generic.Day {
	d, _ := generic.ParseDay(s)
	return d
}

func parseDayPtr(s sql.NullString) *generic.Day {
	if !s.Valid || s.String == "" {
		return nil
	}
	d := parseDay(s.String)
	return &d
}

func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
