package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/warp/attendance-engine/generic"
)

// =============================================================================
// ATTENDANCE STORE (generic.AttendanceStore interface)
// =============================================================================

const attendanceColumns = `id, user_id, emp_id, date, login_time, logout_time, status, source, remarks, created_at, updated_at`

// CreateAttendance inserts a record. The unique index on (user_id, date)
// turns a racing second insert into a DuplicateDayError.
func (r *repo) CreateAttendance(ctx context.Context, rec *generic.Attendance) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	if rec.Source == "" {
		rec.Source = generic.SourceLive
	}

	res, err := r.q.ExecContext(ctx, `
		INSERT INTO attendance (user_id, emp_id, date, login_time, logout_time, status, source, remarks, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		rec.UserID, rec.EmpID, rec.Date.String(),
		formatTimePtr(rec.LoginTime), formatTimePtr(rec.LogoutTime),
		rec.Status, rec.Source, rec.Remarks,
		formatTime(rec.CreatedAt), formatTimePtr(rec.UpdatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return &generic.DuplicateDayError{UserID: rec.UserID, Date: rec.Date}
		}
		return fmt.Errorf("failed to insert attendance: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read attendance id: %w", err)
	}
	rec.ID = id
	return nil
}

func (r *repo) UpdateAttendance(ctx context.Context, rec *generic.Attendance) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE attendance
		SET login_time = ?, logout_time = ?, status = ?, source = ?, remarks = ?, updated_at = ?
		WHERE id = ?
	`,
		formatTimePtr(rec.LoginTime), formatTimePtr(rec.LogoutTime),
		rec.Status, rec.Source, rec.Remarks, formatTimePtr(rec.UpdatedAt),
		rec.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update attendance: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: id %d", generic.ErrAttendanceNotFound, rec.ID)
	}
	return nil
}

func (r *repo) GetAttendance(ctx context.Context, userID generic.UserID, day generic.Day) (*generic.Attendance, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+attendanceColumns+` FROM attendance WHERE user_id = ? AND date = ?`,
		userID, day.String(),
	)
	rec, err := scanAttendance(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *repo) ListAttendanceByDate(ctx context.Context, day generic.Day) ([]generic.Attendance, error) {
	return r.queryAttendance(ctx,
		`SELECT `+attendanceColumns+` FROM attendance WHERE date = ? ORDER BY user_id ASC`,
		day.String(),
	)
}

func (r *repo) ListAttendanceRange(ctx context.Context, userID generic.UserID, from, to generic.Day) ([]generic.Attendance, error) {
	return r.queryAttendance(ctx,
		`SELECT `+attendanceColumns+` FROM attendance
		 WHERE user_id = ? AND date >= ? AND date <= ?
		 ORDER BY date DESC`,
		userID, from.String(), to.String(),
	)
}

func (r *repo) ListAttendanceByUser(ctx context.Context, userID generic.UserID) ([]generic.Attendance, error) {
	return r.queryAttendance(ctx,
		`SELECT `+attendanceColumns+` FROM attendance WHERE user_id = ? ORDER BY date DESC`,
		userID,
	)
}

func (r *repo) queryAttendance(ctx context.Context, query string, args ...any) ([]generic.Attendance, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query attendance: %w", err)
	}
	defer rows.Close()

	var out []generic.Attendance
	for rows.Next() {
		rec, err := scanAttendance(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAttendance(row scanner) (generic.Attendance, error) {
	var (
		rec                              generic.Attendance
		date, createdAt                  string
		loginTime, logoutTime, updatedAt sql.NullString
	)

	err := row.Scan(
		&rec.ID, &rec.UserID, &rec.EmpID, &date,
		&loginTime, &logoutTime, &rec.Status, &rec.Source, &rec.Remarks,
		&createdAt, &updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return rec, err
		}
		return rec, fmt.Errorf("failed to scan attendance: %w", err)
	}

	rec.Date = parseDay(date)
	rec.LoginTime = parseTimePtr(loginTime)
	rec.LogoutTime = parseTimePtr(logoutTime)
	rec.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	rec.UpdatedAt = parseTimePtr(updatedAt)
	return rec, nil
}
