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
// WALLET STORE (generic.WalletStore interface)
// =============================================================================

const walletColumns = `id, user_id, emp_id, monthly_salary, daily_rate, current_month_earned, deduction, cycle_start, cycle_end, last_updated`

func (r *repo) CreateWallet(ctx context.Context, w *generic.Wallet) error {
	if w.LastUpdated.IsZero() {
		w.LastUpdated = time.Now().UTC()
	}

	res, err := r.q.ExecContext(ctx, `
		INSERT INTO wallets (user_id, emp_id, monthly_salary, daily_rate, current_month_earned, deduction, cycle_start, cycle_end, last_updated)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		w.UserID, w.EmpID,
		w.MonthlySalary.String(), w.DailyRate.String(),
		w.CurrentMonthEarned.String(), w.Deduction.String(),
		w.CycleStart.String(), formatDayPtr(w.CycleEnd), formatTime(w.LastUpdated),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return fmt.Errorf("%w: user %d", generic.ErrActiveWalletExists, w.UserID)
		}
		return fmt.Errorf("failed to insert wallet: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read wallet id: %w", err)
	}
	w.ID = id
	return nil
}

func (r *repo) UpdateWallet(ctx context.Context, w *generic.Wallet) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE wallets
		SET monthly_salary = ?, daily_rate = ?, current_month_earned = ?, deduction = ?,
		    cycle_end = ?, last_updated = ?
		WHERE id = ?
	`,
		w.MonthlySalary.String(), w.DailyRate.String(),
		w.CurrentMonthEarned.String(), w.Deduction.String(),
		formatDayPtr(w.CycleEnd), formatTime(w.LastUpdated),
		w.ID,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return fmt.Errorf("%w: user %d", generic.ErrActiveWalletExists, w.UserID)
		}
		return fmt.Errorf("failed to update wallet: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: id %d", generic.ErrWalletNotFound, w.ID)
	}
	return nil
}

func (r *repo) GetActiveWallet(ctx context.Context, userID generic.UserID) (*generic.Wallet, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+walletColumns+` FROM wallets WHERE user_id = ? AND cycle_end IS NULL`,
		userID,
	)
	w, err := scanWallet(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *repo) ListWallets(ctx context.Context) ([]generic.Wallet, error) {
	return r.queryWallets(ctx,
		`SELECT `+walletColumns+` FROM wallets ORDER BY user_id ASC, cycle_start ASC`)
}

func (r *repo) ListWalletsByUser(ctx context.Context, userID generic.UserID) ([]generic.Wallet, error) {
	return r.queryWallets(ctx,
		`SELECT `+walletColumns+` FROM wallets WHERE user_id = ? ORDER BY cycle_start DESC`,
		userID,
	)
}

func (r *repo) queryWallets(ctx context.Context, query string, args ...any) ([]generic.Wallet, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query wallets: %w", err)
	}
	defer rows.Close()

	var out []generic.Wallet
	for rows.Next() {
		w, err := scanWallet(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

func scanWallet(row scanner) (generic.Wallet, error) {
	var (
		w                               generic.Wallet
		salary, rate, earned, deduction string
		cycleStart, lastUpdated         string
		cycleEnd                        sql.NullString
	)

	err := row.Scan(
		&w.ID, &w.UserID, &w.EmpID,
		&salary, &rate, &earned, &deduction,
		&cycleStart, &cycleEnd, &lastUpdated,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return w, err
		}
		return w, fmt.Errorf("failed to scan wallet: %w", err)
	}

	w.MonthlySalary = parseDecimal(salary)
	w.DailyRate = parseDecimal(rate)
	w.CurrentMonthEarned = parseDecimal(earned)
	w.Deduction = parseDecimal(deduction)
	w.CycleStart = parseDay(cycleStart)
	w.CycleEnd = parseDayPtr(cycleEnd)
	w.LastUpdated, _ = time.Parse(time.RFC3339, lastUpdated)
	return w, nil
}

// =============================================================================
// ACCRUAL LEDGER
// =============================================================================

func (r *repo) RecordAccrual(ctx context.Context, a *generic.Accrual) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}

	res, err := r.q.ExecContext(ctx, `
		INSERT INTO accruals (user_id, wallet_id, date, status, amount, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		a.UserID, a.WalletID, a.Date.String(), a.Status, a.Amount.String(), formatTime(a.CreatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return fmt.Errorf("%w: user %d on %s", generic.ErrAccrualAlreadyApplied, a.UserID, a.Date)
		}
		return fmt.Errorf("failed to insert accrual: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read accrual id: %w", err)
	}
	a.ID = id
	return nil
}

func (r *repo) ListAccruals(ctx context.Context, userID generic.UserID, from, to generic.Day) ([]generic.Accrual, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT id, user_id, wallet_id, date, status, amount, created_at
		FROM accruals
		WHERE user_id = ? AND date >= ? AND date <= ?
		ORDER BY date ASC
	`, userID, from.String(), to.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query accruals: %w", err)
	}
	defer rows.Close()

	var out []generic.Accrual
	for rows.Next() {
		var (
			a                       generic.Accrual
			date, amount, createdAt string
		)
		if err := rows.Scan(&a.ID, &a.UserID, &a.WalletID, &date, &a.Status, &amount, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan accrual: %w", err)
		}
		a.Date = parseDay(date)
		a.Amount = parseDecimal(amount)
		a.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		out = append(out, a)
	}
	return out, rows.Err()
}
