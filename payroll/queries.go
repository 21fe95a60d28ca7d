package payroll

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/attendance-engine/generic"
)

// =============================================================================
// PER-USER WALLET QUERIES
// =============================================================================

// ActiveWallet returns the user's open wallet, or nil when none exists.
func (e *Engine) ActiveWallet(ctx context.Context, userID generic.UserID) (*generic.Wallet, error) {
	if _, err := e.users.FindUserByID(ctx, userID); err != nil {
		return nil, err
	}
	return e.store.GetActiveWallet(ctx, userID)
}

// WalletSummary is the open wallet in figures. All amounts are zero when the
// user has no open wallet.
type WalletSummary struct {
	MonthlySalary decimal.Decimal
	DailyRate     decimal.Decimal
	Earned        decimal.Decimal
	Deduction     decimal.Decimal
	Net           decimal.Decimal
	Cycle         generic.Period
}

func (e *Engine) Summary(ctx context.Context, userID generic.UserID) (WalletSummary, error) {
	out := WalletSummary{Cycle: e.calendar().Containing(e.today())}
	w, err := e.ActiveWallet(ctx, userID)
	if err != nil || w == nil {
		return out, err
	}
	out.MonthlySalary = w.MonthlySalary
	out.DailyRate = w.DailyRate
	out.Earned = w.CurrentMonthEarned
	out.Deduction = w.Deduction
	out.Net = w.Net()
	return out, nil
}

// WalletFor selects one of the user's wallets. Year and month pick the wallet
// of that payroll cycle; year alone picks the latest cycle starting in that
// year; neither picks the open wallet. It returns ErrWalletNotFound when
// nothing matches.
func (e *Engine) WalletFor(ctx context.Context, userID generic.UserID, year int, month time.Month) (*generic.Wallet, error) {
	if year <= 0 {
		w, err := e.ActiveWallet(ctx, userID)
		if err == nil && w == nil {
			err = fmt.Errorf("%w: no open wallet for user %d", generic.ErrWalletNotFound, userID)
		}
		return w, err
	}

	if _, err := e.users.FindUserByID(ctx, userID); err != nil {
		return nil, err
	}
	wallets, err := e.store.ListWalletsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	// newest cycle first
	for i := range wallets {
		w := wallets[i]
		switch {
		case month > 0 && w.Overlaps(e.calendar().ForMonth(year, month)):
			return &w, nil
		case month == 0 && w.CycleStart.Year() == year:
			return &w, nil
		}
	}
	return nil, fmt.Errorf("%w: user %d, %d/%d", generic.ErrWalletNotFound, userID, year, month)
}

// Wallets lists every wallet of every user.
func (e *Engine) Wallets(ctx context.Context) ([]generic.Wallet, error) {
	return e.store.ListWallets(ctx)
}

// Accruals lists the ledger rows of the user's (year, month) cycle.
func (e *Engine) Accruals(ctx context.Context, userID generic.UserID, year int, month time.Month) ([]generic.Accrual, error) {
	p := e.calendar().Containing(e.today())
	if year > 0 && month > 0 {
		p = e.calendar().ForMonth(year, month)
	}
	return e.store.ListAccruals(ctx, userID, p.Start, p.End)
}

// =============================================================================
// AGGREGATES - Over open wallets
// =============================================================================

type Totals struct {
	MonthlySalary decimal.Decimal
	NetPayable    decimal.Decimal // sum of earned so far
	Deduction     decimal.Decimal
}

func (e *Engine) Totals(ctx context.Context) (Totals, error) {
	out := Totals{MonthlySalary: decimal.Zero, NetPayable: decimal.Zero, Deduction: decimal.Zero}
	wallets, err := e.store.ListWallets(ctx)
	if err != nil {
		return out, err
	}
	for _, w := range wallets {
		if !w.IsActive() {
			continue
		}
		out.MonthlySalary = out.MonthlySalary.Add(w.MonthlySalary)
		out.NetPayable = out.NetPayable.Add(w.CurrentMonthEarned)
		out.Deduction = out.Deduction.Add(w.Deduction)
	}
	return out, nil
}

// =============================================================================
// SALARY OVERVIEW
// =============================================================================

// SalaryLine is one employee's pay for a cycle, recomputed from attendance.
type SalaryLine struct {
	EmpID            string
	FullName         string
	Department       string
	MonthlySalary    decimal.Decimal
	DailyRate        decimal.Decimal
	Deduction        decimal.Decimal
	PaidDays         decimal.Decimal
	EarnedSalary     decimal.Decimal
	NetSalary        decimal.Decimal
	TotalPayrollDays int
	Summary          string // "21.5 / 30"
}

// SalaryOverview computes every employee's pay for the (year, month) cycle.
// Paid days are weighted: PRESENT and WEEKEND count 1, HALF_DAY 0.5. Each
// employee is reported against the latest wallet overlapping the cycle;
// employees with no such wallet are left out.
func (e *Engine) SalaryOverview(ctx context.Context, year int, month time.Month) ([]SalaryLine, error) {
	if month < time.January || month > time.December {
		return nil, fmt.Errorf("%w: month %d", generic.ErrInvalidInput, month)
	}
	return e.overview(ctx, e.calendar().ForMonth(year, month))
}

// CurrentOverview is SalaryOverview for the cycle containing today.
func (e *Engine) CurrentOverview(ctx context.Context) ([]SalaryLine, error) {
	return e.overview(ctx, e.calendar().Containing(e.today()))
}

func (e *Engine) overview(ctx context.Context, cycle generic.Period) ([]SalaryLine, error) {
	wallets, err := e.store.ListWallets(ctx)
	if err != nil {
		return nil, err
	}

	chosen := make(map[generic.UserID]generic.Wallet)
	for _, w := range wallets {
		if !w.Overlaps(cycle) {
			continue
		}
		if prev, ok := chosen[w.UserID]; !ok || w.CycleStart.After(prev.CycleStart) {
			chosen[w.UserID] = w
		}
	}

	total := cycle.NumDays()
	out := make([]SalaryLine, 0, len(chosen))
	for userID, w := range chosen {
		paid, err := e.paidDays(ctx, userID, cycle)
		if err != nil {
			return nil, err
		}
		earned := paid.Mul(w.DailyRate).Round(2)
		line := SalaryLine{
			EmpID:            w.EmpID,
			MonthlySalary:    w.MonthlySalary,
			DailyRate:        w.DailyRate,
			Deduction:        w.Deduction,
			PaidDays:         paid,
			EarnedSalary:     earned,
			NetSalary:        earned.Sub(w.Deduction),
			TotalPayrollDays: total,
			Summary:          fmt.Sprintf("%s / %d", paid.String(), total),
		}
		user, err := e.users.FindUserByID(ctx, userID)
		switch {
		case err == nil:
			line.FullName = user.FullName
			line.Department = user.Department
			if line.Department == "" {
				line.Department = user.Role
			}
		case !errors.Is(err, generic.ErrUserNotFound):
			return nil, err
		}
		out = append(out, line)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].EmpID < out[j].EmpID })
	return out, nil
}

func (e *Engine) paidDays(ctx context.Context, userID generic.UserID, cycle generic.Period) (decimal.Decimal, error) {
	recs, err := e.store.ListAttendanceRange(ctx, userID, cycle.Start, cycle.End)
	if err != nil {
		return decimal.Zero, err
	}
	paid := decimal.Zero
	for _, r := range recs {
		paid = paid.Add(r.Status.PaidDayWeight())
	}
	return paid, nil
}
