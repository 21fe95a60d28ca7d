/*
engine.go - Payroll Cycle Engine

PURPOSE:
  Turns finalized attendance into pay. Each user has one open wallet per
  payroll cycle; the daily accrual job credits it, the rollover job closes it
  on the cycle start day and opens the next one.

CYCLE:
  [StartDay of month M-1, StartDay-1 of month M], named after month M.
  With the default start day 24, the March 2025 cycle is 2025-02-24..2025-03-23.

CRITICAL INVARIANTS:
  1. ONE OPEN WALLET: every write that opens a wallet runs in a transaction
     that first reads the open wallet; the store's unique index backs it up
  2. DAILY RATE FIXED: set when a wallet opens, carried into the next cycle
  3. ACCRUE ONCE: the accrual ledger is unique per (user, day)
  4. NO AUTO-CREATE: accrual never opens a wallet; a missing wallet is a
     setup problem and is logged as a warning

SEE ALSO:
  - generic/ledger.go: crediting through the accrual ledger
  - attendance/: produces the records accrued here
*/
package payroll

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/warp/attendance-engine/generic"
)

type Engine struct {
	store  generic.TxStore
	users  generic.UserDirectory
	clock  generic.Clock
	rules  Rules
	logger logrus.FieldLogger
}

type Option func(*Engine)

func WithRules(r Rules) Option { return func(e *Engine) { e.rules = r } }
func WithClock(c generic.Clock) Option { return func(e *Engine) { e.clock = c } }
func WithLogger(l logrus.FieldLogger) Option { return func(e *Engine) { e.logger = l } }

func NewEngine(store generic.TxStore, users generic.UserDirectory, opts ...Option) *Engine {
	e := &Engine{
		store:  store,
		users:  users,
		clock:  generic.SystemClock{},
		rules:  DefaultRules(),
		logger: logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.WithField("component", "payroll")
	return e
}

func (e *Engine) Rules() Rules { return e.rules }

func (e *Engine) calendar() generic.CycleCalendar { return e.rules.Calendar() }

func (e *Engine) today() generic.Day { return generic.Today(e.clock) }

func (e *Engine) now() time.Time { return e.clock.Now().Truncate(time.Second) }

func (e *Engine) ledger(tx generic.Store) generic.Ledger {
	return generic.NewLedger(tx).WithClock(e.clock)
}

// =============================================================================
// WALLET LIFECYCLE
// =============================================================================

// InitWallet returns the user's open wallet, creating it for the cycle that
// contains today when there is none.
func (e *Engine) InitWallet(ctx context.Context, userID generic.UserID) (*generic.Wallet, error) {
	user, err := e.users.FindUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	var out *generic.Wallet
	err = e.store.WithTx(ctx, func(tx generic.Store) error {
		active, err := tx.GetActiveWallet(ctx, userID)
		if err != nil {
			return err
		}
		if active != nil {
			out = active
			return nil
		}
		w := e.openWallet(*user, nil, e.calendar().StartOn(e.today()))
		if err := tx.CreateWallet(ctx, w); err != nil {
			return err
		}
		out = w
		e.logger.WithFields(logrus.Fields{"user_id": userID, "cycle_start": w.CycleStart.String()}).Info("Initial wallet created")
		return nil
	})
	if errors.Is(err, generic.ErrActiveWalletExists) {
		return e.store.GetActiveWallet(ctx, userID)
	}
	return out, err
}

// openWallet builds the wallet for a cycle starting on start. Salary and rate
// are carried from prev, or derived from the user's base salary.
func (e *Engine) openWallet(user generic.User, prev *generic.Wallet, start generic.Day) *generic.Wallet {
	salary := user.BaseSalary
	if prev != nil && !prev.MonthlySalary.IsZero() {
		salary = prev.MonthlySalary
	}
	rate := e.rules.DailyRate(salary)
	if prev != nil && !prev.DailyRate.IsZero() {
		rate = prev.DailyRate
	}
	return &generic.Wallet{
		UserID:             user.ID,
		EmpID:              user.EmpID,
		MonthlySalary:      salary,
		DailyRate:          rate,
		CurrentMonthEarned: decimal.Zero,
		Deduction:          decimal.Zero,
		CycleStart:         start,
		LastUpdated:        e.now(),
	}
}

// AddDeduction adds amount to the deduction of the employee's open wallet.
func (e *Engine) AddDeduction(ctx context.Context, empID string, amount decimal.Decimal) (*generic.Wallet, error) {
	if amount.IsNegative() {
		return nil, fmt.Errorf("%w: deduction %s", generic.ErrInvalidAmount, amount)
	}
	user, err := e.users.FindUserByEmpID(ctx, empID)
	if err != nil {
		return nil, err
	}

	var out *generic.Wallet
	err = e.store.WithTx(ctx, func(tx generic.Store) error {
		w, err := tx.GetActiveWallet(ctx, user.ID)
		if err != nil {
			return err
		}
		if w == nil {
			return fmt.Errorf("%w: no open wallet for %s", generic.ErrWalletNotFound, empID)
		}
		if err := e.ledger(tx).Deduct(ctx, w, amount); err != nil {
			return err
		}
		out = w
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.WithFields(logrus.Fields{"emp_id": empID, "amount": amount.String()}).Info("Deduction added")
	return out, nil
}
