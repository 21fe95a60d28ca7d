/*
ledger.go - Wallet crediting through the accrual ledger

PURPOSE:
  A wallet's CurrentMonthEarned is a running total. Every increase goes
  through the accrual ledger first: the ledger row is unique per (user, day),
  so a rerun of the accrual job hits ErrAccrualAlreadyApplied before the
  wallet is touched.

CRITICAL INVARIANTS:
  1. APPEND-ONLY: accrual rows are never updated or deleted
  2. ORDER: ledger row first, wallet second, both in one transaction
  3. ADDITIVE: deductions only add; earned only grows within a cycle

EXAMPLE FLOW:
  err := store.WithTx(ctx, func(tx generic.Store) error {
      return generic.NewLedger(tx).Credit(ctx, wallet, accrual)
  })
  if errors.Is(err, generic.ErrAccrualAlreadyApplied) {
      // already paid for today, nothing to do
  }

SEE ALSO:
  - store.go: WalletStore contract
  - payroll/engine.go: the daily accrual job
*/
package generic

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// LEDGER
// =============================================================================

type Ledger interface {
	// Credit records the accrual and adds its amount to the wallet.
	Credit(ctx context.Context, w *Wallet, a *Accrual) error

	// Deduct adds amount to the wallet's deduction. Amount must not be negative.
	Deduct(ctx context.Context, w *Wallet, amount decimal.Decimal) error
}

type DefaultLedger struct {
	store WalletStore
	now   func() time.Time
}

func NewLedger(store WalletStore) *DefaultLedger {
	return &DefaultLedger{store: store, now: time.Now}
}

// WithClock sets the clock used for LastUpdated stamps.
func (l *DefaultLedger) WithClock(c Clock) *DefaultLedger {
	l.now = c.Now
	return l
}

func (l *DefaultLedger) Credit(ctx context.Context, w *Wallet, a *Accrual) error {
	if a.Amount.IsNegative() {
		return fmt.Errorf("%w: accrual %s", ErrInvalidAmount, a.Amount)
	}
	if !w.IsActive() {
		return fmt.Errorf("%w: wallet %d is closed", ErrWalletNotFound, w.ID)
	}
	a.WalletID = w.ID
	a.UserID = w.UserID
	if err := l.store.RecordAccrual(ctx, a); err != nil {
		return err
	}
	w.CurrentMonthEarned = w.CurrentMonthEarned.Add(a.Amount)
	w.LastUpdated = l.now()
	return l.store.UpdateWallet(ctx, w)
}

func (l *DefaultLedger) Deduct(ctx context.Context, w *Wallet, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return fmt.Errorf("%w: deduction %s", ErrInvalidAmount, amount)
	}
	w.Deduction = w.Deduction.Add(amount)
	w.LastUpdated = l.now()
	return l.store.UpdateWallet(ctx, w)
}
