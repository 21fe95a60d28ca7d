package payroll

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/warp/attendance-engine/generic"
)

const (
	JobDailyAccrual = "daily-accrual"
	JobRollover     = "cycle-rollover"
)

type accrualResult int

const (
	accrualApplied accrualResult = iota
	accrualNoWallet
	accrualZero
	accrualRepeat
)

// =============================================================================
// 18:45 DAILY ACCRUAL
// =============================================================================

// AccrueDaily credits every attendance record dated today into its user's
// open wallet. Users without an open wallet are skipped with a warning.
// Running it again the same day credits nothing.
func (e *Engine) AccrueDaily(ctx context.Context) (generic.JobReport, error) {
	today := e.today()
	report := generic.JobReport{Job: JobDailyAccrual, Date: today}
	log := e.logger.WithFields(logrus.Fields{"job": JobDailyAccrual, "date": today.String()})

	recs, err := e.store.ListAttendanceByDate(ctx, today)
	if err != nil {
		return report, fmt.Errorf("%s: list attendance: %w", JobDailyAccrual, err)
	}
	if len(recs) == 0 {
		log.Info("No attendance records for today")
		return report, nil
	}

	var errs []error
	for _, rec := range recs {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		res, err := e.accrue(ctx, rec)
		userLog := log.WithFields(logrus.Fields{"user_id": rec.UserID, "emp_id": rec.EmpID, "status": rec.Status})
		switch {
		case err != nil:
			report.Failed++
			errs = append(errs, &generic.JobError{Job: JobDailyAccrual, UserID: rec.UserID, Err: err})
			userLog.WithError(err).Error("Accrual failed")
		case res == accrualApplied:
			report.Processed++
		case res == accrualNoWallet:
			report.Skipped++
			userLog.Warn("No active wallet, skipping accrual")
		default:
			report.Skipped++
		}
	}

	log.WithFields(logrus.Fields{"processed": report.Processed, "skipped": report.Skipped, "failed": report.Failed}).Info("Job finished")
	return report, errors.Join(errs...)
}

func (e *Engine) accrue(ctx context.Context, rec generic.Attendance) (accrualResult, error) {
	res := accrualApplied
	err := e.store.WithTx(ctx, func(tx generic.Store) error {
		w, err := tx.GetActiveWallet(ctx, rec.UserID)
		if err != nil {
			return err
		}
		if w == nil {
			res = accrualNoWallet
			return nil
		}
		amount := AccrualAmount(rec.Status, w.DailyRate)
		if amount.IsZero() {
			res = accrualZero
			return nil
		}
		if err := e.ledger(tx).Credit(ctx, w, &generic.Accrual{
			Date:      rec.Date,
			Status:    rec.Status,
			Amount:    amount,
			CreatedAt: e.now(),
		}); err != nil {
			return err
		}
		e.logger.WithFields(logrus.Fields{
			"user_id": rec.UserID,
			"amount":  amount.String(),
			"earned":  w.CurrentMonthEarned.String(),
		}).Debug("Wallet credited")
		return nil
	})
	if errors.Is(err, generic.ErrAccrualAlreadyApplied) {
		return accrualRepeat, nil
	}
	return res, err
}

// =============================================================================
// 00:05 CYCLE ROLLOVER
// =============================================================================

// Rollover closes every open wallet on the cycle start day and opens the next
// cycle. On any other day it does nothing. A user whose open wallet already
// starts today is skipped, so a second run is harmless.
func (e *Engine) Rollover(ctx context.Context) (generic.JobReport, error) {
	today := e.today()
	report := generic.JobReport{Job: JobRollover, Date: today}
	if !e.calendar().IsBoundary(today) {
		return report, nil
	}
	log := e.logger.WithFields(logrus.Fields{"job": JobRollover, "date": today.String()})

	users, err := e.users.ListUsers(ctx)
	if err != nil {
		return report, fmt.Errorf("%s: list users: %w", JobRollover, err)
	}
	if len(users) == 0 {
		log.Warn("No users found for new salary cycle")
		return report, nil
	}

	var errs []error
	for _, u := range users {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		rolled, err := e.rollUser(ctx, u, today)
		switch {
		case err != nil:
			report.Failed++
			errs = append(errs, &generic.JobError{Job: JobRollover, UserID: u.ID, Err: err})
			log.WithError(err).WithField("user_id", u.ID).Error("Rollover failed")
		case rolled:
			report.Processed++
		default:
			report.Skipped++
		}
	}

	log.WithFields(logrus.Fields{"processed": report.Processed, "skipped": report.Skipped, "failed": report.Failed}).Info("Job finished")
	return report, errors.Join(errs...)
}

// rollUser closes the user's open wallet as of yesterday and opens one
// starting today, in one transaction.
func (e *Engine) rollUser(ctx context.Context, u generic.User, today generic.Day) (bool, error) {
	rolled := false
	err := e.store.WithTx(ctx, func(tx generic.Store) error {
		active, err := tx.GetActiveWallet(ctx, u.ID)
		if err != nil {
			return err
		}
		if active != nil && !active.CycleStart.Before(today) {
			return nil
		}
		if active != nil {
			end := today.AddDays(-1)
			active.CycleEnd = &end
			active.LastUpdated = e.now()
			if err := tx.UpdateWallet(ctx, active); err != nil {
				return fmt.Errorf("close wallet %d: %w", active.ID, err)
			}
		}
		next := e.openWallet(u, active, today)
		if err := tx.CreateWallet(ctx, next); err != nil {
			return fmt.Errorf("open wallet: %w", err)
		}
		rolled = true
		return nil
	})
	if errors.Is(err, generic.ErrActiveWalletExists) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if rolled {
		e.logger.WithFields(logrus.Fields{"user_id": u.ID, "emp_id": u.EmpID, "cycle_start": today.String()}).Info("Salary cycle opened")
	}
	return rolled, nil
}
