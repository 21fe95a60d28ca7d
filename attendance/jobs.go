/*
jobs.go - Scheduled attendance jobs

PURPOSE:
  Each job visits every user for one day and writes at most one record per
  user. A failure for one user is logged, counted and joined into the
  returned error; the job still visits the remaining users.

JOBS:
  AutoAbsent          13:05 Mon-Fri  no record yet            => ABSENT
  AutoLogout          18:35 Mon-Fri  login without logout     => logout 18:30, ABSENT/HALF_DAY
  FinalizeFromRoster  18:40 Mon-Fri  roster row per employee  => roster status or recomputed
  MarkWeekend         00:01 daily    Saturday/Sunday, no rec  => WEEKEND
  MarkDaysOff         00:02 daily    holiday or approved leave=> HOLIDAY / LEAVE
  ApplySandwich       00:10 daily    Friday or Monday ABSENT  => Sat+Sun ABSENT

PRECEDENCE:
  Writes go through Source ranks: a job never replaces a record written by a
  stronger source (see generic.Source).

SEE ALSO:
  - api/scheduler.go: job registry and cron wiring
*/
package attendance

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/warp/attendance-engine/generic"
)

const (
	JobAutoAbsent     = "auto-absent"
	JobAutoLogout     = "auto-logout"
	JobRosterFinalize = "roster-finalize"
	JobWeekend        = "weekend-marking"
	JobDaysOff        = "day-off-marking"
	JobSandwich       = "sandwich-policy"
)

const sandwichRemark = "Sandwich Applied"

// step is the per-user body of a job. It reports whether it wrote anything.
type step func(ctx context.Context, user generic.User) (bool, error)

// forEachUser runs fn for every user, isolating per-user failures.
func (e *Engine) forEachUser(ctx context.Context, job string, day generic.Day, fn step) (generic.JobReport, error) {
	report := generic.JobReport{Job: job, Date: day}
	log := e.logger.WithFields(logrus.Fields{"job": job, "date": day.String()})

	users, err := e.users.ListUsers(ctx)
	if err != nil {
		return report, fmt.Errorf("%s: list users: %w", job, err)
	}

	var errs []error
	for _, user := range users {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		wrote, err := fn(ctx, user)
		switch {
		case err != nil:
			report.Failed++
			errs = append(errs, &generic.JobError{Job: job, UserID: user.ID, Err: err})
			log.WithError(err).WithField("user_id", user.ID).Error("Job step failed")
		case wrote:
			report.Processed++
		default:
			report.Skipped++
		}
	}

	log.WithFields(logrus.Fields{
		"processed": report.Processed,
		"skipped":   report.Skipped,
		"failed":    report.Failed,
	}).Info("Job finished")
	return report, errors.Join(errs...)
}

// createIfMissing inserts rec unless the user already has a record that day.
// Losing an insert race to another writer counts as "already present".
func (e *Engine) createIfMissing(ctx context.Context, rec *generic.Attendance) (bool, error) {
	unlock := e.locks.lock(rec.UserID)
	defer unlock()

	existing, err := e.store.GetAttendance(ctx, rec.UserID, rec.Date)
	if err != nil || existing != nil {
		return false, err
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = e.now()
	}
	if err := e.store.CreateAttendance(ctx, rec); err != nil {
		if errors.Is(err, generic.ErrDuplicateAttendance) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// =============================================================================
// 13:05 AUTO-ABSENT
// =============================================================================

func (e *Engine) AutoAbsent(ctx context.Context) (generic.JobReport, error) {
	today := generic.Today(e.clock)
	if today.IsWeekend() {
		return generic.JobReport{Job: JobAutoAbsent, Date: today}, nil
	}
	return e.forEachUser(ctx, JobAutoAbsent, today, func(ctx context.Context, u generic.User) (bool, error) {
		return e.createIfMissing(ctx, &generic.Attendance{
			UserID:  u.ID,
			EmpID:   u.EmpID,
			Date:    today,
			Status:  generic.StatusAbsent,
			Source:  generic.SourceAuto,
			Remarks: "Auto Absent - No Login Before 1 PM",
		})
	})
}

// =============================================================================
// 18:35 AUTO-LOGOUT
// =============================================================================

func (e *Engine) AutoLogout(ctx context.Context) (generic.JobReport, error) {
	now := e.now()
	today := generic.DayOf(now)
	if today.IsWeekend() {
		return generic.JobReport{Job: JobAutoLogout, Date: today}, nil
	}
	logoutAt := today.At(e.rules.AutoLogoutAt, now.Location())

	return e.forEachUser(ctx, JobAutoLogout, today, func(ctx context.Context, u generic.User) (bool, error) {
		unlock := e.locks.lock(u.ID)
		defer unlock()

		rec, err := e.store.GetAttendance(ctx, u.ID, today)
		if err != nil {
			return false, err
		}
		if rec == nil || !rec.HasLogin() || rec.HasLogout() {
			return false, nil
		}
		if !generic.SourceAuto.CanOverwrite(rec.Source) {
			return false, nil
		}

		logout := logoutAt
		verdict := e.rules.ClassifyAutoLogout(*rec.LoginTime, logout)
		rec.LogoutTime = &logout
		rec.Status = verdict.Status
		rec.Remarks = verdict.Remark
		rec.Source = generic.SourceAuto
		stamp := now
		rec.UpdatedAt = &stamp
		return true, e.store.UpdateAttendance(ctx, rec)
	})
}

// =============================================================================
// 00:01 WEEKEND MARKING / 00:02 DAY-OFF MARKING
// =============================================================================

func (e *Engine) MarkWeekend(ctx context.Context) (generic.JobReport, error) {
	today := generic.Today(e.clock)
	if !today.IsWeekend() {
		return generic.JobReport{Job: JobWeekend, Date: today}, nil
	}
	return e.forEachUser(ctx, JobWeekend, today, func(ctx context.Context, u generic.User) (bool, error) {
		return e.createIfMissing(ctx, &generic.Attendance{
			UserID:  u.ID,
			EmpID:   u.EmpID,
			Date:    today,
			Status:  generic.StatusWeekend,
			Source:  generic.SourceAuto,
			Remarks: "Auto Weekend Marked",
		})
	})
}

// MarkDaysOff records HOLIDAY for everyone on a holiday, otherwise LEAVE for
// users on approved leave. Weekends are left to MarkWeekend.
func (e *Engine) MarkDaysOff(ctx context.Context) (generic.JobReport, error) {
	today := generic.Today(e.clock)
	if today.IsWeekend() {
		return generic.JobReport{Job: JobDaysOff, Date: today}, nil
	}
	holiday, err := e.holidays.IsHoliday(ctx, today)
	if err != nil {
		return generic.JobReport{Job: JobDaysOff, Date: today}, fmt.Errorf("%s: holiday lookup: %w", JobDaysOff, err)
	}

	return e.forEachUser(ctx, JobDaysOff, today, func(ctx context.Context, u generic.User) (bool, error) {
		rec := &generic.Attendance{UserID: u.ID, EmpID: u.EmpID, Date: today, Source: generic.SourceAuto}
		switch {
		case holiday:
			rec.Status = generic.StatusHoliday
			rec.Remarks = "Auto Holiday Marked"
		default:
			onLeave, err := e.onLeave(ctx, u.ID, today)
			if err != nil || !onLeave {
				return false, err
			}
			rec.Status = generic.StatusLeave
			rec.Remarks = "Approved Leave"
		}
		return e.createIfMissing(ctx, rec)
	})
}

// =============================================================================
// 00:10 SANDWICH POLICY
// =============================================================================

// ApplySandwich looks at the most recent Friday on or before today and the
// Monday after it. If either is ABSENT, the weekend between them becomes
// ABSENT. HR overrides are left alone.
func (e *Engine) ApplySandwich(ctx context.Context) (generic.JobReport, error) {
	today := generic.Today(e.clock)
	friday := today.MostRecent(time.Friday)
	saturday, sunday, monday := friday.AddDays(1), friday.AddDays(2), friday.AddDays(3)

	return e.forEachUser(ctx, JobSandwich, today, func(ctx context.Context, u generic.User) (bool, error) {
		fri, err := e.store.GetAttendance(ctx, u.ID, friday)
		if err != nil {
			return false, err
		}
		mon, err := e.store.GetAttendance(ctx, u.ID, monday)
		if err != nil {
			return false, err
		}
		if !isAbsent(fri) && !isAbsent(mon) {
			return false, nil
		}

		wroteSat, err := e.sandwichDay(ctx, u, saturday)
		if err != nil {
			return wroteSat, err
		}
		wroteSun, err := e.sandwichDay(ctx, u, sunday)
		return wroteSat || wroteSun, err
	})
}

func isAbsent(rec *generic.Attendance) bool {
	return rec != nil && rec.Status == generic.StatusAbsent
}

func (e *Engine) sandwichDay(ctx context.Context, u generic.User, day generic.Day) (bool, error) {
	return e.upsert(ctx, u, day, generic.SourceRoster, func(rec *generic.Attendance) bool {
		if rec.Status == generic.StatusAbsent && rec.Remarks == sandwichRemark {
			return false
		}
		rec.Status = generic.StatusAbsent
		rec.Remarks = sandwichRemark
		return true
	})
}

// upsert applies mutate to the user's record for day, creating it if needed.
// The write is skipped when src may not overwrite the existing source or when
// mutate reports no change.
func (e *Engine) upsert(ctx context.Context, u generic.User, day generic.Day, src generic.Source, mutate func(*generic.Attendance) bool) (bool, error) {
	unlock := e.locks.lock(u.ID)
	defer unlock()

	rec, err := e.store.GetAttendance(ctx, u.ID, day)
	if err != nil {
		return false, err
	}
	now := e.now()

	if rec == nil {
		rec = &generic.Attendance{UserID: u.ID, EmpID: u.EmpID, Date: day, Source: src, CreatedAt: now}
		mutate(rec)
		if err := e.store.CreateAttendance(ctx, rec); err != nil {
			return false, err
		}
		return true, nil
	}

	if !src.CanOverwrite(rec.Source) {
		return false, nil
	}
	if !mutate(rec) {
		return false, nil
	}
	rec.Source = src
	rec.UpdatedAt = &now
	return true, e.store.UpdateAttendance(ctx, rec)
}

// =============================================================================
// 18:40 ROSTER FINALIZE
// =============================================================================

// FinalizeFromRoster sets each rostered employee's final status for today.
// An explicit roster status (ABSENT, LEAVE, HALF_DAY and its spellings) is
// taken as-is and a blank status means ABSENT; anything else is recomputed
// from the day's login/logout.
// Rows whose employee cannot be resolved are skipped.
func (e *Engine) FinalizeFromRoster(ctx context.Context) (generic.JobReport, error) {
	today := generic.Today(e.clock)
	report := generic.JobReport{Job: JobRosterFinalize, Date: today}
	log := e.logger.WithFields(logrus.Fields{"job": JobRosterFinalize, "date": today.String()})

	if today.IsWeekend() {
		return report, nil
	}
	if e.roster == nil {
		log.Info("No roster source configured")
		return report, nil
	}

	rows, err := e.roster.RosterFor(ctx, today)
	if err != nil {
		return report, fmt.Errorf("%s: load roster: %w", JobRosterFinalize, err)
	}
	if len(rows) == 0 {
		log.Info("No roster uploaded for today")
		return report, nil
	}

	var errs []error
	for _, row := range rows {
		empID := strings.TrimSpace(row.EmpID)
		if empID == "" {
			report.Skipped++
			continue
		}
		user, err := e.users.FindUserByEmpID(ctx, empID)
		if errors.Is(err, generic.ErrUserNotFound) {
			log.WithField("emp_id", empID).Warn("Roster row for unknown employee")
			report.Skipped++
			continue
		}
		if err != nil {
			report.Failed++
			errs = append(errs, &generic.JobError{Job: JobRosterFinalize, Err: fmt.Errorf("emp %s: %w", empID, err)})
			continue
		}

		wrote, err := e.finalizeRow(ctx, *user, today, row)
		switch {
		case err != nil:
			report.Failed++
			errs = append(errs, &generic.JobError{Job: JobRosterFinalize, UserID: user.ID, Err: err})
			log.WithError(err).WithField("emp_id", empID).Error("Roster finalize failed")
		case wrote:
			report.Processed++
		default:
			report.Skipped++
		}
	}

	log.WithFields(logrus.Fields{"processed": report.Processed, "skipped": report.Skipped, "failed": report.Failed}).Info("Job finished")
	return report, errors.Join(errs...)
}

func (e *Engine) finalizeRow(ctx context.Context, u generic.User, day generic.Day, row generic.RosterEntry) (bool, error) {
	return e.upsert(ctx, u, day, generic.SourceRoster, func(rec *generic.Attendance) bool {
		v := e.rosterVerdict(row, rec)
		changed := rec.Status != v.Status || rec.Remarks != v.Remark
		rec.Status = v.Status
		rec.Remarks = v.Remark
		return changed || rec.Source != generic.SourceRoster
	})
}

// rosterVerdict maps an explicit roster status, or falls back to the rules.
// rec may be a freshly built record with no login.
func (e *Engine) rosterVerdict(row generic.RosterEntry, rec *generic.Attendance) Verdict {
	remark := strings.TrimSpace(row.Remark)
	withRemark := func(base string) string {
		if remark == "" {
			return base
		}
		return base + " | " + remark
	}

	status := strings.ToUpper(strings.TrimSpace(row.Status))
	if status == "" {
		status = "ABSENT"
	}
	switch status {
	case "ABSENT":
		return Verdict{Status: generic.StatusAbsent, Remark: withRemark("Absent For Today's Standup Call")}
	case "LEAVE":
		return Verdict{Status: generic.StatusLeave, Remark: withRemark("Leave Marked From Roster")}
	case "HALF_DAY", "HALF-DAY", "HALFDAY":
		return Verdict{Status: generic.StatusHalfDay, Remark: withRemark("Half Day Marked From Roster")}
	}

	v := e.rules.ClassifyRecorded(rec)
	v.Remark = withRemark(v.Remark)
	return v
}
