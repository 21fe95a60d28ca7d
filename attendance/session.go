package attendance

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/warp/attendance-engine/generic"
)

// =============================================================================
// LOGIN
// =============================================================================

// Login records the user's arrival for today. Preconditions are checked in
// order: holiday, approved leave, weekend, before LoginStart, existing record.
// A refused login returns ResultDenied; only lookup and store failures are
// errors.
func (e *Engine) Login(ctx context.Context, userID generic.UserID) (Outcome, error) {
	user, err := e.users.FindUserByID(ctx, userID)
	if err != nil {
		return Outcome{}, err
	}

	unlock := e.locks.lock(userID)
	defer unlock()

	now := e.now()
	today := generic.DayOf(now)
	log := e.logger.WithFields(logrus.Fields{"user_id": userID, "date": today.String(), "action": "login"})

	if out, blocked, err := e.dayOff(ctx, userID, today, "Login not allowed"); err != nil || blocked {
		if blocked {
			log.WithField("denial", out.Denial).Info("Login denied")
		}
		return out, err
	}
	if generic.TimeOfDayOf(now) < e.rules.LoginStart {
		log.Info("Login denied: too early")
		return denied(DenialTooEarly, fmt.Sprintf("Login not allowed before %s", e.rules.LoginStart), nil), nil
	}

	existing, err := e.store.GetAttendance(ctx, userID, today)
	if err != nil {
		return Outcome{}, err
	}
	if existing != nil {
		return loginRepeat(existing), nil
	}

	login := now
	rec := &generic.Attendance{
		UserID:    userID,
		EmpID:     user.EmpID,
		Date:      today,
		LoginTime: &login,
		Status:    generic.StatusPresent,
		Source:    generic.SourceLive,
		Remarks:   "Login Recorded",
		CreatedAt: now,
	}
	if err := e.store.CreateAttendance(ctx, rec); err != nil {
		if errors.Is(err, generic.ErrDuplicateAttendance) {
			// another writer got there first
			winner, getErr := e.store.GetAttendance(ctx, userID, today)
			if getErr != nil {
				return Outcome{}, getErr
			}
			if winner != nil {
				return loginRepeat(winner), nil
			}
		}
		return Outcome{}, err
	}

	log.Info("Login recorded")
	return accepted("Login Successful", rec), nil
}

func loginRepeat(existing *generic.Attendance) Outcome {
	switch {
	case existing.HasLogout():
		return denied(DenialAlreadyLoggedOut, "You have already logged out today - cannot login again", existing)
	default:
		// also a record written by a job or HR without a login (auto-absent):
		// nothing is written and the day keeps its status
		return unchanged("Already logged in today", existing)
	}
}

// =============================================================================
// LOGOUT
// =============================================================================

// Logout stamps the logout time and classifies the day. Preconditions are
// checked in order: holiday, weekend, approved leave, no record, already
// logged out.
func (e *Engine) Logout(ctx context.Context, userID generic.UserID) (Outcome, error) {
	if _, err := e.users.FindUserByID(ctx, userID); err != nil {
		return Outcome{}, err
	}

	unlock := e.locks.lock(userID)
	defer unlock()

	now := e.now()
	today := generic.DayOf(now)
	log := e.logger.WithFields(logrus.Fields{"user_id": userID, "date": today.String(), "action": "logout"})

	holiday, err := e.holidays.IsHoliday(ctx, today)
	if err != nil {
		return Outcome{}, err
	}
	if holiday {
		return denied(DenialHoliday, "Holiday - Logout not allowed", nil), nil
	}
	if today.IsWeekend() {
		return denied(DenialWeekend, "Weekend - Logout not needed", nil), nil
	}
	onLeave, err := e.onLeave(ctx, userID, today)
	if err != nil {
		return Outcome{}, err
	}
	if onLeave {
		return denied(DenialOnLeave, "You are on approved leave today - Logout not needed", nil), nil
	}

	rec, err := e.store.GetAttendance(ctx, userID, today)
	if err != nil {
		return Outcome{}, err
	}
	if rec == nil || !rec.HasLogin() {
		return denied(DenialNotLoggedIn, "You did not login today", rec), nil
	}
	if rec.HasLogout() {
		return denied(DenialAlreadyLoggedOut, "You have already logged out today", rec), nil
	}
	if !generic.SourceLive.CanOverwrite(rec.Source) {
		return denied(DenialFinalized, fmt.Sprintf("Attendance already finalized as %s", rec.Status), rec), nil
	}

	logout := now
	verdict := e.rules.Classify(*rec.LoginTime, logout)
	rec.LogoutTime = &logout
	rec.Status = verdict.Status
	rec.Remarks = verdict.Remark
	rec.UpdatedAt = &logout
	if err := e.store.UpdateAttendance(ctx, rec); err != nil {
		return Outcome{}, err
	}

	log.WithFields(logrus.Fields{"status": verdict.Status, "hours": verdict.WorkedHours}).Info("Logout recorded")
	return accepted(fmt.Sprintf("Logout Updated: %s", rec.Status), rec), nil
}

// =============================================================================
// HELPERS
// =============================================================================

// dayOff checks holiday, approved leave and weekend in that order.
func (e *Engine) dayOff(ctx context.Context, userID generic.UserID, day generic.Day, verb string) (Outcome, bool, error) {
	holiday, err := e.holidays.IsHoliday(ctx, day)
	if err != nil {
		return Outcome{}, false, err
	}
	if holiday {
		return denied(DenialHoliday, "Holiday - "+verb, nil), true, nil
	}

	onLeave, err := e.onLeave(ctx, userID, day)
	if err != nil {
		return Outcome{}, false, err
	}
	if onLeave {
		return denied(DenialOnLeave, "You are on approved leave today - "+verb, nil), true, nil
	}

	if day.IsWeekend() {
		return denied(DenialWeekend, "Weekend - "+verb, nil), true, nil
	}
	return Outcome{}, false, nil
}

func (e *Engine) onLeave(ctx context.Context, userID generic.UserID, day generic.Day) (bool, error) {
	if e.leaves == nil {
		return false, nil
	}
	return e.leaves.HasApprovedLeave(ctx, userID, day)
}
