package attendance_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/generic"
	"github.com/warp/attendance-engine/generic/store"
	"github.com/warp/attendance-engine/testfixtures"
)

// flakyStore fails every read for one user.
type flakyStore struct {
	*store.Memory
	failFor generic.UserID
}

var errDiskFull = errors.New("disk full")

func (s *flakyStore) GetAttendance(ctx context.Context, userID generic.UserID, day generic.Day) (*generic.Attendance, error) {
	if userID == s.failFor {
		return nil, errDiskFull
	}
	return s.Memory.GetAttendance(ctx, userID, day)
}

// =============================================================================
// AUTO-ABSENT
// =============================================================================

func TestAutoAbsent_MarksOnlyUsersWithoutRecord(t *testing.T) {
	// GIVEN: user 1 logged in, user 2 did not
	h := newHarness(t)
	ctx := context.Background()
	_, err := h.engine.Login(ctx, 1)
	require.NoError(t, err)

	// WHEN: the 13:05 job runs twice
	h.at("2025-03-10", 13, 5)
	report, err := h.engine.AutoAbsent(ctx)
	require.NoError(t, err)
	again, err := h.engine.AutoAbsent(ctx)
	require.NoError(t, err)

	// THEN: only user 2 is absent and the second run is a no-op
	assert.Equal(t, 1, report.Processed)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, 0, again.Processed)

	assert.Equal(t, generic.StatusPresent, h.record(t, 1, "2025-03-10").Status)
	absent := h.record(t, 2, "2025-03-10")
	assert.Equal(t, generic.StatusAbsent, absent.Status)
	assert.Equal(t, generic.SourceAuto, absent.Source)
	assert.Equal(t, "Auto Absent - No Login Before 1 PM", absent.Remarks)
}

func TestAutoAbsent_SkipsWeekend(t *testing.T) {
	h := newHarness(t)
	h.at("2025-03-08", 13, 5)

	report, err := h.engine.AutoAbsent(context.Background())

	require.NoError(t, err)
	assert.Zero(t, report.Processed)
	assert.Nil(t, h.record(t, 1, "2025-03-08"))
}

func TestAutoAbsent_OneUserFailureDoesNotStopOthers(t *testing.T) {
	// GIVEN: reads for user 1 fail
	mem := store.NewMemory()
	users := testfixtures.NewDirectory(testfixtures.Employee(1, "EMP001", 30000), testfixtures.Employee(2, "EMP002", 30000))
	engine := attendance.NewEngine(&flakyStore{Memory: mem, failFor: 1}, users, nil, nil,
		attendance.WithClock(generic.NewSettableClock(testfixtures.At("2025-03-10", 13, 5))),
		attendance.WithLogger(testfixtures.QuietLogger()),
	)

	// WHEN
	report, err := engine.AutoAbsent(context.Background())

	// THEN: user 2 is still marked and the failure is reported
	require.Error(t, err)
	assert.ErrorIs(t, err, errDiskFull)
	var jobErr *generic.JobError
	require.ErrorAs(t, err, &jobErr)
	assert.Equal(t, generic.UserID(1), jobErr.UserID)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 1, report.Processed)

	rec, getErr := mem.GetAttendance(context.Background(), 2, generic.MustParseDay("2025-03-10"))
	require.NoError(t, getErr)
	require.NotNil(t, rec)
	assert.Equal(t, generic.StatusAbsent, rec.Status)
}

// =============================================================================
// AUTO-LOGOUT
// =============================================================================

func TestAutoLogout_ClosesOpenSessions(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.at("2025-03-10", 9, 0)
	_, err := h.engine.Login(ctx, 1)
	require.NoError(t, err)
	h.at("2025-03-10", 14, 0)
	_, err = h.engine.Login(ctx, 2)
	require.NoError(t, err)

	h.at("2025-03-10", 18, 35)
	report, err := h.engine.AutoLogout(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Processed)

	early := h.record(t, 1, "2025-03-10")
	assert.Equal(t, generic.StatusHalfDay, early.Status)
	assert.Equal(t, generic.SourceAuto, early.Source)
	assert.Equal(t, generic.NewTimeOfDay(18, 30), generic.TimeOfDayOf(*early.LogoutTime))
	assert.Equal(t, "Auto Logout - Half Day (Forgot Logout)", early.Remarks)

	late := h.record(t, 2, "2025-03-10")
	assert.Equal(t, generic.StatusAbsent, late.Status)
	assert.Equal(t, "Auto Absent - Less than 5 Hours", late.Remarks)
}

func TestAutoLogout_LeavesClosedSessionsAlone(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.worked(t, 1, "2025-03-10", [2]int{9, 0}, [2]int{18, 0})

	h.at("2025-03-10", 18, 35)
	report, err := h.engine.AutoLogout(ctx)

	require.NoError(t, err)
	assert.Zero(t, report.Processed)
	assert.Equal(t, generic.SourceLive, h.record(t, 1, "2025-03-10").Source)
}

func TestAutoLogout_LeavesAutoAbsentUntouched(t *testing.T) {
	// GIVEN: nobody logged in by 13:05 on a Tuesday
	h := newHarness(t)
	ctx := context.Background()
	h.at("2025-03-11", 13, 5)
	_, err := h.engine.AutoAbsent(ctx)
	require.NoError(t, err)

	// WHEN: the 18:35 job runs
	h.at("2025-03-11", 18, 35)
	report, err := h.engine.AutoLogout(ctx)

	// THEN: the absent records have no login to close
	require.NoError(t, err)
	assert.Zero(t, report.Processed)
	for _, id := range []int64{1, 2} {
		rec := h.record(t, id, "2025-03-11")
		require.NotNil(t, rec)
		assert.Equal(t, generic.StatusAbsent, rec.Status)
		assert.Equal(t, "Auto Absent - No Login Before 1 PM", rec.Remarks)
		assert.Nil(t, rec.LogoutTime)
	}
}

// =============================================================================
// WEEKEND / DAY-OFF MARKING
// =============================================================================

func TestMarkWeekend(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, err := h.engine.UpdateStatus(ctx, attendance.StatusUpdate{EmpID: "EMP002", Date: generic.MustParseDay("2025-03-08"), Status: "PRESENT", Remark: "Weekend shift"})
	require.NoError(t, err)

	h.at("2025-03-10", 0, 1)
	weekday, err := h.engine.MarkWeekend(ctx)
	require.NoError(t, err)
	assert.Zero(t, weekday.Processed)

	h.at("2025-03-08", 0, 1)
	report, err := h.engine.MarkWeekend(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Processed)
	assert.Equal(t, 1, report.Skipped)
	rec := h.record(t, 1, "2025-03-08")
	assert.Equal(t, generic.StatusWeekend, rec.Status)
	assert.Equal(t, "Auto Weekend Marked", rec.Remarks)
	assert.Equal(t, generic.StatusPresent, h.record(t, 2, "2025-03-08").Status)
}

func TestMarkDaysOff(t *testing.T) {
	t.Run("holiday marks everyone", func(t *testing.T) {
		h := newHarness(t)
		h.calendar.AddHoliday("2025-03-12")
		h.at("2025-03-12", 0, 2)

		report, err := h.engine.MarkDaysOff(context.Background())

		require.NoError(t, err)
		assert.Equal(t, 2, report.Processed)
		rec := h.record(t, 2, "2025-03-12")
		assert.Equal(t, generic.StatusHoliday, rec.Status)
		assert.Equal(t, "Auto Holiday Marked", rec.Remarks)
	})

	t.Run("approved leave marks only that user", func(t *testing.T) {
		h := newHarness(t)
		h.calendar.AddLeave(1, "2025-03-11", "2025-03-13")
		h.at("2025-03-12", 0, 2)

		report, err := h.engine.MarkDaysOff(context.Background())

		require.NoError(t, err)
		assert.Equal(t, 1, report.Processed)
		assert.Equal(t, generic.StatusLeave, h.record(t, 1, "2025-03-12").Status)
		assert.Equal(t, "Approved Leave", h.record(t, 1, "2025-03-12").Remarks)
		assert.Nil(t, h.record(t, 2, "2025-03-12"))
	})
}

// =============================================================================
// SANDWICH
// =============================================================================

func TestApplySandwich_FridayAbsent(t *testing.T) {
	// GIVEN: user 1 absent on Friday, both users have auto weekend records
	h := newHarness(t)
	ctx := context.Background()
	h.seed(t, generic.Attendance{UserID: 1, EmpID: "EMP001", Date: generic.MustParseDay("2025-03-07"), Status: generic.StatusAbsent, Source: generic.SourceAuto})
	h.worked(t, 2, "2025-03-07", [2]int{9, 0}, [2]int{18, 0})
	for _, d := range []string{"2025-03-08", "2025-03-09"} {
		h.at(d, 0, 1)
		_, err := h.engine.MarkWeekend(ctx)
		require.NoError(t, err)
	}

	// WHEN: the job runs on Monday just after midnight
	h.at("2025-03-10", 0, 10)
	report, err := h.engine.ApplySandwich(ctx)
	require.NoError(t, err)

	// THEN: user 1's weekend turns absent, user 2 keeps WEEKEND
	assert.Equal(t, 1, report.Processed)
	for _, d := range []string{"2025-03-08", "2025-03-09"} {
		rec := h.record(t, 1, d)
		assert.Equal(t, generic.StatusAbsent, rec.Status, d)
		assert.Equal(t, "Sandwich Applied", rec.Remarks)
		assert.Equal(t, generic.SourceRoster, rec.Source)
		assert.Equal(t, generic.StatusWeekend, h.record(t, 2, d).Status, d)
	}

	// AND: running again writes nothing
	again, err := h.engine.ApplySandwich(ctx)
	require.NoError(t, err)
	assert.Zero(t, again.Processed)
}

func TestApplySandwich_MondayAbsentCreatesMissingDays(t *testing.T) {
	h := newHarness(t)
	h.worked(t, 1, "2025-03-07", [2]int{9, 0}, [2]int{18, 0})
	h.seed(t, generic.Attendance{UserID: 1, EmpID: "EMP001", Date: generic.MustParseDay("2025-03-10"), Status: generic.StatusAbsent, Source: generic.SourceAuto})

	h.at("2025-03-11", 0, 10)
	_, err := h.engine.ApplySandwich(context.Background())
	require.NoError(t, err)

	sat := h.record(t, 1, "2025-03-08")
	require.NotNil(t, sat)
	assert.Equal(t, generic.StatusAbsent, sat.Status)
	require.NotNil(t, h.record(t, 1, "2025-03-09"))
}

func TestApplySandwich_KeepsHROverride(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.seed(t, generic.Attendance{UserID: 1, EmpID: "EMP001", Date: generic.MustParseDay("2025-03-07"), Status: generic.StatusAbsent, Source: generic.SourceAuto})
	_, err := h.engine.UpdateStatus(ctx, attendance.StatusUpdate{EmpID: "EMP001", Date: generic.MustParseDay("2025-03-08"), Status: "WEEKEND"})
	require.NoError(t, err)

	h.at("2025-03-10", 0, 10)
	_, err = h.engine.ApplySandwich(ctx)
	require.NoError(t, err)

	sat := h.record(t, 1, "2025-03-08")
	assert.Equal(t, generic.StatusWeekend, sat.Status)
	assert.Equal(t, generic.SourceManual, sat.Source)
	assert.Equal(t, generic.StatusAbsent, h.record(t, 1, "2025-03-09").Status)
}

// =============================================================================
// ROSTER FINALIZE
// =============================================================================

func TestFinalizeFromRoster(t *testing.T) {
	// GIVEN: three full days; the roster leaves EMP001 blank, confirms EMP002
	// and marks EMP003 half day
	h := newHarness(t)
	ctx := context.Background()
	h.users.Add(testfixtures.Employee(3, "EMP003", 30000))
	h.worked(t, 1, "2025-03-10", [2]int{9, 5}, [2]int{18, 0})
	h.worked(t, 2, "2025-03-10", [2]int{9, 5}, [2]int{18, 0})
	h.worked(t, 3, "2025-03-10", [2]int{9, 0}, [2]int{18, 0})
	h.roster.Add("2025-03-10", "EMP001", "  ", "")
	h.roster.Add("2025-03-10", "EMP002", "PRESENT", "")
	h.roster.Add("2025-03-10", " EMP003 ", "half-day", "standup")
	h.roster.Add("2025-03-10", "EMP999", "ABSENT", "")
	h.roster.Add("2025-03-10", "", "ABSENT", "")

	// WHEN
	h.at("2025-03-10", 18, 40)
	report, err := h.engine.FinalizeFromRoster(ctx)
	require.NoError(t, err)

	// THEN
	assert.Equal(t, 3, report.Processed)
	assert.Equal(t, 2, report.Skipped)

	blank := h.record(t, 1, "2025-03-10")
	assert.Equal(t, generic.StatusAbsent, blank.Status, "a blank roster status means absent")
	assert.Equal(t, generic.SourceRoster, blank.Source)
	assert.Equal(t, "Absent For Today's Standup Call", blank.Remarks)

	present := h.record(t, 2, "2025-03-10")
	assert.Equal(t, generic.StatusPresent, present.Status)
	assert.Equal(t, generic.SourceRoster, present.Source)
	assert.Equal(t, "Full Day Present - Time Condition Met", present.Remarks)

	half := h.record(t, 3, "2025-03-10")
	assert.Equal(t, generic.StatusHalfDay, half.Status)
	assert.Equal(t, "Half Day Marked From Roster | standup", half.Remarks)
}

func TestFinalizeFromRoster_AbsentWithoutRecord(t *testing.T) {
	h := newHarness(t)
	h.roster.Add("2025-03-10", "EMP002", "absent", "")

	h.at("2025-03-10", 18, 40)
	_, err := h.engine.FinalizeFromRoster(context.Background())
	require.NoError(t, err)

	rec := h.record(t, 2, "2025-03-10")
	require.NotNil(t, rec)
	assert.Equal(t, generic.StatusAbsent, rec.Status)
	assert.Equal(t, "Absent For Today's Standup Call", rec.Remarks)
}

func TestFinalizeFromRoster_ManualOverrideWins(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, err := h.engine.UpdateStatus(ctx, attendance.StatusUpdate{EmpID: "EMP001", Date: generic.MustParseDay("2025-03-10"), Status: "PRESENT"})
	require.NoError(t, err)
	h.roster.Add("2025-03-10", "EMP001", "ABSENT", "")

	h.at("2025-03-10", 18, 40)
	report, err := h.engine.FinalizeFromRoster(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Skipped)
	rec := h.record(t, 1, "2025-03-10")
	assert.Equal(t, generic.StatusPresent, rec.Status)
	assert.Equal(t, "Marked by HR", rec.Remarks)
}

func TestFinalizeFromRoster_NoRosterIsNoOp(t *testing.T) {
	h := newHarness(t)
	h.at("2025-03-10", 18, 40)

	report, err := h.engine.FinalizeFromRoster(context.Background())

	require.NoError(t, err)
	assert.Zero(t, report.Processed+report.Skipped+report.Failed)
}
