package attendance_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/generic"
	"github.com/warp/attendance-engine/generic/store"
	"github.com/warp/attendance-engine/testfixtures"
)

type harness struct {
	store    *store.Memory
	users    *testfixtures.Directory
	calendar *testfixtures.Calendar
	roster   *testfixtures.Roster
	clock    *generic.SettableClock
	engine   *attendance.Engine
}

// newHarness builds an engine with two employees, clock at 2025-03-10 09:00 IST (a Monday).
func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		store:    store.NewMemory(),
		users:    testfixtures.NewDirectory(testfixtures.Employee(1, "EMP001", 30000), testfixtures.Employee(2, "EMP002", 45000)),
		calendar: testfixtures.NewCalendar(),
		roster:   testfixtures.NewRoster(),
		clock:    generic.NewSettableClock(testfixtures.At("2025-03-10", 9, 0)),
	}
	h.engine = attendance.NewEngine(h.store, h.users, h.calendar, h.calendar,
		attendance.WithClock(h.clock),
		attendance.WithRoster(h.roster),
		attendance.WithLogger(testfixtures.QuietLogger()),
	)
	return h
}

func (h *harness) at(date string, hour, minute int) {
	h.clock.Set(testfixtures.At(date, hour, minute))
}

func (h *harness) record(t *testing.T, userID int64, date string) *generic.Attendance {
	t.Helper()
	rec, err := h.store.GetAttendance(context.Background(), generic.UserID(userID), generic.MustParseDay(date))
	require.NoError(t, err)
	return rec
}

// seed writes a record directly, bypassing the engine.
func (h *harness) seed(t *testing.T, rec generic.Attendance) {
	t.Helper()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	require.NoError(t, h.store.CreateAttendance(context.Background(), &rec))
}

func (h *harness) worked(t *testing.T, userID int64, date string, login, logout [2]int) {
	t.Helper()
	in := testfixtures.At(date, login[0], login[1])
	out := testfixtures.At(date, logout[0], logout[1])
	h.seed(t, generic.Attendance{
		UserID:     generic.UserID(userID),
		EmpID:      fmt.Sprintf("EMP%03d", userID),
		Date:       generic.MustParseDay(date),
		LoginTime:  &in,
		LogoutTime: &out,
		Status:     generic.StatusPresent,
		Source:     generic.SourceLive,
	})
}
