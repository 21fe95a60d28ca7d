package directory_test

import (
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/attendance-engine/directory"
	"github.com/warp/attendance-engine/generic"
)

func newTestDirectory(t *testing.T) *directory.Directory {
	log := logrus.New()
	log.SetOutput(io.Discard)

	db, err := directory.Open("file::memory:", log)
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	dir, err := directory.New(db, log)
	require.NoError(t, err)
	return dir
}

func TestUsers_FindByIDAndEmpID(t *testing.T) {
	dir := newTestDirectory(t)
	ctx := context.Background()

	u := &directory.User{EmpID: "E001", FullName: "Asha Rao", Email: "asha@example.com", Role: "EMPLOYEE", BaseSalary: decimal.NewFromInt(30000)}
	require.NoError(t, dir.Users.Create(ctx, u))

	byID, err := dir.Users.FindUserByID(ctx, generic.UserID(u.ID))
	require.NoError(t, err)
	assert.Equal(t, "E001", byID.EmpID)
	assert.True(t, byID.BaseSalary.Equal(decimal.NewFromInt(30000)))

	byEmp, err := dir.Users.FindUserByEmpID(ctx, "E001")
	require.NoError(t, err)
	assert.Equal(t, byID.ID, byEmp.ID)

	_, err = dir.Users.FindUserByEmpID(ctx, "E999")
	assert.ErrorIs(t, err, generic.ErrUserNotFound)

	users, err := dir.Users.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestUsers_CreateRequiresKeys(t *testing.T) {
	dir := newTestDirectory(t)
	err := dir.Users.Create(context.Background(), &directory.User{FullName: "No Codes"})
	assert.ErrorIs(t, err, generic.ErrInvalidInput)
}

func TestHolidays_IsHoliday(t *testing.T) {
	dir := newTestDirectory(t)
	ctx := context.Background()
	require.NoError(t, dir.Holidays.Create(ctx, &directory.Holiday{Date: "2025-12-25", Name: "Christmas"}))

	yes, err := dir.Holidays.IsHoliday(ctx, generic.MustParseDay("2025-12-25"))
	require.NoError(t, err)
	assert.True(t, yes)

	no, err := dir.Holidays.IsHoliday(ctx, generic.MustParseDay("2025-12-26"))
	require.NoError(t, err)
	assert.False(t, no)

	year, err := dir.Holidays.ListYear(ctx, 2025)
	require.NoError(t, err)
	assert.Len(t, year, 1)

	assert.Error(t, dir.Holidays.Create(ctx, &directory.Holiday{Date: "25/12/2025", Name: "bad"}))
}

func TestLeaves_OnlyApprovedCount(t *testing.T) {
	// GIVEN: an approved leave Dec 10-12 and a pending leave Dec 15
	// THEN: only days inside the approved range report leave
	dir := newTestDirectory(t)
	ctx := context.Background()
	require.NoError(t, dir.Leaves.Create(ctx, &directory.LeaveRequest{UserID: 1, StartDate: "2025-12-10", EndDate: "2025-12-12", Status: "APPROVED"}))
	require.NoError(t, dir.Leaves.Create(ctx, &directory.LeaveRequest{UserID: 1, StartDate: "2025-12-15", EndDate: "2025-12-15"}))

	tests := []struct {
		day  string
		want bool
	}{
		{"2025-12-09", false},
		{"2025-12-10", true},
		{"2025-12-12", true},
		{"2025-12-15", false},
	}
	for _, tt := range tests {
		got, err := dir.Leaves.HasApprovedLeave(ctx, 1, generic.MustParseDay(tt.day))
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, tt.day)
	}

	ranges, err := dir.Leaves.ApprovedLeaves(ctx, 1, generic.MustParseDay("2025-12-01"), generic.MustParseDay("2025-12-31"))
	require.NoError(t, err)
	require.Len(t, ranges, 1)
	assert.True(t, ranges[0].Contains(generic.MustParseDay("2025-12-11")))
}

func TestLeaves_RejectsInvertedRange(t *testing.T) {
	dir := newTestDirectory(t)
	err := dir.Leaves.Create(context.Background(), &directory.LeaveRequest{UserID: 1, StartDate: "2025-12-12", EndDate: "2025-12-10"})
	assert.ErrorIs(t, err, generic.ErrInvalidPeriod)
}

func TestRoster_RosterFor(t *testing.T) {
	dir := newTestDirectory(t)
	ctx := context.Background()
	require.NoError(t, dir.Roster.BulkCreate(ctx, []directory.RosterEntry{
		{EmpID: " E001 ", Name: "Asha", Date: "2025-12-01", Status: "HALF-DAY"},
		{EmpID: "E002", Name: "Ravi", Date: "2025-12-01", Status: ""},
		{EmpID: "E001", Name: "Asha", Date: "2025-12-02", Status: "ABSENT"},
	}))

	rows, err := dir.Roster.RosterFor(ctx, generic.MustParseDay("2025-12-01"))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "E001", rows[0].EmpID)
	assert.Equal(t, "HALF-DAY", rows[0].Status)
}

func TestOpen_SetsBusyTimeout(t *testing.T) {
	assert.Equal(t, "attendance.db?_busy_timeout=5000", directory.WithBusyTimeout("attendance.db"))
	assert.Equal(t, "file:x.db?mode=ro", directory.WithBusyTimeout("file:x.db?mode=ro"))

	// GIVEN: a file shared with the core store
	log := logrus.New()
	log.SetOutput(io.Discard)
	db, err := directory.Open(filepath.Join(t.TempDir(), "shared.db"), log)
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	// THEN: the connection waits on locks instead of failing at once
	var timeout int
	require.NoError(t, db.Raw("PRAGMA busy_timeout").Scan(&timeout).Error)
	assert.Equal(t, 5000, timeout)
}
