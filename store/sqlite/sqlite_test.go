package sqlite_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/attendance-engine/generic"
	"github.com/warp/attendance-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestStore(t *testing.T) *sqlite.Store {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

var ist = time.FixedZone("IST", 5*3600+1800)

// =============================================================================
// ATTENDANCE UNIQUENESS
// =============================================================================

func TestStore_Attendance_DuplicateDayRejected(t *testing.T) {
	// GIVEN: user 1 already has a record for Dec 1
	// WHEN: a second record is inserted for the same day
	// THEN: the unique index rejects it as a DuplicateDayError
	store := newTestStore(t)
	ctx := context.Background()
	day := generic.MustParseDay("2025-12-01")

	login := time.Date(2025, time.December, 1, 9, 5, 0, 0, ist)
	first := &generic.Attendance{UserID: 1, EmpID: "E001", Date: day, LoginTime: &login, Status: generic.StatusPresent, Remarks: "Login Recorded"}
	require.NoError(t, store.CreateAttendance(ctx, first))
	assert.NotZero(t, first.ID)

	err := store.CreateAttendance(ctx, &generic.Attendance{UserID: 1, Date: day, Status: generic.StatusAbsent})
	var dupErr *generic.DuplicateDayError
	require.ErrorAs(t, err, &dupErr)
	assert.True(t, dupErr.Date.Equal(day))
	assert.ErrorIs(t, err, generic.ErrDuplicateAttendance)
}

func TestStore_Attendance_RoundTripPreservesLocalTime(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	day := generic.MustParseDay("2025-12-01")

	login := time.Date(2025, time.December, 1, 9, 11, 0, 0, ist)
	logout := time.Date(2025, time.December, 1, 17, 0, 0, 0, ist)
	rec := &generic.Attendance{UserID: 1, Date: day, LoginTime: &login, Status: generic.StatusPresent, Source: generic.SourceLive}
	require.NoError(t, store.CreateAttendance(ctx, rec))

	rec.LogoutTime = &logout
	rec.Status = generic.StatusHalfDay
	rec.Remarks = "worked 7 hrs"
	require.NoError(t, store.UpdateAttendance(ctx, rec))

	got, err := store.GetAttendance(ctx, 1, day)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, generic.StatusHalfDay, got.Status)
	assert.Equal(t, generic.SourceLive, got.Source)
	assert.Equal(t, 9, got.LoginTime.Hour())
	assert.Equal(t, 11, got.LoginTime.Minute())
	assert.True(t, got.LogoutTime.Equal(logout))

	missing, err := store.GetAttendance(ctx, 2, day)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestStore_Attendance_ConcurrentInsertsOneWins(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	day := generic.MustParseDay("2025-12-01")

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- store.CreateAttendance(ctx, &generic.Attendance{UserID: 1, Date: day, Status: generic.StatusPresent})
		}()
	}
	wg.Wait()
	close(errs)

	var ok, dup int
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, generic.ErrDuplicateAttendance):
			dup++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 9, dup)
}

func TestStore_Attendance_Listings(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, d := range []string{"2025-11-30", "2025-12-01", "2025-12-02"} {
		require.NoError(t, store.CreateAttendance(ctx, &generic.Attendance{UserID: 1, Date: generic.MustParseDay(d), Status: generic.StatusPresent}))
	}
	require.NoError(t, store.CreateAttendance(ctx, &generic.Attendance{UserID: 2, Date: generic.MustParseDay("2025-12-01"), Status: generic.StatusAbsent}))

	byDate, err := store.ListAttendanceByDate(ctx, generic.MustParseDay("2025-12-01"))
	require.NoError(t, err)
	assert.Len(t, byDate, 2)

	ranged, err := store.ListAttendanceRange(ctx, 1, generic.MustParseDay("2025-12-01"), generic.MustParseDay("2025-12-31"))
	require.NoError(t, err)
	require.Len(t, ranged, 2)
	assert.Equal(t, "2025-12-02", ranged[0].Date.String())

	all, err := store.ListAttendanceByUser(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestStore_Attendance_UpdateMissing(t *testing.T) {
	store := newTestStore(t)
	err := store.UpdateAttendance(context.Background(), &generic.Attendance{ID: 42, Status: generic.StatusAbsent})
	assert.ErrorIs(t, err, generic.ErrAttendanceNotFound)
}

// =============================================================================
// WALLETS AND ACCRUALS
// =============================================================================

func TestStore_Wallet_OneActivePerUser(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	w := &generic.Wallet{
		UserID:        1,
		EmpID:         "E001",
		MonthlySalary: decimal.NewFromInt(30000),
		DailyRate:     decimal.NewFromInt(1000),
		CycleStart:    generic.MustParseDay("2025-11-24"),
	}
	require.NoError(t, store.CreateWallet(ctx, w))

	err := store.CreateWallet(ctx, &generic.Wallet{UserID: 1, CycleStart: generic.MustParseDay("2025-12-24")})
	assert.ErrorIs(t, err, generic.ErrActiveWalletExists)

	// closing the first wallet frees the slot
	end := generic.MustParseDay("2025-12-23")
	w.CycleEnd = &end
	require.NoError(t, store.UpdateWallet(ctx, w))
	require.NoError(t, store.CreateWallet(ctx, &generic.Wallet{UserID: 1, CycleStart: generic.MustParseDay("2025-12-24")}))

	active, err := store.GetActiveWallet(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, "2025-12-24", active.CycleStart.String())

	history, err := store.ListWalletsByUser(ctx, 1)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "2025-12-23", history[1].CycleEnd.String())
	assert.Equal(t, "30000", history[1].MonthlySalary.String())
}

func TestStore_Accrual_IdempotentPerDay(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	w := &generic.Wallet{UserID: 1, DailyRate: decimal.NewFromInt(1000), CycleStart: generic.MustParseDay("2025-11-24")}
	require.NoError(t, store.CreateWallet(ctx, w))

	day := generic.MustParseDay("2025-12-01")
	err := store.WithTx(ctx, func(tx generic.Store) error {
		return generic.NewLedger(tx).Credit(ctx, w, &generic.Accrual{Date: day, Status: generic.StatusPresent, Amount: decimal.NewFromInt(1000)})
	})
	require.NoError(t, err)

	err = store.WithTx(ctx, func(tx generic.Store) error {
		return generic.NewLedger(tx).Credit(ctx, w, &generic.Accrual{Date: day, Status: generic.StatusPresent, Amount: decimal.NewFromInt(1000)})
	})
	assert.ErrorIs(t, err, generic.ErrAccrualAlreadyApplied)

	active, err := store.GetActiveWallet(ctx, 1)
	require.NoError(t, err)
	assert.True(t, active.CurrentMonthEarned.Equal(decimal.NewFromInt(1000)))

	accruals, err := store.ListAccruals(ctx, 1, day, day)
	require.NoError(t, err)
	require.Len(t, accruals, 1)
	assert.Equal(t, w.ID, accruals[0].WalletID)
}

func TestStore_WithTx_RollsBack(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := store.WithTx(ctx, func(tx generic.Store) error {
		if err := tx.CreateAttendance(ctx, &generic.Attendance{UserID: 1, Date: generic.MustParseDay("2025-12-01"), Status: generic.StatusPresent}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	recs, err := store.ListAttendanceByUser(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, recs)
}

// =============================================================================
// JOB RUNS
// =============================================================================

func TestStore_JobRuns_SaveAndList(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	started := time.Date(2025, time.December, 1, 13, 5, 0, 0, time.UTC)

	run := generic.JobRun{ID: "run-1", Job: "auto-absent", Trigger: "schedule", Status: generic.JobRunRunning, StartedAt: started}
	require.NoError(t, store.SaveJobRun(ctx, run))

	done := started.Add(2 * time.Second)
	run.Status = generic.JobRunCompleted
	run.Processed = 4
	run.CompletedAt = &done
	require.NoError(t, store.SaveJobRun(ctx, run))

	runs, err := store.ListJobRuns(ctx, "auto-absent", 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, generic.JobRunCompleted, runs[0].Status)
	assert.Equal(t, 4, runs[0].Processed)
	require.NotNil(t, runs[0].CompletedAt)

	none, err := store.ListJobRuns(ctx, "auto-logout", 10)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestStore_Reset(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	day := generic.MustParseDay("2025-12-01")
	require.NoError(t, store.CreateAttendance(ctx, &generic.Attendance{UserID: 1, Date: day, Status: generic.StatusPresent}))
	require.NoError(t, store.SaveJobRun(ctx, generic.JobRun{ID: "run-1", Job: "auto-absent", Status: generic.JobRunCompleted, StartedAt: time.Now()}))

	require.NoError(t, store.Reset(ctx))

	recs, err := store.ListAttendanceByDate(ctx, day)
	require.NoError(t, err)
	assert.Empty(t, recs)
	runs, err := store.ListJobRuns(ctx, "", 10)
	require.NoError(t, err)
	assert.Empty(t, runs)

	// the schema survives
	require.NoError(t, store.CreateAttendance(ctx, &generic.Attendance{UserID: 1, Date: day, Status: generic.StatusAbsent}))
}
