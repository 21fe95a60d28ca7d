package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/attendance-engine/generic"
	"github.com/warp/attendance-engine/generic/store"
)

func TestMemory_OneRecordPerUserPerDay(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	day := generic.MustParseDay("2025-12-01")

	first := &generic.Attendance{UserID: 1, Date: day, Status: generic.StatusPresent}
	require.NoError(t, mem.CreateAttendance(ctx, first))
	assert.NotZero(t, first.ID)

	err := mem.CreateAttendance(ctx, &generic.Attendance{UserID: 1, Date: day, Status: generic.StatusAbsent})
	var dup *generic.DuplicateDayError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, generic.UserID(1), dup.UserID)

	// another user on the same day is fine
	require.NoError(t, mem.CreateAttendance(ctx, &generic.Attendance{UserID: 2, Date: day, Status: generic.StatusAbsent}))
}

func TestMemory_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	day := generic.MustParseDay("2025-12-01")
	require.NoError(t, mem.CreateAttendance(ctx, &generic.Attendance{UserID: 1, Date: day, Status: generic.StatusPresent}))

	got, err := mem.GetAttendance(ctx, 1, day)
	require.NoError(t, err)
	got.Status = generic.StatusAbsent

	again, err := mem.GetAttendance(ctx, 1, day)
	require.NoError(t, err)
	assert.Equal(t, generic.StatusPresent, again.Status)

	missing, err := mem.GetAttendance(ctx, 9, day)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestMemory_RangeNewestFirst(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	for _, d := range []string{"2025-12-01", "2025-12-03", "2025-12-02", "2025-12-10"} {
		require.NoError(t, mem.CreateAttendance(ctx, &generic.Attendance{UserID: 1, Date: generic.MustParseDay(d), Status: generic.StatusPresent}))
	}

	recs, err := mem.ListAttendanceRange(ctx, 1, generic.MustParseDay("2025-12-01"), generic.MustParseDay("2025-12-03"))
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, "2025-12-03", recs[0].Date.String())
	assert.Equal(t, "2025-12-01", recs[2].Date.String())
}

func TestMemory_SingleActiveWallet(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()

	require.NoError(t, mem.CreateWallet(ctx, &generic.Wallet{UserID: 1, CycleStart: generic.MustParseDay("2025-11-24")}))
	err := mem.CreateWallet(ctx, &generic.Wallet{UserID: 1, CycleStart: generic.MustParseDay("2025-12-24")})
	assert.ErrorIs(t, err, generic.ErrActiveWalletExists)

	end := generic.MustParseDay("2025-11-23")
	require.NoError(t, mem.CreateWallet(ctx, &generic.Wallet{UserID: 1, CycleStart: generic.MustParseDay("2025-10-24"), CycleEnd: &end}))

	wallets, err := mem.ListWalletsByUser(ctx, 1)
	require.NoError(t, err)
	require.Len(t, wallets, 2)
	assert.True(t, wallets[0].IsActive())
}

func TestMemory_WithTx_RollsBackOnError(t *testing.T) {
	// GIVEN: a transaction that writes a wallet and then fails
	// THEN: the wallet is not visible afterwards
	ctx := context.Background()
	mem := store.NewMemory()
	boom := errors.New("boom")

	err := mem.WithTx(ctx, func(tx generic.Store) error {
		w := &generic.Wallet{UserID: 1, MonthlySalary: decimal.NewFromInt(30000), CycleStart: generic.MustParseDay("2025-11-24")}
		if err := tx.CreateWallet(ctx, w); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	w, err := mem.GetActiveWallet(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, w)
}

func TestMemory_Accruals(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	day := generic.MustParseDay("2025-12-01")

	require.NoError(t, mem.RecordAccrual(ctx, &generic.Accrual{UserID: 1, Date: day, Amount: decimal.NewFromInt(1000)}))
	assert.ErrorIs(t, mem.RecordAccrual(ctx, &generic.Accrual{UserID: 1, Date: day}), generic.ErrAccrualAlreadyApplied)

	got, err := mem.ListAccruals(ctx, 1, day, day)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestMemory_JobRuns(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	base := time.Date(2025, time.December, 1, 13, 5, 0, 0, time.UTC)

	require.NoError(t, mem.SaveJobRun(ctx, generic.JobRun{ID: "a", Job: "auto-absent", StartedAt: base}))
	require.NoError(t, mem.SaveJobRun(ctx, generic.JobRun{ID: "b", Job: "auto-absent", StartedAt: base.Add(24 * time.Hour)}))
	require.NoError(t, mem.SaveJobRun(ctx, generic.JobRun{ID: "c", Job: "auto-logout", StartedAt: base}))

	runs, err := mem.ListJobRuns(ctx, "auto-absent", 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "b", runs[0].ID)

	all, err := mem.ListJobRuns(ctx, "", 1)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}
