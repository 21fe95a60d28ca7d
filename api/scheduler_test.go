package api_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/attendance-engine/api"
	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/generic"
	"github.com/warp/attendance-engine/generic/store"
	"github.com/warp/attendance-engine/payroll"
	"github.com/warp/attendance-engine/testfixtures"
)

func countingJob(name string, report generic.JobReport, err error) api.Job {
	return api.Job{
		Name: name,
		Spec: "0 0 3 * * *",
		Run: func(context.Context) (generic.JobReport, error) {
			report.Job = name
			return report, err
		},
	}
}

func TestDefaultJobs_AllSpecsRegister(t *testing.T) {
	// GIVEN: the production job table
	mem := store.NewMemory()
	users := testfixtures.NewDirectory()
	att := attendance.NewEngine(mem, users, nil, nil)
	pay := payroll.NewEngine(mem, users)

	// WHEN
	sched, err := api.NewScheduler(api.DefaultJobs(att, pay), mem, testfixtures.IST, testfixtures.QuietLogger())

	// THEN: every cron expression parses and the order is the trigger order
	require.NoError(t, err)
	var names []string
	for _, j := range sched.Jobs() {
		names = append(names, j.Name)
	}
	assert.Equal(t, []string{
		attendance.JobWeekend,
		attendance.JobDaysOff,
		payroll.JobRollover,
		attendance.JobSandwich,
		attendance.JobAutoAbsent,
		attendance.JobAutoLogout,
		attendance.JobRosterFinalize,
		payroll.JobDailyAccrual,
	}, names)
}

func TestDefaultJobs_TriggerTimes(t *testing.T) {
	// GIVEN: the production table and a Saturday noon
	mem := store.NewMemory()
	users := testfixtures.NewDirectory()
	jobs := api.DefaultJobs(attendance.NewEngine(mem, users, nil, nil), payroll.NewEngine(mem, users))
	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	saturday := testfixtures.At("2025-03-15", 12, 0)

	// THEN: each job fires at its contractual time; weekday jobs wait for Monday
	want := map[string]time.Time{
		attendance.JobWeekend:        testfixtures.At("2025-03-16", 0, 1),
		attendance.JobDaysOff:        testfixtures.At("2025-03-16", 0, 2),
		payroll.JobRollover:          testfixtures.At("2025-03-16", 0, 5),
		attendance.JobSandwich:       testfixtures.At("2025-03-16", 0, 10),
		attendance.JobAutoAbsent:     testfixtures.At("2025-03-17", 13, 5),
		attendance.JobAutoLogout:     testfixtures.At("2025-03-17", 18, 35),
		attendance.JobRosterFinalize: testfixtures.At("2025-03-17", 18, 40),
		payroll.JobDailyAccrual:      testfixtures.At("2025-03-15", 18, 45),
	}
	require.Len(t, jobs, len(want))
	for _, j := range jobs {
		t.Run(j.Name, func(t *testing.T) {
			expected, ok := want[j.Name]
			require.True(t, ok, "unexpected job %s", j.Name)

			sched, err := parser.Parse(j.Spec)
			require.NoError(t, err)
			next := sched.Next(saturday)
			assert.True(t, expected.Equal(next), "next run %s, want %s", next, expected)
			// the day after, to pin daily vs weekday
			after := sched.Next(next)
			assert.True(t, expected.AddDate(0, 0, 1).Equal(after), "following run %s", after)
		})
	}
}

func TestNewScheduler_RejectsBadTables(t *testing.T) {
	job := countingJob("a", generic.JobReport{}, nil)

	_, err := api.NewScheduler([]api.Job{job, job}, nil, time.UTC, nil)
	assert.Error(t, err, "duplicate name")

	job.Spec = "every tuesday"
	_, err = api.NewScheduler([]api.Job{job}, nil, time.UTC, nil)
	assert.Error(t, err, "invalid cron expression")
}

func TestRunNow_RecordsRun(t *testing.T) {
	// GIVEN: a job that processes 3 users and skips 1
	mem := store.NewMemory()
	sched, err := api.NewScheduler(
		[]api.Job{countingJob("tally", generic.JobReport{Processed: 3, Skipped: 1}, nil)},
		mem, time.UTC, testfixtures.QuietLogger())
	require.NoError(t, err)
	ctx := context.Background()

	// WHEN
	run, err := sched.RunNow(ctx, "tally")

	// THEN: the run is completed and persisted
	require.NoError(t, err)
	assert.Equal(t, generic.JobRunCompleted, run.Status)
	assert.Equal(t, api.TriggerManual, run.Trigger)
	assert.Equal(t, 3, run.Processed)
	assert.Equal(t, 1, run.Skipped)
	require.NotNil(t, run.CompletedAt)

	runs, err := sched.Runs(ctx, "tally", 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, run.ID, runs[0].ID)
	assert.Equal(t, generic.JobRunCompleted, runs[0].Status)
}

func TestRunNow_FailedJobIsRecorded(t *testing.T) {
	mem := store.NewMemory()
	boom := &generic.JobError{Job: "tally", UserID: 7, Err: errors.New("disk full")}
	sched, err := api.NewScheduler(
		[]api.Job{countingJob("tally", generic.JobReport{Processed: 2, Failed: 1}, boom)},
		mem, time.UTC, testfixtures.QuietLogger())
	require.NoError(t, err)

	run, err := sched.RunNow(context.Background(), "tally")

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, generic.JobRunFailed, run.Status)
	assert.Equal(t, 1, run.Failed)
	assert.Contains(t, run.Error, "disk full")
}

func TestRunNow_UnknownJob(t *testing.T) {
	sched, err := api.NewScheduler([]api.Job{countingJob("tally", generic.JobReport{}, nil)}, nil, time.UTC, nil)
	require.NoError(t, err)

	_, err = sched.RunNow(context.Background(), "payday")

	assert.ErrorIs(t, err, generic.ErrUnknownJob)
	assert.Contains(t, err.Error(), "tally")

	_, err = sched.Runs(context.Background(), "payday", 10)
	assert.ErrorIs(t, err, generic.ErrUnknownJob)
}

func TestRunNow_RefusesOverlap(t *testing.T) {
	// GIVEN: a job that blocks until released
	started := make(chan struct{})
	release := make(chan struct{})
	slow := api.Job{
		Name: "slow",
		Spec: "0 0 3 * * *",
		Run: func(context.Context) (generic.JobReport, error) {
			close(started)
			<-release
			return generic.JobReport{Processed: 1}, nil
		},
	}
	sched, err := api.NewScheduler([]api.Job{slow}, store.NewMemory(), time.UTC, testfixtures.QuietLogger())
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := sched.RunNow(context.Background(), "slow")
		done <- err
	}()
	<-started

	// WHEN: a second run is triggered while the first is in flight
	_, err = sched.RunNow(context.Background(), "slow")

	// THEN
	assert.ErrorIs(t, err, generic.ErrJobRunning)
	close(release)
	require.NoError(t, <-done)
}
