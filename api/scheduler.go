/*
scheduler.go - Job registry and cron scheduler

PURPOSE:
  Owns the table of scheduled jobs (name, cron spec, handler) and runs them
  on their triggers. The trigger times are part of the contract: accrual
  reads attendance only after the day's finalizing jobs have run.

SCHEDULE (seconds minutes hours dom month dow, server time zone):
  weekend-marking   0 1 0 * * *          00:01 daily (self-guards to Sat/Sun)
  day-off-marking   0 2 0 * * *          00:02 daily
  cycle-rollover    0 5 0 * * *          00:05 daily (self-guards to the 24th)
  sandwich-policy   0 10 0 * * *         00:10 daily
  auto-absent       0 5 13 * * MON-FRI   13:05
  auto-logout       0 35 18 * * MON-FRI  18:35
  roster-finalize   0 40 18 * * MON-FRI  18:40
  daily-accrual     0 45 18 * * *        18:45 daily

OVERLAP:
  At most one instance of a job runs at a time. A cron tick that finds the
  job still running is skipped; a manual RunNow gets ErrJobRunning.

RUN HISTORY:
  Every execution is saved as a generic.JobRun (running, then completed or
  failed) with its report counters.

SEE ALSO:
  - attendance/jobs.go, payroll/jobs.go: the job bodies
  - handlers.go: /api/jobs endpoints
*/
package api

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/generic"
	"github.com/warp/attendance-engine/payroll"
)

const (
	TriggerSchedule = "schedule"
	TriggerManual   = "manual"
)

// JobFunc is the body of a scheduled job.
type JobFunc func(ctx context.Context) (generic.JobReport, error)

type Job struct {
	Name string
	Spec string
	Run  JobFunc
}

// DefaultJobs is the production job table.
func DefaultJobs(att *attendance.Engine, pay *payroll.Engine) []Job {
	return []Job{
		{Name: attendance.JobWeekend, Spec: "0 1 0 * * *", Run: att.MarkWeekend},
		{Name: attendance.JobDaysOff, Spec: "0 2 0 * * *", Run: att.MarkDaysOff},
		{Name: payroll.JobRollover, Spec: "0 5 0 * * *", Run: pay.Rollover},
		{Name: attendance.JobSandwich, Spec: "0 10 0 * * *", Run: att.ApplySandwich},
		{Name: attendance.JobAutoAbsent, Spec: "0 5 13 * * MON-FRI", Run: att.AutoAbsent},
		{Name: attendance.JobAutoLogout, Spec: "0 35 18 * * MON-FRI", Run: att.AutoLogout},
		{Name: attendance.JobRosterFinalize, Spec: "0 40 18 * * MON-FRI", Run: att.FinalizeFromRoster},
		{Name: payroll.JobDailyAccrual, Spec: "0 45 18 * * *", Run: pay.AccrueDaily},
	}
}

// =============================================================================
// SCHEDULER
// =============================================================================

type registeredJob struct {
	Job
	entry   cron.EntryID
	running sync.Mutex
}

type Scheduler struct {
	cron   *cron.Cron
	jobs   map[string]*registeredJob
	order  []string
	runs   generic.JobRunStore
	clock  generic.Clock
	logger logrus.FieldLogger
}

// JobInfo describes a registered job for listing.
type JobInfo struct {
	Name string
	Spec string
	Next time.Time
}

// NewScheduler registers jobs with a seconds-resolution cron in loc. Job
// names must be unique and specs must parse.
func NewScheduler(jobs []Job, runs generic.JobRunStore, loc *time.Location, logger logrus.FieldLogger) (*Scheduler, error) {
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	logger = logger.WithField("component", "scheduler")
	cl := cronLogger{log: logger}

	s := &Scheduler{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithLocation(loc),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		jobs:   make(map[string]*registeredJob, len(jobs)),
		runs:   runs,
		clock:  generic.SystemClock{Location: loc},
		logger: logger,
	}

	for _, j := range jobs {
		if _, dup := s.jobs[j.Name]; dup {
			return nil, fmt.Errorf("job %q registered twice", j.Name)
		}
		rj := &registeredJob{Job: j}
		id, err := s.cron.AddFunc(j.Spec, func() {
			// errors are already logged and recorded in the run history
			_, _ = s.execute(context.Background(), rj, TriggerSchedule)
		})
		if err != nil {
			return nil, fmt.Errorf("job %q: invalid spec %q: %w", j.Name, j.Spec, err)
		}
		rj.entry = id
		s.jobs[j.Name] = rj
		s.order = append(s.order, j.Name)
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.WithField("jobs", len(s.jobs)).Info("Scheduler started")
}

// Stop stops the triggers and returns a context that is done once running
// jobs have finished.
func (s *Scheduler) Stop() context.Context {
	ctx := s.cron.Stop()
	s.logger.Info("Scheduler stopped")
	return ctx
}

// Jobs lists the registered jobs in registration order.
func (s *Scheduler) Jobs() []JobInfo {
	out := make([]JobInfo, 0, len(s.order))
	for _, name := range s.order {
		rj := s.jobs[name]
		out = append(out, JobInfo{Name: rj.Name, Spec: rj.Spec, Next: s.cron.Entry(rj.entry).Next})
	}
	return out
}

// RunNow executes a job immediately and waits for it.
func (s *Scheduler) RunNow(ctx context.Context, name string) (generic.JobRun, error) {
	rj, ok := s.jobs[name]
	if !ok {
		return generic.JobRun{}, fmt.Errorf("%w: %s (known: %s)", generic.ErrUnknownJob, name, strings.Join(s.sortedJobNames(), ", "))
	}
	return s.execute(ctx, rj, TriggerManual)
}

// Runs returns recent runs of job (all jobs when empty), newest first.
func (s *Scheduler) Runs(ctx context.Context, job string, limit int) ([]generic.JobRun, error) {
	if job != "" {
		if _, ok := s.jobs[job]; !ok {
			return nil, fmt.Errorf("%w: %s", generic.ErrUnknownJob, job)
		}
	}
	if s.runs == nil {
		return nil, nil
	}
	return s.runs.ListJobRuns(ctx, job, limit)
}

func (s *Scheduler) execute(ctx context.Context, rj *registeredJob, trigger string) (generic.JobRun, error) {
	log := s.logger.WithFields(logrus.Fields{"job": rj.Name, "trigger": trigger})
	if !rj.running.TryLock() {
		log.Warn("Job already running, skipped")
		return generic.JobRun{}, fmt.Errorf("%w: %s", generic.ErrJobRunning, rj.Name)
	}
	defer rj.running.Unlock()

	run := generic.JobRun{
		ID:        uuid.NewString(),
		Job:       rj.Name,
		Trigger:   trigger,
		Status:    generic.JobRunRunning,
		StartedAt: s.clock.Now(),
	}
	s.save(ctx, run)

	report, err := rj.Run(ctx)

	done := s.clock.Now()
	run.CompletedAt = &done
	run.Processed, run.Skipped, run.Failed = report.Processed, report.Skipped, report.Failed
	run.Status = generic.JobRunCompleted
	if err != nil {
		run.Status = generic.JobRunFailed
		run.Error = err.Error()
		log.WithError(err).Error("Job finished with errors")
	}
	s.save(ctx, run)

	log.WithFields(logrus.Fields{
		"run_id":   run.ID,
		"duration": done.Sub(run.StartedAt).String(),
	}).Info("Job run recorded")
	return run, err
}

func (s *Scheduler) save(ctx context.Context, run generic.JobRun) {
	if s.runs == nil {
		return
	}
	if err := s.runs.SaveJobRun(ctx, run); err != nil {
		s.logger.WithError(err).WithField("run_id", run.ID).Error("Failed to save job run")
	}
}

// =============================================================================
// CRON LOGGER - cron.Logger on logrus
// =============================================================================

type cronLogger struct {
	log logrus.FieldLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.WithFields(kvFields(keysAndValues)).Debug(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.WithError(err).WithFields(kvFields(keysAndValues)).Error(msg)
}

func kvFields(kv []interface{}) logrus.Fields {
	f := logrus.Fields{}
	for i := 0; i+1 < len(kv); i += 2 {
		f[fmt.Sprint(kv[i])] = kv[i+1]
	}
	return f
}

func (s *Scheduler) sortedJobNames() []string {
	names := make([]string, 0, len(s.jobs))
	for n := range s.jobs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
