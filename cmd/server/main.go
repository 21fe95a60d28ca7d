/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the attendance and payroll engine server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (.env, then environment)
  2. Open the SQLite core store and the gorm directory
  3. Load tuning rules (RULES_FILE, defaults otherwise)
  4. Build the attendance and payroll engines
  5. Register the scheduled jobs (started only when SCHEDULER_ENABLED)
  6. Configure HTTP router and start the server

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the cron triggers
  2. Stop accepting new connections, wait for active requests (30s)
  3. Wait for running jobs to finish (same deadline)
  4. Close database connections

ENVIRONMENT:
  See config/config.go.

SEE ALSO:
  - api/server.go: Router configuration
  - api/scheduler.go: Job table
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/warp/attendance-engine/api"
	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/config"
	"github.com/warp/attendance-engine/directory"
	"github.com/warp/attendance-engine/factory"
	"github.com/warp/attendance-engine/generic"
	"github.com/warp/attendance-engine/payroll"
	"github.com/warp/attendance-engine/store/sqlite"
)

func main() {
	cfg, err := config.Load()
	logger := cfg.NewLogger()
	if err != nil {
		logger.WithError(err).Fatal("Invalid configuration")
	}

	if err := run(cfg, logger); err != nil {
		logger.WithError(err).Fatal("Server failed")
	}
}

func run(cfg config.Config, logger *logrus.Logger) error {
	store, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer store.Close()

	db, err := directory.Open(cfg.DirectoryDSN, logger.WithField("component", "gorm"))
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}
	dir, err := directory.New(db, logger)
	if err != nil {
		return err
	}

	rules := factory.DefaultRules()
	if cfg.RulesFile != "" {
		if rules, err = factory.NewRulesFactory().LoadFile(cfg.RulesFile); err != nil {
			return err
		}
		logger.WithField("file", cfg.RulesFile).Info("Rules loaded")
	}

	clock := generic.SystemClock{Location: cfg.Location}
	att := attendance.NewEngine(store, dir.Users, dir.Holidays, dir.Leaves,
		attendance.WithRules(rules.Attendance),
		attendance.WithRoster(dir.Roster),
		attendance.WithCycleCalendar(rules.Payroll.Calendar()),
		attendance.WithClock(clock),
		attendance.WithLogger(logger),
	)
	pay := payroll.NewEngine(store, dir.Users,
		payroll.WithRules(rules.Payroll),
		payroll.WithClock(clock),
		payroll.WithLogger(logger),
	)

	sched, err := api.NewScheduler(api.DefaultJobs(att, pay), store, cfg.Location, logger)
	if err != nil {
		return err
	}
	if cfg.SchedulerEnabled {
		sched.Start()
	} else {
		logger.Warn("Scheduler disabled; jobs run only on demand")
	}

	handler := api.NewHandler(att, pay, sched, logger)
	server := &http.Server{
		Addr:         cfg.Addr,
		Handler:      api.NewRouter(handler, cfg.AllowedOrigins),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.WithFields(logrus.Fields{"addr": cfg.Addr, "timezone": cfg.Location.String()}).Info("Server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serveErr:
		if err != nil {
			return err
		}
	case sig := <-quit:
		logger.WithField("signal", sig.String()).Info("Shutting down server...")
	}

	jobsDone := sched.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}

	select {
	case <-jobsDone.Done():
	case <-ctx.Done():
		logger.Warn("Jobs still running at shutdown")
	}

	logger.Info("Server stopped")
	return nil
}
