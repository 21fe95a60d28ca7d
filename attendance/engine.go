// Package attendance owns the daily attendance record: user login/logout,
// the scheduled jobs that finalize each day, HR overrides and the read side.
package attendance

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/warp/attendance-engine/generic"
)

// Engine decides and records attendance. All collaborators are injected.
type Engine struct {
	store    generic.TxStore
	users    generic.UserDirectory
	holidays generic.HolidayCalendar
	leaves   generic.LeaveAuthority
	roster   generic.RosterSource
	clock    generic.Clock
	rules    Rules
	cycles   generic.CycleCalendar
	logger   logrus.FieldLogger
	locks    *userLocks
}

type Option func(*Engine)

func WithRules(r Rules) Option { return func(e *Engine) { e.rules = r } }
func WithClock(c generic.Clock) Option { return func(e *Engine) { e.clock = c } }
func WithLogger(l logrus.FieldLogger) Option { return func(e *Engine) { e.logger = l } }
func WithRoster(r generic.RosterSource) Option { return func(e *Engine) { e.roster = r } }
func WithCycleCalendar(c generic.CycleCalendar) Option { return func(e *Engine) { e.cycles = c } }

func NewEngine(
	store generic.TxStore,
	users generic.UserDirectory,
	holidays generic.HolidayCalendar,
	leaves generic.LeaveAuthority,
	opts ...Option,
) *Engine {
	e := &Engine{
		store:    store,
		users:    users,
		holidays: holidays,
		leaves:   leaves,
		clock:    generic.SystemClock{},
		rules:    DefaultRules(),
		logger:   logrus.StandardLogger(),
		locks:    newUserLocks(),
	}
	if e.holidays == nil {
		e.holidays = generic.NoHolidays{}
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.WithField("component", "attendance")
	return e
}

func (e *Engine) Rules() Rules { return e.rules }

func (e *Engine) now() time.Time {
	return e.clock.Now().Truncate(time.Second)
}

// =============================================================================
// PER-USER LOCKS - Serialize read-decide-write for one user
// =============================================================================

type userLocks struct {
	mu    sync.Mutex
	locks map[generic.UserID]*sync.Mutex
}

func newUserLocks() *userLocks {
	return &userLocks{locks: make(map[generic.UserID]*sync.Mutex)}
}

// lock acquires the user's mutex and returns its release.
func (l *userLocks) lock(id generic.UserID) func() {
	l.mu.Lock()
	m, ok := l.locks[id]
	if !ok {
		m = &sync.Mutex{}
		l.locks[id] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
