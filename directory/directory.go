package directory

import (
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// busyTimeoutMillis lets directory reads wait out the core store's writers
// when both share one database file.
const busyTimeoutMillis = 5000

// Open connects gorm to a SQLite DSN. An in-memory DSN is pinned to a single
// connection so every repository sees the same database. A DSN without query
// parameters gets a busy timeout.
func Open(dsn string, log logrus.FieldLogger) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(WithBusyTimeout(dsn)), &gorm.Config{
		Logger: logger.New(
			log,
			logger.Config{
				SlowThreshold:             200 * time.Millisecond,
				LogLevel:                  logger.Warn,
				IgnoreRecordNotFoundError: true,
			},
		),
	})
	if err != nil {
		return nil, fmt.Errorf("open directory database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("directory connection pool: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	return db, nil
}

// WithBusyTimeout appends _busy_timeout unless dsn already carries parameters.
func WithBusyTimeout(dsn string) string {
	if strings.Contains(dsn, "?") {
		return dsn
	}
	return fmt.Sprintf("%s?_busy_timeout=%d", dsn, busyTimeoutMillis)
}

// Directory bundles the repositories behind one gorm handle.
type Directory struct {
	Users    *GormUserRepository
	Holidays *GormHolidayRepository
	Leaves   *GormLeaveRepository
	Roster   *GormRosterRepository
}

// New migrates every directory table and returns the repositories.
func New(db *gorm.DB, log logrus.FieldLogger) (*Directory, error) {
	users, err := NewGormUserRepository(db, log)
	if err != nil {
		return nil, err
	}
	holidays, err := NewGormHolidayRepository(db, log)
	if err != nil {
		return nil, err
	}
	leaves, err := NewGormLeaveRepository(db, log)
	if err != nil {
		return nil, err
	}
	roster, err := NewGormRosterRepository(db, log)
	if err != nil {
		return nil, err
	}
	return &Directory{Users: users, Holidays: holidays, Leaves: leaves, Roster: roster}, nil
}
