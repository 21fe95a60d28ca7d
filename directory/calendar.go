package directory

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/warp/attendance-engine/generic"
	"gorm.io/gorm"
)

// =============================================================================
// HOLIDAYS (generic.HolidayCalendar)
// =============================================================================

type GormHolidayRepository struct {
	db     *gorm.DB
	logger logrus.FieldLogger
}

func NewGormHolidayRepository(db *gorm.DB, log logrus.FieldLogger) (*GormHolidayRepository, error) {
	if err := db.AutoMigrate(&Holiday{}); err != nil {
		log.WithError(err).Error("Failed to auto-migrate holidays table")
		return nil, err
	}
	return &GormHolidayRepository{db: db, logger: log.WithField("repo", "holidays")}, nil
}

func (r *GormHolidayRepository) Create(ctx context.Context, h *Holiday) error {
	if _, err := generic.ParseDay(h.Date); err != nil {
		return err
	}
	return r.db.WithContext(ctx).Create(h).Error
}

func (r *GormHolidayRepository) IsHoliday(ctx context.Context, day generic.Day) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&Holiday{}).
		Where("date = ?", day.String()).
		Count(&count).Error
	if err != nil {
		r.logger.WithError(err).WithField("date", day.String()).Error("Failed to check holiday")
	}
	return count > 0, err
}

func (r *GormHolidayRepository) ListYear(ctx context.Context, year int) ([]Holiday, error) {
	span := generic.YearRange(year)
	var days []Holiday
	err := r.db.WithContext(ctx).
		Where("date >= ? AND date <= ?", span.Start.String(), span.End.String()).
		Order("date ASC").
		Find(&days).Error
	return days, err
}

// =============================================================================
// LEAVES (generic.LeaveAuthority)
// =============================================================================

type GormLeaveRepository struct {
	db     *gorm.DB
	logger logrus.FieldLogger
}

func NewGormLeaveRepository(db *gorm.DB, log logrus.FieldLogger) (*GormLeaveRepository, error) {
	if err := db.AutoMigrate(&LeaveRequest{}); err != nil {
		log.WithError(err).Error("Failed to auto-migrate leave_requests table")
		return nil, err
	}
	return &GormLeaveRepository{db: db, logger: log.WithField("repo", "leaves")}, nil
}

func (r *GormLeaveRepository) Create(ctx context.Context, l *LeaveRequest) error {
	l.Status = strings.ToLower(strings.TrimSpace(l.Status))
	if l.Status == "" {
		l.Status = LeavePending
	}
	start, err := generic.ParseDay(l.StartDate)
	if err != nil {
		return err
	}
	end, err := generic.ParseDay(l.EndDate)
	if err != nil {
		return err
	}
	if _, err := generic.NewPeriod(start, end); err != nil {
		return err
	}
	return r.db.WithContext(ctx).Create(l).Error
}

func (r *GormLeaveRepository) HasApprovedLeave(ctx context.Context, userID generic.UserID, day generic.Day) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&LeaveRequest{}).
		Where("user_id = ? AND status = ? AND start_date <= ? AND end_date >= ?",
			uint(userID), LeaveApproved, day.String(), day.String()).
		Count(&count).Error
	if err != nil {
		r.logger.WithError(err).WithFields(logrus.Fields{
			"user_id": userID,
			"date":    day.String(),
		}).Error("Failed to check approved leave")
	}
	return count > 0, err
}

func (r *GormLeaveRepository) ApprovedLeaves(ctx context.Context, userID generic.UserID, from, to generic.Day) ([]generic.LeaveRange, error) {
	var rows []LeaveRequest
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND status = ? AND start_date <= ? AND end_date >= ?",
			uint(userID), LeaveApproved, to.String(), from.String()).
		Order("start_date ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]generic.LeaveRange, 0, len(rows))
	for _, l := range rows {
		start, err := generic.ParseDay(l.StartDate)
		if err != nil {
			continue
		}
		end, err := generic.ParseDay(l.EndDate)
		if err != nil {
			continue
		}
		out = append(out, generic.LeaveRange{UserID: userID, Start: start, End: end})
	}
	return out, nil
}

// =============================================================================
// ROSTER (generic.RosterSource)
// =============================================================================

type GormRosterRepository struct {
	db     *gorm.DB
	logger logrus.FieldLogger
}

func NewGormRosterRepository(db *gorm.DB, log logrus.FieldLogger) (*GormRosterRepository, error) {
	if err := db.AutoMigrate(&RosterEntry{}); err != nil {
		log.WithError(err).Error("Failed to auto-migrate roster_entries table")
		return nil, err
	}
	return &GormRosterRepository{db: db, logger: log.WithField("repo", "roster")}, nil
}

// BulkCreate stores one uploaded roster. Parsing the upload is not done here.
func (r *GormRosterRepository) BulkCreate(ctx context.Context, rows []RosterEntry) error {
	if len(rows) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&rows).Error
}

func (r *GormRosterRepository) RosterFor(ctx context.Context, day generic.Day) ([]generic.RosterEntry, error) {
	var rows []RosterEntry
	if err := r.db.WithContext(ctx).Where("date = ?", day.String()).Order("id ASC").Find(&rows).Error; err != nil {
		r.logger.WithError(err).WithField("date", day.String()).Error("Failed to load roster")
		return nil, err
	}

	out := make([]generic.RosterEntry, 0, len(rows))
	for _, e := range rows {
		out = append(out, generic.RosterEntry{
			EmpID:  strings.TrimSpace(e.EmpID),
			Name:   e.Name,
			Date:   day,
			Domain: e.Domain,
			Remark: e.Remark,
			Status: e.Status,
		})
	}
	return out, nil
}
