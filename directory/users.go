package directory

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/warp/attendance-engine/generic"
	"gorm.io/gorm"
)

// GormUserRepository implements generic.UserDirectory.
type GormUserRepository struct {
	db     *gorm.DB
	logger logrus.FieldLogger
}

func NewGormUserRepository(db *gorm.DB, log logrus.FieldLogger) (*GormUserRepository, error) {
	if err := db.AutoMigrate(&User{}); err != nil {
		log.WithError(err).Error("Failed to auto-migrate users table")
		return nil, err
	}
	return &GormUserRepository{db: db, logger: log.WithField("repo", "users")}, nil
}

func (r *GormUserRepository) Create(ctx context.Context, u *User) error {
	r.logger.WithFields(logrus.Fields{
		"emp_id": u.EmpID,
		"email":  u.Email,
	}).Info("Creating user")

	if u.EmpID == "" || u.Email == "" {
		return fmt.Errorf("%w: emp_id and email are required", generic.ErrInvalidInput)
	}
	if err := r.db.WithContext(ctx).Create(u).Error; err != nil {
		r.logger.WithError(err).Error("Failed to create user")
		return err
	}
	return nil
}

// ListUsers returns active users ordered by id.
func (r *GormUserRepository) ListUsers(ctx context.Context) ([]generic.User, error) {
	var rows []User
	if err := r.db.WithContext(ctx).Where("active = ?", true).Order("id ASC").Find(&rows).Error; err != nil {
		r.logger.WithError(err).Error("Failed to list users")
		return nil, err
	}
	out := make([]generic.User, 0, len(rows))
	for _, u := range rows {
		out = append(out, u.toGeneric())
	}
	return out, nil
}

func (r *GormUserRepository) FindUserByID(ctx context.Context, id generic.UserID) (*generic.User, error) {
	var u User
	err := r.db.WithContext(ctx).First(&u, uint(id)).Error
	return r.found(u, err, fmt.Sprintf("id %d", id))
}

func (r *GormUserRepository) FindUserByEmpID(ctx context.Context, empID string) (*generic.User, error) {
	var u User
	err := r.db.WithContext(ctx).Where("emp_id = ?", empID).First(&u).Error
	return r.found(u, err, "emp_id "+empID)
}

func (r *GormUserRepository) found(u User, err error, key string) (*generic.User, error) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", generic.ErrUserNotFound, key)
	}
	if err != nil {
		r.logger.WithError(err).WithField("key", key).Error("Failed to find user")
		return nil, err
	}
	g := u.toGeneric()
	return &g, nil
}

func (u User) toGeneric() generic.User {
	return generic.User{
		ID:         generic.UserID(u.ID),
		EmpID:      u.EmpID,
		FullName:   u.FullName,
		Email:      u.Email,
		Role:       u.Role,
		Department: u.Department,
		Domain:     u.Domain,
		BaseSalary: u.BaseSalary,
	}
}
