package attendance

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/warp/attendance-engine/generic"
)

// StatusUpdate is one HR correction.
type StatusUpdate struct {
	EmpID  string
	Date   generic.Day
	Status string
	Remark string
}

const (
	defaultOverrideRemark = "Marked by HR"
	bulkOverrideRemark    = "Changed by HR"
)

// UpdateStatus sets the status of one employee-day, creating the record if
// needed. HR writes carry SourceManual and are never replaced by a job.
func (e *Engine) UpdateStatus(ctx context.Context, u StatusUpdate) (*generic.Attendance, error) {
	resolved, err := e.resolveOverrides(ctx, []StatusUpdate{u}, defaultOverrideRemark)
	if err != nil {
		return nil, err
	}
	recs, err := e.applyOverrides(ctx, resolved)
	if err != nil {
		return nil, err
	}
	return recs[0], nil
}

// UpdateStatusBulk applies every update or none of them.
func (e *Engine) UpdateStatusBulk(ctx context.Context, updates []StatusUpdate) error {
	if len(updates) == 0 {
		return fmt.Errorf("%w: no attendance updates provided", generic.ErrInvalidInput)
	}
	resolved, err := e.resolveOverrides(ctx, updates, bulkOverrideRemark)
	if err != nil {
		return err
	}
	_, err = e.applyOverrides(ctx, resolved)
	return err
}

type override struct {
	user   *generic.User
	date   generic.Day
	status generic.Status
	remark string
}

// resolveOverrides validates every update before anything is written.
func (e *Engine) resolveOverrides(ctx context.Context, updates []StatusUpdate, defaultRemark string) ([]override, error) {
	out := make([]override, 0, len(updates))
	for i, u := range updates {
		status, err := generic.ParseStatus(u.Status)
		if err != nil {
			return nil, fmt.Errorf("update %d: %w", i, err)
		}
		if u.Date.IsZero() {
			return nil, fmt.Errorf("update %d: %w: date is required", i, generic.ErrInvalidInput)
		}
		user, err := e.users.FindUserByEmpID(ctx, strings.TrimSpace(u.EmpID))
		if err != nil {
			return nil, fmt.Errorf("update %d: %w", i, err)
		}
		remark := strings.TrimSpace(u.Remark)
		if remark == "" {
			remark = defaultRemark
		}
		out = append(out, override{user: user, date: u.Date, status: status, remark: remark})
	}
	return out, nil
}

// applyOverrides locks every affected user in ascending id order and writes
// all records in one transaction.
func (e *Engine) applyOverrides(ctx context.Context, overrides []override) ([]*generic.Attendance, error) {
	ids := make([]generic.UserID, 0, len(overrides))
	seen := make(map[generic.UserID]bool)
	for _, o := range overrides {
		if !seen[o.user.ID] {
			seen[o.user.ID] = true
			ids = append(ids, o.user.ID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		unlock := e.locks.lock(id)
		defer unlock()
	}

	out := make([]*generic.Attendance, 0, len(overrides))
	err := e.store.WithTx(ctx, func(tx generic.Store) error {
		out = out[:0]
		for _, o := range overrides {
			rec, err := e.writeOverride(ctx, tx, o)
			if err != nil {
				return err
			}
			out = append(out, rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, o := range overrides {
		e.logger.WithFields(logrus.Fields{
			"emp_id": o.user.EmpID,
			"date":   o.date.String(),
			"status": o.status,
		}).Info("Attendance overridden by HR")
	}
	return out, nil
}

func (e *Engine) writeOverride(ctx context.Context, tx generic.Store, o override) (*generic.Attendance, error) {
	now := e.clock.Now().Truncate(time.Second)
	rec, err := tx.GetAttendance(ctx, o.user.ID, o.date)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		rec = &generic.Attendance{
			UserID:    o.user.ID,
			EmpID:     o.user.EmpID,
			Date:      o.date,
			Status:    o.status,
			Source:    generic.SourceManual,
			Remarks:   o.remark,
			CreatedAt: now,
		}
		if err := tx.CreateAttendance(ctx, rec); err != nil {
			return nil, err
		}
		return rec, nil
	}

	rec.Status = o.status
	rec.Source = generic.SourceManual
	rec.Remarks = o.remark
	rec.UpdatedAt = &now
	if err := tx.UpdateAttendance(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}
