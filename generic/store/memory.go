// Package store provides Store implementations.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/warp/attendance-engine/generic"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory implements generic.TxStore and generic.JobRunStore. Records are
// copied on the way in and out so callers never share pointers with the store.
type Memory struct {
	mu    sync.Mutex
	state *memoryState
}

type dayKey struct {
	UserID generic.UserID
	Date   generic.Day
}

type memoryState struct {
	attendance map[int64]generic.Attendance
	byDay      map[dayKey]int64
	wallets    map[int64]generic.Wallet
	accruals   map[dayKey]generic.Accrual
	runs       map[string]generic.JobRun
	nextID     int64
}

func NewMemory() *Memory {
	return &Memory{state: newMemoryState()}
}

func newMemoryState() *memoryState {
	return &memoryState{
		attendance: make(map[int64]generic.Attendance),
		byDay:      make(map[dayKey]int64),
		wallets:    make(map[int64]generic.Wallet),
		accruals:   make(map[dayKey]generic.Accrual),
		runs:       make(map[string]generic.JobRun),
	}
}

func (s *memoryState) clone() *memoryState {
	c := newMemoryState()
	for k, v := range s.attendance {
		c.attendance[k] = v
	}
	for k, v := range s.byDay {
		c.byDay[k] = v
	}
	for k, v := range s.wallets {
		c.wallets[k] = v
	}
	for k, v := range s.accruals {
		c.accruals[k] = v
	}
	for k, v := range s.runs {
		c.runs[k] = v
	}
	c.nextID = s.nextID
	return c
}

// WithTx executes fn within a transaction.
// For memory store, this is simulated with a snapshot + rollback on error.
func (m *Memory) WithTx(ctx context.Context, fn func(generic.Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.state.clone()
	if err := fn(&memoryView{state: m.state}); err != nil {
		m.state = snapshot
		return err
	}
	return nil
}

func (m *Memory) view() (*memoryView, func()) {
	m.mu.Lock()
	return &memoryView{state: m.state}, m.mu.Unlock
}

func (m *Memory) CreateAttendance(ctx context.Context, rec *generic.Attendance) error {
	v, unlock := m.view()
	defer unlock()
	return v.CreateAttendance(ctx, rec)
}

func (m *Memory) UpdateAttendance(ctx context.Context, rec *generic.Attendance) error {
	v, unlock := m.view()
	defer unlock()
	return v.UpdateAttendance(ctx, rec)
}

func (m *Memory) GetAttendance(ctx context.Context, userID generic.UserID, day generic.Day) (*generic.Attendance, error) {
	v, unlock := m.view()
	defer unlock()
	return v.GetAttendance(ctx, userID, day)
}

func (m *Memory) ListAttendanceByDate(ctx context.Context, day generic.Day) ([]generic.Attendance, error) {
	v, unlock := m.view()
	defer unlock()
	return v.ListAttendanceByDate(ctx, day)
}

func (m *Memory) ListAttendanceRange(ctx context.Context, userID generic.UserID, from, to generic.Day) ([]generic.Attendance, error) {
	v, unlock := m.view()
	defer unlock()
	return v.ListAttendanceRange(ctx, userID, from, to)
}

func (m *Memory) ListAttendanceByUser(ctx context.Context, userID generic.UserID) ([]generic.Attendance, error) {
	v, unlock := m.view()
	defer unlock()
	return v.ListAttendanceByUser(ctx, userID)
}

func (m *Memory) CreateWallet(ctx context.Context, w *generic.Wallet) error {
	v, unlock := m.view()
	defer unlock()
	return v.CreateWallet(ctx, w)
}

func (m *Memory) UpdateWallet(ctx context.Context, w *generic.Wallet) error {
	v, unlock := m.view()
	defer unlock()
	return v.UpdateWallet(ctx, w)
}

func (m *Memory) GetActiveWallet(ctx context.Context, userID generic.UserID) (*generic.Wallet, error) {
	v, unlock := m.view()
	defer unlock()
	return v.GetActiveWallet(ctx, userID)
}

func (m *Memory) ListWallets(ctx context.Context) ([]generic.Wallet, error) {
	v, unlock := m.view()
	defer unlock()
	return v.ListWallets(ctx)
}

func (m *Memory) ListWalletsByUser(ctx context.Context, userID generic.UserID) ([]generic.Wallet, error) {
	v, unlock := m.view()
	defer unlock()
	return v.ListWalletsByUser(ctx, userID)
}

func (m *Memory) RecordAccrual(ctx context.Context, a *generic.Accrual) error {
	v, unlock := m.view()
	defer unlock()
	return v.RecordAccrual(ctx, a)
}

func (m *Memory) ListAccruals(ctx context.Context, userID generic.UserID, from, to generic.Day) ([]generic.Accrual, error) {
	v, unlock := m.view()
	defer unlock()
	return v.ListAccruals(ctx, userID, from, to)
}

// =============================================================================
// JOB RUNS
// =============================================================================

func (m *Memory) SaveJobRun(_ context.Context, run generic.JobRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.runs[run.ID] = run
	return nil
}

func (m *Memory) ListJobRuns(_ context.Context, job string, limit int) ([]generic.JobRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []generic.JobRun
	for _, r := range m.state.runs {
		if job == "" || r.Job == job {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// =============================================================================
// VIEW - Unlocked access, used under Memory.mu
// =============================================================================

type memoryView struct {
	state *memoryState
}

func (v *memoryView) CreateAttendance(_ context.Context, rec *generic.Attendance) error {
	k := dayKey{UserID: rec.UserID, Date: rec.Date}
	if _, exists := v.state.byDay[k]; exists {
		return &generic.DuplicateDayError{UserID: rec.UserID, Date: rec.Date}
	}
	v.state.nextID++
	rec.ID = v.state.nextID
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	v.state.attendance[rec.ID] = *rec
	v.state.byDay[k] = rec.ID
	return nil
}

func (v *memoryView) UpdateAttendance(_ context.Context, rec *generic.Attendance) error {
	old, ok := v.state.attendance[rec.ID]
	if !ok {
		return fmt.Errorf("%w: id %d", generic.ErrAttendanceNotFound, rec.ID)
	}
	if old.UserID != rec.UserID || !old.Date.Equal(rec.Date) {
		return fmt.Errorf("attendance %d: user and date are immutable", rec.ID)
	}
	v.state.attendance[rec.ID] = *rec
	return nil
}

func (v *memoryView) GetAttendance(_ context.Context, userID generic.UserID, day generic.Day) (*generic.Attendance, error) {
	id, ok := v.state.byDay[dayKey{UserID: userID, Date: day}]
	if !ok {
		return nil, nil
	}
	rec := v.state.attendance[id]
	return &rec, nil
}

func (v *memoryView) ListAttendanceByDate(_ context.Context, day generic.Day) ([]generic.Attendance, error) {
	var out []generic.Attendance
	for _, rec := range v.state.attendance {
		if rec.Date.Equal(day) {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

func (v *memoryView) ListAttendanceRange(_ context.Context, userID generic.UserID, from, to generic.Day) ([]generic.Attendance, error) {
	p := generic.Period{Start: from, End: to}
	var out []generic.Attendance
	for _, rec := range v.state.attendance {
		if rec.UserID == userID && p.Contains(rec.Date) {
			out = append(out, rec)
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func (v *memoryView) ListAttendanceByUser(_ context.Context, userID generic.UserID) ([]generic.Attendance, error) {
	var out []generic.Attendance
	for _, rec := range v.state.attendance {
		if rec.UserID == userID {
			out = append(out, rec)
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func sortNewestFirst(recs []generic.Attendance) {
	sort.Slice(recs, func(i, j int) bool { return recs[i].Date.After(recs[j].Date) })
}

func (v *memoryView) CreateWallet(_ context.Context, w *generic.Wallet) error {
	if w.IsActive() {
		if active := v.activeWallet(w.UserID); active != nil {
			return fmt.Errorf("%w: user %d", generic.ErrActiveWalletExists, w.UserID)
		}
	}
	v.state.nextID++
	w.ID = v.state.nextID
	v.state.wallets[w.ID] = copyWallet(*w)
	return nil
}

func (v *memoryView) UpdateWallet(_ context.Context, w *generic.Wallet) error {
	if _, ok := v.state.wallets[w.ID]; !ok {
		return fmt.Errorf("%w: id %d", generic.ErrWalletNotFound, w.ID)
	}
	if w.IsActive() {
		if active := v.activeWallet(w.UserID); active != nil && active.ID != w.ID {
			return fmt.Errorf("%w: user %d", generic.ErrActiveWalletExists, w.UserID)
		}
	}
	v.state.wallets[w.ID] = copyWallet(*w)
	return nil
}

func (v *memoryView) GetActiveWallet(_ context.Context, userID generic.UserID) (*generic.Wallet, error) {
	if active := v.activeWallet(userID); active != nil {
		w := copyWallet(*active)
		return &w, nil
	}
	return nil, nil
}

func (v *memoryView) activeWallet(userID generic.UserID) *generic.Wallet {
	for _, w := range v.state.wallets {
		if w.UserID == userID && w.IsActive() {
			return &w
		}
	}
	return nil
}

func (v *memoryView) ListWallets(_ context.Context) ([]generic.Wallet, error) {
	out := make([]generic.Wallet, 0, len(v.state.wallets))
	for _, w := range v.state.wallets {
		out = append(out, copyWallet(w))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UserID != out[j].UserID {
			return out[i].UserID < out[j].UserID
		}
		return out[i].CycleStart.Before(out[j].CycleStart)
	})
	return out, nil
}

func (v *memoryView) ListWalletsByUser(_ context.Context, userID generic.UserID) ([]generic.Wallet, error) {
	var out []generic.Wallet
	for _, w := range v.state.wallets {
		if w.UserID == userID {
			out = append(out, copyWallet(w))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CycleStart.After(out[j].CycleStart) })
	return out, nil
}

func (v *memoryView) RecordAccrual(_ context.Context, a *generic.Accrual) error {
	k := dayKey{UserID: a.UserID, Date: a.Date}
	if _, exists := v.state.accruals[k]; exists {
		return fmt.Errorf("%w: user %d on %s", generic.ErrAccrualAlreadyApplied, a.UserID, a.Date)
	}
	v.state.nextID++
	a.ID = v.state.nextID
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	v.state.accruals[k] = *a
	return nil
}

func (v *memoryView) ListAccruals(_ context.Context, userID generic.UserID, from, to generic.Day) ([]generic.Accrual, error) {
	p := generic.Period{Start: from, End: to}
	var out []generic.Accrual
	for k, a := range v.state.accruals {
		if k.UserID == userID && p.Contains(k.Date) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

// copyWallet detaches the CycleEnd pointer.
func copyWallet(w generic.Wallet) generic.Wallet {
	if w.CycleEnd != nil {
		end := *w.CycleEnd
		w.CycleEnd = &end
	}
	return w
}
