// Package store provides in-memory budget.Store implementations.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/warp/budget-engine/budget"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory keeps rows in their persisted text form, exactly like the SQLite
// store, so diagnostics behave the same against both.
type Memory struct {
	mu   sync.RWMutex
	data *memoryData
}

type memoryData struct {
	rows    []budget.Row
	configs map[budget.UserID]budget.ConfigRow
	goals   map[budget.GoalID]budget.SavingsGoal
	now     func() time.Time
}

func NewMemory() *Memory {
	return &Memory{data: &memoryData{
		configs: make(map[budget.UserID]budget.ConfigRow),
		goals:   make(map[budget.GoalID]budget.SavingsGoal),
		now:     time.Now,
	}}
}

var (
	_ budget.MaintenanceStore = (*Memory)(nil)
	_ budget.Store            = (*txMemoryView)(nil)
	_ budget.RowStore         = (*txMemoryView)(nil)
)

// ImportRows inserts rows verbatim, skipping the one-record-per-day check.
// Used to load legacy data, which may contain duplicates and corrupt values.
func (m *Memory) ImportRows(rows ...budget.Row) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, row := range rows {
		if row.ID == "" {
			row.ID = budget.RecordID(uuid.NewString())
		}
		if row.CreatedAt.IsZero() {
			row.CreatedAt = m.data.now()
		}
		m.data.rows = append(m.data.rows, row)
	}
}

// ImportConfigRows inserts config rows verbatim.
func (m *Memory) ImportConfigRows(rows ...budget.ConfigRow) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, row := range rows {
		m.data.configs[row.UserID] = row
	}
}

// =============================================================================
// LOCKED ACCESSORS
// =============================================================================

func (m *Memory) GetConfig(_ context.Context, user budget.UserID) (*budget.Config, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data.getConfig(user), nil
}

func (m *Memory) SaveConfig(_ context.Context, cfg budget.Config) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data.saveConfig(cfg)
	return nil
}

func (m *Memory) GetRecord(_ context.Context, user budget.UserID, date budget.Date) (*budget.DailyRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data.getRecord(user, date)
}

func (m *Memory) CreateRecord(_ context.Context, rec budget.DailyRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data.createRecord(rec)
}

func (m *Memory) UpdateRecord(_ context.Context, rec budget.DailyRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data.updateRecord(rec)
}

func (m *Memory) ListRecords(_ context.Context, user budget.UserID, from, to budget.Date) ([]budget.DailyRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data.listRecords(user, from, to), nil
}

func (m *Memory) CountRecords(_ context.Context, user budget.UserID) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data.countRecords(user), nil
}

func (m *Memory) SaveGoal(_ context.Context, goal budget.SavingsGoal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data.saveGoal(goal)
	return nil
}

func (m *Memory) GetGoal(_ context.Context, user budget.UserID, id budget.GoalID) (*budget.SavingsGoal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data.getGoal(user, id), nil
}

func (m *Memory) ListGoals(_ context.Context, user budget.UserID) ([]budget.SavingsGoal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data.listGoals(user), nil
}

func (m *Memory) ListUsers(_ context.Context) ([]budget.UserID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data.listUsers(), nil
}

func (m *Memory) ScanRows(_ context.Context, user *budget.UserID) ([]budget.Row, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data.scanRows(user), nil
}

func (m *Memory) UpdateRow(_ context.Context, row budget.Row) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data.updateRow(row)
}

func (m *Memory) DeleteRow(_ context.Context, id budget.RecordID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data.deleteRow(id)
	return nil
}

func (m *Memory) ScanConfigRows(_ context.Context) ([]budget.ConfigRow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data.scanConfigRows(), nil
}

func (m *Memory) UpdateConfigRow(_ context.Context, row budget.ConfigRow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data.updateConfigRow(row)
}

// =============================================================================
// TRANSACTIONS - Snapshot + rollback
// =============================================================================

// WithTx executes fn within a transaction.
// For memory store, this is simulated with a snapshot + rollback on error.
func (m *Memory) WithTx(_ context.Context, fn func(budget.Store) error) error {
	return m.inTx(func(view *txMemoryView) error { return fn(view) })
}

// WithRowTx is WithTx over raw rows.
func (m *Memory) WithRowTx(_ context.Context, fn func(budget.RowStore) error) error {
	return m.inTx(func(view *txMemoryView) error { return fn(view) })
}

func (m *Memory) inTx(fn func(*txMemoryView) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.data.snapshot()
	if err := fn(&txMemoryView{data: m.data}); err != nil {
		m.data = snapshot
		return err
	}
	return nil
}

func (d *memoryData) snapshot() *memoryData {
	cp := &memoryData{
		rows:    append([]budget.Row(nil), d.rows...),
		configs: make(map[budget.UserID]budget.ConfigRow, len(d.configs)),
		goals:   make(map[budget.GoalID]budget.SavingsGoal, len(d.goals)),
		now:     d.now,
	}
	for k, v := range d.configs {
		cp.configs[k] = v
	}
	for k, v := range d.goals {
		cp.goals[k] = v
	}
	return cp
}

// txMemoryView runs against the data while the parent holds the write lock.
// On rollback the parent swaps in the snapshot, so the view must not outlive fn.
type txMemoryView struct {
	data *memoryData
}

func (v *txMemoryView) GetConfig(_ context.Context, user budget.UserID) (*budget.Config, error) {
	return v.data.getConfig(user), nil
}

func (v *txMemoryView) SaveConfig(_ context.Context, cfg budget.Config) error {
	v.data.saveConfig(cfg)
	return nil
}

func (v *txMemoryView) GetRecord(_ context.Context, user budget.UserID, date budget.Date) (*budget.DailyRecord, error) {
	return v.data.getRecord(user, date)
}

func (v *txMemoryView) CreateRecord(_ context.Context, rec budget.DailyRecord) error {
	return v.data.createRecord(rec)
}

func (v *txMemoryView) UpdateRecord(_ context.Context, rec budget.DailyRecord) error {
	return v.data.updateRecord(rec)
}

func (v *txMemoryView) ListRecords(_ context.Context, user budget.UserID, from, to budget.Date) ([]budget.DailyRecord, error) {
	return v.data.listRecords(user, from, to), nil
}

func (v *txMemoryView) CountRecords(_ context.Context, user budget.UserID) (int, error) {
	return v.data.countRecords(user), nil
}

func (v *txMemoryView) SaveGoal(_ context.Context, goal budget.SavingsGoal) error {
	v.data.saveGoal(goal)
	return nil
}

func (v *txMemoryView) GetGoal(_ context.Context, user budget.UserID, id budget.GoalID) (*budget.SavingsGoal, error) {
	return v.data.getGoal(user, id), nil
}

func (v *txMemoryView) ListGoals(_ context.Context, user budget.UserID) ([]budget.SavingsGoal, error) {
	return v.data.listGoals(user), nil
}

func (v *txMemoryView) ListUsers(_ context.Context) ([]budget.UserID, error) {
	return v.data.listUsers(), nil
}

func (v *txMemoryView) ScanRows(_ context.Context, user *budget.UserID) ([]budget.Row, error) {
	return v.data.scanRows(user), nil
}

func (v *txMemoryView) UpdateRow(_ context.Context, row budget.Row) error {
	return v.data.updateRow(row)
}

func (v *txMemoryView) DeleteRow(_ context.Context, id budget.RecordID) error {
	v.data.deleteRow(id)
	return nil
}

func (v *txMemoryView) ScanConfigRows(_ context.Context) ([]budget.ConfigRow, error) {
	return v.data.scanConfigRows(), nil
}

func (v *txMemoryView) UpdateConfigRow(_ context.Context, row budget.ConfigRow) error {
	return v.data.updateConfigRow(row)
}

// =============================================================================
// UNLOCKED OPERATIONS - Caller holds the lock
// =============================================================================

func (d *memoryData) getConfig(user budget.UserID) *budget.Config {
	row, ok := d.configs[user]
	if !ok {
		return nil
	}
	cfg := budget.DecodeConfigRow(row)
	return &cfg
}

func (d *memoryData) saveConfig(cfg budget.Config) {
	now := d.now()
	if existing, ok := d.configs[cfg.UserID]; ok {
		cfg.CreatedAt = existing.CreatedAt
	} else if cfg.CreatedAt.IsZero() {
		cfg.CreatedAt = now
	}
	cfg.UpdatedAt = now
	d.configs[cfg.UserID] = budget.EncodeConfigRow(cfg)
}

// getRecord returns the oldest matching row when legacy duplicates exist.
func (d *memoryData) getRecord(user budget.UserID, date budget.Date) (*budget.DailyRecord, error) {
	want := date.String()
	var found *budget.Row
	for i := range d.rows {
		row := &d.rows[i]
		if row.UserID != user || row.Date != want {
			continue
		}
		if found == nil || rowLess(*row, *found) {
			found = row
		}
	}
	if found == nil {
		return nil, nil
	}
	rec, err := budget.DecodeRow(*found)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (d *memoryData) createRecord(rec budget.DailyRecord) error {
	want := rec.Date.String()
	for _, row := range d.rows {
		if row.UserID == rec.UserID && row.Date == want {
			return budget.ErrDuplicateDay
		}
	}
	if rec.ID == "" {
		rec.ID = budget.RecordID(uuid.NewString())
	}
	now := d.now()
	rec.CreatedAt = now
	rec.UpdatedAt = now
	d.rows = append(d.rows, budget.EncodeRow(rec))
	return nil
}

func (d *memoryData) updateRecord(rec budget.DailyRecord) error {
	for i, row := range d.rows {
		if row.ID != rec.ID {
			continue
		}
		rec.CreatedAt = row.CreatedAt
		rec.UpdatedAt = d.now()
		d.rows[i] = budget.EncodeRow(rec)
		return nil
	}
	return budget.ErrRecordNotFound
}

// listRecords skips rows whose date cannot be decoded; diagnostics reports them.
func (d *memoryData) listRecords(user budget.UserID, from, to budget.Date) []budget.DailyRecord {
	var result []budget.DailyRecord
	for _, row := range d.sortedRows(&user) {
		rec, err := budget.DecodeRow(row)
		if err != nil {
			continue
		}
		if !from.IsZero() && rec.Date.Before(from) {
			continue
		}
		if !to.IsZero() && rec.Date.After(to) {
			continue
		}
		result = append(result, rec)
	}
	return result
}

func (d *memoryData) countRecords(user budget.UserID) int {
	n := 0
	for _, row := range d.rows {
		if row.UserID == user {
			n++
		}
	}
	return n
}

func (d *memoryData) saveGoal(goal budget.SavingsGoal) {
	if goal.ID == "" {
		goal.ID = budget.GoalID(uuid.NewString())
	}
	d.goals[goal.ID] = goal
}

func (d *memoryData) getGoal(user budget.UserID, id budget.GoalID) *budget.SavingsGoal {
	goal, ok := d.goals[id]
	if !ok || goal.UserID != user {
		return nil
	}
	return &goal
}

func (d *memoryData) listGoals(user budget.UserID) []budget.SavingsGoal {
	var result []budget.SavingsGoal
	for _, g := range d.goals {
		if g.UserID == user {
			result = append(result, g)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedDate.Equal(result[j].CreatedDate) {
			return result[i].CreatedDate.After(result[j].CreatedDate)
		}
		return result[i].ID < result[j].ID
	})
	return result
}

func (d *memoryData) listUsers() []budget.UserID {
	seen := make(map[budget.UserID]bool)
	for user := range d.configs {
		seen[user] = true
	}
	for _, row := range d.rows {
		seen[row.UserID] = true
	}
	users := make([]budget.UserID, 0, len(seen))
	for user := range seen {
		users = append(users, user)
	}
	sort.Slice(users, func(i, j int) bool { return users[i] < users[j] })
	return users
}

func (d *memoryData) scanRows(user *budget.UserID) []budget.Row {
	return d.sortedRows(user)
}

func (d *memoryData) sortedRows(user *budget.UserID) []budget.Row {
	var result []budget.Row
	for _, row := range d.rows {
		if user != nil && row.UserID != *user {
			continue
		}
		result = append(result, row)
	}
	sort.SliceStable(result, func(i, j int) bool { return rowLess(result[i], result[j]) })
	return result
}

func rowLess(a, b budget.Row) bool {
	if a.Date != b.Date {
		return a.Date < b.Date
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}

func (d *memoryData) updateRow(row budget.Row) error {
	for i := range d.rows {
		if d.rows[i].ID == row.ID {
			row.UpdatedAt = d.now()
			d.rows[i] = row
			return nil
		}
	}
	return budget.ErrRecordNotFound
}

func (d *memoryData) deleteRow(id budget.RecordID) {
	for i := range d.rows {
		if d.rows[i].ID == id {
			d.rows = append(d.rows[:i], d.rows[i+1:]...)
			return
		}
	}
}

func (d *memoryData) scanConfigRows() []budget.ConfigRow {
	result := make([]budget.ConfigRow, 0, len(d.configs))
	for _, row := range d.configs {
		result = append(result, row)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].UserID < result[j].UserID })
	return result
}

func (d *memoryData) updateConfigRow(row budget.ConfigRow) error {
	if _, ok := d.configs[row.UserID]; !ok {
		return budget.ErrConfigNotFound
	}
	row.UpdatedAt = d.now()
	d.configs[row.UserID] = row
	return nil
}
