/*
store.go - Persistence interfaces for configs, daily records and goals

PURPOSE:
  Defines the interface between the budget engine and the database.
  Different implementations can use SQLite or in-memory storage.

KEY INTERFACES:
  Store:            Configs, daily records, savings goals
  TxStore:          Store + atomic multi-write boundary
  RowStore:         Raw row access for diagnostics and repair
  MaintenanceStore: TxStore + RowStore + atomic row boundary

UNIQUENESS:
  CreateRecord must reject a second record for the same (user, date) with
  ErrDuplicateDay. Callers doing get-or-create treat that as a lost race
  and re-fetch.

NOT FOUND CONVENTION:
  Single-item getters return (nil, nil) when nothing matches.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: SQLite (mattn/go-sqlite3 or modernc.org/sqlite)
  - budget/store/memory.go: In-memory for tests and development

SEE ALSO:
  - row.go: Row / ConfigRow persisted forms
  - tracker/records.go: get-or-create on top of Store
*/
package budget

import "context"

// =============================================================================
// STORE - Configs, records, goals
// =============================================================================

type Store interface {
	// GetConfig returns the user's config, or nil if none exists.
	GetConfig(ctx context.Context, user UserID) (*Config, error)

	// SaveConfig inserts or replaces the user's config.
	SaveConfig(ctx context.Context, cfg Config) error

	// GetRecord returns the record for (user, date), or nil.
	GetRecord(ctx context.Context, user UserID, date Date) (*DailyRecord, error)

	// CreateRecord inserts a new record. Returns ErrDuplicateDay when a
	// record for the same (user, date) exists.
	CreateRecord(ctx context.Context, rec DailyRecord) error

	// UpdateRecord replaces an existing record by ID.
	// Returns ErrRecordNotFound when the ID does not exist.
	UpdateRecord(ctx context.Context, rec DailyRecord) error

	// ListRecords returns the user's records in [from, to], ascending by date.
	// A zero bound is open.
	ListRecords(ctx context.Context, user UserID, from, to Date) ([]DailyRecord, error)

	// CountRecords returns how many records the user has.
	CountRecords(ctx context.Context, user UserID) (int, error)

	// SaveGoal inserts or replaces a savings goal.
	SaveGoal(ctx context.Context, goal SavingsGoal) error

	// GetGoal returns a goal, or nil.
	GetGoal(ctx context.Context, user UserID, id GoalID) (*SavingsGoal, error)

	// ListGoals returns the user's goals, newest first.
	ListGoals(ctx context.Context, user UserID) ([]SavingsGoal, error)
}

// =============================================================================
// TRANSACTIONAL STORE - For atomic operations across multiple writes
// =============================================================================

// TxStore wraps Store with transaction support.
type TxStore interface {
	Store

	// WithTx executes fn within a transaction.
	// If fn returns error, the transaction is rolled back.
	WithTx(ctx context.Context, fn func(Store) error) error
}

// =============================================================================
// MAINTENANCE - Raw row access for diagnostics and repair
// =============================================================================

type RowStore interface {
	// ListUsers returns every user with a config or at least one record.
	ListUsers(ctx context.Context) ([]UserID, error)

	// ScanRows returns raw rows, all users when user is nil. Ordered by
	// date text, then creation time, then ID.
	ScanRows(ctx context.Context, user *UserID) ([]Row, error)

	// UpdateRow overwrites a row by ID.
	UpdateRow(ctx context.Context, row Row) error

	// DeleteRow removes a row by ID.
	DeleteRow(ctx context.Context, id RecordID) error

	// ScanConfigRows returns every raw config row.
	ScanConfigRows(ctx context.Context) ([]ConfigRow, error)

	// UpdateConfigRow overwrites a config row by user.
	UpdateConfigRow(ctx context.Context, row ConfigRow) error
}

type MaintenanceStore interface {
	TxStore
	RowStore

	// WithRowTx executes fn within a transaction over raw rows.
	WithRowTx(ctx context.Context, fn func(RowStore) error) error
}

// DayIndexer is implemented by stores whose (user, date) uniqueness is a
// database index that legacy duplicates can keep from being created.
// Repair calls it after eliminating duplicates.
type DayIndexer interface {
	EnsureDayIndex(ctx context.Context) error
}
