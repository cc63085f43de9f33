/*
Package sqlite provides a SQLite-backed implementation of the budget storage interfaces.

PURPOSE:
  Implements budget.MaintenanceStore (configs, daily records, savings goals
  and raw row access for repair) on SQLite. Two drivers are supported:
  mattn/go-sqlite3 ("sqlite3", cgo) and modernc.org/sqlite ("sqlite", pure Go).

KEY TABLES:
  financial_configs: One row per user, defaults and registry start date
  daily_records:     One row per (user, day)
  savings_goals:     Named savings targets

TEXT MONEY:
  Monetary columns are TEXT holding a fixed two-decimal string ("12.50").
  Legacy databases may hold anything there ("NaN", "", "-3"); readers
  normalize, and repair.Diagnose reports the raw values.

INDEXES:
  - idx_daily_records_user_date: range scans per user (hot path)
  - idx_unique_user_day:         enforces one record per (user, date)

  The unique index cannot be created on a database that already holds
  duplicate days. New() then keeps going without it (HasDayIndex reports
  false), CreateRecord still refuses duplicates through a guarded insert,
  and repair re-creates the index after deduplicating.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. Reads inside WithTx go through the
  same *sql.Tx as writes.

USAGE:
  store, err := sqlite.New("./data/budget.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  t := tracker.New(store)

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - budget/store.go: Interface definitions
  - budget/row.go: Row encoding
  - budget/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"

	"github.com/warp/budget-engine/budget"
)

// Driver names registered by the two SQLite libraries.
const (
	DriverCGO  = "sqlite3" // github.com/mattn/go-sqlite3
	DriverPure = "sqlite"  // modernc.org/sqlite
)

// timeLayout sorts lexically in the same order as chronologically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Store implements budget.MaintenanceStore using SQLite.
type Store struct {
	db       *sql.DB
	mu       sync.RWMutex
	dayIndex bool
}

var (
	_ budget.MaintenanceStore = (*Store)(nil)
	_ budget.DayIndexer       = (*Store)(nil)
)

// New creates a new SQLite store with the given database path using the
// cgo driver. Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	return Open(DriverCGO, dbPath)
}

// Open creates a store with an explicit driver (DriverCGO or DriverPure).
func Open(driver, dbPath string) (*Store, error) {
	dsn, err := dsnFor(driver, dbPath)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps ":memory:" databases shared and matches the
	// single-writer model enforced by mu.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

func dsnFor(driver, dbPath string) (string, error) {
	switch driver {
	case DriverCGO:
		return dbPath + "?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000", nil
	case DriverPure:
		return dbPath + "?_pragma=journal_mode(wal)&_pragma=foreign_keys(on)&_pragma=busy_timeout(5000)", nil
	default:
		return "", fmt.Errorf("unknown sqlite driver %q", driver)
	}
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// HasDayIndex reports whether the (user, date) unique index is in place.
func (s *Store) HasDayIndex() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dayIndex
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Per-user configuration
	CREATE TABLE IF NOT EXISTS financial_configs (
		user_id TEXT PRIMARY KEY,
		daily_budget TEXT NOT NULL DEFAULT '0.00',
		default_food TEXT NOT NULL DEFAULT '0.00',
		default_products TEXT NOT NULL DEFAULT '0.00',
		default_savings TEXT NOT NULL DEFAULT '0.00',
		default_leftover TEXT NOT NULL DEFAULT '0.00',
		default_food_fixed INTEGER NOT NULL DEFAULT 0,
		default_products_fixed INTEGER NOT NULL DEFAULT 0,
		default_savings_fixed INTEGER NOT NULL DEFAULT 0,
		default_leftover_fixed INTEGER NOT NULL DEFAULT 0,
		registry_start_date TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- One row per user per calendar day
	CREATE TABLE IF NOT EXISTS daily_records (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		date TEXT NOT NULL,
		daily_budget TEXT NOT NULL DEFAULT '0.00',
		food TEXT NOT NULL DEFAULT '0.00',
		products TEXT NOT NULL DEFAULT '0.00',
		savings TEXT NOT NULL DEFAULT '0.00',
		leftover TEXT NOT NULL DEFAULT '0.00',
		food_fixed INTEGER NOT NULL DEFAULT 0,
		products_fixed INTEGER NOT NULL DEFAULT 0,
		savings_fixed INTEGER NOT NULL DEFAULT 0,
		leftover_fixed INTEGER NOT NULL DEFAULT 0,
		completed INTEGER NOT NULL DEFAULT 0,
		comment TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Range scans per user (hot path)
	CREATE INDEX IF NOT EXISTS idx_daily_records_user_date
		ON daily_records(user_id, date);

	-- Savings goals
	CREATE TABLE IF NOT EXISTS savings_goals (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		name TEXT NOT NULL,
		target_amount TEXT NOT NULL,
		current_amount TEXT NOT NULL DEFAULT '0.00',
		completed INTEGER NOT NULL DEFAULT 0,
		created_date TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_savings_goals_user
		ON savings_goals(user_id);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return err
	}

	// Legacy duplicates make this fail; repair creates it later.
	if err := s.createDayIndex(context.Background()); err != nil && !isUniqueConstraintError(err) {
		return err
	}
	return nil
}

func (s *Store) createDayIndex(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx,
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_unique_user_day ON daily_records(user_id, date)")
	if err != nil {
		return err
	}
	s.dayIndex = true
	return nil
}

// EnsureDayIndex creates the (user, date) unique index if it is missing.
func (s *Store) EnsureDayIndex(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.createDayIndex(ctx); err != nil {
		if isUniqueConstraintError(err) {
			return fmt.Errorf("%w: duplicate days still present", budget.ErrDuplicateDay)
		}
		return fmt.Errorf("failed to create day index: %w", err)
	}
	return nil
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// =============================================================================
// CONFIG STORE
// =============================================================================

const configColumns = `user_id, daily_budget, default_food, default_products, default_savings,
	default_leftover, default_food_fixed, default_products_fixed, default_savings_fixed,
	default_leftover_fixed, registry_start_date, created_at, updated_at`

// GetConfig retrieves a user's config, or nil.
func (s *Store) GetConfig(ctx context.Context, user budget.UserID) (*budget.Config, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getConfig(ctx, s.db, user)
}

// SaveConfig inserts or replaces a user's config.
func (s *Store) SaveConfig(ctx context.Context, cfg budget.Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return saveConfigRow(ctx, s.db, budget.EncodeConfigRow(cfg))
}

func getConfig(ctx context.Context, q querier, user budget.UserID) (*budget.Config, error) {
	row := q.QueryRowContext(ctx,
		"SELECT "+configColumns+" FROM financial_configs WHERE user_id = ?", user)
	raw, err := scanConfigRow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	cfg := budget.DecodeConfigRow(raw)
	return &cfg, nil
}

func saveConfigRow(ctx context.Context, q querier, row budget.ConfigRow) error {
	now := formatTime(time.Now())
	query := `
		INSERT INTO financial_configs (` + configColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			daily_budget = excluded.daily_budget,
			default_food = excluded.default_food,
			default_products = excluded.default_products,
			default_savings = excluded.default_savings,
			default_leftover = excluded.default_leftover,
			default_food_fixed = excluded.default_food_fixed,
			default_products_fixed = excluded.default_products_fixed,
			default_savings_fixed = excluded.default_savings_fixed,
			default_leftover_fixed = excluded.default_leftover_fixed,
			registry_start_date = excluded.registry_start_date,
			updated_at = excluded.updated_at
	`
	_, err := q.ExecContext(ctx, query,
		row.UserID,
		row.DailyBudget, row.DefaultFood, row.DefaultProducts, row.DefaultSavings, row.DefaultLeftover,
		row.DefaultFoodFixed, row.DefaultProductsFixed, row.DefaultSavingsFixed, row.DefaultLeftoverFixed,
		nullString(row.RegistryStartDate),
		now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	return nil
}

func scanConfigRow(sc interface{ Scan(...any) error }) (budget.ConfigRow, error) {
	var (
		row                                       budget.ConfigRow
		dailyBudget, food, products, savings, lft sql.NullString
		startDate                                 sql.NullString
		createdAt, updatedAt                      sql.NullString
	)
	err := sc.Scan(
		&row.UserID, &dailyBudget, &food, &products, &savings, &lft,
		&row.DefaultFoodFixed, &row.DefaultProductsFixed, &row.DefaultSavingsFixed, &row.DefaultLeftoverFixed,
		&startDate, &createdAt, &updatedAt,
	)
	if err != nil {
		return row, err
	}
	row.DailyBudget = dailyBudget.String
	row.DefaultFood = food.String
	row.DefaultProducts = products.String
	row.DefaultSavings = savings.String
	row.DefaultLeftover = lft.String
	row.RegistryStartDate = startDate.String
	row.CreatedAt = parseTime(createdAt.String)
	row.UpdatedAt = parseTime(updatedAt.String)
	return row, nil
}

// =============================================================================
// RECORD STORE
// =============================================================================

const recordColumns = `id, user_id, date, daily_budget, food, products, savings, leftover,
	food_fixed, products_fixed, savings_fixed, leftover_fixed, completed, comment,
	created_at, updated_at`

// GetRecord retrieves the record for (user, date), or nil. With legacy
// duplicates present the oldest row wins.
func (s *Store) GetRecord(ctx context.Context, user budget.UserID, date budget.Date) (*budget.DailyRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getRecord(ctx, s.db, user, date)
}

// CreateRecord inserts a record, refusing a second one for the same day.
func (s *Store) CreateRecord(ctx context.Context, rec budget.DailyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return createRecord(ctx, s.db, rec)
}

// UpdateRecord replaces a record by ID.
func (s *Store) UpdateRecord(ctx context.Context, rec budget.DailyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return updateRow(ctx, s.db, budget.EncodeRow(rec))
}

// ListRecords returns a user's records in [from, to], ascending by date.
func (s *Store) ListRecords(ctx context.Context, user budget.UserID, from, to budget.Date) ([]budget.DailyRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listRecords(ctx, s.db, user, from, to)
}

// CountRecords returns how many records a user has.
func (s *Store) CountRecords(ctx context.Context, user budget.UserID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return countRecords(ctx, s.db, user)
}

func getRecord(ctx context.Context, q querier, user budget.UserID, date budget.Date) (*budget.DailyRecord, error) {
	row := q.QueryRowContext(ctx, `
		SELECT `+recordColumns+` FROM daily_records
		WHERE user_id = ? AND date = ?
		ORDER BY created_at ASC, id ASC
		LIMIT 1`,
		user, date.String())
	raw, err := scanRow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	rec, err := budget.DecodeRow(raw)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// createRecord guards the insert with NOT EXISTS so uniqueness holds even
// while the unique index is missing.
func createRecord(ctx context.Context, q querier, rec budget.DailyRecord) error {
	if rec.ID == "" {
		rec.ID = budget.RecordID(uuid.NewString())
	}
	row := budget.EncodeRow(rec)
	now := formatTime(time.Now())

	query := `
		INSERT INTO daily_records (` + recordColumns + `)
		SELECT ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?
		WHERE NOT EXISTS (SELECT 1 FROM daily_records WHERE user_id = ? AND date = ?)
	`
	res, err := q.ExecContext(ctx, query,
		row.ID, row.UserID, row.Date,
		row.DailyBudget, row.Food, row.Products, row.Savings, row.Leftover,
		row.FoodFixed, row.ProductsFixed, row.SavingsFixed, row.LeftoverFixed,
		row.Completed, row.Comment,
		now, now,
		row.UserID, row.Date,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return budget.ErrDuplicateDay
		}
		return fmt.Errorf("failed to create record: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to create record: %w", err)
	}
	if n == 0 {
		return budget.ErrDuplicateDay
	}
	return nil
}

func listRecords(ctx context.Context, q querier, user budget.UserID, from, to budget.Date) ([]budget.DailyRecord, error) {
	lo, hi := "", "9999-12-31"
	if !from.IsZero() {
		lo = from.String()
	}
	if !to.IsZero() {
		hi = to.String()
	}
	rows, err := queryRows(ctx, q, `
		SELECT `+recordColumns+` FROM daily_records
		WHERE user_id = ? AND date >= ? AND date <= ?
		ORDER BY date ASC, created_at ASC, id ASC`,
		user, lo, hi)
	if err != nil {
		return nil, err
	}

	records := make([]budget.DailyRecord, 0, len(rows))
	for _, row := range rows {
		rec, err := budget.DecodeRow(row)
		if err != nil {
			// Corrupt date; diagnostics reports it.
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

func countRecords(ctx context.Context, q querier, user budget.UserID) (int, error) {
	var count int
	err := q.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM daily_records WHERE user_id = ?", user,
	).Scan(&count)
	return count, err
}

func scanRow(sc interface{ Scan(...any) error }) (budget.Row, error) {
	var (
		row                                          budget.Row
		dailyBudget, food, products, savings, lftvr sql.NullString
		comment                                      sql.NullString
		createdAt, updatedAt                         sql.NullString
	)
	err := sc.Scan(
		&row.ID, &row.UserID, &row.Date,
		&dailyBudget, &food, &products, &savings, &lftvr,
		&row.FoodFixed, &row.ProductsFixed, &row.SavingsFixed, &row.LeftoverFixed,
		&row.Completed, &comment,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return row, err
	}
	row.DailyBudget = dailyBudget.String
	row.Food = food.String
	row.Products = products.String
	row.Savings = savings.String
	row.Leftover = lftvr.String
	row.Comment = comment.String
	row.CreatedAt = parseTime(createdAt.String)
	row.UpdatedAt = parseTime(updatedAt.String)
	return row, nil
}

func queryRows(ctx context.Context, q querier, query string, args ...any) ([]budget.Row, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	var result []budget.Row
	for rows.Next() {
		row, err := scanRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

// =============================================================================
// GOAL STORE
// =============================================================================

// SaveGoal inserts or replaces a savings goal.
func (s *Store) SaveGoal(ctx context.Context, goal budget.SavingsGoal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return saveGoal(ctx, s.db, goal)
}

// GetGoal retrieves a user's goal by ID, or nil.
func (s *Store) GetGoal(ctx context.Context, user budget.UserID, id budget.GoalID) (*budget.SavingsGoal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getGoal(ctx, s.db, user, id)
}

// ListGoals returns a user's goals, newest first.
func (s *Store) ListGoals(ctx context.Context, user budget.UserID) ([]budget.SavingsGoal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listGoals(ctx, s.db, user)
}

const goalColumns = "id, user_id, name, target_amount, current_amount, completed, created_date"

func saveGoal(ctx context.Context, q querier, goal budget.SavingsGoal) error {
	if goal.ID == "" {
		goal.ID = budget.GoalID(uuid.NewString())
	}
	query := `
		INSERT INTO savings_goals (` + goalColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			target_amount = excluded.target_amount,
			current_amount = excluded.current_amount,
			completed = excluded.completed
	`
	_, err := q.ExecContext(ctx, query,
		goal.ID, goal.UserID, goal.Name,
		goal.TargetAmount.String(), goal.CurrentAmount.String(),
		goal.Completed, goal.CreatedDate.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to save goal: %w", err)
	}
	return nil
}

func getGoal(ctx context.Context, q querier, user budget.UserID, id budget.GoalID) (*budget.SavingsGoal, error) {
	row := q.QueryRowContext(ctx,
		"SELECT "+goalColumns+" FROM savings_goals WHERE id = ? AND user_id = ?", id, user)
	goal, err := scanGoal(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &goal, nil
}

func listGoals(ctx context.Context, q querier, user budget.UserID) ([]budget.SavingsGoal, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT "+goalColumns+" FROM savings_goals WHERE user_id = ? ORDER BY created_date DESC, id ASC", user)
	if err != nil {
		return nil, fmt.Errorf("failed to query goals: %w", err)
	}
	defer rows.Close()

	var goals []budget.SavingsGoal
	for rows.Next() {
		goal, err := scanGoal(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan goal: %w", err)
		}
		goals = append(goals, goal)
	}
	return goals, rows.Err()
}

func scanGoal(sc interface{ Scan(...any) error }) (budget.SavingsGoal, error) {
	var (
		goal                    budget.SavingsGoal
		target, current, create string
	)
	if err := sc.Scan(&goal.ID, &goal.UserID, &goal.Name, &target, &current, &goal.Completed, &create); err != nil {
		return goal, err
	}
	goal.TargetAmount = budget.NormalizeOrZero(target)
	goal.CurrentAmount = budget.NormalizeOrZero(current)
	goal.CreatedDate, _ = budget.ParseDate(create)
	return goal, nil
}

// =============================================================================
// ROW STORE (budget.RowStore interface)
// =============================================================================

// ListUsers returns every user with a config or a record.
func (s *Store) ListUsers(ctx context.Context) ([]budget.UserID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listUsers(ctx, s.db)
}

// ScanRows returns raw rows for one user, or all users when user is nil.
func (s *Store) ScanRows(ctx context.Context, user *budget.UserID) ([]budget.Row, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return scanRows(ctx, s.db, user)
}

// UpdateRow overwrites a raw row by ID.
func (s *Store) UpdateRow(ctx context.Context, row budget.Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return updateRow(ctx, s.db, row)
}

// DeleteRow removes a row by ID.
func (s *Store) DeleteRow(ctx context.Context, id budget.RecordID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return deleteRow(ctx, s.db, id)
}

// ScanConfigRows returns every raw config row.
func (s *Store) ScanConfigRows(ctx context.Context) ([]budget.ConfigRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return scanConfigRows(ctx, s.db)
}

// UpdateConfigRow overwrites a raw config row.
func (s *Store) UpdateConfigRow(ctx context.Context, row budget.ConfigRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return updateConfigRow(ctx, s.db, row)
}

// ImportRows inserts raw rows verbatim, the way a legacy import would.
// Fails on a duplicate day only while the unique index exists.
func (s *Store) ImportRows(ctx context.Context, rows ...budget.Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, row := range rows {
		if row.ID == "" {
			row.ID = budget.RecordID(uuid.NewString())
		}
		created := row.CreatedAt
		if created.IsZero() {
			created = time.Now()
		}
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO daily_records (`+recordColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			row.ID, row.UserID, row.Date,
			row.DailyBudget, row.Food, row.Products, row.Savings, row.Leftover,
			row.FoodFixed, row.ProductsFixed, row.SavingsFixed, row.LeftoverFixed,
			row.Completed, row.Comment,
			formatTime(created), formatTime(created),
		)
		if err != nil {
			if isUniqueConstraintError(err) {
				return budget.ErrDuplicateDay
			}
			return fmt.Errorf("failed to import row: %w", err)
		}
	}
	return nil
}

func listUsers(ctx context.Context, q querier) ([]budget.UserID, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT user_id FROM financial_configs
		UNION
		SELECT user_id FROM daily_records
		ORDER BY 1`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []budget.UserID
	for rows.Next() {
		var user budget.UserID
		if err := rows.Scan(&user); err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

func scanRows(ctx context.Context, q querier, user *budget.UserID) ([]budget.Row, error) {
	if user == nil {
		return queryRows(ctx, q,
			"SELECT "+recordColumns+" FROM daily_records ORDER BY date ASC, created_at ASC, id ASC")
	}
	return queryRows(ctx, q,
		"SELECT "+recordColumns+" FROM daily_records WHERE user_id = ? ORDER BY date ASC, created_at ASC, id ASC",
		*user)
}

func updateRow(ctx context.Context, q querier, row budget.Row) error {
	res, err := q.ExecContext(ctx, `
		UPDATE daily_records SET
			date = ?,
			daily_budget = ?, food = ?, products = ?, savings = ?, leftover = ?,
			food_fixed = ?, products_fixed = ?, savings_fixed = ?, leftover_fixed = ?,
			completed = ?, comment = ?, updated_at = ?
		WHERE id = ?`,
		row.Date,
		row.DailyBudget, row.Food, row.Products, row.Savings, row.Leftover,
		row.FoodFixed, row.ProductsFixed, row.SavingsFixed, row.LeftoverFixed,
		row.Completed, row.Comment, formatTime(time.Now()),
		row.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update record: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update record: %w", err)
	}
	if n == 0 {
		return budget.ErrRecordNotFound
	}
	return nil
}

func deleteRow(ctx context.Context, q querier, id budget.RecordID) error {
	if _, err := q.ExecContext(ctx, "DELETE FROM daily_records WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}
	return nil
}

func scanConfigRows(ctx context.Context, q querier) ([]budget.ConfigRow, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT "+configColumns+" FROM financial_configs ORDER BY user_id")
	if err != nil {
		return nil, fmt.Errorf("failed to query configs: %w", err)
	}
	defer rows.Close()

	var result []budget.ConfigRow
	for rows.Next() {
		row, err := scanConfigRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan config: %w", err)
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

func updateConfigRow(ctx context.Context, q querier, row budget.ConfigRow) error {
	res, err := q.ExecContext(ctx, `
		UPDATE financial_configs SET
			daily_budget = ?, default_food = ?, default_products = ?,
			default_savings = ?, default_leftover = ?, updated_at = ?
		WHERE user_id = ?`,
		row.DailyBudget, row.DefaultFood, row.DefaultProducts,
		row.DefaultSavings, row.DefaultLeftover, formatTime(time.Now()),
		row.UserID,
	)
	if err != nil {
		return fmt.Errorf("failed to update config: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update config: %w", err)
	}
	if n == 0 {
		return budget.ErrConfigNotFound
	}
	return nil
}

// =============================================================================
// TRANSACTIONAL STORE (budget.TxStore / budget.MaintenanceStore)
// =============================================================================

// WithTx executes a function within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(store budget.Store) error) error {
	return s.inTx(ctx, func(ts *txStore) error { return fn(ts) })
}

// WithRowTx executes a function over raw rows within a database transaction.
func (s *Store) WithRowTx(ctx context.Context, fn func(store budget.RowStore) error) error {
	return s.inTx(ctx, func(ts *txStore) error { return fn(ts) })
}

func (s *Store) inTx(ctx context.Context, fn func(*txStore) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{tx: sqlTx}); err != nil {
		return err
	}

	return sqlTx.Commit()
}

type txStore struct {
	tx *sql.Tx
}

func (ts *txStore) GetConfig(ctx context.Context, user budget.UserID) (*budget.Config, error) {
	return getConfig(ctx, ts.tx, user)
}

func (ts *txStore) SaveConfig(ctx context.Context, cfg budget.Config) error {
	return saveConfigRow(ctx, ts.tx, budget.EncodeConfigRow(cfg))
}

func (ts *txStore) GetRecord(ctx context.Context, user budget.UserID, date budget.Date) (*budget.DailyRecord, error) {
	return getRecord(ctx, ts.tx, user, date)
}

func (ts *txStore) CreateRecord(ctx context.Context, rec budget.DailyRecord) error {
	return createRecord(ctx, ts.tx, rec)
}

func (ts *txStore) UpdateRecord(ctx context.Context, rec budget.DailyRecord) error {
	return updateRow(ctx, ts.tx, budget.EncodeRow(rec))
}

func (ts *txStore) ListRecords(ctx context.Context, user budget.UserID, from, to budget.Date) ([]budget.DailyRecord, error) {
	return listRecords(ctx, ts.tx, user, from, to)
}

func (ts *txStore) CountRecords(ctx context.Context, user budget.UserID) (int, error) {
	return countRecords(ctx, ts.tx, user)
}

func (ts *txStore) SaveGoal(ctx context.Context, goal budget.SavingsGoal) error {
	return saveGoal(ctx, ts.tx, goal)
}

func (ts *txStore) GetGoal(ctx context.Context, user budget.UserID, id budget.GoalID) (*budget.SavingsGoal, error) {
	return getGoal(ctx, ts.tx, user, id)
}

func (ts *txStore) ListGoals(ctx context.Context, user budget.UserID) ([]budget.SavingsGoal, error) {
	return listGoals(ctx, ts.tx, user)
}

func (ts *txStore) ListUsers(ctx context.Context) ([]budget.UserID, error) {
	return listUsers(ctx, ts.tx)
}

func (ts *txStore) ScanRows(ctx context.Context, user *budget.UserID) ([]budget.Row, error) {
	return scanRows(ctx, ts.tx, user)
}

func (ts *txStore) UpdateRow(ctx context.Context, row budget.Row) error {
	return updateRow(ctx, ts.tx, row)
}

func (ts *txStore) DeleteRow(ctx context.Context, id budget.RecordID) error {
	return deleteRow(ctx, ts.tx, id)
}

func (ts *txStore) ScanConfigRows(ctx context.Context) ([]budget.ConfigRow, error) {
	return scanConfigRows(ctx, ts.tx)
}

func (ts *txStore) UpdateConfigRow(ctx context.Context, row budget.ConfigRow) error {
	return updateConfigRow(ctx, ts.tx, row)
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"daily_records", "savings_goals", "financial_configs"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

// Helper functions

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	if t, err := time.Parse(timeLayout, s); err == nil {
		return t
	}
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

func isUniqueConstraintError(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "duplicate key"))
}
