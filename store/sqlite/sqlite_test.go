package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/budget-engine/budget"
)

// =============================================================================
// TEST SETUP
// =============================================================================

var drivers = []string{DriverCGO, DriverPure}

func newTestStore(t *testing.T, driver string) *Store {
	store, err := Open(driver, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func eachDriver(t *testing.T, fn func(t *testing.T, s *Store)) {
	for _, driver := range drivers {
		t.Run(driver, func(t *testing.T) {
			fn(t, newTestStore(t, driver))
		})
	}
}

var (
	ctx  = context.Background()
	day1 = budget.NewDate(2025, time.March, 1)
	day2 = budget.NewDate(2025, time.March, 2)
)

func testRecord(user budget.UserID, date budget.Date, food string) budget.DailyRecord {
	return budget.DailyRecord{
		ID:          budget.RecordID(string(user) + "-" + date.String()),
		UserID:      user,
		Date:        date,
		DailyBudget: budget.MustMoney("100"),
		Food:        budget.MustMoney(food),
		Products:    budget.Zero,
		Savings:     budget.Zero,
		Leftover:    budget.Zero,
	}
}

// =============================================================================
// CONFIG
// =============================================================================

func TestStore_ConfigRoundTrip(t *testing.T) {
	eachDriver(t, func(t *testing.T, s *Store) {
		got, err := s.GetConfig(ctx, "u1")
		require.NoError(t, err)
		assert.Nil(t, got)

		cfg := budget.NewConfig("u1")
		cfg.DailyBudget = budget.MustMoney("45.5")
		cfg.DefaultSavingsFixed = true
		cfg.RegistryStartDate = day1
		require.NoError(t, s.SaveConfig(ctx, cfg))

		cfg.DefaultFood = budget.MustMoney("12")
		require.NoError(t, s.SaveConfig(ctx, cfg))

		got, err = s.GetConfig(ctx, "u1")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "45.50", got.DailyBudget.String())
		assert.Equal(t, "12.00", got.DefaultFood.String())
		assert.True(t, got.DefaultSavingsFixed)
		assert.Equal(t, day1, got.RegistryStartDate)
		assert.False(t, got.CreatedAt.IsZero())
	})
}

func TestStore_ConfigWithoutStartDate(t *testing.T) {
	eachDriver(t, func(t *testing.T, s *Store) {
		require.NoError(t, s.SaveConfig(ctx, budget.NewConfig("u1")))

		got, err := s.GetConfig(ctx, "u1")
		require.NoError(t, err)
		assert.False(t, got.HasStartDate())
	})
}

// =============================================================================
// RECORDS
// =============================================================================

func TestStore_CreateAndGetRecord(t *testing.T) {
	eachDriver(t, func(t *testing.T, s *Store) {
		rec := testRecord("u1", day1, "12.5")
		rec.FoodFixed = true
		rec.Comment = "groceries"
		require.NoError(t, s.CreateRecord(ctx, rec))

		got, err := s.GetRecord(ctx, "u1", day1)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, rec.ID, got.ID)
		assert.Equal(t, "12.50", got.Food.String())
		assert.True(t, got.FoodFixed)
		assert.Equal(t, "groceries", got.Comment)

		missing, err := s.GetRecord(ctx, "u1", day2)
		require.NoError(t, err)
		assert.Nil(t, missing)
	})
}

func TestStore_OneRecordPerDay(t *testing.T) {
	eachDriver(t, func(t *testing.T, s *Store) {
		require.NoError(t, s.CreateRecord(ctx, testRecord("u1", day1, "10")))

		dup := testRecord("u1", day1, "20")
		dup.ID = "another-id"
		err := s.CreateRecord(ctx, dup)

		assert.ErrorIs(t, err, budget.ErrDuplicateDay)
		n, err := s.CountRecords(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})
}

func TestStore_UpdateRecord(t *testing.T) {
	eachDriver(t, func(t *testing.T, s *Store) {
		rec := testRecord("u1", day1, "10")
		require.NoError(t, s.CreateRecord(ctx, rec))

		rec.Completed = true
		rec.Leftover = budget.MustMoney("90")
		require.NoError(t, s.UpdateRecord(ctx, rec))

		got, err := s.GetRecord(ctx, "u1", day1)
		require.NoError(t, err)
		assert.True(t, got.Completed)
		assert.Equal(t, "90.00", got.Leftover.String())

		ghost := testRecord("u1", day2, "1")
		ghost.ID = "missing"
		assert.ErrorIs(t, s.UpdateRecord(ctx, ghost), budget.ErrRecordNotFound)
	})
}

func TestStore_ListRecords(t *testing.T) {
	eachDriver(t, func(t *testing.T, s *Store) {
		require.NoError(t, s.CreateRecord(ctx, testRecord("u1", day2, "2")))
		require.NoError(t, s.CreateRecord(ctx, testRecord("u1", day1, "1")))
		require.NoError(t, s.CreateRecord(ctx, testRecord("u2", day1, "9")))

		all, err := s.ListRecords(ctx, "u1", budget.Date{}, budget.Date{})
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, day1, all[0].Date)

		one, err := s.ListRecords(ctx, "u1", day2, day2)
		require.NoError(t, err)
		require.Len(t, one, 1)
		assert.Equal(t, "2.00", one[0].Food.String())
	})
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

func TestStore_WithTx_Rollback(t *testing.T) {
	eachDriver(t, func(t *testing.T, s *Store) {
		boom := errors.New("boom")

		err := s.WithTx(ctx, func(tx budget.Store) error {
			if err := tx.CreateRecord(ctx, testRecord("u1", day1, "10")); err != nil {
				return err
			}
			// Reads inside the transaction see its own writes
			got, err := tx.GetRecord(ctx, "u1", day1)
			if err != nil || got == nil {
				return errors.New("write not visible inside transaction")
			}
			return boom
		})

		assert.ErrorIs(t, err, boom)
		n, err := s.CountRecords(ctx, "u1")
		require.NoError(t, err)
		assert.Zero(t, n)
	})
}

func TestStore_WithRowTx_Commit(t *testing.T) {
	eachDriver(t, func(t *testing.T, s *Store) {
		require.NoError(t, s.CreateRecord(ctx, testRecord("u1", day1, "10")))

		err := s.WithRowTx(ctx, func(tx budget.RowStore) error {
			rows, err := tx.ScanRows(ctx, nil)
			if err != nil {
				return err
			}
			row := rows[0]
			row.Food = "7.00"
			return tx.UpdateRow(ctx, row)
		})
		require.NoError(t, err)

		got, err := s.GetRecord(ctx, "u1", day1)
		require.NoError(t, err)
		assert.Equal(t, "7.00", got.Food.String())
	})
}

// =============================================================================
// RAW ROWS
// =============================================================================

func TestStore_RawRowsKeepCorruptText(t *testing.T) {
	eachDriver(t, func(t *testing.T, s *Store) {
		require.NoError(t, s.ImportRows(ctx, budget.Row{
			ID: "r1", UserID: "u1", Date: "2025-03-01",
			DailyBudget: "NaN", Food: "-3", Products: "1.005", Savings: "", Leftover: "0",
		}))

		rows, err := s.ScanRows(ctx, nil)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, "NaN", rows[0].DailyBudget)
		assert.Equal(t, "-3", rows[0].Food)
		assert.Equal(t, "1.005", rows[0].Products)

		// Typed reads normalize
		got, err := s.GetRecord(ctx, "u1", day1)
		require.NoError(t, err)
		assert.Equal(t, "0.00", got.DailyBudget.String())
		assert.Equal(t, "0.00", got.Food.String())
		assert.Equal(t, "1.01", got.Products.String())
	})
}

func TestStore_RowUpdateAndDelete(t *testing.T) {
	eachDriver(t, func(t *testing.T, s *Store) {
		require.NoError(t, s.CreateRecord(ctx, testRecord("u1", day2, "10")))
		rows, err := s.ScanRows(ctx, nil)
		require.NoError(t, err)

		row := rows[0]
		row.Date = day1.String()
		require.NoError(t, s.UpdateRow(ctx, row))

		got, err := s.GetRecord(ctx, "u1", day1)
		require.NoError(t, err)
		require.NotNil(t, got, "the date column is rewritten too")

		require.NoError(t, s.DeleteRow(ctx, row.ID))
		n, _ := s.CountRecords(ctx, "u1")
		assert.Zero(t, n)
	})
}

func TestStore_ListUsers(t *testing.T) {
	eachDriver(t, func(t *testing.T, s *Store) {
		require.NoError(t, s.SaveConfig(ctx, budget.NewConfig("b")))
		require.NoError(t, s.CreateRecord(ctx, testRecord("a", day1, "1")))
		require.NoError(t, s.CreateRecord(ctx, testRecord("b", day1, "1")))

		users, err := s.ListUsers(ctx)
		require.NoError(t, err)
		assert.Equal(t, []budget.UserID{"a", "b"}, users)
	})
}

func TestStore_ConfigRows(t *testing.T) {
	eachDriver(t, func(t *testing.T, s *Store) {
		require.NoError(t, s.SaveConfig(ctx, budget.NewConfig("u1")))
		_, err := s.db.ExecContext(ctx, "UPDATE financial_configs SET daily_budget = 'None' WHERE user_id = 'u1'")
		require.NoError(t, err)

		rows, err := s.ScanConfigRows(ctx)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, "None", rows[0].DailyBudget)

		rows[0].DailyBudget = "0.00"
		require.NoError(t, s.UpdateConfigRow(ctx, rows[0]))
		rows, _ = s.ScanConfigRows(ctx)
		assert.Equal(t, "0.00", rows[0].DailyBudget)

		assert.ErrorIs(t, s.UpdateConfigRow(ctx, budget.ConfigRow{UserID: "nobody"}), budget.ErrConfigNotFound)
	})
}

// =============================================================================
// GOALS
// =============================================================================

func TestStore_Goals(t *testing.T) {
	eachDriver(t, func(t *testing.T, s *Store) {
		g1 := budget.SavingsGoal{ID: "g1", UserID: "u1", Name: "bike",
			TargetAmount: budget.MustMoney("100"), CurrentAmount: budget.Zero, CreatedDate: day1}
		g2 := budget.SavingsGoal{ID: "g2", UserID: "u1", Name: "trip",
			TargetAmount: budget.MustMoney("500"), CurrentAmount: budget.MustMoney("20"), CreatedDate: day2}
		require.NoError(t, s.SaveGoal(ctx, g1))
		require.NoError(t, s.SaveGoal(ctx, g2))

		g1.CurrentAmount = budget.MustMoney("100")
		g1.Completed = true
		require.NoError(t, s.SaveGoal(ctx, g1))

		goals, err := s.ListGoals(ctx, "u1")
		require.NoError(t, err)
		require.Len(t, goals, 2)
		assert.Equal(t, budget.GoalID("g2"), goals[0].ID)

		got, err := s.GetGoal(ctx, "u1", "g1")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.True(t, got.Completed)
		assert.Equal(t, "100.00", got.CurrentAmount.String())

		other, err := s.GetGoal(ctx, "u2", "g1")
		require.NoError(t, err)
		assert.Nil(t, other)
	})
}

// =============================================================================
// LEGACY DUPLICATES
// =============================================================================

func TestStore_LegacyDuplicates(t *testing.T) {
	for _, driver := range drivers {
		t.Run(driver, func(t *testing.T) {
			// GIVEN: A database file holding two records for one day
			path := filepath.Join(t.TempDir(), "legacy.db")
			s, err := Open(driver, path)
			require.NoError(t, err)
			_, err = s.db.ExecContext(ctx, "DROP INDEX idx_unique_user_day")
			require.NoError(t, err)
			require.NoError(t, s.ImportRows(ctx,
				budget.Row{ID: "a", UserID: "u1", Date: "2025-03-01", Food: "10"},
				budget.Row{ID: "b", UserID: "u1", Date: "2025-03-01", Food: "50"},
			))
			require.NoError(t, s.Close())

			// WHEN: Reopening it
			s, err = Open(driver, path)
			require.NoError(t, err)
			defer s.Close()

			// THEN: The store opens without the index and still refuses new duplicates
			assert.False(t, s.HasDayIndex())
			assert.ErrorIs(t, s.CreateRecord(ctx, testRecord("u1", day1, "1")), budget.ErrDuplicateDay)
			assert.ErrorIs(t, s.EnsureDayIndex(ctx), budget.ErrDuplicateDay)

			// Once the duplicate is gone the index comes back
			require.NoError(t, s.DeleteRow(ctx, "a"))
			require.NoError(t, s.EnsureDayIndex(ctx))
			assert.True(t, s.HasDayIndex())
		})
	}
}

func TestStore_Reset(t *testing.T) {
	s := newTestStore(t, DriverPure)
	require.NoError(t, s.SaveConfig(ctx, budget.NewConfig("u1")))
	require.NoError(t, s.CreateRecord(ctx, testRecord("u1", day1, "1")))

	require.NoError(t, s.Reset(ctx))

	users, err := s.ListUsers(ctx)
	require.NoError(t, err)
	assert.Empty(t, users)
}
