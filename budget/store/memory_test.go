package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/budget-engine/budget"
	"github.com/warp/budget-engine/budget/store"
)

var (
	ctx  = context.Background()
	day1 = budget.NewDate(2025, time.March, 1)
	day2 = budget.NewDate(2025, time.March, 2)
	day3 = budget.NewDate(2025, time.March, 3)
)

func record(user budget.UserID, date budget.Date, food string) budget.DailyRecord {
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

func TestMemory_ConfigUpsert(t *testing.T) {
	s := store.NewMemory()

	got, err := s.GetConfig(ctx, "u1")
	require.NoError(t, err)
	assert.Nil(t, got)

	cfg := budget.NewConfig("u1")
	cfg.DailyBudget = budget.MustMoney("50")
	require.NoError(t, s.SaveConfig(ctx, cfg))

	cfg.DailyBudget = budget.MustMoney("75")
	require.NoError(t, s.SaveConfig(ctx, cfg))

	got, err = s.GetConfig(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "75.00", got.DailyBudget.String())
	assert.False(t, got.CreatedAt.IsZero())
}

func TestMemory_OneRecordPerDay(t *testing.T) {
	// GIVEN: A record for March 1
	s := store.NewMemory()
	require.NoError(t, s.CreateRecord(ctx, record("u1", day1, "10")))

	// WHEN: Creating another record for the same day
	dup := record("u1", day1, "20")
	dup.ID = "other"
	err := s.CreateRecord(ctx, dup)

	// THEN: The store refuses it; other users are unaffected
	assert.ErrorIs(t, err, budget.ErrDuplicateDay)
	assert.NoError(t, s.CreateRecord(ctx, record("u2", day1, "20")))

	n, err := s.CountRecords(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestMemory_UpdateRecord(t *testing.T) {
	s := store.NewMemory()
	rec := record("u1", day1, "10")
	require.NoError(t, s.CreateRecord(ctx, rec))

	rec.Food = budget.MustMoney("15")
	require.NoError(t, s.UpdateRecord(ctx, rec))

	got, err := s.GetRecord(ctx, "u1", day1)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "15.00", got.Food.String())

	missing := record("u1", day2, "1")
	missing.ID = "nope"
	assert.ErrorIs(t, s.UpdateRecord(ctx, missing), budget.ErrRecordNotFound)
}

func TestMemory_ListRecords_RangeAndOrder(t *testing.T) {
	s := store.NewMemory()
	require.NoError(t, s.CreateRecord(ctx, record("u1", day3, "3")))
	require.NoError(t, s.CreateRecord(ctx, record("u1", day1, "1")))
	require.NoError(t, s.CreateRecord(ctx, record("u1", day2, "2")))

	all, err := s.ListRecords(ctx, "u1", budget.Date{}, budget.Date{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, day1, all[0].Date)
	assert.Equal(t, day3, all[2].Date)

	tail, err := s.ListRecords(ctx, "u1", day2, budget.Date{})
	require.NoError(t, err)
	assert.Len(t, tail, 2)

	head, err := s.ListRecords(ctx, "u1", budget.Date{}, day1)
	require.NoError(t, err)
	assert.Len(t, head, 1)
}

func TestMemory_WithTx_RollsBackOnError(t *testing.T) {
	// GIVEN: An empty store
	s := store.NewMemory()
	boom := errors.New("boom")

	// WHEN: A transaction writes and then fails
	err := s.WithTx(ctx, func(tx budget.Store) error {
		if err := tx.CreateRecord(ctx, record("u1", day1, "10")); err != nil {
			return err
		}
		if err := tx.SaveConfig(ctx, budget.NewConfig("u1")); err != nil {
			return err
		}
		return boom
	})

	// THEN: Nothing it wrote is visible
	assert.ErrorIs(t, err, boom)
	n, _ := s.CountRecords(ctx, "u1")
	assert.Zero(t, n)
	cfg, _ := s.GetConfig(ctx, "u1")
	assert.Nil(t, cfg)
}

func TestMemory_WithTx_Commits(t *testing.T) {
	s := store.NewMemory()

	err := s.WithTx(ctx, func(tx budget.Store) error {
		return tx.CreateRecord(ctx, record("u1", day1, "10"))
	})

	require.NoError(t, err)
	n, _ := s.CountRecords(ctx, "u1")
	assert.Equal(t, 1, n)
}

func TestMemory_ImportRows_KeepsLegacyDuplicates(t *testing.T) {
	// GIVEN: Legacy rows, two for the same day
	s := store.NewMemory()
	base := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	s.ImportRows(
		budget.Row{ID: "b", UserID: "u1", Date: "2025-03-01", Food: "50", CreatedAt: base.Add(time.Hour)},
		budget.Row{ID: "a", UserID: "u1", Date: "2025-03-01", Food: "NaN", CreatedAt: base},
		budget.Row{ID: "c", UserID: "u2", Date: "2025-02-28", Food: "1"},
	)

	// WHEN: Scanning and reading
	rows, err := s.ScanRows(ctx, nil)
	require.NoError(t, err)
	got, err := s.GetRecord(ctx, "u1", day1)
	require.NoError(t, err)

	// THEN: Both duplicates are visible raw; the oldest one is the record
	require.Len(t, rows, 3)
	assert.Equal(t, budget.RecordID("c"), rows[0].ID)
	assert.Equal(t, budget.RecordID("a"), rows[1].ID)
	assert.Equal(t, "NaN", rows[1].Food)
	require.NotNil(t, got)
	assert.Equal(t, budget.RecordID("a"), got.ID)
	assert.Equal(t, "0.00", got.Food.String())
}

func TestMemory_RowAccess(t *testing.T) {
	s := store.NewMemory()
	require.NoError(t, s.CreateRecord(ctx, record("u1", day1, "10")))
	require.NoError(t, s.SaveConfig(ctx, budget.NewConfig("u2")))

	users, err := s.ListUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, []budget.UserID{"u1", "u2"}, users)

	u1 := budget.UserID("u1")
	rows, err := s.ScanRows(ctx, &u1)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	row := rows[0]
	row.Food = "-5"
	row.Date = "2025-03-02"
	require.NoError(t, s.UpdateRow(ctx, row))

	rows, _ = s.ScanRows(ctx, &u1)
	assert.Equal(t, "-5", rows[0].Food)
	assert.Equal(t, "2025-03-02", rows[0].Date)

	require.NoError(t, s.DeleteRow(ctx, row.ID))
	rows, _ = s.ScanRows(ctx, &u1)
	assert.Empty(t, rows)
}

func TestMemory_ConfigRows(t *testing.T) {
	s := store.NewMemory()
	s.ImportConfigRows(budget.ConfigRow{UserID: "u1", DailyBudget: "NaN", DefaultFood: "-2"})

	rows, err := s.ScanConfigRows(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "NaN", rows[0].DailyBudget)

	rows[0].DailyBudget = "0.00"
	require.NoError(t, s.UpdateConfigRow(ctx, rows[0]))
	cfg, _ := s.GetConfig(ctx, "u1")
	assert.Equal(t, "0.00", cfg.DailyBudget.String())

	assert.ErrorIs(t, s.UpdateConfigRow(ctx, budget.ConfigRow{UserID: "ghost"}), budget.ErrConfigNotFound)
}

func TestMemory_Goals(t *testing.T) {
	s := store.NewMemory()
	older := budget.SavingsGoal{ID: "g1", UserID: "u1", Name: "bike", TargetAmount: budget.MustMoney("100"), CreatedDate: day1}
	newer := budget.SavingsGoal{ID: "g2", UserID: "u1", Name: "trip", TargetAmount: budget.MustMoney("900"), CreatedDate: day2}
	require.NoError(t, s.SaveGoal(ctx, older))
	require.NoError(t, s.SaveGoal(ctx, newer))

	goals, err := s.ListGoals(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, goals, 2)
	assert.Equal(t, budget.GoalID("g2"), goals[0].ID)

	got, err := s.GetGoal(ctx, "u2", "g1")
	require.NoError(t, err)
	assert.Nil(t, got, "goals are scoped to their user")
}
