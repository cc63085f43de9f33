package budget_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/budget-engine/budget"
)

func m(s string) budget.Money { return budget.MustMoney(s) }

var march10 = budget.NewDate(2025, time.March, 10)

// =============================================================================
// LEFTOVER
// =============================================================================

func TestComputeLeftover(t *testing.T) {
	cases := []struct {
		name                            string
		budget, food, savings, products string
		want                            string
	}{
		{"plain", "100", "30", "20", "10", "40.00"},
		{"overspent clamps to zero", "50", "40", "20", "0", "0.00"},
		{"no budget", "0", "0", "0", "0", "0.00"},
		{"exact", "60", "20", "20", "20", "0.00"},
		{"cents", "10.10", "0.05", "0", "0", "10.05"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := budget.ComputeLeftover(m(tc.budget), m(tc.food), m(tc.savings), m(tc.products))
			assert.Equal(t, tc.want, got.String())
		})
	}
}

func TestComputeLeftoverRaw_GarbageCountsAsZero(t *testing.T) {
	got := budget.ComputeLeftoverRaw("100", "NaN", nil, "-5")
	assert.Equal(t, "100.00", got.String())

	assert.Equal(t, "0.00", budget.ComputeLeftoverRaw("garbage", 1, 2, 3).String())
}

// =============================================================================
// SAVE PIPELINE
// =============================================================================

func TestReconcile_IncompleteDayHasZeroLeftover(t *testing.T) {
	// GIVEN: An incomplete day with budget and expenses
	rec := budget.DailyRecord{Date: march10, DailyBudget: m("100"), Food: m("30"), Leftover: m("12")}

	// WHEN: Saving it
	require.NoError(t, rec.Reconcile())

	// THEN: The leftover is zero until the day is completed
	assert.Equal(t, "0.00", rec.Leftover.String())
}

func TestReconcile_CompletedDayComputesLeftover(t *testing.T) {
	rec := budget.DailyRecord{
		Date:        march10,
		DailyBudget: m("100"),
		Food:        m("30"),
		Products:    m("10"),
		Savings:     m("20"),
		Completed:   true,
	}

	require.NoError(t, rec.Reconcile())

	assert.Equal(t, "40.00", rec.Leftover.String())
}

func TestReconcile_FixedLeftoverIsKept(t *testing.T) {
	rec := budget.DailyRecord{
		Date:          march10,
		DailyBudget:   m("100"),
		Food:          m("30"),
		Leftover:      m("5"),
		LeftoverFixed: true,
		Completed:     true,
	}

	require.NoError(t, rec.Reconcile())

	assert.Equal(t, "5.00", rec.Leftover.String())
}

func TestReconcile_ExpensesOverBudgetRejected(t *testing.T) {
	// GIVEN: Expenses above the daily budget
	rec := budget.DailyRecord{Date: march10, DailyBudget: m("50"), Food: m("40"), Savings: m("20")}

	// WHEN: Saving it
	err := rec.Reconcile()

	// THEN: A validation error with the cross-field code
	var verr *budget.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, budget.CodeExpensesExceedBudget, verr.Code)
	assert.Empty(t, verr.Field)
	assert.True(t, errors.Is(err, budget.ErrValidation))
	assert.True(t, budget.IsClientError(err))
}

func TestReconcile_BudgetTooHighRejected(t *testing.T) {
	rec := budget.DailyRecord{Date: march10, DailyBudget: m("100000001")}

	err := rec.Reconcile()

	var verr *budget.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, budget.CodeBudgetTooHigh, verr.Code)
	assert.Equal(t, "daily_budget", verr.Field)
}

func TestReconcile_Idempotent(t *testing.T) {
	rec := budget.DailyRecord{
		Date:        march10,
		DailyBudget: m("80.555"),
		Food:        m("10.001"),
		Completed:   true,
	}
	require.NoError(t, rec.Reconcile())
	first := budget.EncodeRow(rec)

	require.NoError(t, rec.Reconcile())

	assert.Equal(t, first, budget.EncodeRow(rec))
	assert.Equal(t, "80.56", rec.DailyBudget.String())
	assert.Equal(t, "70.56", rec.Leftover.String())
}

func TestExpectedLeftover_MatchesReconcile(t *testing.T) {
	rec := budget.DailyRecord{Date: march10, DailyBudget: m("90"), Food: m("15"), Completed: true}

	expected := rec.ExpectedLeftover()
	require.NoError(t, rec.Reconcile())

	assert.Equal(t, expected.String(), rec.Leftover.String())
}

// =============================================================================
// FIX / APPLY
// =============================================================================

func TestFixField_TogglesAndWritesValue(t *testing.T) {
	rec := budget.DailyRecord{Date: march10}

	assert.True(t, rec.FixField(budget.FieldFood, "12.5"))
	assert.True(t, rec.FoodFixed)
	assert.Equal(t, "12.50", rec.Food.String())

	assert.True(t, rec.FixField(budget.FieldFood, nil))
	assert.False(t, rec.FoodFixed)
	assert.Equal(t, "12.50", rec.Food.String(), "unfixing keeps the value")
}

func TestFixField_UnknownFieldIsNoOp(t *testing.T) {
	rec := budget.DailyRecord{Date: march10, Food: m("3")}
	before := rec

	assert.False(t, rec.FixField(budget.Field(99), "50"))
	assert.Equal(t, before, rec)
}

func TestParseField_Aliases(t *testing.T) {
	for name, want := range map[string]budget.Field{
		"food":           budget.FieldFood,
		"alimento":       budget.FieldFood,
		"productos":      budget.FieldProducts,
		"ahorro_y_deuda": budget.FieldSavings,
		"sobrante":       budget.FieldLeftover,
	} {
		got, ok := budget.ParseField(name)
		assert.True(t, ok, name)
		assert.Equal(t, want, got, name)
	}

	_, ok := budget.ParseField("budget")
	assert.False(t, ok)
}

func TestApply_GarbageKeepsCurrentValue(t *testing.T) {
	// GIVEN: A record with food 20
	rec := budget.DailyRecord{Date: march10, DailyBudget: m("100"), Food: m("20")}

	// WHEN: The form sends garbage for food and a valid products value
	comment := "lunch out"
	rec.Apply(budget.RecordInput{Food: "twenty", Products: "7,5", Comment: &comment})

	// THEN: Food keeps 20, products takes the new value
	assert.Equal(t, "20.00", rec.Food.String())
	assert.Equal(t, "7.50", rec.Products.String())
	assert.Equal(t, "lunch out", rec.Comment)
}

func TestApply_FixedCategoryIsNotOverwritten(t *testing.T) {
	rec := budget.DailyRecord{Date: march10, Savings: m("15"), SavingsFixed: true}

	rec.Apply(budget.RecordInput{Savings: "99"})

	assert.Equal(t, "15.00", rec.Savings.String())
}

func TestApply_LeftoverOnlyWhenFixed(t *testing.T) {
	rec := budget.DailyRecord{Date: march10}
	rec.Apply(budget.RecordInput{Leftover: "9"})
	assert.Equal(t, "0.00", rec.Leftover.String())

	rec.LeftoverFixed = true
	rec.Apply(budget.RecordInput{Leftover: "9"})
	assert.Equal(t, "9.00", rec.Leftover.String())
}

// =============================================================================
// GHOSTS
// =============================================================================

func TestIsGhost(t *testing.T) {
	ghost := budget.DailyRecord{Date: march10, DailyBudget: budget.Zero, Food: budget.Zero,
		Products: budget.Zero, Savings: budget.Zero, Leftover: m("25")}
	assert.True(t, ghost.IsGhost())

	completed := ghost
	completed.Completed = true
	assert.False(t, completed.IsGhost())

	withBudget := ghost
	withBudget.DailyBudget = m("10")
	assert.False(t, withBudget.IsGhost())

	empty := ghost
	empty.Leftover = budget.Zero
	assert.False(t, empty.IsGhost())
}
