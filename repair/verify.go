package repair

import (
	"context"
	"fmt"

	"github.com/warp/budget-engine/budget"
)

// Issue kinds reported by Verify.
const (
	IssueDuplicateDate   = "duplicate_date"
	IssueInvalidValue    = "invalid_value"
	IssueNegativeBudget  = "negative_budget"
	IssueNegativeExpense = "negative_expense"
	IssueOverBudget      = "expenses_over_budget"
	IssueStaleLeftover   = "stale_leftover"
	IssueFixedNegative   = "fixed_negative"
)

// Issue is one problem found by Verify.
type Issue struct {
	User    budget.UserID `json:"user" yaml:"user"`
	Date    string        `json:"date" yaml:"date"`
	Kind    string        `json:"kind" yaml:"kind"`
	Message string        `json:"message" yaml:"message"`
}

func (i Issue) String() string {
	return fmt.Sprintf("[%s] %s %s: %s", i.User, i.Date, i.Kind, i.Message)
}

// Verify lists every problem in the scope without changing anything.
func (e *Engine) Verify(ctx context.Context, user *budget.UserID) ([]Issue, error) {
	rows, err := e.store.ScanRows(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("failed to scan records: %w", err)
	}

	var issues []Issue
	report := func(row budget.Row, kind, format string, args ...any) {
		issues = append(issues, Issue{
			User:    row.UserID,
			Date:    row.Date,
			Kind:    kind,
			Message: fmt.Sprintf(format, args...),
		})
	}

	type dayKey struct {
		user budget.UserID
		date string
	}
	seen := make(map[dayKey]bool)

	for _, row := range rows {
		k := dayKey{row.UserID, row.Date}
		if seen[k] {
			report(row, IssueDuplicateDate, "more than one record for this day")
		}
		seen[k] = true

		for _, col := range row.MoneyColumns() {
			if budget.InspectRaw(col.Value).Has(budget.RawUnparseable) {
				report(row, IssueInvalidValue, "%s holds an invalid value %q", col.Name, col.Value)
			}
		}

		if budget.InspectRaw(row.DailyBudget).Has(budget.RawNegative) {
			report(row, IssueNegativeBudget, "daily budget is negative (%s)", row.DailyBudget)
		}
		for _, raw := range []string{row.Food, row.Products, row.Savings} {
			if budget.InspectRaw(raw).Has(budget.RawNegative) {
				report(row, IssueNegativeExpense, "an expense is negative (%s)", raw)
				break
			}
		}

		rec, err := budget.DecodeRow(row)
		if err != nil {
			report(row, IssueInvalidValue, "date is unreadable")
			continue
		}

		if rec.TotalExpense().GreaterThan(rec.DailyBudget) {
			report(row, IssueOverBudget, "spent %s of %s", rec.TotalExpense(), rec.DailyBudget)
		}

		if !rec.LeftoverFixed {
			if expected := rec.ExpectedLeftover(); !rec.Leftover.Equal(expected) {
				report(row, IssueStaleLeftover, "leftover is %s, should be %s", rec.Leftover, expected)
			}
		}

		for _, f := range budget.Fields {
			if !rec.IsFixed(f) {
				continue
			}
			if budget.InspectRaw(rawValue(row, f)).Has(budget.RawNegative) {
				report(row, IssueFixedNegative, "%s is fixed but negative", f)
			}
		}
	}

	e.logger.WithField("scope", scope(user)).WithField("issues", len(issues)).Debug("verification complete")
	return issues, nil
}

func rawValue(row budget.Row, f budget.Field) string {
	switch f {
	case budget.FieldFood:
		return row.Food
	case budget.FieldProducts:
		return row.Products
	case budget.FieldSavings:
		return row.Savings
	case budget.FieldLeftover:
		return row.Leftover
	default:
		return ""
	}
}
