package budget

import (
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SAVINGS GOAL
// =============================================================================

// SavingsGoal is a named target the user saves toward.
type SavingsGoal struct {
	ID            GoalID
	UserID        UserID
	Name          string
	TargetAmount  Money
	CurrentAmount Money
	Completed     bool
	CreatedDate   Date
}

var hundred = decimal.NewFromInt(100)

// Progress is the completion percentage rounded to two decimals, or 0 when
// the target is zero. It can exceed 100.
func (g SavingsGoal) Progress() decimal.Decimal {
	target := NormalizeOrZero(g.TargetAmount)
	if target.IsZero() {
		return decimal.Zero
	}
	current := NormalizeOrZero(g.CurrentAmount)
	return current.Value.Div(target.Value).Mul(hundred).Round(2)
}

// UpdateState normalizes the amounts and marks the goal completed once the
// current amount reaches the target. A completed goal never reverts.
func (g *SavingsGoal) UpdateState() {
	g.CurrentAmount = NormalizeOrZero(g.CurrentAmount)
	g.TargetAmount = NormalizeOrZero(g.TargetAmount)
	if g.TargetAmount.IsPositive() && g.CurrentAmount.GreaterOrEqual(g.TargetAmount) {
		g.Completed = true
	}
}

// Validate checks the goal before it is first stored.
func (g SavingsGoal) Validate() error {
	if strings.TrimSpace(g.Name) == "" {
		return &ValidationError{Field: "name", Code: CodeEmptyName, Message: "the goal needs a name"}
	}
	if !g.TargetAmount.IsPositive() {
		return &ValidationError{
			Field:   "target_amount",
			Code:    CodeNonPositiveTarget,
			Message: "the target amount must be greater than zero",
		}
	}
	return nil
}
