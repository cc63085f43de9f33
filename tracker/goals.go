package tracker

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/warp/budget-engine/budget"
)

// =============================================================================
// SAVINGS GOALS
// =============================================================================

// GoalInput carries raw values for a new goal.
type GoalInput struct {
	Name    string
	Target  any
	Current any // optional starting amount
}

// CreateGoal validates and stores a new goal. A starting amount at or
// above the target creates it already completed.
func (t *Tracker) CreateGoal(ctx context.Context, user budget.UserID, in GoalInput) (budget.SavingsGoal, error) {
	goal := budget.SavingsGoal{
		ID:            budget.GoalID(uuid.NewString()),
		UserID:        user,
		Name:          strings.TrimSpace(in.Name),
		TargetAmount:  budget.NormalizeOrZero(in.Target),
		CurrentAmount: budget.NormalizeOrZero(in.Current),
		CreatedDate:   t.Today(),
	}
	if err := goal.Validate(); err != nil {
		return budget.SavingsGoal{}, err
	}
	goal.UpdateState()

	if err := t.store.SaveGoal(ctx, goal); err != nil {
		return budget.SavingsGoal{}, fmt.Errorf("failed to save goal: %w", err)
	}

	t.log(user).WithFields(logrus.Fields{
		"goal":   goal.ID,
		"target": goal.TargetAmount.String(),
	}).Info("savings goal created")
	return goal, nil
}

// ListGoals returns the user's goals, newest first.
func (t *Tracker) ListGoals(ctx context.Context, user budget.UserID) ([]budget.SavingsGoal, error) {
	goals, err := t.store.ListGoals(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("failed to list goals: %w", err)
	}
	return goals, nil
}

// GetGoal returns a goal or budget.ErrGoalNotFound.
func (t *Tracker) GetGoal(ctx context.Context, user budget.UserID, id budget.GoalID) (budget.SavingsGoal, error) {
	return requireGoal(ctx, t.store, user, id)
}

func requireGoal(ctx context.Context, s budget.Store, user budget.UserID, id budget.GoalID) (budget.SavingsGoal, error) {
	goal, err := s.GetGoal(ctx, user, id)
	if err != nil {
		return budget.SavingsGoal{}, fmt.Errorf("failed to load goal: %w", err)
	}
	if goal == nil {
		return budget.SavingsGoal{}, budget.ErrGoalNotFound
	}
	return *goal, nil
}

// Contribute adds a positive amount to the goal and updates its state.
func (t *Tracker) Contribute(ctx context.Context, user budget.UserID, id budget.GoalID, raw any) (budget.SavingsGoal, error) {
	amount := budget.NormalizeOrZero(raw)
	if !amount.IsPositive() {
		return budget.SavingsGoal{}, &budget.ValidationError{
			Field:   "amount",
			Code:    budget.CodeNonPositiveAmount,
			Message: "the contribution must be greater than zero",
		}
	}

	var goal budget.SavingsGoal
	err := t.store.WithTx(ctx, func(s budget.Store) error {
		var err error
		goal, err = requireGoal(ctx, s, user, id)
		if err != nil {
			return err
		}
		goal.CurrentAmount = goal.CurrentAmount.Add(amount)
		goal.UpdateState()
		return s.SaveGoal(ctx, goal)
	})
	if err != nil {
		return budget.SavingsGoal{}, err
	}

	t.log(user).WithFields(logrus.Fields{
		"goal":      id,
		"amount":    amount.String(),
		"completed": goal.Completed,
	}).Info("goal contribution recorded")
	return goal, nil
}

// UpdateGoalState re-evaluates completion after an external change.
func (t *Tracker) UpdateGoalState(ctx context.Context, user budget.UserID, id budget.GoalID) (budget.SavingsGoal, error) {
	var goal budget.SavingsGoal
	err := t.store.WithTx(ctx, func(s budget.Store) error {
		var err error
		goal, err = requireGoal(ctx, s, user, id)
		if err != nil {
			return err
		}
		goal.UpdateState()
		return s.SaveGoal(ctx, goal)
	})
	if err != nil {
		return budget.SavingsGoal{}, err
	}
	return goal, nil
}
