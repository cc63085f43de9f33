package tracker

import (
	"context"
	"fmt"

	"github.com/warp/budget-engine/budget"
)

// =============================================================================
// USER SETUP
// =============================================================================

// OnUserCreated gives a new user an all-zero config. Calling it again for
// an existing user returns the stored config unchanged.
func (t *Tracker) OnUserCreated(ctx context.Context, user budget.UserID) (budget.Config, error) {
	var cfg budget.Config
	err := t.store.WithTx(ctx, func(s budget.Store) error {
		existing, err := s.GetConfig(ctx, user)
		if err != nil {
			return err
		}
		if existing != nil {
			cfg = *existing
			return nil
		}
		cfg = budget.NewConfig(user)
		return s.SaveConfig(ctx, cfg)
	})
	if err != nil {
		return budget.Config{}, fmt.Errorf("failed to create config for %s: %w", user, err)
	}
	t.log(user).Debug("user config ready")
	return cfg, nil
}

// =============================================================================
// CONFIG
// =============================================================================

// GetConfig returns the user's config or budget.ErrConfigNotFound.
func (t *Tracker) GetConfig(ctx context.Context, user budget.UserID) (budget.Config, error) {
	return requireConfig(ctx, t.store, user)
}

func requireConfig(ctx context.Context, s budget.Store, user budget.UserID) (budget.Config, error) {
	cfg, err := s.GetConfig(ctx, user)
	if err != nil {
		return budget.Config{}, fmt.Errorf("failed to load config: %w", err)
	}
	if cfg == nil {
		return budget.Config{}, budget.ErrConfigNotFound
	}
	return *cfg, nil
}

// UpdateBudget sets the daily budget from a raw value. Unparseable input
// keeps the current budget; the resulting budget must be positive.
func (t *Tracker) UpdateBudget(ctx context.Context, user budget.UserID, raw any) (budget.Config, error) {
	return t.updateConfig(ctx, user, func(cfg *budget.Config) error {
		value := budget.Normalize(raw, cfg.DailyBudget)
		if !value.IsPositive() {
			return &budget.ValidationError{
				Field:   "daily_budget",
				Code:    budget.CodeNonPositiveBudget,
				Message: "the budget must be greater than zero",
			}
		}
		if value.GreaterThan(budget.MaxDailyBudget) {
			return &budget.ValidationError{
				Field:   "daily_budget",
				Code:    budget.CodeBudgetTooHigh,
				Message: "the daily budget is unrealistically high",
			}
		}
		cfg.DailyBudget = value
		return nil
	})
}

// SetDefault pins or unpins a default used to seed new records. A nil or
// blank value only changes the fixed flag.
func (t *Tracker) SetDefault(ctx context.Context, user budget.UserID, fieldName string, raw any, fixed bool) (budget.Config, error) {
	f, ok := budget.ParseField(fieldName)
	if !ok {
		return budget.Config{}, fmt.Errorf("%w: %q", budget.ErrUnknownField, fieldName)
	}
	return t.updateConfig(ctx, user, func(cfg *budget.Config) error {
		cfg.SetDefault(f, raw, fixed)
		return nil
	})
}

// SetStartDate configures the first tracked day. The date must lie in
// [2000-01-01, today]. With the lock enabled the date can only be set
// once, and not at all once records exist.
func (t *Tracker) SetStartDate(ctx context.Context, user budget.UserID, date budget.Date) (budget.Config, error) {
	if date.IsZero() || date.Year() < budget.MinYear {
		return budget.Config{}, budget.ErrStartDateTooOld
	}
	if date.After(t.Today()) {
		return budget.Config{}, budget.ErrStartDateInFuture
	}

	var cfg budget.Config
	err := t.store.WithTx(ctx, func(s budget.Store) error {
		current, err := requireConfig(ctx, s, user)
		if err != nil {
			return err
		}
		if current.HasStartDate() && current.RegistryStartDate.Equal(date) {
			cfg = current
			return nil
		}
		if t.lockStartDate {
			if current.HasStartDate() {
				return budget.ErrStartDateLocked
			}
			n, err := s.CountRecords(ctx, user)
			if err != nil {
				return fmt.Errorf("failed to count records: %w", err)
			}
			if n > 0 {
				return fmt.Errorf("%w: records already exist", budget.ErrStartDateLocked)
			}
		}
		current.RegistryStartDate = date
		cfg = current
		return s.SaveConfig(ctx, current)
	})
	if err != nil {
		return budget.Config{}, err
	}

	t.log(user).WithField("date", date.String()).Info("registry start date set")
	return cfg, nil
}

func (t *Tracker) updateConfig(ctx context.Context, user budget.UserID, mutate func(*budget.Config) error) (budget.Config, error) {
	var cfg budget.Config
	err := t.store.WithTx(ctx, func(s budget.Store) error {
		current, err := requireConfig(ctx, s, user)
		if err != nil {
			return err
		}
		if err := mutate(&current); err != nil {
			return err
		}
		current.Normalize()
		if err := current.ValidateDefaults(); err != nil {
			return err
		}
		cfg = current
		return s.SaveConfig(ctx, current)
	})
	if err != nil {
		return budget.Config{}, err
	}
	return cfg, nil
}
