package budget

import "time"

// =============================================================================
// CONFIG - Per-user budget settings and record defaults
// =============================================================================

// Config is a user's financial configuration. One exists per user from the
// moment the user is created; it is never deleted while the user exists.
type Config struct {
	UserID UserID

	DailyBudget Money

	DefaultFood     Money
	DefaultProducts Money
	DefaultSavings  Money
	DefaultLeftover Money

	DefaultFoodFixed     bool
	DefaultProductsFixed bool
	DefaultSavingsFixed  bool
	DefaultLeftoverFixed bool

	// RegistryStartDate is the first tracked day. Zero when unset.
	RegistryStartDate Date

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewConfig returns the all-zero config created for a new user.
func NewConfig(user UserID) Config {
	return Config{
		UserID:          user,
		DailyBudget:     Zero,
		DefaultFood:     Zero,
		DefaultProducts: Zero,
		DefaultSavings:  Zero,
		DefaultLeftover: Zero,
	}
}

// Normalize forces every monetary field back into the invariant.
func (c *Config) Normalize() {
	c.DailyBudget = NormalizeOrZero(c.DailyBudget)
	c.DefaultFood = NormalizeOrZero(c.DefaultFood)
	c.DefaultProducts = NormalizeOrZero(c.DefaultProducts)
	c.DefaultSavings = NormalizeOrZero(c.DefaultSavings)
	c.DefaultLeftover = NormalizeOrZero(c.DefaultLeftover)
}

// HasStartDate reports whether tracking has been configured.
func (c Config) HasStartDate() bool {
	return !c.RegistryStartDate.IsZero()
}

// Default returns the default value and fixed flag for f.
func (c Config) Default(f Field) (Money, bool) {
	s, ok := c.slot(f)
	if !ok {
		return Zero, false
	}
	return *s.value, *s.fixed
}

// SetDefault stores the default for f. A nil value keeps the current one.
// Returns false for an unknown field.
func (c *Config) SetDefault(f Field, value any, fixed bool) bool {
	s, ok := c.slot(f)
	if !ok {
		return false
	}
	if value != nil {
		*s.value = Normalize(value, *s.value)
	}
	*s.fixed = fixed
	return true
}

// ValidateDefaults fails when the fixed defaults add up to more than the
// daily budget, which would make every seeded record invalid.
func (c Config) ValidateDefaults() error {
	seed := c.SeedRecord(Date{})
	if seed.TotalExpense().GreaterThan(seed.DailyBudget) {
		return &ValidationError{
			Field:   "defaults",
			Code:    CodeDefaultsExceedBudget,
			Message: "the fixed defaults cannot exceed the daily budget",
		}
	}
	return nil
}

// SeedRecord builds the record created for date when none exists.
// A fixed default is copied in as both value and fixed flag; a non-fixed
// default seeds as zero and unfixed. The seed starts incomplete.
func (c Config) SeedRecord(date Date) DailyRecord {
	rec := DailyRecord{
		UserID:      c.UserID,
		Date:        date,
		DailyBudget: NormalizeOrZero(c.DailyBudget),
		Food:        Zero,
		Products:    Zero,
		Savings:     Zero,
		Leftover:    Zero,
	}
	for _, f := range Fields {
		value, fixed := c.Default(f)
		if !fixed {
			continue
		}
		s, _ := rec.slot(f)
		*s.value = NormalizeOrZero(value)
		*s.fixed = true
	}
	return rec
}
