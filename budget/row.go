package budget

import "time"

// =============================================================================
// ROW - Persisted text form of a record
// =============================================================================

// Row is a daily record exactly as persisted: monetary columns and the date
// are raw text. Legacy data can hold anything in these columns ("NaN", "",
// "-3", "1.005"), so diagnostics and repair work on rows, while everything
// else works on decoded DailyRecords.
type Row struct {
	ID     RecordID
	UserID UserID
	Date   string

	DailyBudget string
	Food        string
	Products    string
	Savings     string
	Leftover    string

	FoodFixed     bool
	ProductsFixed bool
	SavingsFixed  bool
	LeftoverFixed bool

	Completed bool
	Comment   string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Column names of the monetary fields, as used in diagnostics.
const (
	ColumnDailyBudget = "daily_budget"
	ColumnFood        = "food"
	ColumnProducts    = "products"
	ColumnSavings     = "savings"
	ColumnLeftover    = "leftover"
)

// RawColumn is one monetary column of a row.
type RawColumn struct {
	Name  string
	Value string
}

// MoneyColumns lists the monetary columns in a fixed order.
func (r Row) MoneyColumns() []RawColumn {
	return []RawColumn{
		{ColumnFood, r.Food},
		{ColumnProducts, r.Products},
		{ColumnSavings, r.Savings},
		{ColumnDailyBudget, r.DailyBudget},
		{ColumnLeftover, r.Leftover},
	}
}

// EncodeRow renders a record in its persisted form.
func EncodeRow(rec DailyRecord) Row {
	return Row{
		ID:            rec.ID,
		UserID:        rec.UserID,
		Date:          rec.Date.String(),
		DailyBudget:   rec.DailyBudget.String(),
		Food:          rec.Food.String(),
		Products:      rec.Products.String(),
		Savings:       rec.Savings.String(),
		Leftover:      rec.Leftover.String(),
		FoodFixed:     rec.FoodFixed,
		ProductsFixed: rec.ProductsFixed,
		SavingsFixed:  rec.SavingsFixed,
		LeftoverFixed: rec.LeftoverFixed,
		Completed:     rec.Completed,
		Comment:       rec.Comment,
		CreatedAt:     rec.CreatedAt,
		UpdatedAt:     rec.UpdatedAt,
	}
}

// DecodeRow turns a persisted row into a record. Monetary columns go through
// the normalizer; only an unparseable date is an error.
func DecodeRow(row Row) (DailyRecord, error) {
	date, err := ParseDate(row.Date)
	if err != nil {
		return DailyRecord{}, err
	}
	return DailyRecord{
		ID:            row.ID,
		UserID:        row.UserID,
		Date:          date,
		DailyBudget:   NormalizeOrZero(row.DailyBudget),
		Food:          NormalizeOrZero(row.Food),
		Products:      NormalizeOrZero(row.Products),
		Savings:       NormalizeOrZero(row.Savings),
		Leftover:      NormalizeOrZero(row.Leftover),
		FoodFixed:     row.FoodFixed,
		ProductsFixed: row.ProductsFixed,
		SavingsFixed:  row.SavingsFixed,
		LeftoverFixed: row.LeftoverFixed,
		Completed:     row.Completed,
		Comment:       row.Comment,
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
	}, nil
}

// =============================================================================
// CONFIG ROW - Persisted text form of a config
// =============================================================================

type ConfigRow struct {
	UserID UserID

	DailyBudget     string
	DefaultFood     string
	DefaultProducts string
	DefaultSavings  string
	DefaultLeftover string

	DefaultFoodFixed     bool
	DefaultProductsFixed bool
	DefaultSavingsFixed  bool
	DefaultLeftoverFixed bool

	RegistryStartDate string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// MoneyColumns lists the monetary columns of a config row.
func (r ConfigRow) MoneyColumns() []RawColumn {
	return []RawColumn{
		{"daily_budget", r.DailyBudget},
		{"default_food", r.DefaultFood},
		{"default_products", r.DefaultProducts},
		{"default_savings", r.DefaultSavings},
		{"default_leftover", r.DefaultLeftover},
	}
}

func EncodeConfigRow(c Config) ConfigRow {
	return ConfigRow{
		UserID:               c.UserID,
		DailyBudget:          c.DailyBudget.String(),
		DefaultFood:          c.DefaultFood.String(),
		DefaultProducts:      c.DefaultProducts.String(),
		DefaultSavings:       c.DefaultSavings.String(),
		DefaultLeftover:      c.DefaultLeftover.String(),
		DefaultFoodFixed:     c.DefaultFoodFixed,
		DefaultProductsFixed: c.DefaultProductsFixed,
		DefaultSavingsFixed:  c.DefaultSavingsFixed,
		DefaultLeftoverFixed: c.DefaultLeftoverFixed,
		RegistryStartDate:    c.RegistryStartDate.String(),
		CreatedAt:            c.CreatedAt,
		UpdatedAt:            c.UpdatedAt,
	}
}

// DecodeConfigRow never fails: corrupt amounts become zero and a corrupt
// start date reads as unset.
func DecodeConfigRow(row ConfigRow) Config {
	c := Config{
		UserID:               row.UserID,
		DailyBudget:          NormalizeOrZero(row.DailyBudget),
		DefaultFood:          NormalizeOrZero(row.DefaultFood),
		DefaultProducts:      NormalizeOrZero(row.DefaultProducts),
		DefaultSavings:       NormalizeOrZero(row.DefaultSavings),
		DefaultLeftover:      NormalizeOrZero(row.DefaultLeftover),
		DefaultFoodFixed:     row.DefaultFoodFixed,
		DefaultProductsFixed: row.DefaultProductsFixed,
		DefaultSavingsFixed:  row.DefaultSavingsFixed,
		DefaultLeftoverFixed: row.DefaultLeftoverFixed,
		CreatedAt:            row.CreatedAt,
		UpdatedAt:            row.UpdatedAt,
	}
	if row.RegistryStartDate != "" {
		if d, err := ParseDate(row.RegistryStartDate); err == nil {
			c.RegistryStartDate = d
		}
	}
	return c
}
