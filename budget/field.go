package budget

// =============================================================================
// FIELD - Closed set of pinnable monetary fields
// =============================================================================

// Field names a monetary field that can be pinned ("fixed") by the user.
type Field int

const (
	FieldFood Field = iota + 1
	FieldProducts
	FieldSavings
	FieldLeftover
)

// Fields lists every pinnable field in display order.
var Fields = []Field{FieldFood, FieldProducts, FieldSavings, FieldLeftover}

// ExpenseFields are the fields that count toward TotalExpense.
var ExpenseFields = []Field{FieldFood, FieldProducts, FieldSavings}

var fieldNames = map[Field]string{
	FieldFood:     "food",
	FieldProducts: "products",
	FieldSavings:  "savings",
	FieldLeftover: "leftover",
}

// fieldAliases accepts the names used by the original forms as well.
var fieldAliases = map[string]Field{
	"food":           FieldFood,
	"alimento":       FieldFood,
	"products":       FieldProducts,
	"productos":      FieldProducts,
	"savings":        FieldSavings,
	"ahorro_y_deuda": FieldSavings,
	"leftover":       FieldLeftover,
	"sobrante":       FieldLeftover,
}

// ParseField resolves a field name. ok is false for anything unknown.
func ParseField(name string) (Field, bool) {
	f, ok := fieldAliases[name]
	return f, ok
}

func (f Field) String() string {
	if name, ok := fieldNames[f]; ok {
		return name
	}
	return "unknown"
}

// slot pairs a value with its fixed flag.
type slot struct {
	value *Money
	fixed *bool
}

// slot maps a field to the record's (value, fixed) pair.
func (r *DailyRecord) slot(f Field) (slot, bool) {
	switch f {
	case FieldFood:
		return slot{&r.Food, &r.FoodFixed}, true
	case FieldProducts:
		return slot{&r.Products, &r.ProductsFixed}, true
	case FieldSavings:
		return slot{&r.Savings, &r.SavingsFixed}, true
	case FieldLeftover:
		return slot{&r.Leftover, &r.LeftoverFixed}, true
	default:
		return slot{}, false
	}
}

// slot maps a field to the config's (default value, default fixed) pair.
func (c *Config) slot(f Field) (slot, bool) {
	switch f {
	case FieldFood:
		return slot{&c.DefaultFood, &c.DefaultFoodFixed}, true
	case FieldProducts:
		return slot{&c.DefaultProducts, &c.DefaultProductsFixed}, true
	case FieldSavings:
		return slot{&c.DefaultSavings, &c.DefaultSavingsFixed}, true
	case FieldLeftover:
		return slot{&c.DefaultLeftover, &c.DefaultLeftoverFixed}, true
	default:
		return slot{}, false
	}
}
