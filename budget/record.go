/*
record.go - Daily record entity and its save pipeline

PURPOSE:
  One DailyRecord exists per (user, calendar day). It carries the day's
  budget, three expense categories, the derived leftover, a fixed flag per
  pinnable field, and a completion flag.

LIFECYCLE:
  uninitialized -> created (Completed=false) -> completed (Completed=true)

  A completed record may be edited again but stays completed. There is no
  "uncomplete" transition; only administrative deletion resets a day.

SAVE PIPELINE (Reconcile):
  1. Normalize budget, food, products, savings
  2. Validate cross-field rules (fail-fast, returns *ValidationError)
  3. Resolve leftover:
       not completed             -> 0
       completed, leftover fixed -> stored value, normalized
       completed, not fixed      -> ComputeLeftover

  Every create and update goes through Reconcile, so calling it twice with
  the same input yields the same record.

SEE ALSO:
  - leftover.go: ComputeLeftover
  - field.go: pinnable fields
  - tracker/records.go: persistence around the pipeline
*/
package budget

import "time"

// LeftoverRequiresCompletion selects the leftover policy: an incomplete day
// has leftover 0 no matter what its other fields say. Leftover only becomes
// meaningful once the day is completed.
const LeftoverRequiresCompletion = true

// =============================================================================
// DAILY RECORD
// =============================================================================

type DailyRecord struct {
	ID     RecordID
	UserID UserID
	Date   Date

	DailyBudget Money
	Food        Money
	Products    Money
	Savings     Money
	Leftover    Money

	FoodFixed     bool
	ProductsFixed bool
	SavingsFixed  bool
	LeftoverFixed bool

	Completed bool
	Comment   string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// TotalExpense is food + products + savings.
func (r DailyRecord) TotalExpense() Money {
	return NormalizeOrZero(r.Food).
		Add(NormalizeOrZero(r.Products)).
		Add(NormalizeOrZero(r.Savings))
}

// DailyBalance is the budget minus total expense. May be negative on
// unvalidated data.
func (r DailyRecord) DailyBalance() Money {
	return NormalizeOrZero(r.DailyBudget).Sub(r.TotalExpense())
}

// EffectiveLeftover is the leftover that counts toward totals: zero until
// the day is completed.
func (r DailyRecord) EffectiveLeftover() Money {
	if !r.Completed {
		return Zero
	}
	return NormalizeOrZero(r.Leftover)
}

// IsFixed reports whether f is pinned on this record.
func (r DailyRecord) IsFixed(f Field) bool {
	s, ok := r.slot(f)
	return ok && *s.fixed
}

// Value returns the stored value of f.
func (r DailyRecord) Value(f Field) Money {
	s, ok := r.slot(f)
	if !ok {
		return Zero
	}
	return *s.value
}

// IsGhost reports a record with no real data but a stale leftover: never
// completed, zero budget and expenses, and a non-zero leftover.
func (r DailyRecord) IsGhost() bool {
	return !r.Completed &&
		r.DailyBudget.IsZero() &&
		r.Food.IsZero() &&
		r.Products.IsZero() &&
		r.Savings.IsZero() &&
		!r.Leftover.IsZero()
}

// =============================================================================
// SAVE PIPELINE
// =============================================================================

// Reconcile normalizes, validates and resolves the leftover in place.
// On a validation error the record is left normalized but otherwise untouched.
func (r *DailyRecord) Reconcile() error {
	r.normalize()

	if err := r.Validate(); err != nil {
		return err
	}

	r.Leftover = r.resolveLeftover()
	return nil
}

func (r *DailyRecord) normalize() {
	r.DailyBudget = NormalizeOrZero(r.DailyBudget)
	r.Food = NormalizeOrZero(r.Food)
	r.Products = NormalizeOrZero(r.Products)
	r.Savings = NormalizeOrZero(r.Savings)
}

// Validate runs the cross-field business rules on the current values.
func (r DailyRecord) Validate() error {
	if r.DailyBudget.IsNegative() {
		return &ValidationError{
			Field:   "daily_budget",
			Code:    CodeNegativeBudget,
			Message: "the daily budget cannot be negative",
		}
	}
	if r.DailyBudget.GreaterThan(MaxDailyBudget) {
		return &ValidationError{
			Field:   "daily_budget",
			Code:    CodeBudgetTooHigh,
			Message: "the daily budget is unrealistically high",
		}
	}
	if r.TotalExpense().GreaterThan(r.DailyBudget) {
		return &ValidationError{
			Code:    CodeExpensesExceedBudget,
			Message: "the sum of expenses cannot exceed the daily budget",
		}
	}
	return nil
}

// ExpectedLeftover is the leftover the save pipeline would store for the
// record's current values. Repair compares against it.
func (r DailyRecord) ExpectedLeftover() Money {
	return r.resolveLeftover()
}

func (r DailyRecord) resolveLeftover() Money {
	if LeftoverRequiresCompletion && !r.Completed {
		return Zero
	}
	if r.LeftoverFixed {
		return NormalizeOrZero(r.Leftover)
	}
	return ComputeLeftover(r.DailyBudget, r.Food, r.Savings, r.Products)
}

// =============================================================================
// FIX / UNFIX
// =============================================================================

// FixField toggles the fixed flag of f. A non-nil value is normalized and
// written before the toggle. Returns false (and changes nothing) for an
// unknown field. The caller is expected to save afterwards.
func (r *DailyRecord) FixField(f Field, value any) bool {
	s, ok := r.slot(f)
	if !ok {
		return false
	}
	if value != nil {
		*s.value = NormalizeOrZero(value)
	}
	*s.fixed = !*s.fixed
	return true
}

// =============================================================================
// INPUT - Raw collaborator values
// =============================================================================

// RecordInput carries raw, unsanitized values from a form or JSON body.
// A nil value means "not supplied".
type RecordInput struct {
	DailyBudget any
	Food        any
	Products    any
	Savings     any
	Leftover    any
	Comment     *string
}

// Apply merges in into the record. Each supplied value is normalized with
// the current value as fallback, so garbage keeps what was there. Pinned
// categories keep their value. Leftover is only taken when pinned, since
// otherwise the pipeline recomputes it.
func (r *DailyRecord) Apply(in RecordInput) {
	if in.DailyBudget != nil {
		r.DailyBudget = Normalize(in.DailyBudget, r.DailyBudget)
	}
	apply := func(f Field, raw any) {
		s, _ := r.slot(f)
		if raw == nil || *s.fixed {
			return
		}
		*s.value = Normalize(raw, *s.value)
	}
	apply(FieldFood, in.Food)
	apply(FieldProducts, in.Products)
	apply(FieldSavings, in.Savings)

	if in.Leftover != nil && r.LeftoverFixed {
		r.Leftover = Normalize(in.Leftover, r.Leftover)
	}
	if in.Comment != nil {
		r.Comment = *in.Comment
	}
}
