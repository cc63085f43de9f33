/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

MONEY:
  Amounts go out as strings with two decimals ("12.50"). Amounts come in as
  raw JSON values (number, string, null) and are normalized by the domain,
  so a garbage value degrades to a default instead of failing the request.

VALIDATION:
  Validation is done in the domain, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - budget/normalize.go: Raw amount handling
*/
package api

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/warp/budget-engine/budget"
	"github.com/warp/budget-engine/repair"
	"github.com/warp/budget-engine/tracker"
)

// =============================================================================
// CONFIG
// =============================================================================

// ConfigDTO represents a user's financial config.
type ConfigDTO struct {
	UserID               string       `json:"user_id"`
	DailyBudget          budget.Money `json:"daily_budget"`
	DefaultFood          budget.Money `json:"default_food"`
	DefaultProducts      budget.Money `json:"default_products"`
	DefaultSavings       budget.Money `json:"default_savings"`
	DefaultLeftover      budget.Money `json:"default_leftover"`
	DefaultFoodFixed     bool         `json:"default_food_fixed"`
	DefaultProductsFixed bool         `json:"default_products_fixed"`
	DefaultSavingsFixed  bool         `json:"default_savings_fixed"`
	DefaultLeftoverFixed bool         `json:"default_leftover_fixed"`
	RegistryStartDate    string       `json:"registry_start_date,omitempty"`
	UpdatedAt            string       `json:"updated_at,omitempty"`
}

func toConfigDTO(c budget.Config) ConfigDTO {
	dto := ConfigDTO{
		UserID:               string(c.UserID),
		DailyBudget:          c.DailyBudget,
		DefaultFood:          c.DefaultFood,
		DefaultProducts:      c.DefaultProducts,
		DefaultSavings:       c.DefaultSavings,
		DefaultLeftover:      c.DefaultLeftover,
		DefaultFoodFixed:     c.DefaultFoodFixed,
		DefaultProductsFixed: c.DefaultProductsFixed,
		DefaultSavingsFixed:  c.DefaultSavingsFixed,
		DefaultLeftoverFixed: c.DefaultLeftoverFixed,
	}
	if c.HasStartDate() {
		dto.RegistryStartDate = c.RegistryStartDate.String()
	}
	if !c.UpdatedAt.IsZero() {
		dto.UpdatedAt = c.UpdatedAt.Format(time.RFC3339)
	}
	return dto
}

// UpdateBudgetRequest sets the daily budget.
type UpdateBudgetRequest struct {
	DailyBudget json.RawMessage `json:"daily_budget"`
}

// SetDefaultRequest sets one category default.
type SetDefaultRequest struct {
	Value json.RawMessage `json:"value"`
	Fixed bool            `json:"fixed"`
}

// SetStartDateRequest sets the registry start date.
type SetStartDateRequest struct {
	Date string `json:"date"`
}

// =============================================================================
// RECORDS
// =============================================================================

// RecordDTO represents one day's record.
type RecordDTO struct {
	ID            string       `json:"id"`
	UserID        string       `json:"user_id"`
	Date          string       `json:"date"`
	DailyBudget   budget.Money `json:"daily_budget"`
	Food          budget.Money `json:"food"`
	Products      budget.Money `json:"products"`
	Savings       budget.Money `json:"savings"`
	Leftover      budget.Money `json:"leftover"`
	TotalExpense  budget.Money `json:"total_expense"`
	FoodFixed     bool         `json:"food_fixed"`
	ProductsFixed bool         `json:"products_fixed"`
	SavingsFixed  bool         `json:"savings_fixed"`
	LeftoverFixed bool         `json:"leftover_fixed"`
	Completed     bool         `json:"completed"`
	Comment       string       `json:"comment,omitempty"`
}

func toRecordDTO(r budget.DailyRecord) RecordDTO {
	return RecordDTO{
		ID:            string(r.ID),
		UserID:        string(r.UserID),
		Date:          r.Date.String(),
		DailyBudget:   r.DailyBudget,
		Food:          r.Food,
		Products:      r.Products,
		Savings:       r.Savings,
		Leftover:      r.Leftover,
		TotalExpense:  r.TotalExpense(),
		FoodFixed:     r.FoodFixed,
		ProductsFixed: r.ProductsFixed,
		SavingsFixed:  r.SavingsFixed,
		LeftoverFixed: r.LeftoverFixed,
		Completed:     r.Completed,
		Comment:       r.Comment,
	}
}

func toRecordDTOs(records []budget.DailyRecord) []RecordDTO {
	dtos := make([]RecordDTO, 0, len(records))
	for _, r := range records {
		dtos = append(dtos, toRecordDTO(r))
	}
	return dtos
}

// DayRequest carries raw day values. Absent fields are left alone.
type DayRequest struct {
	DailyBudget json.RawMessage `json:"daily_budget,omitempty"`
	Food        json.RawMessage `json:"food,omitempty"`
	Products    json.RawMessage `json:"products,omitempty"`
	Savings     json.RawMessage `json:"savings,omitempty"`
	Leftover    json.RawMessage `json:"leftover,omitempty"`
	Comment     *string         `json:"comment,omitempty"`
}

func (d DayRequest) toInput() budget.RecordInput {
	return budget.RecordInput{
		DailyBudget: rawValue(d.DailyBudget),
		Food:        rawValue(d.Food),
		Products:    rawValue(d.Products),
		Savings:     rawValue(d.Savings),
		Leftover:    rawValue(d.Leftover),
		Comment:     d.Comment,
	}
}

// FixFieldRequest toggles a field pin, optionally writing a value first.
type FixFieldRequest struct {
	Field string          `json:"field"`
	Value json.RawMessage `json:"value,omitempty"`
}

// rawValue decodes a raw JSON amount into the loose value the normalizer
// accepts. Absent and null both mean nil ("not supplied"). Numbers stay
// json.Number so amounts never pass through a float.
func rawValue(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return string(raw)
	}
	return v
}

// =============================================================================
// COVERAGE, SUMMARY, CALENDAR
// =============================================================================

// CoverageDTO reports a backfill.
type CoverageDTO struct {
	Created int `json:"created"`
}

// PendingDTO lists incomplete days.
type PendingDTO struct {
	Days    []string `json:"days"`
	Message string   `json:"message,omitempty"`
}

func toPendingDTO(days []budget.Date, msg string) PendingDTO {
	dto := PendingDTO{Days: make([]string, 0, len(days)), Message: msg}
	for _, d := range days {
		dto.Days = append(dto.Days, d.String())
	}
	return dto
}

// SummaryDTO is the dashboard view.
type SummaryDTO struct {
	DailyBudget   budget.Money `json:"daily_budget"`
	TotalSpent    budget.Money `json:"total_spent"`
	TotalLeftover budget.Money `json:"total_leftover"`
	Pending       PendingDTO   `json:"pending"`
	Today         string       `json:"today"`
	TodayRecord   *RecordDTO   `json:"today_record,omitempty"`
}

func toSummaryDTO(s tracker.Summary) SummaryDTO {
	dto := SummaryDTO{
		DailyBudget:   s.DailyBudget,
		TotalSpent:    s.TotalSpent,
		TotalLeftover: s.TotalLeftover,
		Pending:       toPendingDTO(s.PendingDays, s.PendingMessage),
		Today:         s.Today.String(),
	}
	if s.TodayRecord != nil {
		rec := toRecordDTO(*s.TodayRecord)
		dto.TodayRecord = &rec
	}
	return dto
}

// MonthRefDTO identifies a month for navigation.
type MonthRefDTO struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

// CalendarDayDTO is one day cell.
type CalendarDayDTO struct {
	Date      string     `json:"date"`
	Completed bool       `json:"completed"`
	Record    *RecordDTO `json:"record,omitempty"`
}

// CalendarDTO is a month of tracked days.
type CalendarDTO struct {
	Year     int              `json:"year"`
	Month    int              `json:"month"`
	Days     []CalendarDayDTO `json:"days"`
	Prev     MonthRefDTO      `json:"prev"`
	Next     MonthRefDTO      `json:"next"`
	ShowPrev bool             `json:"show_prev"`
	Today    string           `json:"today"`
}

func toCalendarDTO(v tracker.MonthView) CalendarDTO {
	dto := CalendarDTO{
		Year:     v.Year,
		Month:    int(v.Month),
		Days:     make([]CalendarDayDTO, 0, len(v.Days)),
		Prev:     MonthRefDTO{Year: v.Prev.Year, Month: int(v.Prev.Month)},
		Next:     MonthRefDTO{Year: v.Next.Year, Month: int(v.Next.Month)},
		ShowPrev: v.ShowPrev,
		Today:    v.Today.String(),
	}
	for _, d := range v.Days {
		day := CalendarDayDTO{Date: d.Date.String(), Completed: d.Completed}
		if d.Record != nil {
			rec := toRecordDTO(*d.Record)
			day.Record = &rec
		}
		dto.Days = append(dto.Days, day)
	}
	return dto
}

// =============================================================================
// GOALS
// =============================================================================

// GoalDTO represents a savings goal.
type GoalDTO struct {
	ID            string       `json:"id"`
	Name          string       `json:"name"`
	TargetAmount  budget.Money `json:"target_amount"`
	CurrentAmount budget.Money `json:"current_amount"`
	Progress      string       `json:"progress"`
	Completed     bool         `json:"completed"`
	CreatedDate   string       `json:"created_date"`
}

func toGoalDTO(g budget.SavingsGoal) GoalDTO {
	return GoalDTO{
		ID:            string(g.ID),
		Name:          g.Name,
		TargetAmount:  g.TargetAmount,
		CurrentAmount: g.CurrentAmount,
		Progress:      g.Progress().StringFixed(2),
		Completed:     g.Completed,
		CreatedDate:   g.CreatedDate.String(),
	}
}

// CreateGoalRequest creates a savings goal.
type CreateGoalRequest struct {
	Name          string          `json:"name"`
	TargetAmount  json.RawMessage `json:"target_amount"`
	CurrentAmount json.RawMessage `json:"current_amount,omitempty"`
}

// ContributeRequest adds to a goal.
type ContributeRequest struct {
	Amount json.RawMessage `json:"amount"`
}

// =============================================================================
// ADMIN
// =============================================================================

// RepairRequest selects the repair scope. An empty user repairs everyone.
type RepairRequest struct {
	User    string `json:"user,omitempty"`
	Verbose bool   `json:"verbose"`
}

// RepairDTO reports a single-scope repair.
type RepairDTO struct {
	Scope    string          `json:"scope"`
	Counters repair.Counters `json:"counters"`
}

// GhostsDTO reports ghost records, found or deleted.
type GhostsDTO struct {
	Records []RecordDTO `json:"records,omitempty"`
	Deleted int         `json:"deleted"`
}

// ErrorResponse is returned for all errors.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Field   string `json:"field,omitempty"`
	Details string `json:"details,omitempty"`
}
