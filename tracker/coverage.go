package tracker

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/warp/budget-engine/budget"
)

// =============================================================================
// BACKFILL
// =============================================================================

// EnsureCoverage creates every missing record in [start date, today] from
// the config defaults, all incomplete, inside one transaction. Returns the
// number created; 0 when no start date is configured. Idempotent.
func (t *Tracker) EnsureCoverage(ctx context.Context, user budget.UserID) (int, error) {
	created := 0
	err := t.store.WithTx(ctx, func(s budget.Store) error {
		created = 0

		cfg, err := s.GetConfig(ctx, user)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if cfg == nil || !cfg.HasStartDate() {
			return nil
		}

		days := budget.DateRange(cfg.RegistryStartDate, t.Today())
		if len(days) == 0 {
			return nil
		}

		existing, err := s.ListRecords(ctx, user, days[0], days[len(days)-1])
		if err != nil {
			return fmt.Errorf("failed to list records: %w", err)
		}
		have := make(map[budget.Date]bool, len(existing))
		for _, rec := range existing {
			have[rec.Date] = true
		}

		for _, day := range days {
			if have[day] {
				continue
			}
			seed := cfg.SeedRecord(day)
			_, isNew, err := getOrCreate(ctx, s, user, day, &seed)
			if err != nil {
				return fmt.Errorf("failed to backfill %s: %w", day, err)
			}
			if isNew {
				created++
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	if created > 0 {
		t.log(user).WithField("created", created).Info("backfilled missing days")
	}
	return created, nil
}

// PendingDays lists the days in [start date, today] that have no completed
// record, ascending. The message explains an empty result.
func (t *Tracker) PendingDays(ctx context.Context, user budget.UserID) ([]budget.Date, string, error) {
	cfg, err := t.store.GetConfig(ctx, user)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load config: %w", err)
	}
	if cfg == nil || !cfg.HasStartDate() {
		return nil, MsgNoStartDate, nil
	}

	days := budget.DateRange(cfg.RegistryStartDate, t.Today())
	if len(days) == 0 {
		return nil, MsgUpToDate, nil
	}

	records, err := t.store.ListRecords(ctx, user, days[0], days[len(days)-1])
	if err != nil {
		return nil, "", fmt.Errorf("failed to list records: %w", err)
	}
	completed := make(map[budget.Date]bool, len(records))
	for _, rec := range records {
		if rec.Completed {
			completed[rec.Date] = true
		}
	}

	var pending []budget.Date
	for _, day := range days {
		if day.IsZero() || completed[day] {
			continue
		}
		pending = append(pending, day)
	}
	if len(pending) == 0 {
		return nil, MsgUpToDate, nil
	}
	return pending, "", nil
}

// =============================================================================
// DASHBOARD
// =============================================================================

// Summary is the dashboard view of a user's budget.
type Summary struct {
	DailyBudget    budget.Money
	TotalSpent     budget.Money // expenses over every record
	TotalLeftover  budget.Money // leftover over completed days with a budget
	PendingDays    []budget.Date
	PendingMessage string
	Today          budget.Date
	TodayRecord    *budget.DailyRecord
}

// Summary computes the dashboard totals.
func (t *Tracker) Summary(ctx context.Context, user budget.UserID) (Summary, error) {
	cfg, err := requireConfig(ctx, t.store, user)
	if err != nil {
		return Summary{}, err
	}

	pending, msg, err := t.PendingDays(ctx, user)
	if err != nil {
		return Summary{}, err
	}

	records, err := t.store.ListRecords(ctx, user, budget.Date{}, budget.Date{})
	if err != nil {
		return Summary{}, fmt.Errorf("failed to list records: %w", err)
	}

	today := t.Today()
	sum := Summary{
		DailyBudget:    cfg.DailyBudget,
		TotalSpent:     budget.Zero,
		TotalLeftover:  budget.Zero,
		PendingDays:    pending,
		PendingMessage: msg,
		Today:          today,
	}
	for i, rec := range records {
		sum.TotalSpent = sum.TotalSpent.Add(rec.TotalExpense())
		if rec.Completed && rec.DailyBudget.IsPositive() {
			sum.TotalLeftover = sum.TotalLeftover.Add(budget.NormalizeOrZero(rec.Leftover))
		}
		if rec.Date.Equal(today) {
			sum.TodayRecord = &records[i]
		}
	}
	return sum, nil
}

// =============================================================================
// CALENDAR
// =============================================================================

// YearMonth identifies a calendar month.
type YearMonth struct {
	Year  int
	Month time.Month
}

// CalendarDay is one in-range day of a month view.
type CalendarDay struct {
	Date      budget.Date
	Record    *budget.DailyRecord
	Completed bool
}

// MonthView is a month of tracked days plus navigation.
type MonthView struct {
	YearMonth
	Days     []CalendarDay
	Prev     YearMonth
	Next     YearMonth
	ShowPrev bool // Prev is not before the start date's month
	Today    budget.Date
}

// Month backfills, then returns the month's days that lie in
// [start date, today]. A month of 0 or 13 rolls into the neighbouring year.
func (t *Tracker) Month(ctx context.Context, user budget.UserID, year, month int) (MonthView, error) {
	cfg, err := requireConfig(ctx, t.store, user)
	if err != nil {
		return MonthView{}, err
	}
	if !cfg.HasStartDate() {
		return MonthView{}, budget.ErrStartDateNotSet
	}
	if _, err := t.EnsureCoverage(ctx, user); err != nil {
		return MonthView{}, err
	}

	today := t.Today()
	if year == 0 {
		year = today.Year()
	}
	if month < 1 {
		month = 12
		year--
	} else if month > 12 {
		month = 1
		year++
	}
	current := YearMonth{Year: year, Month: time.Month(month)}

	first := budget.StartOfMonth(current.Year, current.Month)
	last := budget.EndOfMonth(current.Year, current.Month)
	records, err := t.store.ListRecords(ctx, user, first, last)
	if err != nil {
		return MonthView{}, fmt.Errorf("failed to list records: %w", err)
	}
	byDate := make(map[budget.Date]*budget.DailyRecord, len(records))
	for i := range records {
		byDate[records[i].Date] = &records[i]
	}

	view := MonthView{
		YearMonth: current,
		Prev:      shiftMonth(current, -1),
		Next:      shiftMonth(current, 1),
		Today:     today,
	}
	start := cfg.RegistryStartDate
	view.ShowPrev = view.Prev.Year > start.Year() ||
		(view.Prev.Year == start.Year() && view.Prev.Month >= start.Month())

	for _, day := range budget.DateRange(first, last) {
		if day.Before(start) || day.After(today) {
			continue
		}
		cd := CalendarDay{Date: day, Record: byDate[day]}
		if cd.Record != nil {
			cd.Completed = cd.Record.Completed
		}
		view.Days = append(view.Days, cd)
	}

	t.log(user).WithFields(logrus.Fields{
		"year":  current.Year,
		"month": int(current.Month),
		"days":  len(view.Days),
	}).Debug("month view built")
	return view, nil
}

func shiftMonth(ym YearMonth, delta int) YearMonth {
	d := budget.StartOfMonth(ym.Year, ym.Month).AddMonths(delta)
	return YearMonth{Year: d.Year(), Month: d.Month()}
}
