package repair

import (
	"context"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/warp/budget-engine/budget"
)

// =============================================================================
// COUNTERS
// =============================================================================

// Counters reports what a repair pass changed. The serialized names are
// the ones operators already know from the original reports.
type Counters struct {
	DatesOutOfRange     int `json:"fechas_fuera_de_rango" yaml:"fechas_fuera_de_rango"`
	DuplicatesRemoved   int `json:"duplicados_eliminados" yaml:"duplicados_eliminados"`
	LeftoversRecomputed int `json:"sobrantes_recalculados" yaml:"sobrantes_recalculados"`
	DecimalsFixed       int `json:"decimales_corregidos" yaml:"decimales_corregidos"`
	NegativesFixed      int `json:"valores_negativos_corregidos" yaml:"valores_negativos_corregidos"`
	RecordsUpdated      int `json:"registros_actualizados" yaml:"registros_actualizados"`
}

func (c *Counters) add(o Counters) {
	c.DatesOutOfRange += o.DatesOutOfRange
	c.DuplicatesRemoved += o.DuplicatesRemoved
	c.LeftoversRecomputed += o.LeftoversRecomputed
	c.DecimalsFixed += o.DecimalsFixed
	c.NegativesFixed += o.NegativesFixed
	c.RecordsUpdated += o.RecordsUpdated
}

// Changed reports whether anything was repaired.
func (c Counters) Changed() bool {
	return c != Counters{}
}

// GlobalSummary aggregates RepairAll over every user.
type GlobalSummary struct {
	UsersProcessed int `json:"usuarios_procesados" yaml:"usuarios_procesados"`
	TotalRecords   int `json:"total_registros" yaml:"total_registros"`
	Counters       `yaml:",inline"`
}

// =============================================================================
// REPAIR
// =============================================================================

// Repair runs the four passes over one user's rows, or everyone's when
// user is nil, and returns the counters.
func (e *Engine) Repair(ctx context.Context, user *budget.UserID, verbose bool) (Counters, error) {
	release := e.lock(user)
	defer release()

	counters, _, err := e.repair(ctx, user, verbose)
	return counters, err
}

// RepairAll repairs each user in turn. A user whose repair fails is
// logged and skipped.
func (e *Engine) RepairAll(ctx context.Context, verbose bool) (GlobalSummary, error) {
	release := e.lock(nil)
	defer release()

	users, err := e.store.ListUsers(ctx)
	if err != nil {
		return GlobalSummary{}, fmt.Errorf("failed to list users: %w", err)
	}

	var summary GlobalSummary
	for _, u := range users {
		user := u
		counters, scanned, err := e.repair(ctx, &user, verbose)
		if err != nil {
			e.logger.WithError(err).WithField("user", user).Warn("repair failed, skipping user")
			continue
		}
		summary.UsersProcessed++
		summary.TotalRecords += scanned
		summary.add(counters)
	}

	e.logger.WithFields(logrus.Fields{
		"users":   summary.UsersProcessed,
		"records": summary.TotalRecords,
		"updated": summary.RecordsUpdated,
	}).Info("global repair complete")
	return summary, nil
}

// repair expects the caller to hold the lock.
func (e *Engine) repair(ctx context.Context, user *budget.UserID, verbose bool) (Counters, int, error) {
	var (
		counters Counters
		scanned  int
	)
	err := e.store.WithRowTx(ctx, func(s budget.RowStore) error {
		rows, err := s.ScanRows(ctx, user)
		if err != nil {
			return fmt.Errorf("failed to scan records: %w", err)
		}
		starts, err := startDates(ctx, s)
		if err != nil {
			return err
		}
		scanned = len(rows)

		p := e.plan(rows, starts, verbose)
		counters = e.apply(ctx, s, p)
		return nil
	})
	if err != nil {
		return Counters{}, 0, err
	}

	if counters.DuplicatesRemoved > 0 {
		e.ensureDayIndex(ctx)
	}

	e.logger.WithFields(logrus.Fields{
		"scope":   scope(user),
		"records": scanned,
		"updated": counters.RecordsUpdated,
		"deleted": counters.DuplicatesRemoved,
	}).Info("repair complete")
	return counters, scanned, nil
}

func startDates(ctx context.Context, s budget.RowStore) (map[budget.UserID]budget.Date, error) {
	rows, err := s.ScanConfigRows(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to scan configs: %w", err)
	}
	starts := make(map[budget.UserID]budget.Date, len(rows))
	for _, row := range rows {
		cfg := budget.DecodeConfigRow(row)
		if cfg.HasStartDate() {
			starts[cfg.UserID] = cfg.RegistryStartDate
		}
	}
	return starts, nil
}

func (e *Engine) ensureDayIndex(ctx context.Context) {
	indexer, ok := e.store.(budget.DayIndexer)
	if !ok {
		return
	}
	if err := indexer.EnsureDayIndex(ctx); err != nil {
		e.logger.WithError(err).Warn("day index still missing after repair")
	}
}

// =============================================================================
// PLANNING
// =============================================================================

// plan is the set of writes a repair will attempt.
type plan struct {
	deletes []deletion
	updates []update
}

// deletion keeps the date clamp counted on a row that later lost to a
// duplicate.
type deletion struct {
	row   budget.Row
	delta Counters
}

// update carries the counters that become real only if the write succeeds.
type update struct {
	row   budget.Row
	delta Counters
}

// workRow is a row moving through the passes.
type workRow struct {
	row     budget.Row
	delta   Counters
	dirty   bool
	deleted bool
}

func (e *Engine) plan(rows []budget.Row, starts map[budget.UserID]budget.Date, verbose bool) plan {
	work := make([]*workRow, len(rows))
	for i, row := range rows {
		work[i] = &workRow{row: row}
	}

	e.clampDates(work, starts, verbose)
	deletes := e.dropDuplicates(work, verbose)
	for _, w := range work {
		if w.deleted {
			continue
		}
		e.normalizeRow(w, verbose)
		e.reconcileLeftover(w, verbose)
	}

	var p plan
	p.deletes = deletes
	for _, w := range work {
		if w.deleted || !w.dirty {
			continue
		}
		if w.delta.DecimalsFixed+w.delta.NegativesFixed+w.delta.LeftoversRecomputed > 0 {
			w.delta.RecordsUpdated = 1
		}
		p.updates = append(p.updates, update{row: w.row, delta: w.delta})
	}
	return p
}

func (e *Engine) rowLog(row budget.Row) *logrus.Entry {
	return e.logger.WithFields(logrus.Fields{
		"user":      row.UserID,
		"date":      row.Date,
		"record_id": row.ID,
	})
}

// clampDates is pass 1.
func (e *Engine) clampDates(work []*workRow, starts map[budget.UserID]budget.Date, verbose bool) {
	for _, w := range work {
		start, ok := starts[w.row.UserID]
		if !ok {
			continue
		}
		date, err := budget.ParseDate(w.row.Date)
		if err != nil {
			e.rowLog(w.row).WithError(err).Warn("unreadable date, skipping date clamp")
			continue
		}
		if !date.Before(start) {
			continue
		}
		e.note(verbose, e.rowLog(w.row).WithField("start", start.String()), "date before start date, clamping")
		w.row.Date = start.String()
		w.delta.DatesOutOfRange++
		w.dirty = true
	}
}

// dropDuplicates is pass 2. Rows are visited in ascending date order; the
// first row seen for a day is the incumbent and a later row replaces it
// only with a strictly larger sum.
func (e *Engine) dropDuplicates(work []*workRow, verbose bool) []deletion {
	order := make([]*workRow, len(work))
	copy(order, work)
	sort.SliceStable(order, func(i, j int) bool { return order[i].row.Date < order[j].row.Date })

	type dayKey struct {
		user budget.UserID
		date string
	}
	seen := make(map[dayKey]*workRow)
	var deletes []deletion

	for _, w := range order {
		k := dayKey{w.row.UserID, w.row.Date}
		incumbent, ok := seen[k]
		if !ok {
			seen[k] = w
			continue
		}

		loser := w
		if completeness(w.row).GreaterThan(completeness(incumbent.row)) {
			loser = incumbent
			seen[k] = w
			e.note(verbose, e.rowLog(w.row), "duplicate day, replacing with more complete record")
		} else {
			e.note(verbose, e.rowLog(w.row), "duplicate day, dropping less complete record")
		}
		loser.deleted = true
		deletes = append(deletes, deletion{
			row:   loser.row,
			delta: Counters{DatesOutOfRange: loser.delta.DatesOutOfRange},
		})
	}
	return deletes
}

// completeness is the sum that decides which duplicate survives.
func completeness(row budget.Row) budget.Money {
	return budget.NormalizeOrZero(row.Food).
		Add(budget.NormalizeOrZero(row.Products)).
		Add(budget.NormalizeOrZero(row.Savings)).
		Add(budget.NormalizeOrZero(row.DailyBudget))
}

// normalizeRow is pass 3.
func (e *Engine) normalizeRow(w *workRow, verbose bool) {
	fields := []*string{&w.row.Food, &w.row.Products, &w.row.Savings, &w.row.DailyBudget, &w.row.Leftover}
	names := []string{budget.ColumnFood, budget.ColumnProducts, budget.ColumnSavings, budget.ColumnDailyBudget, budget.ColumnLeftover}

	for i, field := range fields {
		flaw := budget.InspectRaw(*field)
		if flaw == 0 {
			continue
		}
		fixed := budget.NormalizeOrZero(*field).String()
		entry := e.rowLog(w.row).WithFields(logrus.Fields{"field": names[i], "from": *field, "to": fixed})
		if flaw.Has(budget.RawNegative) {
			w.delta.NegativesFixed++
			e.note(verbose, entry, "negative amount reset")
		} else {
			w.delta.DecimalsFixed++
			e.note(verbose, entry, "amount normalized")
		}
		*field = fixed
		w.dirty = true
	}
}

// reconcileLeftover is pass 4, using the same rule as the save pipeline.
func (e *Engine) reconcileLeftover(w *workRow, verbose bool) {
	if w.row.LeftoverFixed {
		return
	}
	rec, err := budget.DecodeRow(w.row)
	if err != nil {
		e.rowLog(w.row).WithError(err).Warn("unreadable record, skipping leftover check")
		return
	}
	expected := rec.ExpectedLeftover()
	if rec.Leftover.Equal(expected) {
		return
	}
	e.note(verbose, e.rowLog(w.row).WithFields(logrus.Fields{
		"from": rec.Leftover.String(),
		"to":   expected.String(),
	}), "leftover recomputed")
	w.row.Leftover = expected.String()
	w.delta.LeftoversRecomputed++
	w.dirty = true
}

// =============================================================================
// APPLY
// =============================================================================

// apply writes deletions first so updates never collide with a doomed
// duplicate. Failed writes are logged and left out of the counters.
func (e *Engine) apply(ctx context.Context, s budget.RowStore, p plan) Counters {
	var counters Counters

	for _, d := range p.deletes {
		if err := s.DeleteRow(ctx, d.row.ID); err != nil {
			e.rowLog(d.row).WithError(err).Warn("failed to delete duplicate, skipping")
			continue
		}
		counters.DuplicatesRemoved++
		counters.add(d.delta)
	}

	for _, u := range p.updates {
		if err := s.UpdateRow(ctx, u.row); err != nil {
			e.rowLog(u.row).WithError(err).Warn("failed to write repaired record, skipping")
			continue
		}
		counters.add(u.delta)
	}
	return counters
}
