package repair

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/warp/budget-engine/budget"
)

// RepairConfigs rewrites corrupt config amounts (NULL, blank, NaN, None,
// placeholders, negatives, extra decimals) with their normalized value.
// Returns the number of amounts fixed.
func (e *Engine) RepairConfigs(ctx context.Context, verbose bool) (int, error) {
	release := e.lock(nil)
	defer release()

	fixed := 0
	err := e.store.WithRowTx(ctx, func(s budget.RowStore) error {
		fixed = 0
		rows, err := s.ScanConfigRows(ctx)
		if err != nil {
			return fmt.Errorf("failed to scan configs: %w", err)
		}

		for _, row := range rows {
			n := e.normalizeConfigRow(&row, verbose)
			if n == 0 {
				continue
			}
			if err := s.UpdateConfigRow(ctx, row); err != nil {
				e.logger.WithError(err).WithField("user", row.UserID).Warn("failed to write repaired config, skipping")
				continue
			}
			fixed += n
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	e.logger.WithField("fixed", fixed).Info("config repair complete")
	return fixed, nil
}

func (e *Engine) normalizeConfigRow(row *budget.ConfigRow, verbose bool) int {
	fields := []struct {
		name  string
		value *string
	}{
		{"daily_budget", &row.DailyBudget},
		{"default_food", &row.DefaultFood},
		{"default_products", &row.DefaultProducts},
		{"default_savings", &row.DefaultSavings},
		{"default_leftover", &row.DefaultLeftover},
	}

	n := 0
	for _, f := range fields {
		if budget.InspectRaw(*f.value) == 0 {
			continue
		}
		to := budget.NormalizeOrZero(*f.value).String()
		e.note(verbose, e.logger.WithFields(logrus.Fields{
			"user":  row.UserID,
			"field": f.name,
			"from":  *f.value,
			"to":    to,
		}), "config amount normalized")
		*f.value = to
		n++
	}
	return n
}
