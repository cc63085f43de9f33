package repair

import (
	"context"
	"fmt"

	"github.com/warp/budget-engine/budget"
)

// FindGhosts returns records that were never completed, have no budget
// or expenses, and still carry a non-zero leftover.
func (e *Engine) FindGhosts(ctx context.Context, user *budget.UserID) ([]budget.DailyRecord, error) {
	rows, err := e.store.ScanRows(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("failed to scan records: %w", err)
	}
	return ghosts(rows), nil
}

// DeleteGhosts removes the records FindGhosts reports and returns how
// many were deleted.
func (e *Engine) DeleteGhosts(ctx context.Context, user *budget.UserID) (int, error) {
	release := e.lock(nil)
	defer release()

	deleted := 0
	err := e.store.WithRowTx(ctx, func(s budget.RowStore) error {
		deleted = 0
		rows, err := s.ScanRows(ctx, user)
		if err != nil {
			return fmt.Errorf("failed to scan records: %w", err)
		}
		for _, rec := range ghosts(rows) {
			if err := s.DeleteRow(ctx, rec.ID); err != nil {
				e.logger.WithError(err).WithField("record_id", rec.ID).Warn("failed to delete ghost record, skipping")
				continue
			}
			e.logger.WithField("user", rec.UserID).
				WithField("date", rec.Date.String()).
				WithField("leftover", rec.Leftover.String()).
				Info("ghost record deleted")
			deleted++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}

func ghosts(rows []budget.Row) []budget.DailyRecord {
	var result []budget.DailyRecord
	for _, row := range rows {
		rec, err := budget.DecodeRow(row)
		if err != nil {
			continue
		}
		if rec.IsGhost() {
			result = append(result, rec)
		}
	}
	return result
}
