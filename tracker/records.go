package tracker

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/warp/budget-engine/budget"
)

// =============================================================================
// GET-OR-CREATE
// =============================================================================

// CreateOrGetRecord returns the record for (user, date), creating it when
// missing. A nil seed seeds from the user's config defaults. The bool
// reports whether this call created the record.
func (t *Tracker) CreateOrGetRecord(ctx context.Context, user budget.UserID, date budget.Date, seed *budget.DailyRecord) (budget.DailyRecord, bool, error) {
	rec, created, err := getOrCreate(ctx, t.store, user, date, seed)
	if err != nil {
		return budget.DailyRecord{}, false, err
	}
	if created {
		t.log(user).WithField("date", date.String()).Debug("record created")
	}
	return rec, created, nil
}

func getOrCreate(ctx context.Context, s budget.Store, user budget.UserID, date budget.Date, seed *budget.DailyRecord) (budget.DailyRecord, bool, error) {
	existing, err := s.GetRecord(ctx, user, date)
	if err != nil {
		return budget.DailyRecord{}, false, fmt.Errorf("failed to load record: %w", err)
	}
	if existing != nil {
		return *existing, false, nil
	}

	var rec budget.DailyRecord
	if seed != nil {
		rec = *seed
	} else {
		cfg, err := s.GetConfig(ctx, user)
		if err != nil {
			return budget.DailyRecord{}, false, fmt.Errorf("failed to load config: %w", err)
		}
		if cfg == nil {
			zero := budget.NewConfig(user)
			cfg = &zero
		}
		rec = cfg.SeedRecord(date)
	}
	rec.ID = budget.RecordID(uuid.NewString())
	rec.UserID = user
	rec.Date = date

	if err := rec.Reconcile(); err != nil {
		return budget.DailyRecord{}, false, err
	}

	err = s.CreateRecord(ctx, rec)
	if errors.Is(err, budget.ErrDuplicateDay) {
		// Lost the race; the other writer's record wins.
		winner, getErr := s.GetRecord(ctx, user, date)
		if getErr != nil {
			return budget.DailyRecord{}, false, fmt.Errorf("failed to reload record: %w", getErr)
		}
		if winner == nil {
			return budget.DailyRecord{}, false, err
		}
		return *winner, false, nil
	}
	if err != nil {
		return budget.DailyRecord{}, false, fmt.Errorf("failed to create record: %w", err)
	}
	return rec, true, nil
}

// =============================================================================
// SAVE
// =============================================================================

// SaveRecord runs the save pipeline and persists the record. A record
// without an ID takes over the stored record for its day, if any.
// Saving the returned record again yields the same values.
func (t *Tracker) SaveRecord(ctx context.Context, rec budget.DailyRecord) (budget.DailyRecord, error) {
	if err := rec.Reconcile(); err != nil {
		return budget.DailyRecord{}, err
	}

	err := t.store.WithTx(ctx, func(s budget.Store) error {
		return saveRecord(ctx, s, &rec)
	})
	if err != nil {
		return budget.DailyRecord{}, err
	}
	return rec, nil
}

// saveRecord persists an already reconciled record.
func saveRecord(ctx context.Context, s budget.Store, rec *budget.DailyRecord) error {
	if rec.ID == "" {
		existing, err := s.GetRecord(ctx, rec.UserID, rec.Date)
		if err != nil {
			return fmt.Errorf("failed to load record: %w", err)
		}
		if existing == nil {
			rec.ID = budget.RecordID(uuid.NewString())
			return s.CreateRecord(ctx, *rec)
		}
		rec.ID = existing.ID
		rec.CreatedAt = existing.CreatedAt
	}
	if err := s.UpdateRecord(ctx, *rec); err != nil {
		return fmt.Errorf("failed to save record %s: %w", rec.ID, err)
	}
	return nil
}

// =============================================================================
// FIX / UNFIX
// =============================================================================

// FixField toggles the fixed flag of a field on the day's record, writing
// value first when given, and saves. An unknown field name changes
// nothing and returns the stored record (zero if none).
func (t *Tracker) FixField(ctx context.Context, user budget.UserID, date budget.Date, fieldName string, value any) (budget.DailyRecord, error) {
	f, ok := budget.ParseField(fieldName)
	if !ok {
		t.log(user).WithField("field", fieldName).Debug("fix ignored: unknown field")
		existing, err := t.store.GetRecord(ctx, user, date)
		if err != nil || existing == nil {
			return budget.DailyRecord{}, err
		}
		return *existing, nil
	}

	var rec budget.DailyRecord
	err := t.store.WithTx(ctx, func(s budget.Store) error {
		var err error
		rec, _, err = getOrCreate(ctx, s, user, date, nil)
		if err != nil {
			return err
		}
		rec.FixField(f, value)
		if err := rec.Reconcile(); err != nil {
			return err
		}
		return saveRecord(ctx, s, &rec)
	})
	if err != nil {
		return budget.DailyRecord{}, err
	}

	t.log(user).WithFields(logrus.Fields{
		"date":  date.String(),
		"field": f.String(),
		"fixed": rec.IsFixed(f),
	}).Info("field pin toggled")
	return rec, nil
}

// =============================================================================
// DAY ENTRY
// =============================================================================

// CompleteDay fills in a pending day and marks it completed. The day must
// lie in [start date, today] and must not be completed already.
func (t *Tracker) CompleteDay(ctx context.Context, user budget.UserID, date budget.Date, in budget.RecordInput) (budget.DailyRecord, error) {
	var rec budget.DailyRecord
	err := t.store.WithTx(ctx, func(s budget.Store) error {
		cfg, err := requireConfig(ctx, s, user)
		if err != nil {
			return err
		}
		if !cfg.HasStartDate() {
			return budget.ErrStartDateNotSet
		}
		if date.Before(cfg.RegistryStartDate) || date.After(t.Today()) {
			return fmt.Errorf("%w: %s", budget.ErrDateOutOfRange, date)
		}

		rec, _, err = getOrCreate(ctx, s, user, date, nil)
		if err != nil {
			return err
		}
		if rec.Completed {
			return budget.ErrAlreadyCompleted
		}
		return applyAndComplete(ctx, s, &rec, in)
	})
	if err != nil {
		return budget.DailyRecord{}, err
	}

	t.log(user).WithFields(logrus.Fields{
		"date":     date.String(),
		"leftover": rec.Leftover.String(),
	}).Info("pending day completed")
	return rec, nil
}

// SaveDay records a day's figures and marks it completed, creating the
// record if needed. Unlike CompleteDay it also edits completed days.
// Future days are rejected.
func (t *Tracker) SaveDay(ctx context.Context, user budget.UserID, date budget.Date, in budget.RecordInput) (budget.DailyRecord, error) {
	if date.IsZero() || date.After(t.Today()) {
		return budget.DailyRecord{}, fmt.Errorf("%w: %s", budget.ErrDateOutOfRange, date)
	}

	var rec budget.DailyRecord
	err := t.store.WithTx(ctx, func(s budget.Store) error {
		var err error
		rec, _, err = getOrCreate(ctx, s, user, date, nil)
		if err != nil {
			return err
		}
		return applyAndComplete(ctx, s, &rec, in)
	})
	if err != nil {
		return budget.DailyRecord{}, err
	}

	t.log(user).WithField("date", date.String()).Info("day saved")
	return rec, nil
}

func applyAndComplete(ctx context.Context, s budget.Store, rec *budget.DailyRecord, in budget.RecordInput) error {
	rec.Apply(in)
	rec.Completed = true
	if err := rec.Reconcile(); err != nil {
		return err
	}
	return saveRecord(ctx, s, rec)
}

// =============================================================================
// LOOKUP
// =============================================================================

// GetRecord returns the day's record or budget.ErrRecordNotFound.
func (t *Tracker) GetRecord(ctx context.Context, user budget.UserID, date budget.Date) (budget.DailyRecord, error) {
	rec, err := t.store.GetRecord(ctx, user, date)
	if err != nil {
		return budget.DailyRecord{}, fmt.Errorf("failed to load record: %w", err)
	}
	if rec == nil {
		return budget.DailyRecord{}, budget.ErrRecordNotFound
	}
	return *rec, nil
}

// ListRecords returns the user's records in [from, to]; zero bounds are open.
func (t *Tracker) ListRecords(ctx context.Context, user budget.UserID, from, to budget.Date) ([]budget.DailyRecord, error) {
	records, err := t.store.ListRecords(ctx, user, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	return records, nil
}
