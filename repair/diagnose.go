package repair

import (
	"context"
	"fmt"

	"github.com/warp/budget-engine/budget"
)

// Diagnosis is the read-only problem count for a scope.
type Diagnosis struct {
	TotalRecords   int `json:"total_records" yaml:"total_records"`
	ErrorsDetected int `json:"errors_detected" yaml:"errors_detected"`
}

// Diagnose counts problems without changing anything. Per row it counts
// a date that is unparseable, in the future or before 2000; per amount a
// value that is unparseable, negative or has extra decimals (a negative
// value with extra decimals counts twice); and a negative leftover once
// more on top.
func (e *Engine) Diagnose(ctx context.Context, user *budget.UserID) (Diagnosis, error) {
	rows, err := e.store.ScanRows(ctx, user)
	if err != nil {
		return Diagnosis{}, fmt.Errorf("failed to scan records: %w", err)
	}

	today := e.today()
	d := Diagnosis{TotalRecords: len(rows)}
	for _, row := range rows {
		d.ErrorsDetected += dateErrors(row.Date, today)

		for _, col := range row.MoneyColumns() {
			flaw := budget.InspectRaw(col.Value)
			switch {
			case flaw.Has(budget.RawUnparseable):
				d.ErrorsDetected++
				continue
			case flaw.Has(budget.RawNegative):
				d.ErrorsDetected++
			}
			if flaw.Has(budget.RawUnquantized) {
				d.ErrorsDetected++
			}
		}

		if budget.InspectRaw(row.Leftover).Has(budget.RawNegative) {
			d.ErrorsDetected++
		}
	}

	e.logger.WithField("scope", scope(user)).
		WithField("total_records", d.TotalRecords).
		WithField("errors_detected", d.ErrorsDetected).
		Debug("diagnosis complete")
	return d, nil
}

func dateErrors(raw string, today budget.Date) int {
	date, err := budget.ParseDate(raw)
	if err != nil {
		return 1
	}
	if date.After(today) || date.Year() < budget.MinYear {
		return 1
	}
	return 0
}
