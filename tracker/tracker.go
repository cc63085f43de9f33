/*
Package tracker is the service layer of the budget engine.

PURPOSE:
  Wraps a budget.TxStore with the operations the API and CLI need:
  user setup, config edits, the daily record save path, backfill of
  missing days, pending-day listing, dashboard totals, the month
  calendar and savings goals.

BACKFILL:
  Every day in [registry start date, today] must have a record. The
  tracker creates missing ones from the user's config defaults with
  completed=false. Creation is get-or-create: a lost insert race
  (budget.ErrDuplicateDay) re-fetches the winner.

TIME:
  "Today" comes from an injectable clock (WithClock) so tests can pin it.
  Dates are calendar days in the clock's location.

POLICY:
  WithStartDateLock(true) freezes the registry start date once set or
  once any record exists.

USAGE:
  t := tracker.New(store, tracker.WithLogger(logger))

  created, err := t.EnsureCoverage(ctx, user)
  days, msg, err := t.PendingDays(ctx, user)

SEE ALSO:
  - budget/record.go: save pipeline
  - budget/config.go: seeding from defaults
  - repair: offline diagnostics over the same store
*/
package tracker

import (
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/warp/budget-engine/budget"
)

// Messages returned alongside PendingDays.
const (
	MsgNoStartDate = "configure a start date to begin tracking expenses"
	MsgUpToDate    = "no pending days, you are up to date"
)

// Tracker is the record service.
type Tracker struct {
	store         budget.TxStore
	logger        *logrus.Logger
	now           func() time.Time
	lockStartDate bool
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithLogger sets the logger. The default discards output.
func WithLogger(l *logrus.Logger) Option {
	return func(t *Tracker) { t.logger = l }
}

// WithClock sets the time source used for "today".
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// WithStartDateLock enables or disables the start date lock.
func WithStartDateLock(lock bool) Option {
	return func(t *Tracker) { t.lockStartDate = lock }
}

// New creates a tracker over store. The start date lock is on by default.
func New(store budget.TxStore, opts ...Option) *Tracker {
	t := &Tracker{
		store:         store,
		now:           time.Now,
		lockStartDate: true,
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.logger == nil {
		t.logger = logrus.New()
		t.logger.SetOutput(io.Discard)
	}
	return t
}

// Today returns the current calendar day.
func (t *Tracker) Today() budget.Date {
	return budget.DateOf(t.now())
}

func (t *Tracker) log(user budget.UserID) *logrus.Entry {
	return t.logger.WithField("user", user)
}
