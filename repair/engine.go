/*
Package repair diagnoses and repairs corrupt daily records.

PURPOSE:
  Legacy data can hold anything: dates before the user's start date,
  several records for one day, NaN or negative amounts, amounts with
  extra decimals, leftovers that no longer match the figures. This
  package scans raw rows (budget.Row) and fixes them deterministically.

OPERATIONS:
  Diagnose:      Read-only count of problems
  Verify:        Read-only list of problems, one line each
  Repair:        Four ordered passes over one user or everyone
  RepairAll:     Repair per user with an aggregate summary
  RepairConfigs: Rewrite corrupt config amounts
  FindGhosts /
  DeleteGhosts:  Incomplete all-zero records with a stale leftover

REPAIR PASSES (strict order, each assumes the previous ran):
  1. Date clamp:     date before the start date -> start date
  2. Duplicates:     one row per (user, date); the larger
                     food+products+savings+budget sum survives,
                     first seen wins ties
  3. Normalization:  every amount back to finite, >= 0, two decimals
  4. Leftover:       non-fixed leftovers recomputed with the save rule

  Passes 1-4 are planned in memory, then applied in one row transaction.
  A row that fails to plan or write is logged and skipped; its
  corrections are left out of the counters.

LOCKING:
  Repair for a user holds that user's lock. Repair over everyone,
  RepairAll, RepairConfigs and DeleteGhosts hold the global lock, which
  excludes every per-user repair. Read-only operations take no lock.

SEE ALSO:
  - budget/row.go: raw row format
  - budget/normalize.go: InspectRaw flaws
  - cmd/budgetctl: operator commands
*/
package repair

import (
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/warp/budget-engine/budget"
)

// Engine runs diagnostics and repairs over a maintenance store.
type Engine struct {
	store  budget.MaintenanceStore
	logger *logrus.Logger
	now    func() time.Time

	global  sync.RWMutex
	usersMu sync.Mutex
	users   map[budget.UserID]*sync.Mutex
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. The default discards output.
func WithLogger(l *logrus.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithClock sets the time source used for "today".
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New creates an engine over store.
func New(store budget.MaintenanceStore, opts ...Option) *Engine {
	e := &Engine{
		store: store,
		now:   time.Now,
		users: make(map[budget.UserID]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = logrus.New()
		e.logger.SetOutput(io.Discard)
	}
	return e
}

func (e *Engine) today() budget.Date {
	return budget.DateOf(e.now())
}

// lock takes the lock for a repair scope and returns its release.
// A nil user means every user.
func (e *Engine) lock(user *budget.UserID) func() {
	if user == nil {
		e.global.Lock()
		return e.global.Unlock
	}

	e.global.RLock()
	e.usersMu.Lock()
	mu, ok := e.users[*user]
	if !ok {
		mu = &sync.Mutex{}
		e.users[*user] = mu
	}
	e.usersMu.Unlock()

	mu.Lock()
	return func() {
		mu.Unlock()
		e.global.RUnlock()
	}
}

// note logs a correction at Info in verbose mode, Debug otherwise.
func (e *Engine) note(verbose bool, entry *logrus.Entry, msg string) {
	if verbose {
		entry.Info(msg)
		return
	}
	entry.Debug(msg)
}

func scope(user *budget.UserID) string {
	if user == nil {
		return "all"
	}
	return string(*user)
}
