/*
handlers.go - HTTP API handlers for the budget engine

PURPOSE:
  Exposes the tracker and the repair engine via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Users:
    POST   /api/users                                 Create user (and config)

  Config:
    GET    /api/users/{user}/config                   Get config
    PUT    /api/users/{user}/config/budget            Set daily budget
    PUT    /api/users/{user}/config/defaults/{field}  Set a category default
    PUT    /api/users/{user}/config/start-date        Set registry start date

  Records:
    GET    /api/users/{user}/records                  List (?from=&to=)
    GET    /api/users/{user}/records/{date}           Get one day
    PUT    /api/users/{user}/records/{date}           Save a day
    POST   /api/users/{user}/records/{date}/complete  Complete a pending day
    POST   /api/users/{user}/records/{date}/fix       Toggle a field pin

  Tracking:
    POST   /api/users/{user}/coverage                 Backfill missing days
    GET    /api/users/{user}/pending                  Pending days
    GET    /api/users/{user}/summary                  Dashboard totals
    GET    /api/users/{user}/calendar                 Month view (?year=&month=)

  Goals:
    GET    /api/users/{user}/goals                    List goals
    POST   /api/users/{user}/goals                    Create goal
    GET    /api/users/{user}/goals/{id}               Get goal
    POST   /api/users/{user}/goals/{id}/contribute    Add to a goal

  Admin:
    GET    /api/admin/diagnose                        Count problems (?user=)
    GET    /api/admin/verify                          List problems (?user=)
    POST   /api/admin/repair                          Repair one user or all
    POST   /api/admin/repair-configs                  Repair config amounts
    GET    /api/admin/ghosts                          List ghost records
    DELETE /api/admin/ghosts                          Delete ghost records

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input, out-of-range dates
  - 404: Config, record or goal not found
  - 409: Start date locked, day already completed
  - 500: Internal errors

SECURITY NOTE:
  No authentication. The user ID in the path is trusted.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/warp/budget-engine/budget"
	"github.com/warp/budget-engine/repair"
	"github.com/warp/budget-engine/tracker"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Tracker *tracker.Tracker
	Engine  *repair.Engine
	Logger  *logrus.Logger
}

// NewHandler creates a new handler. A nil logger is replaced with the
// standard logrus logger.
func NewHandler(t *tracker.Tracker, e *repair.Engine, logger *logrus.Logger) *Handler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Handler{Tracker: t, Engine: e, Logger: logger}
}

// =============================================================================
// USER ENDPOINTS
// =============================================================================

// CreateUserRequest registers a user. An empty ID gets a generated one.
type CreateUserRequest struct {
	ID string `json:"id"`
}

// CreateUser creates the user's default config.
// POST /api/users
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body", err)
			return
		}
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	cfg, err := h.Tracker.OnUserCreated(r.Context(), budget.UserID(req.ID))
	if err != nil {
		h.writeDomainError(w, "Failed to create user", err)
		return
	}
	writeJSON(w, http.StatusCreated, toConfigDTO(cfg))
}

// =============================================================================
// CONFIG ENDPOINTS
// =============================================================================

// GetConfig returns the user's config.
// GET /api/users/{user}/config
func (h *Handler) GetConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.Tracker.GetConfig(r.Context(), userParam(r))
	if err != nil {
		h.writeDomainError(w, "Failed to get config", err)
		return
	}
	writeJSON(w, http.StatusOK, toConfigDTO(cfg))
}

// UpdateBudget sets the daily budget.
// PUT /api/users/{user}/config/budget
func (h *Handler) UpdateBudget(w http.ResponseWriter, r *http.Request) {
	var req UpdateBudgetRequest
	if !decode(w, r, &req) {
		return
	}
	cfg, err := h.Tracker.UpdateBudget(r.Context(), userParam(r), rawValue(req.DailyBudget))
	if err != nil {
		h.writeDomainError(w, "Failed to update budget", err)
		return
	}
	writeJSON(w, http.StatusOK, toConfigDTO(cfg))
}

// SetDefault sets one category default and its fixed flag.
// PUT /api/users/{user}/config/defaults/{field}
func (h *Handler) SetDefault(w http.ResponseWriter, r *http.Request) {
	var req SetDefaultRequest
	if !decode(w, r, &req) {
		return
	}
	cfg, err := h.Tracker.SetDefault(r.Context(), userParam(r), chi.URLParam(r, "field"), rawValue(req.Value), req.Fixed)
	if err != nil {
		h.writeDomainError(w, "Failed to set default", err)
		return
	}
	writeJSON(w, http.StatusOK, toConfigDTO(cfg))
}

// SetStartDate sets the registry start date.
// PUT /api/users/{user}/config/start-date
func (h *Handler) SetStartDate(w http.ResponseWriter, r *http.Request) {
	var req SetStartDateRequest
	if !decode(w, r, &req) {
		return
	}
	date, err := budget.ParseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
		return
	}
	cfg, err := h.Tracker.SetStartDate(r.Context(), userParam(r), date)
	if err != nil {
		h.writeDomainError(w, "Failed to set start date", err)
		return
	}
	writeJSON(w, http.StatusOK, toConfigDTO(cfg))
}

// =============================================================================
// RECORD ENDPOINTS
// =============================================================================

// ListRecords returns records in an optional date range.
// GET /api/users/{user}/records?from=YYYY-MM-DD&to=YYYY-MM-DD
func (h *Handler) ListRecords(w http.ResponseWriter, r *http.Request) {
	from, ok := queryDate(w, r, "from")
	if !ok {
		return
	}
	to, ok := queryDate(w, r, "to")
	if !ok {
		return
	}
	records, err := h.Tracker.ListRecords(r.Context(), userParam(r), from, to)
	if err != nil {
		h.writeDomainError(w, "Failed to list records", err)
		return
	}
	writeJSON(w, http.StatusOK, toRecordDTOs(records))
}

// GetRecord returns one day's record.
// GET /api/users/{user}/records/{date}
func (h *Handler) GetRecord(w http.ResponseWriter, r *http.Request) {
	date, ok := dateParam(w, r)
	if !ok {
		return
	}
	rec, err := h.Tracker.GetRecord(r.Context(), userParam(r), date)
	if err != nil {
		h.writeDomainError(w, "Failed to get record", err)
		return
	}
	writeJSON(w, http.StatusOK, toRecordDTO(rec))
}

// SaveDay creates or updates a day with the supplied values.
// PUT /api/users/{user}/records/{date}
func (h *Handler) SaveDay(w http.ResponseWriter, r *http.Request) {
	date, ok := dateParam(w, r)
	if !ok {
		return
	}
	var req DayRequest
	if !decode(w, r, &req) {
		return
	}
	rec, err := h.Tracker.SaveDay(r.Context(), userParam(r), date, req.toInput())
	if err != nil {
		h.writeDomainError(w, "Failed to save day", err)
		return
	}
	writeJSON(w, http.StatusOK, toRecordDTO(rec))
}

// CompleteDay fills in and completes a pending day.
// POST /api/users/{user}/records/{date}/complete
func (h *Handler) CompleteDay(w http.ResponseWriter, r *http.Request) {
	date, ok := dateParam(w, r)
	if !ok {
		return
	}
	var req DayRequest
	if !decode(w, r, &req) {
		return
	}
	rec, err := h.Tracker.CompleteDay(r.Context(), userParam(r), date, req.toInput())
	if err != nil {
		h.writeDomainError(w, "Failed to complete day", err)
		return
	}
	writeJSON(w, http.StatusOK, toRecordDTO(rec))
}

// FixField toggles the pin on a record field.
// POST /api/users/{user}/records/{date}/fix
func (h *Handler) FixField(w http.ResponseWriter, r *http.Request) {
	date, ok := dateParam(w, r)
	if !ok {
		return
	}
	var req FixFieldRequest
	if !decode(w, r, &req) {
		return
	}
	rec, err := h.Tracker.FixField(r.Context(), userParam(r), date, req.Field, rawValue(req.Value))
	if err != nil {
		h.writeDomainError(w, "Failed to fix field", err)
		return
	}
	writeJSON(w, http.StatusOK, toRecordDTO(rec))
}

// =============================================================================
// TRACKING ENDPOINTS
// =============================================================================

// EnsureCoverage backfills every missing day up to today.
// POST /api/users/{user}/coverage
func (h *Handler) EnsureCoverage(w http.ResponseWriter, r *http.Request) {
	created, err := h.Tracker.EnsureCoverage(r.Context(), userParam(r))
	if err != nil {
		h.writeDomainError(w, "Failed to backfill records", err)
		return
	}
	writeJSON(w, http.StatusOK, CoverageDTO{Created: created})
}

// PendingDays lists the days still waiting to be completed.
// GET /api/users/{user}/pending
func (h *Handler) PendingDays(w http.ResponseWriter, r *http.Request) {
	days, msg, err := h.Tracker.PendingDays(r.Context(), userParam(r))
	if err != nil {
		h.writeDomainError(w, "Failed to get pending days", err)
		return
	}
	writeJSON(w, http.StatusOK, toPendingDTO(days, msg))
}

// Summary returns the dashboard totals.
// GET /api/users/{user}/summary
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	sum, err := h.Tracker.Summary(r.Context(), userParam(r))
	if err != nil {
		h.writeDomainError(w, "Failed to get summary", err)
		return
	}
	writeJSON(w, http.StatusOK, toSummaryDTO(sum))
}

// Calendar returns a month view. Year and month default to today's.
// GET /api/users/{user}/calendar?year=2025&month=3
func (h *Handler) Calendar(w http.ResponseWriter, r *http.Request) {
	today := h.Tracker.Today()

	year, ok := queryInt(w, r, "year", today.Year())
	if !ok {
		return
	}
	month, ok := queryInt(w, r, "month", int(today.Month()))
	if !ok {
		return
	}

	view, err := h.Tracker.Month(r.Context(), userParam(r), year, month)
	if err != nil {
		h.writeDomainError(w, "Failed to build calendar", err)
		return
	}
	writeJSON(w, http.StatusOK, toCalendarDTO(view))
}

// =============================================================================
// GOAL ENDPOINTS
// =============================================================================

// ListGoals returns the user's goals, newest first.
// GET /api/users/{user}/goals
func (h *Handler) ListGoals(w http.ResponseWriter, r *http.Request) {
	goals, err := h.Tracker.ListGoals(r.Context(), userParam(r))
	if err != nil {
		h.writeDomainError(w, "Failed to list goals", err)
		return
	}
	dtos := make([]GoalDTO, 0, len(goals))
	for _, g := range goals {
		dtos = append(dtos, toGoalDTO(g))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateGoal creates a savings goal.
// POST /api/users/{user}/goals
func (h *Handler) CreateGoal(w http.ResponseWriter, r *http.Request) {
	var req CreateGoalRequest
	if !decode(w, r, &req) {
		return
	}
	goal, err := h.Tracker.CreateGoal(r.Context(), userParam(r), tracker.GoalInput{
		Name:    req.Name,
		Target:  rawValue(req.TargetAmount),
		Current: rawValue(req.CurrentAmount),
	})
	if err != nil {
		h.writeDomainError(w, "Failed to create goal", err)
		return
	}
	writeJSON(w, http.StatusCreated, toGoalDTO(goal))
}

// GetGoal returns one goal.
// GET /api/users/{user}/goals/{id}
func (h *Handler) GetGoal(w http.ResponseWriter, r *http.Request) {
	goal, err := h.Tracker.GetGoal(r.Context(), userParam(r), budget.GoalID(chi.URLParam(r, "id")))
	if err != nil {
		h.writeDomainError(w, "Failed to get goal", err)
		return
	}
	writeJSON(w, http.StatusOK, toGoalDTO(goal))
}

// Contribute adds an amount to a goal.
// POST /api/users/{user}/goals/{id}/contribute
func (h *Handler) Contribute(w http.ResponseWriter, r *http.Request) {
	var req ContributeRequest
	if !decode(w, r, &req) {
		return
	}
	goal, err := h.Tracker.Contribute(r.Context(), userParam(r), budget.GoalID(chi.URLParam(r, "id")), rawValue(req.Amount))
	if err != nil {
		h.writeDomainError(w, "Failed to add contribution", err)
		return
	}
	writeJSON(w, http.StatusOK, toGoalDTO(goal))
}

// =============================================================================
// ADMIN ENDPOINTS
// =============================================================================

// Diagnose counts data problems without changing anything.
// GET /api/admin/diagnose?user=...
func (h *Handler) Diagnose(w http.ResponseWriter, r *http.Request) {
	diag, err := h.Engine.Diagnose(r.Context(), userQuery(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to diagnose", err)
		return
	}
	writeJSON(w, http.StatusOK, diag)
}

// Verify lists data problems without changing anything.
// GET /api/admin/verify?user=...
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	issues, err := h.Engine.Verify(r.Context(), userQuery(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to verify", err)
		return
	}
	if issues == nil {
		issues = []repair.Issue{}
	}
	writeJSON(w, http.StatusOK, issues)
}

// Repair repairs one user, or every user when none is given.
// POST /api/admin/repair
func (h *Handler) Repair(w http.ResponseWriter, r *http.Request) {
	var req RepairRequest
	if r.ContentLength != 0 && !decode(w, r, &req) {
		return
	}

	if req.User == "" {
		summary, err := h.Engine.RepairAll(r.Context(), req.Verbose)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to repair records", err)
			return
		}
		writeJSON(w, http.StatusOK, summary)
		return
	}

	user := budget.UserID(req.User)
	counters, err := h.Engine.Repair(r.Context(), &user, req.Verbose)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to repair records", err)
		return
	}
	writeJSON(w, http.StatusOK, RepairDTO{Scope: req.User, Counters: counters})
}

// RepairConfigs normalizes corrupt config amounts.
// POST /api/admin/repair-configs
func (h *Handler) RepairConfigs(w http.ResponseWriter, r *http.Request) {
	fixed, err := h.Engine.RepairConfigs(r.Context(), false)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to repair configs", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"fixed": fixed})
}

// FindGhosts lists ghost records.
// GET /api/admin/ghosts?user=...
func (h *Handler) FindGhosts(w http.ResponseWriter, r *http.Request) {
	records, err := h.Engine.FindGhosts(r.Context(), userQuery(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to find ghost records", err)
		return
	}
	writeJSON(w, http.StatusOK, GhostsDTO{Records: toRecordDTOs(records)})
}

// DeleteGhosts removes ghost records.
// DELETE /api/admin/ghosts?user=...
func (h *Handler) DeleteGhosts(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.Engine.DeleteGhosts(r.Context(), userQuery(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete ghost records", err)
		return
	}
	writeJSON(w, http.StatusOK, GhostsDTO{Deleted: deleted})
}

// =============================================================================
// HELPERS
// =============================================================================

func userParam(r *http.Request) budget.UserID {
	return budget.UserID(chi.URLParam(r, "user"))
}

// userQuery returns the ?user= scope, nil for every user.
func userQuery(r *http.Request) *budget.UserID {
	v := r.URL.Query().Get("user")
	if v == "" {
		return nil
	}
	user := budget.UserID(v)
	return &user
}

func dateParam(w http.ResponseWriter, r *http.Request) (budget.Date, bool) {
	raw := chi.URLParam(r, "date")
	date, err := budget.ParseDate(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid date: %s", raw), err)
		return budget.Date{}, false
	}
	return date, true
}

// queryDate parses an optional date query parameter; absent is the zero date.
func queryDate(w http.ResponseWriter, r *http.Request, key string) (budget.Date, bool) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return budget.Date{}, true
	}
	date, err := budget.ParseDate(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid %s date (use YYYY-MM-DD)", key), err)
		return budget.Date{}, false
	}
	return date, true
}

func queryInt(w http.ResponseWriter, r *http.Request, key string, def int) (int, bool) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid %s", key), err)
		return 0, false
	}
	return n, true
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	return true
}

// writeDomainError maps budget errors to HTTP statuses.
func (h *Handler) writeDomainError(w http.ResponseWriter, message string, err error) {
	var verr *budget.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   verr.Message,
			Code:    verr.Code,
			Field:   verr.Field,
			Details: err.Error(),
		})
	case budget.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case budget.IsConflict(err):
		writeError(w, http.StatusConflict, message, err)
	case budget.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, err)
	default:
		h.Logger.WithError(err).Error(message)
		writeError(w, http.StatusInternalServerError, message, err)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
