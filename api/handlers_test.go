/*
handlers_test.go - HTTP tests for the budget API

Tests for:
- User and config endpoints, including validation error bodies
- Day entry, backfill, pending days, dashboard and calendar
- Savings goals
- Admin diagnosis and repair
- Status mapping (400/404/409) and CORS
*/
package api_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/budget-engine/api"
	"github.com/warp/budget-engine/budget"
	"github.com/warp/budget-engine/budget/store"
	"github.com/warp/budget-engine/repair"
	"github.com/warp/budget-engine/tracker"
)

// =============================================================================
// TEST SETUP
// =============================================================================

var now = time.Date(2025, time.March, 10, 18, 0, 0, 0, time.UTC)

type testServer struct {
	t      *testing.T
	router http.Handler
	store  *store.Memory
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	s := store.NewMemory()
	clock := func() time.Time { return now }

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	tr := tracker.New(s, tracker.WithClock(clock), tracker.WithLogger(logger))
	engine := repair.New(s, repair.WithClock(clock), repair.WithLogger(logger))
	h := api.NewHandler(tr, engine, logger)

	return &testServer{t: t, router: api.NewRouter(h, nil), store: s}
}

func (ts *testServer) do(method, path, body string) *httptest.ResponseRecorder {
	ts.t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

// setup creates u1 with a budget of 100 tracking since March 8.
func (ts *testServer) setup() {
	ts.t.Helper()
	require.Equal(ts.t, http.StatusCreated, ts.do("POST", "/api/users", `{"id":"u1"}`).Code)
	require.Equal(ts.t, http.StatusOK, ts.do("PUT", "/api/users/u1/config/budget", `{"daily_budget":"100"}`).Code)
	require.Equal(ts.t, http.StatusOK, ts.do("PUT", "/api/users/u1/config/start-date", `{"date":"2025-03-08"}`).Code)
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

// =============================================================================
// USERS & CONFIG
// =============================================================================

func TestHealthz(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do("GET", "/healthz", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestCreateUser(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do("POST", "/api/users", `{"id":"u1"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	cfg := decodeBody[api.ConfigDTO](t, rec)
	assert.Equal(t, "u1", cfg.UserID)
	assert.Equal(t, "0.00", cfg.DailyBudget.String())
	assert.Empty(t, cfg.RegistryStartDate)

	// No body generates an ID
	rec = ts.do("POST", "/api/users", "")
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.NotEmpty(t, decodeBody[api.ConfigDTO](t, rec).UserID)
}

func TestGetConfig_UnknownUser(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do("GET", "/api/users/nobody/config", "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateBudget_ValidationBody(t *testing.T) {
	// GIVEN: A user with no budget yet
	ts := newTestServer(t)
	ts.do("POST", "/api/users", `{"id":"u1"}`)

	// WHEN: Sending garbage
	rec := ts.do("PUT", "/api/users/u1/config/budget", `{"daily_budget":"abc"}`)

	// THEN: 400 with the machine-readable code and field
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody[api.ErrorResponse](t, rec)
	assert.Equal(t, budget.CodeNonPositiveBudget, body.Code)
	assert.Equal(t, "daily_budget", body.Field)
}

func TestUpdateBudget_NullKeepsCurrent(t *testing.T) {
	ts := newTestServer(t)
	ts.setup()

	rec := ts.do("PUT", "/api/users/u1/config/budget", `{"daily_budget":null}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "100.00", decodeBody[api.ConfigDTO](t, rec).DailyBudget.String())
}

func TestSetDefault(t *testing.T) {
	ts := newTestServer(t)
	ts.setup()

	rec := ts.do("PUT", "/api/users/u1/config/defaults/savings", `{"value":12.5,"fixed":true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	cfg := decodeBody[api.ConfigDTO](t, rec)
	assert.Equal(t, "12.50", cfg.DefaultSavings.String())
	assert.True(t, cfg.DefaultSavingsFixed)

	rec = ts.do("PUT", "/api/users/u1/config/defaults/rent", `{"value":1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSetDefault_FixedOverBudgetRejected(t *testing.T) {
	// GIVEN: A budget of 100
	ts := newTestServer(t)
	ts.setup()

	// WHEN: Pinning a food default above the budget
	rec := ts.do("PUT", "/api/users/u1/config/defaults/food", `{"value":"150","fixed":true}`)

	// THEN: 400, and the calendar and backfill keep working
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody[api.ErrorResponse](t, rec)
	assert.Equal(t, budget.CodeDefaultsExceedBudget, body.Code)
	assert.Equal(t, "defaults", body.Field)

	rec = ts.do("GET", "/api/users/u1/calendar", "")
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = ts.do("POST", "/api/users/u1/coverage", "")
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestSetStartDate_Statuses(t *testing.T) {
	ts := newTestServer(t)
	ts.setup()

	cases := []struct {
		name string
		body string
		want int
	}{
		{"same date", `{"date":"2025-03-08"}`, http.StatusOK},
		{"locked", `{"date":"2025-03-01"}`, http.StatusConflict},
		{"future", `{"date":"2025-03-11"}`, http.StatusBadRequest},
		{"bad format", `{"date":"08/03/2025"}`, http.StatusBadRequest},
		{"bad json", `{"date":`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := ts.do("PUT", "/api/users/u1/config/start-date", tc.body)
			assert.Equal(t, tc.want, rec.Code, rec.Body.String())
		})
	}
}

// =============================================================================
// RECORDS & TRACKING
// =============================================================================

func TestDayFlow(t *testing.T) {
	ts := newTestServer(t)
	ts.setup()

	// Backfill creates March 8 to 10
	rec := ts.do("POST", "/api/users/u1/coverage", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 3, decodeBody[api.CoverageDTO](t, rec).Created)

	rec = ts.do("GET", "/api/users/u1/pending", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"2025-03-08", "2025-03-09", "2025-03-10"}, decodeBody[api.PendingDTO](t, rec).Days)

	// Complete March 8
	rec = ts.do("POST", "/api/users/u1/records/2025-03-08/complete", `{"food":30,"products":"10","comment":"market"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	day := decodeBody[api.RecordDTO](t, rec)
	assert.True(t, day.Completed)
	assert.Equal(t, "60.00", day.Leftover.String())
	assert.Equal(t, "40.00", day.TotalExpense.String())
	assert.Equal(t, "market", day.Comment)

	// Completing twice is a conflict
	rec = ts.do("POST", "/api/users/u1/records/2025-03-08/complete", `{}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Pin savings on today
	rec = ts.do("POST", "/api/users/u1/records/2025-03-10/fix", `{"field":"savings","value":"5"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	day = decodeBody[api.RecordDTO](t, rec)
	assert.True(t, day.SavingsFixed)
	assert.Equal(t, "5.00", day.Savings.String())

	// Dashboard
	rec = ts.do("GET", "/api/users/u1/summary", "")
	require.Equal(t, http.StatusOK, rec.Code)
	sum := decodeBody[api.SummaryDTO](t, rec)
	assert.Equal(t, "45.00", sum.TotalSpent.String())
	assert.Equal(t, "60.00", sum.TotalLeftover.String())
	assert.Equal(t, []string{"2025-03-09", "2025-03-10"}, sum.Pending.Days)
	require.NotNil(t, sum.TodayRecord)
	assert.Equal(t, "2025-03-10", sum.TodayRecord.Date)

	// Range listing
	rec = ts.do("GET", "/api/users/u1/records?from=2025-03-09&to=2025-03-10", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]api.RecordDTO](t, rec), 2)
}

func TestFixField_NullValueOnlyTogglesPin(t *testing.T) {
	// GIVEN: A saved day with food 30, products 20, savings 10
	ts := newTestServer(t)
	ts.setup()
	rec := ts.do("PUT", "/api/users/u1/records/2025-03-10", `{"food":"30","products":"20","savings":"10"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, "40.00", decodeBody[api.RecordDTO](t, rec).Leftover.String())

	// WHEN: Pinning food with a null value
	rec = ts.do("POST", "/api/users/u1/records/2025-03-10/fix", `{"field":"food","value":null}`)

	// THEN: The pin flips and the stored amount survives
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	day := decodeBody[api.RecordDTO](t, rec)
	assert.True(t, day.FoodFixed)
	assert.Equal(t, "30.00", day.Food.String())
	assert.Equal(t, "40.00", day.Leftover.String())
}

func TestSaveDay_Statuses(t *testing.T) {
	ts := newTestServer(t)
	ts.setup()

	rec := ts.do("PUT", "/api/users/u1/records/2025-03-09", `{"food":"20","savings":"abc"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	day := decodeBody[api.RecordDTO](t, rec)
	assert.Equal(t, "80.00", day.Leftover.String())

	rec = ts.do("PUT", "/api/users/u1/records/2025-03-09", `{"food":"200"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, budget.CodeExpensesExceedBudget, decodeBody[api.ErrorResponse](t, rec).Code)

	rec = ts.do("PUT", "/api/users/u1/records/2025-03-11", `{"food":"1"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do("PUT", "/api/users/u1/records/yesterday", `{"food":"1"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRecordLookupStatuses(t *testing.T) {
	ts := newTestServer(t)
	ts.setup()

	assert.Equal(t, http.StatusNotFound, ts.do("GET", "/api/users/u1/records/2025-02-01", "").Code)
	assert.Equal(t, http.StatusBadRequest, ts.do("GET", "/api/users/u1/records?from=March", "").Code)
	assert.Equal(t, http.StatusBadRequest,
		ts.do("POST", "/api/users/u1/records/2025-03-01/complete", `{}`).Code, "before the start date")
}

func TestCalendar(t *testing.T) {
	ts := newTestServer(t)
	ts.setup()

	rec := ts.do("GET", "/api/users/u1/calendar", "")
	require.Equal(t, http.StatusOK, rec.Code)
	cal := decodeBody[api.CalendarDTO](t, rec)
	assert.Equal(t, 2025, cal.Year)
	assert.Equal(t, 3, cal.Month)
	assert.Len(t, cal.Days, 3)
	assert.Equal(t, api.MonthRefDTO{Year: 2025, Month: 2}, cal.Prev)
	assert.False(t, cal.ShowPrev)

	assert.Equal(t, http.StatusBadRequest, ts.do("GET", "/api/users/u1/calendar?month=march", "").Code)
}

// =============================================================================
// GOALS
// =============================================================================

func TestGoals(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do("POST", "/api/users/u1/goals", `{"name":"bike","target_amount":"300"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	goal := decodeBody[api.GoalDTO](t, rec)
	assert.Equal(t, "0.00", goal.Progress)

	rec = ts.do("POST", "/api/users/u1/goals/"+goal.ID+"/contribute", `{"amount":100}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "33.33", decodeBody[api.GoalDTO](t, rec).Progress)

	rec = ts.do("GET", "/api/users/u1/goals", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]api.GoalDTO](t, rec), 1)

	assert.Equal(t, http.StatusNotFound, ts.do("GET", "/api/users/u1/goals/missing", "").Code)
	assert.Equal(t, http.StatusBadRequest,
		ts.do("POST", "/api/users/u1/goals", `{"name":"","target_amount":"10"}`).Code)
	assert.Equal(t, http.StatusBadRequest,
		ts.do("POST", "/api/users/u1/goals/"+goal.ID+"/contribute", `{"amount":null}`).Code)
}

// =============================================================================
// ADMIN
// =============================================================================

func TestAdmin_DiagnoseAndRepair(t *testing.T) {
	// GIVEN: Corrupt legacy rows for u2
	ts := newTestServer(t)
	ts.store.ImportRows(
		budget.Row{ID: "a", UserID: "u2", Date: "2025-03-01", DailyBudget: "NaN",
			Food: "0.00", Products: "0.00", Savings: "0.00", Leftover: "0.00"},
		budget.Row{ID: "b", UserID: "u2", Date: "2025-03-02", DailyBudget: "10.00",
			Food: "-1", Products: "0.00", Savings: "0.00", Leftover: "0.00"},
	)

	// WHEN: Diagnosing, then repairing u2
	rec := ts.do("GET", "/api/admin/diagnose?user=u2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	diag := decodeBody[repair.Diagnosis](t, rec)

	rec = ts.do("POST", "/api/admin/repair", `{"user":"u2"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	// THEN: Problems are counted, then fixed with the report's names
	assert.Equal(t, 2, diag.TotalRecords)
	assert.Equal(t, 2, diag.ErrorsDetected)
	assert.Equal(t, "u2", body["scope"])
	counters := body["counters"].(map[string]any)
	assert.EqualValues(t, 1, counters["decimales_corregidos"])
	assert.EqualValues(t, 1, counters["valores_negativos_corregidos"])

	rec = ts.do("GET", "/api/admin/verify", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestAdmin_RepairAll(t *testing.T) {
	ts := newTestServer(t)
	ts.setup()

	rec := ts.do("POST", "/api/admin/repair", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.EqualValues(t, 1, body["usuarios_procesados"])
}

func TestAdmin_RepairConfigs(t *testing.T) {
	ts := newTestServer(t)
	ts.store.ImportConfigRows(budget.ConfigRow{
		UserID: "u3", DailyBudget: "None", DefaultFood: "0.00", DefaultProducts: "0.00",
		DefaultSavings: "0.00", DefaultLeftover: "0.00",
	})

	rec := ts.do("POST", "/api/admin/repair-configs", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"fixed":1}`, rec.Body.String())
}

func TestAdmin_Ghosts(t *testing.T) {
	ts := newTestServer(t)
	ts.store.ImportRows(budget.Row{ID: "g", UserID: "u1", Date: "2025-03-01", DailyBudget: "0.00",
		Food: "0.00", Products: "0.00", Savings: "0.00", Leftover: "12.00"})

	rec := ts.do("GET", "/api/admin/ghosts?user=u1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[api.GhostsDTO](t, rec).Records, 1)

	rec = ts.do("DELETE", "/api/admin/ghosts?user=u1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decodeBody[api.GhostsDTO](t, rec).Deleted)

	n, err := ts.store.CountRecords(context.Background(), "u1")
	require.NoError(t, err)
	assert.Zero(t, n)
}

// =============================================================================
// MIDDLEWARE
// =============================================================================

func TestCORSPreflight(t *testing.T) {
	ts := newTestServer(t)
	req := httptest.NewRequest("OPTIONS", "/api/users/u1/config", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "PUT")
	rec := httptest.NewRecorder()

	ts.router.ServeHTTP(rec, req)

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
