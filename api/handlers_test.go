package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"plansync/auth"
	"plansync/domain"
)

type mockState struct {
	loading   bool
	events    []domain.Event
	tasks     []domain.TaskEvent
	expenses  []domain.ExpenseEvent
	budget    float64
	budgetErr error
}

func (m *mockState) Loading() bool                        { return m.loading }
func (m *mockState) Events() []domain.Event               { return m.events }
func (m *mockState) TaskEvents() []domain.TaskEvent       { return m.tasks }
func (m *mockState) ExpenseEvents() []domain.ExpenseEvent { return m.expenses }
func (m *mockState) TotalBudget() (float64, error)        { return m.budget, m.budgetErr }

type mockSharer struct {
	calls []string
}

func (m *mockSharer) ShareByEmail(_ context.Context, eventID, email string) {
	m.calls = append(m.calls, eventID+":"+email)
}

func newTestServer(state State, ident auth.Provider) *echo.Echo {
	e := echo.New()
	logger := log.New()
	logger.SetLevel(log.ErrorLevel)
	Register(e, state, &mockSharer{}, ident, logger)
	return e
}

func TestHealthz(t *testing.T) {
	e := newTestServer(&mockState{}, auth.Static{})
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestGetStateRequiresUser(t *testing.T) {
	e := newTestServer(&mockState{}, auth.Static{})
	req := httptest.NewRequest(http.MethodGet, "/api/state", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestGetState(t *testing.T) {
	state := &mockState{
		loading: true,
		events:  []domain.Event{{ID: "e1", Title: "garden party"}},
		tasks:   []domain.TaskEvent{{Title: "garden party"}},
	}
	e := newTestServer(state, auth.Static{User: auth.User{ID: "uid-1"}})
	req := httptest.NewRequest(http.MethodGet, "/api/state", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var got stateResponse
	if err := sonic.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !got.Loading {
		t.Fatal("loading flag missing")
	}
	if len(got.Events) != 1 || got.Events[0].Title != "garden party" {
		t.Fatalf("events = %+v", got.Events)
	}
}

func TestGetBudget(t *testing.T) {
	state := &mockState{budget: 1250.5}
	e := newTestServer(state, auth.Static{User: auth.User{ID: "uid-1"}})
	req := httptest.NewRequest(http.MethodGet, "/api/budget", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var got budgetResponse
	if err := sonic.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Total != 1250.5 {
		t.Fatalf("total = %v, want 1250.5", got.Total)
	}
}

func TestGetBudgetError(t *testing.T) {
	state := &mockState{budgetErr: errors.New("compute failed")}
	e := newTestServer(state, auth.Static{User: auth.User{ID: "uid-1"}})
	req := httptest.NewRequest(http.MethodGet, "/api/budget", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
}

func TestPostShare(t *testing.T) {
	e := echo.New()
	logger := log.New()
	logger.SetLevel(log.ErrorLevel)
	sharer := &mockSharer{}
	Register(e, &mockState{}, sharer, auth.Static{User: auth.User{ID: "uid-1"}}, logger)

	req := httptest.NewRequest(http.MethodPost, "/api/events/ev-1/share", strings.NewReader(`{"email":"ben@example.com"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", rec.Code)
	}
	if len(sharer.calls) != 1 || sharer.calls[0] != "ev-1:ben@example.com" {
		t.Fatalf("calls = %v", sharer.calls)
	}
}

func TestPostShareRejectsEmptyEmail(t *testing.T) {
	e := echo.New()
	logger := log.New()
	logger.SetLevel(log.ErrorLevel)
	sharer := &mockSharer{}
	Register(e, &mockState{}, sharer, auth.Static{User: auth.User{ID: "uid-1"}}, logger)

	req := httptest.NewRequest(http.MethodPost, "/api/events/ev-1/share", strings.NewReader(`{}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if len(sharer.calls) != 0 {
		t.Fatalf("share invoked: %v", sharer.calls)
	}
}
