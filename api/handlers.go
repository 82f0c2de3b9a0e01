// Package api exposes the sync engine's state over HTTP for the local UI
// and for health probes.
package api

import (
	"context"
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/labstack/echo/v4"

	"plansync/auth"
	"plansync/domain"
)

// State is the read surface of the sync engine the handlers serve from.
type State interface {
	Loading() bool
	Events() []domain.Event
	TaskEvents() []domain.TaskEvent
	ExpenseEvents() []domain.ExpenseEvent
	TotalBudget() (float64, error)
}

// Sharer processes share-by-email requests. Outcomes are intentionally not
// reported back to the caller.
type Sharer interface {
	ShareByEmail(ctx context.Context, eventID, email string)
}

// Register wires up all API routes on the provided Echo instance.
func Register(e *echo.Echo, state State, sharer Sharer, ident auth.Provider, logger *log.Logger) {
	e.GET("/healthz", healthz())
	e.GET("/api/state", getState(state, ident))
	e.GET("/api/budget", getBudget(state, ident, logger))
	e.POST("/api/events/:id/share", postShare(sharer, ident))
}

type stateResponse struct {
	Loading       bool                  `json:"loading"`
	Events        []domain.Event        `json:"events"`
	TaskEvents    []domain.TaskEvent    `json:"taskEvents"`
	ExpenseEvents []domain.ExpenseEvent `json:"expenseEvents"`
}

type budgetResponse struct {
	Total float64 `json:"total"`
}

type shareRequest struct {
	Email string `json:"email"`
}

func healthz() echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	}
}

func getState(state State, ident auth.Provider) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, ok := ident.CurrentUser(); !ok {
			return c.String(http.StatusUnauthorized, "not signed in")
		}
		return c.JSON(http.StatusOK, stateResponse{
			Loading:       state.Loading(),
			Events:        state.Events(),
			TaskEvents:    state.TaskEvents(),
			ExpenseEvents: state.ExpenseEvents(),
		})
	}
}

func getBudget(state State, ident auth.Provider, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, ok := ident.CurrentUser(); !ok {
			return c.String(http.StatusUnauthorized, "not signed in")
		}
		total, err := state.TotalBudget()
		if err != nil {
			logger.WithError(err).Error("budget computation failed")
			return c.String(http.StatusInternalServerError, err.Error())
		}
		return c.JSON(http.StatusOK, budgetResponse{Total: total})
	}
}

func postShare(sharer Sharer, ident auth.Provider) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, ok := ident.CurrentUser(); !ok {
			return c.String(http.StatusUnauthorized, "not signed in")
		}
		var req shareRequest
		if err := c.Bind(&req); err != nil || req.Email == "" {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		// Accepted regardless of outcome; lookup misses stay invisible.
		sharer.ShareByEmail(c.Request().Context(), c.Param("id"), req.Email)
		return c.NoContent(http.StatusAccepted)
	}
}
