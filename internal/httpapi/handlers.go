// Package httpapi is the thin echo-based HTTP adapter that translates
// requests into workflow.Dispatcher / registry.Registry calls, in the idiom
// of the teacher's statemanager route group.
package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/evalgo/vaultforge/internal/workflow"
	"github.com/evalgo/vaultforge/internal/workflow/registry"
)

// Handlers holds the dependencies the route group needs.
type Handlers struct {
	Dispatcher  *workflow.Dispatcher
	Registry    registry.Registry
	MaxPageSize int
}

// RegisterRoutes mounts the workflow routes on g.
func (h *Handlers) RegisterRoutes(g *echo.Group) {
	g.POST("/workflows/:type/run", h.handleRun)
	g.GET("/workflows/:id", h.handleGet)
	g.GET("/workflows", h.handleList)
}

type runRequest struct {
	Prompts        []string `json:"prompts"`
	Strategy       string   `json:"strategy"`
	AsyncExecution bool     `json:"async_execution"`
}

type runResponse struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	AsyncTaskID string `json:"async_task_id,omitempty"`
	Message     string `json:"message"`
}

func (h *Handlers) handleRun(c echo.Context) error {
	var body runRequest
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}

	result, err := h.Dispatcher.Run(c.Request().Context(), workflow.Request{
		Type:           c.Param("type"),
		Prompts:        body.Prompts,
		Strategy:       body.Strategy,
		AsyncExecution: body.AsyncExecution,
	})
	if err != nil {
		return mapError(err)
	}

	return c.JSON(http.StatusCreated, runResponse{
		ID:          result.ID,
		Status:      string(result.Status),
		AsyncTaskID: result.AsyncTaskID,
		Message:     result.Message,
	})
}

func (h *Handlers) handleGet(c echo.Context) error {
	rec, err := h.Registry.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, toRecordResponse(rec))
}

func (h *Handlers) handleList(c echo.Context) error {
	var statusFilter *workflow.Status
	if raw := c.QueryParam("status"); raw != "" {
		s := workflow.Status(raw)
		switch s {
		case workflow.StatusPending, workflow.StatusRunning, workflow.StatusCompleted, workflow.StatusFailed:
			statusFilter = &s
		default:
			return echo.NewHTTPError(http.StatusBadRequest, "invalid status filter")
		}
	}

	limit := h.MaxPageSize
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid limit")
		}
		if n > h.MaxPageSize {
			return echo.NewHTTPError(http.StatusBadRequest, "limit exceeds maximum page size")
		}
		limit = n
	}

	offset := 0
	if raw := c.QueryParam("offset"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid offset")
		}
		offset = n
	}

	records, total, err := h.Registry.List(c.Request().Context(), registry.ListFilter{
		Status: statusFilter,
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		return mapError(err)
	}

	resp := make([]recordResponse, 0, len(records))
	for _, rec := range records {
		resp = append(resp, toRecordResponse(rec))
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"records": resp,
		"total":   total,
	})
}

type recordResponse struct {
	ID              string                 `json:"id"`
	Type            string                 `json:"type"`
	Prompts         []string               `json:"prompts"`
	Strategy        string                 `json:"strategy"`
	Status          string                 `json:"status"`
	CreatedAt       string                 `json:"created_at"`
	StartedAt       *string                `json:"started_at,omitempty"`
	CompletedAt     *string                `json:"completed_at,omitempty"`
	BranchName      string                 `json:"branch_name,omitempty"`
	ErrorMessage    string                 `json:"error_message,omitempty"`
	AsyncTaskID     string                 `json:"async_task_id,omitempty"`
	ProgressMessage string                 `json:"progress_message"`
	ProgressPercent int                    `json:"progress_percent"`
	Metadata        map[string]interface{} `json:"metadata,omitempty"`
}

func toRecordResponse(rec *workflow.Record) recordResponse {
	r := recordResponse{
		ID:              rec.ID,
		Type:            rec.Type,
		Prompts:         rec.Prompts,
		Strategy:        rec.Strategy,
		Status:          string(rec.Status),
		CreatedAt:       rec.CreatedAt.Format(rfc3339),
		BranchName:      rec.BranchName,
		ErrorMessage:    rec.ErrorMessage,
		AsyncTaskID:     rec.AsyncTaskID,
		ProgressMessage: rec.ProgressMsg,
		ProgressPercent: rec.ProgressPct,
		Metadata:        rec.Metadata,
	}
	if rec.StartedAt != nil {
		s := rec.StartedAt.Format(rfc3339)
		r.StartedAt = &s
	}
	if rec.CompletedAt != nil {
		s := rec.CompletedAt.Format(rfc3339)
		r.CompletedAt = &s
	}
	return r
}

const rfc3339 = "2006-01-02T15:04:05Z07:00"

func mapError(err error) error {
	switch {
	case errors.Is(err, workflow.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, workflow.ErrInvalidInput), errors.Is(err, workflow.ErrUnknownWorkflowType):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, workflow.ErrInvalidTransition), errors.Is(err, workflow.ErrUnknownNode):
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
}
