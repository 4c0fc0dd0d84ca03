package httpapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evalgo/vaultforge/internal/clients/draftbranch"
	"github.com/evalgo/vaultforge/internal/clients/llm"
	"github.com/evalgo/vaultforge/internal/clients/research"
	"github.com/evalgo/vaultforge/internal/nodes"
	"github.com/evalgo/vaultforge/internal/workflow"
	"github.com/evalgo/vaultforge/internal/workflow/registry"
)

type fakeQueue struct{}

func (fakeQueue) Enqueue(ctx context.Context, workflowID string) (string, error) {
	return "task-1", nil
}

func newTestHandlers() *Handlers {
	clients := nodes.Clients{LLM: &llm.Mock{Response: "Moths"}, Research: &research.Mock{}, DraftBranch: &draftbranch.Mock{}}
	graphs := nodes.NewRegistry(clients)
	reg := registry.NewMemory(registry.DefaultMemoryConfig())
	dispatcher := workflow.NewDispatcher(reg, fakeQueue{}, workflow.GraphBuilder(graphs.Resolve), nil)

	return &Handlers{Dispatcher: dispatcher, Registry: reg, MaxPageSize: 10}
}

func TestHandleRun_Success(t *testing.T) {
	h := newTestHandlers()
	e := echo.New()

	body := strings.NewReader(`{"prompts":["write about moths"]}`)
	req := httptest.NewRequest(http.MethodPost, "/workflows/article-proposal/run", body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("type")
	c.SetParamValues("article-proposal")

	err := h.handleRun(c)

	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"COMPLETED"`)
}

func TestHandleRun_UnknownTypeMapsToBadRequest(t *testing.T) {
	h := newTestHandlers()
	e := echo.New()

	body := strings.NewReader(`{"prompts":["p"]}`)
	req := httptest.NewRequest(http.MethodPost, "/workflows/nonsense/run", body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("type")
	c.SetParamValues("nonsense")

	err := h.handleRun(c)

	var httpErr *echo.HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusBadRequest, httpErr.Code)
}

func TestHandleGet_NotFoundMapsTo404(t *testing.T) {
	h := newTestHandlers()
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/workflows/missing-id", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("missing-id")

	err := h.handleGet(c)

	var httpErr *echo.HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusNotFound, httpErr.Code)
}

func TestHandleList_RejectsLimitAboveMaxPageSize(t *testing.T) {
	h := newTestHandlers()
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/workflows?limit=9999", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := h.handleList(c)

	var httpErr *echo.HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusBadRequest, httpErr.Code)
}

func TestHandleList_ReturnsRecordsAndTotal(t *testing.T) {
	h := newTestHandlers()
	e := echo.New()

	runReq := httptest.NewRequest(http.MethodPost, "/workflows/article-proposal/run", strings.NewReader(`{"prompts":["write about moths"]}`))
	runReq.Header.Set("Content-Type", "application/json")
	runRec := httptest.NewRecorder()
	runCtx := e.NewContext(runReq, runRec)
	runCtx.SetParamNames("type")
	runCtx.SetParamValues("article-proposal")
	require.NoError(t, h.handleRun(runCtx))

	req := httptest.NewRequest(http.MethodGet, "/workflows", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := h.handleList(c)

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"total":1`)
}

func TestMapError_CoversKnownSentinels(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{workflow.ErrNotFound, http.StatusNotFound},
		{workflow.ErrInvalidInput, http.StatusBadRequest},
		{workflow.ErrUnknownWorkflowType, http.StatusBadRequest},
		{workflow.ErrInvalidTransition, http.StatusInternalServerError},
		{workflow.ErrUnknownNode, http.StatusInternalServerError},
		{errors.New("something else"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		mapped := mapError(tc.err)
		var httpErr *echo.HTTPError
		require.True(t, errors.As(mapped, &httpErr))
		assert.Equal(t, tc.code, httpErr.Code)
	}
}
