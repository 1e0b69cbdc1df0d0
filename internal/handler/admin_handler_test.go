package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightline-health/intake-api/internal/models"
	appErrors "github.com/brightline-health/intake-api/pkg/errors"
)

type adminServiceStub struct {
	snapshot *models.Snapshot
	err      error
}

func (s *adminServiceStub) Reload(ctx context.Context) (*models.Snapshot, error) {
	return s.snapshot, s.err
}

func (s *adminServiceStub) Stats() *models.Snapshot {
	return s.snapshot
}

func performGet(t *testing.T, handlerFn gin.HandlerFunc, target string) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)

	recorder := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(recorder)
	c.Request = httptest.NewRequest(http.MethodGet, target, nil)

	handlerFn(c)
	return recorder
}

func TestAdminReloadReturnsStats(t *testing.T) {
	stub := &adminServiceStub{snapshot: &models.Snapshot{
		Records:  []models.AvailabilityRecord{{ID: 1}, {ID: 2}},
		Rejected: 3,
		LoadedAt: time.Date(2026, time.March, 2, 8, 0, 0, 0, time.UTC),
	}}
	recorder := performGet(t, NewAdminHandler(stub).Reload, "/admin/availability/reload")

	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), `"records":2`)
	assert.Contains(t, recorder.Body.String(), `"rejected":3`)
	assert.Contains(t, recorder.Body.String(), "2026-03-02T08:00:00Z")
}

func TestAdminReloadSourceFailure(t *testing.T) {
	stub := &adminServiceStub{err: appErrors.ErrLoadFailure}
	recorder := performGet(t, NewAdminHandler(stub).Reload, "/admin/availability/reload")

	assert.Equal(t, http.StatusServiceUnavailable, recorder.Code)
}

func TestAdminStatsBeforeFirstLoad(t *testing.T) {
	recorder := performGet(t, NewAdminHandler(&adminServiceStub{}).Stats, "/admin/availability/stats")

	assert.Equal(t, http.StatusNotFound, recorder.Code)
	assert.Contains(t, recorder.Body.String(), appErrors.ErrNotFound.Code)
}
