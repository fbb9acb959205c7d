package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"herald/internal/logger"
	"herald/pkg/errors"
	"herald/pkg/health"
	"herald/pkg/models"
)

type fakeCallback struct {
	refs         []models.PrimitiveRef
	moduleID     string
	deploymentID string
	err          error
}

func (f *fakeCallback) OnModuleResultBatch(_ context.Context, refs []models.PrimitiveRef, moduleID, _, _, deploymentID string) error {
	f.refs, f.moduleID, f.deploymentID = refs, moduleID, deploymentID
	return f.err
}

type fakePinger struct {
	pinged []string
	ctxs   []context.Context
	err    error
}

func (f *fakePinger) PingAsync(ctx context.Context, id string) error {
	f.pinged = append(f.pinged, id)
	f.ctxs = append(f.ctxs, ctx)
	return f.err
}

type failingChecker struct{}

func (failingChecker) Name() string                { return "mongodb" }
func (failingChecker) Check(context.Context) error { return assert.AnError }

func init() {
	gin.SetMode(gin.TestMode)
}

func newRouter(cb ModuleResultCallback, p Pinger, checks *health.CheckerRegistry) *gin.Engine {
	r := gin.New()
	NewHandler(cb, p, checks, logger.NopLogger()).RegisterRoutes(r)
	return r
}

func post(r http.Handler, path string, body interface{}) *httptest.ResponseRecorder {
	payload, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestModuleResults_Accepted(t *testing.T) {
	cb := &fakeCallback{}
	r := newRouter(cb, &fakePinger{}, nil)

	w := post(r, "/api/v1/callbacks/module-results", map[string]interface{}{
		"primitiveData": []map[string]string{{"id": "P1", "name": "BloodPressure", "userId": "U1"}},
		"moduleId":      "BloodPressure",
		"deploymentId":  "D1",
	})

	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "BloodPressure", cb.moduleID)
	assert.Equal(t, "D1", cb.deploymentID)
	assert.Equal(t, []models.PrimitiveRef{{ID: "P1", Name: "BloodPressure", UserID: "U1"}}, cb.refs)
}

func TestModuleResults_InvalidBody(t *testing.T) {
	cb := &fakeCallback{}
	r := newRouter(cb, &fakePinger{}, nil)

	w := post(r, "/api/v1/callbacks/module-results", map[string]interface{}{"moduleId": "BloodPressure"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "VALIDATION_ERROR")
	assert.Empty(t, cb.moduleID)
}

func TestModuleResults_EnqueueFailure(t *testing.T) {
	cb := &fakeCallback{err: errors.ErrServiceUnavailable.WithMessage("failed to enqueue dispatch task")}
	r := newRouter(cb, &fakePinger{}, nil)

	w := post(r, "/api/v1/callbacks/module-results", map[string]interface{}{
		"primitiveData": []map[string]string{{"id": "P1", "name": "Weight", "userId": "U1"}},
		"moduleId":      "Weight",
		"deploymentId":  "D1",
	})

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "SERVICE_UNAVAILABLE", body["error_code"])
}

func TestPingPublisher(t *testing.T) {
	p := &fakePinger{}
	r := newRouter(&fakeCallback{}, p, nil)

	w := post(r, "/api/v1/publishers/pub-1/ping", nil)
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, []string{"pub-1"}, p.pinged)

	p.err = errors.ErrNotFound
	w = post(r, "/api/v1/publishers/missing/ping", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHealth(t *testing.T) {
	r := newRouter(&fakeCallback{}, &fakePinger{}, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	checks := health.NewCheckerRegistry()
	checks.Register(failingChecker{})
	r = newRouter(&fakeCallback{}, &fakePinger{}, checks)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "mongodb")
}

func TestMetricsEndpoint(t *testing.T) {
	r := newRouter(&fakeCallback{}, &fakePinger{}, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
