package management

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"herald/internal/constants"
	"herald/internal/logger"
	"herald/internal/publisher"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter(t *testing.T) (*gin.Engine, *memoryStore, *memoryAudit) {
	t.Helper()
	svc, store, audit := newTestService(t)
	r := gin.New()
	NewHandler(svc, logger.NopLogger()).RegisterRoutes(r)
	return r, store, audit
}

func do(r http.Handler, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		payload, _ := json.Marshal(body)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHandler_PublisherLifecycle(t *testing.T) {
	r, store, audit := newTestRouter(t)

	w := do(r, http.MethodPost, "/api/v1/publishers", webhookRequest(), map[string]string{ChangedByHeader: "ops"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created publisher.Publisher
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, "pub-01", created.ID)
	assert.Equal(t, constants.SecretMask, created.Target.Webhook.Password)

	w = do(r, http.MethodGet, "/api/v1/publishers/pub-01", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = do(r, http.MethodPut, "/api/v1/publishers/pub-01", map[string]interface{}{"name": "renamed"}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "renamed", store.publishers["pub-01"].Name)

	w = do(r, http.MethodGet, "/api/v1/publishers?limit=5", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list ListPublishersResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Equal(t, 1, list.Total)
	assert.Equal(t, 5, list.Limit)

	w = do(r, http.MethodDelete, "/api/v1/publishers/pub-01", nil, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(r, http.MethodGet, "/api/v1/publishers/pub-01/audit", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var logs []AuditLog
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &logs))
	require.Len(t, logs, 3)
	assert.Equal(t, ActionDelete, logs[0].Action)
	assert.Equal(t, "ops", audit.logs[0].ChangedBy)

	w = do(r, http.MethodGet, "/api/v1/audit/logs?limit=1", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &logs))
	assert.Len(t, logs, 1)
}

func TestHandler_Errors(t *testing.T) {
	r, _, _ := newTestRouter(t)

	w := do(r, http.MethodPost, "/api/v1/publishers", map[string]interface{}{"filter": map[string]string{}}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	req := webhookRequest()
	req.Target.PublisherType = "SFTP"
	w = do(r, http.MethodPost, "/api/v1/publishers", req, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "VALIDATION_ERROR")

	w = do(r, http.MethodGet, "/api/v1/publishers/missing", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(r, http.MethodDelete, "/api/v1/publishers/missing", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
