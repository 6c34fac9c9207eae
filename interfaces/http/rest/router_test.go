package rest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ariellewolter/research-notebook-ver4-sub004/application/services"
	"github.com/ariellewolter/research-notebook-ver4-sub004/infrastructure/messaging"
	"github.com/ariellewolter/research-notebook-ver4-sub004/infrastructure/persistence/memory"
	"github.com/ariellewolter/research-notebook-ver4-sub004/infrastructure/summaries"
	"github.com/ariellewolter/research-notebook-ver4-sub004/pkg/auth"
	"github.com/ariellewolter/research-notebook-ver4-sub004/pkg/observability"

	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
}

type errorBody struct {
	Error   bool   `json:"error"`
	Type    string `json:"type"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

type linkJSON struct {
	ID         string `json:"id"`
	SourceType string `json:"sourceType"`
	SourceID   string `json:"sourceId"`
	TargetType string `json:"targetType"`
	TargetID   string `json:"targetId"`
}

func newTestRouter(t *testing.T, cfg RouterConfig) http.Handler {
	t.Helper()
	return newTestRouterWithLogger(t, cfg, zap.NewNop())
}

func newTestRouterWithLogger(t *testing.T, cfg RouterConfig, logger *zap.Logger) http.Handler {
	t.Helper()
	store := memory.NewLinkStore()
	service := services.NewLinkService(store, summaries.NoopResolver{}, messaging.NoopPublisher{}, nil, nil, nil, logger)
	return NewRouter(service, cfg, logger)
}

func signToken(t *testing.T, secret string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, auth.Claims{
		UserID: "u1",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "eln",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	s, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func do(t *testing.T, h http.Handler, method, path string, body interface{}, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.True(t, env.Success, rec.Body.String())
	require.NoError(t, json.Unmarshal(env.Data, v))
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func createLink(t *testing.T, h http.Handler, st, sid, tt, tid string) linkJSON {
	t.Helper()
	rec := do(t, h, http.MethodPost, "/api/v1/links", map[string]string{
		"sourceType": st, "sourceId": sid, "targetType": tt, "targetId": tid,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var link linkJSON
	decodeData(t, rec, &link)
	return link
}

func TestRouter_LinkLifecycle(t *testing.T) {
	h := newTestRouter(t, RouterConfig{})

	// Create
	link := createLink(t, h, "note", "A", "databaseEntry", "B")
	assert.NotEmpty(t, link.ID)

	// Get
	rec := do(t, h, http.MethodGet, "/api/v1/links/"+link.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got linkJSON
	decodeData(t, rec, &got)
	assert.Equal(t, link, got)

	// Visible from both ends
	rec = do(t, h, http.MethodGet, "/api/v1/entities/databaseEntry/B/backlinks", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var backlinks struct {
		Links []linkJSON `json:"links"`
		Count int        `json:"count"`
	}
	decodeData(t, rec, &backlinks)
	assert.Equal(t, 1, backlinks.Count)

	// Delete, then it is gone
	rec = do(t, h, http.MethodDelete, "/api/v1/links/"+link.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/v1/links/"+link.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", decodeError(t, rec).Type)

	rec = do(t, h, http.MethodDelete, "/api/v1/links/"+link.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouter_CreateValidation(t *testing.T) {
	h := newTestRouter(t, RouterConfig{})

	tests := []struct {
		name string
		body interface{}
	}{
		{name: "missing target", body: map[string]string{"sourceType": "note", "sourceId": "A", "targetType": "note"}},
		{name: "unknown type", body: map[string]string{"sourceType": "pdf", "sourceId": "A", "targetType": "note", "targetId": "B"}},
		{name: "unknown field", body: map[string]string{"sourceType": "note", "sourceId": "A", "targetType": "note", "targetId": "B", "weight": "1"}},
		{name: "not json", body: "just a string"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/api/v1/links", tt.body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, "VALIDATION", decodeError(t, rec).Type)
		})
	}
}

func TestRouter_InvalidLinkID(t *testing.T) {
	h := newTestRouter(t, RouterConfig{})

	rec := do(t, h, http.MethodGet, "/api/v1/links/not-a-uuid", nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_LINK_ID", decodeError(t, rec).Code)
}

func TestRouter_ListLinksPagination(t *testing.T) {
	h := newTestRouter(t, RouterConfig{})
	for i := 0; i < 25; i++ {
		createLink(t, h, "note", "hub", "table", fmt.Sprintf("t%d", i))
	}
	createLink(t, h, "project", "P", "note", "hub")

	rec := do(t, h, http.MethodGet, "/api/v1/links?sourceType=note&sourceId=hub&page=3&limit=10", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var result struct {
		Links      []linkJSON `json:"links"`
		Total      int        `json:"total"`
		Pagination struct {
			Page       int  `json:"page"`
			TotalPages int  `json:"total_pages"`
			HasNext    bool `json:"has_next"`
			HasPrev    bool `json:"has_prev"`
		} `json:"pagination"`
	}
	decodeData(t, rec, &result)
	assert.Len(t, result.Links, 5)
	assert.Equal(t, 25, result.Total)
	assert.Equal(t, 3, result.Pagination.TotalPages)
	assert.False(t, result.Pagination.HasNext)
	assert.True(t, result.Pagination.HasPrev)

	rec = do(t, h, http.MethodGet, "/api/v1/links?limit=abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouter_Search(t *testing.T) {
	h := newTestRouter(t, RouterConfig{})
	meta := "Buffer prep for gel"
	rec := do(t, h, http.MethodPost, "/api/v1/links", map[string]interface{}{
		"sourceType": "protocol", "sourceId": "p", "targetType": "recipe", "targetId": "r", "metadata": meta,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/v1/links/search?q=Buffer", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var found struct {
		Count int `json:"count"`
	}
	decodeData(t, rec, &found)
	assert.Equal(t, 1, found.Count)

	// leading space is part of the needle
	rec = do(t, h, http.MethodGet, "/api/v1/links/search?q=+Buffer", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeData(t, rec, &found)
	assert.Equal(t, 0, found.Count)

	rec = do(t, h, http.MethodGet, "/api/v1/links/search?q=", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "EMPTY_QUERY", decodeError(t, rec).Code)
}

func TestRouter_BidirectionalAndConnections(t *testing.T) {
	h := newTestRouter(t, RouterConfig{})

	rec := do(t, h, http.MethodPost, "/api/v1/links/bidirectional", map[string]string{
		"sourceType": "experiment", "sourceId": "E", "targetType": "protocol", "targetId": "P",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var pair struct {
		Forward linkJSON `json:"forward"`
		Reverse linkJSON `json:"reverse"`
	}
	decodeData(t, rec, &pair)
	assert.Equal(t, pair.Forward.SourceID, pair.Reverse.TargetID)

	rec = do(t, h, http.MethodGet, "/api/v1/entities/experiment/E/connections", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var conns struct {
		Backlinks []linkJSON `json:"backlinks"`
		Outgoing  []linkJSON `json:"outgoing"`
		Total     int        `json:"total"`
	}
	decodeData(t, rec, &conns)
	assert.Equal(t, 2, conns.Total)

	rec = do(t, h, http.MethodDelete, "/api/v1/entities/experiment/E/links", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var removed struct {
		Removed int `json:"deleted"`
	}
	decodeData(t, rec, &removed)
	assert.Equal(t, 2, removed.Removed)
}

func TestRouter_Graph(t *testing.T) {
	h := newTestRouter(t, RouterConfig{})
	createLink(t, h, "note", "A", "databaseEntry", "B")
	createLink(t, h, "databaseEntry", "B", "project", "C")

	rec := do(t, h, http.MethodGet, "/api/v1/graph?entityType=note&entityId=A&maxDepth=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var graph struct {
		Nodes []struct {
			ID    string `json:"id"`
			Label string `json:"label"`
		} `json:"nodes"`
		Edges     []map[string]interface{} `json:"edges"`
		Truncated bool                     `json:"truncated"`
	}
	decodeData(t, rec, &graph)
	assert.Len(t, graph.Nodes, 3)
	assert.Len(t, graph.Edges, 2)
	assert.Equal(t, "note A", graph.Nodes[0].Label)

	rec = do(t, h, http.MethodGet, "/api/v1/graph?maxDepth=deep", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/v1/graph?entityId=A", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "MISSING_ENTITY_TYPE", decodeError(t, rec).Code)
}

func TestRouter_HealthAndMetrics(t *testing.T) {
	observability.ResetForTesting()
	metrics := observability.NewCollector("resttest")
	h := newTestRouter(t, RouterConfig{EnableMetrics: true, Metrics: metrics})

	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/health", nil).Code)
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/ready", nil).Code)
	do(t, h, http.MethodGet, "/api/v1/links/not-a-uuid", nil)

	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.HTTPRequests.WithLabelValues("GET", "/api/v1/links/{linkID}", "400")))

	rec := do(t, h, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "resttest_http_requests_total")
}

func TestRouter_UnknownRoute(t *testing.T) {
	h := newTestRouter(t, RouterConfig{})

	rec := do(t, h, http.MethodGet, "/api/v2/links", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouter_Authentication(t *testing.T) {
	validator, err := auth.NewJWTValidator(auth.JWTConfig{SigningMethod: "HS256", SecretKey: "test-secret", Issuer: "eln"})
	require.NoError(t, err)
	h := newTestRouter(t, RouterConfig{Validator: validator})

	rec := do(t, h, http.MethodGet, "/api/v1/links", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/v1/links", nil, "Authorization", "Bearer "+signToken(t, "wrong"))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/v1/links", nil, "Authorization", "Bearer "+signToken(t, "test-secret"))
	assert.Equal(t, http.StatusOK, rec.Code)

	// health checks stay open
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/health", nil).Code)
}

func TestRouter_DeletesAreAuditedWithCaller(t *testing.T) {
	validator, err := auth.NewJWTValidator(auth.JWTConfig{SigningMethod: "HS256", SecretKey: "test-secret", Issuer: "eln"})
	require.NoError(t, err)

	core, logs := observer.New(zap.InfoLevel)
	h := newTestRouterWithLogger(t, RouterConfig{Validator: validator}, zap.New(core))
	bearer := "Bearer " + signToken(t, "test-secret")

	rec := do(t, h, http.MethodPost, "/api/v1/links", map[string]string{
		"sourceType": "note", "sourceId": "A", "targetType": "project", "targetId": "P",
	}, "Authorization", bearer)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created linkJSON
	decodeData(t, rec, &created)

	rec = do(t, h, http.MethodDelete, "/api/v1/links/"+created.ID, nil, "Authorization", bearer)
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec = do(t, h, http.MethodDelete, "/api/v1/entities/note/A/links", nil, "Authorization", bearer)
	require.Equal(t, http.StatusOK, rec.Code)

	deleted := logs.FilterMessage("Link deleted by request").All()
	require.Len(t, deleted, 1)
	assert.Equal(t, "u1", deleted[0].ContextMap()["userID"])
	assert.Equal(t, created.ID, deleted[0].ContextMap()["linkID"])

	purged := logs.FilterMessage("Removed entity links").All()
	require.Len(t, purged, 1)
	assert.Equal(t, "u1", purged[0].ContextMap()["userID"])
}

func TestRouter_DeleteWithoutAuthIsAnonymous(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	h := newTestRouterWithLogger(t, RouterConfig{}, zap.New(core))

	rec := do(t, h, http.MethodDelete, "/api/v1/entities/note/A/links", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	purged := logs.FilterMessage("Removed entity links").All()
	require.Len(t, purged, 1)
	assert.Equal(t, "anonymous", purged[0].ContextMap()["userID"])
}
