package di

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ariellewolter/research-notebook-ver4-sub004/infrastructure/config"
	"github.com/ariellewolter/research-notebook-ver4-sub004/pkg/observability"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		Environment:     "test",
		ServiceName:     "eln-links-test",
		StoreBackend:    config.BackendMemory,
		AWSRegion:       "us-west-2",
		EventPublisher:  config.PublisherNone,
		SummarySource:   config.SummaryStatic,
		SummaryCacheTTL: 30,
		LogLevel:        "error",
		EnableMetrics:   true,
		Limits:          config.DefaultLimits(),
		Summaries: config.SummarySources{
			Static: []config.StaticSummary{{Type: "note", ID: "A", Title: "Lab meeting"}},
		},
	}
}

func TestInitializeContainer_MemoryBackend(t *testing.T) {
	observability.ResetForTesting()
	cfg := testConfig()
	require.NoError(t, cfg.Validate())

	container, cleanup, err := InitializeContainer(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(cleanup)

	require.NoError(t, container.Validate())
	assert.Nil(t, container.Watcher)

	rec := httptest.NewRecorder()
	container.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestInitializeContainer_ResolvesStaticSummaries(t *testing.T) {
	observability.ResetForTesting()
	container, cleanup, err := InitializeContainer(context.Background(), testConfig())
	require.NoError(t, err)
	t.Cleanup(cleanup)

	body, _ := json.Marshal(map[string]string{
		"sourceType": "note", "sourceId": "A", "targetType": "project", "targetId": "P",
	})
	rec := httptest.NewRecorder()
	container.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/links", bytes.NewReader(body)))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = httptest.NewRecorder()
	container.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/entities/project/P/backlinks", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data struct {
			Links []struct {
				Source *struct {
					Title string `json:"title"`
				} `json:"source"`
			} `json:"links"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Data.Links, 1)
	require.NotNil(t, resp.Data.Links[0].Source)
	assert.Equal(t, "Lab meeting", resp.Data.Links[0].Source.Title)
}

func TestContainer_ValidateReportsMissing(t *testing.T) {
	err := (&Container{}).Validate()

	require.Error(t, err)
	assert.Equal(t, "missing dependency: logger", err.Error())
}
