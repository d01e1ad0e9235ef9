package api

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"recipe-suggester/internal/core/artifact"
	suggestService "recipe-suggester/internal/core/suggest"
	"recipe-suggester/internal/infrastructure/config"
	"recipe-suggester/internal/pkg/common"
)

func TestMain(m *testing.M) {
	common.Logger = zap.NewNop()
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func routerConfig(t *testing.T) *config.Config {
	cfg := &config.Config{}
	cfg.App.Version = "test"
	cfg.Index.HashDim = 1 << 12
	cfg.Index.Components = 8
	cfg.Index.ChunkSize = 100
	cfg.Index.Workers = 2
	cfg.Index.SVDIters = 2
	cfg.Index.Oversample = 10
	cfg.Query.Candidates = 50
	cfg.Query.TopN = 5
	cfg.Query.MinRecipeIngredients = 3
	cfg.Artifacts.Dir = t.TempDir()
	cfg.Artifacts.Timeout = 5 * time.Second
	return cfg
}

func buildManager(t *testing.T, cfg *config.Config) *suggestService.Manager {
	t.Helper()
	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)
	require.NoError(t, w.Write([]string{"title", "ingredients", "directions", "link"}))
	require.NoError(t, w.Write([]string{"Pancakes", `["eggs", "flour", "milk", "sugar"]`, `["mix"]`, "example.com/1"}))
	require.NoError(t, w.Write([]string{"Omelette", `["eggs", "flour", "butter"]`, `["cook"]`, "example.com/2"}))
	require.NoError(t, w.Write([]string{"Congee", `["rice", "chicken", "broth"]`, `["simmer"]`, "example.com/3"}))
	w.Flush()

	gen, err := suggestService.NewBuilder(cfg).Build(context.Background(), buf)
	require.NoError(t, err)
	m := suggestService.NewManager()
	m.Swap(gen)
	return m
}

func doRequest(t *testing.T, router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestSuggestEndpoint(t *testing.T) {
	cfg := routerConfig(t)
	router, err := SetupRouter(cfg, buildManager(t, cfg), nil)
	require.NoError(t, err)

	rec := doRequest(t, router, http.MethodPost, "/api/v1/recipe/suggest",
		`{"ingredients": "eggs, flour, milk"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Recipes []common.Suggestion `json:"recipes"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Recipes)
	assert.Equal(t, "Pancakes", resp.Recipes[0].Title)
	assert.Equal(t, 75, resp.Recipes[0].Match)
}

func TestSuggestEndpointEmptyQuery(t *testing.T) {
	cfg := routerConfig(t)
	router, err := SetupRouter(cfg, buildManager(t, cfg), nil)
	require.NoError(t, err)

	// 空查詢回 200 與空列表，不是錯誤
	rec := doRequest(t, router, http.MethodPost, "/api/v1/recipe/suggest", `{"ingredients": ""}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Recipes []common.Suggestion `json:"recipes"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Empty(t, resp.Recipes)
}

func TestSuggestEndpointNoGeneration(t *testing.T) {
	cfg := routerConfig(t)
	router, err := SetupRouter(cfg, suggestService.NewManager(), nil)
	require.NoError(t, err)

	rec := doRequest(t, router, http.MethodPost, "/api/v1/recipe/suggest",
		`{"ingredients": "eggs, flour"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var resp struct {
		Code string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, common.ErrCodeServiceUnavailable, resp.Code)
}

func TestSuggestEndpointInvalidBody(t *testing.T) {
	cfg := routerConfig(t)
	router, err := SetupRouter(cfg, buildManager(t, cfg), nil)
	require.NoError(t, err)

	rec := doRequest(t, router, http.MethodPost, "/api/v1/recipe/suggest", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var resp struct {
		Code string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, common.ErrCodeInvalidRequest, resp.Code)
}

func TestHealthEndpoints(t *testing.T) {
	cfg := routerConfig(t)
	manager := suggestService.NewManager()
	router, err := SetupRouter(cfg, manager, nil)
	require.NoError(t, err)

	rec := doRequest(t, router, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var health struct {
		Status string `json:"status"`
		Index  struct {
			Loaded bool `json:"loaded"`
			Rows   int  `json:"rows"`
		} `json:"index"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, "needs_models", health.Status)
	assert.False(t, health.Index.Loaded)

	assert.Equal(t, http.StatusServiceUnavailable, doRequest(t, router, http.MethodGet, "/ready", "").Code)
	assert.Equal(t, http.StatusOK, doRequest(t, router, http.MethodGet, "/live", "").Code)

	// 載入世代後健康檢查轉為 ok，就緒檢查通過
	loaded := buildManager(t, cfg)
	manager.Swap(loaded.Current())

	rec = doRequest(t, router, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, "ok", health.Status)
	assert.True(t, health.Index.Loaded)
	assert.Equal(t, 3, health.Index.Rows)

	assert.Equal(t, http.StatusOK, doRequest(t, router, http.MethodGet, "/ready", "").Code)
}

func TestReloadEndpoint(t *testing.T) {
	cfg := routerConfig(t)
	source := buildManager(t, cfg)
	require.NoError(t, artifact.Save(cfg.Artifacts.Dir, source.Current()))

	manager := suggestService.NewManager()
	router, err := SetupRouter(cfg, manager, nil)
	require.NoError(t, err)

	rec := doRequest(t, router, http.MethodPost, "/api/v1/admin/models/reload", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, manager.Loaded())

	var resp struct {
		Success bool   `json:"success"`
		BuildID string `json:"build_id"`
		Rows    int    `json:"rows"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, source.Current().BuildID, resp.BuildID)
	assert.Equal(t, 3, resp.Rows)
}

func TestReloadEndpointMissingArtifacts(t *testing.T) {
	cfg := routerConfig(t)
	manager := suggestService.NewManager()
	router, err := SetupRouter(cfg, manager, nil)
	require.NoError(t, err)

	rec := doRequest(t, router, http.MethodPost, "/api/v1/admin/models/reload", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.False(t, manager.Loaded())

	var resp struct {
		Code string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "MISSING_ARTIFACT", resp.Code)
}

func TestDownloadEndpointRequiresURL(t *testing.T) {
	cfg := routerConfig(t)
	cfg.Artifacts.RemoteURL = ""
	router, err := SetupRouter(cfg, suggestService.NewManager(), nil)
	require.NoError(t, err)

	rec := doRequest(t, router, http.MethodPost, "/api/v1/admin/models/download", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
