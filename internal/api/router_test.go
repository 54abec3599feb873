package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pantry-matcher/internal/core/catalog"
	"pantry-matcher/internal/core/engine"
	"pantry-matcher/internal/infrastructure/config"
	"pantry-matcher/internal/pkg/common"
)

func testConfig() *config.Config {
	ec := config.DefaultEngineConfig()
	return &config.Config{
		App: config.AppConfig{Env: "test", Debug: true, Version: "test"},
		Server: config.ServerConfig{
			Port:           8080,
			RequestTimeout: 5 * time.Second,
			MaxBodyBytes:   1 << 20,
			DedupWindow:    time.Minute,
		},
		Matching: ec.Matching,
		Scoring:  ec.Scoring,
		Cache:    ec.Cache,
	}
}

func newTestRouter(t *testing.T, cfg *config.Config) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cat, err := catalog.Default()
	require.NoError(t, err)
	eng, err := engine.New(cfg.Engine(), cat)
	require.NoError(t, err)
	t.Cleanup(func() { _ = eng.Close() })

	router, err := SetupRouter(cfg, eng)
	require.NoError(t, err)
	return router
}

func do(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func TestSetupRouterRequiresEngine(t *testing.T) {
	_, err := SetupRouter(testConfig(), nil)
	assert.Error(t, err)
}

func TestHealthRoutes(t *testing.T) {
	router := newTestRouter(t, testConfig())

	w := do(router, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Status  string `json:"status"`
		Version string `json:"version"`
		Catalog struct {
			Ingredients int `json:"ingredients"`
		} `json:"catalog"`
		Cache *struct {
			MaxSize int `json:"max_size"`
		} `json:"cache"`
	}
	decode(t, w, &body)
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, "test", body.Version)
	assert.Positive(t, body.Catalog.Ingredients)
	require.NotNil(t, body.Cache)

	assert.Equal(t, http.StatusOK, do(router, http.MethodGet, "/ready", "").Code)
	assert.Equal(t, http.StatusOK, do(router, http.MethodGet, "/live", "").Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestIngredientRoutes(t *testing.T) {
	router := newTestRouter(t, testConfig())

	t.Run("normalize", func(t *testing.T) {
		w := do(router, http.MethodPost, "/api/v1/ingredients/normalize", `{"text":"2 cups fresh chopped tomatoes"}`)
		require.Equal(t, http.StatusOK, w.Code)
		var body struct {
			Normalized string                  `json:"normalized"`
			Parsed     common.ParsedIngredient `json:"parsed"`
		}
		decode(t, w, &body)
		assert.Equal(t, "tomato", body.Normalized)
		require.NotNil(t, body.Parsed.Quantity)
		assert.Equal(t, 2.0, *body.Parsed.Quantity)
	})

	t.Run("match hides debug path by default", func(t *testing.T) {
		w := do(router, http.MethodPost, "/api/v1/ingredients/match", `{"a":"Olive Oil","b":"evoo"}`)
		require.Equal(t, http.StatusOK, w.Code)
		var body struct {
			common.MatchResult
			Level string `json:"level"`
		}
		decode(t, w, &body)
		assert.Equal(t, "olive_oil", body.CanonicalID)
		assert.Equal(t, 2, body.Tier)
		assert.Equal(t, "high", body.Level)
		assert.Empty(t, body.DebugPath)

		w = do(router, http.MethodPost, "/api/v1/ingredients/match", `{"a":"Olive Oil","b":"evoo","debug":true}`)
		decode(t, w, &body)
		assert.NotEmpty(t, body.DebugPath)
	})

	t.Run("resolve includes ingredient", func(t *testing.T) {
		w := do(router, http.MethodPost, "/api/v1/ingredients/resolve", `{"text":"extra virgin olive oil"}`)
		require.Equal(t, http.StatusOK, w.Code)
		var body struct {
			CanonicalID string                      `json:"canonical_id"`
			Ingredient  *common.CanonicalIngredient `json:"ingredient"`
		}
		decode(t, w, &body)
		assert.Equal(t, "olive_oil", body.CanonicalID)
		require.NotNil(t, body.Ingredient)
		assert.Equal(t, "olive_oil", body.Ingredient.ID)
	})

	t.Run("get by id", func(t *testing.T) {
		w := do(router, http.MethodGet, "/api/v1/ingredients/olive_oil", "")
		require.Equal(t, http.StatusOK, w.Code)

		w = do(router, http.MethodGet, "/api/v1/ingredients/unobtainium", "")
		require.Equal(t, http.StatusNotFound, w.Code)
		var errBody common.ErrorResponse
		decode(t, w, &errBody)
		assert.Equal(t, common.ErrCodeUnknownIngredient, errBody.Code)
	})

	t.Run("empty text is rejected", func(t *testing.T) {
		w := do(router, http.MethodPost, "/api/v1/ingredients/normalize", `{}`)
		require.Equal(t, http.StatusBadRequest, w.Code)
		var errBody common.ErrorResponse
		decode(t, w, &errBody)
		assert.Equal(t, common.ErrCodeInvalidRequest, errBody.Code)
	})
}

func TestConvertRoute(t *testing.T) {
	router := newTestRouter(t, testConfig())

	w := do(router, http.MethodPost, "/api/v1/units/convert", `{"quantity":1,"from":"cup","to":"ml"}`)
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Success bool    `json:"success"`
		Value   float64 `json:"value"`
		Display string  `json:"display"`
	}
	decode(t, w, &body)
	assert.True(t, body.Success)
	assert.InDelta(t, 236.59, body.Value, 0.01)
	assert.NotEmpty(t, body.Display)

	// 沒有密度資料時換算失敗，但仍是 200
	w = do(router, http.MethodPost, "/api/v1/units/convert", `{"quantity":1,"from":"cup","to":"g"}`)
	require.Equal(t, http.StatusOK, w.Code)
	var failed struct {
		Success bool   `json:"success"`
		Reason  string `json:"reason"`
	}
	decode(t, w, &failed)
	assert.False(t, failed.Success)
	assert.NotEmpty(t, failed.Reason)

	w = do(router, http.MethodPost, "/api/v1/units/convert", `{"from":"cup","to":"ml"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(router, http.MethodPost, "/api/v1/units/convert", `{"quantity":1,"from":"cup","to":"g","ingredient_id":"unobtainium"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRecipeRoutes(t *testing.T) {
	router := newTestRouter(t, testConfig())

	recipe := `{"id":"r1","name":"Pancakes","ingredients":[{"recipe_text":"2 cup flour"},{"recipe_text":"1 egg"}]}`
	inventory := `[{"id":"i1","name":"flour","quantity":1,"unit":"kg"}]`

	w := do(router, http.MethodPost, "/api/v1/recipes/score", `{"recipe":`+recipe+`,"inventory":`+inventory+`}`)
	require.Equal(t, http.StatusOK, w.Code)
	var score common.RecipeScore
	decode(t, w, &score)
	assert.Equal(t, "r1", score.RecipeID)
	assert.Equal(t, 50.0, score.MatchPercentage)
	assert.Equal(t, "MISS", w.Header().Get("X-Cache"))
	firstBody := w.Body.String()

	w = do(router, http.MethodPost, "/api/v1/recipes/score", `{"recipe":`+recipe+`,"inventory":`+inventory+`}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "HIT", w.Header().Get("X-Cache"))
	assert.Equal(t, firstBody, w.Body.String())

	other := `{"id":"r2","name":"Toast","ingredients":[{"recipe_text":"2 cup flour"}]}`
	w = do(router, http.MethodPost, "/api/v1/recipes/score/batch", `{"recipes":[`+recipe+`,`+other+`],"inventory":`+inventory+`}`)
	require.Equal(t, http.StatusOK, w.Code)
	var batch struct {
		Scores []common.RecipeScore `json:"scores"`
		Count  int                  `json:"count"`
	}
	decode(t, w, &batch)
	require.Equal(t, 2, batch.Count)
	assert.Equal(t, "r2", batch.Scores[0].RecipeID)
	assert.Equal(t, "r1", batch.Scores[1].RecipeID)
}

func TestShoppingRoutes(t *testing.T) {
	router := newTestRouter(t, testConfig())

	w := do(router, http.MethodPost, "/api/v1/shopping/needed",
		`{"recipe":{"id":"r1","name":"Pancakes","ingredients":[{"recipe_text":"2 cup flour"}]},"inventory":[{"id":"i1","name":"flour","quantity":1,"unit":"cup"}]}`)
	require.Equal(t, http.StatusOK, w.Code)
	var needed struct {
		Needed []common.NeededIngredient `json:"needed"`
	}
	decode(t, w, &needed)
	require.Len(t, needed.Needed, 1)
	assert.Equal(t, "Flour", needed.Needed[0].Name)

	payload, err := json.Marshal(map[string]interface{}{"needed": needed.Needed})
	require.NoError(t, err)

	w = do(router, http.MethodPost, "/api/v1/shopping/merge", string(payload))
	require.Equal(t, http.StatusOK, w.Code)
	var merged common.MergeResult
	decode(t, w, &merged)
	require.Len(t, merged.ToAdd, 1)
	assert.Equal(t, []string{"+1 cup for Pancakes"}, merged.ToAdd[0].Notes)
	assert.NotNil(t, merged.ToUpdate)

	// 相同內容重送
	w = do(router, http.MethodPost, "/api/v1/shopping/merge", string(payload))
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestRouterLimits(t *testing.T) {
	t.Run("rate limit", func(t *testing.T) {
		cfg := testConfig()
		cfg.RateLimit = config.RateLimitConfig{Enabled: true, Requests: 2, Window: time.Hour}
		router := newTestRouter(t, cfg)

		assert.Equal(t, http.StatusOK, do(router, http.MethodGet, "/live", "").Code)
		assert.Equal(t, http.StatusOK, do(router, http.MethodGet, "/live", "").Code)
		w := do(router, http.MethodGet, "/live", "")
		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.NotEmpty(t, w.Header().Get("Retry-After"))
	})

	t.Run("body size", func(t *testing.T) {
		cfg := testConfig()
		cfg.Server.MaxBodyBytes = 32
		router := newTestRouter(t, cfg)

		w := do(router, http.MethodPost, "/api/v1/ingredients/normalize", `{"text":"`+strings.Repeat("a", 64)+`"}`)
		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)

		// 未宣告長度時在解碼途中截斷，錯誤代碼相同
		req := httptest.NewRequest(http.MethodPost, "/api/v1/ingredients/normalize",
			strings.NewReader(`{"text":"`+strings.Repeat("a", 64)+`"}`))
		req.Header.Set("Content-Type", "application/json")
		req.ContentLength = -1
		w = httptest.NewRecorder()
		router.ServeHTTP(w, req)
		require.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
		var resp common.ErrorResponse
		decode(t, w, &resp)
		assert.Equal(t, common.ErrCodeRequestTooLarge, resp.Code)
	})
}
