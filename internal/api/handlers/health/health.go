package health

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"pantry-matcher/internal/core/cache"
	"pantry-matcher/internal/core/engine"
	"pantry-matcher/internal/infrastructure/config"
	"pantry-matcher/internal/pkg/common"
)

// HealthResponse 健康檢查響應
type HealthResponse struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version"`
	Catalog   CatalogStatus          `json:"catalog"`
	Cache     *cache.Stats           `json:"cache,omitempty"`
	Runtime   map[string]interface{} `json:"runtime"`
}

// CatalogStatus 目錄狀態
type CatalogStatus struct {
	Version     string `json:"version"`
	Ingredients int    `json:"ingredients"`
	Categories  int    `json:"categories"`
}

// Handler 健康檢查處理程序
type Handler struct {
	cfg    *config.Config
	engine *engine.Engine
}

// NewHandler 創建新的健康檢查處理程序
func NewHandler(cfg *config.Config, e *engine.Engine) *Handler {
	return &Handler{cfg: cfg, engine: e}
}

// HealthCheck 健康檢查處理器
func (h *Handler) HealthCheck(c *gin.Context) {
	// 獲取運行時信息
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	reg := h.engine.Registry()
	response := HealthResponse{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   h.cfg.App.Version,
		Catalog: CatalogStatus{
			Version:     h.engine.CatalogVersion(),
			Ingredients: reg.Len(),
			Categories:  len(reg.Categories()),
		},
		Runtime: map[string]interface{}{
			"goroutines": runtime.NumGoroutine(),
			"memory": map[string]interface{}{
				"alloc":       m.Alloc,
				"total_alloc": m.TotalAlloc,
				"sys":         m.Sys,
				"num_gc":      m.NumGC,
			},
		},
	}
	if stats, ok := h.engine.CacheStats(); ok {
		response.Cache = &stats
	}

	common.LogDebug("Health check request",
		zap.String("client_ip", c.ClientIP()),
		zap.String("path", c.Request.URL.Path),
	)

	c.JSON(http.StatusOK, response)
}

// ReadinessCheck 就緒檢查處理器；目錄為空時回傳 503
func (h *Handler) ReadinessCheck(c *gin.Context) {
	if h.engine.Registry().Len() == 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not_ready",
			"reason": "catalog is empty",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":          "ready",
		"catalog_version": h.engine.CatalogVersion(),
	})
}

// LivenessCheck 存活檢查處理器
func (h *Handler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "alive",
	})
}
