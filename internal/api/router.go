package api

import (
	"errors"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"pantry-matcher/internal/api/handlers/health"
	ingredientHandler "pantry-matcher/internal/api/handlers/ingredient"
	recipeHandler "pantry-matcher/internal/api/handlers/recipe"
	"pantry-matcher/internal/api/middleware"
	"pantry-matcher/internal/core/engine"
	"pantry-matcher/internal/infrastructure/config"
	"pantry-matcher/internal/pkg/common"
)

// SetupRouter 設置路由
func SetupRouter(cfg *config.Config, eng *engine.Engine) (*gin.Engine, error) {
	if cfg == nil || eng == nil {
		return nil, errors.New("router requires config and engine")
	}

	common.LogInfo("Starting router setup",
		zap.Bool("debug_mode", cfg.App.Debug),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Env),
	)

	// 設置 gin 模式
	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	// 創建路由引擎
	router := gin.New()

	// 註冊基礎中間件
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger(eng.CatalogVersion()))
	router.Use(requestid.New()) // 自動生成請求 ID

	// CORS 設置
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID", common.CacheStatusHeader},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	// 請求體大小限制
	router.Use(middleware.BodySizeLimit(cfg.Server.MaxBodyBytes))

	if cfg.RateLimit.Enabled {
		router.Use(middleware.RateLimit(cfg.RateLimit.Requests, cfg.RateLimit.Window))
	}
	router.Use(middleware.Timeout(cfg.Server.RequestTimeout))

	healthHandler := health.NewHandler(cfg, eng)
	ingredients := ingredientHandler.NewHandler(eng)
	recipes := recipeHandler.NewHandler(eng)

	// 健康檢查路由
	router.GET("/health", healthHandler.HealthCheck)
	router.GET("/ready", healthHandler.ReadinessCheck)
	router.GET("/live", healthHandler.LivenessCheck)

	// API 路由組
	api := router.Group("/api/v1")
	{
		ingredientGroup := api.Group("/ingredients")
		{
			ingredientGroup.POST("/normalize", ingredients.Normalize)
			ingredientGroup.POST("/match", ingredients.Match)
			ingredientGroup.POST("/resolve", ingredients.Resolve)
			ingredientGroup.GET("/:id", ingredients.Get)
		}

		api.POST("/units/convert", ingredients.Convert)

		recipeGroup := api.Group("/recipes")
		{
			recipeGroup.POST("/score", recipes.Score)
			recipeGroup.POST("/score/batch", recipes.ScoreBatch)
		}

		shoppingGroup := api.Group("/shopping", middleware.Deduplication(cfg.Server.DedupWindow))
		{
			shoppingGroup.POST("/needed", recipes.Needed)
			shoppingGroup.POST("/merge", recipes.Merge)
		}
	}

	common.LogInfo("Router setup completed successfully",
		zap.String("catalog_version", eng.CatalogVersion()),
		zap.Int("ingredients", eng.Registry().Len()),
		zap.Bool("rate_limit", cfg.RateLimit.Enabled),
		zap.Duration("timeout", cfg.Server.RequestTimeout),
		zap.Int64("max_body_size", cfg.Server.MaxBodyBytes),
	)

	return router, nil
}
