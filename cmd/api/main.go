package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"pantry-matcher/internal/api"
	"pantry-matcher/internal/core/cache"
	"pantry-matcher/internal/core/catalog"
	"pantry-matcher/internal/core/engine"
	"pantry-matcher/internal/infrastructure/config"
	"pantry-matcher/internal/pkg/common"
)

func main() {
	// 載入設定（含選用的 .env）
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 初始化 logger（需在載入 config 後）
	if err := common.InitLogger(common.LoggerOptions{
		Level:   cfg.LogLevel,
		Dir:     cfg.LogDir,
		Service: cfg.App.Name,
	}); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer common.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 載入食材目錄
	cat, err := catalog.Load(ctx, cfg.Catalog)
	if err != nil {
		common.LogFatal("Failed to load catalog", zap.Error(err))
	}

	// 共用分數快取為選用
	var opts []engine.Option
	if cfg.Redis.Enabled {
		store, err := cache.NewRedisStore[common.RecipeScore](ctx, cfg.Redis, cfg.Cache.TTL)
		if err != nil {
			common.LogWarn("Redis 不可用，僅使用本地快取", zap.Error(err))
		} else {
			defer store.Close()
			opts = append(opts, engine.WithRemoteCache(store))
		}
	}

	eng, err := engine.New(cfg.Engine(), cat, opts...)
	if err != nil {
		common.LogFatal("Failed to initialize engine", zap.Error(err))
	}
	defer eng.Close()
	eng.StartCleanup(ctx)

	// 設置路由
	router, err := api.SetupRouter(cfg, eng)
	if err != nil {
		common.LogError("Failed to setup router", zap.Error(err))
		os.Exit(1)
	}

	// 設置 HTTP 服務器
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// 啟動服務器
	go func() {
		common.LogInfo("啟動應用",
			zap.String("version", cfg.App.Version),
			zap.String("env", cfg.App.Env),
			zap.Bool("debug", cfg.App.Debug),
			zap.Int("port", cfg.Server.Port),
			zap.String("catalog_version", eng.CatalogVersion()),
		)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			common.LogFatal("Failed to start server", zap.Error(err))
		}
	}()

	// 等待中斷信號
	<-ctx.Done()
	stop()

	common.LogInfo("Shutting down server...")

	// 設置關閉超時
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		common.LogError("Server forced to shutdown", zap.Error(err))
		return
	}

	common.LogInfo("Server exited")
}
