package middleware

import (
	"net/http"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"pantry-matcher/internal/pkg/common"
)

// abort 以預定義錯誤中止請求，並把錯誤代碼留給 Logger
func abort(c *gin.Context, status int, base *common.CustomError, details string) {
	c.Set(common.ErrorCodeKey, base.Code)
	c.AbortWithStatusJSON(status, common.ErrorResponse{
		Code:    base.Code,
		Message: base.Message,
		Details: details,
	})
}

// Logger 請求日誌；每筆帶上食材目錄版本，失敗時帶錯誤代碼，評分請求帶快取狀態
func Logger(catalogVersion string) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		status := c.Writer.Status()
		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}

		fields := []zap.Field{
			zap.Int("status", status),
			zap.String("method", c.Request.Method),
			zap.String("route", route),
			zap.String("ip", c.ClientIP()),
			zap.Duration("latency", time.Since(start)),
			zap.String("request_id", requestid.Get(c)),
			zap.String("catalog_version", catalogVersion),
		}
		if code := c.GetString(common.ErrorCodeKey); code != "" {
			fields = append(fields, zap.String("error_code", code))
		}
		if cache := c.Writer.Header().Get(common.CacheStatusHeader); cache != "" {
			fields = append(fields, zap.String("cache", cache))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.Strings("errors", c.Errors.Errors()))
		}

		switch {
		case status >= http.StatusInternalServerError:
			common.LogError("伺服器錯誤", fields...)
		case status >= http.StatusBadRequest:
			common.LogWarn("用戶端錯誤", fields...)
		default:
			common.LogInfo("請求完成", fields...)
		}
	}
}

// Recovery 攔截 panic 並回傳 INTERNAL_ERROR
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				common.LogError("Panic recovered",
					zap.Any("error", err),
					zap.String("route", c.FullPath()),
					zap.String("request_id", requestid.Get(c)),
					zap.Stack("stack"),
				)
				abort(c, http.StatusInternalServerError, common.ErrInternalError, "")
			}
		}()

		c.Next()
	}
}
