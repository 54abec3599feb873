package middleware

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"pantry-matcher/internal/pkg/common"
)

// BodySizeLimit 限制食譜與庫存 JSON 的大小。
// 宣告的 Content-Length 超過上限時直接回 413；未宣告長度時由 MaxBytesReader
// 在解碼中途截斷，交給 handlers.BindJSON 回應同一個錯誤代碼。
func BodySizeLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if maxBytes <= 0 || c.Request.Body == nil || c.Request.Body == http.NoBody {
			c.Next()
			return
		}

		if n := c.Request.ContentLength; n > maxBytes {
			common.LogWarn("請求內容過大",
				zap.Int64("content_length", n),
				zap.Int64("max_bytes", maxBytes),
				zap.String("route", c.FullPath()),
				zap.String("ip", c.ClientIP()),
			)
			abort(c, http.StatusRequestEntityTooLarge, common.ErrRequestTooLarge, fmt.Sprintf("max %d bytes", maxBytes))
			return
		}

		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
