package middleware

import (
	"bytes"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"pantry-matcher/internal/core/cache"
	"pantry-matcher/internal/pkg/common"
)

// maxDedupEntries 去重表的容量上限
const maxDedupEntries = 10000

// Deduplication 請求去重中間件：同一用戶端在 window 內重送相同的寫入請求時回傳 409
func Deduplication(window time.Duration) gin.HandlerFunc {
	if window <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	seen := cache.NewManager[time.Time]("dedup", maxDedupEntries, window)

	return func(c *gin.Context) {
		// 只處理 POST 請求
		if c.Request.Method != http.MethodPost {
			c.Next()
			return
		}

		// 計算請求體哈希
		h := xxhash.New()
		_, _ = h.WriteString(c.ClientIP())
		_, _ = h.WriteString(c.Request.Method + ":" + c.Request.URL.Path)
		if c.Request.Body != nil {
			body, err := io.ReadAll(c.Request.Body)
			if err != nil {
				common.LogError("Failed to read request body", zap.Error(err))
				c.Next()
				return
			}
			_, _ = h.Write(body)

			// 恢復請求體
			c.Request.Body = io.NopCloser(bytes.NewReader(body))
		}
		fingerprint := strconv.FormatUint(h.Sum64(), 16)

		// 檢查是否是重複請求
		if !seen.Add(fingerprint, time.Now()) {
			common.LogWarn("重複請求已忽略",
				zap.String("path", c.Request.URL.Path),
				zap.String("ip", c.ClientIP()),
			)
			abort(c, http.StatusConflict, common.ErrDuplicate, "")
			return
		}

		c.Next()
	}
}
