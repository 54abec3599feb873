package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"pantry-matcher/internal/pkg/common"
)

// BindJSON 解析請求內容，失敗時直接寫入錯誤響應並回傳 false
func BindJSON(c *gin.Context, v interface{}) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			RespondError(c, common.Wrap(common.ErrRequestTooLarge, err))
			return false
		}
		RespondError(c, common.Wrap(common.ErrInvalidRequest, err))
		return false
	}
	return true
}

// RespondError 將錯誤轉為 JSON 錯誤響應
func RespondError(c *gin.Context, err error) {
	if errors.Is(err, context.DeadlineExceeded) {
		err = common.Wrap(common.ErrRequestTimeout, err)
	}

	status := common.StatusOf(err)
	resp := common.ErrorResponse{
		Code:    common.ErrCodeInternalError,
		Message: common.ErrInternalError.Message,
	}
	var ce *common.CustomError
	if errors.As(err, &ce) {
		resp.Code = ce.Code
		resp.Message = ce.Message
	}
	// 詳細信息僅在開發模式顯示
	if gin.Mode() != gin.ReleaseMode {
		resp.Details = err.Error()
	}

	fields := []zap.Field{
		zap.Error(err),
		zap.Int("status", status),
		zap.String("path", c.Request.URL.Path),
		zap.String("request_id", requestid.Get(c)),
	}
	if status >= http.StatusInternalServerError {
		common.LogError("請求處理失敗", fields...)
	} else {
		common.LogDebug("請求處理失敗", fields...)
	}

	_ = c.Error(err)
	c.Set(common.ErrorCodeKey, resp.Code)
	c.AbortWithStatusJSON(status, resp)
}
