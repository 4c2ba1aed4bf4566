package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apitypes "github.com/weisyn/scriptindex/internal/api/http/types"
	infralog "github.com/weisyn/scriptindex/pkg/interfaces/infrastructure/log"
)

// Recovery 捕获处理器 panic 并返回统一错误格式
func Recovery(logger infralog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				if logger != nil {
					logger.Errorf("[PANIC] %s %s: %v", c.Request.Method, c.Request.URL.Path, r)
				}
				WriteError(c, http.StatusInternalServerError, apitypes.ErrInternal, "Internal server error", nil)
			}
		}()
		c.Next()
	}
}

// WriteError 写入错误响应
//
// message 前缀为状态码，例如 "400: Unknown script type: foo"。
func WriteError(c *gin.Context, status int, code string, message string, details interface{}) {
	resp := apitypes.NewErrorResponse(code, fmt.Sprintf("%d: %s", status, message), details).
		WithRequestID(GetRequestID(c)).
		WithTimestamp(time.Now().UTC().Format(time.RFC3339))
	c.AbortWithStatusJSON(status, resp)
}
