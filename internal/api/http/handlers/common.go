// Package handlers provides HTTP API handlers for the script history index
package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/weisyn/scriptindex/internal/api/format"
	"github.com/weisyn/scriptindex/internal/api/http/middleware"
	apitypes "github.com/weisyn/scriptindex/internal/api/http/types"
	"github.com/weisyn/scriptindex/pkg/interfaces/infrastructure/log"
	"github.com/weisyn/scriptindex/pkg/types"
)

// wantsProtobuf 请求是否要求协议缓冲区响应
func wantsProtobuf(c *gin.Context) bool {
	return strings.Contains(c.GetHeader("Accept"), format.ContentTypeProtobuf)
}

// writePage 按 Accept 头写出分页结果
func writePage(c *gin.Context, page *types.Page) {
	if wantsProtobuf(c) {
		c.Data(http.StatusOK, format.ContentTypeProtobuf, format.EncodePage(page))
		return
	}
	c.JSON(http.StatusOK, apitypes.NewHistoryPageResponse(page))
}

// writeQueryError 把查询错误映射为响应
//
// 输入错误为 400，其余为 500；内部错误细节只进日志。
func writeQueryError(c *gin.Context, logger log.Logger, err error) {
	status := http.StatusInternalServerError
	code := apitypes.ErrInternal
	message := "Internal server error"
	var details interface{}

	var qe *types.QueryError
	if errors.As(err, &qe) {
		status = qe.Status()
		code = apitypes.ErrInvalidArgument
		message = qe.Error()
		details = gin.H{"reason": string(qe.Code)}
	} else if logger != nil {
		logger.Errorf("查询处理失败 request_id=%s: %v", middleware.GetRequestID(c), err)
	}
	_ = c.Error(err)

	if wantsProtobuf(c) {
		c.Data(status, format.ContentTypeProtobuf, format.EncodeError(fmt.Sprintf("%d: %s", status, message)))
		c.Abort()
		return
	}
	middleware.WriteError(c, status, code, message, details)
}
