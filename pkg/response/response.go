// Package response 提供统一的 HTTP 响应处理
package response

import (
	"net/http"

	"medical/pkg/logger"

	"github.com/gin-gonic/gin"
)

/* 标准响应结构，HTTP 状态码与 code 一致
{
    "code": 200,
    "message": "success",
    "data": {}
}
*/

// Response 统一响应结构体
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

// ------------------ 成功响应 ------------------

// Data 响应 200 和数据
func Data(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    http.StatusOK,
		Message: "success",
		Data:    data,
	})
}

// Success 响应 200，data 为 null
func Success(c *gin.Context) {
	c.JSON(http.StatusOK, Response{
		Code:    http.StatusOK,
		Message: "success",
	})
}

// ------------------ 错误响应 ------------------

// Abort 以指定状态码中断请求
func Abort(c *gin.Context, code int, message string, data interface{}) {
	c.AbortWithStatusJSON(code, Response{
		Code:    code,
		Message: message,
		Data:    data,
	})
}

// Abort400 响应 400 错误
func Abort400(c *gin.Context, msg ...string) {
	Abort(c, http.StatusBadRequest, getMsg("请求参数错误", msg...), nil)
}

// Abort404 响应 404 错误
func Abort404(c *gin.Context, msg ...string) {
	Abort(c, http.StatusNotFound, getMsg("资源不存在", msg...), nil)
}

// Abort409 响应 409 错误
func Abort409(c *gin.Context, msg ...string) {
	Abort(c, http.StatusConflict, getMsg("记录已被其他请求处理", msg...), nil)
}

// Abort429 响应 429 错误
func Abort429(c *gin.Context, msg ...string) {
	Abort(c, http.StatusTooManyRequests, getMsg("请求太频繁，请稍后再试", msg...), nil)
}

// Abort500 响应 500 错误
func Abort500(c *gin.Context, msg ...string) {
	Abort(c, http.StatusInternalServerError, getMsg("服务器内部错误", msg...), nil)
}

// BadRequest 请求体无法解析
func BadRequest(c *gin.Context, err error, msg ...string) {
	logger.LogWarnIf(err)
	Abort(c, http.StatusBadRequest, getMsg("请求格式错误: "+err.Error(), msg...), nil)
}

// ServerError 响应 500 错误并记录日志
func ServerError(c *gin.Context, err error, msg ...string) {
	logger.LogIf(err)
	Abort(c, http.StatusInternalServerError, getMsg("服务器内部错误: "+err.Error(), msg...), nil)
}

// ValidationError 表单验证失败，message 形如 "windowName: 窗口名不能为空"
func ValidationError(c *gin.Context, field, message string) {
	Abort(c, http.StatusBadRequest, field+": "+message, nil)
}

func getMsg(defaultMsg string, msg ...string) string {
	if len(msg) > 0 && msg[0] != "" {
		return msg[0]
	}
	return defaultMsg
}
