// Package bootstrap 处理程序初始化逻辑
package bootstrap

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"medical/app/http/middlewares"
	"medical/pkg/response"
	"medical/routes"
)

// SetupRoute 路由初始化
func SetupRoute(router *gin.Engine) {
	// 注册全局中间件
	registerGlobalMiddleWare(router)

	routes.RegisterAPIRoutes(router)

	setup404Handler(router)
}

func registerGlobalMiddleWare(router *gin.Engine) {
	router.Use(
		middlewares.Logger(),
		middlewares.Recovery(),
	)
}

// setup404Handler 根据 Accept 头返回文本或统一响应格式的 404
func setup404Handler(router *gin.Engine) {
	router.NoRoute(func(c *gin.Context) {
		if strings.Contains(c.Request.Header.Get("Accept"), "text/html") {
			c.String(http.StatusNotFound, "页面返回 404")
			return
		}
		response.Abort404(c, "路由未定义，请确认 url 和请求方法是否正确。")
	})
}
