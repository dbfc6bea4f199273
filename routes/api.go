// Package routes 注册路由
package routes

import (
	"github.com/gin-gonic/gin"

	"medical/app/http/controllers/api/v1/medical"
	"medical/app/http/controllers/api/v1/terminal"
	"medical/app/http/middlewares"
	"medical/pkg/config"
)

// RegisterAPIRoutes 注册所有 API 路由
func RegisterAPIRoutes(r *gin.Engine) {
	RegisterMedicalRoutes(r, medical.NewMedicalController(), terminal.NewTerminalController())
}

// RegisterMedicalRoutes 使用给定的控制器注册收退费与终端路由
func RegisterMedicalRoutes(r *gin.Engine, mc *medical.MedicalController, tc *terminal.TerminalController) {
	api := r.Group("/thirdpart")
	api.Use(
		middlewares.SecurityHeaders(),
		middlewares.LimitIP(config.GetString("app.api_rate_limit", "30000-H")),
		middlewares.Cors(),
	)

	writeLimit := middlewares.LimitWrite(config.GetString("app.write_rate_limit", "600-M"), nil)

	medicalRoutes := api.Group("/medical")
	{
		// 收费
		medicalRoutes.POST("/chargeButtonClick", writeLimit, mc.ChargeButtonClick)
		medicalRoutes.POST("/confirmPayment", writeLimit, mc.ConfirmPayment)

		// 退费
		medicalRoutes.POST("/refundButtonClick", writeLimit, mc.RefundButtonClick)
		medicalRoutes.POST("/confirmRefund", writeLimit, mc.ConfirmRefund)

		charge := mc.ChargeQuery()
		medicalRoutes.GET("/charge/records/:identityCardNumber", charge.ByIdentityCard)
		medicalRoutes.GET("/charge/pending", charge.Pending)
		medicalRoutes.GET("/charge/hospital/:addressId", charge.ByAddress)
		medicalRoutes.GET("/charge/search", charge.Search)
		medicalRoutes.GET("/charge/record/:id", charge.Show)
		medicalRoutes.GET("/charge/stats/hospital/:addressId", charge.HospitalStats)

		refund := mc.RefundQuery()
		medicalRoutes.GET("/refund/records/:identityCardNumber", refund.ByIdentityCard)
		medicalRoutes.GET("/refund/pending", refund.Pending)
		medicalRoutes.GET("/refund/hospital/:addressId", refund.ByAddress)
		medicalRoutes.GET("/refund/search", refund.Search)
		medicalRoutes.GET("/refund/record/:id", refund.Show)
		medicalRoutes.GET("/refund/stats/hospital/:addressId", mc.RefundHospitalStats)
		medicalRoutes.GET("/refund/stats/window/:windowId", mc.RefundWindowStats)
		medicalRoutes.GET("/refund/amount", mc.RefundAmountRange)

		medicalRoutes.GET("/health", mc.Health)
	}

	terminalRoutes := api.Group("/terminal")
	{
		terminalRoutes.POST("/send", writeLimit, tc.Send)
		terminalRoutes.GET("/commands/:id/status", tc.CommandStatus)
		terminalRoutes.GET("/window/:windowId", tc.WindowTerminals)
		terminalRoutes.GET("/:id", tc.Show)
	}
}
