package router

import (
	"github.com/Nabi-KONE/plateforme-crowdbuilding/internal/config"
	"github.com/Nabi-KONE/plateforme-crowdbuilding/internal/gateway"
	"github.com/Nabi-KONE/plateforme-crowdbuilding/internal/handler"
	"github.com/Nabi-KONE/plateforme-crowdbuilding/internal/logic"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func Setup(db *gorm.DB, gw *gateway.Client, notifier *logic.NotificationLogic, cfg *config.Config) *gin.Engine {
	r := gin.Default()

	// 中间件
	r.Use(gin.Logger())
	r.Use(gin.Recovery())
	r.Use(corsMiddleware())

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"service": "crowdbuilding-service",
		})
	})

	projectLogic := logic.NewProjectLogic(db)
	investmentLogic := logic.NewInvestmentLogic(db, notifier)
	paymentLogic := logic.NewPaymentLogic(db)

	projectHandler := handler.NewProjectHandler(projectLogic, investmentLogic)
	investmentHandler := handler.NewInvestmentHandler(investmentLogic)
	paymentHandler := handler.NewPaymentHandler(paymentLogic, gw)

	// API版本组
	v1 := r.Group("/api/v1")
	{
		// 项目相关路由
		projects := v1.Group("/projects")
		{
			projects.POST("", projectHandler.CreateProject)
			projects.GET("", projectHandler.GetProjects)
			projects.GET("/:id", projectHandler.GetProject)
			projects.POST("/:id/launch", projectHandler.LaunchCampaign)
			projects.GET("/:id/stats", projectHandler.GetProjectStats)
			projects.GET("/:id/investments", projectHandler.GetProjectInvestments)
		}

		// 投资相关路由
		investments := v1.Group("/investments")
		{
			investments.POST("", investmentHandler.CreateInvestment)
			investments.GET("/:id", investmentHandler.GetInvestment)
			investments.POST("/:id/confirm", investmentHandler.ConfirmInvestment)
			investments.POST("/:id/reject", investmentHandler.RejectInvestment)
			investments.POST("/:id/cancel", investmentHandler.CancelInvestment)
		}

		// 投资人相关路由
		investors := v1.Group("/investors")
		{
			investors.GET("/:id/investments", investmentHandler.GetInvestorInvestments)
		}

		// 支付相关路由
		payments := v1.Group("/payments")
		{
			payments.POST("/:id/mockpay", paymentHandler.MockPay)
			payments.POST("/webhook", paymentHandler.Webhook)
		}
	}

	return r
}

// CORS中间件
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, X-Webhook-Signature")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
