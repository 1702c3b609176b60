package router

import (
	"fmt"
	"strings"

	"github.com/orderpulse/internal/cache"
	"github.com/orderpulse/internal/config"
	adminhandlers "github.com/orderpulse/internal/http/handlers/admin"
	"github.com/orderpulse/internal/logger"
	"github.com/orderpulse/internal/provider"

	"github.com/gin-gonic/gin"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.Z()
	r := gin.New()

	adminHandler := adminhandlers.New(c)
	redisPrefix := strings.TrimSpace(cfg.Redis.Prefix)
	if redisPrefix == "" {
		redisPrefix = "op"
	}
	redisClient := cache.Client()
	loginRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:admin_login", redisPrefix),
		WindowSeconds: cfg.Security.LoginRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.LoginRateLimit.MaxAttempts,
		BlockSeconds:  cfg.Security.LoginRateLimit.BlockSeconds,
	}

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware(cfg.CORS))

	apiV1 := r.Group("/api/v1")
	{
		admin := apiV1.Group("/admin")
		{
			admin.POST("/auth/login", RateLimitMiddleware(redisClient, loginRule, KeyByIPAndJSONField("username")), adminHandler.AdminLogin)

			// 需鉴权接口
			authed := admin.Group("")
			authed.Use(JWTAuthMiddleware(cfg.JWT.SecretKey, c.AdminRepo))
			{
				authed.GET("/me", adminHandler.GetAdminProfile)
				authed.PUT("/me/password", adminHandler.UpdateAdminPassword)

				// 管理投影（部门工作台）
				authed.GET("/management/orders", adminHandler.ListManagementOrders)
				authed.GET("/management/orders/:id", adminHandler.GetManagementOrder)
				authed.GET("/management/orders/:id/history", adminHandler.GetStatusHistory)
				authed.GET("/management/states", adminHandler.GetDepartmentStates)
				authed.POST("/management/orders/:id/financial", adminHandler.ApplyFinancialDecision)
				authed.POST("/management/orders/:id/warehouse", adminHandler.ApplyWarehouseDecision)
				authed.POST("/management/orders/:id/logistics", adminHandler.ApplyLogisticsDecision)
				authed.POST("/management/orders/:id/manual-approval", adminHandler.MarkManualApproval)
				authed.POST("/management/orders/:id/consolidated/rebuild", adminHandler.RebuildConsolidatedOrder)
				authed.POST("/management/orders/:id/transition", adminHandler.ApplyTransition)

				// 合并快照
				authed.GET("/consolidated/:order_no", adminHandler.GetConsolidatedOrder)

				// 交付验证码
				authed.POST("/delivery-codes/:order_id/issue", adminHandler.IssueDeliveryCode)
				authed.POST("/delivery-codes/:order_id/resend", adminHandler.ResendDeliveryCode)
				authed.POST("/delivery-codes/:order_id/verify", adminHandler.VerifyDeliveryCode)

				// 超级管理员专属
				super := authed.Group("")
				super.Use(SuperAdminMiddleware())
				{
					super.GET("/sync/status", adminHandler.GetSyncStatus)
					super.PUT("/sync/interval", adminHandler.UpdateSyncInterval)
					super.POST("/sync/enable", adminHandler.EnableSync)
					super.POST("/sync/disable", adminHandler.DisableSync)
					super.POST("/sync/run", adminHandler.RunSync)
				}
			}
		}
	}

	return r
}
