package handler

import (
	"knightboard/internal/config"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// SetupRouter 配置路由
func SetupRouter(db *gorm.DB, rdb *redis.Client, cfg *config.Config) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// 注册中间件
	r.Use(RecoveryMiddleware())
	r.Use(LoggerMiddleware())
	r.Use(CORSMiddleware())

	// 创建处理器
	h := NewHandler(db, rdb, cfg)

	// 会话解析对全部 API 生效，是否强制登录由各路由自己叠加
	api := r.Group("/api/v1")
	api.Use(SessionMiddleware(h.authService))
	{
		// 认证相关
		auth := api.Group("/auth")
		{
			auth.POST("/register", h.Register)
			auth.POST("/login", h.Login)
			auth.POST("/logout", AuthRequired(), h.Logout)
		}

		// 账户相关
		account := api.Group("/account")
		{
			account.GET("/balance", AuthRequired(), h.GetBalance)
			account.GET("/transactions", AuthRequired(), h.ListTransactions)
			account.POST("/grant", RequireKnight(), h.Grant)
		}

		// 任务相关
		missions := api.Group("/missions")
		{
			missions.GET("", h.ListMissions)
			missions.GET("/:id", h.GetMission)
			missions.POST("", RequireKnight(), h.CreateMission)
			missions.POST("/:id/submit", AuthRequired(), h.SubmitMission)
			missions.GET("/:id/submissions", RequireKnight(), h.ListMissionSubmissions)
		}

		// 提交评审相关
		submissions := api.Group("/submissions")
		{
			submissions.POST("/judge", RequireKnight(), h.JudgeSubmission)
			submissions.GET("/all", RequireKnight(), h.ListAllSubmissions)
			submissions.DELETE("", RequireKnight(), h.PurgeSubmissions)
		}

		// 商城相关
		shop := api.Group("/shop")
		{
			shop.GET("/products", h.ListProducts)
			shop.POST("/purchase", AuthRequired(), h.Purchase)
			shop.GET("/history", AuthRequired(), h.PurchaseHistory)
			shop.GET("/claim-reward", AuthRequired(), h.ClaimReward)
		}
	}

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return r
}
