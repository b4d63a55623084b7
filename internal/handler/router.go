package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RouterOptions 路由装配参数
type RouterOptions struct {
	Auth    Authenticator
	Metrics http.Handler // 为空时不挂载 /metrics
	// MediaRoot 本地存储目录，为空时不提供 /media 静态文件
	MediaRoot string
	Logger    *zap.Logger
}

// SetupRouter 配置路由
func SetupRouter(h *Handler, opts RouterOptions) *gin.Engine {
	// 设置 gin 为发布模式（减少日志输出）
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.MaxMultipartMemory = 16 << 20

	// 注册中间件
	r.Use(RecoveryMiddleware(opts.Logger))
	r.Use(LoggerMiddleware(opts.Logger))
	r.Use(CORSMiddleware())

	authRequired := AuthMiddleware(opts.Auth, opts.Logger)

	// API 路由组
	api := r.Group("/api/v1")
	{
		// 认证相关
		auth := api.Group("/auth")
		{
			auth.POST("/register", h.Register)
			auth.POST("/send-otp", h.SendOTP)
			auth.POST("/verify-otp", h.VerifyOTP)
			auth.POST("/login", h.Login)
			auth.POST("/refresh", h.Refresh)
			auth.GET("/profile", authRequired, h.GetProfile)
			auth.PATCH("/profile", authRequired, h.UpdateProfile)
			auth.POST("/change-password", authRequired, h.ChangePassword)
		}

		// 积分账户
		account := api.Group("/account", authRequired)
		{
			account.GET("/balance", h.GetBalance)
			account.GET("/ledger", h.ListLedger)
		}

		// 音色、生成、历史、翻译
		voices := api.Group("/voices")
		{
			voices.GET("/profiles", h.ListProfiles)
			voices.GET("/profiles/:id", h.GetVoiceProfile)

			user := voices.Group("", authRequired)
			user.GET("/clones", h.ListClones)
			user.POST("/clones", h.CreateClone)
			user.GET("/clones/:id", h.GetClone)
			user.DELETE("/clones/:id", h.DeleteClone)
			user.POST("/generate", h.Generate)
			user.GET("/history", h.ListHistory)
			user.GET("/history/:id", h.GetHistory)
			user.DELETE("/history/:id", h.DeleteHistory)
			user.POST("/translate", h.Translate)
			user.POST("/transliterate", h.Transliterate)
		}

		// 充值相关
		payments := api.Group("/payments")
		{
			payments.GET("/settings", h.PaymentSettings)
			payments.GET("/transactions", authRequired, h.ListMyPayments)
			payments.POST("/transactions", authRequired, h.SubmitPayment)
		}

		// 管理后台
		admin := api.Group("/admin", authRequired, AdminMiddleware())
		{
			admin.GET("/dashboard", h.AdminDashboard)

			admin.GET("/users", h.AdminListUsers)
			admin.GET("/users/stats", h.AdminUserStats)
			admin.GET("/users/:id", h.AdminGetUser)
			admin.PATCH("/users/:id", h.AdminUpdateUser)
			admin.POST("/users/:id/compensate", h.AdminCompensateUser)

			admin.GET("/voices/profiles", h.AdminListProfiles)
			admin.POST("/voices/profiles", h.AdminCreateProfile)
			admin.PATCH("/voices/profiles/:id", h.AdminUpdateProfile)
			admin.DELETE("/voices/profiles/:id", h.AdminDeleteProfile)
			admin.GET("/voices/clones", h.AdminListClones)
			admin.POST("/voices/clones/:id/approve", h.AdminApproveClone)
			admin.POST("/voices/clones/:id/reject", h.AdminRejectClone)
			admin.GET("/voices/speeches", h.AdminListSpeeches)

			admin.GET("/payments/transactions", h.AdminListPayments)
			admin.POST("/payments/transactions/:id/approve", h.AdminApprovePayment)
			admin.POST("/payments/transactions/:id/reject", h.AdminRejectPayment)
		}
	}

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if opts.Metrics != nil {
		r.GET("/metrics", gin.WrapH(opts.Metrics))
	}
	if opts.MediaRoot != "" {
		r.Static("/media", opts.MediaRoot)
	}

	return r
}
