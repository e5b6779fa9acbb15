package router

import (
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/swiftmeta/internal/authz"
	"github.com/swiftmeta/internal/cache"
	"github.com/swiftmeta/internal/config"
	adminhandlers "github.com/swiftmeta/internal/http/handlers/admin"
	publichandlers "github.com/swiftmeta/internal/http/handlers/public"
	"github.com/swiftmeta/internal/http/handlers/shared"
	"github.com/swiftmeta/internal/http/response"
	"github.com/swiftmeta/internal/logger"
	"github.com/swiftmeta/internal/provider"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
)

var registerValidators = shared.RegisterValidators

// SetupRouter 初始化路由，校验器注册失败时返回错误
func SetupRouter(cfg *config.Config, c *provider.Container) (*gin.Engine, error) {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	if err := registerValidators(); err != nil {
		logger.Errorw("router_validator_register_failed", "error", err)
		return nil, fmt.Errorf("register validators: %w", err)
	}
	r := gin.New()

	// 初始化 Handler（按前台/后台分组）
	publicHandler := publichandlers.New(c)
	adminHandler := adminhandlers.New(c)

	redisPrefix := strings.TrimSpace(cfg.Redis.Prefix)
	if redisPrefix == "" {
		redisPrefix = "sm"
	}
	limiter := NewRateLimiter(cache.Client())
	security := cfg.Security
	loginRule := RuleFromConfig(fmt.Sprintf("%s:rate:login", redisPrefix), security.LoginRateLimit, "too many login attempts")
	adminLoginRule := RuleFromConfig(fmt.Sprintf("%s:rate:admin_login", redisPrefix), security.LoginRateLimit, "too many login attempts")
	otpRule := RuleFromConfig(fmt.Sprintf("%s:rate:otp", redisPrefix), security.OTPRateLimit, "too many OTP requests")
	aiRule := RuleFromConfig(fmt.Sprintf("%s:rate:ai", redisPrefix), security.AIRateLimit, "too many analysis requests")
	chatRule := RuleFromConfig(fmt.Sprintf("%s:rate:chat", redisPrefix), security.ChatRateLimit, "too many chat messages")
	quizRule := RuleFromConfig(fmt.Sprintf("%s:rate:quiz", redisPrefix), security.QuizRateLimit, "too many quiz submissions")
	otpKey := KeyByIPAndJSONFields("phone", "email")

	accountAuth := AccountAuthMiddleware(c.AccountAuthService)
	optionalAccountAuth := OptionalAccountAuthMiddleware(c.AccountAuthService)

	// 中间件
	r.Use(RecoveryMiddleware())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	if c.Metrics != nil {
		r.Use(c.Metrics.GinMiddleware())
	}
	r.Use(CORSMiddleware(cfg.CORS))
	metricsPath := strings.TrimSpace(cfg.Metrics.Path)
	if metricsPath == "" {
		metricsPath = "/metrics"
	}
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{metricsPath})))

	// 本地存储时直接提供上传文件
	if dir, prefix, ok := localUploadDir(cfg.Storage); ok {
		r.Static(prefix, dir)
	}

	// API 路由组
	apiV1 := r.Group("/api/v1")
	{
		// 公开接口
		public := apiV1.Group("/public")
		{
			public.GET("/config", publicHandler.GetConfig)
			public.GET("/news", publicHandler.GetNews)
			public.GET("/captcha/image", publicHandler.GetImageCaptcha)
		}

		// 账号认证接口
		auth := apiV1.Group("/auth")
		{
			auth.POST("/register", limiter.Middleware(otpRule, otpKey), publicHandler.Register)
			auth.POST("/verify-email", limiter.Middleware(loginRule, KeyByIPAndJSONFields("email")), publicHandler.VerifyEmail)
			auth.POST("/verify-phone", limiter.Middleware(loginRule, KeyByIPAndJSONFields("phone")), publicHandler.VerifyPhone)
			auth.POST("/request-phone-otp", limiter.Middleware(otpRule, otpKey), publicHandler.RequestPhoneOTP)
			auth.POST("/request-login-otp", limiter.Middleware(otpRule, otpKey), publicHandler.RequestLoginOTP)
			auth.POST("/verify-login-otp", limiter.Middleware(loginRule, otpKey), publicHandler.VerifyLoginOTP)
			auth.POST("/login", limiter.Middleware(loginRule, KeyByIPAndJSONFields("email")), publicHandler.PasswordLogin)
		}

		// 当前账号（需鉴权）
		me := apiV1.Group("/me", accountAuth)
		{
			me.GET("", publicHandler.GetMe)
			me.PUT("", publicHandler.UpdateMe)
			me.PUT("/password", publicHandler.SetPassword)
			me.POST("/logout", publicHandler.Logout)
		}

		// 工单
		tickets := apiV1.Group("/tickets")
		{
			tickets.POST("", publicHandler.CreateTicket)
			tickets.GET("/:id", publicHandler.GetTicket)
			tickets.POST("/:id/reply", publicHandler.ReplyTicket)
		}

		// 社区帖子：读接口可匿名，写接口需鉴权
		posts := apiV1.Group("/posts")
		{
			posts.GET("", optionalAccountAuth, publicHandler.ListPosts)
			posts.GET("/:id", optionalAccountAuth, publicHandler.GetPost)
			posts.GET("/:id/comments/:comment_id/replies", optionalAccountAuth, publicHandler.ListReplies)

			posts.POST("", accountAuth, publicHandler.CreatePost)
			posts.PUT("/:id", accountAuth, publicHandler.UpdatePost)
			posts.DELETE("/:id", accountAuth, publicHandler.DeletePost)
			posts.POST("/:id/toggle-like", accountAuth, publicHandler.TogglePostLike)

			posts.POST("/:id/comments", accountAuth, publicHandler.CreateComment)
			posts.PUT("/:id/comments/:comment_id", accountAuth, publicHandler.UpdateComment)
			posts.DELETE("/:id/comments/:comment_id", accountAuth, publicHandler.DeleteComment)
			posts.POST("/:id/comments/:comment_id/like", accountAuth, publicHandler.ToggleCommentLike)

			posts.POST("/:id/comments/:comment_id/replies", accountAuth, publicHandler.CreateReply)
			posts.PUT("/:id/comments/:comment_id/replies/:reply_id", accountAuth, publicHandler.UpdateReply)
			posts.DELETE("/:id/comments/:comment_id/replies/:reply_id", accountAuth, publicHandler.DeleteReply)
			posts.POST("/:id/comments/:comment_id/replies/:reply_id/like", accountAuth, publicHandler.ToggleReplyLike)
		}

		apiV1.POST("/quiz/submit", limiter.Middleware(quizRule, KeyByIPAndJSONFields("email")), publicHandler.SubmitQuiz)
		apiV1.POST("/contact", publicHandler.SubmitContact)

		applications := apiV1.Group("/applications")
		{
			applications.POST("/apply", publicHandler.Apply)
			applications.GET("/search", publicHandler.SearchApplication)
		}

		ai := apiV1.Group("/ai")
		{
			ai.POST("/analyze", limiter.Middleware(aiRule, KeyByIP), publicHandler.AnalyzeTicket)
			ai.POST("/chat", limiter.Middleware(chatRule, KeyByIP), publicHandler.Chat)
		}

		apiV1.POST("/uploads/image", accountAuth, publicHandler.UploadImage)

		// 管理员接口
		admin := apiV1.Group("/admin")
		{
			// 登录接口（无需鉴权）
			admin.POST("/login", limiter.Middleware(adminLoginRule, KeyByIPAndJSONFields("username")), adminHandler.AdminLogin)

			// 仅需登录的个人接口
			self := admin.Group("", AdminAuthMiddleware(c.AuthService))
			{
				self.GET("/me", adminHandler.GetMe)
				self.PUT("/password", adminHandler.ChangePassword)
			}

			// 需要 RBAC 授权的接口
			authorized := admin.Group("", AdminAuthMiddleware(c.AuthService), AdminRBACMiddleware(c.AuthzService))
			{
				authorized.GET("/tickets", adminHandler.ListTickets)
				authorized.GET("/tickets/:id", adminHandler.GetTicket)
				authorized.POST("/tickets/:id/reply", adminHandler.ReplyTicket)
				authorized.PATCH("/tickets/:id/close", adminHandler.CloseTicket)

				authorized.GET("/contacts", adminHandler.ListContacts)
				authorized.PUT("/contacts/:id/status", adminHandler.UpdateContactStatus)
				authorized.DELETE("/contacts/:id", adminHandler.DeleteContact)

				authorized.GET("/applications", adminHandler.ListApplications)
				authorized.PUT("/applications/:id/status", adminHandler.UpdateApplicationStatus)

				authorized.GET("/quiz/attempts", adminHandler.ListQuizAttempts)

				authorized.DELETE("/posts/:id", adminHandler.DeletePost)

				// 权限管理
				authorized.GET("/authz/roles", adminHandler.ListRoles)
				authorized.GET("/authz/admins/:id/roles", adminHandler.GetAdminRoles)
				authorized.PUT("/authz/admins/:id/roles", adminHandler.SetAdminRoles)
				authorized.GET("/authz/permissions/catalog", func(ctx *gin.Context) {
					response.Success(ctx, buildAdminPermissionCatalog(r))
				})
				authorized.GET("/audit-logs", adminHandler.ListAuditLogs)
			}
		}
	}

	// 健康检查
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if cfg.Metrics.Enabled && c.Metrics != nil {
		r.GET(metricsPath, gin.WrapH(c.Metrics.Handler()))
	}

	return r, nil
}

// localUploadDir 存储桶为 file:// 且公开前缀为站内路径时返回静态目录
func localUploadDir(cfg config.StorageConfig) (string, string, bool) {
	prefix := strings.TrimSpace(cfg.PublicBaseURL)
	if !strings.HasPrefix(prefix, "/") {
		return "", "", false
	}
	u, err := url.Parse(strings.TrimSpace(cfg.BucketURL))
	if err != nil || u.Scheme != "file" || u.Path == "" {
		return "", "", false
	}
	return u.Path, strings.TrimRight(prefix, "/"), true
}

type adminPermissionCatalogItem struct {
	Module     string `json:"module"`
	Method     string `json:"method"`
	Object     string `json:"object"`
	Permission string `json:"permission"`
}

// buildAdminPermissionCatalog 由已注册的管理端路由生成可授权的权限清单
func buildAdminPermissionCatalog(engine *gin.Engine) []adminPermissionCatalogItem {
	if engine == nil {
		return []adminPermissionCatalogItem{}
	}

	routes := engine.Routes()
	seen := make(map[string]struct{}, len(routes))
	items := make([]adminPermissionCatalogItem, 0, len(routes))

	for _, item := range routes {
		method := strings.ToUpper(strings.TrimSpace(item.Method))
		if method == "" || method == http.MethodOptions || method == http.MethodHead {
			continue
		}
		if !strings.HasPrefix(item.Path, "/api/v1/admin/") {
			continue
		}
		object := authz.NormalizeObject(item.Path)
		if _, selfService := adminSelfServiceObjects[object]; selfService {
			continue
		}
		permission := method + ":" + object
		if _, exists := seen[permission]; exists {
			continue
		}
		seen[permission] = struct{}{}
		items = append(items, adminPermissionCatalogItem{
			Module:     deriveAdminPermissionModule(object),
			Method:     method,
			Object:     object,
			Permission: permission,
		})
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].Module == items[j].Module {
			if items[i].Object == items[j].Object {
				return items[i].Method < items[j].Method
			}
			return items[i].Object < items[j].Object
		}
		return items[i].Module < items[j].Module
	})

	return items
}

// 无需 RBAC 的管理端路由
var adminSelfServiceObjects = map[string]struct{}{
	"/admin/login":    {},
	"/admin/me":       {},
	"/admin/password": {},
}

func deriveAdminPermissionModule(object string) string {
	segments := strings.Split(strings.Trim(strings.TrimSpace(object), "/"), "/")
	if len(segments) < 2 || segments[0] != "admin" {
		return "system"
	}
	return segments[1]
}
