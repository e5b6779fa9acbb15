package router

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"github.com/swiftmeta/internal/authz"
	"github.com/swiftmeta/internal/config"
	"github.com/swiftmeta/internal/http/handlers/shared"
	"github.com/swiftmeta/internal/http/response"
	"github.com/swiftmeta/internal/logger"
	"github.com/swiftmeta/internal/models"
	"github.com/swiftmeta/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const requestIDKey = "request_id"
const requestIDHeader = "X-Request-ID"

// AccountAuthenticator 用户会话校验
type AccountAuthenticator interface {
	Authenticate(ctx context.Context, tokenString string) (*models.Account, *service.AccountJWTClaims, error)
}

// AdminAuthenticator 管理员 Token 校验
type AdminAuthenticator interface {
	Authenticate(ctx context.Context, tokenString string) (*service.AdminPrincipal, error)
}

// AdminEnforcer 管理端权限判定
type AdminEnforcer interface {
	EnforceAdmin(adminID uint, obj, act string) (bool, error)
}

// CORSMiddleware 跨域中间件
func CORSMiddleware(cfg config.CORSConfig) gin.HandlerFunc {
	allowedOrigins := cfg.AllowedOrigins
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	allowedMethods := cfg.AllowedMethods
	if len(allowedMethods) == 0 {
		allowedMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	}
	allowedHeaders := cfg.AllowedHeaders
	if len(allowedHeaders) == 0 {
		allowedHeaders = []string{
			"Content-Type",
			"Content-Length",
			"Accept-Encoding",
			"Authorization",
			"Cache-Control",
			"X-Requested-With",
			requestIDHeader,
		}
	}
	methodsHeader := strings.Join(allowedMethods, ", ")
	headersHeader := strings.Join(allowedHeaders, ", ")

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		allowedOrigin := resolveAllowedOrigin(origin, allowedOrigins, cfg.AllowCredentials)
		if allowedOrigin != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", allowedOrigin)
			if allowedOrigin != "*" {
				c.Writer.Header().Add("Vary", "Origin")
			}
		}
		if cfg.AllowCredentials {
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		}
		c.Writer.Header().Set("Access-Control-Allow-Headers", headersHeader)
		c.Writer.Header().Set("Access-Control-Allow-Methods", methodsHeader)
		if cfg.MaxAge > 0 {
			c.Writer.Header().Set("Access-Control-Max-Age", strconv.Itoa(cfg.MaxAge))
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func resolveAllowedOrigin(origin string, allowedOrigins []string, allowCredentials bool) string {
	if len(allowedOrigins) == 0 {
		return ""
	}
	for _, allowed := range allowedOrigins {
		if allowed == "*" {
			if allowCredentials && origin != "" {
				return origin
			}
			return "*"
		}
	}
	if origin == "" {
		return ""
	}
	for _, allowed := range allowedOrigins {
		if strings.EqualFold(allowed, origin) {
			return origin
		}
	}
	return ""
}

// RequestIDMiddleware 请求 ID 中间件
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := strings.TrimSpace(c.GetHeader(requestIDHeader))
		if requestID == "" || len(requestID) > 128 {
			requestID = uuid.NewString()
		}
		c.Set(requestIDKey, requestID)
		c.Writer.Header().Set(requestIDHeader, requestID)
		c.Next()
	}
}

// RecoveryMiddleware 捕获 panic 并返回统一 500 响应
func RecoveryMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if recovered := recover(); recovered != nil {
				shared.RequestLog(c).Errorw("http_panic_recovered",
					"method", c.Request.Method,
					"path", c.Request.URL.Path,
					"panic", fmt.Sprint(recovered),
					"stack", string(debug.Stack()),
				)
				if !c.Writer.Written() {
					response.Error(c, response.CodeInternal, "internal server error")
				}
				c.Abort()
			}
		}()
		c.Next()
	}
}

// LoggerMiddleware 结构化请求日志中间件
func LoggerMiddleware(log *zap.Logger) gin.HandlerFunc {
	if log == nil {
		log = zap.L()
	}
	sugar := log.Sugar()
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := sugar.With(
			"request_id", getRequestID(c),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
		)
		if len(c.Errors) > 0 {
			entry.Errorw("http_request", "errors", c.Errors.String())
			return
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			entry.Warnw("http_request")
			return
		}
		entry.Infow("http_request")
	}
}

func getRequestID(c *gin.Context) string {
	value, ok := c.Get(requestIDKey)
	if !ok {
		return ""
	}
	if requestID, ok := value.(string); ok {
		return requestID
	}
	return ""
}

func bearerToken(c *gin.Context) (string, error) {
	authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
	if authHeader == "" {
		return "", errors.New("authorization header missing")
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || strings.TrimSpace(parts[1]) == "" {
		return "", errors.New("authorization header must be Bearer token")
	}
	return strings.TrimSpace(parts[1]), nil
}

func setAccountContext(c *gin.Context, account *models.Account, claims *service.AccountJWTClaims) {
	c.Set(shared.ContextAccountID, account.ID)
	c.Set(shared.ContextAccountEmail, account.Email)
	c.Set(shared.ContextTokenJTI, claims.ID)
	if claims.ExpiresAt != nil {
		c.Set(shared.ContextTokenExpiresAt, claims.ExpiresAt.Time)
	}
	c.Set(shared.ContextAccountClaims, claims)
}

// AccountAuthMiddleware 用户会话鉴权中间件
func AccountAuthMiddleware(auth AccountAuthenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if auth == nil {
			response.Unauthorized(c, "unauthorized")
			c.Abort()
			return
		}
		tokenString, err := bearerToken(c)
		if err != nil {
			response.Unauthorized(c, err.Error())
			c.Abort()
			return
		}
		account, claims, err := auth.Authenticate(c.Request.Context(), tokenString)
		if err != nil {
			switch {
			case errors.Is(err, service.ErrTokenRevoked):
				response.Unauthorized(c, "token revoked")
			case errors.Is(err, service.ErrUnauthorized):
				response.Unauthorized(c, "invalid or expired token")
			default:
				shared.RequestLog(c).Errorw("account_auth_failed", "error", err)
				response.Unauthorized(c, "invalid or expired token")
			}
			c.Abort()
			return
		}
		setAccountContext(c, account, claims)
		c.Next()
	}
}

// OptionalAccountAuthMiddleware 携带有效 Token 时附加身份，从不拒绝请求
func OptionalAccountAuthMiddleware(auth AccountAuthenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if auth == nil {
			c.Next()
			return
		}
		tokenString, err := bearerToken(c)
		if err != nil {
			c.Next()
			return
		}
		account, claims, err := auth.Authenticate(c.Request.Context(), tokenString)
		if err == nil {
			setAccountContext(c, account, claims)
		}
		c.Next()
	}
}

// AdminAuthMiddleware 管理员 JWT 鉴权中间件
func AdminAuthMiddleware(auth AdminAuthenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if auth == nil {
			response.Unauthorized(c, "unauthorized")
			c.Abort()
			return
		}
		tokenString, err := bearerToken(c)
		if err != nil {
			response.Unauthorized(c, err.Error())
			c.Abort()
			return
		}
		principal, err := auth.Authenticate(c.Request.Context(), tokenString)
		if err != nil {
			if errors.Is(err, service.ErrTokenRevoked) {
				response.Unauthorized(c, "token revoked")
			} else {
				if !errors.Is(err, service.ErrUnauthorized) {
					shared.RequestLog(c).Errorw("admin_auth_failed", "error", err)
				}
				response.Unauthorized(c, "invalid or expired token")
			}
			c.Abort()
			return
		}

		c.Set(shared.ContextAdminID, principal.AdminID)
		c.Set(shared.ContextAdminUsername, principal.Username)
		c.Set(shared.ContextAdminIsSuper, principal.IsSuper)
		c.Next()
	}
}

// AdminRBACMiddleware 管理端 RBAC 鉴权中间件，超级管理员直接放行
func AdminRBACMiddleware(enforcer AdminEnforcer) gin.HandlerFunc {
	return func(c *gin.Context) {
		if isSuper, ok := c.Get(shared.ContextAdminIsSuper); ok {
			if superValue, typeOK := isSuper.(bool); typeOK && superValue {
				c.Next()
				return
			}
		}
		if enforcer == nil {
			logger.Errorw("admin_rbac_service_unavailable")
			response.Forbidden(c, "forbidden")
			c.Abort()
			return
		}

		adminID := shared.OptionalContextUint(c, shared.ContextAdminID)
		if adminID == 0 {
			response.Unauthorized(c, "unauthorized")
			c.Abort()
			return
		}

		resource := c.FullPath()
		if strings.TrimSpace(resource) == "" {
			resource = c.Request.URL.Path
		}

		allowed, err := enforcer.EnforceAdmin(adminID, resource, c.Request.Method)
		if err != nil {
			shared.RequestLog(c).Errorw("admin_rbac_enforce_failed",
				"admin_id", adminID,
				"method", c.Request.Method,
				"path", c.Request.URL.Path,
				"error", err,
			)
			response.Error(c, response.CodeInternal, "internal server error")
			c.Abort()
			return
		}
		if !allowed {
			shared.RequestLog(c).Warnw("admin_rbac_permission_denied",
				"admin_id", adminID,
				"method", c.Request.Method,
				"path", c.Request.URL.Path,
				"resource", authz.NormalizeObject(resource),
			)
			response.Forbidden(c, "forbidden")
			c.Abort()
			return
		}

		c.Next()
	}
}
