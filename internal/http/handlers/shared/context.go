package shared

import (
	"strconv"
	"strings"
	"time"

	"github.com/swiftmeta/internal/http/response"

	"github.com/gin-gonic/gin"
)

// 鉴权中间件写入的上下文键
const (
	ContextAccountID      = "account_id"
	ContextAccountEmail   = "account_email"
	ContextTokenJTI       = "token_jti"
	ContextTokenExpiresAt = "token_expires_at"
	ContextAdminID        = "admin_id"
	ContextAdminUsername  = "admin_username"
	ContextAdminIsSuper   = "admin_is_super"
	ContextAccountClaims  = "account_claims"
)

// GetContextUint 从上下文读取 uint 值，缺失时返回 401。
func GetContextUint(c *gin.Context, key string) (uint, bool) {
	value, exists := c.Get(key)
	if !exists {
		RespondError(c, response.CodeUnauthorized, "unauthorized", nil)
		return 0, false
	}

	switch v := value.(type) {
	case uint:
		if v == 0 {
			RespondError(c, response.CodeUnauthorized, "unauthorized", nil)
			return 0, false
		}
		return v, true
	case int:
		if v <= 0 {
			RespondError(c, response.CodeUnauthorized, "unauthorized", nil)
			return 0, false
		}
		return uint(v), true
	default:
		RespondError(c, response.CodeInternal, "internal server error", nil)
		return 0, false
	}
}

// OptionalContextUint 读取可选身份，不写响应。
func OptionalContextUint(c *gin.Context, key string) uint {
	value, exists := c.Get(key)
	if !exists {
		return 0
	}
	if v, ok := value.(uint); ok {
		return v
	}
	return 0
}

// ContextString 读取字符串上下文值。
func ContextString(c *gin.Context, key string) string {
	value, exists := c.Get(key)
	if !exists {
		return ""
	}
	text, _ := value.(string)
	return text
}

// ContextTime 读取时间上下文值。
func ContextTime(c *gin.Context, key string) time.Time {
	value, exists := c.Get(key)
	if !exists {
		return time.Time{}
	}
	at, _ := value.(time.Time)
	return at
}

// ParseUintParam 解析路径参数为正整数，失败时返回 400。
func ParseUintParam(c *gin.Context, name string) (uint, bool) {
	raw := strings.TrimSpace(c.Param(name))
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		RespondError(c, response.CodeBadRequest, name+" is invalid", nil)
		return 0, false
	}
	return uint(id), true
}
