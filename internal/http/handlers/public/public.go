package public

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/swiftmeta/internal/cache"
	"github.com/swiftmeta/internal/http/handlers/shared"
	"github.com/swiftmeta/internal/http/response"
	"github.com/swiftmeta/internal/service"

	"github.com/gin-gonic/gin"
)

const (
	publicConfigCacheKey = "public:config"
	publicConfigCacheTTL = 60 * time.Second
	defaultNewsLimit     = 20
)

// PublicConfig 前端启动所需的公开配置
type PublicConfig struct {
	Captcha   service.CaptchaPublicSetting `json:"captcha"`
	AIEnabled bool                         `json:"ai_enabled"`
}

// GetConfig 获取公开配置，Redis 可用时缓存
func (h *Handler) GetConfig(c *gin.Context) {
	var cached PublicConfig
	if hit, err := cache.GetJSON(c.Request.Context(), publicConfigCacheKey, &cached); err == nil && hit {
		response.Success(c, cached)
		return
	}
	cfg := PublicConfig{
		Captcha:   h.CaptchaService.PublicSetting(),
		AIEnabled: h.AIService.Enabled(),
	}
	if err := cache.SetJSON(c.Request.Context(), publicConfigCacheKey, cfg, publicConfigCacheTTL); err != nil {
		shared.RequestLog(c).Warnw("public_config_cache_failed", "error", err)
	}
	response.Success(c, cfg)
}

// GetImageCaptcha 获取图片验证码挑战
func (h *Handler) GetImageCaptcha(c *gin.Context) {
	challenge, err := h.CaptchaService.GenerateImageChallenge()
	if err != nil {
		if errors.Is(err, service.ErrCaptchaConfig) {
			shared.RespondError(c, response.CodeBadRequest, "captcha unavailable", nil)
			return
		}
		shared.RespondError(c, response.CodeInternal, "failed to generate captcha", err)
		return
	}
	response.Success(c, challenge)
}

// GetNews 聚合资讯
func (h *Handler) GetNews(c *gin.Context) {
	limit, err := strconv.Atoi(strings.TrimSpace(c.DefaultQuery("limit", strconv.Itoa(defaultNewsLimit))))
	if err != nil || limit <= 0 {
		limit = defaultNewsLimit
	}
	items, err := h.NewsService.Latest(c.Request.Context(), limit)
	if err != nil {
		shared.RespondServiceError(c, err, "failed to load news")
		return
	}
	response.Success(c, items)
}
