package router

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/swiftmeta/internal/config"
	"github.com/swiftmeta/internal/http/handlers/shared"
	"github.com/swiftmeta/internal/http/response"

	"github.com/gin-gonic/gin"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

const localLimiterCapacity = 10000

// RateLimitKeyFunc 生成限流 key 的函数
type RateLimitKeyFunc func(*gin.Context) string

// RateLimitRule 限流规则
type RateLimitRule struct {
	Prefix        string
	WindowSeconds int
	MaxRequests   int
	BlockSeconds  int
	Message       string
}

// RuleFromConfig 由配置构建限流规则
func RuleFromConfig(prefix string, cfg config.RateLimitConfig, message string) RateLimitRule {
	return RateLimitRule{
		Prefix:        prefix,
		WindowSeconds: cfg.WindowSeconds,
		MaxRequests:   cfg.MaxAttempts,
		BlockSeconds:  cfg.BlockSeconds,
		Message:       message,
	}
}

func (r RateLimitRule) enabled() bool {
	return r.WindowSeconds > 0 && r.MaxRequests > 0
}

// 超限后若配置了封禁时长，则把窗口延长到封禁时长
var rateLimitScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
	redis.call("EXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("TTL", KEYS[1])
local max = tonumber(ARGV[2])
local block = tonumber(ARGV[3])
if current > max and block > 0 and ttl < block then
	redis.call("EXPIRE", KEYS[1], block)
	ttl = block
end
return {current, ttl}
`)

// RateLimiter Redis 计数限流，Redis 不可用时退化为进程内令牌桶
type RateLimiter struct {
	client *redis.Client
	local  *expirable.LRU[string, *rate.Limiter]
}

// NewRateLimiter 创建限流器，client 为 nil 时仅使用进程内令牌桶
func NewRateLimiter(client *redis.Client) *RateLimiter {
	return &RateLimiter{
		client: client,
		local:  expirable.NewLRU[string, *rate.Limiter](localLimiterCapacity, nil, time.Hour),
	}
}

// Middleware 生成指定规则的限流中间件
func (l *RateLimiter) Middleware(rule RateLimitRule, keyFunc RateLimitKeyFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if l == nil || !rule.enabled() {
			c.Next()
			return
		}

		key := ""
		if keyFunc != nil {
			key = strings.TrimSpace(keyFunc(c))
		}
		if key == "" {
			key = c.ClientIP()
		}
		if rule.Prefix != "" {
			key = fmt.Sprintf("%s:%s", rule.Prefix, key)
		}

		allowed, waitSeconds := l.allow(c, rule, key)
		if !allowed {
			msg := strings.TrimSpace(rule.Message)
			if msg == "" {
				msg = "too many requests"
			}
			c.Header("Retry-After", fmt.Sprintf("%d", waitSeconds))
			response.Error(c, response.CodeTooManyRequests, fmt.Sprintf("%s, please retry in %d seconds", msg, waitSeconds))
			c.Abort()
			return
		}
		c.Next()
	}
}

func (l *RateLimiter) allow(c *gin.Context, rule RateLimitRule, key string) (bool, int) {
	if l.client != nil {
		count, ttl, err := l.redisCount(c, rule, key)
		if err == nil {
			if count <= int64(rule.MaxRequests) {
				return true, 0
			}
			wait := int(ttl)
			if wait < 1 {
				wait = rule.WindowSeconds
			}
			return false, max(wait, 1)
		}
		shared.RequestLog(c).Warnw("rate_limit_redis_failed", "key", key, "error", err)
	}
	return l.allowLocal(rule, key)
}

func (l *RateLimiter) redisCount(c *gin.Context, rule RateLimitRule, key string) (int64, int64, error) {
	result, err := rateLimitScript.Run(c.Request.Context(), l.client, []string{key}, rule.WindowSeconds, rule.MaxRequests, rule.BlockSeconds).Result()
	if err != nil {
		return 0, 0, err
	}
	values, ok := result.([]interface{})
	if !ok || len(values) < 2 {
		return 0, 0, fmt.Errorf("unexpected rate limit result %T", result)
	}
	count, ok := toInt64(values[0])
	if !ok {
		return 0, 0, fmt.Errorf("unexpected rate limit count %T", values[0])
	}
	ttl, _ := toInt64(values[1])
	return count, ttl, nil
}

// allowLocal 令牌桶容量为 MaxRequests，按窗口均匀补充
func (l *RateLimiter) allowLocal(rule RateLimitRule, key string) (bool, int) {
	limiter, ok := l.local.Get(key)
	if !ok {
		interval := time.Duration(rule.WindowSeconds) * time.Second / time.Duration(rule.MaxRequests)
		limiter = rate.NewLimiter(rate.Every(interval), rule.MaxRequests)
		l.local.Add(key, limiter)
	}
	reservation := limiter.Reserve()
	if !reservation.OK() {
		return false, rule.WindowSeconds
	}
	delay := reservation.Delay()
	if delay == 0 {
		return true, 0
	}
	reservation.Cancel()
	return false, max(int(math.Ceil(delay.Seconds())), 1)
}

// KeyByIP 使用 IP 作为限流 key
func KeyByIP(c *gin.Context) string {
	return c.ClientIP()
}

// KeyByIPAndJSONFields 使用 IP + 第一个非空 JSON 字段作为限流 key
func KeyByIPAndJSONFields(fields ...string) RateLimitKeyFunc {
	return func(c *gin.Context) string {
		payload := readJSONBody(c)
		for _, field := range fields {
			value := strings.ToLower(strings.TrimSpace(stringField(payload, field)))
			if value != "" {
				return fmt.Sprintf("%s|%s", value, c.ClientIP())
			}
		}
		return c.ClientIP()
	}
}

func readJSONBody(c *gin.Context) map[string]interface{} {
	if c == nil || c.Request == nil || c.Request.Body == nil {
		return nil
	}
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return nil
	}
	c.Request.Body = io.NopCloser(bytes.NewBuffer(body))
	if len(body) == 0 {
		return nil
	}
	var payload map[string]interface{}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil
	}
	return payload
}

func stringField(payload map[string]interface{}, field string) string {
	value, ok := payload[field]
	if !ok {
		return ""
	}
	if text, ok := value.(string); ok {
		return strings.TrimSpace(text)
	}
	return ""
}

func toInt64(value interface{}) (int64, bool) {
	switch v := value.(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case int32:
		return int64(v), true
	case uint64:
		return int64(v), true
	case float64:
		return int64(v), true
	default:
		return 0, false
	}
}
