package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/swiftmeta/internal/config"

	"github.com/redis/go-redis/v9"
)

const (
	defaultPrefix = "sm"
	pingTimeout   = 2 * time.Second
)

// 进程级 Redis 客户端；nil 表示未启用，调用方走本地降级
var (
	mu     sync.RWMutex
	client *redis.Client
	prefix = defaultPrefix
)

// InitRedis 连接 Redis 并探活；探活失败时保持禁用并返回错误
func InitRedis(ctx context.Context, cfg *config.RedisConfig) error {
	if cfg == nil || !cfg.Enabled {
		UseClient(nil, "")
		return nil
	}
	host := strings.TrimSpace(cfg.Host)
	if host == "" {
		host = "127.0.0.1"
	}
	port := cfg.Port
	if port <= 0 {
		port = 6379
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     net.JoinHostPort(host, strconv.Itoa(port)),
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		UseClient(nil, cfg.Prefix)
		return fmt.Errorf("redis ping %s: %w", rdb.Options().Addr, err)
	}
	UseClient(rdb, cfg.Prefix)
	return nil
}

// UseClient 注入已有客户端，nil 表示禁用
func UseClient(rdb *redis.Client, keyPrefix string) {
	keyPrefix = strings.TrimSpace(keyPrefix)
	if keyPrefix == "" {
		keyPrefix = defaultPrefix
	}
	mu.Lock()
	client = rdb
	prefix = keyPrefix
	mu.Unlock()
}

// Close 关闭客户端并禁用缓存
func Close() error {
	mu.Lock()
	rdb := client
	client = nil
	mu.Unlock()
	if rdb == nil {
		return nil
	}
	return rdb.Close()
}

func Enabled() bool {
	return Client() != nil
}

// Client 当前客户端，未启用时为 nil
func Client() *redis.Client {
	mu.RLock()
	defer mu.RUnlock()
	return client
}

// Key 返回带前缀的完整键名
func Key(key string) string {
	mu.RLock()
	p := prefix
	mu.RUnlock()
	key = strings.TrimSpace(key)
	if key == "" {
		return p
	}
	return p + ":" + key
}

// GetJSON 读取 JSON 缓存，未命中返回 false
func GetJSON(ctx context.Context, key string, dest interface{}) (bool, error) {
	rdb := Client()
	if rdb == nil {
		return false, nil
	}
	val, err := rdb.Get(ctx, Key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(val, dest); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON 写入 JSON 缓存
func SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	rdb := Client()
	if rdb == nil {
		return nil
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return rdb.Set(ctx, Key(key), payload, ttl).Err()
}

// SetString 写入字符串值
func SetString(ctx context.Context, key, value string, ttl time.Duration) error {
	rdb := Client()
	if rdb == nil {
		return nil
	}
	return rdb.Set(ctx, Key(key), value, ttl).Err()
}

// Exists 判断键是否存在
func Exists(ctx context.Context, key string) (bool, error) {
	rdb := Client()
	if rdb == nil {
		return false, nil
	}
	n, err := rdb.Exists(ctx, Key(key)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Del 删除缓存
func Del(ctx context.Context, key string) error {
	rdb := Client()
	if rdb == nil {
		return nil
	}
	return rdb.Del(ctx, Key(key)).Err()
}
