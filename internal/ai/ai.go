package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

var (
	ErrConfigInvalid   = errors.New("ai config invalid")
	ErrDisabled        = errors.New("ai provider disabled")
	ErrRequestFailed   = errors.New("ai request failed")
	ErrResponseInvalid = errors.New("ai response invalid")
)

// 对话角色
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn 一轮历史对话
type Turn struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// CompletionRequest 文本生成请求
type CompletionRequest struct {
	System  string
	Prompt  string
	History []Turn
	// JSONSchema 非空时要求模型输出 JSON
	JSONSchema string
}

// TextCompleter 文本生成接口
type TextCompleter interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
	Provider() string
}

// Config 生成式文本服务配置
type Config struct {
	Provider   string
	APIKey     string
	Model      string
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
}

func (c *Config) normalize() {
	c.Provider = strings.ToLower(strings.TrimSpace(c.Provider))
	c.APIKey = strings.TrimSpace(c.APIKey)
	c.Model = strings.TrimSpace(c.Model)
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if c.Timeout <= 0 {
		c.Timeout = 20 * time.Second
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
}

// ValidateConfig 校验配置
func ValidateConfig(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("%w: config is nil", ErrConfigInvalid)
	}
	if cfg.APIKey == "" {
		return fmt.Errorf("%w: api_key is required", ErrConfigInvalid)
	}
	if cfg.Model == "" {
		return fmt.Errorf("%w: model is required", ErrConfigInvalid)
	}
	return nil
}

// New 按 provider 构建 TextCompleter，未配置时返回禁用实现
func New(cfg Config) (TextCompleter, error) {
	cfg.normalize()
	var inner TextCompleter
	switch cfg.Provider {
	case "", "none":
		return Disabled{}, nil
	case "gemini":
		if err := ValidateConfig(&cfg); err != nil {
			return nil, err
		}
		inner = newGemini(cfg)
	case "openai":
		if err := ValidateConfig(&cfg); err != nil {
			return nil, err
		}
		inner = newOpenAI(cfg)
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", ErrConfigInvalid, cfg.Provider)
	}
	return WithRetry(inner, cfg.Timeout, cfg.MaxRetries), nil
}

// Disabled 未配置提供方时使用
type Disabled struct{}

// Complete 实现 TextCompleter
func (Disabled) Complete(context.Context, CompletionRequest) (string, error) {
	return "", ErrDisabled
}

// Provider 实现 TextCompleter
func (Disabled) Provider() string { return "none" }

type retrying struct {
	inner      TextCompleter
	timeout    time.Duration
	maxRetries int
}

// WithRetry 为每次调用增加超时与有限次指数退避重试
func WithRetry(inner TextCompleter, timeout time.Duration, maxRetries int) TextCompleter {
	return &retrying{inner: inner, timeout: timeout, maxRetries: maxRetries}
}

func (r *retrying) Provider() string { return r.inner.Provider() }

func (r *retrying) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	var out string
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 300 * time.Millisecond
	b.MaxInterval = 3 * time.Second
	b.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(r.maxRetries)), ctx)

	err := backoff.Retry(func() error {
		callCtx, cancel := context.WithTimeout(ctx, r.timeout)
		defer cancel()
		text, err := r.inner.Complete(callCtx, req)
		if err != nil {
			if errors.Is(err, ErrConfigInvalid) || errors.Is(err, ErrDisabled) {
				return backoff.Permanent(err)
			}
			return err
		}
		out = text
		return nil
	}, policy)
	if err != nil {
		return "", err
	}
	return out, nil
}
