package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// SMSConfig 短信网关配置
type SMSConfig struct {
	WebhookURL string
	APIKey     string
	Sender     string
	MaxRetries int
	Timeout    time.Duration
}

// ValidateSMSConfig 校验配置
func ValidateSMSConfig(cfg *SMSConfig) error {
	if cfg == nil {
		return fmt.Errorf("%w: config is nil", ErrConfigInvalid)
	}
	if strings.TrimSpace(cfg.WebhookURL) == "" {
		return fmt.Errorf("%w: webhook_url is required", ErrConfigInvalid)
	}
	parsed, err := url.Parse(cfg.WebhookURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return fmt.Errorf("%w: webhook_url is invalid", ErrConfigInvalid)
	}
	return nil
}

func (c *SMSConfig) normalize() {
	c.WebhookURL = strings.TrimSpace(c.WebhookURL)
	c.APIKey = strings.TrimSpace(c.APIKey)
	c.Sender = strings.TrimSpace(c.Sender)
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.Timeout <= 0 {
		c.Timeout = 15 * time.Second
	}
}

// SMSSender 通过 HTTP webhook 投递短信
type SMSSender struct {
	cfg    SMSConfig
	client *http.Client
}

// NewSMSSender 创建短信发送器
func NewSMSSender(cfg SMSConfig) (*SMSSender, error) {
	cfg.normalize()
	if err := ValidateSMSConfig(&cfg); err != nil {
		return nil, err
	}
	return &SMSSender{cfg: cfg, client: &http.Client{Timeout: cfg.Timeout}}, nil
}

type smsPayload struct {
	From string `json:"from,omitempty"`
	To   string `json:"to"`
	Text string `json:"text"`
}

// Send 实现 Sender，5xx 与网络错误按指数退避重试
func (s *SMSSender) Send(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	body, err := json.Marshal(smsPayload{From: s.cfg.Sender, To: strings.TrimSpace(msg.To), Text: msg.Body})
	if err != nil {
		return err
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(newBackOff(), uint64(s.cfg.MaxRetries)),
		ctx,
	)
	return backoff.Retry(func() error {
		return s.post(ctx, body)
	}, policy)
}

func (s *SMSSender) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return backoff.Permanent(fmt.Errorf("%w: %v", ErrConfigInvalid, err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if s.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return fmt.Errorf("%w: http status %d", ErrRequestFailed, resp.StatusCode)
	case resp.StatusCode == http.StatusUnprocessableEntity:
		return backoff.Permanent(fmt.Errorf("%w: http status %d", ErrRecipientRejected, resp.StatusCode))
	default:
		return backoff.Permanent(fmt.Errorf("%w: http status %d", ErrRequestFailed, resp.StatusCode))
	}
}

func newBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxInterval = 2 * time.Second
	b.MaxElapsedTime = 0
	return b
}
