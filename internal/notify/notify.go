package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/swiftmeta/internal/constants"
	"github.com/swiftmeta/internal/logger"
)

// 渠道名称
const (
	ChannelEmail = constants.NotificationChannelEmail
	ChannelSMS   = constants.NotificationChannelSMS
)

var (
	ErrConfigInvalid      = errors.New("notify config invalid")
	ErrChannelUnsupported = errors.New("notify channel unsupported")
	ErrRecipientInvalid   = errors.New("notify recipient invalid")
	ErrRecipientRejected  = errors.New("notify recipient rejected")
	ErrRequestFailed      = errors.New("notify request failed")
	ErrSenderDisabled     = errors.New("notify sender disabled")
	ErrMessageEmpty       = errors.New("notify message empty")
)

// Message 一条待投递的通知
type Message struct {
	Channel string `json:"channel"` // email / sms
	To      string `json:"to"`
	Subject string `json:"subject,omitempty"`
	Body    string `json:"body"`
}

// Validate 基础校验
func (m Message) Validate() error {
	if strings.TrimSpace(m.To) == "" {
		return ErrRecipientInvalid
	}
	if strings.TrimSpace(m.Body) == "" {
		return ErrMessageEmpty
	}
	return nil
}

// Sender 通知投递接口
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SenderFunc 函数适配
type SenderFunc func(ctx context.Context, msg Message) error

// Send 实现 Sender
func (f SenderFunc) Send(ctx context.Context, msg Message) error {
	return f(ctx, msg)
}

// Router 按渠道分发到具体 Sender
type Router struct {
	senders map[string]Sender
}

// NewRouter 创建分发器
func NewRouter() *Router {
	return &Router{senders: make(map[string]Sender)}
}

// Register 注册渠道，nil 表示移除
func (r *Router) Register(channel string, sender Sender) *Router {
	channel = strings.ToLower(strings.TrimSpace(channel))
	if sender == nil {
		delete(r.senders, channel)
		return r
	}
	r.senders[channel] = sender
	return r
}

// Has 渠道是否已注册
func (r *Router) Has(channel string) bool {
	_, ok := r.senders[strings.ToLower(strings.TrimSpace(channel))]
	return ok
}

// Send 实现 Sender
func (r *Router) Send(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	sender, ok := r.senders[strings.ToLower(strings.TrimSpace(msg.Channel))]
	if !ok {
		return fmt.Errorf("%w: %s", ErrChannelUnsupported, msg.Channel)
	}
	return sender.Send(ctx, msg)
}

// LogSender 仅写日志，开发环境使用
type LogSender struct{}

// Send 实现 Sender
func (LogSender) Send(_ context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	logger.Infow("notification_logged",
		"channel", msg.Channel,
		"to", msg.To,
		"subject", msg.Subject,
		"body", msg.Body,
	)
	return nil
}

// IsPermanent 判断错误是否不值得重试
func IsPermanent(err error) bool {
	return errors.Is(err, ErrRecipientInvalid) ||
		errors.Is(err, ErrRecipientRejected) ||
		errors.Is(err, ErrChannelUnsupported) ||
		errors.Is(err, ErrSenderDisabled) ||
		errors.Is(err, ErrConfigInvalid) ||
		errors.Is(err, ErrMessageEmpty)
}
