package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/swiftmeta/internal/config"
	"github.com/swiftmeta/internal/logger"
	"github.com/swiftmeta/internal/metrics"
	"github.com/swiftmeta/internal/notify"
	"github.com/swiftmeta/internal/queue"

	"github.com/cenkalti/backoff/v4"
)

// NotificationQueue 通知入队接口，由 queue.Client 实现
type NotificationQueue interface {
	Enabled() bool
	EnqueueNotification(payload queue.NotificationPayload) error
}

type queueClientAdapter struct {
	client *queue.Client
}

func (a queueClientAdapter) Enabled() bool {
	return a.client.Enabled()
}

func (a queueClientAdapter) EnqueueNotification(payload queue.NotificationPayload) error {
	return a.client.EnqueueNotification(context.Background(), payload)
}

// NewNotificationQueue 包装 queue.Client，nil 时返回 nil
func NewNotificationQueue(client *queue.Client) NotificationQueue {
	if client == nil {
		return nil
	}
	return queueClientAdapter{client: client}
}

// NotificationService 通知投递服务。
// Dispatch 不返回错误：队列可用时入队，否则在后台 goroutine 内有限次重试。
type NotificationService struct {
	sender     notify.Sender
	queue      NotificationQueue
	metrics    *metrics.Registry
	maxRetries int
	timeout    time.Duration

	wg sync.WaitGroup
}

// NewNotificationService 创建通知服务
func NewNotificationService(cfg config.NotificationConfig, sender notify.Sender, q NotificationQueue, reg *metrics.Registry) *NotificationService {
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	retries := cfg.MaxRetries
	if retries < 0 {
		retries = 0
	}
	return &NotificationService{
		sender:     sender,
		queue:      q,
		metrics:    reg,
		maxRetries: retries,
		timeout:    timeout,
	}
}

// BuildNotificationSender 按配置组装渠道：未启用的渠道回落到日志输出
func BuildNotificationSender(cfg config.NotificationConfig) (notify.Sender, error) {
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	router := notify.NewRouter()

	var email notify.Sender = notify.LogSender{}
	if cfg.Email.Enabled {
		smtpSender, err := notify.NewSMTPSender(notify.SMTPConfig{
			Host:     cfg.Email.Host,
			Port:     cfg.Email.Port,
			Username: cfg.Email.Username,
			Password: cfg.Email.Password,
			From:     cfg.Email.From,
			FromName: cfg.Email.FromName,
			UseTLS:   cfg.Email.UseTLS,
			UseSSL:   cfg.Email.UseSSL,
			Timeout:  timeout,
		})
		if err != nil {
			return nil, err
		}
		email = smtpSender
	}
	router.Register(notify.ChannelEmail, email)

	var sms notify.Sender = notify.LogSender{}
	if cfg.SMS.Enabled {
		smsSender, err := notify.NewSMSSender(notify.SMSConfig{
			WebhookURL: cfg.SMS.WebhookURL,
			APIKey:     cfg.SMS.APIKey,
			Sender:     cfg.SMS.Sender,
			MaxRetries: cfg.MaxRetries,
			Timeout:    timeout,
		})
		if err != nil {
			return nil, err
		}
		sms = smsSender
	}
	router.Register(notify.ChannelSMS, sms)
	return router, nil
}

// Dispatch 异步投递，失败只记录日志
func (s *NotificationService) Dispatch(event string, msg notify.Message) {
	if s == nil || s.sender == nil {
		return
	}
	if err := msg.Validate(); err != nil {
		logger.Warnw("notification_dispatch_skipped", "event", event, "channel", msg.Channel, "error", err)
		return
	}
	if s.queue != nil && s.queue.Enabled() {
		err := s.queue.EnqueueNotification(queue.NotificationPayload{
			Channel: msg.Channel,
			To:      msg.To,
			Subject: msg.Subject,
			Body:    msg.Body,
			Event:   event,
		})
		if err == nil {
			return
		}
		logger.Warnw("notification_enqueue_failed", "event", event, "channel", msg.Channel, "error", err)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout*time.Duration(s.maxRetries+1))
		defer cancel()
		if err := s.deliverWithRetry(ctx, msg); err != nil {
			logger.Warnw("notification_send_failed", "event", event, "channel", msg.Channel, "to", msg.To, "error", err)
		}
	}()
}

// Deliver 同步投递一次，供队列消费者调用；返回错误以触发队列重试
func (s *NotificationService) Deliver(ctx context.Context, msg notify.Message) error {
	if s == nil || s.sender == nil {
		return nil
	}
	sendCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	err := s.sender.Send(sendCtx, msg)
	s.metrics.ObserveNotification(strings.ToLower(msg.Channel), err)
	return err
}

// Wait 等待后台投递完成，优雅退出时调用
func (s *NotificationService) Wait(ctx context.Context) error {
	if s == nil {
		return nil
	}
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *NotificationService) deliverWithRetry(ctx context.Context, msg notify.Message) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 5 * time.Second
	b.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(s.maxRetries)), ctx)
	return backoff.Retry(func() error {
		err := s.Deliver(ctx, msg)
		if err != nil && (notify.IsPermanent(err) || errors.Is(err, context.Canceled)) {
			return backoff.Permanent(err)
		}
		return err
	}, policy)
}
