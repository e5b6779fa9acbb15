package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/swiftmeta/internal/logger"
	"github.com/swiftmeta/internal/notify"
	"github.com/swiftmeta/internal/provider"
	"github.com/swiftmeta/internal/queue"

	"github.com/hibiken/asynq"
)

// NotificationDeliverer 同步投递通知
type NotificationDeliverer interface {
	Deliver(ctx context.Context, msg notify.Message) error
}

// RevokedTokenPurger 清理过期的注销记录
type RevokedTokenPurger interface {
	PurgeRevokedTokens(now time.Time) (int64, error)
}

// Consumer 异步任务消费者
type Consumer struct {
	notifier NotificationDeliverer
	purger   RevokedTokenPurger
	now      func() time.Time
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		notifier: c.NotificationService,
		purger:   c.AccountAuthService,
		now:      time.Now,
	}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskNotificationSend, c.handleNotificationSend)
	mux.HandleFunc(queue.TaskRevokedTokenPurge, c.handleRevokedTokenPurge)
}

func (c *Consumer) handleNotificationSend(ctx context.Context, task *asynq.Task) error {
	var payload queue.NotificationPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_notification_unmarshal_failed", "error", err)
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	msg := notify.Message{
		Channel: strings.TrimSpace(payload.Channel),
		To:      strings.TrimSpace(payload.To),
		Subject: payload.Subject,
		Body:    payload.Body,
	}
	if err := msg.Validate(); err != nil {
		logger.Warnw("worker_notification_skip_invalid_payload", "event", payload.Event, "error", err)
		return nil
	}
	if c.notifier == nil {
		logger.Warnw("worker_notification_skip_notifier_nil", "event", payload.Event)
		return nil
	}
	if err := c.notifier.Deliver(ctx, msg); err != nil {
		if notify.IsPermanent(err) {
			logger.Warnw("worker_notification_permanent_failure", "event", payload.Event, "channel", msg.Channel, "error", err)
			return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
		}
		logger.Warnw("worker_notification_send_failed", "event", payload.Event, "channel", msg.Channel, "error", err)
		return err
	}
	logger.Debugw("worker_notification_sent", "event", payload.Event, "channel", msg.Channel)
	return nil
}

func (c *Consumer) handleRevokedTokenPurge(_ context.Context, _ *asynq.Task) error {
	if c.purger == nil {
		return nil
	}
	purged, err := c.purger.PurgeRevokedTokens(c.now())
	if err != nil {
		logger.Warnw("worker_revoked_token_purge_failed", "error", err)
		return err
	}
	if purged > 0 {
		logger.Infow("worker_revoked_token_purged", "count", purged)
	}
	return nil
}
