package queue

import (
	"context"
	"errors"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/swiftmeta/internal/config"
	"github.com/swiftmeta/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// DefaultQueue 默认队列名称
	DefaultQueue = constants.QueueDefault

	enqueueTimeout = 3 * time.Second
)

// ErrQueueDisabled 队列未启用，调用方需自行降级
var ErrQueueDisabled = errors.New("queue disabled")

// Client asynq 客户端封装，未启用时所有入队返回 ErrQueueDisabled
type Client struct {
	client *asynq.Client
	queue  string
}

// NewClient 创建队列客户端
func NewClient(cfg *config.QueueConfig) (*Client, error) {
	if cfg == nil || !cfg.Enabled {
		return &Client{queue: DefaultQueue}, nil
	}
	return &Client{client: asynq.NewClient(redisOpt(cfg)), queue: DefaultQueue}, nil
}

func (c *Client) Enabled() bool {
	return c != nil && c.client != nil
}

func (c *Client) Close() error {
	if !c.Enabled() {
		return nil
	}
	return c.client.Close()
}

// EnqueueNotification 推送通知任务，入队本身限时 enqueueTimeout
func (c *Client) EnqueueNotification(ctx context.Context, payload NotificationPayload, opts ...asynq.Option) error {
	if !c.Enabled() {
		return ErrQueueDisabled
	}
	task, err := NewNotificationTask(payload)
	if err != nil {
		return err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, enqueueTimeout)
	defer cancel()
	options := append(notificationOptions(payload, c.queue), opts...)
	_, err = c.client.EnqueueContext(ctx, task, options...)
	return err
}

// notificationOptions 短信通道重试更少、超时更短
func notificationOptions(payload NotificationPayload, queueName string) []asynq.Option {
	if payload.Channel == constants.NotificationChannelSMS {
		return []asynq.Option{asynq.Queue(queueName), asynq.MaxRetry(3), asynq.Timeout(30 * time.Second)}
	}
	return []asynq.Option{asynq.Queue(queueName), asynq.MaxRetry(5), asynq.Timeout(time.Minute)}
}

// BuildServerConfig 生成 worker 端连接与并发配置
func BuildServerConfig(cfg *config.QueueConfig) (asynq.RedisClientOpt, asynq.Config) {
	serverCfg := asynq.Config{
		Concurrency: 10,
		Queues:      map[string]int{DefaultQueue: 1},
	}
	if cfg != nil {
		if cfg.Concurrency > 0 {
			serverCfg.Concurrency = cfg.Concurrency
		}
		if len(cfg.Queues) > 0 {
			serverCfg.Queues = cfg.Queues
		}
	}
	return redisOpt(cfg), serverCfg
}

func redisOpt(cfg *config.QueueConfig) asynq.RedisClientOpt {
	opt := asynq.RedisClientOpt{Addr: "127.0.0.1:6379"}
	if cfg == nil {
		return opt
	}
	host := strings.TrimSpace(cfg.Host)
	if host == "" {
		host = "127.0.0.1"
	}
	port := cfg.Port
	if port <= 0 {
		port = 6379
	}
	opt.Addr = net.JoinHostPort(host, strconv.Itoa(port))
	opt.Password = cfg.Password
	opt.DB = cfg.DB
	return opt
}
