package worker

import (
	"context"
	"errors"

	"github.com/swiftmeta/internal/config"
	"github.com/swiftmeta/internal/logger"
	"github.com/swiftmeta/internal/queue"

	"github.com/hibiken/asynq"
)

// revokedTokenPurgeSpec 注销记录清理周期
const revokedTokenPurgeSpec = "@every 1h"

// Service 异步队列服务，同时运行周期任务调度器
type Service struct {
	name      string
	server    *asynq.Server
	scheduler *asynq.Scheduler
	mux       *asynq.ServeMux
}

// NewService 创建异步队列服务
func NewService(cfg *config.QueueConfig, consumer *Consumer) (*Service, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, queue.ErrQueueDisabled
	}
	if consumer == nil {
		return nil, errors.New("consumer is nil")
	}
	opt, serverCfg := queue.BuildServerConfig(cfg)
	serverCfg.Logger = asynqLogger{}
	mux := asynq.NewServeMux()
	consumer.Register(mux)

	scheduler := asynq.NewScheduler(opt, &asynq.SchedulerOpts{Logger: asynqLogger{}})
	if _, err := scheduler.Register(revokedTokenPurgeSpec, queue.NewRevokedTokenPurgeTask(), asynq.Queue(queue.DefaultQueue)); err != nil {
		return nil, err
	}
	return &Service{
		name:      "worker",
		server:    asynq.NewServer(opt, serverCfg),
		scheduler: scheduler,
		mux:       mux,
	}, nil
}

// Name 服务名称
func (s *Service) Name() string {
	if s == nil || s.name == "" {
		return "worker"
	}
	return s.name
}

// Start 启动消费者与调度器，阻塞直到 ctx 结束
func (s *Service) Start(ctx context.Context) error {
	if s == nil || s.server == nil || s.mux == nil {
		return errors.New("worker not initialized")
	}
	if err := s.server.Start(s.mux); err != nil {
		return err
	}
	if err := s.scheduler.Start(); err != nil {
		s.server.Shutdown()
		return err
	}
	logger.Infow("worker_started", "purge_spec", revokedTokenPurgeSpec)
	<-ctx.Done()
	return nil
}

// Stop 停止服务
func (s *Service) Stop(_ context.Context) error {
	if s == nil || s.server == nil {
		return nil
	}
	s.scheduler.Shutdown()
	s.server.Shutdown()
	return nil
}

// asynqLogger 将 asynq 日志转到 zap
type asynqLogger struct{}

func (asynqLogger) Debug(args ...interface{}) { logger.Debugw("asynq", "msg", args) }
func (asynqLogger) Info(args ...interface{})  { logger.Infow("asynq", "msg", args) }
func (asynqLogger) Warn(args ...interface{})  { logger.Warnw("asynq", "msg", args) }
func (asynqLogger) Error(args ...interface{}) { logger.Errorw("asynq", "msg", args) }
func (asynqLogger) Fatal(args ...interface{}) { logger.Errorw("asynq_fatal", "msg", args) }
