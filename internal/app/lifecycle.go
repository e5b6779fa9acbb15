package app

import (
	"context"
	"time"

	"github.com/swiftmeta/internal/logger"
	"github.com/swiftmeta/internal/provider"
)

// revokedTokenPurgeInterval 队列关闭时进程内清理周期
const revokedTokenPurgeInterval = time.Hour

// containerService 最后停止：等待后台通知投递完毕再释放外部资源
type containerService struct {
	container *provider.Container
}

func (s *containerService) Name() string { return "container" }

func (s *containerService) Start(ctx context.Context) error {
	<-ctx.Done()
	return nil
}

func (s *containerService) Stop(ctx context.Context) error {
	if s == nil || s.container == nil {
		return nil
	}
	if s.container.NotificationService != nil {
		if err := s.container.NotificationService.Wait(ctx); err != nil {
			logger.Warnw("app_notification_drain_timeout", "error", err)
		}
	}
	return s.container.Close()
}

// revokedTokenPurger 清理过期注销记录
type revokedTokenPurger interface {
	PurgeRevokedTokens(now time.Time) (int64, error)
}

// purgeLoopService 队列关闭时按周期清理过期注销记录
type purgeLoopService struct {
	purger   revokedTokenPurger
	interval time.Duration
	now      func() time.Time
}

func newPurgeLoopService(purger revokedTokenPurger) *purgeLoopService {
	return &purgeLoopService{purger: purger, interval: revokedTokenPurgeInterval, now: time.Now}
}

func (s *purgeLoopService) Name() string { return "revoked_token_purge" }

func (s *purgeLoopService) Start(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.purgeOnce()
		}
	}
}

func (s *purgeLoopService) purgeOnce() {
	if s.purger == nil {
		return
	}
	removed, err := s.purger.PurgeRevokedTokens(s.now())
	if err != nil {
		logger.Warnw("app_revoked_token_purge_failed", "error", err)
		return
	}
	logger.Debugw("app_revoked_token_purged", "removed", removed)
}

func (s *purgeLoopService) Stop(context.Context) error { return nil }
