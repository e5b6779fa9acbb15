package app

import (
	"context"
	"errors"

	"github.com/swiftmeta/internal/config"
	"github.com/swiftmeta/internal/provider"
	"github.com/swiftmeta/internal/router"
	"github.com/swiftmeta/internal/worker"
)

// BuildRunner 按启动模式组装服务
func BuildRunner(ctx context.Context, cfg *config.Config, mode string) (*Runner, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	mode, err := ParseMode(mode)
	if err != nil {
		return nil, err
	}

	container, err := provider.NewContainer(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var services []Service

	// 初始化 HTTP 服务
	if mode == ModeAll || mode == ModeAPI {
		engine, err := router.SetupRouter(cfg, container)
		if err != nil {
			_ = container.Close()
			return nil, err
		}
		services = append(services, NewHTTPService(ServerAddr(cfg.Server), engine))
	}

	// 初始化 Worker 服务；队列关闭时退化为进程内定时清理
	if mode == ModeAll || mode == ModeWorker {
		if cfg.Queue.Enabled {
			workerService, err := worker.NewService(&cfg.Queue, worker.NewConsumer(container))
			if err != nil {
				_ = container.Close()
				return nil, err
			}
			services = append(services, workerService)
		} else {
			services = append(services, newPurgeLoopService(container.AccountAuthService))
		}
	}

	services = append(services, &containerService{container: container})
	return NewRunner(services...), nil
}

// Run 应用启动入口
func Run(opts Options) error {
	opts = normalizeOptions(opts)
	if opts.Config == nil {
		return errors.New("config is nil")
	}

	runner, err := BuildRunner(context.Background(), opts.Config, opts.Mode)
	if err != nil {
		return err
	}

	opts.Logger.Infow("app_start", "addr", ServerAddr(opts.Config.Server), "mode", opts.Mode, "services", runner.Services())
	return RunWithOptions(runner, opts)
}
