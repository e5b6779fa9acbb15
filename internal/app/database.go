package app

import (
	"fmt"
	"strings"

	"github.com/swiftmeta/internal/config"
	"github.com/swiftmeta/internal/models"
)

// OpenDatabase 连接数据库并自动迁移
func OpenDatabase(cfg *config.Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, strings.EqualFold(cfg.Server.Mode, "debug"), models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	if err := models.AutoMigrate(); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}
	return nil
}
