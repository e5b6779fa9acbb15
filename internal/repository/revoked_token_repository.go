package repository

import (
	"time"

	"github.com/swiftmeta/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RevokedTokenRepository 已注销 Token 数据访问接口
type RevokedTokenRepository interface {
	Revoke(item *models.RevokedToken) error
	IsRevoked(jti string, now time.Time) (bool, error)
	PurgeExpired(now time.Time) (int64, error)
}

// GormRevokedTokenRepository GORM 实现
type GormRevokedTokenRepository struct {
	db *gorm.DB
}

// NewRevokedTokenRepository 创建已注销 Token 仓库
func NewRevokedTokenRepository(db *gorm.DB) *GormRevokedTokenRepository {
	return &GormRevokedTokenRepository{db: db}
}

// Revoke 记录注销，重复注销忽略
func (r *GormRevokedTokenRepository) Revoke(item *models.RevokedToken) error {
	if item == nil || item.JTI == "" {
		return nil
	}
	return r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(item).Error
}

// IsRevoked 判断 jti 是否已注销，已过期的记录视为不存在
func (r *GormRevokedTokenRepository) IsRevoked(jti string, now time.Time) (bool, error) {
	if jti == "" {
		return false, nil
	}
	var count int64
	if err := r.db.Model(&models.RevokedToken{}).
		Where("jti = ? AND expires_at > ?", jti, now).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// PurgeExpired 删除已过期的注销记录
func (r *GormRevokedTokenRepository) PurgeExpired(now time.Time) (int64, error) {
	result := r.db.Where("expires_at <= ?", now).Delete(&models.RevokedToken{})
	return result.RowsAffected, result.Error
}
