package repository

import (
	"github.com/swiftmeta/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LikeRepository 点赞数据访问接口
type LikeRepository interface {
	Toggle(targetType string, targetID, accountID uint) (bool, int64, error)
	Count(targetType string, targetID uint) (int64, error)
	Counts(targetType string, targetIDs []uint) (map[uint]int64, error)
	LikedBy(targetType string, targetIDs []uint, accountID uint) (map[uint]bool, error)
}

// GormLikeRepository GORM 实现
type GormLikeRepository struct {
	db *gorm.DB
}

// NewLikeRepository 创建点赞仓库
func NewLikeRepository(db *gorm.DB) *GormLikeRepository {
	return &GormLikeRepository{db: db}
}

// Toggle 已点赞则取消，否则点赞；唯一索引保证并发下不会重复。
// 返回切换后的点赞状态与最新点赞数。
func (r *GormLikeRepository) Toggle(targetType string, targetID, accountID uint) (bool, int64, error) {
	result := r.db.Where("target_type = ? AND target_id = ? AND account_id = ?", targetType, targetID, accountID).
		Delete(&models.Like{})
	if result.Error != nil {
		return false, 0, result.Error
	}
	liked := false
	if result.RowsAffected == 0 {
		like := models.Like{TargetType: targetType, TargetID: targetID, AccountID: accountID}
		if err := r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&like).Error; err != nil {
			return false, 0, err
		}
		liked = true
	}
	count, err := r.Count(targetType, targetID)
	if err != nil {
		return false, 0, err
	}
	return liked, count, nil
}

// Count 统计单个目标点赞数
func (r *GormLikeRepository) Count(targetType string, targetID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.Like{}).
		Where("target_type = ? AND target_id = ?", targetType, targetID).
		Count(&count).Error
	return count, err
}

// Counts 批量统计点赞数
func (r *GormLikeRepository) Counts(targetType string, targetIDs []uint) (map[uint]int64, error) {
	result := make(map[uint]int64, len(targetIDs))
	if len(targetIDs) == 0 {
		return result, nil
	}
	var rows []struct {
		TargetID uint
		Total    int64
	}
	if err := r.db.Model(&models.Like{}).
		Select("target_id, COUNT(*) AS total").
		Where("target_type = ? AND target_id IN ?", targetType, targetIDs).
		Group("target_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		result[row.TargetID] = row.Total
	}
	return result, nil
}

// LikedBy 查询账号对一批目标的点赞状态
func (r *GormLikeRepository) LikedBy(targetType string, targetIDs []uint, accountID uint) (map[uint]bool, error) {
	result := make(map[uint]bool, len(targetIDs))
	if len(targetIDs) == 0 || accountID == 0 {
		return result, nil
	}
	var ids []uint
	if err := r.db.Model(&models.Like{}).
		Where("target_type = ? AND account_id = ? AND target_id IN ?", targetType, accountID, targetIDs).
		Pluck("target_id", &ids).Error; err != nil {
		return nil, err
	}
	for _, id := range ids {
		result[id] = true
	}
	return result, nil
}

func deleteLikes(tx *gorm.DB, targetType string, targetIDs []uint) error {
	if len(targetIDs) == 0 {
		return nil
	}
	return tx.Where("target_type = ? AND target_id IN ?", targetType, targetIDs).Delete(&models.Like{}).Error
}
