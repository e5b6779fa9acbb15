package repository

import (
	"strings"

	"github.com/swiftmeta/internal/models"

	"gorm.io/gorm"
)

// AuditLogRepository 后台审计日志数据访问接口
type AuditLogRepository interface {
	Create(item *models.AdminAuditLog) error
	List(filter AuditLogListFilter) ([]models.AdminAuditLog, int64, error)
}

// GormAuditLogRepository GORM 实现
type GormAuditLogRepository struct {
	db *gorm.DB
}

// NewAuditLogRepository 创建审计日志仓库
func NewAuditLogRepository(db *gorm.DB) *GormAuditLogRepository {
	return &GormAuditLogRepository{db: db}
}

// Create 写入审计日志
func (r *GormAuditLogRepository) Create(item *models.AdminAuditLog) error {
	if item == nil {
		return nil
	}
	return r.db.Create(item).Error
}

// List 分页查询审计日志
func (r *GormAuditLogRepository) List(filter AuditLogListFilter) ([]models.AdminAuditLog, int64, error) {
	query := r.db.Model(&models.AdminAuditLog{})
	if filter.OperatorAdminID > 0 {
		query = query.Where("operator_admin_id = ?", filter.OperatorAdminID)
	}
	if action := strings.TrimSpace(filter.Action); action != "" {
		query = query.Where("action = ?", action)
	}
	items := make([]models.AdminAuditLog, 0)
	total, err := countAndFind(query, filter.Page, filter.PageSize, "id DESC", &items)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}
