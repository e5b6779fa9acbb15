package repository

import (
	"errors"
	"strings"

	"github.com/swiftmeta/internal/models"

	"gorm.io/gorm"
)

// ContactRepository 联系留言数据访问接口
type ContactRepository interface {
	Create(contact *models.Contact) error
	GetByID(id uint) (*models.Contact, error)
	List(filter ContactListFilter) ([]models.Contact, int64, error)
	UpdateStatus(id uint, status string) error
	Delete(id uint) (bool, error)
}

// GormContactRepository GORM 实现
type GormContactRepository struct {
	db *gorm.DB
}

// NewContactRepository 创建联系留言仓库
func NewContactRepository(db *gorm.DB) *GormContactRepository {
	return &GormContactRepository{db: db}
}

// Create 创建留言
func (r *GormContactRepository) Create(contact *models.Contact) error {
	return r.db.Create(contact).Error
}

// GetByID 根据 ID 获取留言
func (r *GormContactRepository) GetByID(id uint) (*models.Contact, error) {
	if id == 0 {
		return nil, nil
	}
	var contact models.Contact
	if err := r.db.First(&contact, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &contact, nil
}

// List 分页查询留言
func (r *GormContactRepository) List(filter ContactListFilter) ([]models.Contact, int64, error) {
	query := r.db.Model(&models.Contact{})
	if status := strings.TrimSpace(filter.Status); status != "" {
		query = query.Where("status = ?", status)
	}
	if cond, args := buildLikeCondition(r.db, filter.Search, "name", "email", "subject"); cond != "" {
		query = query.Where(cond, args...)
	}
	contacts := make([]models.Contact, 0)
	total, err := countAndFind(query, filter.Page, filter.PageSize, "created_at DESC, id DESC", &contacts)
	if err != nil {
		return nil, 0, err
	}
	return contacts, total, nil
}

// UpdateStatus 更新留言状态
func (r *GormContactRepository) UpdateStatus(id uint, status string) error {
	return r.db.Model(&models.Contact{}).Where("id = ?", id).Update("status", status).Error
}

// Delete 删除留言，返回是否存在
func (r *GormContactRepository) Delete(id uint) (bool, error) {
	result := r.db.Delete(&models.Contact{}, id)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
