package repository

import (
	"errors"
	"strings"

	"github.com/swiftmeta/internal/models"

	"gorm.io/gorm"
)

// ApplicationRepository 报名申请数据访问接口
type ApplicationRepository interface {
	Create(app *models.Application) error
	GetByID(id uint) (*models.Application, error)
	FindDuplicate(email, idNumber, phone string) (*models.Application, error)
	FindByEmailOrIDNumber(email, idNumber string) (*models.Application, error)
	List(filter ApplicationListFilter) ([]models.Application, int64, error)
	UpdateStatus(id uint, status string) error
}

// GormApplicationRepository GORM 实现
type GormApplicationRepository struct {
	db *gorm.DB
}

// NewApplicationRepository 创建报名申请仓库
func NewApplicationRepository(db *gorm.DB) *GormApplicationRepository {
	return &GormApplicationRepository{db: db}
}

// Create 创建申请
func (r *GormApplicationRepository) Create(app *models.Application) error {
	return r.db.Create(app).Error
}

func (r *GormApplicationRepository) first(query *gorm.DB) (*models.Application, error) {
	var app models.Application
	if err := query.First(&app).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &app, nil
}

// GetByID 根据 ID 获取申请
func (r *GormApplicationRepository) GetByID(id uint) (*models.Application, error) {
	if id == 0 {
		return nil, nil
	}
	return r.first(r.db.Where("id = ?", id))
}

// FindDuplicate 查找邮箱、证件号或手机号已存在的申请
func (r *GormApplicationRepository) FindDuplicate(email, idNumber, phone string) (*models.Application, error) {
	query := r.db.Where("email = ? OR id_number = ?", email, idNumber)
	if phone != "" {
		query = r.db.Where("email = ? OR id_number = ? OR phone = ?", email, idNumber, phone)
	}
	return r.first(query)
}

// FindByEmailOrIDNumber 公开查询申请进度
func (r *GormApplicationRepository) FindByEmailOrIDNumber(email, idNumber string) (*models.Application, error) {
	switch {
	case email != "":
		return r.first(r.db.Where("email = ?", email))
	case idNumber != "":
		return r.first(r.db.Where("id_number = ?", idNumber))
	default:
		return nil, nil
	}
}

// List 管理端分页查询
func (r *GormApplicationRepository) List(filter ApplicationListFilter) ([]models.Application, int64, error) {
	query := r.db.Model(&models.Application{})
	if status := strings.TrimSpace(filter.Status); status != "" {
		query = query.Where("status = ?", status)
	}
	if cond, args := buildLikeCondition(r.db, filter.Search, "first_name", "last_name", "email", "id_number"); cond != "" {
		query = query.Where(cond, args...)
	}
	apps := make([]models.Application, 0)
	total, err := countAndFind(query, filter.Page, filter.PageSize, "created_at DESC, id DESC", &apps)
	if err != nil {
		return nil, 0, err
	}
	return apps, total, nil
}

// UpdateStatus 更新申请状态
func (r *GormApplicationRepository) UpdateStatus(id uint, status string) error {
	return r.db.Model(&models.Application{}).Where("id = ?", id).Update("status", status).Error
}
