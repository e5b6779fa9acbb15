package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/swiftmeta/internal/models"

	"gorm.io/gorm"
)

// AdminRepository 运营账号数据访问
type AdminRepository interface {
	GetByUsername(username string) (*models.Admin, error)
	GetByID(id uint) (*models.Admin, error)
	Create(admin *models.Admin) error
	RotateCredentials(id uint, passwordHash string, invalidBefore time.Time) (*models.Admin, error)
	TouchLastLogin(id uint, at time.Time) error
}

// GormAdminRepository GORM 实现
type GormAdminRepository struct {
	db *gorm.DB
}

// NewAdminRepository 创建运营账号仓库
func NewAdminRepository(db *gorm.DB) *GormAdminRepository {
	return &GormAdminRepository{db: db}
}

// GetByUsername 按登录名查询，忽略大小写
func (r *GormAdminRepository) GetByUsername(username string) (*models.Admin, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" {
		return nil, nil
	}
	var admin models.Admin
	err := r.db.Where("LOWER(username) = ?", username).Take(&admin).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &admin, nil
}

func (r *GormAdminRepository) GetByID(id uint) (*models.Admin, error) {
	if id == 0 {
		return nil, nil
	}
	var admin models.Admin
	err := r.db.Take(&admin, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &admin, nil
}

func (r *GormAdminRepository) Create(admin *models.Admin) error {
	return r.db.Create(admin).Error
}

// RotateCredentials 更新密码哈希并递增 token_version，使已签发的 Token 全部失效
func (r *GormAdminRepository) RotateCredentials(id uint, passwordHash string, invalidBefore time.Time) (*models.Admin, error) {
	var rotated *models.Admin
	err := r.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Admin{}).Where("id = ?", id).Updates(map[string]interface{}{
			"password_hash":        passwordHash,
			"token_version":        gorm.Expr("token_version + 1"),
			"token_invalid_before": invalidBefore,
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		var admin models.Admin
		if err := tx.Take(&admin, id).Error; err != nil {
			return err
		}
		rotated = &admin
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rotated, nil
}

// TouchLastLogin 记录最后登录时间
func (r *GormAdminRepository) TouchLastLogin(id uint, at time.Time) error {
	return r.db.Model(&models.Admin{}).Where("id = ?", id).UpdateColumn("last_login_at", at).Error
}
