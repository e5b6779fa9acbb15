package repository

import (
	"errors"
	"strings"

	"github.com/swiftmeta/internal/models"

	"gorm.io/gorm"
)

// QuizAttemptRepository 测验记录数据访问接口
type QuizAttemptRepository interface {
	Create(attempt *models.QuizAttempt) error
	LatestByEmail(email string) (*models.QuizAttempt, error)
	List(filter QuizAttemptListFilter) ([]models.QuizAttempt, int64, error)
}

// GormQuizAttemptRepository GORM 实现
type GormQuizAttemptRepository struct {
	db *gorm.DB
}

// NewQuizAttemptRepository 创建测验记录仓库
func NewQuizAttemptRepository(db *gorm.DB) *GormQuizAttemptRepository {
	return &GormQuizAttemptRepository{db: db}
}

// Create 写入测验记录
func (r *GormQuizAttemptRepository) Create(attempt *models.QuizAttempt) error {
	return r.db.Create(attempt).Error
}

// LatestByEmail 获取邮箱最近一次提交
func (r *GormQuizAttemptRepository) LatestByEmail(email string) (*models.QuizAttempt, error) {
	var attempt models.QuizAttempt
	if err := r.db.Where("email = ?", email).Order("attempted_at DESC, id DESC").First(&attempt).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &attempt, nil
}

// List 管理端分页查询
func (r *GormQuizAttemptRepository) List(filter QuizAttemptListFilter) ([]models.QuizAttempt, int64, error) {
	query := r.db.Model(&models.QuizAttempt{})
	if email := strings.ToLower(strings.TrimSpace(filter.Email)); email != "" {
		query = query.Where("email = ?", email)
	}
	attempts := make([]models.QuizAttempt, 0)
	total, err := countAndFind(query, filter.Page, filter.PageSize, "attempted_at DESC, id DESC", &attempts)
	if err != nil {
		return nil, 0, err
	}
	return attempts, total, nil
}
