package repository

import (
	"errors"

	"github.com/swiftmeta/internal/constants"
	"github.com/swiftmeta/internal/models"

	"gorm.io/gorm"
)

// PostRepository 帖子数据访问接口
type PostRepository interface {
	Create(post *models.Post) error
	GetByID(id uint) (*models.Post, error)
	List(filter PostListFilter) ([]models.Post, int64, error)
	Update(post *models.Post) error
	Delete(id uint) error
	CommentCounts(postIDs []uint) (map[uint]int64, error)
}

// GormPostRepository GORM 实现
type GormPostRepository struct {
	db *gorm.DB
}

// NewPostRepository 创建帖子仓库
func NewPostRepository(db *gorm.DB) *GormPostRepository {
	return &GormPostRepository{db: db}
}

// Create 创建帖子
func (r *GormPostRepository) Create(post *models.Post) error {
	return r.db.Create(post).Error
}

// GetByID 根据 ID 获取帖子（含作者）
func (r *GormPostRepository) GetByID(id uint) (*models.Post, error) {
	if id == 0 {
		return nil, nil
	}
	var post models.Post
	if err := r.db.Preload("Author").First(&post, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &post, nil
}

// List 帖子列表，最新在前
func (r *GormPostRepository) List(filter PostListFilter) ([]models.Post, int64, error) {
	query := r.db.Model(&models.Post{})
	if filter.AuthorID > 0 {
		query = query.Where("author_id = ?", filter.AuthorID)
	}
	posts := make([]models.Post, 0)
	total, err := countAndFind(query, filter.Page, filter.PageSize, "created_at DESC, id DESC", &posts, "Author")
	if err != nil {
		return nil, 0, err
	}
	return posts, total, nil
}

// Update 保存帖子
func (r *GormPostRepository) Update(post *models.Post) error {
	return r.db.Omit("Author").Save(post).Error
}

// Delete 删除帖子及其评论、回复与点赞
func (r *GormPostRepository) Delete(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var commentIDs []uint
		if err := tx.Model(&models.Comment{}).Where("post_id = ?", id).Pluck("id", &commentIDs).Error; err != nil {
			return err
		}
		if err := deleteComments(tx, commentIDs); err != nil {
			return err
		}
		if err := deleteLikes(tx, constants.LikeTargetPost, []uint{id}); err != nil {
			return err
		}
		return tx.Delete(&models.Post{}, id).Error
	})
}

// CommentCounts 批量统计评论数
func (r *GormPostRepository) CommentCounts(postIDs []uint) (map[uint]int64, error) {
	result := make(map[uint]int64, len(postIDs))
	if len(postIDs) == 0 {
		return result, nil
	}
	var rows []struct {
		PostID uint
		Total  int64
	}
	if err := r.db.Model(&models.Comment{}).
		Select("post_id, COUNT(*) AS total").
		Where("post_id IN ?", postIDs).
		Group("post_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		result[row.PostID] = row.Total
	}
	return result, nil
}

func deleteComments(tx *gorm.DB, commentIDs []uint) error {
	if len(commentIDs) == 0 {
		return nil
	}
	var replyIDs []uint
	if err := tx.Model(&models.Reply{}).Where("comment_id IN ?", commentIDs).Pluck("id", &replyIDs).Error; err != nil {
		return err
	}
	if err := deleteLikes(tx, constants.LikeTargetReply, replyIDs); err != nil {
		return err
	}
	if err := tx.Where("comment_id IN ?", commentIDs).Delete(&models.Reply{}).Error; err != nil {
		return err
	}
	if err := deleteLikes(tx, constants.LikeTargetComment, commentIDs); err != nil {
		return err
	}
	return tx.Where("id IN ?", commentIDs).Delete(&models.Comment{}).Error
}
